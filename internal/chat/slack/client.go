// Package slack adapts the Slack Web API and socket mode to the chat
// boundary.
package slack

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	goslack "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/snapngo/snapngo/internal/chat"
)

// Client is a chat.Transport backed by a Slack bot token. The app level
// token is only needed for Listen.
type Client struct {
	api   *goslack.Client
	sm    *socketmode.Client
	botID string
}

func New(botToken, appToken string) (*Client, error) {
	if botToken == "" {
		return nil, errors.New("slack bot token is required")
	}

	opts := []goslack.Option{}
	if appToken != "" {
		opts = append(opts, goslack.OptionAppLevelToken(appToken))
	}

	c := &Client{api: goslack.New(botToken, opts...)}
	if appToken != "" {
		c.sm = socketmode.New(c.api)
	}
	return c, nil
}

// Identify resolves and caches the bot's own user id.
func (c *Client) Identify(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test: %w", err)
	}
	c.botID = resp.UserID
	return c.botID, nil
}

func (c *Client) BotID() string {
	return c.botID
}

func (c *Client) Send(ctx context.Context, recipient string, p chat.Payload) (chat.MessageRef, error) {
	channel, ts, err := c.api.PostMessageContext(ctx, recipient, options(p)...)
	if err != nil {
		return chat.MessageRef{}, &chat.TransportError{Recipient: recipient, TaskID: taskID(p), Err: err}
	}
	return chat.MessageRef{Channel: channel, Timestamp: ts}, nil
}

func (c *Client) Update(ctx context.Context, ref chat.MessageRef, p chat.Payload) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, ref.Channel, ref.Timestamp, options(p)...); err != nil {
		return &chat.TransportError{Recipient: ref.Channel, TaskID: taskID(p), Err: err}
	}
	return nil
}

// Download fetches a private file URL with the bot token.
func (c *Client) Download(ctx context.Context, ref string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.api.GetFileContext(ctx, ref, &buf); err != nil {
		return nil, fmt.Errorf("slack download: %w", err)
	}
	return buf.Bytes(), nil
}

func options(p chat.Payload) []goslack.MsgOption {
	opts := []goslack.MsgOption{goslack.MsgOptionText(p.Text, false)}
	if blocks := Blocks(p); len(blocks) > 0 {
		opts = append(opts, goslack.MsgOptionBlocks(blocks...))
	}
	return opts
}

func taskID(p chat.Payload) int64 {
	if p.Offer == nil {
		return 0
	}
	return p.Offer.TaskID
}
