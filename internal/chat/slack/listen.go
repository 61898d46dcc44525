package slack

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/offer"
	"github.com/snapngo/snapngo/pkg/log"
)

// Listen opens a socket mode connection and delivers decoded events to out
// until ctx is done. Events API envelopes are acknowledged on receipt;
// button presses are acknowledged by the consumer through Decision.Ack.
func (c *Client) Listen(ctx context.Context, out chan<- chat.Event) error {
	if c.sm == nil {
		return errors.New("slack app token is required to listen")
	}

	go c.pump(ctx, out)

	return c.sm.RunContext(ctx)
}

func (c *Client) pump(ctx context.Context, out chan<- chat.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.sm.Events:
			if !ok {
				return
			}
			if ev, ok := c.decode(evt); ok {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (c *Client) decode(evt socketmode.Event) (chat.Event, bool) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Info("slack connecting")
	case socketmode.EventTypeConnected:
		log.Info("slack connected")
	case socketmode.EventTypeConnectionError:
		log.Warn("slack connection error", "data", evt.Data)
	case socketmode.EventTypeEventsAPI:
		c.ack(evt.Request)

		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return chat.Event{}, false
		}
		if msg, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			return DecodeMessage(msg)
		}
	case socketmode.EventTypeInteractive:
		cb, ok := evt.Data.(goslack.InteractionCallback)
		if !ok {
			c.ack(evt.Request)
			return chat.Event{}, false
		}

		ev, ok := DecodeInteraction(cb)
		if !ok {
			c.ack(evt.Request)
			return chat.Event{}, false
		}

		req := evt.Request
		ev.Decision.Ack = func(ctx context.Context) error {
			return c.ackCtx(ctx, req)
		}
		return ev, true
	}
	return chat.Event{}, false
}

func (c *Client) ack(req *socketmode.Request) {
	if req != nil {
		c.sm.Ack(*req)
	}
}

// ackCtx acknowledges req, giving up when ctx is done.
func (c *Client) ackCtx(ctx context.Context, req *socketmode.Request) error {
	if req == nil {
		return nil
	}
	return c.sm.AckCtx(ctx, req.EnvelopeID, nil)
}

// DecodeMessage converts a user message. Bot posts and edits are dropped.
func DecodeMessage(msg *slackevents.MessageEvent) (chat.Event, bool) {
	if msg == nil || msg.BotID != "" || msg.User == "" {
		return chat.Event{}, false
	}
	if msg.SubType != "" && msg.SubType != "file_share" {
		return chat.Event{}, false
	}

	ev := chat.Event{
		Kind:    chat.KindText,
		Sender:  msg.User,
		Channel: msg.Channel,
		Text:    msg.Text,
		At:      parseTimestamp(msg.TimeStamp),
	}

	if len(msg.Files) > 0 || msg.SubType == "file_share" {
		ev.Kind = chat.KindFiles
		for _, f := range msg.Files {
			ev.Attachments = append(ev.Attachments, chat.Attachment{
				ID:          f.ID,
				Name:        f.Name,
				MimeType:    f.Mimetype,
				Size:        int64(f.Size),
				DownloadRef: f.URLPrivateDownload,
			})
		}
	}

	return ev, true
}

// DecodeInteraction converts an accept/reject button press. Other
// interactions are dropped.
func DecodeInteraction(cb goslack.InteractionCallback) (chat.Event, bool) {
	if cb.Type != goslack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return chat.Event{}, false
	}

	action := cb.ActionCallback.BlockActions[0]
	if action.ActionID != offer.ActionAccept && action.ActionID != offer.ActionReject {
		return chat.Event{}, false
	}

	ts := cb.Container.MessageTs
	if ts == "" {
		ts = cb.Message.Timestamp
	}
	channel := cb.Channel.ID
	if channel == "" {
		channel = cb.Container.ChannelID
	}

	return chat.Event{
		Kind:    chat.KindDecision,
		Sender:  cb.User.ID,
		Channel: channel,
		At:      time.Now().UTC(),
		Decision: &chat.Decision{
			Value:   models.AssignmentStatus(action.Value),
			TaskTag: action.BlockID,
			Message: chat.MessageRef{Channel: channel, Timestamp: ts},
		},
	}, true
}

// parseTimestamp reads a Slack "seconds.micros" timestamp. An unparsable
// value yields the zero time.
func parseTimestamp(ts string) time.Time {
	secs, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}
	}

	var nanos int64
	if frac != "" {
		frac = (frac + "000000000")[:9]
		if nanos, err = strconv.ParseInt(frac, 10, 64); err != nil {
			nanos = 0
		}
	}
	return time.Unix(s, nanos).UTC()
}
