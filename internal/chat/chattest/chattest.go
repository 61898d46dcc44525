// Package chattest provides an in-memory chat.Transport for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/snapngo/snapngo/internal/chat"
)

type Sent struct {
	Recipient string
	Payload   chat.Payload
	Ref       chat.MessageRef
}

type Updated struct {
	Ref     chat.MessageRef
	Payload chat.Payload
}

// Transport records every call. Files maps download references to their
// content; FailSend makes Send fail for the listed recipients. When Hold is
// set, Send blocks until it is closed or the context is done.
type Transport struct {
	mu        sync.Mutex
	seq       int
	sent      []Sent
	updated   []Updated
	downloads []string

	Files    map[string][]byte
	FailSend map[string]error
	Hold     <-chan struct{}
}

func New() *Transport {
	return &Transport{
		Files:    map[string][]byte{},
		FailSend: map[string]error{},
	}
}

func (t *Transport) Send(ctx context.Context, recipient string, p chat.Payload) (chat.MessageRef, error) {
	if t.Hold != nil {
		select {
		case <-t.Hold:
		case <-ctx.Done():
			return chat.MessageRef{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err, ok := t.FailSend[recipient]; ok {
		return chat.MessageRef{}, err
	}

	t.seq++
	ref := chat.MessageRef{Channel: "D" + recipient, Timestamp: fmt.Sprintf("1700000000.%06d", t.seq)}
	t.sent = append(t.sent, Sent{Recipient: recipient, Payload: p, Ref: ref})
	return ref, nil
}

func (t *Transport) Update(_ context.Context, ref chat.MessageRef, p chat.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.updated = append(t.updated, Updated{Ref: ref, Payload: p})
	return nil
}

func (t *Transport) Download(_ context.Context, ref string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.downloads = append(t.downloads, ref)
	data, ok := t.Files[ref]
	if !ok {
		return nil, fmt.Errorf("no file at %s", ref)
	}
	return data, nil
}

// Sent returns a copy of every successful Send.
func (t *Transport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}

// SentTo returns the texts sent to recipient, in order.
func (t *Transport) SentTo(recipient string) []string {
	var out []string
	for _, s := range t.Sent() {
		if s.Recipient == recipient {
			out = append(out, s.Payload.Text)
		}
	}
	return out
}

func (t *Transport) Updated() []Updated {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Updated(nil), t.updated...)
}

func (t *Transport) Downloads() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.downloads...)
}
