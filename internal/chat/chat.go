// Package chat defines the boundary between snapngo and a chat platform:
// the inbound event variant and the outbound transport.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/snapngo/snapngo/internal/models"
	"github.com/snapngo/snapngo/internal/offer"
)

// Kind discriminates inbound events.
type Kind int

const (
	KindUnknown Kind = iota
	// KindText is a message without attachments.
	KindText
	// KindFiles is a message carrying one or more attachments.
	KindFiles
	// KindDecision is an accept/reject button press.
	KindDecision
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFiles:
		return "files"
	case KindDecision:
		return "decision"
	default:
		return "unknown"
	}
}

// Attachment describes one file attached to a message.
type Attachment struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	DownloadRef string
}

// MessageRef locates a previously sent message.
type MessageRef struct {
	Channel   string
	Timestamp string
}

func (r MessageRef) IsZero() bool {
	return r.Channel == "" && r.Timestamp == ""
}

// Decision is the payload of a KindDecision event.
type Decision struct {
	Value   models.AssignmentStatus
	TaskTag string
	Message MessageRef
	// Ack confirms receipt to the platform. It must be called before the
	// platform's response deadline.
	Ack func(ctx context.Context) error
}

// Event is an inbound chat event decoded once at the transport boundary.
type Event struct {
	Kind        Kind
	Sender      string
	Channel     string
	Text        string
	Attachments []Attachment
	Decision    *Decision
	At          time.Time
}

// Payload is an outbound message. Offer, when set, renders as an
// interactive task offer; Sections render as plain text blocks.
type Payload struct {
	Text     string
	Sections []string
	Offer    *offer.View
}

// TextPayload is a plain single-line reply.
func TextPayload(text string) Payload {
	return Payload{Text: text}
}

// InfoPayload converts a static info page.
func InfoPayload(info offer.Info) Payload {
	return Payload{Text: info.Text, Sections: info.Sections}
}

// OfferPayload wraps a rendered offer.
func OfferPayload(view offer.View, fallback string) Payload {
	return Payload{Text: fallback, Offer: &view}
}

// Transport is the outbound side of the chat platform.
type Transport interface {
	Send(ctx context.Context, recipient string, p Payload) (MessageRef, error)
	Update(ctx context.Context, ref MessageRef, p Payload) error
	Download(ctx context.Context, ref string) ([]byte, error)
}

// TransportError records a failed outbound call for one recipient.
type TransportError struct {
	Recipient string
	TaskID    int64
	Err       error
}

func (e *TransportError) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("send to %s (task %d): %v", e.Recipient, e.TaskID, e.Err)
	}
	return fmt.Sprintf("send to %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
