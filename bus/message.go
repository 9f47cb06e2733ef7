// Package bus implements the agent communication bus: the message envelope,
// the agent registry, and the delivery/correlation loop that routes REQUEST
// messages to agents and correlates RESPONSE/ERROR messages back to waiters.
package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the purpose of a Message.
type Kind string

// The set of message kinds the bus understands.
const (
	KindRequest      Kind = "request"
	KindResponse     Kind = "response"
	KindNotification Kind = "notification"
	KindStatus       Kind = "status"
	KindError        Kind = "error"
)

// valid reports whether k is one of the known message kinds.
func (k Kind) valid() bool {
	switch k {
	case KindRequest, KindResponse, KindNotification, KindStatus, KindError:
		return true
	default:
		return false
	}
}

// Context is the string-keyed mapping carried on every message. Values are a
// tagged union of {string, number, boolean, list, map, opaque-reference} in
// spirit; in Go this is simply `any`, and the bus never inspects values it
// does not own the schema for.
type Context map[string]any

// Clone returns a shallow copy of c. A nil receiver yields a non-nil empty
// map so callers can always safely add to the result.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a new Context containing c's entries overlaid with other's
// (other wins on key collision). Neither input is mutated.
func (c Context) Merge(other Context) Context {
	out := c.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Message is the typed envelope for all inter-agent communication (spec C1).
// A RESPONSE or ERROR message MUST carry a non-empty ReferenceID pointing at
// the REQUEST it answers; the bus relies on this to route replies back to
// waiters.
type Message struct {
	ID          string
	SenderID    string
	ReceiverID  string
	Kind        Kind
	Content     string
	Context     Context
	Timestamp   time.Time
	ReferenceID string
}

// NewMessage constructs a Message with a fresh ID and the current timestamp.
// It does not validate the reference-id invariant; use NewResponse/NewError
// to build correlated replies correctly.
func NewMessage(kind Kind, senderID, receiverID, content string, ctx Context) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Kind:       kind,
		Content:    content,
		Context:    ctx,
		Timestamp:  time.Now(),
	}
}

// NewResponse builds a RESPONSE message answering request req.
func NewResponse(req Message, senderID, content string, ctx Context) Message {
	m := NewMessage(KindResponse, senderID, req.SenderID, content, ctx)
	m.ReferenceID = req.ID
	return m
}

// NewErrorMessage builds an ERROR message answering request req. errKind is
// stored under the conventional "error" context key so callers can inspect
// metadata.error per the error taxonomy (spec §7).
func NewErrorMessage(req Message, senderID, errKind, content string) Message {
	m := NewMessage(KindError, senderID, req.SenderID, content, Context{"error": errKind})
	m.ReferenceID = req.ID
	return m
}

// Validate enforces the Message invariant: a RESPONSE or ERROR message must
// carry a non-empty ReferenceID, and Kind must be one of the known values.
func (m Message) Validate() error {
	if !m.Kind.valid() {
		return fmt.Errorf("message %s: invalid kind %q", m.ID, m.Kind)
	}
	if (m.Kind == KindResponse || m.Kind == KindError) && m.ReferenceID == "" {
		return fmt.Errorf("message %s: %s message missing reference_id", m.ID, m.Kind)
	}
	return nil
}

// Envelope is the bit-exact wire shape guaranteed by the core (spec §6): a
// plain map with these keys and a lowercase Kind value.
type Envelope struct {
	MessageID   string         `json:"message_id"`
	SenderID    string         `json:"sender_id"`
	ReceiverID  string         `json:"receiver_id"`
	Type        string         `json:"type"`
	Content     string         `json:"content"`
	Context     map[string]any `json:"context"`
	Timestamp   time.Time      `json:"timestamp"`
	ReferenceID string         `json:"reference_id,omitempty"`
}

// ToEnvelope serializes m to its wire envelope.
func (m Message) ToEnvelope() Envelope {
	return Envelope{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Type:        string(m.Kind),
		Content:     m.Content,
		Context:     map[string]any(m.Context),
		Timestamp:   m.Timestamp,
		ReferenceID: m.ReferenceID,
	}
}

// FromEnvelope parses a wire envelope back into a Message. Round-tripping a
// Message through ToEnvelope/FromEnvelope yields an equal Message for all
// fields.
func FromEnvelope(e Envelope) (Message, error) {
	k := Kind(e.Type)
	if !k.valid() {
		return Message{}, fmt.Errorf("envelope %s: unknown type %q", e.MessageID, e.Type)
	}
	return Message{
		ID:          e.MessageID,
		SenderID:    e.SenderID,
		ReceiverID:  e.ReceiverID,
		Kind:        k,
		Content:     e.Content,
		Context:     Context(e.Context),
		Timestamp:   e.Timestamp,
		ReferenceID: e.ReferenceID,
	}, nil
}
