// Package outbox tracks optimistic, not yet confirmed messages.
package outbox

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dmapi"
)

// DefaultPendingTTL is how far ahead PendingExpiresAt is stamped.
const DefaultPendingTTL = 30 * time.Second

// Sender delivers a message to the server.
type Sender interface {
	SendTo(ctx context.Context, conversationID int64, in dmapi.SendMessageInput) (*dmapi.Message, error)
}

// Pending is a client-only message awaiting confirmation.
type Pending struct {
	CorrelationID  string
	ConversationID int64
	Message        dmapi.Message
}

// SendAck is the payload of a send_ack event.
type SendAck struct {
	CorrelationID  string
	ConversationID int64
	MessageID      int64
}

// SendFailed is the payload of a send_failed event.
type SendFailed struct {
	CorrelationID  string
	ConversationID int64
	Err            error
}

// Tracker holds pending messages per conversation.
type Tracker struct {
	bus    *bus.Bus
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries []Pending
}

// NewTracker creates an empty tracker.
func NewTracker(b *bus.Bus, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		bus:    b,
		logger: logger,
		ttl:    DefaultPendingTTL,
		now:    time.Now,
	}
}

// Add records a pending copy of in and returns it.
func (t *Tracker) Add(conversationID int64, in dmapi.SendMessageInput, sender *dmapi.Participant) Pending {
	now := t.now()
	p := Pending{
		CorrelationID:  uuid.NewString(),
		ConversationID: conversationID,
	}
	p.Message = dmapi.Message{
		ConversationID:   conversationID,
		Body:             in.Body,
		Sender:           sender,
		CreatedAt:        now.UTC().Format(time.RFC3339),
		IsPending:        true,
		PendingExpiresAt: now.Add(t.ttl),
		CorrelationID:    p.CorrelationID,
	}
	for _, f := range in.Files {
		p.Message.Attachments = append(p.Message.Attachments, dmapi.Attachment{Name: f.Name, Size: int64(len(f.Data))})
	}

	t.mu.Lock()
	t.entries = append(t.entries, p)
	t.mu.Unlock()
	t.bus.Publish(bus.NewEvent(bus.KindPendingChanged, conversationID))
	return p
}

// remove deletes the entry and reports whether it existed.
func (t *Tracker) remove(correlationID string) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.IndexFunc(t.entries, func(p Pending) bool { return p.CorrelationID == correlationID })
	if i < 0 {
		return Pending{}, false
	}
	p := t.entries[i]
	t.entries = slices.Delete(t.entries, i, i+1)
	return p, true
}

// Resolve removes a pending entry whose confirmed message arrived.
func (t *Tracker) Resolve(correlationID string, confirmed *dmapi.Message) {
	p, ok := t.remove(correlationID)
	if !ok {
		return
	}
	var id int64
	if confirmed != nil {
		id = confirmed.ID
	}
	t.bus.Publish(bus.NewEvent(bus.KindSendAck, SendAck{
		CorrelationID:  correlationID,
		ConversationID: p.ConversationID,
		MessageID:      id,
	}))
	t.bus.Publish(bus.NewEvent(bus.KindPendingChanged, p.ConversationID))
}

// Drop removes a pending entry that failed to send.
func (t *Tracker) Drop(correlationID string, cause error) {
	p, ok := t.remove(correlationID)
	if !ok {
		return
	}
	t.bus.Publish(bus.NewEvent(bus.KindSendFailed, SendFailed{
		CorrelationID:  correlationID,
		ConversationID: p.ConversationID,
		Err:            cause,
	}))
	t.bus.Publish(bus.NewEvent(bus.KindPendingChanged, p.ConversationID))
}

// Supersede discards every pending entry of a conversation after a full
// reload replaced its message list.
func (t *Tracker) Supersede(conversationID int64) {
	t.mu.Lock()
	before := len(t.entries)
	t.entries = slices.DeleteFunc(t.entries, func(p Pending) bool { return p.ConversationID == conversationID })
	removed := before - len(t.entries)
	t.mu.Unlock()
	if removed > 0 {
		t.bus.Publish(bus.NewEvent(bus.KindPendingChanged, conversationID))
	}
}

// For returns the pending entries of a conversation in send order.
func (t *Tracker) For(conversationID int64) []Pending {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Pending
	for _, p := range t.entries {
		if p.ConversationID == conversationID {
			out = append(out, p)
		}
	}
	return out
}

// Latest returns the newest pending message of a conversation, or nil.
func (t *Tracker) Latest(conversationID int64) *dmapi.Message {
	pending := t.For(conversationID)
	if len(pending) == 0 {
		return nil
	}
	m := pending[len(pending)-1].Message
	return &m
}

// Send shows in as pending while sender delivers it, then resolves or drops
// the entry.
func (t *Tracker) Send(ctx context.Context, conversationID int64, in dmapi.SendMessageInput, me *dmapi.Participant, sender Sender) (*dmapi.Message, error) {
	p := t.Add(conversationID, in, me)

	msg, err := sender.SendTo(ctx, conversationID, in)
	if err != nil {
		t.logger.Warn("failed to send message",
			zap.String("correlation_id", p.CorrelationID),
			zap.Int64("conversation_id", conversationID),
			zap.Error(err),
		)
		t.Drop(p.CorrelationID, err)
		return nil, err
	}

	t.logger.Info("message sent",
		zap.String("correlation_id", p.CorrelationID),
		zap.Int64("message_id", msg.ID),
	)
	t.Resolve(p.CorrelationID, msg)
	return msg, nil
}
