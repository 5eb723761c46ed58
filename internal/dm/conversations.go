package dm

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dmapi"
)

// ConversationAPI is the subset of the DM API the conversation store uses.
type ConversationAPI interface {
	FetchConversations(ctx context.Context) ([]dmapi.Conversation, error)
	CreateConversation(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error)
}

// ConversationStore owns the current user's conversation list.
type ConversationStore struct {
	api    ConversationAPI
	bus    *bus.Bus
	logger *zap.Logger
	subs   listeners

	mu            sync.RWMutex
	conversations []dmapi.Conversation
	loading       bool
	err           error
	issued        uint64
}

// NewConversationStore creates an empty store.
func NewConversationStore(api ConversationAPI, b *bus.Bus, logger *zap.Logger) *ConversationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		api:           api,
		bus:           b,
		logger:        logger,
		conversations: []dmapi.Conversation{},
	}
}

// Refresh replaces the list with the server's. Only the most recently issued
// refresh is applied; loading is cleared when it completes.
func (s *ConversationStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.loading = true
	s.mu.Unlock()
	s.changed()

	convs, err := s.api.FetchConversations(ctx)

	s.mu.Lock()
	if seq != s.issued {
		s.mu.Unlock()
		return err
	}
	s.loading = false
	if err != nil {
		s.err = err
	} else {
		s.conversations = convs
		s.err = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to refresh conversations", zap.Error(err))
	}
	s.changed()
	return err
}

// Create validates the request, creates the conversation and upserts it:
// an existing entry with the same id is replaced in place, otherwise the new
// conversation is prepended.
func (s *ConversationStore) Create(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
	if err := ValidateCreate(in); err != nil {
		return nil, err
	}
	conv, err := s.api.CreateConversation(ctx, NormalizeCreate(in))
	if err != nil {
		s.logger.Warn("failed to create conversation", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.conversations = upsert(s.conversations, *conv)
	s.mu.Unlock()

	s.logger.Info("conversation created", zap.Int64("conversation_id", conv.ID))
	s.changed()
	return conv, nil
}

func upsert(list []dmapi.Conversation, conv dmapi.Conversation) []dmapi.Conversation {
	idx := slices.IndexFunc(list, func(c dmapi.Conversation) bool { return c.ID == conv.ID })
	out := slices.Clone(list)
	if idx >= 0 {
		out[idx] = conv
		return out
	}
	return append([]dmapi.Conversation{conv}, out...)
}

// MarkAsRead clears the local unread badge of a conversation. Nothing is sent
// to the server; the next refresh restores the authoritative count.
func (s *ConversationStore) MarkAsRead(id int64) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.conversations, func(c dmapi.Conversation) bool { return c.ID == id })
	if idx < 0 || s.conversations[idx].UnreadCount == 0 {
		s.mu.Unlock()
		return
	}
	s.conversations = slices.Clone(s.conversations)
	s.conversations[idx].UnreadCount = 0
	s.mu.Unlock()
	s.changed()
}

// Conversations returns a snapshot of the list in server order.
func (s *ConversationStore) Conversations() []dmapi.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conversations)
}

// Find returns the conversation with the given id.
func (s *ConversationStore) Find(id int64) (dmapi.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return dmapi.Conversation{}, false
}

// Loading reports whether a refresh is in flight.
func (s *ConversationStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last refresh error.
func (s *ConversationStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Subscribe registers fn to run after every state change. The returned
// function unregisters it.
func (s *ConversationStore) Subscribe(fn func()) func() {
	return s.subs.add(fn)
}

func (s *ConversationStore) changed() {
	s.subs.notify()
	s.bus.Publish(bus.NewEvent(bus.KindConversationsChanged, nil))
}
