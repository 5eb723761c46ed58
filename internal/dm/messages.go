package dm

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/poll"
)

// MessageAPI is the subset of the DM API the message store uses.
type MessageAPI interface {
	FetchMessages(ctx context.Context, conversationID int64, perPage int) (*dmapi.MessagePage, error)
	SendMessage(ctx context.Context, conversationID int64, in dmapi.SendMessageInput) (*dmapi.Message, error)
	UpdateMessage(ctx context.Context, conversationID, messageID int64, body string) (*dmapi.Message, error)
	DeleteMessage(ctx context.Context, conversationID, messageID int64) (*dmapi.Message, error)
}

// MessageStore owns the sorted message list of the selected conversation and
// polls it in the background. Conversation id 0 means none is selected.
type MessageStore struct {
	api     MessageAPI
	trigger poll.Trigger
	perPage int
	bus     *bus.Bus
	logger  *zap.Logger
	subs    listeners
	wg      sync.WaitGroup

	mu       sync.Mutex
	base     context.Context
	cancel   context.CancelFunc
	convID   int64
	gen      uint64
	issued   uint64
	applied  uint64
	spinSeq  uint64
	messages []dmapi.Message
	loading  bool
	err      error
}

// NewMessageStore creates a store that polls with trigger. perPage <= 0 uses
// the API default.
func NewMessageStore(api MessageAPI, trigger poll.Trigger, perPage int, b *bus.Bus, logger *zap.Logger) *MessageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageStore{
		api:      api,
		trigger:  trigger,
		perPage:  perPage,
		bus:      b,
		logger:   logger,
		base:     context.Background(),
		messages: []dmapi.Message{},
	}
}

// Start sets the parent context of background loads.
func (s *MessageStore) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
}

// SetConversation switches the store to conversation id. The previous poll
// is cancelled and its in-flight responses are discarded. A non-zero id
// starts a visible load followed by silent polling.
func (s *MessageStore) SetConversation(id int64) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	gen := s.gen
	s.convID = id
	s.err = nil
	s.messages = []dmapi.Message{}
	s.loading = false
	if id != 0 {
		s.issued++
		s.spinSeq = s.issued
		s.loading = true
		ctx, cancel := context.WithCancel(s.base)
		s.cancel = cancel
		s.wg.Add(1)
		go s.run(ctx, gen, id, s.spinSeq)
	}
	s.mu.Unlock()
	s.changed(id)
}

func (s *MessageStore) run(ctx context.Context, gen uint64, id int64, firstSeq uint64) {
	defer s.wg.Done()
	s.fetch(ctx, gen, id, firstSeq, true)
	s.trigger.Run(ctx, func(ctx context.Context) {
		seq, ok := s.begin(gen, false)
		if !ok {
			return
		}
		s.fetch(ctx, gen, id, seq, false)
	})
}

// begin issues a request sequence number for generation gen.
func (s *MessageStore) begin(gen uint64, spinner bool) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return 0, false
	}
	s.issued++
	if spinner {
		s.spinSeq = s.issued
		s.loading = true
	}
	return s.issued, true
}

func (s *MessageStore) fetch(ctx context.Context, gen uint64, id int64, seq uint64, spinner bool) error {
	page, err := s.api.FetchMessages(ctx, id, s.perPage)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return err
	}
	if spinner && seq == s.spinSeq {
		s.loading = false
	}
	if seq <= s.applied {
		loading := s.loading
		s.mu.Unlock()
		if spinner && !loading {
			s.changed(id)
		}
		return err
	}
	s.applied = seq
	if err != nil {
		s.err = err
	} else {
		s.messages = SortMessages(page.Items)
		s.err = nil
	}
	s.mu.Unlock()

	if err != nil {
		if spinner {
			s.logger.Warn("failed to load messages", zap.Int64("conversation_id", id), zap.Error(err))
		} else {
			s.logger.Debug("message poll failed", zap.Int64("conversation_id", id), zap.Error(err))
		}
	}
	s.changed(id)
	return err
}

// Load fetches the selected conversation's newest page and replaces the list.
func (s *MessageStore) Load(ctx context.Context, withSpinner bool) error {
	s.mu.Lock()
	id, gen := s.convID, s.gen
	s.mu.Unlock()
	if id == 0 {
		return ErrNoConversation
	}
	seq, ok := s.begin(gen, withSpinner)
	if !ok {
		return nil
	}
	if withSpinner {
		s.changed(id)
	}
	return s.fetch(ctx, gen, id, seq, withSpinner)
}

// Refresh is a visible reload.
func (s *MessageStore) Refresh(ctx context.Context) error {
	return s.Load(ctx, true)
}

// Send posts a message to the open conversation and appends the confirmed
// result.
func (s *MessageStore) Send(ctx context.Context, in dmapi.SendMessageInput) (*dmapi.Message, error) {
	return s.SendTo(ctx, s.ConversationID(), in)
}

// SendTo posts a message to conversation id. The confirmed result is appended
// only while id is still the open conversation.
func (s *MessageStore) SendTo(ctx context.Context, id int64, in dmapi.SendMessageInput) (*dmapi.Message, error) {
	if id == 0 {
		return nil, ErrNoConversation
	}
	if in.Empty() {
		return nil, ErrEmptyMessage
	}
	open, gen := s.current()
	msg, err := s.api.SendMessage(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if open != id {
		return msg, nil
	}
	s.apply(gen, id, func(list []dmapi.Message) []dmapi.Message {
		if i := indexOf(list, msg.ID); i >= 0 {
			list[i] = *msg
			return list
		}
		return append(list, *msg)
	})
	return msg, nil
}

// Edit replaces the body of message messageID.
func (s *MessageStore) Edit(ctx context.Context, messageID int64, body string) (*dmapi.Message, error) {
	id, gen := s.current()
	if id == 0 {
		return nil, ErrNoConversation
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyEdit
	}
	msg, err := s.api.UpdateMessage(ctx, id, messageID, body)
	if err != nil {
		return nil, err
	}
	s.apply(gen, id, func(list []dmapi.Message) []dmapi.Message {
		if i := indexOf(list, messageID); i >= 0 {
			list[i] = merge(list[i], *msg)
		}
		return list
	})
	return msg, nil
}

// Delete tombstones message messageID.
func (s *MessageStore) Delete(ctx context.Context, messageID int64) (*dmapi.Message, error) {
	id, gen := s.current()
	if id == 0 {
		return nil, ErrNoConversation
	}
	msg, err := s.api.DeleteMessage(ctx, id, messageID)
	if err != nil {
		return nil, err
	}
	s.apply(gen, id, func(list []dmapi.Message) []dmapi.Message {
		if i := indexOf(list, messageID); i >= 0 {
			tomb := merge(list[i], *msg)
			tomb.IsDeleted = true
			if tomb.DeletedAt == "" {
				tomb.DeletedAt = msg.DeletedAt
			}
			list[i] = tomb
		}
		return list
	})
	return msg, nil
}

// merge overlays the server's copy onto the local one, keeping local fields
// the server omitted.
func merge(local, server dmapi.Message) dmapi.Message {
	out := server
	if out.ConversationID == 0 {
		out.ConversationID = local.ConversationID
	}
	if out.Sender == nil {
		out.Sender = local.Sender
	}
	if out.CreatedAt == "" {
		out.CreatedAt = local.CreatedAt
	}
	if out.Attachments == nil && !out.IsDeleted {
		out.Attachments = local.Attachments
	}
	return out
}

func (s *MessageStore) apply(gen uint64, id int64, fn func([]dmapi.Message) []dmapi.Message) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.messages = SortMessages(fn(slices.Clone(s.messages)))
	// Responses to fetches issued before this mutation predate it.
	s.applied = s.issued
	s.mu.Unlock()
	s.changed(id)
}

func (s *MessageStore) current() (int64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID, s.gen
}

func indexOf(list []dmapi.Message, id int64) int {
	return slices.IndexFunc(list, func(m dmapi.Message) bool { return m.ID == id })
}

// Close cancels polling and waits for the poll goroutine to exit.
func (s *MessageStore) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.mu.Unlock()
	s.wg.Wait()
}

// ConversationID returns the selected conversation id, or 0.
func (s *MessageStore) ConversationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID
}

// Messages returns a snapshot of the sorted message list.
func (s *MessageStore) Messages() []dmapi.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Loading reports whether a visible load is in flight.
func (s *MessageStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last load error.
func (s *MessageStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe registers fn to run after every state change. The returned
// function unregisters it.
func (s *MessageStore) Subscribe(fn func()) func() {
	return s.subs.add(fn)
}

func (s *MessageStore) changed(id int64) {
	s.subs.notify()
	s.bus.Publish(bus.NewEvent(bus.KindMessagesChanged, id))
}
