// Package page composes the DM stores into the direct-message page: selection,
// layout mode, search and post-mutation refresh.
package page

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/outbox"
)

// ConversationSource is the conversation store as seen by the page.
type ConversationSource interface {
	Refresh(ctx context.Context) error
	Create(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error)
	MarkAsRead(id int64)
	Conversations() []dmapi.Conversation
	Subscribe(fn func()) func()
}

// MessageSink is the message store as seen by the page.
type MessageSink interface {
	SetConversation(id int64)
	ConversationID() int64
	SendTo(ctx context.Context, conversationID int64, in dmapi.SendMessageInput) (*dmapi.Message, error)
	Edit(ctx context.Context, messageID int64, body string) (*dmapi.Message, error)
	Delete(ctx context.Context, messageID int64) (*dmapi.Message, error)
	Refresh(ctx context.Context) error
}

// UnreadRefresher forces a visible unread-count reload.
type UnreadRefresher interface {
	Refresh(ctx context.Context) error
}

// Identity supplies the signed-in user.
type Identity interface {
	CurrentUserID() int64
	User() *dmapi.User
}

// Controller owns the selected conversation, the narrow/wide layout and the
// search keyword.
type Controller struct {
	convs    ConversationSource
	msgs     MessageSink
	unread   UnreadRefresher
	identity Identity
	pending  *outbox.Tracker
	bus      *bus.Bus
	logger   *zap.Logger

	switchMu sync.Mutex
	mu       sync.RWMutex
	selected int64
	narrow   bool
	keyword  string
	unsub    func()
}

// NewController creates a page controller.
func NewController(convs ConversationSource, msgs MessageSink, unread UnreadRefresher, identity Identity, pending *outbox.Tracker, b *bus.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pending == nil {
		pending = outbox.NewTracker(b, logger)
	}
	return &Controller{
		convs:    convs,
		msgs:     msgs,
		unread:   unread,
		identity: identity,
		pending:  pending,
		bus:      b,
		logger:   logger,
	}
}

// Start reconciles the selection on every list change and loads the list.
func (c *Controller) Start(ctx context.Context) error {
	unsub := c.convs.Subscribe(c.reconcile)
	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()
	return c.convs.Refresh(ctx)
}

// Stop detaches from the conversation store.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// reconcile keeps the selection pointing at a listed conversation: an empty
// list clears it, a listed selection is kept, otherwise narrow layouts
// clear it and wide layouts select the first conversation.
func (c *Controller) reconcile() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	list := c.convs.Conversations()
	c.mu.Lock()
	next := Reconcile(list, c.selected, c.narrow)
	changed := next != c.selected
	c.selected = next
	c.mu.Unlock()

	if changed {
		c.logger.Debug("selection reconciled", zap.Int64("conversation_id", next))
		c.msgs.SetConversation(next)
	}
	c.publish()
}

// Reconcile returns the selection that should follow a list change.
func Reconcile(list []dmapi.Conversation, selected int64, narrow bool) int64 {
	if len(list) == 0 {
		return 0
	}
	for _, conv := range list {
		if conv.ID == selected {
			return selected
		}
	}
	if narrow {
		return 0
	}
	return list[0].ID
}

// Select opens a conversation, clears its local badge and refreshes the
// unread count.
func (c *Controller) Select(ctx context.Context, id int64) {
	c.switchMu.Lock()
	c.mu.Lock()
	changed := c.selected != id
	c.selected = id
	c.mu.Unlock()
	if changed {
		c.msgs.SetConversation(id)
	}
	c.switchMu.Unlock()
	c.publish()

	if id == 0 {
		return
	}
	c.convs.MarkAsRead(id)
	if err := c.unread.Refresh(ctx); err != nil {
		c.logger.Warn("failed to refresh unread count", zap.Error(err))
	}
}

// Back returns to the list in narrow layouts.
func (c *Controller) Back() {
	c.switchMu.Lock()
	c.mu.Lock()
	changed := c.selected != 0
	c.selected = 0
	c.mu.Unlock()
	if changed {
		c.msgs.SetConversation(0)
	}
	c.switchMu.Unlock()
	c.publish()
}

// SetNarrow switches between the narrow (list or chat) and wide (list and
// chat) layouts.
func (c *Controller) SetNarrow(narrow bool) {
	c.mu.Lock()
	same := c.narrow == narrow
	c.narrow = narrow
	c.mu.Unlock()
	if !same {
		c.reconcile()
	}
}

// ShowChat reports whether the chat pane is visible.
func (c *Controller) ShowChat() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.narrow || c.selected != 0
}

// ShowList reports whether the conversation list is visible.
func (c *Controller) ShowList() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.narrow || c.selected == 0
}

// Narrow reports the current layout.
func (c *Controller) Narrow() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.narrow
}

// Selected returns the selected conversation id, or 0.
func (c *Controller) Selected() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// SelectedConversation returns the selected conversation from the list.
func (c *Controller) SelectedConversation() (dmapi.Conversation, bool) {
	id := c.Selected()
	if id == 0 {
		return dmapi.Conversation{}, false
	}
	for _, conv := range c.convs.Conversations() {
		if conv.ID == id {
			return conv, true
		}
	}
	return dmapi.Conversation{}, false
}

// SetKeyword sets the search keyword.
func (c *Controller) SetKeyword(keyword string) {
	c.mu.Lock()
	c.keyword = keyword
	c.mu.Unlock()
	c.publish()
}

// Keyword returns the search keyword.
func (c *Controller) Keyword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keyword
}

// Filtered returns the conversations matching the keyword.
func (c *Controller) Filtered() []dmapi.Conversation {
	return Filter(c.convs.Conversations(), c.Keyword(), c.currentUserID())
}

// Filter keeps conversations whose search text contains keyword, ignoring
// case. An empty keyword keeps all.
func Filter(list []dmapi.Conversation, keyword string, currentUserID int64) []dmapi.Conversation {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return list
	}
	fold := cases.Fold()
	needle := fold.String(keyword)
	out := make([]dmapi.Conversation, 0, len(list))
	for _, conv := range list {
		if strings.Contains(fold.String(dm.SearchText(conv, currentUserID)), needle) {
			out = append(out, conv)
		}
	}
	return out
}

// PendingMessage returns the in-flight message of the selected conversation.
func (c *Controller) PendingMessage() *dmapi.Message {
	id := c.Selected()
	if id == 0 {
		return nil
	}
	return c.pending.Latest(id)
}

// Send sends a message in the open conversation, showing it as pending
// until confirmed. The pending entry and the request use the same id.
func (c *Controller) Send(ctx context.Context, in dmapi.SendMessageInput) (*dmapi.Message, error) {
	id := c.msgs.ConversationID()
	if id == 0 {
		return nil, dm.ErrNoConversation
	}
	if in.Empty() {
		return nil, dm.ErrEmptyMessage
	}
	msg, err := c.pending.Send(ctx, id, in, c.me(), c.msgs)
	if err != nil {
		return nil, err
	}
	c.afterMutation(ctx)
	return msg, nil
}

// Edit edits one of the user's messages in the selected conversation.
func (c *Controller) Edit(ctx context.Context, messageID int64, body string) (*dmapi.Message, error) {
	msg, err := c.msgs.Edit(ctx, messageID, body)
	if err != nil {
		return nil, err
	}
	c.afterMutation(ctx)
	return msg, nil
}

// Delete deletes one of the user's messages in the selected conversation.
func (c *Controller) Delete(ctx context.Context, messageID int64) (*dmapi.Message, error) {
	msg, err := c.msgs.Delete(ctx, messageID)
	if err != nil {
		return nil, err
	}
	c.afterMutation(ctx)
	return msg, nil
}

// CreateConversation creates a conversation and selects it.
func (c *Controller) CreateConversation(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
	conv, err := c.convs.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.Select(ctx, conv.ID)
	return conv, nil
}

// Refresh reloads the list, the open conversation and the unread count
// concurrently. A failing reload does not cancel the others; the first error
// is returned once all have finished.
func (c *Controller) Refresh(ctx context.Context) error {
	id := c.Selected()
	var g errgroup.Group
	g.Go(func() error { return c.convs.Refresh(ctx) })
	g.Go(func() error { return c.unread.Refresh(ctx) })
	if id != 0 {
		g.Go(func() error {
			err := c.msgs.Refresh(ctx)
			if err == nil {
				c.pending.Supersede(id)
			}
			return err
		})
	}
	return g.Wait()
}

// afterMutation refreshes list previews and unread badges together.
// Failures are background errors recorded by the stores.
func (c *Controller) afterMutation(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return c.convs.Refresh(ctx) })
	g.Go(func() error { return c.unread.Refresh(ctx) })
	if err := g.Wait(); err != nil {
		c.logger.Warn("refresh after mutation failed", zap.Error(err))
	}
}

func (c *Controller) currentUserID() int64 {
	if c.identity == nil {
		return 0
	}
	return c.identity.CurrentUserID()
}

func (c *Controller) me() *dmapi.Participant {
	if c.identity == nil {
		return nil
	}
	u := c.identity.User()
	if u == nil {
		return nil
	}
	p := u.Participant()
	return &p
}

func (c *Controller) publish() {
	c.bus.Publish(bus.NewEvent(bus.KindPageChanged, c.Selected()))
}
