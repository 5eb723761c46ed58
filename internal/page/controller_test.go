package page

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/poll"
)

var (
	me  = dmapi.Participant{ID: 1, Name: "me"}
	aya = dmapi.Participant{ID: 2, Name: "aya", DisplayName: "Aya"}
	ken = dmapi.Participant{ID: 3, Name: "ken", DisplayName: "Ken"}
)

type mockConversations struct {
	mu        sync.Mutex
	list      []dmapi.Conversation
	refreshes int
	read      []int64
	subs      []func()
	onRefresh func()
	created   *dmapi.Conversation
	err       error
}

func (m *mockConversations) Refresh(context.Context) error {
	m.mu.Lock()
	m.refreshes++
	hook, err := m.onRefresh, m.err
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}
	m.notify()
	return nil
}

func (m *mockConversations) Create(_ context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error) {
	if err := dm.ValidateCreate(in); err != nil {
		return nil, err
	}
	m.mu.Lock()
	c := *m.created
	m.list = append([]dmapi.Conversation{c}, m.list...)
	m.mu.Unlock()
	m.notify()
	return &c, nil
}

func (m *mockConversations) MarkAsRead(id int64) {
	m.mu.Lock()
	m.read = append(m.read, id)
	m.mu.Unlock()
}

func (m *mockConversations) Conversations() []dmapi.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.list)
}

func (m *mockConversations) Subscribe(fn func()) func() {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
	return func() {}
}

func (m *mockConversations) setList(list []dmapi.Conversation) {
	m.mu.Lock()
	m.list = list
	m.mu.Unlock()
	m.notify()
}

func (m *mockConversations) notify() {
	m.mu.Lock()
	subs := slices.Clone(m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (m *mockConversations) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

type mockMessages struct {
	mu       sync.Mutex
	switches []int64
	sentTo   []int64
	onSend   func(id int64)
	edits    int
	err      error
}

func (m *mockMessages) SetConversation(id int64) {
	m.mu.Lock()
	m.switches = append(m.switches, id)
	m.mu.Unlock()
}

func (m *mockMessages) ConversationID() int64 {
	if id := m.last(); id > 0 {
		return id
	}
	return 0
}

func (m *mockMessages) SendTo(ctx context.Context, id int64, in dmapi.SendMessageInput) (*dmapi.Message, error) {
	m.mu.Lock()
	m.sentTo = append(m.sentTo, id)
	hook := m.onSend
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &dmapi.Message{ID: 1, ConversationID: id, Body: in.Body}, nil
}

func (m *mockMessages) Edit(_ context.Context, id int64, body string) (*dmapi.Message, error) {
	m.edits++
	if m.err != nil {
		return nil, m.err
	}
	return &dmapi.Message{ID: id, Body: body}, nil
}

func (m *mockMessages) Delete(_ context.Context, id int64) (*dmapi.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dmapi.Message{ID: id, IsDeleted: true}, nil
}

func (m *mockMessages) Refresh(context.Context) error { return nil }

func (m *mockMessages) last() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.switches) == 0 {
		return -1
	}
	return m.switches[len(m.switches)-1]
}

type mockUnread struct {
	mu        sync.Mutex
	refreshes int
	onRefresh func()
	ctxErr    error
}

func (m *mockUnread) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.refreshes++
	hook := m.onRefresh
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	return m.ctxErr
}

func (m *mockUnread) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

type staticIdentity struct{ user dmapi.User }

func (s staticIdentity) CurrentUserID() int64 { return s.user.ID }
func (s staticIdentity) User() *dmapi.User   { return &s.user }

var identity = staticIdentity{user: dmapi.User{ID: me.ID, Name: me.Name}}

func list(ids ...int64) []dmapi.Conversation {
	out := make([]dmapi.Conversation, len(ids))
	for i, id := range ids {
		out[i] = dmapi.Conversation{ID: id}
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		list     []dmapi.Conversation
		selected int64
		narrow   bool
		want     int64
	}{
		{"empty clears", nil, 3, false, 0},
		{"empty clears narrow", nil, 3, true, 0},
		{"kept when present", list(1, 2, 3), 2, false, 2},
		{"kept when present narrow", list(1, 2, 3), 2, true, 2},
		{"wide picks first", list(4, 5), 2, false, 4},
		{"narrow clears", list(4, 5), 2, true, 0},
		{"wide picks first from none", list(4, 5), 0, false, 4},
		{"narrow stays on list", list(4, 5), 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconcile(tt.list, tt.selected, tt.narrow); got != tt.want {
				t.Errorf("Reconcile() = %d, want %d", got, tt.want)
			}
		})
	}
}

func newController(convs *mockConversations, msgs MessageSink, unread *mockUnread) *Controller {
	return NewController(convs, msgs, unread, identity, nil, nil, nil)
}

func TestReconcileOnListChange(t *testing.T) {
	convs := &mockConversations{list: list(1, 2)}
	msgs := &mockMessages{}
	c := newController(convs, msgs, &mockUnread{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if c.Selected() != 1 || msgs.last() != 1 {
		t.Fatalf("selected = %d, store = %d, want first conversation", c.Selected(), msgs.last())
	}

	c.Select(context.Background(), 2)
	convs.setList(list(3, 1))
	if c.Selected() != 3 || msgs.last() != 3 {
		t.Errorf("selected = %d, want 3 after 2 disappeared", c.Selected())
	}

	convs.setList(nil)
	if c.Selected() != 0 || msgs.last() != 0 {
		t.Errorf("selected = %d, want 0 on empty list", c.Selected())
	}
}

func TestNarrowLayout(t *testing.T) {
	convs := &mockConversations{list: list(1, 2)}
	msgs := &mockMessages{}
	c := newController(convs, msgs, &mockUnread{})
	c.SetNarrow(true)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if c.Selected() != 0 || c.ShowChat() || !c.ShowList() {
		t.Errorf("narrow start: selected=%d chat=%v list=%v", c.Selected(), c.ShowChat(), c.ShowList())
	}

	c.Select(context.Background(), 2)
	if !c.ShowChat() || c.ShowList() {
		t.Error("narrow with selection should show only chat")
	}

	c.Back()
	if c.Selected() != 0 || msgs.last() != 0 {
		t.Errorf("Back(): selected=%d", c.Selected())
	}

	c.SetNarrow(false)
	if c.Selected() != 1 || !c.ShowChat() || !c.ShowList() {
		t.Errorf("wide: selected=%d chat=%v list=%v", c.Selected(), c.ShowChat(), c.ShowList())
	}
}

func TestSelectMarksReadAndRefreshesUnread(t *testing.T) {
	convs := &mockConversations{list: list(1, 2)}
	unread := &mockUnread{}
	c := newController(convs, &mockMessages{}, unread)

	c.Select(context.Background(), 2)
	if !slices.Equal(convs.read, []int64{2}) {
		t.Errorf("read = %v, want [2]", convs.read)
	}
	if unread.Refreshes() != 1 {
		t.Errorf("unread refreshes = %d, want 1", unread.Refreshes())
	}
}

func TestFilter(t *testing.T) {
	convs := []dmapi.Conversation{
		{ID: 1, Type: dmapi.TypeDirect, Participants: []dmapi.Participant{me, aya}},
		{ID: 2, Type: dmapi.TypeGroup, Title: "Straße Team", Participants: []dmapi.Participant{me, aya, ken}},
		{ID: 3, Type: dmapi.TypeGroup, Participants: []dmapi.Participant{me, ken}},
	}
	tests := []struct {
		keyword string
		want    []int64
	}{
		{"", []int64{1, 2, 3}},
		{"  ", []int64{1, 2, 3}},
		{"aya", []int64{1}},
		{"KEN", []int64{3}},
		{"STRASSE", []int64{2}},
		{"nobody", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got := Filter(convs, tt.keyword, me.ID)
			ids := make([]int64, len(got))
			for i, c := range got {
				ids[i] = c.ID
			}
			if !slices.Equal(ids, tt.want) {
				t.Errorf("Filter(%q) = %v, want %v", tt.keyword, ids, tt.want)
			}
		})
	}
}

type mockMessageAPI struct{}

func (mockMessageAPI) FetchMessages(context.Context, int64, int) (*dmapi.MessagePage, error) {
	return &dmapi.MessagePage{Items: []dmapi.Message{}}, nil
}

func (mockMessageAPI) SendMessage(_ context.Context, id int64, in dmapi.SendMessageInput) (*dmapi.Message, error) {
	return &dmapi.Message{ID: 10, ConversationID: id, Body: in.Body, Sender: &me, CreatedAt: "2024-01-01T00:00:00Z"}, nil
}

func (mockMessageAPI) UpdateMessage(context.Context, int64, int64, string) (*dmapi.Message, error) {
	return nil, errors.New("unused")
}

func (mockMessageAPI) DeleteMessage(context.Context, int64, int64) (*dmapi.Message, error) {
	return nil, errors.New("unused")
}

func TestSendRefreshesListAndUnreadOnce(t *testing.T) {
	trig := poll.NewManual()
	store := dm.NewMessageStore(mockMessageAPI{}, trig, 0, nil, nil)
	defer store.Close()
	convs := &mockConversations{list: list(1)}
	unread := &mockUnread{}
	c := newController(convs, store, unread)

	c.Select(context.Background(), 1)
	select {
	case <-trig.Started():
	case <-time.After(2 * time.Second):
		t.Fatal("message poll not started")
	}
	convsBefore, unreadBefore := convs.Refreshes(), unread.Refreshes()

	if _, err := c.Send(context.Background(), dmapi.SendMessageInput{Body: "hello"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	msgs := store.Messages()
	if len(msgs) != 1 || msgs[0].Body != "hello" {
		t.Errorf("messages = %+v, want one hello", msgs)
	}
	if got := convs.Refreshes() - convsBefore; got != 1 {
		t.Errorf("conversation refreshes = %d, want 1", got)
	}
	if got := unread.Refreshes() - unreadBefore; got != 1 {
		t.Errorf("unread refreshes = %d, want 1", got)
	}
	if c.PendingMessage() != nil {
		t.Error("pending message left after confirmation")
	}
}

func TestMutationRefreshIsConcurrent(t *testing.T) {
	convs := &mockConversations{list: list(1)}
	unread := &mockUnread{}
	c := newController(convs, &mockMessages{}, unread)
	c.Select(context.Background(), 1)

	// Each refresh waits for the other to start; sequential calls would block.
	convStarted, unreadStarted := make(chan struct{}), make(chan struct{})
	convs.onRefresh = func() {
		close(convStarted)
		<-unreadStarted
	}
	unread.onRefresh = func() {
		close(unreadStarted)
		<-convStarted
	}

	done := make(chan error)
	go func() {
		_, err := c.Edit(context.Background(), 5, "new")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refreshes ran sequentially")
	}
}

func TestFailedMutationSkipsRefresh(t *testing.T) {
	convs := &mockConversations{list: list(1)}
	unread := &mockUnread{}
	msgs := &mockMessages{err: errors.New("forbidden")}
	c := newController(convs, msgs, unread)
	c.Select(context.Background(), 1)
	before := unread.Refreshes()

	if _, err := c.Delete(context.Background(), 5); err == nil {
		t.Fatal("expected error")
	}
	if unread.Refreshes() != before || convs.Refreshes() != 0 {
		t.Error("refresh ran after failed delete")
	}
}

func TestSendWithoutSelection(t *testing.T) {
	c := newController(&mockConversations{}, &mockMessages{}, &mockUnread{})
	if _, err := c.Send(context.Background(), dmapi.SendMessageInput{Body: "x"}); !errors.Is(err, dm.ErrNoConversation) {
		t.Errorf("Send() = %v, want ErrNoConversation", err)
	}
}

func TestCreateConversationSelects(t *testing.T) {
	convs := &mockConversations{list: list(1), created: &dmapi.Conversation{ID: 9}}
	msgs := &mockMessages{}
	c := newController(convs, msgs, &mockUnread{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	conv, err := c.CreateConversation(context.Background(), dmapi.CreateConversationInput{ParticipantIDs: []int64{2}})
	if err != nil {
		t.Fatal(err)
	}
	if conv.ID != 9 || c.Selected() != 9 || msgs.last() != 9 {
		t.Errorf("selected = %d, store = %d, want 9", c.Selected(), msgs.last())
	}

	if _, err := c.CreateConversation(context.Background(), dmapi.CreateConversationInput{ParticipantIDs: []int64{2, 3}}); !errors.Is(err, dm.ErrGroupTitleRequired) {
		t.Errorf("err = %v, want ErrGroupTitleRequired", err)
	}
}

func TestRefreshFailureDoesNotCancelOthers(t *testing.T) {
	listDown := errors.New("list down")
	convs := &mockConversations{list: list(1)}
	unread := &mockUnread{}
	c := newController(convs, &mockMessages{}, unread)
	c.Select(context.Background(), 1)

	convs.mu.Lock()
	convs.err = listDown
	convs.mu.Unlock()
	convFailed := make(chan struct{})
	convs.onRefresh = func() { close(convFailed) }
	unread.onRefresh = func() {
		<-convFailed
		// Let the failed list refresh return first.
		time.Sleep(50 * time.Millisecond)
	}

	if err := c.Refresh(context.Background()); !errors.Is(err, listDown) {
		t.Fatalf("Refresh() = %v, want list error", err)
	}
	unread.mu.Lock()
	defer unread.mu.Unlock()
	if unread.ctxErr != nil {
		t.Errorf("unread refresh saw %v, want an uncancelled context", unread.ctxErr)
	}
}

func TestSendUsesOpenConversationForPendingAndRequest(t *testing.T) {
	convs := &mockConversations{list: list(1, 2)}
	msgs := &mockMessages{}
	c := newController(convs, msgs, &mockUnread{})
	c.Select(context.Background(), 1)
	// The store has moved on before the controller saw the change.
	msgs.SetConversation(2)

	var pendingIn int64
	msgs.onSend = func(id int64) {
		if c.pending.Latest(id) != nil {
			pendingIn = id
		}
	}
	if _, err := c.Send(context.Background(), dmapi.SendMessageInput{Body: "hi"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !slices.Equal(msgs.sentTo, []int64{2}) {
		t.Errorf("sent to %v, want [2]", msgs.sentTo)
	}
	if pendingIn != 2 {
		t.Errorf("pending tagged with %d, want 2", pendingIn)
	}
}
