package model

import (
	"sync"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
)

// PageState is the page controller as read by the views.
type PageState interface {
	Filtered() []dmapi.Conversation
	Keyword() string
	Selected() int64
	SelectedConversation() (dmapi.Conversation, bool)
	PendingMessage() *dmapi.Message
	Narrow() bool
	ShowList() bool
	ShowChat() bool
}

// ListState is the conversation store as read by the views.
type ListState interface {
	Conversations() []dmapi.Conversation
	Loading() bool
	Err() error
}

// MessageState is the message store as read by the views.
type MessageState interface {
	ConversationID() int64
	Messages() []dmapi.Message
	Loading() bool
	Err() error
}

// UnreadState is the unread coordinator as read by the views.
type UnreadState interface {
	Count() int
	Loading() bool
	Err() error
}

// SessionState is the signed-in user as read by the views.
type SessionState interface {
	State() auth.State
	User() *dmapi.User
	CurrentUserID() int64
}

// Snapshot is everything the page renders in one frame.
type Snapshot struct {
	Session       auth.State
	User          *dmapi.User
	CurrentUserID int64

	Conversations []dmapi.Conversation
	Total         int
	ListLoading   bool
	ListErr       error
	Keyword       string

	Selected     int64
	Conversation dmapi.Conversation
	Open         bool
	Rows         []Row
	PaneLoading  bool
	PaneErr      error

	Unread        int
	UnreadLoading bool
	UnreadErr     error

	Narrow   bool
	ShowList bool
	ShowChat bool
}

// ViewModel gathers store state into snapshots and signals when the UI
// should redraw.
type ViewModel struct {
	page    PageState
	list    ListState
	msgs    MessageState
	unread  UnreadState
	session SessionState
	fmt     *format.Formatter

	mu    sync.Mutex
	stops []func()

	refreshCh chan struct{}
}

// NewViewModel creates a view model over the page's stores.
func NewViewModel(page PageState, list ListState, msgs MessageState, unread UnreadState, session SessionState, f *format.Formatter) *ViewModel {
	return &ViewModel{
		page:      page,
		list:      list,
		msgs:      msgs,
		unread:    unread,
		session:   session,
		fmt:       f,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Watch signals a refresh on every DM, page and session event.
func (vm *ViewModel) Watch(b *bus.Bus) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for _, ns := range []string{"dm.", "page.", "session."} {
		vm.stops = append(vm.stops, b.Listen(ns, 16, func(bus.Event) { vm.signalRefresh() }))
	}
}

// Unwatch stops listening to the bus.
func (vm *ViewModel) Unwatch() {
	vm.mu.Lock()
	stops := vm.stops
	vm.stops = nil
	vm.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

// Snapshot reads the current state of every store.
func (vm *ViewModel) Snapshot() Snapshot {
	s := Snapshot{
		Session:       vm.session.State(),
		User:          vm.session.User(),
		CurrentUserID: vm.session.CurrentUserID(),
		Conversations: vm.page.Filtered(),
		Total:         len(vm.list.Conversations()),
		ListLoading:   vm.list.Loading(),
		ListErr:       vm.list.Err(),
		Keyword:       vm.page.Keyword(),
		Selected:      vm.page.Selected(),
		Unread:        vm.unread.Count(),
		UnreadLoading: vm.unread.Loading(),
		UnreadErr:     vm.unread.Err(),
		Narrow:        vm.page.Narrow(),
		ShowList:      vm.page.ShowList(),
		ShowChat:      vm.page.ShowChat(),
	}
	s.Conversation, s.Open = vm.page.SelectedConversation()

	// The store may still hold the previous conversation during a switch.
	if s.Selected != 0 && vm.msgs.ConversationID() == s.Selected {
		s.Rows = BuildRows(vm.msgs.Messages(), vm.page.PendingMessage(), s.CurrentUserID, vm.fmt)
		s.PaneLoading = vm.msgs.Loading()
		s.PaneErr = vm.msgs.Err()
	} else if s.Selected != 0 {
		s.PaneLoading = true
	}
	return s
}
