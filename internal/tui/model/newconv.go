package model

import (
	"context"
	"slices"
	"sync"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
)

// CandidatesFunc loads the users that can join a conversation.
type CandidatesFunc func(ctx context.Context) ([]dmapi.User, error)

// CreateFunc creates a conversation.
type CreateFunc func(ctx context.Context, in dmapi.CreateConversationInput) (*dmapi.Conversation, error)

// NewConversationForm is the state of the new-conversation dialog.
type NewConversationForm struct {
	mu         sync.Mutex
	candidates []dmapi.User
	selected   []int64
	title      string
	loading    bool
	inFlight   bool
	err        error
}

// Reset clears the form and marks it loading.
func (f *NewConversationForm) Reset() {
	f.mu.Lock()
	f.loading = true
	f.candidates, f.selected, f.title, f.err = nil, nil, "", nil
	f.mu.Unlock()
}

// Load fetches the candidates, leaving out the current user, and resets the
// selection.
func (f *NewConversationForm) Load(ctx context.Context, fetch CandidatesFunc, currentUserID int64) error {
	f.Reset()

	users, err := fetch(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.err = err
		return err
	}
	f.candidates = slices.DeleteFunc(slices.Clone(users), func(u dmapi.User) bool {
		return u.ID == currentUserID
	})
	return nil
}

// Candidates returns the selectable users.
func (f *NewConversationForm) Candidates() []dmapi.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.candidates)
}

// Loading reports whether candidates are being fetched.
func (f *NewConversationForm) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Toggle adds or removes a user from the selection.
func (f *NewConversationForm) Toggle(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := slices.Index(f.selected, id); i >= 0 {
		f.selected = slices.Delete(f.selected, i, i+1)
		return
	}
	f.selected = append(f.selected, id)
}

// IsSelected reports whether id is selected.
func (f *NewConversationForm) IsSelected(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.selected, id)
}

// Selected returns the selected ids in selection order.
func (f *NewConversationForm) Selected() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.selected)
}

// SetTitle sets the group title.
func (f *NewConversationForm) SetTitle(title string) {
	f.mu.Lock()
	f.title = title
	f.mu.Unlock()
}

// TitleRequired reports whether the selection forms a group.
func (f *NewConversationForm) TitleRequired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.selected) > 1
}

// Err returns the inline error.
func (f *NewConversationForm) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Input builds the create request from the form.
func (f *NewConversationForm) Input() dmapi.CreateConversationInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dm.NormalizeCreate(dmapi.CreateConversationInput{
		ParticipantIDs: slices.Clone(f.selected),
		Title:          f.title,
	})
}

// Submit validates the form and creates the conversation. Validation errors
// never reach create. On failure the form keeps its state and records the
// error; on success the created conversation is returned for the opener.
func (f *NewConversationForm) Submit(ctx context.Context, create CreateFunc) (*dmapi.Conversation, error) {
	in := f.Input()

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return nil, nil
	}
	if err := dm.ValidateCreate(in); err != nil {
		f.err = err
		f.mu.Unlock()
		return nil, err
	}
	f.inFlight = true
	f.err = nil
	f.mu.Unlock()

	conv, err := create(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		f.err = err
		return nil, err
	}
	return conv, nil
}
