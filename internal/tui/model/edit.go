package model

import (
	"context"
	"strings"
	"sync"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
)

// EditFunc saves an edited message body.
type EditFunc func(ctx context.Context, messageID int64, body string) error

// InlineEdit is the state of the pane's inline edit box.
type InlineEdit struct {
	mu    sync.Mutex
	id    int64
	draft string
	err   error
}

// Begin opens the edit box for m when the current user may modify it.
func (e *InlineEdit) Begin(m dmapi.Message, currentUserID int64) bool {
	if !CanModify(m, currentUserID) {
		return false
	}
	e.mu.Lock()
	e.id = m.ID
	e.draft = m.Body
	e.err = nil
	e.mu.Unlock()
	return true
}

// Active returns the id of the message being edited.
func (e *InlineEdit) Active() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id, e.id != 0
}

// Draft returns the edit box text.
func (e *InlineEdit) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// SetDraft replaces the edit box text.
func (e *InlineEdit) SetDraft(s string) {
	e.mu.Lock()
	e.draft = s
	e.mu.Unlock()
}

// Err returns the inline error of the last submit.
func (e *InlineEdit) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Cancel closes the edit box.
func (e *InlineEdit) Cancel() {
	e.mu.Lock()
	e.id, e.draft, e.err = 0, "", nil
	e.mu.Unlock()
}

// Submit saves the trimmed draft. An empty draft is rejected without calling
// save; a failed save keeps the box open with the attempted text.
func (e *InlineEdit) Submit(ctx context.Context, save EditFunc) error {
	e.mu.Lock()
	id := e.id
	body := strings.TrimSpace(e.draft)
	if id == 0 {
		e.mu.Unlock()
		return nil
	}
	if body == "" {
		e.err = dm.ErrEmptyEdit
		e.mu.Unlock()
		return dm.ErrEmptyEdit
	}
	e.mu.Unlock()

	err := save(ctx, id, body)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.id != id {
		return err
	}
	if err != nil {
		e.err = err
		return err
	}
	e.id, e.draft, e.err = 0, "", nil
	return nil
}
