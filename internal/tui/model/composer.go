package model

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/nicedig/ndm/internal/dmapi"
)

// SendFunc delivers a composed message.
type SendFunc func(ctx context.Context, in dmapi.SendMessageInput) error

// Composer holds the draft text and staged files of the message composer.
// The draft survives a failed submit so the user can retry.
type Composer struct {
	mu       sync.Mutex
	text     string
	files    []dmapi.File
	inFlight bool
	err      error
}

// NewComposer creates an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// SetText replaces the draft text.
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// Text returns the draft text.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Stage adds a file to the draft.
func (c *Composer) Stage(f dmapi.File) {
	c.mu.Lock()
	c.files = append(c.files, f)
	c.mu.Unlock()
}

// Unstage removes the i-th staged file. Files cannot be unstaged while a
// submit is in flight.
func (c *Composer) Unstage(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight || i < 0 || i >= len(c.files) {
		return
	}
	c.files = slices.Delete(c.files, i, i+1)
}

// Files returns the names of the staged files.
func (c *Composer) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.Name
	}
	return names
}

// CanSubmit reports whether the draft has text or files and no submit is in
// flight.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmit()
}

func (c *Composer) canSubmit() bool {
	if c.inFlight {
		return false
	}
	return strings.TrimSpace(c.text) != "" || len(c.files) > 0
}

// InFlight reports whether a submit is running.
func (c *Composer) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Err returns the error of the last failed submit.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Submit sends the draft. It is a no-op returning false when the draft is
// empty or another submit is in flight. On success the sent draft is cleared,
// keeping text typed and files staged while the send was running; on failure
// it is kept and the error recorded.
func (c *Composer) Submit(ctx context.Context, send SendFunc) (bool, error) {
	c.mu.Lock()
	if !c.canSubmit() {
		c.mu.Unlock()
		return false, nil
	}
	c.inFlight = true
	c.err = nil
	draft := c.text
	in := dmapi.SendMessageInput{
		Body:  strings.TrimSpace(draft),
		Files: slices.Clone(c.files),
	}
	c.mu.Unlock()

	err := send(ctx, in)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.err = err
		return true, err
	}
	if c.text == draft {
		c.text = ""
	}
	c.files = slices.Clone(c.files[min(len(in.Files), len(c.files)):])
	return true, nil
}
