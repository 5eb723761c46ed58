// Package keys maps key events to page actions.
package keys

import (
	"github.com/gdamore/tcell/v2"

	"github.com/nicedig/ndm/internal/tui/ui"
)

// Scopes of the DM page. Text scopes receive printable runes themselves, so
// only non-rune bindings fire there.
const (
	ScopeList     = "list"
	ScopePane     = "pane"
	ScopeComposer = "composer"
	ScopeSearch   = "search"
	ScopeDialog   = "dialog"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Mod         tcell.ModMask
	Label       string
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action. Modifiers are
// compared only when the action names one.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Mod != 0 && ev.Modifiers()&a.Mod != a.Mod {
		return false
	}
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	name   string
	action *Action
}

// Registry holds keybindings organized by scope, in registration order.
type Registry struct {
	global []binding
	views  map[string][]binding
	text   map[string]bool
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{
		views: make(map[string][]binding),
		text:  map[string]bool{ScopeComposer: true, ScopeSearch: true, ScopeDialog: true},
	}
}

// AddGlobal registers a global keybinding. A binding with the same name is
// replaced.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = put(r.global, name, action)
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = put(r.views[view], name, action)
}

func put(list []binding, name string, action *Action) []binding {
	for i := range list {
		if list[i].name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, binding{name: name, action: action})
}

// Hints returns the visible keybindings for a given view, view bindings
// first.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, b := range r.views[view] {
		if b.action.Visible {
			hints = append(hints, b.action.hint())
		}
	}
	for _, b := range r.global {
		if b.action.Visible && r.reachable(view, b.action) {
			hints = append(hints, b.action.hint())
		}
	}
	return hints
}

func (a *Action) hint() ui.MenuHint {
	return ui.MenuHint{Key: a.Label, Description: a.Description}
}

// HandleEvent dispatches a key event to matching action in the given view.
// Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, b := range r.views[view] {
		if b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	for _, b := range r.global {
		if r.reachable(view, b.action) && b.action.Matches(ev) {
			b.action.Handler()
			return true
		}
	}
	return false
}

// reachable reports whether a global action can fire in view: plain rune
// bindings are typed text in text scopes.
func (r *Registry) reachable(view string, a *Action) bool {
	return !r.text[view] || a.Key != tcell.KeyRune || a.Mod != 0
}
