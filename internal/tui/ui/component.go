package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a pane of the page that owns a key scope.
type Component interface {
	Name() string
	Scope() string
}
