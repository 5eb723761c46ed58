package ui

import "github.com/rivo/tview"

// Pages is a stack of overlays above a fixed base page. Overlays are shown
// centered over the page below them.
type Pages struct {
	*tview.Pages
	base     string
	stack    []string
	onChange func(stack []string)
}

// NewPages creates a page stack with base as its bottom page.
func NewPages(base string, root tview.Primitive) *Pages {
	p := &Pages{Pages: tview.NewPages(), base: base}
	p.AddPage(base, root, true, true)
	return p
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows item centered over the current page with the given size.
// Pushing a name already on the stack replaces it.
func (p *Pages) Push(name string, item tview.Primitive, width, height int) {
	if p.Has(name) {
		p.remove(name)
	}
	p.stack = append(p.stack, name)
	p.AddPage(name, Center(item, width, height), true, true)
	p.SendToFront(name)
	p.notify()
}

// Pop removes the top overlay and returns its name, or empty when only the
// base page is shown.
func (p *Pages) Pop() string {
	if len(p.stack) == 0 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.remove(top)
	p.notify()
	return top
}

// Close removes the named overlay wherever it is in the stack.
func (p *Pages) Close(name string) {
	if !p.Has(name) {
		return
	}
	p.remove(name)
	p.notify()
}

func (p *Pages) remove(name string) {
	for i, n := range p.stack {
		if n == name {
			p.stack = append(p.stack[:i], p.stack[i+1:]...)
			break
		}
	}
	p.RemovePage(name)
}

// Has reports whether name is on the stack.
func (p *Pages) Has(name string) bool {
	for _, n := range p.stack {
		if n == name {
			return true
		}
	}
	return false
}

// Current returns the name of the current (top) page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return p.base
	}
	return p.stack[len(p.stack)-1]
}

// Depth returns the number of overlays.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset removes every overlay.
func (p *Pages) Reset() {
	for len(p.stack) > 0 {
		p.remove(p.stack[len(p.stack)-1])
	}
	p.notify()
}

func (p *Pages) notify() {
	if p.onChange != nil {
		s := make([]string, len(p.stack))
		copy(s, p.stack)
		p.onChange(s)
	}
}

// Center wraps item in a grid that keeps it centered at the given size.
func Center(item tview.Primitive, width, height int) tview.Primitive {
	return tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(item, 1, 1, 1, 1, 0, 0, true)
}
