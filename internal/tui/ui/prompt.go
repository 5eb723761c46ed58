package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Prompt is the conversation search bar. The keyword is applied as it is
// typed; Enter keeps it and Esc clears it.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	onChange func(text string)
	onDone   func(cancelled bool)
}

// NewPrompt creates a new search bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetLabel("/")
	input.SetTitle(" 検索 ")
	input.SetPlaceholder("名前で検索")

	p := &Prompt{
		InputField: input,
		theme:      theme,
	}

	input.SetChangedFunc(func(text string) {
		if p.onChange != nil {
			p.onChange(text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			if p.onDone != nil {
				p.onDone(false)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onDone != nil {
				p.onDone(true)
			}
		}
	})

	return p
}

// SetOnChange sets the callback run on every edit.
func (p *Prompt) SetOnChange(fn func(text string)) {
	p.onChange = fn
}

// SetOnDone sets the callback run when the prompt is left.
func (p *Prompt) SetOnDone(fn func(cancelled bool)) {
	p.onDone = fn
}

// Name implements Component.
func (p *Prompt) Name() string { return "Search" }

// Scope implements Component.
func (p *Prompt) Scope() string { return "search" }
