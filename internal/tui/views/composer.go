package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

const (
	composerPlaceholder = "メッセージを入力 (Enter で送信、Alt+Enter で改行)"
	sendingText         = "送信中…"
	sendErrorText       = "送信できませんでした: %s"
	stagedPrefix        = "添付: "
)

// Composer is the message input: a text area above a line listing staged
// files and the last send error.
type Composer struct {
	*tview.Flex
	input    *tview.TextArea
	info     *tview.TextView
	theme    *ui.Theme
	state    *model.Composer
	onSubmit func()
	onAttach func()
}

// NewComposer creates a composer bound to state.
func NewComposer(theme *ui.Theme, state *model.Composer) *Composer {
	input := tview.NewTextArea().
		SetPlaceholder(composerPlaceholder)
	input.SetBackgroundColor(theme.BgColor)

	info := tview.NewTextView().
		SetDynamicColors(true)
	info.SetBackgroundColor(theme.BgColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 0, 1, true).
		AddItem(info, 1, 0, false)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetBackgroundColor(theme.BgColor)

	c := &Composer{
		Flex:  flex,
		input: input,
		info:  info,
		theme: theme,
		state: state,
	}

	input.SetChangedFunc(func() {
		state.SetText(input.GetText())
	})
	input.SetInputCapture(c.capture)
	return c
}

// capture submits on a plain Enter and turns Alt+Enter or Ctrl+J into a
// newline.
func (c *Composer) capture(ev *tcell.EventKey) *tcell.EventKey {
	switch {
	case ev.Key() == tcell.KeyEnter && ev.Modifiers()&(tcell.ModAlt|tcell.ModShift) != 0:
		return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
	case ev.Key() == tcell.KeyEnter:
		if c.onSubmit != nil {
			c.onSubmit()
		}
		return nil
	case ev.Key() == tcell.KeyCtrlJ:
		return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
	case ev.Key() == tcell.KeyCtrlA:
		if c.onAttach != nil {
			c.onAttach()
		}
		return nil
	case ev.Key() == tcell.KeyCtrlU:
		if n := len(c.state.Files()); n > 0 {
			c.state.Unstage(n - 1)
			c.Sync()
		}
		return nil
	}
	return ev
}

// Name implements Component.
func (c *Composer) Name() string { return "Composer" }

// Scope implements Component.
func (c *Composer) Scope() string { return keys.ScopeComposer }

// Input returns the focusable text area.
func (c *Composer) Input() *tview.TextArea { return c.input }

// SetOnSubmit sets the callback run on Enter.
func (c *Composer) SetOnSubmit(fn func()) { c.onSubmit = fn }

// SetOnAttach sets the callback run on Ctrl+A.
func (c *Composer) SetOnAttach(fn func()) { c.onAttach = fn }

// Sync redraws the composer from its state. The text area is only
// overwritten when the state was cleared by a successful send.
func (c *Composer) Sync() {
	if c.state.Text() == "" && c.input.GetText() != "" && !c.state.InFlight() {
		c.input.SetText("", true)
	}

	c.info.Clear()
	var parts []string
	if c.state.InFlight() {
		parts = append(parts, fmt.Sprintf("[%s]%s[-]", ui.ColorName(c.theme.PendingColor), sendingText))
	}
	if files := c.state.Files(); len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = display(f)
		}
		parts = append(parts, fmt.Sprintf("[%s]%s%s[-]", ui.ColorName(c.theme.MenuKeyColor), stagedPrefix, strings.Join(names, ", ")))
	}
	if err := c.state.Err(); err != nil {
		parts = append(parts, fmt.Sprintf("[%s]%s[-]", ui.ColorName(c.theme.FlashErrColor), display(fmt.Sprintf(sendErrorText, err.Error()))))
	}
	_, _ = fmt.Fprint(c.info, strings.Join(parts, "  "))
}
