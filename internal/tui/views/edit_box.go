package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

const (
	editTitle     = " メッセージを編集 (Enter で保存、Esc で取消) "
	editErrorText = "保存できませんでした: %s"
)

// EditBox is the inline edit box that replaces the composer while one of
// the user's messages is being edited.
type EditBox struct {
	*tview.Flex
	input    *tview.TextArea
	info     *tview.TextView
	theme    *ui.Theme
	state    *model.InlineEdit
	onSubmit func()
	onCancel func()
}

// NewEditBox creates an edit box bound to state.
func NewEditBox(theme *ui.Theme, state *model.InlineEdit) *EditBox {
	input := tview.NewTextArea()
	input.SetBackgroundColor(theme.BgColor)

	info := tview.NewTextView().
		SetDynamicColors(true)
	info.SetBackgroundColor(theme.BgColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 0, 1, true).
		AddItem(info, 1, 0, false)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.FlashWarnColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(editTitle)
	flex.SetTitleColor(theme.FlashWarnColor)

	e := &EditBox{
		Flex:  flex,
		input: input,
		info:  info,
		theme: theme,
		state: state,
	}
	input.SetChangedFunc(func() {
		state.SetDraft(input.GetText())
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch {
		case ev.Key() == tcell.KeyEnter && ev.Modifiers()&(tcell.ModAlt|tcell.ModShift) != 0,
			ev.Key() == tcell.KeyCtrlJ:
			return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
		case ev.Key() == tcell.KeyEnter:
			if e.onSubmit != nil {
				e.onSubmit()
			}
			return nil
		case ev.Key() == tcell.KeyEscape:
			if e.onCancel != nil {
				e.onCancel()
			}
			return nil
		}
		return ev
	})
	return e
}

// Name implements Component.
func (e *EditBox) Name() string { return "Edit" }

// Scope implements Component.
func (e *EditBox) Scope() string { return keys.ScopeComposer }

// Input returns the focusable text area.
func (e *EditBox) Input() *tview.TextArea { return e.input }

// SetOnSubmit sets the callback run on Enter.
func (e *EditBox) SetOnSubmit(fn func()) { e.onSubmit = fn }

// SetOnCancel sets the callback run on Esc.
func (e *EditBox) SetOnCancel(fn func()) { e.onCancel = fn }

// Open loads the draft of the message being edited.
func (e *EditBox) Open() {
	e.input.SetText(e.state.Draft(), true)
	e.Sync()
}

// Sync redraws the inline error.
func (e *EditBox) Sync() {
	e.info.Clear()
	if err := e.state.Err(); err != nil {
		_, _ = fmt.Fprintf(e.info, "[%s]%s[-]", ui.ColorName(e.theme.FlashErrColor), display(fmt.Sprintf(editErrorText, err.Error())))
	}
}
