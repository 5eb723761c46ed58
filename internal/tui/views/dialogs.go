package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/tui/ui"
)

const (
	confirmYes  = "取り消す"
	confirmNo   = "キャンセル"
	alertClose  = "閉じる"
	attachTitle = " ファイルを添付 "
	attachLabel = "パス: "
)

// DeletePrompt is the confirmation text shown before deleting a message.
const DeletePrompt = "このメッセージの送信を取り消しますか？"

// NewConfirm creates a yes/no modal. onDone receives true for yes.
func NewConfirm(theme *ui.Theme, text string, onDone func(yes bool)) *tview.Modal {
	m := tview.NewModal().
		SetText(text).
		AddButtons([]string{confirmYes, confirmNo}).
		SetDoneFunc(func(index int, _ string) {
			onDone(index == 0)
		})
	m.SetBackgroundColor(theme.BgColor)
	m.SetBorderColor(theme.FlashWarnColor)
	return m
}

// NewAlert creates a dismissable modal.
func NewAlert(theme *ui.Theme, text string, onClose func()) *tview.Modal {
	m := tview.NewModal().
		SetText(sanitizeForTerminal(text)).
		AddButtons([]string{alertClose}).
		SetDoneFunc(func(int, string) {
			onClose()
		})
	m.SetBackgroundColor(theme.BgColor)
	m.SetBorderColor(theme.FlashErrColor)
	return m
}

// NewAttachPrompt creates the input for a file path to stage. onDone
// receives the path, or an empty string when cancelled.
func NewAttachPrompt(theme *ui.Theme, onDone func(path string)) *tview.InputField {
	input := tview.NewInputField().
		SetLabel(attachLabel).
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetTitle(attachTitle)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			onDone(input.GetText())
			return
		}
		onDone("")
	})
	return input
}
