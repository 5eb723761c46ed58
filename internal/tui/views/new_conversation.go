package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

const (
	dialogTitle        = " 新しい会話 "
	dialogLoadingText  = "ユーザーを読み込み中…"
	dialogNoUsersText  = "選択できるユーザーがいません"
	dialogTitleLabel   = "グループ名"
	dialogCreateLabel  = "作成"
	dialogCancelLabel  = "キャンセル"
	dialogSelectedText = "%d人を選択"
	dialogGroupHint    = " (グループ名が必要です)"
)

// NewConversationDialog lets the user pick participants and, for groups, a
// title.
type NewConversationDialog struct {
	*tview.Flex
	form     *tview.Form
	status   *tview.TextView
	theme    *ui.Theme
	state    *model.NewConversationForm
	onSubmit func()
	onCancel func()
}

// NewNewConversationDialog creates the dialog bound to state.
func NewNewConversationDialog(theme *ui.Theme, state *model.NewConversationForm) *NewConversationDialog {
	form := tview.NewForm()
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.TableCursorBg)
	form.SetFieldTextColor(theme.TableCursorFg)
	form.SetButtonBackgroundColor(theme.BorderColor)
	form.SetLabelColor(theme.FgColor)

	status := tview.NewTextView().
		SetDynamicColors(true)
	status.SetBackgroundColor(theme.BgColor)
	status.SetBorderPadding(0, 0, 1, 1)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(form, 0, 1, true).
		AddItem(status, 2, 0, false)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderFocusColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(dialogTitle)
	flex.SetTitleColor(theme.TitleColor)

	d := &NewConversationDialog{
		Flex:   flex,
		form:   form,
		status: status,
		theme:  theme,
		state:  state,
	}
	form.SetCancelFunc(func() {
		if d.onCancel != nil {
			d.onCancel()
		}
	})
	return d
}

// Name implements Component.
func (d *NewConversationDialog) Name() string { return "NewConversation" }

// Scope implements Component.
func (d *NewConversationDialog) Scope() string { return keys.ScopeDialog }

// SetOnSubmit sets the callback run by the create button.
func (d *NewConversationDialog) SetOnSubmit(fn func()) { d.onSubmit = fn }

// SetOnCancel sets the callback run by Esc and the cancel button.
func (d *NewConversationDialog) SetOnCancel(fn func()) { d.onCancel = fn }

// Rebuild recreates the form fields from the candidates.
func (d *NewConversationDialog) Rebuild() {
	d.form.Clear(true)

	if !d.state.Loading() {
		for _, u := range d.state.Candidates() {
			label := u.DisplayName
			if label == "" {
				label = u.Name
			}
			id := u.ID
			d.form.AddCheckbox(sanitizeForTerminal(label), d.state.IsSelected(id), func(bool) {
				d.state.Toggle(id)
				d.Sync()
			})
		}
		d.form.AddInputField(dialogTitleLabel, "", 32, nil, func(text string) {
			d.state.SetTitle(text)
		})
		d.form.AddButton(dialogCreateLabel, func() {
			if d.onSubmit != nil {
				d.onSubmit()
			}
		})
	}
	d.form.AddButton(dialogCancelLabel, func() {
		if d.onCancel != nil {
			d.onCancel()
		}
	})
	d.form.SetFocus(0)
	d.Sync()
}

// Sync redraws the status lines: loading, selection count and the inline
// error.
func (d *NewConversationDialog) Sync() {
	d.status.Clear()
	muted := ui.ColorName(d.theme.MutedColor)
	switch {
	case d.state.Loading():
		_, _ = fmt.Fprintf(d.status, "[%s]%s[-]\n", muted, dialogLoadingText)
	case len(d.state.Candidates()) == 0 && d.state.Err() == nil:
		_, _ = fmt.Fprintf(d.status, "[%s]%s[-]\n", muted, dialogNoUsersText)
	default:
		line := fmt.Sprintf(dialogSelectedText, len(d.state.Selected()))
		if d.state.TitleRequired() {
			line += dialogGroupHint
		}
		_, _ = fmt.Fprintf(d.status, "[%s]%s[-]\n", muted, line)
	}
	if err := d.state.Err(); err != nil {
		_, _ = fmt.Fprintf(d.status, "[%s]%s[-]", ui.ColorName(d.theme.FlashErrColor), display(err.Error()))
	}
}
