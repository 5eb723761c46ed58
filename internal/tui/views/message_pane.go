package views

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

// Pane placeholders.
const (
	paneNoSelectionText = "会話を選択してください"
	paneLoadingText     = "読み込み中…"
	paneErrorText       = "メッセージを読み込めませんでした: %s (r で再試行)"
	paneStaleText       = "更新に失敗しました: %s"
	pendingText         = "送信中…"
	editedText          = "(編集済み)"
	editingText         = "(編集中)"
	unknownSenderText   = "(不明)"
	attachmentPrefix    = "[添付] "
)

// MessagePane renders the open conversation. The cursor moves between the
// user's own messages, which are the ones that can be edited or deleted.
type MessagePane struct {
	*tview.TextView
	theme     *ui.Theme
	rows      []model.Row
	cursor    int64
	editingID int64
}

// NewMessagePane creates a new message pane.
func NewMessagePane(theme *ui.Theme) *MessagePane {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)

	return &MessagePane{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (mp *MessagePane) Name() string { return "Messages" }

// Scope implements Component.
func (mp *MessagePane) Scope() string { return keys.ScopePane }

// SetEditing marks the message shown in the edit box.
func (mp *MessagePane) SetEditing(id int64) {
	mp.editingID = id
}

// Update renders the pane from a snapshot.
func (mp *MessagePane) Update(s model.Snapshot) {
	mp.Clear()
	mp.rows = s.Rows
	if !slices.Contains(model.Modifiable(s.Rows), mp.cursor) {
		mp.cursor = 0
	}

	if !s.Open {
		mp.SetTitle(" メッセージ ")
		mp.cursor = 0
		_, _ = fmt.Fprintf(mp, "\n  [%s]%s[-]", ui.ColorName(mp.theme.MutedColor), paneNoSelectionText)
		return
	}
	title := dm.DisplayName(s.Conversation, s.CurrentUserID)
	mp.SetTitle(" " + display(title) + " ")

	switch {
	case len(s.Rows) == 0 && s.PaneErr != nil:
		_, _ = fmt.Fprintf(mp, "\n  [%s]%s[-]", ui.ColorName(mp.theme.FlashErrColor), display(fmt.Sprintf(paneErrorText, s.PaneErr.Error())))
		return
	case len(s.Rows) == 0 && s.PaneLoading:
		_, _ = fmt.Fprintf(mp, "\n  [%s]%s[-]", ui.ColorName(mp.theme.MutedColor), paneLoadingText)
		return
	case len(s.Rows) == 0:
		_, _ = fmt.Fprintf(mp, "\n  [%s]%s[-]", ui.ColorName(mp.theme.MutedColor), dm.NoMessagesLabel)
		return
	}

	var b strings.Builder
	for _, r := range s.Rows {
		mp.writeRow(&b, r)
	}
	if s.PaneErr != nil {
		fmt.Fprintf(&b, "[%s]%s[-]\n", ui.ColorName(mp.theme.FlashErrColor), display(fmt.Sprintf(paneStaleText, s.PaneErr.Error())))
	}
	_, _ = fmt.Fprint(mp, b.String())
	mp.highlight()
}

func (mp *MessagePane) writeRow(b *strings.Builder, r model.Row) {
	if r.Kind == model.RowSeparator {
		fmt.Fprintf(b, "[%s]──── %s ────[-]\n", ui.ColorName(mp.theme.SeparatorColor), r.Date)
		return
	}

	m := r.Message
	name := unknownSenderText
	if m.Sender != nil && m.Sender.Label() != "" {
		name = m.Sender.Label()
	}
	color := mp.theme.OtherColor
	if r.Own {
		color = mp.theme.OwnColor
	}
	if m.IsPending {
		color = mp.theme.PendingColor
	}

	if r.Editable {
		fmt.Fprintf(b, `["m%d"]`, m.ID)
	}
	fmt.Fprintf(b, "[%s::b]%s[-:-:-] [%s]%s[-]", ui.ColorName(color), display(name), ui.ColorName(mp.theme.MutedColor), r.Time)
	switch {
	case m.IsPending:
		fmt.Fprintf(b, " [%s]%s[-]", ui.ColorName(mp.theme.PendingColor), pendingText)
	case m.ID != 0 && m.ID == mp.editingID:
		fmt.Fprintf(b, " [%s]%s[-]", ui.ColorName(mp.theme.FlashWarnColor), editingText)
	case r.Edited:
		fmt.Fprintf(b, " [%s]%s[-]", ui.ColorName(mp.theme.MutedColor), editedText)
	}
	if r.Editable {
		b.WriteString(`[""]`)
	}
	b.WriteByte('\n')

	if m.IsDeleted {
		fmt.Fprintf(b, "  [%s::i]%s[-:-:-]\n", ui.ColorName(mp.theme.DeletedColor), display(r.Body))
		return
	}
	bodyColor := mp.theme.FgColor
	if m.IsPending {
		bodyColor = mp.theme.PendingColor
	}
	if r.Body != "" {
		for _, line := range strings.Split(sanitizeForTerminal(r.Body), "\n") {
			fmt.Fprintf(b, "  [%s]%s[-]\n", ui.ColorName(bodyColor), tview.Escape(line))
		}
	}
	for _, a := range r.Attachments {
		fmt.Fprintf(b, "  [%s]%s%s[-]\n", ui.ColorName(mp.theme.MenuKeyColor), attachmentPrefix, display(a))
	}
}

func (mp *MessagePane) highlight() {
	if mp.cursor == 0 {
		mp.Highlight()
		mp.ScrollToEnd()
		return
	}
	mp.Highlight(fmt.Sprintf("m%d", mp.cursor))
	mp.ScrollToHighlight()
}

// Next moves the cursor to the user's next message, wrapping to the first.
func (mp *MessagePane) Next() {
	mp.move(1)
}

// Prev moves the cursor to the user's previous message. From no cursor it
// starts at the most recent one.
func (mp *MessagePane) Prev() {
	mp.move(-1)
}

func (mp *MessagePane) move(step int) {
	ids := model.Modifiable(mp.rows)
	if len(ids) == 0 {
		mp.cursor = 0
		mp.highlight()
		return
	}
	i := slices.Index(ids, mp.cursor)
	switch {
	case i < 0 && step < 0:
		i = len(ids) - 1
	case i < 0:
		i = 0
	default:
		i = (i + step + len(ids)) % len(ids)
	}
	mp.cursor = ids[i]
	mp.highlight()
}

// ClearCursor removes the cursor.
func (mp *MessagePane) ClearCursor() {
	mp.cursor = 0
	mp.highlight()
}

// Selected returns the row under the cursor.
func (mp *MessagePane) Selected() (model.Row, bool) {
	if mp.cursor == 0 {
		return model.Row{}, false
	}
	for _, r := range mp.rows {
		if r.Kind == model.RowMessage && r.Message.ID == mp.cursor {
			return r, true
		}
	}
	return model.Row{}, false
}
