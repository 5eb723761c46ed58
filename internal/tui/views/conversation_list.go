package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
	"github.com/nicedig/ndm/internal/tui/keys"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

// List placeholders.
const (
	listLoadingText = "読み込み中…"
	listErrorText   = "会話を読み込めませんでした: %s (r で再読み込み)"
	listEmptyText   = "会話はまだありません (n で新規作成)"
	listNoMatchText = "「%s」に一致する会話はありません"
)

// ConversationList is the conversation list table.
type ConversationList struct {
	*tview.Table
	theme    *ui.Theme
	fmt      *format.Formatter
	convs    []dmapi.Conversation
	onSelect func(id int64)
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme, f *format.Formatter) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" 会話 ")
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{
		Table: table,
		theme: theme,
		fmt:   f,
	}
	table.SetSelectedFunc(func(row, _ int) {
		if id := cl.idAt(row); id != 0 && cl.onSelect != nil {
			cl.onSelect(id)
		}
	})
	return cl
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Scope implements Component.
func (cl *ConversationList) Scope() string { return keys.ScopeList }

// SetOnSelect sets the callback run when a conversation is chosen.
func (cl *ConversationList) SetOnSelect(fn func(id int64)) {
	cl.onSelect = fn
}

// Update renders the list from a snapshot. Loading, error and empty lists
// each get their own placeholder row.
func (cl *ConversationList) Update(s model.Snapshot) {
	cursor := cl.idAt(cl.cursorRow())
	cl.convs = s.Conversations
	cl.Clear()

	if s.Keyword != "" {
		cl.SetTitle(fmt.Sprintf(" 会話 (%d/%d) /%s ", len(s.Conversations), s.Total, display(s.Keyword)))
	} else {
		cl.SetTitle(fmt.Sprintf(" 会話 (%d) ", s.Total))
	}

	if len(s.Conversations) == 0 {
		cl.placeholder(s)
		return
	}

	for row, conv := range s.Conversations {
		cl.renderRow(row, conv, s.CurrentUserID)
	}

	// Keep the cursor on the active conversation, else where it was.
	target := s.Selected
	if target == 0 {
		target = cursor
	}
	row := 0
	for i, conv := range s.Conversations {
		if conv.ID == target {
			row = i
			break
		}
	}
	cl.Select(row, 0)
}

func (cl *ConversationList) placeholder(s model.Snapshot) {
	var text string
	color := cl.theme.MutedColor
	switch {
	case s.ListLoading && s.Total == 0:
		text = listLoadingText
	case s.ListErr != nil && s.Total == 0:
		text = fmt.Sprintf(listErrorText, s.ListErr.Error())
		color = cl.theme.FlashErrColor
	case s.Total == 0:
		text = listEmptyText
	default:
		text = fmt.Sprintf(listNoMatchText, s.Keyword)
	}
	cl.SetCell(0, 0, tview.NewTableCell(" "+display(text)).
		SetSelectable(false).
		SetTextColor(color).
		SetExpansion(1))
}

func (cl *ConversationList) renderRow(row int, conv dmapi.Conversation, uid int64) {
	name := display(dm.DisplayName(conv, uid))
	if conv.UnreadCount > 0 {
		name = fmt.Sprintf("%s (%d)", name, conv.UnreadCount)
	}
	nameColor := cl.theme.FgColor
	if conv.UnreadCount > 0 {
		nameColor = cl.theme.BadgeColor
	}
	cl.SetCell(row, 0, tview.NewTableCell(" "+name).
		SetExpansion(1).
		SetMaxWidth(24).
		SetTextColor(nameColor))
	cl.SetCell(row, 1, tview.NewTableCell(display(dm.Subtitle(conv, uid))).
		SetExpansion(2).
		SetMaxWidth(32).
		SetTextColor(cl.theme.MutedColor))
	cl.SetCell(row, 2, tview.NewTableCell(dm.LastActivityLabel(conv, cl.fmt)+" ").
		SetAlign(tview.AlignRight).
		SetTextColor(cl.theme.MutedColor))
}

func (cl *ConversationList) cursorRow() int {
	row, _ := cl.GetSelection()
	return row
}

func (cl *ConversationList) idAt(row int) int64 {
	if row < 0 || row >= len(cl.convs) {
		return 0
	}
	return cl.convs[row].ID
}

// CursorID returns the conversation under the cursor.
func (cl *ConversationList) CursorID() int64 {
	return cl.idAt(cl.cursorRow())
}
