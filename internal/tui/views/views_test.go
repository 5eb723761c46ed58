package views

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
	"github.com/nicedig/ndm/internal/tui/model"
	"github.com/nicedig/ndm/internal/tui/ui"
)

var (
	me  = dmapi.Participant{ID: 1, Name: "me"}
	aya = dmapi.Participant{ID: 2, Name: "aya", DisplayName: "Aya"}
)

func utc() *format.Formatter { return format.NewWithClock(time.UTC, nil) }

func enterKey() *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
}

func cellText(cl *ConversationList, row, col int) string {
	cell := cl.GetCell(row, col)
	if cell == nil {
		return ""
	}
	return cell.Text
}

func TestConversationListStates(t *testing.T) {
	tests := []struct {
		name string
		snap model.Snapshot
		want string
	}{
		{"loading", model.Snapshot{ListLoading: true}, listLoadingText},
		{"error", model.Snapshot{ListErr: errors.New("boom")}, "boom"},
		{"empty", model.Snapshot{}, listEmptyText},
		{"no match", model.Snapshot{Total: 3, Keyword: "zzz"}, "zzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := NewConversationList(ui.DefaultTheme(), utc())
			cl.Update(tt.snap)
			if got := cellText(cl, 0, 0); !strings.Contains(got, tt.want) {
				t.Errorf("placeholder = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestConversationListRowsAndSelect(t *testing.T) {
	convs := []dmapi.Conversation{
		{ID: 7, Type: dmapi.TypeDirect, Participants: []dmapi.Participant{me, aya}, UnreadCount: 2},
		{ID: 8, Type: dmapi.TypeGroup, Title: "Project", Participants: []dmapi.Participant{me, aya}},
	}
	cl := NewConversationList(ui.DefaultTheme(), utc())
	var picked int64
	cl.SetOnSelect(func(id int64) { picked = id })

	cl.Update(model.Snapshot{Conversations: convs, Total: 2, Selected: 8, CurrentUserID: me.ID})
	if got := cellText(cl, 0, 0); !strings.Contains(got, "Aya") || !strings.Contains(got, "(2)") {
		t.Errorf("row 0 = %q, want name with unread badge", got)
	}
	if got := cellText(cl, 1, 0); !strings.Contains(got, "Project") {
		t.Errorf("row 1 = %q", got)
	}
	if cl.CursorID() != 8 {
		t.Errorf("cursor on %d, want active conversation 8", cl.CursorID())
	}

	cl.Select(0, 0)
	cl.InputHandler()(enterKey(), func(tview.Primitive) {})
	if picked != 7 {
		t.Errorf("onSelect(%d), want 7", picked)
	}
}

func paneSnapshot(msgs []dmapi.Message, pending *dmapi.Message) model.Snapshot {
	conv := dmapi.Conversation{ID: 7, Type: dmapi.TypeDirect, Participants: []dmapi.Participant{me, aya}}
	return model.Snapshot{
		CurrentUserID: me.ID,
		Selected:      7,
		Conversation:  conv,
		Open:          true,
		Rows:          model.BuildRows(msgs, pending, me.ID, utc()),
	}
}

func TestMessagePaneDeletedPlaceholder(t *testing.T) {
	mp := NewMessagePane(ui.DefaultTheme())
	mp.Update(paneSnapshot([]dmapi.Message{{
		ID:          5,
		Body:        "secret body",
		Attachments: []dmapi.Attachment{{ID: 1, Name: "plan.pdf"}},
		IsDeleted:   true,
		Sender:      &dmapi.Participant{ID: 2, DisplayName: "Aya"},
		CreatedAt:   "2024-01-02T00:01:00Z",
	}}, nil))

	text := mp.GetText(true)
	if !strings.Contains(text, "Ayaさんが送信を取り消しました") {
		t.Errorf("placeholder missing: %q", text)
	}
	if strings.Contains(text, "secret body") || strings.Contains(text, "plan.pdf") {
		t.Errorf("deleted content rendered: %q", text)
	}
}

func TestMessagePaneSeparatorAndPending(t *testing.T) {
	mp := NewMessagePane(ui.DefaultTheme())
	msgs := []dmapi.Message{
		{ID: 1, Body: "before", Sender: &aya, CreatedAt: "2024-01-01T23:59:00Z"},
		{ID: 2, Body: "after", Sender: &me, CreatedAt: "2024-01-02T00:01:00Z"},
	}
	pending := &dmapi.Message{Body: "in flight", Sender: &me, CreatedAt: "2024-01-02T00:02:00Z", IsPending: true}
	mp.Update(paneSnapshot(msgs, pending))

	text := mp.GetText(true)
	if strings.Count(text, "────") != 2 || !strings.Contains(text, "2024年1月2日(火)") {
		t.Errorf("want one separator for 2024-01-02: %q", text)
	}
	if !strings.Contains(text, "in flight") || !strings.Contains(text, pendingText) {
		t.Errorf("pending message missing: %q", text)
	}
}

func TestMessagePaneCursorOnlyOwn(t *testing.T) {
	mp := NewMessagePane(ui.DefaultTheme())
	msgs := []dmapi.Message{
		{ID: 1, Body: "mine", Sender: &me, CreatedAt: "2024-01-01T10:00:00Z"},
		{ID: 2, Body: "theirs", Sender: &aya, CreatedAt: "2024-01-01T10:01:00Z"},
		{ID: 3, Body: "mine too", Sender: &me, CreatedAt: "2024-01-01T10:02:00Z"},
	}
	mp.Update(paneSnapshot(msgs, nil))

	if _, ok := mp.Selected(); ok {
		t.Error("cursor set before navigation")
	}
	mp.Prev()
	if r, _ := mp.Selected(); r.Message.ID != 3 {
		t.Errorf("Prev() from none selected %d, want 3", r.Message.ID)
	}
	mp.Prev()
	if r, _ := mp.Selected(); r.Message.ID != 1 {
		t.Errorf("Prev() selected %d, want 1", r.Message.ID)
	}
	mp.Next()
	if r, _ := mp.Selected(); r.Message.ID != 3 {
		t.Errorf("Next() selected %d, want 3", r.Message.ID)
	}

	// The cursor is dropped when its message is no longer modifiable.
	msgs[2].IsDeleted = true
	mp.Update(paneSnapshot(msgs, nil))
	if _, ok := mp.Selected(); ok {
		t.Error("cursor kept on a deleted message")
	}
}

func TestMessagePaneStates(t *testing.T) {
	mp := NewMessagePane(ui.DefaultTheme())
	mp.Update(model.Snapshot{})
	if text := mp.GetText(true); !strings.Contains(text, paneNoSelectionText) {
		t.Errorf("no selection text = %q", text)
	}

	s := paneSnapshot(nil, nil)
	s.PaneErr = errors.New("boom")
	mp.Update(s)
	if text := mp.GetText(true); !strings.Contains(text, "boom") {
		t.Errorf("error text = %q", text)
	}

	s = paneSnapshot(nil, nil)
	mp.Update(s)
	if text := mp.GetText(true); !strings.Contains(text, "メッセージはまだありません") {
		t.Errorf("empty text = %q", text)
	}
}

func TestComposerSyncShowsError(t *testing.T) {
	state := model.NewComposer()
	c := NewComposer(ui.DefaultTheme(), state)
	state.Stage(dmapi.File{Name: "a.txt"})
	c.Sync()
	if text := c.info.GetText(true); !strings.Contains(text, "a.txt") {
		t.Errorf("staged files not shown: %q", text)
	}
}
