// Package model holds the view logic of the DM page that does not depend on
// the terminal: pane rows, composer and edit state, and the new-conversation
// form.
package model

import (
	"strings"

	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
)

// RowKind distinguishes pane rows.
type RowKind int

const (
	RowSeparator RowKind = iota
	RowMessage
)

// Row is one line group of the message pane.
type Row struct {
	Kind        RowKind
	Date        string
	Message     dmapi.Message
	Own         bool
	Editable    bool
	Body        string
	Attachments []string
	Time        string
	Edited      bool
}

// BuildRows lays out the visible messages, inserting a date separator
// whenever the calendar date differs from the previous visible message. The
// pending message, when present, is appended after the store's messages.
func BuildRows(msgs []dmapi.Message, pending *dmapi.Message, currentUserID int64, f *format.Formatter) []Row {
	visible := msgs
	if pending != nil {
		visible = append(visible[:len(visible):len(visible)], *pending)
	}

	rows := make([]Row, 0, len(visible)*2)
	prev := ""
	for i, m := range visible {
		key := f.DateKey(m.CreatedAt)
		if i > 0 && key != prev {
			rows = append(rows, Row{Kind: RowSeparator, Date: f.DateLabel(m.CreatedAt)})
		}
		prev = key
		rows = append(rows, messageRow(m, currentUserID, f))
	}
	return rows
}

func messageRow(m dmapi.Message, currentUserID int64, f *format.Formatter) Row {
	row := Row{
		Kind:     RowMessage,
		Message:  m,
		Own:      currentUserID != 0 && m.SenderID() == currentUserID,
		Editable: CanModify(m, currentUserID),
		Time:     f.TimeLabel(m.CreatedAt),
	}
	if m.IsDeleted {
		row.Body = dm.DeletedPlaceholder(m)
		return row
	}
	row.Body = m.Body
	row.Edited = m.EditedAt != ""
	for _, a := range m.Attachments {
		row.Attachments = append(row.Attachments, AttachmentLabel(a))
	}
	return row
}

// AttachmentLabel names an attachment for display.
func AttachmentLabel(a dmapi.Attachment) string {
	if a.Name != "" {
		return a.Name
	}
	if i := strings.LastIndexByte(a.URL, '/'); i >= 0 && i < len(a.URL)-1 {
		return a.URL[i+1:]
	}
	return dm.AttachmentLabel
}

// CanModify reports whether the current user may edit or delete m: they sent
// it, and it is neither pending nor deleted.
func CanModify(m dmapi.Message, currentUserID int64) bool {
	return currentUserID != 0 &&
		m.SenderID() == currentUserID &&
		!m.IsPending &&
		!m.IsDeleted
}

// Modifiable returns the ids of the messages the current user may edit or
// delete, in pane order.
func Modifiable(rows []Row) []int64 {
	var ids []int64
	for _, r := range rows {
		if r.Kind == RowMessage && r.Editable {
			ids = append(ids, r.Message.ID)
		}
	}
	return ids
}
