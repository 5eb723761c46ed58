package dm

import (
	"fmt"
	"strings"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
)

// Fallback labels.
const (
	UntitledLabel        = "名称未設定"
	NoMessagesLabel      = "メッセージはまだありません"
	AttachmentLabel      = "添付ファイル"
	DeletedLabel         = "メッセージが取り消されました"
	deletedBySenderLabel = "%sさんが送信を取り消しました"
	selfPrefix           = "あなた: "
)

// Counterparts returns the participants other than the current user, in
// conversation order.
func Counterparts(c dmapi.Conversation, currentUserID int64) []dmapi.Participant {
	out := make([]dmapi.Participant, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.ID != currentUserID {
			out = append(out, p)
		}
	}
	return out
}

// explicitName is the server-provided label: displayName, else the title of
// a group.
func explicitName(c dmapi.Conversation) string {
	if s := strings.TrimSpace(c.DisplayName); s != "" {
		return s
	}
	if c.Type == dmapi.TypeGroup || c.Type == "" {
		if s := strings.TrimSpace(c.Title); s != "" {
			return s
		}
	}
	return ""
}

// DisplayName resolves the conversation label: displayName wins, else the
// group title, else the counterpart names.
func DisplayName(c dmapi.Conversation, currentUserID int64) string {
	if s := explicitName(c); s != "" {
		return s
	}
	others := Counterparts(c, currentUserID)
	if len(others) == 0 {
		return UntitledLabel
	}
	if c.Type == dmapi.TypeDirect {
		return others[0].Label()
	}
	return joinLabels(others)
}

// AvatarParticipant returns the participant whose avatar represents the
// conversation, or nil when there is no counterpart.
func AvatarParticipant(c dmapi.Conversation, currentUserID int64) *dmapi.Participant {
	others := Counterparts(c, currentUserID)
	if len(others) == 0 {
		return nil
	}
	p := others[0]
	return &p
}

// Subtitle is the list preview of the last message.
func Subtitle(c dmapi.Conversation, currentUserID int64) string {
	m := c.LastMessage
	if m == nil {
		return NoMessagesLabel
	}
	if m.IsDeleted {
		return DeletedLabel
	}
	text := firstLine(m.Body)
	if text == "" && len(m.Attachments) > 0 {
		text = AttachmentLabel
	}
	if text == "" {
		return NoMessagesLabel
	}
	if currentUserID != 0 && m.SenderID() == currentUserID {
		return selfPrefix + text
	}
	return text
}

// LastActivityLabel renders the time of the last message, or of the last
// conversation update when there is none.
func LastActivityLabel(c dmapi.Conversation, f *format.Formatter) string {
	ts := c.UpdatedAt
	if c.LastMessage != nil && c.LastMessage.CreatedAt != "" {
		ts = c.LastMessage.CreatedAt
	}
	return f.RelativeLabel(ts)
}

// SearchText is the text matched by the conversation search: the resolved
// name, or the participant names when there is none.
func SearchText(c dmapi.Conversation, currentUserID int64) string {
	if s := explicitName(c); s != "" {
		return s
	}
	if others := Counterparts(c, currentUserID); len(others) > 0 {
		return joinLabels(others)
	}
	return joinLabels(c.Participants)
}

// DeletedPlaceholder is the text shown instead of a deleted message.
func DeletedPlaceholder(m dmapi.Message) string {
	if m.Sender != nil {
		if name := m.Sender.Label(); name != "" {
			return fmt.Sprintf(deletedBySenderLabel, name)
		}
	}
	return DeletedLabel
}

func joinLabels(ps []dmapi.Participant) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		if l := p.Label(); l != "" {
			names = append(names, l)
		}
	}
	return strings.Join(names, "、")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
