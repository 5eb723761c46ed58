package dm

import (
	"testing"
	"time"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
)

var (
	me  = dmapi.Participant{ID: 1, Name: "me"}
	aya = dmapi.Participant{ID: 2, Name: "aya", DisplayName: "Aya"}
	ken = dmapi.Participant{ID: 3, Name: "ken"}
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		conv dmapi.Conversation
		want string
	}{
		{"display name wins", dmapi.Conversation{Type: dmapi.TypeGroup, DisplayName: "Team", Title: "t", Participants: []dmapi.Participant{me, aya}}, "Team"},
		{"group title", dmapi.Conversation{Type: dmapi.TypeGroup, Title: "Project", Participants: []dmapi.Participant{me, aya, ken}}, "Project"},
		{"direct counterpart", dmapi.Conversation{Type: dmapi.TypeDirect, Title: "ignored", Participants: []dmapi.Participant{me, aya}}, "Aya"},
		{"group without title", dmapi.Conversation{Type: dmapi.TypeGroup, Participants: []dmapi.Participant{me, aya, ken}}, "Aya、ken"},
		{"only me", dmapi.Conversation{Type: dmapi.TypeDirect, Participants: []dmapi.Participant{me}}, UntitledLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.conv, me.ID); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAvatarParticipant(t *testing.T) {
	conv := dmapi.Conversation{Participants: []dmapi.Participant{me, ken, aya}}
	p := AvatarParticipant(conv, me.ID)
	if p == nil || p.ID != ken.ID {
		t.Errorf("AvatarParticipant() = %+v, want ken", p)
	}
	if AvatarParticipant(dmapi.Conversation{Participants: []dmapi.Participant{me}}, me.ID) != nil {
		t.Error("expected nil avatar with no counterpart")
	}
}

func TestSubtitle(t *testing.T) {
	tests := []struct {
		name string
		last *dmapi.Message
		want string
	}{
		{"no message", nil, NoMessagesLabel},
		{"deleted", &dmapi.Message{Body: "secret", IsDeleted: true}, DeletedLabel},
		{"first line", &dmapi.Message{Body: "hello\nworld", Sender: &aya}, "hello"},
		{"own message", &dmapi.Message{Body: "hi", Sender: &me}, "あなた: hi"},
		{"attachment only", &dmapi.Message{Attachments: []dmapi.Attachment{{ID: 1}}, Sender: &aya}, AttachmentLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := dmapi.Conversation{LastMessage: tt.last}
			if got := Subtitle(conv, me.ID); got != tt.want {
				t.Errorf("Subtitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLastActivityLabel(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f := format.NewWithClock(time.UTC, func() time.Time { return now })

	conv := dmapi.Conversation{UpdatedAt: "2024-06-01T00:00:00Z"}
	if got := LastActivityLabel(conv, f); got != "6/1" {
		t.Errorf("LastActivityLabel() = %q, want 6/1", got)
	}
	conv.LastMessage = &dmapi.Message{CreatedAt: "2024-06-10T08:30:00Z"}
	if got := LastActivityLabel(conv, f); got != "08:30" {
		t.Errorf("LastActivityLabel() = %q, want 08:30", got)
	}
}

func TestSearchText(t *testing.T) {
	conv := dmapi.Conversation{Type: dmapi.TypeGroup, Participants: []dmapi.Participant{me, aya, ken}}
	if got := SearchText(conv, me.ID); got != "Aya、ken" {
		t.Errorf("SearchText() = %q", got)
	}
	conv.Title = "Launch"
	if got := SearchText(conv, me.ID); got != "Launch" {
		t.Errorf("SearchText() = %q, want Launch", got)
	}
}

func TestDeletedPlaceholder(t *testing.T) {
	msg := dmapi.Message{ID: 5, IsDeleted: true, Body: "secret", Sender: &dmapi.Participant{DisplayName: "Aya"}}
	if got := DeletedPlaceholder(msg); got != "Ayaさんが送信を取り消しました" {
		t.Errorf("DeletedPlaceholder() = %q", got)
	}
	if got := DeletedPlaceholder(dmapi.Message{IsDeleted: true}); got != DeletedLabel {
		t.Errorf("DeletedPlaceholder(no sender) = %q", got)
	}
}
