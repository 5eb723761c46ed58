package dm

import (
	"errors"
	"testing"

	"github.com/nicedig/ndm/internal/dmapi"
)

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name string
		in   dmapi.CreateConversationInput
		want error
	}{
		{"no participants", dmapi.CreateConversationInput{}, ErrNoParticipants},
		{"direct", dmapi.CreateConversationInput{ParticipantIDs: []int64{2}}, nil},
		{"group without title", dmapi.CreateConversationInput{ParticipantIDs: []int64{2, 3}}, ErrGroupTitleRequired},
		{"group blank title", dmapi.CreateConversationInput{ParticipantIDs: []int64{2, 3}, Title: "  "}, ErrGroupTitleRequired},
		{"explicit group type", dmapi.CreateConversationInput{ParticipantIDs: []int64{2}, Type: dmapi.TypeGroup}, ErrGroupTitleRequired},
		{"group with title", dmapi.CreateConversationInput{ParticipantIDs: []int64{2, 3}, Title: "team"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateCreate(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("ValidateCreate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalizeCreate(t *testing.T) {
	got := NormalizeCreate(dmapi.CreateConversationInput{ParticipantIDs: []int64{2, 3}, Title: " team "})
	if got.Type != dmapi.TypeGroup || got.Title != "team" {
		t.Errorf("NormalizeCreate() = %+v", got)
	}
	direct := NormalizeCreate(dmapi.CreateConversationInput{ParticipantIDs: []int64{2}})
	if direct.Type != "" {
		t.Errorf("direct type = %q, want server default", direct.Type)
	}
}
