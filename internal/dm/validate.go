package dm

import (
	"errors"
	"strings"

	"github.com/nicedig/ndm/internal/dmapi"
)

// Validation errors returned before any network call.
var (
	ErrNoConversation     = errors.New("no conversation selected")
	ErrNoParticipants     = errors.New("select at least one participant")
	ErrGroupTitleRequired = errors.New("group name required")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrEmptyEdit          = errors.New("edited message is empty")
)

// ValidateCreate checks a create-conversation request. More than one
// participant, or an explicit group type, requires a title.
func ValidateCreate(in dmapi.CreateConversationInput) error {
	if len(in.ParticipantIDs) == 0 {
		return ErrNoParticipants
	}
	group := len(in.ParticipantIDs) > 1 || in.Type == dmapi.TypeGroup
	if group && strings.TrimSpace(in.Title) == "" {
		return ErrGroupTitleRequired
	}
	return nil
}

// NormalizeCreate trims the title and infers the group type for
// multi-participant requests. The type of a single-participant request is
// left to the server.
func NormalizeCreate(in dmapi.CreateConversationInput) dmapi.CreateConversationInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" && len(in.ParticipantIDs) > 1 {
		in.Type = dmapi.TypeGroup
	}
	return in
}
