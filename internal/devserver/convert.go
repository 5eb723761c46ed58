package devserver

import (
	"time"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/store"
)

// timestamp renders unix milliseconds as RFC 3339; 0 renders as "".
func timestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func toUser(u store.User) dmapi.User {
	return dmapi.User{
		ID:              u.ID,
		Name:            u.Name,
		DisplayName:     u.DisplayName,
		AvatarURL:       u.AvatarURL,
		Email:           u.Email,
		EmailVerifiedAt: timestamp(u.EmailVerifiedAt),
	}
}

func toParticipant(u store.User) dmapi.Participant {
	return dmapi.Participant{
		ID:          u.ID,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func (h *handlers) toMessage(m store.Message) dmapi.Message {
	sender := toParticipant(m.Sender)
	out := dmapi.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Body:           m.Body,
		Sender:         &sender,
		CreatedAt:      timestamp(m.CreatedAt),
		EditedAt:       timestamp(m.EditedAt),
		DeletedAt:      timestamp(m.DeletedAt),
		IsDeleted:      m.DeletedAt != 0,
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, dmapi.Attachment{
			ID:   a.ID,
			URL:  h.fileURL(a.StoredName),
			Mime: a.Mime,
			Size: a.Size,
			Name: a.Name,
		})
	}
	return out
}

// toConversation renders c for userID. Direct conversations carry the
// counterpart's label as displayName.
func (h *handlers) toConversation(c store.Conversation, userID int64) dmapi.Conversation {
	out := dmapi.Conversation{
		ID:           c.ID,
		Type:         c.Type,
		Title:        c.Title,
		Participants: make([]dmapi.Participant, 0, len(c.Participants)),
		UpdatedAt:    timestamp(c.UpdatedAt),
		CreatedAt:    timestamp(c.CreatedAt),
		UnreadCount:  c.UnreadCount,
	}
	for _, p := range c.Participants {
		out.Participants = append(out.Participants, toParticipant(p))
		if c.Type == dmapi.TypeDirect && p.ID != userID {
			out.DisplayName = toParticipant(p).Label()
		}
	}
	if c.LastMessage != nil {
		m := h.toMessage(*c.LastMessage)
		out.LastMessage = &m
	}
	return out
}
