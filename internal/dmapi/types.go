package dmapi

import (
	"strings"
	"time"
)

// Conversation types.
const (
	TypeDirect = "direct"
	TypeGroup  = "group"
)

// Participant is a member of a conversation.
type Participant struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Label returns the display name, falling back to the account name.
func (p Participant) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// User is a candidate participant or the signed-in account.
type User struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DisplayName     string `json:"displayName,omitempty"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	Email           string `json:"email,omitempty"`
	EmailVerifiedAt string `json:"emailVerifiedAt,omitempty"`
}

// Verified reports whether the account finished email verification.
func (u User) Verified() bool { return u.EmailVerifiedAt != "" }

// Participant converts the user into a participant reference.
func (u User) Participant() Participant {
	return Participant{ID: u.ID, Name: u.Name, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Mime string `json:"mime,omitempty"`
	Size int64  `json:"size"`
	Name string `json:"name,omitempty"`
}

// Message is one entry in a conversation. Pending fields are client-local
// and never sent to or read from the server.
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	Body           string       `json:"body,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Sender         *Participant `json:"sender"`
	CreatedAt      string       `json:"createdAt"`
	EditedAt       string       `json:"editedAt,omitempty"`
	DeletedAt      string       `json:"deletedAt,omitempty"`
	IsDeleted      bool         `json:"isDeleted"`

	IsPending        bool      `json:"-"`
	PendingExpiresAt time.Time `json:"-"`
	CorrelationID    string    `json:"-"`
}

// SenderID returns the sender's id or 0 for system messages.
func (m Message) SenderID() int64 {
	if m.Sender == nil {
		return 0
	}
	return m.Sender.ID
}

// Conversation is a thread between the current user and one or more others.
type Conversation struct {
	ID           int64         `json:"id"`
	Type         string        `json:"type"`
	Title        string        `json:"title,omitempty"`
	DisplayName  string        `json:"displayName,omitempty"`
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	UpdatedAt    string        `json:"updatedAt"`
	CreatedAt    string        `json:"createdAt"`
	UnreadCount  int           `json:"unreadCount"`
}

// MessagePage is one page of a conversation's messages.
type MessagePage struct {
	Items       []Message `json:"items"`
	Total       int       `json:"total"`
	CurrentPage int       `json:"currentPage"`
	LastPage    int       `json:"lastPage"`
	PerPage     int       `json:"perPage"`
}

// CreateConversationInput is the body of a create-conversation request.
// An empty Type lets the server pick.
type CreateConversationInput struct {
	ParticipantIDs []int64 `json:"participant_ids"`
	Type           string  `json:"type,omitempty"`
	Title          string  `json:"title,omitempty"`
}

// File is an attachment staged for upload.
type File struct {
	Name string
	Data []byte
}

// SendMessageInput is the body of a send-message request.
type SendMessageInput struct {
	Body  string
	Files []File
}

// Empty reports whether there is nothing to send.
func (in SendMessageInput) Empty() bool {
	return strings.TrimSpace(in.Body) == "" && len(in.Files) == 0
}
