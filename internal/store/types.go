package store

// User is a registered account.
type User struct {
	ID              int64
	Name            string
	DisplayName     string
	AvatarURL       string
	Email           string
	EmailVerifiedAt int64 // unix ms, 0 = unverified
	CreatedAt       int64
}

// Conversation is a conversation as seen by one participant.
type Conversation struct {
	ID           int64
	Type         string
	Title        string
	CreatedAt    int64
	UpdatedAt    int64
	Participants []User
	LastMessage  *Message
	UnreadCount  int
}

// Message is a stored message. Deleted messages keep their row with
// DeletedAt set and an empty body.
type Message struct {
	ID             int64
	ConversationID int64
	Sender         User
	Body           string
	CreatedAt      int64
	EditedAt       int64
	DeletedAt      int64
	Attachments    []Attachment
}

// Attachment is an uploaded file stored on disk under StoredName.
type Attachment struct {
	ID         int64
	MessageID  int64
	Name       string
	Mime       string
	Size       int64
	StoredName string
}
