package bus

import "time"

// Event kinds published by the client. Subscribers filter by prefix, so
// "dm." receives every store change and "session." every gate change.
const (
	KindConversationsChanged = "dm.conversations.changed"
	KindMessagesChanged      = "dm.messages.changed"
	KindUnreadChanged        = "dm.unread.changed"
	KindPendingChanged       = "dm.pending.changed"
	KindSendAck              = "dm.pending.send_ack"
	KindSendFailed           = "dm.pending.send_failed"
	KindPageChanged          = "page.changed"
	KindSessionStatusChanged = "session.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event of the given kind with the current time.
func NewEvent(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
