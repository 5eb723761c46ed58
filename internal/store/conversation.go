package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreateConversation inserts a conversation with the given members and
// returns its id.
func (db *DB) CreateConversation(typ, title string, memberIDs []int64, now int64) (int64, error) {
	var id int64
	err := db.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO conversations (type, title, created_at, updated_at)
			VALUES (?, ?, ?, ?)`, typ, title, now, now)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, uid := range memberIDs {
			if _, err := tx.Exec(`
				INSERT INTO participants (conversation_id, user_id) VALUES (?, ?)
				ON CONFLICT DO NOTHING`, id, uid); err != nil {
				return fmt.Errorf("insert participant %d: %w", uid, err)
			}
		}
		return nil
	})
	return id, err
}

// FindDirect returns the direct conversation between a and b, or 0.
func (db *DB) FindDirect(a, b int64) (int64, error) {
	var id int64
	err := db.QueryRow(`
		SELECT c.id
		FROM conversations c
		JOIN participants pa ON pa.conversation_id = c.id AND pa.user_id = ?
		JOIN participants pb ON pb.conversation_id = c.id AND pb.user_id = ?
		WHERE c.type = 'direct'
			AND (SELECT COUNT(*) FROM participants p WHERE p.conversation_id = c.id) = 2
		ORDER BY c.id
		LIMIT 1`, a, b).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// IsParticipant reports whether userID belongs to the conversation.
func (db *DB) IsParticipant(conversationID, userID int64) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&n)
	return n > 0, err
}

// ListConversations returns userID's conversations, most recently active
// first, each with participants, last message and unread count.
func (db *DB) ListConversations(userID int64) ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT c.id, c.type, c.title, c.created_at, c.updated_at
		FROM conversations c
		JOIN participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Type, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i := range convs {
		if err := db.fill(&convs[i], userID); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// GetConversation returns a conversation visible to userID, or ErrNotFound.
func (db *DB) GetConversation(id, userID int64) (*Conversation, error) {
	ok, err := db.IsParticipant(id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	var c Conversation
	err = db.QueryRow(`
		SELECT id, type, title, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Type, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := db.fill(&c, userID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) fill(c *Conversation, userID int64) error {
	var err error
	if c.Participants, err = db.participants(c.ID); err != nil {
		return fmt.Errorf("participants of %d: %w", c.ID, err)
	}
	if c.LastMessage, err = db.lastMessage(c.ID); err != nil {
		return fmt.Errorf("last message of %d: %w", c.ID, err)
	}
	if c.UnreadCount, err = db.unreadCount(c.ID, userID); err != nil {
		return fmt.Errorf("unread count of %d: %w", c.ID, err)
	}
	return nil
}

func (db *DB) participants(conversationID int64) ([]User, error) {
	rows, err := db.Query(`
		SELECT `+userColumns+`
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id = ?
		ORDER BY u.id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	users := []User{}
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// unreadWhere selects visible messages from others past the read marker.
const unreadWhere = `
	m.id > p.last_read_message_id
	AND m.sender_id != p.user_id
	AND m.deleted_at = 0`

func (db *DB) unreadCount(conversationID, userID int64) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM messages m
		JOIN participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?
		WHERE m.conversation_id = ? AND`+unreadWhere, userID, conversationID).Scan(&n)
	return n, err
}

// UnreadTotal sums unread messages across all of userID's conversations.
func (db *DB) UnreadTotal(userID int64) (int, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM messages m
		JOIN participants p ON p.conversation_id = m.conversation_id AND p.user_id = ?
		WHERE`+unreadWhere, userID).Scan(&n)
	return n, err
}

// MarkRead moves userID's read marker to the conversation's newest message.
func (db *DB) MarkRead(conversationID, userID int64) error {
	_, err := db.Exec(`
		UPDATE participants
		SET last_read_message_id = (
			SELECT COALESCE(MAX(id), 0) FROM messages WHERE conversation_id = ?
		)
		WHERE conversation_id = ? AND user_id = ?`, conversationID, conversationID, userID)
	return err
}
