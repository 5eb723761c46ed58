package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

const messageColumns = `m.id, m.conversation_id, m.body, m.created_at, m.edited_at, m.deleted_at, ` + userColumns

func scanMessage(s scanner, m *Message) error {
	u := &m.Sender
	return s.Scan(&m.ID, &m.ConversationID, &m.Body, &m.CreatedAt, &m.EditedAt, &m.DeletedAt,
		&u.ID, &u.Name, &u.DisplayName, &u.AvatarURL, &u.Email, &u.EmailVerifiedAt, &u.CreatedAt)
}

// InsertMessage stores m with its attachments and bumps the conversation's
// activity time. ID, attachment IDs and Sender are filled in.
func (db *DB) InsertMessage(m *Message) error {
	err := db.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO messages (conversation_id, sender_id, body, created_at)
			VALUES (?, ?, ?, ?)`, m.ConversationID, m.Sender.ID, m.Body, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for i := range m.Attachments {
			a := &m.Attachments[i]
			a.MessageID = m.ID
			res, err := tx.Exec(`
				INSERT INTO attachments (message_id, name, mime, size, stored_name)
				VALUES (?, ?, ?, ?, ?)`, a.MessageID, a.Name, a.Mime, a.Size, a.StoredName)
			if err != nil {
				return fmt.Errorf("insert attachment %s: %w", a.Name, err)
			}
			if a.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		_, err = tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, m.CreatedAt, m.ConversationID)
		return err
	})
	if err != nil {
		return err
	}
	sender, err := db.GetUser(m.Sender.ID)
	if err != nil {
		return err
	}
	m.Sender = *sender
	return nil
}

// ListMessages returns the newest limit messages of a conversation in
// ascending order, plus the conversation's total message count.
func (db *DB) ListMessages(conversationID int64, limit int) ([]Message, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.id DESC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, 0, err
	}
	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			_ = rows.Close()
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Close(); err != nil {
		return nil, 0, err
	}
	slices.Reverse(msgs)

	for i := range msgs {
		if err := db.loadAttachments(&msgs[i]); err != nil {
			return nil, 0, err
		}
	}
	return msgs, total, nil
}

// GetMessage returns a message of the given conversation, or ErrNotFound.
func (db *DB) GetMessage(conversationID, id int64) (*Message, error) {
	var m Message
	err := scanMessage(db.QueryRow(`
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? AND m.id = ?`, conversationID, id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := db.loadAttachments(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) lastMessage(conversationID int64) (*Message, error) {
	var id int64
	err := db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&id)
	if err != nil || id == 0 {
		return nil, err
	}
	return db.GetMessage(conversationID, id)
}

// loadAttachments fills m.Attachments; deleted messages keep none.
func (db *DB) loadAttachments(m *Message) error {
	m.Attachments = nil
	if m.DeletedAt != 0 {
		return nil
	}
	rows, err := db.Query(`
		SELECT id, message_id, name, mime, size, stored_name
		FROM attachments WHERE message_id = ? ORDER BY id`, m.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Name, &a.Mime, &a.Size, &a.StoredName); err != nil {
			return err
		}
		m.Attachments = append(m.Attachments, a)
	}
	return rows.Err()
}

// UpdateMessageBody replaces the body of a live message and stamps editedAt.
func (db *DB) UpdateMessageBody(conversationID, id int64, body string, at int64) error {
	res, err := db.Exec(`
		UPDATE messages SET body = ?, edited_at = ?
		WHERE conversation_id = ? AND id = ? AND deleted_at = 0`, body, at, conversationID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// DeleteMessage tombstones a message: the body is cleared and deletedAt set.
// Deleting an already deleted message is a no-op.
func (db *DB) DeleteMessage(conversationID, id int64, at int64) error {
	res, err := db.Exec(`
		UPDATE messages SET body = '', deleted_at = CASE WHEN deleted_at = 0 THEN ? ELSE deleted_at END
		WHERE conversation_id = ? AND id = ?`, at, conversationID, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetAttachment returns the attachment stored under name, or ErrNotFound.
// Attachments of deleted messages are not served.
func (db *DB) GetAttachment(storedName string) (*Attachment, error) {
	var a Attachment
	err := db.QueryRow(`
		SELECT a.id, a.message_id, a.name, a.mime, a.size, a.stored_name
		FROM attachments a
		JOIN messages m ON m.id = a.message_id
		WHERE a.stored_name = ? AND m.deleted_at = 0`, storedName).
		Scan(&a.ID, &a.MessageID, &a.Name, &a.Mime, &a.Size, &a.StoredName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
