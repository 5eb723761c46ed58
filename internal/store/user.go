package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const userColumns = `u.id, u.name, u.display_name, u.avatar_url, u.email, u.email_verified_at, u.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner, u *User) error {
	return s.Scan(&u.ID, &u.Name, &u.DisplayName, &u.AvatarURL, &u.Email, &u.EmailVerifiedAt, &u.CreatedAt)
}

// CreateUser inserts u and sets its ID. A zero CreatedAt is stamped now.
func (db *DB) CreateUser(u *User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
		INSERT INTO users (name, display_name, avatar_url, email, email_verified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.DisplayName, u.AvatarURL, u.Email, u.EmailVerifiedAt, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// GetUser returns the user with id, or ErrNotFound.
func (db *DB) GetUser(id int64) (*User, error) {
	var u User
	err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail returns the user registered with email, or ErrNotFound.
func (db *DB) GetUserByEmail(email string) (*User, error) {
	var u User
	err := scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users u WHERE u.email = ?`, email), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user ordered by id.
func (db *DB) ListUsers() ([]User, error) {
	rows, err := db.Query(`SELECT ` + userColumns + ` FROM users u ORDER BY u.id`)
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

// VerifyUser stamps the user's email as verified at the given time.
func (db *DB) VerifyUser(id, at int64) error {
	res, err := db.Exec(`UPDATE users SET email_verified_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
