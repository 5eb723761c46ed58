package devserver

import (
	"fmt"
	"time"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/store"
)

var demoUsers = []store.User{
	{Name: "tanaka", DisplayName: "田中 太郎", Email: "tanaka@example.com"},
	{Name: "suzuki", DisplayName: "鈴木 花子", Email: "suzuki@example.com"},
	{Name: "sato", DisplayName: "佐藤 健", Email: "sato@example.com"},
	{Name: "yamada", DisplayName: "山田 美咲", Email: "yamada@example.com"},
}

// Seed creates the demo users and a few conversations when the database
// has no users. The last demo user is left unverified. It returns the users
// it created.
func Seed(db *store.DB, now time.Time) ([]store.User, error) {
	existing, err := db.ListUsers()
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}

	ts := now.UnixMilli()
	users := make([]store.User, 0, len(demoUsers))
	for i, u := range demoUsers {
		u.CreatedAt = ts
		if i < len(demoUsers)-1 {
			u.EmailVerifiedAt = ts
		}
		if err := db.CreateUser(&u); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.Name, err)
		}
		users = append(users, u)
	}

	tanaka, suzuki, sato := users[0], users[1], users[2]
	yesterday := now.Add(-24 * time.Hour).UnixMilli()

	direct, err := db.CreateConversation(dmapi.TypeDirect, "", []int64{tanaka.ID, suzuki.ID}, yesterday)
	if err != nil {
		return nil, err
	}
	group, err := db.CreateConversation(dmapi.TypeGroup, "プロジェクト", []int64{tanaka.ID, suzuki.ID, sato.ID}, yesterday)
	if err != nil {
		return nil, err
	}

	lines := []struct {
		conv   int64
		sender store.User
		body   string
		at     int64
	}{
		{direct, suzuki, "こんにちは！", yesterday},
		{direct, tanaka, "こんにちは、よろしくお願いします。", yesterday + int64(time.Minute/time.Millisecond)},
		{group, sato, "明日の打ち合わせは10時からです。", ts - int64(time.Hour/time.Millisecond)},
		{direct, suzuki, "資料を送りました。", ts - int64(10*time.Minute/time.Millisecond)},
	}
	for _, l := range lines {
		m := store.Message{ConversationID: l.conv, Sender: store.User{ID: l.sender.ID}, Body: l.body, CreatedAt: l.at}
		if err := db.InsertMessage(&m); err != nil {
			return nil, fmt.Errorf("seed message: %w", err)
		}
	}
	return users, nil
}
