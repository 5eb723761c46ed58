// Package dmapi is the typed HTTP client for the direct-message REST API.
package dmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultPerPage is the page size hint sent when listing messages.
const DefaultPerPage = 50

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client calls the DM endpoints. All methods return *Error on failure.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// HasToken reports whether a bearer token is configured.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, connectionError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, connectionError(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := statusError(resp.StatusCode, data)
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	if in == nil {
		return c.do(ctx, method, path, nil, "")
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, connectionError(fmt.Errorf("marshal request: %w", err))
	}
	return c.do(ctx, method, path, bytes.NewReader(body), "application/json")
}

// decodeEntity decodes a single resource that may be wrapped in {"data": ...}.
func decodeEntity(data []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 && env.Data[0] == '{' {
		data = env.Data
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Message: ConnectionMessage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// FetchConversations lists the current user's conversations in server order.
// A missing or malformed item list yields an empty slice.
func (c *Client) FetchConversations(ctx context.Context) ([]Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/dm/conversations", nil, "")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []Conversation `json:"items"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Items == nil {
		c.logger.Debug("conversation payload without items", zap.Error(err))
		return []Conversation{}, nil
	}
	for i := range payload.Items {
		normalizeConversation(&payload.Items[i])
	}
	return payload.Items, nil
}

// CreateConversation creates a conversation. ParticipantIDs must be non-empty.
func (c *Client) CreateConversation(ctx context.Context, in CreateConversationInput) (*Conversation, error) {
	data, err := c.doJSON(ctx, http.MethodPost, "/dm/conversations", in)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := decodeEntity(data, &conv); err != nil {
		return nil, err
	}
	normalizeConversation(&conv)
	return &conv, nil
}

// FetchMessages returns the newest page of a conversation. perPage <= 0 uses
// DefaultPerPage.
func (c *Client) FetchMessages(ctx context.Context, conversationID int64, perPage int) (*MessagePage, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	q := url.Values{}
	q.Set("perPage", strconv.Itoa(perPage))
	data, err := c.do(ctx, http.MethodGet, conversationPath(conversationID)+"/messages?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	var page MessagePage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &Error{Message: ConnectionMessage, Err: fmt.Errorf("decode messages: %w", err)}
	}
	if page.Items == nil {
		page.Items = []Message{}
	}
	for i := range page.Items {
		normalizeMessage(&page.Items[i])
	}
	return &page, nil
}

// SendMessage posts a message as multipart form data with fields body and
// attachments[].
func (c *Client) SendMessage(ctx context.Context, conversationID int64, in SendMessageInput) (*Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if in.Body != "" {
		if err := w.WriteField("body", in.Body); err != nil {
			return nil, connectionError(fmt.Errorf("write body field: %w", err))
		}
	}
	for _, f := range in.Files {
		part, err := w.CreateFormFile("attachments[]", f.Name)
		if err != nil {
			return nil, connectionError(fmt.Errorf("create attachment part: %w", err))
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, connectionError(fmt.Errorf("write attachment %s: %w", f.Name, err))
		}
	}
	if err := w.Close(); err != nil {
		return nil, connectionError(fmt.Errorf("close multipart: %w", err))
	}

	data, err := c.do(ctx, http.MethodPost, conversationPath(conversationID)+"/messages", &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := decodeEntity(data, &msg); err != nil {
		return nil, err
	}
	normalizeMessage(&msg)
	return &msg, nil
}

// UpdateMessage replaces the body of one of the current user's messages.
func (c *Client) UpdateMessage(ctx context.Context, conversationID, messageID int64, body string) (*Message, error) {
	data, err := c.doJSON(ctx, http.MethodPatch, messagePath(conversationID, messageID), map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := decodeEntity(data, &msg); err != nil {
		return nil, err
	}
	normalizeMessage(&msg)
	return &msg, nil
}

// DeleteMessage tombstones one of the current user's messages. An empty
// response body yields a locally built tombstone.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID int64) (*Message, error) {
	data, err := c.do(ctx, http.MethodDelete, messagePath(conversationID, messageID), nil, "")
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Message{
			ID:             messageID,
			ConversationID: conversationID,
			IsDeleted:      true,
			DeletedAt:      time.Now().UTC().Format(time.RFC3339),
		}, nil
	}
	var msg Message
	if err := decodeEntity(data, &msg); err != nil {
		return nil, err
	}
	normalizeMessage(&msg)
	msg.IsDeleted = true
	return &msg, nil
}

// FetchUnreadCount returns the total unread count, 0 on malformed payloads.
func (c *Client) FetchUnreadCount(ctx context.Context) (int, error) {
	data, err := c.do(ctx, http.MethodGet, "/dm/unread-count", nil, "")
	if err != nil {
		return 0, err
	}
	var payload struct {
		Total json.RawMessage `json:"total"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, nil
	}
	var total float64
	if err := json.Unmarshal(payload.Total, &total); err != nil || total < 0 {
		return 0, nil
	}
	return int(total), nil
}

// FetchPotentialParticipants lists users that can be added to a conversation.
func (c *Client) FetchPotentialParticipants(ctx context.Context) ([]User, error) {
	data, err := c.do(ctx, http.MethodGet, "/users/all", nil, "")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data []User `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Data != nil {
		return payload.Data, nil
	}
	var users []User
	if err := json.Unmarshal(data, &users); err == nil && users != nil {
		return users, nil
	}
	return []User{}, nil
}

// FetchCurrentUser returns the signed-in account.
func (c *Client) FetchCurrentUser(ctx context.Context) (*User, error) {
	data, err := c.do(ctx, http.MethodGet, "/user", nil, "")
	if err != nil {
		return nil, err
	}
	var u User
	if err := decodeEntity(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func conversationPath(id int64) string {
	return "/dm/conversations/" + strconv.FormatInt(id, 10)
}

func messagePath(conversationID, messageID int64) string {
	return conversationPath(conversationID) + "/messages/" + strconv.FormatInt(messageID, 10)
}

func normalizeConversation(c *Conversation) {
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	if c.Participants == nil {
		c.Participants = []Participant{}
	}
	if c.LastMessage != nil {
		normalizeMessage(c.LastMessage)
	}
}

func normalizeMessage(m *Message) {
	if m.DeletedAt != "" {
		m.IsDeleted = true
	}
}
