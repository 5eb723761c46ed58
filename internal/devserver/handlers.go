package devserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/store"
)

// Request limits.
const (
	defaultPerPage = 50
	maxPerPage     = 100
	maxUploadSize  = 20 << 20
)

type handlers struct {
	db        *store.DB
	filesDir  string
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

func (h *handlers) fileURL(name string) string {
	return h.publicURL + "/files/" + name
}

func (h *handlers) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op, zap.Error(err))
	abort(c, http.StatusInternalServerError, "internal server error")
}

func (h *handlers) register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/files/:name", h.getFile)

	api := r.Group("", auth)
	api.GET("/user", h.getUser)
	api.GET("/users/all", h.listUsers)
	api.GET("/dm/conversations", h.listConversations)
	api.POST("/dm/conversations", h.createConversation)
	api.GET("/dm/conversations/:id/messages", h.listMessages)
	api.POST("/dm/conversations/:id/messages", h.sendMessage)
	api.PATCH("/dm/conversations/:id/messages/:messageId", h.updateMessage)
	api.DELETE("/dm/conversations/:id/messages/:messageId", h.deleteMessage)
	api.GET("/dm/unread-count", h.unreadCount)
}

func (h *handlers) getUser(c *gin.Context) {
	c.JSON(http.StatusOK, toUser(*currentUser(c)))
}

func (h *handlers) listUsers(c *gin.Context) {
	users, err := h.db.ListUsers()
	if err != nil {
		h.internalError(c, "list users", err)
		return
	}
	out := make([]dmapi.User, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *handlers) listConversations(c *gin.Context) {
	me := currentUser(c)
	convs, err := h.db.ListConversations(me.ID)
	if err != nil {
		h.internalError(c, "list conversations", err)
		return
	}
	items := make([]dmapi.Conversation, 0, len(convs))
	for _, conv := range convs {
		items = append(items, h.toConversation(conv, me.ID))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createConversationRequest struct {
	ParticipantIDs []int64 `json:"participant_ids"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
}

func (h *handlers) createConversation(c *gin.Context) {
	me := currentUser(c)
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	ids := make([]int64, 0, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		if id != me.ID && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		abort(c, http.StatusUnprocessableEntity, "participant_ids is required")
		return
	}
	for _, id := range ids {
		if _, err := h.db.GetUser(id); errors.Is(err, store.ErrNotFound) {
			abort(c, http.StatusUnprocessableEntity, fmt.Sprintf("user %d does not exist", id))
			return
		} else if err != nil {
			h.internalError(c, "get participant", err)
			return
		}
	}

	typ := req.Type
	if typ == "" {
		typ = dmapi.TypeGroup
		if len(ids) == 1 {
			typ = dmapi.TypeDirect
		}
	}
	title := strings.TrimSpace(req.Title)
	switch {
	case typ != dmapi.TypeDirect && typ != dmapi.TypeGroup:
		abort(c, http.StatusUnprocessableEntity, "type must be direct or group")
		return
	case typ == dmapi.TypeDirect && len(ids) != 1:
		abort(c, http.StatusUnprocessableEntity, "a direct conversation has exactly one other participant")
		return
	case typ == dmapi.TypeGroup && title == "":
		abort(c, http.StatusUnprocessableEntity, "title is required")
		return
	}

	status := http.StatusCreated
	var id int64
	var err error
	if typ == dmapi.TypeDirect {
		if id, err = h.db.FindDirect(me.ID, ids[0]); err != nil {
			h.internalError(c, "find direct conversation", err)
			return
		}
		if id != 0 {
			status = http.StatusOK
		}
	}
	if id == 0 {
		members := append([]int64{me.ID}, ids...)
		if id, err = h.db.CreateConversation(typ, title, members, h.now().UnixMilli()); err != nil {
			h.internalError(c, "create conversation", err)
			return
		}
		h.logger.Info("conversation created",
			zap.Int64("conversation_id", id), zap.String("type", typ), zap.Int("members", len(members)))
	}

	conv, err := h.db.GetConversation(id, me.ID)
	if err != nil {
		h.internalError(c, "load conversation", err)
		return
	}
	c.JSON(status, h.toConversation(*conv, me.ID))
}

// conversationParam resolves :id to a conversation the caller belongs to.
// It aborts the request and returns 0 otherwise.
func (h *handlers) conversationParam(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusNotFound, "conversation not found")
		return 0
	}
	ok, err := h.db.IsParticipant(id, currentUser(c).ID)
	if err != nil {
		h.internalError(c, "check participant", err)
		return 0
	}
	if !ok {
		abort(c, http.StatusNotFound, "conversation not found")
		return 0
	}
	return id
}

func (h *handlers) listMessages(c *gin.Context) {
	convID := h.conversationParam(c)
	if convID == 0 {
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage <= 0 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	msgs, total, err := h.db.ListMessages(convID, perPage)
	if err != nil {
		h.internalError(c, "list messages", err)
		return
	}
	if err := h.db.MarkRead(convID, currentUser(c).ID); err != nil {
		h.logger.Warn("mark read failed", zap.Int64("conversation_id", convID), zap.Error(err))
	}

	items := make([]dmapi.Message, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, h.toMessage(m))
	}
	c.JSON(http.StatusOK, dmapi.MessagePage{
		Items:       items,
		Total:       total,
		CurrentPage: 1,
		LastPage:    max(1, (total+perPage-1)/perPage),
		PerPage:     perPage,
	})
}

func (h *handlers) sendMessage(c *gin.Context) {
	convID := h.conversationParam(c)
	if convID == 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "invalid multipart body")
		return
	}

	body := ""
	if v := form.Value["body"]; len(v) > 0 {
		body = strings.TrimSpace(v[0])
	}
	files := form.File["attachments[]"]
	if body == "" && len(files) == 0 {
		abort(c, http.StatusUnprocessableEntity, "body or attachments is required")
		return
	}

	msg := store.Message{
		ConversationID: convID,
		Sender:         store.User{ID: currentUser(c).ID},
		Body:           body,
		CreatedAt:      h.now().UnixMilli(),
	}
	for _, fh := range files {
		a, err := h.saveUpload(fh)
		if err != nil {
			h.internalError(c, "save attachment", err)
			return
		}
		msg.Attachments = append(msg.Attachments, a)
	}
	if err := h.db.InsertMessage(&msg); err != nil {
		h.internalError(c, "insert message", err)
		return
	}
	c.JSON(http.StatusCreated, h.toMessage(msg))
}

// saveUpload stores an uploaded file under a random name in filesDir.
func (h *handlers) saveUpload(fh *multipart.FileHeader) (store.Attachment, error) {
	src, err := fh.Open()
	if err != nil {
		return store.Attachment{}, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		return store.Attachment{}, fmt.Errorf("read upload: %w", err)
	}
	mt := mimetype.Detect(data)
	name := filepath.Base(fh.Filename)
	ext := filepath.Ext(name)
	if ext == "" {
		ext = mt.Extension()
	}
	stored := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(h.filesDir, stored), data, 0600); err != nil {
		return store.Attachment{}, fmt.Errorf("write upload: %w", err)
	}
	return store.Attachment{
		Name:       name,
		Mime:       mt.String(),
		Size:       int64(len(data)),
		StoredName: stored,
	}, nil
}

// ownMessageParam resolves :messageId to a live message of the caller.
func (h *handlers) ownMessageParam(c *gin.Context, convID int64) *store.Message {
	id, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusNotFound, "message not found")
		return nil
	}
	msg, err := h.db.GetMessage(convID, id)
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusNotFound, "message not found")
		return nil
	}
	if err != nil {
		h.internalError(c, "get message", err)
		return nil
	}
	if msg.Sender.ID != currentUser(c).ID {
		abort(c, http.StatusForbidden, "you can only change your own messages")
		return nil
	}
	return msg
}

type updateMessageRequest struct {
	Body string `json:"body"`
}

func (h *handlers) updateMessage(c *gin.Context) {
	convID := h.conversationParam(c)
	if convID == 0 {
		return
	}
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		abort(c, http.StatusUnprocessableEntity, "body is required")
		return
	}
	msg := h.ownMessageParam(c, convID)
	if msg == nil {
		return
	}
	if msg.DeletedAt != 0 {
		abort(c, http.StatusUnprocessableEntity, "deleted messages cannot be edited")
		return
	}
	if err := h.db.UpdateMessageBody(convID, msg.ID, body, h.now().UnixMilli()); err != nil {
		h.internalError(c, "update message", err)
		return
	}
	h.respondMessage(c, convID, msg.ID)
}

func (h *handlers) deleteMessage(c *gin.Context) {
	convID := h.conversationParam(c)
	if convID == 0 {
		return
	}
	msg := h.ownMessageParam(c, convID)
	if msg == nil {
		return
	}
	if err := h.db.DeleteMessage(convID, msg.ID, h.now().UnixMilli()); err != nil {
		h.internalError(c, "delete message", err)
		return
	}
	h.respondMessage(c, convID, msg.ID)
}

func (h *handlers) respondMessage(c *gin.Context, convID, id int64) {
	msg, err := h.db.GetMessage(convID, id)
	if err != nil {
		h.internalError(c, "reload message", err)
		return
	}
	c.JSON(http.StatusOK, h.toMessage(*msg))
}

func (h *handlers) unreadCount(c *gin.Context) {
	total, err := h.db.UnreadTotal(currentUser(c).ID)
	if err != nil {
		h.internalError(c, "unread count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total})
}

func (h *handlers) getFile(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	a, err := h.db.GetAttachment(name)
	if errors.Is(err, store.ErrNotFound) {
		abort(c, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		h.internalError(c, "get attachment", err)
		return
	}
	c.Header("Content-Type", a.Mime)
	c.FileAttachment(filepath.Join(h.filesDir, a.StoredName), a.Name)
}
