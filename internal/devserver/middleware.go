package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/store"
)

const userKey = "user"

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// requireUser resolves the bearer token to a stored user.
func requireUser(issuer *Issuer, db *store.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			abort(c, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		id, err := issuer.Verify(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		u, err := db.GetUser(id)
		if errors.Is(err, store.ErrNotFound) {
			abort(c, http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *store.User {
	return c.MustGet(userKey).(*store.User)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
