package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
)

const (
	CtxUserIDKey    = "user_id"
	CtxRoleKey      = "role"
	CtxSessionIDKey = "session_id"
	ctxSessionKey   = "session"
)

// RequireAuth: Authorization: Bearer <token> を検証して context に session を詰める
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			apierr.Abort(c, apierr.ErrUnauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apierr.Abort(c, apierr.ErrUnauthorized("invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			apierr.Abort(c, apierr.ErrUnauthorized("empty token"))
			return
		}

		sess, err := svc.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			apierr.Abort(c, err)
			return
		}

		c.Set(CtxUserIDKey, sess.Email)
		c.Set(CtxRoleKey, sess.Role)
		c.Set(CtxSessionIDKey, sess.ID)
		c.Set(ctxSessionKey, sess)

		ctx := c.Request.Context()
		logger := logging.FromContext(ctx).With("user", sess.Email)
		c.Request = c.Request.WithContext(logging.ContextWithLogger(ctx, logger))
		c.Next()
	}
}

// UserID returns the signed-in email, or "" outside RequireAuth.
func UserID(c *gin.Context) string { return c.GetString(CtxUserIDKey) }

// SessionID returns the session id, or "" outside RequireAuth.
func SessionID(c *gin.Context) string { return c.GetString(CtxSessionIDKey) }

// CurrentSession returns the session set by RequireAuth.
func CurrentSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
