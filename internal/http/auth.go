package http

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"expensemanager/internal/auth"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
)

const (
	sessionCookie = "sid"
	sessionKey    = "session"
)

var notPermitted = gin.H{"success": false, "error": "not_permitted"}

// sessionID reads the session id from "Authorization: token|Bearer <sid>"
// or the sid cookie.
func sessionID(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && (strings.EqualFold(scheme, "token") || strings.EqualFold(scheme, "bearer")) {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireSession rejects guests with 403 and puts the session and a
// user-scoped logger on the request.
func (s *Server) requireSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := s.auth.Resolve(ctx, sessionID(c.Request))
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			log.FromContext(ctx).ErrorContext(ctx, "Session lookup failed", log.FieldError, err)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, notPermitted)
		return
	}

	logger := log.FromContext(ctx).With(log.FieldUser, sess.Username)
	c.Request = c.Request.WithContext(log.NewContext(ctx, logger))
	c.Set(sessionKey, sess)
	c.Next()
}

func (s *Server) requireRole(role core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sess := sessionFrom(c)
		roles, err := s.auth.Roles(ctx, sess.Username)
		if err != nil {
			log.FromContext(ctx).WithComponent(log.ComponentAuth).ErrorContext(ctx, "Role lookup failed", log.FieldError, err)
			c.AbortWithStatusJSON(http.StatusForbidden, notPermitted)
			return
		}
		if !slices.Contains(roles, role) {
			log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Missing role", "role", string(role))
			c.AbortWithStatusJSON(http.StatusForbidden, notPermitted)
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) core.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(core.Session); ok {
			return sess
		}
	}
	return core.Session{}
}

// handleLogin authenticates usr/pwd and opens a session.
func (s *Server) handleLogin(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	kwargs, err := ParseKwargs(c.Request)
	if err != nil {
		logger.WarnContext(ctx, "Login request unreadable", log.FieldError, err)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": err.Error()})
		return
	}

	usr := kwargs.String("usr")
	pwd, _ := kwargs["pwd"].(string)

	sess, err := s.auth.Login(ctx, usr, pwd)
	if err != nil {
		logger.WarnContext(ctx, "Login failed",
			log.FieldUser, usr,
			log.FieldOperation, log.OpLogin,
			log.FieldError, err)
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": err.Error()})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.SID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	logger.InfoContext(ctx, "Logged in", log.FieldUser, sess.Username, log.FieldOperation, log.OpLogin)
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Logged In",
		"full_name": sess.FullName,
		"sid":       sess.SID,
	})
}
