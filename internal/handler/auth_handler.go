package handler

import (
	"net/http"
	"strings"

	"github.com/blogzine/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	identityContextKey = "userId"
	sessionUserKey     = "user_id"
	sessionNameKey     = "username"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login 校验账号密码，写入会话并返回 bearer token
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if !bindJSON(c, &req, "invalid login payload") {
			return
		}
	} else if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid login payload")
		return
	}

	user, token, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err, "login failed")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	session.Set(sessionNameKey, user.Username)
	if err := session.Save(); err != nil {
		respondServiceError(c, err, "failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.ID, "username": user.Username})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondServiceError(c, err, "failed to clear session")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequireIdentity rejects requests that carry neither a valid bearer token nor a login session.
func (a *API) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, present, ok := a.resolveIdentity(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}
		if !present {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Set(identityContextKey, id)
		c.Next()
	}
}

// OptionalIdentity records the requester when one is present and lets anonymous requests through.
func (a *API) OptionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, present, ok := a.resolveIdentity(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}
		if present {
			c.Set(identityContextKey, id)
		}
		c.Next()
	}
}

// resolveIdentity prefers the Authorization header over the session cookie.
// ok is false only when a bearer token was sent and failed validation.
func (a *API) resolveIdentity(c *gin.Context) (id uint, present bool, ok bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return 0, false, false
		}
		userID, err := a.auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			return 0, false, false
		}
		return userID, true, true
	}

	session := sessions.Default(c)
	if userID, valid := service.NormalizeIdentity(session.Get(sessionUserKey)); valid {
		return userID, true, true
	}
	return 0, false, true
}

// requesterID returns the identity set by the middleware, 0 when anonymous.
func requesterID(c *gin.Context) uint {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return 0
	}
	id, _ := service.NormalizeIdentity(value)
	return id
}
