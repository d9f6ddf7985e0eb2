package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/blogzine/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parsePageQuery(c *gin.Context) int {
	raw := strings.TrimSpace(c.Query("page"))
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// respondServiceError maps service errors onto status codes. fallback is the message used
// for unexpected failures, which are logged and never echoed to the client.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
		return
	}

	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Item requested not found.")
	case errors.Is(err, service.ErrFileNotFound):
		respondError(c, http.StatusNotFound, "Item requested not found.")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "you are not allowed to access this post")
	case errors.Is(err, service.ErrCategoryNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "category not found", "field": service.FieldCategoryIDs})
	case errors.Is(err, service.ErrMissingFilter):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoUpcomingIssue):
		respondError(c, http.StatusServiceUnavailable, "no upcoming issue is accepting posts")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid username or password")
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg(fallback)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
