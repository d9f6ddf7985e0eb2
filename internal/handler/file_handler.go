package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DeleteFile 删除附件并从正文中移除对应占位符
func (a *API) DeleteFile(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := a.posts.DeleteFile(c.Request.Context(), id, requesterID(c)); err != nil {
		respondServiceError(c, err, "An error occured while trying to delete the file.")
		return
	}
	c.Status(http.StatusNoContent)
}
