package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/blogzine/internal/service"
	"github.com/gin-gonic/gin"
)

var errUnsupportedPayload = errors.New("unsupported payload")

// CreatePost 创建新文章，支持 multipart 上传或 JSON 请求体
func (a *API) CreatePost(c *gin.Context) {
	raw, uploads, err := a.decodeWritePayload(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "The error is most likely due to the data format.")
		return
	}

	fields, err := service.ValidatePostFields(raw, service.ValidateCreate)
	if err != nil {
		respondServiceError(c, err, "failed to create post")
		return
	}

	result, err := a.posts.Create(c.Request.Context(), requesterID(c), fields, uploads)
	if err != nil {
		respondServiceError(c, err, "failed to create post")
		return
	}

	message := "Blog with text only posted successfully."
	if result.Kind == service.WriteKindWithFiles {
		message = "Blog with files posted successfully."
	}
	c.JSON(http.StatusCreated, gin.H{"message": message, "kind": result.Kind, "post_id": result.Post.ID})
}

// UpdatePost 更新文章，只改动请求中出现的字段
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	raw, uploads, err := a.decodeWritePayload(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "The error is most likely due to the data format.")
		return
	}

	fields, err := service.ValidatePostFields(raw, service.ValidateUpdate)
	if err != nil {
		respondServiceError(c, err, "failed to update post")
		return
	}

	result, err := a.posts.Update(c.Request.Context(), id, requesterID(c), fields, uploads)
	if err != nil {
		respondServiceError(c, err, "failed to update post")
		return
	}

	message := "Blog with text only updated successfully."
	if result.Kind == service.WriteKindWithFiles {
		message = "Blog with files updated successfully."
	}
	c.JSON(http.StatusCreated, gin.H{"message": message, "kind": result.Kind, "post_id": result.Post.ID})
}

// DeletePost 删除文章及其附件
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := a.posts.Delete(c.Request.Context(), id, requesterID(c)); err != nil {
		respondServiceError(c, err, "failed to delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPost 按可见性规则返回单篇文章
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	var requester any
	if uid := requesterID(c); uid != 0 {
		requester = uid
	}

	post, visibility, err := a.posts.Read(c.Request.Context(), id, requester)
	if err != nil {
		respondServiceError(c, err, "failed to load post")
		return
	}
	c.JSON(http.StatusOK, a.renderer.View(post, visibility.IncludesFeedback()))
}

// AddReader 记录当前用户已阅读该文章
func (a *API) AddReader(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}

	added, err := a.posts.AddReader(c.Request.Context(), id, requesterID(c))
	if err != nil {
		respondServiceError(c, err, "An error occured while trying to add the reader id.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Reader id added successfully.", "added": added})
}

// decodeWritePayload reads the request body once into an untyped field map plus uploads.
func (a *API) decodeWritePayload(c *gin.Context) (map[string]any, []service.Upload, error) {
	contentType := c.ContentType()
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, err
		}
		return formValues(form.Value), formUploads(form.File), nil
	case contentType == "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return nil, nil, err
		}
		return formValues(c.Request.PostForm), nil, nil
	case contentType == "application/json", contentType == "":
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		raw := map[string]any{}
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return raw, nil, nil
			}
			return nil, nil, err
		}
		return raw, nil, nil
	}
	return nil, nil, errUnsupportedPayload
}

// formValues keeps single values as strings so JSON encoded lists can be detected.
func formValues(values map[string][]string) map[string]any {
	raw := make(map[string]any, len(values))
	for key, list := range values {
		switch len(list) {
		case 0:
		case 1:
			raw[key] = list[0]
		default:
			raw[key] = append([]string(nil), list...)
		}
	}
	return raw
}

func formUploads(files map[string][]*multipart.FileHeader) []service.Upload {
	uploads := make([]service.Upload, 0, len(files))
	for field, headers := range files {
		for _, header := range headers {
			fh := header
			uploads = append(uploads, service.Upload{
				Field:    field,
				Filename: fh.Filename,
				Size:     fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return uploads
}
