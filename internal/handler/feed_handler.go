package handler

import (
	"net/http"

	"github.com/blogzine/internal/service"
	"github.com/gin-gonic/gin"
)

// ListCurrentFeed 返回最新一期已发布期刊中的文章
func (a *API) ListCurrentFeed(c *gin.Context) {
	a.respondFeed(c, service.FeedQuery{Kind: service.FeedCurrent})
}

// ListIssuePosts returns approved posts of one issue.
func (a *API) ListIssuePosts(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid issue id")
		return
	}
	a.respondFeed(c, service.FeedQuery{Kind: service.FeedArchived, IssueID: id})
}

// ListAuthorPosts returns approved posts of one author.
func (a *API) ListAuthorPosts(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid author id")
		return
	}
	a.respondFeed(c, service.FeedQuery{Kind: service.FeedAuthor, AuthorID: id})
}

// ListMyRejected returns the requester's rejected posts with feedback.
func (a *API) ListMyRejected(c *gin.Context) {
	a.respondFeed(c, service.FeedQuery{Kind: service.FeedRejected, AuthorID: requesterID(c)})
}

// ListMyDrafts returns the requester's drafts.
func (a *API) ListMyDrafts(c *gin.Context) {
	a.respondFeed(c, service.FeedQuery{Kind: service.FeedDrafts, AuthorID: requesterID(c)})
}

func (a *API) respondFeed(c *gin.Context, query service.FeedQuery) {
	query.Page = parsePageQuery(c)

	result, err := a.feeds.List(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err, "failed to list posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
		"results":     a.renderer.Views(result.Posts, query.Kind == service.FeedRejected),
	})
}
