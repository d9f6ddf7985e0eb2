package service

import (
	"context"
	"errors"

	"github.com/blogzine/internal/db"
	"gorm.io/gorm"
)

// DefaultFeedPageSize is used when no page size is configured.
const DefaultFeedPageSize = 10

// FeedKind names one of the listing feeds.
type FeedKind string

const (
	// FeedCurrent lists approved posts of the most recently released issue.
	FeedCurrent FeedKind = "current"
	// FeedArchived lists approved posts of one issue.
	FeedArchived FeedKind = "archived"
	// FeedAuthor lists approved posts of one author.
	FeedAuthor FeedKind = "author"
	// FeedRejected lists the requester's rejected posts with feedback.
	FeedRejected FeedKind = "rejected"
	// FeedDrafts lists the requester's drafts.
	FeedDrafts FeedKind = "drafts"
)

// FeedQuery selects a feed and page. IssueID is required for FeedArchived, AuthorID for
// FeedAuthor, FeedRejected and FeedDrafts.
type FeedQuery struct {
	Kind     FeedKind
	IssueID  uint
	AuthorID uint
	Page     int
}

// FeedResult aggregates one page of a feed.
type FeedResult struct {
	Posts      []db.Post
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// FeedService builds the paginated read feeds.
type FeedService struct {
	db       *gorm.DB
	pageSize int
}

// NewFeedService creates a FeedService. pageSize <= 0 selects DefaultFeedPageSize.
func NewFeedService(gdb *gorm.DB, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = DefaultFeedPageSize
	}
	return &FeedService{db: gdb, pageSize: pageSize}
}

// PageSize returns the fixed number of posts per page.
func (s *FeedService) PageSize() int { return s.pageSize }

// List returns one page of the requested feed ordered by creation time, newest first.
func (s *FeedService) List(ctx context.Context, query FeedQuery) (*FeedResult, error) {
	result := &FeedResult{
		Posts:   []db.Post{},
		Page:    normalizePage(query.Page),
		PerPage: s.pageSize,
	}

	scope, err := s.scope(ctx, query)
	if err != nil {
		return nil, err
	}
	if scope == nil {
		result.TotalPages = calculateTotalPages(0, result.PerPage)
		return result, nil
	}

	if err := s.db.WithContext(ctx).Model(&db.Post{}).Scopes(scope).Count(&result.Total).Error; err != nil {
		return nil, wrapPersistence("count feed", err)
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	if result.Page > result.TotalPages {
		return result, nil
	}

	dataQuery := s.db.WithContext(ctx).Model(&db.Post{}).
		Scopes(scope).
		Preload("Files", func(q *gorm.DB) *gorm.DB { return q.Order("files.id asc") }).
		Preload("Categories", func(q *gorm.DB) *gorm.DB { return q.Order("categories.id asc") })
	if query.Kind == FeedRejected {
		dataQuery = dataQuery.Preload("Feedbacks", func(q *gorm.DB) *gorm.DB {
			return q.Order("feedbacks.created_at asc, feedbacks.id asc")
		})
	}

	offset := (result.Page - 1) * result.PerPage
	if err := dataQuery.
		Order("posts.created_at desc, posts.id desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Posts).Error; err != nil {
		return nil, wrapPersistence("list feed", err)
	}

	return result, nil
}

// scope returns nil when the feed is known to be empty.
func (s *FeedService) scope(ctx context.Context, query FeedQuery) (func(*gorm.DB) *gorm.DB, error) {
	switch query.Kind {
	case FeedCurrent, "":
		var issue db.Issue
		err := s.db.WithContext(ctx).
			Where("flag = ?", db.IssueFlagReleased).
			Order("released_at desc").
			Order("id desc").
			First(&issue).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, wrapPersistence("load released issue", err)
		}
		return statusScope(db.PostStatusApproved, "posts.issue_id = ?", issue.ID), nil
	case FeedArchived:
		if query.IssueID == 0 {
			return nil, ErrMissingFilter
		}
		return statusScope(db.PostStatusApproved, "posts.issue_id = ?", query.IssueID), nil
	case FeedAuthor:
		if query.AuthorID == 0 {
			return nil, ErrMissingFilter
		}
		return statusScope(db.PostStatusApproved, "posts.user_id = ?", query.AuthorID), nil
	case FeedRejected:
		if query.AuthorID == 0 {
			return nil, ErrMissingFilter
		}
		return statusScope(db.PostStatusRejected, "posts.user_id = ?", query.AuthorID), nil
	case FeedDrafts:
		if query.AuthorID == 0 {
			return nil, ErrMissingFilter
		}
		return statusScope(db.PostStatusDraft, "posts.user_id = ?", query.AuthorID), nil
	}
	return nil, ErrMissingFilter
}

func statusScope(status db.PostStatus, cond string, arg uint) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("posts.status = ?", status).Where(cond, arg)
	}
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func calculateTotalPages(total int64, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
