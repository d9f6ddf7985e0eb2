package db

import (
	"time"
)

// PostStatus 是文章在审核流程中的唯一状态，取代原先的 is_draft/is_approved/is_rejected 组合。
type PostStatus string

const (
	PostStatusDraft    PostStatus = "draft"
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusRejected PostStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPending, PostStatusApproved, PostStatusRejected:
		return true
	}
	return false
}

// StringList is a []string persisted as a JSON column.
type StringList []string

// Post 定义了文章模型
type Post struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user"`
	User           User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	IssueID        *uint      `gorm:"index" json:"magazine"`
	Issue          *Issue     `json:"-"`
	Title          string     `gorm:"size:255" json:"title"`
	Content        string     `gorm:"type:text" json:"content"`
	Status         PostStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	RejectionCount int        `gorm:"default:0" json:"rejection_count"`
	ReaderIDs      StringList `gorm:"type:json;serializer:json" json:"reader_ids"`
	Readers        int        `gorm:"default:0" json:"readers"`
	Keywords       StringList `gorm:"type:json;serializer:json" json:"keywords"`
	Likes          int        `gorm:"default:0" json:"likes"`
	Comments       int        `gorm:"default:0" json:"comments"`
	CreatedAt      time.Time  `gorm:"index" json:"date_created"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false" json:"date_updated"`
	Categories     []Category `gorm:"many2many:post_categories;" json:"categories"`
	Files          []File     `gorm:"constraint:OnDelete:CASCADE" json:"files"`
	Feedbacks      []Feedback `gorm:"constraint:OnDelete:CASCADE" json:"feedbacks,omitempty"`
}

// IsDraft mirrors the legacy is_draft flag.
func (p *Post) IsDraft() bool { return p.Status == PostStatusDraft }

// IsApproved mirrors the legacy is_approved flag.
func (p *Post) IsApproved() bool { return p.Status == PostStatusApproved }

// IsRejected mirrors the legacy is_rejected flag.
func (p *Post) IsRejected() bool { return p.Status == PostStatusRejected }

// IsReady reports whether the post is waiting for review.
func (p *Post) IsReady() bool { return p.Status == PostStatusPending }

// CategoryIDs returns the ids of the preloaded categories.
func (p *Post) CategoryIDs() []uint {
	ids := make([]uint, 0, len(p.Categories))
	for _, category := range p.Categories {
		ids = append(ids, category.ID)
	}
	return ids
}

// HasReader reports whether readerID was already recorded.
func (p *Post) HasReader(readerID string) bool {
	for _, existing := range p.ReaderIDs {
		if existing == readerID {
			return true
		}
	}
	return false
}
