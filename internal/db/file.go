package db

import "time"

// FileKind distinguishes the media embedded in a post.
type FileKind string

const (
	FileKindImage FileKind = "image"
	FileKindVideo FileKind = "video"
)

// File 是文章中的附件，UID 会以占位符形式原样嵌入正文。
type File struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"blog"`
	UID         string    `gorm:"size:36;uniqueIndex;not null" json:"uid"`
	URL         string    `gorm:"size:512;not null" json:"url"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Kind        FileKind  `gorm:"size:16" json:"kind"`
	Size        int64     `json:"size"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
