package db

import (
	"time"

	"gorm.io/gorm"
)

// IssueFlag describes where an issue is in its release lifecycle.
type IssueFlag string

const (
	IssueFlagUpcoming IssueFlag = "upcoming"
	IssueFlagReleased IssueFlag = "released"
	IssueFlagArchived IssueFlag = "archived"
)

// Issue 定义了期刊模型，新文章会挂到当前 upcoming 的期刊上
type Issue struct {
	gorm.Model
	Title      string    `gorm:"size:255;not null" json:"title"`
	Flag       IssueFlag `gorm:"size:16;not null;index" json:"flag"`
	ReleasedAt time.Time `gorm:"index" json:"date_released"`
}
