package db

import "gorm.io/gorm"

// Feedback 记录审核驳回时给作者的意见
type Feedback struct {
	gorm.Model
	PostID  uint   `gorm:"not null;index" json:"blog"`
	Content string `gorm:"type:text" json:"content"`
}
