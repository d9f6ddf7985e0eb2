package db

import "gorm.io/gorm"

// Category 定义了文章分类模型，生命周期独立于文章
type Category struct {
	gorm.Model
	Name  string `gorm:"size:100;unique;not null" json:"name"`
	Posts []Post `gorm:"many2many:post_categories;" json:"-"`
}

// PostCategory is the explicit join row between posts and categories.
type PostCategory struct {
	PostID     uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
}

// TableName 与 many2many 声明保持一致
func (PostCategory) TableName() string {
	return "post_categories"
}
