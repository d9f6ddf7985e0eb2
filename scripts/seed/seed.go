package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/blogzine/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 默认栏目
var defaultCategories = []string{"news", "culture", "travel", "science", "sport", "opinion"}

type seedOptions struct {
	Username   string
	Password   string
	IssueTitle string
	Sample     bool
}

type seedReport struct {
	User          *db.User
	Issue         db.Issue
	CategoryCount int64
	SamplePosts   int
}

// seed 初始化最小可用数据：作者账号、栏目和一期待出版期刊
func seed(gdb *gorm.DB, opts seedOptions, now time.Time) (*seedReport, error) {
	report := &seedReport{}

	user, err := db.EnsureUser(gdb, opts.Username, opts.Password)
	if err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	if user == nil {
		return nil, errors.New("seed user requires a username and password")
	}
	report.User = user

	categories := make([]db.Category, 0, len(defaultCategories))
	for _, name := range defaultCategories {
		categories = append(categories, db.Category{Name: name})
	}
	if err := gdb.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&categories).Error; err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	if err := gdb.Model(&db.Category{}).Count(&report.CategoryCount).Error; err != nil {
		return nil, err
	}

	err = gdb.Where("flag = ?", db.IssueFlagUpcoming).Order("id desc").First(&report.Issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		title := opts.IssueTitle
		if title == "" {
			title = fmt.Sprintf("Issue %s", now.Format("2006-01"))
		}
		report.Issue = db.Issue{Title: title, Flag: db.IssueFlagUpcoming}
		err = gdb.Create(&report.Issue).Error
	}
	if err != nil {
		return nil, fmt.Errorf("seed issue: %w", err)
	}

	if opts.Sample {
		count, err := seedSamplePosts(gdb, user.ID, now)
		if err != nil {
			return nil, err
		}
		report.SamplePosts = count
	}

	return report, nil
}

// seedSamplePosts 创建一期已发布期刊及其中的示例文章，已存在时跳过
func seedSamplePosts(gdb *gorm.DB, authorID uint, now time.Time) (int, error) {
	var existing int64
	if err := gdb.Model(&db.Post{}).Where("user_id = ?", authorID).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	samples := []struct {
		title    string
		content  string
		status   db.PostStatus
		keywords []string
	}{
		{"Night markets of the old town", "A walk through **three** night markets.\n\n- food\n- music", db.PostStatusApproved, []string{"travel", "food"}},
		{"Why the river changed course", "Sediment, floods and a *very* old map.", db.PostStatusApproved, []string{"science"}},
		{"Letters to the editor", "Readers wrote back.", db.PostStatusPending, nil},
	}

	created := 0
	err := gdb.Transaction(func(tx *gorm.DB) error {
		released := db.Issue{Title: "Sample issue", Flag: db.IssueFlagReleased, ReleasedAt: now}
		if err := tx.Create(&released).Error; err != nil {
			return err
		}

		var categoryIDs []uint
		if err := tx.Model(&db.Category{}).Order("id asc").Limit(2).Pluck("id", &categoryIDs).Error; err != nil {
			return err
		}

		for i, sample := range samples {
			post := db.Post{
				UserID:    authorID,
				IssueID:   &released.ID,
				Title:     sample.title,
				Content:   sample.content,
				Status:    sample.status,
				Keywords:  db.StringList(sample.keywords),
				ReaderIDs: db.StringList{},
				CreatedAt: now.Add(-time.Duration(len(samples)-i) * time.Hour),
			}
			if post.Keywords == nil {
				post.Keywords = db.StringList{}
			}
			if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
				return err
			}
			for _, categoryID := range categoryIDs {
				if err := tx.Create(&db.PostCategory{PostID: post.ID, CategoryID: categoryID}).Error; err != nil {
					return err
				}
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed sample posts: %w", err)
	}
	return created, nil
}
