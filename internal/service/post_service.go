package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/blogzine/internal/db"
	"github.com/blogzine/internal/storage"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WriteKind classifies a successful create or update.
type WriteKind string

const (
	WriteKindText      WriteKind = "text"
	WriteKindWithFiles WriteKind = "with_files"
)

// WriteResult is returned by Create and Update.
type WriteResult struct {
	Post *db.Post
	Kind WriteKind
}

// PostService wraps post related database operations.
type PostService struct {
	db             *gorm.DB
	store          storage.Store
	maxUploadBytes int64
	now            func() time.Time
}

// NewPostService creates a PostService instance. maxUploadBytes <= 0 selects DefaultMaxUploadBytes.
func NewPostService(gdb *gorm.DB, store storage.Store, maxUploadBytes int64) *PostService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &PostService{db: gdb, store: store, maxUploadBytes: maxUploadBytes, now: time.Now}
}

// Create persists a new post with its category links and files in one transaction.
// The post is attached to the upcoming issue and waits for review unless it is a draft.
func (s *PostService) Create(ctx context.Context, authorID uint, fields PostFields, uploads []Upload) (*WriteResult, error) {
	if authorID == 0 {
		return nil, ErrForbidden
	}

	paired, err := pairUploads(uploads, fields.Placeholders, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if err := s.storeBlobs(ctx, paired); err != nil {
		return nil, err
	}

	now := s.now()
	post := db.Post{
		UserID:    authorID,
		Status:    db.PostStatusPending,
		CreatedAt: now,
		ReaderIDs: db.StringList{},
		Keywords:  db.StringList{},
	}
	if fields.Draft() {
		post.Status = db.PostStatusDraft
	}
	if fields.Title != nil {
		post.Title = *fields.Title
	}
	if fields.Content != nil {
		post.Content = *fields.Content
	}
	if fields.HasKeywords {
		post.Keywords = db.StringList(fields.Keywords)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, err := upcomingIssue(tx)
		if err != nil {
			return err
		}
		post.IssueID = &issue.ID

		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return err
		}
		if err := linkCategories(tx, post.ID, fields.CategoryIDs); err != nil {
			return err
		}
		return attachFiles(tx, &post, paired, now)
	})
	if err != nil {
		s.discardBlobs(paired)
		return nil, wrapPersistence("create post", err)
	}

	return s.writeResult(ctx, post.ID, paired)
}

// Update applies the present fields to a post owned by requesterID. Every update sends the
// post back to review (or keeps it a draft) and stamps updated_at.
func (s *PostService) Update(ctx context.Context, postID, requesterID uint, fields PostFields, uploads []Upload) (*WriteResult, error) {
	if _, err := s.ownedPost(ctx, postID, requesterID); err != nil {
		return nil, err
	}

	paired, err := pairUploads(uploads, fields.Placeholders, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if err := s.storeBlobs(ctx, paired); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		draft := post.IsDraft()
		if fields.IsDraft != nil {
			draft = *fields.IsDraft
		}
		if fields.Title != nil {
			post.Title = *fields.Title
		}
		if fields.Content != nil {
			post.Content = *fields.Content
		}
		if fields.HasKeywords {
			post.Keywords = db.StringList(fields.Keywords)
		}
		if !draft {
			if strings.TrimSpace(post.Title) == "" {
				return invalidField(FieldTitle, "this field is required")
			}
			if strings.TrimSpace(post.Content) == "" {
				return invalidField(FieldContent, "this field is required")
			}
			if !fields.HasCategoryIDs {
				var links int64
				if err := tx.Model(&db.PostCategory{}).Where("post_id = ?", post.ID).Count(&links).Error; err != nil {
					return err
				}
				if links == 0 {
					return invalidField(FieldCategoryIDs, "this field is required")
				}
			}
		}
		if fields.Content != nil {
			if err := checkAttachedPlaceholders(tx, &post); err != nil {
				return err
			}
		}

		post.Status = db.PostStatusPending
		if draft {
			post.Status = db.PostStatusDraft
		}
		post.UpdatedAt = &now

		if err := tx.Omit(clause.Associations).Save(&post).Error; err != nil {
			return err
		}

		if fields.HasCategoryIDs {
			if err := reconcileLinks(tx, post.ID, fields.CategoryIDs); err != nil {
				return err
			}
		}
		return attachFiles(tx, &post, paired, now)
	})
	if err != nil {
		s.discardBlobs(paired)
		return nil, wrapPersistence("update post", err)
	}

	return s.writeResult(ctx, postID, paired)
}

// Delete removes a post owned by requesterID together with links, files and feedback.
func (s *PostService) Delete(ctx context.Context, postID, requesterID uint) error {
	if _, err := s.ownedPost(ctx, postID, requesterID); err != nil {
		return err
	}

	var files []db.File
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&db.PostCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", postID).Delete(&db.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&db.File{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&db.Post{}, postID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
	if err != nil {
		return wrapPersistence("delete post", err)
	}

	for _, file := range files {
		s.deleteBlob(file.URL)
	}
	return nil
}

// DeleteFile removes one attachment and strips its placeholder from the post body.
// The post keeps its review status.
func (s *PostService) DeleteFile(ctx context.Context, fileID, requesterID uint) error {
	var file db.File
	if err := s.db.WithContext(ctx).First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return wrapPersistence("load file", err)
	}
	if _, err := s.ownedPost(ctx, file.PostID, requesterID); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, file.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFileNotFound
			}
			return err
		}

		content := RemovePlaceholder(post.Content, file.UID)
		if content != post.Content {
			if err := tx.Model(&db.Post{}).Where("id = ?", post.ID).Update("content", content).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&db.File{}, file.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrFileNotFound
		}
		return nil
	})
	if err != nil {
		return wrapPersistence("delete file", err)
	}

	s.deleteBlob(file.URL)
	return nil
}

// AddReader records that readerID viewed the post. It reports false when the reader was
// already recorded, in which case nothing changes.
func (s *PostService) AddReader(ctx context.Context, postID, readerID uint) (bool, error) {
	if readerID == 0 {
		return false, ErrForbidden
	}
	reader := strconv.FormatUint(uint64(readerID), 10)

	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post db.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.HasReader(reader) {
			return nil
		}

		post.ReaderIDs = append(post.ReaderIDs, reader)
		post.Readers++
		if err := tx.Model(&post).Select("reader_ids", "readers").Updates(&post).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, wrapPersistence("add reader", err)
	}
	return added, nil
}

// Get fetches a post with files and categories preloaded.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	err := s.db.WithContext(ctx).
		Preload("Files", func(q *gorm.DB) *gorm.DB { return q.Order("files.id asc") }).
		Preload("Categories", func(q *gorm.DB) *gorm.DB { return q.Order("categories.id asc") }).
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, wrapPersistence("load post", err)
	}
	return &post, nil
}

// Read returns the post as requester may see it. Feedback is loaded only for the owner
// of a rejected post.
func (s *PostService) Read(ctx context.Context, postID uint, requester any) (*db.Post, Visibility, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, VisibilityNotFound, err
	}

	visibility := DecideVisibility(requester, post)
	switch visibility {
	case VisibilityNotFound:
		return nil, visibility, ErrPostNotFound
	case VisibilityForbidden:
		return nil, visibility, ErrForbidden
	case VisibilityAuthorWithFeedback:
		if err := s.db.WithContext(ctx).
			Where("post_id = ?", post.ID).
			Order("created_at asc, id asc").
			Find(&post.Feedbacks).Error; err != nil {
			return nil, visibility, wrapPersistence("load feedback", err)
		}
	}
	return post, visibility, nil
}

func (s *PostService) ownedPost(ctx context.Context, postID, requesterID uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, wrapPersistence("load post", err)
	}
	if requesterID == 0 || post.UserID != requesterID {
		return nil, ErrForbidden
	}
	return &post, nil
}

func (s *PostService) writeResult(ctx context.Context, postID uint, paired []*inspectedUpload) (*WriteResult, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	kind := WriteKindText
	if len(paired) > 0 {
		kind = WriteKindWithFiles
	}
	return &WriteResult{Post: post, Kind: kind}, nil
}

func (s *PostService) storeBlobs(ctx context.Context, paired []*inspectedUpload) error {
	if len(paired) == 0 {
		return nil
	}
	if s.store == nil {
		return &PersistenceError{Op: "store upload", Err: errors.New("no blob store configured")}
	}
	for i, upload := range paired {
		rc, err := upload.Open()
		if err != nil {
			s.discardBlobs(paired[:i])
			return &PersistenceError{Op: "store upload", Err: err}
		}
		url, err := s.store.Save(ctx, upload.Filename, rc)
		rc.Close()
		if err != nil {
			s.discardBlobs(paired[:i])
			return &PersistenceError{Op: "store upload", Err: err}
		}
		upload.URL = url
	}
	return nil
}

func (s *PostService) discardBlobs(paired []*inspectedUpload) {
	for _, upload := range paired {
		if upload.URL != "" {
			s.deleteBlob(upload.URL)
		}
	}
}

func (s *PostService) deleteBlob(url string) {
	if s.store == nil || url == "" {
		return
	}
	if err := s.store.Delete(context.Background(), url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to remove stored upload")
	}
}

// upcomingIssue resolves the issue new posts are attached to.
func upcomingIssue(tx *gorm.DB) (*db.Issue, error) {
	var issue db.Issue
	err := tx.Where("flag = ?", db.IssueFlagUpcoming).
		Order("released_at desc").
		Order("id desc").
		First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoUpcomingIssue
		}
		return nil, err
	}
	return &issue, nil
}

func linkCategories(tx *gorm.DB, postID uint, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&db.Category{}).Where("id IN ?", categoryIDs).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(categoryIDs) {
		return ErrCategoryNotFound
	}

	links := make([]db.PostCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, db.PostCategory{PostID: postID, CategoryID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func reconcileLinks(tx *gorm.DB, postID uint, requested []uint) error {
	var current []uint
	if err := tx.Model(&db.PostCategory{}).Where("post_id = ?", postID).Pluck("category_id", &current).Error; err != nil {
		return err
	}

	toAdd, toRemove := ReconcileCategories(current, requested)
	if len(toRemove) > 0 {
		if err := tx.Where("post_id = ? AND category_id IN ?", postID, toRemove).Delete(&db.PostCategory{}).Error; err != nil {
			return err
		}
	}
	return linkCategories(tx, postID, toAdd)
}

// attachFiles persists one File per paired upload after checking that each placeholder is
// new and appears at most once in the final body.
// checkAttachedPlaceholders rejects a body that repeats the placeholder of an attached file.
func checkAttachedPlaceholders(tx *gorm.DB, post *db.Post) error {
	var uids []string
	if err := tx.Model(&db.File{}).Where("post_id = ?", post.ID).Pluck("uid", &uids).Error; err != nil {
		return err
	}
	for _, uid := range uids {
		if CountPlaceholder(post.Content, uid) > 1 {
			return invalidField(FieldContent, "placeholder "+uid+" occurs more than once in content")
		}
	}
	return nil
}

func attachFiles(tx *gorm.DB, post *db.Post, paired []*inspectedUpload, now time.Time) error {
	if len(paired) == 0 {
		return nil
	}

	uids := make([]string, 0, len(paired))
	for _, upload := range paired {
		if CountPlaceholder(post.Content, upload.UID) > 1 {
			return invalidField(FieldFilePlaceholders, "placeholder "+upload.UID+" occurs more than once in content")
		}
		uids = append(uids, upload.UID)
	}

	var used int64
	if err := tx.Model(&db.File{}).Where("uid IN ?", uids).Count(&used).Error; err != nil {
		return err
	}
	if used > 0 {
		return invalidField(FieldFilePlaceholders, "placeholder is already attached to another file")
	}

	files := make([]db.File, 0, len(paired))
	for _, upload := range paired {
		files = append(files, db.File{
			PostID:      post.ID,
			UID:         upload.UID,
			URL:         upload.URL,
			ContentType: upload.ContentType,
			Kind:        upload.Kind,
			Size:        upload.Size,
			Width:       upload.Width,
			Height:      upload.Height,
			CreatedAt:   now,
		})
	}
	return tx.Create(&files).Error
}
