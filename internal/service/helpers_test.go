package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blogzine/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

type fixture struct {
	db         *gorm.DB
	author     db.User
	other      db.User
	upcoming   db.Issue
	categories []db.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := setupServiceTestDB(t)
	f := &fixture{db: gdb}

	f.author = db.User{Username: "author", Password: "x"}
	f.other = db.User{Username: "someone-else", Password: "x"}
	for _, user := range []*db.User{&f.author, &f.other} {
		if err := gdb.Create(user).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	f.upcoming = db.Issue{Title: "Spring", Flag: db.IssueFlagUpcoming}
	if err := gdb.Create(&f.upcoming).Error; err != nil {
		t.Fatalf("create issue: %v", err)
	}

	for _, name := range []string{"news", "culture", "sport", "science"} {
		category := db.Category{Name: name}
		if err := gdb.Create(&category).Error; err != nil {
			t.Fatalf("create category: %v", err)
		}
		f.categories = append(f.categories, category)
	}
	return f
}

func (f *fixture) categoryID(i int) uint { return f.categories[i].ID }

func (f *fixture) linkedCategoryIDs(t *testing.T, postID uint) []uint {
	t.Helper()
	var ids []uint
	if err := f.db.Model(&db.PostCategory{}).Where("post_id = ?", postID).Order("category_id asc").Pluck("category_id", &ids).Error; err != nil {
		t.Fatalf("load links: %v", err)
	}
	return ids
}

func (f *fixture) setStatus(t *testing.T, postID uint, status db.PostStatus) {
	t.Helper()
	if err := f.db.Model(&db.Post{}).Where("id = ?", postID).Update("status", status).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

// memoryStore is an in-memory storage.Store.
type memoryStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	next    int
	failOn  int
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: map[string][]byte{}}
}

func (m *memoryStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	if m.failOn > 0 && m.next == m.failOn {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("/static/uploads/%d-%s", m.next, filename)
	m.blobs[url] = data
	return url, nil
}

func (m *memoryStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, url)
	m.deleted = append(m.deleted, url)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// mp4Bytes is a minimal ISO base media header that sniffs as video/mp4.
func mp4Bytes() []byte {
	header := []byte{0x00, 0x00, 0x00, 0x18}
	header = append(header, []byte("ftypmp42")...)
	header = append(header, 0x00, 0x00, 0x00, 0x00)
	header = append(header, []byte("mp42isom")...)
	return append(header, bytes.Repeat([]byte{0}, 64)...)
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func textFields(title, content string, categoryIDs ...uint) PostFields {
	return PostFields{
		Title:          strPtr(title),
		Content:        strPtr(content),
		CategoryIDs:    categoryIDs,
		HasCategoryIDs: true,
	}
}

func containsAll(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
