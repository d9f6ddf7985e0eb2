package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidLocation is returned when a URL does not belong to the store.
var ErrInvalidLocation = errors.New("storage location does not belong to this store")

// Store is an opaque blob store that hands back a public URL for every saved object.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalStore writes blobs below Dir and exposes them under URLPath.
type LocalStore struct {
	Dir     string
	URLPath string
	now     func() time.Time
}

// NewLocalStore creates a LocalStore; urlPath defaults to /static/uploads.
func NewLocalStore(dir, urlPath string) *LocalStore {
	urlPath = strings.TrimSpace(urlPath)
	if urlPath == "" {
		urlPath = "/static/uploads"
	}
	return &LocalStore{
		Dir:     dir,
		URLPath: "/" + strings.Trim(urlPath, "/"),
		now:     time.Now,
	}
}

// Save 以 日期-uuid+扩展名 的方式保存文件并返回访问 URL
func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s-%s%s", s.now().Format("20060102"), uuid.New().String(), ext)
	target := filepath.Join(s.Dir, name)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(target)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return path.Join(s.URLPath, name), nil
}

// Delete removes the blob behind url. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := s.URLPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return ErrInvalidLocation
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return ErrInvalidLocation
	}

	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
