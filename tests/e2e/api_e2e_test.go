package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/blogzine/internal/db"
	"github.com/blogzine/internal/handler"
	"github.com/blogzine/internal/router"
	"github.com/blogzine/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const coverUID = "0b9d3f1e-7c2a-4e5b-9f6d-1a2b3c4d5e6f"

type e2eSuite struct {
	handler   http.Handler
	gdb       *gorm.DB
	public    httpClient
	author    httpClient
	baseURL   string
	uploadDir string
	user      *db.User
	upcoming  db.Issue
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	s := &e2eSuite{gdb: gdb, baseURL: "http://blogzine.test", uploadDir: t.TempDir()}

	if s.user, err = db.EnsureUser(gdb, "editor", "s3cret-pass"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	s.upcoming = db.Issue{Title: "Spring", Flag: db.IssueFlagUpcoming}
	if err := gdb.Create(&s.upcoming).Error; err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	for _, name := range []string{"news", "culture", "travel"} {
		if err := gdb.Create(&db.Category{Name: name}).Error; err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	api := handler.NewAPI(gdb, storage.NewLocalStore(s.uploadDir, "/static/uploads"), handler.Options{
		JWTSecret:    "e2e-secret",
		FeedPageSize: 2,
	})
	s.handler = router.SetupRouter(api, router.Options{
		SessionSecret: "e2e-session",
		UploadDir:     s.uploadDir,
		UploadURLPath: "/static/uploads",
	})
	s.public = newLocalClient(s.handler, false)
	s.author = newLocalClient(s.handler, true)
	return s
}

func (s *e2eSuite) request(t *testing.T, client httpClient, method, path string, body io.Reader, contentType string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (s *e2eSuite) jsonRequest(t *testing.T, client httpClient, method, path string, payload any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	status, body := s.request(t, client, method, path, bytes.NewReader(data), "application/json")
	return status, decodeObject(t, body)
}

func decodeObject(t *testing.T, body []byte) map[string]any {
	t.Helper()
	if len(body) == 0 {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %q: %v", string(body), err)
	}
	return out
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()
	form := url.Values{"username": {"editor"}, "password": {"s3cret-pass"}}
	status, body := s.request(t, s.author, http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if status != http.StatusOK {
		t.Fatalf("login failed: %d %s", status, string(body))
	}
	if token, _ := decodeObject(t, body)["token"].(string); token == "" {
		t.Fatalf("login response lacks token: %s", string(body))
	}
}

func (s *e2eSuite) setStatus(t *testing.T, postID uint, status db.PostStatus) {
	t.Helper()
	if err := s.gdb.Model(&db.Post{}).Where("id = ?", postID).Update("status", status).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func (s *e2eSuite) releaseUpcoming(t *testing.T) {
	t.Helper()
	if err := s.gdb.Model(&db.Issue{}).Where("id = ?", s.upcoming.ID).
		Updates(map[string]any{"flag": db.IssueFlagReleased, "released_at": time.Now()}).Error; err != nil {
		t.Fatalf("release issue: %v", err)
	}
}

func coverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartPost(t *testing.T, fields map[string]string, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestAuthorLifecycle(t *testing.T) {
	s := newE2ESuite(t)

	if status, _ := s.jsonRequest(t, s.author, http.MethodPost, "/api/posts", map[string]any{"title": "x"}); status != http.StatusUnauthorized {
		t.Fatalf("write before login: expected 401, got %d", status)
	}
	s.login(t)

	body, contentType := multipartPost(t, map[string]string{
		"title":             "Harbour at dawn",
		"content":           "Fishing boats.\n\n" + coverUID + "\n\n<script>alert(1)</script>",
		"category_ids":      `["1","2"]`,
		"keywords":          `["harbour","photo"]`,
		"file_placeholders": `[{"cover":"` + coverUID + `"}]`,
	}, "cover", "cover.png", coverPNG(t))
	status, raw := s.request(t, s.author, http.MethodPost, "/api/posts", body, contentType)
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", status, string(raw))
	}
	created := decodeObject(t, raw)
	if created["kind"] != "with_files" {
		t.Fatalf("unexpected create response %v", created)
	}
	postID := uint(created["post_id"].(float64))
	postPath := fmt.Sprintf("/api/posts/%d", postID)

	if status, _ := s.request(t, s.public, http.MethodGet, postPath, nil, ""); status != http.StatusForbidden {
		t.Fatalf("public read of pending post: expected 403, got %d", status)
	}

	status, raw = s.request(t, s.author, http.MethodGet, postPath, nil, "")
	if status != http.StatusOK {
		t.Fatalf("author read: expected 200, got %d", status)
	}
	view := decodeObject(t, raw)
	files := view["files"].([]any)
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	file := files[0].(map[string]any)
	fileURL := file["url"].(string)
	html := view["content_html"].(string)
	if !strings.Contains(html, fileURL) || strings.Contains(html, "<script") {
		t.Fatalf("unexpected rendered content %q", html)
	}
	if file["width"].(float64) != 4 || file["height"].(float64) != 3 {
		t.Fatalf("expected image dimensions 4x3, got %v", file)
	}

	if status, _ := s.request(t, s.public, http.MethodGet, fileURL, nil, ""); status != http.StatusOK {
		t.Fatalf("stored upload should be served at %s, got %d", fileURL, status)
	}

	status, updated := s.jsonRequest(t, s.author, http.MethodPut, postPath, map[string]any{
		"content":      "Fishing boats at first light.",
		"category_ids": []string{"2", "3"},
	})
	if status != http.StatusCreated || updated["kind"] != "text" {
		t.Fatalf("update: unexpected %d %v", status, updated)
	}

	s.setStatus(t, postID, db.PostStatusApproved)
	s.releaseUpcoming(t)

	status, raw = s.request(t, s.public, http.MethodGet, "/api/feed", nil, "")
	if status != http.StatusOK {
		t.Fatalf("feed: expected 200, got %d", status)
	}
	feed := decodeObject(t, raw)
	if feed["count"].(float64) != 1 || feed["per_page"].(float64) != 2 {
		t.Fatalf("unexpected feed %v", feed)
	}
	entry := feed["results"].([]any)[0].(map[string]any)
	categories := entry["categories"].([]any)
	if len(categories) != 2 || categories[0].(map[string]any)["name"] != "culture" {
		t.Fatalf("expected reconciled categories [culture travel], got %v", categories)
	}

	readerClient := newLocalClient(s.handler, true)
	if status, _ := s.request(t, readerClient, http.MethodPost, postPath+"/readers", nil, ""); status != http.StatusUnauthorized {
		t.Fatalf("anonymous reader add: expected 401, got %d", status)
	}
	if status, _ := s.request(t, s.author, http.MethodPost, postPath+"/readers", nil, ""); status != http.StatusCreated {
		t.Fatalf("reader add: expected 201, got %d", status)
	}

	fileID := uint(file["id"].(float64))
	if status, _ := s.request(t, s.author, http.MethodDelete, fmt.Sprintf("/api/files/%d", fileID), nil, ""); status != http.StatusNoContent {
		t.Fatalf("delete file: expected 204, got %d", status)
	}

	if status, _ := s.request(t, s.author, http.MethodDelete, postPath, nil, ""); status != http.StatusNoContent {
		t.Fatalf("delete post: expected 204, got %d", status)
	}
	if status, _ := s.request(t, s.public, http.MethodGet, postPath, nil, ""); status != http.StatusNotFound {
		t.Fatalf("deleted post: expected 404, got %d", status)
	}

	if status, _ := s.request(t, s.author, http.MethodPost, "/api/auth/logout", nil, ""); status != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", status)
	}
	if status, _ := s.request(t, s.author, http.MethodGet, "/api/me/drafts", nil, ""); status != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", status)
	}
}

func TestDraftsAndRejections(t *testing.T) {
	s := newE2ESuite(t)
	s.login(t)

	status, draft := s.jsonRequest(t, s.author, http.MethodPost, "/api/posts", map[string]any{"is_draft": true, "title": "Half a thought"})
	if status != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d %v", status, draft)
	}

	status, raw := s.request(t, s.author, http.MethodGet, "/api/me/drafts", nil, "")
	if status != http.StatusOK || decodeObject(t, raw)["count"].(float64) != 1 {
		t.Fatalf("drafts feed: unexpected %d %s", status, string(raw))
	}

	status, published := s.jsonRequest(t, s.author, http.MethodPost, "/api/posts", map[string]any{
		"title":        "Complete",
		"content":      "Done.",
		"category_ids": []int{1},
	})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %v", status, published)
	}
	postID := uint(published["post_id"].(float64))
	s.setStatus(t, postID, db.PostStatusRejected)
	if err := s.gdb.Create(&db.Feedback{PostID: postID, Content: "cite your sources"}).Error; err != nil {
		t.Fatalf("create feedback: %v", err)
	}

	status, raw = s.request(t, s.author, http.MethodGet, "/api/me/rejected", nil, "")
	if status != http.StatusOK {
		t.Fatalf("rejected feed: expected 200, got %d", status)
	}
	rejected := decodeObject(t, raw)["results"].([]any)
	if len(rejected) != 1 {
		t.Fatalf("expected one rejected post, got %v", rejected)
	}
	feedbacks := rejected[0].(map[string]any)["feedbacks"].([]any)
	if len(feedbacks) != 1 || feedbacks[0].(map[string]any)["content"] != "cite your sources" {
		t.Fatalf("expected feedback on rejected feed, got %v", feedbacks)
	}

	status, body := s.jsonRequest(t, s.author, http.MethodPost, "/api/posts", map[string]any{"title": "", "content": "x", "category_ids": []int{1}})
	if status != http.StatusBadRequest || body["field"] != "title" {
		t.Fatalf("missing title: expected 400 on title, got %d %v", status, body)
	}
}
