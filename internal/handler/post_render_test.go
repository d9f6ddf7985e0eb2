package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/blogzine/internal/db"
)

func TestRenderContentEmbedsFiles(t *testing.T) {
	r := NewRenderer()
	files := []db.File{
		{ID: 1, UID: "11111111-1111-4111-8111-111111111111", URL: "/static/uploads/cover.png", Kind: db.FileKindImage},
		{ID: 2, UID: "22222222-2222-4222-8222-222222222222", URL: "/static/uploads/clip.mp4", Kind: db.FileKindVideo},
	}
	content := "# Title\n\n11111111-1111-4111-8111-111111111111\n\nbetween\n\n22222222-2222-4222-8222-222222222222\n\n<script>alert('x')</script>"

	html := r.RenderContent(content, files)

	for _, want := range []string{
		"<h1>Title</h1>",
		`src="/static/uploads/cover.png"`,
		`loading="lazy"`,
		`referrerpolicy="no-referrer"`,
		"<video",
		`src="/static/uploads/clip.mp4"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in rendered html %q", want, html)
		}
	}
	if strings.Contains(html, "<script") {
		t.Fatalf("script must be stripped, got %q", html)
	}
	if strings.Contains(html, "11111111-1111-4111-8111-111111111111") {
		t.Fatalf("placeholder must be replaced, got %q", html)
	}
}

func TestRenderContentEmpty(t *testing.T) {
	if got := NewRenderer().RenderContent("   ", nil); got != "" {
		t.Fatalf("expected empty html, got %q", got)
	}
}

func TestViewNeverNullSlices(t *testing.T) {
	now := time.Now()
	post := &db.Post{ID: 7, UserID: 3, Title: "t", Content: "c", Status: db.PostStatusPending, CreatedAt: now}

	view := NewRenderer().View(post, false)
	if view.Keywords == nil || view.ReaderIDs == nil || view.Categories == nil || view.Files == nil {
		t.Fatalf("list fields must be non-nil: %+v", view)
	}
	if !view.IsReady || view.IsApproved || view.IsDraft || view.IsRejected {
		t.Fatalf("unexpected status flags %+v", view)
	}
	if view.Feedbacks != nil {
		t.Fatalf("feedback must be omitted without the author view")
	}
}
