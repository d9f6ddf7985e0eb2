package handler

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/blogzine/internal/db"
	"github.com/blogzine/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns a post body into sanitized HTML with its files embedded.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer 构建 markdown 渲染器与 UGC 过滤策略
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("controls", "src").OnElements("video")

	return &Renderer{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			// raw HTML is needed for embedded videos; bluemonday strips everything else.
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
		),
		policy: policy,
	}
}

// RenderContent expands placeholders, converts markdown and sanitizes the result.
func (r *Renderer) RenderContent(content string, files []db.File) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(service.ExpandPlaceholders(content, files)), &buf); err != nil {
		log.Warn().Err(err).Msg("failed to render markdown")
		return ""
	}
	return enhanceImages(r.policy.Sanitize(buf.String()))
}

// enhanceImages 为图片加上懒加载属性
func enhanceImages(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("loading", "lazy")
		s.SetAttr("referrerpolicy", "no-referrer")
	})

	out, err := doc.Find("body").Html()
	if err != nil || out == "" {
		return fragment
	}
	return out
}

// CategoryView is the embedded category summary of a post.
type CategoryView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// PostView is the JSON shape of a post returned to clients.
type PostView struct {
	ID             uint           `json:"id"`
	User           uint           `json:"user"`
	Magazine       *uint          `json:"magazine"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	ContentHTML    string         `json:"content_html"`
	Status         db.PostStatus  `json:"status"`
	IsDraft        bool           `json:"is_draft"`
	IsApproved     bool           `json:"is_approved"`
	IsRejected     bool           `json:"is_rejected"`
	IsReady        bool           `json:"is_ready"`
	RejectionCount int            `json:"rejection_count"`
	Readers        int            `json:"readers"`
	ReaderIDs      []string       `json:"reader_ids"`
	Keywords       []string       `json:"keywords"`
	Likes          int            `json:"likes"`
	Comments       int            `json:"comments"`
	Categories     []CategoryView `json:"categories"`
	Files          []db.File      `json:"files"`
	Feedbacks      []db.Feedback  `json:"feedbacks,omitempty"`
	DateCreated    time.Time      `json:"date_created"`
	DateUpdated    *time.Time     `json:"date_updated"`
}

// View builds the client view. Feedback is included only when withFeedback is set.
func (r *Renderer) View(post *db.Post, withFeedback bool) PostView {
	view := PostView{
		ID:             post.ID,
		User:           post.UserID,
		Magazine:       post.IssueID,
		Title:          post.Title,
		Content:        post.Content,
		ContentHTML:    r.RenderContent(post.Content, post.Files),
		Status:         post.Status,
		IsDraft:        post.IsDraft(),
		IsApproved:     post.IsApproved(),
		IsRejected:     post.IsRejected(),
		IsReady:        post.IsReady(),
		RejectionCount: post.RejectionCount,
		Readers:        post.Readers,
		ReaderIDs:      append([]string{}, post.ReaderIDs...),
		Keywords:       append([]string{}, post.Keywords...),
		Likes:          post.Likes,
		Comments:       post.Comments,
		Categories:     make([]CategoryView, 0, len(post.Categories)),
		Files:          append([]db.File{}, post.Files...),
		DateCreated:    post.CreatedAt,
		DateUpdated:    post.UpdatedAt,
	}
	for _, category := range post.Categories {
		view.Categories = append(view.Categories, CategoryView{ID: category.ID, Name: category.Name})
	}
	if withFeedback {
		view.Feedbacks = append([]db.Feedback{}, post.Feedbacks...)
	}
	return view
}

// Views renders a list of posts.
func (r *Renderer) Views(posts []db.Post, withFeedback bool) []PostView {
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, r.View(&posts[i], withFeedback))
	}
	return views
}
