package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/blogzine/internal/db"
)

// RemovePlaceholder strips every literal occurrence of placeholder from body.
func RemovePlaceholder(body, placeholder string) string {
	if placeholder == "" {
		return body
	}
	return strings.ReplaceAll(body, placeholder, "")
}

// CountPlaceholder 返回 placeholder 在正文中出现的次数。
func CountPlaceholder(body, placeholder string) int {
	if placeholder == "" {
		return 0
	}
	return strings.Count(body, placeholder)
}

// ExpandPlaceholders swaps each file placeholder for markdown that displays the file.
// Images become markdown images, videos become an HTML video element.
func ExpandPlaceholders(body string, files []db.File) string {
	if body == "" || len(files) == 0 {
		return body
	}

	pairs := make([]string, 0, len(files)*2)
	for _, file := range files {
		if file.UID == "" || file.URL == "" {
			continue
		}
		pairs = append(pairs, file.UID, mediaMarkup(file))
	}
	if len(pairs) == 0 {
		return body
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

func mediaMarkup(file db.File) string {
	if file.Kind == db.FileKindVideo {
		return fmt.Sprintf("\n\n<video controls src=\"%s\"></video>\n\n", html.EscapeString(file.URL))
	}
	return fmt.Sprintf("![](%s)", file.URL)
}
