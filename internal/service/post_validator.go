package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationMode selects which fields are mandatory.
type ValidationMode int

const (
	// ValidateCreate requires title, content and category_ids unless the post is a draft.
	ValidateCreate ValidationMode = iota
	// ValidateUpdate treats every field as optional.
	ValidateUpdate
)

const maxTitleLength = 255

// 写入请求中出现的字段名
const (
	FieldTitle            = "title"
	FieldContent          = "content"
	FieldIsDraft          = "is_draft"
	FieldKeywords         = "keywords"
	FieldCategoryIDs      = "category_ids"
	FieldDateCreated      = "date_created"
	FieldFilePlaceholders = "file_placeholders"
)

const invalidJSONList = "must be a valid JSON list string"

// PostFields is the typed result of validating one write payload.
// Nil pointers and false Has* flags mean the field was absent.
type PostFields struct {
	Title          *string
	Content        *string
	IsDraft        *bool
	Keywords       []string
	HasKeywords    bool
	CategoryIDs    []uint
	HasCategoryIDs bool
	// DateCreated is accepted for compatibility; the writer always stamps its own time.
	DateCreated *time.Time
	// Placeholders maps an upload field name to the placeholder uid it fills.
	Placeholders    map[string]string
	HasPlaceholders bool
}

// Draft reports whether the payload marks the post as a draft.
func (f PostFields) Draft() bool {
	return f.IsDraft != nil && *f.IsDraft
}

// ValidatePostFields normalizes an untyped payload. The first invalid field stops processing.
func ValidatePostFields(raw map[string]any, mode ValidationMode) (PostFields, error) {
	var fields PostFields

	if value, ok := raw[FieldIsDraft]; ok {
		draft, err := parseBoolField(FieldIsDraft, value)
		if err != nil {
			return PostFields{}, err
		}
		fields.IsDraft = &draft
	}

	if value, ok := raw[FieldTitle]; ok {
		title, err := stringField(FieldTitle, value)
		if err != nil {
			return PostFields{}, err
		}
		title = strings.TrimSpace(title)
		if utf8.RuneCountInString(title) > maxTitleLength {
			return PostFields{}, invalidField(FieldTitle, "must be at most 255 characters")
		}
		fields.Title = &title
	}

	if value, ok := raw[FieldContent]; ok {
		content, err := stringField(FieldContent, value)
		if err != nil {
			return PostFields{}, err
		}
		fields.Content = &content
	}

	if value, ok := raw[FieldKeywords]; ok {
		items, err := decodeListField(FieldKeywords, value)
		if err != nil {
			return PostFields{}, err
		}
		keywords, err := parseKeywords(items)
		if err != nil {
			return PostFields{}, err
		}
		fields.Keywords = keywords
		fields.HasKeywords = true
	}

	if value, ok := raw[FieldCategoryIDs]; ok {
		items, err := decodeListField(FieldCategoryIDs, value)
		if err != nil {
			return PostFields{}, err
		}
		ids, err := parseCategoryIDs(items)
		if err != nil {
			return PostFields{}, err
		}
		fields.CategoryIDs = ids
		fields.HasCategoryIDs = true
	}

	if value, ok := raw[FieldDateCreated]; ok {
		created, err := parseTimeField(FieldDateCreated, value)
		if err != nil {
			return PostFields{}, err
		}
		fields.DateCreated = created
	}

	if value, ok := raw[FieldFilePlaceholders]; ok {
		items, err := decodeListField(FieldFilePlaceholders, value)
		if err != nil {
			return PostFields{}, err
		}
		placeholders, err := parsePlaceholders(items)
		if err != nil {
			return PostFields{}, err
		}
		fields.Placeholders = placeholders
		fields.HasPlaceholders = true
	}

	if mode == ValidateCreate && !fields.Draft() {
		if fields.Title == nil || *fields.Title == "" {
			return PostFields{}, invalidField(FieldTitle, "this field is required")
		}
		if fields.Content == nil || strings.TrimSpace(*fields.Content) == "" {
			return PostFields{}, invalidField(FieldContent, "this field is required")
		}
		if !fields.HasCategoryIDs {
			return PostFields{}, invalidField(FieldCategoryIDs, "this field is required")
		}
	}

	return fields, nil
}

// stringField accepts a string or a single-valued form field.
func stringField(field string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []string:
		if len(v) == 1 {
			return v[0], nil
		}
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
		}
	case nil:
		return "", nil
	}
	return "", invalidField(field, "must be a string")
}

func parseBoolField(field string, value any) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	s, err := stringField(field, value)
	if err != nil {
		return false, invalidField(field, "must be a boolean")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off", "":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, invalidField(field, "must be a boolean")
	}
	return b, nil
}

func parseTimeField(field string, value any) (*time.Time, error) {
	s, err := stringField(field, value)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, invalidField(field, "must be an RFC3339 timestamp")
}

// decodeListField returns the elements of a native list, or of a JSON array held in a string.
func decodeListField(field string, value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case []string:
		if len(v) == 1 && looksLikeJSONList(v[0]) {
			return decodeJSONList(field, v[0])
		}
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}, nil
		}
		return decodeJSONList(field, v)
	case []uint, []int, []map[string]any, []map[string]string:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, invalidField(field, invalidJSONList)
		}
		return decodeJSONList(field, string(data))
	}
	return nil, invalidField(field, invalidJSONList)
}

func looksLikeJSONList(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "[")
}

func decodeJSONList(field, s string) ([]any, error) {
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()
	var items []any
	if err := decoder.Decode(&items); err != nil {
		return nil, invalidField(field, invalidJSONList)
	}
	if decoder.More() {
		return nil, invalidField(field, invalidJSONList)
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

func parseKeywords(items []any) ([]string, error) {
	keywords := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalidField(FieldKeywords, "must contain only strings")
		}
		keywords = append(keywords, s)
	}
	return keywords, nil
}

func parseCategoryIDs(items []any) ([]uint, error) {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]struct{}, len(items))
	for _, item := range items {
		id, ok := positiveID(item)
		if !ok {
			return nil, invalidField(FieldCategoryIDs, "must contain positive integer ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePlaceholders(items []any) (map[string]string, error) {
	placeholders := make(map[string]string, len(items))
	used := make(map[string]struct{}, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, invalidField(FieldFilePlaceholders, "entries must be objects mapping an upload field to a placeholder")
		}
		for key, value := range entry {
			uid, ok := value.(string)
			if !ok || strings.TrimSpace(key) == "" {
				return nil, invalidField(FieldFilePlaceholders, "entries must be objects mapping an upload field to a placeholder")
			}
			parsed, err := uuid.Parse(uid)
			if err != nil || parsed.String() != uid {
				return nil, invalidField(FieldFilePlaceholders, "placeholder "+strconv.Quote(uid)+" is not a lowercase UUID")
			}
			if _, dup := placeholders[key]; dup {
				return nil, invalidField(FieldFilePlaceholders, "upload "+strconv.Quote(key)+" is listed more than once")
			}
			if _, dup := used[uid]; dup {
				return nil, invalidField(FieldFilePlaceholders, "placeholder "+strconv.Quote(uid)+" is listed more than once")
			}
			placeholders[key] = uid
			used[uid] = struct{}{}
		}
	}
	return placeholders, nil
}

// positiveID accepts decimal strings and integral numbers greater than zero.
func positiveID(value any) (uint, bool) {
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || n == 0 {
			return 0, false
		}
		return uint(n), true
	case json.Number:
		return positiveID(v.String())
	case float64:
		if v <= 0 || v != math.Trunc(v) || v > math.MaxUint32 {
			return 0, false
		}
		return uint(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint:
		return v, v > 0
	case uint64:
		return uint(v), v > 0
	}
	return 0, false
}
