package service

import (
	"github.com/blogzine/internal/db"
)

// Visibility is the read decision for one requester and one post.
type Visibility int

const (
	VisibilityNotFound Visibility = iota
	VisibilityForbidden
	VisibilityPublic
	VisibilityAuthor
	VisibilityAuthorWithFeedback
)

func (v Visibility) String() string {
	switch v {
	case VisibilityForbidden:
		return "forbidden"
	case VisibilityPublic:
		return "public"
	case VisibilityAuthor:
		return "author"
	case VisibilityAuthorWithFeedback:
		return "author_with_feedback"
	}
	return "not_found"
}

// Allowed reports whether the post may be returned at all.
func (v Visibility) Allowed() bool {
	return v == VisibilityPublic || v == VisibilityAuthor || v == VisibilityAuthorWithFeedback
}

// IncludesFeedback reports whether rejection feedback belongs in the view.
func (v Visibility) IncludesFeedback() bool {
	return v == VisibilityAuthorWithFeedback
}

// DecideVisibility applies the read rules in order: a missing post is not found, the owner
// always sees it (with feedback once rejected), everyone else only sees approved posts.
// requester may be nil for anonymous reads.
func DecideVisibility(requester any, post *db.Post) Visibility {
	if post == nil || post.ID == 0 {
		return VisibilityNotFound
	}

	if id, ok := NormalizeIdentity(requester); ok && id == post.UserID {
		if post.IsRejected() {
			return VisibilityAuthorWithFeedback
		}
		return VisibilityAuthor
	}

	if post.IsApproved() {
		return VisibilityPublic
	}
	return VisibilityForbidden
}

// NormalizeIdentity maps string and numeric representations of a user id onto one value.
// Zero, negative, fractional and unparsable ids are not identities.
func NormalizeIdentity(v any) (uint, bool) {
	switch id := v.(type) {
	case nil:
		return 0, false
	case int32:
		return positiveID(int64(id))
	case uint32:
		return positiveID(uint64(id))
	case *uint:
		if id == nil {
			return 0, false
		}
		return positiveID(*id)
	}
	return positiveID(v)
}
