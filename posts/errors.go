package posts

import "errors"

var (
	ErrNotFound      = errors.New("post not found")
	ErrInvalidSlug   = errors.New("slug is required")
	ErrPageLoaded    = errors.New("listing already loaded")
	ErrForeignCursor = errors.New("cursor does not point at the content API")
)
