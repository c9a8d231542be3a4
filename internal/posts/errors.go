package posts

import (
	"fmt"

	"github.com/posts-project/posts/internal/platform/httpx"
)

var (
	// ErrNotFound indicates no post with the requested id.
	ErrNotFound = fmt.Errorf("post %w", httpx.ErrNotFound)
	// ErrValidation indicates a rejected post payload.
	ErrValidation = fmt.Errorf("post %w", httpx.ErrValidation)
)
