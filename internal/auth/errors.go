package auth

import (
	"errors"
	"fmt"

	"github.com/posts-project/posts/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates a rejected username/password pair.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrInvalidToken indicates a token with a bad signature, bad format or missing claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized indicates the presented token cannot authenticate a request.
	ErrUnauthorized = fmt.Errorf("authentication failed: %w", httpx.ErrUnauthorized)
	// ErrSessionExpired indicates a correctly signed token past its expiry.
	ErrSessionExpired = fmt.Errorf("session expired: %w", httpx.ErrUnauthorized)
	// ErrSessionNotFound indicates no stored session backs the token.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", httpx.ErrForbidden)
	// ErrUserNotFound indicates no user with the requested email.
	ErrUserNotFound = fmt.Errorf("user %w", httpx.ErrNotFound)
	// ErrUserExists indicates the email is already registered.
	ErrUserExists = fmt.Errorf("user already exists: %w", httpx.ErrDuplicate)
)
