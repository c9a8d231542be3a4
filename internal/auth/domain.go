package auth

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// TokenTypeBearer is the only token type issued by Login.
const TokenTypeBearer = "bearer"

// User represents a registered account. Email doubles as the username.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
}

// ActiveSession binds a user to an issued access token.
type ActiveSession struct {
	ID       int64
	UserID   int64
	Username string
	Token    string
	Expiry   *time.Time
}

// Identity is attached to authenticated requests. It is built from the
// stored session row, not from the presented token's claims.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Token is the result of a login attempt. AccessToken is empty when the
// credentials were rejected.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Issued reports whether the login produced an access token.
func (t Token) Issued() bool {
	return t.AccessToken != ""
}

// NormalizeUsername trims surrounding whitespace and applies Unicode NFC so
// visually identical emails map to the same account.
func NormalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}
