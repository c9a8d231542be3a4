package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the lifetime of an issued access token.
const DefaultTokenTTL = 30 * time.Minute

// ServiceConfig tunes the auth service.
type ServiceConfig struct {
	TokenTTL   time.Duration
	BcryptCost int
	// StrictSessionMatch makes Authenticate require a session row holding
	// the exact presented token instead of any session for its subject.
	StrictSessionMatch bool
}

// Service wraps authentication business rules: login, request
// authentication and session lifecycle.
type Service struct {
	repo    Repository
	codec   *Codec
	cfg     ServiceConfig
	logger  *slog.Logger
	metrics *Metrics
	now     Clock
	// dummyHash is compared against on unknown usernames so both rejection
	// paths pay for one bcrypt comparison.
	dummyHash []byte
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source used for expiry checks.
func WithServiceClock(now Clock) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records login and authentication outcomes.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService constructs a new Service.
func NewService(repo Repository, codec *Codec, cfg ServiceConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, codec: codec, cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("posts-unknown-user"), cfg.BcryptCost)
	if err != nil {
		logger.Warn("bcrypt cost rejected for placeholder hash", slog.Int("cost", cfg.BcryptCost), slog.Any("error", err))
		hash, _ = bcrypt.GenerateFromPassword([]byte("posts-unknown-user"), bcrypt.DefaultCost)
	}
	s.dummyHash = hash
	return s
}

// Register creates an account with a bcrypt hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = NormalizeUsername(username)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and returns an access token. Rejected
// credentials yield a Token without AccessToken and a nil error; only
// storage or signing failures return an error. A still-active session for
// the user is reused instead of minting a new token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	result := Token{TokenType: TokenTypeBearer}
	username = NormalizeUsername(username)

	user, err := s.repo.FindUserByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			s.metrics.login(outcomeRejected)
			return result, nil
		}
		return result, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.WarnContext(ctx, "stored password hash unusable", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		s.metrics.login(outcomeRejected)
		return result, nil
	}

	active, err := s.IsActive(ctx, user.Email)
	if err != nil {
		return result, err
	}
	if active {
		token, err := s.ActiveToken(ctx, user.Email)
		switch {
		case err == nil:
			s.metrics.login(outcomeReused)
			result.AccessToken = token
			return result, nil
		case !errors.Is(err, ErrSessionNotFound):
			return result, err
		}
		// The session vanished between the two reads; issue a fresh one.
	}

	token, err := s.codec.Issue(user.Email, s.cfg.TokenTTL)
	if err != nil {
		return result, err
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		return result, fmt.Errorf("auth: decode issued token: %w", err)
	}
	sess := &ActiveSession{
		UserID:   user.ID,
		Username: user.Email,
		Token:    token,
		Expiry:   &claims.Expiry,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return result, err
	}
	s.metrics.login(outcomeIssued)
	s.logger.InfoContext(ctx, "session issued", slog.Int64("user_id", user.ID), slog.Time("expiry", claims.Expiry))
	result.AccessToken = token
	return result, nil
}

// Authenticate resolves a bearer token to the Identity of its session. The
// identity's Token is the presented token.
//
// Errors: ErrUnauthorized for undecodable tokens, ErrSessionExpired for
// tokens past expiry (their session rows are deleted first) and
// ErrSessionNotFound when no session backs the subject.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	identity, err := s.authenticate(ctx, token)
	s.metrics.authenticate(err)
	return identity, err
}

func (s *Service) authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	if s.expired(claims.Expiry) {
		if _, err := s.Logout(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	var sess *ActiveSession
	if s.cfg.StrictSessionMatch {
		sess, err = s.repo.FindSessionByToken(ctx, token)
		if err == nil && sess.Username != claims.Subject {
			err = ErrSessionNotFound
		}
	} else {
		sess, err = s.repo.FindSessionByUsername(ctx, claims.Subject)
	}
	if err != nil {
		return nil, err
	}
	// The session row binds the account; Token stays the presented bearer so
	// logging out revokes this session and not the subject's newest one.
	return &Identity{UserID: sess.UserID, Username: sess.Username, Token: token}, nil
}

// Logout deletes every session holding token. It reports true even when no
// session matched.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	n, err := s.repo.DeleteSessionsByToken(ctx, token)
	if err != nil {
		return false, err
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "sessions revoked", slog.Int64("count", n))
	}
	return true, nil
}

// IsActive reports whether the newest session for username holds a token
// that still decodes and has not expired. A session whose token no longer
// decodes (secret rotation, corruption) is deleted.
func (s *Service) IsActive(ctx context.Context, username string) (bool, error) {
	sess, err := s.repo.FindSessionByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	claims, err := s.codec.Decode(sess.Token)
	if err != nil {
		s.logger.WarnContext(ctx, "purging undecodable session", slog.Int64("session_id", sess.ID), slog.Any("error", err))
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
			return false, err
		}
		return false, nil
	}
	return !s.expired(claims.Expiry), nil
}

// ActiveToken returns the token of the newest session for username, or
// ErrSessionNotFound.
func (s *Service) ActiveToken(ctx context.Context, username string) (string, error) {
	sess, err := s.repo.FindSessionByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// PurgeExpired deletes sessions whose expiry has passed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.sessionsPurged(n)
	return n, nil
}

func (s *Service) expired(expiry time.Time) bool {
	return expiry.IsZero() || !s.now().Before(expiry)
}
