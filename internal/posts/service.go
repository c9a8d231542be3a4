package posts

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
)

// Service implements listing, creation and removal of posts.
type Service struct {
	repo     Repository
	cache    ListCache
	metrics  *Metrics
	logger   *slog.Logger
	validate *validator.Validate
	group    singleflight.Group

	// memoMu orders cache writes from loads against invalidations; gen
	// counts invalidations so a load that raced one does not store its
	// snapshot.
	memoMu sync.Mutex
	gen    uint64
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records cache lookups.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires a Repository with a list cache. A nil cache disables
// memoization.
func NewService(repo Repository, cache ListCache, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, cache: cache, logger: logger, validate: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every post with its author. Results are memoized and
// concurrent misses share one database query.
func (s *Service) List(ctx context.Context) ([]PostView, error) {
	if s.cache != nil {
		views, ok, err := s.cache.Get(ctx, listKey)
		switch {
		case err != nil:
			s.metrics.lookup("error")
			s.logger.WarnContext(ctx, "post cache read failed", slog.Any("error", err))
		case ok:
			s.metrics.lookup("hit")
			return views, nil
		default:
			s.metrics.lookup("miss")
		}
	}

	views, err, _ := s.loadShared(ctx, listKey, func(ctx context.Context) ([]PostView, error) {
		gen := s.generation()
		views, err := s.repo.ListPosts(ctx)
		if err != nil {
			return nil, err
		}
		s.memoize(ctx, gen, views)
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneViews(views), nil
}

// loadShared runs fn once for concurrent callers of the same key. A caller
// whose context ends stops waiting without cancelling the shared load.
func (s *Service) loadShared(ctx context.Context, key string, fn func(context.Context) ([]PostView, error)) ([]PostView, error, bool) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		views, _ := res.Val.([]PostView)
		return views, res.Err, res.Shared
	}
}

// Add validates req and stores a post owned by userID.
func (s *Service) Add(ctx context.Context, req AddPostRequest, userID int64) (int64, error) {
	req = req.normalized()
	if err := s.validate.Struct(req); err != nil {
		return 0, validationError{err: err}
	}
	post := &Post{Title: req.Title, Description: req.Description, UserID: userID}
	if err := s.repo.InsertPost(ctx, post); err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "post created", slog.Int64("post_id", post.ID), slog.Int64("user_id", userID))
	return post.ID, nil
}

// Remove deletes a post by id.
func (s *Service) Remove(ctx context.Context, id int64) error {
	removed, err := s.repo.DeletePost(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "post removed", slog.Int64("post_id", id))
	return nil
}

func (s *Service) generation() uint64 {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	return s.gen
}

// memoize stores views unless an invalidation happened since gen was read.
func (s *Service) memoize(ctx context.Context, gen uint64, views []PostView) {
	if s.cache == nil {
		return
	}
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	if s.gen != gen {
		s.logger.DebugContext(ctx, "discarding post list loaded before invalidation")
		return
	}
	if err := s.cache.Set(ctx, listKey, views); err != nil {
		s.logger.WarnContext(ctx, "post cache write failed", slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	s.gen++
	s.group.Forget(listKey)
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "post cache invalidation failed", slog.Any("error", err))
	}
}

// validationError carries validator field errors while matching ErrValidation.
type validationError struct {
	err error
}

func (e validationError) Error() string {
	return ErrValidation.Error() + ": " + e.err.Error()
}

func (e validationError) Unwrap() []error {
	return []error{ErrValidation, e.err}
}
