package posts

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

type memRepository struct {
	mu     sync.Mutex
	posts  map[int64]Post
	users  map[int64]string
	nextID int64
	lists  atomic.Int64

	listErr   error
	insertErr error
	// gate, when set, blocks ListPosts until closed.
	gate chan struct{}
	// hold, when set, blocks ListPosts after its snapshot is taken;
	// snapshots counts completed snapshots.
	hold      chan struct{}
	snapshots atomic.Int64
}

func newMemRepository() *memRepository {
	return &memRepository{
		posts:  make(map[int64]Post),
		users:  map[int64]string{1: "a@b.com", 2: "c@d.com"},
		nextID: 1,
	}
}

func (m *memRepository) ListPosts(ctx context.Context) ([]PostView, error) {
	m.lists.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	views, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	m.snapshots.Add(1)
	if m.hold != nil {
		<-m.hold
	}
	return views, nil
}

func (m *memRepository) snapshot() ([]PostView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	views := make([]PostView, 0, len(m.posts))
	for _, p := range m.posts {
		views = append(views, PostView{ID: p.ID, Title: p.Title, Description: p.Description, User: m.users[p.UserID]})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (m *memRepository) InsertPost(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	post.ID = m.nextID
	m.nextID++
	m.posts[post.ID] = *post
	return nil
}

func (m *memRepository) DeletePost(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return false, nil
	}
	delete(m.posts, id)
	return true, nil
}

var _ Repository = (*memRepository)(nil)
