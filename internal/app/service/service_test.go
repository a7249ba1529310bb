package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"messenger/internal/app/realtime"
	"messenger/internal/app/storage"
	"messenger/internal/app/store"
	"messenger/internal/app/store/memory"
	"messenger/internal/pkg/errs"
)

type delivery struct {
	userID string
	evt    *realtime.Event
}

// recorder is a Notifier that records every call.
type recorder struct {
	mu         sync.Mutex
	direct     []delivery
	broadcasts []*realtime.Event
	evicted    []string
}

func (r *recorder) SendToUser(userID string, evt *realtime.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = append(r.direct, delivery{userID, evt})
	return true
}

func (r *recorder) SendToUsers(userIDs []string, evt *realtime.Event, exclude ...string) int {
	n := 0
	for _, id := range userIDs {
		skip := false
		for _, ex := range exclude {
			skip = skip || ex == id
		}
		if !skip {
			r.SendToUser(id, evt)
			n++
		}
	}
	return n
}

func (r *recorder) BroadcastAll(evt *realtime.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, evt)
	return 1
}

func (r *recorder) EvictUser(userID, _ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, userID)
	return true
}

// to returns the kinds delivered to userID, in order.
func (r *recorder) to(userID string) []realtime.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.EventKind
	for _, d := range r.direct {
		if d.userID == userID {
			out = append(out, d.evt.Kind)
		}
	}
	return out
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.direct) + len(r.broadcasts)
}

// fakeStorage is an in-memory StorageService.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectInfo
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storage.ObjectInfo)}
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=put", nil
}

func (f *fakeStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=get", nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return info, nil
}

func (f *fakeStorage) put(key, contentType string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storage.ObjectInfo{ContentType: contentType, Size: size}
}

var errDiskFull = errors.New("disk full")

// failingStore fails the mutations the tests care about.
type failingStore struct {
	*memory.Store
}

func (f failingStore) CreateFriendRequest(context.Context, *store.FriendRequest) error {
	return errDiskFull
}

func (f failingStore) CreateMessage(context.Context, *store.Message) error {
	return errDiskFull
}

type fixture struct {
	svc     *Services
	store   *memory.Store
	events  *recorder
	storage *fakeStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	rec := &recorder{}
	fs := newFakeStorage()

	return &fixture{
		svc: New(Deps{
			Store:        st,
			Notifier:     rec,
			Storage:      fs,
			JWTSecret:    "test-secret",
			AssetBaseURL: "https://cdn.example.com",
		}),
		store:   st,
		events:  rec,
		storage: fs,
	}
}

func (f *fixture) user(t *testing.T, id, name string) *store.User {
	t.Helper()
	u := &store.User{
		ID:        id,
		Username:  id,
		Email:     id + "@example.com",
		Name:      name,
		Role:      store.RoleUser,
		Stats:     store.Stats{Level: 1},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var ce *errs.CustomError
	require.True(t, errors.As(err, &ce), "expected business error, got %v", err)
	require.Equal(t, code, ce.Code)
}
