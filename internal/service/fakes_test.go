package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront/internal/cache"
	"github.com/iliyamo/storefront/internal/config"
	"github.com/iliyamo/storefront/internal/model"
	"github.com/iliyamo/storefront/internal/queue"
	"github.com/iliyamo/storefront/internal/repository"
)

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func testConfig() config.Config {
	return config.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
}

// fakeUsers is an in-memory UserStore keyed by normalized email.
type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]model.User
	creates   int
	createErr error
	lookupErr error
	nextID    int
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, name, email, hash, role string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.User{}, f.createErr
	}
	email = repository.NormalizeEmail(email)
	if _, ok := f.byEmail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	f.nextID++
	f.creates++
	u := model.User{ID: fmt.Sprintf("user-%d", f.nextID), Name: name, Email: email, PasswordHash: hash, Role: role}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return model.User{}, f.lookupErr
	}
	u, ok := f.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			f.byEmail[email] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (p *recordingPublisher) PublishAuthEvent(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUsers
	tokens   *TokenService
	sessions *RedisSessionStore
	events   *recordingPublisher
	redis    *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := testConfig()
	f := &authFixture{
		users:    newFakeUsers(),
		tokens:   NewTokenService(cfg),
		sessions: NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), cfg.RefreshTTL),
		events:   &recordingPublisher{},
		redis:    mr,
	}
	f.svc = NewAuthService(f.users, f.tokens, f.sessions, f.events, cfg.BcryptCost, quietLogger())
	return f
}

// fakeProducts is an in-memory ProductStore that counts featured queries.
type fakeProducts struct {
	mu            sync.Mutex
	items         []model.Product
	featuredCalls int
	listErr       error
}

func (f *fakeProducts) ListFeatured(context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.featuredCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Product, 0)
	for _, p := range f.items {
		if p.IsFeatured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, repository.ErrNotFound
}

func (f *fakeProducts) Create(_ context.Context, p model.Product) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "p-new"
	f.items = append(f.items, p)
	return p, nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.items {
		if p.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeProducts) ToggleFeatured(_ context.Context, id string) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].IsFeatured = !f.items[i].IsFeatured
			return f.items[i], nil
		}
	}
	return model.Product{}, repository.ErrNotFound
}

// memCache is an in-memory cache.Cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return b, nil
}

func (m *memCache) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// brokenCache fails every operation like an unreachable server.
type brokenCache struct{}

var errCacheDown = errors.New("dial tcp: connection refused")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte) error   { return errCacheDown }
func (brokenCache) Delete(context.Context, string) error        { return errCacheDown }

// fakeImages records uploads and removals.
type fakeImages struct {
	uploaded []string
	removed  []string
}

func (f *fakeImages) Upload(_ context.Context, dataURL string) (string, error) {
	f.uploaded = append(f.uploaded, dataURL)
	return "https://img.example.com/products/products/new.png", nil
}

func (f *fakeImages) Remove(_ context.Context, url string) error {
	f.removed = append(f.removed, url)
	return nil
}
