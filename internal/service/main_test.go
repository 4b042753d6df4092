package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"threadx/internal/kv"
	"threadx/internal/model"
	"threadx/internal/repository"
	"threadx/internal/session"
)

// env wires every service over one in-memory store.
type env struct {
	ctx      context.Context
	repos    *repository.Repositories
	identity *IdentityService
	follows  *FollowService
	threads  *ThreadService
	alerts   *NotificationService
	prefs    *PreferenceService
	search   *SearchService
	clock    *clock
}

// clock advances one second per reading so timestamps are strictly ordered.
type clock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := kv.NewStore(kv.NewMemoryBackend())
	t.Cleanup(func() { store.Close() })

	repos := repository.New(store)
	alerts := NewNotificationService(repos)
	prefs := NewPreferenceService(repos)
	clk := &clock{cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	e := &env{
		ctx:      context.Background(),
		repos:    repos,
		identity: NewIdentityService(repos, session.NewTokens("test-secret", time.Hour), WithBcryptCost(bcrypt.MinCost)),
		follows:  NewFollowService(repos, alerts),
		threads:  NewThreadService(repos, alerts),
		alerts:   alerts,
		prefs:    prefs,
		search:   NewSearchService(repos, prefs, alerts),
		clock:    clk,
	}
	e.identity.now = clk.Now
	e.threads.now = clk.Now
	e.alerts.now = clk.Now
	e.prefs.now = clk.Now
	return e
}

// register creates a user in its own session.
func (e *env) register(t *testing.T, username, location string) (model.User, *session.Session) {
	t.Helper()
	sess := session.New()
	u, err := e.identity.Register(e.ctx, sess, model.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret1",
		Location: location,
	})
	require.NoError(t, err)
	return *u, sess
}

func (e *env) follow(t *testing.T, follower, target model.User) {
	t.Helper()
	require.NoError(t, e.follows.Follow(e.ctx, follower.ID, target.ID))
}

func (e *env) post(t *testing.T, author model.User, content string, privacy model.Privacy) *model.Thread {
	t.Helper()
	th, err := e.threads.CreateThread(e.ctx, author, model.CreateThreadRequest{Content: content, Privacy: privacy})
	require.NoError(t, err)
	return th
}

func ids(users []model.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func threadIDs(threads []model.Thread) []string {
	out := make([]string, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.ID)
	}
	return out
}
