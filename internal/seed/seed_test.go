package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"threadx/internal/kv"
	"threadx/internal/model"
	"threadx/internal/repository"
	"threadx/internal/service"
	"threadx/internal/session"
)

func newSeeder(t *testing.T, seed int64) (*Seeder, *repository.Repositories, *service.Services) {
	t.Helper()
	store := kv.NewStore(kv.NewMemoryBackend())
	t.Cleanup(func() { store.Close() })
	repos := repository.New(store)
	svcs := service.NewServices(repos, session.NewTokens("test-secret", time.Hour), nil,
		service.WithBcryptCost(bcrypt.MinCost))
	return NewSeeder(repos, svcs, seed), repos, svcs
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Users = 8
	opts.Threads = 15
	opts.MaxLikes = 5
	return opts
}

func TestSeeder_RunKeepsInvariants(t *testing.T) {
	ctx := context.Background()
	s, repos, svcs := newSeeder(t, 42)

	sum, err := s.Run(ctx, smallOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Users)
	assert.Equal(t, 15, sum.Threads)

	users, err := repos.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 8)

	follows := 0
	for _, u := range users {
		_, ok, err := repos.Credentials.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, ok, "credential for %s", u.Username)

		following, err := repos.Follows.Following(ctx, u.ID)
		require.NoError(t, err)
		for _, id := range following {
			followers, err := repos.Follows.Followers(ctx, id)
			require.NoError(t, err)
			assert.Contains(t, followers, u.ID)
		}
		follows += len(following)
	}
	assert.Equal(t, sum.Follows, follows)

	threads, err := repos.Threads.List(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 15)
	likes := 0
	for _, th := range threads {
		assert.GreaterOrEqual(t, th.Likes, 0)
		assert.LessOrEqual(t, th.Relevance, float64(model.DefaultRelevance))
		assert.LessOrEqual(t, len([]rune(th.Content)), model.MaxThreadLength)
		likes += th.Likes
	}
	assert.Equal(t, sum.Likes, likes)

	_, err = svcs.Identity.Login(ctx, session.New(), model.LoginRequest{Identifier: users[0].Email, Password: DefaultPassword})
	assert.NoError(t, err)
}

func TestSeeder_RestoresSession(t *testing.T) {
	ctx := context.Background()
	s, repos, svcs := newSeeder(t, 7)

	sess := session.New()
	owner, err := svcs.Identity.Register(ctx, sess, model.RegisterRequest{
		Username: "owner", Email: "owner@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = s.Run(ctx, smallOptions())
	require.NoError(t, err)

	stored, token, err := repos.Sessions.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, owner.ID, stored.ID)
	assert.Equal(t, sess.Token(), token)
}

func TestSeeder_Reproducible(t *testing.T) {
	ctx := context.Background()
	names := func() []string {
		s, repos, _ := newSeeder(t, 99)
		_, err := s.Run(ctx, smallOptions())
		require.NoError(t, err)
		users, err := repos.Users.List(ctx)
		require.NoError(t, err)
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}
	assert.ElementsMatch(t, names(), names())
}

func TestSeeder_RequiresUsers(t *testing.T) {
	s, _, _ := newSeeder(t, 1)
	_, err := s.Run(context.Background(), Options{})
	assert.Error(t, err)
}
