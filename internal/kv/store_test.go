package kv

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())

	got, err := Get(ctx, s, "threadx_users", []sample{})
	require.NoError(t, err)
	assert.Empty(t, got, "missing key returns fallback")

	require.NoError(t, s.Set(ctx, "threadx_users", []sample{{Name: "a", Count: 1}}))
	got, err = Get(ctx, s, "threadx_users", []sample{})
	require.NoError(t, err)
	assert.Equal(t, []sample{{Name: "a", Count: 1}}, got)
}

func TestStore_CorruptValueFallsBack(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	s := NewStore(b)

	require.NoError(t, b.Set(ctx, "followers_u1", []byte("{not json")))

	got, err := Get(ctx, s, "followers_u1", []string{"fallback"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, got)
}

func TestStore_RawStrings(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())

	_, ok, err := s.GetString(ctx, KeyTheme)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetString(ctx, KeyTheme, "dark"))
	v, ok, err := s.GetString(ctx, KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestStore_OnChange(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.Set(ctx, FollowersKey("u1"), []string{}))
	require.NoError(t, s.Remove(ctx, FollowersKey("u1")))

	require.Len(t, changes, 2)
	assert.Equal(t, OpSet, changes[0].Op)
	assert.Equal(t, "followers", changes[0].Family)
	assert.Equal(t, OpRemove, changes[1].Op)
	assert.Equal(t, "followers_u1", changes[1].Key)
}

func TestStore_AtomicallyNests(t *testing.T) {
	s := NewStore(NewMemoryBackend())

	calls := 0
	err := s.Atomically(context.Background(), func(ctx context.Context) error {
		calls++
		return s.Atomically(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStore_AtomicallySerializes(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())
	require.NoError(t, s.Set(ctx, "counter", 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Atomically(ctx, func(ctx context.Context) error {
				n, err := Get(ctx, s, "counter", 0)
				if err != nil {
					return err
				}
				return s.Set(ctx, "counter", n+1)
			})
		}()
	}
	wg.Wait()

	n, err := Get(ctx, s, "counter", 0)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestFamilyAndOwner(t *testing.T) {
	tests := []struct {
		key    string
		family string
		owner  string
	}{
		{KeySessionUser, "session", ""},
		{KeyUsers, "users", ""},
		{KeyThreads, "threads", ""},
		{KeyRecentSearches, "recent_searches", ""},
		{PasswordKey("u1"), "password", "u1"},
		{AlertsKey("u2"), "alerts", "u2"},
		{LikesKey("u3"), "likes", "u3"},
		{"unrelated", "other", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.family, Family(tt.key), tt.key)
		assert.Equal(t, tt.owner, Owner(tt.key), tt.key)
	}
	assert.Len(t, UserScopedKeys("u1"), 6)
}
