package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadx/internal/model"
)

func TestSearch_Users(t *testing.T) {
	e := newEnv(t)
	a, _ := e.register(t, "alice", "")
	b, _ := e.register(t, "Bobby", "")
	e.register(t, "robert", "")
	e.follow(t, a, b)

	got, err := e.search.SearchUsers(e.ctx, a.ID, "BOB")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
	assert.True(t, got[0].IsFollowing)

	got, err = e.search.SearchUsers(e.ctx, a.ID, "example.com")
	require.NoError(t, err)
	assert.Len(t, got, 2, "the viewer is excluded")

	got, err = e.search.SearchUsers(e.ctx, a.ID, "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_RecentSearches(t *testing.T) {
	e := newEnv(t)
	viewer, _ := e.register(t, "viewer", "")
	var targets []model.User
	for _, name := range []string{"one", "two", "three", "four", "five", "six"} {
		u, _ := e.register(t, name, "")
		targets = append(targets, u)
	}

	for _, u := range targets {
		_, err := e.search.ViewProfile(e.ctx, viewer, u.ID)
		require.NoError(t, err)
	}
	_, err := e.search.ViewProfile(e.ctx, viewer, targets[2].ID)
	require.NoError(t, err)
	_, err = e.search.ViewProfile(e.ctx, viewer, viewer.ID)
	require.NoError(t, err)

	recent, err := e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	got := make([]string, 0, len(recent))
	for _, rs := range recent {
		got = append(got, rs.Username)
	}
	assert.Equal(t, []string{"three", "six", "five", "four", "two"}, got)

	views, err := e.alerts.List(e.ctx, targets[2].ID, model.AlertProfileView)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	require.NoError(t, e.prefs.RemoveRecentSearch(e.ctx, targets[5].ID))
	recent, err = e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	require.NoError(t, e.prefs.ClearRecentSearches(e.ctx))
	recent, err = e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)

	_, err = e.search.ViewProfile(e.ctx, viewer, "ghost")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

type failingPusher struct{ calls int }

func (p *failingPusher) Push(context.Context, string, model.Alert) error {
	p.calls++
	return errors.New("alerts unavailable")
}

func TestSearch_ViewProfileIgnoresAlertFailure(t *testing.T) {
	e := newEnv(t)
	viewer, _ := e.register(t, "viewer", "")
	target, _ := e.register(t, "target", "")

	pusher := &failingPusher{}
	search := NewSearchService(e.repos, e.prefs, pusher)

	got, err := search.ViewProfile(e.ctx, viewer, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, got.ID)
	assert.Equal(t, 1, pusher.calls)

	recent, err := e.prefs.RecentSearches(e.ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "target", recent[0].Username)
}

func TestSearch_ViewDemoProfileBeforeFirstLogin(t *testing.T) {
	e := newEnv(t)
	viewer, _ := e.register(t, "viewer", "")

	got, err := e.search.ViewProfile(e.ctx, viewer, "demo1")
	require.NoError(t, err)
	assert.Equal(t, "demo1", got.ID)
	assert.NotEmpty(t, got.Username)

	views, err := e.alerts.List(e.ctx, "demo1", model.AlertProfileView)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestPreference_Theme(t *testing.T) {
	e := newEnv(t)

	theme, err := e.prefs.Theme(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, theme)

	require.NoError(t, e.prefs.SetTheme(e.ctx, model.ThemeDark))
	theme, err = e.prefs.Theme(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, theme)

	assert.ErrorIs(t, e.prefs.SetTheme(e.ctx, "neon"), model.ErrInvalidTheme)
}
