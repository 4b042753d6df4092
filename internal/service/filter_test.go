package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"threadx/internal/model"
)

func TestFilter_Trending(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	threads := []model.Thread{
		{ID: "cold", Likes: 25, Timestamp: base},
		{ID: "warm", Likes: 26, Timestamp: base},
		{ID: "hot", Likes: 90, Timestamp: base.Add(-time.Hour)},
		{ID: "warm-newer", Likes: 26, Timestamp: base.Add(time.Minute)},
	}

	got := Filter(threads, model.ThreadFilter{Category: model.CategoryTrending})

	assert.Equal(t, []string{"hot", "warm-newer", "warm"}, threadIDs(got))
	assert.Equal(t, "cold", threads[0].ID, "input untouched")
}

func TestFilter_RelevanceThenRecency(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	threads := []model.Thread{
		{ID: "old-relevant", Relevance: 150, Timestamp: base},
		{ID: "new", Relevance: 100, Timestamp: base.Add(time.Hour)},
		{ID: "older", Relevance: 100, Timestamp: base.Add(-time.Hour)},
		{ID: "fractional", Relevance: 100.25, Timestamp: base.Add(-2 * time.Hour)},
	}

	got := Filter(threads, model.ThreadFilter{Category: model.CategoryAll})

	assert.Equal(t, []string{"old-relevant", "fractional", "new", "older"}, threadIDs(got))
}

func TestFilter_Visibility(t *testing.T) {
	threads := []model.Thread{
		{ID: "public", UserID: "a"},
		{ID: "private", UserID: "a", IsPrivate: true, AllowedViewers: []string{"a", "b"}},
	}

	tests := []struct {
		viewer string
		want   []string
	}{
		{"a", []string{"public", "private"}},
		{"b", []string{"public", "private"}},
		{"c", []string{"public"}},
		{"", []string{"public"}},
	}
	for _, tt := range tests {
		got := Filter(threads, model.ThreadFilter{ViewerID: tt.viewer})
		assert.ElementsMatch(t, tt.want, threadIDs(got), "viewer %q", tt.viewer)
	}
}
