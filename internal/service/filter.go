package service

import (
	"sort"
	"strings"

	"threadx/internal/model"
)

// Filter returns the threads f.ViewerID may see, narrowed by query and
// category and ordered for display. Private threads are dropped unless the
// viewer is the author or in the thread's allowed viewers. The input is
// not modified.
func Filter(threads []model.Thread, f model.ThreadFilter) []model.Thread {
	query := model.Fold(f.Query)
	following := make(map[string]bool, len(f.Following))
	for _, id := range f.Following {
		following[id] = true
	}

	out := make([]model.Thread, 0, len(threads))
	for _, t := range threads {
		if !t.CanView(f.ViewerID) {
			continue
		}
		if query != "" && !matchesQuery(t, query) {
			continue
		}
		switch f.Category {
		case model.CategoryMy:
			if t.UserID != f.ViewerID {
				continue
			}
		case model.CategoryFollowing:
			if !following[t.UserID] {
				continue
			}
		case model.CategoryTrending:
			if t.Likes <= model.TrendingLikesThreshold {
				continue
			}
		}
		out = append(out, t)
	}

	if f.Category == model.CategoryTrending {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Likes != out[j].Likes {
				return out[i].Likes > out[j].Likes
			}
			return out[i].Timestamp.After(out[j].Timestamp)
		})
		return out
	}
	SortThreads(out)
	return out
}

// SortThreads orders by relevance, then newest first.
func SortThreads(threads []model.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].Relevance != threads[j].Relevance {
			return threads[i].Relevance > threads[j].Relevance
		}
		return threads[i].Timestamp.After(threads[j].Timestamp)
	})
}

func matchesQuery(t model.Thread, folded string) bool {
	return strings.Contains(model.Fold(t.Content), folded) ||
		strings.Contains(model.Fold(t.Username), folded) ||
		strings.Contains(model.Fold(t.Email), folded)
}
