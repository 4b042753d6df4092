package service

import (
	"sort"

	"threadx/internal/model"
)

// RankSuggestions orders follow candidates for forUser: everyone except
// forUser and the users in following. Candidates in the same location come
// first, then candidates in mutual, then the rest of that ranked group by
// username. Candidates matching neither keep their original order after
// the ranked group. The result is cut to model.MaxSuggestions after
// ranking the whole set.
func RankSuggestions(forUser model.User, users []model.User, following []string, mutual map[string]bool) []model.User {
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}
	home := model.Fold(forUser.Location)

	type candidate struct {
		user   model.User
		nearby bool
		mutual bool
	}
	var ranked []candidate
	var rest []model.User
	for _, u := range users {
		if u.ID == forUser.ID || followed[u.ID] {
			continue
		}
		c := candidate{
			user:   u,
			nearby: home != "" && model.Fold(u.Location) == home,
			mutual: mutual[u.ID],
		}
		if c.nearby || c.mutual {
			ranked = append(ranked, c)
		} else {
			rest = append(rest, u)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.nearby != b.nearby {
			return a.nearby
		}
		if a.mutual != b.mutual {
			return a.mutual
		}
		an, bn := model.Fold(a.user.Username), model.Fold(b.user.Username)
		if an != bn {
			return an < bn
		}
		return a.user.Username < b.user.Username
	})

	out := make([]model.User, 0, len(ranked)+len(rest))
	for _, c := range ranked {
		out = append(out, c.user)
	}
	out = append(out, rest...)
	if len(out) > model.MaxSuggestions {
		out = out[:model.MaxSuggestions]
	}
	return out
}
