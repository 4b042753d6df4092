package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/repository"
)

// FollowService keeps the two materialized sides of every follow edge in
// agreement: B ∈ following(A) exactly when A ∈ followers(B).
type FollowService struct {
	store   *kv.Store
	users   repository.UserRepository
	follows repository.FollowRepository
	threads repository.ThreadRepository
	alerts  alertPusher
	log     zerolog.Logger
}

func NewFollowService(repos *repository.Repositories, alerts alertPusher) *FollowService {
	return &FollowService{
		store:   repos.Store,
		users:   repos.Users,
		follows: repos.Follows,
		threads: repos.Threads,
		alerts:  alerts,
		log:     logger.New("FollowService"),
	}
}

// Follow adds the edge on both sides. A half-written edge left by an
// older client is completed rather than reported as a duplicate.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return model.ErrCannotFollowSelf
	}

	return s.store.Atomically(ctx, func(ctx context.Context) error {
		follower, err := s.users.GetByID(ctx, followerID)
		if err != nil {
			return err
		}
		if _, err := s.users.GetByID(ctx, targetID); err != nil {
			return err
		}

		following, followers, err := s.edge(ctx, followerID, targetID)
		if err != nil {
			return err
		}
		hasFollowing, hasFollower := contains(following, targetID), contains(followers, followerID)
		if hasFollowing && hasFollower {
			return model.ErrAlreadyFollowing
		}

		if !hasFollowing {
			if err := s.follows.SetFollowing(ctx, followerID, append(following, targetID)); err != nil {
				return err
			}
		}
		if !hasFollower {
			if err := s.follows.SetFollowers(ctx, targetID, append(followers, followerID)); err != nil {
				return err
			}
		}

		s.log.Debug().Str("follower", followerID).Str("target", targetID).Msg("followed")
		s.notify(ctx, targetID, model.Alert{
			Type:          model.AlertFollow,
			FromUserID:    follower.ID,
			FromUsername:  follower.Username,
			ActorImage:    follower.ProfileImage,
			Content:       "started following you",
			RelatedUserID: follower.ID,
		})
		return nil
	})
}

// Unfollow removes the edge from both sides.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		following, followers, err := s.edge(ctx, followerID, targetID)
		if err != nil {
			return err
		}
		hasFollowing, hasFollower := contains(following, targetID), contains(followers, followerID)
		if !hasFollowing && !hasFollower {
			return model.ErrNotFollowing
		}

		if hasFollowing {
			if err := s.follows.SetFollowing(ctx, followerID, without(following, targetID)); err != nil {
				return err
			}
		}
		if hasFollower {
			if err := s.follows.SetFollowers(ctx, targetID, without(followers, followerID)); err != nil {
				return err
			}
		}

		s.log.Debug().Str("follower", followerID).Str("target", targetID).Msg("unfollowed")
		follower, err := s.users.GetByID(ctx, followerID)
		if err != nil {
			// edge removed; the alert needs a resolvable actor
			return nil
		}
		s.notify(ctx, targetID, model.Alert{
			Type:          model.AlertUnfollow,
			FromUserID:    follower.ID,
			FromUsername:  follower.Username,
			ActorImage:    follower.ProfileImage,
			Content:       "unfollowed you",
			RelatedUserID: follower.ID,
		})
		return nil
	})
}

func (s *FollowService) edge(ctx context.Context, followerID, targetID string) (following, followers []string, err error) {
	following, err = s.follows.Following(ctx, followerID)
	if err != nil {
		return nil, nil, err
	}
	followers, err = s.follows.Followers(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	return following, followers, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	following, err := s.follows.Following(ctx, followerID)
	if err != nil {
		return false, err
	}
	return contains(following, targetID), nil
}

// FollowingIDs returns the raw following set.
func (s *FollowService) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return s.follows.Following(ctx, userID)
}

// FollowerIDs returns the raw followers set.
func (s *FollowService) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.follows.Followers(ctx, userID)
}

// GetFollowers resolves the followers set, skipping ids that no longer
// resolve to a user.
func (s *FollowService) GetFollowers(ctx context.Context, userID string) ([]model.User, error) {
	ids, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *FollowService) GetFollowing(ctx context.Context, userID string) ([]model.User, error) {
	ids, err := s.follows.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *FollowService) resolve(ctx context.Context, ids []string) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Stats returns profile counters. Counts are of resolvable users only.
func (s *FollowService) Stats(ctx context.Context, userID string) (model.ProfileStats, error) {
	followers, err := s.GetFollowers(ctx, userID)
	if err != nil {
		return model.ProfileStats{}, err
	}
	following, err := s.GetFollowing(ctx, userID)
	if err != nil {
		return model.ProfileStats{}, err
	}
	threads, err := s.threads.List(ctx)
	if err != nil {
		return model.ProfileStats{}, err
	}
	n := 0
	for _, t := range threads {
		if t.UserID == userID {
			n++
		}
	}
	return model.ProfileStats{Followers: len(followers), Following: len(following), Threads: n}, nil
}

// Suggestions ranks who forUserID might follow.
func (s *FollowService) Suggestions(ctx context.Context, forUserID string) ([]model.User, error) {
	forUser, err := s.users.GetByID(ctx, forUserID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.Following(ctx, forUserID)
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.Followers(ctx, forUserID)
	if err != nil {
		return nil, err
	}

	mutual := make(map[string]bool)
	for _, f := range followers {
		theirs, err := s.follows.Following(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, id := range theirs {
			mutual[id] = true
		}
	}

	return RankSuggestions(*forUser, users, following, mutual), nil
}

// notify delivers an alert without failing the surrounding operation.
func (s *FollowService) notify(ctx context.Context, recipientID string, alert model.Alert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Push(ctx, recipientID, alert); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Str("recipient", recipientID).Str("type", string(alert.Type)).Msg("failed to push alert")
	}
}
