package service

import (
	"context"

	"threadx/internal/model"
	"threadx/internal/repository"
)

// LikeThread toggles actor's like on a thread. Each actor holds at most
// one like per thread, so the counter moves by exactly one per toggle and
// never goes below zero.
func (s *ThreadService) LikeThread(ctx context.Context, actor model.User, threadID string) (*model.Thread, error) {
	return s.toggle(ctx, actor, threadID, repository.ReactionLike)
}

// RepostThread toggles actor's repost. Threads with reposts disabled
// reject new reposts; an existing repost can still be withdrawn.
func (s *ThreadService) RepostThread(ctx context.Context, actor model.User, threadID string) (*model.Thread, error) {
	return s.toggle(ctx, actor, threadID, repository.ReactionRepost)
}

func (s *ThreadService) toggle(ctx context.Context, actor model.User, threadID string, kind repository.ReactionKind) (*model.Thread, error) {
	var out model.Thread
	var on bool
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, actor.ID)
		if err != nil {
			return err
		}
		t := &threads[i]

		ids, err := s.reactions.ThreadIDs(ctx, kind, actor.ID)
		if err != nil {
			return err
		}
		on = !contains(ids, threadID)
		if on && kind == repository.ReactionRepost && t.DisableReposts {
			return model.ErrRepostsDisabled
		}

		counter := &t.Likes
		if kind == repository.ReactionRepost {
			counter = &t.Reposts
		}
		if on {
			ids = append(ids, threadID)
			*counter++
		} else {
			ids = without(ids, threadID)
			if *counter > 0 {
				*counter--
			}
		}

		if err := s.threads.SaveAll(ctx, threads); err != nil {
			return err
		}
		if err := s.reactions.SetThreadIDs(ctx, kind, actor.ID, ids); err != nil {
			return err
		}

		if alertType, content, ok := reactionAlert(kind, on); ok {
			s.notify(ctx, t.UserID, model.Alert{
				Type:          alertType,
				FromUserID:    actor.ID,
				FromUsername:  actor.Username,
				ActorImage:    actor.ProfileImage,
				Content:       content,
				ThreadID:      t.ID,
				ThreadPreview: preview(t.Content, model.ThreadPreviewLength),
			})
		}

		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	list := []model.Thread{out}
	if err := s.decorate(ctx, actor.ID, list); err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("thread_id", threadID).
		Str("user_id", actor.ID).
		Str("kind", string(kind)).
		Bool("on", on).
		Msg("reaction toggled")
	return &list[0], nil
}

func reactionAlert(kind repository.ReactionKind, on bool) (model.AlertType, string, bool) {
	switch {
	case kind == repository.ReactionLike && on:
		return model.AlertLike, "liked your thread", true
	case kind == repository.ReactionLike:
		return model.AlertUnlike, "unliked your thread", true
	case kind == repository.ReactionRepost && on:
		return model.AlertRepost, "reposted your thread", true
	}
	return "", "", false
}
