package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/observability"
	"threadx/internal/repository"
)

// ThreadService owns the shared thread collection and the comment trees
// nested in it.
type ThreadService struct {
	store     *kv.Store
	threads   repository.ThreadRepository
	follows   repository.FollowRepository
	reactions repository.ReactionRepository
	alerts    alertPusher
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

func NewThreadService(repos *repository.Repositories, alerts alertPusher) *ThreadService {
	return &ThreadService{
		store:     repos.Store,
		threads:   repos.Threads,
		follows:   repos.Follows,
		reactions: repos.Reactions,
		alerts:    alerts,
		validate:  newValidator(),
		log:       logger.New("ThreadService"),
		now:       time.Now,
	}
}

// CreateThread prepends a thread by author. A private thread is visible
// to the author and the followers the author has right now; later
// followers do not see it. Public threads alert every follower.
func (s *ThreadService) CreateThread(ctx context.Context, author model.User, req model.CreateThreadRequest) (*model.Thread, error) {
	content, err := validateContent(s.validate, req.Content, model.MaxThreadLength)
	if err != nil {
		return nil, err
	}
	privacy := req.Privacy.Normalize()

	var thread model.Thread
	var followers []string
	err = s.store.Atomically(ctx, func(ctx context.Context) error {
		followers, err = s.follows.Followers(ctx, author.ID)
		if err != nil {
			return err
		}

		thread = model.Thread{
			ID:             model.NewID(),
			UserID:         author.ID,
			Username:       author.Username,
			Email:          author.Email,
			ProfileImage:   author.ProfileImage,
			Content:        content,
			Timestamp:      s.now(),
			Relevance:      model.DefaultRelevance,
			Comments:       []model.Comment{},
			IsPrivate:      privacy.IsPrivate,
			MuteReplies:    privacy.MuteReplies,
			DisableReposts: privacy.DisableReposts,
			AllowedViewers: []string{},
		}
		if privacy.IsPrivate {
			thread.AllowedViewers = append([]string{author.ID}, followers...)
		}

		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		if err := s.threads.SaveAll(ctx, append([]model.Thread{thread}, threads...)); err != nil {
			return err
		}

		if !thread.IsPrivate {
			for _, f := range followers {
				s.notify(ctx, f, model.Alert{
					Type:          model.AlertNewThread,
					FromUserID:    author.ID,
					FromUsername:  author.Username,
					ActorImage:    author.ProfileImage,
					Content:       "posted a new thread",
					ThreadID:      thread.ID,
					ThreadPreview: preview(thread.Content, model.ThreadPreviewLength),
					RelatedUserID: author.ID,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	visibility := "public"
	if thread.IsPrivate {
		visibility = "private"
	}
	observability.ThreadsCreated.WithLabelValues(visibility).Inc()
	s.log.Info().
		Str("thread_id", thread.ID).
		Str("user_id", author.ID).
		Bool("private", thread.IsPrivate).
		Int("followers", len(followers)).
		Msg("thread created")
	return &thread, nil
}

// List returns the timeline for viewerID.
func (s *ThreadService) List(ctx context.Context, viewerID, query string, category model.Category) ([]model.Thread, error) {
	if !category.Valid() {
		return nil, model.ErrInvalidCategory
	}
	threads, err := s.threads.List(ctx)
	if err != nil {
		return nil, err
	}
	var following []string
	if category == model.CategoryFollowing {
		following, err = s.follows.Following(ctx, viewerID)
		if err != nil {
			return nil, err
		}
	}

	out := Filter(threads, model.ThreadFilter{
		Query:     query,
		Category:  category,
		ViewerID:  viewerID,
		Following: following,
	})
	if err := s.decorate(ctx, viewerID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserThreads returns authorID's threads visible to viewerID, newest first.
func (s *ThreadService) UserThreads(ctx context.Context, viewerID, authorID string) ([]model.Thread, error) {
	threads, err := s.threads.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Thread, 0)
	for _, t := range threads {
		if t.UserID == authorID && t.CanView(viewerID) {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	if err := s.decorate(ctx, viewerID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetThread returns one thread. Threads the viewer may not see are
// reported as missing.
func (s *ThreadService) GetThread(ctx context.Context, viewerID, threadID string) (*model.Thread, error) {
	threads, err := s.threads.List(ctx)
	if err != nil {
		return nil, err
	}
	i, err := findVisible(threads, threadID, viewerID)
	if err != nil {
		return nil, err
	}
	out := []model.Thread{threads[i]}
	if err := s.decorate(ctx, viewerID, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// DeleteThread removes a thread with its comments and replies. Only the
// author may delete it.
func (s *ThreadService) DeleteThread(ctx context.Context, threadID, requesterID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, requesterID)
		if err != nil {
			return err
		}
		if threads[i].UserID != requesterID {
			return model.ErrNotThreadOwner
		}

		threads = append(threads[:i], threads[i+1:]...)
		if err := s.threads.SaveAll(ctx, threads); err != nil {
			return err
		}
		s.log.Info().Str("thread_id", threadID).Str("user_id", requesterID).Msg("thread deleted")
		return pruneReactions(ctx, s.reactions, map[string]struct{}{threadID: {}})
	})
}

// TogglePrivacy flips a thread between public and private. Going private
// snapshots the author's current followers and lifts the other
// restrictions; going public clears the viewer list.
func (s *ThreadService) TogglePrivacy(ctx context.Context, threadID, requesterID string) (*model.Thread, error) {
	var out model.Thread
	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, requesterID)
		if err != nil {
			return err
		}
		t := &threads[i]
		if t.UserID != requesterID {
			return model.ErrNotThreadOwner
		}

		if t.IsPrivate {
			t.IsPrivate = false
			t.AllowedViewers = []string{}
		} else {
			followers, err := s.follows.Followers(ctx, t.UserID)
			if err != nil {
				return err
			}
			t.IsPrivate = true
			t.MuteReplies = false
			t.DisableReposts = false
			t.AllowedViewers = append([]string{t.UserID}, followers...)
		}
		if err := s.threads.SaveAll(ctx, threads); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	list := []model.Thread{out}
	if err := s.decorate(ctx, requesterID, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// decorate fills the viewer-relative liked and reposted flags.
func (s *ThreadService) decorate(ctx context.Context, viewerID string, threads []model.Thread) error {
	if viewerID == "" || len(threads) == 0 {
		return nil
	}
	liked, err := s.reactions.ThreadIDs(ctx, repository.ReactionLike, viewerID)
	if err != nil {
		return err
	}
	reposted, err := s.reactions.ThreadIDs(ctx, repository.ReactionRepost, viewerID)
	if err != nil {
		return err
	}
	for i := range threads {
		threads[i].Liked = contains(liked, threads[i].ID)
		threads[i].Reposted = contains(reposted, threads[i].ID)
	}
	return nil
}

func (s *ThreadService) notify(ctx context.Context, recipientID string, alert model.Alert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Push(ctx, recipientID, alert); err != nil {
		s.log.Warn().Err(err).Str("recipient", recipientID).Str("type", string(alert.Type)).Msg("failed to push alert")
	}
}

func findVisible(threads []model.Thread, threadID, viewerID string) (int, error) {
	for i := range threads {
		if threads[i].ID == threadID {
			if !threads[i].CanView(viewerID) {
				return -1, model.ErrThreadNotFound
			}
			return i, nil
		}
	}
	return -1, model.ErrThreadNotFound
}

func sortNewestFirst(threads []model.Thread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].Timestamp.After(threads[j].Timestamp)
	})
}
