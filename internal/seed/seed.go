// Package seed fills a store with sample users, follow edges and threads
// for development and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/repository"
	"threadx/internal/service"
	"threadx/internal/session"
)

// DefaultPassword opens every seeded account.
const DefaultPassword = "password123"

// Options controls how much data is generated.
type Options struct {
	Users   int
	Threads int
	// MaxFollows bounds how many users each seeded user follows.
	MaxFollows int
	// MaxLikes bounds how many seeded users like each thread.
	MaxLikes int
	// PrivateRatio is the share of threads posted as private.
	PrivateRatio float64
	Password     string
	// Seed makes a run reproducible; 0 picks a fixed default.
	Seed int64
}

func DefaultOptions() Options {
	return Options{
		Users:        20,
		Threads:      60,
		MaxFollows:   6,
		MaxLikes:     30,
		PrivateRatio: 0.1,
		Password:     DefaultPassword,
		Seed:         1,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users   int `json:"users"`
	Follows int `json:"follows"`
	Threads int `json:"threads"`
	Likes   int `json:"likes"`
}

// Seeder generates data through the services so every store invariant
// holds for the result.
type Seeder struct {
	repos *repository.Repositories
	svcs  *service.Services
	faker *gofakeit.Faker
	rng   *rand.Rand
	log   zerolog.Logger
}

func NewSeeder(repos *repository.Repositories, svcs *service.Services, seed int64) *Seeder {
	if seed == 0 {
		seed = 1
	}
	return &Seeder{
		repos: repos,
		svcs:  svcs,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
		log:   logger.New("Seeder"),
	}
}

// Run creates opts.Users users, random follow edges and opts.Threads
// threads with likes. The installation session in place before the run
// is put back afterwards.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Users < 1 {
		return nil, errors.New("seed: at least one user is required")
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}

	prevUser, prevToken, err := s.repos.Sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: load session: %w", err)
	}

	sum := &Summary{}
	users, err := s.createUsers(ctx, opts, sum)
	if err == nil {
		err = s.createFollows(ctx, users, opts.MaxFollows, sum)
	}
	if err == nil {
		err = s.createThreads(ctx, users, opts, sum)
	}

	if restoreErr := s.restoreSession(ctx, prevUser, prevToken); restoreErr != nil && err == nil {
		err = restoreErr
	}
	if err != nil {
		return sum, err
	}

	s.log.Info().
		Int("users", sum.Users).
		Int("follows", sum.Follows).
		Int("threads", sum.Threads).
		Int("likes", sum.Likes).
		Msg("seed complete")
	return sum, nil
}

func (s *Seeder) createUsers(ctx context.Context, opts Options, sum *Summary) ([]model.User, error) {
	users := make([]model.User, 0, opts.Users)
	for len(users) < opts.Users {
		username := s.faker.Username() + strconv.Itoa(s.faker.Number(100, 999))
		u, err := s.svcs.Identity.Register(ctx, session.New(), model.RegisterRequest{
			Username: username,
			Email:    s.faker.Email(),
			Password: opts.Password,
			Location: s.faker.City(),
		})
		if errors.Is(err, model.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed: register %s: %w", username, err)
		}

		u.Bio = truncate(s.faker.Sentence(10), 160)
		if err := s.repos.Users.Update(ctx, *u); err != nil {
			return nil, fmt.Errorf("seed: update %s: %w", username, err)
		}
		users = append(users, *u)
		sum.Users++
	}
	return users, nil
}

func (s *Seeder) createFollows(ctx context.Context, users []model.User, maxFollows int, sum *Summary) error {
	if len(users) < 2 || maxFollows <= 0 {
		return nil
	}
	for _, u := range users {
		n := s.rng.Intn(maxFollows + 1)
		for i := 0; i < n; i++ {
			target := users[s.rng.Intn(len(users))]
			if target.ID == u.ID {
				continue
			}
			err := s.svcs.Follows.Follow(ctx, u.ID, target.ID)
			if errors.Is(err, model.ErrAlreadyFollowing) {
				continue
			}
			if err != nil {
				return fmt.Errorf("seed: follow: %w", err)
			}
			sum.Follows++
		}
	}
	return nil
}

func (s *Seeder) createThreads(ctx context.Context, users []model.User, opts Options, sum *Summary) error {
	relevance := make(map[string]float64, opts.Threads)
	for i := 0; i < opts.Threads; i++ {
		author := users[s.rng.Intn(len(users))]
		t, err := s.svcs.Threads.CreateThread(ctx, author, model.CreateThreadRequest{
			Content: truncate(s.faker.HackerPhrase()+" "+s.faker.Sentence(8), model.MaxThreadLength),
			Privacy: model.Privacy{IsPrivate: s.rng.Float64() < opts.PrivateRatio},
		})
		if err != nil {
			return fmt.Errorf("seed: thread: %w", err)
		}
		sum.Threads++
		relevance[t.ID] = 1 + s.rng.Float64()*(model.DefaultRelevance-1)

		likes := 0
		if opts.MaxLikes > 0 {
			likes = s.rng.Intn(min(opts.MaxLikes, len(users)) + 1)
		}
		for _, j := range s.rng.Perm(len(users))[:likes] {
			_, err := s.svcs.Threads.LikeThread(ctx, users[j], t.ID)
			if errors.Is(err, model.ErrNotFound) {
				// private thread the liker cannot see
				continue
			}
			if err != nil {
				return fmt.Errorf("seed: like: %w", err)
			}
			sum.Likes++
		}
	}
	return s.applyRelevance(ctx, relevance)
}

// applyRelevance gives seeded threads a spread of relevance scores so the
// query ordering has something to rank.
func (s *Seeder) applyRelevance(ctx context.Context, relevance map[string]float64) error {
	return s.repos.Store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.repos.Threads.List(ctx)
		if err != nil {
			return err
		}
		for i := range threads {
			if r, ok := relevance[threads[i].ID]; ok {
				threads[i].Relevance = r
			}
		}
		return s.repos.Threads.SaveAll(ctx, threads)
	})
}

func (s *Seeder) restoreSession(ctx context.Context, user *model.User, token string) error {
	if user == nil {
		return s.repos.Sessions.Clear(ctx)
	}
	return s.repos.Sessions.Save(ctx, *user, token)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
