package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/model"
	"threadx/internal/observability"
	"threadx/internal/repository"
)

// alertPusher is what the other stores need to notify a user.
type alertPusher interface {
	Push(ctx context.Context, recipientID string, alert model.Alert) error
}

// NotificationService owns every recipient's alert feed.
type NotificationService struct {
	store  *kv.Store
	alerts repository.AlertRepository
	log    zerolog.Logger
	now    func() time.Time
}

func NewNotificationService(repos *repository.Repositories) *NotificationService {
	return &NotificationService{
		store:  repos.Store,
		alerts: repos.Alerts,
		log:    logger.New("NotificationService"),
		now:    time.Now,
	}
}

// Push prepends alert to the recipient's feed and evicts entries past
// model.MaxAlerts. Alerts a user would send to themselves are dropped.
func (s *NotificationService) Push(ctx context.Context, recipientID string, alert model.Alert) error {
	if !alert.Type.Valid() {
		return model.ErrInvalidAlertType
	}
	if recipientID == "" || alert.FromUserID == recipientID {
		return nil
	}
	if alert.ID == "" {
		alert.ID = model.NewID()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = s.now()
	}
	alert.Read = false

	err := s.store.Atomically(ctx, func(ctx context.Context) error {
		feed, err := s.alerts.List(ctx, recipientID)
		if err != nil {
			return err
		}
		feed = append([]model.Alert{alert}, feed...)
		return s.alerts.Save(ctx, recipientID, feed)
	})
	if err != nil {
		return err
	}

	observability.AlertsPushed.WithLabelValues(string(alert.Type)).Inc()
	s.log.Debug().
		Str("recipient", recipientID).
		Str("type", string(alert.Type)).
		Str("from", alert.FromUserID).
		Msg("alert pushed")
	return nil
}

// MarkRead marks one alert as read.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, alertID string) error {
	return s.update(ctx, recipientID, func(feed []model.Alert) ([]model.Alert, error) {
		for i := range feed {
			if feed[i].ID == alertID {
				feed[i].Read = true
				return feed, nil
			}
		}
		return nil, model.ErrAlertNotFound
	})
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	return s.update(ctx, recipientID, func(feed []model.Alert) ([]model.Alert, error) {
		for i := range feed {
			feed[i].Read = true
		}
		return feed, nil
	})
}

// Delete removes a single alert.
func (s *NotificationService) Delete(ctx context.Context, recipientID, alertID string) error {
	return s.update(ctx, recipientID, func(feed []model.Alert) ([]model.Alert, error) {
		for i := range feed {
			if feed[i].ID == alertID {
				return append(feed[:i], feed[i+1:]...), nil
			}
		}
		return nil, model.ErrAlertNotFound
	})
}

func (s *NotificationService) ClearAll(ctx context.Context, recipientID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		return s.alerts.Save(ctx, recipientID, []model.Alert{})
	})
}

// List returns the feed newest-first, optionally restricted to one type.
// An empty filter or "all" returns everything.
func (s *NotificationService) List(ctx context.Context, recipientID string, filterType model.AlertType) ([]model.Alert, error) {
	if filterType != "" && filterType != "all" && !filterType.Valid() {
		return nil, model.ErrInvalidAlertType
	}
	feed, err := s.alerts.List(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Alert, 0, len(feed))
	for _, a := range feed {
		if filterType == "" || filterType == "all" || a.Type == filterType {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	feed, err := s.alerts.List(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range feed {
		if !a.Read {
			n++
		}
	}
	return n, nil
}

func (s *NotificationService) update(ctx context.Context, recipientID string, fn func([]model.Alert) ([]model.Alert, error)) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		feed, err := s.alerts.List(ctx, recipientID)
		if err != nil {
			return err
		}
		feed, err = fn(feed)
		if err != nil {
			return err
		}
		return s.alerts.Save(ctx, recipientID, feed)
	})
}
