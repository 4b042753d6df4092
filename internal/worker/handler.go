package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"threadx/internal/cache"
	"threadx/internal/logger"
	"threadx/internal/observability"
	"threadx/internal/queue"
)

// Broadcaster pushes a change to the views connected to this process.
type Broadcaster interface {
	Broadcast(event queue.ChangeEvent)
}

// Handler processes change events from the stream.
type Handler struct {
	broadcaster Broadcaster
	changeLog   cache.ChangeLog // Can be nil when no replay log is kept
	instance    string
	log         zerolog.Logger
}

// NewHandler creates a handler for instance. Changes made by instance
// itself already reached its views in-process and are not broadcast again.
func NewHandler(broadcaster Broadcaster, instance string) *Handler {
	return &Handler{
		broadcaster: broadcaster,
		instance:    instance,
		log:         logger.New("ChangeHandler"),
	}
}

// SetChangeLog enables the replay log (optional).
func (h *Handler) SetChangeLog(changeLog cache.ChangeLog) {
	h.changeLog = changeLog
}

// HandleEvent records the change and forwards changes from other
// instances to local subscribers.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ChangeEvent) error {
	startTime := time.Now()
	observability.ChangeEventsTotal.WithLabelValues("consumed").Inc()

	if event.Key == "" {
		return fmt.Errorf("change event without key")
	}

	if h.changeLog != nil {
		if err := h.changeLog.Record(ctx, event.Owner, event.Key, event.Timestamp); err != nil {
			return fmt.Errorf("record change: %w", err)
		}
	}

	if event.Origin != h.instance && h.broadcaster != nil {
		h.broadcaster.Broadcast(event)
		observability.ChangeEventsTotal.WithLabelValues("broadcast").Inc()
	}

	h.log.Debug().
		Str("key", event.Key).
		Str("op", event.Op).
		Str("origin", event.Origin).
		Dur("duration", time.Since(startTime)).
		Msg("change handled")
	return nil
}
