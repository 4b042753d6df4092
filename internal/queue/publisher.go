package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"threadx/internal/kv"
	"threadx/internal/logger"
	"threadx/internal/observability"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event ChangeEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	maxLen int64
	log    zerolog.Logger
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		maxLen: DefaultStreamMaxLen,
		log:    logger.New("Publisher"),
	}
}

// Publish adds an event with XADD, trimming the stream approximately to
// its max length.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event ChangeEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		p.log.Error().Err(err).Str("stream", stream).Str("key", event.Key).Msg("publish failed")
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	observability.ChangeEventsTotal.WithLabelValues("published").Inc()
	p.log.Debug().
		Str("stream", stream).
		Str("key", event.Key).
		Str("op", event.Op).
		Str("msg_id", messageID).
		Dur("duration", time.Since(startTime)).
		Msg("publish ok")
	return messageID, nil
}

// Relay moves store changes onto the change stream. The store listener
// only enqueues; Run does the network writes so store writers never wait
// on Redis. When the buffer is full the change is dropped and counted.
type Relay struct {
	publisher Publisher
	origin    string
	events    chan ChangeEvent
	log       zerolog.Logger
}

// DefaultRelayBuffer is the number of changes held while Redis is slow.
const DefaultRelayBuffer = 1024

func NewRelay(publisher Publisher, origin string, buffer int) *Relay {
	if buffer <= 0 {
		buffer = DefaultRelayBuffer
	}
	return &Relay{
		publisher: publisher,
		origin:    origin,
		events:    make(chan ChangeEvent, buffer),
		log:       logger.New("Relay"),
	}
}

// Listener is registered with kv.Store.OnChange.
func (r *Relay) Listener() kv.Listener {
	return func(c kv.Change) {
		select {
		case r.events <- NewChangeEvent(c, r.origin):
		default:
			observability.ChangeEventsTotal.WithLabelValues("dropped").Inc()
			r.log.Warn().Str("key", c.Key).Msg("relay buffer full, change dropped")
		}
	}
}

// Run publishes queued changes until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-r.events:
			if _, err := r.publisher.Publish(ctx, StreamChanges, event); err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Str("key", event.Key).Msg("change not published")
			}
		}
	}
}
