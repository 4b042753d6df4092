package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"threadx/internal/kv"
)

// Stream names
const (
	StreamChanges = "stream:changes"
)

// ConsumerGroupChanges prefixes the per-instance consumer group. Each
// instance reads the whole stream through its own group.
const (
	ConsumerGroupChanges = "change_watchers"
)

// DefaultStreamMaxLen bounds the stream; older entries are trimmed.
const DefaultStreamMaxLen = 10000

// ChangeEvent is one completed store write as it travels between
// processes sharing a backend.
type ChangeEvent struct {
	Op     string `json:"op"` // kv.OpSet or kv.OpRemove
	Key    string `json:"key"`
	Family string `json:"family"`
	// Owner is the user a per-user key belongs to; empty for shared keys.
	Owner string `json:"owner,omitempty"`
	// Origin is the instance that made the write.
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// NewChangeEvent converts a store change made by origin.
func NewChangeEvent(c kv.Change, origin string) ChangeEvent {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	return ChangeEvent{
		Op:        string(c.Op),
		Key:       c.Key,
		Family:    c.Family,
		Owner:     kv.Owner(c.Key),
		Origin:    origin,
		Timestamp: at.UnixMilli(),
	}
}

// GroupFor returns the consumer group of an instance.
func GroupFor(instance string) string {
	return ConsumerGroupChanges + ":" + instance
}

// ToMap converts the event to XADD field-value pairs. The event is kept
// whole as JSON in "data".
func (e ChangeEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"family": e.Family,
		"data":   string(data),
	}, nil
}

// ParseChangeEvent parses a ChangeEvent from Redis stream message values.
func ParseChangeEvent(values map[string]interface{}) (ChangeEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ChangeEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ChangeEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Key == "" {
		return ChangeEvent{}, fmt.Errorf("event without key")
	}
	return event, nil
}
