package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"threadx/internal/logger"
)

const (
	// ChangeLogPrefix is the key prefix for per-user change logs
	ChangeLogPrefix = "changes:user:"

	// ChangeLogGlobal holds changes to shared keys (users, threads, ...)
	ChangeLogGlobal = "changes:global"

	// ChangeLogCap is the maximum number of keys remembered per log
	ChangeLogCap = 500

	// ChangeLogTTL is the TTL of an idle change log (7 days)
	ChangeLogTTL = 7 * 24 * time.Hour
)

// KeyChange is a store key with the time of its latest write.
type KeyChange struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// ChangeLog remembers which store keys changed and when, so a view that
// was disconnected can ask what to reload instead of reloading everything.
type ChangeLog interface {
	// Record notes a write to key. owner is the user a per-user key
	// belongs to, or empty for shared keys. Repeated writes keep the
	// latest time.
	Record(ctx context.Context, owner, key string, at int64) error

	// Since returns keys written after since, newest first, from the
	// owner's log and the shared log.
	Since(ctx context.Context, owner string, since int64, limit int) ([]KeyChange, error)

	// Size returns the number of keys in the owner's log.
	Size(ctx context.Context, owner string) (int64, error)
}

// RedisChangeLog implements ChangeLog using Redis Sorted Sets scored by
// write time.
type RedisChangeLog struct {
	client    *redis.Client
	namespace string
	log       zerolog.Logger
}

func NewChangeLog(client *redis.Client, namespace string) *RedisChangeLog {
	return &RedisChangeLog{client: client, namespace: namespace, log: logger.New("ChangeLog")}
}

func (c *RedisChangeLog) logKey(owner string) string {
	key := ChangeLogGlobal
	if owner != "" {
		key = ChangeLogPrefix + owner
	}
	if c.namespace != "" {
		key = c.namespace + ":" + key
	}
	return key
}

// Record uses a pipeline: ZADD + ZREMRANGEBYRANK (trim to cap) + EXPIRE.
func (c *RedisChangeLog) Record(ctx context.Context, owner, key string, at int64) error {
	logKey := c.logKey(owner)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, logKey, redis.Z{Score: float64(at), Member: key})
	// rank 0 is the oldest; keep the newest ChangeLogCap
	pipe.ZRemRangeByRank(ctx, logKey, 0, int64(-ChangeLogCap-1))
	pipe.Expire(ctx, logKey, ChangeLogTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record change: %w", err)
	}
	c.log.Debug().Str("log", logKey).Str("key", key).Int64("at", at).Msg("change recorded")
	return nil
}

func (c *RedisChangeLog) Since(ctx context.Context, owner string, since int64, limit int) ([]KeyChange, error) {
	if limit <= 0 {
		limit = ChangeLogCap
	}
	logs := []string{c.logKey("")}
	if owner != "" {
		logs = append(logs, c.logKey(owner))
	}

	var out []KeyChange
	for _, logKey := range logs {
		results, err := c.client.ZRevRangeByScoreWithScores(ctx, logKey, &redis.ZRangeBy{
			Min:   "(" + strconv.FormatInt(since, 10), // exclusive
			Max:   "+inf",
			Count: int64(limit),
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("read change log: %w", err)
		}
		for _, z := range results {
			member, ok := z.Member.(string)
			if !ok {
				continue
			}
			out = append(out, KeyChange{Key: member, Timestamp: int64(z.Score)})
		}
	}

	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *RedisChangeLog) Size(ctx context.Context, owner string) (int64, error) {
	n, err := c.client.ZCard(ctx, c.logKey(owner)).Result()
	if err != nil {
		return 0, fmt.Errorf("change log size: %w", err)
	}
	return n, nil
}

func sortNewestFirst(changes []KeyChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Timestamp > changes[j].Timestamp
	})
}
