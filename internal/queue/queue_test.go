package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadx/internal/kv"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewChangeEvent(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	event := NewChangeEvent(kv.Change{
		Op:     kv.OpSet,
		Key:    kv.FollowersKey("u1"),
		Family: kv.Family(kv.FollowersKey("u1")),
		At:     at,
	}, "node-a")

	assert.Equal(t, "set", event.Op)
	assert.Equal(t, "followers", event.Family)
	assert.Equal(t, "u1", event.Owner)
	assert.Equal(t, "node-a", event.Origin)
	assert.Equal(t, int64(1700000000123), event.Timestamp)

	shared := NewChangeEvent(kv.Change{Op: kv.OpRemove, Key: kv.KeyThreads}, "node-a")
	assert.Empty(t, shared.Owner)
	assert.NotZero(t, shared.Timestamp)
}

func TestParseChangeEvent_Rejects(t *testing.T) {
	_, err := ParseChangeEvent(map[string]interface{}{"family": "threads"})
	assert.Error(t, err)
	_, err = ParseChangeEvent(map[string]interface{}{"data": "{nope"})
	assert.Error(t, err)
	_, err = ParseChangeEvent(map[string]interface{}{"data": `{"op":"set"}`})
	assert.Error(t, err)
}

func TestPublishReadAck(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	pub := NewPublisher(client)
	cons := NewConsumer(client)
	group := GroupFor("node-b")

	require.NoError(t, cons.EnsureGroup(ctx, StreamChanges, group))
	require.NoError(t, cons.EnsureGroup(ctx, StreamChanges, group), "existing group is fine")

	want := ChangeEvent{Op: "set", Key: kv.KeyThreads, Family: "threads", Origin: "node-a", Timestamp: 42}
	id, err := pub.Publish(ctx, StreamChanges, want)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := cons.Read(ctx, StreamChanges, group, "worker-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, want, msgs[0].Event)

	pending, err := cons.Pending(ctx, StreamChanges, group)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	again, err := cons.ReadPending(ctx, StreamChanges, group, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, again, 1, "unacked messages are redelivered")

	require.NoError(t, cons.Ack(ctx, StreamChanges, group, id))
	pending, err = cons.Pending(ctx, StreamChanges, group)
	require.NoError(t, err)
	assert.Zero(t, pending)

	msgs, err = cons.Read(ctx, StreamChanges, group, "worker-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMalformedMessagesAreAcked(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cons := NewConsumer(client)
	group := GroupFor("node-b")
	require.NoError(t, cons.EnsureGroup(ctx, StreamChanges, group))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamChanges,
		Values: map[string]interface{}{"data": "garbage"},
	}).Err())

	msgs, err := cons.Read(ctx, StreamChanges, group, "worker-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	pending, err := cons.Pending(ctx, StreamChanges, group)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRelayForwardsStoreChanges(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cons := NewConsumer(client)
	group := GroupFor("node-b")
	require.NoError(t, cons.EnsureGroup(ctx, StreamChanges, group))

	store := kv.NewStore(kv.NewMemoryBackend())
	defer store.Close()
	relay := NewRelay(NewPublisher(client), "node-a", 8)
	store.OnChange(relay.Listener())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.NoError(t, store.Set(ctx, kv.KeyThreads, []string{}))
	require.NoError(t, store.Remove(ctx, kv.AlertsKey("u9")))

	var got []Message
	require.Eventually(t, func() bool {
		msgs, err := cons.Read(ctx, StreamChanges, group, "worker-1", 10, 10*time.Millisecond)
		if err != nil {
			return false
		}
		got = append(got, msgs...)
		return len(got) == 2
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, kv.KeyThreads, got[0].Event.Key)
	assert.Equal(t, "node-a", got[0].Event.Origin)
	assert.Equal(t, "remove", got[1].Event.Op)
	assert.Equal(t, "u9", got[1].Event.Owner)

	cancel()
	assert.NoError(t, <-done)
}

func TestRelayDropsWhenFull(t *testing.T) {
	relay := NewRelay(nil, "node-a", 1)
	listener := relay.Listener()

	listener(kv.Change{Op: kv.OpSet, Key: "a"})
	listener(kv.Change{Op: kv.OpSet, Key: "b"})

	assert.Len(t, relay.events, 1)
	assert.Equal(t, "a", (<-relay.events).Key)
}
