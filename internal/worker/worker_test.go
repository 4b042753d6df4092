package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadx/internal/cache"
	"threadx/internal/queue"
	"threadx/internal/worker"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []queue.ChangeEvent
}

func (b *recordingBroadcaster) Broadcast(event queue.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Key)
	}
	return out
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() worker.ManagerConfig {
	return worker.ManagerConfig{
		Instance:     "node-b",
		WorkerCount:  2,
		BatchSize:    5,
		BlockTimeout: 20 * time.Millisecond,
	}
}

func TestHandler_SkipsOwnChanges(t *testing.T) {
	b := &recordingBroadcaster{}
	h := worker.NewHandler(b, "node-b")
	ctx := context.Background()

	require.NoError(t, h.HandleEvent(ctx, queue.ChangeEvent{Key: "threadx_threads", Origin: "node-a"}))
	require.NoError(t, h.HandleEvent(ctx, queue.ChangeEvent{Key: "threadx_users", Origin: "node-b"}))
	assert.Error(t, h.HandleEvent(ctx, queue.ChangeEvent{Origin: "node-a"}))

	assert.Equal(t, []string{"threadx_threads"}, b.keys())
}

func TestManager_ForwardsForeignChanges(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &recordingBroadcaster{}
	changeLog := cache.NewChangeLog(client, "")
	handler := worker.NewHandler(b, "node-b")
	handler.SetChangeLog(changeLog)
	consumer := queue.NewConsumer(client)
	manager := worker.NewManager(consumer, handler, testConfig())
	require.NoError(t, manager.Start(ctx))

	pub := queue.NewPublisher(client)
	_, err := pub.Publish(ctx, queue.StreamChanges, queue.ChangeEvent{
		Op: "set", Key: "threadx_alerts_u1", Owner: "u1", Origin: "node-a", Timestamp: 10,
	})
	require.NoError(t, err)
	_, err = pub.Publish(ctx, queue.StreamChanges, queue.ChangeEvent{
		Op: "set", Key: "threadx_threads", Origin: "node-b", Timestamp: 20,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := changeLog.Size(ctx, "")
		return err == nil && n == 1 && len(b.keys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	manager.Stop()

	assert.Equal(t, []string{"threadx_alerts_u1"}, b.keys())

	changes, err := changeLog.Since(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, changes, 2, "own and foreign changes are both logged")

	pending, err := consumer.Pending(context.Background(), queue.StreamChanges, queue.GroupFor("node-b"))
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestManager_RecoversPendingMessages(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := queue.NewConsumer(client)
	group := queue.GroupFor("node-b")
	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamChanges, group))

	_, err := queue.NewPublisher(client).Publish(ctx, queue.StreamChanges, queue.ChangeEvent{
		Op: "remove", Key: "following_u2", Owner: "u2", Origin: "node-a", Timestamp: 5,
	})
	require.NoError(t, err)

	// a previous run read the message as worker-1 and died before acking
	msgs, err := consumer.Read(ctx, queue.StreamChanges, group, "worker-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	b := &recordingBroadcaster{}
	manager := worker.NewManager(consumer, worker.NewHandler(b, "node-b"), testConfig())
	require.NoError(t, manager.Start(ctx))

	require.Eventually(t, func() bool {
		return len(b.keys()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	manager.Stop()

	pending, err := consumer.Pending(context.Background(), queue.StreamChanges, group)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	manager := worker.NewManager(queue.NewConsumer(client), worker.NewHandler(nil, "node-b"), testConfig())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}
