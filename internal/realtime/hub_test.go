package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadx/internal/kv"
	"threadx/internal/queue"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	srv := httptest.NewServer(hub.ServeWS(func(r *http.Request) string {
		return r.URL.Query().Get("user")
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no message expected")
}

func TestHub_RoutesByOwner(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(queue.ChangeEvent{Op: "set", Key: kv.KeyThreads, Family: "threads"})
	assert.Equal(t, kv.KeyThreads, readMessage(t, alice).Payload.Key)
	assert.Equal(t, kv.KeyThreads, readMessage(t, bob).Payload.Key)

	hub.Broadcast(queue.ChangeEvent{Op: "set", Key: kv.AlertsKey("alice"), Owner: "alice"})
	msg := readMessage(t, alice)
	assert.Equal(t, "change", msg.Type)
	assert.Equal(t, kv.AlertsKey("alice"), msg.Payload.Key)
	assertSilent(t, bob)
}

func TestHub_StoreListener(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	store := kv.NewStore(kv.NewMemoryBackend())
	defer store.Close()
	store.OnChange(hub.Listener("node-a"))

	require.NoError(t, store.Set(t.Context(), kv.FollowersKey("alice"), []string{"bob"}))

	msg := readMessage(t, alice)
	assert.Equal(t, "set", msg.Payload.Op)
	assert.Equal(t, "followers", msg.Payload.Family)
	assert.Equal(t, "node-a", msg.Payload.Origin)
}

func TestHub_RejectsAnonymous(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DisconnectAndClose(t *testing.T) {
	hub, srv := startHub(t)
	first := dial(t, srv, "alice")
	second := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Count())
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err, "the hub closes the connection")

	_, err = hub.Register("alice", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestClient_DropsWhenFull(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "alice")
	for i := 0; i < sendBuffer+3; i++ {
		c.trySend([]byte("x"))
	}
	assert.Len(t, c.send, sendBuffer)
}
