package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// dialHub stands up a handshake server, connects through it and returns
// both ends: the external websocket and the internal Client the hub sees.
func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, *Client, func()) {
	t.Helper()

	var internalClient *Client
	var created sync.WaitGroup
	created.Add(1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		client := &Client{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 256),
		}
		internalClient = client
		created.Done()

		go client.writePump()
		go client.readPump()
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	created.Wait()

	cleanup := func() {
		server.Close()
		ws.Close()
	}
	return ws, internalClient, cleanup
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	ws1, client1, cleanup1 := dialHub(t, hub)
	defer cleanup1()
	ws2, client2, cleanup2 := dialHub(t, hub)
	defer cleanup2()

	hub.register <- client1
	hub.register <- client2
	time.Sleep(50 * time.Millisecond)

	msg := []byte(`{"type":"list.like_toggled"}`)
	hub.broadcast <- msg

	for _, ws := range []*websocket.Conn{ws1, ws2} {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
		_, received, err := ws.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, string(msg), string(received))
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	_, client, cleanup := dialHub(t, hub)
	defer cleanup()

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for send channel close")
	}
}

func TestRedisSubscriberRelaysToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hub := NewHub()
	go hub.Run()

	srv := NewServer(hub, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.RunRedisSubscriber(ctx)

	ws, client, cleanup := dialHub(t, hub)
	defer cleanup()

	hub.register <- client
	time.Sleep(100 * time.Millisecond)

	event, _ := json.Marshal(map[string]any{"type": "entry.added"})
	require.NoError(t, rdb.Publish(ctx, "broadcast", string(event)).Err())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, received, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(event), string(received))
}
