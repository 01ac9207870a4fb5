package websocket

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"taskflow/internal/models"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) (models.TaskEvent, bool) {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if !ok {
			return models.TaskEvent{}, false
		}
		var event models.TaskEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		return event, true
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.TaskEvent{}, false
	}
}

func TestHubPublishesToOwnerOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	alice := NewClient("alice", nil)
	aliceTab := NewClient("alice", nil)
	bob := NewClient("bob", nil)
	hub.Register(alice)
	hub.Register(aliceTab)
	hub.Register(bob)

	hub.Publish("alice", models.TaskEvent{Type: models.EventTaskCreated, TaskID: "t1"})

	for _, c := range []*Client{alice, aliceTab} {
		event, ok := receive(t, c)
		require.True(t, ok)
		assert.Equal(t, models.EventTaskCreated, event.Type)
		assert.Equal(t, "t1", event.TaskID)
	}

	// Publish berikutnya ke bob membuktikan event alice tidak pernah masuk ke bob.
	hub.Publish("bob", models.TaskEvent{Type: models.EventTaskDeleted, TaskID: "t2"})
	event, ok := receive(t, bob)
	require.True(t, ok)
	assert.Equal(t, "t2", event.TaskID)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient("alice", nil)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	_, ok := receive(t, c)
	assert.False(t, ok)
}

func TestHubDropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	c := NewClient("alice", nil)
	marker := NewClient("bob", nil)
	hub.Register(c)
	hub.Register(marker)
	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish("alice", models.TaskEvent{Type: models.EventTaskUpdated})
	}
	// Antrian broadcast FIFO: event bob sampai berarti semua event alice sudah diproses.
	hub.Publish("bob", models.TaskEvent{Type: models.EventTaskUpdated})
	_, ok := receive(t, marker)
	require.True(t, ok)

	received := 0
	for {
		if _, ok := receive(t, c); !ok {
			break
		}
		received++
	}
	assert.Equal(t, sendBuffer, received)
}

func TestHubStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := NewClient("alice", nil)
	hub.Register(c)
	cancel()
	<-stopped

	_, ok := receive(t, c)
	assert.False(t, ok)

	late := NewClient("bob", nil)
	hub.Register(late)
	_, ok = receive(t, late)
	assert.False(t, ok)
	hub.Unregister(late)
}

// serveBoard menjalankan ServeClient di balik upgrade fiber sungguhan dan
// mengembalikan koneksi client serta channel yang ditutup saat ServeClient selesai.
func serveBoard(t *testing.T, hub *Hub, ownerID string) (*fastws.Conn, <-chan struct{}) {
	t.Helper()
	served := make(chan struct{})
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.ServeClient(ownerID, c)
		close(served)
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, served
}

func TestServeClientClosesSocketWhenSendCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	conn, served := serveBoard(t, hub, "alice")

	events := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case events <- msg:
			default:
			}
		}
	}()

	// Register berjalan async; publish ulang sampai event pertama sampai.
	require.Eventually(t, func() bool {
		hub.Publish("alice", models.TaskEvent{Type: models.EventTaskCreated, TaskID: "t1"})
		select {
		case <-events:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	// Hub berhenti dan menutup send setiap client, sama seperti saat client lambat diputus.
	cancel()

	select {
	case err := <-readErr:
		assert.True(t, fastws.IsCloseError(err, fastws.CloseTryAgainLater), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("socket stayed open after its send channel closed")
	}
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeClient did not return")
	}
}

func TestServeClientReturnsWhenPeerDisconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	conn, served := serveBoard(t, hub, "alice")
	require.NoError(t, conn.WriteMessage(fastws.CloseMessage,
		fastws.FormatCloseMessage(fastws.CloseNormalClosure, "bye")))
	require.NoError(t, conn.Close())

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("ServeClient did not return")
	}
}
