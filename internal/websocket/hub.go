// Package websocket mengirim event perubahan task ke board milik user secara realtime.
package websocket

import (
	"context"
	"encoding/json"
	"time"

	"taskflow/internal/models"
	"taskflow/pkg/logger"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	sendBuffer      = 16
	broadcastBuffer = 256
	closeWait       = time.Second
)

// Client merepresentasikan satu koneksi board milik OwnerID.
type Client struct {
	OwnerID string
	Conn    *websocket.Conn
	send    chan []byte
}

func NewClient(ownerID string, conn *websocket.Conn) *Client {
	return &Client{OwnerID: ownerID, Conn: conn, send: make(chan []byte, sendBuffer)}
}

type message struct {
	ownerID string
	payload []byte
}

// Hub mengelola koneksi WebSocket per owner. Semua state hanya disentuh oleh
// goroutine Run.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run menjalankan loop Hub sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, set := range h.clients {
			for client := range set {
				close(client.send)
			}
		}
		h.clients = map[string]map[*Client]bool{}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			set, ok := h.clients[client.OwnerID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.OwnerID] = set
			}
			set[client] = true
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for client := range h.clients[msg.ownerID] {
				select {
				case client.send <- msg.payload:
				default:
					// Client terlalu lambat, putuskan.
					logger.SystemLogger.Warn("Dropping slow websocket client", zap.String("user_id", client.OwnerID))
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.OwnerID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.OwnerID)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every board connection of ownerID. It never
// blocks a request: when the queue is full the event is dropped.
func (h *Hub) Publish(ownerID string, event models.TaskEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{ownerID: ownerID, payload: payload}:
	default:
		logger.SystemLogger.Warn("Websocket broadcast queue full", zap.String("event", event.Type))
	}
}

// ServeClient mendaftarkan koneksi dan memblok sampai koneksi ditutup.
// Pesan dari client diabaikan; board hanya menerima event.
func (h *Hub) ServeClient(ownerID string, conn *websocket.Conn) {
	client := NewClient(ownerID, conn)
	h.Register(client)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Unregister(client)
				// Kosongkan channel sampai Hub menutupnya.
				for range client.send {
				}
				return
			}
		}
		// send ditutup Hub (client lambat, unregister, atau Hub berhenti).
		// Tutup socket supaya loop baca di bawah selesai dan browser reconnect.
		_ = conn.WriteControl(fastws.CloseMessage,
			fastws.FormatCloseMessage(fastws.CloseTryAgainLater, "reconnect"),
			time.Now().Add(closeWait))
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.Unregister(client)
	<-writerDone
}
