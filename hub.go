/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/scorebox/game"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Messages sent to websocket clients
type StateMessage struct {
	Type  string        `json:"type"` // "state"
	State game.Snapshot `json:"state"`
}

// ClosedMessage tells clients that their room is gone (reset or expired).
type ClosedMessage struct {
	Type string `json:"type"` // "closed"
}

type Client struct {
	conn *websocket.Conn
	send chan any
	once sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans room snapshots out to every websocket watching that room. It
// implements game.Notifier.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Client]struct{}
	logger *log.Logger
}

func newHub(logger *log.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger.With("component", "hub"),
	}
}

func (h *Hub) register(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[code]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[code] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[code]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, code)
		}
	}
	c.close()
}

// Publish queues snap for every client in the room. Clients that cannot keep up
// are disconnected rather than allowed to block the game.
func (h *Hub) Publish(code string, snap game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[code] {
		select {
		case c.send <- StateMessage{Type: "state", State: snap}:
		default:
			h.logger.Debug("Dropping slow client", "room", code)
			delete(h.rooms[code], c)
			c.close()
		}
	}
}

// Closed tells every client in the room that it is gone and disconnects them.
func (h *Hub) Closed(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[code] {
		select {
		case c.send <- ClosedMessage{Type: "closed"}:
		default:
		}
		c.close()
	}
	delete(h.rooms, code)
}

// leave closes c with a closed notice, unless the hub has already let it go.
func (h *Hub) leave(code string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.rooms[code]
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, code)
	}

	select {
	case c.send <- ClosedMessage{Type: "closed"}:
	default:
	}
	c.close()
}

func (h *Hub) count(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[code])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveWS streams the snapshots of the caller's room until the room closes or the
// client goes away.
func (a *app) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := a.sessions.fromRequest(w, r)

		snap, ok := a.svc.GetState(sess)
		if !ok {
			http.Error(w, "no active game", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Debug("Websocket upgrade failed", "error", err, "ip", realIP(r))
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		if a.attach(snap, client) {
			a.logger.Debug("Websocket connected", "room", snap.GameCode, "ip", realIP(r))
		}

		go client.writePump()
		client.readPump(a.hub, snap.GameCode)
	}
}

// attach queues snap for c and registers it with the room. A room reset or
// expired since snap was taken has already been closed by the hub, so c is told
// directly and false is returned.
func (a *app) attach(snap game.Snapshot, c *Client) bool {
	// Queue the current state before registering so it precedes any update.
	c.send <- StateMessage{Type: "state", State: snap}
	a.hub.register(snap.GameCode, c)

	if _, live := a.svc.Snapshot(snap.GameCode); !live {
		a.hub.leave(snap.GameCode, c)
		return false
	}

	return true
}

// readPump discards client input; it only exists to notice disconnects and pongs.
func (c *Client) readPump(h *Hub, code string) {
	defer h.unregister(code, c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
