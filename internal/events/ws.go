//
//
package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is token-authenticated; origin checks stay with the proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClient is one WebSocket subscriber. The events channel is never
// closed; closing done releases the writer instead, so a racing publish
// can never hit a closed channel.
type wsClient struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// ServeWS upgrades the request and streams the same event envelopes the
// SSE endpoint carries, as JSON text frames.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &wsClient{conn: conn, events: make(chan Event, 100), done: make(chan struct{})}

	h.mu.Lock()
	if h.wsClients == nil {
		h.wsClients = make(map[*wsClient]struct{})
	}
	h.wsClients[c] = struct{}{}
	if h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	h.wg.Add(1)
	go h.writeWS(c)
	h.readWS(c)
	return nil
}

// readWS discards inbound frames; its only job is to notice the close.
func (h *Hub) readWS(c *wsClient) {
	defer h.unregisterWS(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeWS(c *wsClient) {
	defer h.wg.Done()
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-c.done:
			return
		case event := <-c.events:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) publishWS(event Event) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.wsClients))
	for c := range h.wsClients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			// slow client, drop
		}
	}
}

func (h *Hub) closeWS() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.wsClients))
	for c := range h.wsClients {
		clients = append(clients, c)
	}
	h.wsClients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) unregisterWS(c *wsClient) {
	h.mu.Lock()
	delete(h.wsClients, c)
	if len(h.clients) == 0 && len(h.wsClients) == 0 && h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
	h.mu.Unlock()
	c.close()
}
