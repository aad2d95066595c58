//
//
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/vehicle"
)

// Event types.
const (
	TypeReady               = "ready"
	TypeHeartbeat           = "heartbeat"
	TypeTelemetry           = "telemetry"
	TypeVehicleDiscovered   = "vehicleDiscovered"
	TypeVehicleDisconnected = "vehicleDisconnected"
	TypeUploadProgress      = "uploadProgress"
	TypeUploadResult        = "uploadResult"
	TypeSafetyAlert         = "safetyAlert"
	TypeEmergencyTriggered  = "emergencyTriggered"
)

// Event is one hub event. VehicleID 0 marks a global event.
type Event struct {
	ID        int64          `json:"id,omitempty"`
	Type      string         `json:"type"`
	VehicleID int            `json:"vehicleId,omitempty"`
	Data      map[string]any `json:"data"`
}

// Config carries the hub tunables.
type Config struct {
	// BufferSize is the per-vehicle replay buffer capacity.
	BufferSize int
	// HeartbeatInterval paces keepalive frames while clients are
	// connected.
	HeartbeatInterval time.Duration
}

// client is one SSE subscriber.
type client struct {
	id      string
	writer  http.ResponseWriter
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan Event
	once    sync.Once
	writeMu sync.Mutex
}

// Hub distributes events to subscribers with per-vehicle buffering.
//
// Lock ordering: h.mu before any eventBuffer.mu. Buffers are never removed
// from the map, so a reference taken under h.mu stays valid after release.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*client
	wsClients map[*wsClient]struct{}
	counters  map[int]*int64
	buffers   map[int]*eventBuffer
	cfg       Config

	heartbeatTicker *time.Ticker
	stopHeartbeat   chan struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates an event hub.
func NewHub(cfg Config) *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		counters: make(map[int]*int64),
		buffers:  make(map[int]*eventBuffer),
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Subscribe streams events to an SSE client until it disconnects.
// A Last-Event-ID header replays the missed tail of the buffer for the
// vehicle named in the "vehicle" query parameter.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)
	c := &client{
		id:     fmt.Sprintf("client_%d", time.Now().UnixNano()),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
		events: make(chan Event, 100),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	first := len(h.clients) == 1
	h.mu.Unlock()

	if err := h.writeEvent(c, Event{Type: TypeReady, Data: map[string]any{
		"ts": time.Now().UTC().Format(time.RFC3339),
	}}); err != nil {
		h.unregister(c.id)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		lastID, err := strconv.ParseInt(lastIDStr, 10, 64)
		vehicleID, verr := strconv.Atoi(r.URL.Query().Get("vehicle"))
		if err == nil && verr == nil {
			if rerr := h.replay(c, vehicleID, lastID); rerr != nil {
				h.unregister(c.id)
				return fmt.Errorf("failed to replay events: %w", rerr)
			}
		}
	}

	if first {
		h.mu.Lock()
		if h.heartbeatTicker == nil {
			h.startHeartbeat()
		}
		h.mu.Unlock()
	}

	h.serveClient(c)
	return nil
}

// Publish assigns a monotonic per-vehicle id, buffers the event, and
// fans it out. A slow client drops the event rather than blocking the
// publisher.
func (h *Hub) Publish(event Event) {
	if event.ID == 0 {
		event.ID = h.nextID(event.VehicleID)
	}
	if event.VehicleID != 0 {
		h.buffer(event)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case <-c.ctx.Done():
		case <-h.done:
			return
		case c.events <- event:
		case <-time.After(100 * time.Millisecond):
			// slow client, drop
		}
	}

	h.publishWS(event)
}

func (h *Hub) nextID(vehicleID int) int64 {
	h.mu.RLock()
	counter, ok := h.counters[vehicleID]
	h.mu.RUnlock()
	if !ok {
		h.mu.Lock()
		counter, ok = h.counters[vehicleID]
		if !ok {
			counter = new(int64)
			h.counters[vehicleID] = counter
		}
		h.mu.Unlock()
	}
	return atomic.AddInt64(counter, 1)
}

func (h *Hub) buffer(event Event) {
	h.mu.Lock()
	buf, ok := h.buffers[event.VehicleID]
	if !ok {
		buf = newEventBuffer(h.cfg.BufferSize)
		h.buffers[event.VehicleID] = buf
	}
	h.mu.Unlock()
	buf.add(event)
}

func (h *Hub) replay(c *client, vehicleID int, lastID int64) error {
	h.mu.RLock()
	buf, ok := h.buffers[vehicleID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	for _, event := range buf.after(lastID) {
		if err := h.writeEvent(c, event); err != nil {
			return err
		}
	}
	return nil
}

// writeEvent formats one event as an SSE frame and flushes it.
func (h *Hub) writeEvent(c *client, event Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(c.writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event id: %w", err)
		}
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.writer, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}
	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (h *Hub) serveClient(c *client) {
	defer func() {
		c.once.Do(func() { close(c.events) })
		h.unregister(c.id)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case event, ok := <-c.events:
			if !ok {
				return
			}
			if err := h.writeEvent(c, event); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	c.cancel()
	delete(h.clients, clientID)

	if len(h.clients) == 0 && len(h.wsClients) == 0 && h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
}

// startHeartbeat must be called with h.mu held and heartbeatTicker nil.
func (h *Hub) startHeartbeat() {
	h.heartbeatTicker = time.NewTicker(h.cfg.HeartbeatInterval)
	h.stopHeartbeat = make(chan struct{})

	ticker := h.heartbeatTicker
	stop := h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{Type: TypeHeartbeat, Data: map[string]any{
					"ts": time.Now().UTC().Format(time.RFC3339),
				}})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// Stop shuts the hub down and disconnects every subscriber.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	for _, c := range h.clients {
		c.cancel()
	}
	if h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
	}
	if h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
	h.mu.Unlock()

	h.closeWS()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// Typed publish helpers. These satisfy the notification ports of the
// transport, mission, and safety packages.

// VehicleDiscovered publishes a discovery event with the first snapshot.
func (h *Hub) VehicleDiscovered(snap vehicle.Snapshot) {
	h.Publish(Event{Type: TypeVehicleDiscovered, VehicleID: snap.ID,
		Data: map[string]any{"vehicle": snap}})
}

// VehicleChanged publishes a telemetry update.
func (h *Hub) VehicleChanged(snap vehicle.Snapshot) {
	h.Publish(Event{Type: TypeTelemetry, VehicleID: snap.ID,
		Data: map[string]any{"vehicle": snap}})
}

// VehicleDisconnected publishes a connection-loss event.
func (h *Hub) VehicleDisconnected(vehicleID int) {
	h.Publish(Event{Type: TypeVehicleDisconnected, VehicleID: vehicleID,
		Data: map[string]any{}})
}

// UploadProgress publishes a mission upload progress stage.
func (h *Hub) UploadProgress(vehicleID int, stage string, percent float64) {
	h.Publish(Event{Type: TypeUploadProgress, VehicleID: vehicleID,
		Data: map[string]any{"stage": stage, "percent": percent}})
}

// UploadResult publishes a terminal mission upload outcome.
func (h *Hub) UploadResult(vehicleID int, success bool, detail string) {
	h.Publish(Event{Type: TypeUploadResult, VehicleID: vehicleID,
		Data: map[string]any{"success": success, "detail": detail}})
}

// SafetyAlert publishes a safety violation.
func (h *Hub) SafetyAlert(alert safety.Alert) {
	h.Publish(Event{Type: TypeSafetyAlert, VehicleID: alert.VehicleID,
		Data: map[string]any{"alert": alert}})
}

// EmergencyTriggered publishes an emergency action announcement.
func (h *Hub) EmergencyTriggered(action, scope string) {
	h.Publish(Event{Type: TypeEmergencyTriggered,
		Data: map[string]any{"action": action, "scope": scope}})
}

// eventBuffer is a bounded ring of recent events for one vehicle.
type eventBuffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

func newEventBuffer(capacity int) *eventBuffer {
	return &eventBuffer{events: make([]Event, 0, capacity), capacity: capacity}
}

func (b *eventBuffer) add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[1:]
	}
}

func (b *eventBuffer) after(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, event := range b.events {
		if event.ID > lastID {
			out = append(out, event)
		}
	}
	return out
}
