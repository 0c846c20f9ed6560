package stream

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"govtoken-lab/internal/domain"
)

// HubConfig configures the websocket event hub.
type HubConfig struct {
	// WriteTimeout is timeout for writing a frame to one subscriber.
	WriteTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// SendBuffer is the per-subscriber event buffer. A subscriber that
	// falls this far behind is dropped.
	SendBuffer int
	// History is how many recent events a new subscriber receives on
	// connect. Zero disables replay.
	History int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   256,
		History:      64,
	}
}

// Hub fans emitted events out to websocket subscribers. It implements
// domain.EventSink, so it can sit directly behind the token and treasury.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	history []domain.Event
	emitted atomic.Uint64

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type subscriber struct {
	conn *websocket.Conn
	send chan domain.Event
	once sync.Once
}

// NewHub creates a hub. A nil config uses defaults.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[stream] ", log.LstdFlags)
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
		done:   make(chan struct{}),
	}
}

// Emit implements domain.EventSink. Slow subscribers are dropped rather
// than blocking the emitter.
func (h *Hub) Emit(e domain.Event) {
	if h.closed.Load() {
		return
	}
	h.emitted.Add(1)

	h.mu.Lock()
	if h.config.History > 0 {
		h.history = append(h.history, e)
		if len(h.history) > h.config.History {
			h.history = h.history[len(h.history)-h.config.History:]
		}
	}
	var stale []*subscriber
	for sub := range h.subs {
		select {
		case sub.send <- e:
		default:
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range stale {
		h.logger.Printf("dropping slow subscriber %s", sub.conn.RemoteAddr())
		sub.close()
	}
}

// EventsEmitted returns the total number of events the hub has seen.
func (h *Hub) EventsEmitted() uint64 {
	return h.emitted.Load()
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request to a websocket and streams events until
// the client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan domain.Event, h.config.SendBuffer),
	}

	h.mu.Lock()
	replay := make([]domain.Event, len(h.history))
	copy(replay, h.history)
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	for _, e := range replay {
		select {
		case sub.send <- e:
		default:
		}
	}

	h.wg.Add(2)
	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// writeLoop pushes events and pings to one subscriber.
func (h *Hub) writeLoop(sub *subscriber) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteJSON(e); err != nil {
				h.remove(sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		case <-h.done:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			sub.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
			return
		}
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.wg.Done()

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()

	if present {
		sub.close()
	}
}

// Close disconnects all subscribers and stops the hub.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	close(h.done)

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	h.wg.Wait()
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
		s.conn.Close()
	})
}
