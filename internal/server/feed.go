package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/swimrace/internal/core/events/bus"
	"github.com/zeusync/swimrace/internal/core/observability/log"
	"github.com/zeusync/swimrace/internal/core/race"
)

// Config holds spectator feed configuration
type Config struct {
	ListenAddr   string
	Path         string
	SendBuffer   int           // queued messages per client before it is dropped
	WriteTimeout time.Duration // per message
}

// DefaultConfig returns default feed configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8089",
		Path:         "/ws",
		SendBuffer:   256,
		WriteTimeout: 5 * time.Second,
	}
}

// Message is what spectators receive, msgpack encoded in a binary frame.
type Message struct {
	Kind  string      `msgpack:"kind"`
	Race  string      `msgpack:"race"`
	Frame *race.Frame `msgpack:"frame,omitempty"`
	Event *race.Event `msgpack:"event,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type room struct {
	clients map[*client]struct{}
	mu      sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// FrameFeed is a read-only websocket feed. Spectators connect with
// ?race=<id> and receive every frame and race event published on that race's
// bus topic.
type FrameFeed struct {
	cfg    Config
	bus    bus.EventBus
	logger log.Log

	mu       sync.Mutex
	rooms    map[string]*room
	watching map[string]bus.Subscription
	srv      *http.Server
	addr     string

	running atomic.Bool
	closed  atomic.Bool
}

func NewFrameFeed(cfg Config, b bus.EventBus, logger log.Log) *FrameFeed {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &FrameFeed{
		cfg:      cfg,
		bus:      b,
		logger:   logger.With(log.String("component", "frame_feed")),
		rooms:    make(map[string]*room),
		watching: make(map[string]bus.Subscription),
	}
}

// Watch starts forwarding a race's bus topic to its spectators. Watching the
// same race twice is a no-op.
func (f *FrameFeed) Watch(raceID string) error {
	if f.closed.Load() {
		return ErrServerClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watching[raceID]; ok {
		return nil
	}
	sub, err := f.bus.SubscribeTopic(raceID, bus.Wildcard, f.forward(raceID))
	if err != nil {
		return err
	}
	f.watching[raceID] = sub
	return nil
}

// Unwatch stops forwarding a race.
func (f *FrameFeed) Unwatch(raceID string) {
	f.mu.Lock()
	sub := f.watching[raceID]
	delete(f.watching, raceID)
	f.mu.Unlock()
	if sub != nil {
		_ = sub.Cancel()
	}
}

func (f *FrameFeed) forward(raceID string) bus.EventHandler {
	return func(ev bus.Event) error {
		msg := Message{Kind: ev.Type(), Race: raceID}
		switch data := ev.Data().(type) {
		case race.Frame:
			msg.Frame = &data
		case race.Event:
			msg.Event = &data
		default:
			return nil
		}
		payload, err := msgpack.Marshal(&msg)
		if err != nil {
			return fmt.Errorf("encode %s message: %w", ev.Type(), err)
		}
		f.broadcast(raceID, payload)
		return nil
	}
}

func (f *FrameFeed) broadcast(raceID string, payload []byte) {
	r := f.getRoom(raceID, false)
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		select {
		case c.send <- payload:
		default:
			f.logger.Warn("dropping slow spectator",
				log.String("race_id", raceID),
				log.String("remote", c.remote),
				log.Error(ErrSlowClient),
			)
			delete(r.clients, c)
			close(c.send)
		}
	}
}

func (f *FrameFeed) getRoom(raceID string, create bool) *room {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rooms[raceID]; ok {
		return r
	}
	if !create {
		return nil
	}
	r := &room{clients: make(map[*client]struct{})}
	f.rooms[raceID] = r
	return r
}

// Clients is the number of connected spectators of a race.
func (f *FrameFeed) Clients(raceID string) int {
	r := f.getRoom(raceID, false)
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Handler exposes the websocket endpoint for embedding into another mux.
func (f *FrameFeed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(f.cfg.Path, f.handleWebSocket)
	return mux
}

func (f *FrameFeed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if f.closed.Load() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	raceID := r.URL.Query().Get("race")
	if raceID == "" {
		http.Error(w, ErrRaceRequired.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, remote: conn.RemoteAddr().String(), send: make(chan []byte, f.cfg.SendBuffer)}
	rm := f.getRoom(raceID, true)
	rm.mu.Lock()
	rm.clients[c] = struct{}{}
	rm.mu.Unlock()
	f.logger.Debug("spectator joined", log.String("race_id", raceID), log.String("remote", conn.RemoteAddr().String()))

	go f.writePump(c)
	f.readPump(c)

	rm.mu.Lock()
	if _, ok := rm.clients[c]; ok {
		delete(rm.clients, c)
		close(c.send)
	}
	rm.mu.Unlock()
}

// readPump discards inbound messages; it only exists to notice disconnects.
func (f *FrameFeed) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *FrameFeed) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(f.cfg.WriteTimeout))
}

// Start listens on ListenAddr and serves in the background.
func (f *FrameFeed) Start(_ context.Context) error {
	if f.closed.Load() {
		return ErrServerClosed
	}
	if !f.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", f.cfg.ListenAddr)
	if err != nil {
		f.running.Store(false)
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	f.mu.Lock()
	f.srv = &http.Server{Handler: f.Handler(), ReadHeaderTimeout: 5 * time.Second}
	f.addr = ln.Addr().String()
	srv := f.srv
	f.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("frame feed stopped", log.Error(err))
		}
	}()
	f.logger.Info("frame feed listening", log.String("addr", f.addr), log.String("path", f.cfg.Path))
	return nil
}

// Addr is the bound listen address once started.
func (f *FrameFeed) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

func (f *FrameFeed) Path() string { return f.cfg.Path }

// Stop shuts the listener down, disconnects spectators and cancels every
// bus subscription.
func (f *FrameFeed) Stop(ctx context.Context) error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	f.mu.Lock()
	srv := f.srv
	subs := make([]bus.Subscription, 0, len(f.watching))
	for id, sub := range f.watching {
		subs = append(subs, sub)
		delete(f.watching, id)
	}
	rooms := make([]*room, 0, len(f.rooms))
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Cancel()
	}
	for _, r := range rooms {
		r.mu.Lock()
		for c := range r.clients {
			delete(r.clients, c)
			close(c.send)
		}
		r.mu.Unlock()
	}

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
