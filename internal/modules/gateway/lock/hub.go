package lock

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	DefaultReconcileInterval = time.Second
	DefaultPingInterval      = 30 * time.Second
	defaultStoreTimeout      = 5 * time.Second
)

// Options configures a Hub. Store is required.
type Options struct {
	Store    device.Store
	Notifier Notifier
	// Claimer is optional; without it the store's conditional write alone
	// guards the pairing transition.
	Claimer PairingClaimer
	Clock   clock.Clock
	Logger  *zap.Logger

	ReconcileInterval time.Duration
	// PingInterval <= 0 disables keepalive pings and read deadlines.
	PingInterval time.Duration
	StoreTimeout time.Duration
}

// Stats is a point-in-time view of the hub's connections.
type Stats struct {
	Connections int `json:"connections"`
	Bound       int `json:"bound"`
}

// Hub accepts device websocket connections and owns their sessions.
type Hub struct {
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	sessions map[string]*Session
	bound    int
	wg       sync.WaitGroup
}

func NewHub(opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			// Lock firmware sends no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   opts.Logger.Named("lock"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the request and blocks for the lifetime of the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		conn:   conn,
		hub:    h,
		logger: h.logger.With(zap.String("conn_id", id), zap.String("remote", r.RemoteAddr)),
	}
	if !h.register(s) {
		_ = conn.Close()
		return
	}
	defer h.unregister(s)
	defer conn.Close()

	s.logger.Debug("device connected")
	s.serve(h.ctx)
}

// Handler mounts the hub on a gin route. Requests that are not websocket
// upgrades get the usual 404 envelope.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !websocket.IsWebSocketUpgrade(c.Request) {
			response.NotFound(c)
			return
		}
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Stats reports open and bound connection counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{Connections: len(h.sessions), Bound: h.bound}
}

// Close stops every session, marks bound devices offline and waits for the
// connection handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.cancel()
	for _, s := range h.sessions {
		_ = s.conn.Close()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	return true
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.id)
}

func (h *Hub) markBound(bound bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if bound {
		h.bound++
	} else if h.bound > 0 {
		h.bound--
	}
}
