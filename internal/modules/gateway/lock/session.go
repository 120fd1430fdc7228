package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/modules/device"
	"github.com/smartdoorlock/core/internal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	noteBufferSize  = 32
	offlineWriteTTL = 5 * time.Second
)

// Session is one device connection. It carries no identity until the first
// text frame names a session token that exists in the store.
type Session struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger *zap.Logger

	writeMu sync.Mutex
	token   string
}

func (s *Session) send(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// serve runs the read loop until the connection drops.
func (s *Session) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := s.hub.opts
	readWait := opts.PingInterval*2 + opts.PingInterval/3
	if opts.PingInterval > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(readWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(readWait))
		})
		go s.keepalive(ctx, opts.PingInterval)
		defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()
	}

	var (
		events   *eventHandler
		loopStop context.CancelFunc
		loopDone chan struct{}
		stalled  bool
	)

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("device connection closed", zap.Error(err))
			}
			break
		}
		if opts.PingInterval > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(readWait))
		}
		if mt != websocket.TextMessage {
			continue
		}
		text := string(data)

		switch {
		case events != nil:
			events.handle(ctx, text)
		case stalled:
			// Unknown token: the connection stays open but goes nowhere.
		default:
			if !s.bind(ctx, text) {
				stalled = true
				continue
			}
			notes := make(chan shadowNote, noteBufferSize)
			events = s.newEventHandler(notes)
			var loopCtx context.Context
			loopCtx, loopStop = context.WithCancel(ctx)
			loopDone = make(chan struct{})
			r := s.newReconciler(notes)
			go func() {
				defer close(loopDone)
				r.run(loopCtx, opts.Clock, opts.ReconcileInterval)
			}()
		}
	}

	if events != nil {
		loopStop()
		<-loopDone
		s.unbind()
	}
}

// bind resolves token and marks the device online. Reports false when the
// token does not resolve to a record.
func (s *Session) bind(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.hub.opts.StoreTimeout)
	defer cancel()

	store := s.hub.opts.Store
	if _, err := store.Get(ctx, token); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			s.logger.Warn("unknown session token, connection stalled", zap.String("token", tokenHint(token)))
		} else {
			metrics.StoreErrors.WithLabelValues("bind").Inc()
			s.logger.Error("session lookup failed, connection stalled", zap.String("token", tokenHint(token)), zap.Error(err))
		}
		return false
	}

	if err := store.Update(ctx, token, device.Fields{models.FieldOnline: true}); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			s.logger.Warn("device record vanished during bind", zap.String("token", tokenHint(token)))
			return false
		}
		metrics.StoreErrors.WithLabelValues("bind").Inc()
		s.logger.Warn("mark online failed", zap.String("token", tokenHint(token)), zap.Error(err))
	}

	s.token = token
	s.logger = s.logger.With(zap.String("token", tokenHint(token)))
	metrics.SessionsActive.Inc()
	s.hub.markBound(true)
	s.logger.Info("device session bound")
	return true
}

// unbind marks the device offline. Called once, after the reconcile loop
// has stopped, so no later write from this session can follow it.
func (s *Session) unbind() {
	metrics.SessionsActive.Dec()
	s.hub.markBound(false)

	ctx, cancel := context.WithTimeout(context.Background(), offlineWriteTTL)
	defer cancel()
	err := s.hub.opts.Store.Update(ctx, s.token, device.Fields{models.FieldOnline: false})
	if err != nil && !errors.Is(err, device.ErrNotFound) {
		metrics.StoreErrors.WithLabelValues("unbind").Inc()
		s.logger.Warn("mark offline failed", zap.Error(err))
	}
	s.logger.Info("device session closed")
}

func (s *Session) keepalive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Session) newReconciler(notes chan shadowNote) *reconciler {
	opts := s.hub.opts
	return &reconciler{
		token: s.token,
		store: opts.Store,
		gate: &pairingGate{
			store:   opts.Store,
			claimer: opts.Claimer,
			clock:   opts.Clock,
			logger:  s.logger,
		},
		out:          s,
		notes:        notes,
		storeTimeout: opts.StoreTimeout,
		logger:       s.logger,
	}
}

func (s *Session) newEventHandler(notes chan shadowNote) *eventHandler {
	opts := s.hub.opts
	return &eventHandler{
		token:        s.token,
		store:        opts.Store,
		notifier:     opts.Notifier,
		out:          s,
		notes:        notes,
		storeTimeout: opts.StoreTimeout,
		logger:       s.logger,
	}
}
