package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundMessage = 64 * 1024

// Config 广播配置
type Config struct {
	Interval     time.Duration
	WriteTimeout time.Duration
}

// Broadcaster 接受 WebSocket 连接并为每个连接运行一个 Session
type Broadcaster struct {
	cfg      Config
	factory  Factory
	rec      Recorder
	logger   *zap.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewBroadcaster(cfg Config, factory Factory, rec Recorder, logger *zap.Logger) *Broadcaster {
	if rec == nil {
		rec = nopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		cfg:     cfg,
		factory: factory,
		rec:     rec,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// any origin, same as the REST API's CORS policy
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*Session]struct{}),
	}
}

// ServeHTTP upgrades the request and blocks until the session ends.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		b.logger.Warn("WebSocket upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}
	ws.SetReadLimit(maxInboundMessage)

	s := NewSession(uuid.NewString(), ws, b.factory(), SessionConfig{
		Interval:     b.cfg.Interval,
		WriteTimeout: b.cfg.WriteTimeout,
	}, b.rec, b.logger)

	if !b.register(s) {
		s.Close()
		return
	}
	defer b.unregister(s)

	s.Run(b.ctx)
}

func (b *Broadcaster) register(s *Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.sessions[s] = struct{}{}
	b.wg.Add(1)
	return true
}

func (b *Broadcaster) unregister(s *Session) {
	b.mu.Lock()
	delete(b.sessions, s)
	b.mu.Unlock()
	b.wg.Done()
}

// Sessions 当前打开的会话数
func (b *Broadcaster) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Shutdown closes every live session and waits for them to finish or ctx to expire.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	live := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		live = append(live, s)
	}
	b.mu.Unlock()

	b.cancel()
	for _, s := range live {
		s.Close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("Telemetry broadcaster stopped", zap.Int("sessions_closed", len(live)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
