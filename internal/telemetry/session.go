package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Conn is the transport a session writes to. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Recorder receives session counters. *metrics.Metrics satisfies it.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	MessageSent()
	MessageDropped()
	InboundMessage(kind string)
	TickRecovered()
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()        {}
func (nopRecorder) SessionClosed()        {}
func (nopRecorder) MessageSent()          {}
func (nopRecorder) MessageDropped()       {}
func (nopRecorder) InboundMessage(string) {}
func (nopRecorder) TickRecovered()        {}

const (
	stateOpen int32 = iota
	stateClosed
)

// Session 单个连接的遥测推送
// Only the goroutine running Run writes to the connection, so messages
// leave in tick order.
type Session struct {
	id           string
	conn         Conn
	gen          Generator
	interval     time.Duration
	writeTimeout time.Duration
	rec          Recorder
	logger       *zap.Logger
	now          func() time.Time

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}
}

// SessionConfig 会话参数
type SessionConfig struct {
	Interval     time.Duration
	WriteTimeout time.Duration
}

func NewSession(id string, conn Conn, gen Generator, cfg SessionConfig, rec Recorder, logger *zap.Logger) *Session {
	if rec == nil {
		rec = nopRecorder{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Session{
		id:           id,
		conn:         conn,
		gen:          gen,
		interval:     cfg.Interval,
		writeTimeout: cfg.WriteTimeout,
		rec:          rec,
		logger:       logger.With(zap.String("session_id", id)),
		now:          time.Now,
		done:         make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Open reports whether the session still accepts sends.
func (s *Session) Open() bool {
	return s.state.Load() == stateOpen
}

// Done is closed once the session has transitioned to CLOSED.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close transitions to CLOSED and closes the transport. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(stateClosed)
		close(s.done)
		_ = s.conn.Close()
	})
}

// Run 推送循环，阻塞直到连接关闭或 ctx 取消
func (s *Session) Run(ctx context.Context) {
	s.rec.SessionOpened()
	defer s.rec.SessionClosed()
	s.logger.Info("Telemetry client connected")

	go s.readLoop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			s.logger.Info("Telemetry session stopped", zap.Error(ctx.Err()))
			return
		case <-s.done:
			s.logger.Info("Telemetry client disconnected")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.Open() {
				s.logger.Debug("Telemetry read ended", zap.Error(err))
			}
			return
		}
		s.handleMessage(data)
	}
}

// tick sends one sample if the session is still open. A failed send is dropped.
func (s *Session) tick() {
	if !s.Open() {
		return
	}
	sample, err := s.generate()
	if err != nil {
		s.rec.TickRecovered()
		s.logger.Error("Telemetry generation failed", zap.Error(err))
		return
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(s.now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteJSON(Envelope{Type: TypeTelemetryUpdate, Data: sample}); err != nil {
		s.rec.MessageDropped()
		s.logger.Debug("Telemetry sample dropped", zap.Error(err))
		return
	}
	s.rec.MessageSent()
}

func (s *Session) generate() (sample Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.gen.Next(s.now()), nil
}

// handleMessage logs inbound messages. Nothing here closes the session.
func (s *Session) handleMessage(data []byte) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.rec.InboundMessage("malformed")
		s.logger.Warn("Malformed telemetry message", zap.Error(err))
		return
	}

	switch msg.Type {
	case TypeSubscribeMission:
		var req SubscribeMission
		_ = json.Unmarshal(msg.Data, &req)
		s.rec.InboundMessage(msg.Type)
		s.logger.Debug("Mission subscription requested", zap.String("mission_id", req.MissionID))
	case TypeRequestHistoricalData:
		var req HistoricalDataRequest
		_ = json.Unmarshal(msg.Data, &req)
		s.rec.InboundMessage(msg.Type)
		s.logger.Debug("Historical telemetry requested",
			zap.String("mission_id", req.MissionID),
			zap.Float64("hours", req.Hours),
		)
	default:
		s.rec.InboundMessage("unknown")
		s.logger.Warn("Unknown telemetry message type", zap.String("type", msg.Type))
	}
}
