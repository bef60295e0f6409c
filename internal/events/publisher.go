package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vintage-The-Gemini/space/internal/common/redis"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 事件类型
const (
	TypeCreated = "created"
	TypeUpdated = "updated"
	TypeDeleted = "deleted"
)

// Event 数据变更事件
type Event struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	At         time.Time       `json:"at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// NewEvent 构造事件；data 序列化失败时省略
func NewEvent(typ, collection, id string, data any) Event {
	ev := Event{Type: typ, Collection: collection, ID: id, At: time.Now().UTC()}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	return ev
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher 不发布任何事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// mqttClient is the subset of the MQTT client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// MQTTPublisher publishes each event to <prefix>/<collection>/<type>.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

func NewMQTTPublisher(client mqttClient, prefix string, qos byte) *MQTTPublisher {
	if prefix == "" {
		prefix = "space"
	}
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

func (p *MQTTPublisher) Topic(ev Event) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, ev.Collection, ev.Type)
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.client.Publish(p.Topic(ev), p.qos, false, payload)
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect()
	return nil
}

// StreamPublisher appends events to a Redis stream.
type StreamPublisher struct {
	client *goredis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *goredis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = "space:events"
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev Event) error {
	if _, err := redis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, ev); err != nil {
		return fmt.Errorf("failed to publish event to stream %s: %w", p.stream, err)
	}
	return nil
}

func (p *StreamPublisher) Close() error { return nil }

// recorder counts publish outcomes. *metrics.Metrics satisfies it.
type recorder interface {
	EventPublished(collection string, err error)
}

// Notifier 业务层使用的发布入口：失败只记录日志，不影响请求
type Notifier struct {
	pub     Publisher
	rec     recorder
	logger  *zap.Logger
	timeout time.Duration
}

func NewNotifier(pub Publisher, rec recorder, logger *zap.Logger) *Notifier {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Notifier{pub: pub, rec: rec, logger: logger, timeout: 3 * time.Second}
}

// Notify publishes synchronously with its own timeout, detached from the request context.
func (n *Notifier) Notify(ctx context.Context, typ, collection, id string, data any) {
	if n == nil {
		return
	}
	if _, ok := n.pub.(NopPublisher); ok {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err := n.pub.Publish(pubCtx, NewEvent(typ, collection, id, data))
	if n.rec != nil {
		n.rec.EventPublished(collection, err)
	}
	if err != nil {
		n.logger.Warn("Failed to publish change event",
			zap.String("type", typ),
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.pub.Close()
}
