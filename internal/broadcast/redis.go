// Package broadcast carries live broadcasts between nodes through redis
// pub/sub, so sockets on every node see them.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jfyne/answers/live"
)

var _ live.PubSubTransport = &RedisTransport{}

// message is the wire form of a broadcast. Self data never leaves a process
// as part of a live.Event so it travels here instead.
type message struct {
	T    string          `json:"t"`
	Data json.RawMessage `json:"d,omitempty"`
}

// RedisTransport a live.PubSubTransport on redis pub/sub. Topics become
// channels below Prefix.
type RedisTransport struct {
	Client *redis.Client
	Prefix string
	Logger *zap.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// NewRedisTransport creates a transport publishing below prefix.
func NewRedisTransport(client *redis.Client, prefix string, logger *zap.Logger) *RedisTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTransport{
		Client: client,
		Prefix: prefix,
		Logger: logger,
		ready:  make(chan struct{}),
	}
}

// Ready is closed once Listen is subscribed.
func (r *RedisTransport) Ready() <-chan struct{} {
	return r.ready
}

// Publish a message onto the given topic.
func (r *RedisTransport) Publish(ctx context.Context, topic string, msg live.Event) error {
	m := message{T: msg.T, Data: msg.Data}
	if msg.SelfData != nil {
		d, err := json.Marshal(msg.SelfData)
		if err != nil {
			return fmt.Errorf("encode broadcast data: %w", err)
		}
		m.Data = d
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	if err := r.Client.Publish(ctx, r.Prefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// Listen blocks receiving messages for every topic until ctx is done.
func (r *RedisTransport) Listen(ctx context.Context, p *live.PubSub) error {
	sub := r.Client.PSubscribe(ctx, r.Prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.readyOnce.Do(func() { close(r.ready) })

	ch := sub.Channel()
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var wire message
			if err := json.Unmarshal([]byte(m.Payload), &wire); err != nil {
				r.Logger.Warn("dropping malformed broadcast", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			ev := live.Event{T: wire.T}
			if len(wire.Data) > 0 {
				var data any
				if err := json.Unmarshal(wire.Data, &data); err != nil {
					r.Logger.Warn("dropping malformed broadcast data", zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				ev.SelfData = data
			}
			p.Receive(strings.TrimPrefix(m.Channel, r.Prefix), ev)
		case <-ctx.Done():
			return nil
		}
	}
}
