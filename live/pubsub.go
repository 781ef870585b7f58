package live

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PubSubTransport is how the messages should be sent to the listeners.
type PubSubTransport interface {
	// Publish a message onto the given topic.
	Publish(ctx context.Context, topic string, msg Event) error
	// Listen will be called in a go routine so should be written to
	// block.
	Listen(ctx context.Context, p *PubSub) error
}

// PubSub handles communication between handlers. Depending on the given
// transport this could be between handlers in an application, or across
// nodes in a cluster.
type PubSub struct {
	transport PubSubTransport
	logger    *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]*Engine
}

// NewPubSub creates a new PubSub handler and starts listening on the
// transport until ctx is done.
func NewPubSub(ctx context.Context, t PubSubTransport, logger *zap.Logger) *PubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PubSub{
		transport: t,
		logger:    logger,
		handlers:  map[string][]*Engine{},
	}
	go func(ctx context.Context, ps *PubSub) {
		if err := t.Listen(ctx, ps); err != nil {
			ps.logger.Error("could not listen on pubsub", zap.Error(err))
		}
	}(ctx, p)
	return p
}

// Publish send a message on a topic.
func (p *PubSub) Publish(ctx context.Context, topic string, msg Event) error {
	return p.transport.Publish(ctx, topic, msg)
}

// Subscribe adds a handler to a PubSub topic.
func (p *PubSub) Subscribe(topic string, e *Engine) {
	p.mu.Lock()
	p.handlers[topic] = append(p.handlers[topic], e)
	p.mu.Unlock()

	// This adjusts the engines broadcast function to publish onto the
	// given topic.
	e.HandleBroadcast(func(ctx context.Context, e *Engine, msg Event) {
		if err := p.transport.Publish(ctx, topic, msg); err != nil {
			p.logger.Error("could not publish broadcast", zap.String("topic", topic), zap.Error(err))
		}
	})
}

// Receive a message from the transport.
func (p *PubSub) Receive(topic string, msg Event) {
	ctx := context.Background()
	p.mu.RLock()
	engines := append([]*Engine(nil), p.handlers[topic]...)
	p.mu.RUnlock()
	for _, node := range engines {
		node.self(ctx, nil, msg)
	}
}

// TransportMessage a useful container to send live events.
type TransportMessage struct {
	Topic string
	Msg   Event
}

// LocalTransport a pubsub transport that allows handlers to communicate
// locally.
type LocalTransport struct {
	queue chan TransportMessage
}

// NewLocalTransport create a new LocalTransport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{
		queue: make(chan TransportMessage),
	}
}

// Publish send a message to all handlers subscribed to a topic.
func (l *LocalTransport) Publish(ctx context.Context, topic string, msg Event) error {
	select {
	case l.queue <- TransportMessage{Topic: topic, Msg: msg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen listen for new published messages.
func (l *LocalTransport) Listen(ctx context.Context, p *PubSub) error {
	for {
		select {
		case msg := <-l.queue:
			p.Receive(msg.Topic, msg.Msg)
		case <-ctx.Done():
			return nil
		}
	}
}
