// Package memory provides an in-process message bus.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/viant/authbridge"
	"github.com/viant/authbridge/internal/collection"
	"github.com/viant/authbridge/transport"
)

// ErrClosed is returned by Send and Subscribe after Close.
var ErrClosed = errors.New("bus closed")

// Bus delivers messages to in-process subscribers. Each subscriber receives
// messages in send order on its own goroutine.
type Bus struct {
	subscribers *collection.SyncMap[uint64, *subscriber]
	seq         uint64
	bufferSize  int
	logger      *slog.Logger
	closed      int32
}

type subscriber struct {
	channel authbridge.Channel
	handler transport.Handler
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Send encodes message and enqueues it for every subscriber of its channel.
func (b *Bus) Send(ctx context.Context, message *authbridge.Message) error {
	if atomic.LoadInt32(&b.closed) == 1 {
		return ErrClosed
	}
	data, err := transport.Encode(message)
	if err != nil {
		return err
	}
	for _, sub := range b.subscribers.Values() {
		if sub.channel != message.Channel {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
		case sub.queue <- data:
		}
	}
	return nil
}

// Subscribe registers handler for channel.
func (b *Bus) Subscribe(_ context.Context, channel authbridge.Channel, handler transport.Handler) (transport.Subscription, error) {
	if atomic.LoadInt32(&b.closed) == 1 {
		return nil, ErrClosed
	}
	id := atomic.AddUint64(&b.seq, 1)
	sub := &subscriber{
		channel: channel,
		handler: handler,
		queue:   make(chan []byte, b.bufferSize),
		done:    make(chan struct{}),
	}
	b.subscribers.Put(id, sub)
	go b.deliver(sub)
	return transport.SubscriptionFunc(func() error {
		b.subscribers.Delete(id)
		sub.close()
		return nil
	}), nil
}

func (b *Bus) deliver(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.queue:
			message, err := transport.Decode(data)
			if err != nil {
				b.logger.Warn("dropping invalid message", "channel", sub.channel, "error", err)
				continue
			}
			sub.handler(context.Background(), message)
		}
	}
}

// Close stops delivery to every subscriber.
func (b *Bus) Close() error {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return nil
	}
	b.subscribers.Range(func(id uint64, sub *subscriber) bool {
		b.subscribers.Delete(id)
		sub.close()
		return true
	})
	return nil
}

// New creates an in-process bus.
func New(options ...Option) *Bus {
	ret := &Bus{
		subscribers: collection.NewSyncMap[uint64, *subscriber](),
		bufferSize:  64,
		logger:      slog.Default(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
