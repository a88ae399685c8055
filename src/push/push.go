package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jom-io/gorig/utils/logger"
	"go.uber.org/zap"
)

const queueSize = 16

var (
	ErrNoSubscribers = errors.New("no push subscribers")
	ErrQueueFull     = errors.New("push queue full")
	ErrClosed        = errors.New("push sink closed")
)

// Sink receives one serialized report per cycle.
type Sink interface {
	Send(msg string) error
	Close() error
}

// Subscriber delivers messages to one destination.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, msg string) error
	Close() error
}

// Broadcast fans every message out to all subscribers. Delivery is
// asynchronous; each subscriber drains its own queue so a slow destination
// only drops its own messages.
type Broadcast struct {
	mu     sync.RWMutex
	closed bool
	queues []*queue
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type queue struct {
	sub Subscriber
	ch  chan string
}

func NewBroadcast(subs ...Subscriber) *Broadcast {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcast{cancel: cancel}
	for _, sub := range subs {
		q := &queue{sub: sub, ch: make(chan string, queueSize)}
		b.queues = append(b.queues, q)
		b.wg.Add(1)
		go b.drain(ctx, q)
	}
	return b
}

// LoadBroadcast builds a subscriber per target: ws:// and wss:// targets get a
// websocket client, redis:// targets publish to a channel.
func LoadBroadcast(targets []string) (*Broadcast, error) {
	subs := make([]Subscriber, 0, len(targets))
	for _, target := range targets {
		sub, err := NewSubscriber(target)
		if err != nil {
			for _, s := range subs {
				_ = s.Close()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return NewBroadcast(subs...), nil
}

func NewSubscriber(target string) (Subscriber, error) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("invalid push target %q: %w", target, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		return NewWS(u.String()), nil
	case "redis", "rediss":
		return NewRedis(u)
	default:
		return nil, fmt.Errorf("unsupported push target scheme %q in %s", u.Scheme, target)
	}
}

func (b *Broadcast) Send(msg string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if len(b.queues) == 0 {
		return ErrNoSubscribers
	}

	var errs []error
	for _, q := range b.queues {
		select {
		case q.ch <- msg:
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrQueueFull, q.sub.Name()))
		}
	}
	return errors.Join(errs...)
}

// Close stops the subscribers; messages still queued are dropped.
func (b *Broadcast) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()
	for _, q := range b.queues {
		close(q.ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	var errs []error
	for _, q := range b.queues {
		if err := q.sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Broadcast) drain(ctx context.Context, q *queue) {
	defer b.wg.Done()
	for msg := range q.ch {
		if ctx.Err() != nil {
			continue
		}
		if err := q.sub.Deliver(ctx, msg); err != nil {
			logger.Error(ctx, "Push stats failed", zap.String("target", q.sub.Name()), zap.Error(err))
		}
	}
}
