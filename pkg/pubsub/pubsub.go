// Package pubsub fans change notifications out to in-process readers. The
// CRUD layer (or the nanomsg bridge standing in for it) publishes
// storage.ChangeEvent values; the relationship engine subscribes and marks
// its snapshot stale.
package pubsub

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscription channel capacity.
const DefaultBufferSize = 100

// ErrShutdown is returned by Subscribe after Shutdown.
var ErrShutdown = errors.New("pubsub: shut down")

// ErrNoTopics is returned by Subscribe when called without a topic.
var ErrNoTopics = errors.New("pubsub: no topics")

// PubSub is a topic-keyed broadcaster. Publish never blocks: a subscriber
// whose buffer is full misses the message and the drop is counted. Readers
// that only need "something changed" lose nothing by a drop as long as one
// message per burst gets through.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	closed      bool
	done        chan struct{}
	bufferSize  int
	dropped     atomic.Uint64
}

// Subscription is one reader of one or more topics. Messages from all its
// topics arrive on a single channel in publish order.
type Subscription struct {
	topics    []string
	ch        chan any
	ps        *PubSub
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Option configures a PubSub.
type Option func(*PubSub)

// WithBufferSize sets the per-subscription buffer. Values below 1 are ignored.
func WithBufferSize(n int) Option {
	return func(ps *PubSub) {
		if n > 0 {
			ps.bufferSize = n
		}
	}
}

func NewPubSub(opts ...Option) *PubSub {
	ps := &PubSub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		done:        make(chan struct{}),
		bufferSize:  DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Subscribe registers one reader for every topic given. The subscription
// ends when ctx is cancelled, Unsubscribe is called, or the PubSub shuts
// down; in every case the channel is closed.
func (ps *PubSub) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topics: slices.Compact(slices.Sorted(slices.Values(topics))),
		ch:     make(chan any, ps.bufferSize),
		ps:     ps,
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	for _, topic := range sub.topics {
		if ps.subscribers[topic] == nil {
			ps.subscribers[topic] = make(map[*Subscription]struct{})
		}
		ps.subscribers[topic][sub] = struct{}{}
	}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.done:
		}
	}()

	return sub, nil
}

// Publish sends message to every subscriber of topic. Subscribers are
// copied out so no lock is held while sending.
func (ps *PubSub) Publish(topic string, message any) {
	ps.mu.RLock()
	if ps.closed || len(ps.subscribers[topic]) == 0 {
		ps.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(ps.subscribers[topic]))
	for sub := range ps.subscribers[topic] {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(message)
	}
}

// deliver sends without blocking. A concurrent Unsubscribe may have closed
// the channel already; that send is treated as a drop.
func (s *Subscription) deliver(message any) {
	defer func() {
		if recover() != nil {
			s.ps.dropped.Add(1)
		}
	}()
	select {
	case <-s.ctx.Done():
	case s.ch <- message:
	default:
		s.ps.dropped.Add(1)
	}
}

// Dropped returns how many deliveries were skipped because a subscriber's
// buffer was full.
func (ps *PubSub) Dropped() uint64 {
	return ps.dropped.Load()
}

// GetSubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions. Later publishes are ignored and later
// subscribes fail with ErrShutdown.
func (ps *PubSub) Shutdown() {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.closed = true
	close(ps.done)

	all := make(map[*Subscription]struct{})
	for topic, subs := range ps.subscribers {
		for sub := range subs {
			all[sub] = struct{}{}
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()

	for sub := range all {
		sub.cancel()
		sub.close()
	}
}

// Channel returns the subscription's message channel.
func (s *Subscription) Channel() <-chan any {
	return s.ch
}

// Topics returns the subscribed topics, sorted.
func (s *Subscription) Topics() []string {
	return slices.Clone(s.topics)
}

// Drain discards messages already buffered and reports how many there
// were. It never blocks; a burst of events can be handled once by reading
// one message and draining the rest.
func (s *Subscription) Drain() int {
	n := 0
	for {
		select {
		case _, ok := <-s.ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Unsubscribe removes the subscription from every topic and closes its
// channel.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	for _, topic := range s.topics {
		if subs := s.ps.subscribers[topic]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.ps.subscribers, topic)
			}
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}
