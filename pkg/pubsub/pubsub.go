// Package pubsub is an in-process fan-out with one unbounded FIFO per subscriber.
// Publish never blocks on a slow subscriber and each subscriber sees values in publish order.
package pubsub

import "sync"

type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a subscriber. initial values are queued ahead of anything published later.
func (t *Topic[T]) Subscribe(initial ...T) *Subscription[T] {
	s := &Subscription[T]{
		queue:  append([]T(nil), initial...),
		notify: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
		topic:  t,
	}
	go s.pump()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		s.stop()
		return s
	}
	t.subs[s] = struct{}{}
	if len(initial) > 0 {
		s.signal()
	}
	return s
}

// Publish enqueues v for every current subscriber. Callers that need a global order
// across publishers must serialize their Publish calls.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for s := range t.subs {
		s.push(v)
	}
}

// Close ends every subscription; their channels close after being drained or abandoned.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[*Subscription[T]]struct{})
	t.closed = true
	t.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

func (t *Topic[T]) remove(s *Subscription[T]) {
	t.mu.Lock()
	delete(t.subs, s)
	t.mu.Unlock()
}

type Subscription[T any] struct {
	mu     sync.Mutex
	queue  []T
	notify chan struct{}
	out    chan T
	done   chan struct{}
	once   sync.Once
	topic  *Topic[T]
}

// C delivers values in publish order. It is closed after Close.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

func (s *Subscription[T]) Close() {
	s.topic.remove(s)
	s.stop()
}

func (s *Subscription[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[T]) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		next := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
