package fanout

import "sync"

// Hub delivers published values to every live Subscription. Each
// subscription owns a GrowableBuffer, so Publish never blocks on a slow
// reader and each reader sees values in publish order.
type Hub[T any] struct {
	initialCapacity int

	mu     sync.Mutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool
}

// NewHub creates a hub whose subscriptions start with the given buffer capacity.
func NewHub[T any](initialCapacity int) *Hub[T] {
	return &Hub[T]{
		initialCapacity: initialCapacity,
		subs:            make(map[uint64]*Subscription[T]),
	}
}

// Subscribe registers a new subscriber. Subscribing to a closed hub returns
// a subscription whose channel is already closed.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		hub:  h,
		buf:  NewGrowableBuffer[T](h.initialCapacity),
		ch:   make(chan T),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.buf.Close()
		go s.pump()
		return s
	}
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	h.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues v for every subscriber and returns how many received it.
func (h *Hub[T]) Publish(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, s := range h.subs {
		if s.buf.Send(v) {
			n++
		}
	}
	return n
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close detaches all subscribers. Values already queued are still
// delivered before each subscription channel closes.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		s.buf.Close()
		delete(h.subs, id)
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Subscription is a single reader attached to a Hub.
type Subscription[T any] struct {
	id   uint64
	hub  *Hub[T]
	buf  *GrowableBuffer[T]
	ch   chan T
	done chan struct{}
	once sync.Once
}

// C returns the delivery channel. It is closed after Close, or after the
// hub closes and the backlog has drained.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Stats returns the subscription's queue statistics.
func (s *Subscription[T]) Stats() BufferStats {
	return s.buf.Stats()
}

// Close detaches the subscription and discards anything still queued. It
// returns how many values were dropped; later calls return 0.
func (s *Subscription[T]) Close() int {
	dropped := 0
	s.once.Do(func() {
		s.hub.remove(s.id)
		s.buf.Close()
		close(s.done)
		for {
			if _, ok := s.buf.TryReceive(); !ok {
				break
			}
			dropped++
		}
	})
	return dropped
}

func (s *Subscription[T]) pump() {
	defer close(s.ch)

	for {
		v, ok := s.buf.Receive()
		if !ok {
			return
		}
		select {
		case s.ch <- v:
		case <-s.done:
			return
		}
	}
}
