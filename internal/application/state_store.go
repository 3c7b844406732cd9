package application

// Store is a push-based observable value. It is not safe for concurrent use: every call
// must come from the same goroutine (the event loop in production, the test goroutine in tests).
//
// Set and Update called from inside a subscriber are queued and applied once the current
// notification round completes, so subscribers never observe nested notifications and every
// subscriber sees values in the same order.
type Store[T any] struct {
	value     T
	subs      []*Subscription[T]
	notifying bool
	pending   []func(T) T
}

// Subscription is the handle returned by Subscribe.
type Subscription[T any] struct {
	store  *Store[T]
	fn     func(T)
	active bool
}

// NewStore returns a store holding initial.
func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Current returns the held value.
func (s *Store[T]) Current() T {
	return s.value
}

// Subscribe registers fn and immediately delivers the current value to it. Subscribers are
// notified in subscription order.
func (s *Store[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{store: s, fn: fn, active: true}
	s.subs = append(s.subs, sub)
	fn(s.value)
	return sub
}

// Set replaces the held value and notifies subscribers.
func (s *Store[T]) Set(next T) {
	s.Update(func(T) T { return next })
}

// Update derives the next value from the current one and notifies subscribers. When called
// during a notification, fn runs against the value current at the time it is dequeued.
func (s *Store[T]) Update(fn func(T) T) {
	s.pending = append(s.pending, fn)
	if s.notifying {
		return
	}
	s.notifying = true
	defer func() {
		s.notifying = false
		s.pending = nil
	}()
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.value = next(s.value)
		s.notify(s.value)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store[T]) SubscriberCount() int {
	return len(s.subs)
}

func (s *Store[T]) notify(v T) {
	// Subscriptions added during this round are not called until the next Set.
	subs := s.subs
	for _, sub := range subs {
		if sub.active {
			sub.fn(v)
		}
	}
}

// Unsubscribe removes the observer. Calling it more than once is a no-op.
func (sub *Subscription[T]) Unsubscribe() {
	if sub == nil || !sub.active {
		return
	}
	sub.active = false
	s := sub.store
	kept := make([]*Subscription[T], 0, len(s.subs))
	for _, other := range s.subs {
		if other != sub {
			kept = append(kept, other)
		}
	}
	s.subs = kept
}
