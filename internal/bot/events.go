package bot

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Dispatcher delivers events synchronously to subscribers in the order they
// subscribed. Subscribers must not assume they are the only reader of T.
type Dispatcher[T any] struct {
	mu     sync.RWMutex
	subs   []subscriber[T]
	nextID int
}

// Subscribe registers fn and returns a function that removes it.
func (d *Dispatcher[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs = append(d.subs, subscriber[T]{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.subs {
				if s.id == id {
					d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Dispatch calls every subscriber with v. Subscribing or unsubscribing from
// inside a subscriber affects the next Dispatch, not this one.
func (d *Dispatcher[T]) Dispatch(v T) {
	d.mu.RLock()
	subs := d.subs
	d.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (d *Dispatcher[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
