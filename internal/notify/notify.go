// Package notify is a small listener registry shared by the session and
// organization stores.
package notify

import (
	"sort"
	"sync"
)

// Registry fans a value out to subscribed listeners.
type Registry[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (r *Registry[T]) Subscribe(fn func(T)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[int]func(T))
	}
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Publish calls every listener with v. Listeners run outside the lock and in
// subscription order.
func (r *Registry[T]) Publish(v T) {
	r.mu.Lock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(T), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of live listeners.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}
