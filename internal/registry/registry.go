// Package registry holds the in-memory views the terminal renders from.
//
// A Registry is a keyed collection of records mutated only by whole-record
// replacement: Upsert replaces the record with the same key (or appends it),
// ReplaceAll swaps in a full snapshot. Fields of two records are never merged,
// so whichever write for a key lands last fully determines what is visible.
//
// The zone registry shared by the push channel and the gate session is a
// Registry[model.Zone]; the admin console keeps its parking-state report in a
// Registry[model.ParkingState].
package registry

import (
	"sync"
)

// Keyed is implemented by records that can be stored in a Registry.
type Keyed interface {
	Key() string
}

// Registry is a concurrency-safe, insertion-ordered collection of records.
type Registry[T Keyed] struct {
	mu      sync.RWMutex
	items   []T
	index   map[string]int
	version uint64

	watchers watcherSet
}

// New creates an empty registry.
func New[T Keyed]() *Registry[T] {
	return &Registry[T]{index: make(map[string]int)}
}

// Upsert replaces the record with the same key, or appends it when absent.
// Applying the same record twice leaves the registry unchanged apart from
// its version.
func (r *Registry[T]) Upsert(item T) {
	r.mu.Lock()
	key := item.Key()
	if i, ok := r.index[key]; ok {
		r.items[i] = item
	} else {
		r.index[key] = len(r.items)
		r.items = append(r.items, item)
	}
	r.version++
	r.mu.Unlock()

	r.watchers.notify()
}

// ReplaceAll discards every record and installs items in their given order.
// If items repeats a key, the later record wins and keeps the earlier position.
func (r *Registry[T]) ReplaceAll(items []T) {
	next := make([]T, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		key := item.Key()
		if i, ok := index[key]; ok {
			next[i] = item
			continue
		}
		index[key] = len(next)
		next = append(next, item)
	}

	r.mu.Lock()
	r.items = next
	r.index = index
	r.version++
	r.mu.Unlock()

	r.watchers.notify()
}

// Clear removes every record.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.items = nil
	r.index = make(map[string]int)
	r.version++
	r.mu.Unlock()

	r.watchers.notify()
}

// Get looks up a record by key.
func (r *Registry[T]) Get(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return r.items[i], true
}

// List returns a copy of all records in registry order.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of records.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Version increases on every mutation. Readers can compare versions to tell
// whether a List they hold is still current.
func (r *Registry[T]) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Watch returns a channel that receives a value after mutations. Bursts of
// mutations are coalesced into a single pending notification, so a slow
// reader only ever needs to re-read once. Call the returned cancel function
// to stop watching and close the channel.
func (r *Registry[T]) Watch() (<-chan struct{}, func()) {
	return r.watchers.add()
}

// watcherSet fans a change signal out to coalescing watcher channels.
type watcherSet struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func (w *watcherSet) add() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.mu.Lock()
	if w.subs == nil {
		w.subs = make(map[int]chan struct{})
	}
	id := w.next
	w.next++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (w *watcherSet) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
			// A notification is already pending.
		}
	}
}
