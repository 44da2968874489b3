package nfc

import (
	"sync"
)

// ListenerFunc receives normalized events. Callbacks must not assume any
// delivery order across distinct registrations for the same event, but every
// registered callback is invoked exactly once per event.
type ListenerFunc func(Event)

// Handle removes a single listener registration. Remove is idempotent: the
// second and later calls are no-ops.
type Handle struct {
	once   sync.Once
	remove func()
}

func newHandle(remove func()) *Handle {
	return &Handle{remove: remove}
}

// Remove detaches the exact registration this handle was returned for.
func (h *Handle) Remove() {
	h.once.Do(h.remove)
}

// listenerRegistry maps event names to callback registrations. Each
// registration gets its own identity, so the same function value may be
// registered more than once and removed individually.
type listenerRegistry struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventName]map[uint64]ListenerFunc
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{
		listeners: make(map[EventName]map[uint64]ListenerFunc),
	}
}

// add registers fn under event and returns a handle removing exactly this
// registration.
func (r *listenerRegistry) add(event EventName, fn ListenerFunc) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	set, ok := r.listeners[event]
	if !ok {
		set = make(map[uint64]ListenerFunc)
		r.listeners[event] = set
	}
	set[id] = fn

	return newHandle(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.listeners[event]; ok {
			delete(set, id)
		}
	})
}

// removeAll clears every registration for every event name.
func (r *listenerRegistry) removeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = make(map[EventName]map[uint64]ListenerFunc)
}

// dispatch fans ev out to all listeners registered for its event name. The
// listener set is snapshotted first so callbacks may add or remove listeners
// without deadlocking.
func (r *listenerRegistry) dispatch(ev Event) {
	r.mu.RLock()
	set := r.listeners[ev.eventName()]
	fns := make([]ListenerFunc, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// count returns the number of registrations for an event name.
func (r *listenerRegistry) count(event EventName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}
