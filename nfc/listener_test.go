package nfc

import (
	"testing"
)

func TestRegistryDispatchExactlyOnce(t *testing.T) {
	r := newListenerRegistry()

	calls := 0
	r.add(EventTagDetected, func(Event) { calls++ })
	r.add(EventTagDetected, func(Event) { calls++ })

	r.dispatch(TagEvent{ID: "04:AB"})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRegistryDispatchFiltersByEvent(t *testing.T) {
	r := newListenerRegistry()

	var tagCalls, statusCalls int
	r.add(EventTagDetected, func(Event) { tagCalls++ })
	r.add(EventStatusChanged, func(Event) { statusCalls++ })

	r.dispatch(StatusEvent{Enabled: true})
	if tagCalls != 0 || statusCalls != 1 {
		t.Errorf("tagCalls = %d, statusCalls = %d, want 0, 1", tagCalls, statusCalls)
	}
}

func TestRegistryRemoveByIdentity(t *testing.T) {
	r := newListenerRegistry()

	// The same function value registered twice has two identities; removing
	// one leaves the other in place.
	calls := 0
	fn := func(Event) { calls++ }
	h1 := r.add(EventTagDetected, fn)
	r.add(EventTagDetected, fn)

	h1.Remove()
	r.dispatch(TagEvent{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if got := r.count(EventTagDetected); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestHandleRemoveIdempotent(t *testing.T) {
	r := newListenerRegistry()

	h := r.add(EventTagDetected, func(Event) {})
	other := r.add(EventTagDetected, func(Event) {})

	h.Remove()
	h.Remove()
	if got := r.count(EventTagDetected); got != 1 {
		t.Errorf("count after double remove = %d, want 1", got)
	}
	other.Remove()
	if got := r.count(EventTagDetected); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestRegistryRemoveAll(t *testing.T) {
	r := newListenerRegistry()
	r.add(EventTagDetected, func(Event) {})
	r.add(EventStatusChanged, func(Event) {})

	r.removeAll()
	if r.count(EventTagDetected) != 0 || r.count(EventStatusChanged) != 0 {
		t.Errorf("registrations survived removeAll")
	}
}

func TestRegistryListenerMayRemoveDuringDispatch(t *testing.T) {
	r := newListenerRegistry()

	var h *Handle
	calls := 0
	h = r.add(EventTagDetected, func(Event) {
		calls++
		h.Remove()
	})

	r.dispatch(TagEvent{})
	r.dispatch(TagEvent{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
