package exodbc

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a token returned by observerList.Subscribe. Callers keep
// it only to pass to Unsubscribe; there is nothing to read off it.
type Subscription struct {
	id uuid.UUID
}

// observerList is a mutex-guarded set of callbacks notified when a
// statement handle broadcasts columns-unbound or params-reset. Broadcasting
// takes a snapshot before invoking callbacks so a callback that
// re-subscribes or unsubscribes during the broadcast cannot corrupt the
// iteration (spec requirement: subscribers re-entering during broadcast
// must be safe).
type observerList struct {
	mu        sync.Mutex
	observers map[uuid.UUID]func()
}

func newObserverList() *observerList {
	return &observerList{observers: make(map[uuid.UUID]func())}
}

// Subscribe registers fn and returns a token identifying the registration.
func (o *observerList) Subscribe(fn func()) *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := uuid.New()
	o.observers[id] = fn
	return &Subscription{id: id}
}

// Unsubscribe removes a prior registration. Safe to call more than once.
func (o *observerList) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, sub.id)
}

// Broadcast notifies every currently-registered observer. All observers are
// notified before Broadcast returns.
func (o *observerList) Broadcast() {
	o.mu.Lock()
	snapshot := make([]func(), 0, len(o.observers))
	for _, fn := range o.observers {
		snapshot = append(snapshot, fn)
	}
	o.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}
