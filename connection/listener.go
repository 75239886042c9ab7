package connection

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// Listener observes connections opened and closed by a Factory.
//
// Callbacks are invoked synchronously, in registration order, while the
// factory lock is held. Implementations must return quickly and must not call
// back into the same factory (CreateConnection, Destroy, the listener setters
// or CreateChannel on its connections); doing so deadlocks.
//
// The conn passed to a callback is the underlying transport connection, not
// the shared handle returned by CreateConnection. Calling Close on it closes
// the transport and delivers OnClose.
type Listener interface {
	OnCreate(conn Connection)
	OnClose(conn Connection)
}

// ListenerFuncs adapts plain functions to the Listener interface. Nil fields
// are ignored. Register it by pointer; the pointer identifies the listener when
// the same set is registered again.
type ListenerFuncs struct {
	Create func(conn Connection)
	Close  func(conn Connection)
}

// OnCreate implements Listener.
func (l *ListenerFuncs) OnCreate(conn Connection) {
	if l != nil && l.Create != nil {
		l.Create(conn)
	}
}

// OnClose implements Listener.
func (l *ListenerFuncs) OnClose(conn Connection) {
	if l != nil && l.Close != nil {
		l.Close(conn)
	}
}

type listenerEntry struct {
	listener Listener
	// notified holds the id of the connection this listener last received
	// OnCreate for, or "" once the matching OnClose was delivered.
	notified string
}

// listenerRegistry is guarded by the owning factory's mutex.
type listenerRegistry struct {
	entries   []*listenerEntry
	logger    zerolog.Logger
	onFailure func()
}

// replace swaps the registered listeners. Entries that survive the swap keep
// their notification state so they are not told about the same connection twice.
func (r *listenerRegistry) replace(listeners []Listener) {
	previous := r.entries
	claimed := make([]bool, len(previous))
	entries := make([]*listenerEntry, 0, len(listeners))
	for _, listener := range listeners {
		if listener == nil {
			continue
		}
		entry := &listenerEntry{listener: listener}
		for i, old := range previous {
			if claimed[i] || !sameListener(old.listener, listener) {
				continue
			}
			claimed[i] = true
			entry.notified = old.notified
			break
		}
		entries = append(entries, entry)
	}
	r.entries = entries
}

func (r *listenerRegistry) add(listener Listener) {
	if listener == nil {
		return
	}
	r.entries = append(r.entries, &listenerEntry{listener: listener})
}

// catchUp delivers OnCreate to every listener that has not seen conn yet.
func (r *listenerRegistry) catchUp(conn Connection) {
	id := conn.ID()
	for _, entry := range r.entries {
		if entry.notified == id {
			continue
		}
		entry.notified = id
		r.invoke(entry, "create", conn)
	}
}

func (r *listenerRegistry) notifyCreate(conn Connection) {
	id := conn.ID()
	for _, entry := range r.entries {
		entry.notified = id
		r.invoke(entry, "create", conn)
	}
}

// notifyClose only reaches listeners that were told about conn being created.
func (r *listenerRegistry) notifyClose(conn Connection) {
	id := conn.ID()
	for _, entry := range r.entries {
		if entry.notified != id {
			continue
		}
		entry.notified = ""
		r.invoke(entry, "close", conn)
	}
}

func (r *listenerRegistry) invoke(entry *listenerEntry, event string, conn Connection) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Err(fmt.Errorf("%w: %v", ErrListenerNotification, rec)).
				Str("event", event).
				Str("connection", conn.ID()).
				Msg("connection listener failed")
			if r.onFailure != nil {
				r.onFailure()
			}
		}
	}()
	switch event {
	case "create":
		entry.listener.OnCreate(conn)
	case "close":
		entry.listener.OnClose(conn)
	}
}

// sameListener compares listeners without panicking on values whose dynamic
// type cannot be compared, such as a struct holding funcs.
func sameListener(a, b Listener) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
