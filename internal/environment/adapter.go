// Package environment normalizes how a client expresses which record, if
// any, the form should edit. Browsers carry a recordId query parameter;
// native shells carry the whole record as a navigation parameter.
package environment

import (
	"sync"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// SignalKind tells whether an identity is present.
type SignalKind string

const (
	SignalNone SignalKind = "none"
	SignalID   SignalKind = "id"
)

// Signal is the normalized identity signal. Record is set when the
// environment already carries the full record.
type Signal struct {
	Kind   SignalKind
	ID     string
	Record *models.Record
}

// None is the signal for "no record selected".
func None() Signal {
	return Signal{Kind: SignalNone}
}

// WithID is the signal for a bare record id.
func WithID(id string) Signal {
	if id == "" {
		return None()
	}
	return Signal{Kind: SignalID, ID: id}
}

// WithRecord is the signal for an embedded record.
func WithRecord(rec models.Record) Signal {
	if rec.ID == "" {
		return None()
	}
	return Signal{Kind: SignalID, ID: rec.ID, Record: &rec}
}

// SameIdentity reports whether two signals point at the same record.
func (s Signal) SameIdentity(other Signal) bool {
	return s.Kind == other.Kind && s.ID == other.ID
}

// Adapter exposes the current signal and change notifications. Watch hands
// the current signal to handler and subscribes it as one step, so no change
// can be delivered ahead of the initial signal.
type Adapter interface {
	CurrentSignal() Signal
	OnSignalChange(handler func(Signal)) (unsubscribe func())
	Watch(handler func(Signal)) (unsubscribe func())
}

// IdentityClearer is implemented by adapters that can drop the identity
// from their state without emitting a change. ClearIdentity runs commit
// serialized with change delivery and drops the identity only when commit
// returns true and the identity still points at id. A nil commit always
// agrees. The return value reports whether the identity was dropped.
type IdentityClearer interface {
	ClearIdentity(id string, commit func() bool) bool
}

// notifier fans signal changes out to subscribers. Deliveries are
// serialized so handlers observe changes in the order they happened.
type notifier struct {
	mu       sync.Mutex
	deliver  sync.Mutex
	next     int
	handlers map[int]func(Signal)
}

func (n *notifier) subscribe(handler func(Signal)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.handlers == nil {
		n.handlers = make(map[int]func(Signal))
	}
	id := n.next
	n.next++
	n.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers, id)
		})
	}
}

// watch runs handler with current() and subscribes it while holding the
// delivery lock.
func (n *notifier) watch(current func() Signal, handler func(Signal)) func() {
	n.deliver.Lock()
	defer n.deliver.Unlock()

	handler(current())
	return n.subscribe(handler)
}

// clear runs commit and then drop under the delivery lock, skipping drop
// when commit declines.
func (n *notifier) clear(commit func() bool, drop func() bool) bool {
	n.deliver.Lock()
	defer n.deliver.Unlock()

	if commit != nil && !commit() {
		return false
	}
	return drop()
}

func (n *notifier) snapshot() []func(Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]func(Signal), 0, len(n.handlers))
	for i := 0; i < n.next; i++ {
		if h, ok := n.handlers[i]; ok {
			out = append(out, h)
		}
	}
	return out
}
