package environment

import (
	"sync"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// Params are the navigation parameters attached to the form screen.
type Params struct {
	RecordToEdit *models.Record `json:"recordToEdit,omitempty"`
}

// Native tracks the navigation parameters of a native shell screen.
type Native struct {
	mu       sync.Mutex
	params   Params
	notifier notifier
}

// NewNative starts with the given parameters.
func NewNative(params Params) *Native {
	return &Native{params: params}
}

// CurrentSignal derives the signal from recordToEdit.
func (n *Native) CurrentSignal() Signal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return signalFromParams(n.params)
}

// OnSignalChange subscribes to identity changes.
func (n *Native) OnSignalChange(handler func(Signal)) func() {
	return n.notifier.subscribe(handler)
}

// Watch delivers the current signal to handler and subscribes it.
func (n *Native) Watch(handler func(Signal)) func() {
	return n.notifier.watch(n.CurrentSignal, handler)
}

// SetParams replaces the navigation parameters. Subscribers are notified only
// when the identity of recordToEdit changes.
func (n *Native) SetParams(params Params) {
	n.notifier.deliver.Lock()
	defer n.notifier.deliver.Unlock()

	n.mu.Lock()
	prev := signalFromParams(n.params)
	n.params = params
	sig := signalFromParams(params)
	n.mu.Unlock()

	if prev.SameIdentity(sig) {
		return
	}

	for _, h := range n.notifier.snapshot() {
		h(sig)
	}
}

// ClearIdentity drops recordToEdit without notifying, provided it still
// names id.
func (n *Native) ClearIdentity(id string, commit func() bool) bool {
	return n.notifier.clear(commit, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()

		if sig := signalFromParams(n.params); sig.Kind != SignalID || sig.ID != id {
			return false
		}
		n.params.RecordToEdit = nil
		return true
	})
}

func signalFromParams(p Params) Signal {
	if p.RecordToEdit == nil {
		return None()
	}
	return WithRecord(*p.RecordToEdit)
}
