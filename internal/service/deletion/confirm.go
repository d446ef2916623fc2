package deletion

import (
	"context"
	"sync"
)

// Prompt is the question shown before a record is deleted.
const Prompt = "Delete this record? This cannot be undone."

// Confirmer asks the user to approve a deletion.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Static answers every prompt with the same decision. Native alerts are
// answered on the device before the request arrives, so the request carries
// the answer.
type Static bool

// Confirm returns the fixed decision.
func (s Static) Confirm(context.Context, string) (bool, error) {
	return bool(s), nil
}

// Dialog is an in-document modal: Confirm blocks until Accept or Dismiss is
// called or ctx ends. Decisions made before Confirm is reached are kept.
type Dialog struct {
	once     sync.Once
	decision chan bool

	mu     sync.Mutex
	prompt string
	open   bool
}

// NewDialog returns a closed dialog.
func NewDialog() *Dialog {
	return &Dialog{decision: make(chan bool, 1)}
}

// Confirm opens the dialog and waits for the decision.
func (d *Dialog) Confirm(ctx context.Context, prompt string) (bool, error) {
	d.mu.Lock()
	d.prompt = prompt
	d.open = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.open = false
		d.mu.Unlock()
	}()

	select {
	case ok := <-d.decision:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Accept answers yes. Only the first decision counts.
func (d *Dialog) Accept() {
	d.decide(true)
}

// Dismiss answers no, like a cancel button or a backdrop press.
func (d *Dialog) Dismiss() {
	d.decide(false)
}

func (d *Dialog) decide(ok bool) {
	d.once.Do(func() {
		d.decision <- ok
	})
}

// Open reports whether the dialog is waiting, and with which prompt.
func (d *Dialog) Open() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompt, d.open
}
