package environment

import (
	"fmt"
	"net/url"
	"sync"
)

// RecordIDParam is the query parameter carrying the record id in a browser.
const RecordIDParam = "recordId"

// Browser tracks a browser location.
type Browser struct {
	mu       sync.Mutex
	location *url.URL
	notifier notifier
}

// NewBrowser parses the initial location.
func NewBrowser(rawURL string) (*Browser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse location %q: %w", rawURL, err)
	}
	return &Browser{location: u}, nil
}

// CurrentSignal derives the signal from the recordId query parameter.
func (b *Browser) CurrentSignal() Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return signalFromURL(b.location)
}

// Location returns the current location string.
func (b *Browser) Location() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.location.String()
}

// OnSignalChange subscribes to identity changes.
func (b *Browser) OnSignalChange(handler func(Signal)) func() {
	return b.notifier.subscribe(handler)
}

// Watch delivers the current signal to handler and subscribes it.
func (b *Browser) Watch(handler func(Signal)) func() {
	return b.notifier.watch(b.CurrentSignal, handler)
}

// Navigate moves to rawURL. Subscribers are notified only when the recordId
// value differs from the previous location.
func (b *Browser) Navigate(rawURL string) error {
	next, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse location %q: %w", rawURL, err)
	}

	b.notifier.deliver.Lock()
	defer b.notifier.deliver.Unlock()

	b.mu.Lock()
	prev := signalFromURL(b.location)
	b.location = next
	sig := signalFromURL(next)
	b.mu.Unlock()

	if prev.SameIdentity(sig) {
		return nil
	}

	for _, h := range b.notifier.snapshot() {
		h(sig)
	}
	return nil
}

// ClearIdentity removes recordId from the location without notifying,
// like history.replaceState. A location that already moved on to another
// record is left alone.
func (b *Browser) ClearIdentity(id string, commit func() bool) bool {
	return b.notifier.clear(commit, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sig := signalFromURL(b.location); sig.Kind != SignalID || sig.ID != id {
			return false
		}

		u := *b.location
		q := u.Query()
		q.Del(RecordIDParam)
		u.RawQuery = q.Encode()
		b.location = &u
		return true
	})
}

func signalFromURL(u *url.URL) Signal {
	if u == nil {
		return None()
	}
	return WithID(u.Query().Get(RecordIDParam))
}
