// Package workspace keeps the live form sessions, list views and pending
// deletion dialogs of connected clients.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/environment"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/session"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrViewNotFound     = errors.New("list view not found")
	ErrDeletionNotFound = errors.New("deletion not found")
	ErrNotBrowser       = errors.New("session is not a browser session")
	ErrNotNative        = errors.New("session is not a native session")
)

// Environment names the client kind of a session.
type Environment string

const (
	EnvBrowser Environment = "browser"
	EnvNative  Environment = "native"
)

// SessionEntry is one live form session.
type SessionEntry struct {
	ID          string
	Environment Environment
	Machine     *session.Machine
	Browser     *environment.Browser
	Native      *environment.Native

	stop     func()
	lastUsed time.Time
}

// Settle waits for background loads of the session to finish or ctx to end.
func (e *SessionEntry) Settle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.Machine.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ViewEntry is one live list view.
type ViewEntry struct {
	ID   string
	View *listing.View

	lastUsed time.Time
}

// DeletionEntry is a deletion waiting on, or finished with, its modal dialog.
type DeletionEntry struct {
	ID     string
	Flow   *deletion.Flow
	Dialog *deletion.Dialog

	done     chan struct{}
	lastUsed time.Time
}

// Done is closed when the flow reached a terminal status.
func (e *DeletionEntry) Done() <-chan struct{} {
	return e.done
}

// Workspace is safe for concurrent use.
type Workspace struct {
	repo      repository.RecordRepository
	listing   *listing.Service
	deletions *deletion.Coordinator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*SessionEntry
	views    map[string]*ViewEntry
	pending  map[string]*DeletionEntry
}

// New wires a workspace. Background work runs until Close.
func New(repo repository.RecordRepository, listingSvc *listing.Service, deletions *deletion.Coordinator, m *metrics.Metrics, ttl time.Duration, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Workspace{
		repo:      repo,
		listing:   listingSvc,
		deletions: deletions,
		metrics:   m,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*SessionEntry),
		views:     make(map[string]*ViewEntry),
		pending:   make(map[string]*DeletionEntry),
	}
}

func (w *Workspace) newMachine() *session.Machine {
	var opts []session.Option
	if w.metrics != nil {
		opts = append(opts, session.WithMetrics(w.metrics))
	}
	return session.NewMachine(w.repo, w.logger.Named("session"), opts...)
}

// OpenBrowserSession starts a session following a browser location.
func (w *Workspace) OpenBrowserSession(location string) (*SessionEntry, error) {
	browser, err := environment.NewBrowser(location)
	if err != nil {
		return nil, err
	}

	entry := &SessionEntry{
		ID:          uuid.NewString(),
		Environment: EnvBrowser,
		Machine:     w.newMachine(),
		Browser:     browser,
	}
	entry.stop = entry.Machine.Follow(w.ctx, browser)
	w.addSession(entry)
	return entry, nil
}

// OpenNativeSession starts a session following native navigation parameters.
func (w *Workspace) OpenNativeSession(params environment.Params) *SessionEntry {
	native := environment.NewNative(params)

	entry := &SessionEntry{
		ID:          uuid.NewString(),
		Environment: EnvNative,
		Machine:     w.newMachine(),
		Native:      native,
	}
	entry.stop = entry.Machine.Follow(w.ctx, native)
	w.addSession(entry)
	return entry
}

func (w *Workspace) addSession(entry *SessionEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry.lastUsed = w.now()
	w.sessions[entry.ID] = entry
	w.logger.Debug("session opened", zap.String("session_id", entry.ID), zap.String("environment", string(entry.Environment)))
}

// Session looks up a session and marks it used.
func (w *Workspace) Session(id string) (*SessionEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	entry.lastUsed = w.now()
	return entry, nil
}

// Navigate moves a browser session to location.
func (w *Workspace) Navigate(id, location string) (*SessionEntry, error) {
	entry, err := w.Session(id)
	if err != nil {
		return nil, err
	}
	if entry.Browser == nil {
		return nil, ErrNotBrowser
	}
	if err := entry.Browser.Navigate(location); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetParams replaces the navigation parameters of a native session.
func (w *Workspace) SetParams(id string, params environment.Params) (*SessionEntry, error) {
	entry, err := w.Session(id)
	if err != nil {
		return nil, err
	}
	if entry.Native == nil {
		return nil, ErrNotNative
	}
	entry.Native.SetParams(params)
	return entry, nil
}

// CloseSession stops and forgets a session.
func (w *Workspace) CloseSession(id string) error {
	w.mu.Lock()
	entry, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	entry.stop()
	entry.Machine.Reset()
	return nil
}

// OpenView creates a list view and runs its first search.
func (w *Workspace) OpenView(ctx context.Context, spec models.FilterSpec) (*ViewEntry, error) {
	entry := &ViewEntry{
		ID:   uuid.NewString(),
		View: listing.NewView(w.listing, w.logger.Named("view")),
	}

	w.mu.Lock()
	entry.lastUsed = w.now()
	w.views[entry.ID] = entry
	w.mu.Unlock()

	return entry, entry.View.Search(ctx, spec)
}

// View looks up a list view and marks it used.
func (w *Workspace) View(id string) (*ViewEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	entry.lastUsed = w.now()
	return entry, nil
}

// CloseView forgets a list view.
func (w *Workspace) CloseView(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.views[id]; !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	delete(w.views, id)
	return nil
}

// BeginDeletion opens a modal deletion of recordID from the list view viewID.
// The flow waits on its dialog in the background; a Done deletion re-queries
// the view.
func (w *Workspace) BeginDeletion(viewID, recordID string) (*DeletionEntry, error) {
	view, err := w.View(viewID)
	if err != nil {
		return nil, err
	}

	flow, err := w.deletions.Begin(recordID, func(ctx context.Context, _ string) error {
		return view.View.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	entry := &DeletionEntry{
		ID:     uuid.NewString(),
		Flow:   flow,
		Dialog: deletion.NewDialog(),
		done:   make(chan struct{}),
	}

	w.mu.Lock()
	entry.lastUsed = w.now()
	w.pending[entry.ID] = entry
	w.mu.Unlock()

	go func() {
		defer close(entry.done)
		if _, err := flow.Run(w.ctx, entry.Dialog); err != nil {
			w.logger.Warn("deletion failed", zap.String("deletion_id", entry.ID), zap.Error(err))
		}
	}()

	return entry, nil
}

// Deletion looks up a deletion entry.
func (w *Workspace) Deletion(id string) (*DeletionEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.pending[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeletionNotFound, id)
	}
	entry.lastUsed = w.now()
	return entry, nil
}

// Purge drops sessions, views and finished or abandoned deletions unused for
// longer than the idle TTL. It returns how many entries were removed.
func (w *Workspace) Purge() int {
	cutoff := w.now().Add(-w.ttl)

	w.mu.Lock()
	var stale []*SessionEntry
	for id, entry := range w.sessions {
		if entry.lastUsed.Before(cutoff) {
			stale = append(stale, entry)
			delete(w.sessions, id)
		}
	}
	removed := len(stale)
	for id, entry := range w.views {
		if entry.lastUsed.Before(cutoff) {
			delete(w.views, id)
			removed++
		}
	}
	var abandoned []*DeletionEntry
	for id, entry := range w.pending {
		if entry.lastUsed.Before(cutoff) {
			abandoned = append(abandoned, entry)
			delete(w.pending, id)
			removed++
		}
	}
	w.mu.Unlock()

	for _, entry := range stale {
		entry.stop()
		entry.Machine.Reset()
	}
	for _, entry := range abandoned {
		entry.Dialog.Dismiss()
	}

	if removed > 0 {
		w.logger.Info("idle workspace entries purged", zap.Int("removed", removed))
	}
	return removed
}

// Counts returns the number of live sessions, views and deletions.
func (w *Workspace) Counts() (sessions, views, deletions int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions), len(w.views), len(w.pending)
}

// Close stops background work and dismisses open dialogs.
func (w *Workspace) Close() {
	w.mu.Lock()
	entries := make([]*SessionEntry, 0, len(w.sessions))
	for _, entry := range w.sessions {
		entries = append(entries, entry)
	}
	for _, entry := range w.pending {
		entry.Dialog.Dismiss()
	}
	w.mu.Unlock()

	for _, entry := range entries {
		entry.stop()
	}
	w.cancel()
}
