// Package session owns the lifecycle of the record form: deciding between
// create and edit, loading the record, and submitting it.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/environment"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
)

// RecordsPath is where clients navigate after a successful submit.
const RecordsPath = "/Records"

var (
	// ErrStaleResult is returned to the caller whose load was superseded.
	ErrStaleResult = errors.New("load superseded by a newer identity")

	// ErrNotReady indicates the session is not in a state accepting the operation.
	ErrNotReady = errors.New("session not ready")

	// ErrSubmitInProgress rejects overlapping submits.
	ErrSubmitInProgress = errors.New("submit already in progress")

	// ErrNothingToRetry indicates Retry was called without a failed load.
	ErrNothingToRetry = errors.New("no failed load to retry")
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Mode tells whether a ready session creates or edits.
type Mode string

const (
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

type failedOp int

const (
	failedNone failedOp = iota
	failedLoad
	failedSubmit
)

// Repository is the subset of the record store the session needs.
type Repository interface {
	RecordGetter
	Add(ctx context.Context, fields models.Fields) (string, error)
	Update(ctx context.Context, id string, fields models.Fields) error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Status   Status        `json:"status"`
	Mode     Mode          `json:"mode,omitempty"`
	Intent   Intent        `json:"intent"`
	RecordID string        `json:"record_id,omitempty"`
	Fields   models.Fields `json:"fields"`
	Notice   string        `json:"notice,omitempty"`
	Error    string        `json:"error,omitempty"`
	Token    uint64        `json:"token"`
}

// SubmitResult describes a successful submit.
type SubmitResult struct {
	RecordID string `json:"record_id"`
	Mode     Mode   `json:"mode"`
	Message  string `json:"message"`
	Navigate string `json:"navigate"`
}

// Option customizes a Machine.
type Option func(*Machine)

// WithMetrics records stale discards and submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(machine *Machine) {
		machine.metrics = m
	}
}

// Machine is the form session state machine. Every load is tagged with a
// strictly increasing token; a completion applies only if its token is
// still the latest, so the last dispatched intent wins regardless of the
// order in which fetches complete.
type Machine struct {
	resolver *Resolver
	repo     Repository
	logger   *zap.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup

	mu         sync.Mutex
	adapter    environment.Adapter
	token      uint64
	status     Status
	mode       Mode
	intent     Intent
	recordID   string
	fields     models.Fields
	notice     string
	err        error
	failed     failedOp
	submitting bool
}

// NewMachine returns an idle session backed by repo.
func NewMachine(repo Repository, logger *zap.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		resolver: NewResolver(repo, logger.Named("resolver")),
		repo:     repo,
		logger:   logger,
		status:   StatusIdle,
		intent:   Create(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start enters Loading for intent and blocks until the load is applied or
// discarded. It returns ErrStaleResult when a newer intent was dispatched
// meanwhile, and a *models.StoreError when the fetch failed.
func (m *Machine) Start(ctx context.Context, intent Intent) error {
	token := m.dispatch(intent)
	_, err := m.load(ctx, token, intent)
	return err
}

// Follow drives the session from adapter: the current signal is dispatched
// immediately and every later change dispatches a new intent. Tokens are
// taken synchronously in the change handler, loads run in the background.
// The returned func stops following.
func (m *Machine) Follow(ctx context.Context, adapter environment.Adapter) func() {
	handle := func(sig environment.Signal) {
		intent := Resolve(sig)
		token := m.dispatch(intent)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			notFound, err := m.load(ctx, token, intent)
			if err != nil || !notFound {
				return
			}
			if clearer, ok := adapter.(environment.IdentityClearer); ok {
				clearer.ClearIdentity(intent.ID, func() bool { return m.current(token) })
			}
		}()
	}

	m.mu.Lock()
	m.adapter = adapter
	m.mu.Unlock()

	unsubscribe := adapter.Watch(handle)
	return func() {
		unsubscribe()
		m.mu.Lock()
		if m.adapter == adapter {
			m.adapter = nil
		}
		m.mu.Unlock()
	}
}

func (m *Machine) current(token uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return token == m.token
}

// Wait blocks until every background load started by Follow has finished.
func (m *Machine) Wait() {
	m.wg.Wait()
}

func (m *Machine) dispatch(intent Intent) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token++
	m.status = StatusLoading
	m.intent = intent
	m.notice = ""
	m.err = nil
	m.failed = failedNone

	m.logger.Debug("session load dispatched",
		zap.Uint64("token", m.token),
		zap.String("intent", string(intent.Kind)),
		zap.String("record_id", intent.ID))
	return m.token
}

func (m *Machine) load(ctx context.Context, token uint64, intent Intent) (bool, error) {
	res, loadErr := m.resolver.LoadFor(ctx, intent)

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.token {
		m.logger.Debug("discarding stale load",
			zap.Uint64("token", token),
			zap.Uint64("current", m.token),
			zap.String("record_id", intent.ID))
		if m.metrics != nil {
			m.metrics.StaleResults.Inc()
		}
		return false, ErrStaleResult
	}

	if loadErr != nil {
		m.status = StatusError
		m.err = loadErr
		m.failed = failedLoad
		return false, loadErr
	}

	m.status = StatusReady
	m.fields = res.Fields
	m.notice = res.Notice

	switch {
	case res.NotFound:
		m.mode = ModeCreating
		m.intent = Create()
		m.recordID = ""
	case intent.Kind == IntentEdit:
		m.mode = ModeEditing
		m.recordID = res.RecordID
	default:
		m.mode = ModeCreating
		m.recordID = ""
	}

	return res.NotFound, nil
}

// Retry reloads the current intent after a failed load.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusError || m.failed != failedLoad {
		m.mu.Unlock()
		return ErrNothingToRetry
	}
	intent := m.intent
	m.mu.Unlock()

	return m.Start(ctx, intent)
}

// SetField edits the working copy in place without changing the status.
func (m *Machine) SetField(name, value string) error {
	return m.SetFields(map[string]string{name: value})
}

// SetFields applies every edit in patch or none of them.
func (m *Machine) SetFields(patch map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.fields
	for name, value := range patch {
		if err := next.Set(name, value); err != nil {
			return err
		}
	}
	if m.submitting {
		return ErrSubmitInProgress
	}
	if !m.editableLocked() {
		return ErrNotReady
	}
	m.fields = next
	return nil
}

func (m *Machine) editableLocked() bool {
	return m.status == StatusReady || (m.status == StatusError && m.failed == failedSubmit)
}

// Submit validates and persists the working copy. Validation failures make
// no store call and leave the session Ready. On success the session returns
// to Idle; on store failure it enters Error with the input preserved.
func (m *Machine) Submit(ctx context.Context) (SubmitResult, error) {
	m.mu.Lock()
	if m.submitting {
		m.mu.Unlock()
		return SubmitResult{}, ErrSubmitInProgress
	}
	if !m.editableLocked() {
		m.mu.Unlock()
		return SubmitResult{}, ErrNotReady
	}

	fields := m.fields
	mode := m.mode
	if err := fields.Validate(); err != nil {
		m.mu.Unlock()
		m.countSubmission(mode, "invalid")
		return SubmitResult{}, err
	}

	id := m.recordID
	token := m.token
	m.submitting = true
	m.mu.Unlock()

	var err error
	op := "add"
	if mode == ModeEditing {
		op = "update"
		err = m.repo.Update(ctx, id, fields)
	} else {
		id, err = m.repo.Add(ctx, fields)
	}

	if err != nil {
		err = models.NewStoreError(op, err)
		m.logger.Error("failed to save record", zap.String("op", op), zap.String("record_id", id), zap.Error(err))

		m.mu.Lock()
		m.submitting = false
		if token == m.token {
			m.status = StatusError
			m.err = err
			m.failed = failedSubmit
		}
		m.mu.Unlock()

		m.countSubmission(mode, "error")
		return SubmitResult{}, err
	}

	m.finishSubmit(token, mode, id)
	m.countSubmission(mode, "ok")

	message := "New record added."
	if mode == ModeEditing {
		message = "Record updated."
	}
	m.logger.Info("record saved", zap.String("op", op), zap.String("record_id", id))

	return SubmitResult{RecordID: id, Mode: mode, Message: message, Navigate: RecordsPath}, nil
}

// finishSubmit resets the session unless a newer intent was dispatched while
// the save was in flight. An edited record's identity is dropped from the
// followed adapter in the same step, so a concurrent navigation is never
// erased.
func (m *Machine) finishSubmit(token uint64, mode Mode, id string) {
	commit := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.submitting = false
		if token != m.token {
			return false
		}
		m.resetLocked()
		return true
	}

	m.mu.Lock()
	adapter := m.adapter
	m.mu.Unlock()

	clearer, ok := adapter.(environment.IdentityClearer)
	if !ok || mode != ModeEditing {
		commit()
		return
	}
	clearer.ClearIdentity(id, commit)
}

func (m *Machine) countSubmission(mode Mode, outcome string) {
	if m.metrics == nil {
		return
	}
	if mode == "" {
		mode = ModeCreating
	}
	m.metrics.Submissions.WithLabelValues(string(mode), outcome).Inc()
}

// Reset clears the session to Idle and invalidates any in-flight load.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token++
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	m.status = StatusIdle
	m.mode = ""
	m.intent = Create()
	m.recordID = ""
	m.fields = models.Fields{}
	m.notice = ""
	m.err = nil
	m.failed = failedNone
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Status:   m.status,
		Mode:     m.mode,
		Intent:   m.intent,
		RecordID: m.recordID,
		Fields:   m.fields,
		Notice:   m.notice,
		Token:    m.token,
	}
	if m.err != nil {
		snap.Error = m.err.Error()
	}
	return snap
}
