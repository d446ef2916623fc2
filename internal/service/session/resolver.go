package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/environment"
)

// NoticeNotFound is surfaced when an edit target does not exist.
const NoticeNotFound = "The requested record was not found, so a new record form was opened."

// IntentKind tells whether the form creates or edits a record.
type IntentKind string

const (
	IntentCreate IntentKind = "create"
	IntentEdit   IntentKind = "edit"
)

// Intent is the create/edit decision derived from an identity signal.
// Record is set when the environment embedded the full record.
type Intent struct {
	Kind   IntentKind     `json:"kind"`
	ID     string         `json:"id,omitempty"`
	Record *models.Record `json:"-"`
}

// Create returns the intent for a new record.
func Create() Intent {
	return Intent{Kind: IntentCreate}
}

// Edit returns the intent for editing the record with id.
func Edit(id string) Intent {
	return Intent{Kind: IntentEdit, ID: id}
}

// Resolve maps a signal onto an intent. It performs no I/O.
func Resolve(sig environment.Signal) Intent {
	if sig.Kind != environment.SignalID || sig.ID == "" {
		return Create()
	}
	intent := Edit(sig.ID)
	if sig.Record != nil {
		rec := *sig.Record
		intent.Record = &rec
	}
	return intent
}

// RecordGetter is the read side of the record repository.
type RecordGetter interface {
	Get(ctx context.Context, id string) (models.Record, error)
}

// LoadResult is the outcome of loading the data for an intent.
type LoadResult struct {
	RecordID string
	Fields   models.Fields
	NotFound bool
	Notice   string
}

// Resolver loads the authoritative data for an intent.
type Resolver struct {
	repo   RecordGetter
	logger *zap.Logger
}

// NewResolver wires a resolver over repo.
func NewResolver(repo RecordGetter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{repo: repo, logger: logger}
}

// LoadFor returns the form data for intent. Create and embedded-record
// intents never touch the store; Edit(id) issues exactly one Get. A missing
// record yields a NotFound result with a notice, not an error. Other
// failures are returned as *models.StoreError.
func (r *Resolver) LoadFor(ctx context.Context, intent Intent) (LoadResult, error) {
	if intent.Kind != IntentEdit || intent.ID == "" {
		return LoadResult{}, nil
	}

	if intent.Record != nil {
		r.logger.Debug("using embedded record", zap.String("record_id", intent.ID))
		return LoadResult{RecordID: intent.ID, Fields: intent.Record.Fields}, nil
	}

	rec, err := r.repo.Get(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.logger.Info("edit target not found, falling back to create", zap.String("record_id", intent.ID))
			return LoadResult{NotFound: true, Notice: NoticeNotFound}, nil
		}
		r.logger.Error("failed to load record", zap.String("record_id", intent.ID), zap.Error(err))
		return LoadResult{}, models.NewStoreError("get", err)
	}

	return LoadResult{RecordID: rec.ID, Fields: rec.Fields}, nil
}
