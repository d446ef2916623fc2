package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/instrumented"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/memory"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/server/handlers"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/server/router"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
)

func newEngine(t *testing.T) (*gin.Engine, *memory.Repository) {
	t.Helper()

	store := memory.New()
	return newEngineWith(t, store), store
}

func newEngineWith(t *testing.T, store repository.RecordRepository) *gin.Engine {
	t.Helper()

	m := metrics.New()
	repo := instrumented.Wrap(store, m, nil)
	builder := listing.NewBuilder(time.UTC)
	svc := listing.NewService(repo, builder, nil)
	deletions := deletion.NewCoordinator(repo, m, nil)
	ws := workspace.New(repo, svc, deletions, m, time.Hour, nil)
	t.Cleanup(ws.Close)

	engine := router.New(router.Handlers{
		Records:   handlers.NewRecordsHandler(repo, svc, deletions, nil),
		Sessions:  handlers.NewSessionsHandler(ws, nil),
		Views:     handlers.NewViewsHandler(ws, builder, nil),
		Deletions: handlers.NewDeletionsHandler(ws, nil),
	}, m, nil)
	return engine
}

// heldUpdates blocks every Update until release is closed.
type heldUpdates struct {
	*memory.Repository

	once    sync.Once
	arrived chan struct{}
	release chan struct{}
}

func (r *heldUpdates) Update(ctx context.Context, id string, fields models.Fields) error {
	r.once.Do(func() { close(r.arrived) })
	<-r.release
	return r.Repository.Update(ctx, id, fields)
}

func do(t *testing.T, engine http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func completeForm() map[string]string {
	return map[string]string{
		models.FieldVehicleNumber:    "V-100",
		models.FieldUserName:         "Nakamura",
		models.FieldVehicleModel:     "Fuso Canter",
		models.FieldIssueDescription: "Flat tire",
		models.FieldActionTaken:      "Replaced tire",
		models.FieldRepairNotes:      "",
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	engine, _ := newEngine(t)

	code, body := do(t, engine, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `truck_maintenance_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestRecords_ListAndGet(t *testing.T) {
	engine, store := newEngine(t)
	store.Seed(models.Record{ID: "a", Fields: models.Fields{VehicleNumber: "V-1"}, CreatedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)})
	store.Seed(models.Record{ID: "b", Fields: models.Fields{VehicleNumber: "V-2"}, CreatedAt: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)})

	code, body := do(t, engine, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 2, body["count"])

	code, body = do(t, engine, http.MethodGet, "/api/records?vehicle_number=V-1", nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["count"])

	code, body = do(t, engine, http.MethodGet, "/api/records?start_date=2024-03-06&end_date=2024-03-06", nil)
	require.Equal(t, http.StatusOK, code)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	require.Equal(t, "b", records[0].(map[string]any)["id"])

	code, _ = do(t, engine, http.MethodGet, "/api/records?start_date=2024-03-07&end_date=2024-03-06", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, engine, http.MethodGet, "/api/records/a", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "V-1", body[models.FieldVehicleNumber])

	code, _ = do(t, engine, http.MethodGet, "/api/records/zzz", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestRecords_DeleteNeedsConfirmation(t *testing.T) {
	engine, store := newEngine(t)
	store.Seed(models.Record{ID: "X"})

	code, body := do(t, engine, http.MethodDelete, "/api/records/X", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(deletion.StatusCancelled), body["status"])
	require.Equal(t, 1, store.Len())

	code, body = do(t, engine, http.MethodDelete, "/api/records/X?confirm=true", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(deletion.StatusDone), body["status"])
	require.Equal(t, "Record deleted.", body["message"])
	require.Zero(t, store.Len())
}

func TestSessions_CreateThenEdit(t *testing.T) {
	engine, store := newEngine(t)

	code, body := do(t, engine, http.MethodPost, "/api/sessions", map[string]any{})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "creating", body["mode"])
	require.Equal(t, "browser", body["environment"])
	sessionID := body["id"].(string)

	code, body = do(t, engine, http.MethodPatch, "/api/sessions/"+sessionID+"/fields", map[string]string{
		models.FieldVehicleNumber: "V-100",
	})
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, engine, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.ElementsMatch(t, []any{models.FieldUserName, models.FieldIssueDescription, models.FieldActionTaken}, body["missing_fields"])
	require.Zero(t, store.Len())

	code, _ = do(t, engine, http.MethodPatch, "/api/sessions/"+sessionID+"/fields", map[string]string{"odometer": "1"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, engine, http.MethodPatch, "/api/sessions/"+sessionID+"/fields", completeForm())
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, engine, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "New record added.", body["message"])
	require.Equal(t, "/Records", body["navigate"])
	recordID := body["record_id"].(string)
	require.Equal(t, 1, store.Len())

	code, body = do(t, engine, http.MethodPost, "/api/sessions", map[string]any{"location": "/RecordForm?recordId=" + recordID})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "editing", body["mode"])
	fields := body["fields"].(map[string]any)
	for name, value := range completeForm() {
		require.Equal(t, value, fields[name])
	}
	editID := body["id"].(string)

	code, _ = do(t, engine, http.MethodPatch, "/api/sessions/"+editID+"/fields", map[string]string{models.FieldRepairNotes: "rotated"})
	require.Equal(t, http.StatusOK, code)
	code, body = do(t, engine, http.MethodPost, "/api/sessions/"+editID+"/submit", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Record updated.", body["message"])

	code, _ = do(t, engine, http.MethodDelete, "/api/sessions/"+editID, nil)
	require.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, engine, http.MethodGet, "/api/sessions/"+editID, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestSessions_SubmitKeepsLocationNavigatedMeanwhile(t *testing.T) {
	store := &heldUpdates{
		Repository: memory.New(),
		arrived:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	store.Seed(models.Record{ID: "A", Fields: models.Fields{VehicleNumber: "A-plate"}})
	store.Seed(models.Record{ID: "B", Fields: models.Fields{VehicleNumber: "B-plate"}})
	engine := newEngineWith(t, store)

	_, body := do(t, engine, http.MethodPost, "/api/sessions", map[string]any{"location": "/RecordForm?recordId=A"})
	sessionID := body["id"].(string)
	code, _ := do(t, engine, http.MethodPatch, "/api/sessions/"+sessionID+"/fields", completeForm())
	require.Equal(t, http.StatusOK, code)

	submitted := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		submitted <- rec.Code
	}()
	<-store.arrived

	code, body = do(t, engine, http.MethodPut, "/api/sessions/"+sessionID+"/location", map[string]string{"location": "/RecordForm?recordId=B"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "B", body["record_id"])

	close(store.release)
	require.Equal(t, http.StatusOK, <-submitted)

	code, body = do(t, engine, http.MethodGet, "/api/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "editing", body["mode"])
	require.Equal(t, "B", body["record_id"])
	require.Equal(t, "/RecordForm?recordId=B", body["location"])
	require.Equal(t, "B-plate", body["fields"].(map[string]any)[models.FieldVehicleNumber])
}

func TestSessions_SubmitClearsEditedLocation(t *testing.T) {
	engine, store := newEngine(t)
	store.Seed(models.Record{ID: "A", Fields: models.Fields{VehicleNumber: "A-plate"}})

	_, body := do(t, engine, http.MethodPost, "/api/sessions", map[string]any{"location": "/RecordForm?recordId=A"})
	sessionID := body["id"].(string)
	code, _ := do(t, engine, http.MethodPatch, "/api/sessions/"+sessionID+"/fields", completeForm())
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, engine, http.MethodPost, "/api/sessions/"+sessionID+"/submit", nil)
	require.Equal(t, http.StatusOK, code)

	_, body = do(t, engine, http.MethodGet, "/api/sessions/"+sessionID, nil)
	require.Equal(t, "idle", body["status"])
	require.Equal(t, "/RecordForm", body["location"])
}

func TestSessions_MissingRecordOpensCreateForm(t *testing.T) {
	engine, _ := newEngine(t)

	code, body := do(t, engine, http.MethodPost, "/api/sessions", map[string]any{"location": "/RecordForm?recordId=ghost"})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "creating", body["mode"])
	require.NotEmpty(t, body["notice"])
	require.Equal(t, "/RecordForm", body["location"])
}

func TestSessions_NativeNavigation(t *testing.T) {
	engine, _ := newEngine(t)

	code, body := do(t, engine, http.MethodPost, "/api/sessions", map[string]any{
		"navigation": map[string]any{
			"recordToEdit": map[string]any{"id": "r9", models.FieldUserName: "Ono"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "native", body["environment"])
	require.Equal(t, "editing", body["mode"])
	require.Equal(t, "r9", body["record_id"])
	sessionID := body["id"].(string)

	code, body = do(t, engine, http.MethodPut, "/api/sessions/"+sessionID+"/navigation", map[string]any{})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "creating", body["mode"])

	code, _ = do(t, engine, http.MethodPut, "/api/sessions/"+sessionID+"/location", map[string]any{"location": "/RecordForm"})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestViews_ModalDeletion(t *testing.T) {
	engine, store := newEngine(t)
	store.Seed(models.Record{ID: "X", Fields: models.Fields{VehicleNumber: "V-1"}, CreatedAt: time.Now()})
	store.Seed(models.Record{ID: "Y", Fields: models.Fields{VehicleNumber: "V-2"}, CreatedAt: time.Now()})

	code, body := do(t, engine, http.MethodPost, "/api/views", map[string]any{})
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, body["records"], 2)
	viewID := body["id"].(string)

	code, body = do(t, engine, http.MethodPut, "/api/views/"+viewID+"/filter", map[string]any{"vehicle_number": "V-2"})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["records"], 1)

	code, body = do(t, engine, http.MethodPost, "/api/views/"+viewID+"/clear", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["records"], 2)

	code, body = do(t, engine, http.MethodPost, "/api/views/"+viewID+"/deletions", map[string]any{"record_id": "X"})
	require.Equal(t, http.StatusAccepted, code)
	deletionID := body["id"].(string)

	code, body = do(t, engine, http.MethodPost, "/api/deletions/"+deletionID+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(deletion.StatusDone), body["status"])

	code, body = do(t, engine, http.MethodGet, "/api/views/"+viewID, nil)
	require.Equal(t, http.StatusOK, code)
	records := body["records"].([]any)
	require.Len(t, records, 1)
	require.Equal(t, "Y", records[0].(map[string]any)["id"])

	store.Seed(models.Record{ID: "Z", CreatedAt: time.Now()})
	code, body = do(t, engine, http.MethodPost, "/api/views/"+viewID+"/focus", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["records"], 2)

	store.Seed(models.Record{ID: "W", CreatedAt: time.Now()})
	code, body = do(t, engine, http.MethodPost, "/api/views/"+viewID+"/refresh", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["records"], 3)
}

func TestViews_CancelledDeletion(t *testing.T) {
	engine, store := newEngine(t)
	store.Seed(models.Record{ID: "X"})

	_, body := do(t, engine, http.MethodPost, "/api/views", map[string]any{})
	viewID := body["id"].(string)

	_, body = do(t, engine, http.MethodPost, "/api/views/"+viewID+"/deletions", map[string]any{"record_id": "X"})
	deletionID := body["id"].(string)

	code, body := do(t, engine, http.MethodPost, "/api/deletions/"+deletionID+"/cancel", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(deletion.StatusCancelled), body["status"])
	require.Equal(t, 1, store.Len())

	code, _ = do(t, engine, http.MethodGet, "/api/deletions/unknown", nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, engine, http.MethodPost, "/api/views", map[string]any{"start_date": "2024-03-07", "end_date": "2024-03-01"})
	require.Equal(t, http.StatusBadRequest, code)
}
