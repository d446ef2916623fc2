package firestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/config"
)

// ErrNotFound is returned when the addressed document does not exist.
var ErrNotFound = errors.New("firestore document not found")

// Client exposes the Firestore REST operations used by the application.
type Client interface {
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	Commit(ctx context.Context, writes []Write) error
	DeleteDocument(ctx context.Context, collection, id string) error
	RunQuery(ctx context.Context, query StructuredQuery) ([]Document, error)
	DocumentName(collection, id string) string
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	projectID  string
}

// NewClient builds a Firestore REST client using the provided configuration values.
func NewClient(cfg config.FirestoreConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	if cfg.APIKey != "" {
		restyClient.SetQueryParam("key", cfg.APIKey)
	}

	return &APIClient{
		httpClient: restyClient,
		projectID:  cfg.ProjectID,
	}
}

// Value is a typed Firestore field value. Exactly one member is set.
type Value struct {
	StringValue    *string `json:"stringValue,omitempty"`
	TimestampValue *string `json:"timestampValue,omitempty"`
	NullValue      *string `json:"nullValue,omitempty"`
}

// StringValue wraps s as a Firestore string value.
func StringValue(s string) Value {
	return Value{StringValue: &s}
}

// TimestampValue wraps t as a Firestore timestamp value.
func TimestampValue(t time.Time) Value {
	s := t.UTC().Format(time.RFC3339Nano)
	return Value{TimestampValue: &s}
}

// String returns the string member or "".
func (v Value) String() string {
	if v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

// Time parses the timestamp member. ok is false when unset or malformed.
func (v Value) Time() (time.Time, bool) {
	if v.TimestampValue == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Document mirrors the Firestore document resource.
type Document struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields"`
	CreateTime string           `json:"createTime,omitempty"`
	UpdateTime string           `json:"updateTime,omitempty"`
}

// ID returns the last path segment of the document name.
func (d Document) ID() string {
	if i := strings.LastIndex(d.Name, "/"); i >= 0 {
		return d.Name[i+1:]
	}
	return d.Name
}

// Write is one entry of a commit request.
type Write struct {
	Update           *Document        `json:"update,omitempty"`
	UpdateMask       *DocumentMask    `json:"updateMask,omitempty"`
	UpdateTransforms []FieldTransform `json:"updateTransforms,omitempty"`
	CurrentDocument  *Precondition    `json:"currentDocument,omitempty"`
}

// DocumentMask restricts an update to the listed field paths.
type DocumentMask struct {
	FieldPaths []string `json:"fieldPaths"`
}

// FieldTransform applies a server-side transformation to one field.
type FieldTransform struct {
	FieldPath        string `json:"fieldPath"`
	SetToServerValue string `json:"setToServerValue,omitempty"`
}

// ServerRequestTime is the server value sentinel for the commit time.
const ServerRequestTime = "REQUEST_TIME"

// Precondition guards a write on document existence.
type Precondition struct {
	Exists *bool `json:"exists,omitempty"`
}

// MustExist and MustNotExist build existence preconditions.
func MustExist() *Precondition    { t := true; return &Precondition{Exists: &t} }
func MustNotExist() *Precondition { f := false; return &Precondition{Exists: &f} }

// StructuredQuery mirrors the runQuery structured query.
type StructuredQuery struct {
	From    []CollectionSelector `json:"from"`
	Where   *Filter              `json:"where,omitempty"`
	OrderBy []Order              `json:"orderBy,omitempty"`
}

// CollectionSelector names the queried collection.
type CollectionSelector struct {
	CollectionID string `json:"collectionId"`
}

// Filter is either a field filter or a composite filter.
type Filter struct {
	FieldFilter     *FieldFilter     `json:"fieldFilter,omitempty"`
	CompositeFilter *CompositeFilter `json:"compositeFilter,omitempty"`
}

// FieldFilter compares one field against a value.
type FieldFilter struct {
	Field FieldReference `json:"field"`
	Op    string         `json:"op"`
	Value Value          `json:"value"`
}

// CompositeFilter combines filters with Op ("AND").
type CompositeFilter struct {
	Op      string   `json:"op"`
	Filters []Filter `json:"filters"`
}

// FieldReference points at a document field.
type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

// Order sorts results by a field.
type Order struct {
	Field     FieldReference `json:"field"`
	Direction string         `json:"direction"`
}

// apiError represents a Firestore REST error payload.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type commitRequest struct {
	Writes []Write `json:"writes"`
}

type runQueryRequest struct {
	StructuredQuery StructuredQuery `json:"structuredQuery"`
}

type runQueryResponse struct {
	Document *Document `json:"document,omitempty"`
	ReadTime string    `json:"readTime,omitempty"`
}

func (c *APIClient) databasePath() string {
	return fmt.Sprintf("projects/%s/databases/(default)", c.projectID)
}

func (c *APIClient) documentsPath() string {
	return c.databasePath() + "/documents"
}

// DocumentName returns the fully qualified resource name of a document.
func (c *APIClient) DocumentName(collection, id string) string {
	return fmt.Sprintf("%s/%s/%s", c.documentsPath(), collection, id)
}

// GetDocument fetches one document.
func (c *APIClient) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	result := new(Document)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/%s/%s/%s", c.documentsPath(), collection, id))
	if err != nil {
		return nil, fmt.Errorf("get firestore document: %w", err)
	}
	if err := checkResponse(resp, apiErr); err != nil {
		return nil, err
	}
	return result, nil
}

// Commit applies writes atomically.
func (c *APIClient) Commit(ctx context.Context, writes []Write) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(commitRequest{Writes: writes}).
		SetError(apiErr).
		Post(fmt.Sprintf("/%s:commit", c.documentsPath()))
	if err != nil {
		return fmt.Errorf("commit firestore writes: %w", err)
	}
	return checkResponse(resp, apiErr)
}

// DeleteDocument removes one document. Deleting a missing document succeeds.
func (c *APIClient) DeleteDocument(ctx context.Context, collection, id string) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr).
		Delete(fmt.Sprintf("/%s/%s/%s", c.documentsPath(), collection, id))
	if err != nil {
		return fmt.Errorf("delete firestore document: %w", err)
	}
	return checkResponse(resp, apiErr)
}

// RunQuery executes a structured query and returns the matched documents in order.
func (c *APIClient) RunQuery(ctx context.Context, query StructuredQuery) ([]Document, error) {
	var result []runQueryResponse
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(runQueryRequest{StructuredQuery: query}).
		SetResult(&result).
		SetError(apiErr).
		Post(fmt.Sprintf("/%s:runQuery", c.documentsPath()))
	if err != nil {
		return nil, fmt.Errorf("run firestore query: %w", err)
	}
	if err := checkResponse(resp, apiErr); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(result))
	for _, item := range result {
		if item.Document != nil {
			docs = append(docs, *item.Document)
		}
	}
	return docs, nil
}

func checkResponse(resp *resty.Response, apiErr *apiError) error {
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}

	code := resp.StatusCode()
	message := ""
	status := ""
	if apiErr != nil {
		message = apiErr.Error.Message
		status = apiErr.Error.Status
	}

	if code == http.StatusNotFound || status == "NOT_FOUND" {
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	}
	return fmt.Errorf("firestore api error: code=%d, status=%s, message=%s", code, status, message)
}
