package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// ConfigPath is the REST resource holding the orchestrator configuration.
const ConfigPath = "/api/orchestrator/config"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// HTTPStore talks to a remote orchestrator's settings endpoint.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// HTTPStoreOption configures an HTTPStore.
type HTTPStoreOption func(*HTTPStore)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPStoreOption {
	return func(s *HTTPStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBearerToken authenticates requests with token.
func WithBearerToken(token string) HTTPStoreOption {
	return func(s *HTTPStore) {
		s.token = token
	}
}

// NewHTTPStore creates a client for the orchestrator at baseURL.
func NewHTTPStore(baseURL string, opts ...HTTPStoreOption) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errorBody mirrors the API error payload.
type errorBody struct {
	Error  string                     `json:"error"`
	Fields []settings.ValidationError `json:"fields,omitempty"`
}

// Read implements settings.Store.
func (s *HTTPStore) Read(ctx context.Context) (settings.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+ConfigPath, nil)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("building request: %w", err)
	}
	return s.do(req)
}

// Replace implements settings.Store. The whole object is sent with PUT.
func (s *HTTPStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("encoding config: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+ConfigPath, bytes.NewReader(body))
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ifMatch != "" {
		req.Header.Set("If-Match", quoteETag(ifMatch))
	}
	return s.do(req)
}

func (s *HTTPStore) do(req *http.Request) (settings.Snapshot, error) {
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return settings.Snapshot{}, core.ErrTimeout("settings request timed out").WithCause(err)
		}
		if errors.Is(err, context.Canceled) {
			return settings.Snapshot{}, err
		}
		return settings.Snapshot{}, core.ErrNetwork(fmt.Sprintf("%s %s", req.Method, req.URL.Path)).WithCause(err)
	}
	defer resp.Body.Close()

	etag := unquoteETag(resp.Header.Get("ETag"))
	if resp.StatusCode == http.StatusOK {
		var cfg settings.OrchestratorConfig
		if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
			return settings.Snapshot{}, core.ErrNetwork("decoding settings response").WithCause(err)
		}
		return settings.Snapshot{Config: cfg, ETag: etag}, nil
	}

	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if jsonErr := json.Unmarshal(raw, &eb); jsonErr != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(raw))
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return settings.Snapshot{}, ErrNotFound
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		return settings.Snapshot{}, core.ErrConflict(eb.Error).WithDetail("current_etag", etag)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		if len(eb.Fields) > 0 {
			return settings.Snapshot{}, settings.ValidationErrors(eb.Fields).AsDomainError()
		}
		return settings.Snapshot{}, core.ErrValidation(core.CodeInvalidConfig, eb.Error)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return settings.Snapshot{}, core.ErrState("UNAUTHORIZED", eb.Error)
	default:
		return settings.Snapshot{}, core.ErrNetwork(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, eb.Error))
	}
}

func quoteETag(etag string) string {
	if strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, `W/"`) {
		return etag
	}
	return `"` + etag + `"`
}

func unquoteETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}
