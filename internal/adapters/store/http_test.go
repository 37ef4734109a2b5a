package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// fakeOrchestrator serves the config resource from a MemoryStore the way the
// API server does.
type fakeOrchestrator struct {
	mu        sync.Mutex
	mem       *MemoryStore
	lastAuth  string
	forceCode int
}

func (f *fakeOrchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	code := f.forceCode
	f.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("upstream unavailable"))
		return
	}
	if r.URL.Path != ConfigPath {
		http.NotFound(w, r)
		return
	}

	var (
		snap settings.Snapshot
		err  error
	)
	switch r.Method {
	case http.MethodGet:
		snap, err = f.mem.Read(r.Context())
	case http.MethodPut:
		var cfg settings.OrchestratorConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		snap, err = f.mem.Replace(r.Context(), cfg, unquoteETag(r.Header.Get("If-Match")))
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		var status int
		body := map[string]interface{}{"error": err.Error()}
		switch core.GetCategory(err) {
		case core.ErrCatNotFound:
			status = http.StatusNotFound
		case core.ErrCatConflict:
			status = http.StatusPreconditionFailed
			w.Header().Set("ETag", quoteETag(CurrentETag(err)))
		case core.ErrCatValidation:
			status = http.StatusUnprocessableEntity
			body["fields"] = []settings.ValidationError{{Field: "max_concurrent_agents", Message: "must be between 1 and 20"}}
		default:
			status = http.StatusInternalServerError
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
		return
	}
	w.Header().Set("ETag", quoteETag(snap.ETag))
	_ = json.NewEncoder(w).Encode(snap.Config)
}

func newHTTPPair(t *testing.T) (*HTTPStore, *fakeOrchestrator) {
	t.Helper()
	fake := &fakeOrchestrator{mem: NewMemoryStore()}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL+"/", WithBearerToken("secret")), fake
}

func TestHTTPStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) settings.Store {
		s, _ := newHTTPPair(t)
		return s
	})
}

func TestHTTPStore_SendsBearerToken(t *testing.T) {
	s, fake := newHTTPPair(t)
	_, _ = s.Read(context.Background())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "Bearer secret", fake.lastAuth)
}

func TestHTTPStore_ValidationFields(t *testing.T) {
	s, _ := newHTTPPair(t)
	bad := sampleConfig()
	bad.MaxConcurrentAgents = 99

	_, err := s.Replace(context.Background(), bad, "")
	require.Error(t, err)
	var de *core.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, core.ErrCatValidation, de.Category)
	assert.Contains(t, de.Details, "max_concurrent_agents")
}

func TestHTTPStore_ServerErrorIsRetryable(t *testing.T) {
	s, fake := newHTTPPair(t)
	fake.mu.Lock()
	fake.forceCode = http.StatusBadGateway
	fake.mu.Unlock()

	_, err := s.Read(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestHTTPStore_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPStore(url).Read(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNetwork))
}

func TestETagQuoting(t *testing.T) {
	assert.Equal(t, `"abc"`, quoteETag("abc"))
	assert.Equal(t, `"abc"`, quoteETag(`"abc"`))
	assert.Equal(t, "abc", unquoteETag(`W/"abc"`))
	assert.Equal(t, "", unquoteETag(""))
}
