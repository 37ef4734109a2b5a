package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/metrics"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is one of core.StoreBackends.
	Backend string
	// Path is the file or database path for the file and sqlite backends.
	Path string
	// URL is the orchestrator base URL for the http backend.
	URL string
	// Token authenticates http backend requests.
	Token string
	// Timeout bounds http backend requests. Zero uses the client default.
	Timeout time.Duration
	// CreateDefaults makes an empty memory, file or sqlite store read as
	// settings.DefaultConfig.
	CreateDefaults bool
	// Metrics records store traffic. Nil disables instrumentation.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// New creates the store selected by opts.Backend.
func New(opts Options) (settings.Store, error) {
	var (
		s   settings.Store
		err error
	)
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	switch backend {
	case core.StoreBackendMemory:
		if opts.CreateDefaults {
			s = NewMemoryStoreWith(settings.DefaultConfig())
		} else {
			s = NewMemoryStore()
		}
	case core.StoreBackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file store: path is required")
		}
		var fileOpts []FileStoreOption
		if opts.CreateDefaults {
			fileOpts = append(fileOpts, WithDefaults(settings.DefaultConfig()))
		}
		if opts.Logger != nil {
			fileOpts = append(fileOpts, WithFileLogger(opts.Logger))
		}
		s = NewFileStore(opts.Path, fileOpts...)
	case core.StoreBackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite store: path is required")
		}
		var sqliteOpts []SQLiteStoreOption
		if opts.CreateDefaults {
			sqliteOpts = append(sqliteOpts, WithSQLiteDefaults(settings.DefaultConfig()))
		}
		s, err = NewSQLiteStore(opts.Path, sqliteOpts...)
		if err != nil {
			return nil, err
		}
	case core.StoreBackendHTTP:
		if opts.URL == "" {
			return nil, fmt.Errorf("http store: url is required")
		}
		httpOpts := []HTTPStoreOption{}
		if opts.Token != "" {
			httpOpts = append(httpOpts, WithBearerToken(opts.Token))
		}
		if opts.Timeout > 0 {
			httpOpts = append(httpOpts, WithHTTPClient(&http.Client{Timeout: opts.Timeout}))
		}
		s = NewHTTPStore(opts.URL, httpOpts...)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want one of: %s)",
			opts.Backend, strings.Join(core.StoreBackends, ", "))
	}

	if opts.Metrics != nil {
		s = Instrument(s, backend, opts.Metrics)
	}
	return s, nil
}

// Watcher is implemented by stores that can report external modifications.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// AsWatcher returns the watchable store behind s, unwrapping instrumentation.
func AsWatcher(s settings.Store) (Watcher, bool) {
	for {
		if w, ok := s.(Watcher); ok {
			return w, true
		}
		u, ok := s.(interface{ Unwrap() settings.Store })
		if !ok {
			return nil, false
		}
		s = u.Unwrap()
	}
}
