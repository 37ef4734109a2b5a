package store

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/metrics"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// InstrumentedStore records Prometheus metrics around another store.
type InstrumentedStore struct {
	next    settings.Store
	backend string
	metrics *metrics.Metrics
}

// Instrument wraps next. A nil m uses the globally registered metrics.
func Instrument(next settings.Store, backend string, m *metrics.Metrics) *InstrumentedStore {
	if m == nil {
		m = metrics.Default()
	}
	return &InstrumentedStore{next: next, backend: backend, metrics: m}
}

// Read implements settings.Store.
func (s *InstrumentedStore) Read(ctx context.Context) (settings.Snapshot, error) {
	snap, err := s.next.Read(ctx)
	s.metrics.ObserveRead(s.backend, resultLabel(err))
	return snap, err
}

// Replace implements settings.Store.
func (s *InstrumentedStore) Replace(ctx context.Context, cfg settings.OrchestratorConfig, ifMatch string) (settings.Snapshot, error) {
	start := time.Now()
	snap, err := s.next.Replace(ctx, cfg, ifMatch)
	s.metrics.ObserveReplace(s.backend, resultLabel(err), time.Since(start))
	return snap, err
}

// Close closes the wrapped store.
func (s *InstrumentedStore) Close() error {
	return Close(s.next)
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() settings.Store {
	return s.next
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	switch core.GetCategory(err) {
	case core.ErrCatNotFound:
		return metrics.ResultNotFound
	case core.ErrCatConflict:
		return metrics.ResultConflict
	case core.ErrCatValidation:
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
