package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
)

// State is the lifecycle position of a Reconciler.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateHydrated      State = "hydrated"
	StateEdited        State = "edited"
	StateSaving        State = "saving"
)

// Status is the transient save indicator shown to the user.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// DefaultStatusTTL is how long a saved or error status stays visible.
const DefaultStatusTTL = 3 * time.Second

var (
	// ErrNotHydrated is returned by operations that need a loaded snapshot.
	ErrNotHydrated = core.ErrState(core.CodeNotHydrated, "settings have not been loaded")
	// ErrSaveInProgress is returned when a save or load overlaps a pending save.
	ErrSaveInProgress = core.ErrState(core.CodeSaveInProgress, "a save is already in progress")
)

// Reconciler owns one editable draft and keeps it consistent with a Store.
// All methods are safe for concurrent use, but the model is single writer:
// overlapping saves are rejected, not queued.
type Reconciler struct {
	store      Store
	catalog    *catalog.Catalog
	logger     *slog.Logger
	statusTTL  time.Duration
	optimistic bool
	now        func() time.Time
	session    string
	loads      singleflight.Group

	mu       sync.Mutex
	hydrated bool
	snapshot Snapshot
	baseline Draft
	draft    Draft
	revision uint64
	saves    uint64
	saving   bool
	status   Status
	statusAt time.Time
	lastErr  error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCatalog sets the provider/model catalog. Defaults to catalog.Default().
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.catalog = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStatusTTL sets how long saved/error statuses are reported before
// decaying to idle.
func WithStatusTTL(d time.Duration) Option {
	return func(r *Reconciler) {
		r.statusTTL = d
	}
}

// WithOptimisticConcurrency makes Save send the snapshot ETag as If-Match, so
// a store changed by someone else rejects the write with a conflict.
func WithOptimisticConcurrency() Option {
	return func(r *Reconciler) {
		r.optimistic = true
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// NewReconciler creates an uninitialized reconciler over store.
func NewReconciler(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:     store,
		catalog:   catalog.Default(),
		logger:    slog.Default(),
		statusTTL: DefaultStatusTTL,
		now:       time.Now,
		session:   uuid.NewString(),
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "settings", "session", r.session)
	return r
}

// Session returns the id used to correlate this reconciler's log lines.
func (r *Reconciler) Session() string {
	return r.session
}

// Catalog returns the catalog the reconciler validates against.
func (r *Reconciler) Catalog() *catalog.Catalog {
	return r.catalog
}

// Load reads the persisted configuration. The first successful load hydrates
// the draft. Later loads replace a clean draft and keep a dirty one, which is
// then compared against the new snapshot.
//
// Concurrent calls share one read. The shared read does not inherit any
// caller's cancellation: a caller whose ctx ends gets ctx.Err() while the read
// completes for the others. Bound slow stores with a store-level timeout.
func (r *Reconciler) Load(ctx context.Context) error {
	ch := r.loads.DoChan("load", func() (interface{}, error) {
		return nil, r.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh re-reads the store. It behaves exactly like Load.
func (r *Reconciler) Refresh(ctx context.Context) error {
	return r.Load(ctx)
}

func (r *Reconciler) load(ctx context.Context) error {
	r.mu.Lock()
	if r.saving {
		r.mu.Unlock()
		return ErrSaveInProgress
	}
	saves := r.saves
	r.mu.Unlock()

	snap, err := r.store.Read(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.lastErr = err
		r.setStatus(StatusError)
		r.logger.Warn("settings read failed", "error", err)
		return fmt.Errorf("reading settings: %w", err)
	}
	if r.saving {
		// the pending save determines the next snapshot
		return ErrSaveInProgress
	}
	if r.saves != saves {
		// a save completed while reading; its snapshot is newer than snap
		r.logger.Debug("discarding read older than the last save", "etag", snap.ETag)
		return nil
	}

	keep := r.hydrated && r.draft != r.baseline
	r.snapshot = snap
	r.baseline = Decode(snap.Config)
	if !keep {
		r.draft = r.baseline
		r.revision++
	}
	r.hydrated = true
	r.lastErr = nil
	r.logger.Debug("settings loaded",
		"provider", snap.Config.APIProvider,
		"etag", snap.ETag,
		"kept_edits", keep,
	)
	return nil
}

// Update applies fn to a copy of the draft and commits the result. When the
// provider changes, provider settings are converted and an empty base URL is
// filled with the provider default; a non-empty one is left alone.
func (r *Reconciler) Update(fn func(d *Draft)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hydrated {
		return ErrNotHydrated
	}

	next := r.draft
	fn(&next)
	if next.Provider != r.draft.Provider {
		next.Settings = convertSettings(next.Settings, next.Provider)
		if next.BaseURL == "" {
			next.BaseURL = r.catalog.DefaultBaseURL(next.Provider)
		}
	}
	if next.Settings == nil {
		next.Settings = mappingFor(next.Provider).empty()
	}

	if next != r.draft {
		r.draft = next
		r.revision++
	}
	return nil
}

// SetProvider changes the provider, applying default propagation.
func (r *Reconciler) SetProvider(id string) error {
	return r.Update(func(d *Draft) { d.Provider = id })
}

// SetAPIKey sets the credential.
func (r *Reconciler) SetAPIKey(key string) error {
	return r.Update(func(d *Draft) { d.APIKey = key })
}

// SetModel sets the model id.
func (r *Reconciler) SetModel(model string) error {
	return r.Update(func(d *Draft) { d.Model = model })
}

// SetBaseURL sets the endpoint base URL.
func (r *Reconciler) SetBaseURL(u string) error {
	return r.Update(func(d *Draft) { d.BaseURL = u })
}

// SetAPIVersion sets the literal API version on the current provider settings.
func (r *Reconciler) SetAPIVersion(v string) error {
	return r.Update(func(d *Draft) {
		s := d.Settings
		if s == nil {
			s = mappingFor(d.Provider).empty()
		}
		d.Settings = s.withAPIVersion(v)
	})
}

// SetAppID sets the Aliyun application id. It fails for other providers.
func (r *Reconciler) SetAppID(id string) error {
	unsupported := false
	err := r.Update(func(d *Draft) {
		s, ok := d.Settings.(AliyunSettings)
		if !ok {
			unsupported = true
			return
		}
		s.AppID = id
		d.Settings = s
	})
	if err != nil {
		return err
	}
	if unsupported {
		return core.ErrValidation(core.CodeInvalidConfig, "an application id only applies to the aliyun provider")
	}
	return nil
}

// SetMaxConcurrentAgents sets the worker limit.
func (r *Reconciler) SetMaxConcurrentAgents(n int) error {
	return r.Update(func(d *Draft) { d.MaxConcurrentAgents = n })
}

// SetAutoMerge toggles auto-merge.
func (r *Reconciler) SetAutoMerge(v bool) error {
	return r.Update(func(d *Draft) { d.AutoMerge = v })
}

// SetMergeStrategy sets the merge strategy.
func (r *Reconciler) SetMergeStrategy(s string) error {
	return r.Update(func(d *Draft) { d.MergeStrategy = s })
}

// SetAutoSpawnInterval sets the spawn interval in seconds.
func (r *Reconciler) SetAutoSpawnInterval(seconds int) error {
	return r.Update(func(d *Draft) { d.AutoSpawnInterval = seconds })
}

// SetEnabled toggles the orchestrator.
func (r *Reconciler) SetEnabled(v bool) error {
	return r.Update(func(d *Draft) { d.Enabled = v })
}

// ApplyProviderDefaultURL overwrites the base URL with the provider default,
// which is empty for providers without one.
func (r *Reconciler) ApplyProviderDefaultURL() error {
	return r.Update(func(d *Draft) { d.BaseURL = r.catalog.DefaultBaseURL(d.Provider) })
}

// ApplyDefaultAPIVersion fills the suggested Azure API version.
func (r *Reconciler) ApplyDefaultAPIVersion() error {
	return r.SetAPIVersion(DefaultAzureAPIVersion)
}

// Reset discards local edits. It is a no-op on a clean draft.
func (r *Reconciler) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hydrated {
		return ErrNotHydrated
	}
	if r.draft == r.baseline {
		return nil
	}
	r.draft = r.baseline
	r.revision++
	r.logger.Info("settings draft reset")
	return nil
}

// Save submits the draft as a whole-object replacement. A clean draft is not
// submitted. On failure the draft is kept and the error status is set; nothing
// is retried.
func (r *Reconciler) Save(ctx context.Context) error {
	r.mu.Lock()
	if !r.hydrated {
		r.mu.Unlock()
		return ErrNotHydrated
	}
	if r.saving {
		r.mu.Unlock()
		return ErrSaveInProgress
	}
	if r.draft == r.baseline {
		r.mu.Unlock()
		return nil
	}

	cfg := Encode(r.draft)
	if errs := ValidateConfig(cfg); errs.HasErrors() {
		err := errs.AsDomainError()
		r.lastErr = err
		r.setStatus(StatusError)
		r.mu.Unlock()
		return err
	}

	ifMatch := ""
	if r.optimistic {
		ifMatch = r.snapshot.ETag
	}
	submitted := r.revision
	r.saving = true
	r.setStatus(StatusSaving)
	r.mu.Unlock()

	start := r.now()
	snap, err := r.store.Replace(ctx, cfg, ifMatch)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saving = false
	if err != nil {
		r.lastErr = err
		r.setStatus(StatusError)
		r.logger.Warn("settings save failed",
			"error", err,
			"retryable", core.IsRetryable(err),
		)
		return fmt.Errorf("saving settings: %w", err)
	}

	r.snapshot = Snapshot{Config: cfg, ETag: snap.ETag}
	r.baseline = Decode(cfg)
	r.saves++
	edited := r.revision != submitted
	if !edited {
		r.draft = r.baseline
		r.revision++
	}
	r.lastErr = nil
	r.setStatus(StatusSaved)
	r.logger.Info("settings saved",
		"provider", cfg.APIProvider,
		"model", cfg.APIModel,
		"etag", snap.ETag,
		"edited_during_save", edited,
		"duration", r.now().Sub(start),
	)
	return nil
}

func (r *Reconciler) setStatus(s Status) {
	r.status = s
	r.statusAt = r.now()
}

// Status returns the transient save status. Saved and error decay to idle
// after the status TTL.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if (r.status == StatusSaved || r.status == StatusError) && r.now().Sub(r.statusAt) >= r.statusTTL {
		return StatusIdle
	}
	return r.status
}

// LastError returns the error from the most recent failed load or save, or nil
// once an operation succeeds.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// State returns the lifecycle state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !r.hydrated:
		return StateUninitialized
	case r.saving:
		return StateSaving
	case r.draft != r.baseline:
		return StateEdited
	default:
		return StateHydrated
	}
}

// Dirty reports whether the draft differs from the last snapshot.
func (r *Reconciler) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hydrated && r.draft != r.baseline
}

// CanSave reports whether the save control should be enabled. It is stricter
// than Save, which only needs a dirty draft and no pending save.
func (r *Reconciler) CanSave() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hydrated && !r.saving && r.draft != r.baseline && r.draft.APIKey != ""
}

// Draft returns a copy of the draft.
func (r *Reconciler) Draft() Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Snapshot returns the last known persisted snapshot, and false before the
// first successful load.
func (r *Reconciler) Snapshot() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, r.hydrated
}

// Pending returns the object Save would submit.
func (r *Reconciler) Pending() OrchestratorConfig {
	return Encode(r.Draft())
}

// Changes lists the fields that differ from the last snapshot.
func (r *Reconciler) Changes() []FieldChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Diff(r.baseline, r.draft)
}

// CredentialValid reports whether the draft key has the provider's shape.
func (r *Reconciler) CredentialValid() bool {
	d := r.Draft()
	return IsValidCredential(d.APIKey, d.Provider)
}

// Issues returns hard errors and advisories for the draft.
func (r *Reconciler) Issues() []Issue {
	return Inspect(r.Pending(), r.catalog)
}

// ModelOptions returns the models offered for the draft provider.
func (r *Reconciler) ModelOptions() []catalog.Model {
	return r.catalog.ModelsFor(r.Draft().Provider)
}

// SelectedModel returns the catalog entry for the draft model, if any.
func (r *Reconciler) SelectedModel() (catalog.Model, bool) {
	d := r.Draft()
	return r.catalog.FindModel(d.Provider, d.Model)
}
