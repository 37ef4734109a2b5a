package settings_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/splitmind/internal/catalog"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
	"github.com/hugo-lorenzo-mato/splitmind/internal/testutil"
)

func hydrated(t *testing.T, store settings.Store, opts ...settings.Option) *settings.Reconciler {
	t.Helper()
	r := settings.NewReconciler(store, opts...)
	require.NoError(t, r.Load(context.Background()))
	return r
}

func TestReconciler_UninitializedRejectsEdits(t *testing.T) {
	r := settings.NewReconciler(testutil.NewFakeStore(testutil.NewTestConfig()))

	assert.Equal(t, settings.StateUninitialized, r.State())
	assert.ErrorIs(t, r.SetModel("x"), settings.ErrNotHydrated)
	assert.ErrorIs(t, r.Save(context.Background()), settings.ErrNotHydrated)
	assert.ErrorIs(t, r.Reset(), settings.ErrNotHydrated)
	assert.False(t, r.Dirty())
	assert.False(t, r.CanSave())
}

func TestReconciler_LoadFailureStaysUninitialized(t *testing.T) {
	store := testutil.NewEmptyFakeStore()
	r := settings.NewReconciler(store)

	err := r.Load(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
	assert.Equal(t, settings.StateUninitialized, r.State())
	assert.Equal(t, settings.StatusError, r.Status())
	assert.Error(t, r.LastError())
}

func TestReconciler_DirtyLifecycle(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	assert.False(t, r.Dirty(), "clean after hydration")
	assert.Equal(t, settings.StateHydrated, r.State())

	mutations := map[string]func() error{
		"agents":   func() error { return r.SetMaxConcurrentAgents(9) },
		"merge":    func() error { return r.SetAutoMerge(true) },
		"strategy": func() error { return r.SetMergeStrategy("squash") },
		"interval": func() error { return r.SetAutoSpawnInterval(120) },
		"enabled":  func() error { return r.SetEnabled(true) },
		"provider": func() error { return r.SetProvider("openai") },
		"key":      func() error { return r.SetAPIKey("sk-ant-other-key-0000000") },
		"model":    func() error { return r.SetModel("claude-opus-4-20250514") },
		"url":      func() error { return r.SetBaseURL("https://proxy.example/v1") },
		"version":  func() error { return r.SetAPIVersion("2023-06-01") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, mutate())
			assert.True(t, r.Dirty())
			assert.Equal(t, settings.StateEdited, r.State())

			require.NoError(t, r.Reset())
			assert.False(t, r.Dirty())
			assert.Equal(t, settings.Decode(store.Current()), r.Draft())
		})
	}
}

func TestReconciler_RevertingEditClearsDirty(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig()))

	require.NoError(t, r.SetMaxConcurrentAgents(7))
	assert.True(t, r.Dirty())
	require.NoError(t, r.SetMaxConcurrentAgents(5))
	assert.False(t, r.Dirty())
}

func TestReconciler_NoOpEditStaysClean(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig()))
	require.NoError(t, r.SetMergeStrategy("merge"))
	assert.False(t, r.Dirty())
}

func TestReconciler_LegacyAliyunURLIsClean(t *testing.T) {
	cfg := testutil.AliyunConfig("")
	cfg.APIBaseURL = "https://dashscope.aliyuncs.com/api/v1/apps/legacy-1"
	r := hydrated(t, testutil.NewFakeStore(cfg))

	assert.Equal(t, "legacy-1", r.Draft().AppID())
	assert.False(t, r.Dirty())
}

func TestReconciler_DefaultPropagation(t *testing.T) {
	t.Run("empty base url is filled", func(t *testing.T) {
		r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) {
			c.APIBaseURL = ""
		})))
		require.NoError(t, r.SetProvider("openai"))
		assert.Equal(t, "https://api.openai.com/v1", r.Draft().BaseURL)
	})

	t.Run("custom base url is kept", func(t *testing.T) {
		r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) {
			c.APIBaseURL = "https://custom.example"
		})))
		require.NoError(t, r.SetProvider("openai"))
		assert.Equal(t, "https://custom.example", r.Draft().BaseURL)
	})

	t.Run("provider without default stays empty", func(t *testing.T) {
		r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) {
			c.APIBaseURL = ""
		})))
		require.NoError(t, r.SetProvider("azure"))
		assert.Equal(t, "", r.Draft().BaseURL)
		assert.IsType(t, settings.AzureSettings{}, r.Draft().Settings)
	})

	t.Run("unknown provider", func(t *testing.T) {
		r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) {
			c.APIBaseURL = ""
		})))
		require.NoError(t, r.SetProvider("mycorp"))
		assert.Equal(t, "", r.Draft().BaseURL)
		assert.IsType(t, settings.CustomSettings{}, r.Draft().Settings)
	})
}

func TestReconciler_ApplyHelpers(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) {
		c.APIBaseURL = "https://custom.example"
	})))

	require.NoError(t, r.SetProvider("openai"))
	require.NoError(t, r.ApplyProviderDefaultURL())
	assert.Equal(t, "https://api.openai.com/v1", r.Draft().BaseURL)

	require.NoError(t, r.SetProvider("azure"))
	require.NoError(t, r.ApplyProviderDefaultURL())
	assert.Equal(t, "", r.Draft().BaseURL)

	require.NoError(t, r.ApplyDefaultAPIVersion())
	assert.Equal(t, settings.DefaultAzureAPIVersion, r.Draft().APIVersion())
	assert.Equal(t, settings.DefaultAzureAPIVersion, r.Pending().APIVersion)
}

func TestReconciler_AliyunAppIDScenario(t *testing.T) {
	store := testutil.NewFakeStore(testutil.AliyunConfig("app-123"))
	r := hydrated(t, store)

	assert.Equal(t, "app-123", r.Draft().AppID())

	require.NoError(t, r.SetAppID("app-456"))
	assert.True(t, r.Dirty())
	assert.Equal(t, []settings.FieldChange{{Field: "app_id", Old: "app-123", New: "app-456"}}, r.Changes())

	require.NoError(t, r.Save(context.Background()))

	call, ok := store.LastReplace()
	require.True(t, ok)
	assert.Equal(t, "app-456", call.Config.APIVersion)
	assert.Equal(t, "https://dashscope.aliyuncs.com/api/v1", call.Config.APIBaseURL)
	assert.False(t, r.Dirty())
	assert.Equal(t, "app-456", r.Draft().AppID())
}

func TestReconciler_SetAppIDRequiresAliyun(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig()))
	err := r.SetAppID("app-1")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.False(t, r.Dirty())
}

func TestReconciler_ProviderSwitchDropsAppID(t *testing.T) {
	store := testutil.NewFakeStore(testutil.AliyunConfig("app-123"))
	r := hydrated(t, store)

	require.NoError(t, r.SetProvider("openai"))
	assert.Equal(t, "", r.Draft().AppID())
	assert.Equal(t, "", r.Pending().APIVersion)
}

func TestReconciler_SaveCleanIsNoOp(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	require.NoError(t, r.Save(context.Background()))
	assert.Equal(t, 0, store.CallCount("Replace"))
	assert.Equal(t, settings.StatusIdle, r.Status())
}

func TestReconciler_SaveSuccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store, settings.WithClock(clock), settings.WithStatusTTL(time.Second))

	require.NoError(t, r.SetMaxConcurrentAgents(12))
	require.NoError(t, r.Save(context.Background()))

	assert.Equal(t, 12, store.Current().MaxConcurrentAgents)
	assert.False(t, r.Dirty())
	assert.Equal(t, settings.StatusSaved, r.Status())
	assert.NoError(t, r.LastError())

	snap, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "v2", snap.ETag)
	assert.Equal(t, 12, snap.Config.MaxConcurrentAgents)

	now = now.Add(time.Second)
	assert.Equal(t, settings.StatusIdle, r.Status())
}

func TestReconciler_SaveFailureKeepsDraft(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	require.NoError(t, r.SetModel("claude-opus-4-20250514"))
	store.WithReplaceError(core.ErrNetwork("connection refused"))

	err := r.Save(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
	assert.True(t, r.Dirty())
	assert.Equal(t, "claude-opus-4-20250514", r.Draft().Model)
	assert.Equal(t, settings.StatusError, r.Status())
	assert.Equal(t, settings.StateEdited, r.State())
	assert.Equal(t, 1, store.CallCount("Replace"), "no automatic retry")

	store.WithReplaceError(nil)
	require.NoError(t, r.Save(context.Background()))
	assert.False(t, r.Dirty())
	assert.Equal(t, "claude-opus-4-20250514", store.Current().APIModel)
}

func TestReconciler_SaveRejectsHardErrorsLocally(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	require.NoError(t, r.SetMaxConcurrentAgents(50))
	err := r.Save(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Equal(t, 0, store.CallCount("Replace"))
	assert.True(t, r.Dirty())
}

func TestReconciler_AdvisoryDoesNotBlockSave(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	require.NoError(t, r.SetAPIKey("sk-ant-short"))
	assert.False(t, r.CredentialValid())
	assert.NotEmpty(t, r.Issues())
	require.NoError(t, r.Save(context.Background()))
	assert.Equal(t, "sk-ant-short", store.Current().APIKey)
}

func TestReconciler_ConcurrentSaveRejected(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)
	require.NoError(t, r.SetEnabled(true))

	entered := store.BlockReplace()
	errc := make(chan error, 1)
	go func() { errc <- r.Save(context.Background()) }()
	<-entered

	assert.Equal(t, settings.StateSaving, r.State())
	assert.Equal(t, settings.StatusSaving, r.Status())
	assert.False(t, r.CanSave())
	assert.ErrorIs(t, r.Save(context.Background()), settings.ErrSaveInProgress)
	assert.ErrorIs(t, r.Load(context.Background()), settings.ErrSaveInProgress)

	store.Unblock()
	require.NoError(t, <-errc)
	assert.Equal(t, 1, store.CallCount("Replace"))
	assert.False(t, r.Dirty())
}

func TestReconciler_EditDuringSaveIsKept(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)
	require.NoError(t, r.SetEnabled(true))

	entered := store.BlockReplace()
	errc := make(chan error, 1)
	go func() { errc <- r.Save(context.Background()) }()
	<-entered

	require.NoError(t, r.SetMaxConcurrentAgents(3))
	store.Unblock()
	require.NoError(t, <-errc)

	assert.True(t, r.Draft().Enabled)
	assert.Equal(t, 3, r.Draft().MaxConcurrentAgents)
	assert.True(t, r.Dirty())
	assert.Equal(t, []settings.FieldChange{{Field: "max_concurrent_agents", Old: "5", New: "3"}}, r.Changes())
}

func TestReconciler_CancelledSave(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)
	require.NoError(t, r.SetEnabled(true))

	entered := store.BlockReplace()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Save(ctx) }()
	<-entered
	cancel()

	err := <-errc
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.Current().Enabled, "nothing applied")
	assert.True(t, r.Dirty())
	store.Unblock()
}

func TestReconciler_OptimisticConcurrency(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store, settings.WithOptimisticConcurrency())

	store.Set(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) { c.AutoMerge = true }))
	require.NoError(t, r.SetEnabled(true))

	err := r.Save(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))

	call, _ := store.LastReplace()
	assert.Equal(t, "v1", call.IfMatch)

	// reloading keeps the edit and re-diffs against the newer snapshot
	require.NoError(t, r.Load(context.Background()))
	assert.True(t, r.Draft().Enabled)
	require.NoError(t, r.Save(context.Background()))
	assert.True(t, store.Current().Enabled)
	assert.False(t, store.Current().AutoMerge, "last write replaces the whole object")
}

func TestReconciler_LastWriteWinsByDefault(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	store.Set(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) { c.AutoMerge = true }))
	require.NoError(t, r.SetEnabled(true))
	require.NoError(t, r.Save(context.Background()))

	call, _ := store.LastReplace()
	assert.Equal(t, "", call.IfMatch)
}

func TestReconciler_RefreshReplacesCleanDraft(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	store.Set(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) { c.MaxConcurrentAgents = 15 }))
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, 15, r.Draft().MaxConcurrentAgents)
	assert.False(t, r.Dirty())
}

func TestReconciler_RefreshFailureKeepsState(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)
	require.NoError(t, r.SetEnabled(true))

	store.WithReadError(errors.New("boom"))
	require.Error(t, r.Refresh(context.Background()))
	assert.True(t, r.Dirty())
	assert.Equal(t, settings.StateEdited, r.State())
}

func TestReconciler_ConcurrentLoadsShareRead(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := settings.NewReconciler(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Load(context.Background()))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, store.CallCount("Read"), 8)
	assert.Equal(t, settings.StateHydrated, r.State())
}

func TestReconciler_CanSave(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	assert.False(t, r.CanSave(), "clean")
	require.NoError(t, r.SetEnabled(true))
	assert.True(t, r.CanSave())
	require.NoError(t, r.SetAPIKey(""))
	assert.False(t, r.CanSave(), "missing key")
}

func TestReconciler_ModelOptions(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig()))

	assert.Len(t, r.ModelOptions(), 6)
	m, ok := r.SelectedModel()
	require.True(t, ok)
	assert.Equal(t, "Claude Sonnet 4 (Latest)", m.Name)

	require.NoError(t, r.SetProvider("mycorp"))
	cat := catalog.Default()
	want := append(cat.ModelsFor("anthropic"), cat.ModelsFor("openai")...)
	assert.Equal(t, want, r.ModelOptions())

	require.NoError(t, r.SetAPIKey("abcdef"))
	assert.True(t, r.CredentialValid())
	require.NoError(t, r.SetAPIKey("abcde"))
	assert.False(t, r.CredentialValid())
}

func TestReconciler_AnthropicCredentialScenario(t *testing.T) {
	r := hydrated(t, testutil.NewFakeStore(testutil.NewTestConfig()))

	require.NoError(t, r.SetAPIKey("sk-ant-abcdefghijklmno1234"))
	assert.True(t, r.CredentialValid())
	require.NoError(t, r.SetAPIKey("sk-ant-short"))
	assert.False(t, r.CredentialValid())
}

func TestReconciler_SessionIDs(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	a := settings.NewReconciler(store)
	b := settings.NewReconciler(store)
	assert.NotEmpty(t, a.Session())
	assert.NotEqual(t, a.Session(), b.Session())
}

func TestReconciler_ReadOlderThanSaveIsDiscarded(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := hydrated(t, store)

	entered := store.BlockRead()
	errc := make(chan error, 1)
	go func() { errc <- r.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, r.SetMaxConcurrentAgents(17))
	require.NoError(t, r.Save(context.Background()))
	store.UnblockRead()
	require.NoError(t, <-errc)

	snap, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 17, store.Current().MaxConcurrentAgents)
	assert.Equal(t, 17, snap.Config.MaxConcurrentAgents)
	assert.Equal(t, 17, r.Draft().MaxConcurrentAgents)
	assert.False(t, r.Dirty())

	// the next read is current and applies normally
	store.Set(testutil.NewTestConfig(func(c *settings.OrchestratorConfig) { c.MaxConcurrentAgents = 3 }))
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, 3, r.Draft().MaxConcurrentAgents)
}

func TestReconciler_CancelledLoadDoesNotFailSharedRead(t *testing.T) {
	store := testutil.NewFakeStore(testutil.NewTestConfig())
	r := settings.NewReconciler(store)

	entered := store.BlockRead()
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- r.Load(ctx) }()
	<-entered

	second := make(chan error, 1)
	go func() { second <- r.Load(context.Background()) }()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	store.UnblockRead()
	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shared load did not complete")
	}
	assert.Equal(t, settings.StateHydrated, r.State())
}
