package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/bundletest"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/source"
	"github.com/dropDatabas3/bundlekeeper/internal/status"
	"github.com/dropDatabas3/bundlekeeper/internal/updatelog"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

// countingPipeline cuenta ejecuciones y opcionalmente se bloquea hasta release.
type countingPipeline struct {
	inner   *validation.Pipeline
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newCountingPipeline() *countingPipeline {
	return &countingPipeline{inner: validation.DefaultPipeline(zap.NewNop())}
}

func (p *countingPipeline) Run(ctx context.Context, path string) ([]validation.Result, error) {
	p.runs.Add(1)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	return p.inner.Run(ctx, path)
}

type fakeApply struct {
	mu       sync.Mutex
	reloads  int
	restarts int
	err      error
	block    chan struct{}
}

func (a *fakeApply) Reload(_ context.Context, _ *bundle.Bundle, _ *compare.Result) error {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reloads++
	return a.err
}

func (a *fakeApply) Restart(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restarts++
	return a.err
}

func (a *fakeApply) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reloads, a.restarts
}

type env struct {
	root     string
	current  string
	incoming string
	store    *updatelog.Store
	state    *status.State
	pipe     *countingPipeline
	app      *fakeApply
	o        *Orchestrator
}

func newEnv(t *testing.T, current, incoming *bundletest.Spec, timing Timing) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{
		root:     root,
		current:  filepath.Join(root, "current"),
		incoming: filepath.Join(root, "incoming"),
		pipe:     newCountingPipeline(),
		app:      &fakeApply{},
	}
	if current != nil {
		bundletest.Write(t, e.current, *current)
	}
	if incoming != nil {
		bundletest.Write(t, e.incoming, *incoming)
	}
	store, err := updatelog.Open(filepath.Join(root, "log"), 3, zap.NewNop())
	require.NoError(t, err)
	e.store = store
	e.o = e.orchestrator(t, timing)
	return e
}

// orchestrator crea una instancia nueva sobre los mismos directorios.
func (e *env) orchestrator(t *testing.T, timing Timing) *Orchestrator {
	t.Helper()
	cache := compare.NewCache(0)
	e.state = status.New(cache, zap.NewNop())
	o, err := New(Deps{
		Source:   source.NewFS(e.current, e.incoming, zap.NewNop()),
		Pipeline: e.pipe,
		Apply:    e.app,
		Log:      e.store,
		State:    e.state,
		Cache:    cache,
		Logger:   zap.NewNop(),
	}, timing)
	require.NoError(t, err)
	return o
}

func spec(version string) *bundletest.Spec {
	s := bundletest.Simple("bundle", version)
	return &s
}

func invalidSpec(version string) *bundletest.Spec {
	s := bundletest.Simple("bundle", version)
	s.Files[bundle.SectionJCasC] = map[string]string{"jenkins.yaml": "jenkins: [unclosed\n"}
	return &s
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Deps{}, DefaultTiming())
	assert.Error(t, err)
}

func TestCheckSameVersionHasNoUpdate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("1"), DefaultTiming())

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, e.o.GetDiff())
	assert.False(t, e.state.IsUpdateAvailable())
	assert.False(t, e.state.LastCheckForUpdate().IsZero())
	assert.Equal(t, int32(0), e.pipe.runs.Load())
	assert.Equal(t, PhaseIdle, e.o.Phase())
}

func TestCheckWithoutIncomingBundle(t *testing.T) {
	e := newEnv(t, spec("1"), nil, DefaultTiming())

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, e.o.Candidate())
}

func TestCheckFindsValidCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, e.state.IsUpdateAvailable())
	assert.True(t, e.state.IsCandidateAvailable())
	assert.False(t, e.state.IsErrorInNewVersion())
	assert.Equal(t, "1", e.state.OutdatedVersion())
	assert.Contains(t, e.state.OutdatedBundleInformation(), "bundle:1")

	diff := e.o.GetDiff()
	require.NotNil(t, diff)
	assert.True(t, diff.WithChanges())
	assert.Equal(t, []string{"jenkins.yaml"}, diff.Section(bundle.SectionJCasC).UpdatedFiles)

	c := e.o.Candidate()
	require.NotNil(t, c)
	assert.Equal(t, "2", c.Version.Version)
	assert.False(t, c.Invalid)
	assert.Equal(t, PhasePromotable, e.o.Phase())
	assert.Equal(t, UpdateReloadOrSkip, e.o.UpdateType())
}

func TestInvalidCandidateIsRejected(t *testing.T) {
	e := newEnv(t, spec("1"), invalidSpec("2"), DefaultTiming())
	ctx := context.Background()

	ok, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, e.state.IsUpdateAvailable())
	assert.False(t, e.state.IsCandidateAvailable())

	_, _, err = e.o.Reload(ctx, false)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.ErrorIs(t, e.o.Restart(ctx), ErrValidationRejected)

	reloads, restarts := e.app.counts()
	assert.Zero(t, reloads)
	assert.Zero(t, restarts)
	assert.Equal(t, UpdateUnknown, e.o.UpdateType())
}

func TestRejectWarnings(t *testing.T) {
	warn := spec("2")
	warn.Files[bundle.SectionCatalog] = map[string]string{"a.yaml": "a: 1\n", "b.yaml": "b: 1\n"}

	e := newEnv(t, spec("1"), warn, Timing{CanSkip: true, RejectWarnings: true})
	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, e.state.IsCandidateAvailable())

	e2 := newEnv(t, spec("1"), warn, DefaultTiming())
	_, err = e2.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, e2.state.IsCandidateAvailable())
}

func TestConcurrentChecksValidateOnce(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	e.pipe.started = make(chan struct{}, 4)
	e.pipe.release = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = e.o.CheckForUpdate(ctx)
	}()
	<-e.pipe.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = e.o.CheckForUpdate(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	close(e.pipe.release)
	wg.Wait()

	assert.Equal(t, int32(1), e.pipe.runs.Load())
	assert.Equal(t, []bool{true, true}, results)
}

func TestCheckDoesNotRevalidateKnownCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := e.o.CheckForUpdate(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(1), e.pipe.runs.Load())
}

func TestCheckCancelledContext(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	e.pipe.started = make(chan struct{}, 1)
	e.pipe.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.o.CheckForUpdate(ctx)
		done <- err
	}()
	<-e.pipe.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// el chequeo compartido termina igual
	close(e.pipe.release)
	require.Eventually(t, func() bool { return e.state.IsUpdateAvailable() }, 2*time.Second, 10*time.Millisecond)
}

func TestCheckErrorIsCapturedInState(t *testing.T) {
	e := newEnv(t, nil, spec("2"), DefaultTiming())

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, e.state.IsErrorInNewVersion())
	assert.Contains(t, e.state.ErrorMessage(), "load current bundle")
}

func TestOlderIncomingIsIgnored(t *testing.T) {
	e := newEnv(t, spec("2.0.0"), spec("1.0.0"), DefaultTiming())

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(0), e.pipe.runs.Load())
	assert.Nil(t, e.o.Candidate())
}

func TestReloadPromotesCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()

	_, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)

	ok, reason, err := e.o.Reload(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok, reason)

	reloads, _ := e.app.counts()
	assert.Equal(t, 1, reloads)
	assert.False(t, e.state.IsUpdateAvailable())
	assert.False(t, e.state.IsCurrentlyReloading())
	assert.True(t, e.state.IsShowSuccessfulInstallMonitor())
	assert.Nil(t, e.o.GetDiff())
	assert.Equal(t, PhaseIdle, e.o.Phase())

	cur, err := bundle.Load(e.current)
	require.NoError(t, err)
	assert.Equal(t, "2", cur.Descriptor().Version)

	latest, err := e.store.Latest()
	require.NoError(t, err)
	assert.True(t, latest.Promoted)

	ok, err = e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReloadWithoutCandidateReappliesCurrent(t *testing.T) {
	e := newEnv(t, spec("1"), nil, DefaultTiming())

	ok, _, err := e.o.Reload(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, ok)
	reloads, _ := e.app.counts()
	assert.Equal(t, 1, reloads)
}

func TestReloadRefusedWhenAutomatic(t *testing.T) {
	e := newEnv(t, spec("1"), nil, Timing{AutomaticReload: true})

	ok, reason, err := e.o.Reload(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonAutomaticReload, reason)
}

func TestReloadAlreadyInProgress(t *testing.T) {
	e := newEnv(t, spec("1"), nil, DefaultTiming())
	e.app.block = make(chan struct{})
	ctx := context.Background()

	ok, _, err := e.o.Reload(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, e.o.IsReloading())

	ok, reason, err := e.o.Reload(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonReloadInProgress, reason)

	assert.True(t, IsIllegalState(e.o.Restart(ctx)))

	close(e.app.block)
	require.Eventually(t, func() bool { return !e.o.IsReloading() }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, e.state.IsCurrentlyReloading())
}

func TestReloadFailureSetsErrorInReload(t *testing.T) {
	e := newEnv(t, spec("1"), nil, DefaultTiming())
	e.app.err = errors.New("boom")

	ok, reason, err := e.o.Reload(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonReloadFailed, reason)
	assert.True(t, e.state.IsErrorInReload())
	assert.False(t, e.state.IsShowSuccessfulInstallMonitor())
	assert.False(t, e.o.IsReloading())
}

func TestReloadNotHotReloadable(t *testing.T) {
	next := spec("2")
	next.Files[bundle.SectionPlugins] = map[string]string{"plugins.yaml": "plugins:\n  - id: git\n  - id: ldap\n"}
	e := newEnv(t, spec("1"), next, DefaultTiming())
	ctx := context.Background()

	_, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, UpdateRestartOrSkip, e.o.UpdateType())

	ok, reason, err := e.o.Reload(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ReasonNotHotReloadable, reason)

	ok, _, err = e.o.ForceReload(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestartPromotesCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()

	_, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	require.NoError(t, e.o.Restart(ctx))

	_, restarts := e.app.counts()
	assert.Equal(t, 1, restarts)
	assert.False(t, e.state.IsUpdateAvailable())
	assert.Equal(t, UpdateRestart, e.o.UpdateType())
	assert.True(t, IsIllegalState(e.o.Skip(ctx)))
}

func TestSkip(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()

	assert.True(t, IsIllegalState(e.o.Skip(ctx)), "nothing to skip")

	_, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	require.NoError(t, e.o.Skip(ctx))

	assert.False(t, e.state.IsUpdateAvailable())
	assert.False(t, e.state.IsCandidateAvailable())
	assert.Nil(t, e.o.GetDiff())
	assert.Equal(t, UpdateSkipped, e.o.UpdateType())
	assert.True(t, IsIllegalState(e.o.Skip(ctx)), "already skipped")

	ok, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), e.pipe.runs.Load())

	latest, err := e.store.Latest()
	require.NoError(t, err)
	assert.True(t, latest.Skipped)
}

func TestSkipRechecksFlagsUnderLock(t *testing.T) {
	cases := []struct {
		name   string
		flag   func(o *Orchestrator) *atomic.Bool
		reason string
	}{
		{"reload", func(o *Orchestrator) *atomic.Bool { return &o.reloading }, "a reload is in progress"},
		{"restart", func(o *Orchestrator) *atomic.Bool { return &o.restartScheduled }, "a restart is scheduled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
			ctx := context.Background()
			_, err := e.o.CheckForUpdate(ctx)
			require.NoError(t, err)

			e.o.mu.Lock()
			done := make(chan error, 1)
			go func() { done <- e.o.Skip(ctx) }()
			time.Sleep(20 * time.Millisecond)
			tc.flag(e.o).Store(true)
			e.o.mu.Unlock()

			var err2 error
			select {
			case err2 = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("skip did not return")
			}
			var ise *IllegalStateError
			require.ErrorAs(t, err2, &ise)
			assert.Equal(t, tc.reason, ise.Reason)

			tc.flag(e.o).Store(false)
			latest, err := e.store.Latest()
			require.NoError(t, err)
			assert.False(t, latest.Skipped)
			assert.True(t, e.state.IsUpdateAvailable())
		})
	}
}

func TestSkipDisabled(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), Timing{})
	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)

	err = e.o.Skip(context.Background())
	var ise *IllegalStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "skip", ise.Op)
	assert.Equal(t, UpdateReload, e.o.UpdateType())
}

func TestSkipNewVersionsAutomatically(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), Timing{SkipNewVersions: true})

	ok, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	c := e.o.Candidate()
	require.NotNil(t, c)
	assert.True(t, c.Skipped)
}

func TestAutomaticReload(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), Timing{AutomaticReload: true})

	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		reloads, _ := e.app.counts()
		return reloads == 1 && !e.o.IsReloading()
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, e.state.IsUpdateAvailable())
}

func TestAutomaticRestart(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), Timing{AutomaticRestart: true})

	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	_, restarts := e.app.counts()
	assert.Equal(t, 1, restarts)
	assert.Equal(t, UpdateAutomaticRestart, e.o.UpdateType())
}

func TestPromote(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()

	ok, err := e.o.Promote(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	ok, err = e.o.Promote(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	reloads, _ := e.app.counts()
	assert.Zero(t, reloads)
}

func TestRestoresPendingCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)

	e.pipe = newCountingPipeline()
	o := e.orchestrator(t, DefaultTiming())
	require.NotNil(t, o.Candidate())
	assert.False(t, e.state.IsUpdateAvailable())

	ok, err := o.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(0), e.pipe.runs.Load())
	assert.True(t, e.state.IsCandidateAvailable())
	assert.NotNil(t, o.GetDiff())
}

func TestIncomingMatchingCurrentDropsCandidate(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	ctx := context.Background()
	_, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(e.incoming))
	bundletest.Write(t, e.incoming, *spec("1"))

	ok, err := e.o.CheckForUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, e.state.IsUpdateAvailable())
	assert.Empty(t, e.state.OutdatedVersion())
	assert.Nil(t, e.o.Candidate())
}

func TestGetStatus(t *testing.T) {
	e := newEnv(t, spec("1"), spec("2"), DefaultTiming())
	_, err := e.o.CheckForUpdate(context.Background())
	require.NoError(t, err)

	st := e.o.GetStatus()
	assert.True(t, st.UpdateAvailable)
	assert.Equal(t, PhasePromotable, st.Phase)
	require.NotNil(t, st.Candidate)
	assert.Equal(t, "2", st.Candidate.Version.Version)
}
