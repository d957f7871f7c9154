package status

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle/bundletest"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/replication"
)

type replica struct {
	state *State
	mut   *Replicated
	disp  *replication.Dispatcher
}

func newReplica(t *testing.T, bus *replication.Bus, id string) *replica {
	t.Helper()
	st := New(compare.NewCache(0), zap.NewNop())
	reg := replication.NewRegistry()
	RegisterHandlers(reg, st)
	d := replication.NewDispatcher(bus.Endpoint(), reg, replication.Options{NodeID: id, Logger: zap.NewNop()})
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return &replica{state: st, mut: NewReplicated(st, d, zap.NewNop()), disp: d}
}

func TestReplicatedSettersConverge(t *testing.T) {
	root := t.TempDir()
	a := bundletest.Write(t, filepath.Join(root, "a"), bundletest.Simple("b", "1"))
	b := bundletest.Write(t, filepath.Join(root, "b"), bundletest.Simple("b", "2"))

	bus := replication.NewBus(64)
	r1 := newReplica(t, bus, "n1")
	r2 := newReplica(t, bus, "n2")

	now := time.Now().Truncate(time.Second)
	r1.mut.SetUpdateAvailable(true)
	r1.mut.SetCandidateAvailable(true)
	r1.mut.SetLastCheckForUpdate(now)
	r1.mut.SetOutdatedVersion("1")
	r1.mut.SetOutdatedBundle("b", "1", "abc")
	r1.mut.SetErrorInNewVersion(true)
	r1.mut.SetErrorMessage("boom")
	r1.mut.SetChangesInNewVersion(&DiffRef{Origin: a, Other: b})
	r1.mut.SetCurrentlyReloading(true)
	r1.mut.SetErrorInReload(true)
	r1.mut.SetShowSuccessfulInstallMonitor(true)

	want := r1.state.Snapshot()
	require.Eventually(t, func() bool {
		got := r2.state.Snapshot()
		return got.ShowSuccessfulInstallMonitor &&
			got.UpdateAvailable == want.UpdateAvailable &&
			got.ErrorMessage == want.ErrorMessage &&
			got.OutdatedBundleInformation == want.OutdatedBundleInformation &&
			got.ChangesInNewVersion != nil &&
			*got.ChangesInNewVersion == *want.ChangesInNewVersion &&
			got.LastCheckForUpdate != nil && got.LastCheckForUpdate.Equal(now)
	}, 2*time.Second, 10*time.Millisecond)

	// el diff se recalcula en la otra réplica desde los paths
	require.NotNil(t, r2.state.ChangesInNewVersion())
	assert.False(t, r2.state.ChangesInNewVersion().SameBundles())
}

func TestReplicatedClearsDiffRemotely(t *testing.T) {
	bus := replication.NewBus(64)
	r1 := newReplica(t, bus, "n1")
	r2 := newReplica(t, bus, "n2")

	r2.state.SetChangesInNewVersion(&DiffRef{Origin: "/a", Other: "/b"})
	r1.mut.SetChangesInNewVersion(nil)
	require.Eventually(t, func() bool {
		return r2.state.Snapshot().ChangesInNewVersion == nil
	}, 2*time.Second, 10*time.Millisecond)
}

type recordingInvoker struct {
	mu      sync.Mutex
	methods []string
}

func (r *recordingInvoker) Invoke(_ string, method string, _ ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	return nil
}

type panickyMutator struct{ *State }

func (panickyMutator) SetErrorInReload(bool) { panic("local failure") }

func TestReplicatedAppliesLocallyFirst(t *testing.T) {
	st := New(nil, zap.NewNop())
	inv := &recordingInvoker{}
	m := NewReplicated(panickyMutator{st}, inv, zap.NewNop())

	m.SetUpdateAvailable(true)
	assert.True(t, st.IsUpdateAvailable())

	assert.Panics(t, func() { m.SetErrorInReload(true) })
	assert.Equal(t, []string{"SetUpdateAvailable"}, inv.methods)
}

func TestRegisterHandlersCoversMutator(t *testing.T) {
	reg := replication.NewRegistry()
	RegisterHandlers(reg, New(nil, zap.NewNop()))
	assert.Len(t, reg.Methods(Target), 12)
}
