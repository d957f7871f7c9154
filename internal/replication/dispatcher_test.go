package replication

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTarget = "counter-mirror"

// mirror es un target mínimo con setters idempotentes.
type mirror struct {
	mu    sync.Mutex
	name  string
	flag  bool
	calls int
}

func (m *mirror) SetName(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = s
	m.calls++
}

func (m *mirror) SetFlag(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flag = b
}

func (m *mirror) snapshot() (string, bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.flag, m.calls
}

func newNode(t *testing.T, bus *Bus, id string, m *mirror) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	Bind1(reg, testTarget, "SetName", m.SetName)
	Bind1(reg, testTarget, "SetFlag", m.SetFlag)
	Bind1(reg, testTarget, "SetPanics", func(string) { panic("boom") })
	d := NewDispatcher(bus.Endpoint(), reg, Options{NodeID: id, Logger: zap.NewNop()})
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestRoundTripConverges(t *testing.T) {
	bus := NewBus(16)
	a, b := &mirror{}, &mirror{}
	da := newNode(t, bus, "a", a)
	newNode(t, bus, "b", b)

	a.SetName("v2")
	require.NoError(t, da.Invoke(testTarget, "SetName", "v2"))
	a.SetFlag(true)
	require.NoError(t, da.Invoke(testTarget, "SetFlag", true))

	require.Eventually(t, func() bool {
		name, flag, _ := b.snapshot()
		return name == "v2" && flag
	}, 2*time.Second, 10*time.Millisecond)

	// el eco propio no se reaplica en a
	time.Sleep(50 * time.Millisecond)
	_, _, calls := a.snapshot()
	assert.Equal(t, 1, calls)
}

func TestInvokeSkipsNonSerializable(t *testing.T) {
	bus := NewBus(16)
	d := newNode(t, bus, "a", &mirror{})
	err := d.Invoke(testTarget, "SetName", func() {})
	assert.ErrorIs(t, err, ErrReplicationSkipped)

	err = d.Invoke(testTarget, "SetName", make(chan int))
	assert.ErrorIs(t, err, ErrReplicationSkipped)
}

func TestInvokeIgnoresNonReplicatedMethods(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr, nil, Options{NodeID: "a", Logger: zap.NewNop()})
	require.NoError(t, d.Start(context.Background()))
	defer d.Close()

	require.NoError(t, d.Invoke(testTarget, "Reset"))
	require.NoError(t, d.Invoke(testTarget, "SetName", nil))
	require.Eventually(t, func() bool { return tr.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestOnRemoteCallToleratesBadCalls(t *testing.T) {
	bus := NewBus(16)
	m := &mirror{}
	d := newNode(t, bus, "b", m)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		d.OnRemoteCall(ctx, Call{Origin: "a", Target: testTarget, Method: "SetMissing", Args: raws(`1`)})
		d.OnRemoteCall(ctx, Call{Origin: "a", Target: testTarget, Method: "SetName", Args: raws(`1`, `2`)})
		d.OnRemoteCall(ctx, Call{Origin: "a", Target: testTarget, Method: "SetName", Args: raws(`true`)})
		d.OnRemoteCall(ctx, Call{Origin: "a", Target: testTarget, Method: "SetPanics", Args: raws(`"x"`)})
		d.OnRemoteCall(ctx, Call{Origin: "a", Target: "other", Method: "SetName", Args: raws(`"x"`)})
		d.OnRemoteCall(ctx, Call{Origin: "b", Target: testTarget, Method: "SetName", Args: raws(`"self"`)})
	})
	name, _, calls := m.snapshot()
	assert.Equal(t, "", name)
	assert.Equal(t, 0, calls)

	d.OnRemoteCall(ctx, Call{Origin: "a", Target: testTarget, Method: "SetName", Args: raws(`"ok"`)})
	name, _, _ = m.snapshot()
	assert.Equal(t, "ok", name)
}

func TestInvokeDropsWhenQueueFull(t *testing.T) {
	tr := &recordingTransport{}
	// sin Start no hay loop de envío: la cola se llena
	d := NewDispatcher(tr, nil, Options{NodeID: "a", QueueSize: 1, Logger: zap.NewNop()})
	require.NoError(t, d.Invoke(testTarget, "SetName", "1"))
	err := d.Invoke(testTarget, "SetName", "2")
	assert.ErrorIs(t, err, ErrReplicationSkipped)
}

func TestBroadcastErrorIsNotSurfaced(t *testing.T) {
	tr := &recordingTransport{fail: true}
	d := NewDispatcher(tr, nil, Options{NodeID: "a", Logger: zap.NewNop()})
	require.NoError(t, d.Start(context.Background()))
	defer d.Close()
	assert.NoError(t, d.Invoke(testTarget, "SetName", "x"))
}

type recordingTransport struct {
	mu   sync.Mutex
	sent [][]byte
	fail bool
}

func (r *recordingTransport) Broadcast(_ context.Context, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return &TransportError{Op: "broadcast", Err: assert.AnError}
	}
	r.sent = append(r.sent, p)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingTransport) Subscribe(context.Context, func([]byte)) error { return nil }
func (r *recordingTransport) Close() error                                 { return nil }
