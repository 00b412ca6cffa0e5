package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/reconcile"
	"github.com/erazemk/zaloga/internal/remote"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSyncer records syncs. When block is set each sync waits for a value
// on it.
type fakeSyncer struct {
	mu      sync.Mutex
	pending int
	online  bool
	err     error
	calls   int

	started chan struct{}
	block   chan struct{}
}

func newFake() *fakeSyncer {
	return &fakeSyncer{online: true, started: make(chan struct{}, 16)}
}

func (f *fakeSyncer) TriggerFullSync(ctx context.Context) (*reconcile.Result, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	if err != nil {
		return nil, err
	}
	return &reconcile.Result{Success: true}, nil
}

func (f *fakeSyncer) SyncStatus(ctx context.Context) (model.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.SyncStatus{IsOnline: f.online, PendingOps: f.pending}, nil
}

func (f *fakeSyncer) SetOnline(ctx context.Context, online bool) {
	f.mu.Lock()
	f.online = online
	f.mu.Unlock()
}

func (f *fakeSyncer) setPending(n int) {
	f.mu.Lock()
	f.pending = n
	f.mu.Unlock()
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// start runs s until the test ends and checks that Run returned.
func start(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitStarted(t *testing.T, f *fakeSyncer) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not start")
	}
}

func TestTickSyncsOnlyWithPendingOps(t *testing.T) {
	f := newFake()
	start(t, New(f, Options{Interval: 5 * time.Millisecond}))

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, f.callCount(), "nothing pending, nothing to do")

	f.setPending(3)
	waitStarted(t, f)

	f.SetOnline(context.Background(), false)
	for len(f.started) > 0 {
		<-f.started
	}
	n := f.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, f.callCount(), n+1, "offline ticks do not sync")
}

func TestTriggerDroppedWhileBusy(t *testing.T) {
	f := newFake()
	f.block = make(chan struct{})
	s := New(f, Options{Interval: time.Hour})
	start(t, s)

	require.Eventually(t, func() bool { return s.Trigger(Manual) }, time.Second, time.Millisecond)
	waitStarted(t, f)

	assert.False(t, s.Trigger(Manual), "a trigger during a sync is dropped")
	assert.False(t, s.Trigger(Change))

	f.block <- struct{}{}
	require.Eventually(t, func() bool { return s.Trigger(Manual) }, time.Second, time.Millisecond)
	waitStarted(t, f)
	f.block <- struct{}{}

	assert.Equal(t, 2, f.callCount(), "dropped triggers are not queued")
}

func TestReconnectTriggersSync(t *testing.T) {
	f := newFake()
	s := New(f, Options{Interval: time.Hour})
	start(t, s)
	ctx := context.Background()

	assert.False(t, s.SetOnline(ctx, true), "already online")

	require.Eventually(t, func() bool {
		s.SetOnline(ctx, false)
		return s.SetOnline(ctx, true)
	}, time.Second, time.Millisecond)
	waitStarted(t, f)

	st, _ := f.SyncStatus(ctx)
	assert.True(t, st.IsOnline)
}

func TestSyncOnStartAndLocalChange(t *testing.T) {
	f := newFake()
	s := New(f, Options{Interval: time.Hour, SyncOnStart: true})
	start(t, s)
	waitStarted(t, f)

	require.Eventually(t, func() bool {
		s.LocalChange()
		return f.callCount() >= 2
	}, time.Second, time.Millisecond)
}

func TestFailuresKeepTheLoopRunning(t *testing.T) {
	f := newFake()
	f.err = &reconcile.Error{Code: reconcile.CodeAuth, Message: "bad token", Err: remote.ErrUnauthorized}
	s := New(f, Options{Interval: time.Hour})
	start(t, s)

	for range 2 {
		require.Eventually(t, func() bool { return s.Trigger(Manual) }, time.Second, time.Millisecond)
		waitStarted(t, f)
	}
}
