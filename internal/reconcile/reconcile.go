// Package reconcile synchronizes the local replica with the shared remote
// document: fetch, merge, conditional write, then local commit.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/semaphore"

	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/merge"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/remote"
	"github.com/erazemk/zaloga/internal/store"
)

// DefaultMaxAttempts bounds the fetch-merge-write cycles of one run.
const DefaultMaxAttempts = 3

// Notifier receives every status change.
type Notifier interface {
	Notify(status model.SyncStatus)
}

// Options tunes a Reconciler. Zero values pick defaults.
type Options struct {
	Now         func() time.Time
	MaxAttempts int
	// Backoff returns the wait policy between attempts after a write conflict.
	Backoff  func() backoff.BackOff
	Notifier Notifier
}

// Result describes a finished run.
type Result struct {
	// Success is false without an error only when there was nothing to do:
	// the device is offline, another run is in flight, or no warehouse exists.
	Success bool
	// Conflicts lists conflicts first detected by this run.
	Conflicts  []model.Conflict
	Warehouses int
	Operations int
	Attempts   int
}

// Reconciler runs reconciliation for one device. At most one run is in
// flight; overlapping calls return immediately.
type Reconciler struct {
	store       kv.Store
	remote      remote.Store
	session     model.Session
	now         func() time.Time
	maxAttempts int
	backoff     func() backoff.BackOff
	notifier    Notifier

	sem    *semaphore.Weighted
	online atomic.Bool

	mu         sync.Mutex
	state      model.SyncState
	lastError  string
	authFailed bool
}

// New returns a Reconciler. The device starts out online.
func New(s kv.Store, r remote.Store, sess model.Session, opts Options) *Reconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff == nil {
		opts.Backoff = defaultBackoff
	}

	rec := &Reconciler{
		store:       s,
		remote:      r,
		session:     sess,
		now:         opts.Now,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		notifier:    opts.Notifier,
		sem:         semaphore.NewWeighted(1),
		state:       model.SyncIdle,
	}
	rec.online.Store(true)
	return rec
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// SetOnline records connectivity. Runs are skipped while offline.
func (r *Reconciler) SetOnline(ctx context.Context, online bool) {
	if r.online.Swap(online) != online {
		r.notify(ctx)
	}
}

// Online reports the last known connectivity.
func (r *Reconciler) Online() bool {
	return r.online.Load()
}

// Status returns the current sync status.
func (r *Reconciler) Status(ctx context.Context) (model.SyncStatus, error) {
	pending, err := store.PendingOps(ctx, r.store)
	if err != nil {
		return model.SyncStatus{}, err
	}
	last, err := store.GetLastSync(ctx, r.store)
	if err != nil {
		return model.SyncStatus{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return model.SyncStatus{
		State:        r.state,
		LastSyncTime: last,
		PendingOps:   pending,
		IsOnline:     r.online.Load(),
		IsSyncing:    r.state.Active(),
		LastError:    r.lastError,
		AuthFailed:   r.authFailed,
	}, nil
}

func (r *Reconciler) notify(ctx context.Context) {
	if r.notifier == nil {
		return
	}
	status, err := r.Status(ctx)
	if err != nil {
		slog.Warn("reading sync status", "error", err)
		return
	}
	r.notifier.Notify(status)
}

func (r *Reconciler) setState(ctx context.Context, s model.SyncState) {
	r.mu.Lock()
	r.state = s
	if s == model.SyncDone {
		r.lastError = ""
		r.authFailed = false
	}
	r.mu.Unlock()
	r.notify(ctx)
}

func (r *Reconciler) fail(ctx context.Context, err *Error) {
	r.mu.Lock()
	r.state = model.SyncFailed
	r.lastError = err.Error()
	r.authFailed = err.Code == CodeAuth
	r.mu.Unlock()
	r.notify(ctx)
}

// ReconcileAll reconciles every warehouse with the remote document. On a
// write conflict the whole cycle is retried with backoff up to the
// configured number of attempts. Local state changes only after the remote
// accepted the write. Failures are returned as *Error.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*Result, error) {
	if !r.Online() {
		slog.Debug("offline, skipping sync")
		return &Result{}, nil
	}
	if !r.sem.TryAcquire(1) {
		slog.Debug("sync already in progress, dropping trigger")
		return &Result{}, nil
	}
	defer r.sem.Release(1)

	var (
		res      *Result
		attempts int
	)
	operation := func() error {
		attempts++
		if attempts > 1 {
			r.setState(ctx, model.SyncRetrying)
		}
		var err error
		res, err = r.attempt(ctx)
		if errors.Is(err, remote.ErrRevisionMismatch) {
			slog.Info("remote document changed during sync", "attempt", attempts)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	// WithMaxRetries treats 0 as unlimited, so a single attempt needs StopBackOff.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if r.maxAttempts > 1 {
		policy = backoff.WithMaxRetries(r.backoff(), uint64(r.maxAttempts-1))
	}
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		serr := classify(err)
		if serr.Code == CodeAuth {
			slog.Error("sync failed, check remote credentials", "error", err)
		} else {
			slog.Warn("sync failed", "error", err, "attempts", attempts)
		}
		r.fail(ctx, serr)
		return nil, serr
	}

	res.Attempts = attempts
	if !res.Success {
		r.setState(ctx, model.SyncIdle)
		return res, nil
	}

	r.setState(ctx, model.SyncDone)
	slog.Info("sync complete",
		"warehouses", res.Warehouses,
		"operations", res.Operations,
		"conflicts", len(res.Conflicts),
		"attempts", attempts,
	)
	return res, nil
}

// plan is the merged state of one warehouse waiting to be committed.
type plan struct {
	whID      string
	merged    merge.Result
	conflicts []model.Conflict
}

func (r *Reconciler) fetch(ctx context.Context) (*remote.Snapshot, *remote.Document, error) {
	snap, err := r.remote.Fetch(ctx)
	if errors.Is(err, remote.ErrNotFound) {
		return &remote.Snapshot{}, remote.NewDocument(), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetching remote document: %w", err)
	}

	doc, err := remote.Decode(snap.Content)
	if err != nil {
		slog.Warn("remote document is malformed, using empty baseline", "error", err)
		doc = remote.NewDocument()
	}
	return snap, doc, nil
}

func (r *Reconciler) attempt(ctx context.Context) (*Result, error) {
	r.setState(ctx, model.SyncFetching)
	snap, doc, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	r.setState(ctx, model.SyncMerging)
	localWhs, err := store.ListWarehouses(ctx, r.store)
	if err != nil {
		return nil, err
	}
	whs := MergeWarehouses(localWhs, doc.Warehouses)
	if len(whs) == 0 {
		return &Result{}, nil
	}

	now := r.now().UnixMilli()
	next := remote.NewDocument()
	next.Warehouses = whs
	next.LastSync = now
	next.SiteID = r.session.SiteID

	res := &Result{Success: true, Warehouses: len(whs)}
	plans := make([]plan, 0, len(whs))
	for _, wh := range whs {
		localOps, err := store.GetOps(ctx, r.store, wh.ID)
		if err != nil {
			return nil, err
		}
		localConflicts, err := store.GetConflicts(ctx, r.store, wh.ID)
		if err != nil {
			return nil, err
		}

		m := merge.Merge(localOps, doc.Operations[wh.ID])
		known := merge.Accumulate(localConflicts, doc.Conflicts[wh.ID])
		conflicts := merge.Accumulate(known, m.Conflicts)
		res.Conflicts = append(res.Conflicts, newConflicts(known, m.Conflicts)...)
		res.Operations += len(m.Merged)

		next.Items[wh.ID] = m.Visible()
		next.Operations[wh.ID] = m.Merged
		next.Conflicts[wh.ID] = conflicts
		plans = append(plans, plan{whID: wh.ID, merged: m, conflicts: conflicts})
	}

	content, err := remote.Encode(next)
	if err != nil {
		return nil, err
	}

	r.setState(ctx, model.SyncWriting)
	if err := r.remote.Put(ctx, content, snap.Revision); err != nil {
		if errors.Is(err, remote.ErrRevisionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("writing remote document: %w", err)
	}

	if err := r.commit(ctx, whs, plans, now); err != nil {
		return nil, fmt.Errorf("saving merged state: %w", err)
	}
	return res, nil
}

// commit persists the merged state in one transaction. Operations and
// resolutions recorded locally while the run was in flight are kept.
func (r *Reconciler) commit(ctx context.Context, whs []model.Warehouse, plans []plan, now int64) error {
	return r.store.Update(ctx, func(w kv.Writer) error {
		current, err := store.ListWarehouses(ctx, w)
		if err != nil {
			return err
		}
		if err := store.SaveWarehouses(ctx, w, MergeWarehouses(current, whs)); err != nil {
			return err
		}

		for _, p := range plans {
			currentOps, err := store.GetOps(ctx, w, p.whID)
			if err != nil {
				return err
			}
			ops, items := withLocalTail(p.merged, currentOps)
			if err := store.SaveOps(ctx, w, p.whID, ops); err != nil {
				return err
			}
			if err := store.SaveItems(ctx, w, p.whID, items); err != nil {
				return err
			}

			currentConflicts, err := store.GetConflicts(ctx, w, p.whID)
			if err != nil {
				return err
			}
			if err := store.SaveConflicts(ctx, w, p.whID, merge.Accumulate(currentConflicts, p.conflicts)); err != nil {
				return err
			}
		}
		return store.SaveLastSync(ctx, w, now)
	})
}

// withLocalTail appends operations that are in the local log but not in
// the merged result, i.e. ones created after the run read the log.
func withLocalTail(m merge.Result, current []model.Op) ([]model.Op, []model.Item) {
	known := make(map[string]struct{}, len(m.Merged))
	for _, op := range m.Merged {
		known[op.OpID] = struct{}{}
	}
	var tail []model.Op
	for _, op := range current {
		if _, ok := known[op.OpID]; !ok {
			tail = append(tail, op)
		}
	}
	if len(tail) == 0 {
		return m.Merged, m.Items
	}
	ops := append(slices.Clone(m.Merged), tail...)
	return ops, oplog.Rebuild(ops)
}

func newConflicts(known, detected []model.Conflict) []model.Conflict {
	seen := make(map[string]struct{}, len(known))
	for _, c := range known {
		seen[c.ID] = struct{}{}
	}
	var out []model.Conflict
	for _, c := range detected {
		if _, ok := seen[c.ID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// LoadWarehouses pulls warehouse metadata from the remote document into the
// local list without writing the remote. A missing or malformed document
// leaves the local list as is.
func (r *Reconciler) LoadWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	_, doc, err := r.fetch(ctx)
	if err != nil {
		return nil, classify(err)
	}

	var whs []model.Warehouse
	err = r.store.Update(ctx, func(w kv.Writer) error {
		local, err := store.ListWarehouses(ctx, w)
		if err != nil {
			return err
		}
		whs = MergeWarehouses(local, doc.Warehouses)
		return store.SaveWarehouses(ctx, w, whs)
	})
	if err != nil {
		return nil, fmt.Errorf("saving warehouses: %w", err)
	}
	return whs, nil
}
