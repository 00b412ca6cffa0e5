// Package scheduler decides when the replica syncs: on a timer, on demand,
// after a local edit and when connectivity returns.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/reconcile"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 30 * time.Second

// Kind says what caused a sync.
type Kind string

// Trigger kinds.
const (
	Manual    Kind = "manual"
	Reconnect Kind = "reconnect"
	Tick      Kind = "tick"
	Change    Kind = "change"
)

// Syncer runs reconciliation. *inventory.Service implements it.
type Syncer interface {
	TriggerFullSync(ctx context.Context) (*reconcile.Result, error)
	SyncStatus(ctx context.Context) (model.SyncStatus, error)
	SetOnline(ctx context.Context, online bool)
}

// Options tunes a Scheduler.
type Options struct {
	Interval time.Duration
	// SyncOnStart runs one sync as soon as Run starts.
	SyncOnStart bool
}

// Scheduler serializes sync triggers onto one loop. A trigger that arrives
// while a sync runs is dropped, not queued.
type Scheduler struct {
	syncer      Syncer
	interval    time.Duration
	syncOnStart bool
	triggers    chan Kind
	online      atomic.Bool
}

// New returns a scheduler for s. The device starts out online.
func New(s Syncer, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	sch := &Scheduler{
		syncer:      s,
		interval:    opts.Interval,
		syncOnStart: opts.SyncOnStart,
		triggers:    make(chan Kind),
	}
	sch.online.Store(true)
	return sch
}

// Run handles triggers until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sync scheduler started", "interval", s.interval)
	defer slog.Info("sync scheduler stopped")

	if s.syncOnStart {
		s.run(ctx, Manual)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, Tick)
		case kind := <-s.triggers:
			s.run(ctx, kind)
		}
	}
}

// Trigger asks for a sync. It reports false when the loop is busy or not
// running and the trigger was dropped.
func (s *Scheduler) Trigger(kind Kind) bool {
	select {
	case s.triggers <- kind:
		return true
	default:
		slog.Debug("sync busy, dropping trigger", "kind", kind)
		return false
	}
}

// LocalChange triggers a sync after a local edit.
func (s *Scheduler) LocalChange() {
	s.Trigger(Change)
}

// SetOnline forwards connectivity to the syncer. Going from offline to
// online triggers a reconnect sync; the result says whether it was taken.
func (s *Scheduler) SetOnline(ctx context.Context, online bool) bool {
	was := s.online.Swap(online)
	s.syncer.SetOnline(ctx, online)
	if was || !online {
		return false
	}
	slog.Info("back online")
	return s.Trigger(Reconnect)
}

func (s *Scheduler) run(ctx context.Context, kind Kind) {
	if kind == Tick {
		status, err := s.syncer.SyncStatus(ctx)
		if err != nil {
			slog.Warn("reading sync status", "error", err)
			return
		}
		if !status.IsOnline || status.PendingOps == 0 {
			return
		}
	}

	slog.Debug("sync triggered", "kind", kind)
	res, err := s.syncer.TriggerFullSync(ctx)
	switch {
	case err != nil && reconcile.IsAuth(err):
		slog.Error("scheduled sync rejected, remote credentials need attention", "kind", kind, "error", err)
	case err != nil:
		slog.Warn("scheduled sync failed", "kind", kind, "error", err)
	case res.Success:
		slog.Debug("scheduled sync done", "kind", kind, "operations", res.Operations)
	}
}
