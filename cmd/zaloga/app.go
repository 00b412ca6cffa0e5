package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/kv"
	"github.com/erazemk/zaloga/internal/oplog"
	"github.com/erazemk/zaloga/internal/reconcile"
	"github.com/erazemk/zaloga/internal/remote"
	"github.com/erazemk/zaloga/internal/store"
)

// app holds the opened replica, remote and services for one command.
type app struct {
	cfg    config.Config
	store  kv.Store
	remote remote.Store
	closer func() error
	svc    *inventory.Service
	events *api.Events
}

// openApp opens everything cfg describes. The caller must Close it.
func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	s, err := kv.Open(cfg.Store, cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("opening replica %s: %w", cfg.Data, err)
	}

	r, closer, err := openRemote(ctx, cfg.Remote)
	if err != nil {
		s.Close()
		return nil, err
	}

	sess, err := store.LoadSession(ctx, s, cfg.User, time.Now())
	if err != nil {
		s.Close()
		closer()
		return nil, fmt.Errorf("loading session: %w", err)
	}
	slog.Debug("session loaded", "site", sess.SiteID, "user", sess.UserID)

	events := api.NewEvents()
	rec := reconcile.New(s, r, sess, reconcile.Options{
		MaxAttempts: cfg.Sync.MaxAttempts,
		Notifier:    events,
	})
	return &app{
		cfg:    cfg,
		store:  s,
		remote: r,
		closer: closer,
		svc:    inventory.New(s, oplog.NewFactory(sess, nil), rec),
		events: events,
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	if err := a.closer(); err != nil {
		slog.Warn("closing remote", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("closing replica", "error", err)
	}
}

// selectWarehouse makes id current when set.
func (a *app) selectWarehouse(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := a.svc.SelectWarehouse(ctx, id)
	return err
}

// openRemote builds the remote backend cfg names, with its closer.
func openRemote(ctx context.Context, cfg config.Remote) (remote.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.RemoteMemory:
		return remote.NewMemory(), noop, nil
	case config.RemoteFile:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("creating remote directory: %w", err)
			}
		}
		return remote.NewFile(cfg.Path), noop, nil
	case config.RemoteGitHub:
		gh := cfg.GitHub
		token := gh.Token()
		if token == "" {
			slog.Warn("no GitHub token in environment, sync will fail", "env", gh.TokenEnv)
		}
		return remote.NewGitHub(remote.GitHubConfig{
			Owner:   gh.Owner,
			Repo:    gh.Repo,
			Path:    gh.Path,
			Branch:  gh.Branch,
			Token:   token,
			BaseURL: gh.BaseURL,
		}, nil), noop, nil
	case config.RemoteRedis:
		r, err := remote.OpenRedis(cfg.Redis.URL, cfg.Redis.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis remote: %w", err)
		}
		return r, r.Close, nil
	case config.RemotePostgres:
		p, err := remote.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres remote: %w", err)
		}
		return p, p.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown remote kind %q", cfg.Kind)
}
