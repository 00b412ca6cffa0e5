package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/reconcile"
	"github.com/erazemk/zaloga/internal/scheduler"
	"github.com/erazemk/zaloga/internal/store"
)

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and sync in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.HTTP.Addr = addr
			}
			return withApp(cmd, opts, serve)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.svc.RefreshWarehouses(ctx); err != nil {
		slog.Warn("loading warehouses from remote", "error", err)
	}

	sched := scheduler.New(a.svc, scheduler.Options{
		Interval:    a.cfg.Sync.Interval,
		SyncOnStart: true,
	})
	a.svc.SetChangeHook(sched)

	router := api.NewRouter(a.svc, api.Options{Events: a.events, Connectivity: sched})
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		a.events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	slog.Info("server stopped, closing replica")
	return err
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local replica with the remote document once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.svc.TriggerFullSync(ctx)
				if err != nil {
					if reconcile.IsAuth(err) {
						return fmt.Errorf("%w (check %s)", err, a.cfg.Remote.GitHub.TokenEnv)
					}
					return err
				}
				printSyncResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func printSyncResult(w io.Writer, res *reconcile.Result) {
	if !res.Success {
		fmt.Fprintln(w, "Nothing to sync.")
		return
	}
	fmt.Fprintf(w, "Synced %s operations across %d warehouse(s) in %d attempt(s).\n",
		humanize.Comma(int64(res.Operations)), res.Warehouses, res.Attempts)
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(w, "%d new conflict(s), see `zaloga conflicts`.\n", len(res.Conflicts))
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				status, err := a.svc.SyncStatus(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, st model.SyncStatus) {
	last := "never"
	if st.LastSyncTime > 0 {
		last = humanize.Time(time.UnixMilli(st.LastSyncTime))
	}
	fmt.Fprintf(w, "State:       %s\n", st.State)
	fmt.Fprintf(w, "Last sync:   %s\n", last)
	fmt.Fprintf(w, "Pending ops: %s\n", humanize.Comma(int64(st.PendingOps)))
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error:  %s\n", st.LastError)
	}
	if st.AuthFailed {
		fmt.Fprintln(w, "The remote rejected the credentials; update the token and sync again.")
	}
}

func newSiteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "site",
		Short: "Show this device's site id and current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				sess := a.svc.Session()
				user := sess.UserID
				if user == "" {
					user = "(none)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Site: %s\nUser: %s\n", sess.SiteID, user)
				return nil
			})
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local data except the site id",
		Long: `Delete the local replica's warehouses, items, operations and conflicts.
Unsynced operations are lost. The site id is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				status, err := a.svc.SyncStatus(ctx)
				if err == nil && status.PendingOps > 0 {
					fmt.Fprintf(os.Stderr, "Discarding %d unsynced operation(s).\n", status.PendingOps)
				}
				if err := store.ClearAll(ctx, a.store); err != nil {
					return fmt.Errorf("resetting replica: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local data cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
