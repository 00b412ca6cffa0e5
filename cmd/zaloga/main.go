package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/config"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Data       string
	Store      string
	User       string
	LogPath    string
	Verbose    bool

	cfg      config.Config
	closeLog func()
}

// newRootCommand creates the root command of the zaloga CLI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "zaloga",
		Short: "Offline-first inventory replica with conflict-aware sync",
		Long: `zaloga keeps a local replica of warehouse inventory as an operation log
and reconciles it with a shared document that other devices also write.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&opts.Data, "db", "d", "", "local replica path (overrides config)")
	flags.StringVar(&opts.Store, "store", "", "local store backend: sqlite or bolt (overrides config)")
	flags.StringVarP(&opts.User, "user", "u", "", "user id to attribute edits to")
	flags.StringVarP(&opts.LogPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newStatusCommand(opts),
		newWarehousesCommand(opts),
		newItemsCommand(opts),
		newAdjustCommand(opts),
		newConflictsCommand(opts),
		newResolveCommand(opts),
		newSiteCommand(opts),
		newResetCommand(opts),
	)
	return cmd
}

// load reads the config file and applies flag overrides.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.Data != "" {
		cfg.Data = o.Data
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.User != "" {
		cfg.User = o.User
	}
	if o.LogPath != "" {
		cfg.Log = o.LogPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Log, o.Verbose)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
