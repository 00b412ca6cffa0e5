package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	commands := []string{"serve", "sync", "status", "warehouses", "items", "adjust", "conflicts", "resolve", "site", "reset"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestItemsCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	items, _, err := cmd.Find([]string{"items"})
	require.NoError(t, err)

	sort := items.Flags().Lookup("sort")
	require.NotNil(t, sort)
	assert.Equal(t, "internal", sort.DefValue)

	add, _, err := cmd.Find([]string{"items", "add"})
	require.NoError(t, err)
	assert.NotNil(t, add.Flags().Lookup("qty"))
	assert.NotNil(t, add.InheritedFlags().Lookup("warehouse"))
}

// run executes the CLI against the replica and remote in dir.
func run(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cfgPath := filepath.Join(dir, "zaloga.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := "data: " + filepath.Join(dir, "replica.db") + "\n" +
			"store: bolt\n" +
			"user: ana\n" +
			"remote:\n  kind: file\n  path: " + filepath.Join(dir, "remote", "sync-data.json") + "\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	}

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCLIWorkflow(t *testing.T) {
	dir := t.TempDir()

	out := run(t, dir, "site")
	assert.Contains(t, out, "User: ana")

	out = run(t, dir, "warehouses", "add", "Garage")
	assert.Contains(t, out, "Created warehouse Garage")

	out = run(t, dir, "items", "add", "bolt-m6", "--qty", "5", "--min", "10", "--bin", "A1")
	assert.Contains(t, out, "bolt-m6")
	assert.Contains(t, out, "5 !")

	out = run(t, dir, "adjust", "bolt-m6", "7")
	assert.Contains(t, out, "bolt-m6: 12")

	out = run(t, dir, "items", "--below-min")
	assert.NotContains(t, out, "bolt-m6")

	out = run(t, dir, "status")
	assert.Contains(t, out, "Pending ops: 5")
	assert.Contains(t, out, "Last sync:   never")

	out = run(t, dir, "sync")
	assert.Contains(t, out, "Synced")

	out = run(t, dir, "status")
	assert.Contains(t, out, "Pending ops: 0")

	out = run(t, dir, "conflicts")
	assert.Contains(t, out, "No conflicts.")

	_, err := os.Stat(filepath.Join(dir, "remote", "sync-data.json"))
	assert.NoError(t, err)
}

func TestResetRequiresConfirmation(t *testing.T) {
	dir := t.TempDir()
	run(t, dir, "warehouses", "add", "Garage")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "zaloga.yaml"), "reset"})
	assert.Error(t, cmd.Execute())

	site := run(t, dir, "site")
	run(t, dir, "reset", "--yes")
	assert.Equal(t, site, run(t, dir, "site"))

	assert.NotContains(t, run(t, dir, "warehouses"), "Garage")
}
