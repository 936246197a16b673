package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flockcore/pkg/domain"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flockcore.yaml")
	body := "storage:\n" +
		"  remote_driver: memory\n" +
		"  cache_driver: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "cache.db") + "\n" +
		"logging:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestConfigShow(t *testing.T) {
	cfg := writeConfig(t)
	code, out, errOut := runCLI(t, "--config", cfg, "config", "show")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "remote_driver: memory")
	assert.Contains(t, out, "level: error")
}

func TestConfigPricing(t *testing.T) {
	code, out, errOut := runCLI(t, "--config", writeConfig(t), "config", "pricing")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "premium monthly: 499 USD")
	assert.Contains(t, out, "listing fee:     99 USD")
}

func TestConfigInitRoundTrips(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "written.yaml")
	code, _, errOut := runCLI(t, "--config", filepath.Join(dir, "missing.yaml"), "config", "init", "-o", out)
	require.Equal(t, 0, code, errOut)
	code, shown, errOut := runCLI(t, "--config", out, "config", "show")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, shown, ":8080")
}

func TestFowlAddSearchAndSync(t *testing.T) {
	cfg := writeConfig(t)
	code, out, errOut := runCLI(t, "--config", cfg, "fowl", "add", "--name", "Henrietta", "--breed", "Orpington", "--trait", "docile", "--hatched", "2025-03-01")
	require.Equal(t, 0, code, errOut)
	var created domain.Fowl
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"docile"}, created.Traits)
	require.NotNil(t, created.HatchedAt)

	// The cache file outlives the in-memory remote between invocations.
	code, out, errOut = runCLI(t, "--config", cfg, "fowl", "search", "hen")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Henrietta")

	code, out, errOut = runCLI(t, "--config", cfg, "sync")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "synced 0, pruned 1\n", out)

	code, out, _ = runCLI(t, "--config", cfg, "fowl", "search", "hen")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "Henrietta")
}

func TestFowlAddRequiresName(t *testing.T) {
	code, _, errOut := runCLI(t, "--config", writeConfig(t), "fowl", "add")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `required flag(s) "name" not set`)
}

func TestFowlGetMissing(t *testing.T) {
	code, _, errOut := runCLI(t, "--config", writeConfig(t), "fowl", "get", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}

func TestMainUsesExitFunc(t *testing.T) {
	oldArgs, oldExit := os.Args, exitFunc
	t.Cleanup(func() { os.Args, exitFunc = oldArgs, oldExit })
	var got int
	exitFunc = func(code int) { got = code }
	os.Args = []string{"flock", "--config", writeConfig(t), "no-such-command"}
	main()
	assert.Equal(t, 1, got)
}
