package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
base_url: "http://shop.internal:9090"
browser:
  headless: false
test:
  parallel_workers: 2
`)

	a := &app{cfgFile: path}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://shop.internal:9090", cfg.BaseURL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Test.ParallelWorkers)
	// Untouched keys keep their defaults.
	assert.Equal(t, "sockshop-e2e", cfg.AppName)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	// Point at an empty directory so no stray config.yaml is picked up.
	empty := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o644))

	a := &app{cfgFile: empty}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `base_url: "http://from-file:8080"`)
	t.Setenv("SOCKSHOP_BASE_URL", "http://from-env:8081")

	a := &app{cfgFile: path}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:8081", cfg.BaseURL)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	a := &app{cfgFile: filepath.Join(t.TempDir(), "nope.yaml")}
	_, err := a.loadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "base_url: [unterminated")
	a := &app{cfgFile: path}
	_, err := a.loadConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRootCommandVersionFlag(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestVersionSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "version")
	assert.Contains(t, names, "doctor")
	assert.Contains(t, names, "smoke")
	assert.Contains(t, names, "seed")
}
