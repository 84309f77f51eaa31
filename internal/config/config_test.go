package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	v, err := Load(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, 5*time.Second, cfg.OperationTimeout)
	assert.Equal(t, 1, cfg.MaxNestingDepth)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "backend: sqlite\ndata_dir: /srv/qadesk\nservice:\n  operation_timeout: 250ms\nstore:\n  max_nesting_depth: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	v, err := Load(dir)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/qadesk", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.OperationTimeout)
	assert.Equal(t, 0, cfg.MaxNestingDepth)

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, yaml, string(raw), "existing file is not overwritten")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QADESK_LOG_LEVEL", "debug")
	t.Setenv("QADESK_HTTP_ADDR", ":9999")

	v, err := Load(dir)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"unknown backend", KeyBackend, "postgres"},
		{"empty backend", KeyBackend, ""},
		{"zero timeout", KeyOperationTimeout, "0s"},
		{"bad log format", KeyLogFormat, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Decode(v)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [unclosed"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
