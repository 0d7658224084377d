package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultCallbackPort, cfg.Callback.Port)
	assert.Equal(t, DefaultCallbackPath, cfg.Callback.Path)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.RedirectWait.Std())
	assert.Equal(t, 30*time.Second, cfg.Timeouts.TokenExchange.Std())
	assert.Equal(t, filepath.Join(dir, "collection.yaml"), cfg.Paths.Collection)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "callback:\n  port: 9999\ntimeouts:\n  redirectWait: 45s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Callback.Port)
	assert.Equal(t, DefaultCallbackPath, cfg.Callback.Path)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.RedirectWait.Std())
	assert.Equal(t, 30*time.Second, cfg.Timeouts.TokenExchange.Std())
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("callback: ["), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	valid := Default(dir)
	assert.NoError(t, valid.Validate())

	badPort := Default(dir)
	badPort.Callback.Port = 70000
	assert.Error(t, badPort.Validate())

	badPath := Default(dir)
	badPath.Callback.Path = "callback"
	assert.Error(t, badPath.Validate())

	badTimeout := Default(dir)
	badTimeout.Timeouts.RedirectWait = Duration(-time.Second)
	assert.Error(t, badTimeout.Validate())
}

func TestRedirectURI(t *testing.T) {
	cfg := Default(t.TempDir())
	assert.Equal(t, "http://127.0.0.1:8714/callback", cfg.RedirectURI())
}
