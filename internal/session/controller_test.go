// File: internal/session/controller_test.go
package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackvectorops/ytghost/internal/config"
	"github.com/blackvectorops/ytghost/internal/extract"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return New(cfg, zaptest.NewLogger(t))
}

func TestNewEngineStartsUninitialized(t *testing.T) {
	e := testEngine(t)

	assert.Equal(t, StateUninitialized, e.State())
	assert.NotEmpty(t, e.ID())
}

func TestEngineIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, testEngine(t).ID(), testEngine(t).ID())
}

func TestCloseBeforeStartIsSafeAndIdempotent(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Close())
	assert.Equal(t, StateClosed, e.State())

	// Second close is a no-op.
	require.NoError(t, e.Close())
	assert.Equal(t, StateClosed, e.State())
}

func TestStartAfterCloseIsRejected(t *testing.T) {
	e := testEngine(t)
	require.NoError(t, e.Close())

	err := e.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestNavigateRequiresActiveSession(t *testing.T) {
	e := testEngine(t)

	_, err := e.Navigate(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestNavigateRejectsInvalidURLBeforeStateCheck(t *testing.T) {
	e := testEngine(t)

	_, err := e.Navigate(context.Background(), "https://example.com/nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrInvalidResource)
}

func TestLifecycleStateStrings(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "rotating", StateRotating.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", LifecycleState(99).String())
}

func TestDiscoverBinary(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "chromium")
	require.NoError(t, os.WriteFile(real, []byte("#!/bin/sh\n"), 0o755))

	assert.Equal(t, real, discoverBinary([]string{
		filepath.Join(dir, "missing"),
		real,
	}))
	assert.Empty(t, discoverBinary([]string{filepath.Join(dir, "missing")}))
	assert.Empty(t, discoverBinary(nil))
}
