package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForFires(t *testing.T, fires *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if fires.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher did not fire %d times, got %d", want, fires.Load())
}

func TestFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var fires atomic.Int64
	w, err := New(path, func() { fires.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{"x":1}`), 0o644))
	waitForFires(t, &fires, 1)
}

func TestFiresOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	var fires atomic.Int64
	w, err := New(path, func() { fires.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	waitForFires(t, &fires, 1)
}

func TestIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	var fires atomic.Int64
	w, err := New(path, func() { fires.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, fires.Load())
}

func TestStartFailsOnMissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "snapshot.json"), func() {})
	require.NoError(t, err)
	assert.Error(t, w.Start())
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "snapshot.json"), func() {})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
