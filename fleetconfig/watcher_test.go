package fleetconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsYAMLChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 8)
	w, err := NewWatcher(dir, func(name string) { changed <- name })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fleet.yaml"), []byte("a: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fleet.yaml"), []byte("a: 2\n"), 0o644))

	select {
	case name := <-changed:
		require.Equal(t, "fleet.yaml", name)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}

	// both writes collapse into one notification
	select {
	case name := <-changed:
		t.Fatalf("unexpected second notification for %s", name)
	case <-time.After(2 * watchDebounce):
	}
}

func TestIsConfigFile(t *testing.T) {
	require.True(t, IsConfigFile("/x/fleet.yaml"))
	require.True(t, IsConfigFile("fleet.yml"))
	require.False(t, IsConfigFile(".fleet.yaml.123.tmp"))
	require.False(t, IsConfigFile(".hidden.yaml"))
	require.False(t, IsConfigFile("map.png"))
}
