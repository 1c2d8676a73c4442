package filewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crate.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w, err := New(dir, 0)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{"x":1}`), 0o644))

	select {
	case ev := <-w.Events():
		require.Equal(t, "crate.gltf", ev.Filename)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for modified event")
	}
}

func TestWatcherReportsCreatedFile(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, 0)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "new.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Filename == "new.gltf" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for created event")
		}
	}
}

func TestWatcherCoalescesBurstsIntoFuzzy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hot.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w, err := New(dir, 30*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Type == Fuzzy {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for fuzzy coalesced event")
		}
	}
}

func TestWatcherIgnoresGitDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	w, err := New(dir, 0)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for ignored directory: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseStopsEmittingEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	require.False(t, ok)
}
