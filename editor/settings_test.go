package editor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	s, err := NewSettings(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNewSettingsCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "editor")
	s, err := NewSettings(dir)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestRecentlyOpenedEmptyInitially(t *testing.T) {
	s := newTestSettings(t)
	entries, err := s.RecentlyOpened()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAddRecentlyOpenedAppends(t *testing.T) {
	s := newTestSettings(t)
	require.NoError(t, s.AddRecentlyOpened("/projects/a"))
	require.NoError(t, s.AddRecentlyOpened("/projects/b"))

	entries, err := s.RecentlyOpened()
	require.NoError(t, err)
	require.Equal(t, []string{"/projects/a", "/projects/b"}, entries)
}

func TestAddRecentlyOpenedMovesExistingEntryToEnd(t *testing.T) {
	s := newTestSettings(t)
	require.NoError(t, s.AddRecentlyOpened("/projects/a"))
	require.NoError(t, s.AddRecentlyOpened("/projects/b"))
	require.NoError(t, s.AddRecentlyOpened("/projects/a"))

	entries, err := s.RecentlyOpened()
	require.NoError(t, err)
	require.Equal(t, []string{"/projects/b", "/projects/a"}, entries)
}

func TestDialogPathsEmptyInitially(t *testing.T) {
	s := newTestSettings(t)
	paths, err := s.DialogPaths()
	require.NoError(t, err)
	require.Empty(t, paths)
}

func TestSetDialogPathRoundTrips(t *testing.T) {
	s := newTestSettings(t)
	require.NoError(t, s.SetDialogPath("DEADBEEF01234567", "/home/user/import.gltf"))

	paths, err := s.DialogPaths()
	require.NoError(t, err)
	require.Equal(t, "/home/user/import.gltf", paths["DEADBEEF01234567"])
}

func TestSetDialogPathOverwritesPriorEntry(t *testing.T) {
	s := newTestSettings(t)
	require.NoError(t, s.SetDialogPath("DEADBEEF01234567", "/old/path"))
	require.NoError(t, s.SetDialogPath("DEADBEEF01234567", "/new/path"))

	paths, err := s.DialogPaths()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "/new/path", paths["DEADBEEF01234567"])
}
