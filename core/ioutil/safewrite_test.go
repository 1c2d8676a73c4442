package ioutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeWriteCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.meta")

	err := SafeWrite(path, []byte(`{"guid":"AB"}`), 0o644)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"guid":"AB"}`, string(got))
}

func TestSafeWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.meta")

	require.NoError(t, SafeWrite(path, []byte("a"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "out.meta", entries[0].Name())
}

func TestSafeWriteOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.meta")

	require.NoError(t, SafeWrite(path, []byte("first"), 0o644))
	require.NoError(t, SafeWrite(path, []byte("second"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

func TestNewIOErrorClassifiesNotFound(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing"))
	ioErr := NewIOError("missing", err)
	require.Equal(t, KindNotFound, ioErr.Kind)
}

func TestNewIOErrorClassifiesExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taken")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := os.Mkdir(path, 0o755)
	require.Error(t, err)

	ioErr := NewIOError(path, err)
	require.Equal(t, KindExists, ioErr.Kind)
}

func TestNewIOErrorFallsBackToUnknown(t *testing.T) {
	ioErr := NewIOError("x", errNotClassified{})
	require.Equal(t, KindUnknown, ioErr.Kind)
}

type errNotClassified struct{}

func (errNotClassified) Error() string { return "something else went wrong" }

func TestCheckAlignedAcceptsExactMultiple(t *testing.T) {
	require.NoError(t, CheckAligned("buf", 12, 4))
}

func TestCheckAlignedRejectsFragmentedLength(t *testing.T) {
	err := CheckAligned("buf", 10, 4)
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, KindFragmented, ioErr.Kind)
}
