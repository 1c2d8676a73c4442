package editor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultProjectDirectoryHonorsEnvOverride(t *testing.T) {
	t.Setenv("REN_PROJECT_HOME", "/custom/projects")
	require.Equal(t, "/custom/projects", DefaultProjectDirectory())
}

func TestDefaultProjectDirectoryFallsBackWhenUnset(t *testing.T) {
	t.Setenv("REN_PROJECT_HOME", "")
	require.NotEmpty(t, DefaultProjectDirectory())
}

func TestAdapterIndexParsesValidValue(t *testing.T) {
	t.Setenv("REN_ADAPTER", "3")
	require.Equal(t, uint32(3), AdapterIndex())
}

func TestAdapterIndexFallsBackOnEmpty(t *testing.T) {
	t.Setenv("REN_ADAPTER", "")
	require.Equal(t, uint32(DefaultAdapter), AdapterIndex())
}

func TestAdapterIndexFallsBackOnUnparsable(t *testing.T) {
	t.Setenv("REN_ADAPTER", "not-a-number")
	require.Equal(t, uint32(DefaultAdapter), AdapterIndex())
}

func TestAdapterIndexFallsBackOnNegative(t *testing.T) {
	t.Setenv("REN_ADAPTER", "-1")
	require.Equal(t, uint32(DefaultAdapter), AdapterIndex())
}

func TestSettingsDirectoryIsUnderRenEditor(t *testing.T) {
	dir := SettingsDirectory()
	require.Contains(t, dir, "ren")
	require.Contains(t, dir, "editor")
}
