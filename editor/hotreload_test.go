package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxy-go/ren-core/engine"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	vtbl *engine.Vtbl
}

func (h fakeHandle) Lookup(symbol string) (any, error) {
	if symbol != engine.VtblSymbol {
		return nil, errors.New("unknown symbol " + symbol)
	}
	return h.vtbl, nil
}

type fakeLoader struct {
	opened []string
	vtbl   *engine.Vtbl
	err    error
}

func (l *fakeLoader) Open(path string) (PluginHandle, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.opened = append(l.opened, path)
	return fakeHandle{vtbl: l.vtbl}, nil
}

func writePluginSource(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "renderer.so")
	require.NoError(t, os.WriteFile(path, []byte("stub plugin bytes"), 0o644))
	return path
}

func TestReloadCopiesToFreshTempPathEachTime(t *testing.T) {
	loader := &fakeLoader{vtbl: &engine.Vtbl{
		CreateRenderer: func() (any, error) { return "renderer", nil },
	}}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.NoError(t, h.Reload(src, nil))
	require.NoError(t, h.Reload(src, nil))

	require.Len(t, loader.opened, 2)
	require.NotEqual(t, loader.opened[0], loader.opened[1])
}

func TestReloadCallsUnloadOnPriorPluginBeforeSwapping(t *testing.T) {
	var unloadedScene any
	loader := &fakeLoader{vtbl: &engine.Vtbl{
		CreateRenderer: func() (any, error) { return "renderer", nil },
		Unload:         func(scene any) error { unloadedScene = scene; return nil },
	}}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.NoError(t, h.Reload(src, "scene-1"))
	require.NoError(t, h.Reload(src, "scene-2"))

	require.Equal(t, "scene-1", unloadedScene)
}

func TestReloadCallsLoadWithNewScene(t *testing.T) {
	var loadedScene any
	loader := &fakeLoader{vtbl: &engine.Vtbl{
		CreateRenderer: func() (any, error) { return "renderer", nil },
		Load:           func(scene any) error { loadedScene = scene; return nil },
	}}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.NoError(t, h.Reload(src, "scene-1"))

	require.Equal(t, "scene-1", loadedScene)
}

func TestReloadFailsWithoutCreateRenderer(t *testing.T) {
	loader := &fakeLoader{vtbl: &engine.Vtbl{}}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.Error(t, h.Reload(src, nil))
}

func TestDrawInvokesCurrentVtblDraw(t *testing.T) {
	var gotDelta float32
	loader := &fakeLoader{vtbl: &engine.Vtbl{
		CreateRenderer: func() (any, error) { return "renderer", nil },
		Draw: func(renderer any, dt float32) error {
			gotDelta = dt
			return nil
		},
	}}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.NoError(t, h.Reload(src, nil))
	require.NoError(t, h.Draw(0.016))
	require.Equal(t, float32(0.016), gotDelta)
}

func TestDrawIsNoOpBeforeAnyReload(t *testing.T) {
	h, err := NewHotReloader(&fakeLoader{}, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.Draw(0.016))
}

func TestReloadPropagatesOpenError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("open failed")}
	h, err := NewHotReloader(loader, t.TempDir())
	require.NoError(t, err)

	src := writePluginSource(t, t.TempDir())
	require.Error(t, h.Reload(src, nil))
}
