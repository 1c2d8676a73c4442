package editor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"plugin"

	"github.com/oxy-go/ren-core/engine"
)

// PluginLoader abstracts the stdlib plugin package's open/lookup so
// HotReloader can be exercised with a fake in tests without ever building
// a real .so.
type PluginLoader interface {
	// Open loads the plugin at path and returns a handle whose Lookup
	// method resolves exported symbols.
	Open(path string) (PluginHandle, error)
}

// PluginHandle resolves a named symbol out of an already-opened plugin.
type PluginHandle interface {
	Lookup(symbol string) (any, error)
}

// HotReloader swaps a renderer plugin in on each Reload call (it does not
// watch the plugin file itself) without ever reloading the same path
// twice: Go's plugin package, like a
// dlopen'd shared library, keeps a loaded plugin resident for the life of
// the process, so every reload copies the new build to a fresh temporary
// path before opening it.
type HotReloader struct {
	loader   PluginLoader
	tempDir  string
	loadSeq  int
	current  *engine.Vtbl
	renderer any
	scene    any
}

// NewHotReloader returns a HotReloader that loads plugin copies into
// tempDir (created if missing) using loader.
func NewHotReloader(loader PluginLoader, tempDir string) (*HotReloader, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("editor: create plugin temp dir %s: %w", tempDir, err)
	}
	return &HotReloader{loader: loader, tempDir: tempDir}, nil
}

// Vtbl returns the currently loaded plugin's vtable, or nil if nothing has
// been loaded yet.
func (h *HotReloader) Vtbl() *engine.Vtbl { return h.current }

// Reload performs the full unload/copy/reopen/load cycle against the
// plugin built at sourcePath: it calls the currently loaded plugin's
// Unload with the scene that plugin was loaded with, if one is loaded, copies sourcePath to a fresh temporary
// file (since the loader can never reopen a path it has already opened),
// opens the copy, looks up the Vtbl symbol, calls CreateRenderer, and
// finally Load(scene) on the new plugin.
func (h *HotReloader) Reload(sourcePath string, scene any) error {
	if h.current != nil && h.current.Unload != nil {
		if err := h.current.Unload(h.scene); err != nil {
			return fmt.Errorf("editor: unload current plugin: %w", err)
		}
	}

	dest, err := h.copyToTemp(sourcePath)
	if err != nil {
		return err
	}

	handle, err := h.loader.Open(dest)
	if err != nil {
		return fmt.Errorf("editor: open plugin %s: %w", dest, err)
	}
	sym, err := handle.Lookup(engine.VtblSymbol)
	if err != nil {
		return fmt.Errorf("editor: lookup %s in %s: %w", engine.VtblSymbol, dest, err)
	}
	vtbl, ok := sym.(*engine.Vtbl)
	if !ok {
		return fmt.Errorf("editor: %s in %s has unexpected type %T", engine.VtblSymbol, dest, sym)
	}
	if vtbl.CreateRenderer == nil {
		return fmt.Errorf("editor: %s in %s has no CreateRenderer", engine.VtblSymbol, dest)
	}

	renderer, err := vtbl.CreateRenderer()
	if err != nil {
		return fmt.Errorf("editor: create renderer from %s: %w", dest, err)
	}
	if vtbl.Load != nil {
		if err := vtbl.Load(scene); err != nil {
			return fmt.Errorf("editor: load scene into reloaded plugin: %w", err)
		}
	}

	h.current = vtbl
	h.renderer = renderer
	h.scene = scene
	return nil
}

// Draw renders one frame through the currently loaded plugin. It is a
// no-op if no plugin has been loaded yet.
func (h *HotReloader) Draw(deltaTime float32) error {
	if h.current == nil || h.current.Draw == nil {
		return nil
	}
	return h.current.Draw(h.renderer, deltaTime)
}

// stdlibPluginLoader is the production PluginLoader, backed by the Go
// runtime's plugin package.
type stdlibPluginLoader struct{}

// NewStdlibPluginLoader returns the PluginLoader HotReloader uses outside
// of tests.
func NewStdlibPluginLoader() PluginLoader { return stdlibPluginLoader{} }

func (stdlibPluginLoader) Open(path string) (PluginHandle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return stdlibPluginHandle{p}, nil
}

type stdlibPluginHandle struct {
	p *plugin.Plugin
}

func (h stdlibPluginHandle) Lookup(symbol string) (any, error) {
	return h.p.Lookup(symbol)
}

func (h *HotReloader) copyToTemp(sourcePath string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("editor: open plugin source %s: %w", sourcePath, err)
	}
	defer src.Close()

	h.loadSeq++
	dest := filepath.Join(h.tempDir, fmt.Sprintf("renderer-%d%s", h.loadSeq, filepath.Ext(sourcePath)))
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return "", fmt.Errorf("editor: create plugin copy %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("editor: copy plugin to %s: %w", dest, err)
	}
	return dest, nil
}
