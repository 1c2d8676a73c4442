// Package editor wires the core packages (job scheduler, asset registry,
// file watcher) together into the editor's project lifecycle: opening and
// closing a project, pumping background jobs and file-watch events each
// frame, persisting recently-opened/dialog-path settings, and driving a
// hot-reloadable renderer plugin.
package editor

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
)

// DefaultAdapter is used when REN_ADAPTER is unset or unparsable.
const DefaultAdapter = 0

// SettingsDirectory returns the directory editor settings files
// (recently-opened.txt, dialogs.txt) live under, resolved via XDG config
// home the same way bennypowers.dev/cem resolves its own cache directory.
func SettingsDirectory() string {
	return filepath.Join(xdg.ConfigHome, "ren", "editor")
}

// DefaultProjectDirectory returns the directory new projects are created
// under by default. REN_PROJECT_HOME overrides it; otherwise it resolves
// to an XDG data directory.
func DefaultProjectDirectory() string {
	if home := os.Getenv("REN_PROJECT_HOME"); home != "" {
		return home
	}
	return filepath.Join(xdg.DataHome, "ren", "projects")
}

// AdapterIndex reads REN_ADAPTER and parses it as an unsigned decimal
// graphics adapter index. An unset or unparsable value falls back to
// DefaultAdapter rather than erroring, matching the source's strtol-with-
// fallback behavior.
func AdapterIndex() uint32 {
	raw := os.Getenv("REN_ADAPTER")
	if raw == "" {
		return DefaultAdapter
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return DefaultAdapter
	}
	return uint32(v)
}
