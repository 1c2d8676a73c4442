package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oxy-go/ren-core/core/ioutil"
)

const (
	recentlyOpenedFilename = "recently-opened.txt"
	dialogsFilename        = "dialogs.txt"
)

// Settings persists the editor's small on-disk preference files: the
// recently-opened project list and the per-dialog last-used-path map.
type Settings struct {
	dir string
}

// NewSettings returns a Settings rooted at dir, creating dir if it does
// not already exist.
func NewSettings(dir string) (*Settings, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("editor: create settings directory %s: %w", dir, err)
	}
	return &Settings{dir: dir}, nil
}

// RecentlyOpened returns the recently-opened project paths, one per line,
// oldest first (most-recent-last, matching the on-disk format).
func (s *Settings) RecentlyOpened() ([]string, error) {
	return readLines(filepath.Join(s.dir, recentlyOpenedFilename))
}

// AddRecentlyOpened appends path to the recently-opened list, moving it to
// the end if already present so the list never records the same project
// twice and always orders most-recent last.
func (s *Settings) AddRecentlyOpened(path string) error {
	entries, err := s.RecentlyOpened()
	if err != nil {
		return err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e != path {
			filtered = append(filtered, e)
		}
	}
	filtered = append(filtered, path)
	return writeLines(filepath.Join(s.dir, recentlyOpenedFilename), filtered)
}

// DialogPaths returns the last-used path recorded for each dialog
// callsite, keyed by its GUID hex string.
func (s *Settings) DialogPaths() (map[string]string, error) {
	lines, err := readLines(filepath.Join(s.dir, dialogsFilename))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		guidHex, path, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[guidHex] = path
	}
	return out, nil
}

// SetDialogPath records path as the last-used path for the dialog
// identified by guidHex, overwriting any prior entry for that GUID.
func (s *Settings) SetDialogPath(guidHex, path string) error {
	dialogs, err := s.DialogPaths()
	if err != nil {
		return err
	}
	dialogs[guidHex] = path

	lines := make([]string, 0, len(dialogs))
	for g, p := range dialogs {
		lines = append(lines, g+":"+p)
	}
	return writeLines(filepath.Join(s.dir, dialogsFilename), lines)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("editor: read %s: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return ioutil.SafeWrite(path, []byte(b.String()), 0o644)
}
