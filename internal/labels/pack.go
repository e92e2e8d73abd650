package labels

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// LoadPackDir recursively imports every *.jsonl file under dir as a
// read-only Pack file, independent of the flat --labels-rw/--labels-ro
// loaders. Each file's id is derived from its path relative to dir,
// prefixed "pack:", so a bulk import can never collide with a
// user-named PersistentRw/PersistentRo/BrowserRw file. Directory entries
// are sorted at every level so load order is stable across platforms.
func (s *Store) LoadPackDir(dir string) error {
	seen := s.allIDs()
	return s.walkPackDir(dir, dir, seen)
}

func (s *Store) walkPackDir(base, current string, seen map[string]bool) error {
	entries, err := os.ReadDir(current)
	if err != nil {
		return &coreerr.IOError{Path: current, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(current, entry.Name())
		if entry.IsDir() {
			if err := s.walkPackDir(base, path, seen); err != nil {
				return err
			}
			continue
		}
		if filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		if err := s.loadSinglePackFile(base, path, seen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadSinglePackFile(base, path string, seen map[string]bool) error {
	relative, err := filepath.Rel(base, path)
	if err != nil {
		relative = path
	}
	relative = filepath.ToSlash(relative)
	fileName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	content, err := os.ReadFile(path)
	if err != nil {
		return &coreerr.IOError{Path: path, Err: err}
	}
	labelsByKey, err := ParseJSONLRecords(string(content))
	if err != nil {
		return err
	}

	idCore := NormalizeLabelFileID(relative)
	fileID := "pack"
	if idCore != "" {
		fileID = "pack:" + idCore
	}

	if seen[fileID] {
		return &coreerr.LabelParseError{Line: 0, Msg: "duplicate pack file ID `" + fileID + "` from " + path}
	}
	seen[fileID] = true

	s.pack = append(s.pack, &LabelFile{
		ID:       fileID,
		Name:     fileName,
		Kind:     Pack,
		Editable: false,
		Labels:   labelsByKey,
	})
	return nil
}
