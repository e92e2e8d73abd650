package labels

import (
	"os"
	"path/filepath"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

// Store is the central in-memory holder of BIP-329 label data. It keeps
// four kinds of files separately — PersistentRw, PersistentRo, BrowserRw,
// and bulk-imported Pack files — and merges them at query time with
// deterministic precedence: PersistentRw -> BrowserRw -> PersistentRo ->
// Pack.
type Store struct {
	persistentRw []*LabelFile
	browserRw    []*LabelFile
	persistentRo []*LabelFile
	pack         []*LabelFile
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{}
}

// LoadRWDir loads every *.jsonl file directly inside dir (no recursion)
// as an editable, auto-flushing PersistentRw file.
func (s *Store) LoadRWDir(dir string) error {
	return s.loadFlatDir(dir, PersistentRw, &s.persistentRw)
}

// LoadRODir loads every *.jsonl file directly inside dir (no recursion)
// as a read-only PersistentRo file.
func (s *Store) LoadRODir(dir string) error {
	return s.loadFlatDir(dir, PersistentRo, &s.persistentRo)
}

func (s *Store) loadFlatDir(dir string, kind LabelFileKind, target *[]*LabelFile) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return &coreerr.IOError{Path: dir, Err: os.ErrNotExist}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &coreerr.IOError{Path: dir, Err: err}
	}

	seen := s.allIDs()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := s.loadSingleFile(path, entry.Name(), kind, target, seen); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadSingleFile(path, fileName string, kind LabelFileKind, target *[]*LabelFile, seen map[string]bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &coreerr.IOError{Path: path, Err: err}
	}

	labelsByKey, err := ParseJSONLRecords(string(content))
	if err != nil {
		return err
	}

	id, name, err := ParseLocalFileName(fileName)
	if err != nil {
		return err
	}
	if seen[id] {
		return &DuplicateFileIDError{ID: id}
	}
	seen[id] = true

	*target = append(*target, &LabelFile{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Editable:   kind == PersistentRw,
		SourcePath: path,
		Labels:     labelsByKey,
	})
	return nil
}

// CreateBrowserFile creates a new, empty BrowserRw file named name and
// returns its derived id.
func (s *Store) CreateBrowserFile(name string) (string, error) {
	id, parsedName, err := ParseLocalFileName(name)
	if err != nil {
		return "", err
	}
	if s.findFileByID(id) != nil {
		return "", &DuplicateFileIDError{ID: id}
	}

	s.browserRw = append(s.browserRw, &LabelFile{
		ID:       id,
		Name:     parsedName,
		Kind:     BrowserRw,
		Editable: true,
		Labels:   make(map[LabelKey]Bip329Record),
	})
	return id, nil
}

// ImportBrowserFile creates a new BrowserRw file from existing JSONL
// content and returns its derived id.
func (s *Store) ImportBrowserFile(name, content string) (string, error) {
	id, parsedName, err := ParseLocalFileName(name)
	if err != nil {
		return "", err
	}
	if s.findFileByID(id) != nil {
		return "", &DuplicateFileIDError{ID: id}
	}

	labelsByKey, err := ParseJSONLRecords(content)
	if err != nil {
		return "", err
	}

	s.browserRw = append(s.browserRw, &LabelFile{
		ID:       id,
		Name:     parsedName,
		Kind:     BrowserRw,
		Editable: true,
		Labels:   labelsByKey,
	})
	return id, nil
}

// ReplaceBrowserFileContent overwrites a BrowserRw file's entire label set
// from new JSONL content.
func (s *Store) ReplaceBrowserFileContent(fileID, content string) error {
	file := s.findFileMut(fileID)
	if file == nil {
		return &FileNotFoundError{ID: fileID}
	}
	if file.Kind != BrowserRw {
		return &NotBrowserFileError{ID: fileID}
	}

	labelsByKey, err := ParseJSONLRecords(content)
	if err != nil {
		return err
	}
	file.Labels = labelsByKey
	return nil
}

// RemoveBrowserFile deletes a BrowserRw file.
func (s *Store) RemoveBrowserFile(fileID string) error {
	file := s.findFileByID(fileID)
	if file == nil {
		return &FileNotFoundError{ID: fileID}
	}
	if file.Kind != BrowserRw {
		return &NotBrowserFileError{ID: fileID}
	}

	for i, f := range s.browserRw {
		if f.ID == fileID {
			s.browserRw = append(s.browserRw[:i], s.browserRw[i+1:]...)
			return nil
		}
	}
	return &FileNotFoundError{ID: fileID}
}

// ExportFile serializes a file's labels to JSONL, regardless of its kind.
func (s *Store) ExportFile(fileID string) (string, error) {
	file := s.findFileByID(fileID)
	if file == nil {
		return "", &FileNotFoundError{ID: fileID}
	}
	return ExportMapToJSONL(file.Labels), nil
}

// SetLabel creates or overwrites a label in an editable file, then
// auto-flushes the file to disk if it has a SourcePath.
func (s *Store) SetLabel(fileID string, labelType Bip329Type, refID, label string) error {
	if trimmedEmpty(refID) {
		return EmptyRefError{}
	}
	if trimmedEmpty(label) {
		return EmptyLabelError{}
	}

	file := s.findFileMut(fileID)
	if file == nil {
		return &FileNotFoundError{ID: fileID}
	}
	if !file.Editable {
		return &ReadOnlyFileError{ID: fileID}
	}

	key := LabelKey{Type: labelType, RefID: refID}
	file.Labels[key] = Bip329Record{Type: labelType, Ref: refID, Label: label}

	return s.flushFile(fileID)
}

// DeleteLabel removes a label from an editable file, then auto-flushes.
func (s *Store) DeleteLabel(fileID string, labelType Bip329Type, refID string) error {
	file := s.findFileMut(fileID)
	if file == nil {
		return &FileNotFoundError{ID: fileID}
	}
	if !file.Editable {
		return &ReadOnlyFileError{ID: fileID}
	}

	delete(file.Labels, LabelKey{Type: labelType, RefID: refID})
	return s.flushFile(fileID)
}

// ListFiles returns every loaded file in precedence order.
func (s *Store) ListFiles() []*LabelFile {
	return s.allFiles()
}

// GetFile returns a file by id, or nil if none matches.
func (s *Store) GetFile(fileID string) *LabelFile {
	return s.findFileByID(fileID)
}

// LabelMatch pairs a record with the file it came from.
type LabelMatch struct {
	File   *LabelFile
	Record Bip329Record
}

// GetAllLabelsFor returns every record for (labelType, refID) across all
// loaded files, in deterministic precedence order: PersistentRw ->
// BrowserRw -> PersistentRo -> Pack.
func (s *Store) GetAllLabelsFor(labelType Bip329Type, refID string) []LabelMatch {
	key := LabelKey{Type: labelType, RefID: refID}
	var matches []LabelMatch
	for _, file := range s.allFiles() {
		if record, ok := file.Labels[key]; ok {
			matches = append(matches, LabelMatch{File: file, Record: record})
		}
	}
	return matches
}

func (s *Store) allFiles() []*LabelFile {
	all := make([]*LabelFile, 0, len(s.persistentRw)+len(s.browserRw)+len(s.persistentRo)+len(s.pack))
	all = append(all, s.persistentRw...)
	all = append(all, s.browserRw...)
	all = append(all, s.persistentRo...)
	all = append(all, s.pack...)
	return all
}

func (s *Store) allIDs() map[string]bool {
	seen := make(map[string]bool)
	for _, f := range s.allFiles() {
		seen[f.ID] = true
	}
	return seen
}

func (s *Store) findFileByID(fileID string) *LabelFile {
	for _, f := range s.allFiles() {
		if f.ID == fileID {
			return f
		}
	}
	return nil
}

func (s *Store) findFileMut(fileID string) *LabelFile {
	return s.findFileByID(fileID)
}

func (s *Store) flushFile(fileID string) error {
	file := s.findFileByID(fileID)
	if file == nil {
		return &FileNotFoundError{ID: fileID}
	}
	if file.SourcePath == "" {
		return nil
	}

	content := ExportMapToJSONL(file.Labels)
	if dir := filepath.Dir(file.SourcePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &coreerr.IOError{Path: dir, Err: err}
		}
	}
	if err := os.WriteFile(file.SourcePath, []byte(content), 0o644); err != nil {
		return &coreerr.IOError{Path: file.SourcePath, Err: err}
	}
	return nil
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
