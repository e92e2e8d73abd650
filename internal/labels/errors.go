package labels

// These are the label-store-specific error cases: distinct from
// coreerr's core RPC/wire taxonomy because they describe store-level
// bookkeeping failures (a duplicate id, a mutation attempted on a
// read-only file) rather than anything about Bitcoin data itself.

type EmptyFileNameError struct{}

func (EmptyFileNameError) Error() string { return "file name must not be empty" }

type DuplicateFileIDError struct{ ID string }

func (e *DuplicateFileIDError) Error() string { return "duplicate file id: " + e.ID }

type FileNotFoundError struct{ ID string }

func (e *FileNotFoundError) Error() string { return "file not found: " + e.ID }

type NotBrowserFileError struct{ ID string }

func (e *NotBrowserFileError) Error() string { return "not a browser file: " + e.ID }

type ReadOnlyFileError struct{ ID string }

func (e *ReadOnlyFileError) Error() string { return "file is read-only: " + e.ID }

type EmptyRefError struct{}

func (EmptyRefError) Error() string { return "ref must not be empty" }

type EmptyLabelError struct{}

func (EmptyLabelError) Error() string { return "label must not be empty" }
