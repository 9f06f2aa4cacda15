package tethys

import "fmt"

// IndexErrorKind categorizes per-file indexing errors. Input kinds are
// problems with the source files; internal kinds are problems on our side.
type IndexErrorKind string

const (
	// ErrKindParseFailed means the file has syntax errors that prevent
	// extraction.
	ErrKindParseFailed IndexErrorKind = "parse_failed"
	// ErrKindUnsupportedLanguage means the file's extension maps to no
	// known language.
	ErrKindUnsupportedLanguage IndexErrorKind = "unsupported_language"
	// ErrKindEncoding means the file content is not valid UTF-8.
	ErrKindEncoding IndexErrorKind = "encoding_error"
	// ErrKindIO means the file could not be read from disk.
	ErrKindIO IndexErrorKind = "io_error"
	// ErrKindDatabase means the file's own transaction failed.
	ErrKindDatabase IndexErrorKind = "database_error"
)

// IsInputError reports whether the kind is a problem with the source file
// (something the user can fix).
func (k IndexErrorKind) IsInputError() bool {
	switch k {
	case ErrKindParseFailed, ErrKindUnsupportedLanguage, ErrKindEncoding:
		return true
	}
	return false
}

// IsInternalError reports whether the kind is an infrastructure problem.
func (k IndexErrorKind) IsInternalError() bool {
	return k == ErrKindIO || k == ErrKindDatabase
}

// IndexError is an error encountered while indexing a specific file. These
// are collected into IndexingStats.Errors; they never halt the run.
type IndexError struct {
	Path    string
	Kind    IndexErrorKind
	Message string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Kind)
}
