package submission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/session"
	"github.com/kozihq/kozi/core/student"
)

// ErrNotAuthenticated is returned when a submission API is invoked before
// identity confirmation. That is a contract violation in the calling page,
// not a user-facing retry.
var ErrNotAuthenticated = errors.New("identity not confirmed")

// DefaultTextFilename names text submissions when the caller does not.
const DefaultTextFilename = "response.txt"

var unsafeNameRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces a filename to [A-Za-z0-9._-], collapsing any
// other character run to a single underscore.
func SanitizeFilename(name string) string {
	name = strings.Trim(unsafeNameRegex.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return "upload.bin"
	}
	return name
}

func sanitizeKey(key string) string {
	key = strings.Trim(unsafeNameRegex.ReplaceAllString(key, "_"), "_")
	if key == "" {
		return "assignment"
	}
	return key
}

// WriteError signals a local I/O failure while persisting a submission.
// Surfaced to the student as "try again", never silently swallowed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing submission %s: %v", e.Path, e.Err)
}

func (e *WriteError) Cause() error { return e.Err }

func (e *WriteError) Unwrap() error { return e.Err }

// Store persists submissions under per-student directories keyed by the
// identity handle:
//
//	<data>/students/<slug(name)>_<handle>/submissions/<assignment_key>/<filename>
//
// Writing the same (assignment_key, filename) pair twice replaces the
// previous content with no versioning; last write wins, so students can
// revise an in-progress answer.
type Store struct {
	conf   *core.Config
	events *eventlog.Log
	logger core.Logger
}

func NewStore(conf *core.Config, events *eventlog.Log, logger core.Logger) *Store {
	return &Store{conf: conf, events: events, logger: logger}
}

// SaveText persists a text response for an assignment.
func (s *Store) SaveText(ident session.Identity, assignmentKey, text, filename string) (string, error) {
	if filename == "" {
		filename = DefaultTextFilename
	}
	return s.save(ident, assignmentKey, []byte(text), filename, "text_submitted")
}

// SaveFile persists an uploaded file for an assignment.
func (s *Store) SaveFile(ident session.Identity, assignmentKey string, data []byte, filename string) (string, error) {
	return s.save(ident, assignmentKey, data, filename, "file_submitted")
}

func (s *Store) save(ident session.Identity, assignmentKey string, data []byte, filename, event string) (string, error) {
	if !ident.Confirmed {
		return "", ErrNotAuthenticated
	}

	studentDir := student.StorageDir(s.conf.DataDir, ident)
	dir := filepath.Join(studentDir, "submissions", sanitizeKey(assignmentKey))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}

	name := SanitizeFilename(filename)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &WriteError{Path: path, Err: err}
	}

	// events are emitted only after a successful write; a failed append
	// never rolls the write back, it is reported and the save still succeeds
	rec := eventlog.NewRecord(event, ident, map[string]interface{}{
		"assignment_key": sanitizeKey(assignmentKey),
		"filename":       name,
	})
	if err := s.events.Append(rec, studentDir); err != nil {
		s.logger.Warn(fmt.Sprintf("logging submission: %v", err), err)
	}
	return path, nil
}
