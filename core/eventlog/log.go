package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozihq/kozi/core/session"
)

const (
	tsLayout = "2006-01-02T15:04:05"
	fileName = "events.jsonl"
)

var nowFunc = time.Now // mockable

// Record is one activity journal entry. Records are appended, never
// mutated or deleted.
type Record struct {
	TS           string                 `json:"ts"`
	Event        string                 `json:"event"`
	StudentName  string                 `json:"student_name"`
	StudentEmail string                 `json:"student_email"`
	StudentID    string                 `json:"student_id"`
	StudentHash  string                 `json:"student_hash"`
	Payload      map[string]interface{} `json:"payload"`
}

// NewRecord stamps a record with the local time (second precision) and the
// session identity's fields.
func NewRecord(event string, ident session.Identity, payload map[string]interface{}) Record {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Record{
		TS:           nowFunc().Format(tsLayout),
		Event:        event,
		StudentName:  ident.Name,
		StudentEmail: ident.Email,
		StudentID:    ident.StudentID,
		StudentHash:  ident.Handle,
		Payload:      payload,
	}
}

// WriteError signals a failed log append. Callers report it but must not
// roll back an operation that already succeeded.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("appending event log %s: %v", e.Path, e.Err)
}

func (e *WriteError) Cause() error { return e.Err }

func (e *WriteError) Unwrap() error { return e.Err }

// Log appends newline-delimited JSON records to a global journal and to a
// per-student one, shared by all concurrently active sessions.
type Log struct {
	dataDir string
	mu      sync.Mutex
}

func NewLog(dataDir string) *Log {
	return &Log{dataDir: dataDir}
}

// GlobalPath is the app-wide journal file.
func (l *Log) GlobalPath() string {
	return filepath.Join(l.dataDir, "logs", fileName)
}

// Append writes the record to the global log and to studentDir's log.
// Each append is a single write of one complete serialized line, so
// concurrent appends from different sessions never interleave bytes
// within a record.
func (l *Log) Append(rec Record, studentDir string) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return &WriteError{Path: l.GlobalPath(), Err: err}
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := appendLine(l.GlobalPath(), line); err != nil {
		return err
	}
	return appendLine(filepath.Join(studentDir, fileName), line)
}

func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if _, err = f.Write(line); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err = f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
