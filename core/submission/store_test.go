package submission

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/session"
	"github.com/kozihq/kozi/core/student"
	testutil "github.com/kozihq/kozi/tests"
)

func setup(t *testing.T) (*Store, *core.Config) {
	t.Helper()
	conf := testutil.NewConfig(t)
	return NewStore(conf, eventlog.NewLog(conf.DataDir), testutil.NewLogger()), conf
}

func confirmedIdentity(conf *core.Config) session.Identity {
	now := time.Now()
	return session.Identity{
		Name:      "Jane Smith",
		Email:     "jane@siue.edu",
		Handle:    student.Handle("Jane Smith", "jane@siue.edu", conf.AppSalt),
		Confirmed: true,
		CreatedAt: now,
		LastSeen:  now,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readLines(%s) failed: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already safe", in: "essay_v2.pdf", want: "essay_v2.pdf"},
		{name: "spaces and symbols", in: "my essay (final)!.pdf", want: "my_essay_final_.pdf"},
		{name: "leading junk trimmed", in: "???essay.txt", want: "essay.txt"},
		{name: "path separators", in: "../../etc/passwd", want: ".._.._etc_passwd"},
		{name: "empty falls back", in: "", want: "upload.bin"},
		{name: "junk only falls back", in: "///", want: "upload.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStore_SaveText_requiresConfirmedIdentity(t *testing.T) {
	store, _ := setup(t)

	_, err := store.SaveText(session.Identity{Name: "Jane"}, "m1_reflection", "hello", "")
	if err != ErrNotAuthenticated {
		t.Fatalf("SaveText() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestStore_SaveText(t *testing.T) {
	store, conf := setup(t)
	ident := confirmedIdentity(conf)

	path, err := store.SaveText(ident, "m1_reflection", "hello", "")
	if err != nil {
		t.Fatalf("SaveText() failed: %v", err)
	}

	wantPath := filepath.Join(
		conf.DataDir, "students", "jane-smith_"+ident.Handle, "submissions", "m1_reflection", "response.txt",
	)
	if path != wantPath {
		t.Errorf("SaveText() path = %q, want %q", path, wantPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading submission: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("submission content = %q, want %q", data, "hello")
	}

	// one text_submitted event in the global log and one in the student log
	for _, logPath := range []string{
		filepath.Join(conf.DataDir, "logs", "events.jsonl"),
		filepath.Join(conf.DataDir, "students", "jane-smith_"+ident.Handle, "events.jsonl"),
	} {
		lines := readLines(t, logPath)
		if len(lines) != 1 {
			t.Fatalf("%s: %d events, want 1", logPath, len(lines))
		}
		var rec eventlog.Record
		if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
			t.Fatalf("%s: bad record: %v", logPath, err)
		}
		if rec.Event != "text_submitted" || rec.StudentHash != ident.Handle {
			t.Errorf("%s: record = %+v", logPath, rec)
		}
		if rec.Payload["assignment_key"] != "m1_reflection" || rec.Payload["filename"] != "response.txt" {
			t.Errorf("%s: payload = %+v", logPath, rec.Payload)
		}
	}
}

func TestStore_SaveText_overwrites(t *testing.T) {
	store, conf := setup(t)
	ident := confirmedIdentity(conf)

	path1, err := store.SaveText(ident, "m1_reflection", "first draft", "")
	if err != nil {
		t.Fatalf("SaveText() failed: %v", err)
	}
	path2, err := store.SaveText(ident, "m1_reflection", "final answer", "")
	if err != nil {
		t.Fatalf("SaveText() failed: %v", err)
	}
	if path1 != path2 {
		t.Fatalf("SaveText() created a second file: %q vs %q", path1, path2)
	}

	data, _ := os.ReadFile(path2)
	if string(data) != "final answer" {
		t.Errorf("content = %q, want last write to win", data)
	}

	// a different filename is a new file, not an overwrite
	path3, err := store.SaveText(ident, "m1_reflection", "appendix", "notes.txt")
	if err != nil {
		t.Fatalf("SaveText() failed: %v", err)
	}
	if path3 == path1 {
		t.Error("SaveText() reused the path for a different filename")
	}
}

func TestStore_SaveFile(t *testing.T) {
	store, conf := setup(t)
	ident := confirmedIdentity(conf)

	path, err := store.SaveFile(ident, "m1 quiz/1", []byte{0xDE, 0xAD}, "My Quiz (v2).pdf")
	if err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}

	// both the assignment key and the filename are sanitized
	if base := filepath.Base(path); base != "My_Quiz_v2_.pdf" {
		t.Errorf("SaveFile() filename = %q", base)
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != "m1_quiz_1" {
		t.Errorf("SaveFile() assignment dir = %q", dir)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("SaveFile() did not write the file: %v", err)
	}
}

func TestStore_SaveFile_requiresConfirmedIdentity(t *testing.T) {
	store, _ := setup(t)

	if _, err := store.SaveFile(session.Identity{}, "m1_quiz1", []byte("x"), "a.pdf"); err != ErrNotAuthenticated {
		t.Fatalf("SaveFile() error = %v, want ErrNotAuthenticated", err)
	}
}

func TestStore_save_logFailureDoesNotFailSave(t *testing.T) {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger()
	// point the event log at an unwritable location
	store := NewStore(conf, eventlog.NewLog(filepath.Join(conf.RosterPath, "not-a-dir")), logger)
	testutil.WriteRoster(t, conf.RosterPath, "jane@siue.edu") // RosterPath is now a file

	ident := confirmedIdentity(conf)
	path, err := store.SaveText(ident, "m1_reflection", "hello", "")
	if err != nil {
		t.Fatalf("SaveText() must succeed even when logging fails: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("submission missing: %v", err)
	}
	if len(logger.Messages) == 0 {
		t.Error("the failed append was not reported")
	}
}
