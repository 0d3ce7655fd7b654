package student

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/session"
	testutil "github.com/kozihq/kozi/tests"
)

func readEvents(t *testing.T, path string) []eventlog.Record {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readEvents(%s) failed: %v", path, err)
	}
	var recs []eventlog.Record
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec eventlog.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("readEvents(%s): bad line %q: %v", path, line, err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func setup(t *testing.T) *Registry {
	t.Helper()
	conf := testutil.NewConfig(t)
	validate, _ := testutil.NewValidator()
	return NewRegistry(conf, eventlog.NewLog(conf.DataDir), testutil.NewLogger(), validate)
}

func TestRegistry_Confirm(t *testing.T) {
	reg := setup(t)
	sess := &session.Context{ID: "s1"}

	ident, err := reg.Confirm(sess, ConfirmIdentity{Name: "Jane Smith", Email: "jane@siue.edu"})
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}

	if !ident.Confirmed {
		t.Error("Confirm() left Confirmed false")
	}
	if ident.Handle != Handle("Jane Smith", "jane@siue.edu", reg.conf.AppSalt) {
		t.Errorf("Confirm() handle = %q, unexpected", ident.Handle)
	}
	if ident.CreatedAt.IsZero() || ident.LastSeen.IsZero() {
		t.Error("Confirm() did not stamp CreatedAt/LastSeen")
	}
	if sess.Identity != ident {
		t.Error("Confirm() did not store the identity on the session")
	}

	// the per-student dir exists and holds the confirmation event
	dir := StorageDir(reg.conf.DataDir, ident)
	if !strings.HasSuffix(dir, "jane-smith_"+ident.Handle) {
		t.Errorf("StorageDir() = %q, want slug_handle suffix", dir)
	}
	recs := readEvents(t, filepath.Join(dir, "events.jsonl"))
	if len(recs) != 1 || recs[0].Event != "identity_confirmed" {
		t.Errorf("Confirm() events = %+v, want one identity_confirmed", recs)
	}
	if recs[0].StudentHash != ident.Handle {
		t.Errorf("Confirm() event hash = %q, want %q", recs[0].StudentHash, ident.Handle)
	}
}

func TestRegistry_Confirm_idempotentCreatedAt(t *testing.T) {
	reg := setup(t)
	sess := &session.Context{ID: "s1"}

	first, err := reg.Confirm(sess, ConfirmIdentity{Name: "Jane Smith", Email: "jane@siue.edu"})
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}

	nowFunc = func() time.Time { return first.CreatedAt.Add(time.Hour) }
	defer func() { nowFunc = time.Now }()

	second, err := reg.Confirm(sess, ConfirmIdentity{Name: "Jane Smith", Email: "jane@siue.edu"})
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Confirm() changed CreatedAt on re-confirmation: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.LastSeen.After(first.LastSeen) {
		t.Error("Confirm() did not refresh LastSeen")
	}
	if second.Handle != first.Handle {
		t.Error("Confirm() handle not stable across re-confirmation")
	}
}

func TestRegistry_Confirm_validationError(t *testing.T) {
	reg := setup(t)
	sess := &session.Context{ID: "s1"}

	if _, err := reg.Confirm(sess, ConfirmIdentity{Email: "jane@siue.edu"}); err == nil {
		t.Fatal("Confirm() expected a validation error for a missing name")
	}
	if sess.Identity.Confirmed {
		t.Error("Confirm() confirmed an invalid identity")
	}
}

func TestRegistry_Reset(t *testing.T) {
	reg := setup(t)
	sess := &session.Context{ID: "s1"}

	ident, err := reg.Confirm(sess, ConfirmIdentity{Name: "Jane Smith", Email: "jane@siue.edu"})
	if err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}
	prevDir := StorageDir(reg.conf.DataDir, ident)

	reg.Reset(sess)

	if sess.Identity != (session.Identity{}) {
		t.Errorf("Reset() left identity fields: %+v", sess.Identity)
	}

	// the reset event lands under the previous handle, not the unconfirmed bucket
	recs := readEvents(t, filepath.Join(prevDir, "events.jsonl"))
	last := recs[len(recs)-1]
	if last.Event != "identity_reset" {
		t.Errorf("Reset() last event = %q, want identity_reset", last.Event)
	}
	if last.StudentHash != ident.Handle {
		t.Errorf("Reset() event hash = %q, want previous %q", last.StudentHash, ident.Handle)
	}

	// prior submissions and logs are kept
	if _, err := os.Stat(prevDir); err != nil {
		t.Errorf("Reset() must not delete the student directory: %v", err)
	}
}

func TestStorageDir_unconfirmedBucket(t *testing.T) {
	dir := StorageDir("data", session.Identity{Name: "Jane"})
	if dir != filepath.Join("data", "students", "unconfirmed") {
		t.Errorf("StorageDir() = %q, want the shared unconfirmed bucket", dir)
	}
}
