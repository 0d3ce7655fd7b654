package student

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/session"
)

var nowFunc = time.Now // mockable

// StorageDir is the per-student directory for submissions and logs.
// Unconfirmed identities have no stable handle yet and are routed to a
// shared bucket instead of a per-person directory.
func StorageDir(dataDir string, ident session.Identity) string {
	base := filepath.Join(dataDir, "students")
	if ident.Handle == "" {
		return filepath.Join(base, "unconfirmed")
	}
	return filepath.Join(base, Slugify(ident.Name)+"_"+ident.Handle)
}

// Registry owns the session's Identity value: it is the only component
// that confirms, refreshes or resets it.
type Registry struct {
	conf     *core.Config
	events   *eventlog.Log
	logger   core.Logger
	validate *validator.Validate
}

func NewRegistry(conf *core.Config, events *eventlog.Log, logger core.Logger, validate *validator.Validate) *Registry {
	return &Registry{conf: conf, events: events, logger: logger, validate: validate}
}

// Confirm validates the entered identity, derives the stable handle and
// marks the session identity confirmed. Re-confirming with the same inputs
// is idempotent: CreatedAt is set on first confirmation only, LastSeen is
// always refreshed.
func (reg *Registry) Confirm(sess *session.Context, data ConfirmIdentity) (session.Identity, error) {
	if err := data.Validate(reg.validate, reg.conf.RequireEmail, reg.conf.RequireStudentID); err != nil {
		return session.Identity{}, err
	}

	now := nowFunc()
	ident := sess.Identity
	ident.Name = data.Name
	ident.Email = data.Email
	ident.StudentID = data.StudentID
	ident.Handle = Handle(data.Name, data.Email, reg.conf.AppSalt)
	ident.Confirmed = true
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = now
	}
	ident.LastSeen = now
	sess.Identity = ident

	dir := StorageDir(reg.conf.DataDir, ident)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return session.Identity{}, errors.Wrapf(err, "creating student directory %s", dir)
	}

	rec := eventlog.NewRecord("identity_confirmed", ident, map[string]interface{}{
		"require_email":      reg.conf.RequireEmail,
		"require_student_id": reg.conf.RequireStudentID,
	})
	if err := reg.events.Append(rec, dir); err != nil {
		// the identity is confirmed either way; the failed append is reported, not propagated
		reg.logger.Warn(fmt.Sprintf("logging identity confirmation: %v", err), err)
	}
	return ident, nil
}

// Touch refreshes the identity's LastSeen. Called once per page request.
func (reg *Registry) Touch(sess *session.Context) {
	sess.Identity.LastSeen = nowFunc()
}

// Reset clears the identity back to the empty, unconfirmed state. The
// identity_reset event is emitted under the previous handle first so the
// audit trail is not orphaned. Prior submissions and logs are kept.
func (reg *Registry) Reset(sess *session.Context) {
	prev := sess.Identity
	rec := eventlog.NewRecord("identity_reset", prev, nil)
	if err := reg.events.Append(rec, StorageDir(reg.conf.DataDir, prev)); err != nil {
		reg.logger.Warn(fmt.Sprintf("logging identity reset: %v", err), err)
	}
	sess.Identity = session.Identity{}
}
