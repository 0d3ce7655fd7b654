package access

import (
	"strings"
	"time"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/roster"
	"github.com/kozihq/kozi/core/session"
)

// Reason identifies why course access was denied.
type Reason string

const (
	ExpiredSemester Reason = "expired_semester"
	WrongDomain     Reason = "wrong_domain"
	NotEnrolled     Reason = "not_enrolled"
)

var denialTexts = map[Reason]string{
	ExpiredSemester: "the semester has ended; this course is no longer available",
	WrongDomain:     "please use your school email address",
	NotEnrolled:     "this email is not on the course roster",
}

// Decision is the outcome of an authorization check. It is derived, never
// stored: Email is the normalized candidate email when authorized, Reason
// is set when denied.
type Decision struct {
	Authorized bool
	Email      string
	Reason     Reason
}

// DeniedError carries a denial Reason across the API boundary.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	if text, ok := denialTexts[e.Reason]; ok {
		return text
	}
	return "access denied"
}

// Authorize decides course access. Checks run in order and short-circuit
// on the first failure:
//  1. semester expiry; absolute, applies to everyone, checked before the
//     roster is even consulted;
//  2. email normalization;
//  3. allowed-domain suffix;
//  4. roster membership.
//
// It is a pure function: marking the session authorized happens at the
// call site (Gate.Login).
func Authorize(now, semesterEnd time.Time, candidateEmail string, r roster.Roster, allowedDomain string) Decision {
	if now.After(semesterEnd) {
		return Decision{Reason: ExpiredSemester}
	}
	email := core.CleanString(candidateEmail, true /* lower */)
	if !strings.HasSuffix(email, allowedDomain) {
		return Decision{Reason: WrongDomain}
	}
	if !r.Contains(email) {
		return Decision{Reason: NotEnrolled}
	}
	return Decision{Authorized: true, Email: email}
}

// Gate enforces time-bounded, roster-backed course access for sessions.
type Gate struct {
	conf    *core.Config
	rosters *roster.Store
	nowFunc func() time.Time // mockable
}

func NewGate(conf *core.Config, rosters *roster.Store) *Gate {
	return &Gate{conf: conf, rosters: rosters, nowFunc: time.Now}
}

// Login authorizes the candidate email and, on success, marks the session
// authorized with the normalized email. The authorization persists for the
// remainder of the session until explicit logout; semester expiry is still
// re-checked on every request (see Recheck).
func (g *Gate) Login(sess *session.Context, candidateEmail string) (Decision, error) {
	r, err := g.rosters.Roster()
	if err != nil {
		return Decision{}, err
	}
	now := g.nowFunc()
	d := Authorize(now, g.conf.SemesterEnd, candidateEmail, r, g.conf.AllowedDomain)
	if d.Authorized {
		sess.Authorized = true
		sess.Email = d.Email
		sess.AuthorizedAt = now
	}
	return d, nil
}

// Recheck re-runs the expiry check for an already-authorized session and
// revokes its authorization past the cutoff. Expiry is absolute: a session
// authorized yesterday is still locked out today.
func (g *Gate) Recheck(sess *session.Context) Decision {
	if !sess.Authorized {
		return Decision{}
	}
	if g.nowFunc().After(g.conf.SemesterEnd) {
		sess.Logout()
		return Decision{Reason: ExpiredSemester}
	}
	return Decision{Authorized: true, Email: sess.Email}
}

// Logout clears authorization-related session fields only; identity and
// in-progress page state are left untouched.
func (g *Gate) Logout(sess *session.Context) {
	sess.Logout()
}
