package student

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kozihq/kozi/core"
)

var (
	errMissingName      = errors.New("name is required")
	errInvalidEmail     = errors.New("a valid email address is required")
	errMissingStudentID = errors.New("student ID is required")

	slugRegex     = regexp.MustCompile(`[^a-z0-9]+`)
	slugDashRegex = regexp.MustCompile(`-{2,}`)
)

const (
	handleLen  = 12
	slugMaxLen = 64
)

// ConfirmIdentity contains the student-entered information needed to
// establish a session identity.
type ConfirmIdentity struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,looseemail"`
	StudentID string `json:"student_id"`
}

// Validate cleans the inputs and enforces, in order: name required; email
// required (and containing "@") when requireEmail; student ID required
// when requireStudentID.
func (ci *ConfirmIdentity) Validate(validate *validator.Validate, requireEmail, requireStudentID bool) error {
	ci.Name = core.CleanString(ci.Name)
	ci.Email = core.CleanString(ci.Email)
	ci.StudentID = core.CleanString(ci.StudentID)

	if ci.Name == "" {
		return core.NewValidationError(errMissingName, core.FieldError{Field: "name", Error: errMissingName.Error()})
	}
	if err := validate.Struct(ci); err != nil {
		return err
	}
	if requireEmail && (ci.Email == "" || !strings.Contains(ci.Email, "@")) {
		return core.NewValidationError(errInvalidEmail, core.FieldError{Field: "email", Error: errInvalidEmail.Error()})
	}
	if requireStudentID && ci.StudentID == "" {
		return core.NewValidationError(errMissingStudentID, core.FieldError{Field: "student_id", Error: errMissingStudentID.Error()})
	}
	return nil
}

// Handle derives the stable anonymized student handle: a truncated sha256
// of the cleaned name, email and deployment salt. Deterministic across
// visits within a deployment; collision odds are negligible for a single
// classroom. Explicitly not a security boundary.
func Handle(name, email, salt string) string {
	raw := core.CleanString(name, true /* lower */) + "|" + core.CleanString(email, true /* lower */) + "|" + salt
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:handleLen]
}

// Slugify turns a display name into a safe directory name fragment:
// lowered, non-alphanumeric runs collapsed to a single dash, bounded length.
func Slugify(s string) string {
	s = core.CleanString(s, true /* lower */)
	s = slugRegex.ReplaceAllString(s, "-")
	s = slugDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "student"
	}
	if len(s) > slugMaxLen {
		s = s[:slugMaxLen]
	}
	return s
}
