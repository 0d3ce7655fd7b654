package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/kozihq/kozi/core"
)

// NewConfig builds a ready-to-use test config rooted in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	dataDir := t.TempDir()

	conf := &core.Config{
		Debug:            true,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Kozi",
		Build:            "test",
		SecretKey:        "test-secret",
		AppSalt:          "test-salt",
		DataDir:          dataDir,
		RosterPath:       filepath.Join(dataDir, "roster.csv"),
		RosterTTL:        time.Minute,
		AllowedDomain:    "@siue.edu",
		SemesterEnd:      time.Now().Add(24 * time.Hour),
		RequireEmail:     true,
		RequireStudentID: false,
		SessionTTL:       time.Hour,
		InstructorPIN:    "4321",
		DefaultFromEmail: "noreply@localhost",
	}
	conf.Server.Host = ":0"
	conf.Server.ShutdownTimeout = time.Second
	conf.Server.JWTExpirationDelta = time.Hour
	return conf
}

// WriteRoster writes a roster CSV with the given rows under the `email` header.
func WriteRoster(t *testing.T, path string, emails ...string) {
	t.Helper()
	content := "email\n" + strings.Join(emails, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteRoster() failed: %v", err)
	}
}

// NewValidator returns a validator + translator pair with the app's custom
// validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate, translator
}

// Logger is a no-op core.Logger that records messages for assertions.
type Logger struct {
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) Enable(bool) {}

func (l *Logger) log(msg string) { l.Messages = append(l.Messages, msg) }

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log(msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log(msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log(msg) }
