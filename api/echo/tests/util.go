package tests

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/kozihq/kozi/api/echo"
	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/access"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/roster"
	"github.com/kozihq/kozi/core/session"
	"github.com/kozihq/kozi/core/student"
	"github.com/kozihq/kozi/core/submission"
	emailsvc "github.com/kozihq/kozi/services/email"
	"github.com/kozihq/kozi/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server *echoapi.Server
	conf   *core.Config
	logger *testutil.Logger
}

func setup(t *testing.T, emails ...string) *testApp {
	conf := testutil.NewConfig(t)
	conf.Debug = false // error responses use the production mappings
	testutil.WriteRoster(t, conf.RosterPath, emails...)

	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()

	rosters := roster.NewStore(conf.RosterPath, conf.RosterTTL)
	events := eventlog.NewLog(conf.DataDir)
	sessions := session.NewMemStore(conf.SessionTTL)
	gate := access.NewGate(conf, rosters)
	registry := student.NewRegistry(conf, events, logger, validate)
	submissions := submission.NewStore(conf, events, logger)
	mailSvc := emailsvc.NewConsoleService(conf)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			MailSvc:     mailSvc,
			Sessions:    sessions,
			Rosters:     rosters,
			Gate:        gate,
			Registry:    registry,
			Submissions: submissions,
			Events:      events,
			Validate:    validate,
			Translator:  translator,
		},
	)
	return &testApp{server: server, conf: conf, logger: logger}
}

// client plays one browser: it carries the session cookie (and optionally an
// instructor token) across requests.
type client struct {
	t      *testing.T
	app    *testApp
	cookie *http.Cookie
	token  string
}

func newClient(t *testing.T, app *testApp) *client {
	return &client{t: t, app: app}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.app.server.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "kozi_session" {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) json(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path, assignmentKey, filename string, content []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("assignment_key", assignmentKey); err != nil {
		c.t.Fatalf("upload(): %v", err)
	}
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatalf("upload(): %v", err)
	}
	if _, err = fw.Write(content); err != nil {
		c.t.Fatalf("upload(): %v", err)
	}
	if err = w.Close(); err != nil {
		c.t.Fatalf("upload(): %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

// login runs the full access+identity flow so tests past the gate can start
// from a confirmed session.
func (c *client) login(email, name string) {
	c.t.Helper()
	rec := c.json(http.MethodPost, "/v1/access/login", marchallObj(c.t, map[string]string{"email": email}))
	if rec.Code != http.StatusOK {
		c.t.Fatalf("login(): code = %v; body %v", rec.Code, rec.Body.String())
	}
	if name != "" {
		rec = c.json(http.MethodPost, "/v1/identity/confirm", marchallObj(c.t, map[string]string{"name": name, "email": email}))
		if rec.Code != http.StatusOK {
			c.t.Fatalf("login(): confirm code = %v; body %v", rec.Code, rec.Body.String())
		}
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// readEvents parses a JSONL event log into generic records.
func readEvents(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("readEvents(): %v", err)
	}
	defer f.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("readEvents(): bad line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}
