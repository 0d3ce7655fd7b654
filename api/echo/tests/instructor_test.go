package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozihq/kozi/tests"
)

func Test_instructorApi_login(t *testing.T) {
	app := setup(t, "jane@siue.edu")

	tests := []httpTest{
		{
			name: "pin required", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"pin": "this field is required"}),
		},
		{
			name: "wrong pin", body: marchallObj(t, map[string]string{"pin": "0000"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "instructor access failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, app)
			rec := c.json(http.MethodPost, "/v1/instructor/login", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		c := newClient(t, app)
		rec := c.json(http.MethodPost, "/v1/instructor/login", marchallObj(t, map[string]string{"pin": "4321"}))
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if body["token"] == "" {
			t.Error("no token in response")
		}
	})

	t.Run("bcrypt hashed pin", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("9999"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hashing pin: %v", err)
		}
		app.conf.InstructorPIN = string(hash)
		defer func() { app.conf.InstructorPIN = "4321" }()

		c := newClient(t, app)
		rec := c.json(http.MethodPost, "/v1/instructor/login", marchallObj(t, map[string]string{"pin": "9999"}))
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; body %v", rec.Code, rec.Body.String())
		}
		rec = c.json(http.MethodPost, "/v1/instructor/login", marchallObj(t, map[string]string{"pin": "4321"}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("plain pin against hash: code = %v; want 400", rec.Code)
		}
	})

	t.Run("disabled when unconfigured", func(t *testing.T) {
		app.conf.InstructorPIN = ""
		defer func() { app.conf.InstructorPIN = "4321" }()

		c := newClient(t, app)
		rec := c.json(http.MethodPost, "/v1/instructor/login", marchallObj(t, map[string]string{"pin": "4321"}))
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want 404", rec.Code)
		}
	})
}

func Test_instructorApi_roster(t *testing.T) {
	app := setup(t, "jane@siue.edu", "bob@siue.edu")

	c := newClient(t, app)
	rec := c.json(http.MethodGet, "/v1/instructor/roster")
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	// log in for a token
	rec = c.json(http.MethodPost, "/v1/instructor/login", marchallObj(t, map[string]string{"pin": "4321"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %v; body %v", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	c.token = body["token"]

	rec = c.json(http.MethodGet, "/v1/instructor/roster")
	if rec.Code != http.StatusOK {
		t.Fatalf("roster code = %v; body %v", rec.Code, rec.Body.String())
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if status["size"] != float64(2) {
		t.Errorf("size = %v; want 2", status["size"])
	}
	if _, ok := status["emails"]; ok {
		t.Error("roster emails must not be exposed")
	}

	// refresh picks up roster edits without waiting out the TTL
	testutil.WriteRoster(t, app.conf.RosterPath, "jane@siue.edu", "bob@siue.edu", "zed@siue.edu")
	rec = c.json(http.MethodPost, "/v1/instructor/roster/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh code = %v; body %v", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if status["size"] != float64(3) {
		t.Errorf("size after refresh = %v; want 3", status["size"])
	}
}
