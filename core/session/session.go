package session

import "time"

// Identity is a student's self-declared identity for the lifetime of one
// browser session. Handle is a short deterministic digest used to key
// per-student storage without making raw PII the primary key.
type Identity struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StudentID string    `json:"student_id"`
	Handle    string    `json:"handle"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Context is one browser session's transient state. It is passed explicitly
// into every component call; nothing in the app keeps hidden per-session
// globals.
type Context struct {
	ID string `json:"id"`

	// course access (set by the access gate on successful login)
	Authorized   bool      `json:"authorized"`
	Email        string    `json:"email"`
	AuthorizedAt time.Time `json:"authorized_at"`

	Identity Identity `json:"identity"`

	// Values holds page scratch state (in-progress form text etc).
	Values map[string]string `json:"values,omitempty"`
}

// Logout clears authorization-related fields only; identity and page
// scratch state survive until an explicit identity reset.
func (c *Context) Logout() {
	c.Authorized = false
	c.Email = ""
	c.AuthorizedAt = time.Time{}
}

func (c *Context) IsAuthenticated() bool {
	return c.Identity.Confirmed && c.Identity.Name != "" && c.Identity.Handle != ""
}
