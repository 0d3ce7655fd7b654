package echoapi

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozihq/kozi/core"
)

// instructorClaims represents the authorization claims transmitted via an
// instructor JWT.
type instructorClaims struct {
	jwt.StandardClaims
	Instructor bool `json:"instructor"`
}

func instructorJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "instructorToken",
		Claims:        new(instructorClaims),
	}
}

func newInstructorClaims(conf *core.Config) *instructorClaims {
	now := time.Now()
	return &instructorClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   "instructor",
			Audience:  "Instructor",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Instructor: true,
	}
}

// generateToken generates a signed JWT token string representing the claims.
func generateToken(conf *core.Config, claims *instructorClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	return token.SignedString([]byte(conf.SecretKey))
}

// verifyPIN checks the entered instructor PIN against the configured one,
// which may be stored either plain or as a bcrypt hash (see the admin
// `hashpin` command).
func verifyPIN(configured, entered string) bool {
	configured = core.CleanString(configured)
	entered = core.CleanString(entered)
	if configured == "" || entered == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(entered)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(entered)) == 1
}
