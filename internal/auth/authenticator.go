package auth

import (
	"crypto/subtle"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
)

// Authenticator validates the single admin account and issues access
// tokens. The gateway has no user database; the admin credentials come
// from configuration with the password stored as an Argon2id PHC hash.
type Authenticator struct {
	cfg config.SecurityConfig
}

// NewAuthenticator creates an authenticator over the security config.
func NewAuthenticator(cfg config.SecurityConfig) *Authenticator {
	return &Authenticator{cfg: cfg}
}

// Login verifies credentials and returns a signed access token. Username
// and password failures are indistinguishable to the caller.
func (a *Authenticator) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Admin.Username)) == 1

	passOK, err := VerifyPassword(password, a.cfg.Admin.PasswordHash)
	if err != nil {
		// A malformed stored hash also reads as bad credentials; the
		// detail stays out of the response.
		return "", ErrInvalidCredentials
	}

	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}

	return GenerateAccessToken(username, a.cfg.JWT.Secret, a.cfg.JWT.AccessTokenTTL)
}

// Verify parses and validates an access token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return ParseToken(token, a.cfg.JWT.Secret)
}
