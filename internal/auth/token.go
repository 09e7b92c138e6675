// Package auth implements the OAuth flows and token lifecycle for each
// platform. Tokens live in the credential store; every authenticator exposes
// AccessToken, which returns a usable bearer token or a typed error telling
// the caller to run configure again.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// ExpiryBuffer is subtracted from a token's lifetime so a token about to
// expire mid-request counts as expired.
const ExpiryBuffer = 5 * time.Minute

// ErrNotAuthenticated means no stored token exists for the platform. The
// fix is running the platform's configure command, never a network call.
var ErrNotAuthenticated = errors.New("not authenticated")

// RefreshError means a refresh attempt was rejected by the platform. The
// stored token is left untouched so the user can inspect it.
type RefreshError struct {
	Platform string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Platform, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Token is a stored OAuth token. ExpiresAt is a unix timestamp; zero means
// the token carries no expiry and is treated as valid.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// Valid reports whether the token can still be used, applying ExpiryBuffer
// before the recorded expiry.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt == 0 {
		return true
	}
	return time.Now().Add(ExpiryBuffer).Before(time.Unix(t.ExpiresAt, 0))
}

// tokenResponse is the wire shape of an OAuth token endpoint response.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// token converts a wire response to a stored Token, anchoring expires_in to
// the current clock.
func (r *tokenResponse) token() *Token {
	t := &Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Scope:        r.Scope,
	}
	if r.ExpiresIn > 0 {
		t.ExpiresAt = time.Now().Unix() + r.ExpiresIn
	}
	return t
}

// err surfaces an in-body OAuth error, which some token endpoints return
// with a 200 status.
func (r *tokenResponse) err() error {
	if r.Error == "" {
		return nil
	}
	if r.ErrorDescription != "" {
		return fmt.Errorf("%s: %s", r.Error, r.ErrorDescription)
	}
	return errors.New(r.Error)
}
