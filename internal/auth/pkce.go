package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// PKCE holds a code verifier and its S256 challenge for an OAuth
// authorization-code flow.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a fresh verifier and its SHA-256 challenge.
func NewPKCE() (*PKCE, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)

	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	return &PKCE{Verifier: verifier, Challenge: challenge}, nil
}

// ParseRedirect extracts the authorization code from a pasted redirect URL.
// An error parameter in the query wins over a code.
func ParseRedirect(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}

	params := u.Query()
	if errName := params.Get("error"); errName != "" {
		desc := params.Get("error_description")
		if desc == "" {
			desc = errName
		}
		return "", fmt.Errorf("authorization failed: %s", desc)
	}

	code := params.Get("code")
	if code == "" {
		return "", fmt.Errorf("no authorization code found in the URL")
	}
	return code, nil
}
