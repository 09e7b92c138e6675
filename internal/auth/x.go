package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

const (
	xAuthURL  = "https://x.com/i/oauth2/authorize"
	xTokenURL = "https://api.x.com/2/oauth2/token"
)

var xScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

// X runs the X (Twitter) OAuth 2.0 PKCE flow. The offline.access scope
// yields a refresh token, so an expired access token refreshes in place.
type X struct {
	client       *http.Client
	store        *credstore.Store
	clientID     string
	clientSecret string
}

// NewX returns an X authenticator backed by the given store.
func NewX(client *http.Client, store *credstore.Store, clientID, clientSecret string) *X {
	return &X{client: client, store: store, clientID: clientID, clientSecret: clientSecret}
}

// AuthorizeURL builds the browser URL carrying the PKCE challenge.
func (x *X) AuthorizeURL(state string, pkce *PKCE) string {
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {x.clientID},
		"redirect_uri":          {RedirectURI},
		"state":                 {state},
		"scope":                 {strings.Join(xScopes, " ")},
		"code_challenge":        {pkce.Challenge},
		"code_challenge_method": {"S256"},
	}
	return xAuthURL + "?" + params.Encode()
}

// Exchange trades the pasted redirect URL plus the PKCE verifier for a
// token and persists it. The token endpoint wants HTTP Basic client auth.
func (x *X) Exchange(ctx context.Context, redirectURL string, pkce *PKCE) (*Token, error) {
	code, err := ParseRedirect(redirectURL)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {RedirectURI},
		"client_id":     {x.clientID},
		"code_verifier": {pkce.Verifier},
	}

	var resp tokenResponse
	if err := httpx.PostForm(ctx, x.client, xTokenURL, x.basicAuth(), form, &resp); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token := resp.token()
	if err := x.store.Save(credstore.PlatformX, credstore.TokenFile, token); err != nil {
		return nil, err
	}
	logger.Info("x token stored", "expires_at", token.ExpiresAt)
	return token, nil
}

// AccessToken returns a usable bearer token, refreshing a stale one first.
// A missing token is reported without any network traffic.
func (x *X) AccessToken(ctx context.Context) (string, error) {
	var token Token
	if err := x.store.Load(credstore.PlatformX, credstore.TokenFile, &token); err != nil {
		if errors.Is(err, credstore.ErrNotConfigured) {
			return "", fmt.Errorf("%w: run 'vbsocial x configure'", ErrNotAuthenticated)
		}
		return "", err
	}

	if token.Valid() {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", fmt.Errorf("%w: x token expired, run 'vbsocial x configure'", ErrNotAuthenticated)
	}

	refreshed, err := x.refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", &RefreshError{Platform: "x", Err: err}
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if err := x.store.Save(credstore.PlatformX, credstore.TokenFile, refreshed); err != nil {
		return "", err
	}
	logger.Info("x token refreshed", "expires_at", refreshed.ExpiresAt)
	return refreshed.AccessToken, nil
}

func (x *X) refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {x.clientID},
	}

	var resp tokenResponse
	if err := httpx.PostForm(ctx, x.client, xTokenURL, x.basicAuth(), form, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.token(), nil
}

func (x *X) basicAuth() map[string]string {
	cred := base64.StdEncoding.EncodeToString([]byte(x.clientID + ":" + x.clientSecret))
	return map[string]string{"Authorization": "Basic " + cred}
}
