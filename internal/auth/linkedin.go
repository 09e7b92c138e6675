package auth

import (
	"context"
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
	linkedinAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

	// RedirectURI is the paste-back redirect target shared by the code
	// flows. The browser shows an error page there; the user copies the URL.
	RedirectURI = "https://localhost"
)

var linkedinScopes = []string{"openid", "profile", "w_member_social", "w_organization_social"}

// LinkedIn runs the LinkedIn OAuth 2.0 authorization-code flow. LinkedIn
// issues no refresh token for these scopes, so an expired token means
// running configure again.
type LinkedIn struct {
	client       *http.Client
	store        *credstore.Store
	clientID     string
	clientSecret string
}

// NewLinkedIn returns a LinkedIn authenticator backed by the given store.
func NewLinkedIn(client *http.Client, store *credstore.Store, clientID, clientSecret string) *LinkedIn {
	return &LinkedIn{client: client, store: store, clientID: clientID, clientSecret: clientSecret}
}

// AuthorizeURL builds the browser URL that starts the consent flow.
func (l *LinkedIn) AuthorizeURL(state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {l.clientID},
		"redirect_uri":  {RedirectURI},
		"state":         {state},
		"scope":         {strings.Join(linkedinScopes, " ")},
	}
	return linkedinAuthURL + "?" + params.Encode()
}

// Exchange trades the pasted redirect URL for a token and persists it.
func (l *LinkedIn) Exchange(ctx context.Context, redirectURL string) (*Token, error) {
	code, err := ParseRedirect(redirectURL)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {RedirectURI},
		"client_id":     {l.clientID},
		"client_secret": {l.clientSecret},
	}

	var resp tokenResponse
	if err := httpx.PostForm(ctx, l.client, linkedinTokenURL, nil, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token := resp.token()
	if err := l.store.Save(credstore.PlatformLinkedIn, credstore.TokenFile, token); err != nil {
		return nil, err
	}
	logger.Info("linkedin token stored", "expires_at", token.ExpiresAt)
	return token, nil
}

// AccessToken returns the stored token if it is still usable. No network
// calls are made here.
func (l *LinkedIn) AccessToken(_ context.Context) (string, error) {
	var token Token
	if err := l.store.Load(credstore.PlatformLinkedIn, credstore.TokenFile, &token); err != nil {
		if errors.Is(err, credstore.ErrNotConfigured) {
			return "", fmt.Errorf("%w: run 'vbsocial linkedin configure'", ErrNotAuthenticated)
		}
		return "", err
	}
	if !token.Valid() {
		return "", fmt.Errorf("%w: linkedin token expired, run 'vbsocial linkedin configure'", ErrNotAuthenticated)
	}
	return token.AccessToken, nil
}
