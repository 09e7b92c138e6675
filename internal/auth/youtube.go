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

const googleTokenURL = "https://oauth2.googleapis.com/token"

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube",
	"https://www.googleapis.com/auth/youtubepartner",
}

// ClientSecret is the installed-app OAuth client downloaded from the Google
// Cloud Console, stored as youtube/client_secret.json.
type ClientSecret struct {
	Installed struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		AuthURI      string   `json:"auth_uri"`
		TokenURI     string   `json:"token_uri"`
		RedirectURIs []string `json:"redirect_uris"`
	} `json:"installed"`
}

// YouTube runs the Google OAuth installed-app flow for the YouTube Data
// API. The client credentials come from client_secret.json; consent uses
// the same paste-the-redirect-URL flow as the other platforms.
type YouTube struct {
	client *http.Client
	store  *credstore.Store
}

// NewYouTube returns a YouTube authenticator backed by the given store.
func NewYouTube(client *http.Client, store *credstore.Store) *YouTube {
	return &YouTube{client: client, store: store}
}

// Secret loads the installed-app client credentials.
func (y *YouTube) Secret() (*ClientSecret, error) {
	var secret ClientSecret
	if err := y.store.Load(credstore.PlatformYouTube, credstore.ClientSecretFile, &secret); err != nil {
		if errors.Is(err, credstore.ErrNotConfigured) {
			path := y.store.Path(credstore.PlatformYouTube, credstore.ClientSecretFile)
			return nil, fmt.Errorf("%w: download OAuth client credentials from the Google Cloud Console and save them to %s", ErrNotAuthenticated, path)
		}
		return nil, err
	}
	if secret.Installed.ClientID == "" || secret.Installed.ClientSecret == "" {
		return nil, fmt.Errorf("client_secret.json has no installed client credentials")
	}
	return &secret, nil
}

// AuthorizeURL builds the browser URL that starts the consent flow.
// access_type=offline with forced consent makes Google issue a refresh
// token.
func (y *YouTube) AuthorizeURL(secret *ClientSecret, state string) string {
	authURI := secret.Installed.AuthURI
	if authURI == "" {
		authURI = "https://accounts.google.com/o/oauth2/auth"
	}
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {secret.Installed.ClientID},
		"redirect_uri":  {RedirectURI},
		"state":         {state},
		"scope":         {strings.Join(youtubeScopes, " ")},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}
	return authURI + "?" + params.Encode()
}

// Exchange trades the pasted redirect URL for a token and persists it.
func (y *YouTube) Exchange(ctx context.Context, secret *ClientSecret, redirectURL string) (*Token, error) {
	code, err := ParseRedirect(redirectURL)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {RedirectURI},
		"client_id":     {secret.Installed.ClientID},
		"client_secret": {secret.Installed.ClientSecret},
	}

	var resp tokenResponse
	if err := httpx.PostForm(ctx, y.client, y.tokenURL(secret), nil, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if err := resp.err(); err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token := resp.token()
	if err := y.store.Save(credstore.PlatformYouTube, credstore.TokenFile, token); err != nil {
		return nil, err
	}
	logger.Info("youtube token stored", "expires_at", token.ExpiresAt)
	return token, nil
}

// AccessToken returns a usable bearer token, refreshing a stale one first.
func (y *YouTube) AccessToken(ctx context.Context) (string, error) {
	var token Token
	if err := y.store.Load(credstore.PlatformYouTube, credstore.TokenFile, &token); err != nil {
		if errors.Is(err, credstore.ErrNotConfigured) {
			return "", fmt.Errorf("%w: run 'vbsocial youtube configure'", ErrNotAuthenticated)
		}
		return "", err
	}

	if token.Valid() {
		return token.AccessToken, nil
	}
	if token.RefreshToken == "" {
		return "", fmt.Errorf("%w: youtube token expired, run 'vbsocial youtube configure'", ErrNotAuthenticated)
	}

	secret, err := y.Secret()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
		"client_id":     {secret.Installed.ClientID},
		"client_secret": {secret.Installed.ClientSecret},
	}

	var resp tokenResponse
	if err := httpx.PostForm(ctx, y.client, y.tokenURL(secret), nil, form, &resp); err != nil {
		return "", &RefreshError{Platform: "youtube", Err: err}
	}
	if err := resp.err(); err != nil {
		return "", &RefreshError{Platform: "youtube", Err: err}
	}

	refreshed := resp.token()
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if err := y.store.Save(credstore.PlatformYouTube, credstore.TokenFile, refreshed); err != nil {
		return "", err
	}
	logger.Info("youtube token refreshed", "expires_at", refreshed.ExpiresAt)
	return refreshed.AccessToken, nil
}

func (y *YouTube) tokenURL(secret *ClientSecret) string {
	if secret.Installed.TokenURI != "" {
		return secret.Installed.TokenURI
	}
	return googleTokenURL
}
