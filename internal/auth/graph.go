package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/logger"
)

// GraphAPIVersion pins the Facebook Graph API version used everywhere.
const GraphAPIVersion = "v19.0"

const (
	graphBaseURL      = "https://graph.facebook.com"
	igRefreshURL      = "https://graph.instagram.com/refresh_access_token"
	pageTokenLifetime = 60 * 24 * time.Hour
)

// GraphConfig is the stored configuration for the Facebook and Instagram
// platforms. Both use page access tokens obtained in Meta's developer
// console; configure writes this file, posting reads it.
type GraphConfig struct {
	AccessToken        string `json:"access_token"`
	AppID              string `json:"app_id,omitempty"`
	AppSecret          string `json:"app_secret,omitempty"`
	PageID             string `json:"page_id,omitempty"`
	InstagramAccountID string `json:"instagram_account_id,omitempty"`
	TokenExpiry        int64  `json:"token_expiry,omitempty"`
}

// Graph manages page access tokens for Facebook and Instagram. Expired
// tokens are exchanged for fresh long-lived ones with the app credentials;
// Instagram additionally falls back to the ig_refresh_token grant.
type Graph struct {
	client   *http.Client
	store    *credstore.Store
	platform string
}

// NewGraph returns a Graph authenticator for the given platform directory,
// credstore.PlatformFacebook or credstore.PlatformInstagram.
func NewGraph(client *http.Client, store *credstore.Store, platform string) *Graph {
	return &Graph{client: client, store: store, platform: platform}
}

// Config loads the stored platform configuration.
func (g *Graph) Config() (*GraphConfig, error) {
	var cfg GraphConfig
	if err := g.store.Load(g.platform, credstore.ConfigFile, &cfg); err != nil {
		if errors.Is(err, credstore.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: run 'vbsocial %s configure'", ErrNotAuthenticated, g.platform)
		}
		return nil, err
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: run 'vbsocial %s configure'", ErrNotAuthenticated, g.platform)
	}
	return &cfg, nil
}

// SaveConfig persists the platform configuration.
func (g *Graph) SaveConfig(cfg *GraphConfig) error {
	return g.store.Save(g.platform, credstore.ConfigFile, cfg)
}

// AccessToken returns a usable page token. An expired token triggers
// exactly one refresh attempt; a rejected refresh surfaces as RefreshError
// with the stored token untouched.
func (g *Graph) AccessToken(ctx context.Context) (string, error) {
	cfg, err := g.Config()
	if err != nil {
		return "", err
	}

	if cfg.TokenExpiry == 0 || time.Now().Add(ExpiryBuffer).Before(time.Unix(cfg.TokenExpiry, 0)) {
		return cfg.AccessToken, nil
	}

	logger.Info("token expired, refreshing", "platform", g.platform)
	token, err := g.refresh(ctx, cfg)
	if err != nil {
		return "", &RefreshError{Platform: g.platform, Err: err}
	}
	return token, nil
}

// Refresh forces a token refresh regardless of the stored expiry.
func (g *Graph) Refresh(ctx context.Context) (string, error) {
	cfg, err := g.Config()
	if err != nil {
		return "", err
	}
	token, err := g.refresh(ctx, cfg)
	if err != nil {
		return "", &RefreshError{Platform: g.platform, Err: err}
	}
	return token, nil
}

// refresh exchanges the stored token for a new long-lived one and persists
// the updated config. Page tokens rarely expire, so the stored expiry is
// reset to a 60-day horizon when the platform reports none.
func (g *Graph) refresh(ctx context.Context, cfg *GraphConfig) (string, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return "", fmt.Errorf("app_id and app_secret required for token refresh")
	}

	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {cfg.AppID},
		"client_secret":     {cfg.AppSecret},
		"fb_exchange_token": {cfg.AccessToken},
	}

	var resp tokenResponse
	exchangeURL := fmt.Sprintf("%s/%s/oauth/access_token", graphBaseURL, GraphAPIVersion)
	err := httpx.Get(ctx, g.client, exchangeURL, nil, params, &resp)
	if err == nil && resp.AccessToken != "" {
		token := resp.AccessToken

		// Swap the fresh user token for the page token when a page is
		// configured. A failed swap still leaves a working user token.
		if cfg.PageID != "" {
			if pageToken, pageErr := g.pageToken(ctx, cfg.PageID, token); pageErr == nil {
				token = pageToken
			}
		}

		cfg.AccessToken = token
		if resp.ExpiresIn > 0 {
			cfg.TokenExpiry = time.Now().Unix() + resp.ExpiresIn
		} else {
			cfg.TokenExpiry = time.Now().Add(pageTokenLifetime).Unix()
		}
		if err := g.SaveConfig(cfg); err != nil {
			return "", err
		}
		logger.Info("token refreshed", "platform", g.platform, "expires_at", cfg.TokenExpiry)
		return cfg.AccessToken, nil
	}

	// Instagram tokens issued through the Basic Display flow refresh on a
	// different endpoint.
	if g.platform == credstore.PlatformInstagram {
		igParams := url.Values{
			"grant_type":   {"ig_refresh_token"},
			"access_token": {cfg.AccessToken},
		}
		var igResp tokenResponse
		if igErr := httpx.Get(ctx, g.client, igRefreshURL, nil, igParams, &igResp); igErr == nil && igResp.AccessToken != "" {
			cfg.AccessToken = igResp.AccessToken
			if igResp.ExpiresIn > 0 {
				cfg.TokenExpiry = time.Now().Unix() + igResp.ExpiresIn
			}
			if saveErr := g.SaveConfig(cfg); saveErr != nil {
				return "", saveErr
			}
			logger.Info("token refreshed", "platform", g.platform, "expires_at", cfg.TokenExpiry)
			return cfg.AccessToken, nil
		}
	}

	if err == nil {
		err = fmt.Errorf("token exchange returned no access token")
	}
	return "", err
}

func (g *Graph) pageToken(ctx context.Context, pageID, userToken string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	pageURL := fmt.Sprintf("%s/%s/%s", graphBaseURL, GraphAPIVersion, pageID)
	params := url.Values{
		"fields":       {"access_token"},
		"access_token": {userToken},
	}
	if err := httpx.Get(ctx, g.client, pageURL, nil, params, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("page %s returned no access token", pageID)
	}
	return out.AccessToken, nil
}
