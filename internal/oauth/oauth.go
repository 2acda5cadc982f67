// Package oauth implements the narrow boundary the Registry Service uses to
// authenticate publishers: an IdentityProvider the service depends on, and
// one concrete implementation speaking the OAuth 2.0 authorization-code
// flow against a generically configured provider (token + userinfo
// endpoints given as URLs, not hardcoded to one vendor).
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the publisher identity a provider resolves an authorization
// code to.
type Identity struct {
	Subject string // stable, provider-scoped user id — stored as authors.oauth_subject
	Login   string // human-facing username, used as the registry author name
}

// IdentityProvider is the collaborator the Registry Service's login/
// authorize handlers depend on. It never touches the registry's own
// storage; it only turns an authorization code into an Identity.
type IdentityProvider interface {
	// AuthURL returns the provider's authorization endpoint URL a client
	// should be redirected to, binding state to the session that started
	// login so authorize can correlate the callback.
	AuthURL(state string) string
	// Exchange redeems an authorization code for the identity it was
	// issued to.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Config names the provider's three endpoints and this project's client
// credentials. Any standard OAuth 2.0 authorization-code provider that
// exposes these three URLs and a userinfo response shaped like
// {"id"|"sub": ..., "login"|"username": ...} can be plugged in.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// Provider is the generic authorization-code-flow IdentityProvider.
type Provider struct {
	cfg    Config
	client *http.Client
}

// New constructs a Provider against cfg, using client for every outbound
// call (nil defaults to http.DefaultClient).
func New(cfg Config, client *http.Client) *Provider {
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{cfg: cfg, client: client}
}

// AuthURL implements IdentityProvider.
func (p *Provider) AuthURL(state string) string {
	v := url.Values{}
	v.Set("client_id", p.cfg.ClientID)
	v.Set("redirect_uri", p.cfg.RedirectURL)
	v.Set("state", state)
	v.Set("response_type", "code")
	sep := "?"
	if strings.Contains(p.cfg.AuthURL, "?") {
		sep = "&"
	}
	return p.cfg.AuthURL + sep + v.Encode()
}

// Exchange implements IdentityProvider: it trades code for an access token
// at the provider's token endpoint, then fetches the identity from the
// userinfo endpoint with that token.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, idToken, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging oauth code: %w", err)
	}
	// Providers that don't expose a separate userinfo endpoint still carry
	// the identity in the token response's id_token (OIDC); decode that
	// instead of making a second round trip.
	if p.cfg.UserInfoURL == "" && idToken != "" {
		return identityFromIDToken(idToken)
	}
	return p.userInfo(ctx, token)
}

// identityFromIDToken reads the subject and login claims out of an OIDC
// id_token without verifying its signature: the token just came back over
// the same TLS connection, authenticated with this project's client
// secret, so re-verifying it buys nothing a JWKS fetch wouldn't cost twice.
func identityFromIDToken(idToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("decoding id_token: %w", err)
	}
	subject, _ := claims["sub"].(string)
	login, _ := claims["login"].(string)
	if login == "" {
		login, _ = claims["preferred_username"].(string)
	}
	if subject == "" || login == "" {
		return nil, fmt.Errorf("id_token missing subject or login claim")
	}
	return &Identity{Subject: subject, Login: login}, nil
}

func (p *Provider) exchangeCode(ctx context.Context, code string) (string, string, error) {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("decoding token response: %w", err)
	}
	if out.Error != "" {
		return "", "", fmt.Errorf("provider rejected code: %s", out.Error)
	}
	if out.AccessToken == "" {
		return "", "", fmt.Errorf("token response carried no access_token")
	}
	return out.AccessToken, out.IDToken, nil
}

func (p *Provider) userInfo(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		ID       json.Number `json:"id"`
		Sub      string      `json:"sub"`
		Login    string      `json:"login"`
		Username string      `json:"username"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}

	subject := out.Sub
	if subject == "" {
		subject = out.ID.String()
	}
	login := out.Login
	if login == "" {
		login = out.Username
	}
	if subject == "" || login == "" {
		return nil, fmt.Errorf("userinfo response missing subject or login")
	}
	return &Identity{Subject: subject, Login: login}, nil
}

// NewState returns a random hex token suitable for both the OAuth "state"
// parameter and the registry's own session token.
func NewState() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ExpiresIn is how long an unconfirmed login session (a state token with
// no authorize callback yet) remains valid before cron pruning removes it.
const ExpiresIn = 10 * time.Minute
