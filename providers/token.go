package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tokenExpirySkew = 30 * time.Second

// KeycloakOptions identifies the publisher account used to publish content.
type KeycloakOptions struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// PublisherToken lazily fetches the publisher's access token and reuses it
// until shortly before it expires. Concurrent callers share one fetch.
type PublisherToken struct {
	opts       KeycloakOptions
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewPublisherToken creates an empty credential holder; nothing is fetched
// until the first Token call.
func NewPublisherToken(opts KeycloakOptions, logger *zap.Logger) *PublisherToken {
	return &PublisherToken{
		opts: opts,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

type keycloakTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a valid access token, fetching a new one when none is cached
// or the cached one is about to expire. A caller whose ctx ends stops waiting
// without failing the fetch for the others.
func (p *PublisherToken) Token(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		return token, nil
	}

	// The shared fetch outlives any one caller; the client timeout bounds it.
	ch := p.group.DoChan("token", func() (interface{}, error) {
		if token, ok := p.cached(); ok {
			return token, nil
		}
		return p.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next Token call fetches a fresh one.
func (p *PublisherToken) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *PublisherToken) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == "" || !p.now().Before(p.expiresAt.Add(-tokenExpirySkew)) {
		return "", false
	}
	return p.token, true
}

func (p *PublisherToken) fetch(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", p.opts.ClientID)
	if p.opts.ClientSecret != "" {
		form.Set("client_secret", p.opts.ClientSecret)
	}
	form.Set("username", p.opts.Username)
	form.Set("password", p.opts.Password)

	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimRight(p.opts.URL, "/"), url.PathEscape(p.opts.Realm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keycloak token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keycloak token error (status %d): %s", resp.StatusCode, string(body))
	}

	var tr keycloakTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("keycloak token: empty access token")
	}

	expiresAt := p.expiry(tr)

	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = expiresAt
	p.mu.Unlock()

	p.logger.Info("publisher token refreshed", zap.Time("expires_at", expiresAt))
	return tr.AccessToken, nil
}

// expiry prefers expires_in and falls back to the token's exp claim.
func (p *PublisherToken) expiry(tr keycloakTokenResponse) time.Time {
	if tr.ExpiresIn > 0 {
		return p.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err == nil {
		if exp, ok := claims["exp"].(float64); ok {
			return time.Unix(int64(exp), 0)
		}
	}
	// Without any expiry hint the token is used for a single call.
	return p.now()
}
