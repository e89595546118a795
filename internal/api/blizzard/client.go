// Package blizzard is the Battle.net WoW Classic profile and game-data client
// used by the hardcore synchronizer.
package blizzard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/charsync/internal/api"
)

const (
	DefaultBaseURL  = "https://{region}.api.blizzard.com"
	DefaultTokenURL = "https://oauth.battle.net/token"

	DefaultProfileNamespace = "profile-classic1x"
	DefaultStaticNamespace  = "static-classic1x"
)

// Client interface for testability
type Client interface {
	Character(ctx context.Context, region, realm, name string) (Character, error)
	Equipment(ctx context.Context, region, realm, name string) (Equipment, error)
	Item(ctx context.Context, region string, itemID int64) (Item, error)
}

// Options configures the HTTP client.
type Options struct {
	BaseURL          string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	ProfileNamespace string
	StaticNamespace  string
	Locale           string
}

type HTTPClient struct {
	doer *api.Doer
	opts Options

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewClient(doer *api.Doer, opts Options) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.ProfileNamespace == "" {
		opts.ProfileNamespace = DefaultProfileNamespace
	}
	if opts.StaticNamespace == "" {
		opts.StaticNamespace = DefaultStaticNamespace
	}
	if opts.Locale == "" {
		opts.Locale = "en_US"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	return &HTTPClient{doer: doer, opts: opts, now: time.Now}
}

func (c *HTTPClient) Character(ctx context.Context, region, realm, name string) (Character, error) {
	var out Character
	path := fmt.Sprintf("/profile/wow/character/%s/%s", slug(realm), url.PathEscape(strings.ToLower(name)))
	err := c.get(ctx, region, path, c.opts.ProfileNamespace, &out)
	return out, err
}

func (c *HTTPClient) Equipment(ctx context.Context, region, realm, name string) (Equipment, error) {
	var out Equipment
	path := fmt.Sprintf("/profile/wow/character/%s/%s/equipment", slug(realm), url.PathEscape(strings.ToLower(name)))
	err := c.get(ctx, region, path, c.opts.ProfileNamespace, &out)
	return out, err
}

func (c *HTTPClient) Item(ctx context.Context, region string, itemID int64) (Item, error) {
	var out Item
	err := c.get(ctx, region, fmt.Sprintf("/data/wow/item/%d", itemID), c.opts.StaticNamespace, &out)
	return out, err
}

func (c *HTTPClient) get(ctx context.Context, region, path, namespace string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	region = strings.ToLower(region)
	q := url.Values{}
	q.Set("namespace", namespace+"-"+region)
	q.Set("locale", c.opts.Locale)
	u := strings.ReplaceAll(c.opts.BaseURL, "{region}", region) + path + "?" + q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return c.doer.GetJSON(ctx, u, header, out)
}

// accessToken returns a cached client-credentials token, refreshing it a
// minute before expiry.
func (c *HTTPClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp tokenResponse
	if err := c.doer.Do(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", api.ErrMalformedResponse)
	}

	c.token = resp.AccessToken
	c.expiresAt = c.now().Add(time.Duration(resp.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

// slug converts a realm display name into its API slug ("Doomhowl" -> "doomhowl",
// "Defias Pillager" -> "defias-pillager").
func slug(realm string) string {
	s := strings.ToLower(strings.TrimSpace(realm))
	s = strings.ReplaceAll(s, "'", "")
	return strings.ReplaceAll(s, " ", "-")
}
