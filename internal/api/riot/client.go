// Package riot is the Riot Games API client used by the League of Legends
// synchronizer.
package riot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgnsrekt/charsync/internal/api"
)

// DefaultBaseURL is expanded with the platform (euw1) or regional (europe)
// routing value.
const DefaultBaseURL = "https://{host}.api.riotgames.com"

// Client interface for testability
type Client interface {
	AccountByRiotID(ctx context.Context, platform, gameName, tagLine string) (Account, error)
	SummonerByPUUID(ctx context.Context, platform, puuid string) (Summoner, error)
	LeagueEntries(ctx context.Context, platform, puuid string) ([]LeagueEntry, error)
	MatchIDs(ctx context.Context, platform, puuid string, count int) ([]string, error)
	Match(ctx context.Context, platform, matchID string) (Match, error)
}

type HTTPClient struct {
	doer    *api.Doer
	baseURL string
	apiKey  string
}

func NewClient(doer *api.Doer, baseURL, apiKey string) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		doer:    doer,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *HTTPClient) AccountByRiotID(ctx context.Context, platform, gameName, tagLine string) (Account, error) {
	var out Account
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s", url.PathEscape(gameName), url.PathEscape(tagLine))
	err := c.get(ctx, RegionalRoute(platform), path, &out)
	return out, err
}

func (c *HTTPClient) SummonerByPUUID(ctx context.Context, platform, puuid string) (Summoner, error) {
	var out Summoner
	err := c.get(ctx, platform, "/lol/summoner/v4/summoners/by-puuid/"+url.PathEscape(puuid), &out)
	return out, err
}

func (c *HTTPClient) LeagueEntries(ctx context.Context, platform, puuid string) ([]LeagueEntry, error) {
	var out []LeagueEntry
	err := c.get(ctx, platform, "/lol/league/v4/entries/by-puuid/"+url.PathEscape(puuid), &out)
	return out, err
}

func (c *HTTPClient) MatchIDs(ctx context.Context, platform, puuid string, count int) ([]string, error) {
	var out []string
	path := fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d", url.PathEscape(puuid), count)
	err := c.get(ctx, RegionalRoute(platform), path, &out)
	return out, err
}

func (c *HTTPClient) Match(ctx context.Context, platform, matchID string) (Match, error) {
	var out Match
	err := c.get(ctx, RegionalRoute(platform), "/lol/match/v5/matches/"+url.PathEscape(matchID), &out)
	return out, err
}

func (c *HTTPClient) get(ctx context.Context, host, path string, out any) error {
	header := http.Header{}
	header.Set("X-Riot-Token", c.apiKey)
	return c.doer.GetJSON(ctx, c.hostURL(host)+path, header, out)
}

func (c *HTTPClient) hostURL(host string) string {
	return strings.ReplaceAll(c.baseURL, "{host}", strings.ToLower(host))
}

var regionalRoutes = map[string]string{
	"na1": "americas", "br1": "americas", "la1": "americas", "la2": "americas",
	"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe", "me1": "europe",
	"kr": "asia", "jp1": "asia",
	"oc1": "sea", "ph2": "sea", "sg2": "sea", "th2": "sea", "tw2": "sea", "vn2": "sea",
}

// RegionalRoute maps a platform id to the regional cluster serving account
// and match data. Unknown platforms fall back to americas.
func RegionalRoute(platform string) string {
	if r, ok := regionalRoutes[strings.ToLower(platform)]; ok {
		return r
	}
	return "americas"
}
