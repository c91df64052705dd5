package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	coinGeckoPublicBaseURL = "https://api.coingecko.com/api/v3"
	coinGeckoProBaseURL    = "https://pro-api.coingecko.com/api/v3"

	defaultRequestsPerMinute = 30
	defaultTimeout           = 10 * time.Second
)

// CoinGeckoConfig configures the CoinGecko client
type CoinGeckoConfig struct {
	BaseURL           string
	APIKey            string
	Plan              string // demo or pro
	RequestsPerMinute int
	Timeout           time.Duration
}

// CoinGeckoClient is a Source backed by the CoinGecko REST API
type CoinGeckoClient struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	client       *http.Client
	limiter      *rate.Limiter
}

type cgCoinListEntry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type cgCoin struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MarketData struct {
		CurrentPrice             map[string]decimal.Decimal `json:"current_price"`
		MarketCap                map[string]decimal.Decimal `json:"market_cap"`
		MarketCapRank            *int                       `json:"market_cap_rank"`
		CirculatingSupply        decimal.NullDecimal        `json:"circulating_supply"`
		MaxSupply                decimal.NullDecimal        `json:"max_supply"`
		PriceChangePercentage24h decimal.NullDecimal        `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  decimal.NullDecimal        `json:"price_change_percentage_7d"`
		PriceChangePercentage30d decimal.NullDecimal        `json:"price_change_percentage_30d"`
		LastUpdated              string                     `json:"last_updated"`
	} `json:"market_data"`
}

// NewCoinGeckoClient creates a throttled client. Both connect and overall
// request time are bounded by cfg.Timeout.
func NewCoinGeckoClient(cfg CoinGeckoConfig) *CoinGeckoClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = CoinGeckoDefaultBaseURL(cfg.Plan)
	}

	header := "x-cg-demo-api-key"
	if strings.Contains(baseURL, "pro-api.coingecko.com") {
		header = "x-cg-pro-api-key"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &CoinGeckoClient{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		apiKeyHeader: header,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// CoinGeckoDefaultBaseURL returns the API root for a plan
func CoinGeckoDefaultBaseURL(plan string) string {
	if strings.EqualFold(plan, "pro") {
		return coinGeckoProBaseURL
	}
	return coinGeckoPublicBaseURL
}

// ListIdentities returns every coin known to CoinGecko
func (c *CoinGeckoClient) ListIdentities(ctx context.Context) ([]models.CryptoIdentity, error) {
	var entries []cgCoinListEntry
	if err := c.get(ctx, "/coins/list", nil, &entries); err != nil {
		return nil, err
	}

	identities := make([]models.CryptoIdentity, 0, len(entries))
	for _, e := range entries {
		identities = append(identities, models.CryptoIdentity{ID: e.ID, Symbol: e.Symbol, Name: e.Name})
	}
	return identities, nil
}

// GetSnapshot returns identity and current market data for one coin
func (c *CoinGeckoClient) GetSnapshot(ctx context.Context, id string) (models.CoinInfo, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return models.CoinInfo{}, fmt.Errorf("empty coin id: %w", ErrCoinNotFound)
	}

	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")
	query.Set("sparkline", "false")

	var coin cgCoin
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), query, &coin); err != nil {
		return models.CoinInfo{}, err
	}
	return coin.toCoinInfo(), nil
}

// GetSnapshots fetches ids one by one. Unknown ids are left out. Any other
// failure is returned joined with the coins that were fetched, and a rate
// limit stops the loop right away.
func (c *CoinGeckoClient) GetSnapshots(ctx context.Context, ids []string) (map[string]models.CoinInfo, error) {
	out := make(map[string]models.CoinInfo, len(ids))
	var failures []error
	for _, id := range normalizeIDs(ids) {
		info, err := c.GetSnapshot(ctx, id)
		switch {
		case err == nil:
			out[id] = info
		case IsRateLimited(err):
			return out, err
		case errors.Is(err, ErrCoinNotFound):
			log.Printf("Skipping unknown coin %s", id)
		default:
			failures = append(failures, fmt.Errorf("coin %s: %w", id, err))
		}
	}
	return out, errors.Join(failures...)
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("coingecko throttle wait: %w", err)
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("coingecko %s: %w", path, ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("coingecko %s: %w", path, ErrCoinNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("coingecko error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode coingecko %s response: %w", path, err)
	}
	return nil
}

func (coin cgCoin) toCoinInfo() models.CoinInfo {
	md := coin.MarketData
	info := models.CoinInfo{
		CryptoIdentity: models.CryptoIdentity{ID: coin.ID, Symbol: coin.Symbol, Name: coin.Name},
		MarketSnapshot: models.MarketSnapshot{
			CurrentPrice: models.Prices{
				USD: md.CurrentPrice["usd"],
				EUR: md.CurrentPrice["eur"],
				BTC: md.CurrentPrice["btc"],
			},
			CirculatingSupply:     md.CirculatingSupply.Decimal,
			MaxSupply:             md.MaxSupply,
			MarketCap:             md.MarketCap["usd"],
			ChangePercentageIn24h: md.PriceChangePercentage24h.Decimal,
			ChangePercentageIn7d:  md.PriceChangePercentage7d.Decimal,
			ChangePercentageIn30d: md.PriceChangePercentage30d.Decimal,
		},
	}
	if md.MarketCapRank != nil {
		info.MarketCapRank = *md.MarketCapRank
	}
	if ts, err := time.Parse(time.RFC3339, md.LastUpdated); err == nil {
		info.LastUpdated = ts.UTC()
	}
	return info
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(strings.ToLower(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
