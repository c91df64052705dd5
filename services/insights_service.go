package services

import (
	"context"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
	"github.com/shopspring/decimal"
)

// CryptoInsight is one crypto's position within a partition
type CryptoInsight struct {
	ID         string                `json:"id"`
	Symbol     string                `json:"symbol"`
	Name       string                `json:"name"`
	Quantity   decimal.Decimal       `json:"quantity"`
	Balances   valuation.Balances    `json:"balances"`
	Percentage float64               `json:"percentage"`
	Platforms  []string              `json:"platforms,omitempty"`
	MarketData models.MarketSnapshot `json:"market_data"`
}

// PlatformInsight is one platform's position within a partition
type PlatformInsight struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Quantity   *decimal.Decimal   `json:"quantity,omitempty"`
	Balances   valuation.Balances `json:"balances"`
	Percentage float64            `json:"percentage"`
}

// PlatformsBalancesInsights splits the total balance by platform
type PlatformsBalancesInsights struct {
	Balances  valuation.Balances `json:"balances"`
	Platforms []PlatformInsight  `json:"platforms"`
}

// CryptosBalancesInsights splits the total balance by crypto
type CryptosBalancesInsights struct {
	Balances valuation.Balances `json:"balances"`
	Cryptos  []CryptoInsight    `json:"cryptos"`
}

// PageCryptosInsights is one page of CryptosBalancesInsights
type PageCryptosInsights struct {
	Balances    valuation.Balances `json:"balances"`
	Cryptos     []CryptoInsight    `json:"cryptos"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"total_pages"`
	HasNextPage bool               `json:"has_next_page"`
}

// PlatformInsights splits one platform's balance by crypto
type PlatformInsights struct {
	PlatformName string             `json:"platform_name"`
	Balances     valuation.Balances `json:"balances"`
	Cryptos      []CryptoInsight    `json:"cryptos"`
}

// CryptoInsights splits one crypto's balance by platform
type CryptoInsights struct {
	ID        string             `json:"id"`
	Symbol    string             `json:"symbol"`
	Name      string             `json:"name"`
	Balances  valuation.Balances `json:"balances"`
	Platforms []PlatformInsight  `json:"platforms"`
}

// InsightsService builds display-ready balance views over holdings
type InsightsService struct {
	holdings  *UserCryptoService
	cryptos   *CryptoService
	platforms *PlatformService
	pageSize  int
}

// NewInsightsService creates a new insights service
func NewInsightsService(holdings *UserCryptoService, cryptos *CryptoService, platforms *PlatformService, pageSize int) *InsightsService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &InsightsService{holdings: holdings, cryptos: cryptos, platforms: platforms, pageSize: pageSize}
}

// TotalBalances returns the value of every holding. No holdings is a zero balance.
func (s *InsightsService) TotalBalances(ctx context.Context) (valuation.Balances, error) {
	holdings, err := s.holdings.FindAll(ctx)
	if err != nil {
		return valuation.Balances{}, err
	}
	if len(holdings) == 0 {
		return valuation.ZeroBalances(), nil
	}
	values, err := s.value(ctx, holdings)
	if err != nil {
		return valuation.Balances{}, err
	}
	return valuation.TotalOf(values), nil
}

// RetrievePlatformsBalancesInsights returns each platform's share, largest first
func (s *InsightsService) RetrievePlatformsBalancesInsights(ctx context.Context) (PlatformsBalancesInsights, error) {
	holdings, err := s.holdings.FindAll(ctx)
	if err != nil {
		return PlatformsBalancesInsights{}, err
	}
	if len(holdings) == 0 {
		return PlatformsBalancesInsights{}, ErrNoContent
	}
	values, err := s.value(ctx, holdings)
	if err != nil {
		return PlatformsBalancesInsights{}, err
	}
	names, err := s.platformNames(ctx)
	if err != nil {
		return PlatformsBalancesInsights{}, err
	}

	groups := valuation.GroupByPlatform(values)
	valuation.SortPlatforms(groups, valuation.Descending)
	insights := PlatformsBalancesInsights{Balances: valuation.TotalOf(values)}
	for _, g := range groups {
		insights.Platforms = append(insights.Platforms, PlatformInsight{
			ID:         g.PlatformID,
			Name:       names[g.PlatformID],
			Balances:   g.Balances,
			Percentage: g.Percentage,
		})
	}
	return insights, nil
}

// RetrieveCryptosBalancesInsights returns each crypto's share across platforms
func (s *InsightsService) RetrieveCryptosBalancesInsights(ctx context.Context, params valuation.SortParams) (CryptosBalancesInsights, error) {
	holdings, err := s.holdings.FindAll(ctx)
	if err != nil {
		return CryptosBalancesInsights{}, err
	}
	if len(holdings) == 0 {
		return CryptosBalancesInsights{}, ErrNoContent
	}
	values, err := s.value(ctx, holdings)
	if err != nil {
		return CryptosBalancesInsights{}, err
	}
	cryptos, err := s.cryptoInsights(ctx, values, params)
	if err != nil {
		return CryptosBalancesInsights{}, err
	}
	return CryptosBalancesInsights{Balances: valuation.TotalOf(values), Cryptos: cryptos}, nil
}

// RetrieveCryptosInsightsPage returns the zero-based page of RetrieveCryptosBalancesInsights
func (s *InsightsService) RetrieveCryptosInsightsPage(ctx context.Context, page int, params valuation.SortParams) (PageCryptosInsights, error) {
	all, err := s.RetrieveCryptosBalancesInsights(ctx, params)
	if err != nil {
		return PageCryptosInsights{}, err
	}
	p, err := valuation.Paginate(all.Cryptos, page, s.pageSize)
	if err != nil {
		return PageCryptosInsights{}, err
	}
	return PageCryptosInsights{
		Balances:    all.Balances,
		Cryptos:     p.Items,
		Page:        p.Page,
		TotalPages:  p.TotalPages,
		HasNextPage: p.HasNextPage,
	}, nil
}

// RetrievePlatformInsights returns the cryptos held on one platform
func (s *InsightsService) RetrievePlatformInsights(ctx context.Context, platformID string, params valuation.SortParams) (PlatformInsights, error) {
	platform, err := s.platforms.RetrievePlatform(ctx, platformID)
	if err != nil {
		return PlatformInsights{}, err
	}
	holdings, err := s.holdings.FindByPlatform(ctx, platformID)
	if err != nil {
		return PlatformInsights{}, err
	}
	if len(holdings) == 0 {
		return PlatformInsights{}, ErrNoContent
	}
	values, err := s.value(ctx, holdings)
	if err != nil {
		return PlatformInsights{}, err
	}
	cryptos, err := s.cryptoInsights(ctx, values, params)
	if err != nil {
		return PlatformInsights{}, err
	}
	return PlatformInsights{PlatformName: platform.Name, Balances: valuation.TotalOf(values), Cryptos: cryptos}, nil
}

// RetrieveCryptoInsights returns the platforms one crypto is held on
func (s *InsightsService) RetrieveCryptoInsights(ctx context.Context, cryptoID string) (CryptoInsights, error) {
	holdings, err := s.holdings.FindByCrypto(ctx, cryptoID)
	if err != nil {
		return CryptoInsights{}, err
	}
	if len(holdings) == 0 {
		return CryptoInsights{}, ErrNoContent
	}
	values, err := s.value(ctx, holdings)
	if err != nil {
		return CryptoInsights{}, err
	}
	names, err := s.platformNames(ctx)
	if err != nil {
		return CryptoInsights{}, err
	}

	// one holding per platform, so each holding is its platform's share
	percentages := valuation.HoldingPercentages(values)
	quantities := make(map[string]decimal.Decimal, len(values))
	groups := make([]valuation.PlatformAggregate, len(values))
	for i, v := range values {
		quantities[v.Holding.PlatformID] = v.Holding.Quantity
		groups[i] = valuation.PlatformAggregate{PlatformID: v.Holding.PlatformID, Balances: v.Balances, Percentage: percentages[i]}
	}
	valuation.SortPlatforms(groups, valuation.Descending)

	crypto := values[0].Crypto
	insights := CryptoInsights{ID: crypto.ID, Symbol: crypto.Symbol, Name: crypto.Name, Balances: valuation.TotalOf(values)}
	for _, g := range groups {
		quantity := quantities[g.PlatformID]
		insights.Platforms = append(insights.Platforms, PlatformInsight{
			ID:         g.PlatformID,
			Name:       names[g.PlatformID],
			Quantity:   &quantity,
			Balances:   g.Balances,
			Percentage: g.Percentage,
		})
	}
	return insights, nil
}

func (s *InsightsService) value(ctx context.Context, holdings []models.UserCrypto) ([]valuation.HoldingValue, error) {
	cryptos, err := s.cryptos.RetrieveCryptos(ctx, cryptoIDsOf(holdings))
	if err != nil {
		return nil, err
	}
	return valuation.ValueHoldings(holdings, cryptos)
}

func (s *InsightsService) cryptoInsights(ctx context.Context, values []valuation.HoldingValue, params valuation.SortParams) ([]CryptoInsight, error) {
	names, err := s.platformNames(ctx)
	if err != nil {
		return nil, err
	}
	groups := valuation.GroupByCrypto(values)
	valuation.SortCryptos(groups, params)

	insights := make([]CryptoInsight, 0, len(groups))
	for _, g := range groups {
		platforms := make([]string, 0, len(g.PlatformIDs))
		for _, id := range g.PlatformIDs {
			platforms = append(platforms, names[id])
		}
		insights = append(insights, CryptoInsight{
			ID:         g.Crypto.ID,
			Symbol:     g.Crypto.Symbol,
			Name:       g.Crypto.Name,
			Quantity:   g.Quantity,
			Balances:   g.Balances,
			Percentage: g.Percentage,
			Platforms:  platforms,
			MarketData: g.Crypto.Snapshot(),
		})
	}
	return insights, nil
}

func (s *InsightsService) platformNames(ctx context.Context) (map[string]string, error) {
	platforms, err := s.platforms.RetrieveAllPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(platforms))
	for _, p := range platforms {
		names[p.ID] = p.Name
	}
	return names, nil
}
