// Package valuation turns holdings and market data into balances, percentage
// shares, rankings and pages. Everything here is pure; callers load data.
package valuation

import (
	"errors"
	"fmt"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/shopspring/decimal"
)

// ErrMissingCrypto means a holding references a crypto that was not loaded
var ErrMissingCrypto = errors.New("holding references unknown crypto")

var hundred = decimal.NewFromInt(100)

// Balances is a value in every supported denomination
type Balances struct {
	TotalUSDBalance decimal.Decimal `json:"total_usd_balance"`
	TotalEURBalance decimal.Decimal `json:"total_eur_balance"`
	TotalBTCBalance decimal.Decimal `json:"total_btc_balance"`
}

// Add returns the denomination-wise sum of b and o
func (b Balances) Add(o Balances) Balances {
	return Balances{
		TotalUSDBalance: b.TotalUSDBalance.Add(o.TotalUSDBalance),
		TotalEURBalance: b.TotalEURBalance.Add(o.TotalEURBalance),
		TotalBTCBalance: b.TotalBTCBalance.Add(o.TotalBTCBalance),
	}
}

// ZeroBalances returns balances of exactly zero
func ZeroBalances() Balances {
	return Balances{TotalUSDBalance: decimal.Zero, TotalEURBalance: decimal.Zero, TotalBTCBalance: decimal.Zero}
}

// BalancesOf values quantity at price in each denomination
func BalancesOf(quantity decimal.Decimal, price models.Prices) Balances {
	return Balances{
		TotalUSDBalance: quantity.Mul(price.USD),
		TotalEURBalance: quantity.Mul(price.EUR),
		TotalBTCBalance: quantity.Mul(price.BTC),
	}
}

// HoldingValue is one holding priced with its crypto's last known market data
type HoldingValue struct {
	Holding  models.UserCrypto
	Crypto   models.Crypto
	Balances Balances
}

// ValueHoldings prices every holding. cryptos is keyed by crypto id.
func ValueHoldings(holdings []models.UserCrypto, cryptos map[string]models.Crypto) ([]HoldingValue, error) {
	values := make([]HoldingValue, 0, len(holdings))
	for _, h := range holdings {
		c, ok := cryptos[h.CryptoID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCrypto, h.CryptoID)
		}
		values = append(values, HoldingValue{
			Holding:  h,
			Crypto:   c,
			Balances: BalancesOf(h.Quantity, c.CurrentPrice()),
		})
	}
	return values, nil
}

// TotalOf sums the balances of values
func TotalOf(values []HoldingValue) Balances {
	total := ZeroBalances()
	for _, v := range values {
		total = total.Add(v.Balances)
	}
	return total
}

// Percentage returns part as a percentage of total, for display only.
// A zero total yields zero.
func Percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}

// CryptoAggregate is one crypto summed across the platforms it is held on
type CryptoAggregate struct {
	Crypto      models.Crypto
	Quantity    decimal.Decimal
	Balances    Balances
	PlatformIDs []string
	Percentage  float64
}

// PlatformAggregate is everything held on one platform
type PlatformAggregate struct {
	PlatformID string
	Balances   Balances
	Percentage float64
}

// GroupByCrypto sums values per crypto in first-seen order and fills in
// each group's share of the USD total.
func GroupByCrypto(values []HoldingValue) []CryptoAggregate {
	index := make(map[string]int)
	var groups []CryptoAggregate
	for _, v := range values {
		i, ok := index[v.Crypto.ID]
		if !ok {
			i = len(groups)
			index[v.Crypto.ID] = i
			groups = append(groups, CryptoAggregate{
				Crypto:   v.Crypto,
				Quantity: decimal.Zero,
				Balances: ZeroBalances(),
			})
		}
		g := &groups[i]
		g.Quantity = g.Quantity.Add(v.Holding.Quantity)
		g.Balances = g.Balances.Add(v.Balances)
		g.PlatformIDs = append(g.PlatformIDs, v.Holding.PlatformID)
	}

	total := ZeroBalances()
	for _, g := range groups {
		total = total.Add(g.Balances)
	}
	for i := range groups {
		groups[i].Percentage = Percentage(groups[i].Balances.TotalUSDBalance, total.TotalUSDBalance)
	}
	return groups
}

// GroupByPlatform sums values per platform in first-seen order and fills in
// each platform's share of the USD total.
func GroupByPlatform(values []HoldingValue) []PlatformAggregate {
	index := make(map[string]int)
	var groups []PlatformAggregate
	for _, v := range values {
		i, ok := index[v.Holding.PlatformID]
		if !ok {
			i = len(groups)
			index[v.Holding.PlatformID] = i
			groups = append(groups, PlatformAggregate{PlatformID: v.Holding.PlatformID, Balances: ZeroBalances()})
		}
		groups[i].Balances = groups[i].Balances.Add(v.Balances)
	}

	total := ZeroBalances()
	for _, g := range groups {
		total = total.Add(g.Balances)
	}
	for i := range groups {
		groups[i].Percentage = Percentage(groups[i].Balances.TotalUSDBalance, total.TotalUSDBalance)
	}
	return groups
}

// HoldingPercentages returns each value's share of the partition USD total,
// index-aligned with values.
func HoldingPercentages(values []HoldingValue) []float64 {
	total := TotalOf(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Percentage(v.Balances.TotalUSDBalance, total.TotalUSDBalance)
	}
	return out
}
