package valuation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey selects the field insight lists are ordered by
type SortKey string

const (
	SortByPercentage    SortKey = "PERCENTAGE"
	SortByCurrentPrice  SortKey = "CURRENT_PRICE"
	SortByMaxSupply     SortKey = "MAX_SUPPLY"
	SortByMarketCapRank SortKey = "MARKET_CAP_RANK"
	SortByChange24h     SortKey = "CHANGE_PRICE_IN_24H"
	SortByChange7d      SortKey = "CHANGE_PRICE_IN_7D"
	SortByChange30d     SortKey = "CHANGE_PRICE_IN_30D"
)

// SortOrder is the direction applied on top of any key
type SortOrder string

const (
	Ascending  SortOrder = "ASC"
	Descending SortOrder = "DESC"
)

// SortParams pairs a key with a direction
type SortParams struct {
	By    SortKey
	Order SortOrder
}

// DefaultSortParams orders by share of the total, largest first
var DefaultSortParams = SortParams{By: SortByPercentage, Order: Descending}

var cryptoExtractors = map[SortKey]func(CryptoAggregate) decimal.Decimal{
	SortByPercentage:   func(c CryptoAggregate) decimal.Decimal { return decimal.NewFromFloat(c.Percentage) },
	SortByCurrentPrice: func(c CryptoAggregate) decimal.Decimal { return c.Crypto.LastKnownPrice },
	SortByMaxSupply: func(c CryptoAggregate) decimal.Decimal {
		if !c.Crypto.MaxSupply.Valid {
			return decimal.Zero
		}
		return c.Crypto.MaxSupply.Decimal
	},
	SortByMarketCapRank: func(c CryptoAggregate) decimal.Decimal { return decimal.NewFromInt(int64(c.Crypto.MarketCapRank)) },
	SortByChange24h:     func(c CryptoAggregate) decimal.Decimal { return c.Crypto.ChangePercentageIn24h },
	SortByChange7d:      func(c CryptoAggregate) decimal.Decimal { return c.Crypto.ChangePercentageIn7d },
	SortByChange30d:     func(c CryptoAggregate) decimal.Decimal { return c.Crypto.ChangePercentageIn30d },
}

// ParseSortParams validates user supplied sort options; empty values fall
// back to DefaultSortParams.
func ParseSortParams(by, order string) (SortParams, error) {
	params := DefaultSortParams
	if by != "" {
		key := SortKey(strings.ToUpper(by))
		if _, ok := cryptoExtractors[key]; !ok {
			return params, fmt.Errorf("invalid sort key %q", by)
		}
		params.By = key
	}
	if order != "" {
		switch SortOrder(strings.ToUpper(order)) {
		case Ascending:
			params.Order = Ascending
		case Descending:
			params.Order = Descending
		default:
			return params, fmt.Errorf("invalid sort order %q", order)
		}
	}
	return params, nil
}

// SortCryptos orders items in place. Equal keys keep their input order in
// both directions.
func SortCryptos(items []CryptoAggregate, params SortParams) {
	extract, ok := cryptoExtractors[params.By]
	if !ok {
		extract = cryptoExtractors[DefaultSortParams.By]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(extract(items[i]), extract(items[j]), params.Order)
	})
}

// SortPlatforms orders platform aggregates by percentage
func SortPlatforms(items []PlatformAggregate, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		return less(decimal.NewFromFloat(items[i].Percentage), decimal.NewFromFloat(items[j].Percentage), order)
	})
}

func less(a, b decimal.Decimal, order SortOrder) bool {
	if order == Descending {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}
