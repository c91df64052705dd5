package valuation

import (
	"errors"
	"math"
	"testing"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func crypto(id, usd, eur, btc string) models.Crypto {
	return models.Crypto{
		ID:                  id,
		Symbol:              id[:3],
		Name:                id,
		LastKnownPrice:      d(usd),
		LastKnownPriceInEUR: d(eur),
		LastKnownPriceInBTC: d(btc),
	}
}

func holding(id, cryptoID, platformID, qty string) models.UserCrypto {
	return models.UserCrypto{ID: id, CryptoID: cryptoID, PlatformID: platformID, Quantity: d(qty)}
}

func fixture() ([]models.UserCrypto, map[string]models.Crypto) {
	cryptos := map[string]models.Crypto{
		"bitcoin":  crypto("bitcoin", "60000", "55000", "1"),
		"ethereum": crypto("ethereum", "3000", "2750", "0.05"),
		"tether":   crypto("tether", "1", "0.92", "0.0000166"),
	}
	holdings := []models.UserCrypto{
		holding("h1", "bitcoin", "binance", "0.15"),
		holding("h2", "ethereum", "binance", "1.1"),
		holding("h3", "bitcoin", "ledger", "0.25"),
		holding("h4", "tether", "coinbase", "333.33"),
	}
	return holdings, cryptos
}

func TestValueHoldingsExactDecimal(t *testing.T) {
	holdings, cryptos := fixture()
	values, err := ValueHoldings(holdings, cryptos)
	if err != nil {
		t.Fatalf("ValueHoldings: %v", err)
	}

	total := TotalOf(values)
	// 0.15*60000 + 1.1*3000 + 0.25*60000 + 333.33*1
	if want := d("27633.33"); !total.TotalUSDBalance.Equal(want) {
		t.Errorf("usd total = %s, want %s", total.TotalUSDBalance, want)
	}
	// 0.4*55000 + 1.1*2750 + 333.33*0.92
	if want := d("25331.6636"); !total.TotalEURBalance.Equal(want) {
		t.Errorf("eur total = %s, want %s", total.TotalEURBalance, want)
	}
	// 0.4 + 0.055 + 333.33*0.0000166
	if want := d("0.460533278"); !total.TotalBTCBalance.Equal(want) {
		t.Errorf("btc total = %s, want %s", total.TotalBTCBalance, want)
	}
}

func TestValueHoldingsMissingCrypto(t *testing.T) {
	_, err := ValueHoldings([]models.UserCrypto{holding("h1", "dogecoin", "p", "1")}, map[string]models.Crypto{})
	if !errors.Is(err, ErrMissingCrypto) {
		t.Errorf("err = %v, want ErrMissingCrypto", err)
	}
}

func TestPercentagesSumToHundred(t *testing.T) {
	holdings, cryptos := fixture()
	values, _ := ValueHoldings(holdings, cryptos)

	partitions := map[string][]float64{}
	for _, g := range GroupByCrypto(values) {
		partitions["crypto"] = append(partitions["crypto"], g.Percentage)
	}
	for _, g := range GroupByPlatform(values) {
		partitions["platform"] = append(partitions["platform"], g.Percentage)
	}
	partitions["holding"] = HoldingPercentages(values)

	for name, percentages := range partitions {
		sum := 0.0
		for _, p := range percentages {
			sum += p
		}
		if math.Abs(sum-100) > 0.01 {
			t.Errorf("%s percentages sum to %f", name, sum)
		}
	}
}

func TestPercentagesZeroTotal(t *testing.T) {
	cryptos := map[string]models.Crypto{
		"dead": crypto("dead", "0", "0", "0"),
	}
	values, err := ValueHoldings([]models.UserCrypto{
		holding("h1", "dead", "p1", "10"),
		holding("h2", "dead", "p2", "5"),
	}, cryptos)
	if err != nil {
		t.Fatalf("ValueHoldings: %v", err)
	}

	for _, p := range HoldingPercentages(values) {
		if p != 0 {
			t.Errorf("percentage = %f, want exactly 0", p)
		}
	}
	for _, g := range GroupByPlatform(values) {
		if g.Percentage != 0 {
			t.Errorf("platform percentage = %f, want exactly 0", g.Percentage)
		}
	}
}

func TestGroupByCryptoAcrossPlatforms(t *testing.T) {
	holdings, cryptos := fixture()
	values, _ := ValueHoldings(holdings, cryptos)

	groups := GroupByCrypto(values)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	btc := groups[0]
	if btc.Crypto.ID != "bitcoin" || !btc.Quantity.Equal(d("0.4")) {
		t.Errorf("bitcoin group = %s %s", btc.Crypto.ID, btc.Quantity)
	}
	if len(btc.PlatformIDs) != 2 || btc.PlatformIDs[0] != "binance" || btc.PlatformIDs[1] != "ledger" {
		t.Errorf("bitcoin platforms = %v", btc.PlatformIDs)
	}
}

func TestSortCryptosStableTies(t *testing.T) {
	items := []CryptoAggregate{
		{Crypto: models.Crypto{ID: "a", MarketCapRank: 2}},
		{Crypto: models.Crypto{ID: "b", MarketCapRank: 1}},
		{Crypto: models.Crypto{ID: "c", MarketCapRank: 2}},
		{Crypto: models.Crypto{ID: "d", MarketCapRank: 1}},
	}

	asc := append([]CryptoAggregate(nil), items...)
	SortCryptos(asc, SortParams{By: SortByMarketCapRank, Order: Ascending})
	assertOrder(t, asc, "b", "d", "a", "c")

	desc := append([]CryptoAggregate(nil), items...)
	SortCryptos(desc, SortParams{By: SortByMarketCapRank, Order: Descending})
	assertOrder(t, desc, "a", "c", "b", "d")
}

func TestSortCryptosByMaxSupplyTreatsNullAsZero(t *testing.T) {
	items := []CryptoAggregate{
		{Crypto: models.Crypto{ID: "eth"}},
		{Crypto: models.Crypto{ID: "btc", MaxSupply: decimal.NewNullDecimal(d("21000000"))}},
	}
	SortCryptos(items, SortParams{By: SortByMaxSupply, Order: Descending})
	assertOrder(t, items, "btc", "eth")
}

func TestSortCryptosByChange(t *testing.T) {
	items := []CryptoAggregate{
		{Crypto: models.Crypto{ID: "a", ChangePercentageIn24h: d("-2"), ChangePercentageIn7d: d("5")}},
		{Crypto: models.Crypto{ID: "b", ChangePercentageIn24h: d("3"), ChangePercentageIn7d: d("-1")}},
	}
	SortCryptos(items, SortParams{By: SortByChange24h, Order: Descending})
	assertOrder(t, items, "b", "a")
	SortCryptos(items, SortParams{By: SortByChange7d, Order: Descending})
	assertOrder(t, items, "a", "b")
}

func TestParseSortParams(t *testing.T) {
	p, err := ParseSortParams("", "")
	if err != nil || p != DefaultSortParams {
		t.Errorf("defaults = %+v, %v", p, err)
	}
	p, err = ParseSortParams("current_price", "asc")
	if err != nil || p.By != SortByCurrentPrice || p.Order != Ascending {
		t.Errorf("parsed = %+v, %v", p, err)
	}
	if _, err := ParseSortParams("NAME", ""); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := ParseSortParams("", "sideways"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21}

	tests := []struct {
		page      int
		wantLen   int
		wantPage  int
		wantTotal int
		wantNext  bool
	}{
		{page: 0, wantLen: 10, wantPage: 1, wantTotal: 3, wantNext: true},
		{page: 1, wantLen: 10, wantPage: 2, wantTotal: 3, wantNext: true},
		{page: 2, wantLen: 1, wantPage: 3, wantTotal: 3, wantNext: false},
	}
	for _, tt := range tests {
		got, err := Paginate(items, tt.page, 10)
		if err != nil {
			t.Fatalf("Paginate(%d): %v", tt.page, err)
		}
		if len(got.Items) != tt.wantLen || got.Page != tt.wantPage || got.TotalPages != tt.wantTotal || got.HasNextPage != tt.wantNext {
			t.Errorf("Paginate(%d) = len %d page %d total %d next %v", tt.page, len(got.Items), got.Page, got.TotalPages, got.HasNextPage)
		}
	}

	if _, err := Paginate(items, 3, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("page past end: err = %v", err)
	}
	if _, err := Paginate([]int{}, 0, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("empty list: err = %v", err)
	}
}

func assertOrder(t *testing.T, items []CryptoAggregate, ids ...string) {
	t.Helper()
	for i, id := range ids {
		if items[i].Crypto.ID != id {
			got := make([]string, len(items))
			for j, it := range items {
				got[j] = it.Crypto.ID
			}
			t.Fatalf("order = %v, want %v", got, ids)
		}
	}
}
