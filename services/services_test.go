package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/transfer"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeSource serves canned coins; errs overrides the answer for an id
type fakeSource struct {
	mu    sync.Mutex
	coins map[string]models.CoinInfo
	errs  map[string]error
	calls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{coins: make(map[string]models.CoinInfo), errs: make(map[string]error)}
}

func (f *fakeSource) add(id, symbol, usd, eur, btc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coins[id] = models.CoinInfo{
		CryptoIdentity: models.CryptoIdentity{ID: id, Symbol: symbol, Name: id},
		MarketSnapshot: models.MarketSnapshot{
			CurrentPrice:  models.Prices{USD: d(usd), EUR: d(eur), BTC: d(btc)},
			MarketCapRank: len(f.coins) + 1,
			LastUpdated:   testNow,
		},
	}
}

func (f *fakeSource) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeSource) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSource) ListIdentities(ctx context.Context) ([]models.CryptoIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []models.CryptoIdentity
	for _, c := range f.coins {
		ids = append(ids, c.CryptoIdentity)
	}
	return ids, nil
}

func (f *fakeSource) GetSnapshot(ctx context.Context, id string) (models.CoinInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return models.CoinInfo{}, err
	}
	info, ok := f.coins[id]
	if !ok {
		return models.CoinInfo{}, marketdata.ErrCoinNotFound
	}
	return info, nil
}

func (f *fakeSource) GetSnapshots(ctx context.Context, ids []string) (map[string]models.CoinInfo, error) {
	out := make(map[string]models.CoinInfo)
	for _, id := range ids {
		info, err := f.GetSnapshot(ctx, id)
		if err != nil {
			continue
		}
		out[id] = info
	}
	return out, nil
}

// recordingNotifier keeps every broadcast event type
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == eventType {
			c++
		}
	}
	return c
}

type testEnv struct {
	db          *gorm.DB
	source      *fakeSource
	notifier    *recordingNotifier
	caches      *Caches
	cryptoRepo  *repository.CryptoRepository
	cryptos     *CryptoService
	platforms   *PlatformService
	holdings    *UserCryptoService
	insights    *InsightsService
	transfers   *TransferService
	balances    *DateBalanceService
	refresher   *PriceRefresher
	holdingRepo *repository.UserCryptoRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.MigrateModels(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	caches, err := NewCaches(cache.NewRegistry(cache.DefaultTierConfigs(), cache.MemoryFactory(nil)))
	if err != nil {
		t.Fatalf("caches: %v", err)
	}

	env := &testEnv{
		db:          db,
		source:      newFakeSource(),
		notifier:    &recordingNotifier{},
		caches:      caches,
		cryptoRepo:  repository.NewCryptoRepository(db),
		holdingRepo: repository.NewUserCryptoRepository(db),
	}
	env.source.add("bitcoin", "btc", "60000", "55000", "1")
	env.source.add("ethereum", "eth", "3000", "2750", "0.05")
	env.source.add("tether", "usdt", "1", "0.92", "0.0000166")

	env.cryptos = NewCryptoService(env.cryptoRepo, env.source, caches)
	env.cryptos.now = func() time.Time { return testNow }
	env.platforms = NewPlatformService(repository.NewPlatformRepository(db), env.cryptos, caches)
	env.holdings = NewUserCryptoService(env.holdingRepo, env.platforms, env.cryptos, caches, 2)
	env.insights = NewInsightsService(env.holdings, env.cryptos, env.platforms, 2)
	env.transfers = NewTransferService(env.holdingRepo, env.platforms, caches)
	env.balances = NewDateBalanceService(repository.NewDateBalanceRepository(db), env.insights, env.notifier)
	env.refresher = NewPriceRefresher(env.cryptoRepo, env.source, caches, env.notifier, RefreshConfig{BatchSize: 10, Staleness: 5 * time.Minute})
	return env
}

func (e *testEnv) platform(t *testing.T, name string) models.Platform {
	t.Helper()
	p, err := e.platforms.SavePlatform(context.Background(), name)
	if err != nil {
		t.Fatalf("SavePlatform(%s): %v", name, err)
	}
	return p
}

func (e *testEnv) holding(t *testing.T, cryptoID, platformID, quantity string) models.UserCrypto {
	t.Helper()
	h, err := e.holdings.SaveUserCrypto(context.Background(), UserCryptoInput{CryptoID: cryptoID, PlatformID: platformID, Quantity: d(quantity)})
	if err != nil {
		t.Fatalf("SaveUserCrypto(%s): %v", cryptoID, err)
	}
	return h
}

func TestRetrieveOrCreateCrypto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	crypto, err := env.cryptos.RetrieveOrCreateCrypto(ctx, " Bitcoin ")
	if err != nil {
		t.Fatalf("RetrieveOrCreateCrypto: %v", err)
	}
	if crypto.ID != "bitcoin" || !crypto.LastKnownPrice.Equal(d("60000")) || !crypto.LastUpdatedAt.Equal(testNow) {
		t.Errorf("crypto = %+v", crypto)
	}
	if _, err := env.cryptos.RetrieveOrCreateCrypto(ctx, "bitcoin"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if calls := env.source.fetched(); len(calls) != 1 {
		t.Errorf("source called %d times, want 1", len(calls))
	}

	if _, err := env.cryptos.RetrieveOrCreateCrypto(ctx, "not-a-coin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := env.cryptos.RetrieveCrypto(ctx, "dogecoin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func seedCrypto(t *testing.T, env *testEnv, id string, price string, updated time.Time) {
	t.Helper()
	c := models.Crypto{ID: id, Symbol: id[:3], Name: id, LastKnownPrice: d(price), LastKnownPriceInEUR: d(price), LastKnownPriceInBTC: d("1"), LastUpdatedAt: updated}
	if err := env.db.Create(&c).Error; err != nil {
		t.Fatalf("seed crypto: %v", err)
	}
}

func TestPriceRefreshSkipsFailuresAndAbortsOnRateLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := testNow.Add(-time.Hour)
	seedCrypto(t, env, "bitcoin", "1", old)
	seedCrypto(t, env, "ethereum", "1", old.Add(time.Minute))
	seedCrypto(t, env, "solana", "1", old.Add(2*time.Minute))
	seedCrypto(t, env, "cardano", "1", old.Add(3*time.Minute))
	seedCrypto(t, env, "tether", "1", testNow.Add(-time.Minute))

	env.source.fail("ethereum", errors.New("connection reset"))
	env.source.fail("solana", fmt.Errorf("coingecko: %w", marketdata.ErrRateLimited))

	// prime the crypto cache so the refresh has something to invalidate
	if _, err := env.cryptos.RetrieveCrypto(ctx, "bitcoin"); err != nil {
		t.Fatalf("RetrieveCrypto: %v", err)
	}

	report, err := env.refresher.Run(ctx, testNow)
	if !marketdata.IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limit", err)
	}
	if report.Selected != 4 || report.Updated != 1 || report.Skipped != 1 || !report.Aborted {
		t.Errorf("report = %+v", report)
	}
	if calls := env.source.fetched(); strings.Join(calls, ",") != "bitcoin,ethereum,solana" {
		t.Errorf("fetched %v", calls)
	}

	btc, _ := env.cryptos.RetrieveCrypto(ctx, "bitcoin")
	if !btc.LastKnownPrice.Equal(d("60000")) || !btc.LastUpdatedAt.Equal(testNow) {
		t.Errorf("bitcoin not refreshed: %s %s", btc.LastKnownPrice, btc.LastUpdatedAt)
	}
	for id, updated := range map[string]time.Time{
		"ethereum": old.Add(time.Minute),
		"solana":   old.Add(2 * time.Minute),
		"cardano":  old.Add(3 * time.Minute),
	} {
		c, err := env.cryptoRepo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID(%s): %v", id, err)
		}
		if !c.LastUpdatedAt.Equal(updated) || !c.LastKnownPrice.Equal(d("1")) {
			t.Errorf("%s changed: %s %s", id, c.LastKnownPrice, c.LastUpdatedAt)
		}
	}
	if env.notifier.count(EventCryptoPricesRefreshed) != 1 {
		t.Error("expected one refresh event")
	}
}

func TestPriceRefreshNothingStale(t *testing.T) {
	env := newTestEnv(t)
	seedCrypto(t, env, "bitcoin", "1", testNow.Add(-time.Minute))

	report, err := env.refresher.Run(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Selected != 0 || len(env.source.fetched()) != 0 {
		t.Errorf("report = %+v", report)
	}
	if env.notifier.count(EventCryptoPricesRefreshed) != 0 {
		t.Error("no event expected")
	}
}

func TestPlatformLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.platform(t, "  binance  ")
	if p.Name != "BINANCE" {
		t.Errorf("name = %q", p.Name)
	}
	if _, err := env.platforms.SavePlatform(ctx, "Binance"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
	if _, err := env.platforms.SavePlatform(ctx, "bad/name"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	all, _ := env.platforms.RetrieveAllPlatforms(ctx)
	if len(all) != 1 {
		t.Fatalf("platforms = %d", len(all))
	}

	renamed, err := env.platforms.UpdatePlatform(ctx, p.ID, "binance us")
	if err != nil {
		t.Fatalf("UpdatePlatform: %v", err)
	}
	got, _ := env.platforms.RetrievePlatform(ctx, p.ID)
	if renamed.Name != "BINANCE US" || got.Name != "BINANCE US" {
		t.Errorf("renamed = %q, cached = %q", renamed.Name, got.Name)
	}

	env.holding(t, "bitcoin", p.ID, "1")
	if err := env.platforms.DeletePlatform(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlatform: %v", err)
	}
	if _, err := env.platforms.RetrievePlatform(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	holdings, _ := env.holdings.FindAll(ctx)
	if len(holdings) != 0 {
		t.Errorf("holdings left: %d", len(holdings))
	}
	if _, err := env.cryptoRepo.FindByID(ctx, "bitcoin"); !repository.IsNotFound(err) {
		t.Errorf("unused crypto kept, err = %v", err)
	}
}

func TestUserCryptoCachesFollowWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	binance := env.platform(t, "binance")
	ledger := env.platform(t, "ledger")

	byPlatform, _ := env.holdings.FindByPlatform(ctx, binance.ID)
	if len(byPlatform) != 0 {
		t.Fatalf("expected empty platform")
	}

	h := env.holding(t, "bitcoin", binance.ID, "0.5")
	if _, err := env.holdings.SaveUserCrypto(ctx, UserCryptoInput{CryptoID: "bitcoin", PlatformID: binance.ID, Quantity: d("1")}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
	if _, err := env.holdings.SaveUserCrypto(ctx, UserCryptoInput{CryptoID: "bitcoin", PlatformID: ledger.ID, Quantity: d("0")}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	byPlatform, _ = env.holdings.FindByPlatform(ctx, binance.ID)
	if len(byPlatform) != 1 {
		t.Fatalf("stale by-platform read after create: %d", len(byPlatform))
	}

	if _, err := env.holdings.UpdateUserCrypto(ctx, h.ID, UserCryptoInput{PlatformID: ledger.ID, Quantity: d("0.75")}); err != nil {
		t.Fatalf("UpdateUserCrypto: %v", err)
	}
	byPlatform, _ = env.holdings.FindByPlatform(ctx, binance.ID)
	onLedger, _ := env.holdings.FindByPlatform(ctx, ledger.ID)
	byCrypto, _ := env.holdings.FindByCrypto(ctx, "bitcoin")
	if len(byPlatform) != 0 || len(onLedger) != 1 || !byCrypto[0].Quantity.Equal(d("0.75")) {
		t.Errorf("stale reads after update: %d %d %v", len(byPlatform), len(onLedger), byCrypto)
	}

	if err := env.holdings.DeleteUserCrypto(ctx, h.ID); err != nil {
		t.Fatalf("DeleteUserCrypto: %v", err)
	}
	all, _ := env.holdings.FindAll(ctx)
	if len(all) != 0 {
		t.Errorf("stale read after delete: %d", len(all))
	}
	if _, err := env.cryptoRepo.FindByID(ctx, "bitcoin"); !repository.IsNotFound(err) {
		t.Errorf("unused crypto kept, err = %v", err)
	}
}

// racingStore runs afterRead once, right after the first holding read
type racingStore struct {
	*repository.UserCryptoRepository
	afterRead func()
}

func (r *racingStore) FindByID(ctx context.Context, id string) (models.UserCrypto, error) {
	h, err := r.UserCryptoRepository.FindByID(ctx, id)
	if r.afterRead != nil {
		f := r.afterRead
		r.afterRead = nil
		f()
	}
	return h, err
}

func TestUpdateQuantityRejectsConcurrentChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	binance := env.platform(t, "binance")
	h := env.holding(t, "bitcoin", binance.ID, "1")

	store := &racingStore{UserCryptoRepository: env.holdingRepo}
	store.afterRead = func() {
		// a transfer drains part of the holding between read and write
		if err := env.holdingRepo.UpdateQuantity(ctx, h.ID, d("1"), d("0.4")); err != nil {
			t.Fatalf("UpdateQuantity: %v", err)
		}
	}
	holdings := NewUserCryptoService(store, env.platforms, env.cryptos, env.caches, 2)

	_, err := holdings.UpdateUserCrypto(ctx, h.ID, UserCryptoInput{PlatformID: binance.ID, Quantity: d("2")})
	if !errors.Is(err, repository.ErrStaleQuantity) {
		t.Fatalf("err = %v, want ErrStaleQuantity", err)
	}
	stored, _ := env.holdingRepo.FindByID(ctx, h.ID)
	if !stored.Quantity.Equal(d("0.4")) {
		t.Errorf("quantity = %s, concurrent write lost", stored.Quantity)
	}

	updated, err := holdings.UpdateUserCrypto(ctx, h.ID, UserCryptoInput{PlatformID: binance.ID, Quantity: d("2")})
	if err != nil {
		t.Fatalf("UpdateUserCrypto after re-read: %v", err)
	}
	if !updated.Quantity.Equal(d("2")) {
		t.Errorf("quantity = %s, want 2", updated.Quantity)
	}
	byCrypto, _ := holdings.FindByCrypto(ctx, "bitcoin")
	if len(byCrypto) != 1 || !byCrypto[0].Quantity.Equal(d("2")) {
		t.Errorf("stale read after update: %v", byCrypto)
	}
}

func TestUserCryptosPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.holdings.RetrieveUserCryptosPage(ctx, 0); !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}

	p := env.platform(t, "binance")
	env.holding(t, "bitcoin", p.ID, "1")
	env.holding(t, "ethereum", p.ID, "2")
	env.holding(t, "tether", p.ID, "3")

	first, err := env.holdings.RetrieveUserCryptosPage(ctx, 0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if first.Page != 1 || first.TotalPages != 2 || !first.HasNextPage || len(first.Items) != 2 {
		t.Errorf("page 0 = %+v", first)
	}
	second, _ := env.holdings.RetrieveUserCryptosPage(ctx, 1)
	if second.HasNextPage || len(second.Items) != 1 {
		t.Errorf("page 1 = %+v", second)
	}
}

func TestInsights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.insights.RetrievePlatformsBalancesInsights(ctx); !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
	total, err := env.insights.TotalBalances(ctx)
	if err != nil || !total.TotalUSDBalance.IsZero() {
		t.Errorf("empty total = %+v, %v", total, err)
	}

	binance := env.platform(t, "binance")
	ledger := env.platform(t, "ledger")
	env.holding(t, "bitcoin", binance.ID, "0.1")
	env.holding(t, "ethereum", binance.ID, "1")
	env.holding(t, "bitcoin", ledger.ID, "0.05")

	total, _ = env.insights.TotalBalances(ctx)
	if !total.TotalUSDBalance.Equal(d("12000")) {
		t.Errorf("usd total = %s, want 12000", total.TotalUSDBalance)
	}

	platforms, err := env.insights.RetrievePlatformsBalancesInsights(ctx)
	if err != nil {
		t.Fatalf("platforms insights: %v", err)
	}
	if platforms.Platforms[0].Name != "BINANCE" || platforms.Platforms[0].Percentage != 75 {
		t.Errorf("platforms = %+v", platforms.Platforms)
	}

	cryptos, err := env.insights.RetrieveCryptosBalancesInsights(ctx, valuation.DefaultSortParams)
	if err != nil {
		t.Fatalf("cryptos insights: %v", err)
	}
	if len(cryptos.Cryptos) != 2 || cryptos.Cryptos[0].ID != "bitcoin" || len(cryptos.Cryptos[0].Platforms) != 2 {
		t.Errorf("cryptos = %+v", cryptos.Cryptos)
	}

	page, err := env.insights.RetrieveCryptosInsightsPage(ctx, 0, valuation.DefaultSortParams)
	if err != nil || page.HasNextPage || page.TotalPages != 1 {
		t.Errorf("page = %+v, %v", page, err)
	}

	onBinance, err := env.insights.RetrievePlatformInsights(ctx, binance.ID, valuation.DefaultSortParams)
	if err != nil {
		t.Fatalf("platform insights: %v", err)
	}
	if onBinance.PlatformName != "BINANCE" || len(onBinance.Cryptos) != 2 {
		t.Errorf("platform insights = %+v", onBinance)
	}

	btc, err := env.insights.RetrieveCryptoInsights(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("crypto insights: %v", err)
	}
	sum := 0.0
	for _, p := range btc.Platforms {
		sum += p.Percentage
	}
	if len(btc.Platforms) != 2 || sum < 99.99 || sum > 100.01 {
		t.Errorf("crypto insights = %+v", btc)
	}
	if _, err := env.insights.RetrieveCryptoInsights(ctx, "tether"); !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
}

func TestTransferCrypto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	binance := env.platform(t, "binance")
	ledger := env.platform(t, "ledger")
	source := env.holding(t, "bitcoin", binance.ID, "10")

	onLedger, _ := env.holdings.FindByPlatform(ctx, ledger.ID)
	if len(onLedger) != 0 {
		t.Fatal("expected empty ledger")
	}

	resp, err := env.transfers.TransferCrypto(ctx, TransferRequest{
		UserCryptoID:       source.ID,
		QuantityToTransfer: d("4"),
		NetworkFee:         d("0.5"),
		ToPlatformID:       ledger.ID,
	})
	if err != nil {
		t.Fatalf("partial transfer: %v", err)
	}
	if resp.From.RemainingCryptoQuantity.String() != "6" || resp.To.QuantityToReceive.String() != "3.5" {
		t.Errorf("response = %+v", resp)
	}

	onLedger, _ = env.holdings.FindByPlatform(ctx, ledger.ID)
	if len(onLedger) != 1 || !onLedger[0].Quantity.Equal(d("3.5")) {
		t.Errorf("ledger after transfer = %+v", onLedger)
	}

	resp, err = env.transfers.TransferCrypto(ctx, TransferRequest{
		UserCryptoID:       source.ID,
		QuantityToTransfer: d("6"),
		NetworkFee:         d("0.5"),
		SendFullQuantity:   true,
		ToPlatformID:       ledger.ID,
	})
	if err != nil {
		t.Fatalf("full transfer: %v", err)
	}
	if !resp.To.NewQuantity.Equal(d("9")) {
		t.Errorf("destination = %s, want 9", resp.To.NewQuantity)
	}
	if _, err := env.holdings.RetrieveUserCrypto(ctx, source.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("drained source should be gone, err = %v", err)
	}
	onBinance, _ := env.holdings.FindByPlatform(ctx, binance.ID)
	if len(onBinance) != 0 {
		t.Errorf("stale binance read: %+v", onBinance)
	}
}

func TestTransferCryptoErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	binance := env.platform(t, "binance")
	ledger := env.platform(t, "ledger")
	source := env.holding(t, "bitcoin", binance.ID, "1")

	tests := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"same platform", TransferRequest{UserCryptoID: source.ID, QuantityToTransfer: d("0.5"), ToPlatformID: binance.ID}, ErrSamePlatform},
		{"unknown holding", TransferRequest{UserCryptoID: "missing", QuantityToTransfer: d("0.5"), ToPlatformID: ledger.ID}, ErrNotFound},
		{"unknown platform", TransferRequest{UserCryptoID: source.ID, QuantityToTransfer: d("0.5"), ToPlatformID: "missing"}, ErrNotFound},
		{"too much", TransferRequest{UserCryptoID: source.ID, QuantityToTransfer: d("2"), ToPlatformID: ledger.ID}, transfer.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.transfers.TransferCrypto(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecordDailyBalanceIsIdempotentPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.platform(t, "binance")
	h := env.holding(t, "bitcoin", p.ID, "1")

	first, err := env.balances.RecordDailyBalance(ctx, testNow)
	if err != nil {
		t.Fatalf("RecordDailyBalance: %v", err)
	}
	if _, err := env.holdings.UpdateUserCrypto(ctx, h.ID, UserCryptoInput{PlatformID: p.ID, Quantity: d("2")}); err != nil {
		t.Fatalf("UpdateUserCrypto: %v", err)
	}
	second, err := env.balances.RecordDailyBalance(ctx, testNow.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("RecordDailyBalance again: %v", err)
	}

	if first.ID != second.ID || !second.USDBalance.Equal(d("120000")) {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
	var count int64
	env.db.Model(&models.DateBalance{}).Count(&count)
	if count != 1 {
		t.Errorf("points = %d, want 1", count)
	}
	if env.notifier.count(EventBalanceSnapshotRecorded) != 2 {
		t.Error("expected two snapshot events")
	}
}

func TestRetrieveDatesBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := repository.NewDateBalanceRepository(env.db)

	for date, usd := range map[string]string{"2024-04-25": "100", "2024-04-28": "150", "2024-05-01": "125"} {
		if _, err := store.Upsert(ctx, models.DateBalance{Date: date, USDBalance: d(usd), EURBalance: d(usd), BTCBalance: d("1")}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	resp, err := env.balances.RetrieveDatesBalancesForRange(ctx, OneWeek, testNow)
	if err != nil {
		t.Fatalf("RetrieveDatesBalancesForRange: %v", err)
	}
	if len(resp.DatesBalances) != 3 || resp.DatesBalances[0].Date != "2024-04-25" {
		t.Errorf("points = %+v", resp.DatesBalances)
	}
	if !resp.Change.USDDifference.Equal(d("25")) || resp.Change.USDPercentage != 25 || resp.Change.BTCPercentage != 0 {
		t.Errorf("change = %+v", resp.Change)
	}

	empty, err := env.balances.RetrieveDatesBalances(ctx, testNow.AddDate(1, 0, 0), testNow.AddDate(1, 0, 1))
	if err != nil || len(empty.DatesBalances) != 0 {
		t.Errorf("empty range = %+v, %v", empty, err)
	}
	if _, err := env.balances.RetrieveDatesBalances(ctx, testNow, testNow.AddDate(0, 0, -1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := ParseDateRange("one_month"); err != nil {
		t.Errorf("ParseDateRange: %v", err)
	}
}
