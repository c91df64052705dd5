package marketdata

import (
	"context"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
)

// CachedSource serves request-path lookups from cache tiers. The price
// refresh job must use the underlying source directly.
type CachedSource struct {
	source      Source
	coinList    *cache.Tier[[]models.CryptoIdentity]
	coinInfo    *cache.Tier[models.CoinInfo]
	coinInfoSet *cache.Tier[map[string]models.CoinInfo]
}

// NewCachedSource wraps source with the coin list and coin info tiers
func NewCachedSource(source Source, registry *cache.Registry) (*CachedSource, error) {
	coinList, err := cache.Build[[]models.CryptoIdentity](registry, cache.CoinListTier)
	if err != nil {
		return nil, err
	}
	coinInfo, err := cache.Build[models.CoinInfo](registry, cache.CoinInfoTier)
	if err != nil {
		return nil, err
	}
	coinInfoSet, err := cache.Build[map[string]models.CoinInfo](registry, cache.CoinInfoSetTier)
	if err != nil {
		return nil, err
	}
	return &CachedSource{source: source, coinList: coinList, coinInfo: coinInfo, coinInfoSet: coinInfoSet}, nil
}

func (s *CachedSource) ListIdentities(ctx context.Context) ([]models.CryptoIdentity, error) {
	return s.coinList.GetOrCompute(ctx, cache.SingletonKey, s.source.ListIdentities)
}

func (s *CachedSource) GetSnapshot(ctx context.Context, id string) (models.CoinInfo, error) {
	return s.coinInfo.GetOrCompute(ctx, id, func(ctx context.Context) (models.CoinInfo, error) {
		return s.source.GetSnapshot(ctx, id)
	})
}

// GetSnapshots caches complete results only. A failed lookup is never stored.
func (s *CachedSource) GetSnapshots(ctx context.Context, ids []string) (map[string]models.CoinInfo, error) {
	return s.coinInfoSet.GetOrCompute(ctx, cache.IDSetKey(normalizeIDs(ids)), func(ctx context.Context) (map[string]models.CoinInfo, error) {
		return s.source.GetSnapshots(ctx, ids)
	})
}
