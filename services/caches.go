package services

import (
	"context"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
)

// Caches holds the request path tiers shared by the services
type Caches struct {
	Platforms             *cache.Tier[[]models.Platform]
	Platform              *cache.Tier[models.Platform]
	UserCryptos           *cache.Tier[[]models.UserCrypto]
	UserCryptosPage       *cache.Tier[valuation.Page[models.UserCrypto]]
	UserCryptosByPlatform *cache.Tier[[]models.UserCrypto]
	UserCryptosByCrypto   *cache.Tier[[]models.UserCrypto]
	Crypto                *cache.Tier[models.Crypto]
	Cryptos               *cache.Tier[[]models.Crypto]
}

// NewCaches builds every service tier from registry
func NewCaches(registry *cache.Registry) (*Caches, error) {
	var (
		c   Caches
		err error
	)
	if c.Platforms, err = cache.Build[[]models.Platform](registry, cache.PlatformsTier); err != nil {
		return nil, err
	}
	if c.Platform, err = cache.Build[models.Platform](registry, cache.PlatformTier); err != nil {
		return nil, err
	}
	if c.UserCryptos, err = cache.Build[[]models.UserCrypto](registry, cache.UserCryptosTier); err != nil {
		return nil, err
	}
	if c.UserCryptosPage, err = cache.Build[valuation.Page[models.UserCrypto]](registry, cache.UserCryptosPageTier); err != nil {
		return nil, err
	}
	if c.UserCryptosByPlatform, err = cache.Build[[]models.UserCrypto](registry, cache.UserCryptosByPlatformTier); err != nil {
		return nil, err
	}
	if c.UserCryptosByCrypto, err = cache.Build[[]models.UserCrypto](registry, cache.UserCryptosByCryptoTier); err != nil {
		return nil, err
	}
	if c.Crypto, err = cache.Build[models.Crypto](registry, cache.CryptoTier); err != nil {
		return nil, err
	}
	if c.Cryptos, err = cache.Build[[]models.Crypto](registry, cache.CryptosTier); err != nil {
		return nil, err
	}
	return &c, nil
}

// InvalidateHoldings drops every entry that could include one of holdings
func (c *Caches) InvalidateHoldings(ctx context.Context, holdings ...models.UserCrypto) {
	c.UserCryptos.InvalidateAll(ctx)
	c.UserCryptosPage.InvalidateAll(ctx)
	for _, h := range holdings {
		c.UserCryptosByPlatform.InvalidateKeys(ctx, h.PlatformID)
		c.UserCryptosByCrypto.InvalidateKeys(ctx, h.CryptoID)
	}
}

// InvalidateCryptos drops cached records of ids and every id set containing one
func (c *Caches) InvalidateCryptos(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	c.Crypto.InvalidateKeys(ctx, ids...)
	c.Cryptos.Invalidate(ctx, func(key string) bool {
		for _, id := range ids {
			if cache.IDSetContains(key, id) {
				return true
			}
		}
		return false
	})
}

// InvalidatePlatform drops the platform list and the entry of id
func (c *Caches) InvalidatePlatform(ctx context.Context, id string) {
	c.Platforms.InvalidateAll(ctx)
	c.Platform.InvalidateKeys(ctx, id)
}
