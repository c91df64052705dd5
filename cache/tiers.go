package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyShape describes how entries of a tier are keyed
type KeyShape int

const (
	KeySingleton KeyShape = iota // one entry, key SingletonKey
	KeyID                        // one entry per id
	KeyIDSet                     // one entry per unordered id set, see IDSetKey
	KeyPage                      // one entry per page cursor, see PageKey
)

// Tier names
const (
	CoinListTier              = "coingecko_crypto_list"
	CoinInfoTier              = "coingecko_crypto_info"
	CoinInfoSetTier           = "coingecko_cryptos_info"
	PlatformsTier             = "platforms"
	PlatformTier              = "platform"
	UserCryptosTier           = "user_cryptos"
	UserCryptosPageTier       = "user_cryptos_page"
	UserCryptosByPlatformTier = "user_cryptos_platform_id"
	UserCryptosByCryptoTier   = "user_cryptos_coingecko_crypto_id"
	CryptoTier                = "crypto"
	CryptosTier               = "cryptos"
)

// TierConfig is the static policy of one tier. Eviction is always LRU once
// Capacity is reached; TTL applies regardless of invalidation.
type TierConfig struct {
	Name     string
	KeyShape KeyShape
	TTL      time.Duration
	Capacity int
}

// DefaultTierConfigs returns the startup table of every tier
func DefaultTierConfigs() []TierConfig {
	return []TierConfig{
		{Name: CoinListTier, KeyShape: KeySingleton, TTL: 3 * 24 * time.Hour, Capacity: 1},
		{Name: CoinInfoTier, KeyShape: KeyID, TTL: 5 * time.Minute, Capacity: 500},
		{Name: CoinInfoSetTier, KeyShape: KeyIDSet, TTL: 5 * time.Minute, Capacity: 50},
		{Name: PlatformsTier, KeyShape: KeySingleton, TTL: 7 * 24 * time.Hour, Capacity: 1},
		{Name: PlatformTier, KeyShape: KeyID, TTL: 7 * 24 * time.Hour, Capacity: 200},
		{Name: UserCryptosTier, KeyShape: KeySingleton, TTL: time.Hour, Capacity: 1},
		{Name: UserCryptosPageTier, KeyShape: KeyPage, TTL: time.Hour, Capacity: 100},
		{Name: UserCryptosByPlatformTier, KeyShape: KeyID, TTL: time.Hour, Capacity: 200},
		{Name: UserCryptosByCryptoTier, KeyShape: KeyID, TTL: time.Hour, Capacity: 500},
		{Name: CryptoTier, KeyShape: KeyID, TTL: 5 * time.Minute, Capacity: 500},
		{Name: CryptosTier, KeyShape: KeyIDSet, TTL: 5 * time.Minute, Capacity: 100},
	}
}

// BackendFactory builds the backend of a tier from its config
type BackendFactory func(cfg TierConfig) (Backend, error)

// MemoryFactory builds in-process LRU backends. now may be nil.
func MemoryFactory(now func() time.Time) BackendFactory {
	return func(cfg TierConfig) (Backend, error) {
		return NewMemoryBackend(cfg.Capacity, cfg.TTL, now)
	}
}

// RedisFactory builds redis backends sharing one client
func RedisFactory(client *redis.Client) BackendFactory {
	return func(cfg TierConfig) (Backend, error) {
		return NewRedisBackend(client, "cbt:"+cfg.Name, cfg.TTL), nil
	}
}

// Registry resolves tier configs by name and builds their backends
type Registry struct {
	configs map[string]TierConfig
	factory BackendFactory
}

// NewRegistry creates a registry over configs
func NewRegistry(configs []TierConfig, factory BackendFactory) *Registry {
	byName := make(map[string]TierConfig, len(configs))
	for _, c := range configs {
		byName[c.Name] = c
	}
	return &Registry{configs: byName, factory: factory}
}

// Backend builds the backend for the named tier
func (r *Registry) Backend(name string) (Backend, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache tier %q", name)
	}
	return r.factory(cfg)
}

// Build creates a typed tier from the registry
func Build[T any](r *Registry, name string) (*Tier[T], error) {
	backend, err := r.Backend(name)
	if err != nil {
		return nil, err
	}
	return NewTier[T](name, backend), nil
}

// SingletonKey is the key of no-argument lookups
const SingletonKey = "all"

// IDSetKey returns the same key for any ordering or duplication of ids
func IDSetKey(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}

// IDSetContains reports whether a key built by IDSetKey includes id
func IDSetContains(key, id string) bool {
	for _, part := range strings.Split(key, ",") {
		if part == id {
			return true
		}
	}
	return false
}

// PageKey returns the key of a paged lookup
func PageKey(page, size int) string {
	return fmt.Sprintf("page:%d:%d", page, size)
}
