package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
)

// CryptoService resolves crypto records, creating them from market data the
// first time they are referenced.
type CryptoService struct {
	cryptos CryptoStore
	source  marketdata.Source
	caches  *Caches
	now     func() time.Time
}

// NewCryptoService creates a new crypto service. source should be the cached
// market data source.
func NewCryptoService(cryptos CryptoStore, source marketdata.Source, caches *Caches) *CryptoService {
	return &CryptoService{cryptos: cryptos, source: source, caches: caches, now: time.Now}
}

// RetrieveCoinList returns every coin known upstream
func (s *CryptoService) RetrieveCoinList(ctx context.Context) ([]models.CryptoIdentity, error) {
	coins, err := s.source.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve coin list: %w", err)
	}
	return coins, nil
}

// LookupSnapshot returns live market data for one coin
func (s *CryptoService) LookupSnapshot(ctx context.Context, id string) (models.CoinInfo, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	info, err := s.source.GetSnapshot(ctx, id)
	if err != nil {
		return models.CoinInfo{}, fmt.Errorf("failed to retrieve market data of %s: %w", id, err)
	}
	return info, nil
}

// LookupSnapshots returns live market data for ids; unknown ids are absent
func (s *CryptoService) LookupSnapshots(ctx context.Context, ids []string) (map[string]models.CoinInfo, error) {
	snapshots, err := s.source.GetSnapshots(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve market data: %w", err)
	}
	return snapshots, nil
}

// RetrieveCrypto returns the stored record of id
func (s *CryptoService) RetrieveCrypto(ctx context.Context, id string) (models.Crypto, error) {
	return s.caches.Crypto.GetOrCompute(ctx, id, func(ctx context.Context) (models.Crypto, error) {
		crypto, err := s.cryptos.FindByID(ctx, id)
		if err != nil {
			return models.Crypto{}, notFound(err, "crypto "+id)
		}
		return crypto, nil
	})
}

// RetrieveCryptos returns the stored records of ids keyed by id
func (s *CryptoService) RetrieveCryptos(ctx context.Context, ids []string) (map[string]models.Crypto, error) {
	cryptos, err := s.caches.Cryptos.GetOrCompute(ctx, cache.IDSetKey(ids), func(ctx context.Context) ([]models.Crypto, error) {
		return s.cryptos.FindByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Crypto, len(cryptos))
	for _, c := range cryptos {
		byID[c.ID] = c
	}
	return byID, nil
}

// RetrieveOrCreateCrypto returns the record of id, fetching its market data
// and storing it when the crypto has never been referenced.
func (s *CryptoService) RetrieveOrCreateCrypto(ctx context.Context, id string) (models.Crypto, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	crypto, err := s.cryptos.FindByID(ctx, id)
	if err == nil {
		return crypto, nil
	}
	if !repository.IsNotFound(err) {
		return models.Crypto{}, err
	}

	info, err := s.source.GetSnapshot(ctx, id)
	if err != nil {
		if errors.Is(err, marketdata.ErrCoinNotFound) {
			return models.Crypto{}, fmt.Errorf("coin %s: %w", id, ErrNotFound)
		}
		return models.Crypto{}, fmt.Errorf("failed to retrieve market data for %s: %w", id, err)
	}

	crypto = models.NewCryptoFromCoinInfo(info, s.now().UTC())
	if err := s.cryptos.Create(ctx, &crypto); err != nil {
		return models.Crypto{}, err
	}
	s.caches.InvalidateCryptos(ctx, crypto.ID)
	log.Printf("Saved crypto %s (%s)", crypto.ID, crypto.Symbol)

	return s.cryptos.FindByID(ctx, crypto.ID)
}

// DeleteCryptoIfNotUsed removes id once no holding, goal or price target
// references it.
func (s *CryptoService) DeleteCryptoIfNotUsed(ctx context.Context, id string) (bool, error) {
	deleted, err := s.cryptos.DeleteIfUnreferenced(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.caches.InvalidateCryptos(ctx, id)
		log.Printf("Deleted unused crypto %s", id)
	}
	return deleted, nil
}

// InvalidateCryptoCaches drops cached records of ids
func (s *CryptoService) InvalidateCryptoCaches(ctx context.Context, ids ...string) {
	s.caches.InvalidateCryptos(ctx, ids...)
}

func cryptoIDsOf(holdings []models.UserCrypto) []string {
	seen := make(map[string]struct{}, len(holdings))
	ids := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := seen[h.CryptoID]; ok {
			continue
		}
		seen[h.CryptoID] = struct{}{}
		ids = append(ids, h.CryptoID)
	}
	sort.Strings(ids)
	return ids
}
