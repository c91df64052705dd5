// Package marketdata talks to the external price provider.
package marketdata

import (
	"context"
	"errors"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
)

var (
	// ErrRateLimited is returned when the provider refuses requests for now.
	// Background jobs abort their run on it and retry on the next trigger.
	ErrRateLimited = errors.New("market data provider rate limit reached")
	// ErrCoinNotFound is returned when the provider does not know the id.
	ErrCoinNotFound = errors.New("coin not found on market data provider")
)

// Source supplies coin identities and market snapshots.
type Source interface {
	ListIdentities(ctx context.Context) ([]models.CryptoIdentity, error)
	GetSnapshot(ctx context.Context, id string) (models.CoinInfo, error)
	// GetSnapshots returns what it could fetch. Unknown ids are absent from
	// the map and are not an error; any other failure is, and the partial
	// map comes with it.
	GetSnapshots(ctx context.Context, ids []string) (map[string]models.CoinInfo, error)
}

// IsRateLimited reports whether err carries the provider rate limit signal
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
