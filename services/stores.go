package services

import (
	"context"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/shopspring/decimal"
)

// CryptoStore persists crypto records
type CryptoStore interface {
	FindByID(ctx context.Context, id string) (models.Crypto, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Crypto, error)
	FindStale(ctx context.Context, before time.Time, limit int) ([]models.Crypto, error)
	Create(ctx context.Context, crypto *models.Crypto) error
	SaveAll(ctx context.Context, cryptos []models.Crypto) error
	DeleteIfUnreferenced(ctx context.Context, id string) (bool, error)
}

// PlatformStore persists platforms
type PlatformStore interface {
	FindAll(ctx context.Context) ([]models.Platform, error)
	FindByID(ctx context.Context, id string) (models.Platform, error)
	FindByName(ctx context.Context, name string) (models.Platform, error)
	Create(ctx context.Context, platform *models.Platform) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) ([]models.UserCrypto, error)
}

// UserCryptoStore persists holdings
type UserCryptoStore interface {
	FindAll(ctx context.Context) ([]models.UserCrypto, error)
	FindByID(ctx context.Context, id string) (models.UserCrypto, error)
	FindByPlatform(ctx context.Context, platformID string) ([]models.UserCrypto, error)
	FindByCrypto(ctx context.Context, cryptoID string) ([]models.UserCrypto, error)
	FindByCryptoAndPlatform(ctx context.Context, cryptoID, platformID string) (models.UserCrypto, error)
	Create(ctx context.Context, holding *models.UserCrypto) error
	Update(ctx context.Context, holding *models.UserCrypto) error
	UpdateQuantity(ctx context.Context, id string, expected, quantity decimal.Decimal) error
	Delete(ctx context.Context, id string) error
	ApplyTransfer(ctx context.Context, change repository.TransferChange) (models.UserCrypto, error)
}

// DateBalanceStore persists the daily balance series
type DateBalanceStore interface {
	Upsert(ctx context.Context, balance models.DateBalance) (models.DateBalance, error)
	FindByDate(ctx context.Context, date string) (models.DateBalance, error)
	FindBetween(ctx context.Context, from, to string) ([]models.DateBalance, error)
}

// Notifier pushes events to connected clients
type Notifier interface {
	Broadcast(eventType string, data interface{})
}

// Events sent through Notifier
const (
	EventCryptoPricesRefreshed   = "crypto_prices_refreshed"
	EventBalanceSnapshotRecorded = "balance_snapshot_recorded"
)

func notify(n Notifier, eventType string, data interface{}) {
	if n != nil {
		n.Broadcast(eventType, data)
	}
}
