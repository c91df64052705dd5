package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/cache"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
	"github.com/shopspring/decimal"
)

// DefaultPageSize is the size of holding and insight pages
const DefaultPageSize = 10

// UserCryptoInput is a holding as submitted by the user
type UserCryptoInput struct {
	CryptoID   string          `json:"crypto_id" binding:"required"`
	PlatformID string          `json:"platform_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// UserCryptoService manages holdings and keeps their caches in sync
type UserCryptoService struct {
	holdings  UserCryptoStore
	platforms *PlatformService
	cryptos   *CryptoService
	caches    *Caches
	pageSize  int
}

// NewUserCryptoService creates a new holding service
func NewUserCryptoService(holdings UserCryptoStore, platforms *PlatformService, cryptos *CryptoService, caches *Caches, pageSize int) *UserCryptoService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &UserCryptoService{holdings: holdings, platforms: platforms, cryptos: cryptos, caches: caches, pageSize: pageSize}
}

// FindAll returns every holding
func (s *UserCryptoService) FindAll(ctx context.Context) ([]models.UserCrypto, error) {
	return s.caches.UserCryptos.GetOrCompute(ctx, cache.SingletonKey, s.holdings.FindAll)
}

// FindByPlatform returns the holdings on platformID
func (s *UserCryptoService) FindByPlatform(ctx context.Context, platformID string) ([]models.UserCrypto, error) {
	return s.caches.UserCryptosByPlatform.GetOrCompute(ctx, platformID, func(ctx context.Context) ([]models.UserCrypto, error) {
		return s.holdings.FindByPlatform(ctx, platformID)
	})
}

// FindByCrypto returns the holdings of cryptoID across platforms
func (s *UserCryptoService) FindByCrypto(ctx context.Context, cryptoID string) ([]models.UserCrypto, error) {
	return s.caches.UserCryptosByCrypto.GetOrCompute(ctx, cryptoID, func(ctx context.Context) ([]models.UserCrypto, error) {
		return s.holdings.FindByCrypto(ctx, cryptoID)
	})
}

// RetrieveUserCryptosPage returns the zero-based page of all holdings
func (s *UserCryptoService) RetrieveUserCryptosPage(ctx context.Context, page int) (valuation.Page[models.UserCrypto], error) {
	return s.caches.UserCryptosPage.GetOrCompute(ctx, cache.PageKey(page, s.pageSize), func(ctx context.Context) (valuation.Page[models.UserCrypto], error) {
		holdings, err := s.FindAll(ctx)
		if err != nil {
			return valuation.Page[models.UserCrypto]{}, err
		}
		if len(holdings) == 0 {
			return valuation.Page[models.UserCrypto]{}, ErrNoContent
		}
		return valuation.Paginate(holdings, page, s.pageSize)
	})
}

// RetrieveUserCrypto returns one holding
func (s *UserCryptoService) RetrieveUserCrypto(ctx context.Context, id string) (models.UserCrypto, error) {
	holding, err := s.holdings.FindByID(ctx, id)
	if err != nil {
		return models.UserCrypto{}, notFound(err, "holding "+id)
	}
	return holding, nil
}

// SaveUserCrypto creates a holding. The crypto record is created on first use.
func (s *UserCryptoService) SaveUserCrypto(ctx context.Context, input UserCryptoInput) (models.UserCrypto, error) {
	if !input.Quantity.IsPositive() {
		return models.UserCrypto{}, fmt.Errorf("quantity %s: %w", input.Quantity, ErrInvalidInput)
	}
	if _, err := s.platforms.RetrievePlatform(ctx, input.PlatformID); err != nil {
		return models.UserCrypto{}, err
	}
	crypto, err := s.cryptos.RetrieveOrCreateCrypto(ctx, input.CryptoID)
	if err != nil {
		return models.UserCrypto{}, err
	}

	_, err = s.holdings.FindByCryptoAndPlatform(ctx, crypto.ID, input.PlatformID)
	if err == nil {
		return models.UserCrypto{}, fmt.Errorf("holding of %s on platform %s: %w", crypto.ID, input.PlatformID, ErrDuplicate)
	}
	if !repository.IsNotFound(err) {
		return models.UserCrypto{}, err
	}

	holding := models.UserCrypto{CryptoID: crypto.ID, PlatformID: input.PlatformID, Quantity: input.Quantity}
	if err := s.holdings.Create(ctx, &holding); err != nil {
		if repository.IsDuplicate(err) {
			return models.UserCrypto{}, fmt.Errorf("holding of %s on platform %s: %w", crypto.ID, input.PlatformID, ErrDuplicate)
		}
		return models.UserCrypto{}, err
	}
	s.caches.InvalidateHoldings(ctx, holding)
	log.Printf("Saved %s %s on platform %s", holding.Quantity, crypto.ID, holding.PlatformID)
	return holding, nil
}

// UpdateUserCrypto changes the quantity or platform of a holding. The crypto
// itself cannot change.
func (s *UserCryptoService) UpdateUserCrypto(ctx context.Context, id string, input UserCryptoInput) (models.UserCrypto, error) {
	if !input.Quantity.IsPositive() {
		return models.UserCrypto{}, fmt.Errorf("quantity %s: %w", input.Quantity, ErrInvalidInput)
	}
	current, err := s.RetrieveUserCrypto(ctx, id)
	if err != nil {
		return models.UserCrypto{}, err
	}
	if input.CryptoID != "" && input.CryptoID != current.CryptoID {
		return models.UserCrypto{}, fmt.Errorf("crypto of holding %s cannot change: %w", id, ErrInvalidInput)
	}
	if _, err := s.platforms.RetrievePlatform(ctx, input.PlatformID); err != nil {
		return models.UserCrypto{}, err
	}
	if input.PlatformID != current.PlatformID {
		_, err := s.holdings.FindByCryptoAndPlatform(ctx, current.CryptoID, input.PlatformID)
		if err == nil {
			return models.UserCrypto{}, fmt.Errorf("holding of %s on platform %s: %w", current.CryptoID, input.PlatformID, ErrDuplicate)
		}
		if !repository.IsNotFound(err) {
			return models.UserCrypto{}, err
		}
	}

	updated := current
	updated.Quantity = input.Quantity
	updated.PlatformID = input.PlatformID
	if input.PlatformID == current.PlatformID {
		// quantity-only edits must not overwrite a concurrent transfer
		if err := s.holdings.UpdateQuantity(ctx, id, current.Quantity, input.Quantity); err != nil {
			return models.UserCrypto{}, notFound(err, "holding "+id)
		}
		s.caches.InvalidateHoldings(ctx, current, updated)
		return updated, nil
	}
	if err := s.holdings.Update(ctx, &updated); err != nil {
		if repository.IsDuplicate(err) {
			return models.UserCrypto{}, fmt.Errorf("holding of %s on platform %s: %w", current.CryptoID, input.PlatformID, ErrDuplicate)
		}
		return models.UserCrypto{}, notFound(err, "holding "+id)
	}
	s.caches.InvalidateHoldings(ctx, current, updated)
	return updated, nil
}

// DeleteUserCrypto removes a holding and drops its crypto once unreferenced
func (s *UserCryptoService) DeleteUserCrypto(ctx context.Context, id string) error {
	holding, err := s.RetrieveUserCrypto(ctx, id)
	if err != nil {
		return err
	}
	if err := s.holdings.Delete(ctx, id); err != nil {
		return notFound(err, "holding "+id)
	}
	s.caches.InvalidateHoldings(ctx, holding)

	if _, err := s.cryptos.DeleteCryptoIfNotUsed(ctx, holding.CryptoID); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("Error deleting unused crypto %s: %v", holding.CryptoID, err)
	}
	return nil
}
