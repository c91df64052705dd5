package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserCryptoRepository stores holdings
type UserCryptoRepository struct {
	db *gorm.DB
}

// NewUserCryptoRepository creates a new holding repository
func NewUserCryptoRepository(db *gorm.DB) *UserCryptoRepository {
	return &UserCryptoRepository{db: db}
}

// TransferChange is the write half of a transfer. Source and Destination
// carry the quantities that were read; the write only succeeds if they are
// still current.
type TransferChange struct {
	Source                 models.UserCrypto
	Remaining              decimal.Decimal
	Destination            *models.UserCrypto
	DestinationPlatformID  string
	NewDestinationQuantity decimal.Decimal
}

// FindAll returns every holding in insertion order
func (r *UserCryptoRepository) FindAll(ctx context.Context) ([]models.UserCrypto, error) {
	return r.find(ctx, "")
}

// FindByPlatform returns the holdings on one platform
func (r *UserCryptoRepository) FindByPlatform(ctx context.Context, platformID string) ([]models.UserCrypto, error) {
	return r.find(ctx, "platform_id = ?", platformID)
}

// FindByCrypto returns the holdings of one crypto across platforms
func (r *UserCryptoRepository) FindByCrypto(ctx context.Context, cryptoID string) ([]models.UserCrypto, error) {
	return r.find(ctx, "crypto_id = ?", cryptoID)
}

func (r *UserCryptoRepository) find(ctx context.Context, where string, args ...interface{}) ([]models.UserCrypto, error) {
	var holdings []models.UserCrypto
	query := r.db.WithContext(ctx)
	if where != "" {
		query = query.Where(where, args...)
	}
	if err := query.Order("created_at, id").Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("failed to find holdings: %w", err)
	}
	return holdings, nil
}

// FindByID returns one holding
func (r *UserCryptoRepository) FindByID(ctx context.Context, id string) (models.UserCrypto, error) {
	var holding models.UserCrypto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&holding).Error; err != nil {
		return models.UserCrypto{}, fmt.Errorf("failed to find holding %s: %w", id, err)
	}
	return holding, nil
}

// FindByCryptoAndPlatform returns the holding of a crypto on a platform
func (r *UserCryptoRepository) FindByCryptoAndPlatform(ctx context.Context, cryptoID, platformID string) (models.UserCrypto, error) {
	var holding models.UserCrypto
	err := r.db.WithContext(ctx).
		Where("crypto_id = ? AND platform_id = ?", cryptoID, platformID).
		First(&holding).Error
	if err != nil {
		return models.UserCrypto{}, fmt.Errorf("failed to find %s holding on platform %s: %w", cryptoID, platformID, err)
	}
	return holding, nil
}

// Create inserts a holding, assigning an id when empty
func (r *UserCryptoRepository) Create(ctx context.Context, holding *models.UserCrypto) error {
	if holding.ID == "" {
		holding.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(holding).Error; err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a holding if it still equals expected
func (r *UserCryptoRepository) UpdateQuantity(ctx context.Context, id string, expected, quantity decimal.Decimal) error {
	return casQuantity(r.db.WithContext(ctx), id, expected, quantity)
}

// Update replaces the quantity and platform of a holding
func (r *UserCryptoRepository) Update(ctx context.Context, holding *models.UserCrypto) error {
	result := r.db.WithContext(ctx).Model(&models.UserCrypto{}).
		Where("id = ?", holding.ID).
		Updates(map[string]interface{}{"quantity": holding.Quantity, "platform_id": holding.PlatformID})
	if result.Error != nil {
		return fmt.Errorf("failed to update holding %s: %w", holding.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update holding %s: %w", holding.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a holding
func (r *UserCryptoRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UserCrypto{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete holding %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete holding %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// ApplyTransfer debits the source and credits the destination in one
// transaction. A source drained to zero is deleted and a missing destination
// is created. ErrStaleQuantity is returned, and nothing is written, when
// either holding changed since it was read.
func (r *UserCryptoRepository) ApplyTransfer(ctx context.Context, change TransferChange) (models.UserCrypto, error) {
	var destination models.UserCrypto
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source := change.Source
		if change.Remaining.IsZero() {
			result := tx.Where("id = ? AND quantity = ?", source.ID, source.Quantity).Delete(&models.UserCrypto{})
			if result.Error != nil {
				return fmt.Errorf("failed to delete source holding %s: %w", source.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrStaleQuantity
			}
		} else if err := casQuantity(tx, source.ID, source.Quantity, change.Remaining); err != nil {
			return err
		}

		if change.Destination != nil {
			if err := casQuantity(tx, change.Destination.ID, change.Destination.Quantity, change.NewDestinationQuantity); err != nil {
				return err
			}
			destination = *change.Destination
			destination.Quantity = change.NewDestinationQuantity
			return nil
		}

		destination = models.UserCrypto{
			ID:         uuid.NewString(),
			CryptoID:   source.CryptoID,
			PlatformID: change.DestinationPlatformID,
			Quantity:   change.NewDestinationQuantity,
		}
		if err := tx.Create(&destination).Error; err != nil {
			if IsDuplicate(err) {
				return ErrStaleQuantity
			}
			return fmt.Errorf("failed to create destination holding: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.UserCrypto{}, err
	}
	return destination, nil
}

func casQuantity(db *gorm.DB, id string, expected, quantity decimal.Decimal) error {
	result := db.Model(&models.UserCrypto{}).
		Where("id = ? AND quantity = ?", id, expected).
		Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to update holding %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleQuantity
	}
	return nil
}
