package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CryptoRepository stores crypto records and their market data
type CryptoRepository struct {
	db *gorm.DB
}

// NewCryptoRepository creates a new crypto repository
func NewCryptoRepository(db *gorm.DB) *CryptoRepository {
	return &CryptoRepository{db: db}
}

// FindByID returns the crypto with the given coingecko id
func (r *CryptoRepository) FindByID(ctx context.Context, id string) (models.Crypto, error) {
	var crypto models.Crypto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&crypto).Error; err != nil {
		return models.Crypto{}, fmt.Errorf("failed to find crypto %s: %w", id, err)
	}
	return crypto, nil
}

// FindByIDs returns the cryptos found for ids; unknown ids are absent
func (r *CryptoRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Crypto, error) {
	var cryptos []models.Crypto
	if len(ids) == 0 {
		return cryptos, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&cryptos).Error; err != nil {
		return nil, fmt.Errorf("failed to find cryptos: %w", err)
	}
	return cryptos, nil
}

// FindStale returns at most limit cryptos last updated before the given
// instant, oldest first.
func (r *CryptoRepository) FindStale(ctx context.Context, before time.Time, limit int) ([]models.Crypto, error) {
	var cryptos []models.Crypto
	err := r.db.WithContext(ctx).
		Where("last_updated_at < ?", before).
		Order("last_updated_at ASC, id ASC").
		Limit(limit).
		Find(&cryptos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find stale cryptos: %w", err)
	}
	return cryptos, nil
}

// Create inserts a crypto, leaving an existing row with the same id untouched
func (r *CryptoRepository) Create(ctx context.Context, crypto *models.Crypto) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(crypto).Error
	if err != nil {
		return fmt.Errorf("failed to create crypto %s: %w", crypto.ID, err)
	}
	return nil
}

// SaveAll updates every crypto in one transaction. Rows deleted since they
// were read are skipped, never recreated.
func (r *CryptoRepository) SaveAll(ctx context.Context, cryptos []models.Crypto) error {
	if len(cryptos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range cryptos {
			result := tx.Model(&models.Crypto{}).
				Where("id = ?", cryptos[i].ID).
				Select("*").Omit("id", "created_at").
				Updates(&cryptos[i])
			if result.Error != nil {
				return fmt.Errorf("failed to save crypto %s: %w", cryptos[i].ID, result.Error)
			}
			if result.RowsAffected == 0 {
				log.Printf("Crypto %s was deleted during refresh, skipping", cryptos[i].ID)
			}
		}
		return nil
	})
}

// DeleteIfUnreferenced removes the crypto when nothing references it and
// reports whether it was deleted.
func (r *CryptoRepository) DeleteIfUnreferenced(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs, err := countReferences(tx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return nil
		}
		result := tx.Where("id = ?", id).Delete(&models.Crypto{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete crypto %s: %w", id, result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

func countReferences(db *gorm.DB, id string) (int64, error) {
	var total int64
	for _, model := range []interface{}{&models.UserCrypto{}, &models.Goal{}, &models.PriceTarget{}} {
		var count int64
		if err := db.Model(model).Where("crypto_id = ?", id).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to count references to %s: %w", id, err)
		}
		total += count
	}
	return total, nil
}
