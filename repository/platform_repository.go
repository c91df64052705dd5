package repository

import (
	"context"
	"fmt"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"gorm.io/gorm"
)

// PlatformRepository stores platforms
type PlatformRepository struct {
	db *gorm.DB
}

// NewPlatformRepository creates a new platform repository
func NewPlatformRepository(db *gorm.DB) *PlatformRepository {
	return &PlatformRepository{db: db}
}

// FindAll returns every platform ordered by name
func (r *PlatformRepository) FindAll(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := r.db.WithContext(ctx).Order("name").Find(&platforms).Error; err != nil {
		return nil, fmt.Errorf("failed to find platforms: %w", err)
	}
	return platforms, nil
}

// FindByID returns one platform
func (r *PlatformRepository) FindByID(ctx context.Context, id string) (models.Platform, error) {
	var platform models.Platform
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&platform).Error; err != nil {
		return models.Platform{}, fmt.Errorf("failed to find platform %s: %w", id, err)
	}
	return platform, nil
}

// FindByName returns the platform with exactly this name
func (r *PlatformRepository) FindByName(ctx context.Context, name string) (models.Platform, error) {
	var platform models.Platform
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&platform).Error; err != nil {
		return models.Platform{}, fmt.Errorf("failed to find platform %s: %w", name, err)
	}
	return platform, nil
}

// Create inserts a platform
func (r *PlatformRepository) Create(ctx context.Context, platform *models.Platform) error {
	if err := r.db.WithContext(ctx).Create(platform).Error; err != nil {
		return fmt.Errorf("failed to create platform: %w", err)
	}
	return nil
}

// Rename changes the name of a platform
func (r *PlatformRepository) Rename(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).Model(&models.Platform{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename platform %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to rename platform %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a platform and every holding on it in one transaction.
// The removed holdings are returned.
func (r *PlatformRepository) Delete(ctx context.Context, id string) ([]models.UserCrypto, error) {
	var holdings []models.UserCrypto
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("platform_id = ?", id).Find(&holdings).Error; err != nil {
			return fmt.Errorf("failed to load holdings of platform %s: %w", id, err)
		}
		if err := tx.Where("platform_id = ?", id).Delete(&models.UserCrypto{}).Error; err != nil {
			return fmt.Errorf("failed to delete holdings of platform %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Platform{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete platform %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("failed to delete platform %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}
