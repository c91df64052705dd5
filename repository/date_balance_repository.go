package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DateBalanceRepository stores one total balance per calendar day
type DateBalanceRepository struct {
	db *gorm.DB
}

// NewDateBalanceRepository creates a new date balance repository
func NewDateBalanceRepository(db *gorm.DB) *DateBalanceRepository {
	return &DateBalanceRepository{db: db}
}

// Upsert stores balance for its date. An existing row for the date keeps its
// id and gets the new balances.
func (r *DateBalanceRepository) Upsert(ctx context.Context, balance models.DateBalance) (models.DateBalance, error) {
	if balance.ID == "" {
		balance.ID = uuid.NewString()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"usd_balance", "eur_balance", "btc_balance", "updated_at"}),
	}).Create(&balance).Error
	if err != nil {
		return models.DateBalance{}, fmt.Errorf("failed to upsert balance for %s: %w", balance.Date, err)
	}
	return r.FindByDate(ctx, balance.Date)
}

// FindByDate returns the balance recorded for date (yyyy-mm-dd)
func (r *DateBalanceRepository) FindByDate(ctx context.Context, date string) (models.DateBalance, error) {
	var balance models.DateBalance
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&balance).Error; err != nil {
		return models.DateBalance{}, fmt.Errorf("failed to find balance for %s: %w", date, err)
	}
	return balance, nil
}

// FindBetween returns balances with from <= date <= to, oldest first
func (r *DateBalanceRepository) FindBetween(ctx context.Context, from, to string) ([]models.DateBalance, error) {
	var balances []models.DateBalance
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&balances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find balances between %s and %s: %w", from, to, err)
	}
	return balances, nil
}
