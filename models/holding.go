package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform is an exchange or wallet where cryptos are held
type Platform struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCrypto is the quantity of one crypto held on one platform
type UserCrypto struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	CryptoID   string          `gorm:"index:idx_crypto_platform,unique;size:128;not null" json:"crypto_id"`
	Crypto     Crypto          `gorm:"foreignKey:CryptoID" json:"-"`
	PlatformID string          `gorm:"index:idx_crypto_platform,unique;index;size:36;not null" json:"platform_id"`
	Platform   Platform        `gorm:"foreignKey:PlatformID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity   decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"quantity"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DateBalance is the total balance recorded for one calendar day
type DateBalance struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Date       string          `gorm:"uniqueIndex;size:10;not null" json:"date"` // yyyy-mm-dd
	USDBalance decimal.Decimal `gorm:"type:decimal(36,18)" json:"usd_balance"`
	EURBalance decimal.Decimal `gorm:"type:decimal(36,18)" json:"eur_balance"`
	BTCBalance decimal.Decimal `gorm:"type:decimal(36,18)" json:"btc_balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DateLayout is the calendar-day format used by DateBalance.Date
const DateLayout = "2006-01-02"

// DateOf returns the calendar day of t in UTC
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
