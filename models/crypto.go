package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Crypto is the locally stored record of a coin referenced by a holding,
// a goal or a price target, together with its last known market data.
type Crypto struct {
	ID                    string              `gorm:"primaryKey;size:128" json:"id"` // coingecko id, e.g. "bitcoin"
	Symbol                string              `gorm:"not null" json:"symbol"`
	Name                  string              `gorm:"not null" json:"name"`
	LastKnownPrice        decimal.Decimal     `gorm:"type:decimal(36,18)" json:"last_known_price"`
	LastKnownPriceInEUR   decimal.Decimal     `gorm:"type:decimal(36,18)" json:"last_known_price_in_eur"`
	LastKnownPriceInBTC   decimal.Decimal     `gorm:"type:decimal(36,18)" json:"last_known_price_in_btc"`
	CirculatingSupply     decimal.Decimal     `gorm:"type:decimal(36,8)" json:"circulating_supply"`
	MaxSupply             decimal.NullDecimal `gorm:"type:decimal(36,8)" json:"max_supply"`
	MarketCapRank         int                 `json:"market_cap_rank"`
	MarketCap             decimal.Decimal     `gorm:"type:decimal(36,2)" json:"market_cap"`
	ChangePercentageIn24h decimal.Decimal     `gorm:"type:decimal(18,4)" json:"change_percentage_in_24h"`
	ChangePercentageIn7d  decimal.Decimal     `gorm:"type:decimal(18,4)" json:"change_percentage_in_7d"`
	ChangePercentageIn30d decimal.Decimal     `gorm:"type:decimal(18,4)" json:"change_percentage_in_30d"`
	LastUpdatedAt         time.Time           `gorm:"index;not null" json:"last_updated_at"`
	CreatedAt             time.Time           `json:"created_at"`
}

// CryptoIdentity identifies a coin on the market data provider.
type CryptoIdentity struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Prices holds a value expressed in the three supported denominations.
type Prices struct {
	USD decimal.Decimal `json:"usd"`
	EUR decimal.Decimal `json:"eur"`
	BTC decimal.Decimal `json:"btc"`
}

// MarketSnapshot is point-in-time market data for a coin.
type MarketSnapshot struct {
	CurrentPrice          Prices              `json:"current_price"`
	CirculatingSupply     decimal.Decimal     `json:"circulating_supply"`
	MaxSupply             decimal.NullDecimal `json:"max_supply"`
	MarketCapRank         int                 `json:"market_cap_rank"`
	MarketCap             decimal.Decimal     `json:"market_cap"`
	ChangePercentageIn24h decimal.Decimal     `json:"change_percentage_in_24h"`
	ChangePercentageIn7d  decimal.Decimal     `json:"change_percentage_in_7d"`
	ChangePercentageIn30d decimal.Decimal     `json:"change_percentage_in_30d"`
	LastUpdated           time.Time           `json:"last_updated"`
}

// CoinInfo is what the provider returns for a single coin lookup.
type CoinInfo struct {
	CryptoIdentity
	MarketSnapshot
}

// Identity returns the immutable part of the record.
func (c *Crypto) Identity() CryptoIdentity {
	return CryptoIdentity{ID: c.ID, Symbol: c.Symbol, Name: c.Name}
}

// CurrentPrice returns the last known prices.
func (c *Crypto) CurrentPrice() Prices {
	return Prices{USD: c.LastKnownPrice, EUR: c.LastKnownPriceInEUR, BTC: c.LastKnownPriceInBTC}
}

// Snapshot returns the market data currently stored for the record.
func (c *Crypto) Snapshot() MarketSnapshot {
	return MarketSnapshot{
		CurrentPrice:          c.CurrentPrice(),
		CirculatingSupply:     c.CirculatingSupply,
		MaxSupply:             c.MaxSupply,
		MarketCapRank:         c.MarketCapRank,
		MarketCap:             c.MarketCap,
		ChangePercentageIn24h: c.ChangePercentageIn24h,
		ChangePercentageIn7d:  c.ChangePercentageIn7d,
		ChangePercentageIn30d: c.ChangePercentageIn30d,
		LastUpdated:           c.LastUpdatedAt,
	}
}

// ApplySnapshot replaces the market data and stamps the record with now.
// LastUpdatedAt never moves backwards.
func (c *Crypto) ApplySnapshot(s MarketSnapshot, now time.Time) {
	c.LastKnownPrice = s.CurrentPrice.USD
	c.LastKnownPriceInEUR = s.CurrentPrice.EUR
	c.LastKnownPriceInBTC = s.CurrentPrice.BTC
	c.CirculatingSupply = s.CirculatingSupply
	c.MaxSupply = s.MaxSupply
	c.MarketCapRank = s.MarketCapRank
	c.MarketCap = s.MarketCap
	c.ChangePercentageIn24h = s.ChangePercentageIn24h
	c.ChangePercentageIn7d = s.ChangePercentageIn7d
	c.ChangePercentageIn30d = s.ChangePercentageIn30d
	if now.After(c.LastUpdatedAt) {
		c.LastUpdatedAt = now
	}
}

// NewCryptoFromCoinInfo builds the record created the first time a coin is referenced.
func NewCryptoFromCoinInfo(info CoinInfo, now time.Time) Crypto {
	c := Crypto{
		ID:     info.ID,
		Symbol: info.Symbol,
		Name:   info.Name,
	}
	c.ApplySnapshot(info.MarketSnapshot, now)
	return c
}

// Goal is a target quantity the user wants to hold for a crypto.
type Goal struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	CryptoID     string          `gorm:"uniqueIndex;size:128;not null" json:"crypto_id"`
	Crypto       Crypto          `gorm:"foreignKey:CryptoID" json:"-"`
	GoalQuantity decimal.Decimal `gorm:"type:decimal(36,18)" json:"goal_quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PriceTarget is a price the user is waiting for a crypto to reach.
type PriceTarget struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	CryptoID  string          `gorm:"index;size:128;not null" json:"crypto_id"`
	Crypto    Crypto          `gorm:"foreignKey:CryptoID" json:"-"`
	Target    decimal.Decimal `gorm:"type:decimal(36,18)" json:"target"`
	CreatedAt time.Time       `json:"created_at"`
}

// MigrateModels runs database migrations for every model
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Crypto{},
		&Platform{},
		&UserCrypto{},
		&DateBalance{},
		&Goal{},
		&PriceTarget{},
	)
}
