package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
)

// Price refresh defaults
const (
	DefaultRefreshBatchSize = 12
	DefaultRefreshStaleness = 5 * time.Minute
)

// RefreshOutcome is what happened to one selected crypto
type RefreshOutcome int

const (
	OutcomeUpdated RefreshOutcome = iota
	OutcomeSkipped
	OutcomeAborted
)

func (o RefreshOutcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAborted:
		return "aborted"
	}
	return "unknown"
}

// RefreshItem is the result for one crypto of a run
type RefreshItem struct {
	CryptoID string         `json:"crypto_id"`
	Outcome  RefreshOutcome `json:"-"`
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
}

// RefreshReport summarizes one price refresh run
type RefreshReport struct {
	StartedAt time.Time     `json:"started_at"`
	Selected  int           `json:"selected"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Aborted   bool          `json:"aborted"`
	Items     []RefreshItem `json:"items"`
}

// RefreshConfig controls which cryptos a run selects
type RefreshConfig struct {
	BatchSize int
	Staleness time.Duration
}

// PriceRefresher updates the market data of the stalest cryptos. It talks to
// the uncached market data source.
type PriceRefresher struct {
	cryptos  CryptoStore
	source   marketdata.Source
	caches   *Caches
	notifier Notifier
	config   RefreshConfig
}

// NewPriceRefresher creates a new price refresher; zero config values use the defaults
func NewPriceRefresher(cryptos CryptoStore, source marketdata.Source, caches *Caches, notifier Notifier, config RefreshConfig) *PriceRefresher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRefreshBatchSize
	}
	if config.Staleness <= 0 {
		config.Staleness = DefaultRefreshStaleness
	}
	return &PriceRefresher{cryptos: cryptos, source: source, caches: caches, notifier: notifier, config: config}
}

// Run selects up to BatchSize cryptos not updated within Staleness of now and
// refreshes them one by one. A rate limit stops the run; cryptos refreshed
// before it are still saved and the returned error wraps
// marketdata.ErrRateLimited. Any other fetch error skips that crypto only.
func (r *PriceRefresher) Run(ctx context.Context, now time.Time) (RefreshReport, error) {
	now = now.UTC()
	report := RefreshReport{StartedAt: now}

	stale, err := r.cryptos.FindStale(ctx, now.Add(-r.config.Staleness), r.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("failed to select cryptos to refresh: %w", err)
	}
	report.Selected = len(stale)
	if len(stale) == 0 {
		log.Println("Price refresh: no cryptos to update")
		return report, nil
	}

	var updated []models.Crypto
	var abortErr error
	for _, crypto := range stale {
		item, info, err := r.fetch(ctx, crypto.ID)
		report.Items = append(report.Items, item)

		switch item.Outcome {
		case OutcomeUpdated:
			crypto.ApplySnapshot(info.MarketSnapshot, now)
			updated = append(updated, crypto)
			report.Updated++
		case OutcomeSkipped:
			report.Skipped++
			log.Printf("Price refresh: skipping %s: %v", crypto.ID, err)
		case OutcomeAborted:
			abortErr = err
		}
		if abortErr != nil {
			report.Aborted = true
			break
		}
	}

	if len(updated) > 0 {
		if err := r.cryptos.SaveAll(ctx, updated); err != nil {
			return report, fmt.Errorf("failed to save refreshed cryptos: %w", err)
		}
		ids := make([]string, len(updated))
		for i, c := range updated {
			ids[i] = c.ID
		}
		r.caches.InvalidateCryptos(ctx, ids...)
		notify(r.notifier, EventCryptoPricesRefreshed, ids)
	}

	log.Printf("Price refresh: selected %d, updated %d, skipped %d", report.Selected, report.Updated, report.Skipped)
	if abortErr != nil {
		log.Printf("Price refresh aborted after %d cryptos: %v", len(report.Items), abortErr)
		return report, fmt.Errorf("price refresh aborted: %w", abortErr)
	}
	return report, nil
}

func (r *PriceRefresher) fetch(ctx context.Context, id string) (RefreshItem, models.CoinInfo, error) {
	item := RefreshItem{CryptoID: id}
	info, err := r.source.GetSnapshot(ctx, id)
	switch {
	case err == nil:
		item.Outcome = OutcomeUpdated
	case errors.Is(err, marketdata.ErrRateLimited):
		item.Outcome = OutcomeAborted
	default:
		item.Outcome = OutcomeSkipped
	}
	item.Status = item.Outcome.String()
	if err != nil {
		item.Error = err.Error()
	}
	return item, info, err
}
