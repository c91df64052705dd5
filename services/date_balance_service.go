package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
	"github.com/shopspring/decimal"
)

// DateRange is a lookback window ending today
type DateRange string

const (
	OneDay      DateRange = "ONE_DAY"
	ThreeDays   DateRange = "THREE_DAYS"
	OneWeek     DateRange = "ONE_WEEK"
	OneMonth    DateRange = "ONE_MONTH"
	ThreeMonths DateRange = "THREE_MONTHS"
	SixMonths   DateRange = "SIX_MONTHS"
	OneYear     DateRange = "ONE_YEAR"
)

// ParseDateRange accepts any casing of a DateRange name
func ParseDateRange(s string) (DateRange, error) {
	r := DateRange(strings.ToUpper(s))
	switch r {
	case OneDay, ThreeDays, OneWeek, OneMonth, ThreeMonths, SixMonths, OneYear:
		return r, nil
	}
	return "", fmt.Errorf("date range %q: %w", s, ErrInvalidInput)
}

// From returns the first day of the window ending at now
func (r DateRange) From(now time.Time) time.Time {
	now = now.UTC()
	switch r {
	case OneDay:
		return now.AddDate(0, 0, -1)
	case ThreeDays:
		return now.AddDate(0, 0, -3)
	case OneWeek:
		return now.AddDate(0, 0, -7)
	case OneMonth:
		return now.AddDate(0, -1, 0)
	case ThreeMonths:
		return now.AddDate(0, -3, 0)
	case SixMonths:
		return now.AddDate(0, -6, 0)
	case OneYear:
		return now.AddDate(-1, 0, 0)
	}
	return now
}

// DateBalancePoint is the total balance of one day
type DateBalancePoint struct {
	Date     string             `json:"date"`
	Balances valuation.Balances `json:"balances"`
}

// BalanceChange compares the last point of a range with the first
type BalanceChange struct {
	USDDifference decimal.Decimal `json:"usd_difference"`
	EURDifference decimal.Decimal `json:"eur_difference"`
	BTCDifference decimal.Decimal `json:"btc_difference"`
	USDPercentage float64         `json:"usd_percentage"`
	EURPercentage float64         `json:"eur_percentage"`
	BTCPercentage float64         `json:"btc_percentage"`
}

// DatesBalancesResponse is the balance series of a date range. An empty
// series means there is no data for the range.
type DatesBalancesResponse struct {
	DatesBalances []DateBalancePoint `json:"dates_balances"`
	Change        BalanceChange      `json:"change"`
}

// BalanceCalculator computes the current total balance
type BalanceCalculator interface {
	TotalBalances(ctx context.Context) (valuation.Balances, error)
}

// DateBalanceService records one total balance per day and serves the series
type DateBalanceService struct {
	balances   DateBalanceStore
	calculator BalanceCalculator
	notifier   Notifier
}

// NewDateBalanceService creates a new date balance service
func NewDateBalanceService(balances DateBalanceStore, calculator BalanceCalculator, notifier Notifier) *DateBalanceService {
	return &DateBalanceService{balances: balances, calculator: calculator, notifier: notifier}
}

// RecordDailyBalance stores today's total balance. Running it again on the
// same day overwrites the day's point.
func (s *DateBalanceService) RecordDailyBalance(ctx context.Context, now time.Time) (models.DateBalance, error) {
	total, err := s.calculator.TotalBalances(ctx)
	if err != nil {
		return models.DateBalance{}, fmt.Errorf("failed to compute total balance: %w", err)
	}

	point, err := s.balances.Upsert(ctx, models.DateBalance{
		Date:       models.DateOf(now),
		USDBalance: total.TotalUSDBalance,
		EURBalance: total.TotalEURBalance,
		BTCBalance: total.TotalBTCBalance,
	})
	if err != nil {
		return models.DateBalance{}, err
	}
	log.Printf("Recorded balance for %s: %s USD", point.Date, point.USDBalance)
	notify(s.notifier, EventBalanceSnapshotRecorded, toPoint(point))
	return point, nil
}

// RetrieveDatesBalances returns every point with from <= date <= to
func (s *DateBalanceService) RetrieveDatesBalances(ctx context.Context, from, to time.Time) (DatesBalancesResponse, error) {
	fromDate, toDate := models.DateOf(from), models.DateOf(to)
	if fromDate > toDate {
		return DatesBalancesResponse{}, fmt.Errorf("range %s to %s: %w", fromDate, toDate, ErrInvalidInput)
	}

	stored, err := s.balances.FindBetween(ctx, fromDate, toDate)
	if err != nil {
		return DatesBalancesResponse{}, err
	}

	resp := DatesBalancesResponse{DatesBalances: make([]DateBalancePoint, 0, len(stored))}
	for _, b := range stored {
		resp.DatesBalances = append(resp.DatesBalances, toPoint(b))
	}
	if len(resp.DatesBalances) > 0 {
		first := resp.DatesBalances[0].Balances
		last := resp.DatesBalances[len(resp.DatesBalances)-1].Balances
		resp.Change = changeBetween(first, last)
	}
	return resp, nil
}

// RetrieveDatesBalancesForRange returns the series of the window r ending at now
func (s *DateBalanceService) RetrieveDatesBalancesForRange(ctx context.Context, r DateRange, now time.Time) (DatesBalancesResponse, error) {
	return s.RetrieveDatesBalances(ctx, r.From(now), now)
}

func toPoint(b models.DateBalance) DateBalancePoint {
	return DateBalancePoint{
		Date: b.Date,
		Balances: valuation.Balances{
			TotalUSDBalance: b.USDBalance,
			TotalEURBalance: b.EURBalance,
			TotalBTCBalance: b.BTCBalance,
		},
	}
}

func changeBetween(first, last valuation.Balances) BalanceChange {
	usd := last.TotalUSDBalance.Sub(first.TotalUSDBalance)
	eur := last.TotalEURBalance.Sub(first.TotalEURBalance)
	btc := last.TotalBTCBalance.Sub(first.TotalBTCBalance)
	return BalanceChange{
		USDDifference: usd,
		EURDifference: eur,
		BTCDifference: btc,
		USDPercentage: valuation.Percentage(usd, first.TotalUSDBalance),
		EURPercentage: valuation.Percentage(eur, first.TotalEURBalance),
		BTCPercentage: valuation.Percentage(btc, first.TotalBTCBalance),
	}
}
