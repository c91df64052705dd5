package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// Default schedules
const (
	DefaultPriceRefreshCron    = "*/3 * * * *"
	DefaultBalanceSnapshotCron = "0 23 * * *"
)

// ErrRunInProgress is returned when a job is triggered while it still runs
var ErrRunInProgress = errors.New("job already running")

// PriceRefreshRunner refreshes stale market data
type PriceRefreshRunner interface {
	Run(ctx context.Context, now time.Time) (services.RefreshReport, error)
}

// BalanceRecorder stores the total balance of the day
type BalanceRecorder interface {
	RecordDailyBalance(ctx context.Context, now time.Time) (models.DateBalance, error)
}

// Config holds the cron expressions of both jobs
type Config struct {
	PriceRefreshCron    string
	BalanceSnapshotCron string
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron      *gocron.Scheduler
	refresher PriceRefreshRunner
	recorder  BalanceRecorder
	config    Config
	now       func() time.Time

	refreshing atomic.Bool
	recording  atomic.Bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(refresher PriceRefreshRunner, recorder BalanceRecorder, config Config) *Scheduler {
	if config.PriceRefreshCron == "" {
		config.PriceRefreshCron = DefaultPriceRefreshCron
	}
	if config.BalanceSnapshotCron == "" {
		config.BalanceSnapshotCron = DefaultBalanceSnapshotCron
	}
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	return &Scheduler{
		cron:      cron,
		refresher: refresher,
		recorder:  recorder,
		config:    config,
		now:       time.Now,
	}
}

// Start registers both jobs and starts the scheduler
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	if _, err := s.cron.Cron(s.config.PriceRefreshCron).Do(func() {
		s.RefreshPrices(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule price refresh %q: %w", s.config.PriceRefreshCron, err)
	}

	if _, err := s.cron.Cron(s.config.BalanceSnapshotCron).Do(func() {
		s.RecordBalance(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to schedule balance snapshot %q: %w", s.config.BalanceSnapshotCron, err)
	}

	s.cron.StartAsync()
	log.Printf("Scheduler started successfully (price refresh %q, balance snapshot %q)",
		s.config.PriceRefreshCron, s.config.BalanceSnapshotCron)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// RefreshPrices runs one price refresh unless one is already in flight.
// Scheduled and manual triggers share the guard.
func (s *Scheduler) RefreshPrices(ctx context.Context) (services.RefreshReport, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		log.Println("Price refresh still running, skipping trigger")
		return services.RefreshReport{}, ErrRunInProgress
	}
	defer s.refreshing.Store(false)

	report, err := s.refresher.Run(ctx, s.now())
	if err != nil {
		log.Printf("Error refreshing prices: %v", err)
	}
	return report, err
}

// RecordBalance stores today's total balance unless a snapshot is in flight
func (s *Scheduler) RecordBalance(ctx context.Context) (models.DateBalance, error) {
	if !s.recording.CompareAndSwap(false, true) {
		log.Println("Balance snapshot still running, skipping trigger")
		return models.DateBalance{}, ErrRunInProgress
	}
	defer s.recording.Store(false)

	point, err := s.recorder.RecordDailyBalance(ctx, s.now())
	if err != nil {
		log.Printf("Error recording daily balance: %v", err)
	}
	return point, err
}
