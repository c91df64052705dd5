package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// JobRunner triggers the scheduled jobs on demand
type JobRunner interface {
	RefreshPrices(ctx context.Context) (services.RefreshReport, error)
	RecordBalance(ctx context.Context) (models.DateBalance, error)
}

// JobController handles manual job triggers
type JobController struct {
	jobs JobRunner
}

// NewJobController creates a new job controller
func NewJobController(jobs JobRunner) *JobController {
	return &JobController{jobs: jobs}
}

// TriggerPriceRefresh runs one price refresh now. A rate-limited run is not a
// failure: the report marks it aborted and lists what was updated before it.
// POST /api/v1/jobs/price-refresh
func (jc *JobController) TriggerPriceRefresh(c *gin.Context) {
	report, err := jc.jobs.RefreshPrices(c.Request.Context())
	if err != nil && !errors.Is(err, marketdata.ErrRateLimited) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// TriggerBalanceSnapshot records today's balance now
// POST /api/v1/jobs/balance-snapshot
func (jc *JobController) TriggerBalanceSnapshot(c *gin.Context) {
	point, err := jc.jobs.RecordBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": point})
}
