package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/models"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
)

// InsightsController serves balance views and the balance history
type InsightsController struct {
	insights *services.InsightsService
	history  *services.DateBalanceService
	now      func() time.Time
}

// NewInsightsController creates a new insights controller
func NewInsightsController(insights *services.InsightsService, history *services.DateBalanceService) *InsightsController {
	return &InsightsController{insights: insights, history: history, now: time.Now}
}

// GetTotalBalances returns the value of every holding
// GET /api/v1/insights/balances
func (ic *InsightsController) GetTotalBalances(c *gin.Context) {
	balances, err := ic.insights.TotalBalances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": balances})
}

// GetPlatformsBalancesInsights splits the total balance by platform
// GET /api/v1/insights/platforms/balances
func (ic *InsightsController) GetPlatformsBalancesInsights(c *gin.Context) {
	result, err := ic.insights.RetrievePlatformsBalancesInsights(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetCryptosBalancesInsights splits the total balance by crypto
// GET /api/v1/insights/cryptos/balances?sort_by=PERCENTAGE&sort_type=DESC
func (ic *InsightsController) GetCryptosBalancesInsights(c *gin.Context) {
	params, err := sortParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := ic.insights.RetrieveCryptosBalancesInsights(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetCryptosInsightsPage returns one page of the crypto split
// GET /api/v1/insights/cryptos?page=0&sort_by=CURRENT_PRICE&sort_type=ASC
func (ic *InsightsController) GetCryptosInsightsPage(c *gin.Context) {
	page, err := pageParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	params, err := sortParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := ic.insights.RetrieveCryptosInsightsPage(c.Request.Context(), page, params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetPlatformInsights splits one platform's balance by crypto
// GET /api/v1/insights/platforms/:id
func (ic *InsightsController) GetPlatformInsights(c *gin.Context) {
	params, err := sortParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := ic.insights.RetrievePlatformInsights(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetCryptoInsights splits one crypto's balance by platform
// GET /api/v1/insights/cryptos/:id
func (ic *InsightsController) GetCryptoInsights(c *gin.Context) {
	result, err := ic.insights.RetrieveCryptoInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetDatesBalances returns the recorded daily balances of a range, either a
// named lookback (date_range) or explicit from/to dates.
// GET /api/v1/insights/dates-balances?date_range=ONE_WEEK
// GET /api/v1/insights/dates-balances?from=2024-01-01&to=2024-01-31
func (ic *InsightsController) GetDatesBalances(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		result services.DatesBalancesResponse
		err    error
	)
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		var fromDate, toDate time.Time
		if fromDate, err = parseDate(from); err != nil {
			badRequest(c, err)
			return
		}
		if toDate, err = parseDate(to); err != nil {
			badRequest(c, err)
			return
		}
		result, err = ic.history.RetrieveDatesBalances(ctx, fromDate, toDate)
	} else {
		var r services.DateRange
		if r, err = services.ParseDateRange(c.DefaultQuery("date_range", string(services.OneDay))); err != nil {
			badRequest(c, err)
			return
		}
		result, err = ic.history.RetrieveDatesBalancesForRange(ctx, r, ic.now())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func sortParams(c *gin.Context) (valuation.SortParams, error) {
	return valuation.ParseSortParams(c.Query("sort_by"), c.Query("sort_type"))
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s", s, models.DateLayout)
	}
	return t, nil
}
