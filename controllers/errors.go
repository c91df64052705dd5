package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/marketdata"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/repository"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/scheduler"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/transfer"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services/valuation"
)

// statusOf maps service errors to HTTP statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNoContent), errors.Is(err, valuation.ErrPageOutOfRange):
		return http.StatusNoContent
	case errors.Is(err, services.ErrNotFound), errors.Is(err, marketdata.ErrCoinNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicate),
		errors.Is(err, repository.ErrStaleQuantity),
		errors.Is(err, scheduler.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrSamePlatform),
		errors.Is(err, transfer.ErrInsufficientBalance),
		errors.Is(err, transfer.ErrInvalidQuantity),
		errors.Is(err, transfer.ErrNothingReceived):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondError writes err with the matching status
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusNoContent:
		c.Status(status)
		return
	case http.StatusInternalServerError:
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
