package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// CoinController exposes the upstream coin catalogue and stored cryptos
type CoinController struct {
	cryptos *services.CryptoService
}

// NewCoinController creates a new coin controller
func NewCoinController(cryptos *services.CryptoService) *CoinController {
	return &CoinController{cryptos: cryptos}
}

// GetCoins returns every coin the market data provider knows, or live
// market data for the comma separated ids query
// GET /api/v1/coins
func (cc *CoinController) GetCoins(c *gin.Context) {
	if raw := c.Query("ids"); raw != "" {
		snapshots, err := cc.cryptos.LookupSnapshots(c.Request.Context(), strings.Split(raw, ","))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(snapshots) == 0 {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": snapshots, "total": len(snapshots)})
		return
	}

	coins, err := cc.cryptos.RetrieveCoinList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": coins, "total": len(coins)})
}

// GetCoin returns live market data for one coin
// GET /api/v1/coins/:id
func (cc *CoinController) GetCoin(c *gin.Context) {
	info, err := cc.cryptos.LookupSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": info})
}

// GetStoredCrypto returns the stored record of a tracked crypto
// GET /api/v1/coins/:id/stored
func (cc *CoinController) GetStoredCrypto(c *gin.Context) {
	crypto, err := cc.cryptos.RetrieveCrypto(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": crypto})
}
