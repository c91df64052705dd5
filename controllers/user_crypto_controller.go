package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// UserCryptoController handles holding and transfer requests
type UserCryptoController struct {
	holdings  *services.UserCryptoService
	transfers *services.TransferService
}

// NewUserCryptoController creates a new holding controller
func NewUserCryptoController(holdings *services.UserCryptoService, transfers *services.TransferService) *UserCryptoController {
	return &UserCryptoController{holdings: holdings, transfers: transfers}
}

// GetUserCryptos returns one page of holdings
// GET /api/v1/cryptos?page=0
func (uc *UserCryptoController) GetUserCryptos(c *gin.Context) {
	page, err := pageParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := uc.holdings.RetrieveUserCryptosPage(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetUserCrypto returns one holding
// GET /api/v1/cryptos/:id
func (uc *UserCryptoController) GetUserCrypto(c *gin.Context) {
	holding, err := uc.holdings.RetrieveUserCrypto(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": holding})
}

// CreateUserCrypto adds a holding
// POST /api/v1/cryptos
func (uc *UserCryptoController) CreateUserCrypto(c *gin.Context) {
	var input services.UserCryptoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	holding, err := uc.holdings.SaveUserCrypto(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": holding})
}

// UpdateUserCrypto changes quantity or platform of a holding
// PUT /api/v1/cryptos/:id
func (uc *UserCryptoController) UpdateUserCrypto(c *gin.Context) {
	var input services.UserCryptoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	holding, err := uc.holdings.UpdateUserCrypto(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": holding})
}

// DeleteUserCrypto removes a holding
// DELETE /api/v1/cryptos/:id
func (uc *UserCryptoController) DeleteUserCrypto(c *gin.Context) {
	if err := uc.holdings.DeleteUserCrypto(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Crypto deleted"})
}

// TransferCrypto moves a quantity of a holding to another platform
// POST /api/v1/cryptos/transfer
func (uc *UserCryptoController) TransferCrypto(c *gin.Context) {
	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := uc.transfers.TransferCrypto(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// pageParam reads the zero-based page query parameter
func pageParam(c *gin.Context) (int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		return 0, fmt.Errorf("invalid page %q", c.Query("page"))
	}
	return page, nil
}
