package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasdistasi/crypto-balance-tracker-sub001/services"
)

// PlatformRequest is the body of platform create and update calls
type PlatformRequest struct {
	Name string `json:"name" binding:"required"`
}

// PlatformController handles platform requests
type PlatformController struct {
	platforms *services.PlatformService
}

// NewPlatformController creates a new platform controller
func NewPlatformController(platforms *services.PlatformService) *PlatformController {
	return &PlatformController{platforms: platforms}
}

// GetPlatforms returns every platform
// GET /api/v1/platforms
func (pc *PlatformController) GetPlatforms(c *gin.Context) {
	platforms, err := pc.platforms.RetrieveAllPlatforms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if len(platforms) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": platforms})
}

// GetPlatform returns one platform
// GET /api/v1/platforms/:id
func (pc *PlatformController) GetPlatform(c *gin.Context) {
	platform, err := pc.platforms.RetrievePlatform(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": platform})
}

// CreatePlatform adds a platform
// POST /api/v1/platforms
func (pc *PlatformController) CreatePlatform(c *gin.Context) {
	var req PlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	platform, err := pc.platforms.SavePlatform(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": platform})
}

// UpdatePlatform renames a platform
// PUT /api/v1/platforms/:id
func (pc *PlatformController) UpdatePlatform(c *gin.Context) {
	var req PlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	platform, err := pc.platforms.UpdatePlatform(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": platform})
}

// DeletePlatform removes a platform and its holdings
// DELETE /api/v1/platforms/:id
func (pc *PlatformController) DeletePlatform(c *gin.Context) {
	if err := pc.platforms.DeletePlatform(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Platform deleted"})
}
