package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/middleware"
)

type FavoriteController struct {
	favoriteService service.FavoriteService
}

func NewFavoriteController(favoriteService service.FavoriteService) *FavoriteController {
	return &FavoriteController{
		favoriteService: favoriteService,
	}
}

type AddFavoriteRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// GetFavorites returns the caller's favorites, newest first
// GET /api/v1/favorites
func (ctrl *FavoriteController) GetFavorites(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	favorites, err := ctrl.favoriteService.List(owner)
	if err != nil {
		respondServiceError(c, err, "fetch favorites")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"favorites": favorites,
		"count":     len(favorites),
	})
}

// AddFavorite is idempotent: adding an existing favorite answers 200
// POST /api/v1/favorites
func (ctrl *FavoriteController) AddFavorite(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := ctrl.favoriteService.Add(owner, req.ProductID)
	if err != nil {
		respondServiceError(c, err, "add favorite")
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{
			"message":    "Product is already in favorites",
			"product_id": req.ProductID,
			"created":    false,
		})
		return
	}

	log.Info("Favorite added", map[string]interface{}{
		"product_id": req.ProductID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Product added to favorites",
		"product_id": req.ProductID,
		"created":    true,
	})
}

// RemoveFavorite
// DELETE /api/v1/favorites/:product_id
func (ctrl *FavoriteController) RemoveFavorite(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}

	if err := ctrl.favoriteService.Remove(owner, productID); err != nil {
		respondServiceError(c, err, "remove favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Product removed from favorites",
		"product_id": productID,
	})
}

// CheckFavorite
// GET /api/v1/favorites/check?product_id=
func (ctrl *FavoriteController) CheckFavorite(c *gin.Context) {
	owner, ok := requireCartOwner(c)
	if !ok {
		return
	}

	raw := c.Query("product_id")
	productID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || productID == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "product_id query parameter is required")
		return
	}

	exists, err := ctrl.favoriteService.Check(owner, uint(productID))
	if err != nil {
		respondServiceError(c, err, "check favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":  uint(productID),
		"is_favorite": exists,
	})
}
