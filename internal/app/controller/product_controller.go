package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/sneakers-backend/internal/app/model"
	"github.com/ikkim/sneakers-backend/internal/app/service"
	apperrors "github.com/ikkim/sneakers-backend/internal/errors"
	"github.com/ikkim/sneakers-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type CreateProductRequest struct {
	Title       string          `json:"title" binding:"required"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available"`
}

// GetAllProducts lists available products, newest first
// GET /api/v1/products?limit=&offset=
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	products, err := ctrl.productService.ListProducts(service.ProductListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondServiceError(c, err, "fetch products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		respondServiceError(c, err, "fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product := &model.Product{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Available:   req.Available == nil || *req.Available,
	}
	if err := ctrl.productService.CreateProduct(product); err != nil {
		respondServiceError(c, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})
	c.JSON(http.StatusCreated, gin.H{
		"product": product,
	})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid "+name)
		return 0, false
	}
	return n, true
}
