package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"gorm.io/gorm"
)

type ProductHandler struct {
	db    *gorm.DB
	cache services.StatsCache
}

func NewProductHandler(db *gorm.DB, cache services.StatsCache) *ProductHandler {
	return &ProductHandler{db: db, cache: cache}
}

type ProductRequest struct {
	Name    string          `json:"name" binding:"required"`
	Price   decimal.Decimal `json:"price"`
	GSTRate decimal.Decimal `json:"gst_rate"`
	Stock   *int            `json:"stock" binding:"omitempty,gte=0"`
	Unit    string          `json:"unit" binding:"omitempty,max=20"`
}

func (r ProductRequest) validate() error {
	if r.Price.IsNegative() {
		return ledger.NewValidationError("price", r.Price.String(), ledger.ErrInvalidPrice)
	}
	if r.GSTRate.IsNegative() {
		return ledger.NewValidationError("gst_rate", r.GSTRate.String(), ledger.ErrInvalidTaxRate)
	}
	return nil
}

// apply only changes the catalog. Lines already on invoices keep their
// snapshot of name, price and rate.
func (r ProductRequest) apply(p *models.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Price = ledger.Round(r.Price)
	p.GSTRate = ledger.Round(r.GSTRate)
	p.Stock = r.Stock
	p.Unit = r.Unit
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	query := func() *gorm.DB {
		q := h.db.WithContext(c.Request.Context()).Model(&models.Product{})
		if term := strings.ToLower(strings.TrimSpace(c.Query("search"))); term != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+term+"%")
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
		return
	}

	products := make([]models.Product, 0)
	if err := query().Scopes(Paginate(c)).Order("name ASC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, products, total))
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	var product models.Product
	req.apply(&product)
	if err := h.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	product, ok := h.load(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(c, err)
		return
	}

	req.apply(product)
	if err := h.db.WithContext(c.Request.Context()).Save(product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	product, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

func (h *ProductHandler) load(c *gin.Context) (*models.Product, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Product")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		}
		return nil, false
	}
	return &product, true
}
