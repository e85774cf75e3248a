package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"gorm.io/gorm"
)

type CustomerHandler struct {
	db    *gorm.DB
	cache services.StatsCache
}

func NewCustomerHandler(db *gorm.DB, cache services.StatsCache) *CustomerHandler {
	return &CustomerHandler{db: db, cache: cache}
}

type CustomerRequest struct {
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Address   string `json:"address"`
	GSTNumber string `json:"gst_number" binding:"omitempty,max=20"`
}

func (r CustomerRequest) apply(c *models.Customer) {
	c.Name = strings.TrimSpace(r.Name)
	c.Phone = strings.TrimSpace(r.Phone)
	c.Email = strings.TrimSpace(r.Email)
	c.Address = r.Address
	c.GSTNumber = strings.ToUpper(strings.TrimSpace(r.GSTNumber))
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	query := func() *gorm.DB {
		q := h.db.WithContext(c.Request.Context()).Model(&models.Customer{})
		if term := strings.ToLower(strings.TrimSpace(c.Query("search"))); term != "" {
			like := "%" + term + "%"
			q = q.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count customers"})
		return
	}

	customers := make([]models.Customer, 0)
	if err := query().Scopes(Paginate(c)).Order("name ASC").Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customers"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, customers, total))
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var customer models.Customer
	req.apply(&customer)
	if err := h.db.WithContext(c.Request.Context()).Create(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create customer"})
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer edits contact details. Invoices keep the name they were
// issued under.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	customer, ok := h.load(c)
	if !ok {
		return
	}

	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	req.apply(customer)
	if err := h.db.WithContext(c.Request.Context()).Save(customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update customer"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	customer, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete customer"})
		return
	}

	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}

func (h *CustomerHandler) load(c *gin.Context) (*models.Customer, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	var customer models.Customer
	if err := h.db.WithContext(c.Request.Context()).First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Customer")
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch customer"})
		}
		return nil, false
	}
	return &customer, true
}
