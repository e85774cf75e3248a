package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"gorm.io/gorm"
)

type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

type CompanySettingsRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	GSTNumber   string `json:"gst_number" binding:"omitempty,max=20"`
	LogoURL     string `json:"logo_url" binding:"omitempty,url"`
}

func (h *SettingsHandler) GetCompany(c *gin.Context) {
	settings, err := services.LoadCompanySettings(h.db.WithContext(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateCompany(c *gin.Context) {
	var req CompanySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	settings, err := services.LoadCompanySettings(db)
	if err != nil {
		respondError(c, err)
		return
	}

	settings.CompanyName = strings.TrimSpace(req.CompanyName)
	settings.Email = req.Email
	settings.Phone = req.Phone
	settings.Address = req.Address
	settings.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	settings.LogoURL = req.LogoURL

	if err := db.Save(settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save company settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
