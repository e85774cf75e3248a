package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solutionsscriptware-cmd/billflow/config"
	"github.com/solutionsscriptware-cmd/billflow/handlers"
	"github.com/solutionsscriptware-cmd/billflow/middleware"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"gorm.io/gorm"
)

const serviceName = "billflow-api"

// NewRouter wires every handler onto a gin engine. A nil cache disables
// dashboard caching.
func NewRouter(db *gorm.DB, cfg *config.Config, cache services.StatsCache) *gin.Engine {
	if cache == nil {
		cache = services.NewStatsCache(nil, 0)
	}

	invoiceService := services.NewInvoiceService(db, cache, cfg.InvoicePrefix)
	paymentService := services.NewPaymentService(db, cache)
	dashboardService := services.NewDashboardService(db, cache)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	api := router.Group("/api")

	// Public
	authHandler := handlers.NewAuthHandler(db, cfg)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.JwtAuthMiddleware(cfg))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	customerHandler := handlers.NewCustomerHandler(db, cache)
	customers := protected.Group("/customers")
	{
		customers.GET("", customerHandler.ListCustomers)
		customers.GET("/:id", customerHandler.GetCustomer)
		customers.POST("", customerHandler.CreateCustomer)
		customers.PUT("/:id", customerHandler.UpdateCustomer)
		customers.DELETE("/:id", customerHandler.DeleteCustomer)
	}

	productHandler := handlers.NewProductHandler(db, cache)
	products := protected.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("", productHandler.CreateProduct)
		products.PUT("/:id", productHandler.UpdateProduct)
		products.DELETE("/:id", productHandler.DeleteProduct)
	}

	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, paymentService)
	invoices := protected.Group("/invoices")
	{
		invoices.GET("", invoiceHandler.ListInvoices)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.GET("/:id/print", invoiceHandler.PrintInvoice)
		invoices.GET("/:id/payments", invoiceHandler.ListInvoicePayments)
		invoices.POST("", invoiceHandler.CreateInvoice)
		invoices.PUT("/:id", invoiceHandler.UpdateInvoice)
		invoices.POST("/:id/items", invoiceHandler.AddItem)
		invoices.PATCH("/:id/items/:index", invoiceHandler.EditItem)
		invoices.DELETE("/:id/items/:index", invoiceHandler.RemoveItem)
		invoices.DELETE("/:id", adminOnly, invoiceHandler.DeleteInvoice)
	}

	paymentHandler := handlers.NewPaymentHandler(paymentService)
	payments := protected.Group("/payments")
	{
		payments.GET("", paymentHandler.ListPayments)
		payments.GET("/export", paymentHandler.ExportPayments)
		payments.POST("", paymentHandler.CreatePayment)
	}

	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	protected.GET("/dashboard/stats", dashboardHandler.GetStats)

	settingsHandler := handlers.NewSettingsHandler(db)
	settings := protected.Group("/settings")
	{
		settings.GET("/company", settingsHandler.GetCompany)
		settings.PUT("/company", adminOnly, settingsHandler.UpdateCompany)
	}

	return router
}
