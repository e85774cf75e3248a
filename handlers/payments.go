package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type CreatePaymentRequest struct {
	InvoiceID     uint            `json:"invoice_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Notes         string          `json:"notes"`
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	method, err := ledger.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}

	payment, invoice, err := h.payments.CreatePayment(c.Request.Context(), services.NewPayment{
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Method:    method,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment": payment,
		"invoice": invoice,
	})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	filter := services.PaymentFilter{Search: c.Query("search")}
	if raw := c.Query("method"); raw != "" {
		method, err := ledger.ParsePaymentMethod(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Method = method
	}

	payments, total, err := h.payments.ListPayments(c.Request.Context(), filter, Paginate(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, payments, total))
}

func (h *PaymentHandler) ExportPayments(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.payments.ExportPayments(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("payments-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
