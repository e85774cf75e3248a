package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/services"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	invoices *services.InvoiceService
	payments *services.PaymentService
}

func NewInvoiceHandler(invoices *services.InvoiceService, payments *services.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, payments: payments}
}

type InvoiceItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type CreateInvoiceRequest struct {
	CustomerID uint                 `json:"customer_id" binding:"required"`
	IssueDate  string               `json:"issue_date"`
	Items      []InvoiceItemRequest `json:"items" binding:"dive"`
	Notes      string               `json:"notes"`
}

// UpdateItemRequest either references an existing line by index or, with
// line omitted, adds a new line for product_id priced from the catalog.
// Editing an existing line requires line; the legacy price key is rejected.
type UpdateItemRequest struct {
	Line      *int             `json:"line" binding:"omitempty,gte=0"`
	ProductID uint             `json:"product_id"`
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Price     *decimal.Decimal `json:"price"`
}

// UpdateInvoiceRequest leaves items untouched when the key is absent.
type UpdateInvoiceRequest struct {
	Items       []UpdateItemRequest `json:"items"`
	Notes       *string             `json:"notes"`
	IssueDate   *string             `json:"issue_date"`
	InvoiceDate *string             `json:"invoice_date"`
}

// rejectLegacyKeys fails on keys older clients send that this API would
// otherwise ignore.
func (r UpdateInvoiceRequest) rejectLegacyKeys() error {
	if r.InvoiceDate != nil {
		return ledger.NewValidationError("invoice_date", *r.InvoiceDate, fmt.Errorf("%w: use issue_date", ledger.ErrValidation))
	}
	for i, it := range r.Items {
		if it.Price != nil {
			return ledger.NewValidationError(fmt.Sprintf("items[%d].price", i), it.Price.String(), fmt.Errorf("%w: use unit_price with line", ledger.ErrValidation))
		}
	}
	return nil
}

type EditItemRequest struct {
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ledger.NewValidationError(field, value, nil)
	}
	return t, nil
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		bindError(c, errInvalidParam("index"))
		return 0, false
	}
	return index, true
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := services.InvoiceFilter{
		Search: c.Query("search"),
		Status: ledger.PaymentStatus(strings.ToLower(c.Query("status"))),
	}
	switch filter.Status {
	case "", ledger.StatusUnpaid, ledger.StatusPartial, ledger.StatusPaid:
	default:
		respondError(c, ledger.NewValidationError("status", c.Query("status"), nil))
		return
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			bindError(c, errInvalidParam("customer_id"))
			return
		}
		filter.CustomerID = uint(id)
	}

	invoices, total, err := h.invoices.ListInvoices(c.Request.Context(), filter, Paginate(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, invoices, total))
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) PrintInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	view, err := h.invoices.PrintView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	draft := services.InvoiceDraft{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		Items:      make([]services.DraftItem, len(req.Items)),
	}
	for i, it := range req.Items {
		draft.Items[i] = services.DraftItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if req.IssueDate != "" {
		date, err := parseDate("issue_date", req.IssueDate)
		if err != nil {
			respondError(c, err)
			return
		}
		draft.IssueDate = date
	}

	invoice, err := h.invoices.CreateInvoice(c.Request.Context(), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := req.rejectLegacyKeys(); err != nil {
		respondError(c, err)
		return
	}

	update := services.InvoiceUpdate{Notes: req.Notes}
	if req.Items != nil {
		update.Items = make([]services.ItemUpdate, len(req.Items))
		for i, it := range req.Items {
			update.Items[i] = services.ItemUpdate{
				Line:      it.Line,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			}
		}
	}
	if req.IssueDate != nil {
		date, err := parseDate("issue_date", *req.IssueDate)
		if err != nil {
			respondError(c, err)
			return
		}
		update.IssueDate = &date
	}

	invoice, err := h.invoices.UpdateInvoiceItems(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req InvoiceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoices.AddItem(c.Request.Context(), id, services.DraftItem{ProductID: req.ProductID, Quantity: req.Quantity})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) EditItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	var req EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invoice, err := h.invoices.EditItem(c.Request.Context(), id, index, ledger.LineEdit{Quantity: req.Quantity, UnitPrice: req.UnitPrice})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.RemoveItem(c.Request.Context(), id, index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.invoices.DeleteInvoice(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

func (h *InvoiceHandler) ListInvoicePayments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payments, err := h.payments.ListPaymentsForInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
