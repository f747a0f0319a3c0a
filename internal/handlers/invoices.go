package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

// InvoiceHandler exposes read-only invoice screens. Creation happens only
// through the booking orchestration; status transitions belong to the
// payment-processing path.
type InvoiceHandler struct{ DB *gorm.DB }

func NewInvoiceHandler(db *gorm.DB) *InvoiceHandler { return &InvoiceHandler{DB: db} }

// List: GET /invoices. Filterable by student, status, academic year
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, q := listParams(r)
	dbq := h.DB.Model(&models.Invoice{})
	if sid := r.URL.Query().Get("student_id"); sid != "" {
		dbq = dbq.Where("student_id = ?", sid)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if year := r.URL.Query().Get("academic_year"); year != "" {
		dbq = dbq.Where("academic_year = ?", year)
	}
	if q != "" {
		dbq = dbq.Where("lower(invoice_number) LIKE ?", searchLike(q))
	}
	var total int64
	dbq.Count(&total)
	var invoices []models.Invoice
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "limit": limit, "offset": offset})
}

// Payments: GET /invoices/payments?id=... payment rows for one invoice
func (h *InvoiceHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var count int64
	if err := h.DB.Model(&models.Invoice{}).Where("id = ?", id).Count(&count).Error; err != nil || count == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var payments []models.Payment
	if err := h.DB.Where("invoice_id = ?", id).Order("id asc").Find(&payments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments, "total": len(payments)})
}

// Installments: GET /invoices/installments?student_id=... The derived
// payment schedule shown on the student's invoice screen
func (h *InvoiceHandler) Installments(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("student_id")
	if sid == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_student_id", nil)
		return
	}
	var rows []models.StudentInstallment
	if err := h.DB.Where("student_id = ?", sid).
		Order("installment_plan_id asc, installment_number asc").Find(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_installments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(rows)})
}
