package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/auth"
	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/invoicing"
	"github.com/diewo77/housing-app/internal/models"
)

// BookingHandler turns a booking (admin action or public form intake) into
// the full invoice bundle via the invoicing service.
type BookingHandler struct {
	DB  *gorm.DB
	Svc *invoicing.Service
	Log *zap.Logger
}

func NewBookingHandler(db *gorm.DB, svc *invoicing.Service, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{DB: db, Svc: svc, Log: log}
}

type bookingRequest struct {
	StudentID     uint    `json:"student_id" validate:"required"`
	ReservationID *uint   `json:"reservation_id"`
	TotalAmount   float64 `json:"total_amount" validate:"required,gt=0"`
	// nil falls back to the plan's deposit default
	DepositAmount     *float64 `json:"deposit_amount" validate:"omitempty,gte=0"`
	InstallmentPlanID *uint    `json:"installment_plan_id"`
	DepositPaid       bool     `json:"deposit_already_paid"`
	PaymentMethod     string   `json:"payment_method"`
	PaymentReference  string   `json:"payment_reference"`
	AcademicYear      string   `json:"academic_year"`
	IdempotencyKey    string   `json:"idempotency_key"`
}

func (req *bookingRequest) toInput() invoicing.GenerateInput {
	in := invoicing.GenerateInput{
		StudentID:         req.StudentID,
		ReservationID:     req.ReservationID,
		TotalAmount:       decimal.NewFromFloat(req.TotalAmount).Round(2),
		InstallmentPlanID: req.InstallmentPlanID,
		DepositPaid:       req.DepositPaid,
		PaymentMethod:     req.PaymentMethod,
		PaymentReference:  req.PaymentReference,
		AcademicYear:      req.AcademicYear,
		IdempotencyKey:    req.IdempotencyKey,
	}
	if req.DepositAmount != nil {
		dep := decimal.NewFromFloat(*req.DepositAmount).Round(2)
		in.DepositAmount = &dep
	}
	return in
}

// applyDefaults fills academic year and tax rate from the settings row when
// the caller left them out.
func (h *BookingHandler) applyDefaults(in *invoicing.GenerateInput) {
	var settings models.Settings
	if err := h.DB.First(&settings).Error; err != nil {
		return
	}
	if in.AcademicYear == "" {
		in.AcademicYear = settings.AcademicYear
	}
	in.TaxRate = settings.DefaultTaxRate
}

// Create: POST /bookings. Dashboard "add booking" action. created_by is the
// authenticated operator.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req bookingRequest
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	in := req.toInput()
	in.CreatedBy = &uid
	h.applyDefaults(&in)
	bundle, err := h.Svc.Generate(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bundle)
}

// CreatePublic: POST /public/bookings. Unauthenticated web form, invoked
// after a confirmed card-present deposit. The deposit is always already paid
// and the processor reference is mandatory; created_by resolves to the
// system actor inside the service.
func (h *BookingHandler) CreatePublic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		bookingRequest
		PaymentReference string `json:"payment_reference" validate:"required"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	req.bookingRequest.PaymentReference = req.PaymentReference
	in := req.bookingRequest.toInput()
	in.DepositPaid = true
	in.CreatedBy = nil
	h.applyDefaults(&in)
	bundle, err := h.Svc.Generate(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bundle)
}

// writeError maps the invoicing error taxonomy onto HTTP statuses. Anything
// non-success means "booking not fully invoiced" for the caller.
func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoicing.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, invoicing.ErrStudentNotFound):
		httpx.JSONError(w, http.StatusNotFound, "student_not_found", nil)
	case errors.Is(err, invoicing.ErrPlanNotFound):
		httpx.JSONError(w, http.StatusNotFound, "installment_plan_not_found", nil)
	case errors.Is(err, invoicing.ErrAlreadyInvoiced):
		httpx.JSONError(w, http.StatusConflict, "booking_already_invoiced", nil)
	case errors.Is(err, invoicing.ErrSequenceExhausted):
		// operator-retryable once the numbering hot spot clears
		httpx.JSONError(w, http.StatusServiceUnavailable, "invoice_sequence_exhausted", nil)
	default:
		h.Log.Error("booking invoicing failed", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "invoicing_failed", nil)
	}
}
