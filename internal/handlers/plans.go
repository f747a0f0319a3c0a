package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type PlanHandler struct{ DB *gorm.DB }

func NewPlanHandler(db *gorm.DB) *PlanHandler { return &PlanHandler{DB: db} }

// List: GET /plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	var plans []models.InstallmentPlan
	if err := h.DB.Order("id asc").Find(&plans).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_plans", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": plans, "total": len(plans)})
}

// Create: POST /plans. Explicit due dates must match the installment count;
// an empty list means dates are synthesized monthly at invoicing time.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                 string   `json:"name" validate:"required"`
		NumberOfInstallments int      `json:"number_of_installments" validate:"gte=0"`
		DueDates             []string `json:"due_dates"`
		DepositAmount        float64  `json:"deposit_amount" validate:"gte=0"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	if len(req.DueDates) > 0 && len(req.DueDates) != req.NumberOfInstallments {
		httpx.JSONError(w, http.StatusBadRequest, "due_dates_count_mismatch", nil)
		return
	}
	for _, s := range req.DueDates {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_due_date", map[string]string{"date": s})
			return
		}
	}
	plan := models.InstallmentPlan{
		Name:                 req.Name,
		NumberOfInstallments: req.NumberOfInstallments,
		DepositAmount:        decimal.NewFromFloat(req.DepositAmount).Round(2),
	}
	if len(req.DueDates) > 0 {
		raw, err := json.Marshal(req.DueDates)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_due_dates", nil)
			return
		}
		plan.DueDates = datatypes.JSON(raw)
	}
	if err := h.DB.Create(&plan).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_plan", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}
