package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type StudioHandler struct{ DB *gorm.DB }

func NewStudioHandler(db *gorm.DB) *StudioHandler { return &StudioHandler{DB: db} }

// List: GET /studios. Filterable by status
func (h *StudioHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, q := listParams(r)
	dbq := h.DB.Model(&models.Studio{})
	if q != "" {
		dbq = dbq.Where("lower(number) LIKE ?", searchLike(q))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Count(&total)
	var studios []models.Studio
	if err := dbq.Order("number asc").Limit(limit).Offset(offset).Find(&studios).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_studios", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": studios, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /studios
func (h *StudioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number      string  `json:"number" validate:"required"`
		Floor       int     `json:"floor"`
		MonthlyRate float64 `json:"monthly_rate" validate:"gte=0"`
		Notes       string  `json:"notes"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	studio := models.Studio{
		Number:      req.Number,
		Floor:       req.Floor,
		MonthlyRate: decimal.NewFromFloat(req.MonthlyRate).Round(2),
		Status:      "available",
		Notes:       req.Notes,
	}
	if err := h.DB.Create(&studio).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "studio_number_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, studio)
}

// Update: POST /studios/update?id=...
func (h *StudioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var studio models.Studio
	if err := h.DB.First(&studio, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Status      *string  `json:"status"`
		MonthlyRate *float64 `json:"monthly_rate"`
		Notes       *string  `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updates := map[string]any{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.MonthlyRate != nil {
		updates["monthly_rate"] = decimal.NewFromFloat(*req.MonthlyRate).Round(2)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&studio).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_studio", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, studio)
}

// Delete: POST /studios/delete?id=...
func (h *StudioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	if err := h.DB.Delete(&models.Studio{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_studio", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
