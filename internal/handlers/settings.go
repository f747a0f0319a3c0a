package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type SettingsHandler struct{ DB *gorm.DB }

func NewSettingsHandler(db *gorm.DB) *SettingsHandler { return &SettingsHandler{DB: db} }

// Handle: GET/PUT /settings. Singleton row, created with defaults on first read.
func (h *SettingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.update(w, r)
	default:
		httpx.MethodNotAllowed(w, "GET,PUT")
	}
}

func (h *SettingsHandler) load() (models.Settings, error) {
	var s models.Settings
	err := h.DB.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.Settings{AcademicYear: "2025/2026", Currency: "GBP"}
		err = h.DB.Create(&s).Error
	}
	return s, err
}

func (h *SettingsHandler) get(w http.ResponseWriter) {
	s, err := h.load()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	s, err := h.load()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_settings", nil)
		return
	}
	var req struct {
		AcademicYear   *string  `json:"academic_year"`
		DefaultTaxRate *float64 `json:"default_tax_rate" validate:"omitempty,gte=0,lt=1"`
		Currency       *string  `json:"currency"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	updates := map[string]any{}
	if req.AcademicYear != nil {
		updates["academic_year"] = *req.AcademicYear
	}
	if req.DefaultTaxRate != nil {
		updates["default_tax_rate"] = decimal.NewFromFloat(*req.DefaultTaxRate)
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&s).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_settings", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, s)
}
