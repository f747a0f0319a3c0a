package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type LeadHandler struct{ DB *gorm.DB }

func NewLeadHandler(db *gorm.DB) *LeadHandler { return &LeadHandler{DB: db} }

// List: GET /leads. Filterable by status
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, q := listParams(r)
	dbq := h.DB.Model(&models.Lead{})
	if q != "" {
		like := searchLike(q)
		dbq = dbq.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Count(&total)
	var leads []models.Lead
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&leads).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_leads", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": leads, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /leads
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"omitempty,email"`
		Phone    string `json:"phone"`
		Source   string `json:"source"`
		Notes    string `json:"notes"`
		StudioID *uint  `json:"studio_id"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	lead := models.Lead{Name: req.Name, Email: req.Email, Phone: req.Phone, Source: req.Source, Status: "new", Notes: req.Notes, StudioID: req.StudioID}
	if err := h.DB.Create(&lead).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_lead", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

// Update: POST /leads/update?id=... status/notes progression
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var lead models.Lead
	if err := h.DB.First(&lead, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Status *string `json:"status"`
		Notes  *string `json:"notes"`
		Phone  *string `json:"phone"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updates := map[string]any{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&lead).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_lead", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, lead)
}

// Convert: POST /leads/convert?id=... promote a lead into a student. The
// lead row is kept (status "converted") for funnel history.
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var lead models.Lead
	if err := h.DB.First(&lead, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if lead.Status == "converted" {
		httpx.JSONError(w, http.StatusConflict, "lead_already_converted", nil)
		return
	}
	student := models.Student{Name: lead.Name, Email: lead.Email, Phone: lead.Phone, StudioID: lead.StudioID}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&student).Error; err != nil {
			return err
		}
		return tx.Model(&lead).Update("status", "converted").Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_convert_lead", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}
