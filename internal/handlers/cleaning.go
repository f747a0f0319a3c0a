package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type CleaningHandler struct{ DB *gorm.DB }

func NewCleaningHandler(db *gorm.DB) *CleaningHandler { return &CleaningHandler{DB: db} }

// List: GET /cleaning. Upcoming first, filterable by studio and status
func (h *CleaningHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, _ := listParams(r)
	dbq := h.DB.Model(&models.CleaningTask{})
	if s := r.URL.Query().Get("studio_id"); s != "" {
		dbq = dbq.Where("studio_id = ?", s)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	var total int64
	dbq.Count(&total)
	var tasks []models.CleaningTask
	if err := dbq.Order("scheduled_for asc").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_cleaning_tasks", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tasks, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /cleaning
func (h *CleaningHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudioID     uint   `json:"studio_id" validate:"required"`
		ScheduledFor string `json:"scheduled_for" validate:"required"`
		AssignedTo   string `json:"assigned_to"`
		Notes        string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	when, err := time.Parse("2006-01-02", req.ScheduledFor)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_date", nil)
		return
	}
	var count int64
	if err := h.DB.Model(&models.Studio{}).Where("id = ?", req.StudioID).Count(&count).Error; err != nil || count == 0 {
		httpx.JSONError(w, http.StatusNotFound, "studio_not_found", nil)
		return
	}
	task := models.CleaningTask{StudioID: req.StudioID, ScheduledFor: when, AssignedTo: req.AssignedTo, Status: "scheduled", Notes: req.Notes}
	if err := h.DB.Create(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_cleaning_task", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

// Update: POST /cleaning/update?id=... mark done/skipped, reassign
func (h *CleaningHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var task models.CleaningTask
	if err := h.DB.First(&task, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Status     *string `json:"status"`
		AssignedTo *string `json:"assigned_to"`
		Notes      *string `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updates := map[string]any{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.AssignedTo != nil {
		updates["assigned_to"] = *req.AssignedTo
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&task).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_cleaning_task", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, task)
}
