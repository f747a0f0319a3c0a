package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/models"
)

type StudentHandler struct{ DB *gorm.DB }

func NewStudentHandler(db *gorm.DB) *StudentHandler { return &StudentHandler{DB: db} }

// List: GET /students
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, q := listParams(r)
	dbq := h.DB.Model(&models.Student{})
	if q != "" {
		like := searchLike(q)
		dbq = dbq.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var students []models.Student
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&students).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_students", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": students, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /students
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name" validate:"required"`
		Email      string `json:"email" validate:"omitempty,email"`
		Phone      string `json:"phone"`
		University string `json:"university"`
		StudioID   *uint  `json:"studio_id"`
	}
	if !decodeJSON(w, r, &req) || !validateStruct(w, &req) {
		return
	}
	student := models.Student{Name: req.Name, Email: req.Email, Phone: req.Phone, University: req.University, StudioID: req.StudioID}
	if err := h.DB.Create(&student).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_student", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

// Update: POST /students/update?id=...
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	var student models.Student
	if err := h.DB.First(&student, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Phone      *string `json:"phone"`
		University *string `json:"university"`
		StudioID   *uint   `json:"studio_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.University != nil {
		updates["university"] = *req.University
	}
	if req.StudioID != nil {
		updates["studio_id"] = *req.StudioID
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&student).Updates(updates).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_student", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, student)
}

// Delete: POST /students/delete?id=...
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idQuery(w, r)
	if !ok {
		return
	}
	if err := h.DB.Delete(&models.Student{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_student", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
