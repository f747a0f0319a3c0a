package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/models"
)

func newStudentMux(db *gorm.DB) http.Handler {
	sh := NewStudentHandler(db)
	mux := http.NewServeMux()
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sh.List(w, r)
		case http.MethodPost:
			sh.Create(w, r)
		}
	})
	mux.HandleFunc("/students/update", sh.Update)
	mux.HandleFunc("/students/delete", sh.Delete)
	return mux
}

func TestStudentCRUD(t *testing.T) {
	db := setupHandlersTestDB(t)
	h := newStudentMux(db)

	w := postJSON(t, h, "/students", `{"name":"Amina Diallo","email":"amina@test","university":"KCL"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Student
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Name != "Amina Diallo" {
		t.Fatalf("unexpected student %+v", created)
	}

	// search hits on the name, misses otherwise
	list := httptest.NewRecorder()
	h.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/students?q=amina", nil))
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), "amina@test") {
		t.Fatalf("list: expected hit got %d body=%s", list.Code, list.Body.String())
	}
	miss := httptest.NewRecorder()
	h.ServeHTTP(miss, httptest.NewRequest(http.MethodGet, "/students?q=nobody", nil))
	if miss.Code != http.StatusOK || !strings.Contains(miss.Body.String(), `"total":0`) {
		t.Fatalf("list miss: got %d body=%s", miss.Code, miss.Body.String())
	}

	upd := postJSON(t, h, fmt.Sprintf("/students/update?id=%d", created.ID), `{"university":"UCL"}`, nil)
	if upd.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d body=%s", upd.Code, upd.Body.String())
	}
	var after models.Student
	if err := db.First(&after, created.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.University != "UCL" {
		t.Fatalf("expected updated university, got %q", after.University)
	}

	del := postJSON(t, h, fmt.Sprintf("/students/delete?id=%d", created.ID), "", nil)
	if del.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", del.Code)
	}
	var count int64
	db.Model(&models.Student{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected 0 students after delete, got %d", count)
	}
}

func TestStudentCreateRejectsBadEmail(t *testing.T) {
	db := setupHandlersTestDB(t)
	h := newStudentMux(db)

	w := postJSON(t, h, "/students", `{"name":"X","email":"not-an-email"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestStudentUpdateUnknownID(t *testing.T) {
	db := setupHandlersTestDB(t)
	h := newStudentMux(db)

	w := postJSON(t, h, "/students/update?id=77", `{"name":"Ghost"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}
