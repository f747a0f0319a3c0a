package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/config"
	"github.com/diewo77/housing-app/internal/models"
)

func setupE2EDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbi, err := gorm.Open(sqlite.Open("file:e2e_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := dbi.AutoMigrate(
		&models.User{}, &models.Student{}, &models.Lead{}, &models.Studio{},
		&models.Reservation{}, &models.CleaningTask{}, &models.InstallmentPlan{},
		&models.Invoice{}, &models.StudentInstallment{}, &models.Payment{},
		&models.InvoiceRun{}, &models.Settings{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return dbi
}

// Drives the whole dashboard flow through the assembled handler: sign up,
// register a student and a plan, book, then read the generated invoices back.
func TestBookingFlowE2E(t *testing.T) {
	dbi := setupE2EDB(t)
	cfg := config.Config{PublicRateRPS: 100, PublicRateBurst: 100}
	app := NewApp(dbi, zap.NewNop(), cfg)

	do := func(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
		t.Helper()
		var r *http.Request
		if body != "" {
			r = httptest.NewRequest(method, path, strings.NewReader(body))
			r.Header.Set("Content-Type", "application/json")
		} else {
			r = httptest.NewRequest(method, path, nil)
		}
		if cookie != nil {
			r.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)
		return w
	}

	signup := do(http.MethodPost, "/signup", `{"email":"staff@test.io","password":"longenough","name":"Staff"}`, nil)
	if signup.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201 got %d body=%s", signup.Code, signup.Body.String())
	}
	cookie := signup.Result().Cookies()[0]

	st := do(http.MethodPost, "/students", `{"name":"Mei Lin","email":"mei@test"}`, cookie)
	if st.Code != http.StatusCreated {
		t.Fatalf("student: expected 201 got %d body=%s", st.Code, st.Body.String())
	}
	var student models.Student
	if err := json.Unmarshal(st.Body.Bytes(), &student); err != nil {
		t.Fatalf("decode student: %v", err)
	}

	pl := do(http.MethodPost, "/plans", `{"name":"3 instalments","number_of_installments":3,"deposit_amount":300}`, cookie)
	if pl.Code != http.StatusCreated {
		t.Fatalf("plan: expected 201 got %d body=%s", pl.Code, pl.Body.String())
	}
	var plan models.InstallmentPlan
	if err := json.Unmarshal(pl.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}

	booking := fmt.Sprintf(`{"student_id":%d,"total_amount":3300,"deposit_amount":300,"installment_plan_id":%d,"deposit_already_paid":true,"payment_method":"card"}`, student.ID, plan.ID)
	bk := do(http.MethodPost, "/bookings", booking, cookie)
	if bk.Code != http.StatusCreated {
		t.Fatalf("booking: expected 201 got %d body=%s", bk.Code, bk.Body.String())
	}

	// 1 deposit + 3 installment invoices, all visible on the invoices screen
	list := do(http.MethodGet, fmt.Sprintf("/invoices?student_id=%d", student.ID), "", cookie)
	if list.Code != http.StatusOK {
		t.Fatalf("invoices: expected 200 got %d body=%s", list.Code, list.Body.String())
	}
	var page struct {
		Items []models.Invoice `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode invoices: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("expected 4 invoices got %d", page.Total)
	}

	inst := do(http.MethodGet, fmt.Sprintf("/invoices/installments?student_id=%d", student.ID), "", cookie)
	if inst.Code != http.StatusOK || !strings.Contains(inst.Body.String(), `"total":3`) {
		t.Fatalf("installments: got %d body=%s", inst.Code, inst.Body.String())
	}

	// deposit was marked paid, so its payment row exists
	var deposit models.Invoice
	if err := dbi.Where("student_id = ? AND status = ?", student.ID, models.InvoiceStatusCompleted).First(&deposit).Error; err != nil {
		t.Fatalf("deposit invoice: %v", err)
	}
	pay := do(http.MethodGet, fmt.Sprintf("/invoices/payments?id=%d", deposit.ID), "", cookie)
	if pay.Code != http.StatusOK || !strings.Contains(pay.Body.String(), `"total":1`) {
		t.Fatalf("payments: got %d body=%s", pay.Code, pay.Body.String())
	}
}
