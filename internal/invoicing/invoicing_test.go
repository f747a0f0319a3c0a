package invoicing

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/models"
)

func setupInvoicingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Student{}, &models.Studio{}, &models.Reservation{},
		&models.InstallmentPlan{}, &models.StudentInstallment{},
		&models.Invoice{}, &models.Payment{}, &models.InvoiceRun{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seed a system actor, a student and a 4-part plan
func seedBookingFixtures(t *testing.T, db *gorm.DB) (actor models.User, student models.Student, plan models.InstallmentPlan) {
	t.Helper()
	actor = models.User{Email: "ops@test", Password: "x", Name: "Ops", Role: "admin", SystemActor: true}
	if err := db.Create(&actor).Error; err != nil {
		t.Fatalf("actor: %v", err)
	}
	student = models.Student{Name: "John Carter", Email: "john@test", University: "UCL"}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("student: %v", err)
	}
	plan = models.InstallmentPlan{Name: "4 instalments", NumberOfInstallments: 4, DepositAmount: decimal.NewFromInt(500)}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("plan: %v", err)
	}
	return
}

func newTestService(db *gorm.DB) *Service {
	s := NewService(db, zap.NewNop(), Config{})
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func seedInvoice(t *testing.T, db *gorm.DB, number string, createdBy uint) models.Invoice {
	t.Helper()
	inv := models.Invoice{
		InvoiceNumber: number,
		Amount:        decimal.NewFromInt(10),
		TotalAmount:   decimal.NewFromInt(10),
		DueDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:        models.InvoiceStatusPending,
		CreatedBy:     createdBy,
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice %s: %v", number, err)
	}
	return inv
}
