package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/diewo77/housing-app/internal/models"
)

func uintPtr(v uint) *uint { return &v }

func TestGenerateWithInstallmentPlan(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, plan := seedBookingFixtures(t, db)
	s := newTestService(db)

	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:         student.ID,
		TotalAmount:       d(5000),
		DepositAmount:     dp(500),
		InstallmentPlanID: &plan.ID,
		DepositPaid:       true,
		AcademicYear:      "2025/2026",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bundle.DepositInvoice == nil || bundle.DepositInvoice.Status != models.InvoiceStatusCompleted {
		t.Fatalf("deposit invoice missing or not completed: %+v", bundle.DepositInvoice)
	}
	if !bundle.DepositInvoice.TotalAmount.Equal(d(500)) {
		t.Fatalf("deposit total %s", bundle.DepositInvoice.TotalAmount)
	}
	if bundle.BalanceInvoice != nil {
		t.Fatalf("balance invoice must not exist alongside installments")
	}
	if len(bundle.InstallmentInvoices) != 4 || len(bundle.Installments) != 4 {
		t.Fatalf("expected 4 installment invoices and rows, got %d/%d",
			len(bundle.InstallmentInvoices), len(bundle.Installments))
	}
	// money conservation: deposit + sum(installments) == total
	total := bundle.DepositInvoice.TotalAmount
	for _, inv := range bundle.InstallmentInvoices {
		if !inv.TotalAmount.Equal(d(1125)) {
			t.Fatalf("installment invoice total %s want 1125", inv.TotalAmount)
		}
		total = total.Add(inv.TotalAmount)
	}
	if !total.Equal(d(5000)) {
		t.Fatalf("bundle does not conserve total: %s", total)
	}
	// numbers strictly increasing within the run, 5 distinct values
	seen := map[string]bool{bundle.DepositInvoice.InvoiceNumber: true}
	prev := bundle.DepositInvoice.InvoiceNumber
	for _, inv := range bundle.InstallmentInvoices {
		if seen[inv.InvoiceNumber] {
			t.Fatalf("duplicate number %s in one run", inv.InvoiceNumber)
		}
		if inv.InvoiceNumber <= prev {
			t.Fatalf("numbers not increasing: %s after %s", inv.InvoiceNumber, prev)
		}
		seen[inv.InvoiceNumber] = true
		prev = inv.InvoiceNumber
	}
	// deposit payment row was recorded with a synthesized reference
	if bundle.DepositPayment == nil {
		t.Fatalf("expected deposit payment")
	}
	if bundle.DepositPayment.ReferenceNumber[:7] != "DEP-JOH" {
		t.Fatalf("unexpected reference %s", bundle.DepositPayment.ReferenceNumber)
	}
	// schedule rows are numbered 1..4 for this student/plan
	var rows []models.StudentInstallment
	if err := db.Where("student_id = ? AND installment_plan_id = ?", student.ID, plan.ID).
		Order("installment_number").Find(&rows).Error; err != nil {
		t.Fatalf("load installments: %v", err)
	}
	for i, r := range rows {
		if r.InstallmentNumber != i+1 || r.Status != models.InstallmentStatusPending {
			t.Fatalf("row %d: %+v", i, r)
		}
	}
}

func TestGenerateBalancePathWithoutPlan(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, _ := seedBookingFixtures(t, db)
	s := newTestService(db)

	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:     student.ID,
		TotalAmount:   d(5000),
		DepositAmount: dp(500),
		AcademicYear:  "2025/2026",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bundle.BalanceInvoice == nil || len(bundle.InstallmentInvoices) != 0 {
		t.Fatalf("expected single balance invoice: %+v", bundle)
	}
	if !bundle.BalanceInvoice.TotalAmount.Equal(d(4500)) {
		t.Fatalf("balance total %s want 4500", bundle.BalanceInvoice.TotalAmount)
	}
	if bundle.DepositInvoice.Status != models.InvoiceStatusPending {
		t.Fatalf("unpaid deposit must stay pending")
	}
	if bundle.DepositPayment != nil {
		t.Fatalf("no payment should exist for an unpaid deposit")
	}
	if !bundle.DepositInvoice.TotalAmount.Add(bundle.BalanceInvoice.TotalAmount).Equal(d(5000)) {
		t.Fatalf("deposit + balance != total")
	}
	var count int64
	db.Model(&models.StudentInstallment{}).Count(&count)
	if count != 0 {
		t.Fatalf("no installment rows expected, got %d", count)
	}
}

// A plan with zero installments behaves like no plan at all.
func TestGenerateZeroInstallmentPlanTakesBalancePath(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, _ := seedBookingFixtures(t, db)
	flat := models.InstallmentPlan{Name: "upfront", NumberOfInstallments: 0}
	if err := db.Create(&flat).Error; err != nil {
		t.Fatalf("plan: %v", err)
	}
	s := newTestService(db)
	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:         student.ID,
		TotalAmount:       d(3000),
		DepositAmount:     dp(300),
		InstallmentPlanID: &flat.ID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bundle.BalanceInvoice == nil || len(bundle.InstallmentInvoices) != 0 {
		t.Fatalf("expected balance path for n==0")
	}
}

func TestGenerateInstallmentUpsertIsIdempotent(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, plan := seedBookingFixtures(t, db)
	s := newTestService(db)

	in := GenerateInput{
		StudentID:         student.ID,
		TotalAmount:       d(5000),
		DepositAmount:     dp(500),
		InstallmentPlanID: &plan.ID,
	}
	if _, err := s.Generate(context.Background(), in); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.Generate(context.Background(), in); err != nil {
		t.Fatalf("second run: %v", err)
	}
	var count int64
	db.Model(&models.StudentInstallment{}).
		Where("student_id = ? AND installment_plan_id = ?", student.ID, plan.ID).Count(&count)
	if count != 4 {
		t.Fatalf("replay duplicated installment rows: %d", count)
	}
}

func TestGenerateIdempotencyKeyRejectsReplay(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, _ := seedBookingFixtures(t, db)
	s := newTestService(db)

	in := GenerateInput{
		StudentID:      student.ID,
		TotalAmount:    d(2000),
		DepositAmount:  dp(200),
		IdempotencyKey: "booking-42",
	}
	if _, err := s.Generate(context.Background(), in); err != nil {
		t.Fatalf("first run: %v", err)
	}
	var before int64
	db.Model(&models.Invoice{}).Count(&before)

	_, err := s.Generate(context.Background(), in)
	if !errors.Is(err, ErrAlreadyInvoiced) {
		t.Fatalf("expected ErrAlreadyInvoiced got %v", err)
	}
	var after int64
	db.Model(&models.Invoice{}).Count(&after)
	if before != after {
		t.Fatalf("replay must not write invoices: %d -> %d", before, after)
	}
	var run models.InvoiceRun
	if err := db.Where("key = ?", "booking-42").First(&run).Error; err != nil {
		t.Fatalf("run row: %v", err)
	}
	if run.Status != models.InvoiceRunCompleted {
		t.Fatalf("run status %s", run.Status)
	}
}

func TestGenerateNumbersGloballyUniqueAcrossRuns(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, plan := seedBookingFixtures(t, db)
	s := newTestService(db)

	for i := 0; i < 3; i++ {
		other := models.Student{Name: "Tenant", Email: "t@test"}
		if err := db.Create(&other).Error; err != nil {
			t.Fatalf("student: %v", err)
		}
		if _, err := s.Generate(context.Background(), GenerateInput{
			StudentID:         other.ID,
			TotalAmount:       d(4000),
			DepositAmount:     dp(400),
			InstallmentPlanID: &plan.ID,
		}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if _, err := s.Generate(context.Background(), GenerateInput{
		StudentID: student.ID, TotalAmount: d(1000), DepositAmount: dp(100),
	}); err != nil {
		t.Fatalf("final run: %v", err)
	}
	var numbers []string
	db.Model(&models.Invoice{}).Pluck("invoice_number", &numbers)
	seen := map[string]bool{}
	for _, n := range numbers {
		if seen[n] {
			t.Fatalf("duplicate invoice number %s", n)
		}
		seen[n] = true
	}
}

// An omitted deposit takes the plan's default; an explicit zero wins over it.
func TestGeneratePlanDepositDefault(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, plan := seedBookingFixtures(t, db)
	s := newTestService(db)

	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:         student.ID,
		TotalAmount:       d(5000),
		InstallmentPlanID: &plan.ID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bundle.DepositInvoice.TotalAmount.Equal(plan.DepositAmount) {
		t.Fatalf("deposit %s want plan default %s", bundle.DepositInvoice.TotalAmount, plan.DepositAmount)
	}
	total := bundle.DepositInvoice.TotalAmount
	for _, inv := range bundle.InstallmentInvoices {
		total = total.Add(inv.TotalAmount)
	}
	if !total.Equal(d(5000)) {
		t.Fatalf("bundle does not conserve total: %s", total)
	}

	other := models.Student{Name: "Second Tenant"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("student: %v", err)
	}
	bundle, err = s.Generate(context.Background(), GenerateInput{
		StudentID:         other.ID,
		TotalAmount:       d(5000),
		DepositAmount:     dp(0),
		InstallmentPlanID: &plan.ID,
	})
	if err != nil {
		t.Fatalf("generate explicit zero: %v", err)
	}
	if !bundle.DepositInvoice.TotalAmount.IsZero() {
		t.Fatalf("explicit zero deposit overridden: %s", bundle.DepositInvoice.TotalAmount)
	}
}

// N bookings invoiced at the same time against one DB must never share a
// number: every colliding insert has to retry onto the next free one.
func TestGenerateConcurrentRunsKeepNumbersUnique(t *testing.T) {
	db := setupInvoicingTestDB(t)
	seedBookingFixtures(t, db)
	s := newTestService(db)

	const runs = 5
	students := make([]models.Student, runs)
	for i := range students {
		students[i] = models.Student{Name: fmt.Sprintf("Tenant %d", i)}
		if err := db.Create(&students[i]).Error; err != nil {
			t.Fatalf("student %d: %v", i, err)
		}
	}
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := s.Generate(context.Background(), GenerateInput{
				StudentID:     id,
				TotalAmount:   d(1000),
				DepositAmount: dp(100),
			}); err != nil {
				errs <- err
			}
		}(students[i].ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent run: %v", err)
	}
	var numbers []string
	db.Model(&models.Invoice{}).Pluck("invoice_number", &numbers)
	if len(numbers) != runs*2 {
		t.Fatalf("expected %d invoices got %d", runs*2, len(numbers))
	}
	seen := map[string]bool{}
	for _, n := range numbers {
		if seen[n] {
			t.Fatalf("duplicate invoice number %s", n)
		}
		seen[n] = true
	}
}

func TestGenerateValidation(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, _ := seedBookingFixtures(t, db)
	s := newTestService(db)
	ctx := context.Background()

	if _, err := s.Generate(ctx, GenerateInput{StudentID: student.ID, TotalAmount: decimal.Zero}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero total: %v", err)
	}
	if _, err := s.Generate(ctx, GenerateInput{StudentID: student.ID, TotalAmount: d(100), DepositAmount: dp(-1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative deposit: %v", err)
	}
	if _, err := s.Generate(ctx, GenerateInput{StudentID: 9999, TotalAmount: d(100)}); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("unknown student: %v", err)
	}
	if _, err := s.Generate(ctx, GenerateInput{StudentID: student.ID, TotalAmount: d(100), InstallmentPlanID: uintPtr(9999)}); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("unknown plan: %v", err)
	}
	if _, err := s.Generate(ctx, GenerateInput{StudentID: student.ID, TotalAmount: d(100), CreatedBy: uintPtr(9999)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown created_by: %v", err)
	}
	// nothing was written by any rejected call
	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected input must not write invoices, found %d", count)
	}
}

func TestGenerateSystemActorFallback(t *testing.T) {
	db := setupInvoicingTestDB(t)
	actor, student, _ := seedBookingFixtures(t, db)
	// another user that would win a naive lowest-id pick is out-ranked by the flag
	other := models.User{Email: "later@test", Password: "x", SystemActor: false}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	s := newTestService(db)
	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:     student.ID,
		TotalAmount:   d(800),
		DepositAmount: dp(100),
		DepositPaid:   true,
		PaymentReference: "pi_3abc",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bundle.DepositInvoice.CreatedBy != actor.ID {
		t.Fatalf("created_by %d want system actor %d", bundle.DepositInvoice.CreatedBy, actor.ID)
	}
	// external reference threads through to the deposit invoice and the payment
	if bundle.DepositInvoice.ExternalReference != "pi_3abc" {
		t.Fatalf("external reference %q", bundle.DepositInvoice.ExternalReference)
	}
	if bundle.DepositPayment == nil || bundle.DepositPayment.ReferenceNumber != "pi_3abc" {
		t.Fatalf("payment reference: %+v", bundle.DepositPayment)
	}
	// but not to the rest of the bundle
	if bundle.BalanceInvoice.ExternalReference != "" {
		t.Fatalf("balance invoice must not carry the processor reference, got %q",
			bundle.BalanceInvoice.ExternalReference)
	}
}

func TestDepositReferenceSlicesRunes(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ref := depositReference("Élénore Dupont", now)
	if !utf8.ValidString(ref) {
		t.Fatalf("reference is not valid UTF-8: %q", ref)
	}
	if !strings.HasPrefix(ref, "DEP-ÉLÉ-") {
		t.Fatalf("unexpected reference %q", ref)
	}
	if ref := depositReference("", now); !strings.HasPrefix(ref, "DEP-STU-") {
		t.Fatalf("empty name fallback: %q", ref)
	}
}

func TestGenerateDepositExceedingTotalClampsToZero(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, _ := seedBookingFixtures(t, db)
	s := newTestService(db)
	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:     student.ID,
		TotalAmount:   d(500),
		DepositAmount: dp(700),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bundle.BalanceInvoice.TotalAmount.IsZero() {
		t.Fatalf("expected zero balance, got %s", bundle.BalanceInvoice.TotalAmount)
	}
}

func TestGenerateTaxDecomposition(t *testing.T) {
	db := setupInvoicingTestDB(t)
	_, student, plan := seedBookingFixtures(t, db)
	s := newTestService(db)
	bundle, err := s.Generate(context.Background(), GenerateInput{
		StudentID:         student.ID,
		TotalAmount:       d(4999),
		DepositAmount:     dp(0),
		TaxRate:           decimal.RequireFromString("0.2"),
		InstallmentPlanID: &plan.ID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	check := func(inv *models.Invoice) {
		if !inv.Amount.Add(inv.TaxAmount).Equal(inv.TotalAmount) {
			t.Fatalf("%s: amount %s + tax %s != total %s",
				inv.InvoiceNumber, inv.Amount, inv.TaxAmount, inv.TotalAmount)
		}
	}
	check(bundle.DepositInvoice)
	for i := range bundle.InstallmentInvoices {
		check(&bundle.InstallmentInvoices[i])
	}
}
