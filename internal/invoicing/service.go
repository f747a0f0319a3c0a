package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/housing-app/internal/models"
)

// DefaultRunTimeout bounds one whole orchestration run, including every
// writer retry, so a hot sequence under load cannot stall a booking forever.
const DefaultRunTimeout = 10 * time.Second

// Config carries the injectable retry/deadline policy.
type Config struct {
	MaxAttempts int           // candidate invoice numbers per invoice; 0 = DefaultMaxAttempts
	RunTimeout  time.Duration // whole-run deadline; 0 = DefaultRunTimeout
}

// Service generates the full invoice bundle for one booking: deposit invoice,
// optional deposit payment record, and either a balance invoice or an
// installment set with its payment schedule.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	maxAttempts int
	runTimeout  time.Duration
	now         func() time.Time
}

func NewService(db *gorm.DB, log *zap.Logger, cfg Config) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{db: db, log: log, maxAttempts: cfg.MaxAttempts, runTimeout: cfg.RunTimeout, now: time.Now}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.runTimeout <= 0 {
		s.runTimeout = DefaultRunTimeout
	}
	return s
}

// GenerateInput is one booking to invoice.
type GenerateInput struct {
	StudentID     uint
	ReservationID *uint
	TotalAmount   decimal.Decimal
	// DepositAmount nil means "use the plan's deposit default"; an explicit
	// value, including zero, always wins.
	DepositAmount     *decimal.Decimal
	TaxRate           decimal.Decimal // 0..1, amounts are tax-inclusive
	InstallmentPlanID *uint
	CreatedBy         *uint // nil => system actor fallback
	DepositPaid       bool
	PaymentMethod     string // defaults to "card"
	PaymentReference  string // external processor reference, public intake
	AcademicYear      string
	// IdempotencyKey, when set, makes a replay of the same booking attempt
	// fail with ErrAlreadyInvoiced instead of duplicating invoices.
	IdempotencyKey string
}

// Bundle is everything Generate created. Exactly one of BalanceInvoice and
// InstallmentInvoices is populated.
type Bundle struct {
	DepositInvoice      *models.Invoice             `json:"deposit_invoice"`
	DepositPayment      *models.Payment             `json:"deposit_payment,omitempty"`
	BalanceInvoice      *models.Invoice             `json:"balance_invoice,omitempty"`
	InstallmentInvoices []models.Invoice            `json:"installment_invoices,omitempty"`
	Installments        []models.StudentInstallment `json:"installments,omitempty"`
}

type bundleRecord struct {
	DepositInvoiceID      uint   `json:"deposit_invoice_id"`
	DepositPaymentID      uint   `json:"deposit_payment_id,omitempty"`
	BalanceInvoiceID      uint   `json:"balance_invoice_id,omitempty"`
	InstallmentInvoiceIDs []uint `json:"installment_invoice_ids,omitempty"`
	InstallmentIDs        []uint `json:"installment_ids,omitempty"`
}

// Generate runs the booking-invoicing state machine:
// validate -> resolve actor -> resolve plan -> begin run -> allocate sequence
// base -> deposit invoice (+ best-effort payment) -> installment set | balance
// invoice -> complete run.
//
// Partial writes that committed before a failure are not rolled back; the
// installment upsert is idempotent and the run row (when a key was supplied)
// stops a blind replay from duplicating the deposit invoice.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if !in.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total_amount must be positive", ErrInvalidInput)
	}
	if in.DepositAmount != nil && in.DepositAmount.IsNegative() {
		return nil, fmt.Errorf("%w: deposit_amount must not be negative", ErrInvalidInput)
	}

	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, in.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("students: load %d: %w", in.StudentID, err)
	}

	actorID, err := s.resolveActor(ctx, in.CreatedBy)
	if err != nil {
		return nil, err
	}

	var plan *models.InstallmentPlan
	if in.InstallmentPlanID != nil {
		plan = &models.InstallmentPlan{}
		if err := s.db.WithContext(ctx).First(plan, *in.InstallmentPlanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, fmt.Errorf("installment_plans: load %d: %w", *in.InstallmentPlanID, err)
		}
	}

	depositAmt := decimal.Zero
	switch {
	case in.DepositAmount != nil:
		depositAmt = *in.DepositAmount
	case plan != nil:
		depositAmt = plan.DepositAmount
	}

	// Claim the idempotency key before any invoice write.
	var run *models.InvoiceRun
	if in.IdempotencyKey != "" {
		run = &models.InvoiceRun{Key: in.IdempotencyKey, Status: models.InvoiceRunStarted}
		if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, ErrAlreadyInvoiced
			}
			return nil, fmt.Errorf("invoice_runs: create: %w", err)
		}
	}
	fail := func(err error) (*Bundle, error) {
		if run != nil {
			if uerr := s.db.WithContext(ctx).Model(run).Update("status", models.InvoiceRunFailed).Error; uerr != nil {
				s.log.Warn("invoice run status update failed", zap.String("key", run.Key), zap.Error(uerr))
			}
		}
		return nil, err
	}

	year, startSeq := s.nextSequenceBase(ctx)
	writer := newInvoiceWriter(s.db, year, startSeq, s.maxAttempts)
	now := s.now()
	bundle := &Bundle{}

	depositStatus := models.InvoiceStatusPending
	if in.DepositPaid {
		depositStatus = models.InvoiceStatusCompleted
	}
	deposit := s.buildInvoice(&student, in, depositAmt, now, depositStatus, actorID)
	// the processor reference belongs to the deposit only
	deposit.ExternalReference = in.PaymentReference
	if err := writer.create(ctx, deposit); err != nil {
		return fail(err)
	}
	bundle.DepositInvoice = deposit

	if in.DepositPaid {
		// Best effort: the money was genuinely received, so a failure here is
		// logged and must not undo the deposit invoice.
		pay := &models.Payment{
			InvoiceID:       deposit.ID,
			Amount:          deposit.TotalAmount,
			Method:          paymentMethod(in.PaymentMethod),
			Status:          "paid",
			ReferenceNumber: in.PaymentReference,
			CreatedBy:       actorID,
		}
		if pay.ReferenceNumber == "" {
			pay.ReferenceNumber = depositReference(student.Name, now)
		}
		if err := s.db.WithContext(ctx).Create(pay).Error; err != nil {
			s.log.Warn("deposit payment record failed",
				zap.Uint("invoice_id", deposit.ID), zap.Uint("student_id", student.ID), zap.Error(err))
		} else {
			bundle.DepositPayment = pay
		}
	}

	remaining := in.TotalAmount.Sub(depositAmt)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	if plan != nil && plan.NumberOfInstallments > 0 {
		dates, err := plan.ParsedDueDates()
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrInvalidInput, err))
		}
		lines := splitRemaining(remaining, plan.NumberOfInstallments, dates, now)
		installments, err := s.upsertInstallments(ctx, student.ID, plan.ID, lines)
		if err != nil {
			return fail(err)
		}
		bundle.Installments = installments
		for _, line := range lines {
			inv := s.buildInvoice(&student, in, line.Amount, line.DueDate, models.InvoiceStatusPending, actorID)
			if err := writer.create(ctx, inv); err != nil {
				return fail(err)
			}
			bundle.InstallmentInvoices = append(bundle.InstallmentInvoices, *inv)
		}
	} else {
		balance := s.buildInvoice(&student, in, remaining, now.AddDate(0, 1, 0), models.InvoiceStatusPending, actorID)
		if err := writer.create(ctx, balance); err != nil {
			return fail(err)
		}
		bundle.BalanceInvoice = balance
	}

	if run != nil {
		rec := bundleRecord{DepositInvoiceID: bundle.DepositInvoice.ID}
		if bundle.DepositPayment != nil {
			rec.DepositPaymentID = bundle.DepositPayment.ID
		}
		if bundle.BalanceInvoice != nil {
			rec.BalanceInvoiceID = bundle.BalanceInvoice.ID
		}
		for _, inv := range bundle.InstallmentInvoices {
			rec.InstallmentInvoiceIDs = append(rec.InstallmentInvoiceIDs, inv.ID)
		}
		for _, ins := range bundle.Installments {
			rec.InstallmentIDs = append(rec.InstallmentIDs, ins.ID)
		}
		raw, _ := json.Marshal(rec)
		if err := s.db.WithContext(ctx).Model(run).
			Updates(map[string]any{"status": models.InvoiceRunCompleted, "bundle": raw}).Error; err != nil {
			s.log.Warn("invoice run completion update failed", zap.String("key", run.Key), zap.Error(err))
		}
	}
	return bundle, nil
}

// buildInvoice fills one invoice from a tax-inclusive gross amount. The due
// date and status vary per kind; numbering is left to the writer.
func (s *Service) buildInvoice(student *models.Student, in GenerateInput, gross decimal.Decimal, due time.Time, status string, actorID uint) *models.Invoice {
	net, tax := grossToParts(gross, in.TaxRate)
	return &models.Invoice{
		StudentID:     &student.ID,
		ReservationID: in.ReservationID,
		Amount:        net,
		TaxAmount:     tax,
		TotalAmount:   gross,
		DueDate:       due,
		Status:        status,
		AcademicYear:  in.AcademicYear,
		CreatedBy:     actorID,
	}
}

// upsertInstallments persists the payment schedule with upsert-on-conflict on
// (student_id, installment_plan_id, installment_number), so replaying the
// same booking updates the rows in place instead of duplicating them.
func (s *Service) upsertInstallments(ctx context.Context, studentID, planID uint, lines []installmentLine) ([]models.StudentInstallment, error) {
	rows := make([]models.StudentInstallment, len(lines))
	for i, line := range lines {
		rows[i] = models.StudentInstallment{
			StudentID:         studentID,
			InstallmentPlanID: planID,
			InstallmentNumber: line.Number,
			DueDate:           line.DueDate,
			Amount:            line.Amount,
			Status:            models.InstallmentStatusPending,
		}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "student_id"},
			{Name: "installment_plan_id"},
			{Name: "installment_number"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"due_date", "amount", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("student_installments: upsert: %w", err)
	}
	return rows, nil
}

// resolveActor returns the user id recorded as created_by. With no
// authenticated caller (public booking intake) it falls back to the system
// actor: the user flagged system_actor, else the lowest-id user.
func (s *Service) resolveActor(ctx context.Context, createdBy *uint) (uint, error) {
	if createdBy != nil && *createdBy != 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *createdBy).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("users: verify %d: %w", *createdBy, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: created_by user %d does not exist", ErrInvalidInput, *createdBy)
		}
		return *createdBy, nil
	}
	var u models.User
	err := s.db.WithContext(ctx).Where("system_actor = ?", true).Order("id ASC").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Order("id ASC").First(&u).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNoActor
		}
		return 0, fmt.Errorf("users: resolve system actor: %w", err)
	}
	return u.ID, nil
}

func paymentMethod(m string) string {
	if strings.TrimSpace(m) == "" {
		return "card"
	}
	return m
}

// depositReference synthesizes a reference like DEP-JOH-1735689600 when the
// caller supplied none.
func depositReference(studentName string, now time.Time) string {
	prefix := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(studentName), " ", ""))
	// slice runes, not bytes, so accented names keep a valid prefix
	if r := []rune(prefix); len(r) > 3 {
		prefix = string(r[:3])
	}
	if prefix == "" {
		prefix = "STU"
	}
	return fmt.Sprintf("DEP-%s-%d", prefix, now.Unix())
}
