package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/auth"
	"github.com/diewo77/housing-app/internal/config"
	"github.com/diewo77/housing-app/internal/handlers"
	"github.com/diewo77/housing-app/internal/httpx"
	"github.com/diewo77/housing-app/internal/invoicing"
	"github.com/diewo77/housing-app/internal/middleware"
	"github.com/diewo77/housing-app/internal/models"
)

func protected(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

// New constructs the root http.Handler with all routes applied.
func New(db *gorm.DB, log *zap.Logger, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth double-checks that the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	handlers.NewAuthHandler(db).Register(mux)

	// Booking endpoints: the invoicing core's two entry points
	svc := invoicing.NewService(db, log, invoicing.Config{
		MaxAttempts: cfg.InvoiceMaxAttempts,
		RunTimeout:  cfg.InvoiceRunTimeout,
	})
	bh := handlers.NewBookingHandler(db, svc, log)
	mux.Handle("/bookings", protected(bh.Create))
	// unauthenticated intake from the public booking form, rate limited
	mux.Handle("/public/bookings", middleware.RateLimit(log, cfg.PublicRateRPS, cfg.PublicRateBurst, http.HandlerFunc(bh.CreatePublic)))

	// Dashboard CRUD screens
	sh := handlers.NewStudentHandler(db)
	mux.Handle("/students", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sh.List(w, r)
		case http.MethodPost:
			sh.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/students/update", protected(sh.Update))
	mux.Handle("/students/delete", protected(sh.Delete))

	lh := handlers.NewLeadHandler(db)
	mux.Handle("/leads", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lh.List(w, r)
		case http.MethodPost:
			lh.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/leads/update", protected(lh.Update))
	mux.Handle("/leads/convert", protected(lh.Convert))

	sth := handlers.NewStudioHandler(db)
	mux.Handle("/studios", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sth.List(w, r)
		case http.MethodPost:
			sth.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/studios/update", protected(sth.Update))
	mux.Handle("/studios/delete", protected(sth.Delete))

	ph := handlers.NewPlanHandler(db)
	mux.Handle("/plans", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))

	ch := handlers.NewCleaningHandler(db)
	mux.Handle("/cleaning", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ch.List(w, r)
		case http.MethodPost:
			ch.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/cleaning/update", protected(ch.Update))

	mux.Handle("/settings", protected(handlers.NewSettingsHandler(db).Handle))

	ih := handlers.NewInvoiceHandler(db)
	mux.Handle("/invoices", protected(ih.List))
	mux.Handle("/invoices/payments", protected(ih.Payments))
	mux.Handle("/invoices/installments", protected(ih.Installments))

	return mux
}
