package main

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/housing-app/internal/auth"
	"github.com/diewo77/housing-app/internal/config"
	"github.com/diewo77/housing-app/internal/middleware"
	"github.com/diewo77/housing-app/internal/server"
)

// NewApp bundles the API routes with session parsing and request logging; the
// end-to-end tests drive this exact handler.
func NewApp(dbConn *gorm.DB, log *zap.Logger, cfg config.Config) http.Handler {
	api := auth.Middleware(server.New(dbConn, log, cfg))
	return middleware.RequestLogging(log, api)
}
