package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Mlocoes/BolsaV2/src/config"
	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/handlers"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/security"
	"github.com/Mlocoes/BolsaV2/src/services"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Starting BolsaV2 backend")

	// Quantities and prices serialize as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	database.InitDB(config.Cfg.DatabasePath)

	reportCache := cache.New(15*time.Minute, 30*time.Minute)
	priceCache := cache.New(config.Cfg.QuoteCacheExpiry, 30*time.Minute)

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	fiscalService := services.NewFiscalService(reportCache)
	positionService := services.NewPositionService()
	quoteService := services.NewQuoteService(priceCache)
	snapshotService := services.NewSnapshotService(quoteService)
	impexpService := services.NewImportExportService(positionService, fiscalService)

	userHandler := handlers.NewUserHandler(authService, emailService)
	portfolioHandler := handlers.NewPortfolioHandler()
	assetHandler := handlers.NewAssetHandler()
	transactionHandler := handlers.NewTransactionHandler(positionService, fiscalService)
	fiscalHandler := handlers.NewFiscalHandler(fiscalService)
	quoteHandler := handlers.NewQuoteHandler(quoteService)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotService)
	impexpHandler := handlers.NewImportExportHandler(impexpService)

	handlers.InitializeGoogleOAuthConfig()

	mux := http.NewServeMux()

	// Public auth routes.
	mux.HandleFunc("POST /api/auth/register", userHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", userHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/refresh", userHandler.HandleRefreshToken)
	mux.HandleFunc("POST /api/auth/logout", userHandler.HandleLogout)
	mux.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	mux.HandleFunc("POST /api/auth/request-password-reset", userHandler.HandleRequestPasswordReset)
	mux.HandleFunc("POST /api/auth/reset-password", userHandler.HandleResetPassword)
	mux.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	mux.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	// Everything below requires a valid token (and session for local users).
	protect := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, userHandler.AuthMiddleware(fn))
	}

	protect("GET /api/portfolios", portfolioHandler.HandleListPortfolios)
	protect("POST /api/portfolios", portfolioHandler.HandleCreatePortfolio)
	protect("GET /api/portfolios/{id}", portfolioHandler.HandleGetPortfolio)
	protect("PUT /api/portfolios/{id}", portfolioHandler.HandleUpdatePortfolio)
	protect("DELETE /api/portfolios/{id}", portfolioHandler.HandleDeletePortfolio)

	protect("GET /api/assets", assetHandler.HandleListAssets)
	protect("POST /api/assets", assetHandler.HandleCreateAsset)
	protect("GET /api/assets/{id}", assetHandler.HandleGetAsset)

	protect("GET /api/portfolios/{id}/transactions", transactionHandler.HandleListTransactions)
	protect("POST /api/portfolios/{id}/transactions", transactionHandler.HandleCreateTransaction)
	protect("PUT /api/transactions/{id}", transactionHandler.HandleUpdateTransaction)
	protect("DELETE /api/transactions/{id}", transactionHandler.HandleDeleteTransaction)

	protect("GET /api/fiscal/{portfolioID}", fiscalHandler.HandleGetFiscalResult)

	protect("GET /api/quotes", quoteHandler.HandleListQuotes)
	protect("POST /api/quotes", quoteHandler.HandleUpsertQuote)
	protect("POST /api/quotes/refresh", quoteHandler.HandleRefreshQuote)
	protect("POST /api/quotes/import", impexpHandler.HandleImportQuotes)

	protect("GET /api/portfolios/{id}/snapshots", snapshotHandler.HandleListSnapshots)
	protect("POST /api/portfolios/{id}/snapshots", snapshotHandler.HandleCaptureSnapshot)

	protect("POST /api/portfolios/{id}/transactions/import", impexpHandler.HandleImportTransactions)
	protect("GET /api/portfolios/{id}/transactions/export", impexpHandler.HandleExportTransactions)

	limiter := rate.NewLimiter(rate.Limit(20), 40)
	var handler http.Handler = mux
	handler = handlers.RateLimitMiddleware(limiter)(handler)
	handler = handlers.CSRFMiddleware()(handler)
	handler = handlers.CORSMiddleware(config.Cfg.CORSAllowedOrigins)(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshotService.StartScheduler(ctx, config.Cfg.SnapshotInterval)

	srv := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
}
