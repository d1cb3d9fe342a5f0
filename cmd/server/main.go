package main

import (
	"log"
	"net/http"
	"time"

	"ajo_ledger/internal/config"
	"ajo_ledger/internal/jobs"
	"ajo_ledger/internal/ledger"
	"ajo_ledger/internal/logger"
	"ajo_ledger/internal/middleware"
	"ajo_ledger/internal/notify"
	"ajo_ledger/internal/payments"
	"ajo_ledger/internal/routes"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// External collaborators: mail falls back to log-only, a missing
	// gateway secret puts payouts in manual-approval mode.
	var mailer notify.Mailer = notify.LogMailer{}
	if host := config.GetEnv("SMTP_HOST", ""); host != "" {
		mailer = notify.NewSMTPMailer(
			host,
			config.GetEnv("SMTP_PORT", "587"),
			config.GetEnv("SMTP_USER", ""),
			config.GetEnv("SMTP_PASSWORD", ""),
			config.GetEnv("SMTP_FROM", "no-reply@ajoledger.app"),
		)
	}

	var gateway payments.Gateway
	secretKey := config.GetEnv("PAYSTACK_SECRET_KEY", "")
	if secretKey != "" {
		gateway = payments.NewPaystackGateway(secretKey)
	}

	svc := ledger.New(config.DB, mailer, gateway)

	// Background retry of stuck pending payouts
	poller := jobs.NewPayoutPoller(svc, 5*time.Minute, 15*time.Minute)
	poller.Start()

	// Setup Gin router
	r := routes.SetupRouter(svc, gateway, secretKey)

	// Recovery middleware
	r.Use(gin.Recovery())

	// Request logging middleware
	r.Use(ginlog.SetLogger())

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}
