package router

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/fixofix/verification-backend/internal/config"
	"github.com/fixofix/verification-backend/internal/http/handlers"
	"github.com/fixofix/verification-backend/internal/http/middleware"
)

// SetupRouter собирает gin движок с маршрутами сервиса.
func SetupRouter(
	cfg *config.Config,
	otpHandler *handlers.OTPHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	r.POST("/send-email-otp", otpHandler.SendEmailOTP)
	r.POST("/verify-email-otp", otpHandler.VerifyEmailOTP)

	// Статика фронтенда, как в исходном public/.
	if cfg.PublicDir != "" {
		index := filepath.Join(cfg.PublicDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			r.StaticFile("/", index)
		}
		r.Static("/public", cfg.PublicDir)
	}

	return r
}
