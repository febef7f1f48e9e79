package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fixofix/verification-backend/internal/logger"
	"github.com/fixofix/verification-backend/internal/service"
)

// OTPHandler предоставляет HTTP слой для выдачи и проверки email кодов.
type OTPHandler struct {
	otp *service.OTPService
}

// NewOTPHandler создаёт хэндлер.
func NewOTPHandler(otp *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otp}
}

// SendEmailOTP обрабатывает POST /send-email-otp.
func (h *OTPHandler) SendEmailOTP(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// Контракт требует ровно "Missing fields" на пустом вводе,
	// поэтому валидируем руками, а не через binding:"required".
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing fields"})
		return
	}

	if err := h.otp.Issue(c.Request.Context(), req.Name, req.Email); err != nil {
		logError(c, "send otp failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send OTP"})
		return
	}

	// Код в ответ не попадает, он едет только письмом.
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VerifyEmailOTP обрабатывает POST /verify-email-otp.
func (h *OTPHandler) VerifyEmailOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}

	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing fields"})
		return
	}

	err := h.otp.Verify(c.Request.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "User not found"})
	case errors.Is(err, service.ErrOTPExpired):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "OTP expired"})
	case errors.Is(err, service.ErrOTPInvalid):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Invalid OTP"})
	default:
		logError(c, "verify otp failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	}
}

// logError пишет ошибку в лог, не раскрывая деталей клиенту.
func logError(c *gin.Context, msg string, err error) {
	if logger.Log == nil {
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"error":      err.Error(),
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("request_id"),
	}).Error(msg)
}
