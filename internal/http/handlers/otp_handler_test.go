package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fixofix/verification-backend/internal/models"
	"github.com/fixofix/verification-backend/internal/repository"
	"github.com/fixofix/verification-backend/internal/service"
)

// fakeUserRepository — in-memory замена таблицы users.
type fakeUserRepository struct {
	users     map[string]*models.User
	upsertErr error
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*models.User)}
}

func (f *fakeUserRepository) UpsertOTP(ctx context.Context, name, email, otpHash string, expiresAt time.Time) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	user, ok := f.users[email]
	if !ok {
		user = &models.User{Email: email}
		f.users[email] = user
	}
	user.Name = name
	user.EmailOTP = &otpHash
	user.EmailOTPExpires = &expiresAt
	return nil
}

func (f *fakeUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := f.users[email]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepository) ConfirmEmail(ctx context.Context, email, otpHash string) (bool, error) {
	user, ok := f.users[email]
	if !ok || user.EmailOTP == nil || *user.EmailOTP != otpHash {
		return false, nil
	}
	user.EmailVerified = true
	user.EmailOTP = nil
	user.EmailOTPExpires = nil
	return true, nil
}

// fakeMailer перехватывает код вместо реальной отправки.
type fakeMailer struct {
	lastCode string
	sendErr  error
}

func (f *fakeMailer) SendVerificationCode(email, code string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lastCode = code
	return nil
}

func setupTestRouter(repo *fakeUserRepository, mailer *fakeMailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewOTPHandler(service.NewOTPService(repo, mailer))
	r.POST("/send-email-otp", handler.SendEmailOTP)
	r.POST("/verify-email-otp", handler.VerifyEmailOTP)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	assert.NoError(t, err)

	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSendEmailOTP_MissingFields(t *testing.T) {
	r := setupTestRouter(newFakeUserRepository(), &fakeMailer{})

	cases := []map[string]string{
		{},
		{"name": "Alice"},
		{"email": "a@x.com"},
		{"name": "  ", "email": "a@x.com"},
	}
	for _, body := range cases {
		w, resp := doJSON(t, r, "/send-email-otp", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Missing fields", resp["message"])
	}
}

func TestVerifyEmailOTP_MissingFields(t *testing.T) {
	r := setupTestRouter(newFakeUserRepository(), &fakeMailer{})

	w, resp := doJSON(t, r, "/verify-email-otp", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Missing fields", resp["message"])
}

func TestSendEmailOTP_Success(t *testing.T) {
	repo := newFakeUserRepository()
	mailer := &fakeMailer{}
	r := setupTestRouter(repo, mailer)

	w, resp := doJSON(t, r, "/send-email-otp", map[string]string{"name": "Alice", "email": "a@x.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	// Код не утекает в ответ, только в письмо.
	assert.NotContains(t, w.Body.String(), mailer.lastCode)
	assert.Len(t, mailer.lastCode, 6)
	assert.NotNil(t, repo.users["a@x.com"].EmailOTP)
}

func TestSendEmailOTP_MailFailure(t *testing.T) {
	repo := newFakeUserRepository()
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	r := setupTestRouter(repo, mailer)

	w, resp := doJSON(t, r, "/send-email-otp", map[string]string{"name": "Alice", "email": "a@x.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Failed to send OTP", resp["message"])
}

func TestSendEmailOTP_StoreFailure(t *testing.T) {
	repo := newFakeUserRepository()
	repo.upsertErr = errors.New("db down")
	mailer := &fakeMailer{}
	r := setupTestRouter(repo, mailer)

	w, resp := doJSON(t, r, "/send-email-otp", map[string]string{"name": "Alice", "email": "a@x.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send OTP", resp["message"])
	assert.Empty(t, mailer.lastCode)
}

func TestVerifyEmailOTP_FullFlow(t *testing.T) {
	repo := newFakeUserRepository()
	mailer := &fakeMailer{}
	r := setupTestRouter(repo, mailer)

	w, _ := doJSON(t, r, "/send-email-otp", map[string]string{"name": "Alice", "email": "a@x.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Неверный код — benign отказ, не ошибка сервера.
	wrong := "000000"
	if wrong == mailer.lastCode {
		wrong = "000001"
	}
	w, resp := doJSON(t, r, "/verify-email-otp", map[string]string{"email": "a@x.com", "otp": wrong})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Invalid OTP", resp["message"])

	// Правильный код подтверждает email и гасит запись.
	w, resp = doJSON(t, r, "/verify-email-otp", map[string]string{"email": "a@x.com", "otp": mailer.lastCode})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.True(t, repo.users["a@x.com"].EmailVerified)
	assert.Nil(t, repo.users["a@x.com"].EmailOTP)

	// Повторное использование: активного кода больше нет.
	w, resp = doJSON(t, r, "/verify-email-otp", map[string]string{"email": "a@x.com", "otp": mailer.lastCode})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "OTP expired", resp["message"])
}

func TestVerifyEmailOTP_UserNotFound(t *testing.T) {
	r := setupTestRouter(newFakeUserRepository(), &fakeMailer{})

	w, resp := doJSON(t, r, "/verify-email-otp", map[string]string{"email": "nobody@x.com", "otp": "123456"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "User not found", resp["message"])
}
