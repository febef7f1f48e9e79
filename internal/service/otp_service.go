package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixofix/verification-backend/internal/logger"
	"github.com/fixofix/verification-backend/internal/mail"
	"github.com/fixofix/verification-backend/internal/models"
	"github.com/fixofix/verification-backend/internal/repository"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrOTPExpired   = errors.New("otp expired")
	ErrOTPInvalid   = errors.New("otp invalid")
)

// otpTTL фиксированный: письмо обещает пользователю ровно 5 минут.
const otpTTL = 5 * time.Minute

// UserRepository — слой хранения, нужный сервису.
type UserRepository interface {
	UpsertOTP(ctx context.Context, name, email, otpHash string, expiresAt time.Time) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ConfirmEmail(ctx context.Context, email, otpHash string) (bool, error)
}

// OTPService выдаёт и проверяет одноразовые коды подтверждения email.
type OTPService struct {
	repo   UserRepository
	mailer mail.Mailer
	now    func() time.Time
}

// NewOTPService создаёт сервис.
func NewOTPService(repo UserRepository, mailer mail.Mailer) *OTPService {
	return &OTPService{
		repo:   repo,
		mailer: mailer,
		now:    time.Now,
	}
}

// Issue генерирует код, сохраняет его хэш и отправляет plaintext на почту.
// Запись фиксируется до отправки письма: если письмо не ушло, хэш и срок
// в базе уже новые, клиенту остаётся запросить код повторно.
func (s *OTPService) Issue(ctx context.Context, name, email string) error {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("otp service: generate code: %w", err)
	}

	expiresAt := s.now().Add(otpTTL)

	if err := s.repo.UpsertOTP(ctx, name, email, HashCode(code), expiresAt); err != nil {
		return fmt.Errorf("otp service: store: %w", err)
	}

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		return fmt.Errorf("otp service: mail: %w", err)
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"email":      email,
			"expires_at": expiresAt,
		}).Info("otp issued")
	}

	return nil
}

// Verify сверяет код с сохранённым хэшем и помечает email подтверждённым.
// Негативные исходы возвращаются sentinel ошибками, это ожидаемые бизнес
// результаты, а не сбои.
func (s *OTPService) Verify(ctx context.Context, email, otp string) error {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("otp service: lookup: %w", err)
	}

	if user.EmailOTPExpires == nil || user.EmailOTPExpires.Before(s.now()) {
		return ErrOTPExpired
	}

	otpHash := HashCode(otp)
	if user.EmailOTP == nil || *user.EmailOTP != otpHash {
		return ErrOTPInvalid
	}

	confirmed, err := s.repo.ConfirmEmail(ctx, email, otpHash)
	if err != nil {
		return fmt.Errorf("otp service: confirm: %w", err)
	}
	if !confirmed {
		// Код заменили между чтением и апдейтом.
		return ErrOTPInvalid
	}

	if logger.Log != nil {
		logger.Log.WithField("email", email).Info("email verified")
	}

	return nil
}

// NormalizeEmail приводит email к каноническому виду для ключа таблицы.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashCode возвращает SHA-256 hex от plaintext кода.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode выдаёт равномерно случайный 6-значный код из [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
