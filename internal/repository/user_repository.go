package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fixofix/verification-backend/internal/models"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// UserRepository отвечает за работу с таблицей users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertOTP атомарно создаёт пользователя или заменяет активный код.
// Конкурентные выдачи по одному email сериализуются на уникальном индексе,
// email_verified при апдейте не трогаем.
func (r *UserRepository) UpsertOTP(ctx context.Context, name, email, otpHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO users (name, email, email_otp, email_otp_expires)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
			email_otp = EXCLUDED.email_otp,
			email_otp_expires = EXCLUDED.email_otp_expires,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, name, email, otpHash, expiresAt); err != nil {
		return fmt.Errorf("user repository: upsert otp %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, name, email, email_otp, email_otp_expires, email_verified, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}

	return &user, nil
}

// ConfirmEmail помечает email подтверждённым и гасит код одним условным
// апдейтом. Сравнение хэша в WHERE защищает от гонки с повторной выдачей:
// если код успели заменить, вернётся false и запись останется нетронутой.
func (r *UserRepository) ConfirmEmail(ctx context.Context, email, otpHash string) (bool, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE,
			email_otp = NULL,
			email_otp_expires = NULL,
			updated_at = NOW()
		WHERE email = $1 AND email_otp = $2
	`

	res, err := r.db.ExecContext(ctx, query, email, otpHash)
	if err != nil {
		return false, fmt.Errorf("user repository: confirm email %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user repository: confirm email rows affected %w", err)
	}

	return affected > 0, nil
}
