package models

import "time"

// User — строка таблицы users. Храним только SHA-256 хэш кода,
// plaintext уходит пользователю по почте и нигде не сохраняется.
// email_otp и email_otp_expires либо оба NULL, либо оба заполнены.
type User struct {
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	EmailOTP        *string    `db:"email_otp" json:"-"`
	EmailOTPExpires *time.Time `db:"email_otp_expires" json:"-"`
	EmailVerified   bool       `db:"email_verified" json:"email_verified"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
