package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer отправляет письма с кодом подтверждения.
type Mailer interface {
	SendVerificationCode(email, code string) error
}

type smtpMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPMailer создаёт mailer поверх SMTP (gomail).
func NewSMTPMailer(host string, port int, user, password, from string) Mailer {
	return &smtpMailer{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     from,
		fromName: "Fixofix Support",
	}
}

// SendVerificationCode отправляет HTML письмо с plaintext кодом.
// Доставка синхронная, без ретраев: ошибка уходит вызывающему.
func (m *smtpMailer) SendVerificationCode(email, code string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Your Fixofix Verification Code")

	body := fmt.Sprintf(`
		<div style="font-family:Arial; padding:20px;">
			<h2>Email Verification</h2>
			<p>Your verification code is:</p>
			<h1 style="letter-spacing:5px;">%s</h1>
			<p>This code expires in 5 minutes.</p>
		</div>
	`, code)

	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: failed to send verification code: %w", err)
	}

	return nil
}
