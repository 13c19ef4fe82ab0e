package app

import (
	"context"

	"bytehub/internal/util"
)

// Mailer delivers verification codes to a user's email address.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail. Suitable for
// development and test environments without an SMTP relay.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	util.LoggerFromContext(ctx).Info("verification_code_issued",
		"email", email,
		"code", code,
	)
	return nil
}
