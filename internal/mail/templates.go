package mail

import (
	"fmt"
	"net/url"
	"time"
)

// VerificationMessage links to the account activation endpoint.
func VerificationMessage(baseURL, to, token string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email",
		Body: fmt.Sprintf("Click the link to verify your email: %s/api/auth/verify?token=%s",
			baseURL, url.QueryEscape(token)),
	}
}

// PasswordResetMessage links to the reset page and states the link lifetime.
func PasswordResetMessage(baseURL, to, token string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Click the link to reset your password: %s/reset-password?token=%s\n\nThis link will expire in %s.",
			baseURL, url.QueryEscape(token), humanDuration(ttl)),
	}
}

// NotificationMessage is a generic ticket notification.
func NotificationMessage(to, subject, body string) Message {
	return Message{To: to, Subject: subject, Body: body}
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
