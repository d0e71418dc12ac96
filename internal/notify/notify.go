// Package notify is the out-of-band delivery collaborator for two-factor
// codes. Actual transport (mail relay, SMS bridge) lives outside this
// service; the default implementation records the hand-off without ever
// logging the code itself.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"identra.org/internal/obs"
)

// Notifier delivers a short-lived verification code to a recipient.
type Notifier interface {
	SendCode(ctx context.Context, recipient, subject, code string) error
}

// LogNotifier acknowledges delivery through the structured log. It stands
// in for a real channel in development and tests.
type LogNotifier struct{}

// SendCode validates the hand-off and records it. The code is never
// written to the log.
func (LogNotifier) SendCode(_ context.Context, recipient, subject, code string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("notify: recipient is required")
	}
	if code == "" {
		return errors.New("notify: code is required")
	}
	obs.LogRequest(map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "info",
		"msg":       "verification code dispatched",
		"recipient": recipient,
		"subject":   subject,
	})
	return nil
}
