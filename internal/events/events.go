package events

import (
	"encoding/json"
	"fmt"
	"time"

	"easemyday/internal/messaging"
	"easemyday/internal/notifier"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

const (
	VerifyEmailName     = "VerifyEmail"
	PasswordResetName   = "PasswordReset"
	PasswordChangedName = "PasswordChanged"
)

// EmailPayload is the body of every message on the notifications topic.
type EmailPayload struct {
	Type     string            `json:"type"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Args     map[string]string `json:"args"`
}

type EmailEvent struct {
	Publisher messaging.IPublisher
	Payload   EmailPayload
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	}
	return fmt.Sprintf("%d minutes", d/time.Minute)
}

func NewVerifyEmail(
	publisher messaging.IPublisher,
	to string,
	name string,
	actionURL string,
	webURL string,
	expiresIn time.Duration,
) *EmailEvent {
	return &EmailEvent{
		Publisher: publisher,
		Payload: EmailPayload{
			Type:     VerifyEmailName,
			To:       to,
			Subject:  "Verify your EaseMyDay email",
			Template: notifier.TemplateVerifyEmail,
			Args: map[string]string{
				"Name":      name,
				"ActionURL": actionURL,
				"WebURL":    webURL,
				"ExpiresIn": humanDuration(expiresIn),
			},
		},
	}
}

func NewPasswordReset(
	publisher messaging.IPublisher,
	to string,
	actionURL string,
	webURL string,
	expiresIn time.Duration,
) *EmailEvent {
	return &EmailEvent{
		Publisher: publisher,
		Payload: EmailPayload{
			Type:     PasswordResetName,
			To:       to,
			Subject:  "Reset your EaseMyDay password",
			Template: notifier.TemplatePasswordReset,
			Args: map[string]string{
				"ActionURL": actionURL,
				"WebURL":    webURL,
				"ExpiresIn": humanDuration(expiresIn),
			},
		},
	}
}

func NewPasswordChanged(publisher messaging.IPublisher, to string, webURL string, changedAt time.Time) *EmailEvent {
	return &EmailEvent{
		Publisher: publisher,
		Payload: EmailPayload{
			Type:     PasswordChangedName,
			To:       to,
			Subject:  "Your EaseMyDay password was changed",
			Template: notifier.TemplatePasswordChanged,
			Args: map[string]string{
				"WebURL":    webURL,
				"ChangedAt": changedAt.Format("January 2, 2006 at 3:04 PM MST"),
			},
		},
	}
}

// Send publishes the event and reports publication failures.
func (e *EmailEvent) Send() error {
	if e.Publisher == nil {
		return fmt.Errorf("no publisher for %s event", e.Payload.Type)
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Payload.Type, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", e.Payload.Type)

	if err = e.Publisher.Publish(msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Payload.Type, err)
	}
	return nil
}

// Trigger is Send for callers that only log publication failures.
func (e *EmailEvent) Trigger() {
	if err := e.Send(); err != nil {
		zap.L().Error("Failed to trigger event", zap.String("type", e.Payload.Type), zap.Error(err))
	}
}
