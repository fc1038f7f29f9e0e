package events

import (
	"encoding/json"

	"easemyday/internal/notifier"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

type EventParams struct {
	Notifier notifier.INotifier
}

// HandleEvents renders and sends every email published on the notifications
// topic until the channel closes. Undeliverable emails are logged and acked.
func HandleEvents(params *EventParams, messages <-chan *message.Message) {
	for msg := range messages {
		handleEvent(params, msg)
		msg.Ack()
	}
}

func handleEvent(params *EventParams, msg *message.Message) {
	logger := zap.L().With(zap.String("uuid", msg.UUID), zap.String("type", msg.Metadata.Get("type")))

	var payload EmailPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logger.Error("Event body unmarshal error", zap.Error(err))
		return
	}

	switch payload.Type {
	case VerifyEmailName, PasswordResetName, PasswordChangedName:
	default:
		logger.Warn("Unknown event type")
		return
	}

	if params.Notifier == nil {
		logger.Error("No notifier configured, dropping email")
		return
	}

	if err := params.Notifier.NotifyFromTemplate(payload.To, payload.Subject, payload.Template, payload.Args); err != nil {
		logger.Error("Failed to send email", zap.Error(err))
		return
	}
	logger.Info("Email sent")
}
