package services

import (
	"context"
	"net/http"
	"time"

	"easemyday/internal/handlers"
	"easemyday/internal/helpers"
	"easemyday/internal/models"
	"easemyday/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventState = "state"

// SessionService exposes the visitor's session state to the front-end.
type SessionService struct {
	Sessions *session.Manager
}

func (s SessionService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetOneHandler(s.GetState))
	r.Get("/events", s.Events)
	return r
}

func (s SessionService) GetState(ctx context.Context, _ *zap.Logger, _ models.UserClaims, _ uuid.UUIDs) (session.State, error) {
	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		return session.State{}, err
	}
	return visitor.Controller.State(), nil
}

// Events streams every state emission, starting with the current one.
func (s SessionService) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := helpers.GetLogger(ctx)

	visitor, err := visitorOf(ctx, s.Sessions)
	if err != nil {
		handlers.RespondWithAPIError(w, logger, err)
		return
	}

	states, cancel := visitor.Controller.Subscribe()
	defer cancel()

	stream, err := handlers.NewEventStream(w)
	if err != nil {
		handlers.RespondWithAPIError(w, logger, err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if err = stream.Send(eventState, state); err != nil {
				logger.Debug("Session stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err = stream.Ping(); err != nil {
				return
			}
		}
	}
}
