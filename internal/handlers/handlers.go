package handlers

import (
	"context"
	"net/http"
	"strings"

	apierrors "easemyday/internal/errors"
	"easemyday/internal/helpers"
	"easemyday/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	CreateTargetFunc[In any, Out any]         func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs, In) (Out, error)
	ListTargetFunc[Out any]                   func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs) ([]Out, error)
	ListWithQueryTargetFunc[Q any, Out any]   func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs, Q) ([]Out, error)
	GetOneTargetFunc[Out any]                 func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs) (Out, error)
	GetOneWithQueryTargetFunc[Q any, Out any] func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs, Q) (Out, error)
	BodyTargetFunc[In any]                    func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs, In) error
	ActionTargetFunc                          func(context.Context, *zap.Logger, models.UserClaims, uuid.UUIDs) error
)

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// request gathers what every handler func receives. URL params named id0,
// id1... are parsed as uuids in order.
func request(w http.ResponseWriter, r *http.Request) (*zap.Logger, models.UserClaims, uuid.UUIDs, bool) {
	logger := helpers.GetLogger(r.Context())
	claims, _ := helpers.GetUserClaims(r.Context())

	var values []string
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if strings.HasPrefix(key, "id") && i < len(rctx.URLParams.Values) {
				values = append(values, rctx.URLParams.Values[i])
			}
		}
	}

	ids, ok := helpers.ParseUUIDs(values)
	if !ok {
		helpers.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
		return nil, claims, nil, false
	}
	return logger, claims, ids, true
}

// RespondWithAPIError renders err as an API error. Unexpected errors are
// logged and hidden behind a 500.
func RespondWithAPIError(w http.ResponseWriter, logger *zap.Logger, err error) {
	apiErr := apierrors.From(err)
	if apiErr.Code == http.StatusInternalServerError {
		logger.Error("Unhandled error", zap.Error(err))
	}
	helpers.RespondWithErrorMessage(w, apiErr.Code, apiErr.Errors, apiErr.Message)
}

func body[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	value, ok := helpers.GetBody[T](r.Context())
	if !ok {
		helpers.RespondWithError(w, http.StatusBadRequest, []string{apierrors.ErrBadRequest})
	}
	return value, ok
}

// CreateHandler answers 201 with the created resource.
func CreateHandler[In any, Out any](fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return writeHandler(http.StatusCreated, fn)
}

// UpdateHandler answers 200 with the updated resource.
func UpdateHandler[In any, Out any](fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return writeHandler(http.StatusOK, fn)
}

func writeHandler[In any, Out any](status int, fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}
		in, ok := body[In](w, r)
		if !ok {
			return
		}

		out, err := fn(r.Context(), logger, claims, ids, in)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		helpers.RespondWithJSON(w, status, out)
	}
}

func GetListHandler[Out any](fn ListTargetFunc[Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		out, err := fn(r.Context(), logger, claims, ids)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		if out == nil {
			out = []Out{}
		}
		helpers.RespondWithJSON(w, http.StatusOK, listResponse[Out]{Data: out})
	}
}

// GetListWithQueryHandler expects the query to have gone through ValidateQuery.
func GetListWithQueryHandler[Q any, Out any](fn ListWithQueryTargetFunc[Q, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}
		query, ok := body[Q](w, r)
		if !ok {
			return
		}

		out, err := fn(r.Context(), logger, claims, ids, query)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		if out == nil {
			out = []Out{}
		}
		helpers.RespondWithJSON(w, http.StatusOK, listResponse[Out]{Data: out})
	}
}

func GetOneHandler[Out any](fn GetOneTargetFunc[Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		out, err := fn(r.Context(), logger, claims, ids)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		helpers.RespondWithJSON(w, http.StatusOK, out)
	}
}

func GetOneWithQueryHandler[Q any, Out any](fn GetOneWithQueryTargetFunc[Q, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}
		query, ok := body[Q](w, r)
		if !ok {
			return
		}

		out, err := fn(r.Context(), logger, claims, ids, query)
		if err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		helpers.RespondWithJSON(w, http.StatusOK, out)
	}
}

// BodyHandler answers 204 once fn accepted the body.
func BodyHandler[In any](fn BodyTargetFunc[In]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}
		in, ok := body[In](w, r)
		if !ok {
			return
		}

		if err := fn(r.Context(), logger, claims, ids, in); err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ActionHandler answers 204 for body-less commands.
func ActionHandler(fn ActionTargetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		if err := fn(r.Context(), logger, claims, ids); err != nil {
			RespondWithAPIError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteHandler(fn ActionTargetFunc) http.HandlerFunc {
	return ActionHandler(fn)
}
