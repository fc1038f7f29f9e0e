package helpers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorResponse struct {
	Status  int      `json:"status"`
	Error   []string `json:"error"`
	Message string   `json:"message,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, errors []string) {
	RespondWithJSON(w, status, errorResponse{Status: status, Error: errors})
}

// RespondWithErrorMessage also carries the text shown to the user.
func RespondWithErrorMessage(w http.ResponseWriter, status int, errors []string, message string) {
	RespondWithJSON(w, status, errorResponse{Status: status, Error: errors, Message: message})
}
