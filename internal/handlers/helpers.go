package handlers

import (
	"encoding/json"
	"net/http"

	"chimera-backend/internal/models"
	"chimera-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.PayloadTooLargeError:
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", e.Message, r))
	case *services.StorageError:
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", e.Message, r))
	case *services.ProviderAuthError:
		writeJSON(w, http.StatusBadGateway, errorResp("PROVIDER_AUTH", e.Message, r))
	case *services.ProviderQuotaError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("PROVIDER_QUOTA", e.Message, r))
	case *services.ProviderSafetyError:
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("PROVIDER_SAFETY", e.Message, r))
	case *services.ProviderUnavailableError:
		writeJSON(w, http.StatusBadGateway, errorResp("PROVIDER_UNAVAILABLE", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
