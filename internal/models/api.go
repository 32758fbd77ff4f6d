package models

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// HealthResponse reports whether the external collaborators this service
// depends on are usable.
type HealthResponse struct {
	Status            string `json:"status"`
	GeminiAPIKey      string `json:"gemini_api_key"` // "configured" | "not_configured"
	Database          string `json:"database"`
	UploadsDir        bool   `json:"uploads_dir"`
	RemainingRequests int    `json:"remaining_requests"`
}
