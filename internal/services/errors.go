package services

// Service error types. Handlers map these onto HTTP status codes; everything
// else is treated as an internal error.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// PayloadTooLargeError rejects an upload whose byte size exceeds the
// configured maximum.
type PayloadTooLargeError struct{ Message string }

func (e *PayloadTooLargeError) Error() string { return e.Message }

// StorageError wraps an I/O failure while writing or deleting attachment
// bytes. Fatal for the initial write; resize failures are logged instead.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string { return e.Message }
func (e *StorageError) Unwrap() error { return e.Err }

// Provider errors. Auth, quota and safety abort the whole model invocation;
// Unavailable means every candidate model was tried without success.

type ProviderAuthError struct{ Message string }

func (e *ProviderAuthError) Error() string { return e.Message }

type ProviderQuotaError struct{ Message string }

func (e *ProviderQuotaError) Error() string { return e.Message }

type ProviderSafetyError struct{ Message string }

func (e *ProviderSafetyError) Error() string { return e.Message }

type ProviderUnavailableError struct {
	Message string
	LastErr error
}

func (e *ProviderUnavailableError) Error() string { return e.Message }
func (e *ProviderUnavailableError) Unwrap() error { return e.LastErr }

type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string { return e.Message }
func (e *InternalError) Unwrap() error { return e.Err }
