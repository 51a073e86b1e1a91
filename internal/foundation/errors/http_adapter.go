package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter handles error presentation and status code determination for HTTP surfaces.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter. A nil logger uses slog.Default().
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON error payload written by WriteErrorResponse.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// StatusCodeFor maps an error's category to an HTTP status. Unknown errors map to 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	c, ok := AsClassified(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch c.Category() {
	case CategoryValidation, CategoryConfig:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryPricing:
		return http.StatusUnprocessableEntity
	case CategoryNetwork:
		return http.StatusBadGateway
	case CategoryRuntime:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error response and logs with appropriate level.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	b, jerr := json.Marshal(a.FormatErrorResponse(err))
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	if c, ok := AsClassified(err); ok {
		a.logger.Log(r.Context(), slogLevelFromSeverity(c.Severity()), c.Error(),
			slog.String("path", r.URL.Path), slog.Int("status", status))
		return
	}
	a.logger.Error(err.Error(), slog.String("path", r.URL.Path), slog.Int("status", status))
}

// FormatErrorResponse converts known errors into a canonical error payload.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	c, ok := AsClassified(err)
	if !ok {
		return HTTPErrorResponse{Error: err.Error()}
	}
	resp := HTTPErrorResponse{Error: c.Message(), Code: string(c.Category())}
	if len(c.Context()) > 0 {
		resp.Details = map[string]any(c.Context())
	}
	if c.CanRetry() {
		resp.Retryable = true
	}
	return resp
}
