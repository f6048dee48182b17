package errors

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter handles error presentation and status code determination
// for the authoring server.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter. A nil logger falls
// back to the default package logger.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the standard JSON error payload.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// StatusCodeFor maps an error to an HTTP status code based on its category.
// Unknown errors map to 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var ke *KeeperError
	if stderrors.As(err, &ke) {
		switch ke.Category {
		case CategoryValidation, CategoryConfig:
			return http.StatusBadRequest
		case CategoryContent, CategoryLint:
			return http.StatusUnprocessableEntity
		case CategoryNetwork, CategoryGit:
			return http.StatusBadGateway
		case CategoryIndex, CategoryFileSystem, CategoryInternal:
			return http.StatusInternalServerError
		case CategoryServer:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes a JSON error response and logs with a level
// matching the error severity.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	payload := a.FormatErrorResponse(err)

	b, jerr := json.Marshal(payload)
	if jerr != nil {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)

	var ke *KeeperError
	if stderrors.As(err, &ke) {
		a.logger.Log(r.Context(), a.slogLevelFromSeverity(ke.Severity), ke.Error())
		return
	}
	a.logger.Error(err.Error())
}

// FormatErrorResponse converts known errors into the canonical payload.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	var ke *KeeperError
	if stderrors.As(err, &ke) {
		resp := HTTPErrorResponse{Error: ke.Message, Code: string(ke.Category)}
		if len(ke.Context) > 0 {
			resp.Details = map[string]any(ke.Context)
		}
		resp.Retryable = ke.Retryable
		return resp
	}
	return HTTPErrorResponse{Error: err.Error()}
}

func (a *HTTPErrorAdapter) slogLevelFromSeverity(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
