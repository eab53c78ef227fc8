package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/accounting-notes/backend/internal/platform/errors"
	"github.com/accounting-notes/backend/internal/platform/i18n/catalog"
	"github.com/accounting-notes/backend/internal/platform/requestctx"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; notes are the largest payload.
const maxBodyBytes = 1 << 20

type envelope struct {
	StatusCode int      `json:"statusCode"`
	Message    []string `json:"message"`
	Data       any      `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// writeOK writes a success envelope with the localized message for key.
func (h *Handler) writeOK(w http.ResponseWriter, r *http.Request, status int, key string, data any) {
	locale := requestctx.LocaleFromContext(r.Context())
	message, ok := catalog.Default().Message(locale, key)
	if !ok {
		message = key
	}
	if err := writeJSON(w, status, envelope{StatusCode: status, Message: []string{message}, Data: data}); err != nil {
		h.logger.Warn("write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// writeError maps err to a status and localized message. Errors without a
// domain code are logged and reported as 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	domainErr, ok := apperrors.As(err)
	if !ok {
		domainErr = apperrors.Wrap(apperrors.CodeUnknown, "internal error", err)
	}
	status := domainErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	message := domainErr.LocalizedMessage(requestctx.LocaleFromContext(r.Context()))
	if writeErr := writeJSON(w, status, envelope{StatusCode: status, Message: []string{message}}); writeErr != nil {
		h.logger.Warn("write error response", zap.String("path", r.URL.Path), zap.Error(writeErr))
	}
}

// decodeJSON decodes exactly one JSON value and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidBody("request body is empty")
		}
		return invalidBody(err.Error())
	}
	if decoder.More() {
		return invalidBody("request body must contain a single JSON object")
	}
	return nil
}

func invalidBody(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidBody, "invalid request body", map[string]string{"reason": reason})
}
