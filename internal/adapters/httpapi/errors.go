package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/platform/logging"
)

const (
	codeNotFound            = "NOT_FOUND"
	codeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	codeForbidden           = "FORBIDDEN"
	codeIdempotencyKeyReuse = "IDEMPOTENCY_KEY_REUSE"
	codeInternal            = "INTERNAL"
	codeRequestCanceled     = "REQUEST_CANCELED"
)

// statusClientClosedRequest is nginx's convention for a client that went away mid-request.
const statusClientClosedRequest = 499

type errorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, errorResponse{
		Detail:    detail,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeAppError maps service errors onto the wire contract. Anything that is not an
// *enrollment.Error is logged and reported as a 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*enrollment.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message)
		return
	}
	if errors.Is(err, context.Canceled) {
		writeError(w, r, statusClientClosedRequest, codeRequestCanceled, "request canceled")
		return
	}
	logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
	writeError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"internal server error","code":"INTERNAL"}`))
		return
	}
	writeRaw(w, status, "application/json", b)
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func logRequestWarning(r *http.Request, msg string, err error) {
	logging.FromContext(r.Context()).WarnContext(r.Context(), msg, "error", err)
}
