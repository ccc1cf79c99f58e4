package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/resale-backend/pkg/errors"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// Envelope is the body of every successful response.
type Envelope struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

// WriteError renders err through its code's metadata. Errors without a code
// become INTERNAL_ERROR and never leak their text.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := ErrorBody{Code: string(typed.Code()), Message: meta.PublicMessage}
	if meta.ExposeMessage && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	logFailure(ctx, logg, err, meta.HTTPStatus)
	writeJSON(w, meta.HTTPStatus, ErrorEnvelope{Error: body})
}

// logFailure keeps client mistakes at warn level and reserves error logs with
// stacks for server-side failures.
func logFailure(ctx context.Context, logg *logger.Logger, err error, status int) {
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	ctx = logg.WithField(ctx, "status", status)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request failed", err)
		return
	}
	logg.Warn(ctx, "request rejected")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
