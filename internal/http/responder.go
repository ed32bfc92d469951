package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/locking"
	"github.com/example/flexspace/internal/logging"
)

var (
	errBadRequestBody    = errors.New("request body is malformed")
	errMissingBearer     = errors.New("authentication required")
	errInvalidBearer     = errors.New("invalid or expired access token")
	errInvalidCredential = errors.New("invalid email or password")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, newErrorResponse(status, message))
}

// handleServiceError maps application errors onto status codes. Messages of
// unexpected errors never leave the process.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		status := http.StatusBadRequest
		if vErr.Reason == application.ReasonReservationNotFound {
			status = http.StatusNotFound
		}
		resp := newErrorResponse(status, vErr.Error())
		resp.Reason = vErr.Reason
		resp.Errors = vErr.FieldErrors
		r.writeJSON(ctx, w, status, resp)
		return
	}

	var cErr *application.ConflictError
	if errors.As(err, &cErr) {
		r.writeJSON(ctx, w, http.StatusConflict, toConflictResponse(cErr))
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, newErrorResponse(http.StatusUnauthorized, errInvalidCredential.Error()))
	case errors.Is(err, application.ErrUnauthenticated):
		r.writeJSON(ctx, w, http.StatusUnauthorized, newErrorResponse(http.StatusUnauthorized, errMissingBearer.Error()))
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, newErrorResponse(http.StatusForbidden, "you are not allowed to perform this operation"))
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, newErrorResponse(http.StatusNotFound, "resource not found"))
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, newErrorResponse(http.StatusConflict, "resource already exists"))
	case errors.Is(err, locking.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, newErrorResponse(http.StatusServiceUnavailable, "this space is busy, please retry shortly"))
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, newErrorResponse(http.StatusInternalServerError, "internal server error"))
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

type errorResponse struct {
	StatusCode int               `json:"statusCode"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Reason     string            `json:"reason,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func newErrorResponse(status int, message string) errorResponse {
	return errorResponse{StatusCode: status, Error: http.StatusText(status), Message: message}
}

type conflictResponse struct {
	StatusCode  int           `json:"statusCode"`
	Message     string        `json:"message"`
	Conflicts   []conflictDTO `json:"conflicts"`
	CanOverride *bool         `json:"canOverride,omitempty"`
}

type conflictDTO struct {
	ID        string           `json:"id"`
	StartTime string           `json:"startTime"`
	EndTime   string           `json:"endTime"`
	User      conflictOwnerDTO `json:"user"`
}

type conflictOwnerDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func toConflictResponse(err *application.ConflictError) conflictResponse {
	resp := conflictResponse{
		StatusCode: http.StatusConflict,
		Message:    err.Message,
		Conflicts:  toConflictDTOs(err.Conflicts),
	}
	if err.CanOverride {
		canOverride := true
		resp.CanOverride = &canOverride
	}
	return resp
}

func toConflictDTOs(conflicts []application.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			ID:        c.ReservationID,
			StartTime: formatTime(c.StartTime),
			EndTime:   formatTime(c.EndTime),
			User: conflictOwnerDTO{
				FirstName: c.Owner.FirstName,
				LastName:  c.Owner.LastName,
				Role:      string(c.Owner.Role),
			},
		})
	}
	return out
}

// wireTimeLayout is RFC 3339 with millisecond precision.
const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

// parseTime accepts RFC 3339 timestamps with or without fractional seconds.
func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeJSONLenient skips unknown fields. Door readers send extra device
// metadata alongside the payload.
func decodeJSONLenient(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
