package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/flexspace/internal/application"
)

type accessService interface {
	GenerateQRCodeFor(ctx context.Context, principal application.Principal, reservationID string) (application.QRCode, error)
	VerifyQRCode(ctx context.Context, token string) application.VerifyResult
	AccessLogs(ctx context.Context, principal application.Principal, reservationID string) ([]application.AccessLog, error)
}

// AccessHandler serves QR issuance, scanner verification and access history.
type AccessHandler struct {
	service   accessService
	responder responder
	logger    *slog.Logger
}

func NewAccessHandler(service accessService, logger *slog.Logger) *AccessHandler {
	base := defaultLogger(logger)
	return &AccessHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccessHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccessHandler", operation, attrs...)
}

func (h *AccessHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "reservationId")
	principal, _ := PrincipalFromContext(r.Context())
	code, err := h.service.GenerateQRCodeFor(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Generate", "reservation_id", id).WarnContext(r.Context(), "qr generation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, qrCodeResponse{
		QRCode:      code.Image,
		QRSignature: code.Signature,
		Payload: qrPayloadDTO{
			ReservationID: code.Payload.ReservationID,
			UserID:        code.Payload.UserID,
			SpaceID:       code.Payload.SpaceID,
			ValidFrom:     code.Payload.ValidFrom,
			ValidUntil:    code.Payload.ValidUntil,
			IssuedAt:      code.Payload.IssuedAt,
		},
	})
}

// Verify always answers 200: denials are part of the result body.
func (h *AccessHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req verifyRequest
	if err := decodeJSONLenient(r, &req); err != nil {
		h.log(r.Context(), "Verify", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode verify request", "error", err)
		req = verifyRequest{}
	}

	result := h.service.VerifyQRCode(r.Context(), req.QRData)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toVerifyResponse(result))
}

func (h *AccessHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "reservationId")
	principal, _ := PrincipalFromContext(r.Context())
	logs, err := h.service.AccessLogs(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Logs", "reservation_id", id).WarnContext(r.Context(), "access log listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAccessLogDTOs(logs))
}

type verifyRequest struct {
	QRData string `json:"qrData"`
}

type qrCodeResponse struct {
	QRCode      string       `json:"qrCode"`
	QRSignature string       `json:"qrSignature"`
	Payload     qrPayloadDTO `json:"payload"`
}

type qrPayloadDTO struct {
	ReservationID string `json:"reservationId"`
	UserID        string `json:"userId"`
	SpaceID       string `json:"spaceId"`
	ValidFrom     string `json:"validFrom"`
	ValidUntil    string `json:"validUntil"`
	IssuedAt      int64  `json:"iat"`
}

type verifyResponse struct {
	Valid         bool      `json:"valid"`
	AccessGranted bool      `json:"accessGranted"`
	Reason        string    `json:"reason,omitempty"`
	Message       string    `json:"message"`
	AccessTime    string    `json:"accessTime"`
	Reservation   *grantDTO `json:"reservation,omitempty"`
}

type grantDTO struct {
	ID         string        `json:"id"`
	Space      grantSpaceDTO `json:"space"`
	User       grantUserDTO  `json:"user"`
	ValidFrom  string        `json:"validFrom"`
	ValidUntil string        `json:"validUntil"`
}

type grantSpaceDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Floor    *string `json:"floor"`
	Building *string `json:"building"`
}

type grantUserDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func toVerifyResponse(result application.VerifyResult) verifyResponse {
	resp := verifyResponse{
		Valid:         result.Valid,
		AccessGranted: result.AccessGranted,
		Reason:        string(result.Reason),
		Message:       result.Message,
		AccessTime:    formatTime(result.AccessTime),
	}
	if grant := result.Grant; grant != nil {
		resp.Reservation = &grantDTO{
			ID: grant.ReservationID,
			Space: grantSpaceDTO{
				ID:       grant.Space.ID,
				Name:     grant.Space.Name,
				Floor:    grant.Space.Floor,
				Building: grant.Space.Building,
			},
			User: grantUserDTO{
				ID:        grant.User.ID,
				FirstName: grant.User.FirstName,
				LastName:  grant.User.LastName,
				Role:      string(grant.User.Role),
			},
			ValidFrom:  formatTime(grant.ValidFrom),
			ValidUntil: formatTime(grant.ValidUntil),
		}
	}
	return resp
}
