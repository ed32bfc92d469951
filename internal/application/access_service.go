package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/flexspace/internal/accesstoken"
)

// QRRenderer turns a token string into a scannable image reference.
type QRRenderer interface {
	Render(content string) (string, error)
}

// QRCode is an issued access token: the rendered image, its signature and the signed payload.
type QRCode struct {
	Image     string
	Signature string
	Token     string
	Payload   accesstoken.Payload
}

// VerifyReason is the machine readable outcome of a denied verification.
type VerifyReason string

const (
	VerifyInvalidData          VerifyReason = "INVALID_QR_DATA"
	VerifyInvalidSignature     VerifyReason = "INVALID_SIGNATURE"
	VerifyNotYetValid          VerifyReason = "NOT_YET_VALID"
	VerifyExpired              VerifyReason = "QR_CODE_EXPIRED"
	VerifyReservationNotFound  VerifyReason = "RESERVATION_NOT_FOUND"
	VerifyReservationCancelled VerifyReason = "RESERVATION_CANCELLED"
	VerifyReservationCompleted VerifyReason = "RESERVATION_COMPLETED"
	VerifyError                VerifyReason = "VERIFICATION_ERROR"
)

var verifyMessages = map[VerifyReason]string{
	VerifyInvalidData:          "invalid QR code data",
	VerifyInvalidSignature:     "invalid QR code signature",
	VerifyNotYetValid:          "QR code is not valid yet",
	VerifyExpired:              "QR code has expired",
	VerifyReservationNotFound:  "reservation not found",
	VerifyReservationCancelled: "reservation cancelled",
	VerifyReservationCompleted: "reservation already completed",
	VerifyError:                "verification temporarily unavailable",
}

// AccessGrant summarizes the reservation a granted token belongs to.
type AccessGrant struct {
	ReservationID string
	Space         Space
	User          User
	ValidFrom     time.Time
	ValidUntil    time.Time
}

// VerifyResult is the structured outcome of a verification. It is never an error:
// every denial carries AccessGranted=false and a Reason.
type VerifyResult struct {
	Valid         bool
	AccessGranted bool
	Reason        VerifyReason
	Message       string
	AccessTime    time.Time
	Grant         *AccessGrant
}

// AccessServiceOption customizes an AccessService.
type AccessServiceOption func(*AccessService)

// WithDeniedAudit also records AccessLog rows for cancelled or completed reservations.
func WithDeniedAudit(enabled bool) AccessServiceOption {
	return func(s *AccessService) { s.auditDenied = enabled }
}

// WithAccessLogger sets the fallback logger.
func WithAccessLogger(logger *slog.Logger) AccessServiceOption {
	return func(s *AccessService) { s.logger = logger }
}

// AccessService issues and verifies QR access tokens and exposes the access audit trail.
type AccessService struct {
	reservations ReservationRepository
	accessLogs   AccessLogRepository
	signer       *accesstoken.Signer
	renderer     QRRenderer
	idGenerator  func() string
	now          func() time.Time
	auditDenied  bool
	logger       *slog.Logger
}

// NewAccessService constructs an access-token engine.
func NewAccessService(reservations ReservationRepository, accessLogs AccessLogRepository, signer *accesstoken.Signer, renderer QRRenderer, idGenerator func() string, now func() time.Time, opts ...AccessServiceOption) *AccessService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &AccessService{
		reservations: reservations,
		accessLogs:   accessLogs,
		signer:       signer,
		renderer:     renderer,
		idGenerator:  idGenerator,
		now:          now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = defaultLogger(s.logger)
	return s
}

func (s *AccessService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccessService", operation, attrs...)
}

// GenerateQRCode signs, renders and stores a QR code for an ACTIVE reservation.
func (s *AccessService) GenerateQRCode(ctx context.Context, reservationID string) (code QRCode, err error) {
	if s == nil {
		err = fmt.Errorf("AccessService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GenerateQRCode", "reservation_id", reservationID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate qr code", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "qr code generated")
	}()

	if s.reservations == nil || s.signer == nil || s.renderer == nil {
		err = fmt.Errorf("access service not fully configured")
		return
	}

	var reservation Reservation
	reservation, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = newValidationError(ReasonReservationNotFound, "reservation not found")
		}
		return
	}
	return s.issue(ctx, reservation)
}

// GenerateQRCodeFor is GenerateQRCode restricted to the owner or an administrator.
func (s *AccessService) GenerateQRCodeFor(ctx context.Context, principal Principal, reservationID string) (QRCode, error) {
	if s == nil {
		return QRCode{}, fmt.Errorf("AccessService is nil")
	}
	if err := authorize(principal, PermQRGenerateOwn); err != nil {
		return QRCode{}, err
	}
	if s.reservations == nil {
		return QRCode{}, fmt.Errorf("reservation repository not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, strings.TrimSpace(reservationID))
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return QRCode{}, newValidationError(ReasonReservationNotFound, "reservation not found")
		}
		return QRCode{}, err
	}
	if reservation.UserID != principal.UserID && !principal.Can(PermQRGenerateAny) {
		return QRCode{}, ErrForbidden
	}
	return s.GenerateQRCode(ctx, reservation.ID)
}

func (s *AccessService) issue(ctx context.Context, reservation Reservation) (QRCode, error) {
	if reservation.Status != StatusActive {
		return QRCode{}, newValidationError(ReasonReservationNotActive, "reservation is not active")
	}

	now := s.now()
	payload := accesstoken.NewPayload(
		reservation.ID,
		reservation.UserID,
		reservation.SpaceID,
		reservation.StartTime,
		reservation.EndTime,
		now,
	)
	token, signature, err := s.signer.Encode(payload)
	if err != nil {
		return QRCode{}, fmt.Errorf("sign qr payload: %w", err)
	}
	image, err := s.renderer.Render(token)
	if err != nil {
		return QRCode{}, err
	}
	if err := s.reservations.StoreQRCode(ctx, reservation.ID, image, signature, now); err != nil {
		return QRCode{}, mapRepoError(err)
	}

	return QRCode{Image: image, Signature: signature, Token: token, Payload: payload}, nil
}

// VerifyQRCode checks a presented token: format, signature, validity window, then
// reservation state. Only a granted access (and, when enabled, a state denial) writes
// an AccessLog row.
func (s *AccessService) VerifyQRCode(ctx context.Context, token string) VerifyResult {
	if s == nil {
		return VerifyResult{Reason: VerifyError, Message: verifyMessages[VerifyError], AccessTime: time.Now()}
	}

	now := s.now()
	logger := s.loggerWith(ctx, "VerifyQRCode")

	deny := func(reason VerifyReason, attrs ...any) VerifyResult {
		logger.WarnContext(ctx, "access denied", append([]any{"reason", string(reason)}, attrs...)...)
		return VerifyResult{
			Reason:     reason,
			Message:    verifyMessages[reason],
			AccessTime: now,
		}
	}

	if s.signer == nil || s.reservations == nil || s.accessLogs == nil {
		return deny(VerifyError)
	}

	payload, signature, err := accesstoken.Decode(strings.TrimSpace(token))
	if err != nil {
		return deny(VerifyInvalidData, "error", err)
	}
	if !s.signer.Verify(payload, signature) {
		return deny(VerifyInvalidSignature, "reservation_id", payload.ReservationID)
	}

	validFrom, validUntil, err := payload.Window()
	if err != nil {
		return deny(VerifyInvalidData, "error", err)
	}
	if now.Before(validFrom) {
		return deny(VerifyNotYetValid, "reservation_id", payload.ReservationID)
	}
	if now.After(validUntil) {
		return deny(VerifyExpired, "reservation_id", payload.ReservationID)
	}

	reservation, err := s.reservations.GetReservation(ctx, payload.ReservationID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return deny(VerifyReservationNotFound, "reservation_id", payload.ReservationID)
		}
		logger.ErrorContext(ctx, "failed to load reservation for verification", "error", err)
		return deny(VerifyError, "reservation_id", payload.ReservationID)
	}

	var denied VerifyReason
	switch reservation.Status {
	case StatusCancelled:
		denied = VerifyReservationCancelled
	case StatusCompleted:
		denied = VerifyReservationCompleted
	}
	if denied != "" {
		if s.auditDenied {
			if _, err := s.record(ctx, reservation, now, false); err != nil {
				logger.ErrorContext(ctx, "failed to record denied access", "error", err)
			}
		}
		return deny(denied, "reservation_id", reservation.ID)
	}

	if _, err := s.record(ctx, reservation, now, true); err != nil {
		logger.ErrorContext(ctx, "failed to record access", "error", err)
		return deny(VerifyError, "reservation_id", reservation.ID)
	}

	grant := &AccessGrant{
		ReservationID: reservation.ID,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
	}
	if reservation.Space != nil {
		grant.Space = *reservation.Space
	}
	if reservation.User != nil {
		grant.User = *reservation.User
	}

	logger.InfoContext(ctx, "access granted",
		"reservation_id", reservation.ID,
		"user_id", reservation.UserID,
	)
	return VerifyResult{
		Valid:         true,
		AccessGranted: true,
		Message:       "access granted",
		AccessTime:    now,
		Grant:         grant,
	}
}

func (s *AccessService) record(ctx context.Context, reservation Reservation, at time.Time, granted bool) (AccessLog, error) {
	return s.accessLogs.CreateAccessLog(ctx, AccessLog{
		ID:            s.idGenerator(),
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		AccessTime:    at,
		AccessGranted: granted,
		Method:        AccessMethodQRCode,
	})
}

// AccessLogs returns the access history of a reservation, most recent first.
func (s *AccessService) AccessLogs(ctx context.Context, principal Principal, reservationID string) (logs []AccessLog, err error) {
	if s == nil {
		err = fmt.Errorf("AccessService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AccessLogs",
		"principal_id", principal.UserID,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list access logs", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = authorize(principal, PermAccessLogRead); err != nil {
		return
	}
	if s.accessLogs == nil {
		err = fmt.Errorf("access log repository not configured")
		return
	}

	logs, err = s.accessLogs.ListAccessLogs(ctx, strings.TrimSpace(reservationID))
	return
}
