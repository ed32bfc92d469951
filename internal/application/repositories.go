package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/flexspace/internal/persistence"
)

// UserRepository captures the account persistence used by the auth service.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// SpaceRepository captures the space persistence used by the registry and the reservation engine.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space Space) (Space, error)
	UpdateSpace(ctx context.Context, space Space) (Space, error)
	GetSpace(ctx context.Context, id string) (Space, error)
	ListSpaces(ctx context.Context, filter SpaceFilter) ([]Space, error)
}

// ReservationQuery narrows reservation listings at the repository level.
type ReservationQuery struct {
	UserID           *string
	SpaceID          *string
	Status           *ReservationStatus
	EndsAtOrAfter    *time.Time
	StartsAtOrBefore *time.Time
}

// ReservationCount narrows reservation counts for a space.
type ReservationCount struct {
	SpaceID         string
	Status          *ReservationStatus
	EndsAtOrAfter   *time.Time
	StartsAtOrAfter *time.Time
	StartsBefore    *time.Time
}

// ConflictQuery selects ACTIVE reservations of a space intersecting [Start, End).
type ConflictQuery struct {
	SpaceID    string
	Start      time.Time
	End        time.Time
	ExcludeIDs []string
}

// Admission is the atomic write admitting a reservation: CancelIDs are
// moved to CANCELLED and Reservation is inserted in one transaction.
type Admission struct {
	Reservation Reservation
	CancelIDs   []string
	At          time.Time
}

// ReservationRepository captures the reservation persistence used by the engine and the QR issuer.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, query ReservationQuery) ([]Reservation, error)
	FindConflicts(ctx context.Context, query ConflictQuery) ([]Conflict, error)
	CountReservations(ctx context.Context, count ReservationCount) (int, error)
	AdmitReservation(ctx context.Context, admission Admission) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status ReservationStatus, at time.Time) error
	StoreQRCode(ctx context.Context, id, qrCode, qrSignature string, at time.Time) error
}

// AccessLogRepository captures the access audit persistence.
type AccessLogRepository interface {
	CreateAccessLog(ctx context.Context, entry AccessLog) (AccessLog, error)
	ListAccessLogs(ctx context.Context, reservationID string) ([]AccessLog, error)
}

// mapRepoError converts storage sentinels into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{Reason: ReasonInvalidInput, Message: "input violates a storage constraint"}
	}
	return err
}
