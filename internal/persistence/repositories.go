package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SpaceFilter narrows space listings. Nil fields are ignored.
type SpaceFilter struct {
	Type            *string
	MinCapacity     *int
	Floor           *string
	Building        *string
	Search          *string
	IncludeInactive bool
}

// SpaceRepository stores bookable spaces.
type SpaceRepository interface {
	CreateSpace(ctx context.Context, space Space) error
	UpdateSpace(ctx context.Context, space Space) error
	GetSpace(ctx context.Context, id string) (Space, error)
	GetSpaceByName(ctx context.Context, name string) (Space, error)
	ListSpaces(ctx context.Context, filter SpaceFilter) ([]Space, error)
}

// ReservationFilter narrows reservation listings. Nil fields are ignored.
type ReservationFilter struct {
	UserID           *string
	SpaceID          *string
	Status           *string
	EndsAtOrAfter    *time.Time
	StartsAtOrBefore *time.Time
}

// ReservationCountFilter narrows reservation counts. Nil fields are ignored.
type ReservationCountFilter struct {
	SpaceID         string
	Status          *string
	EndsAtOrAfter   *time.Time
	StartsAtOrAfter *time.Time
	StartsBefore    *time.Time
}

// OverlapQuery selects ACTIVE reservations on a space intersecting [Start, End).
type OverlapQuery struct {
	SpaceID    string
	Start      time.Time
	End        time.Time
	ExcludeIDs []string
}

// Admission inserts Reservation after cancelling CancelIDs, atomically.
type Admission struct {
	Reservation Reservation
	CancelIDs   []string
	CancelledAt time.Time
}

// ReservationRepository stores reservations and answers overlap queries.
type ReservationRepository interface {
	GetReservation(ctx context.Context, id string) (ReservationRecord, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]ReservationRecord, error)
	FindOverlapping(ctx context.Context, query OverlapQuery) ([]ReservationRecord, error)
	CountReservations(ctx context.Context, filter ReservationCountFilter) (int, error)
	AdmitReservation(ctx context.Context, admission Admission) error
	UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	UpdateReservationQR(ctx context.Context, id, qrCode, qrSignature string, updatedAt time.Time) error
}

// AccessLogRepository appends and lists access log entries.
type AccessLogRepository interface {
	CreateAccessLog(ctx context.Context, entry AccessLog) error
	ListAccessLogs(ctx context.Context, reservationID string) ([]AccessLogRecord, error)
}
