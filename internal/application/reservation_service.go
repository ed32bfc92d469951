package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/flexspace/internal/persistence"
	"github.com/example/flexspace/internal/scheduler"
)

// SpaceLocker serializes admission per space.
type SpaceLocker interface {
	Lock(ctx context.Context, spaceID string) (func(), error)
}

// QRIssuer issues the access token of a freshly admitted reservation.
type QRIssuer interface {
	GenerateQRCode(ctx context.Context, reservationID string) (QRCode, error)
}

// ReservationOption customizes a ReservationService.
type ReservationOption func(*ReservationService)

// WithSpaceLocker serializes admission through locker.
func WithSpaceLocker(locker SpaceLocker) ReservationOption {
	return func(s *ReservationService) { s.locker = locker }
}

// WithQRIssuer issues a QR code after each admission.
func WithQRIssuer(issuer QRIssuer) ReservationOption {
	return func(s *ReservationService) { s.issuer = issuer }
}

// WithNotifier reports override cancellations to notifier.
func WithNotifier(notifier Notifier) ReservationOption {
	return func(s *ReservationService) { s.notifier = notifier }
}

// WithLocation evaluates calendar days and opening hours in loc.
func WithLocation(loc *time.Location) ReservationOption {
	return func(s *ReservationService) { s.location = loc }
}

// WithReservationLogger sets the fallback logger.
func WithReservationLogger(logger *slog.Logger) ReservationOption {
	return func(s *ReservationService) { s.logger = logger }
}

// ReservationService is the reservation engine: it validates requests, detects
// conflicts, applies the role based admission rules and persists reservations.
type ReservationService struct {
	reservations ReservationRepository
	spaces       SpaceRepository
	locker       SpaceLocker
	issuer       QRIssuer
	notifier     Notifier
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewReservationService constructs a reservation engine.
func NewReservationService(reservations ReservationRepository, spaces SpaceRepository, idGenerator func() string, now func() time.Time, opts ...ReservationOption) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &ReservationService{
		reservations: reservations,
		spaces:       spaces,
		idGenerator:  idGenerator,
		now:          now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.location == nil {
		s.location = time.Local
	}
	s.logger = defaultLogger(s.logger)
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation admits a booking request.
//
// Conflicts are resolved by role: employees receive a conflict report, managers and
// admins are prompted to resubmit with OverrideConflict, and an override cancels the
// conflicting employee reservations in the same transaction as the insert. An override
// touching any manager or admin reservation is refused before anything is cancelled.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	in := params.Input
	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", params.Principal.UserID,
		"space_id", in.SpaceID,
		"override", in.OverrideConflict,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if err = authorize(params.Principal, PermReservationCreate); err != nil {
		return
	}
	if s.reservations == nil || s.spaces == nil {
		err = fmt.Errorf("reservation service not fully configured")
		return
	}

	now := s.now()
	interval := scheduler.Interval{Start: in.StartTime, End: in.EndTime}

	var space Space
	space, err = s.admissible(ctx, now, in.SpaceID, interval)
	if err != nil {
		return
	}
	if err = s.withinOpeningHours(space, interval); err != nil {
		return
	}

	var cancelled []Conflict
	reservation, cancelled, err = s.admit(ctx, params.Principal, space, interval, in.OverrideConflict, now)
	if err != nil {
		return
	}

	for _, conflict := range cancelled {
		s.notifier.ReservationOverridden(ctx, conflict, reservation, params.Principal)
	}
	if len(cancelled) > 0 {
		logger = logger.With("cancelled_count", len(cancelled))
	}

	if reservation.Space == nil {
		reservation.Space = &space
	}
	s.attachQRCode(ctx, logger, &reservation)
	return
}

// admissible runs the interval rules and the space lookup. Opening hours are
// checked separately because they only gate creation.
func (s *ReservationService) admissible(ctx context.Context, now time.Time, spaceID string, interval scheduler.Interval) (Space, error) {
	if err := violationError(scheduler.ValidateInterval(now, interval, s.location)); err != nil {
		return Space{}, err
	}

	space, err := s.spaces.GetSpace(ctx, strings.TrimSpace(spaceID))
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			return Space{}, fmt.Errorf("space not found or inactive: %w", ErrNotFound)
		}
		return Space{}, err
	}
	if !space.IsActive {
		return Space{}, fmt.Errorf("space not found or inactive: %w", ErrNotFound)
	}
	return space, nil
}

func (s *ReservationService) withinOpeningHours(space Space, interval scheduler.Interval) error {
	hours, err := scheduler.ParseHours(space.OpenTime, space.CloseTime)
	if err != nil {
		return violationError(err)
	}
	return violationError(hours.Contains(interval, s.location))
}

// admit holds the space lock across conflict detection and the admission write.
func (s *ReservationService) admit(ctx context.Context, principal Principal, space Space, interval scheduler.Interval, override bool, now time.Time) (Reservation, []Conflict, error) {
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, space.ID)
		if err != nil {
			return Reservation{}, nil, fmt.Errorf("lock space %s: %w", space.ID, err)
		}
		defer unlock()
	}

	conflicts, err := s.findConflicts(ctx, space.ID, interval)
	if err != nil {
		return Reservation{}, nil, err
	}

	var cancelIDs []string
	if len(conflicts) > 0 {
		cancelIDs, err = resolveConflicts(principal, override, conflicts)
		if err != nil {
			return Reservation{}, nil, err
		}
	}

	candidate := Reservation{
		ID:        s.idGenerator(),
		UserID:    principal.UserID,
		SpaceID:   space.ID,
		StartTime: interval.Start,
		EndTime:   interval.End,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	admitted, err := s.reservations.AdmitReservation(ctx, Admission{
		Reservation: candidate,
		CancelIDs:   cancelIDs,
		At:          now,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrOverlap) {
			latest, findErr := s.findConflicts(ctx, space.ID, interval, cancelIDs...)
			if findErr != nil {
				return Reservation{}, nil, findErr
			}
			return Reservation{}, nil, &ConflictError{
				Message:     "this space was booked by a concurrent request for the same time slot",
				Conflicts:   latest,
				CanOverride: principal.Can(PermReservationOverride),
			}
		}
		return Reservation{}, nil, mapRepoError(err)
	}

	if len(cancelIDs) == 0 {
		return admitted, nil, nil
	}
	return admitted, conflicts, nil
}

// findConflicts loads candidate reservations from storage and keeps those the
// half-open overlap rule reports, in storage order.
func (s *ReservationService) findConflicts(ctx context.Context, spaceID string, interval scheduler.Interval, exclude ...string) ([]Conflict, error) {
	candidates, err := s.reservations.FindConflicts(ctx, ConflictQuery{
		SpaceID:    spaceID,
		Start:      interval.Start,
		End:        interval.End,
		ExcludeIDs: exclude,
	})
	if err != nil {
		return nil, err
	}

	bookings := make([]scheduler.Booking, len(candidates))
	byID := make(map[string]Conflict, len(candidates))
	for i, c := range candidates {
		bookings[i] = scheduler.Booking{ID: c.ReservationID, Interval: scheduler.Interval{Start: c.StartTime, End: c.EndTime}}
		byID[c.ReservationID] = c
	}

	var conflicts []Conflict
	for _, booking := range scheduler.DetectConflicts(bookings, interval, exclude...) {
		conflicts = append(conflicts, byID[booking.ID])
	}
	return conflicts, nil
}

// resolveConflicts applies the role rules to a non-empty conflict set and returns the
// reservations to cancel. Every owner is checked before any id is returned.
func resolveConflicts(principal Principal, override bool, conflicts []Conflict) ([]string, error) {
	if !principal.Can(PermReservationOverride) {
		return nil, &ConflictError{
			Message:   "this space is already reserved for the requested time slot",
			Conflicts: conflicts,
		}
	}
	if !override {
		return nil, &ConflictError{
			Message:     "conflict detected: resubmit with overrideConflict to replace the existing reservation(s)",
			Conflicts:   conflicts,
			CanOverride: true,
		}
	}

	ids := make([]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		if conflict.Owner.Role != RoleEmployee {
			return nil, fmt.Errorf("cannot override a reservation held by another %s: %w",
				strings.ToLower(string(conflict.Owner.Role)), ErrForbidden)
		}
		ids = append(ids, conflict.ReservationID)
	}
	return ids, nil
}

// attachQRCode issues the access token; failure leaves the reservation without QR fields.
func (s *ReservationService) attachQRCode(ctx context.Context, logger *slog.Logger, reservation *Reservation) {
	if s.issuer == nil {
		return
	}
	code, err := s.issuer.GenerateQRCode(ctx, reservation.ID)
	if err != nil {
		logger.WarnContext(ctx, "qr code generation failed; reservation kept without qr code",
			"reservation_id", reservation.ID,
			"error", err,
		)
		return
	}
	reservation.QRCode = &code.Image
	reservation.QRSignature = &code.Signature
}

// ListReservations returns reservations visible to the principal, newest start first.
// Only administrators may list other users' reservations.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = authorize(params.Principal, PermReservationListOwn); err != nil {
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	query := ReservationQuery{
		SpaceID:          params.SpaceID,
		Status:           params.Status,
		EndsAtOrAfter:    params.StartDate,
		StartsAtOrBefore: params.EndDate,
	}
	if params.Principal.Can(PermReservationListAny) {
		query.UserID = params.UserID
	} else {
		if params.UserID != nil && *params.UserID != params.Principal.UserID {
			err = ErrForbidden
			return
		}
		self := params.Principal.UserID
		query.UserID = &self
	}

	reservations, err = s.reservations.ListReservations(ctx, query)
	return
}

// GetReservation returns a reservation visible to the principal.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if err = authorize(principal, PermReservationListOwn); err != nil {
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if reservation.UserID != principal.UserID && !principal.Can(PermReservationReadAny) {
		reservation = Reservation{}
		err = ErrForbidden
		return
	}
	return
}

// CancelReservation moves an ACTIVE reservation to CANCELLED.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"principal_id", principal.UserID,
		"reservation_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	reservation, err = s.GetReservation(ctx, principal, id)
	if err != nil {
		return
	}

	switch reservation.Status {
	case StatusCancelled:
		err = newValidationError(ReasonAlreadyCancelled, "this reservation is already cancelled")
		return
	case StatusCompleted:
		err = newValidationError(ReasonAlreadyCompleted, "a completed reservation cannot be cancelled")
		return
	}
	if reservation.UserID != principal.UserID && !principal.Can(PermReservationCancelAny) {
		err = ErrForbidden
		return
	}

	now := s.now()
	if err = s.reservations.UpdateReservationStatus(ctx, reservation.ID, StatusCancelled, now); err != nil {
		err = mapRepoError(err)
		return
	}
	reservation.Status = StatusCancelled
	reservation.UpdatedAt = now
	return
}

// CheckAvailability reports conflicts for a slot without writing anything.
// Opening hours are not enforced here.
func (s *ReservationService) CheckAvailability(ctx context.Context, params CheckAvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if err = authorize(params.Principal, PermReservationCreate); err != nil {
		return
	}
	if s.reservations == nil || s.spaces == nil {
		err = fmt.Errorf("reservation service not fully configured")
		return
	}

	interval := scheduler.Interval{Start: params.StartTime, End: params.EndTime}
	var space Space
	space, err = s.admissible(ctx, s.now(), params.SpaceID, interval)
	if err != nil {
		return
	}

	var conflicts []Conflict
	conflicts, err = s.findConflicts(ctx, space.ID, interval)
	if err != nil {
		return
	}

	return Availability{
		Available: len(conflicts) == 0,
		Space:     space,
		StartTime: interval.Start,
		EndTime:   interval.End,
		Conflicts: conflicts,
	}, nil
}
