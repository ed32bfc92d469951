package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/flexspace/internal/scheduler"
)

const (
	maxSpaceCapacity   = 100
	maxSpaceNameLength = 100
)

// SpaceService implements the space registry: CRUD, soft delete and statistics.
type SpaceService struct {
	spaces       SpaceRepository
	reservations ReservationRepository
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewSpaceService constructs a space service with the provided dependencies.
func NewSpaceService(spaces SpaceRepository, reservations ReservationRepository, idGenerator func() string, now func() time.Time) *SpaceService {
	return NewSpaceServiceWithLogger(spaces, reservations, idGenerator, now, nil, nil)
}

// NewSpaceServiceWithLogger constructs a space service with a specified location and logger.
func NewSpaceServiceWithLogger(spaces SpaceRepository, reservations ReservationRepository, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *SpaceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &SpaceService{
		spaces:       spaces,
		reservations: reservations,
		idGenerator:  idGenerator,
		now:          now,
		location:     location,
		logger:       defaultLogger(logger),
	}
}

func (s *SpaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SpaceService", operation, attrs...)
}

// CreateSpace validates input and registers a new space for administrators.
func (s *SpaceService) CreateSpace(ctx context.Context, params CreateSpaceParams) (space Space, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSpace",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create space", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("space_id", space.ID).InfoContext(ctx, "space created")
	}()

	if err = authorize(params.Principal, PermSpaceManage); err != nil {
		return
	}
	if s.spaces == nil {
		err = fmt.Errorf("space repository not configured")
		return
	}

	in := params.Input
	vErr := validateSpaceFields(in.Name, in.Type, in.Capacity)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = validateSpaceHours(in.OpenTime, in.CloseTime); err != nil {
		return
	}

	space = Space{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(in.Name),
		Type:      SpaceType(in.Type),
		Capacity:  in.Capacity,
		Floor:     normalizeOptionalString(in.Floor),
		Building:  normalizeOptionalString(in.Building),
		OpenTime:  in.OpenTime,
		CloseTime: in.CloseTime,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	space.UpdatedAt = space.CreatedAt

	var persisted Space
	persisted, err = s.spaces.CreateSpace(ctx, space)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}
	space = persisted
	return
}

// ListSpaces returns active spaces matching the filter, ordered by building, floor and name.
func (s *SpaceService) ListSpaces(ctx context.Context, filter SpaceFilter) (spaces []Space, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}
	if s.spaces == nil {
		err = fmt.Errorf("space repository not configured")
		return
	}

	if filter.Search != nil {
		trimmed := strings.TrimSpace(*filter.Search)
		if trimmed == "" {
			filter.Search = nil
		} else {
			filter.Search = &trimmed
		}
	}

	spaces, err = s.spaces.ListSpaces(ctx, filter)
	if err != nil {
		s.loggerWith(ctx, "ListSpaces").ErrorContext(ctx, "failed to list spaces", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return spaces, nil
}

// GetSpace returns a space with its ACTIVE reservation count.
func (s *SpaceService) GetSpace(ctx context.Context, id string) (detail SpaceDetail, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}
	if s.spaces == nil || s.reservations == nil {
		err = fmt.Errorf("space service not fully configured")
		return
	}

	var space Space
	space, err = s.spaces.GetSpace(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	active := StatusActive
	var count int
	count, err = s.reservations.CountReservations(ctx, ReservationCount{SpaceID: space.ID, Status: &active})
	if err != nil {
		return
	}
	return SpaceDetail{Space: space, ActiveReservations: count}, nil
}

// UpdateSpace applies a partial update, re-validating hours against the merged values.
func (s *SpaceService) UpdateSpace(ctx context.Context, params UpdateSpaceParams) (space Space, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSpace",
		"principal_id", params.Principal.UserID,
		"space_id", params.SpaceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update space", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "space updated")
	}()

	if err = authorize(params.Principal, PermSpaceManage); err != nil {
		return
	}
	if s.spaces == nil {
		err = fmt.Errorf("space repository not configured")
		return
	}

	var existing Space
	existing, err = s.spaces.GetSpace(ctx, params.SpaceID)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	patch := params.Patch
	merged := existing
	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
	}
	typeValue := string(existing.Type)
	if patch.Type != nil {
		typeValue = *patch.Type
	}
	if patch.Capacity != nil {
		merged.Capacity = *patch.Capacity
	}
	if patch.Floor != nil {
		merged.Floor = normalizeOptionalString(patch.Floor)
	}
	if patch.Building != nil {
		merged.Building = normalizeOptionalString(patch.Building)
	}
	if patch.OpenTime != nil {
		merged.OpenTime = *patch.OpenTime
	}
	if patch.CloseTime != nil {
		merged.CloseTime = *patch.CloseTime
	}
	if patch.IsActive != nil {
		merged.IsActive = *patch.IsActive
	}

	vErr := validateSpaceFields(merged.Name, typeValue, merged.Capacity)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	merged.Type = SpaceType(typeValue)
	if patch.OpenTime != nil || patch.CloseTime != nil {
		if err = validateSpaceHours(merged.OpenTime, merged.CloseTime); err != nil {
			return
		}
	}

	merged.UpdatedAt = s.now()
	space, err = s.spaces.UpdateSpace(ctx, merged)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}
	return
}

// DeleteSpace soft-deletes a space that has no ACTIVE reservation ending now or later.
func (s *SpaceService) DeleteSpace(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("SpaceService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSpace",
		"principal_id", principal.UserID,
		"space_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete space", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "space deactivated")
	}()

	if err = authorize(principal, PermSpaceManage); err != nil {
		return
	}
	if s.spaces == nil || s.reservations == nil {
		err = fmt.Errorf("space service not fully configured")
		return
	}

	var space Space
	space, err = s.spaces.GetSpace(ctx, id)
	if err != nil {
		err = mapSpaceRepoError(err)
		return
	}

	now := s.now()
	active := StatusActive
	var upcoming int
	upcoming, err = s.reservations.CountReservations(ctx, ReservationCount{
		SpaceID:       space.ID,
		Status:        &active,
		EndsAtOrAfter: &now,
	})
	if err != nil {
		return
	}
	if upcoming > 0 {
		err = newValidationError(ReasonActiveReservations, "cannot delete this space: %d active reservation(s)", upcoming)
		return
	}

	space.IsActive = false
	space.UpdatedAt = now
	_, err = s.spaces.UpdateSpace(ctx, space)
	err = mapSpaceRepoError(err)
	return
}

// Statistics returns reservation totals for a space and the ACTIVE count of the current week.
func (s *SpaceService) Statistics(ctx context.Context, principal Principal, id string) (stats SpaceStatistics, err error) {
	if s == nil {
		err = fmt.Errorf("SpaceService is nil")
		return
	}
	if err = authorize(principal, PermSpaceStatistics); err != nil {
		return
	}

	var detail SpaceDetail
	detail, err = s.GetSpace(ctx, id)
	if err != nil {
		return
	}

	weekStart := scheduler.WeekStart(s.now(), s.location)
	weekEnd := weekStart.AddDate(0, 0, 7)
	active := StatusActive

	var weekly, total int
	weekly, err = s.reservations.CountReservations(ctx, ReservationCount{
		SpaceID:         detail.ID,
		Status:          &active,
		StartsAtOrAfter: &weekStart,
		StartsBefore:    &weekEnd,
	})
	if err != nil {
		return
	}
	total, err = s.reservations.CountReservations(ctx, ReservationCount{SpaceID: detail.ID})
	if err != nil {
		return
	}

	return SpaceStatistics{
		Space:                detail,
		TotalReservations:    total,
		ReservationsThisWeek: weekly,
		WeekStart:            weekStart,
	}, nil
}

func validateSpaceFields(name, spaceType string, capacity int) *ValidationError {
	vErr := &ValidationError{}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		vErr.add("name", "name is required")
	} else if len([]rune(trimmed)) > maxSpaceNameLength {
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxSpaceNameLength))
	}
	if _, ok := ParseSpaceType(spaceType); !ok {
		vErr.add("type", "type must be one of DESK, MEETING_ROOM, COLLABORATIVE_SPACE")
	}
	if capacity < 1 {
		vErr.add("capacity", "capacity must be at least 1")
	} else if capacity > maxSpaceCapacity {
		vErr.add("capacity", fmt.Sprintf("capacity cannot exceed %d", maxSpaceCapacity))
	}
	return vErr
}

func validateSpaceHours(openTime, closeTime string) error {
	if _, err := scheduler.ParseHours(openTime, closeTime); err != nil {
		return violationError(err)
	}
	return nil
}

// violationError converts a scheduler rule violation into a ValidationError.
func violationError(err error) error {
	var v *scheduler.Violation
	if errors.As(err, &v) {
		return &ValidationError{Reason: string(v.Reason), Message: v.Message}
	}
	return err
}

func mapSpaceRepoError(err error) error {
	err = mapRepoError(err)
	if errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("a space with this name already exists: %w", ErrAlreadyExists)
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
