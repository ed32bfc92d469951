package main

import (
	"context"
	"time"

	"github.com/example/flexspace/internal/application"
	"github.com/example/flexspace/internal/persistence"
)

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, creds.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type spaceRepositoryAdapter struct {
	repo persistence.SpaceRepository
}

func newSpaceRepositoryAdapter(repo persistence.SpaceRepository) *spaceRepositoryAdapter {
	return &spaceRepositoryAdapter{repo: repo}
}

func (a *spaceRepositoryAdapter) CreateSpace(ctx context.Context, space application.Space) (application.Space, error) {
	if err := a.repo.CreateSpace(ctx, toPersistenceSpace(space)); err != nil {
		return application.Space{}, err
	}
	return a.GetSpace(ctx, space.ID)
}

func (a *spaceRepositoryAdapter) UpdateSpace(ctx context.Context, space application.Space) (application.Space, error) {
	if err := a.repo.UpdateSpace(ctx, toPersistenceSpace(space)); err != nil {
		return application.Space{}, err
	}
	return a.GetSpace(ctx, space.ID)
}

func (a *spaceRepositoryAdapter) GetSpace(ctx context.Context, id string) (application.Space, error) {
	stored, err := a.repo.GetSpace(ctx, id)
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) ListSpaces(ctx context.Context, filter application.SpaceFilter) ([]application.Space, error) {
	query := persistence.SpaceFilter{
		MinCapacity: filter.MinCapacity,
		Floor:       filter.Floor,
		Building:    filter.Building,
		Search:      filter.Search,
	}
	if filter.Type != nil {
		t := string(*filter.Type)
		query.Type = &t
	}

	models, err := a.repo.ListSpaces(ctx, query)
	if err != nil {
		return nil, err
	}
	spaces := make([]application.Space, 0, len(models))
	for _, model := range models {
		spaces = append(spaces, toApplicationSpace(model))
	}
	return spaces, nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	record, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(record), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, query application.ReservationQuery) ([]application.Reservation, error) {
	filter := persistence.ReservationFilter{
		UserID:           query.UserID,
		SpaceID:          query.SpaceID,
		Status:           statusString(query.Status),
		EndsAtOrAfter:    query.EndsAtOrAfter,
		StartsAtOrBefore: query.StartsAtOrBefore,
	}

	records, err := a.repo.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(records))
	for _, record := range records {
		reservations = append(reservations, toApplicationReservation(record))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) FindConflicts(ctx context.Context, query application.ConflictQuery) ([]application.Conflict, error) {
	records, err := a.repo.FindOverlapping(ctx, persistence.OverlapQuery{
		SpaceID:    query.SpaceID,
		Start:      query.Start,
		End:        query.End,
		ExcludeIDs: query.ExcludeIDs,
	})
	if err != nil {
		return nil, err
	}
	conflicts := make([]application.Conflict, 0, len(records))
	for _, record := range records {
		conflicts = append(conflicts, application.Conflict{
			ReservationID: record.ID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			Owner:         toApplicationUser(record.Owner),
		})
	}
	return conflicts, nil
}

func (a *reservationRepositoryAdapter) CountReservations(ctx context.Context, count application.ReservationCount) (int, error) {
	return a.repo.CountReservations(ctx, persistence.ReservationCountFilter{
		SpaceID:         count.SpaceID,
		Status:          statusString(count.Status),
		EndsAtOrAfter:   count.EndsAtOrAfter,
		StartsAtOrAfter: count.StartsAtOrAfter,
		StartsBefore:    count.StartsBefore,
	})
}

// AdmitReservation reloads the admitted row so the caller gets the space and owner.
func (a *reservationRepositoryAdapter) AdmitReservation(ctx context.Context, admission application.Admission) (application.Reservation, error) {
	err := a.repo.AdmitReservation(ctx, persistence.Admission{
		Reservation: toPersistenceReservation(admission.Reservation),
		CancelIDs:   admission.CancelIDs,
		CancelledAt: admission.At,
	})
	if err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, admission.Reservation.ID)
}

func (a *reservationRepositoryAdapter) UpdateReservationStatus(ctx context.Context, id string, status application.ReservationStatus, at time.Time) error {
	return a.repo.UpdateReservationStatus(ctx, id, string(status), at)
}

func (a *reservationRepositoryAdapter) StoreQRCode(ctx context.Context, id, qrCode, qrSignature string, at time.Time) error {
	return a.repo.UpdateReservationQR(ctx, id, qrCode, qrSignature, at)
}

type accessLogRepositoryAdapter struct {
	repo persistence.AccessLogRepository
}

func newAccessLogRepositoryAdapter(repo persistence.AccessLogRepository) *accessLogRepositoryAdapter {
	return &accessLogRepositoryAdapter{repo: repo}
}

func (a *accessLogRepositoryAdapter) CreateAccessLog(ctx context.Context, entry application.AccessLog) (application.AccessLog, error) {
	if err := a.repo.CreateAccessLog(ctx, persistence.AccessLog{
		ID:            entry.ID,
		ReservationID: entry.ReservationID,
		UserID:        entry.UserID,
		AccessTime:    entry.AccessTime,
		AccessGranted: entry.AccessGranted,
		Method:        string(entry.Method),
	}); err != nil {
		return application.AccessLog{}, err
	}
	return entry, nil
}

func (a *accessLogRepositoryAdapter) ListAccessLogs(ctx context.Context, reservationID string) ([]application.AccessLog, error) {
	records, err := a.repo.ListAccessLogs(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	logs := make([]application.AccessLog, 0, len(records))
	for _, record := range records {
		user := toApplicationUser(record.User)
		logs = append(logs, application.AccessLog{
			ID:            record.ID,
			ReservationID: record.ReservationID,
			UserID:        record.UserID,
			AccessTime:    record.AccessTime,
			AccessGranted: record.AccessGranted,
			Method:        application.AccessMethod(record.Method),
			User:          &user,
		})
	}
	return logs, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Role:      application.Role(model.Role),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: passwordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSpace(model persistence.Space) application.Space {
	return application.Space{
		ID:        model.ID,
		Name:      model.Name,
		Type:      application.SpaceType(model.Type),
		Capacity:  model.Capacity,
		Floor:     cloneString(model.Floor),
		Building:  cloneString(model.Building),
		OpenTime:  model.OpenTime,
		CloseTime: model.CloseTime,
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceSpace(space application.Space) persistence.Space {
	return persistence.Space{
		ID:        space.ID,
		Name:      space.Name,
		Type:      string(space.Type),
		Capacity:  space.Capacity,
		Floor:     cloneString(space.Floor),
		Building:  cloneString(space.Building),
		OpenTime:  space.OpenTime,
		CloseTime: space.CloseTime,
		IsActive:  space.IsActive,
		CreatedAt: space.CreatedAt,
		UpdatedAt: space.UpdatedAt,
	}
}

func toApplicationReservation(record persistence.ReservationRecord) application.Reservation {
	reservation := application.Reservation{
		ID:          record.ID,
		UserID:      record.UserID,
		SpaceID:     record.SpaceID,
		StartTime:   record.StartTime,
		EndTime:     record.EndTime,
		Status:      application.ReservationStatus(record.Status),
		QRCode:      cloneString(record.QRCode),
		QRSignature: cloneString(record.QRSignature),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if record.Space.ID != "" {
		space := toApplicationSpace(record.Space)
		reservation.Space = &space
	}
	if record.Owner.ID != "" {
		owner := toApplicationUser(record.Owner)
		reservation.User = &owner
	}
	return reservation
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:          reservation.ID,
		UserID:      reservation.UserID,
		SpaceID:     reservation.SpaceID,
		StartTime:   reservation.StartTime,
		EndTime:     reservation.EndTime,
		Status:      string(reservation.Status),
		QRCode:      cloneString(reservation.QRCode),
		QRSignature: cloneString(reservation.QRSignature),
		CreatedAt:   reservation.CreatedAt,
		UpdatedAt:   reservation.UpdatedAt,
	}
}

func statusString(status *application.ReservationStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
