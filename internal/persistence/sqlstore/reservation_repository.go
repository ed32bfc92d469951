package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/flexspace/internal/persistence"
)

const statusActive = "ACTIVE"

// ReservationRepository implements persistence.ReservationRepository.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a reservation repository over pool.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const reservationRecordSelect = `
	SELECT r.id, r.user_id, r.space_id, r.start_time, r.end_time, r.status,
	       r.qr_code, r.qr_signature, r.created_at, r.updated_at,
	       s.id, s.name, s.type, s.capacity, s.floor, s.building,
	       s.open_time, s.close_time, s.is_active, s.created_at, s.updated_at,
	       u.id, u.email, u.first_name, u.last_name, u.role, u.created_at, u.updated_at
	FROM reservations r
	JOIN spaces s ON s.id = r.space_id
	JOIN users u ON u.id = r.user_id`

// GetReservation returns the reservation with id joined with its space and owner.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.ReservationRecord, error) {
	if id == "" {
		return persistence.ReservationRecord{}, persistence.ErrNotFound
	}
	record, err := scanReservationRecord(r.helper.QueryRow(ctx, reservationRecordSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return persistence.ReservationRecord{}, r.mapper.MapError(err)
	}
	return record, nil
}

// ListReservations returns matching reservations, latest start first.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.SpaceID != nil {
		where = append(where, "r.space_id = ?")
		args = append(args, *filter.SpaceID)
	}
	if filter.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.EndsAtOrAfter != nil {
		where = append(where, "r.end_time >= ?")
		args = append(args, toMillis(*filter.EndsAtOrAfter))
	}
	if filter.StartsAtOrBefore != nil {
		where = append(where, "r.start_time <= ?")
		args = append(args, toMillis(*filter.StartsAtOrBefore))
	}

	query := reservationRecordSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.start_time DESC, r.id ASC`

	return r.queryRecords(ctx, r.pool.DB(), query, args...)
}

// FindOverlapping returns ACTIVE reservations on the space intersecting
// [Start, End), excluding ExcludeIDs.
func (r *ReservationRepository) FindOverlapping(ctx context.Context, q persistence.OverlapQuery) ([]persistence.ReservationRecord, error) {
	query, args := overlapQuery(reservationRecordSelect, q)
	return r.queryRecords(ctx, r.pool.DB(), query+` ORDER BY r.start_time ASC, r.id ASC`, args...)
}

// CountReservations counts reservations on a space matching filter.
func (r *ReservationRepository) CountReservations(ctx context.Context, filter persistence.ReservationCountFilter) (int, error) {
	where := []string{"space_id = ?"}
	args := []any{filter.SpaceID}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.EndsAtOrAfter != nil {
		where = append(where, "end_time >= ?")
		args = append(args, toMillis(*filter.EndsAtOrAfter))
	}
	if filter.StartsAtOrAfter != nil {
		where = append(where, "start_time >= ?")
		args = append(args, toMillis(*filter.StartsAtOrAfter))
	}
	if filter.StartsBefore != nil {
		where = append(where, "start_time < ?")
		args = append(args, toMillis(*filter.StartsBefore))
	}

	var count int
	err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE `+strings.Join(where, " AND "), args...).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// AdmitReservation re-checks overlaps, cancels CancelIDs and inserts the new
// reservation in one transaction. Any ACTIVE overlap not listed in CancelIDs
// aborts with persistence.ErrOverlap and nothing is written.
func (r *ReservationRepository) AdmitReservation(ctx context.Context, admission persistence.Admission) error {
	res := admission.Reservation
	if res.ID == "" || !res.EndTime.After(res.StartTime) {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query, args := overlapQuery(`SELECT r.id FROM reservations r`, persistence.OverlapQuery{
				SpaceID:    res.SpaceID,
				Start:      res.StartTime,
				End:        res.EndTime,
				ExcludeIDs: admission.CancelIDs,
			})
			var blocking string
			err := r.helper.QueryRowOn(ctx, tx, query+` LIMIT 1`, args...).Scan(&blocking)
			switch {
			case err == nil:
				return fmt.Errorf("%w: reservation %s", persistence.ErrOverlap, blocking)
			case !errors.Is(err, sql.ErrNoRows):
				return r.mapper.MapError(err)
			}

			for _, id := range admission.CancelIDs {
				if _, err := r.helper.ExecOn(ctx, tx,
					`UPDATE reservations SET status = 'CANCELLED', updated_at = ? WHERE id = ? AND status = 'ACTIVE'`,
					toMillis(admission.CancelledAt), id,
				); err != nil {
					return r.mapper.MapError(err)
				}
			}

			_, err = r.helper.ExecOn(ctx, tx, `
				INSERT INTO reservations (id, user_id, space_id, start_time, end_time, status,
				                          qr_code, qr_signature, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				res.ID,
				res.UserID,
				res.SpaceID,
				toMillis(res.StartTime),
				toMillis(res.EndTime),
				res.Status,
				nullString(res.QRCode),
				nullString(res.QRSignature),
				toMillis(res.CreatedAt),
				toMillis(res.UpdatedAt),
			)
			return r.mapper.MapError(err)
		})
	})
}

// UpdateReservationStatus sets status on the reservation with id.
func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return r.updateOne(ctx, `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		status, toMillis(updatedAt), id)
}

// UpdateReservationQR stores the issued QR image and signature.
func (r *ReservationRepository) UpdateReservationQR(ctx context.Context, id, qrCode, qrSignature string, updatedAt time.Time) error {
	return r.updateOne(ctx, `UPDATE reservations SET qr_code = ?, qr_signature = ?, updated_at = ? WHERE id = ?`,
		qrCode, qrSignature, toMillis(updatedAt), id)
}

func (r *ReservationRepository) updateOne(ctx context.Context, query string, args ...any) error {
	result, err := r.helper.Exec(ctx, query, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) queryRecords(ctx context.Context, q querier, query string, args ...any) ([]persistence.ReservationRecord, error) {
	rows, err := r.helper.QueryOn(ctx, q, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.ReservationRecord
	for rows.Next() {
		record, err := scanReservationRecord(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return records, nil
}

// overlapQuery appends the half-open overlap predicate to base, which must
// alias reservations as r.
func overlapQuery(base string, q persistence.OverlapQuery) (string, []any) {
	query := base + ` WHERE r.space_id = ? AND r.status = '` + statusActive + `' AND r.start_time < ? AND r.end_time > ?`
	args := []any{q.SpaceID, toMillis(q.End), toMillis(q.Start)}
	if len(q.ExcludeIDs) > 0 {
		query += ` AND r.id NOT IN (` + placeholders(len(q.ExcludeIDs)) + `)`
		for _, id := range q.ExcludeIDs {
			args = append(args, id)
		}
	}
	return query, args
}

func scanReservationRecord(row rowScanner) (persistence.ReservationRecord, error) {
	var (
		rec                      persistence.ReservationRecord
		start, end               int64
		qrCode, qrSignature      sql.NullString
		created, updated         int64
		floor, building          sql.NullString
		spaceActive              int64
		spaceCreated, spaceUpdt  int64
		ownerCreated, ownerUpdtd int64
	)
	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.SpaceID, &start, &end, &rec.Status,
		&qrCode, &qrSignature, &created, &updated,
		&rec.Space.ID, &rec.Space.Name, &rec.Space.Type, &rec.Space.Capacity, &floor, &building,
		&rec.Space.OpenTime, &rec.Space.CloseTime, &spaceActive, &spaceCreated, &spaceUpdt,
		&rec.Owner.ID, &rec.Owner.Email, &rec.Owner.FirstName, &rec.Owner.LastName, &rec.Owner.Role,
		&ownerCreated, &ownerUpdtd,
	); err != nil {
		return persistence.ReservationRecord{}, err
	}

	rec.StartTime = fromMillis(start)
	rec.EndTime = fromMillis(end)
	rec.QRCode = stringPtr(qrCode)
	rec.QRSignature = stringPtr(qrSignature)
	rec.CreatedAt = fromMillis(created)
	rec.UpdatedAt = fromMillis(updated)

	rec.Space.Floor = stringPtr(floor)
	rec.Space.Building = stringPtr(building)
	rec.Space.IsActive = spaceActive != 0
	rec.Space.CreatedAt = fromMillis(spaceCreated)
	rec.Space.UpdatedAt = fromMillis(spaceUpdt)

	rec.Owner.CreatedAt = fromMillis(ownerCreated)
	rec.Owner.UpdatedAt = fromMillis(ownerUpdtd)
	return rec, nil
}
