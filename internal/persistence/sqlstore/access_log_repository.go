package sqlstore

import (
	"context"

	"github.com/example/flexspace/internal/persistence"
)

// AccessLogRepository implements persistence.AccessLogRepository.
type AccessLogRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAccessLogRepository creates an access log repository over pool.
func NewAccessLogRepository(pool *ConnectionPool) *AccessLogRepository {
	return &AccessLogRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAccessLog appends entry.
func (r *AccessLogRepository) CreateAccessLog(ctx context.Context, entry persistence.AccessLog) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO access_logs (id, reservation_id, user_id, access_time, access_granted, method)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ReservationID,
		entry.UserID,
		toMillis(entry.AccessTime),
		boolToInt(entry.AccessGranted),
		entry.Method,
	)
	return r.mapper.MapError(err)
}

// ListAccessLogs returns the log of a reservation, most recent first.
func (r *AccessLogRepository) ListAccessLogs(ctx context.Context, reservationID string) ([]persistence.AccessLogRecord, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT a.id, a.reservation_id, a.user_id, a.access_time, a.access_granted, a.method,
		       u.id, u.email, u.first_name, u.last_name, u.role, u.created_at, u.updated_at
		FROM access_logs a
		JOIN users u ON u.id = a.user_id
		WHERE a.reservation_id = ?
		ORDER BY a.access_time DESC, a.id DESC`, reservationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var records []persistence.AccessLogRecord
	for rows.Next() {
		var (
			rec                    persistence.AccessLogRecord
			accessTime, granted    int64
			userCreated, userUpdtd int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.ReservationID, &rec.UserID, &accessTime, &granted, &rec.Method,
			&rec.User.ID, &rec.User.Email, &rec.User.FirstName, &rec.User.LastName, &rec.User.Role,
			&userCreated, &userUpdtd,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		rec.AccessTime = fromMillis(accessTime)
		rec.AccessGranted = granted != 0
		rec.User.CreatedAt = fromMillis(userCreated)
		rec.User.UpdatedAt = fromMillis(userUpdtd)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return records, nil
}
