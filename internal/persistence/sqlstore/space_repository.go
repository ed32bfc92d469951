package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/flexspace/internal/persistence"
)

// SpaceRepository implements persistence.SpaceRepository.
type SpaceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSpaceRepository creates a space repository over pool.
func NewSpaceRepository(pool *ConnectionPool) *SpaceRepository {
	return &SpaceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const spaceColumns = `id, name, type, capacity, floor, building, open_time, close_time, is_active, created_at, updated_at`

// CreateSpace inserts space.
func (r *SpaceRepository) CreateSpace(ctx context.Context, space persistence.Space) error {
	if space.ID == "" || space.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO spaces (`+spaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		space.ID,
		space.Name,
		space.Type,
		space.Capacity,
		nullString(space.Floor),
		nullString(space.Building),
		space.OpenTime,
		space.CloseTime,
		boolToInt(space.IsActive),
		toMillis(space.CreatedAt),
		toMillis(space.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateSpace overwrites every mutable column of space.
func (r *SpaceRepository) UpdateSpace(ctx context.Context, space persistence.Space) error {
	if space.ID == "" || space.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE spaces
		SET name = ?, type = ?, capacity = ?, floor = ?, building = ?,
		    open_time = ?, close_time = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		space.Name,
		space.Type,
		space.Capacity,
		nullString(space.Floor),
		nullString(space.Building),
		space.OpenTime,
		space.CloseTime,
		boolToInt(space.IsActive),
		toMillis(space.UpdatedAt),
		space.ID,
	)
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

// GetSpace returns the space with id, active or not.
func (r *SpaceRepository) GetSpace(ctx context.Context, id string) (persistence.Space, error) {
	if id == "" {
		return persistence.Space{}, persistence.ErrNotFound
	}
	space, err := scanSpace(r.helper.QueryRow(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id))
	if err != nil {
		return persistence.Space{}, r.mapper.MapError(err)
	}
	return space, nil
}

// GetSpaceByName returns the oldest space called name.
func (r *SpaceRepository) GetSpaceByName(ctx context.Context, name string) (persistence.Space, error) {
	space, err := scanSpace(r.helper.QueryRow(ctx,
		`SELECT `+spaceColumns+` FROM spaces WHERE name = ? ORDER BY created_at ASC, id ASC LIMIT 1`, name))
	if err != nil {
		return persistence.Space{}, r.mapper.MapError(err)
	}
	return space, nil
}

// ListSpaces returns spaces matching filter ordered by building, floor and name.
// Search matches name, floor or building case-insensitively.
func (r *SpaceRepository) ListSpaces(ctx context.Context, filter persistence.SpaceFilter) ([]persistence.Space, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeInactive {
		where = append(where, "is_active = 1")
	}
	if filter.Type != nil {
		where = append(where, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.MinCapacity != nil {
		where = append(where, "capacity >= ?")
		args = append(args, *filter.MinCapacity)
	}
	if filter.Floor != nil {
		where = append(where, "floor = ?")
		args = append(args, *filter.Floor)
	}
	if filter.Building != nil {
		where = append(where, "building = ?")
		args = append(args, *filter.Building)
	}
	if filter.Search != nil && *filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(*filter.Search)) + "%"
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}

	query := `SELECT ` + spaceColumns + ` FROM spaces`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY COALESCE(building, '') ASC, COALESCE(floor, '') ASC, name ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var spaces []persistence.Space
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return spaces, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanSpace(row rowScanner) (persistence.Space, error) {
	var (
		space            persistence.Space
		floor, building  sql.NullString
		active           int64
		created, updated int64
	)
	if err := row.Scan(
		&space.ID,
		&space.Name,
		&space.Type,
		&space.Capacity,
		&floor,
		&building,
		&space.OpenTime,
		&space.CloseTime,
		&active,
		&created,
		&updated,
	); err != nil {
		return persistence.Space{}, err
	}
	space.Floor = stringPtr(floor)
	space.Building = stringPtr(building)
	space.IsActive = active != 0
	space.CreatedAt = fromMillis(created)
	space.UpdatedAt = fromMillis(updated)
	return space, nil
}
