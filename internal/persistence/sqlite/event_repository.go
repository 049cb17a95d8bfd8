package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/pool-backoffice/internal/persistence"
)

const eventColumns = `id, title, start_time, end_time, all_day, event_type, status, customer_id,
	property_id, pool_id, location_url, description, created_by, version, created_at, updated_at`

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx,
			`INSERT INTO calendar_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID,
			event.Title,
			formatTime(event.Start),
			formatTime(event.End),
			boolToInt(event.AllDay),
			event.EventType,
			event.Status,
			event.CustomerID,
			nullString(event.PropertyID),
			nullString(event.PoolID),
			nullString(event.LocationURL),
			nullString(event.Description),
			event.CreatedBy,
			event.Version,
			formatTime(event.CreatedAt),
			formatTime(event.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	event, err := scanEvent(r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id))
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// UpdateEvent writes event only when the stored version equals
// expectedVersion. A miss is resolved to ErrNotFound or ErrVersionConflict
// inside the same transaction.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event, expectedVersion int64) (persistence.Event, error) {
	if event.End.Before(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	var updated persistence.Event
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE calendar_events SET
					title = ?, start_time = ?, end_time = ?, all_day = ?, event_type = ?, status = ?,
					customer_id = ?, property_id = ?, pool_id = ?, location_url = ?, description = ?,
					version = version + 1, updated_at = ?
				WHERE id = ? AND version = ?`,
				event.Title,
				formatTime(event.Start),
				formatTime(event.End),
				boolToInt(event.AllDay),
				event.EventType,
				event.Status,
				event.CustomerID,
				nullString(event.PropertyID),
				nullString(event.PoolID),
				nullString(event.LocationURL),
				nullString(event.Description),
				formatTime(event.UpdatedAt),
				event.ID,
				expectedVersion,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return conditionalMiss(ctx, tx, r.mapper, "calendar_events", event.ID)
			}

			updated, err = scanEvent(r.helper.QueryRowTx(ctx, tx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, event.ID))
			return r.mapper.MapError(err)
		})
	})
	if err != nil {
		return persistence.Event{}, err
	}
	return updated, nil
}

// DeleteEvent removes an event by ID.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
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

// ListEvents returns the events matching filter ordered by start then ID.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.EndsAfter.IsZero() {
		clauses = append(clauses, "end_time >= ?")
		args = append(args, formatTime(filter.EndsAfter))
	}
	if !filter.StartsBefore.IsZero() {
		clauses = append(clauses, "start_time < ?")
		args = append(args, formatTime(filter.StartsBefore))
	}
	if filter.CustomerID != "" {
		clauses = append(clauses, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		clauses = append(clauses, "status IN ("+placeholders+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}

	query := `SELECT ` + eventColumns + ` FROM calendar_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// conditionalMiss distinguishes a missing row from a stale version after a
// conditional update touched nothing.
func conditionalMiss(ctx context.Context, tx *sql.Tx, mapper *ErrorMapper, table, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return mapper.MapError(err)
	}
	return persistence.ErrVersionConflict
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                                   persistence.Event
		start, end, createdAt, updatedAt        string
		allDay                                  int
		propertyID, poolID, locationURL, detail sql.NullString
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&start,
		&end,
		&allDay,
		&event.EventType,
		&event.Status,
		&event.CustomerID,
		&propertyID,
		&poolID,
		&locationURL,
		&detail,
		&event.CreatedBy,
		&event.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Event{}, err
	}

	event.AllDay = allDay != 0
	event.PropertyID = stringPtr(propertyID)
	event.PoolID = stringPtr(poolID)
	event.LocationURL = stringPtr(locationURL)
	event.Description = stringPtr(detail)

	var err error
	if event.Start, err = parseTime(start); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.End, err = parseTime(end); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}
