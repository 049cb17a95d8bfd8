package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/pool-backoffice/internal/persistence"
)

const estimateColumns = `id, estimate_number, status, customer_id, pool_id, subtotal_cents, tax_rate,
	tax_amount_cents, total_cents, valid_until, notes, created_by, version, created_at, updated_at`

// EstimateRepository implements persistence.EstimateRepository using SQLite.
// An estimate row and its line items are always written in one transaction.
type EstimateRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEstimateRepository creates a new SQLite estimate repository.
func NewEstimateRepository(pool *ConnectionPool) *EstimateRepository {
	return &EstimateRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEstimate inserts an estimate and its line items.
func (r *EstimateRepository) CreateEstimate(ctx context.Context, estimate persistence.Estimate) error {
	if estimate.ID == "" || estimate.Number == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := r.helper.ExecTx(ctx, tx,
				`INSERT INTO estimates (`+estimateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				estimate.ID,
				estimate.Number,
				estimate.Status,
				estimate.CustomerID,
				nullString(estimate.PoolID),
				estimate.SubtotalCents,
				estimate.TaxRate,
				estimate.TaxAmountCents,
				estimate.TotalCents,
				nullDate(estimate.ValidUntil),
				nullString(estimate.Notes),
				estimate.CreatedBy,
				estimate.Version,
				formatTime(estimate.CreatedAt),
				formatTime(estimate.UpdatedAt),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return r.insertLineItems(ctx, tx, estimate.ID, estimate.LineItems)
		})
	})
}

// GetEstimate retrieves an estimate with its ordered line items.
func (r *EstimateRepository) GetEstimate(ctx context.Context, id string) (persistence.Estimate, error) {
	estimate, err := scanEstimate(r.helper.QueryRow(ctx, `SELECT `+estimateColumns+` FROM estimates WHERE id = ?`, id))
	if err != nil {
		return persistence.Estimate{}, r.mapper.MapError(err)
	}
	items, err := r.lineItems(ctx, r.pool.DB(), id)
	if err != nil {
		return persistence.Estimate{}, err
	}
	estimate.LineItems = items
	return estimate, nil
}

// UpdateEstimate rewrites the estimate and replaces its line items when the
// stored version equals expectedVersion. The number and author never change.
func (r *EstimateRepository) UpdateEstimate(ctx context.Context, estimate persistence.Estimate, expectedVersion int64) (persistence.Estimate, error) {
	var updated persistence.Estimate
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE estimates SET
					status = ?, customer_id = ?, pool_id = ?, subtotal_cents = ?, tax_rate = ?,
					tax_amount_cents = ?, total_cents = ?, valid_until = ?, notes = ?,
					version = version + 1, updated_at = ?
				WHERE id = ? AND version = ?`,
				estimate.Status,
				estimate.CustomerID,
				nullString(estimate.PoolID),
				estimate.SubtotalCents,
				estimate.TaxRate,
				estimate.TaxAmountCents,
				estimate.TotalCents,
				nullDate(estimate.ValidUntil),
				nullString(estimate.Notes),
				formatTime(estimate.UpdatedAt),
				estimate.ID,
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
				return conditionalMiss(ctx, tx, r.mapper, "estimates", estimate.ID)
			}

			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM estimate_line_items WHERE estimate_id = ?`, estimate.ID); err != nil {
				return r.mapper.MapError(err)
			}
			if err := r.insertLineItems(ctx, tx, estimate.ID, estimate.LineItems); err != nil {
				return err
			}

			updated, err = scanEstimate(r.helper.QueryRowTx(ctx, tx, `SELECT `+estimateColumns+` FROM estimates WHERE id = ?`, estimate.ID))
			if err != nil {
				return r.mapper.MapError(err)
			}
			updated.LineItems, err = r.lineItems(ctx, tx, estimate.ID)
			return err
		})
	})
	if err != nil {
		return persistence.Estimate{}, err
	}
	return updated, nil
}

// DeleteEstimate removes an estimate; its line items cascade.
func (r *EstimateRepository) DeleteEstimate(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM estimates WHERE id = ?`, id)
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

// ListEstimates returns estimates newest first, each with its line items.
func (r *EstimateRepository) ListEstimates(ctx context.Context, filter persistence.EstimateFilter) ([]persistence.Estimate, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.CustomerID != "" {
		clauses = append(clauses, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + estimateColumns + ` FROM estimates`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, estimate_number DESC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	estimates := make([]persistence.Estimate, 0)
	for rows.Next() {
		estimate, err := scanEstimate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		estimates = append(estimates, estimate)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	for i := range estimates {
		items, err := r.lineItems(ctx, r.pool.DB(), estimates[i].ID)
		if err != nil {
			return nil, err
		}
		estimates[i].LineItems = items
	}
	return estimates, nil
}

// NextEstimateSequence atomically increments and returns the counter for year.
func (r *EstimateRepository) NextEstimateSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := r.retry.WithRetry(ctx, func() error {
		return r.helper.QueryRow(ctx,
			`INSERT INTO estimate_sequences (year, last_value) VALUES (?, 1)
			ON CONFLICT(year) DO UPDATE SET last_value = last_value + 1
			RETURNING last_value`,
			year,
		).Scan(&next)
	})
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return next, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *EstimateRepository) lineItems(ctx context.Context, q queryer, estimateID string) ([]persistence.LineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, position, description, quantity, unit_price_cents, total_cents
		FROM estimate_line_items WHERE estimate_id = ? ORDER BY position`, estimateID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	items := make([]persistence.LineItem, 0)
	for rows.Next() {
		var item persistence.LineItem
		if err := rows.Scan(&item.ID, &item.Position, &item.Description, &item.Quantity, &item.UnitPriceCents, &item.TotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return items, nil
}

func (r *EstimateRepository) insertLineItems(ctx context.Context, tx *sql.Tx, estimateID string, items []persistence.LineItem) error {
	for i, item := range items {
		_, err := r.helper.ExecTx(ctx, tx,
			`INSERT INTO estimate_line_items (estimate_id, id, position, description, quantity, unit_price_cents, total_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			estimateID,
			item.ID,
			i,
			item.Description,
			item.Quantity,
			item.UnitPriceCents,
			item.TotalCents,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func scanEstimate(row rowScanner) (persistence.Estimate, error) {
	var (
		estimate                  persistence.Estimate
		poolID, validUntil, notes sql.NullString
		createdAt, updatedAt      string
	)
	if err := row.Scan(
		&estimate.ID,
		&estimate.Number,
		&estimate.Status,
		&estimate.CustomerID,
		&poolID,
		&estimate.SubtotalCents,
		&estimate.TaxRate,
		&estimate.TaxAmountCents,
		&estimate.TotalCents,
		&validUntil,
		&notes,
		&estimate.CreatedBy,
		&estimate.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Estimate{}, err
	}
	estimate.PoolID = stringPtr(poolID)
	estimate.Notes = stringPtr(notes)

	var err error
	if validUntil.Valid {
		date, err := time.Parse(dateLayout, validUntil.String)
		if err != nil {
			return persistence.Estimate{}, fmt.Errorf("failed to parse valid_until: %w", err)
		}
		estimate.ValidUntil = &date
	}
	if estimate.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Estimate{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if estimate.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Estimate{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return estimate, nil
}

func nullDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Format(dateLayout), Valid: true}
}
