package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"returns-backend/internal/domains/returns/model"
	"returns-backend/pkg/database"
)

const uniqueViolation = "23505"

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresReturnRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresReturnRepository(pool *pgxpool.Pool) ReturnRepository {
	return &postgresReturnRepository{pool: pool}
}

const returnColumns = `
	id, order_id, user_id, items, reason, comment, image_key, pickup_address,
	refund_amount, status, requested_at, approved_at, rejected_at, cancelled_at,
	picked_at, refunded_at, rejection_reason, pickup_agent_id,
	refund_failure_reason, provider_refund_id, version, updated_at
`

// =====================================================
// CREATE
// =====================================================
func (r *postgresReturnRepository) Create(ctx context.Context, req *model.ReturnRequest) error {
	items, err := json.Marshal(req.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	address, err := json.Marshal(req.PickupAddress)
	if err != nil {
		return fmt.Errorf("failed to encode pickup address: %w", err)
	}

	query := `
		INSERT INTO return_requests (
			id, order_id, user_id, items, reason, comment, image_key,
			pickup_address, status, requested_at, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		req.ID,
		req.OrderID,
		req.UserID,
		items,
		req.Reason,
		req.Comment,
		req.ImageKey,
		address,
		req.Status,
		req.RequestedAt,
		req.Version,
		req.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// uq_return_requests_open_order is a partial index over open statuses
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrOpenRequestExists
		}
		return fmt.Errorf("failed to create return request: %w", err)
	}

	return nil
}

// =====================================================
// READ
// =====================================================
func (r *postgresReturnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReturnRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+returnColumns+` FROM return_requests WHERE id = $1`, id)

	req, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReturnNotFound
		}
		return nil, fmt.Errorf("failed to get return request: %w", err)
	}
	return req, nil
}

// =====================================================
// UPDATE STATUS (optimistic lock)
// =====================================================
func (r *postgresReturnRepository) UpdateStatus(ctx context.Context, req *model.ReturnRequest, expectedVersion int, history *model.StatusHistory) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE return_requests
			SET status = $1,
			    refund_amount = $2,
			    approved_at = $3,
			    rejected_at = $4,
			    cancelled_at = $5,
			    picked_at = $6,
			    refunded_at = $7,
			    rejection_reason = $8,
			    pickup_agent_id = $9,
			    refund_failure_reason = $10,
			    provider_refund_id = $11,
			    updated_at = $12,
			    version = version + 1
			WHERE id = $13 AND version = $14
		`,
			req.Status,
			req.RefundAmount,
			req.ApprovedAt,
			req.RejectedAt,
			req.CancelledAt,
			req.PickedAt,
			req.RefundedAt,
			req.RejectionReason,
			req.PickupAgentID,
			req.RefundFailureReason,
			req.ProviderRefundID,
			req.UpdatedAt,
			req.ID,
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update return request: %w", err)
		}
		if result.RowsAffected() == 0 {
			return model.ErrVersionMismatch
		}

		if history != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO return_request_history (
					id, return_request_id, from_status, to_status,
					actor_role, actor_id, note, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
				history.ID,
				history.ReturnRequestID,
				history.FromStatus,
				history.ToStatus,
				history.ActorRole,
				history.ActorID,
				history.Note,
				history.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to record status history: %w", err)
			}
		}

		req.Version = expectedVersion + 1
		return nil
	})
}

// =====================================================
// LIST
// =====================================================
func buildListWhere(filter ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AsOf != nil {
		args = append(args, *filter.AsOf)
		clauses = append(clauses, fmt.Sprintf("requested_at <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *postgresReturnRepository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]model.ReturnRequest, error) {
	where, args := buildListWhere(filter)
	args = append(args, limit, offset)

	query := `SELECT ` + returnColumns + ` FROM return_requests` + where +
		fmt.Sprintf(` ORDER BY requested_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list return requests: %w", err)
	}
	defer rows.Close()

	var requests []model.ReturnRequest
	for rows.Next() {
		req, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return request: %w", err)
		}
		requests = append(requests, *req)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating return requests: %w", rows.Err())
	}

	return requests, nil
}

func (r *postgresReturnRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildListWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM return_requests`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count return requests: %w", err)
	}
	return total, nil
}

func (r *postgresReturnRepository) ListHistory(ctx context.Context, id uuid.UUID) ([]model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, return_request_id, from_status, to_status,
		       actor_role, actor_id, note, created_at
		FROM return_request_history
		WHERE return_request_id = $1
		ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(
			&h.ID,
			&h.ReturnRequestID,
			&h.FromStatus,
			&h.ToStatus,
			&h.ActorRole,
			&h.ActorID,
			&h.Note,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

func scanReturn(row pgx.Row) (*model.ReturnRequest, error) {
	var (
		req     model.ReturnRequest
		items   []byte
		address []byte
	)
	err := row.Scan(
		&req.ID,
		&req.OrderID,
		&req.UserID,
		&items,
		&req.Reason,
		&req.Comment,
		&req.ImageKey,
		&address,
		&req.RefundAmount,
		&req.Status,
		&req.RequestedAt,
		&req.ApprovedAt,
		&req.RejectedAt,
		&req.CancelledAt,
		&req.PickedAt,
		&req.RefundedAt,
		&req.RejectionReason,
		&req.PickupAgentID,
		&req.RefundFailureReason,
		&req.ProviderRefundID,
		&req.Version,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &req.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal(address, &req.PickupAddress); err != nil {
		return nil, fmt.Errorf("failed to decode pickup address: %w", err)
	}
	return &req, nil
}
