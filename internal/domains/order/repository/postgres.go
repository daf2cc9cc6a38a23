package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"returns-backend/internal/domains/order/model"
)

// =====================================================
// POSTGRES REPOSITORY IMPLEMENTATION
// =====================================================
type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &postgresOrderRepository{
		pool: pool,
	}
}

// =====================================================
// ORDERS (READ ONLY)
// =====================================================

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	query := `
		SELECT
			id, order_number, user_id, status, total,
			payment_intent_id, delivered_at, cancelled_at, created_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.PaymentIntentID,
		&order.DeliveredAt,
		&order.CancelledAt,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (r *postgresOrderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating order items: %w", rows.Err())
	}

	return items, nil
}

func (r *postgresOrderRepository) GetPaymentIntentID(ctx context.Context, orderID uuid.UUID) (string, error) {
	var intent *string
	err := r.pool.QueryRow(ctx, `SELECT payment_intent_id FROM orders WHERE id = $1`, orderID).Scan(&intent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", model.ErrOrderNotFound
		}
		return "", fmt.Errorf("failed to get payment intent: %w", err)
	}
	if intent == nil {
		return "", nil
	}
	return *intent, nil
}

// =====================================================
// REFUNDABLE ORDERS
// =====================================================

const refundableColumns = `
	order_id, user_id, items, refund_status, refund_reference,
	refund_failure_reason, cancelled_at, refund_updated_at,
	refund_attempts, created_at, version
`

func (r *postgresOrderRepository) CreateRefundableOrder(ctx context.Context, order *model.RefundableOrder) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO refundable_orders (`+refundableColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (order_id) DO NOTHING
	`,
		order.OrderID,
		order.UserID,
		items,
		order.RefundStatus,
		order.RefundReference,
		order.RefundFailureReason,
		order.CancelledAt,
		order.RefundUpdatedAt,
		order.RefundAttempts,
		order.CreatedAt,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create refundable order: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) GetRefundableOrder(ctx context.Context, orderID uuid.UUID) (*model.RefundableOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+refundableColumns+` FROM refundable_orders WHERE order_id = $1`, orderID)

	order, err := scanRefundable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get refundable order: %w", err)
	}
	return order, nil
}

func (r *postgresOrderRepository) UpdateRefundState(ctx context.Context, order *model.RefundableOrder, expectedVersion int) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE refundable_orders
		SET refund_status = $1,
		    refund_reference = $2,
		    refund_failure_reason = $3,
		    refund_updated_at = $4,
		    refund_attempts = $5,
		    version = version + 1
		WHERE order_id = $6 AND version = $7
	`,
		order.RefundStatus,
		order.RefundReference,
		order.RefundFailureReason,
		order.RefundUpdatedAt,
		order.RefundAttempts,
		order.OrderID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update refund state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrVersionMismatch
	}

	order.Version = expectedVersion + 1
	return nil
}

func buildRefundableWhere(filter RefundableFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.RefundStatus != nil {
		args = append(args, *filter.RefundStatus)
		clauses = append(clauses, fmt.Sprintf("refund_status = $%d", len(args)))
	}
	if filter.AsOf != nil {
		args = append(args, *filter.AsOf)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *postgresOrderRepository) ListRefundableOrders(ctx context.Context, filter RefundableFilter, offset, limit int) ([]model.RefundableOrder, error) {
	where, args := buildRefundableWhere(filter)
	args = append(args, limit, offset)

	query := `SELECT ` + refundableColumns + ` FROM refundable_orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, order_id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list refundable orders: %w", err)
	}
	defer rows.Close()

	var orders []model.RefundableOrder
	for rows.Next() {
		order, err := scanRefundable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refundable order: %w", err)
		}
		orders = append(orders, *order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating refundable orders: %w", rows.Err())
	}

	return orders, nil
}

func (r *postgresOrderRepository) CountRefundableOrders(ctx context.Context, filter RefundableFilter) (int, error) {
	where, args := buildRefundableWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM refundable_orders`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count refundable orders: %w", err)
	}
	return total, nil
}

func (r *postgresOrderRepository) ListStaleInitiated(ctx context.Context, updatedBefore time.Time) ([]model.RefundableOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+refundableColumns+`
		FROM refundable_orders
		WHERE refund_status = $1 AND refund_updated_at < $2
		ORDER BY refund_updated_at ASC
		LIMIT 500
	`, model.RefundStatusInitiated, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale refunds: %w", err)
	}
	defer rows.Close()

	var orders []model.RefundableOrder
	for rows.Next() {
		order, err := scanRefundable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refundable order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func scanRefundable(row pgx.Row) (*model.RefundableOrder, error) {
	var (
		order model.RefundableOrder
		items []byte
	)
	err := row.Scan(
		&order.OrderID,
		&order.UserID,
		&items,
		&order.RefundStatus,
		&order.RefundReference,
		&order.RefundFailureReason,
		&order.CancelledAt,
		&order.RefundUpdatedAt,
		&order.RefundAttempts,
		&order.CreatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return &order, nil
}
