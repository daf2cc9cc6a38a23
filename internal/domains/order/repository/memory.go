package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/order/model"
)

// memoryOrderRepository backs STORAGE_DRIVER=memory and the service tests
type memoryOrderRepository struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*model.Order
	items      map[uuid.UUID][]model.OrderItem
	refundable map[uuid.UUID]*model.RefundableOrder
}

// MemoryOrderRepository exposes seeding on top of OrderRepository
type MemoryOrderRepository interface {
	OrderRepository
	SeedOrder(order *model.Order, items []model.OrderItem)
}

func NewMemoryOrderRepository() MemoryOrderRepository {
	return &memoryOrderRepository{
		orders:     make(map[uuid.UUID]*model.Order),
		items:      make(map[uuid.UUID][]model.OrderItem),
		refundable: make(map[uuid.UUID]*model.RefundableOrder),
	}
}

func (r *memoryOrderRepository) SeedOrder(order *model.Order, items []model.OrderItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := *order
	r.orders[order.ID] = &o
	r.items[order.ID] = append([]model.OrderItem(nil), items...)
}

func (r *memoryOrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (r *memoryOrderRepository) GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.OrderItem(nil), r.items[orderID]...), nil
}

func (r *memoryOrderRepository) GetPaymentIntentID(ctx context.Context, orderID uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return "", model.ErrOrderNotFound
	}
	if o.PaymentIntentID == nil {
		return "", nil
	}
	return *o.PaymentIntentID, nil
}

func (r *memoryOrderRepository) CreateRefundableOrder(ctx context.Context, order *model.RefundableOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.refundable[order.OrderID]; exists {
		return nil
	}
	r.refundable[order.OrderID] = order.Clone()
	return nil
}

func (r *memoryOrderRepository) GetRefundableOrder(ctx context.Context, orderID uuid.UUID) (*model.RefundableOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.refundable[orderID]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *memoryOrderRepository) UpdateRefundState(ctx context.Context, order *model.RefundableOrder, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.refundable[order.OrderID]
	if !ok {
		return model.ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return model.ErrVersionMismatch
	}

	order.Version = expectedVersion + 1
	r.refundable[order.OrderID] = order.Clone()
	return nil
}

func (r *memoryOrderRepository) filtered(filter RefundableFilter) []*model.RefundableOrder {
	var out []*model.RefundableOrder
	for _, o := range r.refundable {
		if filter.UserID != nil && (o.UserID == nil || *o.UserID != *filter.UserID) {
			continue
		}
		if filter.RefundStatus != nil && o.RefundStatus != *filter.RefundStatus {
			continue
		}
		if filter.AsOf != nil && o.CreatedAt.After(*filter.AsOf) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderID.String() > out[j].OrderID.String()
	})
	return out
}

func (r *memoryOrderRepository) ListRefundableOrders(ctx context.Context, filter RefundableFilter, offset, limit int) ([]model.RefundableOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.filtered(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	orders := make([]model.RefundableOrder, 0, end-offset)
	for _, o := range all[offset:end] {
		orders = append(orders, *o.Clone())
	}
	return orders, nil
}

func (r *memoryOrderRepository) CountRefundableOrders(ctx context.Context, filter RefundableFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filtered(filter)), nil
}

func (r *memoryOrderRepository) ListStaleInitiated(ctx context.Context, updatedBefore time.Time) ([]model.RefundableOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []model.RefundableOrder
	for _, o := range r.refundable {
		if o.RefundStatus != model.RefundStatusInitiated || o.RefundUpdatedAt == nil {
			continue
		}
		if o.RefundUpdatedAt.Before(updatedBefore) {
			orders = append(orders, *o.Clone())
		}
	}
	return orders, nil
}
