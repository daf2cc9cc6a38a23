package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"returns-backend/internal/domains/refund/gateway"
	"returns-backend/internal/domains/refund/model"
)

// =====================================================
// MOCK GATEWAY (development without provider keys, tests)
// =====================================================

type Response struct {
	Result *model.RefundResult
	Err    error
	Delay  time.Duration
}

// Gateway succeeds by default. Queued responses are consumed in order.
type Gateway struct {
	mu       sync.Mutex
	queue    []Response
	commands []model.RefundCommand
}

func NewGateway() *Gateway {
	return &Gateway{}
}

var _ gateway.PaymentGateway = (*Gateway)(nil)

// Enqueue scripts the next responses
func (g *Gateway) Enqueue(responses ...Response) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queue = append(g.queue, responses...)
}

func (g *Gateway) Decline(reason string) {
	g.Enqueue(Response{Result: &model.RefundResult{Success: false, Reason: reason}})
}

func (g *Gateway) Refund(ctx context.Context, cmd model.RefundCommand) (*model.RefundResult, error) {
	g.mu.Lock()
	g.commands = append(g.commands, cmd)
	var resp Response
	if len(g.queue) > 0 {
		resp = g.queue[0]
		g.queue = g.queue[1:]
	}
	g.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.Result != nil {
		return resp.Result, nil
	}
	return &model.RefundResult{Success: true, ProviderRefundID: "mock_re_" + uuid.NewString()}, nil
}

func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.commands)
}

func (g *Gateway) Commands() []model.RefundCommand {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.RefundCommand(nil), g.commands...)
}
