package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"returns-backend/internal/domains/notification/model"
)

const DefaultBuffer = 16

// Frame is the envelope written to websocket clients
type Frame struct {
	Type string              `json:"type"`
	Data *model.Notification `json:"data,omitempty"`
}

// Subscription is one live channel of a user. C is closed on Unsubscribe.
type Subscription struct {
	id     uint64
	UserID uuid.UUID
	C      <-chan []byte
	ch     chan []byte
}

// Hub fans frames out to every local subscription of a user. Sends never
// block: a subscriber whose buffer is full misses the frame.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[uint64]*Subscription
	nextID  atomic.Uint64
	buffer  int
	dropped atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[uint64]*Subscription),
		buffer: buffer,
	}
}

func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	ch := make(chan []byte, h.buffer)
	sub := &Subscription{
		id:     h.nextID.Add(1),
		UserID: userID,
		C:      ch,
		ch:     ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]*Subscription)
	}
	h.subs[userID][sub.id] = sub
	return sub
}

// Unsubscribe is idempotent
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := userSubs[sub.id]; !ok {
		return
	}

	delete(userSubs, sub.id)
	if len(userSubs) == 0 {
		delete(h.subs, sub.UserID)
	}
	close(sub.ch)
}

// Deliver sends frame to the user's subscriptions and returns how many
// accepted it.
func (h *Hub) Deliver(userID uuid.UUID, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs[userID] {
		select {
		case sub.ch <- frame:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Push implements the dispatcher's Pusher for single-instance deployments
func (h *Hub) Push(ctx context.Context, userID uuid.UUID, n *model.Notification) error {
	frame, err := EncodeNotification(n)
	if err != nil {
		return err
	}
	h.Deliver(userID, frame)
	return nil
}

func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Dropped counts frames lost to full buffers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func EncodeNotification(n *model.Notification) ([]byte, error) {
	frame, err := json.Marshal(Frame{Type: "notification", Data: n})
	if err != nil {
		return nil, fmt.Errorf("encode notification frame: %w", err)
	}
	return frame, nil
}
