package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"returns-backend/internal/domains/notification/model"
)

func TestHub_FanOutToEveryHandle(t *testing.T) {
	hub := NewHub(4)
	userID := uuid.New()
	other := hub.Subscribe(uuid.New())

	first := hub.Subscribe(userID)
	second := hub.Subscribe(userID)
	assert.Equal(t, 2, hub.SubscriberCount(userID))

	n := &model.Notification{ID: uuid.New(), UserID: userID, Title: "Refund completed"}
	require.NoError(t, hub.Push(context.Background(), userID, n))

	for _, sub := range []*Subscription{first, second} {
		select {
		case frame := <-sub.C:
			var decoded Frame
			require.NoError(t, json.Unmarshal(frame, &decoded))
			assert.Equal(t, "notification", decoded.Type)
			assert.Equal(t, n.ID, decoded.Data.ID)
		default:
			t.Fatal("expected a frame")
		}
	}

	select {
	case <-other.C:
		t.Fatal("another user's handle must not receive the frame")
	default:
	}
}

func TestHub_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	userID := uuid.New()
	sub := hub.Subscribe(userID)

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount(userID))
	assert.Equal(t, 0, hub.Deliver(userID, []byte("{}")))
}

func TestHub_SlowConsumerDrops(t *testing.T) {
	hub := NewHub(1)
	userID := uuid.New()
	sub := hub.Subscribe(userID)

	assert.Equal(t, 1, hub.Deliver(userID, []byte("1")))
	assert.Equal(t, 0, hub.Deliver(userID, []byte("2")))
	assert.EqualValues(t, 1, hub.Dropped())

	assert.Equal(t, []byte("1"), <-sub.C)
}

func TestHub_ConcurrentSubscribeDeliver(t *testing.T) {
	hub := NewHub(8)
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(userID)
			hub.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			hub.Deliver(userID, []byte("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount(userID))
}
