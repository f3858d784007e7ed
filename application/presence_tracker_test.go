package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"parlor/domain/entities"

	"github.com/stretchr/testify/assert"
)

type abandonmentCall struct {
	code          string
	userID        int64
	peerConnected bool
}

type fakeAbandonmentHandler struct {
	mu    sync.Mutex
	calls []abandonmentCall
	room  *entities.Room
}

func (h *fakeAbandonmentHandler) HandleAbandonment(ctx context.Context, code string, userID int64, peerConnected bool) (*entities.Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, abandonmentCall{code, userID, peerConnected})
	return h.room, nil
}

func (h *fakeAbandonmentHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func TestPresenceTracker_GraceExpiryTriggersAbandonment(t *testing.T) {
	ctx := context.Background()
	handler := &fakeAbandonmentHandler{room: &entities.Room{Code: "ROOM01", Status: entities.RoomStatusCancelled}}
	tracker := NewPresenceTracker(handler, nil, nil, 20*time.Millisecond)
	defer tracker.Stop()

	tracker.Connect(ctx, "ROOM01", 100)
	tracker.Connect(ctx, "ROOM01", 200)
	tracker.Disconnect(ctx, "ROOM01", 100)

	assert.Eventually(t, func() bool {
		return handler.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	handler.mu.Lock()
	call := handler.calls[0]
	handler.mu.Unlock()
	assert.Equal(t, "ROOM01", call.code)
	assert.Equal(t, int64(100), call.userID)
	assert.True(t, call.peerConnected, "the other seat was still connected")
}

func TestPresenceTracker_ReconnectWithinGraceDisarms(t *testing.T) {
	ctx := context.Background()
	handler := &fakeAbandonmentHandler{}
	tracker := NewPresenceTracker(handler, nil, nil, 30*time.Millisecond)
	defer tracker.Stop()

	tracker.Connect(ctx, "ROOM01", 100)
	tracker.Disconnect(ctx, "ROOM01", 100)
	tracker.Connect(ctx, "ROOM01", 100)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, handler.callCount(), "reconnect should cancel the grace timer")
}

func TestPresenceTracker_LoneDisconnectReportsNoPeer(t *testing.T) {
	ctx := context.Background()
	handler := &fakeAbandonmentHandler{room: &entities.Room{Code: "ROOM01", Status: entities.RoomStatusCancelled}}
	tracker := NewPresenceTracker(handler, nil, nil, 10*time.Millisecond)
	defer tracker.Stop()

	tracker.Connect(ctx, "ROOM01", 100)
	tracker.Disconnect(ctx, "ROOM01", 100)

	assert.Eventually(t, func() bool {
		return handler.callCount() == 1
	}, time.Second, 5*time.Millisecond)

	handler.mu.Lock()
	call := handler.calls[0]
	handler.mu.Unlock()
	assert.False(t, call.peerConnected)
}

func TestPresenceTracker_PeerConnected(t *testing.T) {
	ctx := context.Background()
	tracker := NewPresenceTracker(&fakeAbandonmentHandler{}, nil, nil, time.Minute)
	defer tracker.Stop()

	tracker.Connect(ctx, "ROOM01", 100)
	assert.False(t, tracker.PeerConnected("ROOM01", 100), "alone in the room")

	tracker.Connect(ctx, "ROOM01", 200)
	assert.True(t, tracker.PeerConnected("ROOM01", 100))

	tracker.Disconnect(ctx, "ROOM01", 200)
	assert.False(t, tracker.PeerConnected("ROOM01", 100))
}

func TestPresenceTracker_ForgetDropsState(t *testing.T) {
	ctx := context.Background()
	handler := &fakeAbandonmentHandler{}
	tracker := NewPresenceTracker(handler, nil, nil, 20*time.Millisecond)
	defer tracker.Stop()

	tracker.Connect(ctx, "ROOM01", 100)
	tracker.Disconnect(ctx, "ROOM01", 100)
	tracker.Forget(ctx, "ROOM01")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, handler.callCount(), "forgotten rooms fire no timers")
	assert.False(t, tracker.PeerConnected("ROOM01", 200))
}
