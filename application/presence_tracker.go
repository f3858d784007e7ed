package application

import (
	"context"
	"sync"
	"time"

	"parlor/domain/entities"
	"parlor/domain/events"
	"parlor/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// AbandonmentHandler resolves a seat that stayed disconnected past the
// grace window
type AbandonmentHandler interface {
	HandleAbandonment(ctx context.Context, code string, userID int64, peerConnected bool) (*entities.Room, error)
}

// PresenceStore mirrors the in-memory presence state into an external
// snapshot so operators can inspect who is connected where. Best
// effort; the tracker never fails an update over a store error.
type PresenceStore interface {
	SetPresence(ctx context.Context, code string, userID int64, connected bool) error
	ClearRoom(ctx context.Context, code string) error
}

// PresenceTracker follows which participants are connected to which
// rooms. A disconnect arms a grace timer; reconnecting within the
// window disarms it, and an expired timer hands the seat to the
// abandonment handler.
type PresenceTracker struct {
	handler   AbandonmentHandler
	store     PresenceStore
	publisher interfaces.EventPublisher
	grace     time.Duration

	mu        sync.Mutex
	connected map[string]map[int64]bool
	timers    map[string]map[int64]*time.Timer
}

// NewPresenceTracker creates a presence tracker. store may be nil.
func NewPresenceTracker(handler AbandonmentHandler, store PresenceStore, publisher interfaces.EventPublisher, grace time.Duration) *PresenceTracker {
	return &PresenceTracker{
		handler:   handler,
		store:     store,
		publisher: publisher,
		grace:     grace,
		connected: make(map[string]map[int64]bool),
		timers:    make(map[string]map[int64]*time.Timer),
	}
}

// Connect records a participant as present and disarms any pending
// grace timer for their seat
func (t *PresenceTracker) Connect(ctx context.Context, code string, userID int64) {
	t.mu.Lock()
	if t.connected[code] == nil {
		t.connected[code] = make(map[int64]bool)
	}
	t.connected[code][userID] = true
	if timer, ok := t.timers[code][userID]; ok {
		timer.Stop()
		delete(t.timers[code], userID)
	}
	t.mu.Unlock()

	t.snapshot(ctx, code, userID, true)
	t.announce(code, userID, true)
}

// Disconnect records a participant as absent and arms their grace
// timer
func (t *PresenceTracker) Disconnect(ctx context.Context, code string, userID int64) {
	t.mu.Lock()
	if t.connected[code] == nil {
		t.connected[code] = make(map[int64]bool)
	}
	t.connected[code][userID] = false
	if t.timers[code] == nil {
		t.timers[code] = make(map[int64]*time.Timer)
	}
	if timer, ok := t.timers[code][userID]; ok {
		timer.Stop()
	}
	t.timers[code][userID] = time.AfterFunc(t.grace, func() {
		t.graceExpired(code, userID)
	})
	t.mu.Unlock()

	t.snapshot(ctx, code, userID, false)
	t.announce(code, userID, false)
}

// PeerConnected reports whether anyone other than userID is connected
func (t *PresenceTracker) PeerConnected(code string, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, up := range t.connected[code] {
		if id != userID && up {
			return true
		}
	}
	return false
}

// Forget drops all presence state for a room once it reaches a
// terminal status
func (t *PresenceTracker) Forget(ctx context.Context, code string) {
	t.mu.Lock()
	for _, timer := range t.timers[code] {
		timer.Stop()
	}
	delete(t.timers, code)
	delete(t.connected, code)
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.ClearRoom(ctx, code); err != nil {
			log.WithError(err).WithField("room", code).Warn("Failed to clear presence snapshot")
		}
	}
}

// Stop disarms every pending grace timer
func (t *PresenceTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for code, byUser := range t.timers {
		for _, timer := range byUser {
			timer.Stop()
		}
		delete(t.timers, code)
	}
}

// graceExpired fires when a disconnect outlived the grace window. A
// reconnect that raced the timer wins: if the seat is marked connected
// again, nothing happens.
func (t *PresenceTracker) graceExpired(code string, userID int64) {
	t.mu.Lock()
	if t.connected[code][userID] {
		t.mu.Unlock()
		return
	}
	delete(t.timers[code], userID)
	t.mu.Unlock()

	ctx := context.Background()
	peer := t.PeerConnected(code, userID)
	room, err := t.handler.HandleAbandonment(ctx, code, userID, peer)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"room":    code,
			"user_id": userID,
		}).Error("Failed to resolve abandonment")
		return
	}
	if room != nil && room.Status.IsTerminal() {
		t.Forget(ctx, code)
	}
}

func (t *PresenceTracker) snapshot(ctx context.Context, code string, userID int64, connected bool) {
	if t.store == nil {
		return
	}
	if err := t.store.SetPresence(ctx, code, userID, connected); err != nil {
		log.WithError(err).WithField("room", code).Warn("Failed to write presence snapshot")
	}
}

func (t *PresenceTracker) announce(code string, userID int64, connected bool) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(events.PresenceChangeEvent{
		Room:      code,
		UserID:    userID,
		Connected: connected,
	}); err != nil {
		log.WithError(err).WithField("room", code).Warn("Failed to publish presence change")
	}
}
