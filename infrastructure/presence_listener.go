package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"parlor/application"

	log "github.com/sirupsen/logrus"
)

// presenceMessage is the wire format gateways publish when a player's
// connection state changes
type presenceMessage struct {
	RoomCode string `json:"room_code"`
	UserID   int64  `json:"user_id"`
}

// PresenceListener consumes gateway presence messages from NATS and feeds
// them into the presence tracker
type PresenceListener struct {
	tracker *application.PresenceTracker
}

// NewPresenceListener creates a new presence listener
func NewPresenceListener(tracker *application.PresenceTracker) *PresenceListener {
	return &PresenceListener{
		tracker: tracker,
	}
}

// Start subscribes to the presence subjects on the given client.
// Gateways publish to these subjects, so the stream is ensured here
// rather than on the publishing side.
func (l *PresenceListener) Start(client *NATSClient) error {
	if err := client.ensureStream("presence_events", []string{"presence.>"}); err != nil {
		return err
	}
	if err := client.Subscribe("presence.connect", l.handleConnect); err != nil {
		return err
	}
	return client.Subscribe("presence.disconnect", l.handleDisconnect)
}

func (l *PresenceListener) handleConnect(data []byte) error {
	msg, err := decodePresence(data)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"roomCode": msg.RoomCode,
		"userId":   msg.UserID,
	}).Debug("Player connected")

	l.tracker.Connect(context.Background(), msg.RoomCode, msg.UserID)
	return nil
}

func (l *PresenceListener) handleDisconnect(data []byte) error {
	msg, err := decodePresence(data)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"roomCode": msg.RoomCode,
		"userId":   msg.UserID,
	}).Debug("Player disconnected")

	l.tracker.Disconnect(context.Background(), msg.RoomCode, msg.UserID)
	return nil
}

func decodePresence(data []byte) (*presenceMessage, error) {
	var msg presenceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence message: %w", err)
	}
	if msg.RoomCode == "" || msg.UserID == 0 {
		return nil, fmt.Errorf("presence message missing room code or user id")
	}
	return &msg, nil
}
