package entities

import "time"

// RoomStatus enumerates the room life cycle
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusReady     RoomStatus = "ready"
	RoomStatusPlaying   RoomStatus = "playing"
	RoomStatusFinished  RoomStatus = "finished"
	RoomStatusCancelled RoomStatus = "cancelled"
	RoomStatusArchived  RoomStatus = "archived"
)

// IsTerminal reports whether no further play transitions are possible.
// Rematch is the one exception: a finished room can re-enter playing.
func (s RoomStatus) IsTerminal() bool {
	return s == RoomStatusFinished || s == RoomStatusCancelled || s == RoomStatusArchived
}

// String returns the string representation of the status
func (s RoomStatus) String() string {
	return string(s)
}

// RoomVisibility controls whether a room appears in public listings
type RoomVisibility string

const (
	RoomVisibilityPublic  RoomVisibility = "public"
	RoomVisibilityPrivate RoomVisibility = "private"
)

// Seat identifies one of the two positions in a room
type Seat string

const (
	SeatHost  Seat = "host"
	SeatGuest Seat = "guest"
)

// MarkFor returns the board mark owned by a seat
func (s Seat) MarkFor() Mark {
	if s == SeatGuest {
		return MarkGuest
	}
	return MarkHost
}

// Room is one match/session between two players. All mutation goes
// through the room state machine under the registry's per-room lock.
type Room struct {
	ID             int64          `db:"id"`
	Code           string         `db:"code"`
	Status         RoomStatus     `db:"status"`
	Visibility     RoomVisibility `db:"visibility"`
	Currency       Currency       `db:"currency"`
	Stake          int64          `db:"stake"`
	Pot            int64          `db:"pot"`
	PotDistributed bool           `db:"pot_distributed"`
	HostID         int64          `db:"host_id"`
	GuestID        *int64         `db:"guest_id"`
	HostEscrow     int64          `db:"host_escrow"`
	GuestEscrow    int64          `db:"guest_escrow"`
	HostReady      bool           `db:"host_ready"`
	GuestReady     bool           `db:"guest_ready"`
	HostLeft       bool           `db:"host_left"`
	GuestLeft      bool           `db:"guest_left"`
	HostRematch    bool           `db:"host_rematch"`
	GuestRematch   bool           `db:"guest_rematch"`
	TurnUserID     *int64         `db:"turn_user_id"`
	WinnerID       *int64         `db:"winner_id"`
	Board          Board          `db:"board"`
	RematchCount   int            `db:"rematch_count"`
	MoveDeadline   *time.Time     `db:"move_deadline"`
	CreatedAt      time.Time      `db:"created_at"`
	StartedAt      *time.Time     `db:"started_at"`
	FinishedAt     *time.Time     `db:"finished_at"`
	LastActivityAt time.Time      `db:"last_activity_at"`
}

// IsParticipant reports whether the user occupies a seat
func (r *Room) IsParticipant(userID int64) bool {
	_, ok := r.SeatOf(userID)
	return ok
}

// SeatOf returns the seat held by the user, if any
func (r *Room) SeatOf(userID int64) (Seat, bool) {
	if r.HostID == userID {
		return SeatHost, true
	}
	if r.GuestID != nil && *r.GuestID == userID {
		return SeatGuest, true
	}
	return "", false
}

// UserAt returns the user seated at seat, if the seat is filled
func (r *Room) UserAt(seat Seat) (int64, bool) {
	if seat == SeatHost {
		return r.HostID, true
	}
	if r.GuestID != nil {
		return *r.GuestID, true
	}
	return 0, false
}

// Opponent returns the other participant's user id
func (r *Room) Opponent(userID int64) (int64, bool) {
	seat, ok := r.SeatOf(userID)
	if !ok {
		return 0, false
	}
	if seat == SeatHost {
		if r.GuestID == nil {
			return 0, false
		}
		return *r.GuestID, true
	}
	return r.HostID, true
}

// HasOpenSeat reports whether the guest seat is free
func (r *Room) HasOpenSeat() bool {
	return r.GuestID == nil
}

// BothReady reports whether both seats have flagged readiness
func (r *Room) BothReady() bool {
	return r.HostReady && r.GuestReady
}

// BothRequestedRematch reports whether both seats asked for a rematch
func (r *Room) BothRequestedRematch() bool {
	return r.HostRematch && r.GuestRematch
}

// BothLeft reports whether both seats have explicitly left
func (r *Room) BothLeft() bool {
	return r.HostLeft && (r.GuestID == nil || r.GuestLeft)
}

// EscrowOf returns the amount currently escrowed by a seat
func (r *Room) EscrowOf(seat Seat) int64 {
	if seat == SeatGuest {
		return r.GuestEscrow
	}
	return r.HostEscrow
}

// AddEscrow records a successful escrow for a seat and grows the pot
func (r *Room) AddEscrow(seat Seat, amount int64) {
	if seat == SeatGuest {
		r.GuestEscrow += amount
	} else {
		r.HostEscrow += amount
	}
	r.Pot += amount
}

// ClearPot zeroes the pot and per-seat escrow after distribution
func (r *Room) ClearPot() {
	r.Pot = 0
	r.HostEscrow = 0
	r.GuestEscrow = 0
}

// PromoteGuestToHost hands the room to the remaining connected player
// after host abandonment: the guest seat becomes the host seat, the
// old host is cleared and the room re-opens for a second player.
func (r *Room) PromoteGuestToHost() {
	if r.GuestID == nil {
		return
	}
	r.HostID = *r.GuestID
	r.GuestID = nil
	r.HostEscrow = r.GuestEscrow
	r.GuestEscrow = 0
	r.HostReady = false
	r.GuestReady = false
	r.HostRematch = false
	r.GuestRematch = false
	r.TurnUserID = nil
	r.MoveDeadline = nil
	r.Board = NewBoard()
	r.Status = RoomStatusWaiting
}

// StartingTurn returns who moves first for the current game. The host
// opens the first game; rematches alternate by parity of the counter.
func (r *Room) StartingTurn() int64 {
	if r.RematchCount%2 == 1 && r.GuestID != nil {
		return *r.GuestID
	}
	return r.HostID
}

// ResetForRematch clears the previous game from the room so the same
// code can host the next one
func (r *Room) ResetForRematch(now time.Time) {
	r.RematchCount++
	r.Board = NewBoard()
	r.WinnerID = nil
	r.PotDistributed = false
	r.HostRematch = false
	r.GuestRematch = false
	r.HostReady = true
	r.GuestReady = true
	r.Status = RoomStatusPlaying
	r.FinishedAt = nil
	r.StartedAt = &now
	r.LastActivityAt = now
	turn := r.StartingTurn()
	r.TurnUserID = &turn
}
