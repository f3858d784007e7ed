package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parlor/database"
	"parlor/domain/entities"
	"parlor/domain/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RoomRepository implements the RoomRepository interface
type RoomRepository struct {
	q Queryable
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *database.DB) *RoomRepository {
	return &RoomRepository{q: db.Pool}
}

// NewRoomRepositoryScoped creates a room repository bound to a transaction
func NewRoomRepositoryScoped(tx Queryable) *RoomRepository {
	return &RoomRepository{q: tx}
}

const roomColumns = `
	id, code, status, visibility, currency, stake, pot, pot_distributed,
	host_id, guest_id, host_escrow, guest_escrow,
	host_ready, guest_ready, host_left, guest_left, host_rematch, guest_rematch,
	turn_user_id, winner_id, board, rematch_count, move_deadline,
	created_at, started_at, finished_at, last_activity_at`

func scanRoom(row pgx.Row) (*entities.Room, error) {
	var r entities.Room
	err := row.Scan(
		&r.ID, &r.Code, &r.Status, &r.Visibility, &r.Currency, &r.Stake, &r.Pot, &r.PotDistributed,
		&r.HostID, &r.GuestID, &r.HostEscrow, &r.GuestEscrow,
		&r.HostReady, &r.GuestReady, &r.HostLeft, &r.GuestLeft, &r.HostRematch, &r.GuestRematch,
		&r.TurnUserID, &r.WinnerID, &r.Board, &r.RematchCount, &r.MoveDeadline,
		&r.CreatedAt, &r.StartedAt, &r.FinishedAt, &r.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new room; returns ErrDuplicateCode on collision
func (r *RoomRepository) Create(ctx context.Context, room *entities.Room) error {
	query := `
		INSERT INTO rooms (
			code, status, visibility, currency, stake, pot, pot_distributed,
			host_id, guest_id, host_escrow, guest_escrow, board, last_activity_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		room.Code, room.Status, room.Visibility, room.Currency,
		room.Stake, room.Pot, room.PotDistributed,
		room.HostID, room.GuestID, room.HostEscrow, room.GuestEscrow,
		room.Board, room.LastActivityAt,
	).Scan(&room.ID, &room.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return interfaces.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", room.Code, err)
	}
	return nil
}

// GetByCode retrieves a room, nil when it does not exist
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*entities.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE code = $1`

	room, err := scanRoom(r.q.QueryRow(ctx, query, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", code, err)
	}
	return room, nil
}

// GetByCodeForUpdate retrieves a room holding an exclusive row lock
func (r *RoomRepository) GetByCodeForUpdate(ctx context.Context, code string) (*entities.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE code = $1 FOR UPDATE`

	room, err := scanRoom(r.q.QueryRow(ctx, query, code))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock room %s: %w", code, err)
	}
	return room, nil
}

// Update persists the room's current state
func (r *RoomRepository) Update(ctx context.Context, room *entities.Room) error {
	query := `
		UPDATE rooms
		SET status = $2, visibility = $3, pot = $4, pot_distributed = $5,
		    host_id = $6, guest_id = $7, host_escrow = $8, guest_escrow = $9,
		    host_ready = $10, guest_ready = $11, host_left = $12, guest_left = $13,
		    host_rematch = $14, guest_rematch = $15,
		    turn_user_id = $16, winner_id = $17, board = $18, rematch_count = $19,
		    move_deadline = $20, started_at = $21, finished_at = $22, last_activity_at = $23
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		room.ID, room.Status, room.Visibility, room.Pot, room.PotDistributed,
		room.HostID, room.GuestID, room.HostEscrow, room.GuestEscrow,
		room.HostReady, room.GuestReady, room.HostLeft, room.GuestLeft,
		room.HostRematch, room.GuestRematch,
		room.TurnUserID, room.WinnerID, room.Board, room.RematchCount,
		room.MoveDeadline, room.StartedAt, room.FinishedAt, room.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", room.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s not found", room.Code)
	}
	return nil
}

// GetActiveByUser returns non-terminal rooms the user occupies
func (r *RoomRepository) GetActiveByUser(ctx context.Context, userID int64) ([]*entities.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE (host_id = $1 OR guest_id = $1)
		  AND status IN ('waiting', 'ready', 'playing')
		ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active rooms for %d: %w", userID, err)
	}
	return collectRooms(rows)
}

// ListOpenPublic returns public rooms with an open guest seat
func (r *RoomRepository) ListOpenPublic(ctx context.Context, limit int) ([]*entities.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE status = 'waiting' AND visibility = 'public' AND guest_id IS NULL
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open rooms: %w", err)
	}
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]*entities.Room, error) {
	defer rows.Close()

	var rooms []*entities.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// RecordMove appends one move to the room's move log
func (r *RoomRepository) RecordMove(ctx context.Context, roomID int64, moveNo int, userID int64, cell int) error {
	query := `
		INSERT INTO room_moves (room_id, move_no, user_id, cell)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.q.Exec(ctx, query, roomID, moveNo, userID, cell); err != nil {
		return fmt.Errorf("failed to record move %d for room %d: %w", moveNo, roomID, err)
	}
	return nil
}

// ClearMoves deletes the room's move log
func (r *RoomRepository) ClearMoves(ctx context.Context, roomID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM room_moves WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("failed to clear moves for room %d: %w", roomID, err)
	}
	return nil
}

// ArchiveFinishedOlderThan moves settled terminal rooms past the
// cutoff into archived. Rooms still holding a pot are skipped.
func (r *RoomRepository) ArchiveFinishedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE rooms
		SET status = 'archived', last_activity_at = NOW()
		WHERE status IN ('finished', 'cancelled')
		  AND pot_distributed
		  AND finished_at < $1`

	tag, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to archive rooms: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeArchivedOlderThan deletes archived rooms older than cutoff
func (r *RoomRepository) PurgeArchivedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM rooms
		WHERE status = 'archived' AND last_activity_at < $1`

	tag, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge archived rooms: %w", err)
	}
	return tag.RowsAffected(), nil
}
