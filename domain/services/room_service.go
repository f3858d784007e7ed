package services

import (
	"context"
	"time"

	"parlor/domain/entities"
	"parlor/domain/events"
	"parlor/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type roomService struct {
	roomRepo       interfaces.RoomRepository
	accountRepo    interfaces.AccountRepository
	ledger         interfaces.LedgerService
	escrow         interfaces.EscrowService
	eventPublisher interfaces.EventPublisher
	minStake       int64
	maxStake       int64
	moveTimeout    time.Duration
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo interfaces.RoomRepository,
	accountRepo interfaces.AccountRepository,
	ledger interfaces.LedgerService,
	escrow interfaces.EscrowService,
	eventPublisher interfaces.EventPublisher,
	minStake, maxStake int64,
	moveTimeout time.Duration,
) interfaces.RoomService {
	return &roomService{
		roomRepo:       roomRepo,
		accountRepo:    accountRepo,
		ledger:         ledger,
		escrow:         escrow,
		eventPublisher: eventPublisher,
		minStake:       minStake,
		maxStake:       maxStake,
		moveTimeout:    moveTimeout,
	}
}

func (s *roomService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish room event")
	}
}

func (s *roomService) transition(room *entities.Room, to entities.RoomStatus) {
	old := room.Status
	room.Status = to
	s.publish(events.RoomStateChangeEvent{
		Room:     room.Code,
		OldState: old,
		NewState: to,
	})
}

// mustGet fetches a room under an exclusive lock
func (s *roomService) mustGet(ctx context.Context, code string) (*entities.Room, error) {
	room, err := s.roomRepo.GetByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, entities.ErrRoomNotFound
	}
	return room, nil
}

// Create escrows the host's stake and inserts the room in waiting
func (s *roomService) Create(ctx context.Context, code string, hostID int64, currency entities.Currency, stake int64, visibility entities.RoomVisibility) (*entities.Room, error) {
	if !currency.Valid() {
		return nil, entities.ErrInvalidStake
	}
	if stake < s.minStake || stake > s.maxStake {
		return nil, entities.ErrInvalidStake
	}
	if visibility != entities.RoomVisibilityPublic && visibility != entities.RoomVisibilityPrivate {
		visibility = entities.RoomVisibilityPrivate
	}

	now := time.Now()
	room := &entities.Room{
		Code:           code,
		Status:         entities.RoomStatusWaiting,
		Visibility:     visibility,
		Currency:       currency,
		Stake:          stake,
		HostID:         hostID,
		Board:          entities.NewBoard(),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := s.escrow.Escrow(ctx, room, entities.SeatHost, hostID, stake); err != nil {
		return nil, err
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		// ErrDuplicateCode rolls the whole unit of work back, stake
		// debit included; the caller retries with a fresh code.
		return nil, err
	}

	s.publish(events.RoomStateChangeEvent{
		Room:     room.Code,
		NewState: entities.RoomStatusWaiting,
	})
	return room, nil
}

// Join escrows the guest's stake and fills the open seat
func (s *roomService) Join(ctx context.Context, code string, guestID int64) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != entities.RoomStatusWaiting {
		return nil, entities.ErrInvalidState
	}
	if room.HostID == guestID {
		return nil, entities.ErrInvalidState
	}
	if !room.HasOpenSeat() {
		return nil, entities.ErrRoomFull
	}

	// A player occupies at most one room at a time; joining cancels
	// anything else they were part of.
	others, err := s.roomRepo.GetActiveByUser(ctx, guestID)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if other.Code == code {
			continue
		}
		// The listing is a plain snapshot. Re-read under the row lock
		// before touching escrow: the room may have settled or been
		// cancelled between the snapshot and now.
		locked, err := s.roomRepo.GetByCodeForUpdate(ctx, other.Code)
		if err != nil {
			return nil, err
		}
		if locked == nil || locked.Status.IsTerminal() {
			continue
		}
		if err := s.cancelLocked(ctx, locked); err != nil {
			return nil, err
		}
	}

	room.GuestID = &guestID
	if err := s.escrow.Escrow(ctx, room, entities.SeatGuest, guestID, room.Stake); err != nil {
		return nil, err
	}
	room.LastActivityAt = time.Now()
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}

	s.publish(events.PlayerJoinedEvent{
		Room:   room.Code,
		UserID: guestID,
		Pot:    room.Pot,
	})
	return room, nil
}

// MarkReady sets the caller's readiness flag
func (s *roomService) MarkReady(ctx context.Context, code string, userID int64) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, ok := room.SeatOf(userID)
	if !ok {
		return nil, entities.ErrNotParticipant
	}
	if room.Status != entities.RoomStatusWaiting {
		return nil, entities.ErrInvalidState
	}

	if seat == entities.SeatHost {
		room.HostReady = true
	} else {
		room.GuestReady = true
	}
	if room.GuestID != nil && room.BothReady() {
		s.transition(room, entities.RoomStatusReady)
	}
	room.LastActivityAt = time.Now()
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Start begins play; host only, both seats must be ready
func (s *roomService) Start(ctx context.Context, code string, userID int64, now time.Time) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(userID) {
		return nil, entities.ErrNotParticipant
	}
	if userID != room.HostID {
		return nil, entities.ErrInvalidState
	}
	if room.Status != entities.RoomStatusReady {
		return nil, entities.ErrInvalidState
	}

	turn := room.StartingTurn()
	deadline := now.Add(s.moveTimeout)
	room.TurnUserID = &turn
	room.MoveDeadline = &deadline
	room.StartedAt = &now
	room.LastActivityAt = now
	s.transition(room, entities.RoomStatusPlaying)
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// SubmitMove applies a move, or forfeits the game when the mover's
// deadline already elapsed
func (s *roomService) SubmitMove(ctx context.Context, code string, userID int64, cell int, now time.Time) (*entities.MoveResult, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, ok := room.SeatOf(userID)
	if !ok {
		return nil, entities.ErrNotParticipant
	}
	if room.Status != entities.RoomStatusPlaying {
		return nil, entities.ErrInvalidState
	}
	if room.TurnUserID == nil || *room.TurnUserID != userID {
		return nil, entities.ErrNotYourTurn
	}

	// The deadline is enforced lazily here as well as by the timer, so
	// a late move loses even if the timer has not fired yet.
	if room.MoveDeadline != nil && now.After(*room.MoveDeadline) {
		winner, _ := room.Opponent(userID)
		if err := s.finish(ctx, room, &winner, true, now); err != nil {
			return nil, err
		}
		if err := s.roomRepo.Update(ctx, room); err != nil {
			return nil, err
		}
		return &entities.MoveResult{Room: room, Forfeited: true, Finished: true, WinnerID: &winner}, nil
	}

	if err := room.Board.Apply(cell, seat.MarkFor()); err != nil {
		return nil, err
	}

	moveNo := 0
	for _, c := range room.Board.Cells {
		if c != entities.MarkNone {
			moveNo++
		}
	}
	if err := s.roomRepo.RecordMove(ctx, room.ID, moveNo, userID, cell); err != nil {
		return nil, err
	}

	result := &entities.MoveResult{Room: room, Applied: true}
	if room.Board.IsTerminal() {
		var winnerID *int64
		if mark := room.Board.Winner(); mark != entities.MarkNone {
			winSeat := entities.SeatHost
			if mark == entities.MarkGuest {
				winSeat = entities.SeatGuest
			}
			if id, ok := room.UserAt(winSeat); ok {
				winnerID = &id
			}
		}
		if err := s.finish(ctx, room, winnerID, false, now); err != nil {
			return nil, err
		}
		result.Finished = true
		result.WinnerID = winnerID
	} else {
		next, _ := room.Opponent(userID)
		deadline := now.Add(s.moveTimeout)
		room.TurnUserID = &next
		room.MoveDeadline = &deadline
		room.LastActivityAt = now
		s.publish(events.MoveAppliedEvent{
			Room:       room.Code,
			UserID:     userID,
			Cell:       cell,
			MoveNo:     moveNo,
			NextTurnID: next,
		})
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	return result, nil
}

// RequestRematch records a rematch request; when both seats have
// requested, both stakes are re-escrowed and the same room restarts.
// Re-escrow is all or nothing: if either player cannot cover the
// stake, nothing commits, not even the request flag.
func (s *roomService) RequestRematch(ctx context.Context, code string, userID int64, now time.Time) (*entities.RematchResult, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, ok := room.SeatOf(userID)
	if !ok {
		return nil, entities.ErrNotParticipant
	}
	if room.Status != entities.RoomStatusFinished || room.GuestID == nil {
		return nil, entities.ErrInvalidState
	}

	if seat == entities.SeatHost {
		room.HostRematch = true
	} else {
		room.GuestRematch = true
	}

	if !room.BothRequestedRematch() {
		room.LastActivityAt = now
		if err := s.roomRepo.Update(ctx, room); err != nil {
			return nil, err
		}
		return &entities.RematchResult{Room: room, Accepted: false}, nil
	}

	if err := s.escrow.Escrow(ctx, room, entities.SeatHost, room.HostID, room.Stake); err != nil {
		return nil, err
	}
	if err := s.escrow.Escrow(ctx, room, entities.SeatGuest, *room.GuestID, room.Stake); err != nil {
		return nil, err
	}
	if err := s.roomRepo.ClearMoves(ctx, room.ID); err != nil {
		return nil, err
	}

	room.ResetForRematch(now)
	deadline := now.Add(s.moveTimeout)
	room.MoveDeadline = &deadline
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}

	s.publish(events.RematchStartedEvent{
		Room:         room.Code,
		RematchCount: room.RematchCount,
		FirstTurnID:  *room.TurnUserID,
	})
	s.publish(events.RoomStateChangeEvent{
		Room:     room.Code,
		OldState: entities.RoomStatusFinished,
		NewState: entities.RoomStatusPlaying,
	})
	return &entities.RematchResult{Room: room, Accepted: true}, nil
}

// Leave marks a seat as gone after the game finished
func (s *roomService) Leave(ctx context.Context, code string, userID int64) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, ok := room.SeatOf(userID)
	if !ok {
		return nil, entities.ErrNotParticipant
	}
	if room.Status != entities.RoomStatusFinished {
		return nil, entities.ErrInvalidState
	}

	if seat == entities.SeatHost {
		room.HostLeft = true
	} else {
		room.GuestLeft = true
	}
	if room.BothLeft() {
		s.transition(room, entities.RoomStatusArchived)
	}
	room.LastActivityAt = time.Now()
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Cancel refunds all escrows and moves the room to cancelled. A room
// already in a terminal state is left untouched.
func (s *roomService) Cancel(ctx context.Context, code string) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status.IsTerminal() {
		return room, nil
	}
	if err := s.cancelLocked(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// cancelLocked refunds and cancels a room the caller already holds
func (s *roomService) cancelLocked(ctx context.Context, room *entities.Room) error {
	refunds := make(map[int64]int64)
	if room.HostEscrow > 0 {
		refunds[room.HostID] = room.HostEscrow
	}
	if room.GuestEscrow > 0 && room.GuestID != nil {
		refunds[*room.GuestID] = room.GuestEscrow
	}
	if err := s.escrow.Refund(ctx, room); err != nil {
		return err
	}

	now := time.Now()
	room.TurnUserID = nil
	room.MoveDeadline = nil
	room.FinishedAt = &now
	room.LastActivityAt = now
	s.transition(room, entities.RoomStatusCancelled)
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return err
	}

	s.publish(events.RoomRefundedEvent{Room: room.Code, Refunds: refunds})
	return nil
}

// HandleAbandonment resolves an expired disconnect grace period for
// one seat. Stale invocations on a terminal room are no-ops.
func (s *roomService) HandleAbandonment(ctx context.Context, code string, userID int64, peerConnected bool) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status.IsTerminal() {
		return room, nil
	}
	seat, ok := room.SeatOf(userID)
	if !ok {
		return room, nil
	}

	// Nobody left to hand the room to: cancel and refund, whatever
	// phase the room was in.
	if room.GuestID == nil || !peerConnected {
		if err := s.cancelLocked(ctx, room); err != nil {
			return nil, err
		}
		return room, nil
	}

	// A lapsed guest with the host still connected has no timeout
	// path: the room holds its state until the host acts or their own
	// grace expires.
	if seat == entities.SeatGuest {
		log.WithFields(log.Fields{
			"room":   room.Code,
			"userId": userID,
			"status": room.Status,
		}).Info("Guest grace expired with host connected, room unchanged")
		return room, nil
	}

	// Host abandoned a seated guest: the guest inherits the room, the
	// old host gets their stake back, and the seat re-opens for a new
	// second player.
	now := time.Now()
	oldHostID := room.HostID
	wasPlaying := room.Status == entities.RoomStatusPlaying
	from := room.Status
	if room.HostEscrow > 0 {
		if _, err := s.ledger.Credit(ctx, oldHostID, room.Currency, room.HostEscrow, entities.ReasonRefund, room.Code); err != nil {
			return nil, err
		}
		room.Pot -= room.HostEscrow
		room.HostEscrow = 0
	}
	room.PromoteGuestToHost()
	if wasPlaying {
		// The abandoned game is void; its moves go with it.
		if err := s.roomRepo.ClearMoves(ctx, room.ID); err != nil {
			return nil, err
		}
	}
	room.LastActivityAt = now
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	if from != room.Status {
		s.publish(events.RoomStateChangeEvent{
			Room:     room.Code,
			OldState: from,
			NewState: room.Status,
		})
	}
	s.publish(events.HostTransferredEvent{
		Room:      room.Code,
		NewHostID: room.HostID,
		OldHostID: oldHostID,
	})
	return room, nil
}

// HandleMoveDeadline forfeits the game against the seat on turn when
// its deadline has passed
func (s *roomService) HandleMoveDeadline(ctx context.Context, code string, now time.Time) (*entities.Room, error) {
	room, err := s.mustGet(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != entities.RoomStatusPlaying || room.TurnUserID == nil {
		return room, nil
	}
	// The deadline may have been pushed forward by a move that landed
	// after the timer was armed.
	if room.MoveDeadline == nil || now.Before(*room.MoveDeadline) {
		return room, nil
	}

	winner, ok := room.Opponent(*room.TurnUserID)
	if !ok {
		return room, nil
	}
	if err := s.finish(ctx, room, &winner, true, now); err != nil {
		return nil, err
	}
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// finish settles the pot and closes the game. A nil winner is a draw:
// each seat gets back exactly what it put in.
func (s *roomService) finish(ctx context.Context, room *entities.Room, winnerID *int64, forfeit bool, now time.Time) error {
	pot := room.Pot
	payouts := make(map[int64]int64)

	if winnerID != nil {
		// With a single ranked recipient the configured split
		// collapses to winner-take-all.
		shares := s.escrow.RankedDistribution(pot, []int64{*winnerID})
		if err := s.escrow.Settle(ctx, room, shares); err != nil {
			return err
		}
		for _, share := range shares {
			payouts[share.UserID] = share.Amount
		}
		if loser, ok := room.Opponent(*winnerID); ok {
			if err := s.accountRepo.RecordMatchResult(ctx, *winnerID, entities.OutcomeWin); err != nil {
				return err
			}
			if err := s.accountRepo.RecordMatchResult(ctx, loser, entities.OutcomeLoss); err != nil {
				return err
			}
		}
	} else {
		payouts[room.HostID] = room.HostEscrow
		if room.GuestID != nil {
			payouts[*room.GuestID] = room.GuestEscrow
		}
		if err := s.escrow.Refund(ctx, room); err != nil {
			return err
		}
		if err := s.accountRepo.RecordMatchResult(ctx, room.HostID, entities.OutcomeDraw); err != nil {
			return err
		}
		if room.GuestID != nil {
			if err := s.accountRepo.RecordMatchResult(ctx, *room.GuestID, entities.OutcomeDraw); err != nil {
				return err
			}
		}
	}

	room.WinnerID = winnerID
	room.TurnUserID = nil
	room.MoveDeadline = nil
	room.FinishedAt = &now
	room.LastActivityAt = now
	s.transition(room, entities.RoomStatusFinished)

	s.publish(events.RoomSettledEvent{
		Room:     room.Code,
		WinnerID: winnerID,
		Pot:      pot,
		Payouts:  payouts,
		Forfeit:  forfeit,
	})
	return nil
}
