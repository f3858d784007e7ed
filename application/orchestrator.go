package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"parlor/config"
	"parlor/domain/entities"
	"parlor/domain/interfaces"
	"parlor/domain/services"

	log "github.com/sirupsen/logrus"
)

// Orchestrator is the boundary of the engine. It owns the per-room
// locking discipline, runs every operation in its own unit of work and
// keeps the move-deadline timers. All methods are safe for concurrent
// use.
type Orchestrator struct {
	uowFactory UnitOfWorkFactory
	registry   *Registry
	cfg        *config.Config

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(uowFactory UnitOfWorkFactory, registry *Registry, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		uowFactory: uowFactory,
		registry:   registry,
		cfg:        cfg,
		timers:     make(map[string]*time.Timer),
	}
}

// roomService builds the service stack over one unit of work. Services
// are cheap per-transaction objects; the repositories they close over
// are scoped to the transaction.
func (o *Orchestrator) roomService(uow UnitOfWork) interfaces.RoomService {
	ledger := o.ledgerService(uow)
	escrow := services.NewEscrowService(ledger, o.cfg.PrizeSplit)
	return services.NewRoomService(
		uow.RoomRepository(),
		uow.AccountRepository(),
		ledger,
		escrow,
		uow.EventBus(),
		o.cfg.MinStake,
		o.cfg.MaxStake,
		o.cfg.MoveTimeout,
	)
}

func (o *Orchestrator) ledgerService(uow UnitOfWork) interfaces.LedgerService {
	return services.NewLedgerService(
		uow.AccountRepository(),
		uow.LedgerRepository(),
		uow.SupplyRepository(),
		uow.EventBus(),
		o.cfg.CommissionRate,
	)
}

// withTx runs fn inside a unit of work, committing on success
func (o *Orchestrator) withTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

// withRoom runs fn under the room's lock inside a unit of work
func (o *Orchestrator) withRoom(ctx context.Context, code string, fn func(svc interfaces.RoomService) error) error {
	return o.registry.WithRoomLock(code, func() error {
		return o.withTx(ctx, func(uow UnitOfWork) error {
			return fn(o.roomService(uow))
		})
	})
}

// CreateRoom generates a unique code and opens a room with the host's
// stake escrowed. Code collisions retry with a fresh code a bounded
// number of times.
func (o *Orchestrator) CreateRoom(ctx context.Context, hostID int64, currency entities.Currency, stake int64, visibility entities.RoomVisibility) (*entities.Room, error) {
	var room *entities.Room
	for attempt := 0; attempt < o.cfg.RoomCodeAttempts; attempt++ {
		code, err := o.registry.GenerateCode()
		if err != nil {
			return nil, err
		}

		err = o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
			room, err = svc.Create(ctx, code, hostID, currency, stake, visibility)
			return err
		})
		if errors.Is(err, interfaces.ErrDuplicateCode) {
			log.WithField("code", code).Debug("Room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
	return nil, entities.ErrCodeGenerationExhausted
}

// JoinRoom seats the guest and escrows their stake
func (o *Orchestrator) JoinRoom(ctx context.Context, code string, guestID int64) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.Join(ctx, code, guestID)
		return err
	})
	return room, err
}

// MarkReady flags the caller's seat as ready
func (o *Orchestrator) MarkReady(ctx context.Context, code string, userID int64) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.MarkReady(ctx, code, userID)
		return err
	})
	return room, err
}

// StartGame begins play and arms the first move deadline
func (o *Orchestrator) StartGame(ctx context.Context, code string, userID int64) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.Start(ctx, code, userID, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	o.syncDeadlineTimer(room)
	return room, nil
}

// SubmitMove places a move for the user
func (o *Orchestrator) SubmitMove(ctx context.Context, code string, userID int64, cell int) (*entities.MoveResult, error) {
	var result *entities.MoveResult
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		result, err = svc.SubmitMove(ctx, code, userID, cell, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	o.syncDeadlineTimer(result.Room)
	return result, nil
}

// RequestRematch registers a rematch request
func (o *Orchestrator) RequestRematch(ctx context.Context, code string, userID int64) (*entities.RematchResult, error) {
	var result *entities.RematchResult
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		result, err = svc.RequestRematch(ctx, code, userID, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	o.syncDeadlineTimer(result.Room)
	return result, nil
}

// LeaveRoom marks the caller gone from a finished room
func (o *Orchestrator) LeaveRoom(ctx context.Context, code string, userID int64) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.Leave(ctx, code, userID)
		return err
	})
	return room, err
}

// CancelRoom refunds everyone and cancels the room
func (o *Orchestrator) CancelRoom(ctx context.Context, code string) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.Cancel(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	o.syncDeadlineTimer(room)
	return room, nil
}

// HandleAbandonment resolves an expired disconnect grace period. The
// presence tracker calls this after a seat stays disconnected past the
// grace window.
func (o *Orchestrator) HandleAbandonment(ctx context.Context, code string, userID int64, peerConnected bool) (*entities.Room, error) {
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.HandleAbandonment(ctx, code, userID, peerConnected)
		return err
	})
	if err != nil {
		return nil, err
	}
	o.syncDeadlineTimer(room)
	return room, nil
}

// syncDeadlineTimer arms or disarms the room's move-deadline timer to
// match its committed state. Called after every operation that could
// change the deadline.
func (o *Orchestrator) syncDeadlineTimer(room *entities.Room) {
	if room == nil {
		return
	}
	o.timerMu.Lock()
	defer o.timerMu.Unlock()

	if t, ok := o.timers[room.Code]; ok {
		t.Stop()
		delete(o.timers, room.Code)
	}
	if room.Status != entities.RoomStatusPlaying || room.MoveDeadline == nil {
		return
	}

	code := room.Code
	o.timers[code] = time.AfterFunc(time.Until(*room.MoveDeadline), func() {
		o.fireMoveDeadline(code)
	})
}

// fireMoveDeadline runs when a move-deadline timer goes off. The state
// machine treats a stale firing as a no-op, so a timer that lost the
// race against a move is harmless.
func (o *Orchestrator) fireMoveDeadline(code string) {
	ctx := context.Background()
	var room *entities.Room
	err := o.withRoom(ctx, code, func(svc interfaces.RoomService) error {
		var err error
		room, err = svc.HandleMoveDeadline(ctx, code, time.Now())
		return err
	})
	if err != nil {
		log.WithError(err).WithField("room", code).Error("Failed to enforce move deadline")
		return
	}
	o.syncDeadlineTimer(room)
}

// Stop cancels all pending deadline timers
func (o *Orchestrator) Stop() {
	o.timerMu.Lock()
	defer o.timerMu.Unlock()
	for code, t := range o.timers {
		t.Stop()
		delete(o.timers, code)
	}
}

// GetRoom returns a room by code
func (o *Orchestrator) GetRoom(ctx context.Context, code string) (*entities.Room, error) {
	var room *entities.Room
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		room, err = uow.RoomRepository().GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if room == nil {
			return entities.ErrRoomNotFound
		}
		return nil
	})
	return room, err
}

// ListOpenRooms returns public rooms with an open seat
func (o *Orchestrator) ListOpenRooms(ctx context.Context, limit int) ([]*entities.Room, error) {
	var rooms []*entities.Room
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		rooms, err = uow.RoomRepository().ListOpenPublic(ctx, limit)
		return err
	})
	return rooms, err
}

// GetAccount returns a user's account, creating it on first sight
func (o *Orchestrator) GetAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	var account *entities.Account
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = uow.AccountRepository().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			account, err = uow.AccountRepository().Create(ctx, userID, 0)
		}
		return err
	})
	return account, err
}

// Transfer moves coins between users, taking commission
func (o *Orchestrator) Transfer(ctx context.Context, fromID, toID int64, amount int64) (int64, error) {
	var commission int64
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		commission, err = o.ledgerService(uow).Transfer(ctx, fromID, toID, amount)
		return err
	})
	return commission, err
}

// Grant credits a user out of thin air. Coins are an admin grant; gems
// come out of the capped supply.
func (o *Orchestrator) Grant(ctx context.Context, userID int64, currency entities.Currency, amount int64) (*entities.LedgerEntry, error) {
	reason := entities.ReasonAdminGrant
	if currency.Capped() {
		reason = entities.ReasonEmission
	}
	var entry *entities.LedgerEntry
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		entry, err = o.ledgerService(uow).Credit(ctx, userID, currency, amount, reason, "")
		return err
	})
	return entry, err
}

// History returns a user's recent ledger entries
func (o *Orchestrator) History(ctx context.Context, userID int64, limit int) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		entries, err = o.ledgerService(uow).History(ctx, userID, limit)
		return err
	})
	return entries, err
}

// RoomLedger returns a room's full financial history
func (o *Orchestrator) RoomLedger(ctx context.Context, code string) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	err := o.withTx(ctx, func(uow UnitOfWork) error {
		var err error
		entries, err = o.ledgerService(uow).RoomHistory(ctx, code)
		return err
	})
	return entries, err
}
