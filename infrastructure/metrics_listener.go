package infrastructure

import (
	"context"

	"parlor/domain/events"
	"parlor/infrastructure/observability"
)

// RegisterMetricsHandlers attaches local event handlers that translate
// committed domain events into metric updates
func RegisterMetricsHandlers(factory *UnitOfWorkFactory, metrics *observability.MetricsProvider) {
	factory.RegisterLocalHandler(events.EventTypeRoomStateChange, func(ctx context.Context, e events.Event) error {
		change, ok := e.(events.RoomStateChangeEvent)
		if !ok {
			return nil
		}
		// A room is live between creation and its terminal transition
		if change.OldState == "" {
			metrics.UpdateActiveRooms(1)
		} else if change.NewState.IsTerminal() && !change.OldState.IsTerminal() {
			metrics.UpdateActiveRooms(-1)
		}
		return nil
	})

	factory.RegisterLocalHandler(events.EventTypeMoveApplied, func(ctx context.Context, e events.Event) error {
		metrics.RecordMovePlayed()
		return nil
	})

	factory.RegisterLocalHandler(events.EventTypeRoomSettled, func(ctx context.Context, e events.Event) error {
		settled, ok := e.(events.RoomSettledEvent)
		if !ok {
			return nil
		}
		metrics.RecordSettlement(settlementOutcome(settled))
		return nil
	})

	factory.RegisterLocalHandler(events.EventTypeRoomRefunded, func(ctx context.Context, e events.Event) error {
		metrics.RecordSettlement(observability.OutcomeRefund)
		return nil
	})

	factory.RegisterLocalHandler(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) error {
		change, ok := e.(events.BalanceChangeEvent)
		if !ok {
			return nil
		}
		metrics.RecordLedgerEntry(string(change.Currency), string(change.Reason))
		return nil
	})
}

func settlementOutcome(settled events.RoomSettledEvent) string {
	switch {
	case settled.Forfeit:
		return observability.OutcomeForfeit
	case settled.WinnerID == nil:
		return observability.OutcomeDraw
	default:
		return observability.OutcomeWin
	}
}
