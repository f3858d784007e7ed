package application

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// RetentionWorker periodically archives stale terminal rooms and
// purges archived ones past the retention age. Live money is never
// touched: only rooms whose pot is already distributed qualify.
type RetentionWorker struct {
	uowFactory UnitOfWorkFactory
	cron       *cron.Cron
	schedule   string
	maxAge     time.Duration
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(uowFactory UnitOfWorkFactory, schedule string, maxAge time.Duration) *RetentionWorker {
	return &RetentionWorker{
		uowFactory: uowFactory,
		cron:       cron.New(),
		schedule:   schedule,
		maxAge:     maxAge,
	}
}

// Start begins the sweep schedule
func (w *RetentionWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		if err := w.Sweep(ctx); err != nil {
			log.WithError(err).Error("Retention sweep failed")
		}
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	log.WithField("schedule", w.schedule).Info("Retention worker started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (w *RetentionWorker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	log.Info("Retention worker stopped")
}

// Sweep runs one archive-then-purge pass
func (w *RetentionWorker) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.maxAge)

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	archived, err := uow.RoomRepository().ArchiveFinishedOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	purged, err := uow.RoomRepository().PurgeArchivedOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if archived > 0 || purged > 0 {
		log.WithFields(log.Fields{
			"archived": archived,
			"purged":   purged,
		}).Info("Retention sweep completed")
	}
	return nil
}
