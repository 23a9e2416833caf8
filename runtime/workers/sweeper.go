package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/repositories"

	"github.com/samber/lo"
)

// SweeperWorker periodically evicts participants whose last heartbeat fell
// behind the TTL and records one leave notice per eviction in a single batch.
// Interval and TTL are independent knobs; with TTL shorter than the interval
// a silent participant is evicted on its first eligible tick.
type SweeperWorker struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	interval     time.Duration
	ttl          time.Duration
}

func NewSweeperWorker(
	log *slog.Logger,
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	interval time.Duration,
	ttl time.Duration,
) *SweeperWorker {
	return &SweeperWorker{
		log:          log,
		participants: participants,
		messages:     messages,
		interval:     interval,
		ttl:          ttl,
	}
}

// Run executes the sweep loop until the context is canceled. A failed tick is
// logged and never retried within the cycle; the next tick proceeds
// independently.
func (w *SweeperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting inactivity sweeper", "interval", w.interval, "ttl", w.ttl)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(time.Now().UTC())
		}
	}
}

func (w *SweeperWorker) sweep(now time.Time) {
	evicted, err := w.participants.EvictStale(w.ttl, now)
	if err != nil {
		w.log.Error("Eviction scan failed", "err", err)
		return
	}
	if len(evicted) == 0 {
		return
	}

	notices := lo.Map(evicted, func(p domain.Participant, _ int) domain.Message {
		return domain.NewStatus(p.Name, domain.LeaveNotice, now)
	})
	if err = w.messages.BulkInsertStatus(notices); err != nil {
		w.log.Error("Leave notice batch failed", "count", len(notices), "err", err)
		return
	}
	w.log.Info("Evicted stale participants", "count", len(evicted))
}
