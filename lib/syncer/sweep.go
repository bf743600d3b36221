package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/google/uuid"
)

// sweep syncs every subscription in bounded-concurrency batches. Syncs of
// different subscriptions are independent; a failure on one is logged and
// never aborts the rest of the sweep. Within a single subscription delivery
// stays sequential inside Sync.
func (s *Syncer) sweep(ctx context.Context, sweepStartTime time.Time) {
	sweepID := uuid.NewString()

	subs, err := s.store.ListAll(ctx)
	if err != nil {
		s.log.Sugar().Errorw("Sweep failed to list subscriptions", "sweep_id", sweepID, "err", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	metrics := &sweepMetrics{}
	for start := 0; start < len(subs); start += s.concurrency {
		end := min(start+s.concurrency, len(subs))
		batchMetrics, errs := s.syncBatch(ctx, subs[start:end])
		if len(errs) > 0 {
			s.log.Sugar().Warnf("sweep %s: batch errors: %+v", sweepID, errs)
		}
		metrics.Add(batchMetrics)
	}

	elapsed := time.Now().UTC().Sub(sweepStartTime)
	s.log.Sugar().Infow(
		fmt.Sprintf("Swept %d subscriptions", metrics.totalSelected),
		"sweep_id", sweepID,
		"delivered", metrics.delivered,
		"unchanged", metrics.unchanged,
		"errored", metrics.errored,
		"elapsed_msecs", int(elapsed.Milliseconds()),
	)
}

func (s *Syncer) syncBatch(ctx context.Context, batch models.Subscriptions) (*sweepMetrics, []error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	metrics := &sweepMetrics{}
	errs := make([]error, 0)

	for i := range batch {
		sub := &batch[i]
		wg.Add(1)

		go func() {
			defer wg.Done()
			report, err := s.Sync(ctx, sub)

			mu.Lock()
			defer mu.Unlock()
			metrics.totalSelected++
			switch {
			case err != nil:
				metrics.errored++
				errs = append(errs, err)
			case report.Delivered > 0:
				metrics.delivered += report.Delivered
			default:
				metrics.unchanged++
			}
		}()
	}

	wg.Wait()
	return metrics, errs
}
