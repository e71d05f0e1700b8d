package service

import (
	"content-storefront/internal/model"
	"content-storefront/internal/repository"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// VisitRecorder appends redemption attempts to the visit log without making
// the caller wait. Failures are logged and dropped.
type VisitRecorder interface {
	Record(visit *model.AccessLinkVisit)
	// Wait blocks until every in-flight write has finished.
	Wait()
}

type visitRecorderImpl struct {
	visitRepo repository.VisitRepository
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewVisitRecorder(visitRepo repository.VisitRepository, timeout time.Duration, logger *zap.Logger) VisitRecorder {
	return &visitRecorderImpl{
		visitRepo: visitRepo,
		timeout:   timeout,
		logger:    logger,
	}
}

func (r *visitRecorderImpl) Record(visit *model.AccessLinkVisit) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// detached from the request so a finished response doesn't cancel the write
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.visitRepo.Create(ctx, visit); err != nil {
			r.logger.Warn("record access link visit",
				zap.String("link_id", visit.LinkID),
				zap.String("outcome", visit.Outcome),
				zap.Error(err),
			)
		}
	}()
}

func (r *visitRecorderImpl) Wait() {
	r.wg.Wait()
}
