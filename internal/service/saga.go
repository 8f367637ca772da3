package service

import (
	"context"

	"managerclass/internal/logger"
)

// saga collects compensating actions for a multi-step write that has no
// transaction to fall back on. Compensations run in reverse order.
type saga struct {
	log   *logger.Logger
	steps []sagaStep
}

type sagaStep struct {
	name       string
	compensate func(ctx context.Context) error
}

func newSaga(log *logger.Logger) *saga {
	return &saga{log: log}
}

// onFailure registers the undo action of a step that has succeeded
func (s *saga) onFailure(name string, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, compensate: compensate})
}

// rollback runs every registered compensation, newest first. A failing
// compensation is logged and does not stop the others.
func (s *saga) rollback(ctx context.Context) {
	// The request context may already be cancelled; compensations still have to run.
	ctx = context.WithoutCancel(ctx)
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.compensate(ctx); err != nil {
			s.log.Error("compensation failed", "step", step.name, "error", err)
			continue
		}
		s.log.Warn("compensated", "step", step.name)
	}
	s.steps = nil
}
