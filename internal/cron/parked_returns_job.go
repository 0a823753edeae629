package cron

import (
	"context"
	"fmt"

	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

type ParkedReturnsJobParams struct {
	Logger  *logger.Logger
	Returns parkedReturnsService
}

type parkedReturnsService interface {
	ReconcileParkedReturns(ctx context.Context) (int, error)
}

// NewParkedReturnsJob retries wallet refunds for returns whose goods
// reached the seller but whose refund failed.
func NewParkedReturnsJob(params ParkedReturnsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Returns == nil {
		return nil, fmt.Errorf("returns service required")
	}
	return &parkedReturnsJob{
		logg:    params.Logger,
		returns: params.Returns,
	}, nil
}

type parkedReturnsJob struct {
	logg    *logger.Logger
	returns parkedReturnsService
}

func (j *parkedReturnsJob) Name() string { return "parked-returns" }

func (j *parkedReturnsJob) Run(ctx context.Context) error {
	recovered, err := j.returns.ReconcileParkedReturns(ctx)
	if err != nil {
		return fmt.Errorf("parked returns reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"returns_recovered": recovered,
	})
	j.logg.Info(logCtx, "parked returns reconcile complete")
	return nil
}
