package cron

import (
	"context"
	"fmt"

	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

type CashbackAwardJobParams struct {
	Logger *logger.Logger
	Orders cashbackAwardService
}

type cashbackAwardService interface {
	AwardPendingCashback(ctx context.Context) (int, error)
}

// NewCashbackAwardJob credits wallet cashback for delivered orders
// whose hold period has elapsed.
func NewCashbackAwardJob(params CashbackAwardJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &cashbackAwardJob{
		logg:   params.Logger,
		orders: params.Orders,
	}, nil
}

type cashbackAwardJob struct {
	logg   *logger.Logger
	orders cashbackAwardService
}

func (j *cashbackAwardJob) Name() string { return "cashback-award" }

func (j *cashbackAwardJob) Run(ctx context.Context) error {
	awarded, err := j.orders.AwardPendingCashback(ctx)
	if err != nil {
		return fmt.Errorf("cashback award sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cashback_awarded": awarded,
	})
	j.logg.Info(logCtx, "cashback award sweep complete")
	return nil
}
