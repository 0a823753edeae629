package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

type fakeCashbackAwardService struct {
	awarded int
	err     error
	called  int
}

func (f *fakeCashbackAwardService) AwardPendingCashback(ctx context.Context) (int, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	return f.awarded, nil
}

func TestCashbackAwardJobRunsSweep(t *testing.T) {
	svc := &fakeCashbackAwardService{awarded: 2}
	job, err := NewCashbackAwardJob(CashbackAwardJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders: svc,
	})
	if err != nil {
		t.Fatalf("NewCashbackAwardJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.called != 1 {
		t.Fatalf("expected service called once, got %d", svc.called)
	}
}

func TestCashbackAwardJobPropagatesErrors(t *testing.T) {
	svc := &fakeCashbackAwardService{err: errors.New("boom")}
	job, err := NewCashbackAwardJob(CashbackAwardJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders: svc,
	})
	if err != nil {
		t.Fatalf("NewCashbackAwardJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCashbackAwardJobRequiresService(t *testing.T) {
	_, err := NewCashbackAwardJob(CashbackAwardJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
