package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

type fakeParkedReturnsService struct {
	recovered int
	err       error
	called    int
}

func (f *fakeParkedReturnsService) ReconcileParkedReturns(ctx context.Context) (int, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	return f.recovered, nil
}

func TestParkedReturnsJobRunsReconcile(t *testing.T) {
	svc := &fakeParkedReturnsService{recovered: 3}
	job, err := NewParkedReturnsJob(ParkedReturnsJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Returns: svc,
	})
	if err != nil {
		t.Fatalf("NewParkedReturnsJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.called != 1 {
		t.Fatalf("expected service called once, got %d", svc.called)
	}
}

func TestParkedReturnsJobPropagatesErrors(t *testing.T) {
	svc := &fakeParkedReturnsService{err: errors.New("boom")}
	job, err := NewParkedReturnsJob(ParkedReturnsJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Returns: svc,
	})
	if err != nil {
		t.Fatalf("NewParkedReturnsJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestParkedReturnsJobRequiresService(t *testing.T) {
	_, err := NewParkedReturnsJob(ParkedReturnsJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
