package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
)

// Sink delivers a stored notification to the push channel. The DB row
// is the source of truth, a sink failure never loses the notification.
type Sink interface {
	Push(ctx context.Context, notification *models.Notification) error
}

// PubSubSink forwards notifications to the push topic where the
// mobile/web delivery pipeline picks them up.
type PubSubSink struct {
	publisher *pubsub.Publisher
}

// NewPubSubSink wraps a publisher handle for the push topic.
func NewPubSubSink(publisher *pubsub.Publisher) (*PubSubSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("push publisher required")
	}
	return &PubSubSink{publisher: publisher}, nil
}

func (s *PubSubSink) Push(ctx context.Context, notification *models.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"user_id":  notification.UserID.String(),
			"audience": string(notification.Audience),
			"type":     string(notification.Type),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish push message: %w", err)
	}
	return nil
}

// LogSink writes notifications to the log instead of a push channel.
// Used in local development and in tests.
type LogSink struct {
	logg *logger.Logger
}

// NewLogSink builds a sink that only logs.
func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Push(ctx context.Context, notification *models.Notification) error {
	if s.logg == nil {
		return nil
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":  notification.UserID.String(),
		"audience": string(notification.Audience),
		"type":     string(notification.Type),
		"title":    notification.Title,
	})
	s.logg.Info(logCtx, "notification push skipped, log sink active")
	return nil
}
