package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nearbasket/nearbasket-backend/pkg/db/models"
	"github.com/nearbasket/nearbasket-backend/pkg/enums"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox/payloads"
)

type captureRepo struct {
	created []*models.Notification
}

func (c *captureRepo) Create(ctx context.Context, notification *models.Notification) error {
	c.created = append(c.created, notification)
	return nil
}

type captureSink struct {
	pushed []*models.Notification
	err    error
}

func (c *captureSink) Push(ctx context.Context, notification *models.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.pushed = append(c.pushed, notification)
	return nil
}

type fakeOrderDirectory struct {
	orders map[uuid.UUID]*models.Order
}

func (f *fakeOrderDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

type fakeReturnDirectory struct {
	returns map[uuid.UUID]*models.OrderItemReturn
}

func (f *fakeReturnDirectory) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderItemReturn, error) {
	ret, ok := f.returns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return ret, nil
}

func newTestConsumer(repo *captureRepo, sink Sink, orders *fakeOrderDirectory, returns *fakeReturnDirectory) *Consumer {
	return &Consumer{
		repo:    repo,
		orders:  orders,
		returns: returns,
		sink:    sink,
		logg:    logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
	}
}

func mustJSON(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestConsumer_OrderPlaced(t *testing.T) {
	repo := &captureRepo{}
	sink := &captureSink{}
	consumer := newTestConsumer(repo, sink, &fakeOrderDirectory{}, &fakeReturnDirectory{})

	userID := uuid.New()
	payload := mustJSON(t, payloads.OrderPlacedEvent{OrderID: uuid.New(), OrderNumber: 1234, UserID: userID})
	if err := consumer.route(context.Background(), enums.EventOrderPlaced, payload); err != nil {
		t.Fatalf("route error: %v", err)
	}

	if len(repo.created) != 1 || len(sink.pushed) != 1 {
		t.Fatalf("created=%d pushed=%d", len(repo.created), len(sink.pushed))
	}
	note := repo.created[0]
	if note.UserID != userID || note.Audience != enums.NotificationAudienceBuyer || note.Type != enums.NotificationTypeOrderUpdate {
		t.Fatalf("unexpected notification: %+v", note)
	}
}

func TestConsumer_PaymentFailedLooksUpBuyer(t *testing.T) {
	orderID, userID := uuid.New(), uuid.New()
	repo := &captureRepo{}
	orders := &fakeOrderDirectory{orders: map[uuid.UUID]*models.Order{
		orderID: {ID: orderID, OrderNumber: 2001, UserID: userID},
	}}
	consumer := newTestConsumer(repo, &captureSink{}, orders, &fakeReturnDirectory{})

	payload := mustJSON(t, payloads.PaymentStatusEvent{OrderID: orderID, Status: enums.PaymentStatusFailed})
	if err := consumer.route(context.Background(), enums.EventPaymentFailed, payload); err != nil {
		t.Fatalf("route error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	if repo.created[0].UserID != userID || repo.created[0].Title != "Payment failed" {
		t.Fatalf("unexpected notification: %+v", repo.created[0])
	}
}

func TestConsumer_ReturnCompleted(t *testing.T) {
	returnID, userID := uuid.New(), uuid.New()
	repo := &captureRepo{}
	returns := &fakeReturnDirectory{returns: map[uuid.UUID]*models.OrderItemReturn{
		returnID: {ID: returnID, UserID: userID},
	}}
	consumer := newTestConsumer(repo, &captureSink{}, &fakeOrderDirectory{}, returns)

	payload := mustJSON(t, payloads.ReturnCompletedEvent{ReturnID: returnID, RefundAmount: decimal.NewFromInt(35)})
	if err := consumer.route(context.Background(), enums.EventReturnCompleted, payload); err != nil {
		t.Fatalf("route error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	note := repo.created[0]
	if note.UserID != userID || note.Type != enums.NotificationTypeReturnUpdate {
		t.Fatalf("unexpected notification: %+v", note)
	}
}

func TestConsumer_CourierAssigned(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo, &captureSink{}, &fakeOrderDirectory{}, &fakeReturnDirectory{})

	courierID := uuid.New()
	payload := mustJSON(t, payloads.CourierAssignedEvent{
		AssignmentID: uuid.New(),
		CourierID:    courierID,
		Type:         enums.AssignmentTypeReturnPickup,
	})
	if err := consumer.route(context.Background(), enums.EventCourierAssigned, payload); err != nil {
		t.Fatalf("route error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	note := repo.created[0]
	if note.Audience != enums.NotificationAudienceCourier || note.Title != "Return pickup accepted" {
		t.Fatalf("unexpected notification: %+v", note)
	}
}

func TestConsumer_PushFailureDoesNotFailEvent(t *testing.T) {
	repo := &captureRepo{}
	sink := &captureSink{err: context.DeadlineExceeded}
	consumer := newTestConsumer(repo, sink, &fakeOrderDirectory{}, &fakeReturnDirectory{})

	payload := mustJSON(t, payloads.OrderPlacedEvent{OrderID: uuid.New(), OrderNumber: 7, UserID: uuid.New()})
	if err := consumer.route(context.Background(), enums.EventOrderPlaced, payload); err != nil {
		t.Fatalf("push failure must not bubble: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("notification row should still persist, got %d", len(repo.created))
	}
}

func TestConsumer_UnknownEventSkipped(t *testing.T) {
	repo := &captureRepo{}
	consumer := newTestConsumer(repo, &captureSink{}, &fakeOrderDirectory{}, &fakeReturnDirectory{})
	if err := consumer.route(context.Background(), enums.EventCashCollected, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unhandled events must ack: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.created))
	}
}
