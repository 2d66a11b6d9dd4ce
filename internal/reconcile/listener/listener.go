package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventPurchaseOrderUpdated = "PurchaseOrderUpdated"
	EventWasteLogged          = "WasteLogged"
)

// MessageReader is satisfied by broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type ReconcileListener struct {
	consumer MessageReader
	uc       reconcile.UseCase
	logger   logger.ZapLogger
}

func NewReconcileListener(consumer MessageReader, uc reconcile.UseCase, logger logger.ZapLogger) *ReconcileListener {
	return &ReconcileListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *ReconcileListener) Start(ctx context.Context) {
	l.logger.Info("Starting Reconcile Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Reconcile Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			if err := l.processMessage(ctx, msg.Value); err != nil {
				l.logger.Error("Failed to process event",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}
}

type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type PurchaseOrderUpdatedPayload struct {
	OrderID string `json:"order_id"`
}

type WasteLoggedPayload struct {
	InventoryItemID string `json:"inventory_item_id"`
}

// processMessage runs the reconciliation pass an event points at. Unknown
// event types are skipped.
func (l *ReconcileListener) processMessage(ctx context.Context, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch event.EventType {
	case EventPurchaseOrderUpdated:
		var payload PurchaseOrderUpdatedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", event.EventType, err)
		}
		if payload.OrderID == "" {
			return fmt.Errorf("%s event %s without order_id", event.EventType, event.EventID)
		}

		l.logger.Info("Processing PurchaseOrderUpdated event", zap.String("order_id", payload.OrderID))
		_, err := l.uc.ReconcileReceiving(ctx, payload.OrderID)
		return err

	case EventWasteLogged:
		var payload WasteLoggedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", event.EventType, err)
		}
		if payload.InventoryItemID == "" {
			return fmt.Errorf("%s event %s without inventory_item_id", event.EventType, event.EventID)
		}

		l.logger.Info("Processing WasteLogged event", zap.String("inventory_item_id", payload.InventoryItemID))
		_, err := l.uc.ReconcileWaste(ctx, payload.InventoryItemID)
		return err
	}

	l.logger.Debug("Ignoring event", zap.String("event_type", event.EventType))
	return nil
}
