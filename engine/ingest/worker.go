// Package ingest keeps the vector index consistent with inventory lifecycle
// events arriving over NATS: an updated item gets its embedding refreshed, a
// deleted item gets its vector entry removed. Failed refreshes are retried
// and eventually dead-lettered.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/natsutil"
)

const (
	// UpdatedSubject carries created/changed inventory items.
	UpdatedSubject = "inventory.updated"
	// DeletedSubject carries removals.
	DeletedSubject = "inventory.deleted"
	// DLQSubject receives events that kept failing.
	DLQSubject = "inventory.dlq"
	// MaxRetries before an event is dead-lettered.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// InventoryEvent is the wire format for both subjects. Deleted events carry
// only the ids.
type InventoryEvent struct {
	EventID      string               `json:"event_id"`
	DealershipID string               `json:"dealership_id"`
	ItemID       string               `json:"item_id"`
	Item         domain.InventoryItem `json:"item,omitempty"`
	OccurredAt   time.Time            `json:"occurred_at"`
}

// Updater is the slice of the retrieval service the worker needs.
type Updater interface {
	RefreshItem(ctx context.Context, item domain.InventoryItem) error
	RemoveItem(ctx context.Context, tenantID, itemID string) error
}

// dlqMessage wraps a failed event with its terminal error.
type dlqMessage struct {
	Event   InventoryEvent `json:"event"`
	Error   string         `json:"error"`
	Retries int            `json:"retries"`
}

// PublishUpdated emits an update event for an item.
func PublishUpdated(ctx context.Context, nc *nats.Conn, item domain.InventoryItem) error {
	return natsutil.Publish(ctx, nc, UpdatedSubject, InventoryEvent{
		EventID:      uuid.NewString(),
		DealershipID: item.DealershipID,
		ItemID:       item.ID,
		Item:         item,
		OccurredAt:   time.Now().UTC(),
	})
}

// PublishDeleted emits a deletion event.
func PublishDeleted(ctx context.Context, nc *nats.Conn, dealershipID, itemID string) error {
	return natsutil.Publish(ctx, nc, DeletedSubject, InventoryEvent{
		EventID:      uuid.NewString(),
		DealershipID: dealershipID,
		ItemID:       itemID,
		OccurredAt:   time.Now().UTC(),
	})
}

// publisher is the republish/dead-letter surface of *nats.Conn.
type publisher interface {
	Publish(subject string, data []byte) error
	PublishMsg(msg *nats.Msg) error
}

// Worker consumes inventory events and applies them to the index.
type Worker struct {
	nc      *nats.Conn
	pub     publisher
	updater Updater
	log     *slog.Logger
	subs    []*nats.Subscription
}

// NewWorker creates a worker; call Start to begin consuming.
func NewWorker(nc *nats.Conn, updater Updater, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{nc: nc, pub: nc, updater: updater, log: log}
}

// Start subscribes to both subjects.
func (w *Worker) Start() error {
	updSub, err := w.nc.Subscribe(UpdatedSubject, w.handleUpdated)
	if err != nil {
		return fmt.Errorf("ingest: subscribe %s: %w", UpdatedSubject, err)
	}
	delSub, err := w.nc.Subscribe(DeletedSubject, w.handleDeleted)
	if err != nil {
		updSub.Unsubscribe()
		return fmt.Errorf("ingest: subscribe %s: %w", DeletedSubject, err)
	}
	w.subs = []*nats.Subscription{updSub, delSub}
	return nil
}

// Stop drains the subscriptions.
func (w *Worker) Stop() {
	for _, s := range w.subs {
		_ = s.Drain()
	}
	w.subs = nil
}

func (w *Worker) handleUpdated(msg *nats.Msg) {
	var ev InventoryEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		w.log.Error("dropping malformed inventory event", "subject", msg.Subject, "error", err)
		return
	}
	if err := domain.ValidateItem(ev.Item); err != nil {
		w.log.Error("dropping invalid inventory event", "event_id", ev.EventID, "error", err)
		return
	}

	if err := w.updater.RefreshItem(context.Background(), ev.Item); err != nil {
		w.retryOrDeadLetter(msg, ev, err)
		return
	}
	w.log.Info("inventory item refreshed", "event_id", ev.EventID, "item_id", ev.ItemID)
}

func (w *Worker) handleDeleted(msg *nats.Msg) {
	var ev InventoryEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		w.log.Error("dropping malformed inventory event", "subject", msg.Subject, "error", err)
		return
	}
	if ev.DealershipID == "" || ev.ItemID == "" {
		w.log.Error("dropping deletion event with missing ids", "event_id", ev.EventID)
		return
	}

	if err := w.updater.RemoveItem(context.Background(), ev.DealershipID, ev.ItemID); err != nil {
		w.retryOrDeadLetter(msg, ev, err)
		return
	}
	w.log.Info("inventory item removed", "event_id", ev.EventID, "item_id", ev.ItemID)
}

// retryOrDeadLetter re-publishes the event with an incremented retry header,
// or dead-letters it after MaxRetries.
func (w *Worker) retryOrDeadLetter(msg *nats.Msg, ev InventoryEvent, cause error) {
	retries := 0
	if msg.Header != nil {
		if v := msg.Header.Get(retryHeader); v != "" {
			fmt.Sscanf(v, "%d", &retries)
		}
	}
	retries++

	w.log.Error("inventory event failed",
		"event_id", ev.EventID, "item_id", ev.ItemID, "retry", retries, "error", cause)

	if retries >= MaxRetries {
		data, _ := json.Marshal(dlqMessage{Event: ev, Error: cause.Error(), Retries: retries})
		if err := w.pub.Publish(DLQSubject, data); err != nil {
			w.log.Error("dead-letter publish failed", "event_id", ev.EventID, "error", err)
		}
		return
	}

	retry := nats.NewMsg(msg.Subject)
	retry.Data = msg.Data
	retry.Header = nats.Header{}
	retry.Header.Set(retryHeader, fmt.Sprintf("%d", retries))
	if err := w.pub.PublishMsg(retry); err != nil {
		w.log.Error("retry publish failed", "event_id", ev.EventID, "error", err)
	}
}
