package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/aryanmundre/MaqroDealerships-sub000/engine/domain"
)

type fakeUpdater struct {
	refreshed []domain.InventoryItem
	removed   []string
	err       error
}

func (f *fakeUpdater) RefreshItem(ctx context.Context, item domain.InventoryItem) error {
	if f.err != nil {
		return f.err
	}
	f.refreshed = append(f.refreshed, item)
	return nil
}

func (f *fakeUpdater) RemoveItem(ctx context.Context, tenantID, itemID string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, tenantID+"/"+itemID)
	return nil
}

type fakePublisher struct {
	published []*nats.Msg
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.published = append(f.published, &nats.Msg{Subject: subject, Data: data})
	return nil
}

func (f *fakePublisher) PublishMsg(msg *nats.Msg) error {
	f.published = append(f.published, msg)
	return nil
}

func validItem() domain.InventoryItem {
	return domain.InventoryItem{
		ID: "v1", DealershipID: "d1", Make: "Toyota", Model: "Camry",
		Year: 2021, Price: 21000, Status: domain.StatusActive,
	}
}

func eventMsg(t *testing.T, subject string, ev InventoryEvent) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return &nats.Msg{Subject: subject, Data: data}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_HandleUpdated(t *testing.T) {
	u := &fakeUpdater{}
	w := &Worker{pub: &fakePublisher{}, updater: u}
	w.log = testLogger()

	ev := InventoryEvent{EventID: "e1", DealershipID: "d1", ItemID: "v1", Item: validItem()}
	w.handleUpdated(eventMsg(t, UpdatedSubject, ev))

	if len(u.refreshed) != 1 || u.refreshed[0].ID != "v1" {
		t.Errorf("refreshed = %v, want one refresh for v1", u.refreshed)
	}
}

func TestWorker_HandleDeleted(t *testing.T) {
	u := &fakeUpdater{}
	w := &Worker{pub: &fakePublisher{}, updater: u}
	w.log = testLogger()

	ev := InventoryEvent{EventID: "e2", DealershipID: "d1", ItemID: "v1"}
	w.handleDeleted(eventMsg(t, DeletedSubject, ev))

	if len(u.removed) != 1 || u.removed[0] != "d1/v1" {
		t.Errorf("removed = %v, want [d1/v1]", u.removed)
	}
}

func TestWorker_DropsMalformedAndInvalid(t *testing.T) {
	u := &fakeUpdater{}
	p := &fakePublisher{}
	w := &Worker{pub: p, updater: u}
	w.log = testLogger()

	w.handleUpdated(&nats.Msg{Subject: UpdatedSubject, Data: []byte("not json")})
	w.handleUpdated(eventMsg(t, UpdatedSubject, InventoryEvent{EventID: "e3"})) // no item
	w.handleDeleted(eventMsg(t, DeletedSubject, InventoryEvent{EventID: "e4"})) // no ids

	if len(u.refreshed) != 0 || len(u.removed) != 0 {
		t.Error("invalid events reached the updater")
	}
	// Dropped events are not retried or dead-lettered.
	if len(p.published) != 0 {
		t.Errorf("published %d messages for dropped events", len(p.published))
	}
}

func TestWorker_RetryThenDeadLetter(t *testing.T) {
	u := &fakeUpdater{err: errors.New("index down")}
	p := &fakePublisher{}
	w := &Worker{pub: p, updater: u}
	w.log = testLogger()

	ev := InventoryEvent{EventID: "e5", DealershipID: "d1", ItemID: "v1", Item: validItem()}

	// First failure republishes with retry count 1.
	msg := eventMsg(t, UpdatedSubject, ev)
	w.handleUpdated(msg)
	if len(p.published) != 1 {
		t.Fatalf("published = %d, want 1", len(p.published))
	}
	retry := p.published[0]
	if retry.Subject != UpdatedSubject {
		t.Errorf("retry subject = %q", retry.Subject)
	}
	if got := retry.Header.Get("X-Retry-Count"); got != "1" {
		t.Errorf("retry count = %q, want 1", got)
	}

	// Simulate the last allowed retry: the event goes to the DLQ.
	final := eventMsg(t, UpdatedSubject, ev)
	final.Header = nats.Header{}
	final.Header.Set("X-Retry-Count", "2")
	w.handleUpdated(final)

	last := p.published[len(p.published)-1]
	if last.Subject != DLQSubject {
		t.Fatalf("final subject = %q, want DLQ", last.Subject)
	}
	var dlq dlqMessage
	if err := json.Unmarshal(last.Data, &dlq); err != nil {
		t.Fatal(err)
	}
	if dlq.Retries != MaxRetries || dlq.Event.EventID != "e5" {
		t.Errorf("dlq = %+v", dlq)
	}
}
