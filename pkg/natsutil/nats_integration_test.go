//go:build integration

package natsutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// Requires a running NATS server, e.g. `nats-server -p 4222`.
// Run with: go test -tags integration ./pkg/natsutil/

type inventoryEvent struct {
	EventID      string `json:"event_id"`
	DealershipID string `json:"dealership_id"`
	ItemID       string `json:"item_id"`
}

func natsURL() string {
	if u := os.Getenv("NATS_URL"); u != "" {
		return u
	}
	return nats.DefaultURL
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer nc.Close()

	got := make(chan inventoryEvent, 1)
	sub, err := Subscribe(nc, "inventory.test.updated", func(_ context.Context, ev inventoryEvent) {
		got <- ev
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	want := inventoryEvent{EventID: "e1", DealershipID: "d1", ItemID: "v1"}
	if err := Publish(context.Background(), nc, "inventory.test.updated", want); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-got:
		if ev != want {
			t.Errorf("event = %+v, want %+v", ev, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeDropsMalformedPayloads(t *testing.T) {
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer nc.Close()

	got := make(chan inventoryEvent, 1)
	sub, err := Subscribe(nc, "inventory.test.malformed", func(_ context.Context, ev inventoryEvent) {
		got <- ev
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := nc.Publish("inventory.test.malformed", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	select {
	case ev := <-got:
		t.Errorf("malformed payload should be dropped, got %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}
