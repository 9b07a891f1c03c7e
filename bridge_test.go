package main

import (
	"context"
	"slices"
	"testing"
	"time"
)

type fakeChannel struct {
	inbound chan InboundMessage
	sent    chan ChatEvent
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{inbound: make(chan InboundMessage, 4), sent: make(chan ChatEvent, 4)}
}

func (c *fakeChannel) Name() string { return "fake" }
func (c *fakeChannel) Messages() <-chan InboundMessage { return c.inbound }
func (c *fakeChannel) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func (c *fakeChannel) Send(_ context.Context, e ChatEvent) error {
	c.sent <- e
	return nil
}

func TestBridgeForwardsChat(t *testing.T) {
	api := newFakeWorld()
	w := startedWorld(t, api, WorldOptions{})
	ch := newFakeChannel()
	bridge := NewBridge(w, []Channel{ch})
	w.Subscribe(bridge.Subscriber())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.FanOutEvents(ctx)

	api.queue("PVP is now disabled", "BIB: Hello!")
	if err := w.Poll(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-ch.sent:
		if e.Type != ChatMessage || e.Name != "BIB" || e.Message != "Hello!" {
			t.Fatalf("forwarded %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not forwarded")
	}
	select {
	case e := <-ch.sent:
		t.Fatalf("unexpected forward of %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridgeRelaysInbound(t *testing.T) {
	api := newFakeWorld()
	w := startedWorld(t, api, WorldOptions{})
	bridge := NewBridge(w, nil)
	ctx := context.Background()

	bridge.relay(ctx, InboundMessage{Source: "Discord", Author: "ann", Content: "  /ban {{name}} "})
	bridge.relay(ctx, InboundMessage{Source: "Discord", Author: "ann", Content: "   "})

	want := []string{"[Discord] ann: ban {{name}}"}
	if got := api.sentMessages(); !slices.Equal(got, want) {
		t.Fatalf("sent %q, want %q", got, want)
	}
}
