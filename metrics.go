package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// worldMetrics counts what a World dispatches and what goes wrong while it runs.
type worldMetrics struct {
	chatEvents  metric.Int64Counter
	listChanges metric.Int64Counter
	pollErrors  metric.Int64Counter
	faults      metric.Int64Counter
	sendErrors  metric.Int64Counter
}

func newWorldMetrics(meter metric.Meter) (*worldMetrics, error) {
	var m worldMetrics
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.chatEvents, "messagebot.chat.events", "Chat events parsed from the world log"},
		{&m.listChanges, "messagebot.list.changes", "Players added to or removed from access lists"},
		{&m.pollErrors, "messagebot.poll.errors", "Transient read failures while polling"},
		{&m.faults, "messagebot.subscriber.faults", "Subscribers that panicked during dispatch"},
		{&m.sendErrors, "messagebot.send.errors", "Messages that could not be sent to the world"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

// observeOnline reports the size of the world's roster on every collection.
func (m *worldMetrics) observeOnline(meter metric.Meter, w *World) error {
	_, err := meter.Int64ObservableGauge("messagebot.players.online",
		metric.WithDescription("Players currently online"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(len(w.Online())))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("gauge messagebot.players.online: %w", err)
	}
	return nil
}

// options wires the error hooks of WorldOptions to the counters.
func (m *worldMetrics) options(opts WorldOptions) WorldOptions {
	opts.OnPollError = func(err *PollError) {
		m.pollErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", err.Source)))
	}
	opts.OnFault = func(SubscriberFault) {
		m.faults.Add(context.Background(), 1)
	}
	opts.OnSendError = func(string, error) {
		m.sendErrors.Add(context.Background(), 1)
	}
	return opts
}

func (m *worldMetrics) OnChatEvent(event ChatEvent) {
	m.chatEvents.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", string(event.Type))))
}

func (m *worldMetrics) OnListChange(change ListChange) {
	list := attribute.String("list", string(change.List))
	if n := len(change.Added); n > 0 {
		m.listChanges.Add(context.Background(), int64(n), metric.WithAttributes(list, attribute.String("change", "added")))
	}
	if n := len(change.Removed); n > 0 {
		m.listChanges.Add(context.Background(), int64(n), metric.WithAttributes(list, attribute.String("change", "removed")))
	}
}
