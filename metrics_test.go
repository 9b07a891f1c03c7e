package main

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectInt64 returns the value of every data point of an int64 sum or gauge,
// keyed by metric name and rendered attributes.
func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]int64{}
	key := func(name string, set attribute.Set) string {
		k := name
		for _, kv := range set.ToSlice() {
			k += " " + string(kv.Key) + "=" + kv.Value.Emit()
		}
		return k
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[key(m.Name, dp.Attributes)] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[key(m.Name, dp.Attributes)] = dp.Value
				}
			}
		}
	}
	return out
}

func TestWorldMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	meter := provider.Meter("test")

	m, err := newWorldMetrics(meter)
	if err != nil {
		t.Fatal(err)
	}
	api := newFakeWorld()
	w := startedWorld(t, api, m.options(WorldOptions{}))
	if err := m.observeOnline(meter, w); err != nil {
		t.Fatal(err)
	}
	w.Subscribe(m)
	w.Subscribe(panicker{})

	api.queue(
		"Player Connected BIB | 1.2.3.4 | abcdefghijklmnopqrstuvwxyz123456",
		"BIB: Hello!",
	)
	api.lists[Blacklist] = []string{"X", "Y"}
	if err := w.Poll(context.Background()); err != nil {
		t.Fatal(err)
	}
	api.logErr = errors.New("busy")
	w.Poll(context.Background())
	api.sendErr = errors.New("down")
	w.Send(context.Background(), "hi", nil)

	got := collectInt64(t, reader)
	want := map[string]int64{
		"messagebot.chat.events type=join":                    1,
		"messagebot.chat.events type=message":                 1,
		"messagebot.list.changes change=added list=blacklist": 2,
		"messagebot.poll.errors kind=logs":                    1,
		"messagebot.subscriber.faults":                        2,
		"messagebot.send.errors":                              1,
		"messagebot.players.online":                           1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d (all: %v)", k, got[k], v, got)
		}
	}
}
