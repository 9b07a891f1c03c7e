package main

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// memoryExporter keeps exported records as "body key=value ..." strings.
type memoryExporter struct {
	mu      sync.Mutex
	records []string
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		line := r.Body().AsString()
		r.WalkAttributes(func(kv otellog.KeyValue) bool {
			line += " " + kv.Key + "=" + kv.Value.AsString()
			return true
		})
		e.records = append(e.records, line)
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func TestOTelLogSubscriber(t *testing.T) {
	exp := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	defer provider.Shutdown(context.Background())

	cfg := Config{OTel: OTelConfig{Events: []interface{}{"join", "command", "list_removed"}}}
	sub := &OTelLogSubscriber{logger: provider.Logger("test"), cfg: &cfg}

	now := time.Now()
	sub.OnChatEvent(ChatEvent{Type: ChatJoin, Name: "BIB", IP: "1.2.3.4", Time: now})
	sub.OnChatEvent(ChatEvent{Type: ChatMessage, Name: "BIB", Message: "filtered", Time: now})
	sub.OnChatEvent(ChatEvent{Type: ChatCommand, Name: "BIB", Command: "ban", Args: "X", Time: now})
	sub.OnListChange(ListChange{List: Whitelist, Added: []string{"A"}, Removed: []string{"B", "C"}, Time: now})

	want := []string{
		"join player=BIB ip=1.2.3.4",
		"command player=BIB command=ban args=X",
		"list_removed list=whitelist players=B\nC",
	}
	exp.mu.Lock()
	defer exp.mu.Unlock()
	if !slices.Equal(exp.records, want) {
		t.Fatalf("records = %q, want %q", exp.records, want)
	}
}
