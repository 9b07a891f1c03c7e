package main

import (
	"context"
	"strings"
	"time"

	otellog "go.opentelemetry.io/otel/log"
)

// OTelLogSubscriber exports world events as structured OTel log records.
type OTelLogSubscriber struct {
	logger otellog.Logger
	cfg    *Config
}

func (s *OTelLogSubscriber) OnChatEvent(event ChatEvent) {
	if !s.cfg.otelEventAllowed(string(event.Type)) {
		return
	}

	var attrs []otellog.KeyValue
	if event.Name != "" {
		attrs = append(attrs, otellog.String("player", event.Name))
	}
	if event.IP != "" {
		attrs = append(attrs, otellog.String("ip", event.IP))
	}
	if event.Command != "" {
		attrs = append(attrs, otellog.String("command", event.Command), otellog.String("args", event.Args))
	}
	if event.Message != "" {
		attrs = append(attrs, otellog.String("message", event.Message))
	}

	s.emit(event.Time, string(event.Type), attrs...)
}

func (s *OTelLogSubscriber) OnListChange(change ListChange) {
	list := otellog.String("list", string(change.List))
	if len(change.Added) > 0 && s.cfg.otelEventAllowed("list_added") {
		s.emit(change.Time, "list_added", list, otellog.String("players", strings.Join(change.Added, "\n")))
	}
	if len(change.Removed) > 0 && s.cfg.otelEventAllowed("list_removed") {
		s.emit(change.Time, "list_removed", list, otellog.String("players", strings.Join(change.Removed, "\n")))
	}
}

func (s *OTelLogSubscriber) emit(ts time.Time, body string, attrs ...otellog.KeyValue) {
	var r otellog.Record
	r.SetTimestamp(ts)
	r.SetBody(otellog.StringValue(body))
	r.AddAttributes(attrs...)
	s.logger.Emit(context.Background(), r)
}
