package main

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"
	"time"
)

type fakePods struct {
	pod     string
	streams []string
	since   []time.Time
}

func (f *fakePods) FindPod(context.Context, string) (string, error) { return f.pod, nil }

func (f *fakePods) StreamLogs(_ context.Context, _ string, since time.Time) (io.ReadCloser, error) {
	f.since = append(f.since, since)
	body := f.streams[0]
	f.streams = f.streams[1:]
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestPodLogsResumesWithoutDuplicates(t *testing.T) {
	pods := &fakePods{
		pod: "world-0",
		streams: []string{
			"2024-01-01T00:00:01.000000001Z Player Connected BIB | 1.2.3.4 | abcdefghijklmnopqrstuvwxyz123456\n" +
				"2024-01-01T00:00:02.000000001Z BIB: Hello!\n",
			"2024-01-01T00:00:02.000000001Z BIB: Hello!\n" +
				"2024-01-01T00:00:03.000000001Z 2017-02-07 16:31:37.123 BlockheadsServer[1:2] BIB: again\n",
		},
	}
	pl := NewPodLogs("app=world", pods)
	ctx := context.Background()

	if err := pl.tail(ctx); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if err := pl.tail(ctx); err != nil {
		t.Fatalf("tail: %v", err)
	}

	lines, err := pl.Logs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Player Connected BIB | 1.2.3.4 | abcdefghijklmnopqrstuvwxyz123456",
		"BIB: Hello!",
		"BIB: again",
	}
	if !slices.Equal(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	if !pods.since[0].IsZero() || pods.since[1].IsZero() {
		t.Fatalf("second stream should resume from last timestamp, since = %v", pods.since)
	}
	if again, _ := pl.Logs(ctx); len(again) != 0 {
		t.Fatalf("Logs should drain the buffer, got %q", again)
	}
}

func TestPodLogsBufferIsBounded(t *testing.T) {
	pl := NewPodLogs("app=world", &fakePods{})
	for i := 0; i < maxBufferedLines+5; i++ {
		pl.push("line")
	}
	lines, _ := pl.Logs(context.Background())
	if len(lines) != maxBufferedLines {
		t.Fatalf("buffered %d lines, want %d", len(lines), maxBufferedLines)
	}
}
