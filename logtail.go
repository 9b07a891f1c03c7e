package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// maxBufferedLines bounds how many pod log lines are held between polls.
const maxBufferedLines = 10000

type podLogStreamer interface {
	FindPod(ctx context.Context, labelSelector string) (string, error)
	StreamLogs(ctx context.Context, podName string, since time.Time) (io.ReadCloser, error)
}

// PodLogs follows the game server pod's output in the background and hands
// the buffered lines to the World on each poll.
type PodLogs struct {
	podLabel string
	k8s      podLogStreamer
	retry    time.Duration
	lastPod  string
	since    time.Time

	mu      sync.Mutex
	lines   []string
	dropped int
}

func NewPodLogs(podLabel string, k8s podLogStreamer) *PodLogs {
	return &PodLogs{
		podLabel: podLabel,
		k8s:      k8s,
		retry:    10 * time.Second,
	}
}

// Run streams logs until ctx is done, reconnecting after errors.
func (t *PodLogs) Run(ctx context.Context) {
	for {
		if err := t.tail(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("log tail error: %v, retrying in %s", err, t.retry)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.retry):
		}
	}
}

func (t *PodLogs) tail(ctx context.Context) error {
	podName, err := t.k8s.FindPod(ctx, t.podLabel)
	if err != nil {
		return fmt.Errorf("find pod: %w", err)
	}
	if t.lastPod != podName {
		log.Printf("tailing logs from pod %s", podName)
		if t.lastPod != "" {
			t.since = time.Time{}
		}
		t.lastPod = podName
	}

	body, err := t.k8s.StreamLogs(ctx, podName, t.since)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		t.handle(scanner.Text())
	}
	return scanner.Err()
}

// handle buffers one "<RFC3339Nano timestamp> <line>" record, skipping lines
// already seen before a reconnect.
func (t *PodLogs) handle(record string) {
	line := record
	if stamp, rest, ok := strings.Cut(record, " "); ok {
		if ts, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			if !t.since.IsZero() && !ts.After(t.since) {
				return
			}
			t.since = ts
			line = rest
		}
	}
	t.push(stripLogPrefix(line))
}

func (t *PodLogs) push(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) >= maxBufferedLines {
		t.lines = t.lines[1:]
		t.dropped++
	}
	t.lines = append(t.lines, line)
}

// Logs implements LogReader by draining the buffer.
func (t *PodLogs) Logs(context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dropped > 0 {
		log.Printf("pod logs: dropped %d lines between polls", t.dropped)
		t.dropped = 0
	}
	lines := t.lines
	t.lines = nil
	return lines, nil
}
