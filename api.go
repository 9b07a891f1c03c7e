package main

import (
	"context"
	"errors"
)

// ErrWorldGone is returned by a platform adapter when the world it serves no
// longer exists. A World that sees it stops watching.
var ErrWorldGone = errors.New("world is gone")

// ListReader reads one access-control list, without its instructional header.
// An error means the list could not be read this time; an empty slice with a
// nil error means the list is empty.
type ListReader interface {
	ReadList(ctx context.Context, kind ListKind) ([]string, error)
}

// LogReader returns the raw log lines written since the previous call.
type LogReader interface {
	Logs(ctx context.Context) ([]string, error)
}

// Sender injects a chat message into the world.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// WorldAPI is everything a World needs from the platform it runs on.
type WorldAPI interface {
	ListReader
	LogReader
	Sender
}

// Platform assembles a WorldAPI from independent sources, so that e.g. lists
// can come from the world directory while logs come from a pod.
type Platform struct {
	ListReader
	LogReader
	Sender
}
