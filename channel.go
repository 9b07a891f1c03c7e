package main

import "context"

// Channel abstracts an external chat platform the world is bridged to.
type Channel interface {
	Name() string
	Send(ctx context.Context, event ChatEvent) error
	Messages() <-chan InboundMessage
	Start(ctx context.Context) error
	Close() error
}
