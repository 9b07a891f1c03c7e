package main

import (
	"context"
	"log"
	"strings"
)

// BridgeSubscriber forwards world chat events to the Bridge's event channel.
type BridgeSubscriber struct {
	events chan<- ChatEvent
}

func (s *BridgeSubscriber) OnChatEvent(event ChatEvent) {
	switch event.Type {
	case ChatJoin, ChatLeave, ChatMessage:
	default:
		return
	}
	select {
	case s.events <- event:
	default:
		// Drop event if channel is full (dispatch must not block on slow channels)
	}
}

// worldSender is the part of World the bridge relays inbound chat through.
type worldSender interface {
	Send(ctx context.Context, message string, params map[string]string)
}

// Bridge fans out world events to all channels and relays inbound messages
// into the world.
type Bridge struct {
	world    worldSender
	channels []Channel
	events   chan ChatEvent
}

func NewBridge(world worldSender, channels []Channel) *Bridge {
	return &Bridge{
		world:    world,
		channels: channels,
		events:   make(chan ChatEvent, 100),
	}
}

// Subscriber returns the World subscriber feeding this bridge.
func (b *Bridge) Subscriber() *BridgeSubscriber {
	return &BridgeSubscriber{events: b.events}
}

// FanOutEvents reads events and sends them to all channels.
func (b *Bridge) FanOutEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			for _, ch := range b.channels {
				if err := ch.Send(ctx, event); err != nil {
					log.Printf("send to %s: %v", ch.Name(), err)
				}
			}
		}
	}
}

// HandleInbound reads messages from a channel and sends them to the world.
func (b *Bridge) HandleInbound(ctx context.Context, ch Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch.Messages():
			b.relay(ctx, msg)
		}
	}
}

func (b *Bridge) relay(ctx context.Context, msg InboundMessage) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}
	// a leading slash would run as a command in the world
	content = strings.TrimLeft(content, "/")
	// Values go through params so braces typed by the author stay literal.
	b.world.Send(ctx, "[{{source}}] {{author}}: {{content}}", map[string]string{
		"source":  msg.Source,
		"author":  msg.Author,
		"content": content,
	})
}
