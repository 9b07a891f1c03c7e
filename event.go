package main

import "time"

// ChatType identifies which variant a ChatEvent holds.
type ChatType string

const (
	ChatJoin    ChatType = "join"
	ChatLeave   ChatType = "leave"
	ChatCommand ChatType = "command"
	ChatMessage ChatType = "message"
	ChatOther   ChatType = "other"
)

// ChatEvent is one typed event parsed from a world log line.
// Only the fields relevant to Type are set.
type ChatEvent struct {
	Type    ChatType
	Name    string // join, leave, command, message
	IP      string // join
	Command string // command, without the leading slash
	Args    string // command
	Message string // message: chat text; other: the raw line
	Time    time.Time
}

// ListKind names one of the externally edited access-control lists.
type ListKind string

const (
	Whitelist ListKind = "whitelist"
	Blacklist ListKind = "blacklist"
	Adminlist ListKind = "adminlist"
	Modlist   ListKind = "modlist"
)

// listKinds is the fixed order list changes are dispatched in.
var listKinds = []ListKind{Whitelist, Modlist, Blacklist, Adminlist}

// ListChange reports names added to or removed from a list between two polls.
type ListChange struct {
	List    ListKind
	Added   []string
	Removed []string
	Time    time.Time
}

// Subscriber receives chat events from a World.
type Subscriber interface {
	OnChatEvent(event ChatEvent)
}

// ListSubscriber is implemented by subscribers that also want list changes.
type ListSubscriber interface {
	OnListChange(change ListChange)
}

// ChatHandler adapts a plain function to Subscriber.
type ChatHandler func(ChatEvent)

func (h ChatHandler) OnChatEvent(event ChatEvent) { h(event) }

// ListHandler adapts a plain function to ListSubscriber. It ignores chat events.
type ListHandler func(ListChange)

func (h ListHandler) OnChatEvent(ChatEvent) {}
func (h ListHandler) OnListChange(change ListChange) { h(change) }

// InboundMessage represents a message from an external channel destined for the world.
type InboundMessage struct {
	Source  string // Channel name (e.g., "Discord")
	Author  string
	Content string
}
