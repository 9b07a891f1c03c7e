package main

import (
	"slices"
	"testing"
)

func rosterOf(names ...string) *OnlineRoster {
	r := NewOnlineRoster()
	for _, n := range names {
		r.Add(n)
	}
	return r
}

func hasEvent(events []ChatEvent, want ChatEvent) bool {
	return slices.Contains(events, want)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		online []string
		want   []ChatEvent
	}{
		{
			name: "join",
			line: "Player Connected BIB | 0.0.0.0 | abcdefghijklmnopqrstuvwxyz123456",
			want: []ChatEvent{{Type: ChatJoin, Name: "BIB", IP: "0.0.0.0"}},
		},
		{
			name: "join name with separator",
			line: "Player Connected A | B | 10.1.2.3 | abcdefghijklmnopqrstuvwxyz123456",
			want: []ChatEvent{{Type: ChatJoin, Name: "A | B", IP: "10.1.2.3"}},
		},
		{
			name:   "leave online player",
			line:   "Player Disconnected BIB",
			online: []string{"BIB"},
			want:   []ChatEvent{{Type: ChatLeave, Name: "BIB"}},
		},
		{
			name: "leave unknown player",
			line: "Player Disconnected BIB2",
			want: []ChatEvent{{Type: ChatOther, Message: "Player Disconnected BIB2"}},
		},
		{
			name:   "chat",
			line:   "BIB: Hello!",
			online: []string{"BIB"},
			want:   []ChatEvent{{Type: ChatMessage, Name: "BIB", Message: "Hello!"}},
		},
		{
			name: "chat from player missing from roster",
			line: "BIB: Hello!",
			want: []ChatEvent{{Type: ChatMessage, Name: "BIB", Message: "Hello!"}},
		},
		{
			name: "command without args",
			line: "BIB: /help",
			want: []ChatEvent{
				{Type: ChatCommand, Name: "BIB", Command: "help", Args: ""},
				{Type: ChatMessage, Name: "BIB", Message: "/help"},
			},
		},
		{
			name: "command with args",
			line: "BIB2: /ban test",
			want: []ChatEvent{
				{Type: ChatCommand, Name: "BIB2", Command: "ban", Args: "test"},
				{Type: ChatMessage, Name: "BIB2", Message: "/ban test"},
			},
		},
		{
			name: "command args collapse whitespace",
			line: "BIB: /kick  a   b",
			want: []ChatEvent{
				{Type: ChatCommand, Name: "BIB", Command: "kick", Args: "a b"},
				{Type: ChatMessage, Name: "BIB", Message: "/kick  a   b"},
			},
		},
		{
			name: "lone slash is chat",
			line: "BIB: /",
			want: []ChatEvent{{Type: ChatMessage, Name: "BIB", Message: "/"}},
		},
		{
			name: "server chat",
			line: "SERVER: Hello!",
			want: []ChatEvent{{Type: ChatOther, Message: "SERVER: Hello!"}},
		},
		{
			name: "server chat containing separator",
			line: "SERVER: Note: restart soon",
			want: []ChatEvent{{Type: ChatOther, Message: "SERVER: Note: restart soon"}},
		},
		{
			name: "unrecognized",
			line: "PVP is now disabled",
			want: []ChatEvent{{Type: ChatOther, Message: "PVP is now disabled"}},
		},
		{
			name: "name too long",
			line: "QWERTYUIOPASDFGHJKLZXCVBNM: Message",
			want: []ChatEvent{{Type: ChatOther, Message: "QWERTYUIOPASDFGHJKLZXCVBNM: Message"}},
		},
		{
			name: "empty name",
			line: ": Message",
			want: []ChatEvent{{Type: ChatOther, Message: ": Message"}},
		},
		{
			name:   "online name containing separator",
			line:   "TEST: TEST: A: Hi",
			online: []string{"TEST: TEST"},
			want:   []ChatEvent{{Type: ChatMessage, Name: "TEST: TEST", Message: "A: Hi"}},
		},
		{
			name: "longest name when nobody matches",
			line: "TEST: TEST: A: Hi",
			want: []ChatEvent{{Type: ChatMessage, Name: "TEST: TEST: A", Message: "Hi"}},
		},
		{
			name:   "online names prefixing each other",
			line:   "A: B: hi",
			online: []string{"A", "A: B"},
			want:   []ChatEvent{{Type: ChatMessage, Name: "A: B", Message: "hi"}},
		},
		{
			name:   "online name beats longer guess",
			line:   "BIB: note: hi",
			online: []string{"BIB"},
			want:   []ChatEvent{{Type: ChatMessage, Name: "BIB", Message: "note: hi"}},
		},
		{
			name:   "online player named like server",
			line:   "SERVER: FAN: hi",
			online: []string{"SERVER: FAN"},
			want:   []ChatEvent{{Type: ChatMessage, Name: "SERVER: FAN", Message: "hi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line, rosterOf(tt.online...))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLineDoesNotMutateRoster(t *testing.T) {
	online := rosterOf("BIB")
	ParseLine("Player Connected NEW | 1.2.3.4 | abcdefghijklmnopqrstuvwxyz123456", online)
	ParseLine("Player Disconnected BIB", online)
	if !slices.Equal(online.Snapshot(), []string{"BIB"}) {
		t.Fatalf("parser mutated roster: %v", online.Snapshot())
	}
}

func TestParseLineKnownShapesNeverOther(t *testing.T) {
	online := rosterOf("BIB")
	lines := []string{
		"Player Connected BIB | 0.0.0.0 | abcdefghijklmnopqrstuvwxyz123456",
		"BIB: Hello!",
		"BIB: /help",
		"Player Disconnected BIB",
	}
	for _, line := range lines {
		for _, e := range ParseLine(line, online) {
			if e.Type == ChatOther {
				t.Fatalf("unexpected other event for %q", line)
			}
		}
	}
}

func TestParseLineChatIsNotCommand(t *testing.T) {
	events := ParseLine("BIB: Hello!", rosterOf())
	for _, e := range events {
		if e.Type == ChatCommand {
			t.Fatalf("plain chat parsed as command: %+v", e)
		}
	}
	if !hasEvent(events, ChatEvent{Type: ChatMessage, Name: "BIB", Message: "Hello!"}) {
		t.Fatalf("missing message event: %+v", events)
	}
}
