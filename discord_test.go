package main

import "testing"

func TestFormatChatEvent(t *testing.T) {
	tests := []struct {
		event ChatEvent
		want  string
	}{
		{ChatEvent{Type: ChatMessage, Name: "BIB", Message: "Hello!"}, "💬 **BIB**: Hello!"},
		{ChatEvent{Type: ChatJoin, Name: "A_B*"}, `➡️ **A\_B\*** joined the world`},
		{ChatEvent{Type: ChatLeave, Name: "BIB"}, "⬅️ **BIB** left the world"},
		{ChatEvent{Type: ChatOther, Message: "PVP is now disabled"}, ""},
		{ChatEvent{Type: ChatCommand, Name: "BIB", Command: "help"}, ""},
	}
	for _, tt := range tests {
		if got := formatChatEvent(tt.event); got != tt.want {
			t.Errorf("formatChatEvent(%+v) = %q, want %q", tt.event, got, tt.want)
		}
	}
}
