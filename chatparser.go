package main

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	joinPattern  = regexp.MustCompile(`^Player Connected (.+) \| ([^\s|]+) \| ([0-9A-Za-z]+)$`)
	leavePattern = regexp.MustCompile(`^Player Disconnected (.+)$`)
)

const (
	// serverName is the sender used for server announcements.
	serverName = "SERVER"
	// maxNameLength bounds a sender guessed without the online list.
	maxNameLength = 15
	nameSeparator = ": "
)

// NameSet is the read-only view of the online roster the parser needs.
type NameSet interface {
	Contains(name string) bool
}

// ParseLine converts one log line into chat events. It never mutates online;
// join and leave events tell the caller how to update the roster.
// Lines that match no known shape yield a single ChatOther event.
func ParseLine(line string, online NameSet) []ChatEvent {
	if m := joinPattern.FindStringSubmatch(line); m != nil {
		return []ChatEvent{{Type: ChatJoin, Name: m[1], IP: m[2]}}
	}
	if m := leavePattern.FindStringSubmatch(line); m != nil {
		if !online.Contains(m[1]) {
			return otherEvent(line)
		}
		return []ChatEvent{{Type: ChatLeave, Name: m[1]}}
	}

	name, body, ok := splitSender(line, online)
	if !ok || name == serverName {
		return otherEvent(line)
	}

	if strings.HasPrefix(body, "/") {
		if fields := strings.Fields(body[1:]); len(fields) > 0 {
			return []ChatEvent{
				{Type: ChatCommand, Name: name, Command: fields[0], Args: strings.Join(fields[1:], " ")},
				{Type: ChatMessage, Name: name, Message: body},
			}
		}
	}
	return []ChatEvent{{Type: ChatMessage, Name: name, Message: body}}
}

// splitSender finds the sender of a "NAME: text" line. Names may contain the
// separator, so every separator position is a candidate. The longest candidate
// that is online wins; then the SERVER sender; failing both, the longest
// candidate that could be a name at all.
func splitSender(line string, online NameSet) (name, body string, ok bool) {
	var cuts []int
	for i := 0; ; {
		j := strings.Index(line[i:], nameSeparator)
		if j < 0 {
			break
		}
		cuts = append(cuts, i+j)
		i += j + len(nameSeparator)
	}

	for k := len(cuts) - 1; k >= 0; k-- {
		if online.Contains(line[:cuts[k]]) {
			return line[:cuts[k]], line[cuts[k]+len(nameSeparator):], true
		}
	}
	if body, found := strings.CutPrefix(line, serverName+nameSeparator); found {
		return serverName, body, true
	}
	for k := len(cuts) - 1; k >= 0; k-- {
		if validName(line[:cuts[k]]) {
			return line[:cuts[k]], line[cuts[k]+len(nameSeparator):], true
		}
	}
	return "", "", false
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= maxNameLength && strings.TrimSpace(name) == name
}

func otherEvent(line string) []ChatEvent {
	return []ChatEvent{{Type: ChatOther, Message: line}}
}
