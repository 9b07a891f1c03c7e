package main

import (
	"context"
	"log"
	"maps"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
)

const joinCountsKey = "joins"

// messagesExtension sends configured join, leave, trigger and announcement
// messages. Players' join counts are kept in the extension's storage.
type messagesExtension struct {
	cfg      MessagesConfig
	ex       *Extension
	world    *World
	triggers []compiledTrigger

	mu    sync.Mutex
	joins map[string]int
	next  int // next announcement
}

type compiledTrigger struct {
	rule    TriggerRule
	pattern *regexp.Regexp
}

// newMessagesExtension returns the initializer registered as "messages".
func newMessagesExtension(cfg MessagesConfig) ExtensionFunc {
	return func(ex *Extension, w *World) error {
		m := &messagesExtension{
			cfg:   cfg,
			ex:    ex,
			world: w,
			joins: make(map[string]int),
		}
		if _, err := ex.Storage.GetObject(joinCountsKey, &m.joins); err != nil {
			return err
		}
		for _, rule := range cfg.Trigger {
			re, err := compileTrigger(rule.Trigger, cfg.RegexTriggers)
			if err != nil {
				log.Printf("messages: skipping trigger %q: %v", rule.Trigger, err)
				continue
			}
			m.triggers = append(m.triggers, compiledTrigger{rule: rule, pattern: re})
		}

		ex.On(ChatJoin, m.onJoin)
		ex.On(ChatLeave, m.onLeave)
		ex.OnMessage(m.onMessage)
		ex.Exports["joins"] = m.Joins

		ctx, cancel := context.WithCancel(context.Background())
		if len(cfg.Announcements) > 0 && cfg.AnnouncementInterval > 0 {
			go m.runAnnouncements(ctx)
		}
		ex.OnRemove = cancel
		ex.OnUninstall = func() {
			cancel()
			if err := ex.Bot.Storage.ClearNamespace(ex.ID); err != nil {
				log.Printf("messages: uninstall: %v", err)
			}
		}
		return nil
	}
}

// compileTrigger builds a case-insensitive matcher. Without regex mode only
// "*" is special and matches any run of characters.
func compileTrigger(trigger string, regex bool) (*regexp.Regexp, error) {
	if !regex {
		trigger = strings.ReplaceAll(regexp.QuoteMeta(trigger), `\*`, ".*")
	}
	return regexp.Compile("(?i)" + trigger)
}

// Joins reports how many times name has joined.
func (m *messagesExtension) Joins(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joins[name]
}

func (m *messagesExtension) onJoin(e ChatEvent) {
	m.mu.Lock()
	m.joins[e.Name]++
	snapshot := maps.Clone(m.joins)
	m.mu.Unlock()
	if err := m.ex.Storage.Set(joinCountsKey, snapshot); err != nil {
		log.Printf("messages: save joins: %v", err)
	}

	for _, rule := range m.cfg.Join {
		if m.applies(rule, e.Name) {
			m.send(rule.Message, e.Name)
		}
	}
}

func (m *messagesExtension) onLeave(e ChatEvent) {
	for _, rule := range m.cfg.Leave {
		if m.applies(rule, e.Name) {
			m.send(rule.Message, e.Name)
		}
	}
}

func (m *messagesExtension) onMessage(name, message string) {
	allowed := m.cfg.MaxResponses
	if allowed <= 0 {
		allowed = math.MaxInt
	}
	for _, t := range m.triggers {
		if allowed == 0 {
			return
		}
		if m.applies(t.rule.MessageRule, name) && t.pattern.MatchString(message) {
			m.send(t.rule.Message, name)
			allowed--
		}
	}
}

func (m *messagesExtension) runAnnouncements(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.AnnouncementInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.announce(ctx)
		}
	}
}

// announce sends the next announcement, cycling through the list.
func (m *messagesExtension) announce(ctx context.Context) {
	if len(m.cfg.Announcements) == 0 {
		return
	}
	m.mu.Lock()
	msg := m.cfg.Announcements[m.next%len(m.cfg.Announcements)]
	m.next++
	m.mu.Unlock()
	m.world.Send(ctx, msg, nil)
}

func (m *messagesExtension) send(message, name string) {
	m.world.Send(context.Background(), message, map[string]string{"name": name})
}

func (m *messagesExtension) applies(rule MessageRule, name string) bool {
	joins := m.Joins(name)
	high := rule.JoinsHigh
	if high == 0 {
		high = math.MaxInt
	}
	if joins < rule.JoinsLow || joins > high {
		return false
	}
	if !m.inGroup(name, rule.Group, true) {
		return false
	}
	return !m.inGroup(name, rule.NotGroup, false)
}

// inGroup checks membership of a rule group; an empty group means emptyMeans.
func (m *messagesExtension) inGroup(name, group string, emptyMeans bool) bool {
	switch strings.ToLower(group) {
	case "":
		return emptyMeans
	case "all":
		return true
	case "nobody":
		return false
	case "admin":
		return m.world.List(Adminlist).Contains(name)
	case "mod":
		return m.world.List(Modlist).Contains(name)
	case "staff":
		return m.world.List(Adminlist).Contains(name) || m.world.List(Modlist).Contains(name)
	default:
		log.Printf("messages: unknown group %q", group)
		return false
	}
}
