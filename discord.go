package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type DiscordChannel struct {
	session   *discordgo.Session
	channelID string
	inbound   chan InboundMessage
	botUserID string
	cfg       *Config
}

func NewDiscordChannel(token, channelID string, cfg *Config) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discordgo session: %w", err)
	}

	dc := &DiscordChannel{
		session:   session,
		channelID: channelID,
		inbound:   make(chan InboundMessage, 100),
		cfg:       cfg,
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(dc.onMessage)

	return dc, nil
}

func (dc *DiscordChannel) Name() string { return "Discord" }

func (dc *DiscordChannel) Start(ctx context.Context) error {
	if err := dc.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	dc.botUserID = dc.session.State.User.ID
	log.Printf("discord bot connected as %s", dc.session.State.User.Username)

	<-ctx.Done()
	return dc.session.Close()
}

func (dc *DiscordChannel) Send(ctx context.Context, event ChatEvent) error {
	if !dc.cfg.discordEventAllowed(string(event.Type)) {
		return nil
	}

	msg := formatChatEvent(event)
	if msg == "" {
		return nil
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to Discord: %w", err)
	}
	return nil
}

func (dc *DiscordChannel) Messages() <-chan InboundMessage { return dc.inbound }

func (dc *DiscordChannel) Close() error {
	return dc.session.Close()
}

func (dc *DiscordChannel) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.Author.ID == dc.botUserID {
		return
	}
	if m.ChannelID != dc.channelID {
		return
	}
	if m.Content == "" {
		return
	}

	author := m.Author.GlobalName
	if author == "" {
		author = m.Author.Username
	}

	select {
	case dc.inbound <- InboundMessage{Source: "Discord", Author: author, Content: m.Content}:
	default:
		log.Printf("discord: inbound queue full, dropping message from %s", author)
	}
}

func formatChatEvent(e ChatEvent) string {
	switch e.Type {
	case ChatMessage:
		return fmt.Sprintf("💬 **%s**: %s", escapeMarkdown(e.Name), e.Message)
	case ChatJoin:
		return fmt.Sprintf("➡️ **%s** joined the world", escapeMarkdown(e.Name))
	case ChatLeave:
		return fmt.Sprintf("⬅️ **%s** left the world", escapeMarkdown(e.Name))
	default:
		return ""
	}
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "~", `\~`, "|", `\|`)

// escapeMarkdown keeps player names from being rendered as Discord formatting.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
