package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/gorcon/rcon"
)

// maxChatLength is the longest message the server accepts in one chat line.
const maxChatLength = 200

// RCONSender delivers chat to the world over a shared RCON connection,
// reconnecting once when the connection has gone stale.
type RCONSender struct {
	addr     string
	password string
	format   string // fmt verb %s receives the sanitized message

	mu   sync.Mutex
	conn *rcon.Conn
}

func NewRCONSender(host, port, password, format string) *RCONSender {
	if format == "" {
		format = "say %s"
	}
	return &RCONSender{
		addr:     net.JoinHostPort(host, port),
		password: password,
		format:   format,
	}
}

// Send implements Sender.
func (p *RCONSender) Send(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.Execute(fmt.Sprintf(p.format, sanitizeChat(message)))
	return err
}

// Execute runs an RCON command, reconnecting on failure.
func (p *RCONSender) Execute(cmd string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.getConn()
	if err != nil {
		return "", fmt.Errorf("rcon connect: %w", err)
	}

	resp, err := conn.Execute(cmd)
	if err != nil {
		p.dropConn()
		conn, err = p.getConn()
		if err != nil {
			return "", fmt.Errorf("rcon reconnect: %w", err)
		}
		resp, err = conn.Execute(cmd)
		if err != nil {
			p.dropConn()
			return "", fmt.Errorf("rcon execute after reconnect: %w", err)
		}
	}
	return resp, nil
}

func (p *RCONSender) getConn() (*rcon.Conn, error) {
	if p.conn != nil {
		return p.conn, nil
	}
	conn, err := rcon.Dial(p.addr, p.password, rcon.SetMaxCommandLen(4096))
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *RCONSender) dropConn() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *RCONSender) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// sanitizeChat flattens a message to one line and caps its length.
func sanitizeChat(msg string) string {
	msg = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(msg)
	if r := []rune(msg); len(r) > maxChatLength {
		msg = string(r[:maxChatLength]) + "..."
	}
	return msg
}

// logSender is used when no outbound transport is configured.
type logSender struct{}

func (logSender) Send(_ context.Context, message string) error {
	log.Printf("outbound chat dropped (no sender configured): %s", message)
	return nil
}
