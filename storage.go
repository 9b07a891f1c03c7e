package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Storage is a namespaced key/value store for extensions. Values are stored as JSON.
type Storage interface {
	GetString(key, fallback string) string
	// GetObject decodes the value at key into dst and reports whether it existed.
	GetObject(key string, dst any) (bool, error)
	Set(key string, value any) error
	// Prefix returns a view of the store whose keys live under namespace.
	Prefix(namespace string) Storage
	// ClearNamespace deletes every key under namespace.
	ClearNamespace(namespace string) error
}

// SQLiteStorage keeps all namespaces in one sqlite key/value table.
type SQLiteStorage struct {
	db     *sql.DB
	prefix string
}

func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("empty storage path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(1)

	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) key(k string) string {
	return s.prefix + k
}

func (s *SQLiteStorage) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, s.key(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", s.key(key), err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) GetString(key, fallback string) string {
	raw, ok, err := s.get(key)
	if err != nil {
		log.Printf("storage: %v", err)
		return fallback
	}
	if !ok {
		return fallback
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

func (s *SQLiteStorage) GetObject(key string, dst any) (bool, error) {
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.key(key), err)
	}
	return true, nil
}

func (s *SQLiteStorage) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key(key), err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.key(key), string(data),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", s.key(key), err)
	}
	return nil
}

func (s *SQLiteStorage) Prefix(namespace string) Storage {
	return &SQLiteStorage{db: s.db, prefix: s.prefix + namespace + "/"}
}

func (s *SQLiteStorage) ClearNamespace(namespace string) error {
	ns := s.prefix + namespace + "/"
	_, err := s.db.Exec(`DELETE FROM kv WHERE substr(key, 1, length(?1)) = ?1`, ns)
	if err != nil {
		return fmt.Errorf("clear %s: %w", strings.TrimSuffix(ns, "/"), err)
	}
	return nil
}
