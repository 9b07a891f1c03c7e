package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// listHeaderLines is the number of instructional lines at the top of every list file.
const listHeaderLines = 2

// WorldDir reads access-control lists from a world save directory.
type WorldDir struct {
	path string
}

func NewWorldDir(path string) *WorldDir {
	return &WorldDir{path: strings.TrimSuffix(path, "/")}
}

// Check verifies the directory looks like a world save.
func (d *WorldDir) Check() error {
	for _, kind := range listKinds {
		if _, err := os.Stat(d.listPath(kind)); err != nil {
			return fmt.Errorf("invalid world path %s: %w", d.path, err)
		}
	}
	return nil
}

func (d *WorldDir) ReadList(ctx context.Context, kind ListKind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.listPath(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Stat(d.path); errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", d.path, ErrWorldGone)
			}
		}
		return nil, err
	}
	return parseListFile(data), nil
}

func (d *WorldDir) listPath(kind ListKind) string {
	return filepath.Join(d.path, string(kind)+".txt")
}

func parseListFile(data []byte) []string {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) <= listHeaderLines {
		return []string{}
	}
	names := make([]string, 0, len(lines)-listHeaderLines)
	for _, l := range lines[listHeaderLines:] {
		if l = strings.TrimSpace(l); l != "" {
			names = append(names, l)
		}
	}
	return names
}

// serverLogPrefix matches the timestamp and process tag the server writes
// before every message, e.g. "2017-02-07 16:31:37.123 BlockheadsServer[2227:1432873] ".
var serverLogPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)? \S+\[\d+(?::\d+)?\] `)

func stripLogPrefix(line string) string {
	if loc := serverLogPrefix.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}

// LogFile tails a server log file. The first call to Logs only records the
// current end of the file; later calls return complete lines appended since.
type LogFile struct {
	path string

	mu      sync.Mutex
	offset  int64
	started bool
	partial []byte
}

func NewLogFile(path string) *LogFile {
	return &LogFile{path: path}
}

func (f *LogFile) Logs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if !f.started {
		f.started = true
		f.offset = info.Size()
		return nil, nil
	}
	if info.Size() < f.offset {
		// rotated or truncated
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	f.offset += int64(len(data))

	data = append(f.partial, data...)
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		f.partial = data
		return nil, nil
	}
	f.partial = append([]byte(nil), data[end+1:]...)

	var lines []string
	for _, l := range strings.Split(string(data[:end]), "\n") {
		l = strings.TrimRight(l, "\r")
		if l == "" {
			continue
		}
		lines = append(lines, stripLogPrefix(l))
	}
	return lines, nil
}
