// Package audit persists the per-identity chat transcript as an
// append-only UTF-8 text file, one `[timestamp] role: content` entry per
// turn. There is no rotation or retention policy.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

const timeLayout = "02-01-2006 15:04:05"

type Config struct {
	Dir string `envconfig:"DIR" split_words:"true" default:"assets/chat_history"`
}

type Log struct {
	dir string
	now func() time.Time
}

func NewLog(cfg Config, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{dir: cfg.Dir, now: now}
}

var _ contractx.AuditLog = (*Log)(nil)

// Append writes one entry to the identity's transcript file, creating the
// directory and file on first use.
func (l *Log) Append(ctx context.Context, identity string, role contractx.Role, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := l.path(identity)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] %s: %s\n\n", l.now().Format(timeLayout), role, content)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Read returns the identity's raw transcript. A missing file reads as an
// empty transcript.
func (l *Log) Read(identity string) (string, error) {
	raw, err := os.ReadFile(l.path(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read audit log: %w", err)
	}
	return string(raw), nil
}

func (l *Log) path(identity string) string {
	name := strings.ToLower(strings.TrimSpace(identity))
	return filepath.Join(l.dir, name+".txt")
}
