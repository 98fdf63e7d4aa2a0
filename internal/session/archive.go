package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ArchiveSink receives actions truncated from a session's log.
type ArchiveSink interface {
	Archive(ctx context.Context, sessionID string, actions []Action) error
}

// FileArchive appends archived actions to one JSONL file per session.
//
// File format:
//
//	{"_type":"archive","session":"…","archived_at":"…","count":N}
//	one JSON action object per line (N lines)
//
// Each Archive call appends a header line followed by its actions.
type FileArchive struct {
	dir string
	mu  sync.Mutex
}

// NewFileArchive creates a FileArchive rooted at dir, creating it if necessary.
func NewFileArchive(dir string) (*FileArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

func (a *FileArchive) Dir() string { return a.dir }

// Archive appends actions for sessionID. An empty batch writes nothing.
func (a *FileArchive) Archive(ctx context.Context, sessionID string, actions []Action) error {
	if len(actions) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := map[string]any{
		"_type":       "archive",
		"session":     sessionID,
		"archived_at": time.Now().UTC().Format(time.RFC3339),
		"count":       len(actions),
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("encode archive header: %w", err)
	}
	for _, act := range actions {
		if err := enc.Encode(act); err != nil {
			return fmt.Errorf("encode action %s: %w", act.ID, err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.path(sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write archive %s: %w", path, err)
	}
	return f.Close()
}

// Read returns every archived action for sessionID, oldest first.
// A session with no archive yields an empty slice.
func (a *FileArchive) Read(sessionID string) ([]Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var out []Action
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || bytes.Contains(line, []byte(`"_type":"archive"`)) {
			continue
		}
		var act Action
		if err := json.Unmarshal(line, &act); err != nil {
			slog.Warn("skipping malformed archive line", "session", sessionID, "err", err)
			continue
		}
		out = append(out, act)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read archive: %w", err)
	}
	return out, nil
}

func (a *FileArchive) path(sessionID string) string {
	return filepath.Join(a.dir, safeFilename(strings.ReplaceAll(sessionID, ":", "_"))+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) || (r == '.' && b.Len() == 0) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
