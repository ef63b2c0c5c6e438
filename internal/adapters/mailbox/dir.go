package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/senderfilter"
	"go.uber.org/zap"
)

// DirMailbox reads .eml files from a local directory, newest first
type DirMailbox struct {
	dir    string
	filter *senderfilter.Checker
	logger *zap.Logger
}

// NewDirMailbox creates a mailbox over dir
func NewDirMailbox(dir string, filter *senderfilter.Checker, logger *zap.Logger) *DirMailbox {
	return &DirMailbox{dir: dir, filter: filter, logger: logger}
}

// ListRecent parses up to limit messages. A non-positive limit reads them all.
// Files that fail to parse are logged and skipped.
func (m *DirMailbox) ListRecent(ctx context.Context, limit int) ([]core.RawEmail, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail directory: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(m.dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].modTime != files[j].modTime {
			return files[i].modTime > files[j].modTime
		}
		return files[i].path < files[j].path
	})

	var emails []core.RawEmail
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return emails, err
		}
		if limit > 0 && len(emails) >= limit {
			break
		}

		email, err := ReadFile(f.path)
		if err != nil {
			m.logger.Warn("Skipping unreadable message", zap.String("path", f.path), zap.Error(err))
			continue
		}
		if m.filter.IsIgnored(email.From) {
			continue
		}
		emails = append(emails, email)
	}

	m.logger.Debug("Read messages from directory",
		zap.String("dir", m.dir),
		zap.Int("count", len(emails)))

	return emails, nil
}

// ReadFile parses a single .eml file. The file name stands in for a missing Message-Id.
func ReadFile(path string) (core.RawEmail, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.RawEmail{}, fmt.Errorf("failed to open message: %w", err)
	}
	defer f.Close()

	email, err := ParseMessage(f)
	if err != nil {
		return core.RawEmail{}, err
	}
	if email.ID == "" {
		email.ID = filepath.Base(path)
	}
	return email, nil
}

var _ core.Mailbox = (*DirMailbox)(nil)
