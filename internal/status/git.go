package status

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileMetadata is the version-control view of one file.
type FileMetadata struct {
	LastModified time.Time `json:"lastModified"`
	Author       string    `json:"author,omitempty"`
}

// MetadataSource reports when files last changed. Files without history are
// left out of the result.
type MetadataSource interface {
	LastModified(ctx context.Context, files []string) (map[string]FileMetadata, error)
}

var _ MetadataSource = (*GitMetadata)(nil)

// GitMetadata reads commit dates with git log.
type GitMetadata struct {
	RepoDir     string
	Concurrency int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// NewGitMetadata returns a git source for the repository at repoDir.
func NewGitMetadata(repoDir string) *GitMetadata {
	return &GitMetadata{RepoDir: repoDir, Concurrency: 8, Timeout: 30 * time.Second}
}

// LastModified runs one git log per file, at most Concurrency at a time.
func (g *GitMetadata) LastModified(ctx context.Context, files []string) (map[string]FileMetadata, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := g.Concurrency
	if limit <= 0 {
		limit = 8
	}

	var mu sync.Mutex
	out := make(map[string]FileMetadata, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for _, f := range files {
		eg.Go(func() error {
			line, err := g.run(egCtx, "log", "-1", "--format=%cI%x1f%an", "--", f)
			if err != nil {
				return err
			}
			if line == "" {
				logger.Debug("no git history", "file", f)
				return nil
			}
			meta, err := parseLogLine(line)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			mu.Lock()
			out[f] = meta
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLogLine(line string) (FileMetadata, error) {
	date, author, _ := strings.Cut(line, "\x1f")
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(date))
	if err != nil {
		return FileMetadata{}, fmt.Errorf("parse commit date %q: %w", date, err)
	}
	return FileMetadata{LastModified: ts, Author: strings.TrimSpace(author)}, nil
}

func (g *GitMetadata) run(ctx context.Context, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.RepoDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
