package host

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	modinput "github.com/shakeelmohamed/splunk-modinput-go"
)

// catalogEntry is one registered input: how to launch it and the scheme it
// advertised at registration time.
type catalogEntry struct {
	cmd    Command
	scheme *modinput.Scheme
}

// Catalog is a registry of available inputs keyed by their scheme title.
// Registration fetches and caches the scheme, so lookups never touch the
// binary again.
type Catalog struct {
	mu      sync.RWMutex
	runner  *Runner
	entries map[string]*catalogEntry
}

// NewCatalog creates an empty catalog driven by the given runner.
func NewCatalog(runner *Runner) *Catalog {
	if runner == nil {
		runner = NewRunner()
	}
	return &Catalog{
		runner:  runner,
		entries: make(map[string]*catalogEntry),
	}
}

// Register launches the binary once with --scheme and records it under the
// advertised title. Re-registering a title replaces the earlier entry.
func (c *Catalog) Register(ctx context.Context, cmd Command) (*modinput.Scheme, error) {
	scheme, err := c.runner.RequestScheme(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", cmd.Path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scheme.Title] = &catalogEntry{cmd: cmd, scheme: scheme}
	return scheme, nil
}

// Lookup returns the cached scheme and launch command for a title.
func (c *Catalog) Lookup(title string) (*modinput.Scheme, Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[title]
	if !ok {
		return nil, Command{}, false
	}
	return entry.scheme, entry.cmd, true
}

// Titles lists the registered scheme titles in sorted order.
func (c *Catalog) Titles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	titles := make([]string, 0, len(c.entries))
	for title := range c.entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// Discover walks a directory of input binaries and registers each
// executable whose scheme request succeeds. Failures are logged and
// skipped; the walk itself failing is the only error.
func (c *Catalog) Discover(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("discover inputs in %s: %w", dir, err)
	}
	logger := c.runner.logger()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !isExecutable(info) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		scheme, err := c.Register(ctx, Command{Path: path})
		if err != nil {
			logger.Warn("skipping input binary", "path", path, "error", err)
			continue
		}
		logger.Info("discovered input", "path", path, "title", scheme.Title)
	}
	return nil
}

func isExecutable(info fs.FileInfo) bool {
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
