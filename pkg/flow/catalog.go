package flow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// catalogTTL bounds staleness when file watching is unavailable.
const catalogTTL = 5 * time.Minute

// Catalog loads flow definitions from a directory of YAML files and
// serves intent lookups from an in-memory cache. Concurrent loaders
// converge on a single read via singleflight; the cache expires by TTL
// and is also cleared when the directory changes on disk.
type Catalog struct {
	dir string
	log *slog.Logger

	mu       sync.RWMutex
	defs     []Definition
	loadedAt time.Time

	group   singleflight.Group
	watcher *fsnotify.Watcher
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, log: slog.Default().With("component", "flow_catalog")}
}

// Watch starts invalidating the cache on directory changes. Best effort;
// the TTL still applies if the watcher cannot be created.
func (c *Catalog) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("flow catalog watcher: %w", err)
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return fmt.Errorf("flow catalog watch %s: %w", c.dir, err)
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					c.log.Info("flow catalog changed, clearing cache", "file", ev.Name)
					c.ClearCache()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("flow catalog watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher if one is running.
func (c *Catalog) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// ClearCache drops the cached definitions so the next lookup reloads.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	c.defs = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// Definitions returns the cached flow definitions, loading from disk
// when the cache is empty or older than the TTL.
func (c *Catalog) Definitions() ([]Definition, error) {
	c.mu.RLock()
	if c.defs != nil && time.Since(c.loadedAt) < catalogTTL {
		defs := c.defs
		c.mu.RUnlock()
		return defs, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("load", func() (any, error) {
		defs, err := c.loadDir()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.defs = defs
		c.loadedAt = time.Now()
		c.mu.Unlock()
		return defs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Definition), nil
}

func (c *Catalog) loadDir() ([]Definition, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("read flow dir %s: %w", c.dir, err)
	}

	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read flow %s: %w", entry.Name(), err)
		}
		var def Definition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("parse flow %s: %w", entry.Name(), err)
		}
		if def.ID == "" {
			c.log.Warn("skipping flow definition without id", "file", entry.Name())
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// FindByIntent resolves the flow a routed intent should start.
// Module-matching definitions win over module-agnostic ones; among
// intent matches, a keyword hit in the message breaks ties.
func (c *Catalog) FindByIntent(intent, module, message string) (*Definition, error) {
	defs, err := c.Definitions()
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(message)
	var best *Definition
	bestScore := 0
	for i := range defs {
		def := &defs[i]
		if !containsFold(def.Intents, intent) {
			continue
		}
		score := 1
		if def.Module != "" {
			if module != "" && !strings.EqualFold(def.Module, module) {
				continue
			}
			score += 2
		}
		for _, kw := range def.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				score++
				break
			}
		}
		if score > bestScore {
			best = def
			bestScore = score
		}
	}
	return best, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
