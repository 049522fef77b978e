package policy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// bundleSuffix marks JSON files that hold a whole policy bundle rather
// than a single policy definition.
const bundleSuffix = ".bundle.json"

// reloadDebounce is how long the watcher waits after the last file event
// before reloading, so an editor's write-then-rename counts once.
const reloadDebounce = 500 * time.Millisecond

// Loader reads policies from .rego files, single-policy JSON files, and
// JSON bundles. It caches parsed files by path and can watch the loaded
// paths to drive hot reload of a running engine.
type Loader struct {
	logger  zerolog.Logger
	mu      sync.RWMutex
	byPath  map[string][]Policy
	watcher *fsnotify.Watcher
}

// NewLoader creates a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
		byPath: make(map[string][]Policy),
	}
}

// LoadFromPaths loads every policy reachable from the given files and
// directories. Directories are walked recursively.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var loaded []Policy

	for _, path := range paths {
		policies, err := l.loadPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		loaded = append(loaded, policies...)
	}

	l.logger.Info().
		Int("total", len(loaded)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return loaded, nil
}

func (l *Loader) loadPath(ctx context.Context, path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if info.IsDir() {
		return l.loadTree(ctx, path)
	}
	return l.loadFile(ctx, path)
}

// loadTree walks a directory and loads every policy file in it. Files
// that fail to parse are logged and skipped so one broken policy does
// not hide the rest of the tree.
func (l *Loader) loadTree(ctx context.Context, root string) ([]Policy, error) {
	var loaded []Policy

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(path) {
			return nil
		}

		policies, err := l.loadFile(ctx, path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable policy file")
			return nil
		}
		loaded = append(loaded, policies...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return loaded, nil
}

// loadFile loads the policies held in a single file. A .rego file and a
// plain .json file each yield one policy; a .bundle.json file yields all
// of its bundle's policies.
func (l *Loader) loadFile(ctx context.Context, path string) ([]Policy, error) {
	l.mu.RLock()
	cached, ok := l.byPath[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var policies []Policy

	switch {
	case strings.HasSuffix(path, ".rego"):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		policies = []Policy{regoPolicy(path, data)}

	case strings.HasSuffix(path, bundleSuffix):
		bundle, err := l.LoadBundle(ctx, path)
		if err != nil {
			return nil, err
		}
		policies = bundle.Policies

	case strings.HasSuffix(path, ".json"):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		p, err := jsonPolicy(data)
		if err != nil {
			return nil, err
		}
		policies = []Policy{p}

	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	l.mu.Lock()
	l.byPath[path] = policies
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", path).
		Int("policies", len(policies)).
		Msg("Policy file loaded")

	return policies, nil
}

// LoadBundle loads a JSON policy bundle.
func (l *Loader) LoadBundle(ctx context.Context, path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	for i := range bundle.Policies {
		fillPolicyDefaults(&bundle.Policies[i])
	}

	l.logger.Info().
		Str("bundle", bundle.Name).
		Str("version", bundle.Version).
		Int("policies", len(bundle.Policies)).
		Msg("Policy bundle loaded")

	return &bundle, nil
}

// regoPolicy wraps raw Rego source as a Policy. The name comes from the
// file name and the description from the leading comment block.
func regoPolicy(path string, data []byte) Policy {
	now := time.Now()
	return Policy{
		Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
		Description: leadingComment(data),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{},
		Metadata: map[string]interface{}{
			"source": path,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// jsonPolicy decodes a single-policy JSON definition.
func jsonPolicy(data []byte) (Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse JSON policy: %w", err)
	}
	fillPolicyDefaults(&p)
	return p, nil
}

func fillPolicyDefaults(p *Policy) {
	if p.Severity == "" {
		p.Severity = SeverityWarning
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
}

// leadingComment joins the comment lines at the top of a Rego file into
// a one-line description, stopping at the first line of code.
func leadingComment(data []byte) string {
	var b strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			if text == "" || strings.HasPrefix(text, "package") {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
		case line == "":
			continue
		default:
			return b.String()
		}
	}
	return b.String()
}

func isPolicyFile(name string) bool {
	return strings.HasSuffix(name, ".rego") || strings.HasSuffix(name, ".json")
}

// Watch watches the given paths for policy file changes. After the file
// system settles, all paths are reloaded and handed to apply, which is
// typically Engine.ReplacePolicies. Watch returns immediately; the watch
// runs until the context is cancelled or Close is called.
func (l *Loader) Watch(ctx context.Context, paths []string, apply func(context.Context, []Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		if err := l.watchPath(path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go l.watchLoop(ctx, paths, apply)

	l.logger.Info().Int("paths", len(paths)).Msg("Started watching policy paths")
	return nil
}

// watchPath registers a file, or a directory tree, with the watcher.
// fsnotify watches are not recursive, so every subdirectory is added.
func (l *Loader) watchPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return l.watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return l.watcher.Add(p)
		}
		return nil
	})
}

func (l *Loader) watchLoop(ctx context.Context, paths []string, apply func(context.Context, []Policy) error) {
	var pending *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !triggersReload(event) {
				continue
			}
			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Policy file changed")
			l.invalidate(event.Name)

			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				l.reload(ctx, paths, apply)
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// triggersReload reports whether a file system event should cause a
// policy reload.
func triggersReload(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return isPolicyFile(event.Name)
}

func (l *Loader) reload(ctx context.Context, paths []string, apply func(context.Context, []Policy) error) {
	policies, err := l.LoadFromPaths(ctx, paths)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to reload policies")
		return
	}

	if err := apply(ctx, policies); err != nil {
		l.logger.Error().Err(err).Msg("Failed to apply reloaded policies")
		return
	}

	l.logger.Info().Int("count", len(policies)).Msg("Policies reloaded")
}

// invalidate drops a single file from the cache.
func (l *Loader) invalidate(path string) {
	l.mu.Lock()
	delete(l.byPath, path)
	l.mu.Unlock()
}

// ClearCache drops all cached files, forcing the next load to reread
// them from disk.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.byPath = make(map[string][]Policy)
	l.mu.Unlock()
}

// Close stops a running watch. It is safe to call when Watch was never
// started.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
