package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"
)

// ErrHookNotFound is returned when a requested hook does not exist.
var ErrHookNotFound = errors.New("hook not found")

// Manifest describes a notification hook. It lives in hook.json inside the
// hook's directory.
type Manifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Args        []string `json:"args,omitempty"`
	// Events limits the hook to these event names. Empty means all.
	Events []string `json:"events,omitempty"`
}

// Hook is a discovered hook with its location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the hook subscribes to an event.
func (h *Hook) Wants(event string) bool {
	return len(h.Manifest.Events) == 0 || slices.Contains(h.Manifest.Events, event)
}

// Hooks discovers user-installed hook programs and runs them as a provider.
type Hooks struct {
	dir     string
	timeout time.Duration
	hooks   map[string]*Hook
	mu      sync.RWMutex
}

// NewHooks creates a hook set rooted at dir.
func NewHooks(dir string, timeout time.Duration) *Hooks {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Hooks{
		dir:     dir,
		timeout: timeout,
		hooks:   make(map[string]*Hook),
	}
}

// Discover scans dir for subdirectories holding a hook.json.
func (h *Hooks) Discover() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = make(map[string]*Hook)

	info, err := os.Stat(h.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(h.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, "hook.json"))
		if err != nil {
			continue
		}

		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil || m.Name == "" || m.Executable == "" {
			continue
		}

		exe := m.Executable
		if !filepath.IsAbs(exe) {
			exe = filepath.Join(path, exe)
		}
		h.hooks[m.Name] = &Hook{Manifest: m, Path: path, Executable: exe}
	}

	return nil
}

// Get returns a hook by name.
func (h *Hooks) Get(name string) (*Hook, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hook, ok := h.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return hook, nil
}

// List returns every discovered hook sorted by name.
func (h *Hooks) List() []*Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Hook, 0, len(h.hooks))
	for _, hook := range h.hooks {
		out = append(out, hook)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Dir returns the hook directory.
func (h *Hooks) Dir() string {
	return h.dir
}

// Name implements Provider.
func (h *Hooks) Name() string { return "hooks" }

// Notify runs every hook subscribed to the alert's event.
func (h *Hooks) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, hook := range h.List() {
		if !hook.Wants(a.Event) {
			continue
		}
		argv := append([]string{hook.Executable}, hook.Manifest.Args...)
		if err := run(ctx, argv, hook.Path, h.timeout, a); err != nil {
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.Manifest.Name, err))
		}
	}
	return errors.Join(errs...)
}
