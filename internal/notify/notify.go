// Package notify delivers mindful-moment alerts to the user through a set of
// providers, rate limited by a cooldown.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/log"
	"github.com/ayusman/mindfultouch/internal/region"
)

var (
	// ErrDisabled is returned when notifications are turned off.
	ErrDisabled = errors.New("notifications disabled")
	// ErrCooldown is returned while the previous alert's cooldown runs.
	ErrCooldown = errors.New("notification cooldown active")
	// ErrQueueFull is returned by Dispatch when deliveries are backed up.
	ErrQueueFull = errors.New("notification queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("notification manager closed")
)

// QueueSize bounds the alerts waiting for background delivery.
const QueueSize = 8

type delivery struct {
	alert     Alert
	providers []Provider
}

// Alert is one user-facing notification.
type Alert struct {
	ID              string      `json:"id"`
	Event           string      `json:"event"`
	Region          region.Name `json:"region,omitempty"`
	Title           string      `json:"title"`
	Message         string      `json:"message"`
	DurationSeconds int         `json:"duration_seconds"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Provider shows an alert somewhere.
type Provider interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}

// Manager applies the enable flag and cooldown, then fans an alert out to
// every provider.
type Manager struct {
	mu        sync.Mutex
	cfg       config.Notifications
	providers []Provider
	last      time.Time
	logger    *slog.Logger

	queue  chan delivery
	closed bool
	once   sync.Once
	done   chan struct{}
}

// NewManager creates a manager for the given settings.
func NewManager(cfg config.Notifications, providers ...Provider) *Manager {
	return &Manager{
		cfg:       cfg,
		providers: providers,
		logger:    log.Component("notify"),
		queue:     make(chan delivery, QueueSize),
		done:      make(chan struct{}),
	}
}

// AddProvider registers another provider.
func (m *Manager) AddProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

// SetConfig replaces the settings. The cooldown clock is kept.
func (m *Manager) SetConfig(cfg config.Notifications) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Config returns the current settings.
func (m *Manager) Config() config.Notifications {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// CooldownRemaining returns how long until the next alert may be sent.
func (m *Manager) CooldownRemaining(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining(now)
}

func (m *Manager) remaining(now time.Time) time.Duration {
	if m.last.IsZero() {
		return 0
	}
	left := time.Duration(m.cfg.CooldownSeconds)*time.Second - now.Sub(m.last)
	if left < 0 {
		return 0
	}
	return left
}

// Notify sends an alert for an event and waits for every provider. Title,
// message and duration default to the configured values. The cooldown starts
// even when a provider fails.
func (m *Manager) Notify(ctx context.Context, a Alert) (Alert, error) {
	a, providers, err := m.prepare(a)
	if err != nil {
		return a, err
	}
	return a, m.deliver(ctx, a, providers)
}

// Dispatch applies the enable flag and cooldown like Notify, then hands the
// alert to a background worker and returns without waiting for providers.
func (m *Manager) Dispatch(a Alert) (Alert, error) {
	a, providers, err := m.prepare(a)
	if err != nil {
		return a, err
	}

	m.once.Do(func() { go m.worker() })

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return a, ErrClosed
	}
	select {
	case m.queue <- delivery{alert: a, providers: providers}:
		return a, nil
	default:
		m.logger.Warn("dropping notification", "event", a.Event, "queued", len(m.queue))
		return a, ErrQueueFull
	}
}

// Close stops the background worker after it delivers what is queued.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	started := true
	m.once.Do(func() { started = false })
	if started {
		<-m.done
	}
}

func (m *Manager) worker() {
	defer close(m.done)
	for d := range m.queue {
		m.deliver(context.Background(), d.alert, d.providers)
	}
}

// prepare gates the alert, starts the cooldown and fills in defaults.
func (m *Manager) prepare(a Alert) (Alert, []Provider, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	m.mu.Lock()
	cfg := m.cfg
	if !cfg.Enabled {
		m.mu.Unlock()
		return a, nil, ErrDisabled
	}
	if left := m.remaining(a.Timestamp); left > 0 {
		m.mu.Unlock()
		return a, nil, fmt.Errorf("%w: %s left", ErrCooldown, left.Round(time.Millisecond))
	}
	m.last = a.Timestamp
	providers := append([]Provider(nil), m.providers...)
	m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Title == "" {
		a.Title = cfg.Title
	}
	if a.Message == "" {
		a.Message = cfg.Message
	}
	if a.DurationSeconds == 0 {
		a.DurationSeconds = cfg.DurationSeconds
	}
	return a, providers, nil
}

func (m *Manager) deliver(ctx context.Context, a Alert, providers []Provider) error {
	var errs []error
	for _, p := range providers {
		if err := p.Notify(ctx, a); err != nil {
			m.logger.Warn("notification provider failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogProvider writes alerts to the structured log.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider creates a provider logging through the notify component.
func NewLogProvider() *LogProvider {
	return &LogProvider{logger: log.Component("notify")}
}

// Name implements Provider.
func (p *LogProvider) Name() string { return "log" }

// Notify implements Provider.
func (p *LogProvider) Notify(_ context.Context, a Alert) error {
	p.logger.Info(a.Message,
		"title", a.Title,
		"event", a.Event,
		"region", a.Region,
		"id", a.ID,
	)
	return nil
}
