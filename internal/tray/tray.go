// Package tray provides the system tray menu for MindfulTouch. The tray also
// acts as a notification provider, flashing the alert in the menu bar.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/mindfultouch/internal/notify"
)

const title = "MindfulTouch"

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onCalibrate func()
	onSettings  func()
	onQuit      func()
	enabled     bool
	ready       bool
	last        *notify.Alert
	restore     *time.Timer
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuLastAlert *systray.MenuItem
}

// New creates a new Tray with monitoring shown as enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for pausing or resuming monitoring.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCalibrate sets the callback for the calibrate menu item.
func (t *Tray) OnCalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle(title)
	systray.SetTooltip("MindfulTouch: gentle hand-to-face awareness")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume monitoring")
	systray.AddSeparator()
	t.menuLastAlert = systray.AddMenuItem(lastAlertTitle(t.last), "Most recent mindful moment")
	t.menuLastAlert.Disable()
	t.ready = true
	t.mu.Unlock()
	systray.AddSeparator()

	menuCalibrate := systray.AddMenuItem("Calibrate...", "Measure your usual hand distance")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit MindfulTouch")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuCalibrate.ClickedCh:
				t.call(t.onCalibrate)
			case <-menuSettings.ClickedCh:
				t.call(t.onSettings)
			case <-menuQuit.ClickedCh:
				t.call(t.onQuit)
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = false
	if t.restore != nil {
		t.restore.Stop()
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Monitoring"
	}
	return "○ Paused"
}

func lastAlertTitle(a *notify.Alert) string {
	if a == nil {
		return "Last alert: none"
	}
	return fmt.Sprintf("Last alert: %s at %s", a.Region, a.Timestamp.Format("15:04"))
}

// handleToggle flips the monitoring state and reports it.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// SetEnabled updates the shown monitoring state without firing OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

func (t *Tray) call(fn func()) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if fn != nil {
		go fn()
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// LastAlert returns the most recent alert shown, if any.
func (t *Tray) LastAlert() (notify.Alert, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return notify.Alert{}, false
	}
	return *t.last, true
}

// Name implements notify.Provider.
func (t *Tray) Name() string { return "tray" }

// Notify implements notify.Provider. The message replaces the tray title for
// the alert's duration.
func (t *Tray) Notify(_ context.Context, a notify.Alert) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = &a
	if !t.ready {
		return nil
	}

	t.menuLastAlert.SetTitle(lastAlertTitle(t.last))
	systray.SetTitle(a.Message)

	if t.restore != nil {
		t.restore.Stop()
	}
	t.restore = time.AfterFunc(time.Duration(max(a.DurationSeconds, 1))*time.Second, func() {
		systray.SetTitle(title)
	})
	return nil
}
