// Command desktop-notify is a notification hook that shows each alert as a
// native desktop notification. It reads one alert as JSON on stdin and
// writes a JSON response on stdout.
//
// Build it into the hook directory next to hook.json:
//
//	go build -o ~/.mindfultouch/hooks/desktop-notify/desktop-notify ./hooks/desktop-notify
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Alert is the payload sent by the notification manager.
type Alert struct {
	ID              string `json:"id"`
	Event           string `json:"event"`
	Region          string `json:"region"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Response is written back to the manager.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var a Alert
	if err := json.NewDecoder(os.Stdin).Decode(&a); err != nil {
		writeResponse(fmt.Errorf("failed to decode alert: %w", err))
		return
	}
	writeResponse(show(a))
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// show dispatches to the platform notifier.
func show(a Alert) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", quote(a.Message), quote(a.Title))
		return runCommand("osascript", "-e", script)
	case "linux":
		ms := strconv.Itoa(max(a.DurationSeconds, 1) * 1000)
		return runCommand("notify-send", "-t", ms, a.Title, a.Message)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// quote renders s as an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func runCommand(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
