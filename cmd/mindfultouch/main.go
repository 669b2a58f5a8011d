package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/mindfultouch/internal/app"
	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/log"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/segment"
	"github.com/ayusman/mindfultouch/internal/server"
	"github.com/ayusman/mindfultouch/internal/server/api"
	"github.com/ayusman/mindfultouch/internal/store"
	"github.com/ayusman/mindfultouch/internal/tray"
)

type options struct {
	addr      string
	dataDir   string
	webDir    string
	hooksDir  string
	logLevel  string
	noTray    bool
	noPreview bool
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", "", "listen address (overrides saved settings)")
	flag.StringVar(&opts.dataDir, "data", defaultDataDir(), "directory for the database and hooks")
	flag.StringVar(&opts.webDir, "web", "", "directory of the web UI (searched for when empty)")
	flag.StringVar(&opts.hooksDir, "hooks", "", "notification hooks directory (default <data>/hooks)")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flag.BoolVar(&opts.noTray, "no-tray", false, "run without the system tray")
	flag.BoolVar(&opts.noPreview, "no-preview", false, "do not render the annotated video preview")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "mindfultouch: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(opts.dataDir, "mindfultouch.db"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	cfg, err := loadConfig(st, opts)
	if err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	logger := log.Component("main")
	logger.Info("MindfulTouch starting", "data", opts.dataDir, "addr", cfg.Server.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, tr := buildNotifier(cfg, opts)

	seg := buildSegmenter(cfg)
	if seg != nil {
		defer segment.Shutdown()
	}

	a := app.New(app.Config{
		Settings:  cfg,
		Store:     st,
		Notifier:  notifier,
		Segmenter: seg,
		Preview:   !opts.noPreview,
	})

	hub := server.NewHub(a)
	a.SetBroadcaster(hub)

	webDir := opts.webDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Controller: a,
		Store:      st,
		Hub:        hub,
		Frames:     a,
	})

	if err := a.Start(ctx); err != nil {
		logger.Error("camera unavailable, serving settings only", "error", err)
	}
	defer a.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, cfg.Server.Addr)
	}()

	url := "http://" + cfg.Server.Addr
	if tr != nil {
		tr.OnToggle(a.SetMonitoring)
		tr.OnCalibrate(func() {
			if err := a.StartCalibration(api.DefaultCalibrationDuration); err != nil {
				logger.Warn("calibration not started", "error", err)
			}
		})
		tr.OnSettings(func() { openBrowser(url) })
		tr.OnQuit(stop)

		go func() {
			select {
			case <-ctx.Done():
			case err := <-errCh:
				errCh <- err
			}
			tr.Quit()
		}()
		tr.Run()
		stop()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			errCh <- err
			stop()
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("MindfulTouch stopped")
	return nil
}

// loadConfig layers the saved settings, environment and flags over the
// defaults.
func loadConfig(st *store.Store, opts options) (config.Config, error) {
	cfg, err := st.Settings().LoadConfig(config.Default())
	if err != nil {
		return cfg, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.hooksDir != "" {
		cfg.Notifications.HooksDir = opts.hooksDir
	}
	if cfg.Notifications.HooksDir == "" {
		cfg.Notifications.HooksDir = filepath.Join(opts.dataDir, "hooks")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildNotifier assembles the notification providers: the log, installed
// hooks, an optional command and the tray.
func buildNotifier(cfg config.Config, opts options) (*notify.Manager, *tray.Tray) {
	logger := log.Component("main")

	m := notify.NewManager(cfg.Notifications, notify.NewLogProvider())

	hooks := notify.NewHooks(cfg.Notifications.HooksDir, notify.DefaultCommandTimeout)
	if err := hooks.Discover(); err != nil {
		logger.Warn("failed to discover hooks", "dir", hooks.Dir(), "error", err)
	}
	if list := hooks.List(); len(list) > 0 {
		names := make([]string, len(list))
		for i, h := range list {
			names[i] = h.Manifest.Name
		}
		logger.Info("loaded notification hooks", "hooks", strings.Join(names, ","))
		m.AddProvider(hooks)
	}

	if len(cfg.Notifications.Command) > 0 {
		m.AddProvider(notify.NewCommandProvider(cfg.Notifications.Command, notify.DefaultCommandTimeout))
	}

	if opts.noTray {
		return m, nil
	}
	tr := tray.New()
	m.AddProvider(tr)
	return m, tr
}

// buildSegmenter loads the hair segmentation model when the hair mask is
// enabled. Failures disable the mask rather than the app.
func buildSegmenter(cfg config.Config) app.Segmenter {
	if !cfg.Detection.UseHairMask || cfg.ModelPath == "" {
		return nil
	}
	logger := log.Component("main")

	if err := segment.Initialize(cfg.OnnxLibrary); err != nil {
		logger.Warn("onnxruntime unavailable, hair mask disabled", "error", err)
		return nil
	}
	s, err := segment.NewHairSegmenter(segment.DefaultConfig(cfg.ModelPath))
	if err != nil {
		logger.Warn("failed to load hair model, hair mask disabled", "model", cfg.ModelPath, "error", err)
		segment.Shutdown()
		return nil
	}
	logger.Info("hair mask enabled", "model", cfg.ModelPath)
	return s
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mindfultouch"
	}
	return filepath.Join(home, ".mindfultouch")
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mindfultouch/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(defaultDataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}
