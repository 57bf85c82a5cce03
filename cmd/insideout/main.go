package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/insideout/internal/app"
	"github.com/ayusman/insideout/internal/config"
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/log"
	"github.com/ayusman/insideout/internal/server"
	"github.com/ayusman/insideout/internal/store"
	"github.com/ayusman/insideout/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Error("insideout failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)
	log.Info("configuration loaded", "addr", cfg.Addr, "data_dir", cfg.DataDir, "fps", cfg.FPS)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	appCfg := app.Config{
		Store:              st,
		CameraID:           cfg.CameraID,
		FPS:                cfg.FPS,
		GateEvery:          cfg.GateEvery,
		GateIntervalMs:     cfg.GateIntervalMs,
		ObservedIntervalMs: cfg.ObservedIntervalMs,
		DefaultEmotion:     cfg.DefaultEmotion,
		Seed:               cfg.Seed,
		CanvasWidth:        cfg.CanvasWidth,
		CanvasHeight:       cfg.CanvasHeight,
		Detector:           detector.DefaultConfig(),
	}
	appCfg.Detector.ScriptPath = cfg.PerceptionScript
	appCfg.Detector.PythonPath = cfg.PythonPath

	if cfg.ProfilesPath != "" {
		table, err := emotion.LoadTable(cfg.ProfilesPath)
		if err != nil {
			return err
		}
		appCfg.Profiles = table.Profiles
		if os.Getenv("INSIDEOUT_DEFAULT_EMOTION") == "" {
			appCfg.DefaultEmotion = table.Default
		}
		log.Info("emotion table loaded", "path", cfg.ProfilesPath, "profiles", len(table.Profiles))
	}

	application, err := app.New(appCfg)
	if err != nil {
		return err
	}
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Stop()

	if cfg.WebDir != "" {
		log.Info("serving static files", "dir", cfg.WebDir)
	}
	srv := server.New(server.Config{
		StaticDir: cfg.WebDir,
		Store:     st,
		Canvas:    application,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Addr)
	}()

	if cfg.Tray {
		runTray(ctx, stop, application, canvasURL(cfg.Addr))
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", "error", err)
	}
	return serveErr
}

// runTray blocks on the system tray until Quit or ctx ends.
func runTray(ctx context.Context, quit func(), a *app.App, url string) {
	t := tray.New(a.IsEnabled())
	t.SetEmotion(a.State().Emotion())
	t.OnToggle(a.SetEnabled)
	t.OnOpenCanvas(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("failed to open browser", "url", url, "error", err)
		}
	})
	t.OnQuit(quit)

	events, cancel := a.Subscribe(16)
	defer cancel()
	go t.Follow(events)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func canvasURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
