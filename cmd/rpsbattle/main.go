package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/rpsbattle/internal/app"
	"github.com/ayusman/rpsbattle/internal/capture"
	"github.com/ayusman/rpsbattle/internal/config"
	"github.com/ayusman/rpsbattle/internal/detector"
	"github.com/ayusman/rpsbattle/internal/game"
	"github.com/ayusman/rpsbattle/internal/gesture"
	"github.com/ayusman/rpsbattle/internal/metrics"
	"github.com/ayusman/rpsbattle/internal/server"
	"github.com/ayusman/rpsbattle/internal/speech"
	"github.com/ayusman/rpsbattle/internal/store"
	"github.com/ayusman/rpsbattle/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("rpsbattle exited")
		os.Exit(1)
	}
}

func setupLogging(level string) {
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

// run builds every service, plays until interrupted or quit from the tray, and releases
// everything on the way out. A device that cannot be opened ends the run with an error.
func run(cfg *config.Config) error {
	rule, err := gesture.ParseScissorsRule(cfg.ScissorsRule)
	if err != nil {
		return err
	}

	mgr := metrics.NewManager()

	st, err := store.New()
	if err != nil {
		return fmt.Errorf("open session journal: %w", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        1,
		MinConfidence:   cfg.MinDetectionConfidence,
		MinTrackingConf: cfg.MinTrackingConfidence,
	})
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}

	var engine speech.Engine = speech.NopEngine{}
	if cfg.Speech {
		ce, err := speech.NewCommandEngine(cfg.SpeechCommand, nil, cfg.SpeechTimeout)
		if err != nil {
			_ = det.Close()
			return fmt.Errorf("speech: %w", err)
		}
		engine = ce
	}
	speaker := speech.NewDispatcher(engine, mgr)

	a := app.New(app.Config{
		TickInterval:     cfg.TickInterval,
		IdleTickInterval: cfg.IdleTickInterval,
		MotionThreshold:  cfg.MotionThreshold,
		ScissorsRule:     rule,
		Game: game.Config{
			Countdown:     cfg.Countdown,
			ResultDisplay: cfg.ResultDisplay,
			RoundLimit:    cfg.RoundLimit,
		},
	}, app.Deps{
		Camera:   capture.NewCamera(cfg.CameraID, cfg.Mirror),
		Detector: det,
		Speaker:  speaker,
		Store:    st,
		Metrics:  mgr,
	})
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	defer a.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpSrv *http.Server
	if cfg.Addr != "" {
		staticDir := cfg.StaticDir
		if staticDir == "" {
			staticDir = findWebDir()
		}
		httpSrv = &http.Server{
			Addr: cfg.Addr,
			Handler: server.New(server.Config{
				Game:      a,
				Store:     st,
				Metrics:   mgr.Handler(),
				StaticDir: staticDir,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Addr).Str("static", staticDir).Msg("http server listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server failed")
			}
		}()
	}

	// failed carries the loop's fatal error, if that is what ended the run.
	failed := make(chan error, 1)
	if cfg.Tray {
		t := tray.New()
		t.OnToggle(a.SetEnabled)
		t.OnNewGame(a.NewGame)
		t.OnQuit(stop)
		if cfg.Addr != "" {
			t.OnOpen(func() { openBrowser(localURL(cfg.Addr)) })
		}
		unsubscribe := a.Subscribe(t.Update)
		defer unsubscribe()

		go func() {
			select {
			case <-ctx.Done():
			case err := <-a.Failed():
				failed <- err
			}
			t.Quit()
		}()
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-a.Failed():
			failed <- err
		}
	}

	var runErr error
	select {
	case runErr = <-failed:
	default:
	}

	log.Info().Msg("shutting down")
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown")
		}
	}
	return runErr
}

// findWebDir looks for the browser UI next to the working directory, then in ~/.rpsbattle/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".rpsbattle", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
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
		log.Warn().Err(err).Str("url", url).Msg("opening browser")
		return
	}
	go func() { _ = cmd.Wait() }()
}
