// Command fastconnectd owns the AVDECC fast-connect saved states for the
// listeners of this end station and serves them over a local HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/micro-nova/avdecc-fastconnect/internal/api"
	"github.com/micro-nova/avdecc-fastconnect/internal/config"
	"github.com/micro-nova/avdecc-fastconnect/internal/controller"
	"github.com/micro-nova/avdecc-fastconnect/internal/events"
	"github.com/micro-nova/avdecc-fastconnect/internal/identity"
	"github.com/micro-nova/avdecc-fastconnect/internal/maintenance"
	"github.com/micro-nova/avdecc-fastconnect/internal/models"
	"github.com/micro-nova/avdecc-fastconnect/internal/zeroconf"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/avdecc-fastconnect)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		saveFile  = flag.String("save-file", "", "saved state file, overriding the settings file")
		noRestore = flag.Bool("no-restore", false, "do not replay saved connections at startup")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "avdecc-fastconnect")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := config.NewJSONStore(*cfgDir)
	settings, err := store.Load()
	if err != nil {
		slog.Warn("failed to load settings, using defaults", "err", err)
		d := models.DefaultSettings()
		settings = &d
	}
	// The -save-file override survives settings reloads.
	override := func(s models.Settings) models.Settings {
		if *saveFile != "" {
			s.SaveStateFile = *saveFile
		}
		return s
	}
	live := config.NewLive(override(*settings))

	bus := events.NewBus()
	ctrl := controller.New(live, store, bus)
	version := identity.GetVersionFromDir(*cfgDir)
	ctrl.SetVersion(version)

	go func() {
		err := config.Watch(ctx, store, func(s models.Settings) {
			ctrl.ApplySettings(override(s))
		})
		if err != nil {
			slog.Warn("settings watcher stopped", "err", err)
		}
	}()

	maint := maintenance.New(filepath.Join(*cfgDir, "backups"), ctrl.SavedStates)
	go maint.Start(ctx)

	zc := zeroconf.New(identity.GetHostname(), listenPort(*addr), version)
	if err := zc.UpdateCount(ctrl.Info().SavedStates); err != nil && !errors.Is(err, zeroconf.ErrNotStarted) {
		slog.Warn("zeroconf update failed", "err", err)
	}
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()
	go advertiseCount(bus, zc)

	if !*noRestore {
		results, err := ctrl.Restore(ctx, controller.LogConnector{})
		if err != nil {
			slog.Warn("restore failed", "err", err)
		} else {
			slog.Info("restored saved connections", "count", len(results))
		}
	}

	router := api.NewRouter(ctrl, bus, controller.LogConnector{}, maint)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("fastconnectd listening", "addr", *addr, "config", *cfgDir, "save_file", ctrl.Settings().SaveStateFile)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	// Ends SSE streams so Shutdown does not wait on them.
	bus.Close()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}

	slog.Info("shutdown complete")
}

// advertiseCount keeps the zeroconf TXT record count in step with the store.
// It returns when the bus is closed.
func advertiseCount(bus *events.Bus, zc *zeroconf.Service) {
	ch := bus.Subscribe("zeroconf")
	for ev := range ch {
		switch ev.Type {
		case models.EventSaved, models.EventCleared, models.EventDeleted:
			if err := zc.UpdateCount(len(ev.SavedStates)); err != nil {
				slog.Debug("zeroconf count update failed", "err", err)
			}
		}
	}
}

func listenPort(addr string) int {
	port := 80
	if parts := strings.SplitN(addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	return port
}
