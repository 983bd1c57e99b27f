package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tourguide/internal/api"
	"tourguide/pkg/catalog"
	"tourguide/pkg/config"
	"tourguide/pkg/db"
	"tourguide/pkg/geo"
	"tourguide/pkg/geofence"
	"tourguide/pkg/location"
	"tourguide/pkg/location/mockwalk"
	"tourguide/pkg/logging"
	"tourguide/pkg/playback"
	"tourguide/pkg/probe"
	"tourguide/pkg/report"
	"tourguide/pkg/request"
	"tourguide/pkg/session"
	"tourguide/pkg/store"
	"tourguide/pkg/version"
	"tourguide/pkg/watcher"
)

const defaultConfigPath = "configs/tourguide.yaml"

const (
	// cacheRetention is how long a cached catalog response is kept unused.
	cacheRetention = 30 * 24 * time.Hour
	eventRetention = 90 * 24 * time.Hour
)

var (
	configPath = flag.String("config", defaultConfigPath, "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	_ = godotenv.Load(".env")

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	if err := report.SetupSentry(appCfg.Sentry.DSN, appCfg.Sentry.Environment); err != nil {
		slog.Warn("Sentry not available", "error", err)
	}
	defer report.FlushSentry()

	slog.Info("TourGuide Started", "version", version.String())

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	reqClient := request.New(request.Options{
		Retries:   appCfg.Request.Retries,
		Timeout:   appCfg.Request.Timeout.Std(),
		BaseDelay: appCfg.Request.Backoff.BaseDelay.Std(),
		MaxDelay:  appCfg.Request.Backoff.MaxDelay.Std(),
	})
	defer reqClient.Close()

	catSrc := newCatalogSource(appCfg, reqClient, st)
	cat, err := catalog.Build(ctx, catSrc)
	if err != nil {
		slog.Error("Initial catalog load failed", "source", catSrc.Name(), "error", err)
		cat = catalog.Empty()
	}

	locSrc, push := newLocationSource(appCfg)
	sess := session.NewManager(locSrc, cat, sessionConfig(appCfg))

	recorder := store.NewEventRecorder(st, sess.ID, 64)
	recorder.Start(ctx)
	defer func() {
		cancel()
		recorder.Wait()
	}()
	sess.Subscribe(recorder.Record)

	var playbackH *api.PlaybackHandler
	if appCfg.Playback.Enabled {
		queue := playback.NewManager(appCfg.Playback.QueueMax)
		dispatcher := playback.NewDispatcher(queue, appCfg.Playback.Language)
		sess.Subscribe(dispatcher.HandleEvent)
		playbackH = api.NewPlaybackHandler(queue, dispatcher, sess.Catalog)
	}

	results := probe.Run(ctx, []probe.Probe{
		probe.Catalog(sess.Catalog),
		probe.Location(locSrc),
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if err := sess.Start(); err != nil {
		slog.Warn("Tracking not started", "error", err)
	}
	defer sess.Stop()

	reload := func(ctx context.Context) (*catalog.Catalog, error) {
		c, err := catalog.Build(ctx, catSrc)
		if err != nil {
			return nil, err
		}
		sess.UpdateCatalog(c)
		return c, nil
	}
	go refreshCatalog(ctx, appCfg, catSrc, reload)

	handlers := api.Handlers{
		Session:  api.NewSessionHandler(sess),
		Catalog:  api.NewCatalogHandler(sess.Catalog, reload, appCfg.Geofence.RadiusDefault.Meters()),
		Playback: playbackH,
		History:  api.NewHistoryHandler(st),
	}
	if push != nil {
		handlers.Location = api.NewLocationHandler(push)
	}
	srv := api.NewServer(appCfg.Server.Address, api.NewRouter(handlers, cancel))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return runServerLifecycle(ctx, srv, quit)
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if n, err := dbConn.PruneCache(cacheRetention); err != nil {
		slog.Warn("Cache pruning failed", "error", err)
	} else if n > 0 {
		slog.Info("Pruned stale cache entries", "count", n)
	}
	if n, err := dbConn.PruneEvents(eventRetention); err != nil {
		slog.Warn("Event history pruning failed", "error", err)
	} else if n > 0 {
		slog.Info("Pruned old geofence events", "count", n)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func newCatalogSource(appCfg *config.Config, client *request.Client, st store.CacheStore) catalog.Source {
	if appCfg.Catalog.Source == "file" {
		return catalog.NewFileSource(appCfg.Catalog.Path)
	}
	return catalog.NewHTTPSource(client, st, appCfg.Catalog.URL, appCfg.Catalog.PageSize)
}

// newLocationSource returns the configured source, plus the push source
// when positions arrive over the API.
func newLocationSource(appCfg *config.Config) (location.Source, *location.PushSource) {
	if appCfg.Location.Provider == "mock" {
		m := appCfg.Location.Mock
		route := make([]geo.Point, len(m.Waypoints))
		for i, wp := range m.Waypoints {
			route[i] = geo.Point{Lat: wp.Lat, Lon: wp.Lon}
		}
		slog.Info("Using simulated walk", "waypoints", len(route), "speed_mps", m.Speed)
		return mockwalk.New(mockwalk.Config{
			Waypoints: route,
			Speed:     m.Speed,
			Interval:  m.Interval.Std(),
			Jitter:    m.Jitter.Meters(),
			Accuracy:  m.Accuracy.Meters(),
			BadFixPct: m.BadFixPct,
			Loop:      m.Loop,
		}), nil
	}
	push := location.NewPushSource()
	return push, push
}

func sessionConfig(appCfg *config.Config) session.Config {
	gf := appCfg.Geofence
	return session.Config{
		Filter: location.Config{
			HighAccuracy: appCfg.Location.HighAccuracy,
			AccuracyMax:  appCfg.Location.AccuracyMax.Meters(),
			MaximumAge:   appCfg.Location.MaximumAge.Std(),
			Timeout:      appCfg.Location.Timeout.Std(),
		},
		Geofence: geofence.Config{
			RadiusDefault:      gf.RadiusDefault.Meters(),
			Cooldown:           gf.Cooldown.Std(),
			ApproachEnabled:    gf.Approach.Enabled,
			ApproachDistance:   gf.Approach.Distance.Meters(),
			ApproachHysteresis: gf.Approach.Hysteresis.Meters(),
		},
		HistorySize: gf.HistorySize,
	}
}

// refreshCatalog polls a file catalog for changes, or re-fetches a remote
// one on the refresh interval.
func refreshCatalog(ctx context.Context, appCfg *config.Config, src catalog.Source, reload func(context.Context) (*catalog.Catalog, error)) {
	interval := appCfg.Catalog.Refresh.Std()
	apply := func() {
		if _, err := reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Catalog refresh failed", "error", err)
		}
	}
	if fs, ok := src.(*catalog.FileSource); ok {
		watcher.NewService(fs.Path()).Run(ctx, interval, apply)
		return
	}
	watcher.Every(ctx, interval, apply)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
