package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/midistream/midistream/server/internal/api"
	"github.com/midistream/midistream/server/internal/bridge"
	"github.com/midistream/midistream/server/internal/config"
	"github.com/midistream/midistream/server/internal/device"
	"github.com/midistream/midistream/server/internal/logging"
	"github.com/midistream/midistream/server/internal/metrics"
	"github.com/midistream/midistream/server/internal/midi"
	"github.com/midistream/midistream/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve static UI files from this directory; leave empty to disable")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, level, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("midistream-server starting",
		zap.String("config", *configPath),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.String("stream_format", cfg.Stream.Format),
		zap.Int("max_pending", cfg.Bridge.MaxPending),
	)

	if err := run(cfg, *configPath, *uiDir, log, level); err != nil {
		log.Error("midistream-server stopped", zap.Error(err))
		log.Sync() //nolint:errcheck
		os.Exit(1)
	}
	log.Info("midistream-server stopped")
}

func run(cfg *config.Config, configPath, uiDir string, log *zap.Logger, level zap.AtomicLevel) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := metrics.New()

	// Event queue between the driver callback and the broadcast loop.
	queue := bridge.New[midi.Event](cfg.Bridge.MaxPending)

	driverLog := log.Named("midi").With(zap.String("client", cfg.MIDI.ClientName))
	driver, err := midi.NewDriver(driverLog)
	if err != nil {
		driverLog.Warn("MIDI driver unavailable; serving with no devices", zap.Error(err))
		driver = midi.Unavailable()
	}
	defer driver.Close() //nolint:errcheck

	session := device.New(driver, queue,
		device.WithLogger(log.Named("device")),
		device.WithExclude(cfg.MIDI.Exclude...),
		device.WithObserver(stats),
	)

	encode, err := midi.NewEncoder(cfg.Stream.Format)
	if err != nil {
		return err
	}
	hub := ws.New(queue,
		ws.WithLogger(log.Named("ws")),
		ws.WithEncoder(encode),
		ws.WithObserver(stats),
		ws.WithSendBuffer(cfg.Stream.SendBuffer),
		ws.WithPingPeriod(cfg.Stream.PingPeriod),
		ws.WithAllowedOrigins(cfg.Server.CORS.AllowedOrigins),
	)

	stats.GaugeFunc("clients_connected", "WebSocket clients currently connected.",
		func() float64 { return float64(hub.Count()) })
	stats.GaugeFunc("bridge_pending", "Events queued and not yet broadcast.",
		func() float64 { return float64(queue.Len()) })
	stats.CounterFunc("bridge_overflow_total", "Events discarded because the queue was full.",
		func() float64 { return float64(queue.Dropped()) })

	if cfg.MIDI.Device != "" {
		if err := session.Select(cfg.MIDI.Device); err != nil {
			log.Warn("startup device selection failed",
				zap.String("device", cfg.MIDI.Device), zap.Error(err))
		}
	}

	// Combined HTTP server: control API, stream, metrics and optional UI.
	mux := http.NewServeMux()
	controlAPI := api.New(session, func() (int, int) { return hub.Count(), queue.Len() }, log.Named("api"))
	mux.Handle("/midi/", controlAPI)
	mux.Handle("/healthz", controlAPI)
	mux.Handle("/midi/stream", hub)
	mux.Handle("/metrics", stats)

	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if uiDir != "" {
		fs := http.FileServer(http.Dir(uiDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		log.Info("serving UI static files", zap.String("dir", uiDir))
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.CORS(cfg.Server.CORS.AllowedOrigins, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// The loop ignores cancellation; the shutdown task ends it by closing the
	// queue, so events already queued still reach connected clients.
	g.Go(func() error {
		return hub.Run(context.WithoutCancel(gctx))
	})

	g.Go(func() error {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if _, err := os.Stat(configPath); err != nil {
			log.Info("config file not present; hot reload disabled", zap.String("path", configPath))
			return nil
		}
		current := cfg.MIDI.Device
		err := config.Watch(gctx, configPath, log.Named("config"), func(next *config.Config) {
			if err := logging.SetLevel(level, next.Log.Level); err != nil {
				log.Warn("ignoring log level from reload", zap.Error(err))
			}
			if next.MIDI.Device == "" || next.MIDI.Device == current {
				return
			}
			current = next.MIDI.Device
			if err := session.Select(current); err != nil {
				log.Warn("reload device selection failed",
					zap.String("device", current), zap.Error(err))
			}
		})
		if err != nil {
			log.Warn("config watcher stopped", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("midistream-server shutting down")

		// Stop producers first. Closing the queue lets Run drain what is
		// pending and then close every stream.
		if err := session.Close(); err != nil {
			log.Warn("closing device session", zap.Error(err))
		}
		queue.Close()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
