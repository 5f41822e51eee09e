// protofito: real-time exercise rep counter
// Reads joint frames from a pose source, counts reps and streams results
// to the dashboard over WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	applog "github.com/hiral-chawra/Protofito/internal/log"

	"github.com/hiral-chawra/Protofito/internal/config"
	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/publish"
	"github.com/hiral-chawra/Protofito/pkg/session"
	"github.com/hiral-chawra/Protofito/pkg/source"
	"github.com/hiral-chawra/Protofito/pkg/source/camera"
	"github.com/hiral-chawra/Protofito/pkg/web"
)

var (
	version = "0.3.0"

	configPath = flag.String("config", "", "Path to YAML config file")
	port       = flag.String("port", "", "HTTP server port (overrides config and PORT)")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	sourceKind = flag.String("source", "", "Joint source: synthetic, replay, serial, push, websocket, mqtt, camera")
	replayPath = flag.String("replay", "", "JSON-lines file for the replay source")
	loop       = flag.Bool("loop", false, "Loop the replay file")
	movement   = flag.String("movement", "", "Movement to track: pushup, squat")
	mqttOn     = flag.Bool("mqtt", false, "Publish results to MQTT")
	staticDir  = flag.String("static", "", "Directory of dashboard files to serve")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	applog.Setup(applog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger := applog.L()

	fmt.Println()
	fmt.Println("💪 Protofito v" + version)
	fmt.Println("   Real-time rep counter")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Println("✅ Goodbye!")
}

// loadConfig layers file, environment and flags, then validates.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "log-level":
			cfg.Log.Level = *logLevel
		case "source":
			cfg.Source.Kind = source.Kind(*sourceKind)
		case "replay":
			cfg.Source.Kind = source.KindReplay
			cfg.Source.Replay.Path = *replayPath
		case "loop":
			cfg.Source.Replay.Loop = *loop
		case "movement":
			cfg.Session.Movement = *movement
		case "mqtt":
			cfg.Publish.Enabled = *mqttOn
		case "static":
			cfg.Server.StaticDir = *staticDir
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m, err := cfg.Movement()
	if err != nil {
		return err
	}
	sess, err := session.New(m,
		session.WithLogger(logger),
		session.WithVariation(cfg.Session.Variation),
	)
	if err != nil {
		return err
	}

	catalog, err := exercise.DefaultCatalog()
	if err != nil {
		return err
	}

	src, err := openSource(ctx, cfg.Source, logger)
	if err != nil {
		return fmt.Errorf("open %s source: %w", cfg.Source.Kind, err)
	}
	defer src.Close()

	// The push source doubles as the /ws/frames ingest queue.
	ingest, _ := src.(*source.Push)

	srv := web.NewServer(cfg.Server, sess, catalog, ingest, logger)
	runner := session.NewRunner(sess, src, logger, srv)

	if cfg.Publish.Enabled {
		pub, err := publish.Connect(cfg.Publish, logger)
		if err != nil {
			return fmt.Errorf("mqtt publisher: %w", err)
		}
		defer pub.Close()
		runner.AddSink(pub)
		fmt.Printf("📡 Publishing to %s/result\n", cfg.Publish.TopicPrefix)
	}

	fmt.Printf("🏋️  Tracking %s (down <= %.0f°, up >= %.0f°)\n",
		m.Name, m.Thresholds.DownMaxAngle, m.Thresholds.UpMinAngle)
	fmt.Printf("🦴 Source: %s\n", src.Name())
	fmt.Printf("🌐 Dashboard: http://localhost:%s\n", cfg.Server.Port)
	fmt.Printf("🔌 Results:   ws://localhost:%s/ws/results\n", cfg.Server.Port)
	if ingest != nil {
		fmt.Printf("📥 Frames:    ws://localhost:%s/ws/frames\n", cfg.Server.Port)
	}
	fmt.Println()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	runnerDone := make(chan error, 1)
	go func() { runnerDone <- runner.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Println("👋 Shutting down...")
			src.Close()
			waitRunner(runnerDone, logger)
			if err := <-serverErr; err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil

		case err := <-serverErr:
			if err == nil {
				err = errors.New("server stopped unexpectedly")
			}
			return fmt.Errorf("server: %w", err)

		case err := <-runnerDone:
			runnerDone = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("runner failed", "error", err)
			}
			// Keep serving the final state until interrupted.
			stats := sess.Stats()
			logger.Info("source exhausted", "ticks", stats.Ticks, "reps", sess.Snapshot().State.RepCount)
		}
	}
}

func waitRunner(done <-chan error, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("runner did not stop in time")
	}
}

func openSource(ctx context.Context, cfg source.Config, logger *slog.Logger) (source.Source, error) {
	if cfg.Kind == source.KindCamera {
		return camera.NewOpenPose(cfg.Camera)
	}
	return source.New(ctx, cfg, logger)
}
