// Package missiond parses daemon flags and launches the mission runtime:
// storage, reward pipeline, mission engine, control API, and the websocket
// event stream.
package missiond

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	entrypoint "github.com/tacticalworks/missiond/internal/platform/cmd"

	"github.com/tacticalworks/missiond/internal/mission/catalog"
	"github.com/tacticalworks/missiond/internal/mission/domain"
	"github.com/tacticalworks/missiond/internal/mission/engine"
	"github.com/tacticalworks/missiond/internal/mission/event"
	"github.com/tacticalworks/missiond/internal/reward"
	"github.com/tacticalworks/missiond/internal/reward/settlement"
	"github.com/tacticalworks/missiond/internal/storage/resultfile"
	"github.com/tacticalworks/missiond/internal/storage/sqlite"
	"github.com/tacticalworks/missiond/internal/telemetry"
	"github.com/tacticalworks/missiond/internal/transport/httpapi"
	"github.com/tacticalworks/missiond/internal/transport/ws"
)

// Config holds daemon command configuration.
type Config struct {
	ListenAddr      string        `env:"MISSIOND_LISTEN_ADDR" envDefault:":8086"`
	DBPath          string        `env:"MISSIOND_DB_PATH" envDefault:"data/missiond.db"`
	MissionsDir     string        `env:"MISSIOND_MISSIONS_DIR" envDefault:"missions"`
	ResultsDir      string        `env:"MISSIOND_RESULTS_DIR" envDefault:"data/results"`
	PlayerID        string        `env:"MISSIOND_PLAYER_ID" envDefault:"player-local"`
	Currency        string        `env:"MISSIOND_CURRENCY" envDefault:"USDC"`
	MinimumPayout   float64       `env:"MISSIOND_MINIMUM_PAYOUT" envDefault:"0.01"`
	SweepInterval   time.Duration `env:"MISSIOND_SWEEP_INTERVAL" envDefault:"30s"`
	SubmitWorkers   int           `env:"MISSIOND_SUBMIT_WORKERS" envDefault:"4"`
	SubmitTimeout   time.Duration `env:"MISSIOND_SUBMIT_TIMEOUT" envDefault:"30s"`
	EventLogCap     int           `env:"MISSIOND_EVENT_LOG_CAP" envDefault:"10000"`
	ShutdownTimeout time.Duration `env:"MISSIOND_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "The control API listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.MissionsDir, "missions-dir", cfg.MissionsDir, "The mission catalog directory")
	fs.StringVar(&cfg.ResultsDir, "results-dir", cfg.ResultsDir, "The mission result snapshot directory")
	fs.StringVar(&cfg.PlayerID, "player-id", cfg.PlayerID, "The player identity rewards are issued to")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "The reward settlement currency")
	fs.Float64Var(&cfg.MinimumPayout, "minimum-payout", cfg.MinimumPayout, "Minimum amount submitted for settlement")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Pending settlement sweep interval")
	fs.IntVar(&cfg.SubmitWorkers, "submit-workers", cfg.SubmitWorkers, "Maximum concurrent settlement attempts")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", cfg.SubmitTimeout, "Per-attempt settlement timeout")
	fs.IntVar(&cfg.EventLogCap, "event-log-cap", cfg.EventLogCap, "In-memory event log capacity")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the daemon runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMissiond, func(ctx context.Context) error {
		return run(ctx, cfg)
	})
}

func run(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	resultStore := resultfile.NewStore(cfg.ResultsDir)

	missions := map[string]domain.Mission{}
	if cfg.MissionsDir != "" {
		loaded, err := catalog.LoadDir(cfg.MissionsDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("mission catalog %s not found, starting empty", cfg.MissionsDir)
		case err != nil:
			return fmt.Errorf("load mission catalog: %w", err)
		default:
			for _, m := range loaded {
				missions[m.ID] = m
			}
		}
	}
	log.Printf("mission catalog: %d missions", len(missions))

	eventLog := event.NewLog(cfg.EventLogCap)
	hub := ws.NewHub()
	defer hub.Close()
	sink := event.NewFanout(eventLog, telemetry.NewEmitter(store), hub)

	ledger := reward.NewLedger(store, sink, reward.LedgerConfig{
		PlayerID: cfg.PlayerID,
		Currency: cfg.Currency,
	})
	if err := ledger.LoadHistory(ctx); err != nil {
		return err
	}
	log.Printf("reward ledger: earned %.2f %s, pending %.2f %s",
		ledger.TotalEarned(), cfg.Currency, ledger.PendingRewards(), cfg.Currency)

	// The settlement network integration ships separately; until a connected
	// backend is wired in, awards stay durably pending.
	submitter := reward.NewSubmitter(ledger, settlement.Offline{}, reward.SubmitterConfig{
		MaxInFlight:   cfg.SubmitWorkers,
		SubmitTimeout: cfg.SubmitTimeout,
		MinimumPayout: cfg.MinimumPayout,
	})
	ledger.SetHandoff(submitter.Enqueue)

	eng := engine.New(ledger, sink, resultStore)
	api := httpapi.NewServer(eng, ledger, submitter, missions)

	mux := http.NewServeMux()
	mux.Handle("/events", hub)
	mux.Handle("/", api.Handler())
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("control api listening on %s", cfg.ListenAddr)
		serveErr <- server.ListenAndServe()
	}()

	sweep := time.NewTicker(cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-sweep.C:
			if attempts := submitter.ProcessPending(ctx); attempts > 0 {
				log.Printf("settlement sweep: %d attempts, pending %.2f",
					attempts, ledger.PendingRewards())
			}
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve control api: %w", err)
			}
			return nil
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("shutdown control api: %v", err)
			}
			hub.Close()
			submitter.Wait()
			return nil
		}
	}
}
