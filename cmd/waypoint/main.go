package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/waypoint/internal/api"
	"github.com/alexanderramin/waypoint/internal/candidate"
	"github.com/alexanderramin/waypoint/internal/cascade"
	"github.com/alexanderramin/waypoint/internal/cli"
	"github.com/alexanderramin/waypoint/internal/config"
	"github.com/alexanderramin/waypoint/internal/cooldown"
	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/llm"
	"github.com/alexanderramin/waypoint/internal/logging"
	"github.com/alexanderramin/waypoint/internal/notify"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/alexanderramin/waypoint/internal/service"
	"github.com/alexanderramin/waypoint/internal/trigger"
	"github.com/alexanderramin/waypoint/internal/trust"
	"github.com/mattn/go-isatty"
	backend "github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("WAYPOINT_CONFIG"))
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	uow := db.NewSQLiteUnitOfWork(database)

	var store cooldown.Store = cooldown.NewMemoryStore()
	if cfg.Cooldown.Backend == "redis" {
		rs, err := cooldown.Dial(ctx, cfg.Cooldown.RedisAddr, cfg.Cooldown.RedisDB, cooldown.WithPrefix(cfg.Cooldown.Prefix))
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	}

	notifier := notify.Fanout{notify.NewLog(logger)}
	var reviews trust.ReviewQueue
	if cfg.Notify.Backend == "redis" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Notify.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Notify.RedisAddr, err)
		}
		pub := notify.NewRedis(client, cfg.Notify.Prefix)
		notifier = append(notifier, pub)
		reviews = pub
	}

	metrics := service.NewMetrics()
	audits := repository.NewSQLiteAuditRepo(database)
	snapshots := repository.NewSQLiteSnapshotRepo(database)

	llmCfg := llm.LoadConfig()
	var classifier prompt.Classifier
	if llmCfg.Enabled {
		observers := llm.MultiObserver{metrics}
		if llmCfg.LogCalls {
			observers = append(observers, llm.NewLogObserver(logger))
		}
		classifier = prompt.NewLLMClassifier(llm.NewOllamaClient(llmCfg, observers))
	}

	engine := service.NewEngine(service.Deps{
		UoW: uow,
		Detector: trigger.NewDetector(trigger.Config{
			WeatherLookahead:     cfg.Engine.WeatherLookahead.Duration,
			WeatherRiskThreshold: cfg.Engine.WeatherRiskThreshold,
			OverrunThreshold:     cfg.Engine.OverrunThreshold.Duration,
			MoodThreshold:        cfg.Engine.MoodThreshold,
			Cooldown:             cfg.Engine.TriggerCooldown.Duration,
		}, store, audits, logger),
		Parser: prompt.NewParser(classifier, audits, repository.NewSQLiteFlagRepo(database), prompt.Config{
			MaxLength:     cfg.Prompt.MaxLength,
			Timeout:       cfg.Prompt.ClassifierTimeout.Duration,
			MinConfidence: llmCfg.MinConfidence,
		}, logger),
		Generator: candidate.NewGenerator(candidate.Config{
			TopK:             cfg.Cand.TopK,
			SwapRadiusM:      cfg.Cand.SwapRadiusM,
			MicroStopRadiusM: cfg.Cand.MicroStopRadiusM,
			WeightDistance:   cfg.Cand.WeightDistance,
			WeightQuality:    cfg.Cand.WeightQuality,
			WeightTag:        cfg.Cand.WeightTag,
		}, repository.NewSQLiteActivityRepo(database)),
		Machine: pivot.NewMachine(uow, pivot.Config{
			MaxDepth:     cfg.Engine.MaxPivotDepth,
			Expiry:       cfg.Engine.PivotExpiry.Duration,
			ExpiringSoon: cfg.Engine.ExpiringSoon.Duration,
			Cascade: cascade.Config{
				MinGap:     cfg.Cascade.MinGap.Duration,
				DayEndHour: cfg.Cascade.DayEndHour,
			},
		}, notifier, logger),
		Resolver: trust.NewResolver(uow, reviews, notifier, logger),
		Weather:  snapshots,
		Location: snapshots,
		Metrics:  metrics,
		Logger:   logger,
	}, service.Config{
		Parallelism:   cfg.Engine.EvaluationParallelism,
		ExtendMinutes: cfg.Engine.ExtendMinutes,
	}, service.NewLogUseCaseObserver(logger), metrics)

	app := &cli.App{
		Engine: engine,
		Server: &cli.Server{
			Addr:    cfg.HTTPAddr,
			Handler: api.NewHandler(engine, metrics.Handler(), logger),
			Loops: []func(context.Context) error{
				pivot.NewScanner(engine, cfg.Engine.ScanInterval.Duration, logger).Run,
				func(ctx context.Context) error {
					return engine.RunEvaluations(ctx, cfg.Engine.EvaluationInterval.Duration)
				},
			},
			Logger: logger.With(slog.String("component", "server")),
		},
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
