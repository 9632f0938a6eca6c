// Command server runs the data quality engine: REST API, websocket live
// channel, background scan pool, audit worker and the real-time monitor.
// main wires dependencies and keeps the lifecycle small; business logic
// lives in the internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"dataguard/internal/audit"
	"dataguard/internal/catalog"
	catalogsource "dataguard/internal/catalog/source"
	catalogstore "dataguard/internal/catalog/store"
	"dataguard/internal/classify"
	"dataguard/internal/events"
	httpapi "dataguard/internal/http"
	issuehandler "dataguard/internal/issues/handler"
	issuemetrics "dataguard/internal/issues/metrics"
	issueservice "dataguard/internal/issues/service"
	issuestore "dataguard/internal/issues/store"
	"dataguard/internal/live"
	monitorhandler "dataguard/internal/monitor/handler"
	monitormetrics "dataguard/internal/monitor/metrics"
	monitorservice "dataguard/internal/monitor/service"
	monitorstore "dataguard/internal/monitor/store"
	"dataguard/internal/platform/config"
	"dataguard/internal/platform/database"
	"dataguard/internal/platform/httpserver"
	"dataguard/internal/platform/logger"
	platformredis "dataguard/internal/platform/redis"
	rulehandler "dataguard/internal/rules/handler"
	rulemetrics "dataguard/internal/rules/metrics"
	ruleservice "dataguard/internal/rules/service"
	rulestore "dataguard/internal/rules/store"
	scanhandler "dataguard/internal/scan/handler"
	scanmetrics "dataguard/internal/scan/metrics"
	scanservice "dataguard/internal/scan/service"
	"dataguard/internal/validate"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres/Redis when configured, in-memory otherwise.
	var (
		ruleStore  ruleservice.Store
		issueStore issueservice.Store
		alertStore monitorservice.AlertStore
		scoreStore monitorservice.ScoreStore
		cat        catalog.Catalog
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		for _, ddl := range []string{
			catalogstore.Schema(),
			rulestore.Schema(),
			issuestore.Schema(),
			monitorstore.AlertSchema(),
		} {
			if _, err := db.ExecContext(ctx, ddl); err != nil {
				return err
			}
		}
		ruleStore = rulestore.NewPostgres(db)
		issueStore = issuestore.NewPostgres(db)
		alertStore = monitorstore.NewPostgresAlerts(db)
		cat = catalogstore.NewPostgresCatalog(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		ruleStore = rulestore.NewInMemory()
		issueStore = issuestore.NewInMemory()
		alertStore = monitorstore.NewInMemoryAlerts()
		cat = catalogstore.NewInMemoryCatalog()
	}

	if cfg.RedisURL != "" {
		client, err := platformredis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		scoreStore = monitorstore.NewRedisScores(client, 0)
	} else {
		scoreStore = monitorstore.NewInMemoryScores(0)
	}

	// Audit trail: Kafka when configured, in-memory otherwise.
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("no kafka brokers configured, audit trail stays in memory")
		sink = audit.NewMemorySink()
	}
	recorder := audit.NewRecorder(0, log)
	auditWorker := audit.NewWorker(audit.NewPublisher(sink), recorder.Inbox(), log)

	bus := events.New(log, 0)
	defer bus.Close()

	// External collaborators. Real deployments register warehouse-backed
	// sources here; the default registry is empty until they do.
	sources := catalogsource.NewMemoryRegistry()

	classifier := classify.New(classify.Config{})
	validator := validate.New(cat, sources, validate.Config{}, log)

	issues := issueservice.New(issueStore, log,
		issueservice.WithAuditor(recorder),
		issueservice.WithNotifier(events.NewIssueNotifier(bus)),
		issueservice.WithMetrics(issuemetrics.New()),
	)

	supervisor := scanservice.NewSupervisor(cfg.ScanWorkers, log)
	defer supervisor.Close()

	rules, err := ruleservice.New(ruleStore, log,
		ruleservice.WithMetrics(rulemetrics.New()),
	)
	if err != nil {
		return err
	}

	orchestrator := scanservice.New(cat, sources, classifier, validator, rules, issues, supervisor, log,
		scanservice.WithAuditor(recorder),
		scanservice.WithMetrics(scanmetrics.New()),
		scanservice.WithSampleTimeout(cfg.SampleTimeout),
	)
	rules.SetScanTrigger(orchestrator)

	monitor := monitorservice.New(cfg.MonitorInterval, issues, scoreStore, alertStore, bus, log,
		monitorservice.WithAuditor(recorder),
		monitorservice.WithMetrics(monitormetrics.New()),
	)

	hub := live.NewHub(bus, log)

	router := httpapi.NewRouter(log,
		[]httpapi.Registrar{
			rulehandler.New(rules, log),
			scanhandler.New(orchestrator, log),
			issuehandler.New(issues, log),
			monitorhandler.New(monitor, log),
		},
		live.NewHandler(hub, monitor, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return auditWorker.Run(ctx) })
	group.Go(func() error { return hub.Run(ctx) })
	group.Go(func() error { return monitor.Run(ctx) })
	group.Go(func() error {
		log.Info("starting dataguard", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
