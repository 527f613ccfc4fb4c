// Package main crowdfunding transactional core API.
//
// @title           Lifecast Transactional Core
// @version         1.0
// @description     Support lifecycle, double-entry journal, disputes and outbox delivery.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer"
	disputectrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/dispute"
	journalctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/journal"
	opsctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/ops"
	payoutctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/payout"
	supportctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/support"
	webhookctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/webhook"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/validation"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/config"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	disputerepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/dispute"
	idemstore "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/idempotency"
	journalrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/journal"
	notifrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/notification"
	outboxrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/outbox"
	projectrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/project"
	supportrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/support"
	webhookrepo "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/webhook"
	disputesvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/dispute"
	journalsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/journal"
	notifsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/notification"
	opssvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/ops"
	outboxsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/outbox"
	payoutsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/payout"
	supportsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/support"
	webhooksvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/webhook"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB is optional: reachable -> durable mode, otherwise transient mode.
	// The choice is made exactly once here, never per request.
	var db *sql.DB
	durable := false
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, starting in transient mode")
	} else if d, err := database.Open(ctx, cfg.DatabaseURL); err != nil {
		log.Warn("database unreachable, starting in transient mode", "err", err)
	} else {
		db = d
		durable = true
		defer db.Close()
	}

	v := validator.New()

	var (
		supportC *supportctrl.Controller
		webhookC *webhookctrl.Controller
		journalC *journalctrl.Controller
		disputeC *disputectrl.Controller
		payoutC  *payoutctrl.Controller
		opsC     *opsctrl.Controller

		idemMW echo.MiddlewareFunc
	)

	if durable {
		// repos
		sr := supportrepo.New(db)
		pr := projectrepo.New(db)
		jr := journalrepo.New(db)
		dr := disputerepo.New(db)
		obr := outboxrepo.New(db)
		nbr := notifrepo.New(db)
		whr := webhookrepo.New(db)

		// services
		js := journalsvc.New(jr)
		ss := supportsvc.New(db, sr, pr, dr, js, obr, nbr, log)
		ds := disputesvc.New(db, dr, ss, js, obr, log)
		ps := payoutsvc.New(db, js, obr, log)
		whs := webhooksvc.New(ss, ds, whr, log)
		qs := opssvc.New(obr, nbr)

		// idempotency store
		store, closeStore := buildIdempotencyStore(cfg, db, log)
		if closeStore != nil {
			defer closeStore()
		}
		idemMW = echoServer.Idempotency(store, cfg.IdempotencyTTL, log)

		// background relays
		sink, closeSink := buildSink(cfg, log)
		if closeSink != nil {
			defer closeSink()
		}
		relay := outboxsvc.NewRelay(db, obr, sink, outboxsvc.Config{
			PollInterval:  cfg.OutboxPollInterval,
			BatchSize:     cfg.OutboxBatchSize,
			MaxAttempts:   cfg.OutboxMaxAttempts,
			BackoffCapSec: cfg.OutboxBackoffCapSec,
		}, log)
		go relay.Run(ctx)

		notifier := notifsvc.NewRelay(db, nbr, notifsvc.LogSender{Log: log}, cfg.NotifyPollInterval, log)
		go notifier.Run(ctx)

		supportC = &supportctrl.Controller{Svc: ss, V: v, Log: log}
		webhookC = &webhookctrl.Controller{Svc: whs, CallbackToken: cfg.WebhookCallbackToken, Log: log}
		journalC = &journalctrl.Controller{Svc: js, Log: log}
		disputeC = &disputectrl.Controller{Svc: ds, V: v, Log: log}
		payoutC = &payoutctrl.Controller{Svc: ps, V: v, Log: log}
		opsC = &opsctrl.Controller{Svc: qs, Log: log}
	} else {
		ss := supportsvc.NewTransient(loadStaticPlans(log), log)
		whs := webhooksvc.New(ss, webhooksvc.UnavailableDisputes{}, webhooksvc.NewMemoryDedup(), log)

		idemMW = echoServer.Idempotency(idemstore.NewMemory(), cfg.IdempotencyTTL, log)

		supportC = &supportctrl.Controller{Svc: ss, V: v, Log: log}
		webhookC = &webhookctrl.Controller{Svc: whs, CallbackToken: cfg.WebhookCallbackToken, Log: log}
	}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New(v)

	e.GET("/health", func(c echo.Context) error {
		mode := "durable"
		if !durable {
			mode = "transient"
		}
		return c.JSON(200, map[string]any{"status": "ok", "mode": mode})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Support: supportC,
		Webhook: webhookC,
		Journal: journalC,
		Dispute: disputeC,
		Payout:  payoutC,
		Ops:     opsC,

		IdempotencyMW: idemMW,
		JWTSecret:     cfg.JWTSecret,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = e.Shutdown(context.Background())
	}()

	log.Info("starting server", "port", cfg.Port, "durable", durable)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Info("server stopped", "err", err)
	}
}

// buildIdempotencyStore picks the replay cache backend. Postgres is the
// default; bolt keeps replays across restarts without a database; memory is
// explicit opt-in to per-process protection only.
func buildIdempotencyStore(cfg config.App, db *sql.DB, log *slog.Logger) (idemstore.Store, func()) {
	switch cfg.IdempotencyStore {
	case "bolt":
		s, err := idemstore.NewBolt(cfg.BoltPath)
		if err != nil {
			log.Error("bolt store unavailable, using memory store", "path", cfg.BoltPath, "err", err)
			return idemstore.NewMemory(), nil
		}
		log.Info("idempotency store: bolt", "path", cfg.BoltPath)
		return s, func() { _ = s.Close() }
	case "memory":
		log.Warn("idempotency store: memory, replays are per-process only")
		return idemstore.NewMemory(), nil
	default:
		return idemstore.NewPostgres(db), nil
	}
}

// buildSink picks the outbox transport: AMQP when configured, HTTP when a
// sink URL is set, otherwise a drain that accepts everything.
func buildSink(cfg config.App, log *slog.Logger) (outboxsvc.Sink, func()) {
	if cfg.AMQPURL != "" {
		s, err := outboxsvc.NewAMQPSink(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.Error("amqp sink unavailable, falling back to noop", "err", err)
			return outboxsvc.NoopSink{}, nil
		}
		log.Info("outbox sink: amqp", "queue", cfg.AMQPQueue)
		return s, s.Close
	}
	if cfg.OutboxSinkURL != "" {
		log.Info("outbox sink: http", "url", cfg.OutboxSinkURL)
		return outboxsvc.NewHTTPSink(cfg.OutboxSinkURL), nil
	}
	log.Warn("no outbox sink configured, events will be drained unsent")
	return outboxsvc.NoopSink{}, nil
}

// loadStaticPlans reads the transient-mode plan catalog from PLANS_JSON.
func loadStaticPlans(log *slog.Logger) supportsvc.StaticPlans {
	raw := os.Getenv("PLANS_JSON")
	if raw == "" {
		return nil
	}
	var plans []model.Plan
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		log.Error("PLANS_JSON invalid, transient catalog empty", "err", err)
		return nil
	}
	return supportsvc.StaticPlans(plans)
}
