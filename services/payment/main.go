package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/fulfillment/pkg"
	pkgmongo "github.com/appetiteclub/fulfillment/pkg/mongo"
	"github.com/appetiteclub/fulfillment/pkg/redis"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/fulfillment/services/payment/internal/mongo"
	"github.com/appetiteclub/fulfillment/services/payment/internal/payment"
)

const (
	appNamespace = "PAYMENT"
	appName      = "payment"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := pkgmongo.NewBaseRepo(config, "fulfillment_payment", logger)
	if err := baseRepo.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	paymentRepo := mongo.NewPaymentRepo(db)
	outbox := pkgmongo.NewOutbox(db)
	tx := pkgmongo.NewTransactor(baseRepo.GetClient())

	lifecycles := []interface{}{
		aqm.LifecycleHooks{OnStop: baseRepo.Stop},
		paymentRepo,
		outbox,
	}

	var ledger saga.Ledger = pkgmongo.NewLedger(db, appName)
	if pkg.StringOr(config, "ledger.backend", "mongo") == "redis" {
		redisLedger := redis.NewLedgerFromConfig(config, appName)
		ledger = redisLedger
		lifecycles = append(lifecycles, redisLedger)
	}

	bus, err := pkg.NewBus(ctx, config, appName, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to event channel: %v", appName, appVersion, err)
	}

	service := payment.NewService(payment.ServiceDeps{
		Repo:            paymentRepo,
		Outbox:          outbox,
		Transactor:      tx,
		Provider:        payment.NewProviderClient(payment.ProviderConfigFrom(config), logger),
		DefaultCurrency: pkg.StringOr(config, "payment.currency", "eur"),
	}, logger)

	webhook := payment.NewProviderWebhookProcessor(ledger, tx, service, logger)

	relay := saga.NewRelay(outbox, saga.NewPublisher(bus.Publisher, logger), saga.RelayConfig{
		Interval: pkg.DurationOr(config, "outbox.interval", 0),
		Batch:    pkg.IntOr(config, "outbox.batch", 0),
	}, logger)

	lifecycles = append(lifecycles,
		relay,
		aqm.LifecycleHooks{OnStop: bus.Stop},
	)

	handler := payment.NewHandler(service, webhook, pkg.StringOr(config, "payment.webhook.secret", ""), logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
