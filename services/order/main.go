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

	"github.com/appetiteclub/fulfillment/services/order/internal/mongo"
	"github.com/appetiteclub/fulfillment/services/order/internal/order"
)

const (
	appNamespace = "ORDER"
	appName      = "order"
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

	baseRepo := pkgmongo.NewBaseRepo(config, "fulfillment_order", logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	orderRepo := mongo.NewOrderRepo(db)
	outbox := pkgmongo.NewOutbox(db)
	tx := pkgmongo.NewTransactor(baseRepo.GetClient())

	lifecycles := []interface{}{
		aqm.LifecycleHooks{OnStop: baseRepo.Stop},
		orderRepo,
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

	userURL, _ := config.GetString("services.user.url")
	var addresses order.AddressResolver
	if userURL != "" {
		addresses = order.NewUserClient(aqm.NewServiceClient(userURL), logger)
	}

	service := order.NewService(order.ServiceDeps{
		Repo:       orderRepo,
		Outbox:     outbox,
		Transactor: tx,
		Addresses:  addresses,
	}, logger)

	relay := saga.NewRelay(outbox, saga.NewPublisher(bus.Publisher, logger), saga.RelayConfig{
		Interval: pkg.DurationOr(config, "outbox.interval", 0),
		Batch:    pkg.IntOr(config, "outbox.batch", 0),
	}, logger)

	lifecycles = append(lifecycles, relay)
	for _, l := range order.NewListeners(order.ListenerDeps{
		Subscriber: bus.Subscriber,
		Ledger:     ledger,
		Transactor: tx,
		Service:    service,
	}, logger) {
		lifecycles = append(lifecycles, l)
	}
	lifecycles = append(lifecycles, aqm.LifecycleHooks{OnStop: bus.Stop})

	handler := order.NewHandler(service, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

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

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
