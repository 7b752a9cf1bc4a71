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
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/fulfillment/services/user/internal/mongo"
	"github.com/appetiteclub/fulfillment/services/user/internal/user"
)

const (
	appNamespace = "USER"
	appName      = "user"
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

	baseRepo := pkgmongo.NewBaseRepo(config, "fulfillment_user", logger)
	if err := baseRepo.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	addressRepo := mongo.NewAddressRepo(db)
	outbox := pkgmongo.NewOutbox(db)
	tx := pkgmongo.NewTransactor(baseRepo.GetClient())

	lifecycles := []interface{}{
		aqm.LifecycleHooks{OnStop: baseRepo.Stop},
		addressRepo,
		outbox,
	}

	bus, err := pkg.NewBus(ctx, config, appName, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to event channel: %v", appName, appVersion, err)
	}

	service := user.NewService(user.ServiceDeps{
		Repo:       addressRepo,
		Outbox:     outbox,
		Transactor: tx,
	}, logger)

	relay := saga.NewRelay(outbox, saga.NewPublisher(bus.Publisher, logger), saga.RelayConfig{
		Interval: pkg.DurationOr(config, "outbox.interval", 0),
		Batch:    pkg.IntOr(config, "outbox.batch", 0),
	}, logger)

	lifecycles = append(lifecycles,
		relay,
		aqm.LifecycleHooks{OnStop: bus.Stop},
	)

	handler := user.NewHandler(service, logger)

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
