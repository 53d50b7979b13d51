// Package cmd wires the runtime the batch binaries share: database,
// Redis, event bus, subscribers, and the sweep jobs.
package cmd

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	orderapp "orderlife/application/order"
	"orderlife/application/subscriber"
	"orderlife/application/sweep"
	"orderlife/config"
	"orderlife/domain/shared"
	"orderlife/infrastructure/notify"
	"orderlife/infrastructure/persistence/mysql"
	"orderlife/infrastructure/persistence/retry"
	"orderlife/infrastructure/redisstore"
	"orderlife/pkg/logger"
)

// Runtime holds the wired components a binary picks from.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB

	Lifecycle *orderapp.LifecycleService

	CancelExpired    *sweep.CancelExpiredJob
	ExpireUnreceived *sweep.ExpireUnreceivedJob
	SyncRealSales    *sweep.SyncRealSalesJob
}

// NewMySQLConfig maps the app config onto the connection config.
func NewMySQLConfig(cfg *config.Config) *mysql.Config {
	c := mysql.FromAppConfig(cfg.Database)
	return &c
}

// BuildRuntime connects everything. Callers own process lifetime; this
// only fails fast on broken infrastructure.
func BuildRuntime(cfg *config.Config) (*Runtime, error) {
	db, err := NewMySQLConfig(cfg).Connect()
	if err != nil {
		return nil, err
	}
	if cfg.IsDevelopment() {
		if err := mysql.AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	redisClient, err := redisstore.NewClient(cfg.Redis)
	if err != nil {
		return nil, err
	}

	orderRepo := mysql.NewOrderRepository(db)
	trackLogs := mysql.NewTrackLogRepository(db)
	identities := mysql.NewIdentityRepository(db)
	credits := mysql.NewCreditRepository(db)
	stocks := redisstore.NewStockService(redisClient)
	salesStore := redisstore.NewRealSalesStore(redisClient)

	bus := shared.NewEventBus()
	if err := subscriber.RegisterAll(bus,
		subscriber.NewStockSubscriber(stocks),
		subscriber.NewCreditSubscriber(credits),
		subscriber.NewTrackLogSubscriber(trackLogs),
		subscriber.NewNotificationSubscriber(notify.NewLogNotifier()),
	); err != nil {
		return nil, err
	}

	uowFactory := mysql.NewUnitOfWorkFactory(db, retry.FromAppConfig(cfg))
	lifecycle := orderapp.NewLifecycleService(orderRepo, bus, uowFactory)

	logger.Info("Runtime wired",
		zap.String("env", cfg.App.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("redis", cfg.Redis.Addr))

	return &Runtime{
		Config:           cfg,
		DB:               db,
		Lifecycle:        lifecycle,
		CancelExpired:    sweep.NewCancelExpiredJob(orderRepo, lifecycle, identities),
		ExpireUnreceived: sweep.NewExpireUnreceivedJob(orderRepo, lifecycle, identities, cfg.Sweep.Receipt.StreamBatchSize),
		SyncRealSales:    sweep.NewSyncRealSalesJob(orderRepo, salesStore),
	}, nil
}
