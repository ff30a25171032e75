package app

import (
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rifalabs/rifa-api/internal/api"
	"github.com/rifalabs/rifa-api/internal/artifact"
	"github.com/rifalabs/rifa-api/internal/config"
	"github.com/rifalabs/rifa-api/internal/db"
	"github.com/rifalabs/rifa-api/internal/lock"
	"github.com/rifalabs/rifa-api/internal/logger"
	"github.com/rifalabs/rifa-api/internal/notify"
	"github.com/rifalabs/rifa-api/internal/repository"
	"github.com/rifalabs/rifa-api/internal/repository/dao"
	"github.com/rifalabs/rifa-api/internal/service"
	"github.com/rifalabs/rifa-api/internal/worker"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	if err = dao.InitTables(postgresDB); err != nil {
		return fmt.Errorf("failed to migrate tables -> %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ledger := repository.NewLedger(postgresDB)
	events := repository.NewEventRepository(postgresDB)
	locker := lock.NewEventLocker(redisClient, lock.Options{
		TTL:     conf.Allocator.LockTTL,
		Tries:   conf.Allocator.LockTries,
		Backoff: conf.Allocator.LockBackoff,
	})

	allocator := service.NewTicketAllocator(ledger, events, locker, *conf.Allocator)

	var notifier service.Notifier
	if conf.AMQP != nil && conf.AMQP.URL != "" {
		amqpDispatcher, dialErr := notify.NewAMQPDispatcher(conf.AMQP.URL, conf.AMQP.Exchange)
		if dialErr != nil {
			return fmt.Errorf("failed to initialize notification dispatcher -> %w", dialErr)
		}
		defer amqpDispatcher.Close()
		notifier = amqpDispatcher
	} else {
		notifier = notify.NewLogDispatcher()
	}

	artifacts := artifact.NewQRGenerator(conf.Artifacts.Dir, conf.Artifacts.ShareURL)
	orchestrator := service.NewOrchestrator(allocator, events, notifier, artifacts)

	asynqClient := asynq.NewClient(worker.RedisOpt(conf.Redis))
	defer asynqClient.Close()
	enqueuer := worker.NewEnqueuer(asynqClient, conf.Worker.Queue)

	asynqServer := worker.NewServer(conf.Redis, conf.Worker, ledger)
	go func() {
		if runErr := asynqServer.Run(worker.NewMux(worker.NewHandler(orchestrator))); runErr != nil {
			zap.L().Fatal("worker stopped", zap.Error(runErr))
		}
	}()

	s := api.NewServer(conf, enqueuer, allocator, events)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}
