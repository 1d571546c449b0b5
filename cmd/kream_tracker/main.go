package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kream_tracker/internal/config"
	"kream_tracker/internal/crawler"
	deleteAlert "kream_tracker/internal/http-server/handlers/alerts/delete"
	getAlerts "kream_tracker/internal/http-server/handlers/alerts/get"
	upsertAlert "kream_tracker/internal/http-server/handlers/alerts/upsert"
	analyzeItem "kream_tracker/internal/http-server/handlers/analyze"
	getItem "kream_tracker/internal/http-server/handlers/items/get"
	refreshPrices "kream_tracker/internal/http-server/handlers/refresh"
	addWatch "kream_tracker/internal/http-server/handlers/watchlist/add"
	getWatchlist "kream_tracker/internal/http-server/handlers/watchlist/get"
	removeWatch "kream_tracker/internal/http-server/handlers/watchlist/remove"
	"kream_tracker/internal/lib/jwt"
	authMiddlware "kream_tracker/internal/middleware/auth"
	"kream_tracker/internal/notifier"
	"kream_tracker/internal/pricing"
	"kream_tracker/internal/rabbitmq"
	"kream_tracker/internal/scheduler"
	analyzeService "kream_tracker/internal/service/analyze"
	itemsService "kream_tracker/internal/service/items"
	watchlistService "kream_tracker/internal/service/watchlist"
	"kream_tracker/internal/storage/postgres"
	"kream_tracker/internal/storage/redis"
	"kream_tracker/internal/sweep"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting kream tracker", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	jwtParser := jwt.New(cfg.JWTSecret)

	// * Инициализация Redis
	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Db, cfg.Redis.DefaultTTL)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// * Инициализация PostgreSQL
	postgresClient, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgreSQL", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer postgresClient.Close()

	// * Инициализация RabbitMQ
	rabbitMQClient, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitMQ", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer rabbitMQClient.Close()

	rabbitMQProducer := rabbitmq.NewProducer(
		rabbitMQClient.Channel,
		cfg.RabbitMQ.QueueName,
	)
	rabbitMQConsumer := rabbitmq.NewConsumer(
		rabbitMQClient.Channel,
		log,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.WorkerPoolSize,
	)

	// * Отправка алертов: очередь -> SMTP
	emailSender := notifier.NewEmailSender(cfg.SMTP, cfg.Sweep.ResultBase, log)

	if err := rabbitMQConsumer.Consume(ctx, emailSender.HandleMessage); err != nil {
		log.Error("failed to start notification consumer", slog.String("err", err.Error()))
		os.Exit(1)
	}

	kreamCrawler := crawler.New(cfg.Crawler)
	rates := pricing.NewFixedRateProvider(cfg.Exchange.JPYToKRW)
	estimator := pricing.HeuristicEstimator{}

	sweeper := sweep.New(
		log,
		postgresClient,
		redisClient,
		pgSweepLocker{repo: postgresClient},
		kreamCrawler,
		rates,
		estimator,
		rabbitMQProducer,
		cfg.Sweep.InterItemWait,
	)

	// * Внутренний cron (опционально, основной триггер — HTTP)
	sched := scheduler.New(log, sweeper, cfg.Sweep.Cron)
	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer sched.Stop()

	analyzeOp := analyzeService.New(postgresClient, redisClient, kreamCrawler, rates, estimator)
	itemsOp := itemsService.New(postgresClient, redisClient, rates, estimator)
	watchlistOp := watchlistService.New(postgresClient, cfg.Plans)

	requestValidator := validator.New()

	router := setupRouter(
		log,
		requestValidator,
		postgresClient,
		analyzeOp,
		itemsOp,
		watchlistOp,
		sweeper,
		jwtParser,
		cfg,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", slog.String("address", cfg.HTTPServer.Address))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", slog.String("err", err.Error()))
	}

	log.Info("kream tracker stopped")
}

func setupRouter(
	log *slog.Logger,
	validate *validator.Validate,
	postgres *postgres.PostgresRepo,
	analyzeOp *analyzeService.Operator,
	itemsOp *itemsService.Operator,
	watchlistOp *watchlistService.Operator,
	sweeper *sweep.Sweeper,
	jwtParser *jwt.JWTParser,
	cfg *config.Config,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// публичные ручки
	r.Post("/analyze", analyzeItem.New(log, analyzeOp, validate))
	r.Get("/item", getItem.New(log, itemsOp))

	// триггер sweep'а защищён общим секретом, не JWT
	r.Post("/cron/refresh-prices", refreshPrices.New(log, sweeper, cfg.Sweep.Secret))

	// пользовательские ручки за JWT
	r.Group(func(r chi.Router) {
		r.Use(authMiddlware.New(jwtParser))

		r.Get("/watchlist", getWatchlist.New(log, watchlistOp))
		r.Post("/watchlist", addWatch.New(log, watchlistOp, validate))
		r.Delete("/watchlist", removeWatch.New(log, watchlistOp))

		r.Get("/alerts", getAlerts.New(log, postgres))
		r.Post("/alerts", upsertAlert.New(log, postgres, validate))
		r.Delete("/alerts", deleteAlert.New(log, postgres))
	})

	return r
}

// pgSweepLocker адаптирует advisory lock стораджа под интерфейс sweep'а
type pgSweepLocker struct {
	repo *postgres.PostgresRepo
}

func (l pgSweepLocker) AcquireSweepLock(ctx context.Context) (sweep.SweepLease, error) {
	lease, err := l.repo.AcquireSweepLock(ctx)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
