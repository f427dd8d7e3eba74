package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/settleup/settleup-api/internal/core/ports"
	"github.com/settleup/settleup-api/internal/core/service"
	"github.com/settleup/settleup-api/internal/infrastructure/config"
	"github.com/settleup/settleup-api/internal/infrastructure/db/mongo"
	"github.com/settleup/settleup-api/internal/infrastructure/db/redis"
	"github.com/settleup/settleup-api/internal/infrastructure/payment"
	"github.com/settleup/settleup-api/internal/infrastructure/queue"
	"github.com/settleup/settleup-api/pkg/logger"
)

const disconnectTimeout = 10 * time.Second

// runtime bundles the connections and services shared by every command.
type runtime struct {
	cfg   *config.Config
	log   zerolog.Logger
	mongo *mongodriver.Client
	db    *mongodriver.Database
	redis *goredis.Client
	tasks *asynq.Client

	users         *mongo.UserRepository
	clients       *mongo.ClientRepository
	notifications *service.NotificationService
	payments      *service.PaymentService
	dispatcher    *queue.Dispatcher
	hub           *redis.Hub
}

// newRuntime loads configuration, initialises the logger, connects to
// MongoDB and Redis, ensures indexes and builds the core services. The
// dispatcher is started on ctx.
func newRuntime(ctx context.Context, opts *RootOptions, name string) (*runtime, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logger.Init(logger.Options{
		Level:   level,
		Pretty:  opts.Pretty || !cfg.IsProduction(),
		Service: name,
	})

	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	mc, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		disconnect(mc, log)
		return nil, err
	}

	rdb, err := redis.Connect(ctx, redisConfig(cfg))
	if err != nil {
		disconnect(mc, log)
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	rt := &runtime{
		cfg:     cfg,
		log:     log,
		mongo:   mc,
		db:      db,
		redis:   rdb,
		tasks:   asynq.NewClient(redisOpt(cfg)),
		users:   mongo.NewUserRepository(db),
		clients: mongo.NewClientRepository(db),
	}

	rt.hub = redis.NewHub(rdb, log)
	rt.dispatcher = queue.NewDispatcher(cfg.Notify.Workers, rt.hub, log)
	rt.dispatcher.Start(ctx)

	rt.notifications = service.NewNotificationService(mongo.NewNotificationRepository(db), rt.dispatcher, log)

	deps := service.PaymentDeps{
		Clients:     rt.clients,
		Users:       rt.users,
		Notifier:    rt.notifications,
		Reminders:   queue.NewReminderQueue(rt.tasks),
		Dedup:       redis.NewDedupChecker(rdb, cfg.Stripe.DedupTTL),
		FrontendURL: cfg.FrontendURL,
	}
	if p := paymentProvider(cfg, log); p != nil {
		deps.Provider = p
	}
	rt.payments = service.NewPaymentService(deps, log)

	return rt, nil
}

// paymentProvider keeps a missing provider a true nil interface.
func paymentProvider(cfg *config.Config, log zerolog.Logger) ports.PaymentProvider {
	p := payment.NewStripeProvider(payment.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}, log)
	if p == nil {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, payment links disabled")
		return nil
	}
	return p
}

func redisConfig(cfg *config.Config) redis.Config {
	return redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	o := redisConfig(cfg).Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

// Close releases every connection held by the runtime.
func (rt *runtime) Close() {
	if err := rt.tasks.Close(); err != nil {
		rt.log.Error().Err(err).Msg("error closing task client")
	}
	if err := rt.redis.Close(); err != nil {
		rt.log.Error().Err(err).Msg("error closing redis")
	}
	disconnect(rt.mongo, rt.log)
}

func disconnect(mc *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := mc.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("error disconnecting mongodb")
	}
}

func wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
