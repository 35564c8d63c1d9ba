package di

import (
	"context"
	"fmt"

	"github.com/nattawut-dev/dropgate/internal/allocator"
	"github.com/nattawut-dev/dropgate/internal/config"
	"github.com/nattawut-dev/dropgate/internal/database"
	"github.com/nattawut-dev/dropgate/internal/feed"
	"github.com/nattawut-dev/dropgate/internal/httpapi"
	"github.com/nattawut-dev/dropgate/internal/kafka"
	"github.com/nattawut-dev/dropgate/internal/logger"
	"github.com/nattawut-dev/dropgate/internal/presence"
	"github.com/nattawut-dev/dropgate/internal/query"
	"github.com/nattawut-dev/dropgate/internal/redis"
	"github.com/nattawut-dev/dropgate/internal/store"
	"go.uber.org/zap"
)

// Container holds all wired dependencies for the service
type Container struct {
	// Infrastructure
	Store      store.Store
	Redis      *redis.Client
	Dispatcher *feed.Dispatcher
	Tracker    presence.Tracker

	// Core
	Engine  *allocator.Engine
	Queries query.Service

	// Handlers
	EventHandler  *httpapi.EventHandler
	ClaimHandler  *httpapi.ClaimHandler
	QueryHandler  *httpapi.QueryHandler
	HealthHandler *httpapi.HealthHandler
}

// NewContainer builds the full dependency graph from configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Store = st

	c.Dispatcher = buildDispatcher(ctx, cfg)
	c.Dispatcher.Start()

	tracker, redisClient, err := buildTracker(ctx, cfg)
	if err != nil {
		c.Dispatcher.Stop()
		return nil, err
	}
	c.Tracker = tracker
	c.Redis = redisClient

	engine, err := allocator.NewEngine(ctx, c.Store, c.Store, c.Dispatcher)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	c.Engine = engine
	c.Queries = query.NewService(c.Store, c.Store)

	c.EventHandler = httpapi.NewEventHandler(c.Engine, c.Queries)
	c.ClaimHandler = httpapi.NewClaimHandler(c.Engine, c.Tracker)
	c.QueryHandler = httpapi.NewQueryHandler(c.Queries)
	c.HealthHandler = httpapi.NewHealthHandler(c.Store, c.Queries, cfg.App.Version)

	return c, nil
}

// Close releases all container resources in reverse wiring order.
func (c *Container) Close() {
	if c.Tracker != nil {
		c.Tracker.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.Dispatcher != nil {
		c.Dispatcher.Stop()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.DBName
		dbCfg.SSLMode = cfg.Database.SSLMode
		dbCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		dbCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		dbCfg.EnableTracing = cfg.OTel.Enabled

		db, err := database.NewPostgres(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect postgres store: %w", err)
		}
		st := store.NewPostgresStore(db)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		logger.Get().Info("using postgres store", zap.String("host", cfg.Database.Host))
		return st, nil

	default:
		logger.Get().Info("using in-memory store")
		return store.NewMemoryStore(), nil
	}
}

func buildDispatcher(ctx context.Context, cfg *config.Config) *feed.Dispatcher {
	var publisher feed.Publisher = feed.NoopPublisher{}
	if cfg.Feed.Enabled {
		publisher = feed.ConnectPublisher(ctx, kafka.ProducerConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		})
	}
	return feed.NewDispatcher(publisher, feed.DispatcherConfig{
		QueueSize:      cfg.Feed.QueueSize,
		PublishTimeout: cfg.Feed.PublishTimeout,
	})
}

func buildTracker(ctx context.Context, cfg *config.Config) (presence.Tracker, *redis.Client, error) {
	if cfg.Presence.Backend == config.PresenceRedis {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		client, err := redis.NewClient(ctx, redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect redis presence: %w", err)
		}
		logger.Get().Info("using redis presence tracker", zap.String("addr", redisCfg.Addr()))
		return presence.NewRedisTracker(client, cfg.Presence.TTL), client, nil
	}

	logger.Get().Info("using in-memory presence tracker")
	return presence.NewMemoryTracker(cfg.Presence.TTL), nil, nil
}
