package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"tiffin/internal/config"
	"tiffin/internal/identity"
	identityrepo "tiffin/internal/identity/repository"
	"tiffin/internal/infrastructure/fixtures"
	"tiffin/internal/infrastructure/logger"
	"tiffin/internal/infrastructure/metrics"
	"tiffin/internal/infrastructure/mysql"
	"tiffin/internal/infrastructure/postgres"
	"tiffin/internal/order"
	orderrepo "tiffin/internal/order/repository"
	"tiffin/internal/realtime"
	"tiffin/internal/realtime/kafkafeed"
	"tiffin/internal/realtime/pgnotify"
	"tiffin/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	hub := realtime.NewHub(zapLogger)
	hub.OnSubscriptionCount(func(n int) { m.Subscriptions.Set(float64(n)) })

	g, gctx := errgroup.WithContext(ctx)

	// Bloque 1: Store y perfiles según el driver configurado
	var store order.Store
	var profiles identity.ProfileFinder
	switch cfg.Store.Driver {
	case config.StoreDriverMySQL:
		db, err := mysql.NewConnection(ctx, cfg.Database)
		if err != nil {
			zapLogger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		zapLogger.Info("database connected", zap.String("driver", cfg.Store.Driver))

		store = orderrepo.NewMySQLOrderRepository(db)
		profiles = identityrepo.NewMySQLProfileRepository(db)

	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			zapLogger.Fatal("connecting to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := orderrepo.EnsurePostgresSchema(ctx, pool); err != nil {
			zapLogger.Fatal("preparing postgres schema", zap.Error(err))
		}
		zapLogger.Info("database connected", zap.String("driver", cfg.Store.Driver))

		pgStore := orderrepo.NewPostgresOrderRepository(pool)
		store = pgStore
		profiles = identityrepo.NewPostgresProfileRepository(pool)

		if cfg.Realtime.Source == config.RealtimeSourcePostgres {
			if err := pgnotify.EnsureTrigger(ctx, pool, cfg.Postgres.Channel); err != nil {
				zapLogger.Fatal("installing change trigger", zap.Error(err))
			}
			listener := pgnotify.NewListener(pool, cfg.Postgres.Channel, pgStore, hub, m, zapLogger)
			g.Go(func() error { return listener.Run(gctx) })
		}

	case config.StoreDriverMemory:
		memStore, memProfiles, err := memoryStore(cfg.Store.SeedFile)
		if err != nil {
			zapLogger.Fatal("seeding memory store", zap.Error(err))
		}
		store = memStore
		profiles = memProfiles
		zapLogger.Warn("using in-memory order store; data is lost on exit", zap.String("seedFile", cfg.Store.SeedFile))
	}

	// Bloque 2: Feed de cambios
	if cfg.Realtime.Source != config.RealtimeSourcePostgres {
		store = realtime.NewPublishingStore(store, hub, zapLogger)
	}
	if cfg.Realtime.Source == config.RealtimeSourceKafka {
		brokers := kafkafeed.ParseBrokers(cfg.Kafka.Brokers)
		relay := kafkafeed.NewRelay(
			hub,
			kafkafeed.NewWriter(brokers, cfg.Kafka.Topic),
			kafkafeed.NewReader(brokers, cfg.Kafka.Topic, kafkafeed.GroupID(cfg.Kafka.GroupID, hub.NodeID())),
			m,
			zapLogger,
		)
		g.Go(func() error { return relay.Run(gctx) })
	}
	zapLogger.Info("change feed ready", zap.String("source", cfg.Realtime.Source), zap.String("nodeId", hub.NodeID()))

	// Bloque 3: HTTP
	orderModule := order.NewModule(store, hub, cfg, m, zapLogger)
	provider := identity.NewProvider(profiles, zapLogger)
	router := server.NewRouter(orderModule.Controller, identity.Middleware(provider, zapLogger), m, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)
	srv.OnShutdown(orderModule.Screens.CloseAll)
	g.Go(func() error { return srv.Run(gctx, 10*time.Second) })

	if err := g.Wait(); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		return
	}

	zapLogger.Info("server stopped gracefully")
}

func memoryStore(seedFile string) (*orderrepo.MemoryOrderRepository, *identityrepo.MemoryProfileRepository, error) {
	orders := orderrepo.NewMemoryOrderRepository()
	if seedFile == "" {
		return orders, identityrepo.NewMemoryProfileRepository(), nil
	}

	f, err := fixtures.Load(seedFile)
	if err != nil {
		return nil, nil, err
	}
	seededProfiles, err := f.DomainProfiles()
	if err != nil {
		return nil, nil, err
	}
	seededOrders, err := f.DomainOrders(time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	orders.Seed(seededOrders...)
	return orders, identityrepo.NewMemoryProfileRepository(seededProfiles...), nil
}
