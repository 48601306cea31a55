package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_cart/cart-store/internal/catalog"
	"github.com/fjod/go_cart/cart-store/internal/config"
	"github.com/fjod/go_cart/cart-store/internal/events"
	cartgrpc "github.com/fjod/go_cart/cart-store/internal/grpc"
	carthttp "github.com/fjod/go_cart/cart-store/internal/http"
	"github.com/fjod/go_cart/cart-store/internal/service"
	"github.com/fjod/go_cart/cart-store/internal/store"
	"github.com/fjod/go_cart/cart-store/pkg/circuitbreaker"
	"github.com/fjod/go_cart/cart-store/pkg/logger"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health server and the checkout consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("http-port", "8080", "HTTP listen port")
	flags.String("grpc-port", "50052", "gRPC health listen port")
	flags.String("catalog", config.CatalogStatic, "product catalog driver (static|sqlite|mongo)")
	_ = v.BindPFlag("http_port", flags.Lookup("http-port"))
	_ = v.BindPFlag("grpc_port", flags.Lookup("grpc-port"))
	_ = v.BindPFlag("catalog_driver", flags.Lookup("catalog"))

	return cmd
}

// productCatalog is satisfied by every catalog driver.
type productCatalog interface {
	catalog.Lookup
	catalog.Lister
	catalog.Writer
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	settings := circuitbreaker.DefaultSettings("product-catalog")
	settings.ConsecutiveFailures = cfg.BreakerFailures
	settings.Timeout = cfg.BreakerTimeout
	var lookup catalog.Lookup = catalog.NewBreakerLookup(cat, settings, log)

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis product cache enabled", zap.String("addr", cfg.RedisAddr))
		lookup = catalog.NewCachedLookup(lookup, redisClient, log)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers...)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("closing kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
		log.Info("publishing cart events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", events.CartEventsTopic))
	}

	carts := store.NewMemoryStore(store.WithShards(cfg.StoreShards))
	svc := service.NewCartService(carts, lookup, publisher, log, service.WithCatalog(cat, cat))

	router := carthttp.NewRouter(carthttp.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		ServiceName:        cfg.ServiceName,
	}, svc, svc, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	health := cartgrpc.NewServer(log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("cart store starting", zap.String("addr", srv.Addr), zap.String("catalog", cfg.CatalogDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := health.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		consumer := events.NewCheckoutConsumer(svc, log, cfg.KafkaBrokers...)
		g.Go(func() error {
			consumer.Run(gctx)
			return consumer.Close()
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", zap.Int("carts", svc.CartCount()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		health.Shutdown(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server exited")
	return err
}

func openCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (productCatalog, func(), error) {
	switch cfg.CatalogDriver {
	case config.CatalogSQLite:
		c, err := catalog.NewSQLiteCatalog(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite catalog", zap.String("path", cfg.SQLitePath))
		return c, func() { _ = c.Close() }, nil

	case config.CatalogMongo:
		db, err := catalog.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		disconnect := func() { _ = db.Client().Disconnect(context.Background()) }

		c := catalog.NewMongoCatalog(db)
		if err := c.CreateIndexes(ctx); err != nil {
			disconnect()
			return nil, nil, err
		}
		if err := c.Seed(ctx, catalog.DefaultProducts); err != nil {
			disconnect()
			return nil, nil, err
		}
		log.Info("using mongo catalog", zap.String("db", cfg.MongoDBName))
		return c, disconnect, nil

	default:
		log.Info("using static catalog")
		return catalog.NewStaticCatalog(catalog.DefaultProducts...), func() {}, nil
	}
}
