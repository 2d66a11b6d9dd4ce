package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/config"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe"
	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile"
	"github.com/fekuna/omnipos-inventory-ledger/internal/schema"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/broker"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/cache"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/database"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/rpc"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/search"
	"github.com/jmoiron/sqlx"

	invH "github.com/fekuna/omnipos-inventory-ledger/internal/inventory/handler"
	invRepoPkg "github.com/fekuna/omnipos-inventory-ledger/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-ledger/internal/inventory/usecase"

	ledgerH "github.com/fekuna/omnipos-inventory-ledger/internal/ledger/handler"
	ledgerRepoPkg "github.com/fekuna/omnipos-inventory-ledger/internal/ledger/repository"
	ledgerUCPkg "github.com/fekuna/omnipos-inventory-ledger/internal/ledger/usecase"

	recH "github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/handler"
	recListenerPkg "github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/listener"
	recRepoPkg "github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/repository"
	recUCPkg "github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/usecase"

	recipeH "github.com/fekuna/omnipos-inventory-ledger/internal/recipe/handler"
	recipeRepoPkg "github.com/fekuna/omnipos-inventory-ledger/internal/recipe/repository"
	recipeUCPkg "github.com/fekuna/omnipos-inventory-ledger/internal/recipe/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "omnipos.inventory.ledger"

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := openDatabase(&cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to database", zap.String("driver", db.DriverName()))

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = schema.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		appLogger.Fatal("Could not migrate database", zap.Error(err))
	}

	// 4. Initialize Repositories
	invRepo := invRepoPkg.NewPGRepository(db)
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db)
	sourceRepo := recRepoPkg.NewPGRepository(db)
	var recipeRepo recipe.Repository = recipeRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis: distributed item locks and menu mapping cache
	var locker ledger.Locker = cache.NewLocalLocker()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, using in-process locks", zap.Error(err))
		} else {
			defer redisClient.Close()
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
			locker = cache.NewRedisLocker(redisClient, cfg.Redis.LockTTL)
			recipeRepo = recipeRepoPkg.NewCachedRepository(recipeRepo, redisClient, cfg.Redis.CacheTTL, appLogger)
		}
	}

	// 6. Initialize Elasticsearch (optional ledger audit index)
	var indexer ledger.Indexer
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch (ledger audit index disabled)", zap.Error(err))
		} else {
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
			indexer = esClient
		}
	}

	// 7. Initialize UseCases
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, invRepo, locker, indexer, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, ledgerUC, appLogger)
	reconcileUC := recUCPkg.NewReconcileUseCase(ledgerUC, invRepo, sourceRepo, sourceRepo, cfg.Reconciler.Concurrency, appLogger)
	recipeUC := recipeUCPkg.NewRecipeUseCase(recipeRepo, invRepo, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 8. Start Listener
	if cfg.Kafka.Enabled {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

		recListener := recListenerPkg.NewReconcileListener(kafkaConsumer, reconcileUC, appLogger)
		go recListener.Start(ctx)
	}

	// 9. Scheduled reconciliation
	if cfg.Reconciler.Interval > 0 {
		go runScheduled(ctx, cfg.Reconciler.Interval, reconcileUC, appLogger)
	}

	// 10. Initialize Handlers
	invHandler := invH.NewInventoryHandler(invUC, appLogger)
	ledgerHandler := ledgerH.NewLedgerHandler(ledgerUC, appLogger)
	recHandler := recH.NewReconcileHandler(reconcileUC, appLogger)
	recipeHandler := recipeH.NewRecipeHandler(recipeUC, appLogger)

	// 11. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("port", port), zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(rpc.LoggingInterceptor(appLogger)),
	)

	// Register Services
	grpcServer.RegisterService(invHandler.ServiceDesc(), invHandler)
	grpcServer.RegisterService(ledgerHandler.ServiceDesc(), ledgerHandler)
	grpcServer.RegisterService(recHandler.ServiceDesc(), recHandler)
	grpcServer.RegisterService(recipeHandler.ServiceDesc(), recipeHandler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}

func openDatabase(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == database.DriverSQLite {
		return database.NewSQLite(cfg.SQLitePath)
	}
	return database.NewPostgres(&database.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		DBName:          cfg.DBName,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
}

// runScheduled runs the batch passes on every tick until ctx is cancelled.
// Each pass resumes from whatever state the ledger is in.
func runScheduled(ctx context.Context, interval time.Duration, uc reconcile.UseCase, log logger.ZapLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.ReconcileAllReceiving(ctx); err != nil {
				log.Error("Scheduled receiving reconciliation failed", zap.Error(err))
			}
			if _, err := uc.ReconcileAllWaste(ctx); err != nil {
				log.Error("Scheduled waste reconciliation failed", zap.Error(err))
			}
		}
	}
}
