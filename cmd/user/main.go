package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pgrepo "github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/db/postgres"
	rediscache "github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/db/redis"
	grpcadapter "github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/grpc"
	httpadapter "github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/jwt"
	appsvc "github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/service"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/validate"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/user-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const healthProbeInterval = 15 * time.Second

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		lg.Must("", "user-service").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel, cfg.ServiceName)
	defer zapLog.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("db handle", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("run migrations", zap.Error(err))
	}

	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()

	userRepo := pgrepo.NewPostgresUserRepo(db)
	profileRepo := pgrepo.NewPostgresProfileRepo(db)
	profileCache := rediscache.NewRedisProfileCache(redisCli)
	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}
	validator := validate.New(validate.DefaultPasswordPolicy(), userRepo)
	svc := appsvc.New(userRepo, profileRepo, profileCache, jwtUtil, validator, cfg, zapLog)

	router := httpadapter.NewRouter(svc, cfg, zapLog)
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthSrv := health.NewServer()
	probe := grpcadapter.NewHealthProbe(healthSrv, cfg.ServiceName, zapLog,
		grpcadapter.DBCheck(db), grpcadapter.RedisCheck(redisCli))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		probe.Run(ctx, healthProbeInterval)
		return nil
	})

	g.Go(func() error {
		return server.StartGRPCServer(ctx, cfg, healthSrv, zapLog)
	})

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress), zap.Bool("tls", cfg.TLSEnabled()))
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
