package http

import (
	"time"

	"github.com/Miraines/MoonyAndStarry/user-service/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/MoonyAndStarry/user-service/internal/app/user/service"
	"github.com/Miraines/MoonyAndStarry/user-service/internal/infra/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const rateLimitCacheSize = 10_000

func NewRouter(svc appsvc.Service, cfg *config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	if cfg.RateLimitRPS > 0 {
		router.Use(middleware.NewHTTPRateLimitPerIP(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimitCacheSize, time.Hour))
	}

	// cors.New panics without any allowed origin
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"Authorization",
				"X-Requested-With",
			},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := NewHandler(svc, cfg.ServiceName)
	auth := middleware.RequireAuth(svc, log)

	router.POST("/register", h.Register)
	router.POST("/token", h.Token)
	router.POST("/token/refresh", h.Refresh)

	router.GET("/profile", auth, h.Profile)
	router.PUT("/profile-update", auth, h.UpdateProfile)
	router.PATCH("/profile-update", auth, h.UpdateProfile)
	router.DELETE("/account", auth, h.DeleteAccount)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
