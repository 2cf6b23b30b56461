package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/gurwnx222/research-publication-portal/api/swagger"
	"github.com/gurwnx222/research-publication-portal/internal/handler"
	"github.com/gurwnx222/research-publication-portal/internal/middleware"
	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/repository"
	"github.com/gurwnx222/research-publication-portal/internal/service"
	"github.com/gurwnx222/research-publication-portal/internal/upstream"
	"github.com/gurwnx222/research-publication-portal/internal/viewer"
	"github.com/gurwnx222/research-publication-portal/pkg/cache"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	"github.com/gurwnx222/research-publication-portal/pkg/logger"
	corsmiddleware "github.com/gurwnx222/research-publication-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/gurwnx222/research-publication-portal/pkg/middleware/requestid"
)

// @title Research Publication Portal API
// @version 1.0.0
// @description Tiered-access publication viewer fronting the publications REST API
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			repo := repository.NewCacheRepository(client, logr)
			cacheSvc = service.NewCacheService(repo, metricsSvc, cfg.Cache.PageTTL, logr, true)
		}
	}

	upstreamClient := upstream.NewClient(cfg.Upstream, logr)

	publicationSvc := service.NewPublicationService(upstreamClient, cacheSvc, metricsSvc, logr, cfg.Viewer, cfg.Cache.PageTTL)
	accessSvc := service.NewAccessService(upstreamClient, cacheSvc, metricsSvc, validator.New(), logr, cfg.Access, cfg.Cache.AuthorTTL)
	sessionSvc := service.NewSessionService(cfg.Session, logr, func(grant models.AccessGrant) *viewer.Controller {
		return viewer.NewController(publicationSvc, grant, cfg.Viewer, logr)
	})
	exportSvc := service.NewExportService(publicationSvc, cfg.Exports, logr, nil, nil)

	portalHandler := handler.NewPortalHandler(accessSvc, sessionSvc)
	publicationHandler := handler.NewPublicationHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.POST("/portal/login", portalHandler.Login)

	guarded := api.Group("/portal", middleware.Session(sessionSvc))
	guarded.POST("/logout", portalHandler.Logout)
	guarded.GET("/publications", publicationHandler.List)
	guarded.POST("/publications/search", publicationHandler.SearchInput)
	guarded.GET("/publications/export", publicationHandler.Export)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("portal starting",
		"addr", addr,
		"env", cfg.Env,
		"upstream", cfg.Upstream.BaseURL,
		"cache_enabled", cacheSvc.Enabled(),
	)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("portal failed", "error", err)
	}
}
