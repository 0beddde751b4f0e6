package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"step2hub/internal/config"
	"step2hub/internal/controller"
	"step2hub/internal/repository"
	"step2hub/internal/service"
	"step2hub/internal/web"
	"step2hub/pkg/configwatcher"
	"step2hub/pkg/database"
	"step2hub/pkg/logger"
	"step2hub/pkg/monitoring"
	"step2hub/pkg/security"
	"step2hub/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *database.Database
	Tagger *service.TaggingService

	tracer *sdktrace.TracerProvider
	cancel context.CancelFunc
}

type repositories struct {
	log    *repository.LogRepository
	report *repository.ReportRepository
}

type services struct {
	tagging   *service.TaggingService
	log       *service.LogService
	dashboard *service.DashboardService
	export    *service.ExportService
}

type controllers struct {
	log       *controller.LogController
	dashboard *controller.DashboardController
	review    *controller.ReviewController
	health    *controller.HealthController
}

func (a *App) initRepositories(db *database.Database) *repositories {
	return &repositories{
		log:    repository.NewLogRepository(db.Gorm),
		report: repository.NewReportRepository(db.SQL),
	}
}

func (a *App) initServices(repos *repositories, tagger *service.TaggingService, backend string) *services {
	return &services{
		tagging:   tagger,
		log:       service.NewLogService(repos.log, tagger, backend),
		dashboard: service.NewDashboardService(repos.report, repos.log),
		export:    service.NewExportService(repos.log),
	}
}

func (a *App) initControllers(s *services, db *database.Database) *controllers {
	backend := db.Backend.Name()
	return &controllers{
		log:       controller.NewLogController(s.log, s.tagging, backend),
		dashboard: controller.NewDashboardController(s.dashboard, backend),
		review:    controller.NewReviewController(s.log, s.export, backend),
		health:    controller.NewHealthController(db, backend),
	}
}

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine, cfg *config.Config, backend string) {
	router.Use(security.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(backend))
	}

	router.Use(monitoring.MetricsMiddleware())
}

// buildRouter 组装仓储、服务、控制器与路由，ctx 结束时后台清理协程退出
func (a *App) buildRouter(ctx context.Context, db *database.Database, tagger *service.TaggingService) (*gin.Engine, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	repos := a.initRepositories(db)
	services := a.initServices(repos, tagger, db.Backend.Name())
	controllers := a.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	router.SetHTMLTemplate(templates)

	a.setupMiddlewares(ctx, router, a.Config, db.Backend.Name())
	a.registerRoutes(router, controllers)
	return router, nil
}

// loadTagger 配置了规则文件时从文件读取，否则使用内置规则
func loadTagger(cfg *config.TaggingConfig) (*service.TaggingService, error) {
	rules := service.DefaultTaggingRules()
	if cfg.RulesFile != "" {
		var err error
		rules, err = service.LoadTaggingRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Tagging rules loaded", zap.String("file", cfg.RulesFile))
	}
	return service.NewTaggingService(rules)
}

func NewApp(cfg *config.Config) *App {
	gin.SetMode(cfg.Server.Mode)

	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.DB, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	// 只建表/补列，不启动服务
	if cfg.MigrateOnly {
		return app
	}

	tagger, err := loadTagger(&cfg.Tagging)
	if err != nil {
		logger.Log.Fatal("Failed to load tagging rules", zap.Error(err))
	}
	app.Tagger = tagger

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	if cfg.Tagging.RulesFile != "" && cfg.Tagging.Watch {
		if err := configwatcher.WatchFile(ctx, cfg.Tagging.RulesFile, tagger.ReloadFile); err != nil {
			logger.Log.Error("Failed to watch tagging rules, hot reload disabled", zap.Error(err))
		}
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint, db.Backend.Name())
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router, err := app.buildRouter(ctx, db, tagger)
	if err != nil {
		logger.Log.Fatal("Failed to build router", zap.Error(err))
	}
	app.Router = router

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running",
			zap.String("port", a.Config.Server.Port),
			zap.String("backend", a.DB.Backend.Name()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close 停止文件监听、刷新追踪数据并关闭数据库
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Log.Error("Failed to close database", zap.Error(err))
		}
	}
}
