package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"zenly/internal/ai"
	"zenly/internal/config"
	"zenly/internal/handler"
	"zenly/internal/pkg/cache"
	"zenly/internal/pkg/jwt"
	"zenly/internal/pkg/mongodb"
	"zenly/internal/repository"
	"zenly/internal/server/middleware"
	"zenly/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	mongo     *mongodb.Client
	redis     *cache.RedisCache
	streamSvc *service.StreamService

	sweepCancel context.CancelFunc
}

// New 创建服务器实例
// MongoDB 是硬依赖（会话/消息/日记都落在里面），Redis 是可选加速层
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	return srv, nil
}

// setupRoutes 组装依赖并设置路由
func (s *Server) setupRoutes() error {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 仓储层
	db := s.mongo.Database()
	userRepo := repository.NewUserRepo(db)
	convRepo := repository.NewConversationRepo(db)
	msgRepo := repository.NewMessageRepo(db)
	journalRepo := repository.NewJournalRepo(db)
	alertRepo := repository.NewAlertRepo(db)

	// AI 客户端
	aiClient, err := ai.NewClient(context.Background(), &s.cfg.AI)
	if err != nil {
		return err
	}
	log.Info().
		Str("provider", s.cfg.AI.Provider).
		Str("model", s.cfg.AI.Model).
		Msg("initialized AI client")

	// Redis 缺失时传 nil，service 层自行降级
	var contextCache service.ContextCache
	if s.redis != nil {
		contextCache = s.redis
	}

	// 服务层
	crisisSvc := service.NewCrisisService(aiClient, userRepo, alertRepo, s.cfg.Crisis)
	contextSvc := service.NewContextService(userRepo, journalRepo, msgRepo, contextCache, s.cfg.Context)
	journalSvc := service.NewJournalService(aiClient, journalRepo)
	chatSvc := service.NewChatService(aiClient, convRepo, msgRepo, crisisSvc, contextSvc, contextCache)
	streamSvc := service.NewStreamService(aiClient, convRepo, msgRepo, crisisSvc, contextSvc, contextCache, s.cfg.Stream, s.cfg.Crisis.RescanInterval)
	s.streamSvc = streamSvc

	// 过期流式会话清扫器
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	streamSvc.StartSweeper(sweepCtx)

	// 处理器
	chatHdl := handler.NewChatHandler(chatSvc, streamSvc)
	convHdl := handler.NewConversationHandler(convRepo, msgRepo, s.redis)
	journalHdl := handler.NewJournalHandler(journalRepo, journalSvc)

	// JWT
	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}
	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}
	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// API v1（全部需要认证）
	v1 := s.engine.Group("/api/v1")
	v1.Use(middleware.Auth(jwtUtil))
	{
		v1.POST("/conversations", convHdl.Create)
		v1.GET("/conversations", convHdl.List)
		v1.GET("/conversations/:id", convHdl.Get)
		v1.GET("/conversations/:id/messages", convHdl.ListMessages)
		v1.POST("/conversations/:id/messages", chatHdl.SendMessage)
		v1.GET("/conversations/:id/stream", chatHdl.StreamMessage)

		v1.POST("/journals", journalHdl.Create)
		v1.GET("/journals", journalHdl.List)
		v1.GET("/journals/:id", journalHdl.Get)
		v1.POST("/journals/:id/analyze", journalHdl.Analyze)

		v1.GET("/usage/today", convHdl.Usage)
	}

	return nil
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if s.sweepCancel != nil {
			s.sweepCancel()
		}

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
