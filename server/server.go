package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EchoQ/cache"
	"EchoQ/config"
	"EchoQ/core/auth"
	"EchoQ/core/bus"
	"EchoQ/core/queue"
	"EchoQ/db"
	"EchoQ/logger"
	"EchoQ/model"
	"EchoQ/repository"
	"EchoQ/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	stopWatch, err := config.WatchEnv(".env")
	if err != nil {
		logger.Warn("failed to watch .env", logger.ErrorField(err))
		stopWatch = func() {}
	}
	defer stopWatch()

	auth.InitJWT(cfg.JWTSecret)

	// Connect to the database
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.CatalogTrack{}, &model.User{}); err != nil {
		logger.Fatal("Failed to migrate database models", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()
	logger.Info("Successfully connected to Redis")

	// 初始化 MinIO 客户端，失败只降级不中断（定位符将原样返回）
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("Failed to initialize MinIO, locators will not be presigned", logger.ErrorField(err))
	}

	catalogRepo := repository.NewGormCatalogRepository(db.GormDB)
	userRepo := repository.NewGormUserRepository(db.GormDB)
	slots := cache.NewSnapshotStore(cache.RedisClient, cfg.SnapshotTTL)

	eventBus := bus.New()
	svc := queue.NewService(catalogRepo, slots, eventBus, cfg.PersistDebounce)
	defer svc.Close()

	apiHandler := NewAPIHandler(svc, catalogRepo, userRepo, eventBus, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 认证相关
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", apiHandler.AuthMiddleware(apiHandler.LogoutHandler)).Methods(http.MethodPost)

	// 播放器相关的API端点
	router.HandleFunc("/api/player", apiHandler.AuthMiddleware(apiHandler.GetPlayerHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player", apiHandler.AuthMiddleware(apiHandler.ForgetPlayerHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/player/play", apiHandler.AuthMiddleware(apiHandler.PlaySongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/playlist", apiHandler.AuthMiddleware(apiHandler.PlayFromListHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/prev", apiHandler.AuthMiddleware(apiHandler.PrevHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/ended", apiHandler.AuthMiddleware(apiHandler.TrackEndedHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/shuffle", apiHandler.AuthMiddleware(apiHandler.ToggleShuffleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/repeat", apiHandler.AuthMiddleware(apiHandler.CycleRepeatHandler)).Methods(http.MethodPost)

	// 队列相关的API端点
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.GetQueueHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.AddToQueueHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/queue", apiHandler.AuthMiddleware(apiHandler.ClearQueueHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/queue/move", apiHandler.AuthMiddleware(apiHandler.MoveManualHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/{qid}", apiHandler.AuthMiddleware(apiHandler.RemoveFromQueueHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/queue/{qid}/play", apiHandler.AuthMiddleware(apiHandler.PlayNowHandler)).Methods(http.MethodPost)

	// 曲库变更通知（由曲库CRUD服务调用）
	router.HandleFunc("/api/catalog/updated", apiHandler.AuthMiddleware(apiHandler.CatalogUpdatedHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/catalog/deleted", apiHandler.AuthMiddleware(apiHandler.CatalogDeletedHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/catalog/changed", apiHandler.AuthMiddleware(apiHandler.LibraryChangedHandler)).Methods(http.MethodPost)

	// 通知推送
	router.HandleFunc("/ws/notifications", apiHandler.AuthMiddleware(apiHandler.NotificationsHandler)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("EchoQ server listening", logger.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	// 等待退出信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", logger.ErrorField(err))
	}
}
