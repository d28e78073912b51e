package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TuneLib/cache"
	"TuneLib/config"
	"TuneLib/core/auth"
	"TuneLib/core/catalog"
	"TuneLib/core/library"
	"TuneLib/core/notify"
	"TuneLib/db"
	"TuneLib/logger"
	"TuneLib/repository"
	"TuneLib/storage"

	"github.com/gorilla/mux"
)

// NewRouter 注册所有路由。CORS 包在路由外层，预检请求不需要匹配到具体路由
func NewRouter(h *Handler, allowedOrigin string) http.Handler {
	router := mux.NewRouter()

	authed := AuthMiddleware(h.resolver)

	// 曲库
	router.HandleFunc("/api/songs", h.ListSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", h.CreateSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", h.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{id}", h.DeleteSongHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/songs/{id}/cover", h.UploadCoverHandler).Methods(http.MethodPost)

	// 喜欢的歌曲
	router.HandleFunc("/api/liked-songs", authed(h.ListLikedHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/liked-songs/toggle", authed(h.ToggleLikedHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/liked-songs/check/{songId}", authed(h.CheckLikedHandler)).Methods(http.MethodGet)

	// 歌单
	router.HandleFunc("/api/playlist-songs", authed(h.ListPlaylistHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlist-songs/add", authed(h.AddToPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlist-songs/remove/{songId}", authed(h.RemoveFromPlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlist-songs/check/{songId}", authed(h.CheckPlaylistHandler)).Methods(http.MethodGet)

	router.HandleFunc("/ws/library", h.LibraryWebSocketHandler).Methods(http.MethodGet)
	router.PathPrefix(mediaPrefix).HandlerFunc(h.MediaHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)

	return requestLogger(corsMiddleware(allowedOrigin)(router))
}

// Start 初始化依赖并启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅关闭
func Start(cfg *config.Config) error {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		Compress:   true,
	})
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gormDB, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB(gormDB)

	if err := db.AutoMigrateModels(gormDB); err != nil {
		return err
	}

	songRepo := repository.NewGormSongRepository(gormDB)
	membershipRepo := repository.NewGormMembershipRepository(gormDB)

	if cfg.RedisEnabled {
		redisClient, err := cache.ConnectRedis(cfg)
		if err != nil {
			// 缓存只是加速，连不上时直接走数据库
			logger.Warn("[Server] Redis 不可用，关闭成员缓存", logger.ErrorField(err))
		} else {
			defer redisClient.Close()
			membershipRepo = repository.NewCachedMembershipRepository(
				membershipRepo, cache.NewMembershipCache(redisClient, cfg.MembershipCacheTTL))
			logger.Info("[Server] 已启用 Redis 成员缓存", logger.Duration("ttl", cfg.MembershipCacheTTL))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if cfg.JWTSecretFile != "" {
		watcher, err := config.WatchSecretFile(cfg.JWTSecretFile, func(secret string) {
			jwtManager.SetSecret(secret)
			logger.Info("[Auth] JWT 密钥已重新加载")
		})
		if err != nil {
			logger.Warn("[Auth] 无法监听密钥文件", logger.String("path", cfg.JWTSecretFile), logger.ErrorField(err))
		} else {
			defer watcher.Close()
		}
	}

	hub := notify.NewHub()
	go hub.Run()
	defer hub.Stop()

	deps := Deps{
		Catalog:     catalog.NewService(songRepo),
		Liked:       library.NewLikeService(membershipRepo, hub),
		Playlist:    library.NewPlaylistService(membershipRepo, hub),
		Resolver:    jwtManager,
		Hub:         hub,
		HealthCheck: func() error { return db.Ping(gormDB) },
	}

	if cfg.MinioEnabled {
		covers, err := storage.NewCoverStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		deps.Covers = covers
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      NewRouter(NewHandler(deps), cfg.CORSAllowedOrigin),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("[Server] 服务启动", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("[Server] 正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("[Server] 服务已停止")
	return nil
}
