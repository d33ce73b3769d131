package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/scene"
)

const shutdownTimeout = 10 * time.Second

// TexturesRoute 纹理静态文件的 URL 前缀
const TexturesRoute = "/textures"

type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

type Server struct {
	cfg        config.ServerConfig
	textureDir string
	svc        *scene.Service
	build      BuildInfo
	logger     *zap.Logger
}

// New textureDir 为空时不提供纹理静态文件
func New(cfg config.ServerConfig, textureDir string, svc *scene.Service, build BuildInfo, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		textureDir: textureDir,
		svc:        svc,
		build:      build,
		logger:     logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(s.logger))
	r.Use(CORS())

	if s.textureDir != "" {
		r.Static(TexturesRoute, s.textureDir)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": s.build.Version,
		})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.build)
	})

	h := &handler{cfg: s.cfg, svc: s.svc, logger: s.logger}
	api := r.Group("/api/v1")
	{
		api.POST("/scenes", h.createScene)
		api.GET("/scenes/:md5", h.getScene)
		api.POST("/layers", h.segment)
	}
	return r
}

// Run 阻塞直到 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
