// Package api административный HTTP-интерфейс сервера мира:
// проверка живости, состояние мира и метрики Prometheus.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/middleware"
)

// StatusSource отдает последний снимок состояния мира
type StatusSource interface {
	Status() game.Status
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr     string               // адрес для запуска сервера
	World    StatusSource         // источник состояния мира
	Registry *prometheus.Registry // реестр метрик; nil отключает /metrics
	Logger   *logging.Logger
}

// GenericResponse общий формат ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// StatusResponse тело /status
type StatusResponse struct {
	World   game.Status  `json:"world"`
	Process ProcessStats `json:"process"`
	Time    int64        `json:"server_time"`
}

// RestServer представляет административный HTTP сервер
type RestServer struct {
	router     *gin.Engine
	world      StatusSource
	metrics    *ProcessMetrics
	logger     *logging.Logger
	httpServer *http.Server
	addr       string
}

// NewRestServer создает сервер и регистрирует HTTP-метрики в cfg.Registry
func NewRestServer(cfg Config) (*RestServer, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":2112"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetHTTPLogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("admin_api"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	if cfg.Registry != nil {
		promMw := middleware.NewPrometheusMiddleware("admin_api", "/metrics")
		if err := cfg.Registry.Register(promMw); err != nil {
			return nil, err
		}
		router.Use(promMw.Handler())
		router.GET("/metrics", middleware.MetricsHandler(cfg.Registry))
	}

	rs := &RestServer{
		router:  router,
		world:   cfg.World,
		metrics: NewProcessMetrics(),
		logger:  cfg.Logger,
		addr:    cfg.Addr,
	}
	rs.setupRoutes()
	return rs, nil
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)
	rs.router.GET("/status", rs.handleStatus)
	rs.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Маршрут не найден",
		})
	})
}

// Handler возвращает корневой обработчик
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleStatus(c *gin.Context) {
	if rs.world == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Мир не запущен",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние мира",
		Data: StatusResponse{
			World:   rs.world.Status(),
			Process: rs.metrics.Snapshot(),
			Time:    time.Now().Unix(),
		},
	})
}

// Start занимает адрес и обслуживает запросы в отдельной горутине
func (rs *RestServer) Start() error {
	ln, err := net.Listen("tcp", rs.addr)
	if err != nil {
		return err
	}
	rs.addr = ln.Addr().String()
	rs.httpServer = &http.Server{
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := rs.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("Ошибка HTTP сервера: %v", err)
		}
	}()
	rs.logger.Info("HTTP сервер запущен на %s (/health, /status, /metrics)", rs.addr)
	return nil
}

// Addr адрес сервера; после Start фактический
func (rs *RestServer) Addr() string {
	return rs.addr
}

// Stop останавливает сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return rs.httpServer.Shutdown(ctx)
}
