package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/voxelworld/internal/api"
	"github.com/annel0/voxelworld/internal/config"
	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/metrics"
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/observability"
	"github.com/annel0/voxelworld/internal/protocol"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	logging.Configure(cfg.LoggingOptions())
	defer logging.CloseAll()

	logger := logging.GetServerLogger()
	logger.Info("🎮 Запуск сервера воксельного мира...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.Start(ctx, cfg.Tracing())
		if err != nil {
			logger.Error("Не удалось включить трассировку: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	transportMetrics := metrics.NewTransport("server")
	worldMetrics := metrics.NewWorld("server")
	if err := transportMetrics.Register(reg); err != nil {
		log.Fatalf("❌ Ошибка регистрации метрик: %v", err)
	}
	if err := worldMetrics.Register(reg); err != nil {
		log.Fatalf("❌ Ошибка регистрации метрик: %v", err)
	}

	// === СЕТЬ И МИР ===
	channel := cfg.Channel()
	srv, err := network.Listen[protocol.Message](cfg.Server.Addr(), channel, protocol.NewMessageSerializer(), protocol.IsHandshake,
		network.WithMetrics(transportMetrics))
	if err != nil {
		log.Fatalf("❌ Ошибка запуска сокета: %v", err)
	}
	defer srv.Close()
	logger.Info("📡 Транспорт %s (%s) слушает %s", channel.Type, channel.Compression, srv.LocalAddr())

	w := game.NewServerWorld(cfg.ServerWorld(), srv,
		game.WithLogger(logger),
		game.WithMetrics(worldMetrics),
		game.WithTracer(observability.Tracer("internal/game")),
	)
	defer w.Close()

	var admin *api.RestServer
	if cfg.Metrics.Enabled {
		admin, err = api.NewRestServer(api.Config{
			Addr:     net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Metrics.GetMetricsPort())),
			World:    w,
			Registry: reg,
			Logger:   logging.GetHTTPLogger(),
		})
		if err != nil {
			log.Fatalf("❌ Ошибка создания HTTP сервера: %v", err)
		}
		if err := admin.Start(); err != nil {
			log.Fatalf("❌ Ошибка запуска HTTP сервера: %v", err)
		}
	}

	logger.Info("✅ Сервер запущен, %d тиков/с", cfg.Server.TickRate)
	run(ctx, w, cfg.Server.TickRate)

	// === GRACEFUL SHUTDOWN ===
	logger.Info("📡 Получен сигнал, завершение работы...")
	if admin != nil {
		if err := admin.Stop(context.Background()); err != nil {
			logger.Error("❌ Ошибка остановки HTTP сервера: %v", err)
		}
	}
	logger.Info("👋 Сервер остановлен")
}

// run продвигает мир с фиксированным шагом, пока ctx не отменен
func run(ctx context.Context, w *game.ServerWorld, rate int) {
	step := time.Second / time.Duration(rate)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	dt := float32(step.Seconds())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx, dt)
		}
	}
}
