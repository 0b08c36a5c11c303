package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/config"
	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/protocol"
	"github.com/annel0/voxelworld/internal/render"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

// dial открывает клиентский сокет, перебирая случайные порты от BasePort
func dial(cfg *config.Config) (*network.Client[protocol.Message], error) {
	var err error
	for i := 0; i < config.ClientBindAttempts; i++ {
		var conn *network.Client[protocol.Message]
		conn, err = network.Dial[protocol.Message](cfg.Client.LocalAddr(), cfg.Client.ServerAddr, cfg.Channel(), protocol.NewMessageSerializer())
		if !errors.Is(err, network.ErrFailedToBind) {
			return conn, err
		}
	}
	return nil, err
}

// Безголовый клиент: подключается, ходит по кругу и время от времени
// ставит блок под собой.
func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию VOXEL_CONFIG)")
	server := flag.String("server", "", "адрес сервера, перекрывает client.server_addr")
	placeEvery := flag.Duration("place", 5*time.Second, "период установки блока; 0 отключает")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *server != "" {
		cfg.Client.ServerAddr = *server
	}
	logging.Configure(cfg.LoggingOptions())
	defer logging.CloseAll()
	logger := logging.GetClientLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка открытия сокета: %v", err)
	}
	defer conn.Close()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = conn.Connect(connectCtx, protocol.Handshake{Version: protocol.ProtocolVersion})
	cancel()
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к %s: %v", cfg.Client.ServerAddr, err)
	}
	logger.Info("✅ Подключено к %s", cfg.Client.ServerAddr)

	renderer := render.NewNull()
	w := game.NewClientWorld(cfg.ClientWorld(), conn, renderer, game.WithLogger(logger))
	defer w.Close()

	frame := time.Second / time.Duration(cfg.Client.FrameRate)
	dt := float32(frame.Seconds())
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()

	start := time.Now()
	lastPlace := start
	for {
		select {
		case <-ctx.Done():
			logger.Info("👋 Клиент остановлен")
			return
		case <-report.C:
			p := w.Player().Translation
			logger.Info("📊 позиция (%.1f, %.1f, %.1f), чанков %d, мешей %d, в очереди %d",
				p.X(), p.Y(), p.Z(), w.Dimension().Len(), w.Meshes(), w.Unresolved())
		case now := <-ticker.C:
			// Взгляд вниз, движение по окружности
			phase := math.Mod(now.Sub(start).Seconds()/4, 2*math.Pi)
			w.Input(entity.Input{
				Direction: mgl32.Vec3{float32(math.Cos(phase)), float32(math.Sin(phase)), 0},
			}, dt)
			if *placeEvery > 0 && now.Sub(lastPlace) >= *placeEvery {
				w.Change(entity.Place, block.Stone)
				lastPlace = now
			}
			w.Tick(ctx, dt)
		}
	}
}
