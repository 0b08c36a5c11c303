package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/annel0/voxelworld/internal/game"
	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/observability"
)

// Config корневая структура конфигурации приложения
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	World     WorldConfig     `yaml:"world"`
	Network   NetworkConfig   `yaml:"network"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	UDPPort int    `yaml:"udp_port"`
	// TickRate тиков симуляции в секунду
	TickRate int `yaml:"tick_rate"`
	// CorrectEvery период коррекции позиции игрока в тиках
	CorrectEvery int `yaml:"correct_every"`
	// ConnectionsPerSecond ограничение новых подключений; 0 без ограничения
	ConnectionsPerSecond float64 `yaml:"connections_per_second"`
	ConnectionBurst      int     `yaml:"connection_burst"`
}

type ClientConfig struct {
	ServerAddr   string  `yaml:"server_addr"`
	BasePort     int     `yaml:"base_port"`
	FrameRate    int     `yaml:"frame_rate"`
	ViewDistance int     `yaml:"view_distance"`
	Smoothing    float32 `yaml:"smoothing"`
}

type WorldConfig struct {
	AlphaSeed        int64   `yaml:"alpha_seed"`
	BetaSeed         int64   `yaml:"beta_seed"`
	GeneratorWorkers int     `yaml:"generator_workers"`
	ProcessorWorkers int     `yaml:"processor_workers"`
	GenerateDrain    int     `yaml:"generate_drain"`
	ProcessDrain     int     `yaml:"process_drain"`
	MaxProcess       int     `yaml:"max_process"`
	LoadDistance     int     `yaml:"load_distance"`
	LoaderBudget     int     `yaml:"loader_budget"`
	LODViewFactor    float32 `yaml:"lod_view_factor"`
	PlayerSpeed      float32 `yaml:"player_speed"`
	// SpawnPoint точка появления игроков (x, y, z), z направлена вверх
	SpawnPoint [3]float32 `yaml:"spawn_point"`
	Reach      float32    `yaml:"reach"`
}

type NetworkConfig struct {
	Backend     string        `yaml:"backend"`
	Compression string        `yaml:"compression"`
	BufferSize  int           `yaml:"buffer_size"`
	AckInterval time.Duration `yaml:"ack_interval"`
	Timeout     time.Duration `yaml:"timeout"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Console string `yaml:"console"`
	File    string `yaml:"file"`
	// ToFile включает запись в каталог Dir
	ToFile bool   `yaml:"to_file"`
	Dir    string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			UDPPort:              41235,
			TickRate:             30,
			CorrectEvery:         6,
			ConnectionsPerSecond: 10,
			ConnectionBurst:      20,
		},
		Client: ClientConfig{
			ServerAddr:   "127.0.0.1:41235",
			BasePort:     41234,
			FrameRate:    60,
			ViewDistance: 8,
			Smoothing:    10,
		},
		World: WorldConfig{
			AlphaSeed:        400,
			BetaSeed:         500,
			GeneratorWorkers: 4,
			ProcessorWorkers: 2,
			GenerateDrain:    64,
			ProcessDrain:     64,
			MaxProcess:       50,
			LoadDistance:     4,
			LoaderBudget:     10,
			PlayerSpeed:      10.4,
			SpawnPoint:       [3]float32{0, 0, 20},
			Reach:            10,
		},
		Network: NetworkConfig{
			Backend:     network.ChannelUDP.String(),
			Compression: network.CompressionFlate.String(),
			BufferSize:  1024,
			AckInterval: network.DefaultAckInterval,
			Timeout:     network.DefaultTimeout,
			Heartbeat:   network.DefaultHeartbeat,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    2112,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxelworld",
			SampleRatio: 1,
		},
		Logging: LoggingConfig{
			Console: "INFO",
			File:    "DEBUG",
			Dir:     "logs",
		},
	}
}

// GetUDPPort возвращает UDP порт с поддержкой fallback значений
func (s *ServerConfig) GetUDPPort() int {
	return getPortWithEnvFallback(s.UDPPort, "VOXEL_UDP_PORT", 41235)
}

// Addr адрес, на котором слушает сервер
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetUDPPort())
}

// ClientBindAttempts число попыток привязать клиентский сокет к случайному порту
const ClientBindAttempts = 8

// LocalAddr возвращает локальный адрес клиента: BasePort плюс случайный байт
func (c *ClientConfig) LocalAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.BasePort+rand.IntN(256)))
}

// GetMetricsPort возвращает порт административного HTTP с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берется из ENV VOXEL_CONFIG; без файла возвращаются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых мир не запустится
func (c *Config) Validate() error {
	var errs []error
	if c.Server.TickRate <= 0 {
		errs = append(errs, errors.New("server.tick_rate должен быть больше нуля"))
	}
	if c.Client.FrameRate <= 0 {
		errs = append(errs, errors.New("client.frame_rate должен быть больше нуля"))
	}
	if c.World.MaxProcess <= 0 {
		errs = append(errs, errors.New("world.max_process должен быть больше нуля"))
	}
	if c.World.LoadDistance < 0 {
		errs = append(errs, errors.New("world.load_distance не может быть отрицательным"))
	}
	if c.World.GeneratorWorkers <= 0 {
		errs = append(errs, errors.New("world.generator_workers должен быть больше нуля"))
	}
	if c.World.Reach <= 0 {
		errs = append(errs, errors.New("world.reach должен быть больше нуля"))
	}
	if c.World.ProcessorWorkers < 0 {
		errs = append(errs, errors.New("world.processor_workers не может быть отрицательным"))
	}
	if _, err := network.ParseChannelType(c.Network.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := network.ParseCompression(c.Network.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.Network.Timeout <= c.Network.AckInterval {
		errs = append(errs, errors.New("network.timeout должен превышать ack_interval"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio должен быть в пределах [0, 1]"))
	}
	if _, err := logging.ParseLevel(c.Logging.Console); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Logging.File); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Channel собирает настройки транспорта
func (c *Config) Channel() network.ChannelConfig {
	t, _ := network.ParseChannelType(c.Network.Backend)
	comp, _ := network.ParseCompression(c.Network.Compression)
	cfg := network.DefaultChannelConfig(t)
	cfg.Compression = comp
	if c.Network.BufferSize > 0 {
		cfg.BufferSize = c.Network.BufferSize
	}
	cfg.AckInterval = c.Network.AckInterval
	cfg.Timeout = c.Network.Timeout
	cfg.Heartbeat = c.Network.Heartbeat
	cfg.AdmitRate = c.Server.ConnectionsPerSecond
	cfg.AdmitBurst = c.Server.ConnectionBurst
	return cfg
}

// LoggingOptions собирает настройки логгеров
func (c *Config) LoggingOptions() logging.Options {
	console, _ := logging.ParseLevel(c.Logging.Console)
	file, _ := logging.ParseLevel(c.Logging.File)
	return logging.Options{
		ConsoleLevel: console,
		FileLevel:    file,
		File:         c.Logging.ToFile,
		Dir:          c.Logging.Dir,
	}
}

// ServerWorld собирает параметры серверного мира
func (c *Config) ServerWorld() game.ServerConfig {
	w := c.World
	return game.ServerConfig{
		AlphaSeed:        w.AlphaSeed,
		BetaSeed:         w.BetaSeed,
		GeneratorWorkers: w.GeneratorWorkers,
		GenerateDrain:    w.GenerateDrain,
		LoadDistance:     w.LoadDistance,
		LoaderBudget:     w.LoaderBudget,
		LODViewFactor:    w.LODViewFactor,
		SpawnPoint:       mgl32.Vec3(w.SpawnPoint),
		PlayerSpeed:      w.PlayerSpeed,
		Reach:            w.Reach,
		CorrectEvery:     c.Server.CorrectEvery,
	}
}

// ClientWorld собирает параметры клиентского мира
func (c *Config) ClientWorld() game.ClientConfig {
	return game.ClientConfig{
		ProcessorWorkers: c.World.ProcessorWorkers,
		ProcessDrain:     c.World.ProcessDrain,
		MaxProcess:       c.World.MaxProcess,
		ViewDistance:     c.Client.ViewDistance,
		Smoothing:        c.Client.Smoothing,
		PlayerSpeed:      c.World.PlayerSpeed,
	}
}

// Tracing собирает параметры трассировки
func (c *Config) Tracing() observability.Settings {
	return observability.Settings{
		ServiceName: c.Telemetry.ServiceName,
		Endpoint:    c.Telemetry.Endpoint,
		Insecure:    c.Telemetry.Insecure,
		SampleRatio: c.Telemetry.SampleRatio,
	}
}
