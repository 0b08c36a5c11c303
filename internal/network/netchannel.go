// Package network реализует надежную доставку сообщений поверх датаграмм:
// подтверждения, повторная отправка, отсев дубликатов и контроль живости.
// Транспорт без блокировок на стороне вызывающего: все состояние
// продвигается явным вызовом Update из тика.
package network

import (
	"fmt"
	"strings"
	"time"
)

// ChannelType определяет тип канала связи
type ChannelType int

const (
	ChannelUDP ChannelType = iota
	ChannelKCP
)

func (t ChannelType) String() string {
	switch t {
	case ChannelUDP:
		return "udp"
	case ChannelKCP:
		return "kcp"
	default:
		return fmt.Sprintf("ChannelType(%d)", int(t))
	}
}

// ParseChannelType разбирает имя канала из конфигурации
func ParseChannelType(s string) (ChannelType, error) {
	switch strings.ToLower(s) {
	case "", "udp":
		return ChannelUDP, nil
	case "kcp":
		return ChannelKCP, nil
	default:
		return 0, fmt.Errorf("неизвестный тип канала: %s", s)
	}
}

const (
	// DefaultAckInterval через сколько неподтвержденное сообщение уходит повторно
	DefaultAckInterval = 1500 * time.Millisecond
	// DefaultTimeout таймаут рукопожатия и тишины удаленного узла
	DefaultTimeout = 5 * time.Second
	// DefaultHeartbeat период пустых пакетов, поддерживающих живость
	DefaultHeartbeat = time.Second

	// Максимальная полезная нагрузка UDP датаграммы
	maxDatagram = 65507
)

// ChannelConfig содержит конфигурацию канала
type ChannelConfig struct {
	Type        ChannelType
	BufferSize  int           // Емкость очереди входящих датаграмм
	AckInterval time.Duration // Интервал повторной отправки
	Timeout     time.Duration // Таймаут рукопожатия и тишины
	Heartbeat   time.Duration // Период heartbeat
	Compression Compression   // Сжатие полезной нагрузки
	MaxAcks     int           // Подтверждений в одном ACK-пакете

	// Новых клиентов в секунду; 0 без ограничения
	AdmitRate  float64
	AdmitBurst int
}

// DefaultChannelConfig возвращает конфигурацию канала по умолчанию
func DefaultChannelConfig(channelType ChannelType) ChannelConfig {
	return ChannelConfig{
		Type:        channelType,
		BufferSize:  1024,
		AckInterval: DefaultAckInterval,
		Timeout:     DefaultTimeout,
		Heartbeat:   DefaultHeartbeat,
		Compression: CompressionFlate,
		MaxAcks:     256,
	}
}

func (c ChannelConfig) withDefaults() ChannelConfig {
	def := DefaultChannelConfig(c.Type)
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.AckInterval <= 0 {
		c.AckInterval = def.AckInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = def.Heartbeat
	}
	if c.MaxAcks <= 0 {
		c.MaxAcks = def.MaxAcks
	}
	return c
}

// ConnectionStats содержит статистику сокета
type ConnectionStats struct {
	PacketsSent     uint64    // Отправлено пакетов
	PacketsResent   uint64    // Повторных отправок
	PacketsReceived uint64    // Принято корректных пакетов
	PacketsRejected uint64    // Отброшено из-за ошибок
	PacketsDropped  uint64    // Отброшено из-за переполнения очереди
	Duplicates      uint64    // Повторно полученных сообщений
	BytesSent       uint64    // Отправлено байт
	BytesReceived   uint64    // Получено байт
	Outstanding     int       // Ожидают подтверждения
	Peers           int       // Известных узлов
	LastActivity    time.Time // Последний принятый пакет
}
