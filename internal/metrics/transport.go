// Package metrics содержит Prometheus-метрики транспорта и мира.
// Все методы безопасны для nil-получателя: компонент без метрик просто
// ничего не считает.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Transport метрики надежного транспорта одной стороны (server или client)
type Transport struct {
	sent        prometheus.Counter
	resent      prometheus.Counter
	received    prometheus.Counter
	acked       prometheus.Counter
	duplicates  prometheus.Counter
	dropped     prometheus.Counter
	rejected    *prometheus.CounterVec
	bytesSent   prometheus.Counter
	bytesRecv   prometheus.Counter
	outstanding prometheus.Gauge
	peers       prometheus.Gauge
}

// NewTransport создаёт метрики транспорта, но не регистрирует их
func NewTransport(side string) *Transport {
	labels := prometheus.Labels{"side": side}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "voxel",
			Subsystem:   "transport",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "voxel",
			Subsystem:   "transport",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Transport{
		sent:       counter("packets_sent_total", "Отправлено пакетов, включая ACK и heartbeat."),
		resent:     counter("packets_resent_total", "Повторных отправок неподтвержденных сообщений."),
		received:   counter("packets_received_total", "Принято корректных пакетов."),
		acked:      counter("messages_acked_total", "Сообщений, подтвержденных получателем."),
		duplicates: counter("messages_duplicate_total", "Повторно полученных сообщений (не доставлены)."),
		dropped:    counter("datagrams_dropped_total", "Датаграмм, отброшенных из-за переполнения очереди."),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "voxel",
			Subsystem:   "transport",
			Name:        "packets_rejected_total",
			Help:        "Отклоненных пакетов по причинам.",
			ConstLabels: labels,
		}, []string{"reason"}),
		bytesSent:   counter("bytes_sent_total", "Отправлено байт."),
		bytesRecv:   counter("bytes_received_total", "Принято байт."),
		outstanding: gauge("messages_outstanding", "Сообщений, ожидающих подтверждения."),
		peers:       gauge("peers", "Известных удаленных узлов."),
	}
}

// Register регистрирует метрики в реестре
func (t *Transport) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		t.sent, t.resent, t.received, t.acked, t.duplicates, t.dropped,
		t.rejected, t.bytesSent, t.bytesRecv, t.outstanding, t.peers,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Sent учитывает отправленный пакет
func (t *Transport) Sent(bytes int) {
	if t == nil {
		return
	}
	t.sent.Inc()
	t.bytesSent.Add(float64(bytes))
}

// Resent учитывает повторную отправку; сам пакет считается через Sent
func (t *Transport) Resent() {
	if t == nil {
		return
	}
	t.resent.Inc()
}

// Received учитывает принятый пакет
func (t *Transport) Received(bytes int) {
	if t == nil {
		return
	}
	t.received.Inc()
	t.bytesRecv.Add(float64(bytes))
}

// Acked учитывает подтвержденные сообщения
func (t *Transport) Acked(n int) {
	if t == nil || n == 0 {
		return
	}
	t.acked.Add(float64(n))
}

// Duplicate учитывает дубликат сообщения
func (t *Transport) Duplicate() {
	if t == nil {
		return
	}
	t.duplicates.Inc()
}

// Dropped учитывает отброшенную датаграмму
func (t *Transport) Dropped() {
	if t == nil {
		return
	}
	t.dropped.Inc()
}

// Rejected учитывает отклоненный пакет
func (t *Transport) Rejected(reason string) {
	if t == nil {
		return
	}
	t.rejected.WithLabelValues(reason).Inc()
}

// SetOutstanding обновляет число неподтвержденных сообщений и узлов
func (t *Transport) SetOutstanding(messages, peers int) {
	if t == nil {
		return
	}
	t.outstanding.Set(float64(messages))
	t.peers.Set(float64(peers))
}
