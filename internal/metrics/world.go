package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// World метрики тика и конвейера чанков
type World struct {
	tick      prometheus.Histogram
	generated prometheus.Counter
	stale     prometheus.Counter
	activated prometheus.Counter
	updated   prometheus.Counter
	chunks    *prometheus.GaugeVec
	entities  prometheus.Gauge
}

// NewWorld создаёт метрики мира, но не регистрирует их
func NewWorld(side string) *World {
	labels := prometheus.Labels{"side": side}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "voxel",
			Subsystem:   "world",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &World{
		tick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "voxel",
			Subsystem:   "world",
			Name:        "tick_duration_seconds",
			Help:        "Длительность одного тика мира.",
			ConstLabels: labels,
			Buckets:     []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		generated: counter("chunks_generated_total", "Чанков, полученных от генератора или сервера."),
		stale:     counter("chunks_stale_total", "Результатов генерации, отброшенных как устаревшие."),
		activated: counter("chunks_activated_total", "Чанков, перешедших в Active."),
		updated:   counter("chunks_updated_total", "Обновлений активных чанков."),
		chunks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "voxel",
			Subsystem:   "world",
			Name:        "chunks",
			Help:        "Чанков в измерении по состояниям.",
			ConstLabels: labels,
		}, []string{"state"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "voxel",
			Subsystem:   "world",
			Name:        "entities",
			Help:        "Сущностей в мире.",
			ConstLabels: labels,
		}),
	}
}

// Register регистрирует метрики в реестре
func (w *World) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		w.tick, w.generated, w.stale, w.activated, w.updated, w.chunks, w.entities,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveTick записывает длительность тика
func (w *World) ObserveTick(d time.Duration) {
	if w == nil {
		return
	}
	w.tick.Observe(d.Seconds())
}

// Generated учитывает полученные данные чанков
func (w *World) Generated(n int) {
	if w == nil || n == 0 {
		return
	}
	w.generated.Add(float64(n))
}

// Stale учитывает отброшенный результат генерации
func (w *World) Stale() {
	if w == nil {
		return
	}
	w.stale.Inc()
}

// Activated учитывает активированные чанки
func (w *World) Activated(n int) {
	if w == nil || n == 0 {
		return
	}
	w.activated.Add(float64(n))
}

// Updated учитывает обновленные чанки
func (w *World) Updated(n int) {
	if w == nil || n == 0 {
		return
	}
	w.updated.Add(float64(n))
}

// SetChunks обновляет количество чанков в состоянии state
func (w *World) SetChunks(state string, n int) {
	if w == nil {
		return
	}
	w.chunks.WithLabelValues(state).Set(float64(n))
}

// SetEntities обновляет количество сущностей
func (w *World) SetEntities(n int) {
	if w == nil {
		return
	}
	w.entities.Set(float64(n))
}
