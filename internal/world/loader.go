package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/vec"
)

// RingOffsets возвращает все смещения с чебышевской нормой ровно r в порядке
// x, затем y, затем z
func RingOffsets(r int) []vec.Vec3 {
	if r == 0 {
		return []vec.Vec3{{}}
	}
	out := make([]vec.Vec3, 0, 24*r*r+2)
	for x := -r; x <= r; x++ {
		for y := -r; y <= r; y++ {
			for z := -r; z <= r; z++ {
				if abs(x) != r && abs(y) != r && abs(z) != r {
					continue
				}
				out = append(out, vec.New(x, y, z))
			}
		}
	}
	return out
}

// ShellIterator перечисляет смещения концентрическими кольцами от 0 до
// maxRadius включительно, ближние раньше дальних. Кольцо строится лениво.
type ShellIterator struct {
	maxRadius int
	radius    int
	ring      []vec.Vec3
	index     int
}

// NewShellIterator создает итератор оболочек радиуса maxRadius
func NewShellIterator(maxRadius int) *ShellIterator {
	return &ShellIterator{maxRadius: maxRadius, radius: -1}
}

// Next возвращает следующее смещение или false, когда оболочки закончились
func (s *ShellIterator) Next() (vec.Vec3, bool) {
	for s.index >= len(s.ring) {
		if s.radius >= s.maxRadius {
			return vec.Vec3{}, false
		}
		s.radius++
		s.ring = RingOffsets(s.radius)
		s.index = 0
	}
	v := s.ring[s.index]
	s.index++
	return v, true
}

// Loader компонент загрузки чанков вокруг сущности
type Loader struct {
	// Distance радиус загрузки в чанках
	Distance int
	// Budget сколько смещений оболочки перебирается за тик
	Budget int

	last   mgl32.Vec3
	center vec.Vec3
	shell  *ShellIterator
}

// NewLoader создает загрузчик
func NewLoader(distance, budget int) *Loader {
	inf := float32(math.MaxFloat32)
	return &Loader{
		Distance: distance,
		Budget:   max(budget, 1),
		last:     mgl32.Vec3{inf, inf, inf},
	}
}

// Update возвращает очередную порцию координат чанков, которые должны быть
// загружены. Когда сущность сместилась больше чем на Distance/4 блоков от
// точки последнего пересчета, перебор начинается заново с ближайших колец.
func (l *Loader) Update(translation mgl32.Vec3) []vec.Vec3 {
	threshold := float32(l.Distance) / 4
	if l.last.Sub(translation).Len() >= threshold || l.shell == nil {
		l.last = translation
		l.center = ChunkOf(vec.Floor(translation))
		l.shell = NewShellIterator(l.Distance)
	}

	var out []vec.Vec3
	for len(out) < l.Budget {
		offset, ok := l.shell.Next()
		if !ok {
			break
		}
		out = append(out, l.center.Add(offset))
	}
	return out
}

// Center координата чанка, вокруг которого идет перебор
func (l *Loader) Center() vec.Vec3 {
	return l.center
}

// Done весь объем загрузки перебран с последнего сброса
func (l *Loader) Done() bool {
	if l.shell == nil {
		return false
	}
	return l.shell.radius >= l.shell.maxRadius && l.shell.index >= len(l.shell.ring)
}

// LODFor выбирает уровень детализации по расстоянию до чанка в блоках.
// factor <= 0 отключает выбор и всегда дает LOD 0.
func LODFor(viewer mgl32.Vec3, chunk vec.Vec3, factor float32) int {
	if factor <= 0 {
		return 0
	}
	center := chunk.Scale(ChunkAxis).Add(vec.Splat(ChunkAxis / 2)).ToFloat()
	return ClampLOD(int(center.Sub(viewer).Len() / factor))
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
