package util

import (
	"github.com/aquilax/go-perlin"
)

const (
	fbmAlpha   = 2.0 // Затухание амплитуды октав
	fbmBeta    = 2.0 // Рост частоты октав
	fbmOctaves = int32(6)

	// noiseOffset сдвигает выборку в положительную область: go-perlin
	// переключается на 2D шум при z < 0.
	noiseOffset = 10000.0
)

// NoiseChannel фрактальный шум Перлина с фиксированным сидом и частотой.
// После создания только читается, поэтому безопасен для воркеров.
type NoiseChannel struct {
	perlin    *perlin.Perlin
	frequency float64
}

// NewNoiseChannel создает канал шума с указанным сидом и частотой
func NewNoiseChannel(seed int64, frequency float64) *NoiseChannel {
	return &NoiseChannel{
		perlin:    perlin.NewPerlin(fbmAlpha, fbmBeta, fbmOctaves, seed),
		frequency: frequency,
	}
}

// Sample возвращает значение шума в мировой точке (примерно от -1 до 1)
func (n *NoiseChannel) Sample(x, y, z float64) float64 {
	return n.perlin.Noise3D(
		x*n.frequency+noiseOffset,
		y*n.frequency+noiseOffset,
		z*n.frequency+noiseOffset,
	)
}

// Remap линейно переводит значение из диапазона [min1, max1] в [min2, max2]
func Remap(value, min1, max1, min2, max2 float64) float64 {
	return min2 + (value-min1)*(max2-min2)/(max1-min1)
}

// Lerp линейная интерполяция между a и b
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
