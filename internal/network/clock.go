package network

import (
	"sync"
	"time"
)

// Clock источник времени транспорта
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock настоящие часы
var SystemClock Clock = systemClock{}

// ManualClock часы, которые двигаются только вручную. Используются в тестах
// повторной отправки и таймаутов.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock создает часы с начальным временем start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance сдвигает часы вперед
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
