package entity

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/annel0/voxelworld/internal/world"
)

// Tag набор флагов роли сущности
type Tag uint8

const (
	// TagClient сущность живет в клиентском мире
	TagClient Tag = 1 << iota
	// TagServer сущность живет в серверном мире
	TagServer
	// TagMain локальный игрок клиента
	TagMain
)

// Observer радиус, в котором сущность держит чанки загруженными (в чанках)
type Observer struct {
	ViewDistance int
}

// Entity представляет сущность мира. Опциональные компоненты хранятся
// указателями: nil означает, что компонента нет.
type Entity struct {
	ID   uint64 // Уникальный идентификатор сущности
	Tags Tag

	Translation mgl32.Vec3 // Позиция в блоках, ось Z вверх
	Look        mgl32.Vec2 // Рыскание и тангаж в радианах
	Speed       float32    // Блоков в секунду

	Observer *Observer
	Loader   *world.Loader
	// Target серверная позиция, к которой клиент плавно подтягивает Translation
	Target *mgl32.Vec3

	Inputs  []TimedInput // Очередь ввода, еще не примененного (сервер) или не подтвержденного (клиент)
	Changes []Change     // Ожидающие установки и разрушения блоков

	// Peer идентификатор подключения, uuid.Nil для локальных сущностей
	Peer uuid.UUID
	// LastInput метка последнего примененного ввода
	LastInput uint64
}

// NewEntity создаёт новую сущность
func NewEntity(id uint64, tags Tag, translation mgl32.Vec3) *Entity {
	return &Entity{
		ID:          id,
		Tags:        tags,
		Translation: translation,
	}
}

// Has проверяет наличие тега
func (e *Entity) Has(tag Tag) bool {
	return e.Tags&tag == tag
}

// IsPeer представляет ли сущность сетевое подключение
func (e *Entity) IsPeer() bool {
	return e.Peer != uuid.Nil
}
