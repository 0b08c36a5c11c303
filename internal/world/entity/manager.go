package entity

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Behavior определяет поведение сущностей с заданным тегом
type Behavior interface {
	// Update обновляет состояние сущности
	Update(entity *Entity, dt float32)

	// OnSpawn вызывается при создании сущности
	OnSpawn(entity *Entity)

	// OnDespawn вызывается при удалении сущности
	OnDespawn(entity *Entity)
}

type registration struct {
	tag      Tag
	behavior Behavior
}

// Manager управляет всеми сущностями мира
type Manager struct {
	entities     map[uint64]*Entity   // Хранилище всех сущностей
	peers        map[uuid.UUID]uint64 // Сущность каждого сетевого подключения
	behaviors    []registration       // Поведения в порядке регистрации
	nextEntityID uint64               // Счетчик для генерации ID
	mu           sync.RWMutex
}

// NewManager создаёт новый менеджер сущностей
func NewManager() *Manager {
	return &Manager{
		entities: make(map[uint64]*Entity),
		peers:    make(map[uuid.UUID]uint64),
	}
}

// RegisterBehavior регистрирует поведение для сущностей с тегом tag
func (m *Manager) RegisterBehavior(tag Tag, behavior Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behaviors = append(m.behaviors, registration{tag: tag, behavior: behavior})
}

// Spawn создаёт новую сущность; init вызывается до OnSpawn и может быть nil
func (m *Manager) Spawn(tags Tag, translation mgl32.Vec3, init func(*Entity)) *Entity {
	m.mu.Lock()
	m.nextEntityID++
	e := NewEntity(m.nextEntityID, tags, translation)
	if init != nil {
		init(e)
	}
	m.entities[e.ID] = e
	if e.IsPeer() {
		m.peers[e.Peer] = e.ID
	}
	behaviors := m.matching(e)
	m.mu.Unlock()

	for _, b := range behaviors {
		b.OnSpawn(e)
	}
	return e
}

// Despawn удаляет сущность
func (m *Manager) Despawn(id uint64) bool {
	m.mu.Lock()
	e, exists := m.entities[id]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.entities, id)
	if e.IsPeer() {
		delete(m.peers, e.Peer)
	}
	behaviors := m.matching(e)
	m.mu.Unlock()

	for _, b := range behaviors {
		b.OnDespawn(e)
	}
	return true
}

// Get возвращает сущность по ID
func (m *Manager) Get(id uint64) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, exists := m.entities[id]
	return e, exists
}

// ByPeer возвращает сущность сетевого подключения
func (m *Manager) ByPeer(peer uuid.UUID) (*Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.peers[peer]
	if !ok {
		return nil, false
	}
	return m.entities[id], true
}

// Main возвращает локального игрока
func (m *Manager) Main() (*Entity, bool) {
	if mains := m.WithTag(TagMain); len(mains) > 0 {
		return mains[0], true
	}
	return nil, false
}

// WithTag возвращает сущности с тегом в порядке ID
func (m *Manager) WithTag(tag Tag) []*Entity {
	var out []*Entity
	for _, e := range m.All() {
		if e.Has(tag) {
			out = append(out, e)
		}
	}
	return out
}

// All возвращает снимок всех сущностей в порядке ID
func (m *Manager) All() []*Entity {
	m.mu.RLock()
	out := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count количество сущностей
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// Update обновляет все сущности зарегистрированными поведениями
func (m *Manager) Update(dt float32) {
	for _, e := range m.All() {
		m.mu.RLock()
		behaviors := m.matching(e)
		m.mu.RUnlock()

		for _, b := range behaviors {
			b.Update(e, dt)
		}
	}
}

func (m *Manager) matching(e *Entity) []Behavior {
	var out []Behavior
	for _, r := range m.behaviors {
		if e.Has(r.tag) {
			out = append(out, r.behavior)
		}
	}
	return out
}
