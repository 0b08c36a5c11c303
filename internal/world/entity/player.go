package entity

// PlayerBehavior поведение сетевого игрока на сервере: каждый тик проигрывает
// накопленный ввод клиента
type PlayerBehavior struct {
	// OnMove вызывается, если за тик позиция или взгляд изменились
	OnMove func(entity *Entity)
}

// NewPlayerBehavior создает новое поведение игрока
func NewPlayerBehavior(onMove func(*Entity)) *PlayerBehavior {
	return &PlayerBehavior{OnMove: onMove}
}

// Update проигрывает очередь ввода
func (pb *PlayerBehavior) Update(entity *Entity, _ float32) {
	if entity.Replay() && pb.OnMove != nil {
		pb.OnMove(entity)
	}
}

// OnSpawn вызывается при создании игрока
func (pb *PlayerBehavior) OnSpawn(entity *Entity) {
	entity.Inputs = entity.Inputs[:0]
}

// OnDespawn вызывается при удалении игрока
func (pb *PlayerBehavior) OnDespawn(entity *Entity) {
	entity.Loader = nil
}
