package game

import (
	"context"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/protocol"
	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/entity"
)

// ServerConfig параметры серверного мира
type ServerConfig struct {
	AlphaSeed int64
	BetaSeed  int64

	GeneratorWorkers int
	// GenerateDrain сколько результатов генерации применяется за тик
	GenerateDrain int
	// LoadDistance радиус загрузки вокруг игрока; 0 отключает загрузчик
	LoadDistance  int
	LoaderBudget  int
	LODViewFactor float32

	SpawnPoint  mgl32.Vec3
	PlayerSpeed float32
	Reach       float32
	// CorrectEvery период отправки коррекций в тиках
	CorrectEvery int
}

// DefaultServerConfig возвращает настройки по умолчанию
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		AlphaSeed:        world.DefaultAlphaSeed,
		BetaSeed:         world.DefaultBetaSeed,
		GeneratorWorkers: 4,
		GenerateDrain:    64,
		LoadDistance:     4,
		LoaderBudget:     10,
		SpawnPoint:       mgl32.Vec3{0, 0, 20},
		PlayerSpeed:      10.4,
		Reach:            world.DefaultReach,
		CorrectEvery:     6,
	}
}

// Status снимок состояния сервера для административного API
type Status struct {
	Tick       uint64 `json:"tick"`
	Peers      int    `json:"peers"`
	Entities   int    `json:"entities"`
	Generating int    `json:"generating"`
	Stasis     int    `json:"stasis"`
	Active     int    `json:"active"`
	// Queued запросы генерации, еще не обработанные пулом
	Queued int `json:"queued"`
}

// ServerWorld авторитетный мир. Все изменения идут из Tick; Status можно
// читать из других горутин.
type ServerWorld struct {
	cfg       ServerConfig
	conn      ServerConn
	opts      options
	dim       *world.Dimension[*world.ServerChunk]
	entities  *entity.Manager
	generator *world.WorkerPool[world.GenRequest, world.GenResponse]

	// Игроки, сдвинувшиеся с последней коррекции
	moved  map[uint64]struct{}
	ticks  uint64
	status atomic.Value
}

// NewServerWorld создает серверный мир поверх транспорта conn
func NewServerWorld(cfg ServerConfig, conn ServerConn, opts ...Option) *ServerWorld {
	w := &ServerWorld{
		cfg:       cfg,
		conn:      conn,
		opts:      buildOptions(logging.GetServerLogger(), opts),
		dim:       world.NewDimension[*world.ServerChunk](),
		entities:  entity.NewManager(),
		generator: world.NewGeneratorPool(cfg.GeneratorWorkers, world.NewWorldGenerator(cfg.AlphaSeed, cfg.BetaSeed)),
		moved:     make(map[uint64]struct{}),
	}
	w.entities.RegisterBehavior(entity.TagServer, entity.NewPlayerBehavior(func(e *entity.Entity) {
		w.moved[e.ID] = struct{}{}
	}))
	w.status.Store(Status{})
	return w
}

// Dimension измерение сервера
func (w *ServerWorld) Dimension() *world.Dimension[*world.ServerChunk] {
	return w.dim
}

// Entities менеджер сущностей сервера
func (w *ServerWorld) Entities() *entity.Manager {
	return w.entities
}

// Status последний снимок состояния
func (w *ServerWorld) Status() Status {
	return w.status.Load().(Status)
}

// Close останавливает пул генерации
func (w *ServerWorld) Close() {
	w.generator.Stop()
}

// Tick выполняет один шаг симуляции длительностью dt секунд
func (w *ServerWorld) Tick(ctx context.Context, dt float32) {
	start := time.Now()
	ctx, span := w.opts.tracer.Start(ctx, "server.tick")
	defer span.End()

	w.conn.Update()
	w.phase(ctx, "server.inputs", func() {
		w.applyInputs()
		w.entities.Update(dt)
	})
	var fresh map[network.ClientID]bool
	w.phase(ctx, "server.accept", func() { fresh = w.accept() })
	w.phase(ctx, "server.changes", w.applyChanges)
	w.prune()
	w.phase(ctx, "server.broadcast", func() { w.broadcast(fresh) })
	w.correct()
	w.phase(ctx, "server.load", w.load)
	w.activate()
	w.tickTiles()

	w.ticks++
	span.SetAttributes(attribute.Int64("tick", int64(w.ticks)))
	w.publish(time.Since(start))
}

func (w *ServerWorld) phase(ctx context.Context, name string, f func()) {
	_, span := w.opts.tracer.Start(ctx, name)
	f()
	span.End()
}

func (w *ServerWorld) applyInputs() {
	touched := make(map[uint64]*entity.Entity)
	for _, in := range w.conn.Receive(protocol.IsInputs) {
		e, ok := w.entities.ByPeer(in.Client)
		if !ok {
			continue
		}
		msg, ok := in.Message.(protocol.Inputs)
		if !ok {
			continue
		}
		for _, ti := range msg.Inputs {
			if ti.Timestamp > e.LastInput {
				e.Inputs = append(e.Inputs, ti)
			}
		}
		touched[e.ID] = e
	}
	// Пакеты одного тика могли прийти не по порядку
	for _, e := range touched {
		sort.SliceStable(e.Inputs, func(i, j int) bool {
			return e.Inputs[i].Timestamp < e.Inputs[j].Timestamp
		})
	}
}

func (w *ServerWorld) accept() map[network.ClientID]bool {
	fresh := make(map[network.ClientID]bool)
	for _, id := range w.conn.Accept() {
		e := w.entities.Spawn(entity.TagServer, w.cfg.SpawnPoint, func(e *entity.Entity) {
			e.Peer = id
			e.Speed = w.cfg.PlayerSpeed
			if w.cfg.LoadDistance > 0 {
				e.Loader = world.NewLoader(w.cfg.LoadDistance, w.cfg.LoaderBudget)
			}
		})
		fresh[id] = true

		active := w.dim.Positions(world.Active)
		for _, pos := range active {
			c, _ := w.dim.Chunk(pos)
			w.send(id, activatedMessage(pos, c))
		}
		w.send(id, correctMessage(e))
		w.opts.logger.Info("Игрок %s появился (сущность %d), отправлено чанков: %d", id, e.ID, len(active))
	}
	return fresh
}

func (w *ServerWorld) applyChanges() {
	for _, in := range w.conn.Receive(protocol.IsChange) {
		e, ok := w.entities.ByPeer(in.Client)
		if !ok {
			continue
		}
		if msg, ok := in.Message.(protocol.Change); ok {
			e.Changes = append(e.Changes, entity.Change{Kind: msg.Kind, Block: msg.Block})
		}
	}

	var edits []world.BlockEdit
	for _, e := range w.entities.WithTag(entity.TagServer) {
		for _, ch := range e.Changes {
			target := world.TargetBackstep
			if ch.Kind == entity.Break {
				target = world.TargetPosition
			}
			pos, ok := world.Raycast(w.dim, target, e.Translation, e.Look, w.cfg.Reach)
			if !ok {
				w.opts.logger.Debug("%s от сущности %d: луч ничего не нашел", ch.Kind, e.ID)
				continue
			}
			edits = append(edits, w.dim.EditAt(pos, ch.Block))
		}
		e.Changes = e.Changes[:0]
	}
	if len(edits) > 0 {
		modified := w.dim.SetBlocks(edits)
		w.opts.logger.Debug("Применено правок: %d, изменено чанков: %d", len(edits), len(modified))
	}
}

func (w *ServerWorld) prune() {
	for _, id := range w.conn.Prune() {
		if e, ok := w.entities.ByPeer(id); ok {
			w.entities.Despawn(e.ID)
			delete(w.moved, e.ID)
		}
		w.opts.logger.Info("Игрок %s отключен по таймауту", id)
	}
}

// broadcast рассылает активации всем, кроме подключившихся в этом тике
// (снимок они уже получили), и обновления всем клиентам
func (w *ServerWorld) broadcast(fresh map[network.ClientID]bool) {
	activations := w.dim.DrainActivations()
	updated := w.dim.DrainUpdated()
	clients := w.conn.Clients()

	activated := make(map[vec.Vec3]bool, len(activations))
	for _, pos := range activations {
		activated[pos] = true
		c, ok := w.dim.Chunk(pos)
		if !ok {
			continue
		}
		msg := activatedMessage(pos, c)
		for _, id := range clients {
			if !fresh[id] {
				w.send(id, msg)
			}
		}
	}

	sent := 0
	for _, pos := range updated {
		if activated[pos] {
			continue
		}
		if state, _ := w.dim.State(pos); state != world.Active {
			continue
		}
		c, _ := w.dim.Chunk(pos)
		msg := protocol.ChunkUpdated{Position: pos, Bytes: util.EncodeRLE(world.Blocks(c))}
		for _, id := range clients {
			w.send(id, msg)
		}
		sent++
	}
	w.opts.metrics.Activated(len(activations))
	w.opts.metrics.Updated(sent)
}

func (w *ServerWorld) correct() {
	if w.cfg.CorrectEvery <= 0 || w.ticks%uint64(w.cfg.CorrectEvery) != 0 {
		return
	}
	for id := range w.moved {
		if e, ok := w.entities.Get(id); ok && e.IsPeer() {
			w.send(e.Peer, correctMessage(e))
		}
	}
	clear(w.moved)
}

func (w *ServerWorld) load() {
	for _, e := range w.entities.All() {
		if e.Loader == nil {
			continue
		}
		for _, pos := range e.Loader.Update(e.Translation) {
			if w.dim.Has(pos) {
				continue
			}
			w.dim.MarkGenerating(pos)
			w.generator.Submit(world.GenRequest{
				Position: pos,
				LOD:      world.LODFor(e.Translation, pos, w.cfg.LODViewFactor),
			})
		}
	}

	generated := 0
	for _, resp := range w.generator.Poll(w.cfg.GenerateDrain) {
		if state, ok := w.dim.State(resp.Position); !ok || state != world.Generating {
			w.opts.metrics.Stale()
			continue
		}
		w.dim.Insert(resp.Position, world.NewServerChunkFromBlocks(resp.LOD, resp.Blocks))
		generated++
	}
	w.opts.metrics.Generated(generated)
}

// activate переводит в Active чанки, у которых есть все шесть соседей
func (w *ServerWorld) activate() {
	for _, pos := range w.dim.Positions(world.Stasis) {
		if e, ok := w.dim.Entry(pos); ok && e.Neighbors >= 6 {
			w.dim.Activate(pos)
		}
	}
}

func (w *ServerWorld) tickTiles() {
	for _, pos := range w.dim.Positions(world.Active) {
		if c, ok := w.dim.Chunk(pos); ok && c.TileCount() > 0 {
			c.Tick()
		}
	}
}

func (w *ServerWorld) send(id network.ClientID, msg protocol.Message) {
	if err := w.conn.Send(id, msg); err != nil {
		w.opts.logger.Warn("Не удалось отправить %s игроку %s: %v", msg.Type(), id, err)
	}
}

func (w *ServerWorld) publish(elapsed time.Duration) {
	s := Status{
		Tick:       w.ticks,
		Peers:      len(w.conn.Clients()),
		Entities:   w.entities.Count(),
		Generating: w.dim.Count(world.Generating),
		Stasis:     w.dim.Count(world.Stasis),
		Active:     w.dim.Count(world.Active),
		Queued:     w.generator.Pending(),
	}
	w.status.Store(s)

	m := w.opts.metrics
	m.ObserveTick(elapsed)
	m.SetEntities(s.Entities)
	m.SetChunks(world.Generating.String(), s.Generating)
	m.SetChunks(world.Stasis.String(), s.Stasis)
	m.SetChunks(world.Active.String(), s.Active)
}

func activatedMessage(pos vec.Vec3, c world.Chunk) protocol.ChunkActivated {
	return protocol.ChunkActivated{Position: pos, LOD: c.LOD(), Bytes: util.EncodeRLE(world.Blocks(c))}
}

func correctMessage(e *entity.Entity) protocol.Correct {
	return protocol.Correct{Position: e.Translation, Look: e.Look, LastInput: e.LastInput}
}
