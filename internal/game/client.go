package game

import (
	"context"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/protocol"
	"github.com/annel0/voxelworld/internal/render"
	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

// ClientConfig параметры клиентского мира
type ClientConfig struct {
	// ProcessorWorkers число воркеров внутренней обработки; 0 обрабатывает
	// чанки прямо в тике
	ProcessorWorkers int
	// ProcessDrain сколько обработанных чанков забирается за тик
	ProcessDrain int
	// MaxProcess сколько чанков стадия согласования обрабатывает за тик
	MaxProcess int
	// ViewDistance радиус отрисовки в чанках; 0 без ограничения
	ViewDistance int
	// Smoothing скорость подтягивания позиции игрока к серверной, 1/с
	Smoothing   float32
	PlayerSpeed float32
}

// DefaultClientConfig возвращает настройки по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ProcessorWorkers: 2,
		ProcessDrain:     64,
		MaxProcess:       50,
		ViewDistance:     8,
		Smoothing:        10,
		PlayerSpeed:      10.4,
	}
}

type pendingUpdate struct {
	version uint64
	bytes   []byte
}

// ClientWorld зеркало серверного мира: принимает чанки, доводит их до
// Active и передает меши рендеру. Не потокобезопасен.
type ClientWorld struct {
	cfg       ClientConfig
	conn      ClientConn
	renderer  render.Renderer
	opts      options
	dim       *world.Dimension[*world.ClientChunk]
	entities  *entity.Manager
	processor *world.WorkerPool[world.ProcessRequest, world.ProcessResponse]
	player    *entity.Entity

	needsVisibility map[vec.Vec3]struct{}
	needsAO         map[vec.Vec3]struct{}
	empty           map[vec.Vec3]bool
	// Идентификатор сообщения, которым получено текущее содержимое чанка
	versions map[vec.Vec3]uint64
	// Обновления чанков, которых еще нет в измерении
	pending map[vec.Vec3]pendingUpdate

	meshes   map[vec.Vec3]render.MeshID
	center   vec.Vec3
	centered bool

	outbox      []entity.TimedInput
	changes     []entity.Change
	seq         uint64
	lastCorrect uint64
	corrected   bool
}

// NewClientWorld создает клиентский мир с локальным игроком
func NewClientWorld(cfg ClientConfig, conn ClientConn, renderer render.Renderer, opts ...Option) *ClientWorld {
	w := &ClientWorld{
		cfg:             cfg,
		conn:            conn,
		renderer:        renderer,
		opts:            buildOptions(logging.GetClientLogger(), opts),
		dim:             world.NewDimension[*world.ClientChunk](),
		entities:        entity.NewManager(),
		needsVisibility: make(map[vec.Vec3]struct{}),
		needsAO:         make(map[vec.Vec3]struct{}),
		empty:           make(map[vec.Vec3]bool),
		versions:        make(map[vec.Vec3]uint64),
		pending:         make(map[vec.Vec3]pendingUpdate),
		meshes:          make(map[vec.Vec3]render.MeshID),
	}
	if cfg.ProcessorWorkers > 0 {
		w.processor = world.NewProcessorPool(cfg.ProcessorWorkers)
	}
	w.player = w.entities.Spawn(entity.TagClient|entity.TagMain, mgl32.Vec3{}, func(e *entity.Entity) {
		e.Speed = cfg.PlayerSpeed
		e.Observer = &entity.Observer{ViewDistance: cfg.ViewDistance}
	})
	return w
}

// Dimension измерение клиента
func (w *ClientWorld) Dimension() *world.Dimension[*world.ClientChunk] {
	return w.dim
}

// Player локальный игрок
func (w *ClientWorld) Player() *entity.Entity {
	return w.player
}

// Meshes количество чанков, переданных рендеру
func (w *ClientWorld) Meshes() int {
	return len(w.meshes)
}

// Unresolved количество чанков, ожидающих согласования с соседями
func (w *ClientWorld) Unresolved() int {
	seen := len(w.needsVisibility)
	for pos := range w.needsAO {
		if _, ok := w.needsVisibility[pos]; !ok {
			seen++
		}
	}
	return seen
}

// Close останавливает обработку и освобождает меши
func (w *ClientWorld) Close() {
	if w.processor != nil {
		w.processor.Stop()
	}
	for pos, id := range w.meshes {
		w.renderer.DestroyBlockMesh(id)
		delete(w.meshes, pos)
	}
}

// Input применяет локальный ввод к предсказанной позиции и ставит его в
// очередь на отправку
func (w *ClientWorld) Input(in entity.Input, dt float32) {
	w.seq++
	ti := entity.TimedInput{Timestamp: w.seq, Delta: dt, Input: in}
	w.outbox = append(w.outbox, ti)

	p := w.player
	p.Inputs = append(p.Inputs, ti)
	base := p.Translation
	if p.Target != nil {
		base = *p.Target
	}
	target, look := entity.Integrate(base, p.Look, p.Speed, in, dt)
	p.Target = &target
	p.Look = look
}

// Change запрашивает у сервера установку или разрушение блока
func (w *ClientWorld) Change(kind entity.ChangeKind, b block.Block) {
	w.changes = append(w.changes, entity.Change{Kind: kind, Block: b})
}

// Tick выполняет один кадр клиента
func (w *ClientWorld) Tick(ctx context.Context, dt float32) {
	start := time.Now()
	ctx, span := w.opts.tracer.Start(ctx, "client.tick")
	defer span.End()

	w.flush()
	w.conn.Update()
	w.phase(ctx, "client.receive", func() {
		w.receiveChunks()
		w.pollProcessed()
	})
	w.phase(ctx, "client.resolve", w.resolve)
	w.receiveCorrections()
	w.player.Smooth(dt, w.cfg.Smoothing)
	w.phase(ctx, "client.display", w.display)

	m := w.opts.metrics
	m.ObserveTick(time.Since(start))
	m.SetChunks(world.Stasis.String(), w.dim.Count(world.Stasis))
	m.SetChunks(world.Active.String(), w.dim.Count(world.Active))
	m.SetEntities(w.entities.Count())
}

func (w *ClientWorld) phase(ctx context.Context, name string, f func()) {
	_, span := w.opts.tracer.Start(ctx, name)
	f()
	span.End()
}

func (w *ClientWorld) flush() {
	if len(w.outbox) > 0 {
		if _, err := w.conn.Send(protocol.Inputs{Inputs: w.outbox}); err != nil {
			w.opts.logger.Warn("Не удалось отправить ввод: %v", err)
		}
		w.outbox = nil
	}
	for _, ch := range w.changes {
		if _, err := w.conn.Send(protocol.Change{Kind: ch.Kind, Block: ch.Block}); err != nil {
			w.opts.logger.Warn("Не удалось отправить %s: %v", ch.Kind, err)
		}
	}
	w.changes = w.changes[:0]
}

func (w *ClientWorld) receiveChunks() {
	for _, env := range w.conn.Receive(protocol.IsChunk) {
		switch msg := env.Message.(type) {
		case protocol.ChunkActivated:
			w.onActivated(env.ID, msg)
		case protocol.ChunkUpdated:
			w.onUpdated(env.ID, msg)
		}
	}
}

func (w *ClientWorld) onActivated(id uint64, msg protocol.ChunkActivated) {
	if id < w.versions[msg.Position] {
		w.opts.logger.Debug("Устаревшая активация %v (%d)", msg.Position, id)
		return
	}
	lod := world.ClampLOD(msg.LOD)
	blocks, err := util.DecodeRLEExact(msg.Bytes, world.Size(lod))
	if err != nil {
		w.opts.logger.Warn("Чанк %v отброшен: %v", msg.Position, err)
		return
	}
	req := world.ProcessRequest{Position: msg.Position, LOD: lod, Blocks: blocks, Version: id}
	if w.processor == nil {
		w.insert(world.ProcessInternal(req))
		return
	}
	w.processor.Submit(req)
}

func (w *ClientWorld) onUpdated(id uint64, msg protocol.ChunkUpdated) {
	pos := msg.Position
	if id < w.versions[pos] {
		return
	}
	c, ok := w.dim.Chunk(pos)
	if !ok {
		if p, ok := w.pending[pos]; !ok || id > p.version {
			w.pending[pos] = pendingUpdate{version: id, bytes: msg.Bytes}
		}
		return
	}
	w.applyUpdate(pos, c, id, msg.Bytes)
}

func (w *ClientWorld) pollProcessed() {
	if w.processor == nil {
		return
	}
	for _, resp := range w.processor.Poll(w.cfg.ProcessDrain) {
		w.insert(resp)
	}
}

// insert кладет обработанный чанк в измерение. Соседи теряют согласование
// на гранях, обращенных к нему.
func (w *ClientWorld) insert(resp world.ProcessResponse) {
	pos := resp.Position
	if resp.Version < w.versions[pos] {
		w.opts.metrics.Stale()
		return
	}
	w.versions[pos] = resp.Version

	c := resp.Chunk
	w.dim.Insert(pos, c)
	w.empty[pos] = world.IsEmpty(c)
	if w.empty[pos] {
		w.settleEmpty(pos, c)
	} else {
		w.enqueue(pos)
	}
	w.invalidateNeighbors(pos, block.AllDirectionsMask)
	w.opts.metrics.Generated(1)

	if p, ok := w.pending[pos]; ok {
		delete(w.pending, pos)
		if p.version > resp.Version {
			w.applyUpdate(pos, c, p.version, p.bytes)
		}
	}
}

// applyUpdate заменяет содержимое чанка и пересчитывает только окрестности
// изменившихся блоков
func (w *ClientWorld) applyUpdate(pos vec.Vec3, c *world.ClientChunk, version uint64, data []byte) {
	blocks, err := util.DecodeRLEExact(data, c.Len())
	if err != nil {
		w.opts.logger.Warn("Обновление %v отброшено: %v", pos, err)
		return
	}
	w.versions[pos] = version

	axis := world.Axis(c.LOD())
	var faces, touched uint8
	changed := false
	for i, b := range blocks {
		if !c.Set(i, b) {
			continue
		}
		changed = true
		faces |= world.RecalculateAround(c, i)
		touched |= world.BorderFaces(axis, world.Delinearize(axis, i))
	}
	if !changed {
		return
	}
	w.opts.metrics.Updated(1)

	wasEmpty := w.empty[pos]
	w.empty[pos] = world.IsEmpty(c)
	switch {
	case w.empty[pos]:
		w.settleEmpty(pos, c)
		touched = block.AllDirectionsMask
	case wasEmpty:
		c.NeighborVisibilityMask = 0
		c.NeighborAOMask = 0
		w.enqueue(pos)
		touched = block.AllDirectionsMask
	case faces != 0:
		c.NeighborVisibilityMask &^= faces
		c.NeighborAOMask &^= faces
		w.enqueue(pos)
	default:
		w.dim.MarkUpdated(pos)
	}
	w.invalidateNeighbors(pos, touched)
}

func (w *ClientWorld) enqueue(pos vec.Vec3) {
	w.needsVisibility[pos] = struct{}{}
	w.needsAO[pos] = struct{}{}
}

// settleEmpty чанку из воздуха нечего согласовывать
func (w *ClientWorld) settleEmpty(pos vec.Vec3, c *world.ClientChunk) {
	c.NeighborVisibilityMask = block.AllDirectionsMask
	c.NeighborAOMask = block.AllDirectionsMask
	delete(w.needsVisibility, pos)
	delete(w.needsAO, pos)
	if !w.dim.Activate(pos) {
		w.dim.MarkUpdated(pos)
	}
}

// invalidateNeighbors сбрасывает у соседей биты граней, обращенных к pos.
// Затрагиваются только соседи, все оси смещения которых лежат в touched.
func (w *ClientWorld) invalidateNeighbors(pos vec.Vec3, touched uint8) {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				offset := vec.New(dx, dy, dz)
				if offset == (vec.Vec3{}) {
					continue
				}
				toward, axes, ok := facesToward(offset, touched)
				if !ok {
					continue
				}
				n := pos.Add(offset)
				c, present := w.dim.Chunk(n)
				if !present || w.empty[n] {
					continue
				}
				c.NeighborAOMask &^= toward
				w.needsAO[n] = struct{}{}
				if axes == 1 {
					c.NeighborVisibilityMask &^= toward
					w.needsVisibility[n] = struct{}{}
				}
			}
		}
	}
}

// facesToward возвращает грани соседа со смещением offset, смотрящие на
// центральный чанк, и число ненулевых осей смещения
func facesToward(offset vec.Vec3, touched uint8) (uint8, int, bool) {
	var toward uint8
	axes := 0
	for a := 0; a < 3; a++ {
		s := offset.Get(a)
		if s == 0 {
			continue
		}
		if touched&block.FromAxis(a, s).Bit() == 0 {
			return 0, 0, false
		}
		toward |= block.FromAxis(a, -s).Bit()
		axes++
	}
	return toward, axes, true
}

// resolve согласует видимость, затем затенение на стыках чанков; за тик
// обрабатывается не больше MaxProcess чанков
func (w *ClientWorld) resolve() {
	budget := w.cfg.MaxProcess
	done := make(map[vec.Vec3]struct{})

	for _, pos := range positions(w.needsVisibility) {
		if budget <= 0 {
			break
		}
		c, ok := w.dim.Chunk(pos)
		if !ok {
			delete(w.needsVisibility, pos)
			continue
		}
		if !w.dim.NeighborsPresent(pos) {
			continue
		}
		for _, dir := range block.Directions {
			if c.NeighborVisibilityMask&dir.Bit() != 0 {
				continue
			}
			np := pos.Add(dir.Normal())
			n, _ := w.dim.Chunk(np)
			if world.VisibleMaskBetween(c, n, dir) {
				w.touch(np)
			}
			c.NeighborVisibilityMask |= dir.Bit()
			n.NeighborVisibilityMask |= dir.Opposite().Bit()
		}
		delete(w.needsVisibility, pos)
		done[pos] = struct{}{}
		budget--
	}

	for _, pos := range positions(w.needsAO) {
		if budget <= 0 {
			break
		}
		if _, ok := w.needsVisibility[pos]; ok {
			continue
		}
		c, ok := w.dim.Chunk(pos)
		if !ok {
			delete(w.needsAO, pos)
			continue
		}
		chunks, ok := w.dim.Neighborhood(pos)
		if !ok {
			continue
		}
		hood := world.Neighborhood(chunks)
		for _, dir := range block.Directions {
			if c.NeighborAOMask&dir.Bit() != 0 {
				continue
			}
			world.SetAmbientBetween(world.AmbientBetween(&hood, pos, dir), c)
			c.NeighborAOMask |= dir.Bit()
		}
		delete(w.needsAO, pos)
		done[pos] = struct{}{}
		budget--
	}

	for _, pos := range positions(done) {
		w.settle(pos)
	}
}

// touch отмечает соседа, маски которого изменились извне
func (w *ClientWorld) touch(pos vec.Vec3) {
	if _, ok := w.needsVisibility[pos]; ok {
		return
	}
	if _, ok := w.needsAO[pos]; ok {
		return
	}
	w.dim.MarkUpdated(pos)
}

func (w *ClientWorld) settle(pos vec.Vec3) {
	if _, ok := w.needsVisibility[pos]; ok {
		return
	}
	if _, ok := w.needsAO[pos]; ok {
		return
	}
	e, ok := w.dim.Entry(pos)
	if !ok {
		return
	}
	switch e.State {
	case world.Stasis:
		if e.Chunk.VisibilityResolved() && e.Chunk.AOResolved() {
			w.dim.Activate(pos)
		}
	case world.Active:
		w.dim.MarkUpdated(pos)
	}
}

func (w *ClientWorld) receiveCorrections() {
	envs := w.conn.Receive(protocol.IsCorrect)
	if len(envs) == 0 {
		return
	}
	latest := envs[0]
	for _, env := range envs[1:] {
		if env.ID > latest.ID {
			latest = env
		}
	}
	msg, ok := latest.Message.(protocol.Correct)
	if !ok || latest.ID < w.lastCorrect {
		return
	}
	w.lastCorrect = latest.ID

	p := w.player
	p.Acknowledge(msg.LastInput)
	target, look := entity.Predict(msg.Position, msg.Look, p.Speed, p.Inputs, msg.LastInput)
	if !w.corrected {
		p.Translation = target
		w.corrected = true
	}
	p.Target = &target
	p.Look = look
}

// display пересобирает меши активированных и обновленных чанков в радиусе
// обзора и удаляет меши чанков, вышедших из него
func (w *ClientWorld) display() {
	dirty := make(map[vec.Vec3]struct{})
	for _, pos := range w.dim.DrainActivations() {
		dirty[pos] = struct{}{}
	}
	for _, pos := range w.dim.DrainUpdated() {
		dirty[pos] = struct{}{}
	}

	center := world.ChunkOf(vec.Floor(w.player.Translation))
	if !w.centered || center != w.center {
		w.center, w.centered = center, true
		for pos, id := range w.meshes {
			if !w.inView(pos) {
				w.renderer.DestroyBlockMesh(id)
				delete(w.meshes, pos)
			}
		}
		for _, pos := range w.dim.Positions(world.Active) {
			if _, ok := w.meshes[pos]; !ok && w.inView(pos) {
				dirty[pos] = struct{}{}
			}
		}
	}

	for _, pos := range positions(dirty) {
		w.remesh(pos)
	}
	w.renderer.Render(render.Frame{Camera: w.player.Translation, Look: w.player.Look})
}

func (w *ClientWorld) inView(pos vec.Vec3) bool {
	d := w.player.Observer.ViewDistance
	if d <= 0 {
		return true
	}
	return pos.Sub(w.center).Chebyshev() <= d
}

func (w *ClientWorld) remesh(pos vec.Vec3) {
	if id, ok := w.meshes[pos]; ok {
		w.renderer.DestroyBlockMesh(id)
		delete(w.meshes, pos)
	}
	e, ok := w.dim.Entry(pos)
	if !ok || e.State != world.Active || !w.inView(pos) {
		return
	}
	vertices, indices := world.GenBlockMesh(e.Chunk, w.renderer.BlockMapping)
	if len(indices) == 0 {
		return
	}
	w.meshes[pos] = w.renderer.CreateBlockMesh(render.BlockMesh{
		Vertices: vertices,
		Indices:  indices,
		Position: pos.Scale(world.ChunkAxis).ToFloat(),
	})
}

// positions возвращает ключи множества в порядке z, y, x
func positions[V any](m map[vec.Vec3]V) []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(m))
	for pos := range m {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}
