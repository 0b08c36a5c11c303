package world

import (
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/atomic"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// WorkerPool пул фоновых воркеров с очередью запросов и очередью ответов.
// Отправка запроса никогда не блокирует; ответы забираются тиком через Poll
// с ограничением на количество за вызов.
type WorkerPool[Req, Resp any] struct {
	pool pond.Pool
	work func(Req) Resp

	mu      sync.Mutex
	results []Resp

	pending atomic.Int64
}

// NewWorkerPool создает пул из workers горутин, выполняющих work
func NewWorkerPool[Req, Resp any](workers int, work func(Req) Resp) *WorkerPool[Req, Resp] {
	return &WorkerPool[Req, Resp]{
		pool: pond.NewPool(max(workers, 1)),
		work: work,
	}
}

// Submit ставит запрос в очередь
func (p *WorkerPool[Req, Resp]) Submit(req Req) {
	p.pending.Inc()
	p.pool.Submit(func() {
		resp := p.work(req)

		p.mu.Lock()
		p.results = append(p.results, resp)
		p.mu.Unlock()
		p.pending.Dec()
	})
}

// Poll забирает не более limit готовых ответов; limit <= 0 забирает все
func (p *WorkerPool[Req, Resp]) Poll(limit int) []Resp {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.results)
	if limit > 0 && n > limit {
		n = limit
	}
	if n == 0 {
		return nil
	}
	out := make([]Resp, n)
	copy(out, p.results[:n])
	p.results = append(p.results[:0], p.results[n:]...)
	return out
}

// Pending количество запросов, еще не превратившихся в ответы
func (p *WorkerPool[Req, Resp]) Pending() int {
	return int(p.pending.Load())
}

// Stop дожидается завершения поставленных задач
func (p *WorkerPool[Req, Resp]) Stop() {
	p.pool.StopAndWait()
}

// GenRequest запрос на генерацию чанка
type GenRequest struct {
	Position vec.Vec3
	LOD      int
}

// GenResponse результат генерации
type GenResponse struct {
	Position vec.Vec3
	LOD      int
	Blocks   []block.Block
}

// NewGeneratorPool создает пул генерации чанков
func NewGeneratorPool(workers int, gen *WorldGenerator) *WorkerPool[GenRequest, GenResponse] {
	return NewWorkerPool(workers, func(req GenRequest) GenResponse {
		return GenResponse{
			Position: req.Position,
			LOD:      req.LOD,
			Blocks:   gen.GenerateChunk(req.Position, req.LOD),
		}
	})
}

// ProcessRequest сырые блоки чанка, полученные по сети. Version переносится
// в ответ без изменений.
type ProcessRequest struct {
	Position vec.Vec3
	LOD      int
	Blocks   []block.Block
	Version  uint64
}

// ProcessResponse чанк с посчитанными внутренними масками и затенением
type ProcessResponse struct {
	Position vec.Vec3
	Chunk    *ClientChunk
	Version  uint64
}

// ProcessInternal выполняет "внутреннюю" стадию обработки клиентского чанка
func ProcessInternal(req ProcessRequest) ProcessResponse {
	return ProcessResponse{
		Position: req.Position,
		Chunk:    NewClientChunkFromBlocks(req.LOD, req.Blocks),
		Version:  req.Version,
	}
}

// NewProcessorPool создает пул внутренней обработки чанков клиента
func NewProcessorPool(workers int) *WorkerPool[ProcessRequest, ProcessResponse] {
	return NewWorkerPool(workers, ProcessInternal)
}
