package render

import (
	"sync"

	"github.com/annel0/voxelworld/internal/world/block"
)

// Null рендерер без вывода. Хранит созданные меши и статистику, что
// позволяет проверять поток мешей в тестах и безголовом клиенте.
type Null struct {
	atlas *Atlas

	mu       sync.Mutex
	next     MeshID
	meshes   map[MeshID]BlockMesh
	created  int
	frames   int
	width    int
	height   int
	lastSeen Frame
}

// NewNull создает пустой рендерер с атласом по зарегистрированным блокам
func NewNull() *Null {
	return &Null{
		atlas:  NewAtlas(),
		meshes: make(map[MeshID]BlockMesh),
	}
}

func (n *Null) CreateBlockMesh(mesh BlockMesh) MeshID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.meshes[n.next] = mesh
	n.created++
	return n.next
}

func (n *Null) DestroyBlockMesh(id MeshID) {
	n.mu.Lock()
	delete(n.meshes, id)
	n.mu.Unlock()
}

func (n *Null) BlockMapping(b block.Block, dir block.Direction) (uint32, bool) {
	return n.atlas.Mapping(b, dir)
}

func (n *Null) Resize(width, height int) {
	n.mu.Lock()
	n.width, n.height = width, height
	n.mu.Unlock()
}

func (n *Null) Render(frame Frame) {
	n.mu.Lock()
	n.frames++
	n.lastSeen = frame
	n.mu.Unlock()
}

// Meshes количество живых мешей
func (n *Null) Meshes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.meshes)
}

// Created сколько мешей было создано за все время
func (n *Null) Created() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.created
}

// Mesh возвращает меш по дескриптору
func (n *Null) Mesh(id MeshID) (BlockMesh, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.meshes[id]
	return m, ok
}

// Frames количество отрисованных кадров
func (n *Null) Frames() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}

// Size последний размер окна
func (n *Null) Size() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.width, n.height
}

// LastFrame последний отрисованный кадр
func (n *Null) LastFrame() Frame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastSeen
}
