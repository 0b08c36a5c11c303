package game

import (
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/protocol"
	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

const step = float32(1) / 30

// fakeClientConn очередь сообщений сервера без сети
type fakeClientConn struct {
	inbox  []network.Envelope[protocol.Message]
	sent   []protocol.Message
	nextID uint64
}

func (f *fakeClientConn) Update() {}

func (f *fakeClientConn) Send(msg protocol.Message) (uint64, error) {
	f.sent = append(f.sent, msg)
	return uint64(len(f.sent)), nil
}

func (f *fakeClientConn) Receive(filter func(protocol.Message) bool) []network.Envelope[protocol.Message] {
	var out []network.Envelope[protocol.Message]
	rest := f.inbox[:0]
	for _, env := range f.inbox {
		if filter(env.Message) {
			out = append(out, env)
		} else {
			rest = append(rest, env)
		}
	}
	f.inbox = rest
	return out
}

// push кладет сообщение со следующим идентификатором
func (f *fakeClientConn) push(msg protocol.Message) uint64 {
	f.nextID++
	f.pushID(f.nextID, msg)
	return f.nextID
}

func (f *fakeClientConn) pushID(id uint64, msg protocol.Message) {
	f.inbox = append(f.inbox, network.Envelope[protocol.Message]{ID: id, Message: msg})
}

// fakeServerConn транспорт сервера, управляемый тестом
type fakeServerConn struct {
	accepted []network.ClientID
	pruned   []network.ClientID
	clients  []network.ClientID
	inbox    []network.Incoming[protocol.Message]
	sent     map[network.ClientID][]protocol.Message
}

func newFakeServerConn() *fakeServerConn {
	return &fakeServerConn{sent: make(map[network.ClientID][]protocol.Message)}
}

func (f *fakeServerConn) Update() {}

func (f *fakeServerConn) Accept() []network.ClientID {
	out := f.accepted
	f.accepted = nil
	f.clients = append(f.clients, out...)
	return out
}

func (f *fakeServerConn) Prune() []network.ClientID {
	out := f.pruned
	f.pruned = nil
	for _, id := range out {
		for i, c := range f.clients {
			if c == id {
				f.clients = append(f.clients[:i], f.clients[i+1:]...)
				break
			}
		}
	}
	return out
}

func (f *fakeServerConn) Send(id network.ClientID, msg protocol.Message) error {
	f.sent[id] = append(f.sent[id], msg)
	return nil
}

func (f *fakeServerConn) Receive(filter func(protocol.Message) bool) []network.Incoming[protocol.Message] {
	var out []network.Incoming[protocol.Message]
	rest := f.inbox[:0]
	for _, in := range f.inbox {
		if filter(in.Message) {
			out = append(out, in)
		} else {
			rest = append(rest, in)
		}
	}
	f.inbox = rest
	return out
}

func (f *fakeServerConn) Clients() []network.ClientID {
	return append([]network.ClientID(nil), f.clients...)
}

func (f *fakeServerConn) push(id network.ClientID, msg protocol.Message) {
	f.inbox = append(f.inbox, network.Incoming[protocol.Message]{Client: id, Message: msg})
}

// sentOf сообщения клиенту id заданного типа
func (f *fakeServerConn) sentOf(id network.ClientID, t protocol.MsgType) []protocol.Message {
	var out []protocol.Message
	for _, m := range f.sent[id] {
		if m.Type() == t {
			out = append(out, m)
		}
	}
	return out
}

// floor блоки чанка LOD 0: камень ниже локальной высоты h
func floor(h int) []block.Block {
	blocks := make([]block.Block, world.Size(0))
	for i := range blocks {
		if world.Delinearize(world.ChunkAxis, i).Z < h {
			blocks[i] = block.Stone
		}
	}
	return blocks
}

func activation(pos vec.Vec3, blocks []block.Block) protocol.ChunkActivated {
	return protocol.ChunkActivated{Position: pos, LOD: 0, Bytes: util.EncodeRLE(blocks)}
}

func update(pos vec.Vec3, blocks []block.Block) protocol.ChunkUpdated {
	return protocol.ChunkUpdated{Position: pos, Bytes: util.EncodeRLE(blocks)}
}

// around возвращает 27 позиций окрестности center
func around(center vec.Vec3) []vec.Vec3 {
	var out []vec.Vec3
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				out = append(out, center.Add(vec.New(dx, dy, dz)))
			}
		}
	}
	return out
}
