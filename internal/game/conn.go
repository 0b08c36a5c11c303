// Package game связывает измерение, сущности и транспорт в тики серверного
// и клиентского миров.
package game

import (
	"github.com/annel0/voxelworld/internal/network"
	"github.com/annel0/voxelworld/internal/protocol"
)

// ServerConn транспорт серверного мира. Реализуется *network.Server.
type ServerConn interface {
	Update()
	Accept() []network.ClientID
	Prune() []network.ClientID
	Send(id network.ClientID, msg protocol.Message) error
	Receive(filter func(protocol.Message) bool) []network.Incoming[protocol.Message]
	Clients() []network.ClientID
}

// ClientConn транспорт клиентского мира. Реализуется *network.Client.
type ClientConn interface {
	Update()
	Send(msg protocol.Message) (uint64, error)
	Receive(filter func(protocol.Message) bool) []network.Envelope[protocol.Message]
}

var (
	_ ServerConn = (*network.Server[protocol.Message])(nil)
	_ ClientConn = (*network.Client[protocol.Message])(nil)
)
