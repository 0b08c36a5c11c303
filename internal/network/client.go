package network

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Client сокет с одним удаленным узлом: сервером
type Client[M any] struct {
	*Socket[M]
	server    net.Addr
	connected bool
}

// Dial открывает локальный сокет на адресе local и готовит обмен с remote.
// Сетевого обмена не происходит до Connect.
func Dial[M any](local, remote string, cfg ChannelConfig, codec Codec[M], opts ...Option) (*Client[M], error) {
	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToConnect, remote, err)
	}
	conn, err := dialPacket(cfg, local, raddr)
	if err != nil {
		return nil, err
	}
	sock, err := NewSocket(conn, codec, cfg, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client[M]{Socket: sock, server: raddr}, nil
}

// Connect отправляет рукопожатие и продвигает сокет, пока сервер его не
// подтвердит. По истечении Timeout возвращает ErrTimeout.
func (c *Client[M]) Connect(ctx context.Context, handshake M) error {
	id, err := c.Socket.Send(handshake, c.server)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		c.Update()
		if !c.Pending(id) {
			c.connected = true
			c.opts.logger.Info("Подключено к %s", c.server)
			return nil
		}
		if time.Now().After(deadline) {
			c.Cancel(id)
			return fmt.Errorf("%w: %s", ErrTimeout, c.server)
		}
		select {
		case <-ctx.Done():
			c.Cancel(id)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Connected было ли рукопожатие подтверждено
func (c *Client[M]) Connected() bool {
	return c.connected
}

// Alive подключен ли клиент и слышен ли сервер в пределах Timeout
func (c *Client[M]) Alive() bool {
	if !c.connected {
		return false
	}
	last, ok := c.LastRecv(c.server)
	return ok && c.opts.clock.Now().Sub(last) <= c.cfg.Timeout
}

// Server адрес сервера
func (c *Client[M]) Server() net.Addr {
	return c.server
}

// Send отправляет сообщение серверу
func (c *Client[M]) Send(msg M) (uint64, error) {
	return c.Socket.Send(msg, c.server)
}

// Get забирает сообщения сервера, удовлетворяющие filter
func (c *Client[M]) Get(filter func(M) bool) []M {
	envs := c.Socket.GetFrom(c.server, filter)
	out := make([]M, len(envs))
	for i, env := range envs {
		out[i] = env.Message
	}
	return out
}

// Receive как Get, но сохраняет идентификаторы сообщений. Идентификаторы
// одного отправителя растут в порядке отправки.
func (c *Client[M]) Receive(filter func(M) bool) []Envelope[M] {
	return c.Socket.GetFrom(c.server, filter)
}
