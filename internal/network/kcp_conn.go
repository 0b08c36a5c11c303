package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/xtaci/kcp-go/v5"
)

// Параметры FEC должны совпадать у клиента и сервера
const (
	kcpDataShards   = 10
	kcpParityShards = 3
)

// kcpPacketConn представляет набор KCP сессий как net.PacketConn, чтобы
// надежный сокет работал поверх KCP так же, как поверх UDP. Сессии
// используются в режиме сообщений: один Write соответствует одному Read.
type kcpPacketConn struct {
	listener *kcp.Listener
	local    net.Addr
	// UDP сокет клиента; KCP не закрывает переданное ему соединение
	udp net.PacketConn

	mu       sync.RWMutex
	sessions map[string]*kcpSession

	incoming chan datagram
	closed   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

type kcpSession struct {
	sess *kcp.UDPSession
	addr net.Addr
}

func newKCPPacketConn(local net.Addr) *kcpPacketConn {
	return &kcpPacketConn{
		local:    local,
		sessions: make(map[string]*kcpSession),
		incoming: make(chan datagram, 256),
		closed:   make(chan struct{}),
	}
}

// configureSession настраивает KCP для игрового трафика
func configureSession(s *kcp.UDPSession) {
	s.SetStreamMode(false)
	s.SetWriteDelay(false)
	s.SetNoDelay(1, 20, 2, 1)
	s.SetWindowSize(512, 512)
	s.SetMtu(1400)
}

func listenKCP(addr string) (net.PacketConn, error) {
	l, err := kcp.ListenWithOptions(addr, nil, kcpDataShards, kcpParityShards)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToBind, addr, err)
	}
	c := newKCPPacketConn(l.Addr())
	c.listener = l

	c.wg.Add(1)
	go c.acceptLoop()
	return c, nil
}

func dialKCP(local string, remote *net.UDPAddr) (net.PacketConn, error) {
	udp, err := net.ListenPacket("udp", local)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToBind, local, err)
	}
	sess, err := kcp.NewConn(remote.String(), nil, kcpDataShards, kcpParityShards, udp)
	if err != nil {
		udp.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToConnect, remote, err)
	}
	configureSession(sess)

	c := newKCPPacketConn(udp.LocalAddr())
	c.udp = udp
	c.add(sess, remote)
	return c, nil
}

func (c *kcpPacketConn) acceptLoop() {
	defer c.wg.Done()
	for {
		sess, err := c.listener.AcceptKCP()
		if err != nil {
			return
		}
		configureSession(sess)
		c.add(sess, sess.RemoteAddr())
	}
}

func (c *kcpPacketConn) add(sess *kcp.UDPSession, addr net.Addr) {
	s := &kcpSession{sess: sess, addr: addr}

	c.mu.Lock()
	c.sessions[addr.String()] = s
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(s)
}

func (c *kcpPacketConn) readLoop(s *kcpSession) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.sessions, s.addr.String())
		c.mu.Unlock()
		s.sess.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, err := s.sess.Read(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case c.incoming <- datagram{from: s.addr, data: data}:
		case <-c.closed:
			return
		}
	}
}

func (c *kcpPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case d := <-c.incoming:
		return copy(b, d.data), d.from, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *kcpPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	c.mu.RLock()
	s, ok := c.sessions[addr.String()]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("нет KCP сессии с %s", addr)
	}
	return s.sess.Write(b)
}

func (c *kcpPacketConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		if c.listener != nil {
			err = c.listener.Close()
		}
		c.mu.Lock()
		for _, s := range c.sessions {
			err = errors.Join(err, s.sess.Close())
		}
		c.mu.Unlock()
		if c.udp != nil {
			err = errors.Join(err, c.udp.Close())
		}
		c.wg.Wait()
	})
	return err
}

func (c *kcpPacketConn) LocalAddr() net.Addr { return c.local }

func (c *kcpPacketConn) SetDeadline(time.Time) error      { return nil }
func (c *kcpPacketConn) SetReadDeadline(time.Time) error  { return nil }
func (c *kcpPacketConn) SetWriteDeadline(time.Time) error { return nil }

// listenPacket открывает серверный сокет выбранного типа
func listenPacket(cfg ChannelConfig, addr string) (net.PacketConn, error) {
	if cfg.Type == ChannelKCP {
		return listenKCP(addr)
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToBind, addr, err)
	}
	return conn, nil
}

// dialPacket открывает клиентский сокет выбранного типа
func dialPacket(cfg ChannelConfig, local string, remote *net.UDPAddr) (net.PacketConn, error) {
	if cfg.Type == ChannelKCP {
		return dialKCP(local, remote)
	}
	conn, err := net.ListenPacket("udp", local)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToBind, local, err)
	}
	return conn, nil
}
