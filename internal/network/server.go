package network

import (
	"net"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ClientID идентификатор подключенного клиента
type ClientID = uuid.UUID

// Incoming сообщение от зарегистрированного клиента
type Incoming[M any] struct {
	Client  ClientID
	Message M
}

// Server сокет, принимающий клиентов. Клиент регистрируется первым
// рукопожатием; сообщения от незарегистрированных адресов отбрасываются.
type Server[M any] struct {
	*Socket[M]
	isHandshake func(M) bool
	limiter     *rate.Limiter

	clients  map[string]ClientID
	addrs    map[ClientID]net.Addr
	accepted []ClientID
}

// Listen открывает серверный сокет на addr. isHandshake отличает
// сообщение рукопожатия от остальных.
func Listen[M any](addr string, cfg ChannelConfig, codec Codec[M], isHandshake func(M) bool, opts ...Option) (*Server[M], error) {
	conn, err := listenPacket(cfg, addr)
	if err != nil {
		return nil, err
	}

	s := &Server[M]{
		isHandshake: isHandshake,
		clients:     make(map[string]ClientID),
		addrs:       make(map[ClientID]net.Addr),
	}
	if cfg.AdmitRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AdmitRate), max(cfg.AdmitBurst, 1))
	}

	sock, err := NewSocket(conn, codec, cfg, append(opts, withAdmit(s.admit))...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.Socket = sock
	s.opts.logger.Info("Сервер слушает %s (%s)", sock.LocalAddr(), cfg.Type)
	return s, nil
}

// admit ограничивает скорость появления новых узлов
func (s *Server[M]) admit(now time.Time, _ net.Addr) bool {
	return s.limiter == nil || s.limiter.AllowN(now, 1)
}

// Update продвигает сокет и регистрирует новых клиентов по рукопожатиям
func (s *Server[M]) Update() {
	s.Socket.Update()

	for _, env := range s.Socket.Get(s.isHandshake) {
		key := env.From.String()
		if _, ok := s.clients[key]; ok {
			continue
		}
		id := uuid.New()
		s.clients[key] = id
		s.addrs[id] = env.From
		s.accepted = append(s.accepted, id)
		s.opts.logger.Info("Клиент %s подключился с %s", id, key)
	}

	// Сообщения без рукопожатия никому не нужны
	s.take(func(env Envelope[M]) bool {
		_, ok := s.clients[env.From.String()]
		return !ok
	})
}

// Accept возвращает клиентов, зарегистрированных с прошлого вызова
func (s *Server[M]) Accept() []ClientID {
	out := s.accepted
	s.accepted = nil
	return out
}

// Prune забывает узлы, молчащие дольше Timeout, и возвращает
// отключившихся клиентов
func (s *Server[M]) Prune() []ClientID {
	var gone []ClientID
	for _, addr := range s.Stale() {
		key := addr.String()
		s.Forget(addr)
		id, ok := s.clients[key]
		if !ok {
			continue
		}
		delete(s.clients, key)
		delete(s.addrs, id)
		gone = append(gone, id)
		s.opts.logger.Info("Клиент %s отключен по таймауту", id)
	}
	return gone
}

// Send отправляет сообщение клиенту
func (s *Server[M]) Send(id ClientID, msg M) error {
	addr, ok := s.addrs[id]
	if !ok {
		return ErrUnknownClient
	}
	_, err := s.Socket.Send(msg, addr)
	return err
}

// Broadcast отправляет сообщение всем клиентам, кроме тех, для кого skip
// возвращает true. Первая ошибка прерывает рассылку.
func (s *Server[M]) Broadcast(msg M, skip func(ClientID) bool) error {
	for _, id := range s.Clients() {
		if skip != nil && skip(id) {
			continue
		}
		if err := s.Send(id, msg); err != nil {
			return err
		}
	}
	return nil
}

// Receive забирает сообщения клиентов, удовлетворяющие filter
func (s *Server[M]) Receive(filter func(M) bool) []Incoming[M] {
	envs := s.take(func(env Envelope[M]) bool {
		_, ok := s.clients[env.From.String()]
		return ok && filter(env.Message)
	})
	out := make([]Incoming[M], len(envs))
	for i, env := range envs {
		out[i] = Incoming[M]{Client: s.clients[env.From.String()], Message: env.Message}
	}
	return out
}

// Clients возвращает зарегистрированных клиентов в стабильном порядке
func (s *Server[M]) Clients() []ClientID {
	out := make([]ClientID, 0, len(s.addrs))
	for id := range s.addrs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Addr адрес клиента
func (s *Server[M]) Addr(id ClientID) (net.Addr, bool) {
	addr, ok := s.addrs[id]
	return addr, ok
}
