package network

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/annel0/voxelworld/internal/logging"
	"github.com/annel0/voxelworld/internal/metrics"
)

// Codec переводит сообщения прикладного уровня в байты и обратно
type Codec[M any] interface {
	Encode(M) ([]byte, error)
	Decode([]byte) (M, error)
}

// Envelope доставленное сообщение с адресом отправителя
type Envelope[M any] struct {
	From    net.Addr
	ID      uint64
	Message M
}

// Option настраивает сокет
type Option func(*options)

type options struct {
	clock   Clock
	logger  *logging.Logger
	metrics *metrics.Transport
	admit   func(now time.Time, addr net.Addr) bool
}

// WithClock подменяет источник времени
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger задает логгер транспорта
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics включает учет метрик
func WithMetrics(m *metrics.Transport) Option {
	return func(o *options) { o.metrics = m }
}

func withAdmit(f func(time.Time, net.Addr) bool) Option {
	return func(o *options) { o.admit = f }
}

func buildOptions(opts []Option) options {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.GetNetworkLogger()
	}
	return o
}

type datagram struct {
	from net.Addr
	data []byte
}

// outgoing сообщение, ожидающее подтверждения
type outgoing struct {
	frame    []byte
	to       net.Addr
	key      string
	lastSend time.Time
	sends    int
}

// peer состояние обмена с одним удаленным узлом
type peer struct {
	addr     net.Addr
	lastRecv time.Time
	lastSend time.Time
	// Идентификаторы уже доставленных сообщений и время последней встречи
	seen map[uint64]time.Time
	acks []uint64
}

type socketStats struct {
	sent       atomic.Uint64
	resent     atomic.Uint64
	received   atomic.Uint64
	rejected   atomic.Uint64
	dropped    atomic.Uint64
	duplicates atomic.Uint64
	bytesSent  atomic.Uint64
	bytesRecv  atomic.Uint64
}

// Socket надежный канал сообщений поверх net.PacketConn.
//
// Каждое сообщение получает идентификатор и хранится до подтверждения,
// повторяясь раз в AckInterval. Принятые сообщения подтверждаются всегда,
// даже повторные, но доставляются один раз. Сетевые операции чтения идут
// в отдельной горутине; все остальное состояние меняется только в Update,
// Send и Get, которые должны вызываться из одной горутины.
type Socket[M any] struct {
	conn   net.PacketConn
	codec  Codec[M]
	framer *Framer
	cfg    ChannelConfig
	opts   options

	incoming  chan datagram
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	nextID     atomic.Uint64
	outgoing   map[uint64]*outgoing
	peers      map[string]*peer
	inbox      []Envelope[M]
	lastExpire time.Time
	lastRecv   atomic.Int64

	stats socketStats
}

// NewSocket оборачивает conn и запускает чтение. Сокет владеет conn и
// закрывает его в Close.
func NewSocket[M any](conn net.PacketConn, codec Codec[M], cfg ChannelConfig, opts ...Option) (*Socket[M], error) {
	cfg = cfg.withDefaults()
	framer, err := NewFramer(cfg.Compression)
	if err != nil {
		return nil, err
	}

	s := &Socket[M]{
		conn:     conn,
		codec:    codec,
		framer:   framer,
		cfg:      cfg,
		opts:     buildOptions(opts),
		incoming: make(chan datagram, cfg.BufferSize),
		closed:   make(chan struct{}),
		outgoing: make(map[uint64]*outgoing),
		peers:    make(map[string]*peer),
	}
	s.lastExpire = s.opts.clock.Now()

	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

// LocalAddr локальный адрес сокета
func (s *Socket[M]) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Config действующая конфигурация канала
func (s *Socket[M]) Config() ChannelConfig {
	return s.cfg
}

func (s *Socket[M]) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.opts.logger.Debug("Ошибка чтения: %v", err)
			time.Sleep(time.Millisecond)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case s.incoming <- datagram{from: from, data: data}:
		case <-s.closed:
			return
		default:
			s.stats.dropped.Inc()
			s.opts.metrics.Dropped()
		}
	}
}

// Update разбирает входящие датаграммы, рассылает подтверждения, повторяет
// неподтвержденные сообщения и поддерживает heartbeat
func (s *Socket[M]) Update() {
	now := s.opts.clock.Now()

drain:
	for {
		select {
		case d := <-s.incoming:
			s.handle(now, d)
		default:
			break drain
		}
	}

	s.flushAcks(now)
	s.resend(now)
	s.heartbeat(now)
	s.expireSeen(now)
	s.opts.metrics.SetOutstanding(len(s.outgoing), len(s.peers))
}

func (s *Socket[M]) reject(reason string, from net.Addr, err error, data []byte) {
	s.stats.rejected.Inc()
	s.opts.metrics.Rejected(reason)
	s.opts.logger.ProtocolError(from.String(), err, data)
}

func (s *Socket[M]) handle(now time.Time, d datagram) {
	pkt, err := s.framer.Unframe(d.data)
	if err != nil {
		reason := "deserialize"
		switch {
		case errors.Is(err, ErrInvalidChecksum):
			reason = "checksum"
		case errors.Is(err, ErrDecompress):
			reason = "decompress"
		}
		s.reject(reason, d.from, err, d.data)
		return
	}

	key := d.from.String()
	p, known := s.peers[key]
	if !known {
		// Новый узел начинается только с сообщения
		if pkt.Kind != PacketMessage {
			return
		}
		if s.opts.admit != nil && !s.opts.admit(now, d.from) {
			s.stats.rejected.Inc()
			s.opts.metrics.Rejected("admission")
			return
		}
		p = s.addPeer(d.from, key, now)
	}

	p.lastRecv = now
	s.lastRecv.Store(now.UnixNano())
	s.stats.received.Inc()
	s.stats.bytesRecv.Add(uint64(len(d.data)))
	s.opts.metrics.Received(len(d.data))

	switch pkt.Kind {
	case PacketAck:
		acked := 0
		for _, id := range pkt.Acks {
			if o, ok := s.outgoing[id]; ok && o.key == key {
				delete(s.outgoing, id)
				acked++
			}
		}
		s.opts.metrics.Acked(acked)

	case PacketMessage:
		// дубликаты тоже подтверждаются: отправитель мог потерять Ack
		p.acks = append(p.acks, pkt.ID)
		if _, dup := p.seen[pkt.ID]; dup {
			p.seen[pkt.ID] = now
			s.stats.duplicates.Inc()
			s.opts.metrics.Duplicate()
			return
		}
		p.seen[pkt.ID] = now

		msg, err := s.codec.Decode(pkt.Payload)
		if err != nil {
			s.reject("decode", d.from, err, pkt.Payload)
			return
		}
		s.inbox = append(s.inbox, Envelope[M]{From: d.from, ID: pkt.ID, Message: msg})
	}
}

func (s *Socket[M]) addPeer(addr net.Addr, key string, now time.Time) *peer {
	p := &peer{
		addr:     addr,
		lastRecv: now,
		seen:     make(map[uint64]time.Time),
	}
	s.peers[key] = p
	return p
}

func (s *Socket[M]) write(p *peer, pkt Packet, now time.Time) {
	frame, err := s.framer.Frame(pkt)
	if err != nil {
		s.opts.logger.Error("Не удалось упаковать пакет: %v", err)
		return
	}
	s.writeFrame(p.addr, frame)
	p.lastSend = now
}

func (s *Socket[M]) writeFrame(to net.Addr, frame []byte) {
	if _, err := s.conn.WriteTo(frame, to); err != nil {
		// Потеря отправки эквивалентна потере пакета в сети
		s.opts.logger.Debug("Ошибка отправки %s: %v", to, err)
	}
	s.stats.sent.Inc()
	s.stats.bytesSent.Add(uint64(len(frame)))
	s.opts.metrics.Sent(len(frame))
}

func (s *Socket[M]) flushAcks(now time.Time) {
	for _, p := range s.peers {
		for len(p.acks) > 0 {
			n := min(len(p.acks), s.cfg.MaxAcks)
			s.write(p, Packet{Kind: PacketAck, Acks: p.acks[:n]}, now)
			p.acks = p.acks[n:]
		}
		p.acks = nil
	}
}

func (s *Socket[M]) resend(now time.Time) {
	ids := make([]uint64, 0, len(s.outgoing))
	for id, o := range s.outgoing {
		if now.Sub(o.lastSend) >= s.cfg.AckInterval {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		o := s.outgoing[id]
		s.writeFrame(o.to, o.frame)
		o.lastSend = now
		o.sends++
		s.stats.resent.Inc()
		s.opts.metrics.Resent()
		if p, ok := s.peers[o.key]; ok {
			p.lastSend = now
		}
	}
}

func (s *Socket[M]) heartbeat(now time.Time) {
	for _, p := range s.peers {
		if now.Sub(p.lastSend) >= s.cfg.Heartbeat {
			s.write(p, Packet{Kind: PacketAck}, now)
		}
	}
}

// Время жизни записи о доставленном сообщении. Отправитель повторяет
// сообщение не дольше, чем видит нас живыми, поэтому после нескольких
// таймаутов дубликат прийти уже не может.
func (s *Socket[M]) seenTTL() time.Duration {
	return 4 * s.cfg.Timeout
}

func (s *Socket[M]) expireSeen(now time.Time) {
	if now.Sub(s.lastExpire) < time.Second {
		return
	}
	s.lastExpire = now
	ttl := s.seenTTL()
	for _, p := range s.peers {
		for id, t := range p.seen {
			if now.Sub(t) > ttl {
				delete(p.seen, id)
			}
		}
	}
}

// Send ставит сообщение в очередь надежной доставки и сразу отправляет его.
// Возвращает идентификатор сообщения.
func (s *Socket[M]) Send(msg M, to net.Addr) (uint64, error) {
	payload, err := s.codec.Encode(msg)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialize, err)
	}

	id := s.nextID.Inc()
	frame, err := s.framer.Frame(Packet{Kind: PacketMessage, ID: id, Payload: payload})
	if err != nil {
		return 0, err
	}
	if len(frame) > maxDatagram {
		return 0, fmt.Errorf("%w: %d байт", ErrTooLarge, len(frame))
	}

	now := s.opts.clock.Now()
	key := to.String()
	p, ok := s.peers[key]
	if !ok {
		p = s.addPeer(to, key, now)
	}

	s.outgoing[id] = &outgoing{frame: frame, to: to, key: key, lastSend: now, sends: 1}
	s.writeFrame(to, frame)
	p.lastSend = now
	return id, nil
}

// Pending ожидает ли сообщение id подтверждения
func (s *Socket[M]) Pending(id uint64) bool {
	_, ok := s.outgoing[id]
	return ok
}

// Cancel прекращает повторную отправку сообщения
func (s *Socket[M]) Cancel(id uint64) {
	delete(s.outgoing, id)
}

// Outstanding количество неподтвержденных сообщений
func (s *Socket[M]) Outstanding() int {
	return len(s.outgoing)
}

func (s *Socket[M]) take(keep func(Envelope[M]) bool) []Envelope[M] {
	var out []Envelope[M]
	rest := s.inbox[:0]
	for _, env := range s.inbox {
		if keep(env) {
			out = append(out, env)
		} else {
			rest = append(rest, env)
		}
	}
	clear(s.inbox[len(rest):])
	s.inbox = rest
	return out
}

// Get забирает доставленные сообщения, удовлетворяющие filter, в порядке
// получения. Остальные остаются в очереди.
func (s *Socket[M]) Get(filter func(M) bool) []Envelope[M] {
	return s.take(func(env Envelope[M]) bool { return filter(env.Message) })
}

// GetFrom как Get, но только от узла addr
func (s *Socket[M]) GetFrom(addr net.Addr, filter func(M) bool) []Envelope[M] {
	key := addr.String()
	return s.take(func(env Envelope[M]) bool {
		return env.From.String() == key && filter(env.Message)
	})
}

// LastRecv время последнего пакета от addr
func (s *Socket[M]) LastRecv(addr net.Addr) (time.Time, bool) {
	p, ok := s.peers[addr.String()]
	if !ok {
		return time.Time{}, false
	}
	return p.lastRecv, true
}

// Stale возвращает узлы, молчащие дольше Timeout
func (s *Socket[M]) Stale() []net.Addr {
	now := s.opts.clock.Now()
	var out []net.Addr
	for _, p := range s.peers {
		if now.Sub(p.lastRecv) > s.cfg.Timeout {
			out = append(out, p.addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Forget удаляет состояние узла вместе с его неподтвержденными сообщениями
// и недоставленной почтой
func (s *Socket[M]) Forget(addr net.Addr) {
	key := addr.String()
	delete(s.peers, key)
	for id, o := range s.outgoing {
		if o.key == key {
			delete(s.outgoing, id)
		}
	}
	s.take(func(env Envelope[M]) bool { return env.From.String() == key })
}

// Stats возвращает статистику сокета. Outstanding и Peers читаются без
// синхронизации и должны запрашиваться из горутины тика.
func (s *Socket[M]) Stats() ConnectionStats {
	var lastActivity time.Time
	if ns := s.lastRecv.Load(); ns != 0 {
		lastActivity = time.Unix(0, ns)
	}
	return ConnectionStats{
		PacketsSent:     s.stats.sent.Load(),
		PacketsResent:   s.stats.resent.Load(),
		PacketsReceived: s.stats.received.Load(),
		PacketsRejected: s.stats.rejected.Load(),
		PacketsDropped:  s.stats.dropped.Load(),
		Duplicates:      s.stats.duplicates.Load(),
		BytesSent:       s.stats.bytesSent.Load(),
		BytesReceived:   s.stats.bytesRecv.Load(),
		Outstanding:     len(s.outgoing),
		Peers:           len(s.peers),
		LastActivity:    lastActivity,
	}
}

// Close останавливает чтение и закрывает соединение
func (s *Socket[M]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
		s.wg.Wait()
		s.framer.Close()
		s.opts.logger.Debug("Сокет %s закрыт", s.conn.LocalAddr())
	})
	return err
}
