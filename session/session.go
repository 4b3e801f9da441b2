// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/rechain/frame"
)

// ProtocolHashVersion is the compiled-in hash function name. The client
// aborts the handshake if the server's HelloAck disagrees.
const ProtocolHashVersion = "blake3"

// Wire contract errors surfaced to callers; these are distinct from the
// ErrorCode carried inside an Error frame's envelope.
var (
	ErrVersionOutOfRange  = errors.New("session: selected_version outside advertised range")
	ErrHashVersionMismatch = errors.New("session: hash_version mismatch")
	ErrMissingBinaryCap   = errors.New("session: server did not grant BINARY_PROTOCOL capability")
	ErrRequestTimeout     = errors.New("session: request timed out")
	ErrConnectionClosed   = errors.New("session: connection closed")
	ErrNotReady           = errors.New("session: not ready")
)

// Options configures a Session.
type Options struct {
	ClientName        string
	ClientVersion     string
	MinVersion        uint16
	MaxVersion        uint16
	PreferredEncoding string

	HandshakeTimeout  time.Duration
	HeartbeatInterval time.Duration
	SweepInterval     time.Duration
	RequestTimeout    time.Duration
	MaxConcurrent     int
	StreamBufferCap   int

	Logger log.Logger
}

// DefaultOptions returns Options matching the wire contract's defaults.
func DefaultOptions() Options {
	return Options{
		ClientName:        "rechctl",
		ClientVersion:     "0.1.0",
		MinVersion:        1,
		MaxVersion:        1,
		PreferredEncoding: "cbor",
		HandshakeTimeout:  5 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		SweepInterval:     10 * time.Second,
		RequestTimeout:    30 * time.Second,
		MaxConcurrent:     32,
		Logger:            log.NoLog{},
	}
}

// Session is a client connection to a rechaind daemon: handshake state,
// the pending-request table, and the heartbeat/sweeper loops that keep
// both in sync with the transport.
type Session struct {
	opts Options
	conn net.Conn

	stateMu sync.RWMutex
	state   State

	ack HelloAck

	pending *pendingTable
	sem     chan struct{}

	writeMu sync.Mutex

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	lastWriteErr atomic.Value // error
}

// Dial connects to addr (host:port TCP, or a Unix-domain socket path),
// performs the handshake, and starts the heartbeat and sweeper loops.
func Dial(ctx context.Context, network, addr string, opts Options) (*Session, error) {
	if opts.HandshakeTimeout == 0 {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = log.NoLog{}
	}

	dialer := net.Dialer{Timeout: opts.HandshakeTimeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("session: dial %s %s: %w", network, addr, err)
	}

	s := &Session{
		opts:    opts,
		conn:    conn,
		state:   StateConnecting,
		pending: newPendingTable(),
		sem:     make(chan struct{}, maxInt(opts.MaxConcurrent, 1)),
		closeCh: make(chan struct{}),
	}

	if err := s.handshake(ctx); err != nil {
		conn.Close()
		s.setState(StateError)
		return nil, err
	}

	s.setState(StateReady)
	s.wg.Add(3)
	go s.readLoop()
	go s.heartbeatLoop()
	go s.sweepLoop()
	return s, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// State returns the session's current connection state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

func (s *Session) handshake(ctx context.Context) error {
	s.setState(StateNegotiating)

	hello := Hello{
		ClientName:        s.opts.ClientName,
		ClientVersion:      s.opts.ClientVersion,
		MinVersion:        s.opts.MinVersion,
		MaxVersion:        s.opts.MaxVersion,
		Capabilities:      uint64(CapBinaryProtocol | CapCBOREncoding | CapFixedPoint),
		PreferredEncoding: s.opts.PreferredEncoding,
	}
	payload, err := encodeHello(hello)
	if err != nil {
		return fmt.Errorf("session: encode Hello: %w", err)
	}

	deadline := time.Now().Add(s.opts.HandshakeTimeout)
	s.conn.SetDeadline(deadline)
	defer s.conn.SetDeadline(time.Time{})

	buf, err := frame.Encode(frame.Frame{
		VersionMajor: 1,
		VersionMinor: 0,
		MsgType:      uint32(MsgHello),
		Payload:      payload,
	})
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(buf); err != nil {
		return fmt.Errorf("session: write Hello: %w", err)
	}

	parser := frame.NewParser(frame.PreHandshakeBufferCap)
	chunk := make([]byte, 4096)
	for {
		f, ok, perr := parser.Next()
		if perr != nil {
			return fmt.Errorf("session: handshake decode: %w", perr)
		}
		if ok {
			if f.MsgType != uint32(MsgHelloAck) {
				return fmt.Errorf("session: expected HelloAck, got %s", MsgType(f.MsgType))
			}
			ack, err := decodeHelloAck(f.Payload)
			if err != nil {
				return fmt.Errorf("session: decode HelloAck: %w", err)
			}
			return s.acceptHelloAck(hello, ack)
		}
		n, err := s.conn.Read(chunk)
		if err != nil {
			return fmt.Errorf("session: read during handshake: %w", err)
		}
		if err := parser.Write(chunk[:n]); err != nil {
			return err
		}
	}
}

func (s *Session) acceptHelloAck(hello Hello, ack HelloAck) error {
	if ack.SelectedVersion < hello.MinVersion || ack.SelectedVersion > hello.MaxVersion {
		return ErrVersionOutOfRange
	}
	if ack.HashVersion != ProtocolHashVersion {
		return ErrHashVersionMismatch
	}
	if !CapBinaryProtocol.Has(ack.Capabilities) {
		return ErrMissingBinaryCap
	}
	s.ack = ack
	return nil
}

// SessionInfo returns the negotiated HelloAck, valid once the session
// reaches StateReady.
func (s *Session) SessionInfo() HelloAck {
	return s.ack
}

// Request sends payload as msgType and blocks until the matching
// response frame arrives, the per-request timeout elapses, or ctx is
// cancelled. It acquires the session's concurrency semaphore for its
// duration, bounding in-flight requests to opts.MaxConcurrent.
func (s *Session) Request(ctx context.Context, msgType MsgType, payload []byte, expect MsgType) (frame.Frame, error) {
	if s.State() != StateReady {
		return frame.Frame{}, ErrNotReady
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	case <-s.closeCh:
		return frame.Frame{}, ErrConnectionClosed
	}
	defer func() { <-s.sem }()

	corrID := s.pending.nextCorrelationID()
	timeout := s.opts.RequestTimeout
	ch := s.pending.register(corrID, expect, timeout)

	buf, err := frame.Encode(frame.Frame{
		VersionMajor:  1,
		VersionMinor:  0,
		MsgType:       uint32(msgType),
		Flags:         frame.FlagCorrelationPresent,
		CorrelationID: corrID,
		Payload:       payload,
	})
	if err != nil {
		s.pending.reject(corrID, err)
		return frame.Frame{}, err
	}

	s.writeMu.Lock()
	_, werr := s.conn.Write(buf)
	s.writeMu.Unlock()
	if werr != nil {
		s.pending.reject(corrID, werr)
		return frame.Frame{}, werr
	}

	select {
	case res := <-ch:
		return res.frame, res.err
	case <-ctx.Done():
		s.pending.reject(corrID, ctx.Err())
		return frame.Frame{}, ctx.Err()
	case <-s.closeCh:
		return frame.Frame{}, ErrConnectionClosed
	}
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	parser := frame.NewParser(s.opts.StreamBufferCap)
	chunk := make([]byte, 32*1024)
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		n, err := s.conn.Read(chunk)
		if err != nil {
			s.lastWriteErr.Store(err)
			s.fail()
			return
		}
		if err := parser.Write(chunk[:n]); err != nil {
			s.opts.Logger.Warn("frame stream buffer overflow, closing session", "err", err)
			s.fail()
			return
		}
		for {
			f, ok, perr := parser.Next()
			if perr != nil {
				s.opts.Logger.Warn("dropping corrupt frame", "err", perr)
				continue
			}
			if !ok {
				break
			}
			s.dispatch(f)
		}
	}
}

func (s *Session) dispatch(f frame.Frame) {
	switch MsgType(f.MsgType) {
	case MsgHeartbeat:
		return
	case MsgError:
		env, err := decodeError(f.Payload)
		if err != nil {
			s.opts.Logger.Warn("malformed error envelope", "err", err)
			return
		}
		if env.CorrelationID == 0 {
			s.opts.Logger.Warn("unsolicited error event", "code", env.Code, "message", env.Message)
			return
		}
		s.pending.reject(env.CorrelationID, fmt.Errorf("session: remote error %d: %s", env.Code, env.Message))
	default:
		if f.Flags&frame.FlagCorrelationPresent == 0 || f.CorrelationID == 0 {
			return
		}
		if !s.pending.resolve(f) {
			s.opts.Logger.Warn("unmatched correlation id", "id", f.CorrelationID)
		}
	}
}

func (s *Session) heartbeatLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			buf, err := frame.Encode(frame.Frame{VersionMajor: 1, MsgType: uint32(MsgHeartbeat)})
			if err != nil {
				continue
			}
			s.writeMu.Lock()
			_, werr := s.conn.Write(buf)
			s.writeMu.Unlock()
			if werr != nil {
				s.fail()
				return
			}
		}
	}
}

func (s *Session) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case now := <-ticker.C:
			if n := s.pending.sweep(now, ErrRequestTimeout); n > 0 {
				s.opts.Logger.Warn("swept expired pending requests", "count", n)
			}
		}
	}
}

func (s *Session) fail() {
	s.setState(StateError)
	s.pending.drain(ErrConnectionClosed)
	s.closeOnce.Do(func() { close(s.closeCh) })
}

// Close gracefully tears down the session: pending waiters are rejected,
// background loops stop, and the transport is closed.
func (s *Session) Close() error {
	s.setState(StateDisconnected)
	s.closeOnce.Do(func() { close(s.closeCh) })
	s.pending.drain(ErrConnectionClosed)
	err := s.conn.Close()
	s.wg.Wait()
	return err
}
