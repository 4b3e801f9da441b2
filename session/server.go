// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/rechain/api/health"
	"github.com/luxfi/rechain/canon"
	"github.com/luxfi/rechain/core"
	"github.com/luxfi/rechain/engine"
	"github.com/luxfi/rechain/frame"
	"github.com/luxfi/rechain/utils"
)

// ServerOptions configures the server-side handshake reply and per-
// connection limits. It is the server's counterpart to Options.
type ServerOptions struct {
	EngineVersion     string
	ContractVersion   string
	Capabilities      uint64
	HandshakeTimeout  time.Duration
	StreamBufferCap   int
	Logger            log.Logger
}

// DefaultServerOptions returns ServerOptions matching the wire
// contract's required hash_version ("blake3") and a fully-capable
// capability bitset.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		EngineVersion:    "0.1.0",
		ContractVersion:  "1.0.0",
		Capabilities:     uint64(CapBinaryProtocol | CapCBOREncoding | CapFixedPoint | CapStreaming),
		HandshakeTimeout: 5 * time.Second,
		Logger:           log.NoLog{},
	}
}

var sessionCounter = utils.NewAtomicInt(0)

func nextSessionID() string {
	n := sessionCounter.Inc()
	return fmt.Sprintf("sess-%d", n)
}

// Server accepts connections on a listener, performs the server side of
// the handshake, and dispatches ExecRequest/HealthRequest/Heartbeat
// frames against an engine.Engine. One Server can back many concurrent
// connections; each connection runs its own read loop and single-writer
// queue, mirroring the client Session's concurrency contract.
type Server struct {
	eng        *engine.Engine
	opts       ServerOptions
	inFlight   *utils.AtomicInt
	draining   *utils.AtomicBool
}

// NewServer returns a Server dispatching accepted connections to eng.
func NewServer(eng *engine.Engine, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NoLog{}
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = DefaultServerOptions().HandshakeTimeout
	}
	return &Server{
		eng:      eng,
		opts:     opts,
		inFlight: utils.NewAtomicInt(0),
		draining: utils.NewAtomicBool(false),
	}
}

// Serve accepts connections from ln until ctx is cancelled or Accept
// returns an error.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		s.draining.Set(true)
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session: accept: %w", err)
		}
		wg.Add(1)
		s.inFlight.Inc()
		go func() {
			defer wg.Done()
			defer s.inFlight.Dec()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sessionID := nextSessionID()
	var writeMu sync.Mutex
	write := func(f frame.Frame) error {
		buf, err := frame.Encode(f)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err = conn.Write(buf)
		return err
	}

	hello, err := s.serverHandshake(conn, write, sessionID)
	if err != nil {
		s.opts.Logger.Warn("handshake failed", "err", err)
		return
	}
	_ = hello

	parser := frame.NewParser(s.opts.StreamBufferCap)
	chunk := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.Read(chunk)
		if err != nil {
			return
		}
		if err := parser.Write(chunk[:n]); err != nil {
			s.opts.Logger.Warn("buffer overflow, closing connection", "err", err)
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
			if !s.dispatch(ctx, f, write, sessionID) {
				return
			}
		}
	}
}

func (s *Server) serverHandshake(conn net.Conn, write func(frame.Frame) error, sessionID string) (Hello, error) {
	conn.SetDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	parser := frame.NewParser(frame.PreHandshakeBufferCap)
	chunk := make([]byte, 4096)
	for {
		f, ok, perr := parser.Next()
		if perr != nil {
			return Hello{}, fmt.Errorf("session: handshake decode: %w", perr)
		}
		if ok {
			if f.MsgType != uint32(MsgHello) {
				return Hello{}, fmt.Errorf("session: expected Hello, got %s", MsgType(f.MsgType))
			}
			hello, err := decodeHello(f.Payload)
			if err != nil {
				return Hello{}, fmt.Errorf("session: decode Hello: %w", err)
			}

			selected := hello.MaxVersion
			if selected < hello.MinVersion {
				return Hello{}, ErrVersionOutOfRange
			}

			ack := HelloAck{
				SelectedVersion: selected,
				Capabilities:    s.opts.Capabilities,
				EngineVersion:   s.opts.EngineVersion,
				ContractVersion: s.opts.ContractVersion,
				HashVersion:     ProtocolHashVersion,
				CasVersion:      ProtocolHashVersion,
				SessionID:       sessionID,
			}
			payload, err := encodeHelloAck(ack)
			if err != nil {
				return Hello{}, err
			}
			if err := write(frame.Frame{VersionMajor: 1, MsgType: uint32(MsgHelloAck), Payload: payload}); err != nil {
				return Hello{}, err
			}
			return hello, nil
		}

		n, err := conn.Read(chunk)
		if err != nil {
			return Hello{}, fmt.Errorf("session: read during handshake: %w", err)
		}
		if err := parser.Write(chunk[:n]); err != nil {
			return Hello{}, err
		}
	}
}

// dispatch handles one decoded frame. It returns false if the
// connection should be closed.
func (s *Server) dispatch(ctx context.Context, f frame.Frame, write func(frame.Frame) error, sessionID string) bool {
	switch MsgType(f.MsgType) {
	case MsgHeartbeat:
		return true
	case MsgHello:
		// A second Hello on an already-negotiated connection is a
		// protocol violation; reject it rather than re-negotiating
		// mid-stream.
		s.writeError(write, f.CorrelationID, core.InvalidMessage, "unexpected Hello after handshake")
		return true
	case MsgExecRequest:
		s.handleExecRequest(ctx, f, write, sessionID)
		return true
	case MsgHealthRequest:
		s.handleHealthRequest(f, write)
		return true
	default:
		s.writeError(write, f.CorrelationID, core.UnknownMsgType, fmt.Sprintf("unknown msg_type 0x%x", f.MsgType))
		return true
	}
}

func (s *Server) handleExecRequest(ctx context.Context, f frame.Frame, write func(frame.Frame) error, sessionID string) {
	req, err := engine.DecodeExecRequest(f.Payload)
	if err != nil {
		s.writeError(write, f.CorrelationID, core.EncodingError, err.Error())
		return
	}
	req.SessionID = sessionID

	res, err := s.eng.Execute(ctx, req)
	if err != nil {
		code := core.ExecutionFailed
		if c, ok := core.CodeForError(err); ok {
			code = c
		}
		appErr := core.NewAppError(code, err.Error())
		s.writeError(write, f.CorrelationID, core.ErrorCode(appErr.Code), appErr.Message)
		return
	}

	payload, err := engine.EncodeExecResult(res)
	if err != nil {
		s.writeError(write, f.CorrelationID, core.EncodingError, err.Error())
		return
	}
	write(frame.Frame{
		VersionMajor:  1,
		MsgType:       uint32(MsgExecResult),
		Flags:         frame.FlagCorrelationPresent,
		CorrelationID: f.CorrelationID,
		Payload:       payload,
	})
}

func (s *Server) handleHealthRequest(f frame.Frame, write func(frame.Frame) error) {
	var report health.PoolReport
	if v, err := s.eng.Health(context.Background()); err == nil {
		if r, ok := v.(health.PoolReport); ok {
			report = r
		}
	}

	details := make(canon.Map, len(report.Details)+2)
	for k, v := range report.Details {
		details[k] = canon.Text(fmt.Sprint(v))
	}
	details["active_connections"] = canon.Text(fmt.Sprint(s.inFlight.Get()))
	details["draining"] = canon.Text(fmt.Sprint(s.draining.Get()))
	payload, err := canon.Encode(canon.Map{
		"healthy": canon.Bool(report.Healthy && !s.draining.Get()),
		"details": details,
	})
	if err != nil {
		return
	}
	write(frame.Frame{
		VersionMajor:  1,
		MsgType:       uint32(MsgHealthResult),
		Flags:         frame.FlagCorrelationPresent,
		CorrelationID: f.CorrelationID,
		Payload:       payload,
	})
}

func (s *Server) writeError(write func(frame.Frame) error, correlationID uint32, code core.ErrorCode, message string) {
	payload, err := encodeError(ErrorEnvelope{
		Code:          uint32(code),
		Message:       message,
		CorrelationID: correlationID,
	})
	if err != nil {
		return
	}
	write(frame.Frame{
		VersionMajor:  1,
		MsgType:       uint32(MsgError),
		Flags:         frame.FlagCorrelationPresent,
		CorrelationID: correlationID,
		Payload:       payload,
	})
}
