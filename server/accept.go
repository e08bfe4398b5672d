// File: server/accept.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Accept loop and per-connection wiring.

package server

import (
	"errors"
	"time"

	"github.com/momentics/loopws/api"
	"github.com/momentics/loopws/control"
	"github.com/momentics/loopws/protocol"
)

func (s *Server) acceptNext() {
	if s.stopping || s.listenerClosed {
		return
	}
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	l.Accept(s.onAccept)
}

func (s *Server) onAccept(t api.Transport, err error) {
	if err != nil {
		if errors.Is(err, api.ErrListenerClosed) {
			return
		}
		s.metrics.Add(control.MetricAcceptErrors, 1)
		s.log.Printf("accept error: %v", err)
		if s.stopping {
			return
		}
		delay := s.limiter.Reserve().Delay()
		if delay <= 0 {
			s.acceptNext()
			return
		}
		time.AfterFunc(delay, func() {
			if err := s.loop.Submit(s.acceptNext); err != nil {
				s.log.Printf("accept retry dropped: %v", err)
			}
		})
		return
	}

	if s.stopping {
		_ = t.Close()
		return
	}
	s.acceptNext()

	s.accepted.Add(1)
	s.metrics.Add(control.MetricAccepted, 1)
	c := protocol.NewConn(t, protocol.ConnConfig{
		ReadBufferSize:   s.cfg.ReadBufferSize,
		MaxMessageSize:   s.cfg.MaxMessageSize,
		MaxHandshakeSize: s.cfg.MaxHandshakeSize,
		Logger:           s.log,
		OnOpen:           s.onOpen,
		OnClose:          s.onClose,
		OnReject:         s.onReject,
		OnProtocolError:  s.onProtocolError,
		OnMessage:        s.onMessage,
	})
	s.pending.Add(c.ID(), c)
	c.Start()
}

func (s *Server) onOpen(c *protocol.Conn) {
	s.pending.Remove(c.ID())
	s.conns.Add(c.ID(), c)
	s.metrics.Add(control.MetricOpen, 1)
	if s.cb.Open != nil {
		s.cb.Open(c)
	}
}

func (s *Server) onClose(c *protocol.Conn, code int) {
	s.conns.Remove(c.ID())
	s.metrics.Add(control.MetricOpen, -1)
	s.metrics.Add(control.MetricClosed, 1)
	if s.cb.Close != nil {
		s.cb.Close(c, code)
	}
	s.maybeFinish()
}

func (s *Server) onReject(c *protocol.Conn, err error) {
	s.pending.Remove(c.ID())
	if api.CodeOf(err) == api.ErrCodeHandshake {
		s.metrics.Add(control.MetricHandshakeFailures, 1)
	}
	s.maybeFinish()
}

func (s *Server) onProtocolError(c *protocol.Conn, err error) {
	s.metrics.Add(control.MetricProtocolErrors, 1)
}

func (s *Server) onMessage(c *protocol.Conn, mt protocol.MessageType, n int) {
	s.messages.Add(1)
	s.metrics.Add(control.MetricMessagesIn, 1)
}
