package session

import (
	"context"
	"errors"
	"net"
	"unicode/utf8"

	"github.com/danmuck/rconctl/internal/auth"
	"github.com/danmuck/rconctl/internal/protocol/rcon"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Handler executes one authenticated command. A returned error is sent to
// the client as the response body.
type Handler interface {
	Execute(ctx context.Context, command string) (string, error)
}

type HandlerFunc func(ctx context.Context, command string) (string, error)

func (f HandlerFunc) Execute(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

// Server speaks the server side of RCON: password auth, command dispatch
// and the empty ResponseValue echo clients use to delimit responses.
type Server struct {
	cfg     ServerConfig
	auth    auth.Validator
	handler Handler
}

// NewServer checks passwords with cfg.Validator, falling back to the
// static cfg.Password. cfg.Session.ReadTimeout is the idle limit per
// connection; zero disables it.
func NewServer(cfg ServerConfig, h Handler) *Server {
	idle := cfg.Session.ReadTimeout
	cfg.Session = cfg.Session.WithDefaults()
	cfg.Session.ReadTimeout = idle
	v := cfg.Validator
	if v == nil {
		v = auth.StaticPassword{Password: cfg.Password}
	}
	return &Server{cfg: cfg, auth: v, handler: h}
}

// Serve accepts connections until ctx is done or ln fails. It returns nil
// after a context shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		return nil
	})
	g.Go(func() error {
		for {
			raw, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			g.Go(func() error {
				s.serveConn(gctx, raw)
				return nil
			})
		}
	})
	err := g.Wait()
	log.Info().Msgf("session.Server.Serve shutdown addr=%s err=%v", ln.Addr(), err)
	return err
}

func (s *Server) serveConn(ctx context.Context, raw net.Conn) {
	conn := NewConn(raw, rcon.RoleServer, s.cfg.Session)
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	peer := raw.RemoteAddr()
	log.Info().Msgf("session.Server.serveConn open peer=%s", peer)
	authed := false
	for {
		msg, err := conn.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, ErrClosed) && ctx.Err() == nil {
				log.Warn().Msgf("session.Server.serveConn read peer=%s err=%v", peer, err)
			}
			log.Info().Msgf("session.Server.serveConn close peer=%s", peer)
			return
		}
		if err := s.dispatch(ctx, conn, msg, &authed); err != nil {
			log.Warn().Msgf("session.Server.serveConn peer=%s err=%v", peer, err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn *Conn, msg rcon.Message, authed *bool) error {
	switch msg.Type {
	case rcon.Auth:
		if err := conn.WriteMessage(ctx, rcon.Message{ID: msg.ID, Type: rcon.ResponseValue}); err != nil {
			return err
		}
		*authed = s.auth.Validate(msg.Body) == nil
		id := msg.ID
		if !*authed {
			id = -1
		}
		return conn.WriteMessage(ctx, rcon.Message{ID: id, Type: rcon.AuthResponse})
	case rcon.ExecCommand:
		if !*authed {
			return conn.WriteMessage(ctx, rcon.Message{ID: -1, Type: rcon.AuthResponse})
		}
		out, err := s.handler.Execute(ctx, msg.Body)
		if err != nil {
			out = err.Error()
		}
		for _, chunk := range splitBody(out, MaxResponseBody) {
			if err := conn.WriteMessage(ctx, rcon.Message{ID: msg.ID, Type: rcon.ResponseValue, Body: chunk}); err != nil {
				return err
			}
		}
		return nil
	case rcon.ResponseValue:
		return conn.WriteMessage(ctx, rcon.Message{ID: msg.ID, Type: rcon.ResponseValue})
	default:
		return ErrUnexpectedPacket
	}
}

// splitBody cuts body into pieces of at most n bytes without splitting a
// UTF-8 sequence. An empty body yields one empty piece.
func splitBody(body string, n int) []string {
	if len(body) <= n {
		return []string{body}
	}
	out := make([]string, 0, len(body)/n+1)
	for len(body) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		if cut == 0 {
			cut = n
		}
		out = append(out, body[:cut])
		body = body[cut:]
	}
	if body != "" {
		out = append(out, body)
	}
	return out
}
