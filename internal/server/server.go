// Package server owns the TCP listener and the per-connection goroutines.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"telegram-alerts-go/alert"
)

// Handler serves exactly one accepted connection. The server closes the
// connection after Handle returns.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn)
}

// Server accepts client connections and hands each one to the handler on
// its own goroutine, so a connection blocked on the backend never stalls
// the others.
type Server struct {
	port    int
	handler Handler
}

func New(port int, handler Handler) *Server {
	return &Server{port: port, handler: handler}
}

// Serve listens on the configured port and accepts until ctx is canceled.
// It returns nil on clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	// Unblocks Accept when the context is canceled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	zap.S().Infow("proxy listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				zap.S().Infow("proxy listener stopped")
				return nil
			}
			zap.S().Errorw(alert.Prefix("accept failed"), "error", err)
			return fmt.Errorf("accept: %w", err)
		}

		zap.S().Debugw("accepted connection", "remote", conn.RemoteAddr())
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer func() {
		// A panic in one connection must not take the process down.
		if r := recover(); r != nil {
			zap.S().Errorw(alert.Prefix("connection handler panic"), "remote", conn.RemoteAddr(), "panic", r)
		}
	}()

	s.handler.Handle(ctx, conn)
}
