package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Listener serves the API on a TCP address for the lifetime of a process.
type Listener struct {
	server     *Server
	httpServer *http.Server
	addr       net.Addr
	errc       chan error
}

// Listen binds addr and starts serving in a goroutine. It returns once the
// socket is bound, so ":0" can be used and read back from Addr.
func (s *Server) Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		server: s,
		httpServer: &http.Server{
			Handler:           s.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		addr: ln.Addr(),
		errc: make(chan error, 1),
	}
	go func() {
		err := l.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		l.errc <- err
	}()

	s.logger.Info("api listening", zap.String("addr", l.addr.String()))
	return l, nil
}

// Addr is the bound address.
func (l *Listener) Addr() net.Addr { return l.addr }

// Err delivers the serve error, or nil after a clean shutdown.
func (l *Listener) Err() <-chan error { return l.errc }

// Shutdown disconnects stream clients and drains in-flight requests.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.server.Close()
	return l.httpServer.Shutdown(ctx)
}
