package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Listener accepts inbound connections and spawns one Session (with its
// liveness monitor) per connection. There is no admission limit.
type Listener struct {
	addr string
	deps Deps
	log  zerolog.Logger
}

func NewListener(addr string, deps Deps) *Listener {
	return &Listener{addr: addr, deps: deps, log: deps.Log}
}

// Serve blocks accepting connections until ctx is cancelled. Accept
// failures are logged and do not stop the loop.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	l.log.Info().Str("addr", l.addr).Msg("server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Error().Err(err).Msg("accept failed")
			continue
		}

		l.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		sess := NewSession(conn, l.deps)
		go sess.Run(ctx)
	}
}
