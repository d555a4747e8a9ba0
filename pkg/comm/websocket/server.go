package websocket

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	fx "github.com/robotalks/mcu.go/pkg/framework"
)

// Server accepts websocket console connections on an HTTP listener.
type Server struct {
	// Addr is the listen address, e.g. :8180.
	Addr string
	// Serve handles one accepted console link and returns when done
	// with it.
	Serve func(*Link)
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: Handler(s.Serve)}
	glog.Infof("console on ws://%s/", s.Addr)
	return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
}
