package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	. "navstat/common"
)

const (
	serverShutdownTimeoutSec = 10
)

type Server struct {
	port    int
	handler http.Handler
	failed  func(error)
	stop    chan bool
	server  *http.Server
}

// Create a server that will be listening on `port` and serving `handler`.  It will call `failed`
// if the server returns a failure code.  The server is not started by this.

func NewServer(port int, handler http.Handler, failed func(error)) *Server {
	return &Server{
		port:    port,
		handler: handler,
		failed:  failed,
		stop:    make(chan bool),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start the server.  This blocks the current goroutine until the server exits, so typical usage
// would be `go s.Start()`.  To force the server to shut down, call s.Stop().  When the server
// exits, it will call s.failed if there was an error.

func (s *Server) Start() {
	Log.Infof("Listening on port %d", s.port)
	s.finish(s.server.ListenAndServe())
}

// Serve is Start on an existing listener, tests use it with port 0.

func (s *Server) Serve(l net.Listener) {
	s.finish(s.server.Serve(l))
}

func (s *Server) finish(err error) {
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			Log.Error(err.Error())
			Log.Error("SERVER NOT RUNNING")
			if s.failed != nil {
				s.failed(err)
			}
		} else {
			Log.Info(err.Error())
		}
	}
	s.stop <- true
}

// Cause the server to shut down and stop.

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeoutSec*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		Log.Warning(err.Error())
	}
	<-s.stop
}
