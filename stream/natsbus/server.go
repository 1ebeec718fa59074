package natsbus

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// ServerOptions configures an embedded NATS server.
type ServerOptions struct {
	Host string
	// Port to listen on. natsserver.RANDOM_PORT picks a free port.
	Port int
	// ReadyTimeout bounds the wait for the server to accept connections.
	ReadyTimeout time.Duration
}

// Server is an embedded NATS server for single-binary deployments and tests.
type Server struct {
	server *natsserver.Server
}

// NewServer starts an embedded NATS server.
func NewServer(optFns ...func(o *ServerOptions)) (*Server, error) {
	opts := ServerOptions{
		Host:         "127.0.0.1",
		Port:         natsserver.RANDOM_PORT,
		ReadyTimeout: 5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   opts.Host,
		Port:   opts.Port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(opts.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready")
	}

	return &Server{server: ns}, nil
}

// ClientURL returns the URL clients connect to.
func (s *Server) ClientURL() string { return s.server.ClientURL() }

// Close shuts the server down and waits for it to stop.
func (s *Server) Close() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}
