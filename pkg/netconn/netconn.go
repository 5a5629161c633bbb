// Package netconn is the TCP transport factory §5.1's expansion calls
// for: the destination side dials one connection per table-sync job,
// the source side listens and accepts one connection per incoming job.
// Every connection is handed off as a plain net.Conn wrapped in
// pkg/wire's Packer/Unpacker — there is no RPC/service layer here, the
// way rpc/rpc_factory.go wraps kitex for the teacher's thrift services,
// because the sync protocol is its own minimal framing, not a
// generated RPC stub.
package netconn

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rowsync/rowsync/pkg/xerror"
)

// DefaultDialTimeout bounds how long the destination side waits to
// establish a connection to a source before giving up.
const DefaultDialTimeout = 10 * time.Second

// Dial opens a TCP connection to a source engine at host:port, for the
// destination side to drive a syncjob.Job over.
func Dial(host string, port int) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", addr, DefaultDialTimeout)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Protocol, "netconn: dial %s failed", addr)
	}
	return conn, nil
}

// Server accepts incoming sync connections on one TCP port, the source
// side's counterpart to Dial, handing each accepted net.Conn to handle
// in its own goroutine until Stop is called.
type Server struct {
	port     int
	listener net.Listener
}

// NewServer prepares a Server bound to port; it does not start listening
// until Serve is called.
func NewServer(port int) *Server {
	return &Server{port: port}
}

// Serve listens on the configured port and calls handle for every
// accepted connection in its own goroutine, blocking until Stop closes
// the listener. A closed listener is reported as a nil error, matching
// http_service.go's Start treating http.ErrServerClosed as a clean
// shutdown rather than a failure.
func (s *Server) Serve(handle func(net.Conn)) error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return xerror.Wrapf(err, xerror.Protocol, "netconn: listen on %s failed", addr)
	}
	s.listener = listener
	return s.serveOn(listener, handle)
}

func (s *Server) serveOn(listener net.Listener, handle func(net.Conn)) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return xerror.Wrap(err, xerror.Protocol, "netconn: accept failed")
		}
		go handle(conn)
	}
}

// Stop closes the listener, causing a blocked Serve call to return.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
