package netconn

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AcceptsAndHandlesConnections(t *testing.T) {
	server := NewServer(0)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	received := make(chan string, 1)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.serveOn(listener, func(conn net.Conn) {
			defer conn.Close()
			buf := make([]byte, 5)
			io.ReadFull(conn, buf)
			received <- string(buf)
		})
	}()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(port), 2*time.Second)
	require.NoError(t, err)
	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)
	conn.Close()

	select {
	case msg := <-received:
		assert.Equal(t, "hello", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	require.NoError(t, server.Stop())
	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestDial_ReturnsWrappedErrorOnRefusedConnection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	_, err = Dial("127.0.0.1", port)
	assert.Error(t, err)
}
