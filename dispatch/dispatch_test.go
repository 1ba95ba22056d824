package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type echoState struct{ calls int }

func echoHandler(state *echoState, body []byte, reply []byte) (int, error) {
	state.calls++
	n := copy(reply, body)
	return n, nil
}

func failHandler(state *echoState, body []byte, reply []byte) (int, error) {
	return 0, errBoom{}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	return conn
}

func sendOrder(t *testing.T, client *net.UDPConn, server *net.UDPAddr, scope, route uint8, id uint64, body []byte) {
	t.Helper()
	head := make([]byte, OrderHeadSize)
	head[4] = scope
	head[5] = route
	putU32(head[0:4], uint32(len(body)))
	putU64(head[8:16], id)
	_, err := client.WriteToUDP(append(head, body...), server)
	require.NoError(t, err)
}

func putU32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestServeEchoesBody(t *testing.T) {
	server := listen(t)
	defer server.Close()
	client := listen(t)
	defer client.Close()

	d := New(&echoState{}, []Scope[*echoState]{
		{Name: "demo", Routes: []Api[*echoState]{{InputSize: 5, Handler: echoHandler}}},
	})

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- d.Serve(server, stop) }()

	sendOrder(t, client, server.LocalAddr().(*net.UDPAddr), 0, 0, 99, []byte("hello"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, MaxDatagram)
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, ReplyHeadSize)

	require.Equal(t, uint32(0), stdU32(buf[12:16]))
	require.Equal(t, "hello", string(buf[ReplyHeadSize:n]))

	close(stop)
	client.SetDeadline(time.Time{})
}

func TestHandlerErrorSetsErrorField(t *testing.T) {
	server := listen(t)
	defer server.Close()
	client := listen(t)
	defer client.Close()

	d := New(&echoState{}, []Scope[*echoState]{
		{Name: "demo", Routes: []Api[*echoState]{{InputSize: 5, Handler: failHandler}}},
	})

	stop := make(chan struct{})
	go d.Serve(server, stop)
	defer close(stop)

	sendOrder(t, client, server.LocalAddr().(*net.UDPAddr), 0, 0, 1, []byte("hello"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, MaxDatagram)
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)
	require.NotEqual(t, uint32(0), stdU32(buf[12:16]))
	require.Equal(t, ReplyHeadSize, n)
}

func TestOutOfRangeScopeIsDropped(t *testing.T) {
	server := listen(t)
	defer server.Close()
	client := listen(t)
	defer client.Close()

	d := New(&echoState{}, []Scope[*echoState]{})

	stop := make(chan struct{})
	go d.Serve(server, stop)
	defer close(stop)

	sendOrder(t, client, server.LocalAddr().(*net.UDPAddr), 9, 0, 1, []byte("hello"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	buf := make([]byte, MaxDatagram)
	_, _, err := client.ReadFromUDP(buf)
	require.Error(t, err)
}

func stdU32(b []byte) uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(b[i]) << (8 * i)
	}
	return v
}
