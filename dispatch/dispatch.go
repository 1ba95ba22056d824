// Package dispatch implements the order/reply datagram RPC layer: a
// process-wide [Scope][Route] table of handlers, each handed the raw
// request body and a reply buffer to fill in place. Grounded on
// spec.md §4.9's order dispatcher.
package dispatch

import (
	"net"
	"time"

	"github.com/00-team/shah/errs"
	"github.com/00-team/shah/metrics"
	"github.com/00-team/shah/xlog"
)

// Handler answers one order: it's handed state, the order's body (sized
// to the route's declared InputSize) and a reply buffer, and returns how
// many bytes of reply it wrote.
type Handler[S any] func(state S, body []byte, reply []byte) (int, error)

// Api declares one route's fixed input size and handler.
type Api[S any] struct {
	InputSize int
	Handler   Handler[S]
}

// Scope groups routes under a name, indexed by route id.
type Scope[S any] struct {
	Name   string
	Routes []Api[S]
}

// Dispatcher holds process-wide state and the scope/route table it's
// dispatched against. Grounded on spec.md §4.9's "process-wide ShahState
// and a [Scope] array indexed by scope id".
type Dispatcher[S any] struct {
	State   S
	Scopes  []Scope[S]
	log     xlog.Logger
	timeout time.Duration

	replyBuf [MaxDatagram]byte
}

// New builds a dispatcher over state and scopes, with a 5s socket
// timeout.
func New[S any](state S, scopes []Scope[S]) *Dispatcher[S] {
	return &Dispatcher[S]{
		State:   state,
		Scopes:  scopes,
		log:     xlog.Root().Named("dispatch"),
		timeout: 5 * time.Second,
	}
}

// Conn is the subset of *net.UDPConn the dispatcher needs, so tests can
// substitute an in-memory fake. Grounded on p2p/discover/common.go's
// UDPConn abstraction.
type Conn interface {
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetDeadline(t time.Time) error
}

// Serve runs the single-threaded blocking receive loop until stop is
// closed or a non-timeout read error occurs.
func (d *Dispatcher[S]) Serve(conn Conn, stop <-chan struct{}) error {
	buf := make([]byte, MaxDatagram)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
			return err
		}

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		d.handle(conn, addr, buf[:n])
	}
}

// handle dispatches one already-received datagram, replying over conn.
// Malformed datagrams (short header, out-of-range scope/route, body
// length mismatch) are silently dropped per spec.md §4.9.
func (d *Dispatcher[S]) handle(conn Conn, addr *net.UDPAddr, datagram []byte) {
	if len(datagram) < OrderHeadSize {
		d.log.Warn("dropping short order datagram", "len", len(datagram))
		return
	}

	head := decodeOrderHead(datagram)
	body := datagram[OrderHeadSize:]

	if int(head.Size) != len(body) {
		d.log.Warn("dropping order with size mismatch", "declared", head.Size, "got", len(body))
		return
	}
	if int(head.Scope) >= len(d.Scopes) {
		d.log.Warn("dropping order with out-of-range scope", "scope", head.Scope)
		return
	}

	scope := d.Scopes[head.Scope]
	if int(head.Route) >= len(scope.Routes) {
		d.log.Warn("dropping order with out-of-range route", "scope", scope.Name, "route", head.Route)
		return
	}

	api := scope.Routes[head.Route]
	if api.InputSize != len(body) {
		d.log.Warn("dropping order with body/input_size mismatch", "scope", scope.Name, "want", api.InputSize, "got", len(body))
		return
	}

	start := time.Now()
	n, callErr := api.Handler(d.State, body, d.replyBuf[:])
	elapsed := uint64(time.Since(start))

	reply := ReplyHead{Id: head.Id, Elapsed: elapsed}
	var out []byte
	errScope := "ok"
	if callErr != nil {
		reply.Error = errs.ErrCode(callErr)
		errScope = errs.ScopeSystem.String()
		if c, ok := callErr.(errs.Coded); ok {
			errScope = c.Scope().String()
		}
	} else {
		reply.Size = uint32(n)
		out = d.replyBuf[:n]
	}
	metrics.DispatchRequests.WithLabelValues(scope.Name, errScope).Inc()

	if _, err := conn.WriteToUDP(append(encodeReplyHead(reply), out...), addr); err != nil {
		d.log.Error("reply write failed", "err", err)
	}
}
