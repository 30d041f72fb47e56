//go:build linux

package proactor

import (
	"context"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/brickingsoft/proactor/pkg/sys"
	"github.com/pawelgaczynski/giouring"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// AddressSource
// yields the ordered candidates a connect tries.
type AddressSource interface {
	Resolve(ctx context.Context) ([]Addr, error)
}

type AddressSourceFunc func(ctx context.Context) ([]Addr, error)

func (fn AddressSourceFunc) Resolve(ctx context.Context) ([]Addr, error) {
	return fn(ctx)
}

// Resolve
// is the AddressSource of "host:port" (or a Unix name) on network.
// Host names are looked up on the goroutine that connects.
func Resolve(network string, address string) AddressSource {
	return AddressSourceFunc(func(ctx context.Context) ([]Addr, error) {
		return sys.ResolveAddresses(ctx, network, address)
	})
}

// Addrs
// is the AddressSource of a fixed list.
func Addrs(addrs ...Addr) AddressSource {
	return AddressSourceFunc(func(ctx context.Context) ([]Addr, error) {
		return addrs, nil
	})
}

// ConnectFunc
// connects to a single candidate.
type ConnectFunc[T any] func(ctx context.Context, addr Addr) (T, error)

type connectPhase int

const (
	connectPending connectPhase = iota
	connectConnected
	connectFailed
)

// connectState
// walks the candidates in order. It leaves pending on the first success or
// once the candidates run out, keeping the error of the last attempt.
type connectState[T any] struct {
	phase     connectPhase
	remaining []Addr
	attempts  int
	value     T
	lastErr   error
}

func newConnectState[T any](candidates []Addr) *connectState[T] {
	s := &connectState[T]{remaining: candidates}
	if len(candidates) == 0 {
		s.phase = connectFailed
	}
	return s
}

func (s *connectState[T]) pending() bool {
	return s.phase == connectPending
}

func (s *connectState[T]) next() Addr {
	addr := s.remaining[0]
	s.remaining = s.remaining[1:]
	s.attempts++
	return addr
}

func (s *connectState[T]) succeed(value T) {
	s.value = value
	s.lastErr = nil
	s.phase = connectConnected
}

func (s *connectState[T]) fail(err error) {
	s.lastErr = err
	if len(s.remaining) == 0 {
		s.phase = connectFailed
	}
}

func (s *connectState[T]) abort(err error) {
	s.lastErr = err
	s.phase = connectFailed
}

func (s *connectState[T]) result() (T, error) {
	if s.phase == connectConnected {
		return s.value, nil
	}
	var zero T
	if s.lastErr == nil {
		return zero, errors.From(
			ErrResolve,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpConnect),
		)
	}
	return zero, s.lastErr
}

// Connect
// resolves source and tries each candidate with connector, in order, until
// one succeeds. It returns the first success, the error of the last
// candidate when all fail, or ErrResolve when there was nothing to try.
func Connect[T any](ctx context.Context, source AddressSource, connector ConnectFunc[T]) (T, error) {
	return connect[T](ctx, source, connector, 0, nil)
}

func connect[T any](ctx context.Context, source AddressSource, connector ConnectFunc[T], attemptTimeout time.Duration, logger logrus.FieldLogger) (T, error) {
	candidates, resolveErr := source.Resolve(ctx)
	if resolveErr != nil {
		var zero T
		return zero, errors.From(
			ErrResolve,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpConnect),
			errors.WithWrap(resolveErr),
		)
	}
	state := newConnectState[T](candidates)
	for state.pending() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			state.abort(newOpErr(errMetaOpConnect, "connect", ctxErr))
			break
		}
		addr := state.next()
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, attemptTimeout)
		}
		value, err := connector(attemptCtx, addr)
		cancel()
		if err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"addr":    addr.String(),
					"attempt": state.attempts,
					"left":    len(state.remaining),
				}).WithError(err).Debug("connect candidate failed")
			}
			state.fail(err)
			continue
		}
		state.succeed(value)
	}
	return state.result()
}

// ConnectTCP
// connects a stream socket to the first reachable candidate of address.
func (p *Processor) ConnectTCP(ctx context.Context, address string) (*Handle, error) {
	return p.ConnectTCPFrom(ctx, Resolve("tcp", address))
}

// ConnectTCPFrom
// is ConnectTCP over an arbitrary candidate source.
func (p *Processor) ConnectTCPFrom(ctx context.Context, source AddressSource) (*Handle, error) {
	return connect[*Handle](ctx, source, p.ConnectTCPAddr, p.options.ConnectAttemptTimeout, p.logger)
}

// ConnectTCPAddr
// connects a new non-blocking stream socket to addr through the ring.
func (p *Processor) ConnectTCPAddr(ctx context.Context, addr Addr) (*Handle, error) {
	if !addr.IsIP() {
		return nil, newConversionErr(errMetaOpConnect, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("tcp needs an ip address, got "+addr.Kind().String()))))
	}
	network := tcpNetwork(addr)
	return p.connectStream(ctx, network, Addr{}, addr, syscall.IPPROTO_TCP)
}

// ConnectUnix
// connects a new stream socket to a path or abstract Unix address.
func (p *Processor) ConnectUnix(ctx context.Context, addr Addr) (*Handle, error) {
	if !addr.IsUnix() {
		return nil, newConversionErr(errMetaOpConnect, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("unix needs a unix address, got "+addr.Kind().String()))))
	}
	return p.connectStream(ctx, "unix", Addr{}, addr, 0)
}

// ConnectUnixLocal
// is ConnectUnix from a socket first bound to local, so the peer sees a
// named address instead of the unnamed one.
func (p *Processor) ConnectUnixLocal(ctx context.Context, local Addr, addr Addr) (*Handle, error) {
	if !addr.IsUnix() || !local.IsUnix() {
		return nil, newConversionErr(errMetaOpConnect, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("unix needs unix addresses, got "+local.Kind().String()+" and "+addr.Kind().String()))))
	}
	return p.connectStream(ctx, "unix", local, addr, 0)
}

func (p *Processor) connectStream(ctx context.Context, network string, local Addr, addr Addr, proto int) (*Handle, error) {
	raw, rawLen, encodeErr := sys.EncodeSockaddr(addr)
	if encodeErr != nil {
		return nil, newConversionErr(errMetaOpConnect, encodeErr)
	}
	sock, sockErr := sys.NewSocket(addr.Family(), syscall.SOCK_STREAM, proto)
	if sockErr != nil {
		return nil, newOpErr(errMetaOpConnect, "socket", sockErr)
	}
	if local.IsValid() {
		if bindErr := sys.Bind(sock, local); bindErr != nil {
			_ = sys.Close(sock)
			return nil, newOpErr(errMetaOpConnect, "bind", bindErr)
		}
	}
	_, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareConnect(sqe, sock, raw, rawLen)
	}, unsafe.Pointer(raw))
	if err = settleConnect(sock, err); err != nil {
		_ = sys.Close(sock)
		return nil, newOpErr(errMetaOpConnect, "connect", err)
	}
	bound, _ := sys.Getsockname(sock)
	return newHandle(sock, network, bound.WithNetwork(network), addr.WithNetwork(network)), nil
}

// settleConnect
// maps the in-progress answers a non-blocking socket can give to the
// connection outcome recorded in SO_ERROR.
func settleConnect(sock int, err error) error {
	switch {
	case err == nil, errors.Is(err, syscall.EISCONN):
		return nil
	case errors.Is(err, syscall.EINPROGRESS), errors.Is(err, syscall.EALREADY):
		soErr, getErr := unix.GetsockoptInt(sock, unix.SOL_SOCKET, unix.SO_ERROR)
		if getErr != nil {
			return getErr
		}
		if soErr != 0 {
			return syscall.Errno(soErr)
		}
		if _, peerErr := sys.Getpeername(sock); peerErr != nil {
			return err
		}
		return nil
	default:
		return err
	}
}

// ConnectUDP
// creates a datagram socket bound to the wildcard address of the
// candidate's family and sets its default peer. Both steps are plain
// syscalls; connect on a datagram socket never waits.
func (p *Processor) ConnectUDP(ctx context.Context, address string) (*Handle, error) {
	return p.ConnectUDPFrom(ctx, Resolve("udp", address))
}

func (p *Processor) ConnectUDPFrom(ctx context.Context, source AddressSource) (*Handle, error) {
	return connect[*Handle](ctx, source, p.ConnectUDPAddr, p.options.ConnectAttemptTimeout, p.logger)
}

func (p *Processor) ConnectUDPAddr(ctx context.Context, addr Addr) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, newOpErr(errMetaOpConnect, "connect", err)
	}
	if !addr.IsIP() {
		return nil, newConversionErr(errMetaOpConnect, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("udp needs an ip address, got "+addr.Kind().String()))))
	}
	network := udpNetwork(addr)
	unspecified, _ := addr.Unspecified()
	sock, sockErr := sys.NewSocket(addr.Family(), syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if sockErr != nil {
		return nil, newOpErr(errMetaOpConnect, "socket", sockErr)
	}
	if err := sys.Bind(sock, unspecified); err != nil {
		_ = sys.Close(sock)
		return nil, newOpErr(errMetaOpConnect, "bind", err)
	}
	if err := sys.Connect(sock, addr); err != nil {
		_ = sys.Close(sock)
		return nil, newOpErr(errMetaOpConnect, "connect", err)
	}
	local, _ := sys.Getsockname(sock)
	return newHandle(sock, network, local.WithNetwork(network), addr.WithNetwork(network)), nil
}

func tcpNetwork(addr Addr) string {
	if n := addr.Network(); strings.HasPrefix(n, "tcp") {
		return n
	}
	return "tcp"
}

func udpNetwork(addr Addr) string {
	if n := addr.Network(); strings.HasPrefix(n, "udp") {
		return n
	}
	return "udp"
}
