//go:build linux

package proactor

import (
	"context"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/brickingsoft/proactor/pkg/sys"
	"github.com/pawelgaczynski/giouring"
)

// peerStorage
// receives the peer address the kernel writes on accept.
type peerStorage struct {
	raw    syscall.RawSockaddrAny
	rawLen uint32
}

// AcceptTCP
// accepts one connection on a tcp listener and returns it with the peer's
// IP address. The new descriptor is close-on-exec.
func (p *Processor) AcceptTCP(ctx context.Context, listener Descriptor) (*Handle, Addr, error) {
	fd, peer, err := p.accept(ctx, listener)
	if err != nil {
		return nil, Addr{}, err
	}
	addr, decodeErr := sys.DecodeSockaddr(&peer.raw, peer.rawLen)
	if decodeErr == nil && !addr.IsIP() {
		decodeErr = errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("tcp peer is "+addr.Kind().String())))
	}
	if decodeErr != nil {
		_ = sys.Close(fd)
		return nil, Addr{}, newConversionErr(errMetaOpAccept, decodeErr)
	}
	network := "tcp"
	if h, ok := listener.(*Handle); ok && h.Network() != "" {
		network = h.Network()
	}
	addr = addr.WithNetwork(network)
	local, _ := sys.Getsockname(fd)
	return newHandle(fd, network, local.WithNetwork(network), addr), addr, nil
}

// AcceptUnix
// accepts one connection on a unix listener. Peers that never bound get
// the unnamed address.
func (p *Processor) AcceptUnix(ctx context.Context, listener Descriptor) (*Handle, Addr, error) {
	fd, peer, err := p.accept(ctx, listener)
	if err != nil {
		return nil, Addr{}, err
	}
	addr, decodeErr := sys.UnixAddrFromRaw(&peer.raw, peer.rawLen)
	if decodeErr != nil {
		_ = sys.Close(fd)
		return nil, Addr{}, newConversionErr(errMetaOpAccept, decodeErr)
	}
	network := "unix"
	if h, ok := listener.(*Handle); ok && h.Network() != "" {
		network = h.Network()
	}
	addr = addr.WithNetwork(network)
	local, _ := sys.Getsockname(fd)
	return newHandle(fd, network, local.WithNetwork(network), addr), addr, nil
}

func (p *Processor) accept(ctx context.Context, listener Descriptor) (int, *peerStorage, error) {
	fd, err := descriptorFd(errMetaOpAccept, listener)
	if err != nil {
		return -1, nil, err
	}
	peer := &peerStorage{rawLen: syscall.SizeofSockaddrAny}
	n, err := p.submitOwned(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareAccept(sqe, fd, &peer.raw, &peer.rawLen, syscall.SOCK_CLOEXEC)
	}, p.closeAbandoned, unsafe.Pointer(peer))
	if err != nil {
		return -1, nil, newOpErr(errMetaOpAccept, "accept4", err)
	}
	return n, peer, nil
}

// closeAbandoned
// closes a connection accepted after its caller stopped waiting.
func (p *Processor) closeAbandoned(r ring.Result) {
	if r.Err != nil || r.N < 0 {
		return
	}
	if err := sys.Close(r.N); err != nil {
		p.logger.WithField("fd", r.N).WithError(err).Warn("close abandoned connection failed")
		return
	}
	p.logger.WithField("fd", r.N).Debug("closed abandoned connection")
}
