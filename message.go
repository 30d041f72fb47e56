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

// envelope
// holds the msghdr of a sendmsg or recvmsg together with its iovec and
// address storage, so a single pin covers everything the header points at
// except the payload.
type envelope struct {
	iov  syscall.Iovec
	msg  syscall.Msghdr
	name syscall.RawSockaddrAny
}

func newEnvelope(b []byte) *envelope {
	e := &envelope{}
	e.iov.Base = unsafe.SliceData(b)
	e.iov.SetLen(len(b))
	e.msg.Iov = &e.iov
	e.msg.Iovlen = 1
	e.msg.Name = (*byte)(unsafe.Pointer(&e.name))
	e.msg.Namelen = syscall.SizeofSockaddrAny
	return e
}

func (e *envelope) setName(raw *syscall.RawSockaddrAny, rawLen uint32) {
	e.name = *raw
	e.msg.Namelen = rawLen
}

// SendTo
// sends one datagram to an IP address.
func (p *Processor) SendTo(ctx context.Context, d Descriptor, b []byte, addr Addr) (int, error) {
	if !addr.IsIP() {
		return 0, newConversionErr(errMetaOpSendTo, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("send_to needs an ip address, got "+addr.Kind().String()))))
	}
	return p.sendTo(ctx, d, b, addr)
}

// SendToUnix
// sends one datagram to a Unix address.
func (p *Processor) SendToUnix(ctx context.Context, d Descriptor, b []byte, addr Addr) (int, error) {
	if !addr.IsUnix() {
		return 0, newConversionErr(errMetaOpSendTo, errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("send_to_unix needs a unix address, got "+addr.Kind().String()))))
	}
	return p.sendTo(ctx, d, b, addr)
}

func (p *Processor) sendTo(ctx context.Context, d Descriptor, b []byte, addr Addr) (int, error) {
	fd, err := descriptorFd(errMetaOpSendTo, d)
	if err != nil {
		return 0, err
	}
	raw, rawLen, encodeErr := sys.EncodeSockaddr(addr)
	if encodeErr != nil {
		return 0, newConversionErr(errMetaOpSendTo, encodeErr)
	}
	e := newEnvelope(b)
	e.setName(raw, rawLen)
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareSendMsg(sqe, fd, &e.msg, 0)
	}, unsafe.Pointer(e), unsafe.Pointer(e.iov.Base))
	if err != nil {
		return 0, newOpErr(errMetaOpSendTo, "sendmsg", err)
	}
	return n, nil
}

// RecvFrom
// receives one datagram and the IP address it came from.
func (p *Processor) RecvFrom(ctx context.Context, d Descriptor, b []byte) (int, Addr, error) {
	return p.recvFrom(ctx, errMetaOpRecvFrom, d, b, 0, false)
}

// PeekFrom
// is RecvFrom that leaves the datagram queued.
func (p *Processor) PeekFrom(ctx context.Context, d Descriptor, b []byte) (int, Addr, error) {
	return p.recvFrom(ctx, errMetaOpPeekFrom, d, b, syscall.MSG_PEEK, false)
}

// RecvFromUnix
// receives one datagram from a unixgram socket. Senders that never bound
// are reported as the unnamed address.
func (p *Processor) RecvFromUnix(ctx context.Context, d Descriptor, b []byte) (int, Addr, error) {
	return p.recvFrom(ctx, errMetaOpRecvFrom, d, b, 0, true)
}

func (p *Processor) PeekFromUnix(ctx context.Context, d Descriptor, b []byte) (int, Addr, error) {
	return p.recvFrom(ctx, errMetaOpPeekFrom, d, b, syscall.MSG_PEEK, true)
}

func (p *Processor) recvFrom(ctx context.Context, op string, d Descriptor, b []byte, flags int, unixSource bool) (int, Addr, error) {
	fd, err := descriptorFd(op, d)
	if err != nil {
		return 0, Addr{}, err
	}
	e := newEnvelope(b)
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareRecvMsg(sqe, fd, &e.msg, flags)
	}, unsafe.Pointer(e), unsafe.Pointer(e.iov.Base))
	if err != nil {
		return 0, Addr{}, newOpErr(op, "recvmsg", err)
	}
	var addr Addr
	var decodeErr error
	switch {
	case e.msg.Namelen == 0 && connectedStream(fd):
		// stream sockets leave msg_name empty
		addr, decodeErr = sys.Getpeername(fd)
	case unixSource:
		addr, decodeErr = sys.UnixAddrFromRaw(&e.name, e.msg.Namelen)
	default:
		addr, decodeErr = sys.DecodeSockaddr(&e.name, e.msg.Namelen)
	}
	if decodeErr == nil && !unixSource && !addr.IsIP() {
		decodeErr = errors.From(sys.ErrFamilyMismatch, errors.WithWrap(errors.New("datagram source is "+addr.Kind().String())))
	}
	if decodeErr != nil {
		return n, Addr{}, newConversionErr(op, decodeErr)
	}
	if h, ok := d.(*Handle); ok && h.Network() != "" {
		addr = addr.WithNetwork(h.Network())
	}
	return n, addr, nil
}

func connectedStream(fd int) bool {
	sotype, err := sys.SocketType(fd)
	return err == nil && sotype == syscall.SOCK_STREAM
}
