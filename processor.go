//go:build linux

package proactor

import (
	"context"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/pawelgaczynski/giouring"
	"github.com/sirupsen/logrus"
)

// Processor
// translates socket and file operations into io_uring requests on one ring.
// Every method blocks the calling goroutine until the request completes or
// ctx is done. After ctx is done the request stays in flight and keeps the
// buffer it was given; the caller must not reuse that buffer.
type Processor struct {
	ring    *ring.Ring
	options Options
	logger  logrus.FieldLogger
}

// New
// builds a Processor on a started ring.
func New(r *ring.Ring, options ...Option) (*Processor, error) {
	if r == nil {
		return nil, errors.New("ring is nil", errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	opts := Options{
		Logger: logrus.StandardLogger(),
	}
	for _, option := range options {
		if err := option(&opts); err != nil {
			return nil, err
		}
	}
	return &Processor{
		ring:    r,
		options: opts,
		logger:  opts.Logger.WithField("pkg", errMetaPkgVal),
	}, nil
}

func (p *Processor) Ring() *ring.Ring {
	return p.ring
}

func (p *Processor) submit(ctx context.Context, prepare ring.PrepareFunc, pointers ...unsafe.Pointer) (int, error) {
	return p.submitOwned(ctx, prepare, nil, pointers...)
}

// submitOwned
// is submit for requests whose result owns a resource. abandon releases it
// when the result arrives after ctx ended.
func (p *Processor) submitOwned(ctx context.Context, prepare ring.PrepareFunc, abandon func(ring.Result), pointers ...unsafe.Pointer) (int, error) {
	future, err := p.ring.Enqueue(ctx, prepare, pointers...)
	if err != nil {
		return 0, err
	}
	if abandon != nil {
		future.OnAbandon(abandon)
	}
	return future.Await(ctx)
}

func bufferIovec(b []byte) *syscall.Iovec {
	iov := &syscall.Iovec{Base: unsafe.SliceData(b)}
	iov.SetLen(len(b))
	return iov
}

// Read
// reads into b at offset 0 of the descriptor with a single-segment readv.
func (p *Processor) Read(ctx context.Context, d Descriptor, b []byte) (int, error) {
	return p.ReadAt(ctx, d, b, 0)
}

// ReadAt
// is Read at an explicit file offset. Pass -1 to use and advance the
// current file position.
func (p *Processor) ReadAt(ctx context.Context, d Descriptor, b []byte, offset int64) (int, error) {
	fd, err := descriptorFd(errMetaOpRead, d)
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	iov := bufferIovec(b)
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareReadv(sqe, fd, iov, 1, uint64(offset))
	}, unsafe.Pointer(iov), unsafe.Pointer(iov.Base))
	if err != nil {
		return 0, newOpErr(errMetaOpRead, "readv", err)
	}
	return n, nil
}

// Write
// writes b at offset 0 of the descriptor with a single-segment writev.
func (p *Processor) Write(ctx context.Context, d Descriptor, b []byte) (int, error) {
	return p.WriteAt(ctx, d, b, 0)
}

// WriteAt
// is Write at an explicit file offset. Pass -1 to use and advance the
// current file position.
func (p *Processor) WriteAt(ctx context.Context, d Descriptor, b []byte, offset int64) (int, error) {
	fd, err := descriptorFd(errMetaOpWrite, d)
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	iov := bufferIovec(b)
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareWritev(sqe, fd, iov, 1, uint64(offset))
	}, unsafe.Pointer(iov), unsafe.Pointer(iov.Base))
	if err != nil {
		return 0, newOpErr(errMetaOpWrite, "writev", err)
	}
	return n, nil
}

// Send
// transmits b on a connected socket with no flags.
func (p *Processor) Send(ctx context.Context, d Descriptor, b []byte) (int, error) {
	fd, err := descriptorFd(errMetaOpSend, d)
	if err != nil {
		return 0, err
	}
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareSend(sqe, fd, b, 0)
	}, unsafe.Pointer(unsafe.SliceData(b)))
	if err != nil {
		return 0, newOpErr(errMetaOpSend, "send", err)
	}
	return n, nil
}

// Recv
// receives into b. Zero bytes on a stream socket means the peer shut down
// its side.
func (p *Processor) Recv(ctx context.Context, d Descriptor, b []byte) (int, error) {
	return p.recvWithFlags(ctx, errMetaOpRecv, d, b, 0)
}

// Peek
// is Recv with MSG_PEEK: the data stays queued for the next Recv.
func (p *Processor) Peek(ctx context.Context, d Descriptor, b []byte) (int, error) {
	return p.recvWithFlags(ctx, errMetaOpPeek, d, b, syscall.MSG_PEEK)
}

func (p *Processor) recvWithFlags(ctx context.Context, op string, d Descriptor, b []byte, flags int) (int, error) {
	fd, err := descriptorFd(op, d)
	if err != nil {
		return 0, err
	}
	n, err := p.submit(ctx, func(sqe *giouring.SubmissionQueueEntry) {
		ring.PrepareRecv(sqe, fd, b, flags)
	}, unsafe.Pointer(unsafe.SliceData(b)))
	if err != nil {
		return 0, newOpErr(op, "recv", err)
	}
	return n, nil
}
