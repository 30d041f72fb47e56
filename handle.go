//go:build linux

package proactor

import (
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/sys"
)

// Descriptor
// is anything exposing a raw file descriptor. A negative Fd means closed.
type Descriptor interface {
	Fd() int
}

// Handle
// owns one socket or file descriptor. Operations borrow the descriptor;
// Close releases it exactly once.
type Handle struct {
	fd        atomic.Int64
	network   string
	localAddr Addr
	remote    Addr
	closed    atomic.Bool
}

// Wrap
// takes ownership of fd. When network is empty it is derived from the
// socket itself, and descriptors that are not sockets get "file".
func Wrap(fd int, network string) (*Handle, error) {
	if fd < 0 {
		return nil, newOpErr(errMetaOpWrap, "wrap", syscall.EBADF)
	}
	h := &Handle{network: network}
	h.fd.Store(int64(fd))
	if err := h.describe(); err != nil {
		return nil, err
	}
	return h, nil
}

// WrapFile
// wraps a duplicate of the file's descriptor. The handle and the file are
// closed independently.
func WrapFile(file *os.File) (*Handle, error) {
	if file == nil {
		return nil, newOpErr(errMetaOpWrap, "wrap", syscall.EBADF)
	}
	raw, rawErr := file.SyscallConn()
	if rawErr != nil {
		return nil, newOpErr(errMetaOpWrap, "wrap", rawErr)
	}
	fd := -1
	var dupErr error
	if ctrlErr := raw.Control(func(s uintptr) {
		fd, dupErr = sys.DupCloseOnExec(int(s))
	}); ctrlErr != nil {
		return nil, newClosedErr(errMetaOpWrap)
	}
	if dupErr != nil {
		return nil, newOpErr(errMetaOpWrap, "dup", dupErr)
	}
	h := &Handle{network: "file"}
	h.fd.Store(int64(fd))
	return h, nil
}

func newHandle(fd int, network string, local Addr, remote Addr) *Handle {
	h := &Handle{
		network:   network,
		localAddr: local,
		remote:    remote,
	}
	h.fd.Store(int64(fd))
	return h
}

func (h *Handle) describe() error {
	fd := h.Fd()
	sotype, typeErr := sys.SocketType(fd)
	if typeErr != nil {
		if !errors.Is(typeErr, syscall.ENOTSOCK) {
			return newOpErr(errMetaOpWrap, "getsockopt", typeErr)
		}
		if ok, fileErr := sys.IsFile(fd); !ok {
			if fileErr == nil {
				fileErr = syscall.EBADF
			}
			return newOpErr(errMetaOpWrap, "fstat", fileErr)
		}
		if h.network == "" {
			h.network = "file"
		}
		return nil
	}
	local, localErr := sys.Getsockname(fd)
	if localErr != nil {
		return newOpErr(errMetaOpWrap, "getsockname", localErr)
	}
	if h.network == "" {
		h.network = sys.NetworkOf(local.Family(), sotype)
	}
	h.localAddr = local.WithNetwork(h.network)
	if remote, remoteErr := sys.Getpeername(fd); remoteErr == nil {
		h.remote = remote.WithNetwork(h.network)
	}
	return nil
}

// Fd
// returns the descriptor, or -1 once closed.
func (h *Handle) Fd() int {
	return int(h.fd.Load())
}

func (h *Handle) Network() string {
	return h.network
}

func (h *Handle) LocalAddr() Addr {
	return h.localAddr
}

// RemoteAddr
// is the connected peer. It is invalid for listeners and unconnected
// datagram sockets.
func (h *Handle) RemoteAddr() Addr {
	return h.remote
}

// SetNoDelay
// toggles TCP_NODELAY on tcp handles.
func (h *Handle) SetNoDelay(noDelay bool) error {
	fd := h.Fd()
	if fd < 0 {
		return newClosedErr(errMetaOpSetsockopt)
	}
	if err := sys.SetNoDelay(fd, noDelay); err != nil {
		return newOpErr(errMetaOpSetsockopt, "setsockopt", err)
	}
	return nil
}

// SetKeepAlive
// enables keepalive with the given period, or disables it when period
// is not positive.
func (h *Handle) SetKeepAlive(period time.Duration) error {
	fd := h.Fd()
	if fd < 0 {
		return newClosedErr(errMetaOpSetsockopt)
	}
	if err := sys.SetKeepAlive(fd, period > 0); err != nil {
		return newOpErr(errMetaOpSetsockopt, "setsockopt", err)
	}
	if period > 0 {
		if err := sys.SetKeepAlivePeriod(fd, period); err != nil {
			return newOpErr(errMetaOpSetsockopt, "setsockopt", err)
		}
	}
	return nil
}

// Close
// releases the descriptor. A request already submitted on it keeps its own
// reference inside the kernel and still completes. Closing twice returns
// ErrClosed.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return newClosedErr(errMetaOpClose)
	}
	fd := int(h.fd.Swap(-1))
	if fd < 0 {
		return nil
	}
	if err := sys.Close(fd); err != nil {
		return newOpErr(errMetaOpClose, "close", err)
	}
	return nil
}

func descriptorFd(op string, d Descriptor) (int, error) {
	if d == nil {
		return -1, newClosedErr(op)
	}
	fd := d.Fd()
	if fd < 0 {
		return -1, newClosedErr(op)
	}
	return fd, nil
}
