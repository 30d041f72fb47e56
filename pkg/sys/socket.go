//go:build linux

package sys

import (
	"errors"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NewSocket
// creates a non-blocking, close-on-exec socket.
func NewSocket(family int, sotype int, protocol int) (sock int, err error) {
	sock, err = unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, protocol)
	if err != nil {
		if errors.Is(err, unix.EPROTONOSUPPORT) || errors.Is(err, unix.EINVAL) {
			syscall.ForkLock.RLock()
			sock, err = unix.Socket(family, sotype, protocol)
			if err == nil {
				unix.CloseOnExec(sock)
			}
			syscall.ForkLock.RUnlock()
			if err != nil {
				err = os.NewSyscallError("socket", err)
				return
			}
			if err = unix.SetNonblock(sock, true); err != nil {
				_ = unix.Close(sock)
				err = os.NewSyscallError("setnonblock", err)
				return
			}
		} else {
			err = os.NewSyscallError("socket", err)
			return
		}
	}
	return
}

// Bind
// binds fd to addr through EncodeSockaddr.
func Bind(fd int, addr Addr) error {
	raw, rawLen, err := EncodeSockaddr(addr)
	if err != nil {
		return err
	}
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(raw)), uintptr(rawLen))
	if errno != 0 {
		return os.NewSyscallError("bind", errno)
	}
	return nil
}

// Connect
// issues a plain connect(2) on fd. On a datagram socket this only records the
// default peer and never blocks.
func Connect(fd int, addr Addr) error {
	raw, rawLen, err := EncodeSockaddr(addr)
	if err != nil {
		return err
	}
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(raw)), uintptr(rawLen))
	if errno != 0 {
		return os.NewSyscallError("connect", errno)
	}
	return nil
}

// SocketType
// returns SO_TYPE of fd, failing with ENOTSOCK for non-sockets.
func SocketType(fd int) (int, error) {
	sotype, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return 0, os.NewSyscallError("getsockopt", err)
	}
	return sotype, nil
}

func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}
