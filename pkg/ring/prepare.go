//go:build linux

package ring

import (
	"syscall"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// PrepareFunc
// fills one SQE. The engine sets the user data afterwards, so a PrepareFunc
// must not rely on it.
type PrepareFunc func(sqe *giouring.SubmissionQueueEntry)

// reset
// clears a reused SQE. giouring's prep functions leave OpcodeFlags and the
// tail of the entry untouched.
func reset(sqe *giouring.SubmissionQueueEntry) {
	*sqe = giouring.SubmissionQueueEntry{}
}

func PrepareNop(sqe *giouring.SubmissionQueueEntry) {
	reset(sqe)
	sqe.PrepareNop()
}

// PrepareReadv
// reads into n iovecs starting at iov, at file offset.
func PrepareReadv(sqe *giouring.SubmissionQueueEntry, fd int, iov *syscall.Iovec, n int, offset uint64) {
	reset(sqe)
	sqe.PrepareReadv(fd, uintptr(unsafe.Pointer(iov)), uint32(n), offset)
}

func PrepareWritev(sqe *giouring.SubmissionQueueEntry, fd int, iov *syscall.Iovec, n int, offset uint64) {
	reset(sqe)
	sqe.PrepareWritev(fd, uintptr(unsafe.Pointer(iov)), uint32(n), offset)
}

func PrepareSend(sqe *giouring.SubmissionQueueEntry, fd int, b []byte, flags int) {
	reset(sqe)
	sqe.PrepareSend(fd, uintptr(unsafe.Pointer(unsafe.SliceData(b))), uint32(len(b)), flags)
}

func PrepareRecv(sqe *giouring.SubmissionQueueEntry, fd int, b []byte, flags int) {
	reset(sqe)
	sqe.PrepareRecv(fd, uintptr(unsafe.Pointer(unsafe.SliceData(b))), uint32(len(b)), flags)
}

func PrepareSendMsg(sqe *giouring.SubmissionQueueEntry, fd int, msg *syscall.Msghdr, flags int) {
	reset(sqe)
	sqe.PrepareSendMsg(fd, msg, uint32(flags))
}

func PrepareRecvMsg(sqe *giouring.SubmissionQueueEntry, fd int, msg *syscall.Msghdr, flags int) {
	reset(sqe)
	sqe.PrepareRecvMsg(fd, msg, uint32(flags))
}

// PrepareAccept
// accepts on fd. addrLen holds the size of addr on entry and the peer
// address length on completion.
func PrepareAccept(sqe *giouring.SubmissionQueueEntry, fd int, addr *syscall.RawSockaddrAny, addrLen *uint32, flags int) {
	reset(sqe)
	sqe.PrepareAccept(fd, uintptr(unsafe.Pointer(addr)), uint64(uintptr(unsafe.Pointer(addrLen))), uint32(flags))
}

// PrepareConnect
// connects fd to addr; the address length travels in the offset field.
func PrepareConnect(sqe *giouring.SubmissionQueueEntry, fd int, addr *syscall.RawSockaddrAny, addrLen uint32) {
	reset(sqe)
	sqe.PrepareConnect(fd, (*syscall.Sockaddr)(unsafe.Pointer(addr)), uint64(addrLen))
}
