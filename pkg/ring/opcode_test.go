//go:build linux

package ring_test

import (
	"syscall"
	"testing"
	"unsafe"

	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/pawelgaczynski/giouring"
	"github.com/stretchr/testify/require"
)

func TestOpcodeValues(t *testing.T) {
	expect := map[ring.Opcode]uint8{
		ring.OpNop:     0,
		ring.OpReadv:   1,
		ring.OpWritev:  2,
		ring.OpSendmsg: 9,
		ring.OpRecvmsg: 10,
		ring.OpAccept:  13,
		ring.OpConnect: 16,
		ring.OpSend:    26,
		ring.OpRecv:    27,
	}
	for op, v := range expect {
		require.Equal(t, v, uint8(op), op.String())
	}
	require.Equal(t, giouring.OpRecv, uint8(ring.OpRecv))
	require.Equal(t, giouring.OpConnect, uint8(ring.OpConnect))
}

func TestPrepareLayouts(t *testing.T) {
	sqe := &giouring.SubmissionQueueEntry{UserData: 42, Flags: 1}

	b := make([]byte, 16)
	ring.PrepareRecv(sqe, 7, b, syscall.MSG_PEEK)
	require.Equal(t, uint8(ring.OpRecv), sqe.OpCode)
	require.EqualValues(t, 7, sqe.Fd)
	require.Equal(t, uint64(uintptr(unsafe.Pointer(&b[0]))), sqe.Addr)
	require.EqualValues(t, 16, sqe.Len)
	require.EqualValues(t, syscall.MSG_PEEK, sqe.OpcodeFlags)
	require.Zero(t, sqe.Flags)
	require.Zero(t, sqe.UserData)

	iov := &syscall.Iovec{Base: &b[0], Len: uint64(len(b))}
	ring.PrepareWritev(sqe, 3, iov, 1, 0)
	require.Equal(t, uint8(ring.OpWritev), sqe.OpCode)
	require.EqualValues(t, 1, sqe.Len)
	require.Zero(t, sqe.Off)
	require.Zero(t, sqe.OpcodeFlags)

	var addr syscall.RawSockaddrAny
	addrLen := uint32(syscall.SizeofSockaddrAny)
	ring.PrepareAccept(sqe, 5, &addr, &addrLen, syscall.SOCK_CLOEXEC)
	require.Equal(t, uint8(ring.OpAccept), sqe.OpCode)
	require.Equal(t, uint64(uintptr(unsafe.Pointer(&addrLen))), sqe.Off)
	require.EqualValues(t, syscall.SOCK_CLOEXEC, sqe.OpcodeFlags)

	ring.PrepareConnect(sqe, 5, &addr, syscall.SizeofSockaddrInet4)
	require.Equal(t, uint8(ring.OpConnect), sqe.OpCode)
	require.EqualValues(t, syscall.SizeofSockaddrInet4, sqe.Off)

	var msg syscall.Msghdr
	ring.PrepareSendMsg(sqe, 5, &msg, 0)
	require.Equal(t, uint8(ring.OpSendmsg), sqe.OpCode)
	require.EqualValues(t, 1, sqe.Len)
	require.Equal(t, uint64(uintptr(unsafe.Pointer(&msg))), sqe.Addr)

	ring.PrepareRecvMsg(sqe, 5, &msg, syscall.MSG_PEEK)
	require.Equal(t, uint8(ring.OpRecvmsg), sqe.OpCode)
	require.EqualValues(t, syscall.MSG_PEEK, sqe.OpcodeFlags)

	ring.PrepareNop(sqe)
	require.Equal(t, uint8(ring.OpNop), sqe.OpCode)
	require.EqualValues(t, -1, sqe.Fd)
	require.Zero(t, sqe.OpcodeFlags)
}
