package ring

import "strconv"

// Opcode
// is the io_uring_op value written into an SQE.
type Opcode uint8

const (
	OpNop     Opcode = 0
	OpReadv   Opcode = 1
	OpWritev  Opcode = 2
	OpSendmsg Opcode = 9
	OpRecvmsg Opcode = 10
	OpAccept  Opcode = 13
	OpConnect Opcode = 16
	OpSend    Opcode = 26
	OpRecv    Opcode = 27
)

func (op Opcode) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpReadv:
		return "readv"
	case OpWritev:
		return "writev"
	case OpSendmsg:
		return "sendmsg"
	case OpRecvmsg:
		return "recvmsg"
	case OpAccept:
		return "accept"
	case OpConnect:
		return "connect"
	case OpSend:
		return "send"
	case OpRecv:
		return "recv"
	default:
		return "op(" + strconv.Itoa(int(op)) + ")"
	}
}
