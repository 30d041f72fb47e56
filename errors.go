package proactor

import (
	"os"
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/ring"
)

var (
	ErrResolve     = errors.Define("couldn't resolve addresses")
	ErrConversion  = errors.Define("address conversion failed")
	ErrClosed      = errors.Define("use of closed descriptor")
	ErrNotPinned   = errors.Define("default engine is not pinned")
	ErrUnsupported = ring.ErrUnsupported
)

// IsResolve
// reports a connect that had no candidate address to try.
func IsResolve(err error) bool {
	return errors.Is(err, ErrResolve)
}

// IsConversion
// reports an address of the wrong family or one the target type cannot hold.
func IsConversion(err error) bool {
	return errors.Is(err, ErrConversion)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || ring.IsClosed(err)
}

// IsUncompleted
// reports an operation abandoned through its context. The kernel request is
// still in flight and owns the buffer until it completes.
func IsUncompleted(err error) bool {
	return ring.IsUncompleted(err)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "proactor"
)

const (
	errMetaOpKey        = "op"
	errMetaOpRead       = "read"
	errMetaOpWrite      = "write"
	errMetaOpSend       = "send"
	errMetaOpRecv       = "receive"
	errMetaOpPeek       = "peek"
	errMetaOpConnect    = "connect"
	errMetaOpAccept     = "accept"
	errMetaOpSendTo     = "send_to"
	errMetaOpRecvFrom   = "receive_from"
	errMetaOpPeekFrom   = "peek_from"
	errMetaOpListen     = "listen"
	errMetaOpWrap       = "wrap"
	errMetaOpClose      = "close"
	errMetaOpSetsockopt = "setsockopt"
)

// newOpErr
// wraps a failure of op. Errnos, bare or inside an *os.SyscallError, are
// chained under the syscall name so errors.Is still matches the errno.
func newOpErr(op string, syscallName string, err error) error {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		syscallName, err = sysErr.Syscall, sysErr.Err
	}
	if errno, ok := err.(syscall.Errno); ok {
		err = errors.New(syscallName, errors.WithWrap(errno))
	}
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(err),
	)
}

func newConversionErr(op string, err error) error {
	return errors.From(
		ErrConversion,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(err),
	)
}

func newClosedErr(op string) error {
	return errors.From(
		ErrClosed,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
	)
}
