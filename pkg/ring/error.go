package ring

import "github.com/brickingsoft/errors"

var (
	ErrUncompleted = errors.Define("uncompleted")
	ErrClosed      = errors.Define("ring closed")
	ErrBusy        = errors.Define("ring busy")
	ErrUnsupported = errors.Define("io_uring unsupported")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "ring"
	errMetaOpKey  = "op"
)

// IsUncompleted
// reports an Await that returned before the kernel completed the request.
// The request is still in flight.
func IsUncompleted(err error) bool {
	return errors.Is(err, ErrUncompleted)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
