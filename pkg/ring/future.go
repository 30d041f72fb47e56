//go:build linux

package ring

import (
	"context"

	"github.com/brickingsoft/errors"
)

// Future
// resolves once, to the completion of one request.
type Future struct {
	ring *Ring
	slot *slot
}

func (f *Future) ID() uint64 {
	return f.slot.id
}

// OnAbandon
// sets fn to receive the result when it arrives after Await gave up, so
// resources created by the kernel, like an accepted descriptor, are not
// leaked. It must be called before Await.
func (f *Future) OnAbandon(fn func(Result)) {
	f.slot.abandon = fn
}

// Await
// blocks until the request completes or ctx is done. In the latter case it
// returns ErrUncompleted wrapping ctx.Err(); the request stays in flight and
// its memory stays pinned until the kernel completes it.
func (f *Future) Await(ctx context.Context) (n int, err error) {
	select {
	case r := <-f.slot.ch:
		n, err = r.N, r.Err
		return
	case <-ctx.Done():
		if f.slot.state.CompareAndSwap(slotWaiting, slotAbandoned) || f.slot.state.Load() == slotAbandoned {
			err = errors.From(
				ErrUncompleted,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithWrap(ctx.Err()),
			)
			return
		}
		// delivered concurrently
		r := <-f.slot.ch
		n, err = r.N, r.Err
		return
	}
}
