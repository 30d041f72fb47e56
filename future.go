//go:build linux

package proactor

import (
	"context"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/async"
)

// Accepted
// is the outcome of an async accept.
type Accepted struct {
	Handle *Handle
	Addr   Addr
}

// Received
// is the outcome of an async receive-from.
type Received struct {
	N    int
	Addr Addr
}

// task
// adapts a closure to rxp.Task.
type task func(ctx context.Context)

func (fn task) Handle(ctx context.Context) {
	fn(ctx)
}

// execute
// runs fn on the executors carried by ctx, or on Executors() when ctx has
// none, and settles the returned future with its outcome.
func execute[T any](ctx context.Context, fn func(ctx context.Context) (T, error), options ...async.Option) (future async.Future[T]) {
	exec, exist := rxp.TryFrom(ctx)
	if !exist {
		var execErr error
		if exec, execErr = loadExecutors(); execErr != nil {
			future = async.FailedImmediately[T](ctx, execErr)
			return
		}
		ctx = rxp.With(ctx, exec)
	}
	promise, promiseErr := async.Make[T](ctx, options...)
	if promiseErr != nil {
		future = async.FailedImmediately[T](ctx, promiseErr)
		return
	}
	future = promise.Future()
	if err := exec.Execute(ctx, task(func(_ context.Context) {
		value, err := fn(ctx)
		if err != nil {
			promise.Fail(err)
			return
		}
		promise.Succeed(value)
	})); err != nil {
		promise.Fail(errors.New(
			"execute failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(err),
		))
	}
	return
}

func (p *Processor) ReadAsync(ctx context.Context, d Descriptor, b []byte) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.Read(ctx, d, b)
	})
}

func (p *Processor) WriteAsync(ctx context.Context, d Descriptor, b []byte) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.Write(ctx, d, b)
	})
}

func (p *Processor) SendAsync(ctx context.Context, d Descriptor, b []byte) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.Send(ctx, d, b)
	})
}

func (p *Processor) RecvAsync(ctx context.Context, d Descriptor, b []byte) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.Recv(ctx, d, b)
	})
}

func (p *Processor) PeekAsync(ctx context.Context, d Descriptor, b []byte) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.Peek(ctx, d, b)
	})
}

func (p *Processor) ConnectTCPAsync(ctx context.Context, address string) async.Future[*Handle] {
	return execute[*Handle](ctx, func(ctx context.Context) (*Handle, error) {
		return p.ConnectTCP(ctx, address)
	})
}

func (p *Processor) ConnectUnixAsync(ctx context.Context, addr Addr) async.Future[*Handle] {
	return execute[*Handle](ctx, func(ctx context.Context) (*Handle, error) {
		return p.ConnectUnix(ctx, addr)
	})
}

func (p *Processor) AcceptTCPAsync(ctx context.Context, listener Descriptor) async.Future[Accepted] {
	return execute[Accepted](ctx, func(ctx context.Context) (Accepted, error) {
		h, addr, err := p.AcceptTCP(ctx, listener)
		return Accepted{Handle: h, Addr: addr}, err
	})
}

func (p *Processor) AcceptUnixAsync(ctx context.Context, listener Descriptor) async.Future[Accepted] {
	return execute[Accepted](ctx, func(ctx context.Context) (Accepted, error) {
		h, addr, err := p.AcceptUnix(ctx, listener)
		return Accepted{Handle: h, Addr: addr}, err
	})
}

func (p *Processor) SendToAsync(ctx context.Context, d Descriptor, b []byte, addr Addr) async.Future[int] {
	return execute[int](ctx, func(ctx context.Context) (int, error) {
		return p.SendTo(ctx, d, b, addr)
	})
}

func (p *Processor) RecvFromAsync(ctx context.Context, d Descriptor, b []byte) async.Future[Received] {
	return execute[Received](ctx, func(ctx context.Context) (Received, error) {
		n, addr, err := p.RecvFrom(ctx, d, b)
		return Received{N: n, Addr: addr}, err
	})
}
