//go:build linux

package proactor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newProcessor(t *testing.T, options ...proactor.Option) *proactor.Processor {
	t.Helper()
	r, err := ring.New(ring.WithEntries(64), ring.WithDrainTimeout(100*time.Millisecond))
	if err != nil {
		if ring.IsUnsupported(err) {
			t.Skip("io_uring is not available:", err)
		}
		t.Fatal(err)
	}
	r.Start()
	t.Cleanup(r.Stop)
	p, err := proactor.New(r, options...)
	require.NoError(t, err)
	return p
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func socketPair(t *testing.T, sotype int) (*proactor.Handle, *proactor.Handle) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, sotype|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	a, err := proactor.Wrap(fds[0], "")
	require.NoError(t, err)
	b, err := proactor.Wrap(fds[1], "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestProcessor_FileReadWrite(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)

	file, err := os.Create(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer file.Close()
	h, err := proactor.WrapFile(file)
	require.NoError(t, err)
	defer h.Close()
	require.NotEqual(t, int(file.Fd()), h.Fd())
	require.Equal(t, "file", h.Network())

	n, err := p.Write(ctx, h, []byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)

	b := make([]byte, 32)
	n, err = p.Read(ctx, h, b)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(b[:n]))

	n, err = p.ReadAt(ctx, h, b[:5], 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(b[:n]))

	n, err = p.Read(ctx, h, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProcessor_SendRecvPeek(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)
	a, b := socketPair(t, unix.SOCK_STREAM)
	require.Equal(t, "unix", a.Network())

	n, err := p.Send(ctx, a, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = p.Peek(ctx, b, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	clear(buf)
	n, err = p.Recv(ctx, b, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, a.Close())
	n, err = p.Recv(ctx, b, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProcessor_ClosedHandle(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)
	a, _ := socketPair(t, unix.SOCK_STREAM)
	require.NoError(t, a.Close())
	require.Equal(t, -1, a.Fd())
	require.True(t, proactor.IsClosed(a.Close()))

	_, err := p.Send(ctx, a, []byte("x"))
	require.True(t, proactor.IsClosed(err), err)
	_, err = p.Recv(ctx, a, make([]byte, 1))
	require.True(t, proactor.IsClosed(err), err)
}

func TestProcessor_RecvAbandoned(t *testing.T) {
	p := newProcessor(t)
	_, b := socketPair(t, unix.SOCK_STREAM)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Recv(ctx, b, make([]byte, 8))
	require.Error(t, err)
	require.True(t, proactor.IsUncompleted(err), err)
	require.Equal(t, 1, p.Ring().Inflight())
}

func TestProcessor_KernelError(t *testing.T) {
	p := newProcessor(t)
	ctx := testContext(t)
	// a listening socket is not connected
	ln, err := proactor.ListenTCP("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = p.Recv(ctx, ln, make([]byte, 1))
	require.Error(t, err)
	require.True(t, errors.Is(err, unix.ENOTCONN), err)
}
