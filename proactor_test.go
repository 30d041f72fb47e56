//go:build linux

package proactor_test

import (
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor"
	"github.com/brickingsoft/proactor/pkg/ring"
	"github.com/stretchr/testify/require"
)

func TestPin(t *testing.T) {
	_, err := proactor.Default()
	require.True(t, errors.Is(err, proactor.ErrNotPinned), err)

	proactor.Presets(ring.WithEntries(16))
	if err = proactor.Pin(); err != nil {
		if ring.IsUnsupported(err) {
			t.Skip("io_uring is not available:", err)
		}
		t.Fatal(err)
	}
	require.NoError(t, proactor.Pin())

	p, err := proactor.Default()
	require.NoError(t, err)
	ctx := testContext(t)
	future, err := p.Ring().Enqueue(ctx, ring.PrepareNop)
	require.NoError(t, err)
	_, err = future.Await(ctx)
	require.NoError(t, err)

	require.NoError(t, proactor.Unpin())
	_, err = proactor.Default()
	require.NoError(t, err)
	require.NoError(t, proactor.Unpin())

	_, err = proactor.Default()
	require.True(t, errors.Is(err, proactor.ErrNotPinned), err)
	err = proactor.Unpin()
	require.True(t, errors.Is(err, proactor.ErrNotPinned), err)
}
