//go:build linux

package sys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBacklog(t *testing.T) {
	n, ok := parseBacklog("4096\n", 32)
	require.True(t, ok)
	require.Equal(t, 4096, n)

	n, ok = parseBacklog("100000\n", 16)
	require.True(t, ok)
	require.Equal(t, 1<<16-1, n)

	_, ok = parseBacklog("", 32)
	require.False(t, ok)
	_, ok = parseBacklog("0", 32)
	require.False(t, ok)
	_, ok = parseBacklog("abc", 32)
	require.False(t, ok)
}

func TestMaxListenerBacklog(t *testing.T) {
	require.Positive(t, MaxListenerBacklog())
}
