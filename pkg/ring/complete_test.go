//go:build linux

package ring

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestRing_CompleteSkipsInternalUserData(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := &Ring{arena: newArena(1), logger: logger}

	r.complete(0, 0)
	r.complete(timeoutUserData, -62)
	require.Empty(t, hook.AllEntries())

	r.complete(7, 0)
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
