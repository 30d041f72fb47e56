//go:build linux

package process_test

import (
	"testing"

	"github.com/brickingsoft/proactor/pkg/process"
)

func TestLockThread(t *testing.T) {
	unlock, err := process.LockThread(0)
	if err != nil {
		t.Skip("affinity not permitted:", err)
	}
	defer unlock()
	t.Log("locked")
}
