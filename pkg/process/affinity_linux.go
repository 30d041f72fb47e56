//go:build linux

package process

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// SetCPUAffinity
// binds the calling OS thread to cpu index modulo the number of CPUs.
func SetCPUAffinity(index int) error {
	var newMask unix.CPUSet

	newMask.Zero()

	cpuIndex := index % runtime.NumCPU()
	newMask.Set(cpuIndex)

	// pid 0 is the calling thread
	if err := unix.SchedSetaffinity(0, &newMask); err != nil {
		return fmt.Errorf("SchedSetaffinity: %w, %v", err, newMask)
	}
	return nil
}

// LockThread
// locks the goroutine to its OS thread and binds that thread to cpu.
// A negative cpu only locks the thread. The returned func undoes the lock.
func LockThread(cpu int) (unlock func(), err error) {
	runtime.LockOSThread()
	unlock = runtime.UnlockOSThread
	if cpu < 0 {
		return
	}
	if err = SetCPUAffinity(cpu); err != nil {
		runtime.UnlockOSThread()
		unlock = func() {}
	}
	return
}
