//go:build linux

package kernel

import (
	"bytes"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	version     *Version
	versionErr  error
	versionOnce sync.Once
)

const (
	firstNumberOfParts  = 2
	secondNumberOfParts = 1
)

// Parse
// parses a uname release string such as "6.1.0-13-amd64".
func Parse(release string) (v *Version, err error) {
	var (
		k, major, minor int
		partial, flavor string
	)
	parsed, _ := fmt.Sscanf(release, "%d.%d%s", &k, &major, &partial)
	if parsed < firstNumberOfParts {
		err = fmt.Errorf("cannot parse kernel version: %s", release)
		return
	}
	parsed, _ = fmt.Sscanf(partial, ".%d%s", &minor, &flavor)
	if parsed < secondNumberOfParts {
		flavor = partial
	}
	v = &Version{
		Kernel: k,
		Major:  major,
		Minor:  minor,
		Flavor: flavor,
	}
	return
}

func Get() (*Version, error) {
	versionOnce.Do(func() {
		uts := &unix.Utsname{}
		if err := unix.Uname(uts); err != nil {
			versionErr = err
			return
		}
		n := bytes.IndexByte(uts.Release[:], 0)
		if n < 0 {
			n = len(uts.Release)
		}
		version, versionErr = Parse(string(uts.Release[:n]))
	})
	return version, versionErr
}
