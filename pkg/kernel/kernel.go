package kernel

import "fmt"

type Version struct {
	Kernel int
	Major  int
	Minor  int
	Flavor string
}

func (v Version) String() string {
	if v.Flavor == "" {
		return fmt.Sprintf("%d.%d.%d", v.Kernel, v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d.%d%s", v.Kernel, v.Major, v.Minor, v.Flavor)
}

func Compare(a, b Version) int {
	if a.Kernel > b.Kernel {
		return 1
	} else if a.Kernel < b.Kernel {
		return -1
	}

	if a.Major > b.Major {
		return 1
	} else if a.Major < b.Major {
		return -1
	}

	if a.Minor > b.Minor {
		return 1
	} else if a.Minor < b.Minor {
		return -1
	}

	return 0
}

// Check
// reports whether the running kernel is at least k.major.minor.
func Check(k, major, minor int) (bool, error) {
	v, err := Get()
	if err != nil {
		return false, err
	}
	if Compare(*v, Version{Kernel: k, Major: major, Minor: minor}) < 0 {
		return false, nil
	}
	return true, nil
}

// Enable
// same as Check but treats an unreadable version as not enabled.
func Enable(k, major, minor int) bool {
	ok, err := Check(k, major, minor)
	return ok && err == nil
}
