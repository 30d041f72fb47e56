//go:build linux

package sys

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/brickingsoft/proactor/pkg/kernel"
)

const somaxconnPath = "/proc/sys/net/core/somaxconn"

var (
	somaxconn   = syscall.SOMAXCONN
	backlogOnce sync.Once
)

// MaxListenerBacklog
// is the backlog passed to listen(2): net.core.somaxconn, clamped to what
// the kernel's accept queue counter can hold.
func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		content, err := os.ReadFile(somaxconnPath)
		if err != nil {
			return
		}
		if n, ok := parseBacklog(string(content), backlogWidth()); ok {
			somaxconn = n
		}
	})
	return somaxconn
}

func parseBacklog(content string, width uint) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil || n <= 0 {
		return 0, false
	}
	if limit := 1<<width - 1; n > limit {
		n = limit
	}
	return n, true
}

// backlogWidth
// is the bit size of sk_max_ack_backlog, widened to 32 in Linux 4.1.
func backlogWidth() uint {
	if kernel.Enable(4, 1, 0) {
		return 32
	}
	return 16
}
