package ring

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultEntries      = 256
	defaultWaitTimeout  = 50 * time.Millisecond
	defaultDrainTimeout = time.Second
)

type Options struct {
	// Entries is the submission queue depth. The kernel rounds it up to a
	// power of two.
	Entries uint32
	// WaitTimeout bounds one wait for completions so the completion loop can
	// observe Stop.
	WaitTimeout time.Duration
	// MaxInflight bounds the requests occupying the arena. Defaults to the
	// completion queue depth (2 * Entries).
	MaxInflight int64
	// DrainTimeout is how long Stop waits for in-flight requests before
	// tearing the ring down.
	DrainTimeout time.Duration
	// AffinityCPU binds the submit loop to this CPU and the completion loop
	// to the next one. Negative disables affinity.
	AffinityCPU int
	Logger      logrus.FieldLogger
}

type Option func(*Options)

func WithEntries(entries int) Option {
	return func(opts *Options) {
		if entries > 0 {
			opts.Entries = uint32(entries)
		}
	}
}

func WithWaitTimeout(d time.Duration) Option {
	return func(opts *Options) {
		if d > 0 {
			opts.WaitTimeout = d
		}
	}
}

func WithMaxInflight(n int64) Option {
	return func(opts *Options) {
		if n > 0 {
			opts.MaxInflight = n
		}
	}
}

func WithDrainTimeout(d time.Duration) Option {
	return func(opts *Options) {
		if d >= 0 {
			opts.DrainTimeout = d
		}
	}
}

func WithAffinityCPU(cpu int) Option {
	return func(opts *Options) {
		opts.AffinityCPU = cpu
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(opts *Options) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}

func defaultOptions() Options {
	return Options{
		Entries:      defaultEntries,
		WaitTimeout:  defaultWaitTimeout,
		DrainTimeout: defaultDrainTimeout,
		AffinityCPU:  -1,
		Logger:       logrus.StandardLogger(),
	}
}

const (
	envEntries      = "PROACTOR_IOURING_ENTRIES"
	envWaitTimeout  = "PROACTOR_IOURING_WAIT_TIMEOUT"
	envMaxInflight  = "PROACTOR_IOURING_MAX_INFLIGHT"
	envAffinityCPU  = "PROACTOR_IOURING_AFFINITY_CPU"
	envDrainTimeout = "PROACTOR_IOURING_DRAIN_TIMEOUT"
)

// LoadEnvOptions
// reads the PROACTOR_IOURING_* variables. Unset or malformed values are
// skipped.
func LoadEnvOptions() (options []Option) {
	if n, ok := loadEnvInt(envEntries); ok {
		options = append(options, WithEntries(int(n)))
	}
	if d, ok := loadEnvDuration(envWaitTimeout); ok {
		options = append(options, WithWaitTimeout(d))
	}
	if n, ok := loadEnvInt(envMaxInflight); ok {
		options = append(options, WithMaxInflight(n))
	}
	if n, ok := loadEnvInt(envAffinityCPU); ok {
		options = append(options, WithAffinityCPU(int(n)))
	}
	if d, ok := loadEnvDuration(envDrainTimeout); ok {
		options = append(options, WithDrainTimeout(d))
	}
	return
}

func loadEnvInt(key string) (int64, bool) {
	s, has := os.LookupEnv(key)
	if !has {
		return 0, false
	}
	n, parseErr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if parseErr != nil {
		return 0, false
	}
	return n, true
}

func loadEnvDuration(key string) (time.Duration, bool) {
	s, has := os.LookupEnv(key)
	if !has {
		return 0, false
	}
	d, parseErr := time.ParseDuration(strings.TrimSpace(s))
	if parseErr != nil {
		return 0, false
	}
	return d, true
}
