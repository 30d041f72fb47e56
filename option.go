package proactor

import (
	"time"

	"github.com/brickingsoft/rxp"
	"github.com/brickingsoft/rxp/pkg/maxprocs"
	"github.com/sirupsen/logrus"
)

type Options struct {
	RxpOptions            rxp.Options
	Logger                logrus.FieldLogger
	ConnectAttemptTimeout time.Duration
}

func (options *Options) AsRxpOptions() []rxp.Option {
	opts := make([]rxp.Option, 0, 1)
	if n := options.RxpOptions.MaxprocsOptions.MinGOMAXPROCS; n > 0 {
		opts = append(opts, rxp.WithMinGOMAXPROCS(n))
	}
	if fn := options.RxpOptions.MaxprocsOptions.Procs; fn != nil {
		opts = append(opts, rxp.WithProcs(fn))
	}
	if fn := options.RxpOptions.MaxprocsOptions.RoundQuotaFunc; fn != nil {
		opts = append(opts, rxp.WithRoundQuotaFunc(fn))
	}
	if n := options.RxpOptions.MaxGoroutines; n > 0 {
		opts = append(opts, rxp.WithMaxGoroutines(n))
	}
	if n := options.RxpOptions.MaxReadyGoroutinesIdleDuration; n > 0 {
		opts = append(opts, rxp.WithMaxReadyGoroutinesIdleDuration(n))
	}
	if n := options.RxpOptions.CloseTimeout; n > 0 {
		opts = append(opts, rxp.WithCloseTimeout(n))
	}
	return opts
}

type Option func(options *Options) (err error)

// WithLogger
// sets the logger of a Processor. Defaults to logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(options *Options) (err error) {
		if logger != nil {
			options.Logger = logger
		}
		return
	}
}

// WithConnectAttemptTimeout
// bounds each candidate of a connect. A timed out candidate counts as a
// failed one and the next candidate is tried. Zero means no bound.
func WithConnectAttemptTimeout(timeout time.Duration) Option {
	return func(options *Options) (err error) {
		if timeout > 0 {
			options.ConnectAttemptTimeout = timeout
		}
		return
	}
}

// WithMinGOMAXPROCS
// minimum GOMAXPROCS of the executors, useful in containers.
func WithMinGOMAXPROCS(n int) Option {
	return func(options *Options) error {
		return rxp.WithMinGOMAXPROCS(n)(&options.RxpOptions)
	}
}

func WithProcsFunc(fn maxprocs.ProcsFunc) Option {
	return func(options *Options) error {
		return rxp.WithProcs(fn)(&options.RxpOptions)
	}
}

func WithRoundQuotaFunc(fn maxprocs.RoundQuotaFunc) Option {
	return func(options *Options) error {
		return rxp.WithRoundQuotaFunc(fn)(&options.RxpOptions)
	}
}

// WithMaxGoroutines
// caps the goroutines the executors run async operations on.
func WithMaxGoroutines(n int) Option {
	return func(options *Options) error {
		return rxp.WithMaxGoroutines(n)(&options.RxpOptions)
	}
}

func WithMaxReadyGoroutinesIdleDuration(d time.Duration) Option {
	return func(options *Options) error {
		return rxp.WithMaxReadyGoroutinesIdleDuration(d)(&options.RxpOptions)
	}
}

// WithCloseTimeout
// bounds ShutdownGracefully.
func WithCloseTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		return rxp.WithCloseTimeout(timeout)(&options.RxpOptions)
	}
}
