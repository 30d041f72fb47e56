package proactor

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/brickingsoft/rxp"
)

var (
	executors     rxp.Executors = nil
	executorsErr  error
	executorsOnce sync.Once
)

// Startup
// replaces the executors the *Async operations run on.
// Call it at program start, before the first async operation.
func Startup(options ...Option) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case error:
				err = e
			case string:
				err = errors.New(e)
			default:
				err = errors.New(fmt.Sprintf("%+v", r))
			}
		}
	}()
	opts := Options{}
	for _, option := range options {
		if err = option(&opts); err != nil {
			return
		}
	}
	exec, execErr := rxp.New(opts.AsRxpOptions()...)
	if execErr != nil {
		err = execErr
		return
	}
	executors = exec
	return
}

// Shutdown
// starts closing the executors and returns without waiting for running
// tasks.
func Shutdown() error {
	exec, err := loadExecutors()
	if err != nil {
		return err
	}
	runtime.SetFinalizer(exec, nil)
	go func(exec rxp.Executors) {
		_ = exec.Close()
	}(exec)
	return nil
}

// ShutdownGracefully
// closes the executors and waits for running tasks, bounded by
// WithCloseTimeout when it was given to Startup.
func ShutdownGracefully() error {
	exec, err := loadExecutors()
	if err != nil {
		return err
	}
	runtime.SetFinalizer(exec, nil)
	return exec.Close()
}

// Executors
// returns the package executors, creating default ones on first use.
// It panics when the default executors cannot be created.
func Executors() rxp.Executors {
	exec, err := loadExecutors()
	if err != nil {
		panic(err)
	}
	return exec
}

func loadExecutors() (rxp.Executors, error) {
	executorsOnce.Do(func() {
		if executors == nil {
			exec, err := rxp.New()
			if err != nil {
				executorsErr = err
				return
			}
			executors = exec
			runtime.SetFinalizer(executors, rxp.Executors.Close)
		}
	})
	if executors == nil {
		return nil, executorsErr
	}
	return executors, nil
}
