//go:build linux

// Package proactor runs socket and file operations as io_uring requests.
//
// A Processor turns each operation into one submission on a ring.Ring and
// blocks the calling goroutine until the completion arrives. Buffers handed
// to an operation belong to the kernel until that completion, even when the
// caller stops waiting through its context.
package proactor

import (
	"sync"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/reference"
	"github.com/brickingsoft/proactor/pkg/ring"
)

var defaultEngine struct {
	mu       sync.Mutex
	presets  []ring.Option
	pointer  *reference.Pointer[*ring.Ring]
	instance *Processor
}

// Presets
// sets the ring options of the default engine. It must be called before
// the first Pin. Without presets the PROACTOR_IOURING_* environment
// variables are used.
func Presets(options ...ring.Option) {
	defaultEngine.mu.Lock()
	defaultEngine.presets = append(defaultEngine.presets[:0], options...)
	defaultEngine.mu.Unlock()
}

// Pin
// starts the default engine on first use and takes a reference to it.
// Each Pin must be paired with an Unpin; the ring stops with the last one.
func Pin() error {
	defaultEngine.mu.Lock()
	defer defaultEngine.mu.Unlock()
	if defaultEngine.pointer == nil {
		options := defaultEngine.presets
		if len(options) == 0 {
			options = ring.LoadEnvOptions()
		}
		r, err := ring.New(options...)
		if err != nil {
			return err
		}
		r.Start()
		processor, processorErr := New(r)
		if processorErr != nil {
			r.Stop()
			return processorErr
		}
		defaultEngine.pointer = reference.Make(r)
		defaultEngine.instance = processor
	}
	if _, err := defaultEngine.pointer.Acquire(); err != nil {
		return err
	}
	return nil
}

// Unpin
// drops one reference taken by Pin.
func Unpin() error {
	defaultEngine.mu.Lock()
	defer defaultEngine.mu.Unlock()
	if defaultEngine.pointer == nil {
		return errors.From(ErrNotPinned, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	closed, err := defaultEngine.pointer.Release()
	if closed {
		defaultEngine.pointer = nil
		defaultEngine.instance = nil
	}
	return err
}

// Default
// returns the Processor of the pinned default engine.
func Default() (*Processor, error) {
	defaultEngine.mu.Lock()
	defer defaultEngine.mu.Unlock()
	if defaultEngine.instance == nil {
		return nil, errors.From(ErrNotPinned, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	return defaultEngine.instance, nil
}
