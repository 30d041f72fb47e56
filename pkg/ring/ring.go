//go:build linux

package ring

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/proactor/pkg/kernel"
	"github.com/brickingsoft/proactor/pkg/process"
	"github.com/brickingsoft/proactor/pkg/rate/timeslimiter"
	"github.com/eapache/queue"
	"github.com/pawelgaczynski/giouring"
	"github.com/sirupsen/logrus"
)

type request struct {
	id      uint64
	prepare PrepareFunc
}

// Ring
// owns one io_uring instance. Enqueue is safe for concurrent use; the SQ is
// only touched by the submit loop and the CQ only by the completion loop.
type Ring struct {
	ring      *giouring.Ring
	options   Options
	logger    logrus.FieldLogger
	limiter   *timeslimiter.Bucket
	arena     *arena
	nextID    atomic.Uint64
	backlogMu sync.Mutex
	backlog   *queue.Queue
	wakeup    chan struct{}
	sqStop    chan struct{}
	cqStop    chan struct{}
	sqWG      sync.WaitGroup
	cqWG      sync.WaitGroup
	running   atomic.Bool
	stopOnce  sync.Once
}

// New
// creates a ring. The completion loop waits with a timeout passed as an
// extended argument, which needs Linux 5.11, so older kernels get
// ErrUnsupported, as does a kernel refusing io_uring_setup.
func New(options ...Option) (*Ring, error) {
	opts := defaultOptions()
	for _, option := range options {
		option(&opts)
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = int64(opts.Entries) * 2
	}
	if !kernel.Enable(5, 11, 0) {
		v, _ := kernel.Get()
		return nil, errors.From(
			ErrUnsupported,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.New("kernel 5.11 or newer is required, running "+versionString(v))),
		)
	}
	r, rErr := giouring.CreateRing(opts.Entries)
	if rErr != nil {
		return nil, errors.From(
			ErrUnsupported,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(rErr),
		)
	}
	return &Ring{
		ring:    r,
		options: opts,
		logger:  opts.Logger.WithField("pkg", errMetaPkgVal),
		limiter: timeslimiter.New(opts.MaxInflight),
		arena:   newArena(int(opts.Entries)),
		backlog: queue.New(),
		wakeup:  make(chan struct{}, 1),
		sqStop:  make(chan struct{}),
		cqStop:  make(chan struct{}),
	}, nil
}

func versionString(v *kernel.Version) string {
	if v == nil {
		return "unknown"
	}
	return v.String()
}

// Start
// launches the submit and completion loops.
func (ring *Ring) Start() {
	if !ring.running.CompareAndSwap(false, true) {
		return
	}
	ring.sqWG.Add(1)
	go ring.listenSQ()
	ring.cqWG.Add(1)
	go ring.listenCQ()
	ring.logger.WithFields(logrus.Fields{
		"entries":     ring.options.Entries,
		"maxInflight": ring.options.MaxInflight,
	}).Info("io_uring started")
}

// Enqueue
// registers prepare as a new request and schedules it for submission.
// pointers are pinned and kept reachable until the request completes, even
// if the returned Future is abandoned.
func (ring *Ring) Enqueue(ctx context.Context, prepare PrepareFunc, pointers ...unsafe.Pointer) (*Future, error) {
	if !ring.running.Load() {
		return nil, errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	if err := ring.limiter.Wait(ctx); err != nil {
		return nil, errors.From(ErrBusy, errors.WithMeta(errMetaPkgKey, errMetaPkgVal), errors.WithWrap(err))
	}
	s := &slot{
		id: ring.nextID.Add(1),
		ch: make(chan Result, 1),
	}
	s.pin(pointers)
	ring.arena.put(s)

	ring.backlogMu.Lock()
	if !ring.running.Load() {
		ring.backlogMu.Unlock()
		ring.arena.take(s.id)
		ring.release(s)
		return nil, errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))
	}
	ring.backlog.Add(request{id: s.id, prepare: prepare})
	ring.backlogMu.Unlock()

	select {
	case ring.wakeup <- struct{}{}:
	default:
	}
	return &Future{ring: ring, slot: s}, nil
}

// Inflight
// counts requests whose completion has not been observed yet.
func (ring *Ring) Inflight() int {
	return ring.arena.len()
}

func (ring *Ring) release(s *slot) {
	s.unpin()
	ring.limiter.Release()
}

func (ring *Ring) lockThread(cpu int) func() {
	if ring.options.AffinityCPU < 0 {
		return func() {}
	}
	unlock, err := process.LockThread(cpu)
	if err != nil {
		ring.logger.WithField("cpu", cpu).WithError(err).Warn("io_uring set cpu affinity failed")
	}
	return unlock
}

func (ring *Ring) listenSQ() {
	defer ring.sqWG.Done()
	unlock := ring.lockThread(ring.options.AffinityCPU)
	defer unlock()
	for {
		select {
		case <-ring.sqStop:
			return
		case <-ring.wakeup:
		}
		for {
			prepared := ring.prepareBacklog()
			if prepared == 0 {
				break
			}
			ring.submit(prepared)
		}
	}
}

// prepareBacklog
// moves queued requests into free SQEs.
func (ring *Ring) prepareBacklog() (prepared int) {
	ring.backlogMu.Lock()
	defer ring.backlogMu.Unlock()
	for ring.backlog.Length() > 0 {
		sqe := ring.ring.GetSQE()
		if sqe == nil {
			break
		}
		req := ring.backlog.Remove().(request)
		req.prepare(sqe)
		sqe.UserData = req.id
		prepared++
	}
	return
}

func (ring *Ring) submit(prepared int) {
	retries := 0
	for {
		_, err := ring.ring.Submit()
		if err == nil {
			return
		}
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EBUSY) {
			retries++
			if retries%100 == 1 {
				ring.logger.WithFields(logrus.Fields{
					"prepared": prepared,
					"retries":  retries,
					"error":    err,
				}).Warn("io_uring submit retry")
			}
			runtime.Gosched()
			continue
		}
		// SQEs stay in the SQ and go out with the next submit
		ring.logger.WithFields(logrus.Fields{
			"prepared": prepared,
			"error":    err,
		}).Error("io_uring submit failed")
		return
	}
}

func (ring *Ring) listenCQ() {
	defer ring.cqWG.Done()
	cpu := ring.options.AffinityCPU
	if cpu >= 0 {
		cpu++
	}
	unlock := ring.lockThread(cpu)
	defer unlock()
	waitTimeout := syscall.NsecToTimespec(ring.options.WaitTimeout.Nanoseconds())
	cq := make([]*giouring.CompletionQueueEvent, ring.options.Entries*2)
	for {
		select {
		case <-ring.cqStop:
			return
		default:
		}
		if _, waitErr := ring.ring.WaitCQEs(1, &waitTimeout, nil); waitErr != nil {
			// ETIME and EINTR just loop back to the stop check
			continue
		}
		completed := ring.ring.PeekBatchCQE(cq)
		for i := uint32(0); i < completed; i++ {
			cqe := cq[i]
			cq[i] = nil
			ring.complete(cqe.UserData, cqe.Res)
		}
		if completed > 0 {
			ring.ring.CQAdvance(completed)
		}
	}
}

// timeoutUserData
// marks the internal timeout SQE of kernels without extended wait arguments.
const timeoutUserData = ^uint64(0)

func (ring *Ring) complete(id uint64, res int32) {
	if id == 0 || id == timeoutUserData {
		return
	}
	s, ok := ring.arena.take(id)
	if !ok {
		ring.logger.WithField("userData", id).Warn("io_uring unknown userData in completion")
		return
	}
	var r Result
	if res < 0 {
		r.Err = syscall.Errno(-res)
	} else {
		r.N = int(res)
	}
	s.deliver(r)
	ring.release(s)
}

// Stop
// stops accepting requests, fails those never submitted, waits up to the
// drain timeout for in-flight ones and tears the ring down. Requests still
// in flight after that get ErrUncompleted wrapping ErrClosed and keep their
// memory pinned for the life of the process.
func (ring *Ring) Stop() {
	ring.stopOnce.Do(ring.stop)
}

func (ring *Ring) stop() {
	if !ring.running.Load() {
		ring.ring.QueueExit()
		return
	}
	ring.backlogMu.Lock()
	ring.running.Store(false)
	ring.backlogMu.Unlock()

	close(ring.sqStop)
	ring.sqWG.Wait()

	// the kernel never saw these
	unsubmitted := 0
	ring.backlogMu.Lock()
	for ring.backlog.Length() > 0 {
		req := ring.backlog.Remove().(request)
		if s, ok := ring.arena.take(req.id); ok {
			s.deliver(Result{Err: errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))})
			ring.release(s)
			unsubmitted++
		}
	}
	ring.backlogMu.Unlock()

	deadline := time.Now().Add(ring.options.DrainTimeout)
	for ring.arena.len() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	close(ring.cqStop)
	ring.cqWG.Wait()
	ring.ring.QueueExit()

	// the kernel may still write into these, so callers must not reuse
	// their buffers
	remains := ring.arena.drain()
	for _, s := range remains {
		s.deliver(Result{Err: errors.From(
			ErrUncompleted,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.From(ErrClosed, errors.WithMeta(errMetaPkgKey, errMetaPkgVal))),
		)})
	}
	orphan(remains)

	fields := logrus.Fields{
		"unsubmitted": unsubmitted,
		"orphaned":    len(remains),
	}
	if len(remains) > 0 {
		ring.logger.WithFields(fields).Warn("io_uring stopped with requests in flight")
		return
	}
	ring.logger.WithFields(fields).Info("io_uring stopped")
}

// Close
// is Stop for use as an io.Closer.
func (ring *Ring) Close() error {
	ring.Stop()
	return nil
}
