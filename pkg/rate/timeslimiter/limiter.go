package timeslimiter

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// New
// creates a bucket that admits at most upperbound holders at once.
// upperbound < 1 means unlimited.
func New(upperbound int64) *Bucket {
	if upperbound < 1 {
		upperbound = 0
	}
	return &Bucket{
		upperbound: upperbound,
	}
}

const (
	ns500    = 500 * time.Nanosecond
	maxTimes = 10
)

type Bucket struct {
	upperbound int64
	tokens     atomic.Int64
	waiting    atomic.Int64
}

// TryAcquire
// takes a token without waiting.
func (bucket *Bucket) TryAcquire() bool {
	if !bucket.limited() {
		return true
	}
	if n := bucket.tokens.Add(1); n <= bucket.upperbound {
		return true
	}
	bucket.tokens.Add(-1)
	return false
}

// Wait
// takes a token, spinning until one is free or ctx is done.
func (bucket *Bucket) Wait(ctx context.Context) (err error) {
	if bucket.TryAcquire() {
		return
	}
	bucket.waiting.Add(1)
	defer bucket.waiting.Add(-1)
	times := 0
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		default:
			if bucket.TryAcquire() {
				return
			}
			times++
			if times > maxTimes {
				times = 0
				runtime.Gosched()
			} else {
				time.Sleep(ns500)
			}
		}
	}
}

// Release
// returns a token taken by Wait or TryAcquire.
func (bucket *Bucket) Release() {
	if !bucket.limited() {
		return
	}
	bucket.tokens.Add(-1)
}

func (bucket *Bucket) Used() int64 {
	return bucket.tokens.Load()
}

func (bucket *Bucket) Waiting() int64 {
	return bucket.waiting.Load()
}

func (bucket *Bucket) Upperbound() int64 {
	return bucket.upperbound
}

func (bucket *Bucket) limited() bool {
	return bucket.upperbound > 0
}
