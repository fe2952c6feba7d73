package qbdt

import (
	"errors"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/theapemachine/errnie"
	"golang.org/x/sync/errgroup"
)

// ParForFunc is the per-index function a parallel-for invokes. Every index
// in [0, end) is invoked exactly once before the call returns.
type ParForFunc func(index uint64)

/*
Dispatcher owns the worker budget behind parallel recursion. Tree
operations never spawn unbounded goroutines: a fork only happens while a
token is available, otherwise recursion continues on the calling
goroutine. One dispatcher is shared by default, sized to the physical core
count, but an engine may install its own.
*/
type Dispatcher struct {
	workers int
	tokens  chan struct{}
}

// NewDispatcher builds a dispatcher with the given worker budget. A budget
// of zero or less is replaced by the physical core count.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = physicalCores()
	}

	d := &Dispatcher{
		workers: workers,
		tokens:  make(chan struct{}, workers),
	}
	for i := 0; i < workers; i++ {
		d.tokens <- struct{}{}
	}

	errnie.Info("qbdt dispatcher - %d workers", workers)

	return d
}

// Workers returns the dispatcher's worker budget.
func (d *Dispatcher) Workers() int {
	return d.workers
}

/*
Fork runs left and right, on separate goroutines when a worker token is
free and inline otherwise, and returns once both have completed. Errors
from both sides are joined.
*/
func (d *Dispatcher) Fork(left, right func() error) error {
	select {
	case <-d.tokens:
		metrics.ParallelForks.Add(1)

		var leftErr error
		done := make(chan struct{})
		go func() {
			defer close(done)
			leftErr = left()
		}()

		rightErr := right()
		<-done
		d.tokens <- struct{}{}

		return errors.Join(leftErr, rightErr)
	default:
		if err := left(); err != nil {
			return err
		}
		return right()
	}
}

/*
ParFor invokes fn for every index in [0, end) and returns only after all
invocations complete. Indices are strided across at most Workers
goroutines; small ranges run sequentially on the caller.
*/
func (d *Dispatcher) ParFor(end uint64, fn ParForFunc) {
	if end == 0 {
		return
	}

	stride := uint64(d.workers)
	if stride > end {
		stride = end
	}
	if stride <= 1 {
		for i := uint64(0); i < end; i++ {
			fn(i)
		}
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(int(stride))
	for t := uint64(0); t < stride; t++ {
		t := t
		g.Go(func() error {
			for i := t; i < end; i += stride {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func physicalCores() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

var (
	dispMu      sync.Mutex
	defaultDisp *Dispatcher
	parForHook  func(end uint64, fn ParForFunc)
)

// dispatcher returns the installed dispatcher, building the default one on
// first use.
func dispatcher() *Dispatcher {
	dispMu.Lock()
	defer dispMu.Unlock()
	if defaultDisp == nil {
		defaultDisp = NewDispatcher(0)
	}
	return defaultDisp
}

// SetDispatcher installs d as the shared dispatcher. A nil d restores the
// default on next use.
func SetDispatcher(d *Dispatcher) {
	dispMu.Lock()
	defer dispMu.Unlock()
	defaultDisp = d
}

/*
SetParFor replaces the parallel-for used by tree-level walks. The hook must
invoke every index exactly once and return only after all invocations
complete; a plain sequential loop is a valid implementation. A nil hook
restores the dispatcher-backed default.
*/
func SetParFor(hook func(end uint64, fn ParForFunc)) {
	dispMu.Lock()
	defer dispMu.Unlock()
	parForHook = hook
}

// parFor dispatches a tree-level index walk through the installed hook.
func parFor(end uint64, fn ParForFunc) {
	dispMu.Lock()
	hook := parForHook
	dispMu.Unlock()

	if hook != nil {
		hook(end, fn)
		return
	}
	dispatcher().ParFor(end, fn)
}

// defaultParDepth derives the parallel recursion budget from the worker
// count: one forked level per doubling of workers.
func defaultParDepth() int {
	w := dispatcher().Workers()
	depth := 0
	for w > 1 {
		w >>= 1
		depth++
	}
	return depth
}
