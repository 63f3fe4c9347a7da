// Package runtime implements the execution engine: a Scheduler that walks a
// lowered module's dependency graph with at-most-once unit execution,
// dispatching each unit's commands (subprocess exec, filesystem ops, I/O,
// environment mutation) and reporting progress through a Notifier.
package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/module"
	"golang.org/x/sync/errgroup"
)

type unitState = uint32

const (
	stateIncomplete unitState = iota
	stateInProgress
	stateComplete
	stateFailed
)

// Scheduler runs units of a single lowered Module. It is safe for
// concurrent use: two goroutines discovering the same dependency will only
// ever have one of them actually execute it, via an atomic compare-and-swap
// per unit, and the other blocks until the state leaves IN_PROGRESS.
type Scheduler struct {
	mod      *module.Module
	notifier Notifier
	env      *Env

	states map[string]*atomic.Uint32
}

func New(mod *module.Module, notifier Notifier) *Scheduler {
	states := make(map[string]*atomic.Uint32, len(mod.Units))
	for name := range mod.Units {
		states[name] = &atomic.Uint32{}
	}
	return &Scheduler{
		mod:      mod,
		notifier: notifier,
		env:      NewEnv(),
		states:   states,
	}
}

func (s *Scheduler) Notifier() Notifier { return s.notifier }

// Run executes unitName and everything it transitively depends on, blocking
// until it finishes. It is idempotent: calling it again for the same name
// after it completed is a no-op, and after it failed returns
// AlreadyFailedError without re-running anything.
func (s *Scheduler) Run(unitName string) error {
	return s.claimAndRun(unitName)
}

// RunAsync runs unitName on its own goroutine, honoring ctx cancellation by
// detaching: if ctx is canceled before the run finishes, the returned
// channel receives ctx.Err() without waiting for in-flight dependencies
// (which continue running to completion in the background, matching the
// core scheduler's no-cancellation contract - see DESIGN.md). This wraps the
// same algorithm Run uses; there is no separate single-threaded scheduler.
func (s *Scheduler) RunAsync(ctx context.Context, unitName string) <-chan error {
	out := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.claimAndRun(unitName)
	}()
	go func() {
		select {
		case err := <-done:
			out <- err
		case <-ctx.Done():
			out <- ctx.Err()
		}
	}()
	return out
}

// claimAndRun performs the at-most-once protocol for name: claim it via CAS
// if still incomplete, wait for it if another goroutine already claimed it,
// or short-circuit if it already reached a terminal state.
func (s *Scheduler) claimAndRun(name string) RuntimeError {
	st := s.states[name]

	if st.CompareAndSwap(stateIncomplete, stateInProgress) {
		err := s.executeUnit(name)
		if err != nil {
			st.Store(stateFailed)
		} else {
			st.Store(stateComplete)
		}
		return err
	}

	switch s.waitForTerminal(st) {
	case stateComplete:
		return nil
	default: // stateFailed
		return &AlreadyFailedError{Unit: name}
	}
}

func (s *Scheduler) waitForTerminal(st *atomic.Uint32) unitState {
	backoff := time.Millisecond
	const maxBackoff = 50 * time.Millisecond
	for {
		switch unitState(st.Load()) {
		case stateComplete:
			return stateComplete
		case stateFailed:
			return stateFailed
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// executeUnit is the body of the run(name) algorithm: emit Start, resolve
// dependencies (claiming the ones not yet claimed, spawning the parallel
// work via errgroup, blocking on the ones another goroutine already
// claimed), dispatch commands in order, emit Complete. It never touches
// name's own state; the caller (claimAndRun, or a dependency's claim loop)
// is responsible for that.
func (s *Scheduler) executeUnit(name string) RuntimeError {
	unit := s.mod.Units[name]
	s.notifier.OnEvent(StartEvent{Unit: name})

	if aggregated := s.resolveDeps(name, unit); len(aggregated) > 0 {
		s.notifier.OnEvent(ErrorEvent{Errors: aggregated})
		return &DependencyError{Unit: name, UnitSpan: unit.Name.Span}
	}

	for _, cmd := range unit.Commands {
		if do, ok := cmd.(ast.Do); ok {
			s.notifier.OnEvent(CallEvent{Command: do})
			if err := s.runDo(do); err != nil {
				s.notifier.OnEvent(ErrorEvent{Errors: []RuntimeError{err}})
				return err
			}
			continue
		}
		if err := s.dispatch(cmd); err != nil {
			s.notifier.OnEvent(ErrorEvent{Errors: []RuntimeError{err}})
			return err
		}
	}

	s.notifier.OnEvent(CompleteEvent{Unit: name})
	return nil
}

// resolveDeps claims, spawns, and blocks on unit's dependencies, returning
// every failure found (empty if all succeeded).
func (s *Scheduler) resolveDeps(name string, unit *module.Unit) []RuntimeError {
	deps := module.SortedDeps(unit)
	if len(deps) == 0 {
		return nil
	}

	var aggregated []RuntimeError
	var newlyClaimed []string
	var inProgress []string

	for _, dep := range deps {
		st := s.states[dep]
		if st.CompareAndSwap(stateIncomplete, stateInProgress) {
			newlyClaimed = append(newlyClaimed, dep)
			continue
		}
		switch unitState(st.Load()) {
		case stateFailed:
			sp, _ := unit.DepSpan(dep)
			aggregated = append(aggregated, &FailedDependencyError{Parent: name, Child: dep, ChildSpan: sp})
		case stateInProgress:
			inProgress = append(inProgress, dep)
		}
	}

	if len(newlyClaimed) > 0 {
		// The parent runs the first newly claimed dependency itself; the
		// rest are spawned on an errgroup, matching the scoped spawn/join
		// shape of the parallel-threads model. Either way, this goroutine
		// caused the dependency to run, so a failure bubbles up as the
		// dependency's own error, not a synthesized FailedDependencyError -
		// that type is reserved for a CAS loss or a block-on wait, where this
		// unit only observed a FAILED state it didn't cause.
		first := newlyClaimed[0]
		rest := newlyClaimed[1:]

		var mu sync.Mutex
		var spawned []RuntimeError

		var g errgroup.Group
		for _, dep := range rest {
			dep := dep
			g.Go(func() error {
				s.notifier.OnEvent(DependencyEvent{Parent: name, Name: dep})
				if err := s.runClaimed(dep); err != nil {
					mu.Lock()
					spawned = append(spawned, err)
					mu.Unlock()
				}
				return nil
			})
		}

		s.notifier.OnEvent(DependencyEvent{Parent: name, Name: first})
		firstErr := s.runClaimed(first)
		g.Wait()

		if firstErr != nil {
			aggregated = append(aggregated, firstErr)
		}
		aggregated = append(aggregated, spawned...)
	}

	for _, dep := range inProgress {
		s.notifier.OnEvent(BlockOnEvent{Parent: name, Name: dep})
		if s.waitForTerminal(s.states[dep]) == stateFailed {
			sp, _ := unit.DepSpan(dep)
			aggregated = append(aggregated, &FailedDependencyError{Parent: name, Child: dep, ChildSpan: sp})
		}
	}

	return aggregated
}

// runClaimed executes a dependency this goroutine has already won the CAS
// claim for, storing its terminal state when done.
func (s *Scheduler) runClaimed(name string) RuntimeError {
	err := s.executeUnit(name)
	if err != nil {
		s.states[name].Store(stateFailed)
		return err
	}
	s.states[name].Store(stateComplete)
	return nil
}

// runDo executes a Do command's target units through the same claim
// protocol dependencies use, sequentially and in source order, so the
// at-most-once guarantee holds for Do-invoked units too.
func (s *Scheduler) runDo(do ast.Do) RuntimeError {
	for _, name := range do.Names {
		if err := s.claimAndRun(name.Value); err != nil {
			return err
		}
	}
	return nil
}
