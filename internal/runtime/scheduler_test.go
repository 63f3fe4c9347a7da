package runtime

import (
	"sync"
	"testing"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/lexer"
	"github.com/ScratchCat458/august-build/internal/module"
	"github.com/ScratchCat458/august-build/internal/parser"
)

func lowerOrFatal(t *testing.T, src string) *module.Module {
	t.Helper()
	p := parser.New(lexer.New(src))
	items := p.ParseProgram()
	if p.Errors().HasErrors() {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	mod, errs := module.Lower(items)
	if errs.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", errs)
	}
	return mod
}

// recordingNotifier captures every event in order, guarded by a mutex since
// sibling dependencies can report concurrently.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) startCount(unit string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if s, ok := e.(StartEvent); ok && s.Unit == unit {
			n++
		}
	}
	return n
}

func TestSchedulerRunsDependencyBeforeDependent(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit build {
			depends_on(lib)
			io::println("built")
		}
		unit lib {
			io::println("compiled")
		}
	`)

	notifier := &recordingNotifier{}
	sched := New(mod, notifier)
	if err := sched.Run("build"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var libStart, buildComplete = -1, -1
	for i, e := range notifier.events {
		switch ev := e.(type) {
		case StartEvent:
			if ev.Unit == "lib" && libStart == -1 {
				libStart = i
			}
		case CompleteEvent:
			if ev.Unit == "build" {
				buildComplete = i
			}
		}
	}
	if libStart == -1 || buildComplete == -1 || libStart > buildComplete {
		t.Fatalf("expected lib to start before build completed; events=%v", notifier.events)
	}
}

func TestSchedulerAtMostOnceOnDiamondDependency(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit top {
			depends_on(left, right)
		}
		unit left {
			depends_on(base)
		}
		unit right {
			depends_on(base)
		}
		unit base {
			io::println("base")
		}
	`)

	notifier := &recordingNotifier{}
	sched := New(mod, notifier)
	if err := sched.Run("top"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := notifier.startCount("base"); n != 1 {
		t.Fatalf("expected base to start exactly once, started %d times", n)
	}
}

func TestSchedulerIdempotentOnSecondRun(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit a {
			io::println("hi")
		}
	`)
	sched := New(mod, NopNotifier{})
	if err := sched.Run("a"); err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}
	if err := sched.Run("a"); err != nil {
		t.Fatalf("expected second run of a completed unit to be a no-op, got %v", err)
	}
}

func TestSchedulerAggregatesDependencyFailures(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit top {
			depends_on(a, b)
		}
		unit a {
			exec("august-build-test-nonexistent-binary-a")
		}
		unit b {
			exec("august-build-test-nonexistent-binary-b")
		}
	`)

	notifier := &recordingNotifier{}
	sched := New(mod, notifier)
	err := sched.Run("top")
	if err == nil {
		t.Fatalf("expected an error")
	}
	depErr, ok := err.(*DependencyError)
	if !ok {
		t.Fatalf("expected *DependencyError, got %T (%v)", err, err)
	}
	if depErr.Unit != "top" {
		t.Fatalf("expected DependencyError for top, got %q", depErr.Unit)
	}

	// a and b each emit their own ErrorEvent for their failing command; only
	// top's aggregated ErrorEvent, the last one emitted, is counted.
	var execFailures int
	for _, e := range notifier.events {
		if ev, ok := e.(ErrorEvent); ok {
			execFailures = 0
			for _, ferr := range ev.Errors {
				if _, ok := ferr.(*ExecutionFailureError); ok {
					execFailures++
				}
			}
		}
	}
	if execFailures != 2 {
		t.Fatalf("expected 2 aggregated ExecutionFailureErrors (top ran both a and b itself), got %d", execFailures)
	}
}

func TestSchedulerStopsUnitOnFirstCommandError(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit a {
			exec("august-build-test-nonexistent-binary")
			io::println("should not run")
		}
	`)
	sched := New(mod, NopNotifier{})
	err := sched.Run("a")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(*ExecutionFailureError); !ok {
		t.Fatalf("expected *ExecutionFailureError, got %T (%v)", err, err)
	}
}

func TestDoInvokesUnitsThroughClaimProtocol(t *testing.T) {
	mod := lowerOrFatal(t, `
		unit a {
			do(shared)
		}
		unit b {
			depends_on(shared)
		}
		unit top {
			depends_on(a, b)
		}
		unit shared {
			io::println("shared")
		}
	`)
	notifier := &recordingNotifier{}
	sched := New(mod, notifier)
	if err := sched.Run("top"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := notifier.startCount("shared"); n != 1 {
		t.Fatalf("expected shared to start exactly once even when reached via both do and depends_on, started %d times", n)
	}

	var sawDoCall bool
	for _, e := range notifier.events {
		if ev, ok := e.(CallEvent); ok {
			if _, ok := ev.Command.(ast.Do); ok {
				sawDoCall = true
			}
		}
	}
	if !sawDoCall {
		t.Fatalf("expected a CallEvent for the do(shared) command")
	}
}
