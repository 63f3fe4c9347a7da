package runtime

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/ScratchCat458/august-build/internal/ast"
	"golang.org/x/sync/errgroup"
)

// dispatch executes a single lowered command against the scheduler's
// environment snapshot, returning the first error encountered.
func (s *Scheduler) dispatch(cmd ast.Command) RuntimeError {
	s.notifier.OnEvent(CallEvent{Command: cmd})

	switch c := cmd.(type) {
	case ast.Exec:
		return s.dispatchExec(c)
	case ast.Fs:
		return dispatchFs(c.Op)
	case ast.Io:
		return dispatchIo(c.Op)
	case ast.Env:
		return s.dispatchEnv(c.Op)
	case ast.Concurrent:
		return s.dispatchConcurrent(c)
	case ast.DependsOn, ast.Do, ast.Meta:
		// DependsOn and Meta never survive lowering into a unit's command
		// list; a unit-level Do is handled by the scheduler directly, not
		// here. A Do nested inside a concurrent block does reach this point
		// and is not run.
		return nil
	default:
		return nil
	}
}

func (s *Scheduler) dispatchExec(c ast.Exec) RuntimeError {
	if len(c.Args) == 0 {
		return &ExecutionFailureError{Argv: c.Args, Cause: fmt.Errorf("exec with no arguments")}
	}
	argv := make([]string, len(c.Args))
	for i, a := range c.Args {
		argv[i] = a.Value
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Env = s.env.Environ()

	if err := cmd.Run(); err != nil {
		return &ExecutionFailureError{Argv: c.Args, Cause: err}
	}
	return nil
}

func dispatchIo(op ast.IoOp) RuntimeError {
	switch o := op.(type) {
	case ast.IoPrintLn:
		fmt.Fprintln(os.Stdout, o.Text.Value)
	case ast.IoPrint:
		fmt.Fprint(os.Stdout, o.Text.Value)
	case ast.IoEPrintLn:
		fmt.Fprintln(os.Stderr, o.Text.Value)
	case ast.IoEPrint:
		fmt.Fprint(os.Stderr, o.Text.Value)
	}
	return nil
}

func (s *Scheduler) dispatchEnv(op ast.EnvOp) RuntimeError {
	switch o := op.(type) {
	case ast.EnvSetVar:
		s.env.SetVar(o.Key.Value, o.Value.Value)
	case ast.EnvRemoveVar:
		s.env.RemoveVar(o.Key.Value)
	case ast.EnvPathPush:
		if err := s.env.PathPush(o.Path.Value); err != nil {
			return &JoinPathsError{Cause: err}
		}
	case ast.EnvPathRemove:
		if err := s.env.PathRemove(o.Path.Value); err != nil {
			return &JoinPathsError{Cause: err}
		}
	}
	return nil
}

// dispatchConcurrent dispatches every nested command at once and surfaces
// one error if any of them failed; it is an optional, user-level extension
// with no ordering guarantee between the nested commands. Nested commands go
// through dispatch, so a do(...) inside the block is not run.
func (s *Scheduler) dispatchConcurrent(c ast.Concurrent) RuntimeError {
	var g errgroup.Group
	for _, inner := range c.Commands {
		inner := inner
		g.Go(func() error {
			if err := s.dispatch(inner); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if rerr, ok := err.(RuntimeError); ok {
			return rerr
		}
	}
	return nil
}
