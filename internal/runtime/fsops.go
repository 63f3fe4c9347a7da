package runtime

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/span"
)

func dispatchFs(op ast.FsOp) RuntimeError {
	switch o := op.(type) {
	case ast.FsCreate:
		if err := fsCreate(o.Path.Value); err != nil {
			return &FsError{Kind: FsCreateFailed, Path: o.Path, Cause: err}
		}
	case ast.FsCreateDir:
		if err := os.MkdirAll(o.Path.Value, 0o755); err != nil {
			return &FsError{Kind: FsCreateDirFailed, Path: o.Path, Cause: err}
		}
	case ast.FsRemove:
		if err := os.RemoveAll(o.Path.Value); err != nil {
			return &FsError{Kind: FsRemoveFailed, Path: o.Path, Cause: err}
		}
	case ast.FsCopy:
		if err := fsCopy(o.Src.Value, o.Dst.Value); err != nil {
			return &FsError{Kind: FsCopyFailed, Path: o.Src, Dst: &o.Dst, Cause: err}
		}
	case ast.FsCopyTo:
		return fsFanOut(o.Head, o.Entries, fsCopy,
			func(error) FsErrorKind { return FsCopyFailed },
			func(err error) error { return err })
	case ast.FsMove:
		if err := fsMove(o.Src.Value, o.Dst.Value); err != nil {
			return &FsError{Kind: moveErrorKind(err), Path: o.Src, Dst: &o.Dst, Cause: moveErrorCause(err)}
		}
	case ast.FsMoveTo:
		return fsFanOut(o.Head, o.Entries, fsMove, moveErrorKind, moveErrorCause)
	case ast.FsPrintFile:
		content, err := os.ReadFile(o.Path.Value)
		if err != nil {
			return &FsError{Kind: FsFileAccessFailed, Path: o.Path, Cause: err}
		}
		os.Stdout.Write(content)
	case ast.FsEPrintFile:
		content, err := os.ReadFile(o.Path.Value)
		if err != nil {
			return &FsError{Kind: FsFileAccessFailed, Path: o.Path, Cause: err}
		}
		os.Stderr.Write(content)
	}
	return nil
}

func fsCreate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func fsCopy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

// moveStepError records which half of a move (the copy to dst, or the
// removal of src) actually failed, so the caller can report the same
// FsErrorKind a standalone Copy or Remove would have, per the move-has-no-
// error-kind-of-its-own rule.
type moveStepError struct {
	copyStep bool
	cause    error
}

func (e *moveStepError) Error() string { return e.cause.Error() }
func (e *moveStepError) Unwrap() error { return e.cause }

// fsMove always copies src to dst and then removes src, mirroring the
// original runtime (which never attempts an os.Rename fast path).
func fsMove(src, dst string) error {
	if err := fsCopy(src, dst); err != nil {
		return &moveStepError{copyStep: true, cause: err}
	}
	if err := os.RemoveAll(src); err != nil {
		return &moveStepError{copyStep: false, cause: err}
	}
	return nil
}

func moveErrorKind(err error) FsErrorKind {
	if mse, ok := err.(*moveStepError); ok && !mse.copyStep {
		return FsRemoveFailed
	}
	return FsCopyFailed
}

func moveErrorCause(err error) error {
	if mse, ok := err.(*moveStepError); ok {
		return mse.cause
	}
	return err
}

// fsFanOut implements the CopyTo/MoveTo destination rule: each entry's
// destination is head joined with the override if given, else the entry's
// own source name, joining with a separator only when head doesn't already
// end in one. kindFor/causeFor let the caller distinguish a copy failure
// from a remove failure when op is fsMove.
func fsFanOut(head span.Spanned[string], entries []ast.CopyEntry, op func(src, dst string) error, kindFor func(error) FsErrorKind, causeFor func(error) error) RuntimeError {
	for _, entry := range entries {
		name := entry.Source.Value
		if entry.Override != nil {
			name = entry.Override.Value
		}
		dst := extendPath(head.Value, name)
		if err := op(entry.Source.Value, dst); err != nil {
			dstSpan := entry.Source
			if entry.Override != nil {
				dstSpan = *entry.Override
			}
			return &FsError{Kind: kindFor(err), Path: entry.Source, Dst: &dstSpan, Cause: causeFor(err)}
		}
	}
	return nil
}

// extendPath joins head and name, appending a path separator to head only
// if it doesn't already end in one.
func extendPath(head, name string) string {
	if head == "" {
		return name
	}
	last := head[len(head)-1]
	if last == '/' || last == '\\' {
		return head + name
	}
	return head + string(filepath.Separator) + name
}
