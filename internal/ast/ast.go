// Package ast defines the spanned syntax tree produced by the parser: top
// level items (Expose, Unit, and the Err recovery sentinel) and the Command
// variants a unit body can contain.
package ast

import "github.com/ScratchCat458/august-build/internal/span"

type Pragma int

const (
	Build Pragma = iota
	Test
)

func (p Pragma) String() string {
	if p == Test {
		return "test"
	}
	return "build"
}

// Item is a top-level declaration: Expose, Unit, or the Err recovery
// sentinel left behind where the parser could not make sense of a
// declaration and skipped ahead.
type Item interface {
	isItem()
	Span() span.Span
}

type Expose struct {
	Pragma span.Spanned[Pragma]
	Unit   span.Spanned[string]
	Sp     span.Span
}

func (Expose) isItem()            {}
func (e Expose) Span() span.Span { return e.Sp }

type Unit struct {
	Name     span.Spanned[string]
	Commands []Command
	Sp       span.Span
}

func (Unit) isItem()            {}
func (u Unit) Span() span.Span { return u.Sp }

type Err struct {
	Sp span.Span
}

func (Err) isItem()            {}
func (e Err) Span() span.Span { return e.Sp }

// Command is a single statement inside a unit body.
type Command interface {
	isCommand()
	Span() span.Span
}

type DependsOn struct {
	Names []span.Spanned[string]
	Sp    span.Span
}

func (DependsOn) isCommand()        {}
func (d DependsOn) Span() span.Span { return d.Sp }

type MetaEntry struct {
	Key   span.Spanned[string]
	Value span.Spanned[string]
}

type Meta struct {
	Entries []MetaEntry
	Sp      span.Span
}

func (Meta) isCommand()        {}
func (m Meta) Span() span.Span { return m.Sp }

type Do struct {
	Names []span.Spanned[string]
	Sp    span.Span
}

func (Do) isCommand()        {}
func (d Do) Span() span.Span { return d.Sp }

type Exec struct {
	Args []span.Spanned[string]
	Sp   span.Span
}

func (Exec) isCommand()        {}
func (e Exec) Span() span.Span { return e.Sp }

type Concurrent struct {
	Commands []Command
	Sp       span.Span
}

func (Concurrent) isCommand()        {}
func (c Concurrent) Span() span.Span { return c.Sp }

type Fs struct {
	Op FsOp
	Sp span.Span
}

func (Fs) isCommand()        {}
func (f Fs) Span() span.Span { return f.Sp }

type Io struct {
	Op IoOp
	Sp span.Span
}

func (Io) isCommand()        {}
func (i Io) Span() span.Span { return i.Sp }

type Env struct {
	Op EnvOp
	Sp span.Span
}

func (Env) isCommand()        {}
func (e Env) Span() span.Span { return e.Sp }

// CopyEntry is one (source, optional destination override) pair inside a
// copy_to/move_to fan-out list.
type CopyEntry struct {
	Source   span.Spanned[string]
	Override *span.Spanned[string]
}

type FsOp interface{ isFsOp() }

type FsCreate struct{ Path span.Spanned[string] }
type FsCreateDir struct{ Path span.Spanned[string] }
type FsRemove struct{ Path span.Spanned[string] }
type FsCopy struct{ Src, Dst span.Spanned[string] }
type FsCopyTo struct {
	Head    span.Spanned[string]
	Entries []CopyEntry
}
type FsMove struct{ Src, Dst span.Spanned[string] }
type FsMoveTo struct {
	Head    span.Spanned[string]
	Entries []CopyEntry
}
type FsPrintFile struct{ Path span.Spanned[string] }
type FsEPrintFile struct{ Path span.Spanned[string] }

func (FsCreate) isFsOp()     {}
func (FsCreateDir) isFsOp()  {}
func (FsRemove) isFsOp()     {}
func (FsCopy) isFsOp()       {}
func (FsCopyTo) isFsOp()     {}
func (FsMove) isFsOp()       {}
func (FsMoveTo) isFsOp()     {}
func (FsPrintFile) isFsOp()  {}
func (FsEPrintFile) isFsOp() {}

type IoOp interface{ isIoOp() }

type IoPrintLn struct{ Text span.Spanned[string] }
type IoPrint struct{ Text span.Spanned[string] }
type IoEPrintLn struct{ Text span.Spanned[string] }
type IoEPrint struct{ Text span.Spanned[string] }

func (IoPrintLn) isIoOp()  {}
func (IoPrint) isIoOp()    {}
func (IoEPrintLn) isIoOp() {}
func (IoEPrint) isIoOp()   {}

type EnvOp interface{ isEnvOp() }

type EnvSetVar struct{ Key, Value span.Spanned[string] }
type EnvRemoveVar struct{ Key span.Spanned[string] }
type EnvPathPush struct{ Path span.Spanned[string] }
type EnvPathRemove struct{ Path span.Spanned[string] }

func (EnvSetVar) isEnvOp()     {}
func (EnvRemoveVar) isEnvOp()  {}
func (EnvPathPush) isEnvOp()   {}
func (EnvPathRemove) isEnvOp() {}
