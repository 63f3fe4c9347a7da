// Package module implements lowering: turning the parsed AST into the
// resolved, name-checked Module/Unit data model the runtime executes
// against.
package module

import (
	"fmt"
	"sort"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/diag"
	"github.com/ScratchCat458/august-build/internal/span"
)

// Unit is a lowered, name-checked unit body: dependencies and metadata are
// deduplicated sets keyed by plain strings (not span.Spanned), so map
// lookups compare by value alone; the span of a key's first occurrence is
// kept alongside for diagnostics.
type Unit struct {
	Name span.Spanned[string]

	dependsOn map[string]span.Span
	meta      map[string]metaValue

	Commands []ast.Command
}

type metaValue struct {
	value string
	sp    span.Span
}

func newUnit(name span.Spanned[string]) *Unit {
	return &Unit{
		Name:      name,
		dependsOn: map[string]span.Span{},
		meta:      map[string]metaValue{},
	}
}

// Deps returns the set of unit names this unit depends on.
func (u *Unit) Deps() map[string]struct{} {
	out := make(map[string]struct{}, len(u.dependsOn))
	for k := range u.dependsOn {
		out[k] = struct{}{}
	}
	return out
}

// DepSpan returns the span of the depends_on occurrence that introduced dep,
// for diagnostics. ok is false if dep is not a dependency of this unit.
func (u *Unit) DepSpan(dep string) (span.Span, bool) {
	sp, ok := u.dependsOn[dep]
	return sp, ok
}

// Meta returns the unit's deduplicated meta key/value pairs.
func (u *Unit) Meta() map[string]string {
	out := make(map[string]string, len(u.meta))
	for k, v := range u.meta {
		out[k] = v.value
	}
	return out
}

type Module struct {
	Units map[string]*Unit

	expose map[ast.Pragma]span.Spanned[string]
}

// Expose returns the unit name exposed for pragma, if any was declared.
func (m *Module) Expose(p ast.Pragma) (span.Spanned[string], bool) {
	sp, ok := m.expose[p]
	return sp, ok
}

// LowerErrorKind distinguishes the closed set of problems lowering can
// report.
type LowerErrorKind int

const (
	DuplicateUnit LowerErrorKind = iota
	DuplicateDependency
	DuplicateMetaItem
	DuplicateExpose
	NameError
)

// Lower turns a parsed AST into a Module, accumulating every problem it
// finds rather than stopping at the first one. It fails (returns a nil
// Module) only if the accumulated diagnostic list is non-empty; a unit with
// an internal error (e.g. a duplicate dependency) still gets a placeholder
// entry in Units so other units depending on its name don't cascade into a
// spurious NameError.
func Lower(items []ast.Item) (*Module, diag.List) {
	mod := &Module{
		Units:  map[string]*Unit{},
		expose: map[ast.Pragma]span.Spanned[string]{},
	}
	var errs diag.List

	for _, item := range items {
		unitItem, ok := item.(ast.Unit)
		if !ok {
			continue
		}
		unit, unitErrs := lowerUnit(unitItem)
		errs = append(errs, unitErrs...)

		if existing, dup := mod.Units[unitItem.Name.Value]; dup {
			errs = append(errs, diag.New(unitItem.Name.Span,
				fmt.Sprintf("unit %q is already defined", unitItem.Name.Value)).
				WithLabel(existing.Name.Span, "first defined here"))
			continue
		}
		mod.Units[unitItem.Name.Value] = unit
	}

	for _, item := range items {
		exposeItem, ok := item.(ast.Expose)
		if !ok {
			continue
		}
		if existing, dup := mod.expose[exposeItem.Pragma.Value]; dup {
			errs = append(errs, diag.New(exposeItem.Sp,
				fmt.Sprintf("%s is already exposed", exposeItem.Pragma.Value)).
				WithLabel(existing.Span, "first exposed here"))
			continue
		}
		if _, found := mod.Units[exposeItem.Unit.Value]; !found {
			errs = append(errs, diag.New(exposeItem.Unit.Span,
				fmt.Sprintf("expose refers to undefined unit %q", exposeItem.Unit.Value)))
			continue
		}
		mod.expose[exposeItem.Pragma.Value] = exposeItem.Unit
	}

	for _, unit := range mod.Units {
		for dep, sp := range unit.dependsOn {
			if _, found := mod.Units[dep]; !found {
				errs = append(errs, diag.New(sp, fmt.Sprintf("depends_on refers to undefined unit %q", dep)))
			}
		}
		for _, cmd := range unit.Commands {
			do, ok := cmd.(ast.Do)
			if !ok {
				continue
			}
			for _, name := range do.Names {
				if _, found := mod.Units[name.Value]; !found {
					errs = append(errs, diag.New(name.Span, fmt.Sprintf("do refers to undefined unit %q", name.Value)))
				}
			}
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return mod, nil
}

// lowerUnit strips DependsOn and Meta commands out of the body into the
// unit's dedicated sets (flagging duplicates) and keeps the rest, in order,
// as the unit's executable command list.
func lowerUnit(item ast.Unit) (*Unit, diag.List) {
	u := newUnit(item.Name)
	var errs diag.List

	for _, cmd := range item.Commands {
		switch c := cmd.(type) {
		case ast.DependsOn:
			for _, name := range c.Names {
				if existing, dup := u.dependsOn[name.Value]; dup {
					errs = append(errs, diag.New(name.Span,
						fmt.Sprintf("duplicate dependency %q", name.Value)).
						WithLabel(existing, "first declared here"))
					continue
				}
				u.dependsOn[name.Value] = name.Span
			}
		case ast.Meta:
			for _, entry := range c.Entries {
				if existing, dup := u.meta[entry.Key.Value]; dup {
					errs = append(errs, diag.New(entry.Key.Span,
						fmt.Sprintf("duplicate meta item %q", entry.Key.Value)).
						WithLabel(existing.sp, "first declared here"))
					continue
				}
				u.meta[entry.Key.Value] = metaValue{value: entry.Value.Value, sp: entry.Key.Span}
			}
		default:
			u.Commands = append(u.Commands, cmd)
		}
	}

	return u, errs
}

// SortedDeps returns a unit's dependency names in a stable, deterministic
// order, used by the scheduler when it claims dependencies.
func SortedDeps(u *Unit) []string {
	names := make([]string, 0, len(u.dependsOn))
	for name := range u.dependsOn {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
