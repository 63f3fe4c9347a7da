package module

import (
	"testing"

	"github.com/ScratchCat458/august-build/internal/ast"
	"github.com/ScratchCat458/august-build/internal/lexer"
	"github.com/ScratchCat458/august-build/internal/parser"
)

func lowerSource(t *testing.T, src string) (*Module, bool) {
	t.Helper()
	p := parser.New(lexer.New(src))
	items := p.ParseProgram()
	if p.Errors().HasErrors() {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	mod, errs := Lower(items)
	return mod, errs.HasErrors()
}

func TestLowerSimpleModule(t *testing.T) {
	mod, hasErrs := lowerSource(t, `
		expose build as build
		unit build {
			depends_on(compile)
			exec(echo "done")
		}
		unit compile {
			exec(go build ./...)
		}
	`)
	if hasErrs {
		t.Fatalf("unexpected lowering errors")
	}
	if len(mod.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(mod.Units))
	}
	build := mod.Units["build"]
	if _, ok := build.Deps()["compile"]; !ok {
		t.Fatalf("expected build to depend on compile")
	}
	if len(build.Commands) != 1 {
		t.Fatalf("expected depends_on to be stripped from commands, got %d", len(build.Commands))
	}
	exposed, ok := mod.Expose(ast.Build)
	if !ok || exposed.Value != "build" {
		t.Fatalf("expected build exposed, got %v, %v", exposed, ok)
	}
}

func TestDuplicateUnitIsRejected(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		unit a {}
		unit a {}
	`)
	if !hasErrs {
		t.Fatalf("expected a DuplicateUnit error")
	}
}

func TestDuplicateDependencyIsRejected(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		unit a { depends_on(b, b) }
		unit b {}
	`)
	if !hasErrs {
		t.Fatalf("expected a DuplicateDependency error")
	}
}

func TestDuplicateMetaItemIsRejected(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		unit a { meta(@version "1.0" @version "2.0") }
	`)
	if !hasErrs {
		t.Fatalf("expected a DuplicateMetaItem error")
	}
}

func TestDuplicateExposeIsRejected(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		expose a as build
		expose b as build
		unit a {}
		unit b {}
	`)
	if !hasErrs {
		t.Fatalf("expected a DuplicateExpose error")
	}
}

func TestUndefinedDependencyIsNameError(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		unit a { depends_on(missing) }
	`)
	if !hasErrs {
		t.Fatalf("expected a NameError for the undefined dependency")
	}
}

func TestUndefinedDoTargetIsNameError(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		unit a { do(missing) }
	`)
	if !hasErrs {
		t.Fatalf("expected a NameError for the undefined do target")
	}
}

func TestUndefinedExposeTargetIsNameError(t *testing.T) {
	_, hasErrs := lowerSource(t, `
		expose missing as build
	`)
	if !hasErrs {
		t.Fatalf("expected a NameError for the undefined expose target")
	}
}

func TestErrorsAccumulateAcrossUnits(t *testing.T) {
	p := parser.New(lexer.New(`
		unit a { depends_on(missing_a) }
		unit b { depends_on(missing_b) }
	`))
	items := p.ParseProgram()
	_, errs := Lower(items)
	if len(errs) != 2 {
		t.Fatalf("expected errors from both units to be reported, got %d", len(errs))
	}
}
