package debuginfo

import (
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

func countDebug(m *metadata.Module) (intrinsics, locs int) {
	for _, f := range m.Functions {
		f.Instructions(func(inst *metadata.Instruction) {
			if inst.IsDebugIntrinsic() {
				intrinsics++
			}
			if inst.DebugLoc != metadata.NullID {
				locs++
			}
		})
	}
	return intrinsics, locs
}

func TestStripDebugInfo(t *testing.T) {
	m := metadata.NewModule("s.c")
	loc := m.Ctx.Unique(&metadata.Location{Line: 1})
	m.AddCompileUnit(m.Ctx.Distinct(&metadata.CompileUnit{}))
	m.Named["other"] = nil
	m.Functions = []*metadata.Function{{
		Name: "f",
		Blocks: []*metadata.Block{{Instructions: []*metadata.Instruction{
			{Op: "call", Callee: metadata.IntrinsicValue},
			{Op: "add", DebugLoc: loc},
			{Op: "ret"},
		}}},
	}}

	if i, l := countDebug(m); i != 1 || l != 1 {
		t.Fatalf("fixture has %d intrinsics and %d locations", i, l)
	}
	if !StripDebugInfo(m) {
		t.Fatalf("first strip reported no change")
	}
	if i, l := countDebug(m); i != 0 || l != 0 {
		t.Fatalf("after strip: %d intrinsics, %d locations", i, l)
	}
	if len(m.CompileUnits()) != 0 {
		t.Fatalf("compile unit anchor survived")
	}
	if _, ok := m.Named["other"]; !ok {
		t.Fatalf("non-debug anchor removed")
	}
	if n := len(m.Functions[0].Blocks[0].Instructions); n != 2 {
		t.Fatalf("expected 2 remaining instructions, got %d", n)
	}
	if StripDebugInfo(m) {
		t.Fatalf("second strip reported a change")
	}
}

func TestStripFunction_Subprogram(t *testing.T) {
	f := &metadata.Function{Name: "g", Subprogram: 7}
	if !StripFunction(f) || f.Subprogram != metadata.NullID {
		t.Fatalf("subprogram attachment not stripped")
	}
	if StripFunction(f) {
		t.Fatalf("stripping twice reported a change")
	}
}

func TestSubprogramFor(t *testing.T) {
	fx := newListModule()
	if got := SubprogramFor(fx.m.Ctx, fx.block); got != fx.fn {
		t.Fatalf("SubprogramFor(block) = %d, want %d", got, fx.fn)
	}
	if got := SubprogramFor(fx.m.Ctx, fx.file); got != metadata.NullID {
		t.Fatalf("file scope has subprogram %d", got)
	}
}

func TestMakeSubprogramMap(t *testing.T) {
	fx := newListModule()
	sm := MakeSubprogramMap(fx.m)
	if sm["main"] != fx.fn {
		t.Fatalf("main -> %d, want %d", sm["main"], fx.fn)
	}
}

func TestCompositeTypeOf(t *testing.T) {
	fx := newListModule()
	ctx := fx.m.Ctx
	td := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagTypedef, Name: "list_t", BaseType: metadata.Ref(fx.list)})
	cst := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagConstType, BaseType: metadata.Ref(td)})
	tm := GenerateTypeIdentifierMap(fx.m)
	if got := CompositeTypeOf(ctx, tm, cst); got != fx.list {
		t.Fatalf("CompositeTypeOf(const typedef) = %d, want %d", got, fx.list)
	}
	if got := CompositeTypeOf(ctx, tm, fx.ptr); got != metadata.NullID {
		t.Fatalf("pointer should not look through, got %d", got)
	}
}

func TestDebugMetadataVersion(t *testing.T) {
	m := metadata.NewModule("v")
	if DebugMetadataVersion(m) != 0 {
		t.Fatalf("expected 0 without the flag")
	}
	m.SetFlag(metadata.FlagKeyDebugInfoVersion, 3)
	if DebugMetadataVersion(m) != 3 {
		t.Fatalf("expected 3")
	}
}
