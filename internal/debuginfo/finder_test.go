package debuginfo

import (
	"reflect"
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

type fixture struct {
	m      *metadata.Module
	cu     metadata.NodeID
	file   metadata.NodeID
	intTy  metadata.NodeID
	list   metadata.NodeID
	ptr    metadata.NodeID
	fn     metadata.NodeID
	local  metadata.NodeID
	block  metadata.NodeID
	global metadata.NodeID
}

// newListModule builds a C module with a self-referential struct, a global
// pointing to it and one function with a declared local inside a block.
func newListModule() *fixture {
	m := metadata.NewModule("list.c")
	ctx := m.Ctx
	fx := &fixture{m: m}
	fx.file = ctx.Unique(&metadata.File{Filename: "list.c", Directory: "/src"})
	fx.intTy = ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})

	fx.list = ctx.Temporary()
	fx.ptr = ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagPointerType, BaseType: metadata.Ref(fx.list), SizeInBits: 64})
	next := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagMember, Name: "next", Scope: metadata.Ref(fx.list), BaseType: metadata.Ref(fx.ptr), SizeInBits: 64})
	ctx.Replace(fx.list, &metadata.CompositeType{
		Tag: dwarf.TagStructureType, Name: "list", File: fx.file, SizeInBits: 64,
		Elements: []metadata.NodeID{next}, Identifier: "_ZTS4list",
	})

	fnTy := ctx.Unique(&metadata.SubroutineType{Types: []metadata.TypeRef{metadata.Ref(fx.intTy)}})
	fx.fn = ctx.Distinct(&metadata.Subprogram{
		Scope: metadata.Ref(fx.file), Name: "main", File: fx.file, Line: 3, Type: fnTy,
		Definition: true, Function: "main",
	})
	fx.block = ctx.Distinct(&metadata.LexicalBlock{Scope: fx.fn, File: fx.file, Line: 4})
	fx.local = ctx.Unique(&metadata.LocalVariable{Scope: fx.block, Name: "it", File: fx.file, Line: 5, Type: metadata.Ref(fx.ptr)})
	fx.global = ctx.Unique(&metadata.GlobalVariable{Name: "head", File: fx.file, Type: metadata.Ref(fx.ptr), Definition: true})

	fx.cu = ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangC99, File: fx.file, Producer: "occ",
		RetainedTypes:   []metadata.NodeID{fx.list},
		Subprograms:     []metadata.NodeID{fx.fn},
		GlobalVariables: []metadata.NodeID{fx.global},
	})
	m.AddCompileUnit(fx.cu)

	loc := ctx.Unique(&metadata.Location{Line: 5, Column: 2, Scope: fx.block})
	m.Functions = append(m.Functions, &metadata.Function{
		Name: "main", Subprogram: fx.fn,
		Blocks: []*metadata.Block{{Name: "entry", Instructions: []*metadata.Instruction{
			{Op: "call", Callee: metadata.IntrinsicDeclare, Variable: fx.local, DebugLoc: loc,
				Value: metadata.Operand{Kind: metadata.OperandFrameOffset, FrameOffset: -8}},
			{Op: "ret", DebugLoc: loc},
		}}},
	})
	return fx
}

func snapshot(f *Finder) [][]metadata.NodeID {
	return [][]metadata.NodeID{
		append([]metadata.NodeID(nil), f.CompileUnits()...),
		append([]metadata.NodeID(nil), f.Subprograms()...),
		append([]metadata.NodeID(nil), f.GlobalVariables()...),
		append([]metadata.NodeID(nil), f.Types()...),
		append([]metadata.NodeID(nil), f.Scopes()...),
	}
}

func contains(ids []metadata.NodeID, id metadata.NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestFinder_ProcessModuleCollects(t *testing.T) {
	fx := newListModule()
	f := NewFinder()
	f.ProcessModule(fx.m)

	if f.CompileUnitCount() != 1 || f.CompileUnits()[0] != fx.cu {
		t.Fatalf("compile units = %v", f.CompileUnits())
	}
	if f.SubprogramCount() != 1 || f.GlobalVariableCount() != 1 {
		t.Fatalf("subprograms=%d globals=%d", f.SubprogramCount(), f.GlobalVariableCount())
	}
	for _, ty := range []metadata.NodeID{fx.intTy, fx.list, fx.ptr} {
		if !contains(f.Types(), ty) {
			t.Fatalf("type %d not collected: %v", ty, f.Types())
		}
	}
	if !contains(f.Scopes(), fx.block) || !contains(f.Scopes(), fx.file) {
		t.Fatalf("scopes = %v", f.Scopes())
	}
	// The struct is reached once even though the pointer leads back to it.
	n := 0
	for _, ty := range f.Types() {
		if ty == fx.list {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("struct recorded %d times", n)
	}
}

func TestFinder_Idempotent(t *testing.T) {
	fx := newListModule()
	f := NewFinder()
	f.ProcessModule(fx.m)
	first := snapshot(f)
	f.ProcessModule(fx.m)
	if got := snapshot(f); !reflect.DeepEqual(first, got) {
		t.Fatalf("second pass changed collections:\n%v\n%v", first, got)
	}
	f.Reset()
	if f.TypeCount() != 0 || f.CompileUnitCount() != 0 || f.ScopeCount() != 0 {
		t.Fatalf("reset left entries behind")
	}
	f.ProcessModule(fx.m)
	if got := snapshot(f); !reflect.DeepEqual(first, got) {
		t.Fatalf("pass after reset differs:\n%v\n%v", first, got)
	}
}

func TestFinder_DisjointCollections(t *testing.T) {
	fx := newListModule()
	f := NewFinder()
	f.ProcessModule(fx.m)
	seen := map[metadata.NodeID]int{}
	for _, coll := range snapshot(f) {
		for _, id := range coll {
			seen[id]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("node %d appears in %d collections", id, n)
		}
	}
}

func TestFinder_IdentifierScopeResolved(t *testing.T) {
	m := metadata.NewModule("ns.cpp")
	ctx := m.Ctx
	def := ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagClassType, Name: "C", Identifier: "_ZTS1C", SizeInBits: 8})
	method := ctx.Distinct(&metadata.Subprogram{Scope: metadata.RefByIdentifier("_ZTS1C"), Name: "get"})
	cu := ctx.Distinct(&metadata.CompileUnit{
		Language:      dwarf.LangCPlusPlus,
		RetainedTypes: []metadata.NodeID{def},
		Subprograms:   []metadata.NodeID{method},
	})
	m.AddCompileUnit(cu)

	f := NewFinder()
	f.ProcessModule(m)
	if !contains(f.Types(), def) {
		t.Fatalf("identifier scope not resolved to %d: %v", def, f.Types())
	}
}

func TestTypeIdentifierMap_DefinitionReplacesDeclaration(t *testing.T) {
	m := metadata.NewModule("a.cpp")
	ctx := m.Ctx
	decl := ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagStructureType, Name: "X", Identifier: "X", Flags: metadata.FlagFwdDecl})
	def := ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagStructureType, Name: "X", Identifier: "X", SizeInBits: 32})
	later := ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagStructureType, Name: "X", Identifier: "X", Flags: metadata.FlagFwdDecl})
	m.AddCompileUnit(ctx.Distinct(&metadata.CompileUnit{RetainedTypes: []metadata.NodeID{decl, def, later}}))

	tm := GenerateTypeIdentifierMap(m)
	if got, _ := tm.Lookup("X"); got != def {
		t.Fatalf("X -> %d, want definition %d", got, def)
	}
	if got := tm.Resolve(metadata.RefByIdentifier("missing")); got != metadata.NullID {
		t.Fatalf("missing identifier resolved to %d", got)
	}
}

// Module B holds only a declaration of X; the definition lives in module A.
// B's own map must not find a definition.
func TestTypeIdentifierMap_NoCrossModuleMerge(t *testing.T) {
	a := metadata.NewModule("a.cpp")
	defA := a.Ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagStructureType, Name: "X", Identifier: "X", SizeInBits: 32})
	a.AddCompileUnit(a.Ctx.Distinct(&metadata.CompileUnit{RetainedTypes: []metadata.NodeID{defA}}))

	b := metadata.NewModule("b.cpp")
	declB := b.Ctx.Distinct(&metadata.CompositeType{Tag: dwarf.TagStructureType, Name: "X", Identifier: "X", Flags: metadata.FlagFwdDecl})
	b.AddCompileUnit(b.Ctx.Distinct(&metadata.CompileUnit{RetainedTypes: []metadata.NodeID{declB}}))

	f := NewFinder()
	tm := f.TypeIdentifierMap(b)
	got := tm.Resolve(metadata.RefByIdentifier("X"))
	if got != declB {
		t.Fatalf("B resolved X to %d, want its own declaration %d", got, declB)
	}
	if ct := metadata.As[*metadata.CompositeType](b.Ctx, got); !ct.Flags.IsForwardDecl() {
		t.Fatalf("B's reference is no longer declaration-only")
	}
}

func TestFinder_TypeMapCachedUntilReset(t *testing.T) {
	fx := newListModule()
	f := NewFinder()
	first := f.TypeIdentifierMap(fx.m)
	first["injected"] = 99
	if _, ok := f.TypeIdentifierMap(fx.m)["injected"]; !ok {
		t.Fatalf("map was rebuilt without Reset")
	}
	f.Reset()
	if _, ok := f.TypeIdentifierMap(fx.m)["injected"]; ok {
		t.Fatalf("Reset did not drop the cached map")
	}
}
