package dwarfunit

import (
	stderrors "errors"
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

type fixture struct {
	m     *metadata.Module
	file  metadata.NodeID
	intTy metadata.NodeID
	list  metadata.NodeID
	ptr   metadata.NodeID
	enum  metadata.NodeID
	fn    metadata.NodeID
	local metadata.NodeID
	param metadata.NodeID
	cus   []metadata.NodeID
}

// newFixture builds a C module whose compile units each retain a
// self-referential struct and an enumeration. The first unit also owns a
// function with one parameter and one local.
func newFixture(units int) *fixture { return newPaddedFixture(units, 0) }

// newPaddedFixture is newFixture with pad unrelated nodes created first, so
// every node of interest gets a different handle.
func newPaddedFixture(units, pad int) *fixture {
	m := metadata.NewModule("list.c")
	ctx := m.Ctx
	fx := &fixture{m: m}
	for i := 0; i < pad; i++ {
		ctx.Distinct(&metadata.File{Filename: "pad.c"})
	}
	fx.file = ctx.Unique(&metadata.File{Filename: "list.c", Directory: "/src"})
	fx.intTy = ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})

	fx.list = ctx.Temporary()
	fx.ptr = ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagPointerType, BaseType: metadata.Ref(fx.list), SizeInBits: 64})
	next := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagMember, Name: "next", Scope: metadata.Ref(fx.list), BaseType: metadata.Ref(fx.ptr), SizeInBits: 64})
	ctx.Replace(fx.list, &metadata.CompositeType{
		Tag: dwarf.TagStructureType, Name: "list", File: fx.file, Line: 1, SizeInBits: 64,
		Elements: []metadata.NodeID{next}, Identifier: "_ZTS4list",
	})

	a := ctx.Unique(&metadata.Enumerator{Name: "A", Value: 0})
	b := ctx.Unique(&metadata.Enumerator{Name: "B", Value: 1})
	c := ctx.Unique(&metadata.Enumerator{Name: "C", Value: 5})
	fx.enum = ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagEnumerationType, Name: "color", File: fx.file, Line: 2, SizeInBits: 32,
		BaseType: metadata.Ref(fx.intTy), Elements: []metadata.NodeID{a, b, c},
	})

	fnTy := ctx.Unique(&metadata.SubroutineType{Types: []metadata.TypeRef{metadata.Ref(fx.intTy), metadata.Ref(fx.ptr)}})
	fx.fn = ctx.Distinct(&metadata.Subprogram{
		Scope: metadata.Ref(fx.file), Name: "length", File: fx.file, Line: 3, Type: fnTy,
		Definition: true, Function: "length", Flags: metadata.FlagPrototyped,
	})
	fx.param = ctx.Unique(&metadata.LocalVariable{Scope: fx.fn, Name: "l", File: fx.file, Line: 3, Type: metadata.Ref(fx.ptr), Arg: 1})
	fx.local = ctx.Unique(&metadata.LocalVariable{Scope: fx.fn, Name: "n", File: fx.file, Line: 4, Type: metadata.Ref(fx.intTy)})

	for i := 0; i < units; i++ {
		cu := &metadata.CompileUnit{
			Language: dwarf.LangC99, File: fx.file, Producer: "occ",
			EnumTypes:     []metadata.NodeID{fx.enum},
			RetainedTypes: []metadata.NodeID{fx.list},
		}
		if i == 0 {
			cu.Subprograms = []metadata.NodeID{fx.fn}
		}
		id := ctx.Distinct(cu)
		m.AddCompileUnit(id)
		fx.cus = append(fx.cus, id)
	}

	loc := ctx.Unique(&metadata.Location{Line: 4, Column: 2, Scope: fx.fn})
	m.Functions = append(m.Functions, &metadata.Function{
		Name: "length", Subprogram: fx.fn,
		Blocks: []*metadata.Block{{Name: "entry", Instructions: []*metadata.Instruction{
			{Op: "call", Callee: metadata.IntrinsicDeclare, Variable: fx.local, DebugLoc: loc,
				Value: metadata.Operand{Kind: metadata.OperandFrameOffset, FrameOffset: -12}},
			{Op: "call", Callee: metadata.IntrinsicValue, Variable: fx.param, DebugLoc: loc,
				Value: metadata.Operand{Kind: metadata.OperandRegister, Register: 5, DWARFRegister: 5}},
			{Op: "ret", DebugLoc: loc},
		}}},
	})
	return fx
}

func build(t *testing.T, fx *fixture, p Policy) *Context {
	t.Helper()
	c, err := NewContext(p, fx.m, nil, logging.Nop())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	for _, cu := range fx.cus {
		c.NewCompileUnit(cu).Build(fx.m)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return c
}

func children(e *die.Entry, tag dwarf.Tag) []*die.Entry {
	var out []*die.Entry
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func refTarget(t *testing.T, e *die.Entry, attr dwarf.Attribute) *die.Entry {
	t.Helper()
	a, ok := e.Find(attr)
	if !ok {
		t.Fatalf("%s has no %s", e.Tag, attr)
	}
	r, ok := a.Value.(die.EntryRef)
	if !ok {
		t.Fatalf("%s of %s is %T, want a reference", attr, e.Tag, a.Value)
	}
	return r.Ref.Target()
}

func mustPanicWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		err, ok := r.(error)
		if !ok || !stderrors.Is(err, target) {
			t.Fatalf("panic %v, want %v", r, target)
		}
	}()
	fn()
}

func TestBuild_Enumeration(t *testing.T) {
	fx := newFixture(1)
	c := build(t, fx, DefaultPolicy())
	root := c.CompileUnits()[0].Root()

	enums := children(root, dwarf.TagEnumerationType)
	if len(enums) != 1 {
		t.Fatalf("enumeration entries = %d, want 1", len(enums))
	}
	want := []struct {
		name  string
		value int64
	}{{"A", 0}, {"B", 1}, {"C", 5}}
	got := children(enums[0], dwarf.TagEnumerator)
	if len(got) != len(want) {
		t.Fatalf("enumerators = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name() != w.name {
			t.Fatalf("enumerator %d name = %q, want %q", i, got[i].Name(), w.name)
		}
		a, _ := got[i].Find(dwarf.AttrConstValue)
		if v, ok := a.Value.(die.Signed); !ok || int64(v) != w.value {
			t.Fatalf("enumerator %s value = %v, want %d", w.name, a.Value, w.value)
		}
	}
	if refTarget(t, enums[0], dwarf.AttrType).Name() != "int" {
		t.Fatalf("enumeration base type is not int")
	}
	if enums[0].Has(dwarf.AttrEnumClass) {
		t.Fatalf("plain enumeration carries enum_class")
	}
}

func TestBuild_SelfReferentialStruct(t *testing.T) {
	fx := newFixture(1)
	c := build(t, fx, DefaultPolicy())
	root := c.CompileUnits()[0].Root()

	structs := children(root, dwarf.TagStructureType)
	ptrs := children(root, dwarf.TagPointerType)
	if len(structs) != 1 || len(ptrs) != 1 {
		t.Fatalf("struct entries = %d, pointer entries = %d, want 1 and 1", len(structs), len(ptrs))
	}
	members := children(structs[0], dwarf.TagMember)
	if len(members) != 1 || members[0].Name() != "next" {
		t.Fatalf("members = %v", members)
	}
	if refTarget(t, members[0], dwarf.AttrType) != ptrs[0] {
		t.Fatalf("member does not point at the pointer entry")
	}
	if refTarget(t, ptrs[0], dwarf.AttrType) != structs[0] {
		t.Fatalf("pointer does not point back at the struct")
	}
	a, _ := ptrs[0].Find(dwarf.AttrType)
	if a.Form != dwarf.FormRef4 {
		t.Fatalf("in-unit reference form = %s, want ref4", a.Form)
	}
}

func TestBuild_UniquingPerUnit(t *testing.T) {
	fx := newFixture(2)
	c := build(t, fx, DefaultPolicy())
	cus := c.CompileUnits()
	if len(cus) != 2 {
		t.Fatalf("compile units = %d", len(cus))
	}
	for i, cu := range cus {
		if n := len(children(cu.Root(), dwarf.TagStructureType)); n != 1 {
			t.Fatalf("unit %d struct entries = %d, want 1", i, n)
		}
	}
	if cus[0].GetDIE(fx.list) == cus[1].GetDIE(fx.list) {
		t.Fatalf("compile units share an entry")
	}
	if cus[0].GetDIE(fx.list).Unit() != cus[0].ID() {
		t.Fatalf("entry allocated by the wrong unit")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := build(t, newFixture(2), DefaultPolicy())
	b := build(t, newFixture(2), DefaultPolicy())
	ca, cb := a.CompileUnits(), b.CompileUnits()
	for i := range ca {
		if die.Shape(ca[i].Root()) != die.Shape(cb[i].Root()) {
			t.Fatalf("unit %d differs between identical builds", i)
		}
		if ca[i].Length != cb[i].Length || ca[i].Offset != cb[i].Offset {
			t.Fatalf("unit %d layout differs", i)
		}
	}
	if a.Abbrevs.Len() != b.Abbrevs.Len() {
		t.Fatalf("abbreviation counts differ")
	}
}

func TestBuild_FunctionVariables(t *testing.T) {
	fx := newFixture(1)
	c := build(t, fx, DefaultPolicy())
	cu := c.CompileUnits()[0]
	sp := cu.GetDIE(fx.fn)
	if sp == nil {
		t.Fatalf("no subprogram entry")
	}
	for _, attr := range []dwarf.Attribute{dwarf.AttrLowPC, dwarf.AttrHighPC, dwarf.AttrFrameBase, dwarf.AttrName} {
		if !sp.Has(attr) {
			t.Fatalf("subprogram lacks %s", attr)
		}
	}
	if len(sp.Children) != 2 {
		t.Fatalf("subprogram children = %d, want 2", len(sp.Children))
	}
	if sp.Children[0].Tag != dwarf.TagFormalParameter || sp.Children[0].Name() != "l" {
		t.Fatalf("first child is %s %q, want the parameter", sp.Children[0].Tag, sp.Children[0].Name())
	}
	if sp.Children[1].Tag != dwarf.TagVariable || sp.Children[1].Name() != "n" {
		t.Fatalf("second child is %s %q, want the local", sp.Children[1].Tag, sp.Children[1].Name())
	}
	a, _ := sp.Children[1].Find(dwarf.AttrLocation)
	loc, ok := a.Value.(*die.Loc)
	if !ok || len(loc.Items) != 2 || loc.Items[0].Value != die.Unsigned(dwarf.OpFbreg) || loc.Items[1].Value != die.Signed(-12) {
		t.Fatalf("local location = %v", a.Value)
	}
	a, _ = sp.Children[0].Find(dwarf.AttrLocation)
	loc, ok = a.Value.(*die.Loc)
	if !ok || len(loc.Items) != 1 || loc.Items[0].Value != die.Unsigned(dwarf.OpReg0+5) {
		t.Fatalf("parameter location = %v", a.Value)
	}
	if r := cu.Ranges(); len(r) != 1 || r[0].Begin != "length" || r[0].End != FunctionEnd("length") {
		t.Fatalf("ranges = %v", r)
	}
	if _, ok := cu.GlobalNames()["length"]; !ok {
		t.Fatalf("function missing from global names")
	}
}

func TestAddRegisterOpPiece_NoDWARFNumber(t *testing.T) {
	fx := newFixture(1)
	c, err := NewContext(DefaultPolicy(), fx.m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(fx.cus[0])
	loc := cu.arena.NewLoc()
	if cu.AddRegisterOpPiece(loc, -1, 0, 0) {
		t.Fatalf("register without DWARF number reported success")
	}
	if len(loc.Items) != 0 {
		t.Fatalf("failed register appended %d items", len(loc.Items))
	}
	if !cu.AddRegisterOpPiece(loc, 40, 32, 0) {
		t.Fatalf("regx failed")
	}
	want := []die.Value{die.Unsigned(dwarf.OpRegx), die.Unsigned(40), die.Unsigned(dwarf.OpPiece), die.Unsigned(4)}
	if len(loc.Items) != len(want) {
		t.Fatalf("items = %v", loc.Items)
	}
	for i, w := range want {
		if loc.Items[i].Value != w {
			t.Fatalf("item %d = %v, want %v", i, loc.Items[i].Value, w)
		}
	}
}

func TestDefaultLowerBound(t *testing.T) {
	p := DefaultPolicy()
	if got := p.DefaultLowerBound(dwarf.LangC99); got != 0 {
		t.Fatalf("C99 = %d", got)
	}
	if got := p.DefaultLowerBound(dwarf.LangFortran90); got != 1 {
		t.Fatalf("Fortran90 = %d", got)
	}
	v2, _ := NewPolicy(2)
	if got := v2.DefaultLowerBound(dwarf.LangFortran95); got != 1 {
		t.Fatalf("Fortran95 at v2 = %d, want 1", got)
	}
	if got := p.DefaultLowerBound(dwarf.Language(0x7777)); got != -1 {
		t.Fatalf("unknown language = %d, want -1", got)
	}
	v3, _ := NewPolicy(3)
	if got := v3.DefaultLowerBound(dwarf.LangJava); got != -1 {
		t.Fatalf("Java at v3 = %d, want -1", got)
	}
}

func TestUnit_ClosedAfterFinalize(t *testing.T) {
	fx := newFixture(1)
	long := fx.m.Ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "long", SizeInBits: 64, Encoding: dwarf.EncSigned})
	c := build(t, fx, DefaultPolicy())
	cu := c.CompileUnits()[0]
	if cu.State() != StateClosed {
		t.Fatalf("state = %s", cu.State())
	}
	mustPanicWith(t, errors.ErrUnitClosed, func() {
		cu.AddFlag(cu.Root(), dwarf.AttrExternal)
	})
	mustPanicWith(t, errors.ErrUnitClosed, func() {
		cu.GetOrCreateTypeDIE(long)
	})
}

func TestGetOrCreateTypeDIE_RestrictBeforeV3(t *testing.T) {
	fx := newFixture(1)
	restrict := fx.m.Ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagRestrictType, BaseType: metadata.Ref(fx.ptr)})
	for _, tc := range []struct {
		version uint16
		tag     dwarf.Tag
	}{{2, dwarf.TagPointerType}, {3, dwarf.TagRestrictType}} {
		p, _ := NewPolicy(tc.version)
		c, err := NewContext(p, fx.m, nil, logging.Nop())
		if err != nil {
			t.Fatal(err)
		}
		cu := c.NewCompileUnit(fx.cus[0])
		if e := cu.GetOrCreateTypeDIE(restrict); e.Tag != tc.tag {
			t.Fatalf("v%d restrict built as %s, want %s", tc.version, e.Tag, tc.tag)
		}
	}
}

func TestAddFlag_FormByVersion(t *testing.T) {
	fx := newFixture(1)
	for _, tc := range []struct {
		version uint16
		form    dwarf.Form
	}{{2, dwarf.FormFlag}, {3, dwarf.FormFlag}, {4, dwarf.FormFlagPresent}, {5, dwarf.FormFlagPresent}} {
		p, _ := NewPolicy(tc.version)
		c, _ := NewContext(p, fx.m, nil, logging.Nop())
		cu := c.NewCompileUnit(fx.cus[0])
		cu.AddFlag(cu.Root(), dwarf.AttrExternal)
		a, _ := cu.Root().Find(dwarf.AttrExternal)
		if a.Form != tc.form {
			t.Fatalf("v%d flag form = %s, want %s", tc.version, a.Form, tc.form)
		}
	}
}

func TestAddUInt_FormOverflow(t *testing.T) {
	fx := newFixture(1)
	c, _ := NewContext(DefaultPolicy(), fx.m, nil, logging.Nop())
	cu := c.NewCompileUnit(fx.cus[0])
	mustPanicWith(t, errors.ErrFormOverflow, func() {
		cu.AddUInt(cu.Root(), dwarf.AttrByteSize, dwarf.FormData1, 300)
	})
}

func TestFinalize_UnitOffsets(t *testing.T) {
	c := build(t, newFixture(3), DefaultPolicy())
	var off uint32
	for i, cu := range c.CompileUnits() {
		if cu.Offset != off {
			t.Fatalf("unit %d offset = %d, want %d", i, cu.Offset, off)
		}
		if cu.Root().Offset != cu.HeaderSize() {
			t.Fatalf("unit %d root offset = %d, want header size %d", i, cu.Root().Offset, cu.HeaderSize())
		}
		off += cu.Length
	}
	if len(c.Fixups()) != 0 {
		t.Fatalf("fixups = %d, want none", len(c.Fixups()))
	}
}

func TestBuild_ContainingTypeCreatedAfterTraversal(t *testing.T) {
	m := metadata.NewModule("shape.cpp")
	ctx := m.Ctx
	file := ctx.Unique(&metadata.File{Filename: "shape.cpp", Directory: "/src"})
	base := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagClassType, Name: "base", File: file, Line: 1, SizeInBits: 64,
	})
	derived := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagClassType, Name: "derived", File: file, Line: 5, SizeInBits: 64,
		VTableHolder: metadata.Ref(base),
	})
	cu := ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangCPlusPlus, File: file, Producer: "occ",
		RetainedTypes: []metadata.NodeID{derived},
	})
	m.AddCompileUnit(cu)

	c, err := NewContext(DefaultPolicy(), m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	unit := c.NewCompileUnit(cu)
	unit.Build(m)
	if unit.GetDIE(base) != nil {
		t.Fatalf("vtable holder built before containing types were resolved")
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	holder := unit.GetDIE(base)
	if holder == nil || holder.Name() != "base" {
		t.Fatalf("vtable holder not created")
	}
	if refTarget(t, unit.GetDIE(derived), dwarf.AttrContainingType) != holder {
		t.Fatalf("containing_type does not point at the holder")
	}
}

func TestBuild_ContainingTypeChain(t *testing.T) {
	m := metadata.NewModule("shape.cpp")
	ctx := m.Ctx
	file := ctx.Unique(&metadata.File{Filename: "shape.cpp", Directory: "/src"})
	grand := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagClassType, Name: "grand", File: file, Line: 1, SizeInBits: 64,
	})
	base := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagClassType, Name: "base", File: file, Line: 5, SizeInBits: 64,
		VTableHolder: metadata.Ref(grand),
	})
	derived := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagClassType, Name: "derived", File: file, Line: 9, SizeInBits: 64,
		VTableHolder: metadata.Ref(base),
	})
	cu := ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangCPlusPlus, File: file, Producer: "occ",
		RetainedTypes: []metadata.NodeID{derived},
	})
	m.AddCompileUnit(cu)

	c, err := NewContext(DefaultPolicy(), m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	unit := c.NewCompileUnit(cu)
	unit.Build(m)
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	b, g := unit.GetDIE(base), unit.GetDIE(grand)
	if b == nil || g == nil {
		t.Fatalf("holders not created: base=%v grand=%v", b != nil, g != nil)
	}
	if refTarget(t, unit.GetDIE(derived), dwarf.AttrContainingType) != b {
		t.Fatalf("derived containing_type does not point at base")
	}
	if refTarget(t, b, dwarf.AttrContainingType) != g {
		t.Fatalf("base containing_type does not point at grand")
	}
}

func TestEntryRef_SharedWithEntryReferences(t *testing.T) {
	fx := newFixture(1)
	c, err := NewContext(DefaultPolicy(), fx.m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(fx.cus[0])
	e := cu.GetOrCreateTypeDIE(fx.enum)
	a, ok := e.Find(dwarf.AttrType)
	if !ok {
		t.Fatalf("enumeration has no type")
	}
	if a.Value.(die.EntryRef).Ref != cu.EntryRef(fx.intTy) {
		t.Fatalf("node has more than one proxy in the unit")
	}

	// A proxy handed out before the entry exists is reused by later
	// references to the entry.
	long := fx.m.Ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "long", SizeInBits: 64, Encoding: dwarf.EncSigned})
	r := cu.EntryRef(long)
	if r.Bound() {
		t.Fatalf("proxy bound before the entry exists")
	}
	le := cu.GetOrCreateTypeDIE(long)
	if r.Target() != le {
		t.Fatalf("proxy not bound on insertion")
	}
	v := cu.newChild(cu.Root(), dwarf.TagVariable)
	cu.AddEntry(v, dwarf.AttrType, le)
	a, _ = v.Find(dwarf.AttrType)
	if a.Value.(die.EntryRef).Ref != r {
		t.Fatalf("entry reference did not reuse the node proxy")
	}
}

func TestConstructEnumType_AttributesByVersion(t *testing.T) {
	fx := newFixture(1)
	ctx := fx.m.Ctx
	red := ctx.Unique(&metadata.Enumerator{Name: "red", Value: 0})
	scoped := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagEnumerationType, Name: "shade", File: fx.file, Line: 7, SizeInBits: 32,
		BaseType: metadata.Ref(fx.intTy), Elements: []metadata.NodeID{red}, Flags: metadata.FlagEnumClass,
	})
	for _, tc := range []struct {
		version   uint16
		baseType  bool
		enumClass bool
	}{{2, false, false}, {3, true, false}, {4, true, true}, {5, true, true}} {
		p, _ := NewPolicy(tc.version)
		c, err := NewContext(p, fx.m, nil, logging.Nop())
		if err != nil {
			t.Fatal(err)
		}
		e := c.NewCompileUnit(fx.cus[0]).GetOrCreateTypeDIE(scoped)
		if e.Has(dwarf.AttrType) != tc.baseType {
			t.Fatalf("v%d enumeration type present = %v, want %v", tc.version, e.Has(dwarf.AttrType), tc.baseType)
		}
		if e.Has(dwarf.AttrEnumClass) != tc.enumClass {
			t.Fatalf("v%d enum_class present = %v, want %v", tc.version, e.Has(dwarf.AttrEnumClass), tc.enumClass)
		}
	}
}

// declModule returns a module retaining a forward declaration of node and a
// pointer to it, plus the definition when withDef is set.
func declModule(withDef bool) (m *metadata.Module, cu, decl, def, ptr metadata.NodeID) {
	m = metadata.NewModule("node.cpp")
	ctx := m.Ctx
	file := ctx.Unique(&metadata.File{Filename: "node.cpp", Directory: "/src"})
	intTy := ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})
	decl = ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagStructureType, Name: "node", File: file, Line: 1,
		Identifier: "_ZTS4node", Flags: metadata.FlagFwdDecl,
	})
	ptr = ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagPointerType, BaseType: metadata.Ref(decl), SizeInBits: 64})
	retained := []metadata.NodeID{decl, ptr}
	if withDef {
		def = ctx.Temporary()
		val := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagMember, Name: "val", Scope: metadata.Ref(def), BaseType: metadata.Ref(intTy), SizeInBits: 32})
		ctx.Replace(def, &metadata.CompositeType{
			Tag: dwarf.TagStructureType, Name: "node", File: file, Line: 3, SizeInBits: 32,
			Elements: []metadata.NodeID{val}, Identifier: "_ZTS4node",
		})
		retained = append(retained, def)
	}
	cu = ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangCPlusPlus, File: file, Producer: "occ", RetainedTypes: retained,
	})
	m.AddCompileUnit(cu)
	return m, cu, decl, def, ptr
}

func TestBuild_DeclarationResolvesToDefinition(t *testing.T) {
	m, cuID, decl, def, ptr := declModule(true)
	c, err := NewContext(DefaultPolicy(), m, debuginfo.GenerateTypeIdentifierMap(m), logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(cuID)
	cu.Build(m)
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	structs := children(cu.Root(), dwarf.TagStructureType)
	if len(structs) != 1 {
		t.Fatalf("struct entries = %d, want 1", len(structs))
	}
	if structs[0].Has(dwarf.AttrDeclaration) || len(children(structs[0], dwarf.TagMember)) != 1 {
		t.Fatalf("struct entry is not the definition")
	}
	if cu.GetDIE(def) != structs[0] || (cu.GetDIE(decl) != nil && cu.GetDIE(decl) != structs[0]) {
		t.Fatalf("declaration and definition map to different entries")
	}
	if refTarget(t, cu.GetDIE(ptr), dwarf.AttrType) != structs[0] {
		t.Fatalf("pointer to the declaration does not reach the definition")
	}
}

func TestBuild_DeclarationWithoutDefinition(t *testing.T) {
	m, cuID, decl, _, ptr := declModule(false)
	c, err := NewContext(DefaultPolicy(), m, debuginfo.GenerateTypeIdentifierMap(m), logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(cuID)
	cu.Build(m)
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	e := cu.GetDIE(decl)
	if e == nil {
		t.Fatalf("no entry for the declaration")
	}
	if !e.Has(dwarf.AttrDeclaration) || len(e.Children) != 0 {
		t.Fatalf("declaration entry has declaration=%v and %d children", e.Has(dwarf.AttrDeclaration), len(e.Children))
	}
	if refTarget(t, cu.GetDIE(ptr), dwarf.AttrType) != e {
		t.Fatalf("pointer does not reach the declaration")
	}
}

func TestConstructSubrangeDIE_NegativeLowerBound(t *testing.T) {
	fx := newFixture(1)
	ctx := fx.m.Ctx
	sr := ctx.Unique(&metadata.Subrange{Count: 7, LowerBound: -3})
	arr := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagArrayType, BaseType: metadata.Ref(fx.intTy), SizeInBits: 224,
		Elements: []metadata.NodeID{sr},
	})
	c, err := NewContext(DefaultPolicy(), fx.m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	e := c.NewCompileUnit(fx.cus[0]).GetOrCreateTypeDIE(arr)
	subs := children(e, dwarf.TagSubrangeType)
	if len(subs) != 1 {
		t.Fatalf("subranges = %d, want 1", len(subs))
	}
	a, ok := subs[0].Find(dwarf.AttrLowerBound)
	if !ok {
		t.Fatalf("lower bound omitted")
	}
	if v, ok := a.Value.(die.Signed); !ok || int64(v) != -3 {
		t.Fatalf("lower bound = %v (%T), want signed -3", a.Value, a.Value)
	}
}

func TestUpdateAcceleratorTables_ObjC(t *testing.T) {
	fx := newFixture(1)
	widget := fx.m.Ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagStructureType, Name: "Widget", File: fx.file, Line: 9, SizeInBits: 64,
		RuntimeLang: 16, Flags: metadata.FlagObjcClassComplete,
	})
	c, err := NewContext(DefaultPolicy(), fx.m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(fx.cus[0])
	e := cu.GetOrCreateTypeDIE(widget)
	cu.GetOrCreateTypeDIE(fx.list)
	if got := c.Accel.ObjC.Lookup("Widget"); len(got) != 1 || got[0].Entry != e {
		t.Fatalf("objc table = %v", got)
	}
	if got := c.Accel.ObjC.Lookup("list"); len(got) != 0 {
		t.Fatalf("C struct in objc table: %v", got)
	}
	if got := c.Accel.Types.Lookup("Widget"); len(got) != 1 {
		t.Fatalf("types table = %v", got)
	}
}

// importModule returns a module whose compile unit imports two global
// variables that are only built on demand. With swapped set, the second
// variable is created first and gets the lower handle.
func importModule(swapped bool) *metadata.Module {
	m := metadata.NewModule("imports.cpp")
	ctx := m.Ctx
	file := ctx.Unique(&metadata.File{Filename: "imports.cpp", Directory: "/src"})
	intTy := ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})
	global := func(name string, line uint) metadata.NodeID {
		return ctx.Unique(&metadata.GlobalVariable{
			Scope: file, Name: name, File: file, Line: line, Type: metadata.Ref(intTy), Definition: true,
		})
	}
	var first, second metadata.NodeID
	if swapped {
		second = global("second", 2)
		first = global("first", 1)
	} else {
		first = global("first", 1)
		second = global("second", 2)
	}
	var imports []metadata.NodeID
	for _, gv := range []metadata.NodeID{first, second} {
		imports = append(imports, ctx.Unique(&metadata.ImportedEntity{
			Tag: dwarf.TagImportedDeclaration, Scope: file, Entity: metadata.Ref(gv), Line: 5,
		}))
	}
	cu := ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangCPlusPlus, File: file, Producer: "occ", ImportedEntities: imports,
	})
	m.AddCompileUnit(cu)
	return m
}

func TestFinalize_OnDemandOrderIgnoresHandles(t *testing.T) {
	var shapes []string
	for _, swapped := range []bool{false, true} {
		m := importModule(swapped)
		c, err := NewContext(DefaultPolicy(), m, nil, logging.Nop())
		if err != nil {
			t.Fatal(err)
		}
		cu := c.NewCompileUnit(m.CompileUnits()[0])
		cu.Build(m)
		if err := c.Finalize(); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		vars := children(cu.Root(), dwarf.TagVariable)
		if len(vars) != 2 || vars[0].Name() != "first" {
			t.Fatalf("swapped=%v variables built in the wrong order", swapped)
		}
		shapes = append(shapes, die.Shape(cu.Root()))
	}
	if shapes[0] != shapes[1] {
		t.Fatalf("swapping node handles changed the unit")
	}
}
