package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

func TestContext_UniqueReturnsSameHandle(t *testing.T) {
	ctx := NewContext()
	a := ctx.Unique(&BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})
	b := ctx.Unique(&BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})
	if a != b {
		t.Fatalf("identical nodes got different handles: %d vs %d", a, b)
	}
	c := ctx.Unique(&BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 64, Encoding: dwarf.EncSigned})
	if c == a {
		t.Fatalf("different nodes share handle %d", a)
	}
	// Same fields under a different kind must not collide.
	if ctx.Unique(&Enumerator{Name: "int"}) == a {
		t.Fatalf("enumerator uniqued onto basic type")
	}
}

func TestContext_DistinctNotUniqued(t *testing.T) {
	ctx := NewContext()
	a := ctx.Distinct(&File{Filename: "a.c"})
	b := ctx.Distinct(&File{Filename: "a.c"})
	if a == b {
		t.Fatalf("distinct nodes share a handle")
	}
	if !ctx.IsDistinct(a) {
		t.Fatalf("expected %d to be distinct", a)
	}
	u := ctx.Unique(&File{Filename: "a.c"})
	if u == a || u == b || ctx.IsDistinct(u) {
		t.Fatalf("unique lookup returned a distinct node")
	}
}

func TestContext_TemporaryReplaceCycle(t *testing.T) {
	ctx := NewContext()
	s := ctx.Temporary()
	if ctx.Node(s) != nil || !ctx.IsTemporary(s) {
		t.Fatalf("temporary should have no node yet")
	}
	ptr := ctx.Unique(&DerivedType{Tag: dwarf.TagPointerType, BaseType: Ref(s), SizeInBits: 64})
	member := ctx.Unique(&DerivedType{Tag: dwarf.TagMember, Name: "next", Scope: Ref(s), BaseType: Ref(ptr)})
	ctx.Replace(s, &CompositeType{Tag: dwarf.TagStructureType, Name: "S", Elements: []NodeID{member}})

	st := As[*CompositeType](ctx, s)
	if st == nil || st.Name != "S" {
		t.Fatalf("replace did not install the struct: %#v", ctx.Node(s))
	}
	if got := As[*DerivedType](ctx, ptr).BaseType.ID; got != s {
		t.Fatalf("pointer base = %d, want %d", got, s)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("second Replace should panic")
		}
	}()
	ctx.Replace(s, &CompositeType{})
}

func TestAs_KindMismatchReturnsNil(t *testing.T) {
	ctx := NewContext()
	id := ctx.Unique(&File{Filename: "x.c"})
	if As[*CompositeType](ctx, id) != nil {
		t.Fatalf("expected nil for kind mismatch")
	}
	if ctx.KindOf(NullID) != KindInvalid {
		t.Fatalf("null handle has a kind")
	}
}

func TestFlags_Names(t *testing.T) {
	f, err := ParseFlags([]string{"public", "fwd_decl", "static_member"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.IsPublic() || !f.IsForwardDecl() || !f.IsStaticMember() || f.IsPrivate() {
		t.Fatalf("unexpected flags %v", f)
	}
	if got := f.String(); got != "public|fwd_decl|static_member" {
		t.Fatalf("String() = %q", got)
	}
	if _, err := ParseFlags([]string{"bogus"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestLoadModule_SelfReferentialStruct(t *testing.T) {
	m, err := LoadModule(filepath.Join("testdata", "list.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cus := m.CompileUnits()
	if len(cus) != 1 {
		t.Fatalf("compile units = %d", len(cus))
	}
	cu := As[*CompileUnit](m.Ctx, cus[0])
	if cu == nil || cu.Language != dwarf.LangC99 {
		t.Fatalf("bad compile unit: %#v", m.Ctx.Node(cus[0]))
	}
	node := As[*CompositeType](m.Ctx, cu.RetainedTypes[0])
	if node == nil || node.Identifier != "_ZTS4node" || len(node.Elements) != 2 {
		t.Fatalf("bad struct: %#v", node)
	}
	next := As[*DerivedType](m.Ctx, node.Elements[1])
	ptr := As[*DerivedType](m.Ctx, next.BaseType.ID)
	if ptr == nil || ptr.Tag != dwarf.TagPointerType {
		t.Fatalf("next is not a pointer: %#v", m.Ctx.Node(next.BaseType.ID))
	}
	if ptr.BaseType.ID != cu.RetainedTypes[0] {
		t.Fatalf("pointer does not close the cycle: %d vs %d", ptr.BaseType.ID, cu.RetainedTypes[0])
	}
	if v, ok := m.Flag(FlagKeyDwarfVersion); !ok || v != 4 {
		t.Fatalf("dwarf version flag = %d, %v", v, ok)
	}
	main := m.Function("main")
	if main == nil || len(main.Blocks) != 1 || len(main.Blocks[0].Instructions) != 2 {
		t.Fatalf("bad function body: %#v", main)
	}
	decl := main.Blocks[0].Instructions[0]
	if !decl.IsDebugIntrinsic() || decl.Value.Kind != OperandFrameOffset || decl.Value.FrameOffset != -16 {
		t.Fatalf("bad declare: %#v", decl)
	}
}

func TestEncodeModule_RoundTrip(t *testing.T) {
	m, err := LoadModule(filepath.Join("testdata", "list.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeModule(&buf, m); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := LoadModule(path)
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, buf.String())
	}
	if back.Ctx.Len() != m.Ctx.Len() {
		t.Fatalf("node count changed: %d -> %d", m.Ctx.Len(), back.Ctx.Len())
	}
	cu := As[*CompileUnit](back.Ctx, back.CompileUnits()[0])
	node := As[*CompositeType](back.Ctx, cu.RetainedTypes[0])
	if node == nil || node.Name != "node" {
		t.Fatalf("retained struct lost: %s", buf.String())
	}
	next := As[*DerivedType](back.Ctx, node.Elements[1])
	ptr := As[*DerivedType](back.Ctx, next.BaseType.ID)
	if ptr.BaseType.ID != cu.RetainedTypes[0] {
		t.Fatalf("cycle lost after round trip")
	}
	enum := As[*CompositeType](back.Ctx, cu.EnumTypes[0])
	if got := As[*Enumerator](back.Ctx, enum.Elements[2]); got.Name != "BLUE" || got.Value != 5 {
		t.Fatalf("enumerator = %#v", got)
	}
	if inst := back.Function("main").Blocks[0].Instructions[0]; inst.Value.FrameOffset != -16 {
		t.Fatalf("operand lost: %#v", inst.Value)
	}
}

func TestDecodeModule_Errors(t *testing.T) {
	cases := map[string]string{
		"undefined ref": "name: x\nnodes:\n  - {id: a, kind: namespace, scope: missing}\n",
		"unknown kind":  "name: x\nnodes:\n  - {id: a, kind: widget}\n",
		"duplicate id":  "name: x\nnodes:\n  - {id: a, kind: file}\n  - {id: a, kind: file}\n",
		"bad tag":       "name: x\nnodes:\n  - {id: a, kind: derived_type, tag: DW_TAG_nope}\n",
	}
	for name, doc := range cases {
		if _, err := DecodeModule(bytes.NewBufferString(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
