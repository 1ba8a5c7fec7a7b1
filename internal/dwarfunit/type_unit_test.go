package dwarfunit

import (
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

func typeUnitPolicy(t *testing.T, split bool) Policy {
	t.Helper()
	p := DefaultPolicy()
	p.TypeUnits = true
	p.SplitDwarf = split
	return p
}

func signatureOf(t *testing.T, stub *die.Entry) uint64 {
	t.Helper()
	a, ok := stub.Find(dwarf.AttrSignature)
	if !ok {
		t.Fatalf("%s %q has no signature", stub.Tag, stub.Name())
	}
	return a.Value.(*die.TypeSignature).Signature
}

func TestTypeUnits_StubAndDedup(t *testing.T) {
	fx := newFixture(2)
	c := build(t, fx, typeUnitPolicy(t, false))

	tus := c.TypeUnits()
	if len(tus) != 1 {
		t.Fatalf("type units = %d, want 1", len(tus))
	}
	tu := tus[0]
	if tu.Signature() == 0 {
		t.Fatalf("zero signature")
	}
	if tu.TypeEntry().Tag != dwarf.TagStructureType || tu.TypeEntry().Name() != "list" {
		t.Fatalf("type entry is %s %q", tu.TypeEntry().Tag, tu.TypeEntry().Name())
	}
	if tu.Root().Tag != dwarf.TagTypeUnit || tu.State() != StateClosed {
		t.Fatalf("type unit root %s in state %s", tu.Root().Tag, tu.State())
	}

	for i, cu := range c.CompileUnits() {
		stub := cu.GetDIE(fx.list)
		if !stub.Has(dwarf.AttrDeclaration) || len(stub.Children) != 0 {
			t.Fatalf("unit %d stub is not a bare declaration", i)
		}
		if sig := signatureOf(t, stub); sig != tu.Signature() {
			t.Fatalf("unit %d stub signature %016x, want %016x", i, sig, tu.Signature())
		}
	}
	if n := len(c.CompileUnits()[0].TypeUnits()) + len(c.CompileUnits()[1].TypeUnits()); n != 1 {
		t.Fatalf("registered type units across compile units = %d, want 1", n)
	}
	if c.TypeUnit(tu.Signature()) != tu {
		t.Fatalf("lookup by signature failed")
	}
	if tu.TypeOffset() <= tu.HeaderSize() {
		t.Fatalf("type offset %d inside the header", tu.TypeOffset())
	}
}

func TestTypeUnits_SignatureIndependentOfNodeHandles(t *testing.T) {
	a := build(t, newPaddedFixture(1, 0), typeUnitPolicy(t, false))
	b := build(t, newPaddedFixture(1, 17), typeUnitPolicy(t, false))
	ta, tb := a.TypeUnits(), b.TypeUnits()
	if len(ta) != 1 || len(tb) != 1 {
		t.Fatalf("type units = %d and %d", len(ta), len(tb))
	}
	if ta[0].Signature() != tb[0].Signature() {
		t.Fatalf("signatures differ: %016x vs %016x", ta[0].Signature(), tb[0].Signature())
	}
}

func TestTypeUnits_AddressPoolForcesCompileUnit(t *testing.T) {
	m := metadata.NewModule("tmpl.cc")
	ctx := m.Ctx
	file := ctx.Unique(&metadata.File{Filename: "tmpl.cc", Directory: "/src"})
	intTy := ctx.Unique(&metadata.BasicType{Tag: dwarf.TagBaseType, Name: "int", SizeInBits: 32, Encoding: dwarf.EncSigned})
	ptr := ctx.Unique(&metadata.DerivedType{Tag: dwarf.TagPointerType, BaseType: metadata.Ref(intTy), SizeInBits: 64})
	param := ctx.Unique(&metadata.TemplateValueParameter{
		Tag: dwarf.TagTemplateValueParameter, Name: "P", Type: metadata.Ref(ptr),
		Value: metadata.TemplateValue{Symbol: "global"},
	})
	holder := ctx.Unique(&metadata.CompositeType{
		Tag: dwarf.TagStructureType, Name: "holder<&global>", File: file, Line: 3, SizeInBits: 8,
		TemplateParams: []metadata.NodeID{param}, Identifier: "_ZTS6holderIXadL_Z6globalEEE",
	})
	cuID := ctx.Distinct(&metadata.CompileUnit{
		Language: dwarf.LangCPlusPlus, File: file, Producer: "occ", DWOID: 0x1234,
		RetainedTypes: []metadata.NodeID{holder},
	})
	m.AddCompileUnit(cuID)

	c, err := NewContext(typeUnitPolicy(t, true), m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cu := c.NewCompileUnit(cuID)
	cu.Build(m)
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if n := len(c.TypeUnits()); n != 0 {
		t.Fatalf("type units = %d, want none", n)
	}
	e := cu.GetDIE(holder)
	if e.Has(dwarf.AttrSignature) || e.Has(dwarf.AttrDeclaration) {
		t.Fatalf("type was left as a stub")
	}
	if n := len(children(e, dwarf.TagTemplateValueParameter)); n != 1 {
		t.Fatalf("template parameters = %d, want 1", n)
	}
	if c.Addrs.IsEmpty() {
		t.Fatalf("address pool unused")
	}
	a, _ := cu.Root().Find(dwarf.AttrName)
	if a.Form != dwarf.FormGNUStrIndex {
		t.Fatalf("split unit string form = %s", a.Form)
	}
}

func TestTypeSignatureOf(t *testing.T) {
	tree := func(member string) *die.Entry {
		a := die.NewArena(1)
		s := a.NewEntry(dwarf.TagStructureType)
		s.AddValue(dwarf.AttrName, dwarf.FormString, die.String{Entry: &die.StringEntry{Str: "pair"}})
		s.AddValue(dwarf.AttrByteSize, dwarf.FormData1, die.Unsigned(8))
		i := a.NewEntry(dwarf.TagBaseType)
		i.AddValue(dwarf.AttrName, dwarf.FormString, die.String{Entry: &die.StringEntry{Str: "int"}})
		m := a.NewEntry(dwarf.TagMember)
		m.AddValue(dwarf.AttrName, dwarf.FormString, die.String{Entry: &die.StringEntry{Str: member}})
		r := die.NewRef(0)
		r.Bind(i)
		m.AddValue(dwarf.AttrType, dwarf.FormRef4, die.EntryRef{Ref: r})
		s.AddChild(m)
		return s
	}
	if TypeSignatureOf(tree("first")) != TypeSignatureOf(tree("first")) {
		t.Fatalf("equal trees hash differently")
	}
	if TypeSignatureOf(tree("first")) == TypeSignatureOf(tree("second")) {
		t.Fatalf("different trees hash equally")
	}
	if got := formatSignature(0xab); got != "00000000000000ab" {
		t.Fatalf("formatSignature = %q", got)
	}
}
