package dwarfunit

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// State is the lifecycle stage of a unit.
type State uint8

const (
	StateOpen State = iota
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SourceFile is one row of a unit's file table.
type SourceFile struct {
	Dir  string
	Name string
}

// unitHooks are the operations compile units and type units implement
// differently.
type unitHooks interface {
	sourceID(file, dir string) uint64
	isDwo() bool
	headerSize() uint32
	addGlobalName(name string, e *die.Entry, context metadata.NodeID)
	addGlobalType(ty metadata.NodeID, e *die.Entry, context metadata.NodeID)
	addTypeUnitType(owner *Unit, ty metadata.NodeID, ct *metadata.CompositeType, stub *die.Entry)
	markAddrPoolUsed()
	createOnDemand(node metadata.NodeID) *die.Entry
}

type containingType struct {
	entry  *die.Entry
	node   metadata.NodeID
	create bool
}

type nsKey struct {
	parent *die.Entry
	name   string
}

// Unit is the state shared by compile units and type units: the entry
// arena, the node-to-entry map, the per-node reference proxies and the
// attribute primitives.
type Unit struct {
	id     uint32
	dctx   *Context
	meta   *metadata.Context
	policy Policy
	lang   dwarf.Language
	arena  *die.Arena
	root   *die.Entry
	state  State
	fixing bool

	entries    map[metadata.NodeID]*die.Entry
	refs       map[metadata.NodeID]*die.Ref
	refOrder   []metadata.NodeID
	entryRefs  map[*die.Entry]*die.Ref
	nodeOf     map[*die.Entry]metadata.NodeID
	namespaces map[nsKey]*die.Entry
	containing []containingType
	indexType  *die.Entry

	files     []SourceFile
	fileIndex map[SourceFile]uint64

	hooks unitHooks
	log   zerolog.Logger

	// Offset is the section offset of the unit header and Length the size
	// of the unit including its header. Both are set by finalization.
	Offset uint32
	Length uint32
}

func (u *Unit) init(dctx *Context, id uint32, tag dwarf.Tag, lang dwarf.Language, hooks unitHooks) {
	u.id = id
	u.dctx = dctx
	u.meta = dctx.Meta
	u.policy = dctx.Policy
	u.lang = lang
	u.arena = die.NewArena(id)
	u.root = u.arena.NewEntry(tag)
	u.entries = make(map[metadata.NodeID]*die.Entry)
	u.refs = make(map[metadata.NodeID]*die.Ref)
	u.entryRefs = make(map[*die.Entry]*die.Ref)
	u.nodeOf = make(map[*die.Entry]metadata.NodeID)
	u.namespaces = make(map[nsKey]*die.Entry)
	u.fileIndex = make(map[SourceFile]uint64)
	u.hooks = hooks
	u.log = dctx.log.With().Uint32("unit", id).Str("tag", tag.String()).Logger()
}

// ID returns the unit id, unique within its Context.
func (u *Unit) ID() uint32 { return u.id }

// Root returns the unit entry.
func (u *Unit) Root() *die.Entry { return u.root }

// State returns the lifecycle stage.
func (u *Unit) State() State { return u.state }

// Language returns the source language of the unit.
func (u *Unit) Language() dwarf.Language { return u.lang }

// Files returns the file table in index order. Index 1 is the first row.
func (u *Unit) Files() []SourceFile { return u.files }

// EntryCount returns the number of entries allocated by the unit.
func (u *Unit) EntryCount() int { return u.arena.Len() }

// HeaderSize returns the size of the unit header.
func (u *Unit) HeaderSize() uint32 { return u.hooks.headerSize() }

// IsDwo reports whether the unit is emitted into a split DWARF object.
func (u *Unit) IsDwo() bool { return u.hooks.isDwo() }

// LineTableSymbol names the start of the unit's line program.
func (u *Unit) LineTableSymbol() string {
	return ".Lline_table_start" + strconv.FormatUint(uint64(u.id), 10)
}

func (u *Unit) mustBeOpen(op string) {
	if u.state == StateOpen || (u.state == StateFinalizing && u.fixing) {
		return
	}
	panic(errors.UnitNotOpen(uint(u.id), u.state.String(), op))
}

// Finish moves an open unit to Finalizing. No entries may be added after.
func (u *Unit) Finish() {
	u.mustBeOpen("Finish")
	u.state = StateFinalizing
	u.log.Debug().Int("entries", u.arena.Len()).Msg("unit populated")
}

// resolve maps a type reference to its node through the type identifier
// map and redirects identified declarations to their definitions.
func (u *Unit) resolve(r metadata.TypeRef) metadata.NodeID {
	return u.redirect(u.dctx.TypeMap.Resolve(r))
}

func (u *Unit) redirect(id metadata.NodeID) metadata.NodeID {
	ct := metadata.As[*metadata.CompositeType](u.meta, id)
	if ct == nil || ct.Identifier == "" || !ct.Flags.IsForwardDecl() {
		return id
	}
	def, ok := u.dctx.TypeMap.Lookup(ct.Identifier)
	if !ok || def == id {
		return id
	}
	if d := metadata.As[*metadata.CompositeType](u.meta, def); d != nil && !d.Flags.IsForwardDecl() {
		return def
	}
	return id
}

// GetDIE returns the entry inserted for node, or nil.
func (u *Unit) GetDIE(node metadata.NodeID) *die.Entry {
	return u.entries[node]
}

// InsertDIE records e as the entry of node and binds its proxy.
func (u *Unit) InsertDIE(node metadata.NodeID, e *die.Entry) {
	u.entries[node] = e
	if _, ok := u.nodeOf[e]; !ok {
		u.nodeOf[e] = node
	}
	r, ok := u.refs[node]
	if !ok {
		// An entry referenced before it was keyed keeps its proxy.
		if r, ok = u.entryRefs[e]; ok {
			u.addRef(node, r)
		}
		return
	}
	if !r.Bound() {
		r.Bind(e)
	}
	if _, ok := u.entryRefs[e]; !ok {
		u.entryRefs[e] = r
	}
}

// EntryRef returns the proxy for node, creating it unbound when no entry
// exists yet. Every use of a node within the unit shares one proxy.
func (u *Unit) EntryRef(node metadata.NodeID) *die.Ref {
	if r, ok := u.refs[node]; ok {
		return r
	}
	e := u.entries[node]
	if e != nil {
		if r, ok := u.entryRefs[e]; ok {
			if r.Node == 0 {
				r.Node = uint32(node)
			}
			u.addRef(node, r)
			return r
		}
	}
	r := die.NewRef(uint32(node))
	if e != nil {
		r.Bind(e)
		u.entryRefs[e] = r
	}
	u.addRef(node, r)
	return r
}

func (u *Unit) addRef(node metadata.NodeID, r *die.Ref) {
	u.refs[node] = r
	u.refOrder = append(u.refOrder, node)
}

// refTo returns the proxy of an existing entry, the node proxy when the
// entry was inserted for a node.
func (u *Unit) refTo(e *die.Entry) *die.Ref {
	if r, ok := u.entryRefs[e]; ok {
		return r
	}
	if node, ok := u.nodeOf[e]; ok {
		return u.EntryRef(node)
	}
	r := die.NewRef(0)
	r.Bind(e)
	u.entryRefs[e] = r
	return r
}

func (u *Unit) newChild(parent *die.Entry, tag dwarf.Tag) *die.Entry {
	u.mustBeOpen("create entry")
	e := u.arena.NewEntry(tag)
	parent.AddChild(e)
	return e
}

func (u *Unit) createAndAddDIE(tag dwarf.Tag, parent *die.Entry, node metadata.NodeID) *die.Entry {
	e := u.newChild(parent, tag)
	if node != metadata.NullID {
		u.InsertDIE(node, e)
	}
	return e
}

// AddFlag adds a true flag attribute.
func (u *Unit) AddFlag(e *die.Entry, attr dwarf.Attribute) {
	u.mustBeOpen("AddFlag")
	if u.policy.Has(FeatureFlagPresent) {
		e.AddValue(attr, dwarf.FormFlagPresent, die.Flag(true))
		return
	}
	e.AddValue(attr, dwarf.FormFlag, die.Flag(true))
}

// AddUInt adds an unsigned constant. A zero form picks the smallest data
// form that holds v.
func (u *Unit) AddUInt(e *die.Entry, attr dwarf.Attribute, form dwarf.Form, v uint64) {
	u.mustBeOpen("AddUInt")
	if form == 0 {
		form = bestUnsignedForm(v)
	} else if !die.Fits(form, v) {
		panic(errors.FormOverflow(form.String(), v))
	}
	e.AddValue(attr, form, die.Unsigned(v))
}

// AddSInt adds a signed constant. A zero form picks the smallest data form
// that holds v.
func (u *Unit) AddSInt(e *die.Entry, attr dwarf.Attribute, form dwarf.Form, v int64) {
	u.mustBeOpen("AddSInt")
	if form == 0 {
		form = bestSignedForm(v)
	} else if !die.FitsSigned(form, v) {
		panic(errors.FormOverflow(form.String(), uint64(v)))
	}
	e.AddValue(attr, form, die.Signed(v))
}

func bestUnsignedForm(v uint64) dwarf.Form {
	switch {
	case v <= math.MaxUint8:
		return dwarf.FormData1
	case v <= math.MaxUint16:
		return dwarf.FormData2
	case v <= math.MaxUint32:
		return dwarf.FormData4
	}
	return dwarf.FormData8
}

func bestSignedForm(v int64) dwarf.Form {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return dwarf.FormData1
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return dwarf.FormData2
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return dwarf.FormData4
	}
	return dwarf.FormData8
}

// AddString adds a pooled string.
func (u *Unit) AddString(e *die.Entry, attr dwarf.Attribute, s string) {
	u.mustBeOpen("AddString")
	e.AddValue(attr, u.policy.StringForm(u.hooks.isDwo()), die.String{Entry: u.dctx.Strings.Get(s)})
}

// AddLabel adds a symbolic value in the given form.
func (u *Unit) AddLabel(e *die.Entry, attr dwarf.Attribute, form dwarf.Form, sym string) {
	u.mustBeOpen("AddLabel")
	e.AddValue(attr, form, die.Label{Symbol: sym})
}

// AddLabelAddress adds an address, through the address pool in split units.
func (u *Unit) AddLabelAddress(e *die.Entry, attr dwarf.Attribute, sym string) {
	u.mustBeOpen("AddLabelAddress")
	if !u.hooks.isDwo() {
		e.AddValue(attr, dwarf.FormAddr, die.Label{Symbol: sym})
		return
	}
	slot := u.dctx.Addrs.Get(sym, false)
	u.hooks.markAddrPoolUsed()
	e.AddValue(attr, u.policy.AddrIndexForm(), die.Label{Symbol: sym, Index: &slot.Index})
}

// AddSectionOffset adds an offset into another debug section.
func (u *Unit) AddSectionOffset(e *die.Entry, attr dwarf.Attribute, v uint64) {
	u.mustBeOpen("AddSectionOffset")
	form := u.policy.SectionOffsetForm()
	if !die.Fits(form, v) {
		panic(errors.FormOverflow(form.String(), v))
	}
	e.AddValue(attr, form, die.Unsigned(v))
}

// AddSectionLabel adds a relocated offset into another debug section.
func (u *Unit) AddSectionLabel(e *die.Entry, attr dwarf.Attribute, sym string) {
	u.mustBeOpen("AddSectionLabel")
	e.AddValue(attr, u.policy.SectionOffsetForm(), die.Label{Symbol: sym})
}

// AddLabelDelta adds the difference of two labels.
func (u *Unit) AddLabelDelta(e *die.Entry, attr dwarf.Attribute, hi, lo string) {
	u.mustBeOpen("AddLabelDelta")
	e.AddValue(attr, dwarf.FormData4, die.Delta{Hi: hi, Lo: lo})
}

// AddOpAddress appends the address of sym to an expression.
func (u *Unit) AddOpAddress(loc *die.Loc, sym string) {
	u.mustBeOpen("AddOpAddress")
	if !u.hooks.isDwo() {
		addOp(loc, dwarf.OpAddr)
		loc.Add(dwarf.FormAddr, die.Label{Symbol: sym})
		return
	}
	slot := u.dctx.Addrs.Get(sym, false)
	u.hooks.markAddrPoolUsed()
	addOp(loc, u.policy.AddrIndexOp())
	loc.Add(u.policy.AddrIndexForm(), die.Label{Symbol: sym, Index: &slot.Index})
}

// AddDIEEntry adds a reference through a proxy.
func (u *Unit) AddDIEEntry(e *die.Entry, attr dwarf.Attribute, ref *die.Ref) {
	u.mustBeOpen("AddDIEEntry")
	form := dwarf.FormRef4
	if t := ref.Target(); t != nil && t.Unit() != u.id {
		form = dwarf.FormRefAddr
	}
	e.AddValue(attr, form, die.EntryRef{Ref: ref})
}

// AddEntry adds a reference to an existing entry.
func (u *Unit) AddEntry(e *die.Entry, attr dwarf.Attribute, target *die.Entry) {
	u.AddDIEEntry(e, attr, u.refTo(target))
}

// AddTypeSignature adds a reference to a type unit.
func (u *Unit) AddTypeSignature(e *die.Entry, sig *die.TypeSignature) {
	u.mustBeOpen("AddTypeSignature")
	e.AddValue(dwarf.AttrSignature, dwarf.FormRefSig8, sig)
}

// AddBlock adds a block or location expression. The form is provisional
// until finalization, when the final content size is known.
func (u *Unit) AddBlock(e *die.Entry, attr dwarf.Attribute, v die.Value) {
	u.mustBeOpen("AddBlock")
	e.AddValue(attr, u.blockForm(v), v)
}

func (u *Unit) blockForm(v die.Value) dwarf.Form {
	p := u.policy.FormParams()
	switch b := v.(type) {
	case *die.Loc:
		if u.policy.Has(FeatureExprloc) {
			return dwarf.FormExprloc
		}
		return blockFormFor(b.ContentSize(p))
	case *die.Block:
		return blockFormFor(b.ContentSize(p))
	}
	panic("dwarfunit: AddBlock with a non-block value")
}

func blockFormFor(n int) dwarf.Form {
	switch {
	case n <= math.MaxUint8:
		return dwarf.FormBlock1
	case n <= math.MaxUint16:
		return dwarf.FormBlock2
	case n <= math.MaxUint32:
		return dwarf.FormBlock4
	}
	return dwarf.FormBlock
}

// AddSourceLine adds decl_file and decl_line. Line 0 adds nothing.
func (u *Unit) AddSourceLine(e *die.Entry, line uint, file *metadata.File) {
	if line == 0 {
		return
	}
	var name, dir string
	if file != nil {
		name, dir = file.Filename, file.Directory
	}
	id := u.hooks.sourceID(name, dir)
	u.AddUInt(e, dwarf.AttrDeclFile, 0, id)
	u.AddUInt(e, dwarf.AttrDeclLine, 0, uint64(line))
}

func (u *Unit) addSourceLineOf(e *die.Entry, node metadata.NodeID) {
	u.AddSourceLine(e, u.meta.Line(node), u.meta.FileOf(node))
}

// ownSourceID numbers files in this unit's table starting at 1.
func (u *Unit) ownSourceID(file, dir string) uint64 {
	key := SourceFile{Dir: dir, Name: file}
	if id, ok := u.fileIndex[key]; ok {
		return id
	}
	u.files = append(u.files, key)
	id := uint64(len(u.files))
	u.fileIndex[key] = id
	return id
}

// AddConstantValue adds an integer or floating constant as const_value.
// The signedness of integers follows ty.
func (u *Unit) AddConstantValue(e *die.Entry, c *metadata.Constant, ty metadata.NodeID) {
	if c == nil {
		return
	}
	if c.Kind == metadata.ConstantFloat {
		u.AddConstantFPValue(e, c.Float)
		return
	}
	if u.isUnsignedType(ty) {
		u.AddUInt(e, dwarf.AttrConstValue, dwarf.FormUdata, uint64(c.Int))
		return
	}
	u.AddSInt(e, dwarf.AttrConstValue, dwarf.FormSdata, c.Int)
}

// AddConstantFPValue adds a double as a block of its bytes in target order.
func (u *Unit) AddConstantFPValue(e *die.Entry, f float64) {
	bits := math.Float64bits(f)
	b := u.arena.NewBlock()
	for i := 0; i < 8; i++ {
		shift := uint(i) * 8
		if !u.policy.LittleEndian {
			shift = uint(7-i) * 8
		}
		b.Add(dwarf.FormData1, die.Unsigned((bits>>shift)&0xff))
	}
	u.AddBlock(e, dwarf.AttrConstValue, b)
}

func (u *Unit) isUnsignedType(ty metadata.NodeID) bool {
	seen := make(map[metadata.NodeID]bool)
	for ty != metadata.NullID && !seen[ty] {
		seen[ty] = true
		switch n := u.meta.Node(ty).(type) {
		case *metadata.CompositeType:
			return n.Tag != dwarf.TagEnumerationType
		case *metadata.DerivedType:
			switch n.Tag {
			case dwarf.TagPointerType, dwarf.TagPtrToMemberType,
				dwarf.TagReferenceType, dwarf.TagRvalueReferenceType:
				return true
			}
			ty = u.resolve(n.BaseType)
		case *metadata.BasicType:
			switch n.Encoding {
			case dwarf.EncUnsigned, dwarf.EncUnsignedChar, dwarf.EncUTF, dwarf.EncBoolean:
				return true
			}
			return false
		default:
			return false
		}
	}
	return false
}

// AddLinkageName adds the mangled name. A leading \x01 marks a name that
// must not be decorated further and is dropped.
func (u *Unit) AddLinkageName(e *die.Entry, name string) {
	if name == "" {
		return
	}
	u.AddString(e, u.policy.LinkageNameAttr(), strings.TrimPrefix(name, "\x01"))
}

// AddType adds a reference to the entry of type ty.
func (u *Unit) AddType(e *die.Entry, ty metadata.NodeID, attr dwarf.Attribute) {
	if attr == 0 {
		attr = dwarf.AttrType
	}
	t := u.GetOrCreateTypeDIE(ty)
	if t == nil {
		return
	}
	u.AddEntry(e, attr, t)
}

func (u *Unit) addAccessibility(e *die.Entry, f metadata.Flags) {
	switch {
	case f.IsProtected():
		u.AddUInt(e, dwarf.AttrAccessibility, dwarf.FormData1, dwarf.AccessProtected)
	case f.IsPrivate():
		u.AddUInt(e, dwarf.AttrAccessibility, dwarf.FormData1, dwarf.AccessPrivate)
	case f.IsPublic():
		u.AddUInt(e, dwarf.AttrAccessibility, dwarf.FormData1, dwarf.AccessPublic)
	}
}

func addOp(loc *die.Loc, op uint8) { loc.Add(dwarf.FormData1, die.Unsigned(op)) }

func addULEB(loc *die.Loc, v uint64) { loc.Add(dwarf.FormUdata, die.Unsigned(v)) }

func addSLEB(loc *die.Loc, v int64) { loc.Add(dwarf.FormSdata, die.Signed(v)) }

// AddRegisterOpPiece appends a register location, optionally as a piece.
// It reports false and appends nothing when reg has no DWARF number.
func (u *Unit) AddRegisterOpPiece(loc *die.Loc, reg int, sizeInBits, offsetInBits uint64) bool {
	if reg < 0 {
		return false
	}
	if reg < 32 {
		addOp(loc, dwarf.OpReg0+uint8(reg))
	} else {
		addOp(loc, dwarf.OpRegx)
		addULEB(loc, uint64(reg))
	}
	if sizeInBits > 0 {
		addOpPiece(loc, sizeInBits, offsetInBits)
	}
	return true
}

func addOpPiece(loc *die.Loc, sizeInBits, offsetInBits uint64) {
	if offsetInBits == 0 && sizeInBits%8 == 0 {
		addOp(loc, dwarf.OpPiece)
		addULEB(loc, sizeInBits/8)
		return
	}
	addOp(loc, dwarf.OpBitPiece)
	addULEB(loc, sizeInBits)
	addULEB(loc, offsetInBits)
}

// AddRegisterOffset appends the address reg+offset, using the frame base
// when reg is the frame register. It reports false when reg has no DWARF
// number.
func (u *Unit) AddRegisterOffset(loc *die.Loc, reg int, offset int64) bool {
	switch {
	case reg < 0:
		return false
	case reg == u.policy.FrameRegister:
		addOp(loc, dwarf.OpFbreg)
	case reg < 32:
		addOp(loc, dwarf.OpBreg0+uint8(reg))
	default:
		addOp(loc, dwarf.OpBregx)
		addULEB(loc, uint64(reg))
	}
	addSLEB(loc, offset)
	return true
}
