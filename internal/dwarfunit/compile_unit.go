package dwarfunit

import (
	"sort"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// Range is an address range delimited by two labels.
type Range struct {
	Begin string
	End   string
}

// LineRow is the source position of one instruction slot.
type LineRow struct {
	Line   uint
	Column uint
}

// FunctionLines are the positions of a function's instructions, in order,
// against a file of the unit's file table.
type FunctionLines struct {
	Name string
	File uint64
	Rows []LineRow
}

// FunctionBegin is the label of the first instruction of a function.
func FunctionBegin(name string) string { return name }

// FunctionEnd is the label just past the last instruction of a function.
func FunctionEnd(name string) string { return ".Lfunc_end." + name }

type scopeKey struct {
	scope     metadata.NodeID
	inlinedAt metadata.NodeID
}

// CompileUnit builds the entry tree of one compile unit node.
type CompileUnit struct {
	Unit

	node   metadata.NodeID
	cuNode *metadata.CompileUnit

	globalNames map[string]*die.Entry
	globalTypes map[string]*die.Entry
	ranges      []Range
	lines       []FunctionLines

	subprograms map[metadata.NodeID]bool
	finished    map[metadata.NodeID]bool
	scopes      map[scopeKey]*die.Entry

	typeUnits           map[metadata.NodeID]*TypeUnit
	tuUnderConstruction []*TypeUnit
	tuAddrUsed          bool
	ownedTypeUnits      []*TypeUnit
}

// NewCompileUnit creates the unit for compile unit node cu and fills in
// its unit entry. Units must be created in a fixed order, before parallel
// population starts.
func (c *Context) NewCompileUnit(cu metadata.NodeID) *CompileUnit {
	n := metadata.As[*metadata.CompileUnit](c.Meta, cu)
	if n == nil {
		panic(errors.InvalidInput("compile unit", "node is not a compile unit"))
	}
	u := &CompileUnit{
		node:        cu,
		cuNode:      n,
		globalNames: make(map[string]*die.Entry),
		globalTypes: make(map[string]*die.Entry),
		subprograms: make(map[metadata.NodeID]bool),
		finished:    make(map[metadata.NodeID]bool),
		scopes:      make(map[scopeKey]*die.Entry),
		typeUnits:   make(map[metadata.NodeID]*TypeUnit),
	}
	u.init(c, c.newUnitID(), dwarf.TagCompileUnit, n.Language, u)
	u.InsertDIE(cu, u.root)
	for _, sp := range n.Subprograms {
		u.subprograms[sp] = true
	}
	u.constructUnitEntry()

	c.mu.Lock()
	c.compileUnits = append(c.compileUnits, u)
	c.mu.Unlock()
	return u
}

func (u *CompileUnit) constructUnitEntry() {
	n := u.cuNode
	root := u.root
	var file metadata.File
	if f := metadata.As[*metadata.File](u.meta, n.File); f != nil {
		file = *f
	}
	u.AddString(root, dwarf.AttrProducer, n.Producer)
	u.AddUInt(root, dwarf.AttrLanguage, dwarf.FormData2, uint64(n.Language))
	u.AddString(root, dwarf.AttrName, file.Filename)
	if !u.policy.SplitDwarf {
		u.AddSectionLabel(root, dwarf.AttrStmtList, u.LineTableSymbol())
		if file.Directory != "" {
			u.AddString(root, dwarf.AttrCompDir, file.Directory)
		}
	}
	if n.Optimized {
		u.AddFlag(root, dwarf.AttrAPPLEOptimized)
	}
	if n.Flags != "" {
		u.AddString(root, dwarf.AttrAPPLEFlags, n.Flags)
	}
	if n.RuntimeVersion != 0 {
		u.AddUInt(root, dwarf.AttrAPPLEMajorRuntimeVers, dwarf.FormData1, uint64(n.RuntimeVersion))
	}
	if n.DWOID != 0 {
		u.AddUInt(root, dwarf.AttrGNUDwoID, dwarf.FormData8, n.DWOID)
		if n.SplitDebugFilename != "" {
			u.AddString(root, dwarf.AttrGNUDwoName, n.SplitDebugFilename)
		}
	}
}

// Node returns the compile unit node.
func (u *CompileUnit) Node() metadata.NodeID { return u.node }

// GlobalNames returns the public names of the unit keyed by qualified name.
func (u *CompileUnit) GlobalNames() map[string]*die.Entry { return u.globalNames }

// GlobalTypes returns the public types of the unit keyed by qualified name.
func (u *CompileUnit) GlobalTypes() map[string]*die.Entry { return u.globalTypes }

// Ranges returns the address ranges covered by the unit's functions.
func (u *CompileUnit) Ranges() []Range { return u.ranges }

// TypeUnits returns the type units this unit registered.
func (u *CompileUnit) TypeUnits() []*TypeUnit { return u.ownedTypeUnits }

func (u *CompileUnit) sourceID(file, dir string) uint64 { return u.ownSourceID(file, dir) }

func (u *CompileUnit) isDwo() bool { return u.policy.SplitDwarf }

func (u *CompileUnit) headerSize() uint32 { return u.policy.CompileUnitHeaderSize(u.isDwo()) }

func (u *CompileUnit) addGlobalName(name string, e *die.Entry, context metadata.NodeID) {
	u.globalNames[u.ParentContextString(context)+name] = e
}

func (u *CompileUnit) addGlobalType(ty metadata.NodeID, e *die.Entry, context metadata.NodeID) {
	u.globalTypes[u.ParentContextString(context)+u.meta.Name(ty)] = e
}

func (u *CompileUnit) addTypeUnitType(owner *Unit, ty metadata.NodeID, ct *metadata.CompositeType, stub *die.Entry) {
	u.addDwarfTypeUnitType(owner, ty, ct, stub)
}

func (u *CompileUnit) markAddrPoolUsed() {
	if len(u.tuUnderConstruction) > 0 {
		u.tuAddrUsed = true
	}
}

func (u *CompileUnit) createOnDemand(node metadata.NodeID) *die.Entry {
	switch u.meta.KindOf(node) {
	case metadata.KindGlobalVariable:
		return u.GetOrCreateGlobalVariableDIE(node)
	case metadata.KindSubprogram:
		e := u.GetOrCreateSubprogramDIE(node, false)
		u.ensureSubprogramAttributes(node, e, false)
		return e
	}
	return u.Unit.createOnDemand(node)
}

// Lines returns the line rows of the functions built in the unit.
func (u *CompileUnit) Lines() []FunctionLines { return u.lines }

// Build populates the unit from its compile unit node and the function
// bodies of m: globals, enums, retained types, imported entities, then one
// subprogram entry per function in module order, then the subprograms that
// have no body.
func (u *CompileUnit) Build(m *metadata.Module) {
	u.mustBeOpen("Build")
	n := u.cuNode
	for _, gv := range n.GlobalVariables {
		u.GetOrCreateGlobalVariableDIE(gv)
	}
	for _, ty := range n.EnumTypes {
		u.GetOrCreateTypeDIE(ty)
	}
	for _, ty := range n.RetainedTypes {
		u.GetOrCreateTypeDIE(ty)
	}
	for _, ie := range n.ImportedEntities {
		u.constructImportedEntityDIE(ie)
	}

	spByFunction := debuginfo.MakeSubprogramMap(m)
	for _, fn := range m.Functions {
		sp := fn.Subprogram
		if sp == metadata.NullID {
			sp = spByFunction[fn.Name]
		}
		if !u.subprograms[sp] || u.finished[sp] {
			continue
		}
		u.constructFunction(fn, sp)
	}
	for _, sp := range n.Subprograms {
		if !u.finished[sp] {
			u.finishSubprogramDefinition(sp)
		}
	}
	u.attachRangesOrLowHighPC()
	u.log.Debug().Int("entries", u.arena.Len()).Int("type_units", len(u.ownedTypeUnits)).Msg("compile unit built")
}

// GetOrCreateGlobalVariableDIE returns the entry of a global variable,
// with its location, constant value or static member specification.
func (u *CompileUnit) GetOrCreateGlobalVariableDIE(gv metadata.NodeID) *die.Entry {
	if e := u.entries[gv]; e != nil {
		return e
	}
	n := metadata.As[*metadata.GlobalVariable](u.meta, gv)
	if n == nil {
		return nil
	}
	parent := u.GetOrCreateContextDIE(n.Scope)
	e := u.createAndAddDIE(dwarf.TagVariable, parent, gv)

	ty := u.resolve(n.Type)
	declContext := n.Scope
	if sdm := n.StaticDataMemberDeclaration; sdm != metadata.NullID {
		declContext = u.resolve(u.meta.Scope(sdm))
		if spec := u.GetOrCreateStaticMemberDIE(sdm); spec != nil {
			u.AddEntry(e, dwarf.AttrSpecification, spec)
		}
	} else {
		u.AddString(e, dwarf.AttrName, n.Name)
		u.AddType(e, ty, 0)
		if !n.LocalToUnit {
			u.AddFlag(e, dwarf.AttrExternal)
		}
		u.AddSourceLine(e, n.Line, metadata.As[*metadata.File](u.meta, n.File))
	}
	if !n.Definition {
		u.AddFlag(e, dwarf.AttrDeclaration)
	} else {
		u.addGlobalName(n.Name, e, declContext)
	}

	accel := false
	if v := n.Variable; v != nil {
		switch {
		case v.Symbol != "":
			accel = true
			loc := u.arena.NewLoc()
			if v.ThreadLocal {
				u.addThreadLocalAddress(loc, v.Symbol)
			} else {
				u.AddOpAddress(loc, v.Symbol)
				if v.Offset != 0 {
					// A member of a merged global.
					addOp(loc, dwarf.OpConstu)
					addULEB(loc, v.Offset)
					addOp(loc, dwarf.OpPlus)
				}
			}
			u.AddBlock(e, dwarf.AttrLocation, loc)
			if v.Offset == 0 {
				u.AddLinkageName(e, n.LinkageName)
			}
		case v.Constant != nil:
			u.AddConstantValue(e, v.Constant, ty)
		}
	}
	if accel {
		u.dctx.Accel.Names.Add(n.Name, e, 0)
		if n.LinkageName != "" && n.LinkageName != n.Name {
			u.dctx.Accel.Names.Add(n.LinkageName, e, 0)
		}
	}
	return e
}

// addThreadLocalAddress emits the module-relative offset of a TLS symbol
// followed by the TLS lookup opcode.
func (u *CompileUnit) addThreadLocalAddress(loc *die.Loc, sym string) {
	if !u.isDwo() {
		if u.policy.AddrSize == 4 {
			addOp(loc, dwarf.OpConst4u)
			loc.Add(dwarf.FormData4, die.Label{Symbol: sym + "@dtpoff"})
		} else {
			addOp(loc, dwarf.OpConst8u)
			loc.Add(dwarf.FormData8, die.Label{Symbol: sym + "@dtpoff"})
		}
	} else {
		slot := u.dctx.Addrs.Get(sym, true)
		u.markAddrPoolUsed()
		addOp(loc, dwarf.OpGNUConstIndex)
		loc.Add(u.policy.AddrIndexForm(), die.Label{Symbol: sym, Index: &slot.Index})
	}
	if u.policy.GNUTLSOpcode {
		addOp(loc, dwarf.OpGNUPushTLSAddress)
	} else {
		addOp(loc, dwarf.OpFormTLSAddress)
	}
}

func (u *CompileUnit) constructImportedEntityDIE(ie metadata.NodeID) *die.Entry {
	n := metadata.As[*metadata.ImportedEntity](u.meta, ie)
	if n == nil {
		return nil
	}
	parent := u.GetOrCreateContextDIE(n.Scope)
	tag := n.Tag
	if tag == 0 {
		tag = dwarf.TagImportedDeclaration
	}
	e := u.createAndAddDIE(tag, parent, ie)

	entity := u.resolve(n.Entity)
	var target *die.Entry
	switch u.meta.KindOf(entity) {
	case metadata.KindNamespace:
		target = u.GetOrCreateNameSpace(entity)
	case metadata.KindSubprogram:
		target = u.GetOrCreateSubprogramDIE(entity, false)
	default:
		if u.meta.KindOf(entity).IsType() {
			target = u.GetOrCreateTypeDIE(entity)
		}
	}
	u.AddSourceLine(e, n.Line, u.meta.FileOf(n.Scope))
	if target != nil {
		u.AddEntry(e, dwarf.AttrImport, target)
	} else if entity != metadata.NullID {
		// Bound when the entity's entry is inserted, or at finalization.
		u.AddDIEEntry(e, dwarf.AttrImport, u.EntryRef(entity))
	}
	if n.Name != "" {
		u.AddString(e, dwarf.AttrName, n.Name)
	}
	return e
}

func (u *CompileUnit) attachLowHighPC(e *die.Entry, begin, end string) {
	u.AddLabelAddress(e, dwarf.AttrLowPC, begin)
	if u.policy.Has(FeatureHighPCOffset) {
		u.AddLabelDelta(e, dwarf.AttrHighPC, end, begin)
	} else {
		u.AddLabelAddress(e, dwarf.AttrHighPC, end)
	}
}

// addRange extends the last range when functions share a section.
func (u *CompileUnit) addRange(r Range) {
	if n := len(u.ranges); n > 0 && !u.policy.FunctionSections {
		u.ranges[n-1].End = r.End
		return
	}
	u.ranges = append(u.ranges, r)
}

// RangesSymbol names the unit's range list.
func (u *CompileUnit) RangesSymbol() string {
	return ".Ldebug_ranges" + u.LineTableSymbol()[len(".Lline_table_start"):]
}

func (u *CompileUnit) attachRangesOrLowHighPC() {
	switch len(u.ranges) {
	case 0:
	case 1:
		u.attachLowHighPC(u.root, u.ranges[0].Begin, u.ranges[0].End)
	default:
		u.AddUInt(u.root, dwarf.AttrLowPC, dwarf.FormAddr, 0)
		u.AddSectionLabel(u.root, dwarf.AttrRanges, u.RangesSymbol())
	}
}

// ensureSubprogramAttributes fills in a definition entry once.
func (u *CompileUnit) ensureSubprogramAttributes(sp metadata.NodeID, e *die.Entry, minimal bool) {
	if u.finished[sp] {
		return
	}
	n := metadata.As[*metadata.Subprogram](u.meta, sp)
	if n == nil || !n.Definition {
		return
	}
	u.finished[sp] = true
	u.applySubprogramAttributes(sp, n, e, minimal)
	if minimal {
		return
	}
	context := u.resolve(n.Scope)
	if n.Declaration != metadata.NullID {
		context = u.resolve(u.meta.Scope(n.Declaration))
	}
	u.addGlobalName(n.Name, e, context)
}

func (u *CompileUnit) addSubprogramNames(n *metadata.Subprogram, e *die.Entry) {
	if n.Name != "" {
		u.dctx.Accel.Names.Add(n.Name, e, 0)
	}
	if n.LinkageName != "" && n.LinkageName != n.Name {
		u.dctx.Accel.Names.Add(n.LinkageName, e, 0)
	}
}

// finishSubprogramDefinition builds a subprogram that has no function
// body, together with its declared variables.
func (u *CompileUnit) finishSubprogramDefinition(sp metadata.NodeID) {
	n := metadata.As[*metadata.Subprogram](u.meta, sp)
	if n == nil {
		return
	}
	e := u.GetOrCreateSubprogramDIE(sp, false)
	u.ensureSubprogramAttributes(sp, e, false)
	if !n.Definition {
		return
	}
	for _, v := range n.Variables {
		lv := metadata.As[*metadata.LocalVariable](u.meta, v)
		if lv == nil {
			continue
		}
		u.constructVariableDIE(u.scopeDIE(e, sp, lv.Scope, lv.InlinedAt), v, lv, nil)
	}
}

type pendingVariable struct {
	id        metadata.NodeID
	node      *metadata.LocalVariable
	inst      *metadata.Instruction
	inlinedAt metadata.NodeID
	order     int
}

// constructFunction builds the definition entry of a function with a body:
// its address range and frame base, its inlined call sites, and one entry
// per described variable. Parameters precede locals, ordered by argument
// number.
func (u *CompileUnit) constructFunction(fn *metadata.Function, sp metadata.NodeID) {
	n := metadata.As[*metadata.Subprogram](u.meta, sp)
	e := u.GetOrCreateSubprogramDIE(sp, false)
	u.ensureSubprogramAttributes(sp, e, false)

	begin, end := FunctionBegin(fn.Name), FunctionEnd(fn.Name)
	u.attachLowHighPC(e, begin, end)
	if u.policy.FrameRegister >= 0 {
		loc := u.arena.NewLoc()
		if u.AddRegisterOpPiece(loc, u.policy.FrameRegister, 0, 0) {
			u.AddBlock(e, dwarf.AttrFrameBase, loc)
		}
	}
	u.addSubprogramNames(n, e)
	u.addRange(Range{Begin: begin, End: end})

	fl := FunctionLines{Name: fn.Name}
	if f := u.meta.FileOf(sp); f != nil {
		fl.File = u.hooks.sourceID(f.Filename, f.Directory)
	}
	row := LineRow{Line: n.ScopeLine}
	if row.Line == 0 {
		row.Line = n.Line
	}

	var vars []pendingVariable
	described := make(map[metadata.NodeID]bool)
	fn.Instructions(func(inst *metadata.Instruction) {
		loc := metadata.As[*metadata.Location](u.meta, inst.DebugLoc)
		if loc != nil && loc.Line != 0 {
			row = LineRow{Line: loc.Line, Column: loc.Column}
		}
		fl.Rows = append(fl.Rows, row)
		if loc != nil && loc.InlinedAt != metadata.NullID {
			u.inlinedScope(e, sp, loc.InlinedAt, debuginfo.SubprogramFor(u.meta, loc.Scope))
		}
		if !inst.IsDebugIntrinsic() || described[inst.Variable] {
			return
		}
		lv := metadata.As[*metadata.LocalVariable](u.meta, inst.Variable)
		if lv == nil {
			return
		}
		described[inst.Variable] = true
		ia := lv.InlinedAt
		if loc != nil && loc.InlinedAt != metadata.NullID {
			ia = loc.InlinedAt
		}
		vars = append(vars, pendingVariable{id: inst.Variable, node: lv, inst: inst, inlinedAt: ia, order: len(vars)})
	})
	if fl.File != 0 {
		u.lines = append(u.lines, fl)
	}
	for _, v := range n.Variables {
		if described[v] {
			continue
		}
		if lv := metadata.As[*metadata.LocalVariable](u.meta, v); lv != nil {
			vars = append(vars, pendingVariable{id: v, node: lv, inlinedAt: lv.InlinedAt, order: len(vars)})
		}
	}
	sort.SliceStable(vars, func(i, j int) bool {
		ai, aj := vars[i].node.Arg, vars[j].node.Arg
		switch {
		case ai != 0 && aj != 0:
			return ai < aj
		case ai != 0:
			return true
		case aj != 0:
			return false
		}
		return vars[i].order < vars[j].order
	})
	for _, v := range vars {
		u.constructVariableDIE(u.scopeDIE(e, sp, v.node.Scope, v.inlinedAt), v.id, v.node, v.inst)
	}
}

// scopeDIE returns the entry that holds variables of scope, as inlined at
// inlinedAt. Lexical blocks are created on first use.
func (u *CompileUnit) scopeDIE(fnEntry *die.Entry, fnSP, scope, inlinedAt metadata.NodeID) *die.Entry {
	switch n := u.meta.Node(scope).(type) {
	case *metadata.Subprogram:
		if inlinedAt == metadata.NullID {
			return fnEntry
		}
		return u.inlinedScope(fnEntry, fnSP, inlinedAt, scope)
	case *metadata.LexicalBlock:
		if inlinedAt == metadata.NullID {
			if e := u.entries[scope]; e != nil {
				return e
			}
		}
		key := scopeKey{scope: scope, inlinedAt: inlinedAt}
		if e := u.scopes[key]; e != nil {
			return e
		}
		parent := u.scopeDIE(fnEntry, fnSP, n.Scope, inlinedAt)
		e := u.newChild(parent, dwarf.TagLexicalBlock)
		if inlinedAt == metadata.NullID {
			u.InsertDIE(scope, e)
		}
		u.scopes[key] = e
		return e
	case *metadata.LexicalBlockFile:
		return u.scopeDIE(fnEntry, fnSP, n.Scope, inlinedAt)
	}
	return fnEntry
}

// inlinedScope returns the inlined_subroutine entry for callee inlined at
// call site inlinedAt. Callees from other compile units get a minimal
// declaration in this unit.
func (u *CompileUnit) inlinedScope(fnEntry *die.Entry, fnSP, inlinedAt, callee metadata.NodeID) *die.Entry {
	key := scopeKey{scope: callee, inlinedAt: inlinedAt}
	if e := u.scopes[key]; e != nil {
		return e
	}
	site := metadata.As[*metadata.Location](u.meta, inlinedAt)
	if site == nil || callee == metadata.NullID {
		return fnEntry
	}
	parent := u.scopeDIE(fnEntry, fnSP, site.Scope, site.InlinedAt)
	e := u.newChild(parent, dwarf.TagInlinedSubroutine)
	u.scopes[key] = e

	minimal := !u.subprograms[callee]
	origin := u.GetOrCreateSubprogramDIE(callee, minimal)
	u.ensureSubprogramAttributes(callee, origin, minimal)
	u.AddEntry(e, dwarf.AttrAbstractOrigin, origin)
	if f := u.meta.FileOf(site.Scope); f != nil {
		u.AddUInt(e, dwarf.AttrCallFile, 0, u.sourceID(f.Filename, f.Directory))
	}
	if site.Line != 0 {
		u.AddUInt(e, dwarf.AttrCallLine, 0, uint64(site.Line))
	}
	return e
}

// constructVariableDIE adds a parameter or local variable under parent.
// inst is the debug intrinsic that describes its location, or nil when
// the variable was optimized out.
func (u *CompileUnit) constructVariableDIE(parent *die.Entry, id metadata.NodeID, lv *metadata.LocalVariable, inst *metadata.Instruction) *die.Entry {
	tag := dwarf.TagVariable
	if lv.Arg != 0 {
		tag = dwarf.TagFormalParameter
	}
	e := u.newChild(parent, tag)
	if lv.Name != "" {
		u.AddString(e, dwarf.AttrName, lv.Name)
	}
	u.AddSourceLine(e, lv.Line, metadata.As[*metadata.File](u.meta, lv.File))
	ty := u.resolve(lv.Type)
	u.AddType(e, ty, 0)
	if lv.Flags.IsArtificial() {
		u.AddFlag(e, dwarf.AttrArtificial)
	}
	if inst != nil {
		u.addVariableLocation(e, inst, ty)
	}
	return e
}

func (u *CompileUnit) addVariableLocation(e *die.Entry, inst *metadata.Instruction, ty metadata.NodeID) {
	v := inst.Value
	loc := u.arena.NewLoc()
	switch v.Kind {
	case metadata.OperandFrameOffset:
		if !u.AddRegisterOffset(loc, u.policy.FrameRegister, v.FrameOffset) {
			return
		}
	case metadata.OperandRegister:
		var ok bool
		if inst.Callee == metadata.IntrinsicDeclare {
			// A declared variable lives at the address held in the register.
			ok = u.AddRegisterOffset(loc, v.DWARFRegister, 0)
		} else {
			ok = u.AddRegisterOpPiece(loc, v.DWARFRegister, 0, 0)
		}
		if !ok {
			u.log.Debug().Uint("register", v.Register).Msg("register has no DWARF number; location dropped")
			return
		}
	case metadata.OperandConstant:
		u.AddConstantValue(e, v.Constant, ty)
		return
	default:
		return
	}
	if expr := metadata.As[*metadata.Expression](u.meta, inst.Expression); expr != nil {
		appendExpression(loc, expr.Ops)
	}
	u.AddBlock(e, dwarf.AttrLocation, loc)
}

// appendExpression copies complex address operations after a base
// location. Operand counts follow the opcode.
func appendExpression(loc *die.Loc, ops []uint64) {
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		switch op {
		case dwarf.OpPlusUconst, dwarf.OpConstu:
			addOp(loc, uint8(op))
			if i+1 < len(ops) {
				i++
				addULEB(loc, ops[i])
			}
		case dwarf.OpConsts:
			addOp(loc, uint8(op))
			if i+1 < len(ops) {
				i++
				addSLEB(loc, int64(ops[i]))
			}
		case dwarf.OpPiece:
			if i+1 < len(ops) {
				i++
				addOpPiece(loc, ops[i]*8, 0)
			}
		case dwarf.OpBitPiece:
			// Operands are the offset then the size, both in bits.
			if i+2 < len(ops) {
				addOpPiece(loc, ops[i+2], ops[i+1])
				i += 2
			}
		default:
			addOp(loc, uint8(op))
		}
	}
}
