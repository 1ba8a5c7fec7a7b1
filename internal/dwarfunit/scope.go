package dwarfunit

import (
	"strings"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

const anonymousNamespace = "(anonymous namespace)"

// GetOrCreateContextDIE returns the entry that encloses declarations
// scoped to context. Files, compile units and the null scope map to the
// unit entry.
func (u *Unit) GetOrCreateContextDIE(context metadata.NodeID) *die.Entry {
	if context == metadata.NullID {
		return u.root
	}
	switch n := u.meta.Node(context).(type) {
	case *metadata.File, *metadata.CompileUnit:
		return u.root
	case *metadata.Namespace:
		return u.GetOrCreateNameSpace(context)
	case *metadata.Subprogram:
		return u.GetOrCreateSubprogramDIE(context, false)
	case *metadata.LexicalBlock:
		return u.getOrCreateLexicalBlockDIE(context, n)
	case *metadata.LexicalBlockFile:
		return u.GetOrCreateContextDIE(n.Scope)
	}
	if u.meta.KindOf(context).IsType() {
		if e := u.GetOrCreateTypeDIE(context); e != nil {
			return e
		}
	}
	if e := u.entries[context]; e != nil {
		return e
	}
	panic(errors.MalformedScope(uint32(context), u.meta.KindOf(context).String()))
}

func (u *Unit) getOrCreateLexicalBlockDIE(id metadata.NodeID, lb *metadata.LexicalBlock) *die.Entry {
	parent := u.GetOrCreateContextDIE(lb.Scope)
	if e := u.entries[id]; e != nil {
		return e
	}
	return u.createAndAddDIE(dwarf.TagLexicalBlock, parent, id)
}

// GetOrCreateNameSpace returns the namespace entry for ns. Namespaces with
// the same name under the same parent share one entry.
func (u *Unit) GetOrCreateNameSpace(ns metadata.NodeID) *die.Entry {
	n := metadata.As[*metadata.Namespace](u.meta, ns)
	if n == nil {
		panic(errors.MalformedScope(uint32(ns), u.meta.KindOf(ns).String()))
	}
	parent := u.GetOrCreateContextDIE(n.Scope)
	if e := u.entries[ns]; e != nil {
		return e
	}
	key := nsKey{parent: parent, name: n.Name}
	if e := u.namespaces[key]; e != nil {
		u.InsertDIE(ns, e)
		return e
	}
	e := u.createAndAddDIE(dwarf.TagNamespace, parent, ns)
	u.namespaces[key] = e
	name := n.Name
	if name != "" {
		u.AddString(e, dwarf.AttrName, name)
	} else {
		name = anonymousNamespace
	}
	u.dctx.Accel.Namespaces.Add(name, e, 0)
	u.hooks.addGlobalName(name, e, n.Scope)
	u.AddSourceLine(e, n.Line, metadata.As[*metadata.File](u.meta, n.File))
	return e
}

// GetOrCreateSubprogramDIE returns the entry of subprogram sp. Minimal
// entries are placed at unit level and carry only a name. A definition
// with a separate declaration is placed at unit level after the
// declaration. Definitions are returned without attributes; they are
// filled in once it is known how the function was emitted.
func (u *Unit) GetOrCreateSubprogramDIE(sp metadata.NodeID, minimal bool) *die.Entry {
	n := metadata.As[*metadata.Subprogram](u.meta, sp)
	if n == nil {
		panic(errors.MalformedScope(uint32(sp), u.meta.KindOf(sp).String()))
	}
	parent := u.root
	if !minimal {
		parent = u.GetOrCreateContextDIE(u.resolve(n.Scope))
	}
	if e := u.entries[sp]; e != nil {
		return e
	}
	if n.Declaration != metadata.NullID && !minimal {
		parent = u.root
		u.GetOrCreateSubprogramDIE(n.Declaration, false)
	}
	e := u.createAndAddDIE(dwarf.TagSubprogram, parent, sp)
	if n.Definition {
		return e
	}
	u.applySubprogramAttributes(sp, n, e, false)
	return e
}

// applySubprogramDefinitionAttributes links a definition to its
// declaration. It reports whether the declaration carries the rest of the
// attributes.
func (u *Unit) applySubprogramDefinitionAttributes(n *metadata.Subprogram, e *die.Entry) bool {
	var decl *die.Entry
	var declLinkage string
	if n.Declaration != metadata.NullID {
		decl = u.entries[n.Declaration]
		if decl == nil {
			panic(errors.MissingEntry(uint32(n.Declaration), "subprogram declaration"))
		}
		if d := metadata.As[*metadata.Subprogram](u.meta, n.Declaration); d != nil {
			declLinkage = d.LinkageName
		}
	}
	u.AddTemplateParams(e, n.TemplateParams)
	if n.LinkageName != "" && declLinkage == "" {
		u.AddLinkageName(e, n.LinkageName)
	}
	if decl == nil {
		return false
	}
	u.AddEntry(e, dwarf.AttrSpecification, decl)
	return true
}

func (u *Unit) applySubprogramAttributes(sp metadata.NodeID, n *metadata.Subprogram, e *die.Entry, minimal bool) {
	if !minimal && u.applySubprogramDefinitionAttributes(n, e) {
		return
	}
	// Constructors and operators of anonymous aggregates have no name.
	if n.Name != "" {
		u.AddString(e, dwarf.AttrName, n.Name)
	}
	if minimal {
		return
	}
	u.AddSourceLine(e, n.Line, metadata.As[*metadata.File](u.meta, n.File))

	if n.Flags.IsPrototyped() && u.lang.IsCLike() {
		u.AddFlag(e, dwarf.AttrPrototyped)
	}
	var args []metadata.TypeRef
	if st := metadata.As[*metadata.SubroutineType](u.meta, n.Type); st != nil {
		args = st.Types
	}
	if len(args) > 0 {
		if ret := u.resolve(args[0]); ret != metadata.NullID {
			u.AddType(e, ret, 0)
		}
	}

	if n.Virtuality != dwarf.VirtualityNone {
		u.AddUInt(e, dwarf.AttrVirtuality, dwarf.FormData1, uint64(n.Virtuality))
		loc := u.arena.NewLoc()
		addOp(loc, dwarf.OpConstu)
		addULEB(loc, uint64(n.VirtualIndex))
		u.AddBlock(e, dwarf.AttrVtableElemLocation, loc)
		u.containing = append(u.containing, containingType{entry: e, node: u.resolve(n.ContainingType)})
	}

	if !n.Definition {
		u.AddFlag(e, dwarf.AttrDeclaration)
		// Definitions get their parameters from the variables of the body.
		u.constructSubprogramArguments(e, args)
	}
	if n.Flags.IsArtificial() {
		u.AddFlag(e, dwarf.AttrArtificial)
	}
	if !n.LocalToUnit {
		u.AddFlag(e, dwarf.AttrExternal)
	}
	if n.Optimized {
		u.AddFlag(e, dwarf.AttrAPPLEOptimized)
	}
	if n.Flags.IsLValueReference() {
		u.AddFlag(e, dwarf.AttrReference)
	}
	if n.Flags.IsRValueReference() {
		u.AddFlag(e, dwarf.AttrRvalueReference)
	}
	u.addAccessibility(e, n.Flags)
	if n.Flags.IsExplicit() {
		u.AddFlag(e, dwarf.AttrExplicit)
	}
}

// GetOrCreateStaticMemberDIE returns the in-class declaration entry of a
// static data member.
func (u *Unit) GetOrCreateStaticMemberDIE(member metadata.NodeID) *die.Entry {
	dt := metadata.As[*metadata.DerivedType](u.meta, member)
	if dt == nil {
		return nil
	}
	context := u.resolve(dt.Scope)
	parent := u.GetOrCreateContextDIE(context)
	if !parent.Tag.IsType() {
		panic(errors.MalformedScope(uint32(context), u.meta.KindOf(context).String()))
	}
	if e := u.entries[member]; e != nil {
		return e
	}
	e := u.createAndAddDIE(dt.Tag, parent, member)
	ty := u.resolve(dt.BaseType)
	u.AddString(e, dwarf.AttrName, dt.Name)
	u.AddType(e, ty, 0)
	u.AddSourceLine(e, dt.Line, metadata.As[*metadata.File](u.meta, dt.File))
	u.AddFlag(e, dwarf.AttrExternal)
	u.AddFlag(e, dwarf.AttrDeclaration)
	u.addAccessibility(e, dt.Flags)
	u.AddConstantValue(e, dt.Constant, ty)
	return e
}

// AddTemplateParams adds a child entry for every template parameter.
func (u *Unit) AddTemplateParams(e *die.Entry, params []metadata.NodeID) {
	for _, p := range params {
		switch n := u.meta.Node(p).(type) {
		case *metadata.TemplateTypeParameter:
			u.constructTemplateTypeParameter(e, n)
		case *metadata.TemplateValueParameter:
			u.constructTemplateValueParameter(e, n)
		}
	}
}

func (u *Unit) constructTemplateTypeParameter(parent *die.Entry, tp *metadata.TemplateTypeParameter) {
	e := u.newChild(parent, dwarf.TagTemplateTypeParameter)
	// A void argument has no type.
	if ty := u.resolve(tp.Type); ty != metadata.NullID {
		u.AddType(e, ty, 0)
	}
	if tp.Name != "" {
		u.AddString(e, dwarf.AttrName, tp.Name)
	}
}

func (u *Unit) constructTemplateValueParameter(parent *die.Entry, vp *metadata.TemplateValueParameter) {
	tag := vp.Tag
	if tag == 0 {
		tag = dwarf.TagTemplateValueParameter
	}
	e := u.newChild(parent, tag)
	ty := u.resolve(vp.Type)
	if tag == dwarf.TagTemplateValueParameter {
		u.AddType(e, ty, 0)
	}
	if vp.Name != "" {
		u.AddString(e, dwarf.AttrName, vp.Name)
	}
	v := vp.Value
	switch {
	case v.Constant != nil:
		u.AddConstantValue(e, v.Constant, ty)
	case v.Symbol != "":
		// The address itself is the parameter value, not a pointer to it.
		loc := u.arena.NewLoc()
		u.AddOpAddress(loc, v.Symbol)
		addOp(loc, dwarf.OpStackValue)
		u.AddBlock(e, dwarf.AttrLocation, loc)
	case tag == dwarf.TagGNUTemplateTemplateParam && v.TemplateName != "":
		u.AddString(e, dwarf.AttrGNUTemplateName, v.TemplateName)
	case tag == dwarf.TagGNUTemplateParameterPack:
		u.AddTemplateParams(e, v.Pack)
	}
}

// ParentContextString returns the qualified prefix ("a::b::") of
// declarations scoped to context. Only C++ units qualify names.
func (u *Unit) ParentContextString(context metadata.NodeID) string {
	if context == metadata.NullID || u.lang != dwarf.LangCPlusPlus {
		return ""
	}
	var parents []metadata.NodeID
	seen := make(map[metadata.NodeID]bool)
	for context != metadata.NullID && !seen[context] && u.meta.KindOf(context) != metadata.KindCompileUnit {
		seen[context] = true
		parents = append(parents, context)
		context = u.resolve(u.meta.Scope(context))
	}
	var b strings.Builder
	for i := len(parents) - 1; i >= 0; i-- {
		name := u.meta.Name(parents[i])
		if name == "" && u.meta.KindOf(parents[i]) == metadata.KindNamespace {
			name = anonymousNamespace
		}
		if name != "" {
			b.WriteString(name)
			b.WriteString("::")
		}
	}
	return b.String()
}

// ConstructContainingTypeDIEs resolves the queued virtual-dispatch
// back-references. Subprogram entries only link to types that exist;
// vtable holders of composites are created when missing.
func (u *Unit) ConstructContainingTypeDIEs() {
	// Creating a vtable holder can queue its own holder.
	for len(u.containing) > 0 {
		queue := u.containing
		u.containing = nil
		for _, ct := range queue {
			if ct.node == metadata.NullID {
				continue
			}
			target := u.entries[ct.node]
			if target == nil && ct.create {
				target = u.GetOrCreateTypeDIE(ct.node)
			}
			if target == nil {
				continue
			}
			u.AddEntry(ct.entry, dwarf.AttrContainingType, target)
		}
	}
}
