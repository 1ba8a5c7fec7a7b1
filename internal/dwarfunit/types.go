package dwarfunit

import (
	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

const arrayIndexTypeName = "__ARRAY_SIZE_TYPE__"

func typeTag(n metadata.Node) dwarf.Tag {
	switch n := n.(type) {
	case *metadata.BasicType:
		if n.Tag == 0 {
			return dwarf.TagBaseType
		}
		return n.Tag
	case *metadata.DerivedType:
		return n.Tag
	case *metadata.CompositeType:
		return n.Tag
	case *metadata.SubroutineType:
		return dwarf.TagSubroutineType
	}
	return 0
}

// GetOrCreateTypeDIE returns the entry of type ty, building it and its
// context on first use. Restrict qualifiers are looked through before
// DWARF 3. Identified composite types go to type units when enabled.
func (u *Unit) GetOrCreateTypeDIE(ty metadata.NodeID) *die.Entry {
	if ty == metadata.NullID {
		return nil
	}
	ty = u.redirect(ty)
	node := u.meta.Node(ty)
	if node == nil || !node.Kind().IsType() {
		u.log.Warn().Uint32("node", uint32(ty)).Msg("type reference to a non-type node")
		return nil
	}
	if dt, ok := node.(*metadata.DerivedType); ok && dt.Tag == dwarf.TagRestrictType && !u.policy.Has(FeatureRestrictType) {
		return u.GetOrCreateTypeDIE(u.resolve(dt.BaseType))
	}

	// The context may itself create this type, as member declarations do.
	context := u.resolve(u.meta.Scope(ty))
	parent := u.GetOrCreateContextDIE(context)
	if e := u.entries[ty]; e != nil {
		return e
	}

	e := u.createAndAddDIE(typeTag(node), parent, ty)
	u.updateAcceleratorTables(context, ty, e)

	switch n := node.(type) {
	case *metadata.BasicType:
		u.constructBasicType(e, n)
	case *metadata.SubroutineType:
		u.constructSubroutineType(e, n)
	case *metadata.CompositeType:
		if u.policy.TypeUnits && !n.Flags.IsForwardDecl() && n.Identifier != "" {
			u.hooks.addTypeUnitType(u, ty, n, e)
			return e
		}
		u.constructCompositeType(e, n)
	case *metadata.DerivedType:
		u.constructDerivedType(e, n)
	}
	return e
}

func (u *Unit) updateAcceleratorTables(context, ty metadata.NodeID, e *die.Entry) {
	name := u.meta.Name(ty)
	if name == "" || u.meta.TypeFlags(ty).IsForwardDecl() {
		return
	}
	var flags uint8
	ct := metadata.As[*metadata.CompositeType](u.meta, ty)
	if ct != nil {
		// Runtime language 0 is C or C++; anything else is Objective-C.
		if ct.RuntimeLang == 0 || ct.Flags.IsObjcClassComplete() {
			flags = dwarf.FlagTypeImplementation
		}
	}
	u.dctx.Accel.Types.Add(name, e, flags)
	if ct != nil && ct.RuntimeLang != 0 {
		u.dctx.Accel.ObjC.Add(name, e, 0)
	}
	switch u.meta.KindOf(context) {
	case metadata.KindInvalid, metadata.KindCompileUnit, metadata.KindFile, metadata.KindNamespace:
		u.hooks.addGlobalType(ty, e, context)
	}
}

func (u *Unit) constructBasicType(e *die.Entry, bt *metadata.BasicType) {
	if bt.Name != "" {
		u.AddString(e, dwarf.AttrName, bt.Name)
	}
	if e.Tag == dwarf.TagUnspecifiedType {
		return
	}
	u.AddUInt(e, dwarf.AttrEncoding, dwarf.FormData1, uint64(bt.Encoding))
	u.AddUInt(e, dwarf.AttrByteSize, 0, bt.SizeInBits>>3)
}

func (u *Unit) constructDerivedType(e *die.Entry, dt *metadata.DerivedType) {
	if from := u.resolve(dt.BaseType); from != metadata.NullID {
		u.AddType(e, from, 0)
	}
	if dt.Name != "" {
		u.AddString(e, dwarf.AttrName, dt.Name)
	}
	size := dt.SizeInBits >> 3
	if size != 0 && e.Tag != dwarf.TagPointerType && e.Tag != dwarf.TagPtrToMemberType {
		u.AddUInt(e, dwarf.AttrByteSize, 0, size)
	}
	if e.Tag == dwarf.TagPtrToMemberType {
		if cls := u.GetOrCreateTypeDIE(u.resolve(dt.ClassType)); cls != nil {
			u.AddEntry(e, dwarf.AttrContainingType, cls)
		}
	}
	if !dt.Flags.IsForwardDecl() {
		u.AddSourceLine(e, dt.Line, metadata.As[*metadata.File](u.meta, dt.File))
	}
}

func (u *Unit) constructSubroutineType(e *die.Entry, st *metadata.SubroutineType) {
	if len(st.Types) > 0 {
		if ret := u.resolve(st.Types[0]); ret != metadata.NullID {
			u.AddType(e, ret, 0)
		}
	}
	// A lone null argument marks an unprototyped K&R declaration.
	prototyped := !(len(st.Types) == 2 && st.Types[1].IsNull())
	u.constructSubprogramArguments(e, st.Types)
	if prototyped && u.lang.IsCLike() {
		u.AddFlag(e, dwarf.AttrPrototyped)
	}
	if st.Flags.IsLValueReference() {
		u.AddFlag(e, dwarf.AttrReference)
	}
	if st.Flags.IsRValueReference() {
		u.AddFlag(e, dwarf.AttrRvalueReference)
	}
}

// constructSubprogramArguments adds a formal parameter per argument type.
// A trailing null type marks a variadic function.
func (u *Unit) constructSubprogramArguments(e *die.Entry, types []metadata.TypeRef) {
	for i := 1; i < len(types); i++ {
		ty := u.resolve(types[i])
		if ty == metadata.NullID {
			u.newChild(e, dwarf.TagUnspecifiedParameters)
			continue
		}
		arg := u.newChild(e, dwarf.TagFormalParameter)
		u.AddType(arg, ty, 0)
		if u.meta.TypeFlags(ty).IsArtificial() {
			u.AddFlag(arg, dwarf.AttrArtificial)
		}
	}
}

func (u *Unit) constructCompositeType(e *die.Entry, ct *metadata.CompositeType) {
	switch e.Tag {
	case dwarf.TagArrayType:
		u.constructArrayType(e, ct)
	case dwarf.TagEnumerationType:
		u.constructEnumType(e, ct)
	case dwarf.TagStructureType, dwarf.TagUnionType, dwarf.TagClassType:
		for _, el := range ct.Elements {
			switch n := u.meta.Node(el).(type) {
			case *metadata.Subprogram:
				u.GetOrCreateSubprogramDIE(el, false)
			case *metadata.DerivedType:
				switch {
				case n.Tag == dwarf.TagFriend:
					friend := u.newChild(e, dwarf.TagFriend)
					u.AddType(friend, u.resolve(n.BaseType), dwarf.AttrFriend)
				case n.Flags.IsStaticMember():
					u.GetOrCreateStaticMemberDIE(el)
				default:
					u.constructMemberDIE(e, n)
				}
			}
		}
		if holder := u.resolve(ct.VTableHolder); holder != metadata.NullID {
			u.containing = append(u.containing, containingType{entry: e, node: holder, create: true})
		}
		if ct.Flags.IsObjcClassComplete() {
			u.AddFlag(e, dwarf.AttrAPPLEObjcCompleteType)
		}
		u.AddTemplateParams(e, ct.TemplateParams)
	}

	if ct.Name != "" {
		u.AddString(e, dwarf.AttrName, ct.Name)
	}
	switch e.Tag {
	case dwarf.TagEnumerationType, dwarf.TagClassType, dwarf.TagStructureType, dwarf.TagUnionType:
		size := ct.SizeInBits >> 3
		if size != 0 || !ct.Flags.IsForwardDecl() {
			u.AddUInt(e, dwarf.AttrByteSize, 0, size)
		}
		if ct.Flags.IsForwardDecl() {
			u.AddFlag(e, dwarf.AttrDeclaration)
		} else {
			u.AddSourceLine(e, ct.Line, metadata.As[*metadata.File](u.meta, ct.File))
		}
		if ct.RuntimeLang != 0 {
			u.AddUInt(e, dwarf.AttrAPPLERuntimeClass, dwarf.FormData1, uint64(ct.RuntimeLang))
		}
	}
}

func (u *Unit) constructArrayType(e *die.Entry, ct *metadata.CompositeType) {
	if ct.Flags.IsVector() {
		u.AddFlag(e, dwarf.AttrGNUVector)
	}
	u.AddType(e, u.resolve(ct.BaseType), 0)
	idx := u.indexTypeDIE()
	for _, el := range ct.Elements {
		if sr := metadata.As[*metadata.Subrange](u.meta, el); sr != nil {
			u.constructSubrangeDIE(e, sr, idx)
		}
	}
}

// indexTypeDIE returns the unit's synthesized array index type.
func (u *Unit) indexTypeDIE() *die.Entry {
	if u.indexType != nil {
		return u.indexType
	}
	t := u.newChild(u.root, dwarf.TagBaseType)
	u.AddString(t, dwarf.AttrName, arrayIndexTypeName)
	u.AddUInt(t, dwarf.AttrByteSize, 0, 8)
	u.AddUInt(t, dwarf.AttrEncoding, dwarf.FormData1, uint64(dwarf.EncUnsigned))
	u.indexType = t
	return t
}

// constructSubrangeDIE omits the lower bound when it equals the language
// default, and the count when it is unknown (-1).
func (u *Unit) constructSubrangeDIE(e *die.Entry, sr *metadata.Subrange, idx *die.Entry) {
	s := u.newChild(e, dwarf.TagSubrangeType)
	u.AddEntry(s, dwarf.AttrType, idx)
	def := u.policy.DefaultLowerBound(u.lang)
	if def == -1 || sr.LowerBound != def {
		u.AddSInt(s, dwarf.AttrLowerBound, 0, sr.LowerBound)
	}
	if sr.Count != -1 {
		u.AddUInt(s, dwarf.AttrCount, 0, uint64(sr.Count))
	}
}

func (u *Unit) constructEnumType(e *die.Entry, ct *metadata.CompositeType) {
	for _, el := range ct.Elements {
		en := metadata.As[*metadata.Enumerator](u.meta, el)
		if en == nil {
			continue
		}
		c := u.newChild(e, dwarf.TagEnumerator)
		u.AddString(c, dwarf.AttrName, en.Name)
		u.AddSInt(c, dwarf.AttrConstValue, dwarf.FormSdata, en.Value)
	}
	if base := u.resolve(ct.BaseType); base != metadata.NullID && u.policy.Has(FeatureEnumBaseType) {
		u.AddType(e, base, 0)
		if ct.Flags.IsEnumClass() && u.policy.Has(FeatureEnumClass) {
			u.AddFlag(e, dwarf.AttrEnumClass)
		}
	}
}

// baseTypeSize returns the storage size of a member's declared type,
// looking through typedefs and qualifiers. References keep the member's
// own size.
func (u *Unit) baseTypeSize(dt *metadata.DerivedType) uint64 {
	seen := make(map[*metadata.DerivedType]bool)
	for !seen[dt] {
		seen[dt] = true
		switch dt.Tag {
		case dwarf.TagMember, dwarf.TagTypedef, dwarf.TagConstType,
			dwarf.TagVolatileType, dwarf.TagRestrictType:
		default:
			return dt.SizeInBits
		}
		base := u.resolve(dt.BaseType)
		if base == metadata.NullID {
			return 0
		}
		switch n := u.meta.Node(base).(type) {
		case *metadata.DerivedType:
			if n.Tag == dwarf.TagReferenceType || n.Tag == dwarf.TagRvalueReferenceType {
				return dt.SizeInBits
			}
			dt = n
		default:
			return u.meta.SizeInBits(base)
		}
	}
	return dt.SizeInBits
}

func (u *Unit) constructMemberDIE(parent *die.Entry, dt *metadata.DerivedType) {
	m := u.newChild(parent, dt.Tag)
	if dt.Name != "" {
		u.AddString(m, dwarf.AttrName, dt.Name)
	}
	u.AddType(m, u.resolve(dt.BaseType), 0)
	u.AddSourceLine(m, dt.Line, metadata.As[*metadata.File](u.meta, dt.File))

	if dt.Tag == dwarf.TagInheritance && dt.Flags.IsVirtual() {
		// The base lives at ObAddr + *(*ObAddr - Offset).
		loc := u.arena.NewLoc()
		addOp(loc, dwarf.OpDup)
		addOp(loc, dwarf.OpDeref)
		addOp(loc, dwarf.OpConstu)
		addULEB(loc, dt.OffsetInBits)
		addOp(loc, dwarf.OpMinus)
		addOp(loc, dwarf.OpDeref)
		addOp(loc, dwarf.OpPlus)
		u.AddBlock(m, dwarf.AttrDataMemberLocation, loc)
	} else {
		size := dt.SizeInBits
		fieldSize := u.baseTypeSize(dt)
		var offsetInBytes uint64
		if fieldSize != 0 && size != fieldSize {
			u.AddUInt(m, dwarf.AttrByteSize, 0, fieldSize/8)
			u.AddUInt(m, dwarf.AttrBitSize, 0, size)
			offset := dt.OffsetInBits
			align := dt.AlignInBits
			if align == 0 {
				align = fieldSize
			}
			hiMark := (offset + fieldSize) &^ (align - 1)
			fieldOffset := hiMark - fieldSize
			offset -= fieldOffset
			if u.policy.LittleEndian {
				offset = fieldSize - (offset + size)
			}
			u.AddUInt(m, dwarf.AttrBitOffset, 0, offset)
			offsetInBytes = fieldOffset >> 3
		} else {
			offsetInBytes = dt.OffsetInBits >> 3
		}
		if u.policy.Has(FeatureMemberLocationConstant) {
			u.AddUInt(m, dwarf.AttrDataMemberLocation, 0, offsetInBytes)
		} else {
			loc := u.arena.NewLoc()
			addOp(loc, dwarf.OpPlusUconst)
			addULEB(loc, offsetInBytes)
			u.AddBlock(m, dwarf.AttrDataMemberLocation, loc)
		}
	}

	u.addAccessibility(m, dt.Flags)
	if dt.Flags.IsVirtual() {
		u.AddUInt(m, dwarf.AttrVirtuality, dwarf.FormData1, dwarf.VirtualityVirtual)
	}
	if dt.Flags.IsArtificial() {
		u.AddFlag(m, dwarf.AttrArtificial)
	}
}
