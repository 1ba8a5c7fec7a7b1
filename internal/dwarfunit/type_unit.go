package dwarfunit

import (
	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// TypeUnit holds one identified composite type and everything it needs,
// addressed from other units by a 64-bit content signature.
type TypeUnit struct {
	Unit

	cu         *CompileUnit
	identifier string
	typeNode   metadata.NodeID
	sig        *die.TypeSignature
	typeEntry  *die.Entry
	discarded  bool
}

// Signature returns the content signature. It is zero until the
// outermost type unit under construction completes.
func (tu *TypeUnit) Signature() uint64 { return tu.sig.Signature }

// Identifier returns the unique identifier of the described type.
func (tu *TypeUnit) Identifier() string { return tu.identifier }

// TypeEntry returns the entry of the described type.
func (tu *TypeUnit) TypeEntry() *die.Entry { return tu.typeEntry }

// CompileUnit returns the compile unit that built the type unit.
func (tu *TypeUnit) CompileUnit() *CompileUnit { return tu.cu }

// TypeOffset returns the offset of the type entry from the start of the
// unit header. It is valid after finalization.
func (tu *TypeUnit) TypeOffset() uint32 { return tu.typeEntry.Offset }

func (tu *TypeUnit) discard() {
	if tu.discarded {
		return
	}
	tu.discarded = true
	tu.dctx.Accel.dropUnit(tu.id)
	tu.arena.Release()
	tu.log.Debug().Str("identifier", tu.identifier).Msg("type unit discarded")
}

func (tu *TypeUnit) sourceID(file, dir string) uint64 { return tu.ownSourceID(file, dir) }

func (tu *TypeUnit) isDwo() bool { return tu.policy.SplitDwarf }

func (tu *TypeUnit) headerSize() uint32 { return tu.policy.TypeUnitHeaderSize() }

// Type units publish no names of their own.
func (tu *TypeUnit) addGlobalName(string, *die.Entry, metadata.NodeID) {}

func (tu *TypeUnit) addGlobalType(metadata.NodeID, *die.Entry, metadata.NodeID) {}

func (tu *TypeUnit) addTypeUnitType(owner *Unit, ty metadata.NodeID, ct *metadata.CompositeType, stub *die.Entry) {
	tu.cu.addDwarfTypeUnitType(owner, ty, ct, stub)
}

func (tu *TypeUnit) markAddrPoolUsed() { tu.cu.markAddrPoolUsed() }

// createTypeDIE builds the described type in the unit, inside its own
// copy of the type's context.
func (tu *TypeUnit) createTypeDIE(ty metadata.NodeID, ct *metadata.CompositeType) *die.Entry {
	context := tu.resolve(ct.Scope)
	parent := tu.GetOrCreateContextDIE(context)
	if e := tu.entries[ty]; e != nil {
		return e
	}
	e := tu.createAndAddDIE(ct.Tag, parent, ty)
	tu.constructCompositeType(e, ct)
	tu.updateAcceleratorTables(context, ty, e)
	return e
}

// addDwarfTypeUnitType places an identified composite type into a type
// unit and turns stub, its entry in owner, into a signature reference.
// Types whose content needs the address pool cannot be shared and are
// built directly in owner instead.
func (u *CompileUnit) addDwarfTypeUnitType(owner *Unit, ty metadata.NodeID, ct *metadata.CompositeType, stub *die.Entry) {
	if len(u.tuUnderConstruction) > 0 && u.tuAddrUsed {
		owner.constructCompositeType(stub, ct)
		return
	}
	if tu, ok := u.typeUnits[ty]; ok {
		addSignatureStub(owner, stub, ct, tu.sig)
		return
	}

	topLevel := len(u.tuUnderConstruction) == 0
	if topLevel {
		u.tuAddrUsed = false
	}
	tu := &TypeUnit{
		cu:         u,
		identifier: ct.Identifier,
		typeNode:   ty,
		sig:        &die.TypeSignature{},
	}
	tu.init(u.dctx, u.dctx.newUnitID(), dwarf.TagTypeUnit, u.lang, tu)
	u.typeUnits[ty] = tu
	u.tuUnderConstruction = append(u.tuUnderConstruction, tu)

	tu.AddUInt(tu.root, dwarf.AttrLanguage, dwarf.FormData2, uint64(u.lang))
	if !tu.policy.SplitDwarf {
		tu.AddSectionLabel(tu.root, dwarf.AttrStmtList, tu.LineTableSymbol())
	}
	tu.typeEntry = tu.createTypeDIE(ty, ct)

	if topLevel {
		built := u.tuUnderConstruction
		u.tuUnderConstruction = nil
		if u.tuAddrUsed {
			u.tuAddrUsed = false
			for _, t := range built {
				delete(u.typeUnits, t.typeNode)
				t.discard()
			}
			u.log.Debug().Str("identifier", ct.Identifier).Msg("type uses the address pool; built in compile unit")
			owner.constructCompositeType(stub, ct)
			return
		}
		for _, t := range built {
			t.sig.Signature = TypeSignatureOf(t.typeEntry)
			t.Finish()
		}
		u.ownedTypeUnits = append(u.ownedTypeUnits, u.dctx.registerTypeUnits(built)...)
	}
	addSignatureStub(owner, stub, ct, tu.sig)
}

// addSignatureStub marks stub as a declaration of the type held in a type
// unit. The name keeps the stub distinguishable in content hashes.
func addSignatureStub(owner *Unit, stub *die.Entry, ct *metadata.CompositeType, sig *die.TypeSignature) {
	if ct.Name != "" {
		owner.AddString(stub, dwarf.AttrName, ct.Name)
	}
	owner.AddFlag(stub, dwarf.AttrDeclaration)
	owner.AddTypeSignature(stub, sig)
}
