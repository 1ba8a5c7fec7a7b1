package debuginfo

import "github.com/orizon-lang/dwarfgen/internal/metadata"

// TypeIdentifierMap maps the identifier of an ODR-uniqued composite type to
// its canonical node.
type TypeIdentifierMap map[string]metadata.NodeID

// GenerateTypeIdentifierMap collects identified composite types from the
// retained types of every compile unit of m. A definition wins over a
// declaration seen earlier under the same identifier.
func GenerateTypeIdentifierMap(m *metadata.Module) TypeIdentifierMap {
	tm := make(TypeIdentifierMap)
	for _, cuID := range m.CompileUnits() {
		cu := metadata.As[*metadata.CompileUnit](m.Ctx, cuID)
		if cu == nil {
			continue
		}
		for _, id := range cu.RetainedTypes {
			ct := metadata.As[*metadata.CompositeType](m.Ctx, id)
			if ct == nil || ct.Identifier == "" {
				continue
			}
			prev, seen := tm[ct.Identifier]
			if !seen {
				tm[ct.Identifier] = id
				continue
			}
			if ct.Flags.IsForwardDecl() {
				continue
			}
			if p := metadata.As[*metadata.CompositeType](m.Ctx, prev); p == nil || p.Flags.IsForwardDecl() {
				tm[ct.Identifier] = id
			}
		}
	}
	return tm
}

// Resolve returns the node a reference designates. Identifier references
// without a canonical definition resolve to NullID.
func (tm TypeIdentifierMap) Resolve(r metadata.TypeRef) metadata.NodeID {
	if r.Identifier == "" {
		return r.ID
	}
	return tm[r.Identifier]
}

// Lookup reports the canonical node for an identifier.
func (tm TypeIdentifierMap) Lookup(identifier string) (metadata.NodeID, bool) {
	id, ok := tm[identifier]
	return id, ok
}
