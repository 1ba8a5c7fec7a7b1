package debuginfo

import (
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// SubprogramFor walks the scope chain of scope up to the enclosing
// subprogram. It returns NullID when the chain leaves function scope.
func SubprogramFor(ctx *metadata.Context, scope metadata.NodeID) metadata.NodeID {
	for scope != metadata.NullID {
		switch n := ctx.Node(scope).(type) {
		case *metadata.Subprogram:
			return scope
		case *metadata.LexicalBlock:
			scope = n.Scope
		case *metadata.LexicalBlockFile:
			scope = n.Scope
		default:
			return metadata.NullID
		}
	}
	return metadata.NullID
}

// MakeSubprogramMap maps function names to the subprogram describing them.
// Compile-unit subprogram lists are consulted first, then the attachments
// on function bodies.
func MakeSubprogramMap(m *metadata.Module) map[string]metadata.NodeID {
	out := make(map[string]metadata.NodeID)
	for _, cuID := range m.CompileUnits() {
		cu := metadata.As[*metadata.CompileUnit](m.Ctx, cuID)
		if cu == nil {
			continue
		}
		for _, id := range cu.Subprograms {
			if sp := metadata.As[*metadata.Subprogram](m.Ctx, id); sp != nil && sp.Function != "" {
				out[sp.Function] = id
			}
		}
	}
	for _, f := range m.Functions {
		if _, ok := out[f.Name]; !ok && f.Subprogram != metadata.NullID {
			out[f.Name] = f.Subprogram
		}
	}
	return out
}

// CompositeTypeOf looks through typedefs and cv-qualifiers to the composite
// type underneath ty, or returns NullID.
func CompositeTypeOf(ctx *metadata.Context, tm TypeIdentifierMap, ty metadata.NodeID) metadata.NodeID {
	visited := make(map[metadata.NodeID]bool)
	for ty != metadata.NullID && !visited[ty] {
		visited[ty] = true
		switch n := ctx.Node(ty).(type) {
		case *metadata.CompositeType:
			return ty
		case *metadata.DerivedType:
			switch n.Tag {
			case dwarf.TagTypedef, dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
				ty = tm.Resolve(n.BaseType)
			default:
				return metadata.NullID
			}
		default:
			return metadata.NullID
		}
	}
	return metadata.NullID
}

// DebugMetadataVersion returns the "Debug Info Version" module flag, or 0.
func DebugMetadataVersion(m *metadata.Module) uint64 {
	v, _ := m.Flag(metadata.FlagKeyDebugInfoVersion)
	return v
}
