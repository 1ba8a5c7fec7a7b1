// Package debuginfo walks the debug metadata of a module. The Finder
// discovers every reachable node once, the type identifier map resolves
// identifier references to canonical definitions, and the strip functions
// remove debug information from a module.
package debuginfo

import (
	"github.com/rs/zerolog"

	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// Finder collects the compile units, subprograms, global variables, types
// and scopes reachable from a module. Each node is recorded at most once
// across all collections, in first-visit order.
type Finder struct {
	log zerolog.Logger

	compileUnits    []metadata.NodeID
	subprograms     []metadata.NodeID
	globalVariables []metadata.NodeID
	types           []metadata.NodeID
	scopes          []metadata.NodeID
	seen            map[metadata.NodeID]struct{}

	ctx        *metadata.Context
	typeMap    TypeIdentifierMap
	typeMapFor *metadata.Module
}

// NewFinder returns an empty Finder.
func NewFinder() *Finder {
	return &Finder{
		log:  zerolog.Nop(),
		seen: make(map[metadata.NodeID]struct{}),
	}
}

// SetLogger routes traversal logging to log.
func (f *Finder) SetLogger(log zerolog.Logger) { f.log = log }

// Reset clears all collections, the seen set and the cached identifier map.
func (f *Finder) Reset() {
	f.compileUnits = nil
	f.subprograms = nil
	f.globalVariables = nil
	f.types = nil
	f.scopes = nil
	f.seen = make(map[metadata.NodeID]struct{})
	f.typeMap = nil
	f.typeMapFor = nil
	f.ctx = nil
}

// TypeIdentifierMap returns the identifier map for m, building it on first
// use.
func (f *Finder) TypeIdentifierMap(m *metadata.Module) TypeIdentifierMap {
	f.initializeTypeMap(m)
	return f.typeMap
}

func (f *Finder) initializeTypeMap(m *metadata.Module) {
	f.ctx = m.Ctx
	if f.typeMapFor == m && f.typeMap != nil {
		return
	}
	f.typeMap = GenerateTypeIdentifierMap(m)
	f.typeMapFor = m
}

func (f *Finder) resolve(r metadata.TypeRef) metadata.NodeID {
	return f.typeMap.Resolve(r)
}

// ProcessModule visits every compile unit anchored in m, then every
// function body.
func (f *Finder) ProcessModule(m *metadata.Module) {
	f.initializeTypeMap(m)
	ctx := m.Ctx
	for _, cuID := range m.CompileUnits() {
		cu := metadata.As[*metadata.CompileUnit](ctx, cuID)
		if cu == nil {
			continue
		}
		f.addCompileUnit(cuID)
		for _, gv := range cu.GlobalVariables {
			if !f.addGlobalVariable(gv) {
				continue
			}
			if g := metadata.As[*metadata.GlobalVariable](ctx, gv); g != nil {
				f.processScope(g.Scope)
				f.processType(f.resolve(g.Type))
			}
		}
		for _, sp := range cu.Subprograms {
			f.processSubprogram(sp)
		}
		for _, et := range cu.EnumTypes {
			f.processType(et)
		}
		for _, rt := range cu.RetainedTypes {
			f.processType(rt)
		}
		for _, ie := range cu.ImportedEntities {
			imp := metadata.As[*metadata.ImportedEntity](ctx, ie)
			if imp == nil {
				continue
			}
			entity := f.resolve(imp.Entity)
			switch n := ctx.Node(entity).(type) {
			case *metadata.Subprogram:
				f.processSubprogram(entity)
			case *metadata.Namespace:
				f.processScope(n.Scope)
			default:
				if ctx.KindOf(entity).IsType() {
					f.processType(entity)
				}
			}
		}
	}

	for _, fn := range m.Functions {
		if fn.Subprogram != metadata.NullID {
			f.processSubprogram(fn.Subprogram)
		}
		fn.Instructions(func(inst *metadata.Instruction) {
			if inst.IsDebugIntrinsic() {
				switch inst.Callee {
				case metadata.IntrinsicDeclare:
					f.ProcessDeclare(m, inst)
				case metadata.IntrinsicValue:
					f.ProcessValue(m, inst)
				}
			}
			f.ProcessLocation(m, inst.DebugLoc)
		})
	}

	f.log.Debug().
		Str("module", m.Name).
		Int("compile_units", len(f.compileUnits)).
		Int("subprograms", len(f.subprograms)).
		Int("globals", len(f.globalVariables)).
		Int("types", len(f.types)).
		Int("scopes", len(f.scopes)).
		Msg("debug info finder processed module")
}

// ProcessLocation records the scope of loc and of every location it was
// inlined at.
func (f *Finder) ProcessLocation(m *metadata.Module, loc metadata.NodeID) {
	f.initializeTypeMap(m)
	for loc != metadata.NullID {
		l := metadata.As[*metadata.Location](m.Ctx, loc)
		if l == nil {
			return
		}
		f.processScope(l.Scope)
		loc = l.InlinedAt
	}
}

// ProcessDeclare records the variable described by a dbg.declare call.
func (f *Finder) ProcessDeclare(m *metadata.Module, inst *metadata.Instruction) {
	f.processVariable(m, inst.Variable)
}

// ProcessValue records the variable described by a dbg.value call.
func (f *Finder) ProcessValue(m *metadata.Module, inst *metadata.Instruction) {
	f.processVariable(m, inst.Variable)
}

func (f *Finder) processVariable(m *metadata.Module, id metadata.NodeID) {
	f.initializeTypeMap(m)
	v := metadata.As[*metadata.LocalVariable](m.Ctx, id)
	if v == nil || !f.markSeen(id) {
		return
	}
	f.processScope(v.Scope)
	f.processType(f.resolve(v.Type))
}

func (f *Finder) processType(id metadata.NodeID) {
	if !f.ctx.KindOf(id).IsType() || !f.addType(id) {
		return
	}
	f.processScope(f.resolve(f.ctx.Scope(id)))
	switch n := f.ctx.Node(id).(type) {
	case *metadata.CompositeType:
		f.processType(f.resolve(n.BaseType))
		for _, el := range n.Elements {
			switch k := f.ctx.KindOf(el); {
			case k.IsType():
				f.processType(el)
			case k == metadata.KindSubprogram:
				f.processSubprogram(el)
			}
		}
	case *metadata.SubroutineType:
		for _, t := range n.Types {
			f.processType(f.resolve(t))
		}
	case *metadata.DerivedType:
		f.processType(f.resolve(n.BaseType))
	case *metadata.BasicType:
	}
}

func (f *Finder) processScope(id metadata.NodeID) {
	if id == metadata.NullID {
		return
	}
	k := f.ctx.KindOf(id)
	switch {
	case k.IsType():
		f.processType(id)
		return
	case k == metadata.KindCompileUnit:
		f.addCompileUnit(id)
		return
	case k == metadata.KindSubprogram:
		f.processSubprogram(id)
		return
	}
	if !f.addScope(id) {
		return
	}
	switch n := f.ctx.Node(id).(type) {
	case *metadata.LexicalBlock:
		f.processScope(n.Scope)
	case *metadata.LexicalBlockFile:
		f.processScope(n.Scope)
	case *metadata.Namespace:
		f.processScope(n.Scope)
	}
}

func (f *Finder) processSubprogram(id metadata.NodeID) {
	sp := metadata.As[*metadata.Subprogram](f.ctx, id)
	if sp == nil || !f.addSubprogram(id) {
		return
	}
	f.processScope(f.resolve(sp.Scope))
	f.processType(sp.Type)
	for _, tp := range sp.TemplateParams {
		switch p := f.ctx.Node(tp).(type) {
		case *metadata.TemplateTypeParameter:
			f.processType(f.resolve(p.Type))
		case *metadata.TemplateValueParameter:
			f.processType(f.resolve(p.Type))
		}
	}
}

func (f *Finder) markSeen(id metadata.NodeID) bool {
	if _, ok := f.seen[id]; ok {
		return false
	}
	f.seen[id] = struct{}{}
	return true
}

func (f *Finder) addCompileUnit(id metadata.NodeID) bool {
	if id == metadata.NullID || !f.markSeen(id) {
		return false
	}
	f.compileUnits = append(f.compileUnits, id)
	return true
}

func (f *Finder) addGlobalVariable(id metadata.NodeID) bool {
	if id == metadata.NullID || !f.markSeen(id) {
		return false
	}
	f.globalVariables = append(f.globalVariables, id)
	return true
}

func (f *Finder) addSubprogram(id metadata.NodeID) bool {
	if id == metadata.NullID || !f.markSeen(id) {
		return false
	}
	f.subprograms = append(f.subprograms, id)
	return true
}

func (f *Finder) addType(id metadata.NodeID) bool {
	if id == metadata.NullID || !f.markSeen(id) {
		return false
	}
	f.types = append(f.types, id)
	return true
}

func (f *Finder) addScope(id metadata.NodeID) bool {
	if id == metadata.NullID || !f.markSeen(id) {
		return false
	}
	f.scopes = append(f.scopes, id)
	return true
}

// CompileUnits returns the compile units in discovery order.
func (f *Finder) CompileUnits() []metadata.NodeID { return f.compileUnits }

// Subprograms returns the subprograms in discovery order.
func (f *Finder) Subprograms() []metadata.NodeID { return f.subprograms }

// GlobalVariables returns the global variables in discovery order.
func (f *Finder) GlobalVariables() []metadata.NodeID { return f.globalVariables }

// Types returns the types in discovery order.
func (f *Finder) Types() []metadata.NodeID { return f.types }

// Scopes returns the non-type, non-subprogram scopes in discovery order.
func (f *Finder) Scopes() []metadata.NodeID { return f.scopes }

func (f *Finder) CompileUnitCount() int    { return len(f.compileUnits) }
func (f *Finder) SubprogramCount() int     { return len(f.subprograms) }
func (f *Finder) GlobalVariableCount() int { return len(f.globalVariables) }
func (f *Finder) TypeCount() int           { return len(f.types) }
func (f *Finder) ScopeCount() int          { return len(f.scopes) }
