package debuginfo

import "github.com/orizon-lang/dwarfgen/internal/metadata"

// StripDebugInfo removes every debug intrinsic call, every instruction debug
// location, every function subprogram attachment and every debug anchor
// from m. It reports whether anything was removed.
func StripDebugInfo(m *metadata.Module) bool {
	changed := false
	for _, name := range m.NamedAnchors() {
		if metadata.IsDebugAnchor(name) || name == "llvm.gcov" {
			delete(m.Named, name)
			changed = true
		}
	}
	for _, f := range m.Functions {
		if StripFunction(f) {
			changed = true
		}
	}
	return changed
}

// StripFunction removes the debug information of a single function.
func StripFunction(f *metadata.Function) bool {
	changed := false
	if f.Subprogram != metadata.NullID {
		f.Subprogram = metadata.NullID
		changed = true
	}
	for _, b := range f.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if inst.IsDebugIntrinsic() {
				changed = true
				continue
			}
			if inst.DebugLoc != metadata.NullID {
				inst.DebugLoc = metadata.NullID
				changed = true
			}
			kept = append(kept, inst)
		}
		for i := len(kept); i < len(b.Instructions); i++ {
			b.Instructions[i] = nil
		}
		b.Instructions = kept
	}
	return changed
}
