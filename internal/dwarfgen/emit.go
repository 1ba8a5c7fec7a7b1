package dwarfgen

import (
	"strings"

	"github.com/orizon-lang/dwarfgen/internal/dwarfenc"
	"github.com/orizon-lang/dwarfgen/internal/metrics"
	"github.com/orizon-lang/dwarfgen/internal/objfile"
)

// DefaultTextBase is the pseudo address of the first function.
const DefaultTextBase = 0x1000

// Encode lays the module's functions out from base and encodes the
// finalized units.
func (r *Result) Encode(base uint64) (*dwarfenc.Sections, error) {
	secs, err := dwarfenc.Encode(r.Context, dwarfenc.BuildAddressMap(r.Module, base))
	if err != nil {
		return nil, err
	}
	for _, s := range secs.Named() {
		metrics.RecordSection(s.Name, len(s.Data))
	}
	return secs, nil
}

// ObjectSections names encoded sections for an object file. Split units go
// to the .dwo variants of their sections; the address pool and range lists
// stay with the skeleton.
func ObjectSections(secs *dwarfenc.Sections, split bool) []objfile.Section {
	var out []objfile.Section
	for _, s := range secs.Named() {
		name := s.Name
		if split && name != dwarfenc.SectionAddr && !strings.HasPrefix(name, ".debug_r") {
			name += ".dwo"
		}
		out = append(out, objfile.Section{Name: name, Data: s.Data})
	}
	return out
}

// WriteObject encodes r and writes it to path as an object file.
func (r *Result) WriteObject(path string, format objfile.Format, base uint64) error {
	secs, err := r.Encode(base)
	if err != nil {
		return err
	}
	p := r.Context.Policy
	return objfile.Write(path, objfile.Options{Format: format, AddrSize: p.AddrSize}, ObjectSections(secs, p.SplitDwarf))
}
