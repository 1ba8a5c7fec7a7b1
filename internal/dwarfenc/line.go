package dwarfenc

import (
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
)

// Line program parameters shared by every unit.
const (
	lineBase   = -5
	lineRange  = 14
	opcodeBase = 13
)

var standardOpcodeLengths = [opcodeBase - 1]uint8{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

// lineVersion is the line table version used with a unit version. DWARF 2
// and 3 share a header layout.
func lineVersion(v uint16) uint16 {
	if v < 4 {
		return 2
	}
	return v
}

// writeLineTable appends the line program of one unit: its file table and,
// for compile units, one sequence per function. It returns the offset of
// the table in the section.
func (e *encoder) writeLineTable(u *dwarfunit.Unit, fns []dwarfunit.FunctionLines) uint32 {
	s := e.line
	start := s.off()
	version := lineVersion(e.c.Policy.DwarfVersion)

	s.u32(0)
	s.u16(version)
	if version >= 5 {
		s.u8(e.c.Policy.AddrSize)
		s.u8(0) // segment selector size
	}
	hdrLenAt := s.off()
	s.u32(0)
	hdrStart := s.off()
	s.u8(InstructionSize) // minimum_instruction_length
	if version >= 4 {
		s.u8(1) // maximum_operations_per_instruction
	}
	s.u8(1) // default_is_stmt
	lb := int8(lineBase)
	s.u8(uint8(lb))
	s.u8(lineRange)
	s.u8(opcodeBase)
	for _, n := range standardOpcodeLengths {
		s.u8(n)
	}

	files := u.Files()
	var dirs []string
	dirIndex := map[string]uint64{"": 0}
	for _, f := range files {
		if _, ok := dirIndex[f.Dir]; !ok {
			dirs = append(dirs, f.Dir)
			dirIndex[f.Dir] = uint64(len(dirs))
		}
	}

	if version >= 5 {
		// Entry 0 of both tables is the compilation directory and the
		// primary file; the file table is otherwise numbered from 1 as
		// decl_file expects.
		s.u8(1)
		s.uleb(dwarf.LNCTPath)
		s.uleb(uint64(dwarf.FormString))
		s.uleb(uint64(len(dirs) + 1))
		s.cstr("")
		for _, d := range dirs {
			s.cstr(d)
		}
		s.u8(2)
		s.uleb(dwarf.LNCTPath)
		s.uleb(uint64(dwarf.FormString))
		s.uleb(dwarf.LNCTDirectoryIndex)
		s.uleb(uint64(dwarf.FormUdata))
		s.uleb(uint64(len(files) + 1))
		primary := dwarfunit.SourceFile{}
		if len(files) > 0 {
			primary = files[0]
		}
		s.cstr(primary.Name)
		s.uleb(dirIndex[primary.Dir])
		for _, f := range files {
			s.cstr(f.Name)
			s.uleb(dirIndex[f.Dir])
		}
	} else {
		for _, d := range dirs {
			s.cstr(d)
		}
		s.u8(0)
		for _, f := range files {
			s.cstr(f.Name)
			s.uleb(dirIndex[f.Dir])
			s.uleb(0) // mtime
			s.uleb(0) // length
		}
		s.u8(0)
	}
	s.patch32(hdrLenAt, uint32(s.off()-hdrStart))

	for _, fn := range fns {
		e.writeSequence(fn)
	}
	s.patch32(start, uint32(s.off()-start-4))
	return uint32(start)
}

// writeSequence emits the rows of one function, one instruction slot per
// row, closing them with an end_sequence at the function end.
func (e *encoder) writeSequence(fn dwarfunit.FunctionLines) {
	s := e.line
	addrSize := int(e.c.Policy.AddrSize)
	s.u8(0)
	s.uleb(uint64(1 + addrSize))
	s.u8(dwarf.LNESetAddress)
	e.writeAddress(s, dwarfunit.FunctionBegin(fn.Name), 0, addrSize)

	if fn.File != 1 {
		s.u8(dwarf.LNSSetFile)
		s.uleb(fn.File)
	}
	line, column := uint(1), uint(0)
	var pending uint64
	emitted := false
	for _, r := range fn.Rows {
		if !emitted || r.Line != line || r.Column != column {
			if pending > 0 {
				s.u8(dwarf.LNSAdvancePC)
				s.uleb(pending / InstructionSize)
				pending = 0
			}
			if r.Column != column {
				s.u8(dwarf.LNSSetColumn)
				s.uleb(uint64(r.Column))
				column = r.Column
			}
			if r.Line != line {
				s.u8(dwarf.LNSAdvanceLine)
				s.sleb(int64(r.Line) - int64(line))
				line = r.Line
			}
			s.u8(dwarf.LNSCopy)
			emitted = true
		}
		pending += InstructionSize
	}
	if pending == 0 {
		pending = InstructionSize
	}
	s.u8(dwarf.LNSAdvancePC)
	s.uleb(pending / InstructionSize)
	s.u8(0)
	s.uleb(1)
	s.u8(dwarf.LNEEndSequence)
}
