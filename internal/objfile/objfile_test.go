package objfile

import (
	"bytes"
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"os"
	"path/filepath"
	"testing"

	"github.com/orizon-lang/dwarfgen/internal/dwarfenc"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/logging"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

var sample = []Section{
	{Name: ".debug_abbrev", Data: []byte{1, 2, 3}},
	{Name: ".debug_info", Data: []byte{4, 5, 6, 7, 8}},
	{Name: ".debug_line", Data: nil},
	{Name: ".debug_str_offsets", Data: []byte{9}},
}

func TestBuild_ELF64(t *testing.T) {
	b, err := Build(Options{Format: ELF, AddrSize: 8}, sample)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	if f.Class != elf.ELFCLASS64 || f.Type != elf.ET_REL || f.Machine != elf.EM_X86_64 {
		t.Fatalf("header %v %v %v", f.Class, f.Type, f.Machine)
	}
	if f.Section(".debug_line") != nil {
		t.Fatalf("empty section was written")
	}
	data, err := f.Section(".debug_info").Data()
	if err != nil || !bytes.Equal(data, []byte{4, 5, 6, 7, 8}) {
		t.Fatalf(".debug_info = %v, %v", data, err)
	}
}

func TestBuild_ELF32(t *testing.T) {
	b, err := Build(Options{Format: ELF, AddrSize: 4}, sample)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	if f.Class != elf.ELFCLASS32 {
		t.Fatalf("class %v", f.Class)
	}
	data, err := f.Section(".debug_str_offsets").Data()
	if err != nil || !bytes.Equal(data, []byte{9}) {
		t.Fatalf(".debug_str_offsets = %v, %v", data, err)
	}
}

func TestBuild_MachO(t *testing.T) {
	b, err := Build(Options{Format: MachO}, sample)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f, err := macho.NewFile(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("macho.NewFile: %v", err)
	}
	s := f.Section("__debug_abbrev")
	if s == nil || s.Seg != "__DWARF" {
		t.Fatalf("__debug_abbrev missing")
	}
	if data, _ := s.Data(); !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("__debug_abbrev = %v", data)
	}
	if f.Section("__debug_str_offs") == nil {
		t.Fatalf("long name not truncated")
	}
}

func TestBuild_COFFLongNames(t *testing.T) {
	b, err := Build(Options{Format: COFF}, sample)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f, err := pe.NewFile(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("pe.NewFile: %v", err)
	}
	s := f.Section(".debug_str_offsets")
	if s == nil {
		t.Fatalf("long section name not resolved")
	}
	if data, _ := s.Data(); !bytes.Equal(data, []byte{9}) {
		t.Fatalf(".debug_str_offsets = %v", data)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build(Options{}, []Section{{Name: ".debug_info"}}); err == nil {
		t.Fatalf("expected error for an object without data")
	}
	if _, err := Build(Options{}, []Section{{Data: []byte{1}}}); err == nil {
		t.Fatalf("expected error for an unnamed section")
	}
	if _, err := ParseFormat("a.out"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWrite_ELFRoundTripsGeneratedDWARF(t *testing.T) {
	m, err := metadata.LoadModule("../metadata/testdata/list.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c, err := dwarfunit.NewContext(dwarfunit.DefaultPolicy(), m, nil, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range m.CompileUnits() {
		c.NewCompileUnit(id).Build(m)
	}
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	enc, err := dwarfenc.Encode(c, dwarfenc.BuildAddressMap(m, 0))
	if err != nil {
		t.Fatal(err)
	}
	var secs []Section
	for _, s := range enc.Named() {
		secs = append(secs, Section{Name: s.Name, Data: s.Data})
	}

	out := filepath.Join(t.TempDir(), "list.o")
	if err := Write(out, Options{Format: ELF, AddrSize: 8}, secs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	d, err := f.DWARF()
	if err != nil {
		t.Fatalf("DWARF: %v", err)
	}
	r := d.Reader()
	found := false
	for {
		e, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if e == nil {
			break
		}
		if e.Tag == dwarf.TagSubprogram && e.Val(dwarf.AttrName) == "main" {
			found = true
		}
	}
	if !found {
		t.Fatalf("subprogram main not found")
	}
}
