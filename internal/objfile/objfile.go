// Package objfile packages encoded debug sections into relocatable object
// files that standard tools can read.
package objfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Format is an object file container.
type Format int

const (
	ELF Format = iota
	MachO
	COFF
)

func (f Format) String() string {
	switch f {
	case ELF:
		return "elf"
	case MachO:
		return "macho"
	case COFF:
		return "coff"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat accepts elf, macho or coff.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "elf", "":
		return ELF, nil
	case "macho", "mach-o":
		return MachO, nil
	case "coff", "pe":
		return COFF, nil
	}
	return 0, fmt.Errorf("unknown object format %q", s)
}

// Section is one named payload, named the ELF way (".debug_info").
type Section struct {
	Name string
	Data []byte
}

// Options select the container and its class.
type Options struct {
	Format Format
	// AddrSize selects ELFCLASS32 when 4. Mach-O and COFF are always
	// written for x86-64.
	AddrSize uint8
}

// Build returns the bytes of an object holding secs. Empty sections are
// skipped.
func Build(opts Options, secs []Section) ([]byte, error) {
	var kept []Section
	for _, s := range secs {
		if s.Name == "" {
			return nil, errors.New("objfile: unnamed section")
		}
		if len(s.Data) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("objfile: no sections")
	}
	switch opts.Format {
	case ELF:
		if opts.AddrSize == 4 {
			return buildELF32(kept), nil
		}
		return buildELF64(kept), nil
	case MachO:
		return buildMachO(kept)
	case COFF:
		return buildCOFF(kept), nil
	}
	return nil, fmt.Errorf("objfile: unsupported format %s", opts.Format)
}

// Write builds the object and writes it to path.
func Write(path string, opts Options, secs []Section) error {
	if path == "" {
		return errors.New("objfile: empty output path")
	}
	b, err := Build(opts, secs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
