package dwarfenc

import (
	"sort"

	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// InstructionSize is the pseudo size of one instruction slot.
const InstructionSize = 4

// Resolver maps a symbol to its address. ok is false for symbols the
// encoder must leave to a relocation.
type Resolver interface {
	Lookup(sym string) (addr uint64, ok bool)
}

// FunctionRange is the pseudo address range of one function body.
type FunctionRange struct {
	Name string
	Low  uint64
	High uint64
}

// AddressMap lays functions and global variables out at pseudo addresses
// so that a module can be encoded without a code generator: each
// instruction takes InstructionSize bytes, functions follow each other in
// module order from the base address, and data follows the text.
// Thread-local variables get offsets in their own block.
type AddressMap struct {
	Ranges  []FunctionRange
	symbols map[string]uint64
}

// BuildAddressMap lays out the functions and globals of m starting at base.
func BuildAddressMap(m *metadata.Module, base uint64) *AddressMap {
	am := &AddressMap{symbols: make(map[string]uint64)}
	pc := base
	for _, fn := range m.Functions {
		n := 0
		fn.Instructions(func(*metadata.Instruction) { n++ })
		if n == 0 {
			n = 1
		}
		r := FunctionRange{Name: fn.Name, Low: pc, High: pc + uint64(n*InstructionSize)}
		am.Ranges = append(am.Ranges, r)
		am.symbols[dwarfunit.FunctionBegin(fn.Name)] = r.Low
		am.symbols[dwarfunit.FunctionEnd(fn.Name)] = r.High
		pc = r.High
	}

	var data, tls []string
	seen := make(map[string]bool)
	for _, cu := range m.CompileUnits() {
		n := metadata.As[*metadata.CompileUnit](m.Ctx, cu)
		if n == nil {
			continue
		}
		for _, gv := range n.GlobalVariables {
			g := metadata.As[*metadata.GlobalVariable](m.Ctx, gv)
			if g == nil || g.Variable == nil || g.Variable.Symbol == "" || seen[g.Variable.Symbol] {
				continue
			}
			seen[g.Variable.Symbol] = true
			if g.Variable.ThreadLocal {
				tls = append(tls, g.Variable.Symbol)
			} else {
				data = append(data, g.Variable.Symbol)
			}
		}
	}
	sort.Strings(data)
	sort.Strings(tls)
	addr := (pc + 15) &^ 15
	for _, sym := range data {
		am.symbols[sym] = addr
		addr += 8
	}
	for i, sym := range tls {
		am.symbols[sym+"@dtpoff"] = uint64(i * 8)
	}
	return am
}

// Lookup implements Resolver.
func (m *AddressMap) Lookup(sym string) (uint64, bool) {
	addr, ok := m.symbols[sym]
	return addr, ok
}

// Define adds or moves a symbol.
func (m *AddressMap) Define(sym string, addr uint64) { m.symbols[sym] = addr }

// FunctionAt resolves a pseudo address to the function containing it.
func (m *AddressMap) FunctionAt(addr uint64) (string, bool) {
	for _, r := range m.Ranges {
		if addr >= r.Low && addr < r.High {
			return r.Name, true
		}
	}
	return "", false
}
