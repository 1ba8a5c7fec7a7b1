// Package dwarfenc serializes a finalized dwarfunit.Context into the bytes
// of the DWARF debug sections.
package dwarfenc

import (
	"fmt"
	"sort"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/dwarfunit"
	"github.com/orizon-lang/dwarfgen/internal/errors"
)

// Section names.
const (
	SectionAbbrev     = ".debug_abbrev"
	SectionInfo       = ".debug_info"
	SectionTypes      = ".debug_types"
	SectionLine       = ".debug_line"
	SectionStr        = ".debug_str"
	SectionStrOffsets = ".debug_str_offsets"
	SectionAddr       = ".debug_addr"
	SectionRanges     = ".debug_ranges"
	SectionRnglists   = ".debug_rnglists"
)

// Relocation is a position the encoder could not resolve: Size bytes at
// Offset in Section hold Symbol+Addend, minus Minus when it is set.
type Relocation struct {
	Section string
	Offset  uint64
	Size    int
	Symbol  string
	Minus   string
	Addend  int64
}

// Sections are the encoded debug sections. Empty sections are nil.
type Sections struct {
	Abbrev      []byte
	Info        []byte
	Types       []byte
	Line        []byte
	Str         []byte
	StrOffsets  []byte
	Addr        []byte
	Ranges      []byte
	Relocations []Relocation

	rnglists bool
}

// Named returns the non-empty sections in a fixed order.
func (s *Sections) Named() []NamedSection {
	all := []NamedSection{
		{SectionAbbrev, s.Abbrev},
		{SectionInfo, s.Info},
		{SectionTypes, s.Types},
		{SectionLine, s.Line},
		{SectionStr, s.Str},
		{SectionStrOffsets, s.StrOffsets},
		{SectionAddr, s.Addr},
		{s.rangesName(), s.Ranges},
	}
	out := all[:0]
	for _, n := range all {
		if len(n.Data) > 0 {
			out = append(out, n)
		}
	}
	return out
}

func (s *Sections) rangesName() string {
	if len(s.Ranges) > 0 && s.rnglists {
		return SectionRnglists
	}
	return SectionRanges
}

// NamedSection pairs a section name with its contents.
type NamedSection struct {
	Name string
	Data []byte
}

type encoder struct {
	c      *dwarfunit.Context
	params dwarf.FormParams
	syms   Resolver

	abbrev, info, types, line, str, strOffsets, addr, ranges *section

	// labels resolves section-relative labels: line tables and range
	// lists.
	labels map[string]uint64
	relocs []Relocation
}

// Encode writes the sections of a finalized context. Symbols that syms does
// not resolve are written as zero and reported as relocations; syms may be
// nil.
func Encode(c *dwarfunit.Context, syms Resolver) (_ *Sections, err error) {
	for _, cu := range c.CompileUnits() {
		if cu.State() != dwarfunit.StateClosed {
			return nil, errors.EncodeFailed(SectionInfo, "context is not finalized")
		}
	}
	e := &encoder{
		c:          c,
		params:     c.Policy.FormParams(),
		syms:       syms,
		abbrev:     &section{name: SectionAbbrev},
		info:       &section{name: SectionInfo},
		types:      &section{name: SectionTypes},
		line:       &section{name: SectionLine},
		str:        &section{name: SectionStr},
		strOffsets: &section{name: SectionStrOffsets},
		addr:       &section{name: SectionAddr},
		ranges:     &section{name: SectionRanges},
		labels:     make(map[string]uint64),
	}
	rnglists := c.Policy.DwarfVersion >= 5
	if rnglists {
		e.ranges.name = SectionRnglists
	}
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*errors.StandardError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()

	cus := c.CompileUnits()
	tus := c.TypeUnits()
	if !c.Policy.SplitDwarf {
		for _, cu := range cus {
			e.labels[cu.LineTableSymbol()] = uint64(e.writeLineTable(&cu.Unit, cu.Lines()))
		}
		for _, tu := range tus {
			e.labels[tu.LineTableSymbol()] = uint64(e.writeLineTable(&tu.Unit, nil))
		}
	}
	for _, cu := range cus {
		if len(cu.Ranges()) > 1 {
			e.labels[cu.RangesSymbol()] = e.writeRangeList(cu.Ranges(), rnglists)
		}
	}
	e.writeStrings()
	e.writeAddrPool()
	e.writeAbbrevs()

	for _, cu := range cus {
		e.writeUnit(e.info, &cu.Unit, nil)
	}
	for _, tu := range tus {
		s := e.types
		if c.Policy.DwarfVersion >= 5 {
			s = e.info
		}
		e.writeUnit(s, &tu.Unit, tu)
	}

	sort.SliceStable(e.relocs, func(i, j int) bool {
		if e.relocs[i].Section != e.relocs[j].Section {
			return e.relocs[i].Section < e.relocs[j].Section
		}
		return e.relocs[i].Offset < e.relocs[j].Offset
	})
	return &Sections{
		Abbrev:      bytesOf(e.abbrev),
		Info:        bytesOf(e.info),
		Types:       bytesOf(e.types),
		Line:        bytesOf(e.line),
		Str:         bytesOf(e.str),
		StrOffsets:  bytesOf(e.strOffsets),
		Addr:        bytesOf(e.addr),
		Ranges:      bytesOf(e.ranges),
		Relocations: e.relocs,
		rnglists:    rnglists,
	}, nil
}

func bytesOf(s *section) []byte {
	if s.Len() == 0 {
		return nil
	}
	return s.Bytes()
}

func (e *encoder) writeAbbrevs() {
	s := e.abbrev
	for _, ab := range e.c.Abbrevs.Abbrevs() {
		s.uleb(uint64(ab.Number))
		s.uleb(uint64(ab.Tag))
		if ab.Children {
			s.u8(1)
		} else {
			s.u8(0)
		}
		for _, a := range ab.Attrs {
			s.uleb(uint64(a.Attr))
			s.uleb(uint64(a.Form))
		}
		s.u8(0)
		s.u8(0)
	}
	s.u8(0)
}

// writeStrings emits the string pool in offset order, and the offsets
// table that indexed string forms go through in split units.
func (e *encoder) writeStrings() {
	entries := e.c.Strings.Entries()
	for _, se := range entries {
		if uint64(se.Offset) != e.str.off() {
			panic(errors.EncodeFailed(SectionStr, fmt.Sprintf("string %q at %d, laid out at %d", se.Str, e.str.off(), se.Offset)))
		}
		e.str.cstr(se.Str)
	}
	if !e.c.Policy.SplitDwarf || len(entries) == 0 {
		return
	}
	s := e.strOffsets
	if e.c.Policy.Has(dwarfunit.FeatureIndexedForms) {
		s.u32(uint32(4 + 4*len(entries)))
		s.u16(5)
		s.u16(0)
	}
	for _, se := range entries {
		s.u32(se.Offset)
	}
}

// writeAddrPool emits the address pool. Thread-local slots hold the offset
// of the variable in its TLS block.
func (e *encoder) writeAddrPool() {
	entries := e.c.Addrs.Entries()
	if len(entries) == 0 {
		return
	}
	s := e.addr
	size := int(e.c.Policy.AddrSize)
	if e.c.Policy.Has(dwarfunit.FeatureIndexedForms) {
		s.u32(uint32(4 + size*len(entries)))
		s.u16(5)
		s.u8(e.c.Policy.AddrSize)
		s.u8(0)
	}
	for _, a := range entries {
		sym := a.Symbol
		if a.TLS {
			sym += "@dtpoff"
		}
		e.writeAddress(s, sym, 0, size)
	}
}

// writeRangeList emits one range list and returns its offset.
func (e *encoder) writeRangeList(ranges []dwarfunit.Range, rnglists bool) uint64 {
	s := e.ranges
	size := int(e.c.Policy.AddrSize)
	if rnglists && s.Len() == 0 {
		s.u32(0)
		s.u16(5)
		s.u8(e.c.Policy.AddrSize)
		s.u8(0)
		s.u32(0) // offset_entry_count
	}
	start := s.off()
	for _, r := range ranges {
		if rnglists {
			s.u8(dwarf.RLEStartEnd)
		}
		e.writeAddress(s, r.Begin, 0, size)
		e.writeAddress(s, r.End, 0, size)
	}
	if rnglists {
		s.u8(dwarf.RLEEndOfList)
		s.patch32(0, uint32(s.Len()-4))
	} else {
		s.uint(0, size)
		s.uint(0, size)
	}
	return start
}

// writeAddress writes the address of sym plus addend, or zero and a
// relocation when it cannot be resolved.
func (e *encoder) writeAddress(s *section, sym string, addend int64, size int) {
	if e.syms != nil {
		if v, ok := e.syms.Lookup(sym); ok {
			s.uint(v+uint64(addend), size)
			return
		}
	}
	e.relocs = append(e.relocs, Relocation{Section: s.name, Offset: s.off(), Size: size, Symbol: sym, Addend: addend})
	s.uint(0, size)
}

// writeUnit emits a unit header and its entry tree. tu is nil for compile
// units.
func (e *encoder) writeUnit(s *section, u *dwarfunit.Unit, tu *dwarfunit.TypeUnit) {
	start := s.off()
	if start != uint64(u.Offset) {
		panic(errors.EncodeFailed(s.name, fmt.Sprintf("unit %d at %d, laid out at %d", u.ID(), start, u.Offset)))
	}
	p := e.c.Policy
	s.u32(u.Length - 4)
	s.u16(p.DwarfVersion)
	if p.Has(dwarfunit.FeatureUnitTypeHeader) {
		ut := dwarf.UnitTypeCompile
		switch {
		case tu != nil && u.IsDwo():
			ut = dwarf.UnitTypeSplitType
		case tu != nil:
			ut = dwarf.UnitTypeType
		case u.IsDwo():
			ut = dwarf.UnitTypeSplitCompile
		}
		s.u8(uint8(ut))
		s.u8(p.AddrSize)
		s.u32(0)
		if tu == nil && u.IsDwo() {
			var id uint64
			if a, ok := u.Root().Find(dwarf.AttrGNUDwoID); ok {
				if v, ok := a.Value.(die.Unsigned); ok {
					id = uint64(v)
				}
			}
			s.u64(id)
		}
	} else {
		s.u32(0)
		s.u8(p.AddrSize)
	}
	if tu != nil {
		s.u64(tu.Signature())
		s.u32(tu.TypeOffset())
	}
	if got := s.off() - start; got != uint64(u.HeaderSize()) {
		panic(errors.EncodeFailed(s.name, fmt.Sprintf("unit %d header is %d bytes, laid out as %d", u.ID(), got, u.HeaderSize())))
	}
	e.writeEntry(s, start, u.Root())
	if got := s.off() - start; got != uint64(u.Length) {
		panic(errors.EncodeFailed(s.name, fmt.Sprintf("unit %d is %d bytes, laid out as %d", u.ID(), got, u.Length)))
	}
}

func (e *encoder) writeEntry(s *section, unitStart uint64, ent *die.Entry) {
	if s.off()-unitStart != uint64(ent.Offset) {
		panic(errors.EncodeFailed(s.name, fmt.Sprintf("%s at %d, laid out at %d", ent.Tag, s.off()-unitStart, ent.Offset)))
	}
	s.uleb(uint64(ent.Abbrev))
	for _, a := range ent.Attrs {
		e.writeValue(s, a.Form, a.Value)
	}
	if len(ent.Children) == 0 {
		return
	}
	for _, c := range ent.Children {
		e.writeEntry(s, unitStart, c)
	}
	s.u8(0)
}

// writeUint writes v in a constant, reference or offset form.
func (e *encoder) writeUint(s *section, f dwarf.Form, v uint64) {
	switch f {
	case dwarf.FormUdata, dwarf.FormRefUdata, dwarf.FormStrx, dwarf.FormAddrx,
		dwarf.FormGNUStrIndex, dwarf.FormGNUAddrIndex:
		s.uleb(v)
	case dwarf.FormSdata:
		s.sleb(int64(v))
	default:
		n, ok := e.params.FixedSize(f)
		if !ok {
			panic(errors.EncodeFailed(s.name, "no fixed size for "+f.String()))
		}
		s.uint(v, n)
	}
}

func (e *encoder) writeValue(s *section, f dwarf.Form, v die.Value) {
	switch v := v.(type) {
	case die.Flag:
		if f != dwarf.FormFlagPresent {
			b := uint8(0)
			if v {
				b = 1
			}
			s.u8(b)
		}
	case die.Unsigned:
		e.writeUint(s, f, uint64(v))
	case die.Signed:
		if f == dwarf.FormSdata {
			s.sleb(int64(v))
		} else {
			e.writeUint(s, f, uint64(v))
		}
	case die.String:
		switch f {
		case dwarf.FormString:
			s.cstr(v.Str())
		case dwarf.FormStrp:
			s.u32(v.Entry.Offset)
		default:
			s.uleb(uint64(v.Entry.Index))
		}
	case die.Label:
		e.writeLabel(s, f, v)
	case die.Delta:
		n, _ := e.params.FixedSize(f)
		if e.syms != nil {
			hi, ok1 := e.syms.Lookup(v.Hi)
			lo, ok2 := e.syms.Lookup(v.Lo)
			if ok1 && ok2 {
				s.uint(hi-lo, n)
				return
			}
		}
		e.relocs = append(e.relocs, Relocation{Section: s.name, Offset: s.off(), Size: n, Symbol: v.Hi, Minus: v.Lo})
		s.uint(0, n)
	case die.EntryRef:
		t := v.Ref.Target()
		if t == nil {
			panic(errors.MissingEntry(v.Ref.Node, "encode reference"))
		}
		switch f {
		case dwarf.FormRefAddr:
			off, ok := e.c.SectionOffset(t)
			if !ok {
				panic(errors.MissingEntry(v.Ref.Node, "encode cross-unit reference"))
			}
			s.uint(uint64(off), e.params.RefAddrSize())
		default:
			e.writeUint(s, f, uint64(t.Offset))
		}
	case *die.Block:
		e.writeBlock(s, f, v.ContentSize(e.params), v.Items)
	case *die.Loc:
		e.writeBlock(s, f, v.ContentSize(e.params), v.Items)
	case *die.TypeSignature:
		s.u64(v.Signature)
	default:
		panic(errors.EncodeFailed(s.name, fmt.Sprintf("unknown value %T", v)))
	}
}

func (e *encoder) writeBlock(s *section, f dwarf.Form, n int, items []die.BlockItem) {
	switch f {
	case dwarf.FormBlock1:
		s.u8(uint8(n))
	case dwarf.FormBlock2:
		s.u16(uint16(n))
	case dwarf.FormBlock4:
		s.u32(uint32(n))
	default:
		s.uleb(uint64(n))
	}
	for _, it := range items {
		e.writeValue(s, it.Form, it.Value)
	}
}

func (e *encoder) writeLabel(s *section, f dwarf.Form, v die.Label) {
	switch f {
	case dwarf.FormAddrx, dwarf.FormGNUAddrIndex:
		var idx uint64
		if v.Index != nil {
			idx = uint64(*v.Index)
		}
		s.uleb(idx)
		return
	case dwarf.FormUdata:
		s.uleb(v.Offset)
		return
	}
	n, ok := e.params.FixedSize(f)
	if !ok {
		panic(errors.EncodeFailed(s.name, "no fixed size for label form "+f.String()))
	}
	if off, ok := e.labels[v.Symbol]; ok {
		s.uint(off+v.Offset, n)
		return
	}
	e.writeAddress(s, v.Symbol, int64(v.Offset), n)
}
