package die

import (
	"strconv"
	"strings"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// AbbrevAttr is one attribute specification of an abbreviation.
type AbbrevAttr struct {
	Attr dwarf.Attribute
	Form dwarf.Form
}

// Abbrev describes the shape shared by entries with the same tag, children
// flag and attribute/form list.
type Abbrev struct {
	Number   uint32
	Tag      dwarf.Tag
	Children bool
	Attrs    []AbbrevAttr
}

// AbbrevSet numbers distinct abbreviations starting at 1.
type AbbrevSet struct {
	list  []*Abbrev
	index map[string]*Abbrev
}

// NewAbbrevSet returns an empty set.
func NewAbbrevSet() *AbbrevSet {
	return &AbbrevSet{index: make(map[string]*Abbrev)}
}

func abbrevKey(e *Entry) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(e.Tag), 16))
	if len(e.Children) > 0 {
		b.WriteString("+")
	} else {
		b.WriteString("-")
	}
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(a.Attr), 16))
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(a.Form), 16))
	}
	return b.String()
}

// Assign returns the abbreviation for e, adding it when new, and records
// its number on e.
func (s *AbbrevSet) Assign(e *Entry) *Abbrev {
	key := abbrevKey(e)
	if ab, ok := s.index[key]; ok {
		e.Abbrev = ab.Number
		return ab
	}
	ab := &Abbrev{
		Number:   uint32(len(s.list) + 1),
		Tag:      e.Tag,
		Children: len(e.Children) > 0,
		Attrs:    make([]AbbrevAttr, len(e.Attrs)),
	}
	for i, a := range e.Attrs {
		ab.Attrs[i] = AbbrevAttr{Attr: a.Attr, Form: a.Form}
	}
	s.list = append(s.list, ab)
	s.index[key] = ab
	e.Abbrev = ab.Number
	return ab
}

// Abbrevs returns the abbreviations in number order.
func (s *AbbrevSet) Abbrevs() []*Abbrev { return s.list }

// Len returns the number of distinct abbreviations.
func (s *AbbrevSet) Len() int { return len(s.list) }

// ComputeSizeAndOffsets assigns abbreviation numbers, offsets and sizes to e
// and its descendants, starting at offset. It returns the offset just past
// the subtree, including the null entry closing each child list.
func ComputeSizeAndOffsets(e *Entry, offset uint32, abbrevs *AbbrevSet, p dwarf.FormParams) uint32 {
	ab := abbrevs.Assign(e)
	e.Offset = offset
	size := uint32(dwarf.ULEB128Size(uint64(ab.Number)))
	for _, a := range e.Attrs {
		size += uint32(a.Value.Size(a.Form, p))
	}
	offset += size
	if len(e.Children) > 0 {
		for _, c := range e.Children {
			offset = ComputeSizeAndOffsets(c, offset, abbrevs, p)
		}
		offset++
	}
	e.Size = offset - e.Offset
	return offset
}
