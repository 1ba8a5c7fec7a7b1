package die

import (
	"fmt"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// Value is an attribute value. The set of implementations is closed; every
// switch over values in this module lists all of them.
type Value interface {
	isValue()
	// Size returns the encoded size of the value in form f.
	Size(f dwarf.Form, p dwarf.FormParams) int
}

// Flag is a boolean attribute value.
type Flag bool

// Unsigned is an unsigned integer constant.
type Unsigned uint64

// Signed is a signed integer constant.
type Signed int64

// StringEntry is one string pool slot. Offset and Index are assigned by the
// pool at finalization.
type StringEntry struct {
	Str    string
	Offset uint32
	Index  uint32
}

// String refers to a pooled string, or carries it inline for DW_FORM_string.
type String struct {
	Entry *StringEntry
}

// Str returns the string contents.
func (s String) Str() string {
	if s.Entry == nil {
		return ""
	}
	return s.Entry.Str
}

// Label is a symbolic address or section position, resolved by the encoder
// through relocations. Index is the address pool slot for indexed forms.
type Label struct {
	Symbol string
	Offset uint64
	Index  *uint32
}

// Delta is the difference between two labels.
type Delta struct {
	Hi string
	Lo string
}

// EntryRef references another entry through its proxy.
type EntryRef struct {
	Ref *Ref
}

// BlockItem is one element of a block: a form and the value encoded with it.
type BlockItem struct {
	Form  dwarf.Form
	Value Value
}

// Block is a sequence of values encoded as a DW_FORM_block*.
type Block struct {
	Items []BlockItem
}

// Loc is a location expression, encoded as exprloc or as a block depending
// on the version.
type Loc struct {
	Items []BlockItem
}

// TypeSignature references a type unit by its 64-bit signature. Signature
// is written by the type unit once its content hash is known.
type TypeSignature struct {
	Signature uint64
}

func (Flag) isValue()           {}
func (Unsigned) isValue()       {}
func (Signed) isValue()         {}
func (String) isValue()         {}
func (Label) isValue()          {}
func (Delta) isValue()          {}
func (EntryRef) isValue()       {}
func (*Block) isValue()         {}
func (*Loc) isValue()           {}
func (*TypeSignature) isValue() {}

// Add appends one item to the block.
func (b *Block) Add(f dwarf.Form, v Value) { b.Items = append(b.Items, BlockItem{Form: f, Value: v}) }

// Add appends one item to the location expression.
func (l *Loc) Add(f dwarf.Form, v Value) { l.Items = append(l.Items, BlockItem{Form: f, Value: v}) }

func itemsSize(items []BlockItem, p dwarf.FormParams) int {
	n := 0
	for _, it := range items {
		n += it.Value.Size(it.Form, p)
	}
	return n
}

// ContentSize returns the number of bytes in the block body.
func (b *Block) ContentSize(p dwarf.FormParams) int { return itemsSize(b.Items, p) }

// ContentSize returns the number of bytes in the expression body.
func (l *Loc) ContentSize(p dwarf.FormParams) int { return itemsSize(l.Items, p) }

func (v Flag) Size(f dwarf.Form, p dwarf.FormParams) int {
	if f == dwarf.FormFlagPresent {
		return 0
	}
	return 1
}

func (v Unsigned) Size(f dwarf.Form, p dwarf.FormParams) int {
	switch f {
	case dwarf.FormUdata, dwarf.FormGNUAddrIndex, dwarf.FormGNUStrIndex, dwarf.FormStrx, dwarf.FormAddrx:
		return dwarf.ULEB128Size(uint64(v))
	case dwarf.FormSdata:
		return dwarf.SLEB128Size(int64(v))
	}
	return fixed(f, p)
}

func (v Signed) Size(f dwarf.Form, p dwarf.FormParams) int {
	switch f {
	case dwarf.FormSdata:
		return dwarf.SLEB128Size(int64(v))
	case dwarf.FormUdata:
		return dwarf.ULEB128Size(uint64(v))
	}
	return fixed(f, p)
}

func (v String) Size(f dwarf.Form, p dwarf.FormParams) int {
	switch f {
	case dwarf.FormString:
		return len(v.Str()) + 1
	case dwarf.FormGNUStrIndex, dwarf.FormStrx:
		if v.Entry == nil {
			return 1
		}
		return dwarf.ULEB128Size(uint64(v.Entry.Index))
	}
	return fixed(f, p)
}

func (v Label) Size(f dwarf.Form, p dwarf.FormParams) int {
	switch f {
	case dwarf.FormGNUAddrIndex, dwarf.FormAddrx:
		if v.Index == nil {
			return 1
		}
		return dwarf.ULEB128Size(uint64(*v.Index))
	case dwarf.FormUdata:
		return dwarf.ULEB128Size(v.Offset)
	}
	return fixed(f, p)
}

func (v Delta) Size(f dwarf.Form, p dwarf.FormParams) int { return fixed(f, p) }

func (v EntryRef) Size(f dwarf.Form, p dwarf.FormParams) int { return fixed(f, p) }

func (v *Block) Size(f dwarf.Form, p dwarf.FormParams) int {
	n := v.ContentSize(p)
	return dwarf.BlockLengthSize(f, n) + n
}

func (v *Loc) Size(f dwarf.Form, p dwarf.FormParams) int {
	n := v.ContentSize(p)
	return dwarf.BlockLengthSize(f, n) + n
}

func (v *TypeSignature) Size(f dwarf.Form, p dwarf.FormParams) int { return 8 }

func fixed(f dwarf.Form, p dwarf.FormParams) int {
	n, ok := p.FixedSize(f)
	if !ok {
		panic(fmt.Sprintf("die: form %s has no fixed size", f))
	}
	return n
}

// Fits reports whether v can be encoded in the fixed-width or LEB form f.
func Fits(f dwarf.Form, v uint64) bool {
	switch f {
	case dwarf.FormData1, dwarf.FormRef1, dwarf.FormFlag:
		return v <= 0xff
	case dwarf.FormData2, dwarf.FormRef2:
		return v <= 0xffff
	case dwarf.FormData4, dwarf.FormRef4, dwarf.FormStrp, dwarf.FormSecOffset:
		return v <= 0xffffffff
	case dwarf.FormFlagPresent:
		return v == 1
	}
	return true
}

// FitsSigned reports whether v can be encoded in form f without loss.
func FitsSigned(f dwarf.Form, v int64) bool {
	switch f {
	case dwarf.FormData1:
		return v >= -0x80 && v <= 0xff
	case dwarf.FormData2:
		return v >= -0x8000 && v <= 0xffff
	case dwarf.FormData4:
		return v >= -0x80000000 && v <= 0xffffffff
	case dwarf.FormUdata:
		return v >= 0
	}
	return true
}

// Format renders the value for dumps.
func Format(v Value) string {
	switch v := v.(type) {
	case Flag:
		if v {
			return "true"
		}
		return "false"
	case Unsigned:
		return fmt.Sprintf("0x%x", uint64(v))
	case Signed:
		return fmt.Sprintf("%d", int64(v))
	case String:
		return fmt.Sprintf("%q", v.Str())
	case Label:
		if v.Offset != 0 {
			return fmt.Sprintf("%s+0x%x", v.Symbol, v.Offset)
		}
		return v.Symbol
	case Delta:
		return v.Hi + " - " + v.Lo
	case EntryRef:
		if t := v.Ref.Target(); t != nil {
			return fmt.Sprintf("{0x%08x}", t.Offset)
		}
		return "{unbound}"
	case *Block:
		return formatItems(v.Items)
	case *Loc:
		return formatItems(v.Items)
	case *TypeSignature:
		return fmt.Sprintf("0x%016x", v.Signature)
	}
	return "?"
}

func formatItems(items []BlockItem) string {
	s := "<"
	for i, it := range items {
		if i > 0 {
			s += " "
		}
		s += Format(it.Value)
	}
	return s + ">"
}
