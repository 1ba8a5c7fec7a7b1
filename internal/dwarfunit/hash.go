package dwarfunit

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"hash"
	"math"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// hashedAttributes lists the attributes that contribute to a type
// signature, in hashing order.
var hashedAttributes = []dwarf.Attribute{
	dwarf.AttrName,
	dwarf.AttrAccessibility,
	dwarf.AttrArtificial,
	dwarf.AttrBitOffset,
	dwarf.AttrBitSize,
	dwarf.AttrByteSize,
	dwarf.AttrConstValue,
	dwarf.AttrContainingType,
	dwarf.AttrCount,
	dwarf.AttrDataBitOffset,
	dwarf.AttrDataMemberLocation,
	dwarf.AttrEncoding,
	dwarf.AttrEnumClass,
	dwarf.AttrExplicit,
	dwarf.AttrLocation,
	dwarf.AttrLowerBound,
	dwarf.AttrPrototyped,
	dwarf.AttrVirtuality,
	dwarf.AttrVtableElemLocation,
	dwarf.AttrType,
}

// dieHasher computes the DWARF type signature of an entry tree: an MD5
// over a flattened description of tags, selected attributes and children,
// where references to already-visited entries are numbered.
type dieHasher struct {
	h         hash.Hash
	numbering map[*die.Entry]uint64
	buf       []byte
}

// TypeSignatureOf returns the 64-bit signature of the type rooted at e.
// Equal type descriptions yield equal signatures whatever unit holds them.
func TypeSignatureOf(e *die.Entry) uint64 {
	d := &dieHasher{h: md5.New(), numbering: map[*die.Entry]uint64{e: 1}}
	if e.Parent != nil {
		d.addParentContext(e.Parent)
	}
	d.computeHash(e)
	sum := d.h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[8:])
}

func formatSignature(sig uint64) string { return fmt.Sprintf("%016x", sig) }

func (d *dieHasher) uleb(v uint64) {
	d.buf = dwarf.AppendULEB128(d.buf[:0], v)
	d.h.Write(d.buf)
}

func (d *dieHasher) sleb(v int64) {
	d.buf = dwarf.AppendSLEB128(d.buf[:0], v)
	d.h.Write(d.buf)
}

func (d *dieHasher) str(s string) {
	d.h.Write([]byte(s))
	d.h.Write([]byte{0})
}

// addParentContext hashes the enclosing scopes of an entry, outermost
// first, up to but excluding the unit entry.
func (d *dieHasher) addParentContext(parent *die.Entry) {
	var chain []*die.Entry
	for p := parent; p != nil && p.Parent != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		d.uleb('C')
		d.uleb(uint64(chain[i].Tag))
		if name := chain[i].Name(); name != "" {
			d.str(name)
		}
	}
}

func (d *dieHasher) computeHash(e *die.Entry) {
	d.uleb('D')
	d.uleb(uint64(e.Tag))
	for _, a := range hashedAttributes {
		if at, ok := e.Find(a); ok {
			d.hashAttribute(e.Tag, at)
		}
	}
	for _, c := range e.Children {
		// Named nested types and member functions contribute their name only.
		if name := c.Name(); name != "" && (c.Tag == dwarf.TagSubprogram || c.Tag.IsType()) {
			d.uleb('S')
			d.uleb(uint64(c.Tag))
			d.str(name)
			continue
		}
		d.computeHash(c)
	}
	d.uleb(0)
}

func (d *dieHasher) hashAttribute(tag dwarf.Tag, at die.Attr) {
	switch v := at.Value.(type) {
	case die.EntryRef:
		if t := v.Ref.Target(); t != nil {
			d.hashEntryRef(at.Attr, tag, t)
		}
		return
	case *die.TypeSignature, die.Label, die.Delta:
		return
	}
	d.uleb('A')
	d.uleb(uint64(at.Attr))
	switch v := at.Value.(type) {
	case die.Flag:
		d.uleb(uint64(dwarf.FormFlag))
		if v {
			d.uleb(1)
		} else {
			d.uleb(0)
		}
	case die.Unsigned:
		d.uleb(uint64(dwarf.FormSdata))
		d.sleb(int64(v))
	case die.Signed:
		d.uleb(uint64(dwarf.FormSdata))
		d.sleb(int64(v))
	case die.String:
		d.uleb(uint64(dwarf.FormString))
		d.str(v.Str())
	case *die.Block:
		d.hashBlock(v.Items)
	case *die.Loc:
		d.hashBlock(v.Items)
	}
}

func (d *dieHasher) hashBlock(items []die.BlockItem) {
	var b []byte
	for _, it := range items {
		b = appendItem(b, it)
	}
	d.uleb(uint64(dwarf.FormBlock))
	d.uleb(uint64(len(b)))
	d.h.Write(b)
}

func appendItem(b []byte, it die.BlockItem) []byte {
	var u uint64
	switch v := it.Value.(type) {
	case die.Unsigned:
		u = uint64(v)
	case die.Signed:
		if it.Form == dwarf.FormSdata {
			return dwarf.AppendSLEB128(b, int64(v))
		}
		u = uint64(v)
	case die.Label:
		return append(b, v.Symbol...)
	default:
		return b
	}
	switch it.Form {
	case dwarf.FormData1:
		return append(b, byte(u))
	case dwarf.FormData2:
		return binary.LittleEndian.AppendUint16(b, uint16(u))
	case dwarf.FormData4:
		return binary.LittleEndian.AppendUint32(b, uint32(u&math.MaxUint32))
	case dwarf.FormData8:
		return binary.LittleEndian.AppendUint64(b, u)
	case dwarf.FormSdata:
		return dwarf.AppendSLEB128(b, int64(u))
	}
	return dwarf.AppendULEB128(b, u)
}

func (d *dieHasher) hashEntryRef(attr dwarf.Attribute, tag dwarf.Tag, target *die.Entry) {
	// Pointers and references to named types hash the name, not the type.
	if attr == dwarf.AttrType {
		switch tag {
		case dwarf.TagPointerType, dwarf.TagReferenceType, dwarf.TagRvalueReferenceType, dwarf.TagPtrToMemberType:
			if name := target.Name(); name != "" {
				d.uleb('N')
				d.uleb(uint64(attr))
				if target.Parent != nil {
					d.addParentContext(target.Parent)
				}
				d.uleb('E')
				d.str(name)
				return
			}
		}
	}
	if n, ok := d.numbering[target]; ok {
		d.uleb('R')
		d.uleb(uint64(attr))
		d.uleb(n)
		return
	}
	d.uleb('T')
	d.uleb(uint64(attr))
	d.numbering[target] = uint64(len(d.numbering) + 1)
	d.computeHash(target)
}
