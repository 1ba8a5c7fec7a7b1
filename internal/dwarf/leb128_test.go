package dwarf

import (
	"bytes"
	"testing"
)

func TestULEB128(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{2, []byte{0x02}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, c := range cases {
		got := AppendULEB128(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("uleb128(%d) = %x want %x", c.v, got, c.want)
		}
		if n := ULEB128Size(c.v); n != len(c.want) {
			t.Fatalf("size(%d) = %d want %d", c.v, n, len(c.want))
		}
	}
}

func TestSLEB128(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{2, []byte{0x02}},
		{-2, []byte{0x7e}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-128, []byte{0x80, 0x7f}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, c := range cases {
		got := AppendSLEB128(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("sleb128(%d) = %x want %x", c.v, got, c.want)
		}
		if n := SLEB128Size(c.v); n != len(c.want) {
			t.Fatalf("size(%d) = %d want %d", c.v, n, len(c.want))
		}
	}
}

func TestNames(t *testing.T) {
	if TagStructureType.String() != "DW_TAG_structure_type" {
		t.Fatalf("unexpected tag name %s", TagStructureType)
	}
	if got, ok := TagByName("DW_TAG_base_type"); !ok || got != TagBaseType {
		t.Fatalf("TagByName: %v %v", got, ok)
	}
	if Form(0x7777).String() != "DW_FORM_unknown_0x7777" {
		t.Fatalf("unexpected unknown form name %s", Form(0x7777))
	}
	if !TagPointerType.IsType() || TagSubprogram.IsType() {
		t.Fatalf("IsType classification wrong")
	}
}

func TestFixedSize(t *testing.T) {
	p := FormParams{Version: 4, AddrSize: 8}
	if n, ok := p.FixedSize(FormAddr); !ok || n != 8 {
		t.Fatalf("addr size %d %v", n, ok)
	}
	if n, _ := p.FixedSize(FormRefAddr); n != 4 {
		t.Fatalf("ref_addr v4 size %d", n)
	}
	p2 := FormParams{Version: 2, AddrSize: 8}
	if n, _ := p2.FixedSize(FormRefAddr); n != 8 {
		t.Fatalf("ref_addr v2 size %d", n)
	}
	if _, ok := p.FixedSize(FormUdata); ok {
		t.Fatalf("udata must be variable width")
	}
}
