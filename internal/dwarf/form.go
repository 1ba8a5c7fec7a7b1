package dwarf

// FormParams carries the unit properties that decide how wide a form is.
type FormParams struct {
	Version  uint16
	AddrSize uint8
}

// RefAddrSize is the width of DW_FORM_ref_addr: the address size in DWARF 2,
// the 32-bit offset size afterwards.
func (p FormParams) RefAddrSize() int {
	if p.Version <= 2 {
		return int(p.AddrSize)
	}
	return 4
}

// FixedSize returns the encoded size of forms whose width does not depend on
// the value. ok is false for variable-width forms.
func (p FormParams) FixedSize(f Form) (size int, ok bool) {
	switch f {
	case FormFlagPresent:
		return 0, true
	case FormData1, FormRef1, FormFlag:
		return 1, true
	case FormData2, FormRef2:
		return 2, true
	case FormData4, FormRef4, FormStrp, FormSecOffset:
		return 4, true
	case FormData8, FormRef8, FormRefSig8:
		return 8, true
	case FormAddr:
		return int(p.AddrSize), true
	case FormRefAddr:
		return p.RefAddrSize(), true
	}
	return 0, false
}

// IsReference reports whether f encodes a reference to another entry.
func IsReference(f Form) bool {
	switch f {
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata, FormRefAddr:
		return true
	}
	return false
}

// IsBlock reports whether f encodes a length-prefixed byte block.
func IsBlock(f Form) bool {
	switch f {
	case FormBlock1, FormBlock2, FormBlock4, FormBlock, FormExprloc:
		return true
	}
	return false
}

// BlockLengthSize returns the width of the length prefix of a block form.
func BlockLengthSize(f Form, length int) int {
	switch f {
	case FormBlock1:
		return 1
	case FormBlock2:
		return 2
	case FormBlock4:
		return 4
	}
	return ULEB128Size(uint64(length))
}
