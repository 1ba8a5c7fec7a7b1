package dwarf

// AppendULEB128 appends v in unsigned LEB128 form.
func AppendULEB128(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

// AppendSLEB128 appends v in signed LEB128 form.
func AppendSLEB128(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		sign := (c & 0x40) != 0
		v >>= 7
		done := (v == 0 && !sign) || (v == -1 && sign)
		if !done {
			c |= 0x80
		}
		b = append(b, c)
		if done {
			return b
		}
	}
}

// ULEB128Size returns the encoded length of v.
func ULEB128Size(v uint64) int {
	n := 0
	for {
		n++
		v >>= 7
		if v == 0 {
			return n
		}
	}
}

// SLEB128Size returns the encoded length of v.
func SLEB128Size(v int64) int {
	n := 0
	for {
		c := byte(v & 0x7f)
		sign := (c & 0x40) != 0
		v >>= 7
		n++
		if (v == 0 && !sign) || (v == -1 && sign) {
			return n
		}
	}
}
