package objfile

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// COFF constants.
const (
	coffFileHeaderSize    = 20
	coffSectionHeaderSize = 40
	machineAMD64          = 0x8664

	scnCntInitializedData = 0x00000040
	scnMemDiscardable     = 0x02000000
	scnMemRead            = 0x40000000
	scnAlign1Bytes        = 0x00100000
)

// buildCOFF lays out [file header][section headers][data][string table].
// Names longer than eight bytes are written as "/offset" into the string
// table.
func buildCOFF(secs []Section) []byte {
	strtab := &bytes.Buffer{}
	longName := make(map[string]uint32)
	for _, s := range secs {
		if len(s.Name) > 8 {
			if _, ok := longName[s.Name]; ok {
				continue
			}
			longName[s.Name] = uint32(strtab.Len()) + 4
			strtab.WriteString(s.Name)
			strtab.WriteByte(0)
		}
	}

	align4 := func(v uint32) uint32 { return (v + 3) &^ 3 }
	cur := uint32(coffFileHeaderSize + coffSectionHeaderSize*len(secs))
	ptr := make([]uint32, len(secs))
	for i, s := range secs {
		cur = align4(cur)
		ptr[i] = cur
		cur += uint32(len(s.Data))
	}
	symtab := align4(cur)

	le := binary.LittleEndian
	buf := &bytes.Buffer{}
	hdr := make([]byte, coffFileHeaderSize)
	le.PutUint16(hdr[0:], machineAMD64)
	le.PutUint16(hdr[2:], uint16(len(secs)))
	// The string table follows the (empty) symbol table.
	le.PutUint32(hdr[8:], symtab)
	buf.Write(hdr)

	for i, s := range secs {
		sh := make([]byte, coffSectionHeaderSize)
		if off, ok := longName[s.Name]; ok {
			copy(sh[0:8], "/"+strconv.FormatUint(uint64(off), 10))
		} else {
			copy(sh[0:8], s.Name)
		}
		le.PutUint32(sh[16:], uint32(len(s.Data))) // SizeOfRawData
		le.PutUint32(sh[20:], ptr[i])              // PointerToRawData
		le.PutUint32(sh[36:], scnCntInitializedData|scnMemDiscardable|scnMemRead|scnAlign1Bytes)
		buf.Write(sh)
	}

	pad := func(pos uint32) {
		for uint32(buf.Len()) < pos {
			buf.WriteByte(0)
		}
	}
	for i, s := range secs {
		pad(ptr[i])
		buf.Write(s.Data)
	}
	pad(symtab)
	var size [4]byte
	le.PutUint32(size[:], uint32(4+strtab.Len()))
	buf.Write(size[:])
	buf.Write(strtab.Bytes())
	return buf.Bytes()
}
