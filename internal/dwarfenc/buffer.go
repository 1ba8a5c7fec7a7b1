package dwarfenc

import (
	"bytes"
	"encoding/binary"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// section accumulates the bytes of one output section.
type section struct {
	name string
	bytes.Buffer
}

func (s *section) off() uint64 { return uint64(s.Len()) }

func (s *section) u8(v uint8) { s.WriteByte(v) }

func (s *section) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	s.Write(b[:])
}

func (s *section) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.Write(b[:])
}

func (s *section) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.Write(b[:])
}

// uint writes the low size bytes of v.
func (s *section) uint(v uint64, size int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.Write(b[:size])
}

func (s *section) uleb(v uint64) {
	var b [10]byte
	s.Write(dwarf.AppendULEB128(b[:0], v))
}

func (s *section) sleb(v int64) {
	var b [10]byte
	s.Write(dwarf.AppendSLEB128(b[:0], v))
}

func (s *section) cstr(str string) {
	s.WriteString(str)
	s.WriteByte(0)
}

// patch32 overwrites four bytes at off.
func (s *section) patch32(off uint64, v uint32) {
	binary.LittleEndian.PutUint32(s.Bytes()[off:], v)
}
