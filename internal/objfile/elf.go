package objfile

import (
	"bytes"
	"encoding/binary"
)

// ELF header constants.
const (
	elfClass32   = 1
	elfClass64   = 2
	etREL        = 1
	emX86_64     = 62
	em386        = 3
	shtPROGBITS  = 1
	shtSTRTAB    = 3
	ehdr64Size   = 64
	shdr64Size   = 64
	ehdr32Size   = 52
	shdr32Size   = 40
	elfIdentSize = 16
)

// elfLayout names the sections, places their payloads after the header and
// returns the .shstrtab contents with each name's offset.
func elfLayout(secs []Section, headerSize uint64) (shstr []byte, nameOff []uint32, off []uint64, shoff uint64) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0)
	nameOff = make([]uint32, len(secs)+1)
	for i, s := range secs {
		nameOff[i] = uint32(buf.Len())
		buf.WriteString(s.Name)
		buf.WriteByte(0)
	}
	nameOff[len(secs)] = uint32(buf.Len())
	buf.WriteString(".shstrtab")
	buf.WriteByte(0)

	cur := headerSize
	off = make([]uint64, len(secs)+1)
	for i, s := range secs {
		off[i] = cur
		cur += uint64(len(s.Data))
	}
	off[len(secs)] = cur
	cur += uint64(buf.Len())
	// Section headers are 8-aligned.
	shoff = (cur + 7) &^ 7
	return buf.Bytes(), nameOff, off, shoff
}

func elfIdent(class byte) []byte {
	id := make([]byte, elfIdentSize)
	copy(id, []byte{0x7f, 'E', 'L', 'F'})
	id[4] = class
	id[5] = 1 // ELFDATA2LSB
	id[6] = 1 // EV_CURRENT
	return id
}

// buildELF64 lays out [header][payloads][.shstrtab][section headers].
func buildELF64(secs []Section) []byte {
	shstr, nameOff, off, shoff := elfLayout(secs, ehdr64Size)
	shnum := uint16(len(secs) + 2)
	le := binary.LittleEndian

	file := &bytes.Buffer{}
	ehdr := make([]byte, ehdr64Size)
	copy(ehdr, elfIdent(elfClass64))
	le.PutUint16(ehdr[16:], etREL)
	le.PutUint16(ehdr[18:], emX86_64)
	le.PutUint32(ehdr[20:], 1)            // e_version
	le.PutUint64(ehdr[40:], shoff)        // e_shoff
	le.PutUint16(ehdr[52:], ehdr64Size)   // e_ehsize
	le.PutUint16(ehdr[58:], shdr64Size)   // e_shentsize
	le.PutUint16(ehdr[60:], shnum)        // e_shnum
	le.PutUint16(ehdr[62:], shnum-1)      // e_shstrndx
	file.Write(ehdr)
	for _, s := range secs {
		file.Write(s.Data)
	}
	file.Write(shstr)
	for uint64(file.Len()) < shoff {
		file.WriteByte(0)
	}

	file.Write(make([]byte, shdr64Size))
	writeShdr := func(name, typ uint32, off, size uint64) {
		sh := make([]byte, shdr64Size)
		le.PutUint32(sh[0:], name)
		le.PutUint32(sh[4:], typ)
		le.PutUint64(sh[24:], off)
		le.PutUint64(sh[32:], size)
		le.PutUint64(sh[48:], 1) // sh_addralign
		file.Write(sh)
	}
	for i, s := range secs {
		writeShdr(nameOff[i], shtPROGBITS, off[i], uint64(len(s.Data)))
	}
	writeShdr(nameOff[len(secs)], shtSTRTAB, off[len(secs)], uint64(len(shstr)))
	return file.Bytes()
}

// buildELF32 is buildELF64 with the 32-bit header and section header
// layouts.
func buildELF32(secs []Section) []byte {
	shstr, nameOff, off, shoff := elfLayout(secs, ehdr32Size)
	shnum := uint16(len(secs) + 2)
	le := binary.LittleEndian

	file := &bytes.Buffer{}
	ehdr := make([]byte, ehdr32Size)
	copy(ehdr, elfIdent(elfClass32))
	le.PutUint16(ehdr[16:], etREL)
	le.PutUint16(ehdr[18:], em386)
	le.PutUint32(ehdr[20:], 1)
	le.PutUint32(ehdr[32:], uint32(shoff))
	le.PutUint16(ehdr[40:], ehdr32Size)
	le.PutUint16(ehdr[46:], shdr32Size)
	le.PutUint16(ehdr[48:], shnum)
	le.PutUint16(ehdr[50:], shnum-1)
	file.Write(ehdr)
	for _, s := range secs {
		file.Write(s.Data)
	}
	file.Write(shstr)
	for uint64(file.Len()) < shoff {
		file.WriteByte(0)
	}

	file.Write(make([]byte, shdr32Size))
	writeShdr := func(name, typ uint32, off, size uint64) {
		sh := make([]byte, shdr32Size)
		le.PutUint32(sh[0:], name)
		le.PutUint32(sh[4:], typ)
		le.PutUint32(sh[16:], uint32(off))
		le.PutUint32(sh[20:], uint32(size))
		le.PutUint32(sh[32:], 1)
		file.Write(sh)
	}
	for i, s := range secs {
		writeShdr(nameOff[i], shtPROGBITS, off[i], uint64(len(s.Data)))
	}
	writeShdr(nameOff[len(secs)], shtSTRTAB, off[len(secs)], uint64(len(shstr)))
	return file.Bytes()
}
