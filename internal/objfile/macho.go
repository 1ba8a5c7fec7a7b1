package objfile

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Mach-O 64-bit constants (mach-o/loader.h).
const (
	mhMagic64          = 0xfeedfacf
	cpuTypeX86_64      = 0x01000007
	cpuSubtypeX86_64   = 0x00000003
	mhObject           = 0x1
	lcSegment64        = 0x19
	sDebug             = 0x02000000
	dwarfSegment       = "__DWARF"
	machoSectionPrefix = "__"
)

type machHeader64 struct {
	Magic      uint32
	CpuType    uint32
	CpuSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type segmentCommand64 struct {
	Cmd      uint32
	Cmdsize  uint32
	Segname  [16]byte
	Vmaddr   uint64
	Vmsize   uint64
	Fileoff  uint64
	Filesize uint64
	Maxprot  int32
	Initprot int32
	Nsects   uint32
	Flags    uint32
}

type section64 struct {
	Sectname  [16]byte
	Segname   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

func setPaddedName(dst *[16]byte, name string) {
	n := len(name)
	if n > 16 {
		n = 16
	}
	copy(dst[:], name[:n])
}

// MachOSectionName maps ".debug_info" to "__debug_info", truncated to the
// 16 bytes a section name can hold.
func MachOSectionName(name string) string {
	n := machoSectionPrefix + strings.TrimPrefix(name, ".")
	if len(n) > 16 {
		n = n[:16]
	}
	return n
}

// buildMachO assembles [header][one __DWARF segment with n sections][data].
func buildMachO(secs []Section) ([]byte, error) {
	mhSize := uint32(binary.Size(machHeader64{}))
	segSize := uint32(binary.Size(segmentCommand64{}))
	secSize := uint32(binary.Size(section64{}))
	cmdsize := segSize + secSize*uint32(len(secs))

	start := mhSize + cmdsize
	offsets := make([]uint32, len(secs))
	cur := start
	for i, s := range secs {
		offsets[i] = cur
		cur += uint32(len(s.Data))
	}

	buf := &bytes.Buffer{}
	buf.Grow(int(cur))
	mh := machHeader64{
		Magic:      mhMagic64,
		CpuType:    cpuTypeX86_64,
		CpuSubtype: cpuSubtypeX86_64,
		FileType:   mhObject,
		NCmds:      1,
		SizeOfCmds: cmdsize,
	}
	if err := binary.Write(buf, binary.LittleEndian, mh); err != nil {
		return nil, err
	}
	seg := segmentCommand64{
		Cmd:      lcSegment64,
		Cmdsize:  cmdsize,
		Fileoff:  uint64(start),
		Filesize: uint64(cur - start),
		Maxprot:  7,
		Initprot: 7,
		Nsects:   uint32(len(secs)),
	}
	setPaddedName(&seg.Segname, dwarfSegment)
	if err := binary.Write(buf, binary.LittleEndian, seg); err != nil {
		return nil, err
	}
	for i, s := range secs {
		sh := section64{
			Size:   uint64(len(s.Data)),
			Offset: offsets[i],
			Flags:  sDebug,
		}
		setPaddedName(&sh.Sectname, MachOSectionName(s.Name))
		setPaddedName(&sh.Segname, dwarfSegment)
		if err := binary.Write(buf, binary.LittleEndian, sh); err != nil {
			return nil, err
		}
	}
	for _, s := range secs {
		buf.Write(s.Data)
	}
	return buf.Bytes(), nil
}
