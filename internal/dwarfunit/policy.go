// Package dwarfunit builds the entry trees of compile units and type units
// from debug metadata. A Context holds module-wide state shared by all
// units: the format policy, the string and address pools, accelerator
// tables and the type unit registry. Units are populated independently and
// finalized together.
package dwarfunit

import (
	"fmt"

	semver "github.com/Masterminds/semver/v3"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// Feature is a format capability that depends on the DWARF version.
type Feature int

const (
	FeatureFlagPresent Feature = iota
	FeatureSecOffset
	FeatureExprloc
	FeatureLinkageName
	FeatureRestrictType
	FeatureUnitTypeHeader
	FeatureIndexedForms
	FeatureHighPCOffset
	FeatureExtendedLowerBounds
	FeatureMemberLocationConstant
	FeatureEnumBaseType
	FeatureEnumClass
)

var featureNames = map[Feature]string{
	FeatureFlagPresent:            "flag_present",
	FeatureSecOffset:              "sec_offset",
	FeatureExprloc:                "exprloc",
	FeatureLinkageName:            "linkage_name",
	FeatureRestrictType:           "restrict_type",
	FeatureUnitTypeHeader:         "unit_type_header",
	FeatureIndexedForms:           "strx_addrx",
	FeatureHighPCOffset:           "high_pc_offset",
	FeatureExtendedLowerBounds:    "extended_lower_bounds",
	FeatureMemberLocationConstant: "member_location_constant",
	FeatureEnumBaseType:           "enum_base_type",
	FeatureEnumClass:              "enum_class",
}

func (f Feature) String() string {
	if s, ok := featureNames[f]; ok {
		return s
	}
	return fmt.Sprintf("feature(%d)", int(f))
}

// gates maps each feature to the DWARF versions that support it.
var gates = map[Feature]*semver.Constraints{
	FeatureFlagPresent:            mustConstraint(">= 4"),
	FeatureSecOffset:              mustConstraint(">= 4"),
	FeatureExprloc:                mustConstraint(">= 4"),
	FeatureLinkageName:            mustConstraint(">= 4"),
	FeatureRestrictType:           mustConstraint(">= 3"),
	FeatureUnitTypeHeader:         mustConstraint(">= 5"),
	FeatureIndexedForms:           mustConstraint(">= 5"),
	FeatureHighPCOffset:           mustConstraint(">= 4"),
	FeatureExtendedLowerBounds:    mustConstraint(">= 4"),
	FeatureMemberLocationConstant: mustConstraint(">= 3"),
	FeatureEnumBaseType:           mustConstraint(">= 3"),
	FeatureEnumClass:              mustConstraint(">= 4"),
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Policy selects the format version and the optional output modes.
type Policy struct {
	DwarfVersion uint16
	AddrSize     uint8
	// SplitDwarf places strings and addresses behind index tables.
	SplitDwarf bool
	// TypeUnits moves identified composite types into type units.
	TypeUnits bool
	// FrameRegister is the DWARF number of the frame base register, or -1.
	FrameRegister int
	// GNUTLSOpcode selects DW_OP_GNU_push_tls_address over
	// DW_OP_form_tls_address.
	GNUTLSOpcode bool
	// FunctionSections emits each function into its own section, which
	// forces a range list on the compile unit.
	FunctionSections bool
	// LittleEndian selects the byte order of bit offsets and constants.
	LittleEndian bool

	version *semver.Version
}

// DefaultPolicy returns DWARF 4 for a 64-bit little-endian target with the
// frame pointer in register 6.
func DefaultPolicy() Policy {
	p, _ := NewPolicy(4)
	return p
}

// NewPolicy returns a policy for the given DWARF version with default
// target settings.
func NewPolicy(version uint16) (Policy, error) {
	p := Policy{
		DwarfVersion:  version,
		AddrSize:      8,
		FrameRegister: 6,
		GNUTLSOpcode:  true,
		LittleEndian:  true,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the version and address size.
func (p *Policy) Validate() error {
	if p.DwarfVersion < 2 || p.DwarfVersion > 5 {
		return fmt.Errorf("unsupported DWARF version %d", p.DwarfVersion)
	}
	if p.AddrSize != 4 && p.AddrSize != 8 {
		return fmt.Errorf("unsupported address size %d", p.AddrSize)
	}
	p.version = semver.New(uint64(p.DwarfVersion), 0, 0, "", "")
	return nil
}

// Has reports whether the policy's version supports f.
func (p Policy) Has(f Feature) bool {
	v := p.version
	if v == nil {
		v = semver.New(uint64(p.DwarfVersion), 0, 0, "", "")
	}
	c, ok := gates[f]
	return ok && c.Check(v)
}

// FormParams returns the parameters used to size forms.
func (p Policy) FormParams() dwarf.FormParams {
	return dwarf.FormParams{Version: p.DwarfVersion, AddrSize: p.AddrSize}
}

// StringForm is the form of pooled strings in a unit.
func (p Policy) StringForm(dwo bool) dwarf.Form {
	if !dwo {
		return dwarf.FormStrp
	}
	if p.Has(FeatureIndexedForms) {
		return dwarf.FormStrx
	}
	return dwarf.FormGNUStrIndex
}

// AddrIndexForm is the form of address pool indices in split units.
func (p Policy) AddrIndexForm() dwarf.Form {
	if p.Has(FeatureIndexedForms) {
		return dwarf.FormAddrx
	}
	return dwarf.FormGNUAddrIndex
}

// AddrIndexOp is the expression opcode that reads the address pool.
func (p Policy) AddrIndexOp() uint8 {
	if p.Has(FeatureIndexedForms) {
		return dwarf.OpAddrx
	}
	return dwarf.OpGNUAddrIndex
}

// SectionOffsetForm is the form of offsets into other debug sections.
func (p Policy) SectionOffsetForm() dwarf.Form {
	if p.Has(FeatureSecOffset) {
		return dwarf.FormSecOffset
	}
	return dwarf.FormData4
}

// LinkageNameAttr is DW_AT_linkage_name from DWARF 4 and the MIPS vendor
// attribute before.
func (p Policy) LinkageNameAttr() dwarf.Attribute {
	if p.Has(FeatureLinkageName) {
		return dwarf.AttrLinkageName
	}
	return dwarf.AttrMIPSLinkageName
}

// DefaultLowerBound returns the implicit lower bound of arrays in lang, or
// -1 when the language has none at this version. Unknown languages have
// none.
func (p Policy) DefaultLowerBound(lang dwarf.Language) int64 {
	switch lang {
	case dwarf.LangC89, dwarf.LangC99, dwarf.LangC, dwarf.LangC11,
		dwarf.LangCPlusPlus, dwarf.LangCPlusPlus11,
		dwarf.LangObjC, dwarf.LangObjCPlusPlus:
		return 0
	case dwarf.LangFortran77, dwarf.LangFortran90, dwarf.LangFortran95:
		return 1
	case dwarf.LangJava, dwarf.LangPython, dwarf.LangUPC, dwarf.LangD:
		if p.Has(FeatureExtendedLowerBounds) {
			return 0
		}
	case dwarf.LangAda83, dwarf.LangAda95, dwarf.LangCobol74, dwarf.LangCobol85,
		dwarf.LangModula2, dwarf.LangPascal83, dwarf.LangPLI:
		if p.Has(FeatureExtendedLowerBounds) {
			return 1
		}
	}
	return -1
}

// CompileUnitHeaderSize is the size of a compile unit header including the
// initial length.
func (p Policy) CompileUnitHeaderSize(dwo bool) uint32 {
	size := uint32(4 + 2 + 4 + 1)
	if p.Has(FeatureUnitTypeHeader) {
		size++
		if dwo {
			size += 8
		}
	}
	return size
}

// TypeUnitHeaderSize adds the signature and the type offset.
func (p Policy) TypeUnitHeaderSize() uint32 {
	return p.CompileUnitHeaderSize(false) + 8 + 4
}
