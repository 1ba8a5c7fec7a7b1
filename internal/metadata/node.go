// Package metadata models the debug metadata graph a compiler front end
// attaches to a module: compile units, scopes, types, variables and
// locations. Nodes are immutable once created and are addressed by NodeID
// handles into a Context arena, which makes reference cycles (a struct that
// points to itself) representable without owning pointers.
package metadata

import (
	"fmt"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// NodeID is a stable handle to a node inside a Context.
type NodeID uint32

// NullID is the absent node.
const NullID NodeID = 0

// Kind enumerates the closed set of node kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindCompileUnit
	KindFile
	KindNamespace
	KindLexicalBlock
	KindLexicalBlockFile
	KindSubprogram
	KindBasicType
	KindDerivedType
	KindCompositeType
	KindSubroutineType
	KindLocalVariable
	KindGlobalVariable
	KindExpression
	KindLocation
	KindTemplateTypeParameter
	KindTemplateValueParameter
	KindEnumerator
	KindSubrange
	KindImportedEntity
)

var kindNames = [...]string{
	KindInvalid:                "invalid",
	KindCompileUnit:            "compile_unit",
	KindFile:                   "file",
	KindNamespace:              "namespace",
	KindLexicalBlock:           "lexical_block",
	KindLexicalBlockFile:       "lexical_block_file",
	KindSubprogram:             "subprogram",
	KindBasicType:              "basic_type",
	KindDerivedType:            "derived_type",
	KindCompositeType:          "composite_type",
	KindSubroutineType:         "subroutine_type",
	KindLocalVariable:          "local_variable",
	KindGlobalVariable:         "global_variable",
	KindExpression:             "expression",
	KindLocation:               "location",
	KindTemplateTypeParameter:  "template_type_parameter",
	KindTemplateValueParameter: "template_value_parameter",
	KindEnumerator:             "enumerator",
	KindSubrange:               "subrange",
	KindImportedEntity:         "imported_entity",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindByName is the inverse of Kind.String.
func KindByName(name string) (Kind, bool) {
	for k, s := range kindNames {
		if s == name && Kind(k) != KindInvalid {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}

// IsType reports whether nodes of this kind describe types.
func (k Kind) IsType() bool {
	switch k {
	case KindBasicType, KindDerivedType, KindCompositeType, KindSubroutineType:
		return true
	}
	return false
}

// IsScope reports whether nodes of this kind can appear in a scope chain.
func (k Kind) IsScope() bool {
	switch k {
	case KindCompileUnit, KindFile, KindNamespace, KindLexicalBlock,
		KindLexicalBlockFile, KindSubprogram:
		return true
	}
	return k.IsType()
}

// Node is implemented by every node kind. The set is closed: only the types
// in this package implement it.
type Node interface {
	Kind() Kind
	appendKey(k *keyWriter)
}

// TypeRef refers to a type or type-like scope either directly by handle or
// by the string identifier of an ODR-uniqued composite type. At most one of
// the fields is set.
type TypeRef struct {
	ID         NodeID `json:"id,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Ref wraps a handle.
func Ref(id NodeID) TypeRef { return TypeRef{ID: id} }

// RefByIdentifier wraps an identifier.
func RefByIdentifier(s string) TypeRef { return TypeRef{Identifier: s} }

// IsNull reports whether the reference is empty.
func (r TypeRef) IsNull() bool { return r.ID == NullID && r.Identifier == "" }

// Flags are the DIFlag* bits carried by types, members and subprograms.
type Flags uint32

const (
	FlagPrivate           Flags = 1
	FlagProtected         Flags = 2
	FlagPublic            Flags = 3
	FlagFwdDecl           Flags = 1 << 2
	FlagAppleBlock        Flags = 1 << 3
	FlagBlockByrefStruct  Flags = 1 << 4
	FlagVirtual           Flags = 1 << 5
	FlagArtificial        Flags = 1 << 6
	FlagExplicit          Flags = 1 << 7
	FlagPrototyped        Flags = 1 << 8
	FlagObjcClassComplete Flags = 1 << 9
	FlagObjectPointer     Flags = 1 << 10
	FlagVector            Flags = 1 << 11
	FlagStaticMember      Flags = 1 << 12
	FlagLValueReference   Flags = 1 << 13
	FlagRValueReference   Flags = 1 << 14
	FlagEnumClass         Flags = 1 << 15

	flagAccessibility = FlagPrivate | FlagProtected
)

func (f Flags) IsPrivate() bool         { return f&flagAccessibility == FlagPrivate }
func (f Flags) IsProtected() bool       { return f&flagAccessibility == FlagProtected }
func (f Flags) IsPublic() bool          { return f&flagAccessibility == FlagPublic }
func (f Flags) IsForwardDecl() bool     { return f&FlagFwdDecl != 0 }
func (f Flags) IsVirtual() bool         { return f&FlagVirtual != 0 }
func (f Flags) IsArtificial() bool      { return f&FlagArtificial != 0 }
func (f Flags) IsExplicit() bool        { return f&FlagExplicit != 0 }
func (f Flags) IsPrototyped() bool      { return f&FlagPrototyped != 0 }
func (f Flags) IsObjcClassComplete() bool {
	return f&FlagObjcClassComplete != 0
}
func (f Flags) IsVector() bool          { return f&FlagVector != 0 }
func (f Flags) IsStaticMember() bool    { return f&FlagStaticMember != 0 }
func (f Flags) IsLValueReference() bool { return f&FlagLValueReference != 0 }
func (f Flags) IsRValueReference() bool { return f&FlagRValueReference != 0 }
func (f Flags) IsEnumClass() bool       { return f&FlagEnumClass != 0 }

// ConstantKind tags a Constant.
type ConstantKind uint8

const (
	ConstantInt ConstantKind = iota + 1
	ConstantFloat
)

// Constant is a scalar compile-time value attached to static members,
// template parameters and constant-folded globals.
type Constant struct {
	Kind  ConstantKind
	Int   int64
	Float float64
}

// IntConstant builds an integer constant.
func IntConstant(v int64) *Constant { return &Constant{Kind: ConstantInt, Int: v} }

// FloatConstant builds a floating point constant.
func FloatConstant(v float64) *Constant { return &Constant{Kind: ConstantFloat, Float: v} }

// CompileUnit is the root of one translation unit's debug information.
type CompileUnit struct {
	Language           dwarf.Language
	File               NodeID
	Producer           string
	Optimized          bool
	Flags              string
	RuntimeVersion     uint
	SplitDebugFilename string
	EmissionKind       uint
	DWOID              uint64
	EnumTypes          []NodeID
	RetainedTypes      []NodeID
	Subprograms        []NodeID
	GlobalVariables    []NodeID
	ImportedEntities   []NodeID
}

// File names a source file.
type File struct {
	Filename  string
	Directory string
}

// Namespace is a named scope.
type Namespace struct {
	Scope NodeID
	File  NodeID
	Name  string
	Line  uint
}

// LexicalBlock is a nested block scope inside a subprogram.
type LexicalBlock struct {
	Scope  NodeID
	File   NodeID
	Line   uint
	Column uint
}

// LexicalBlockFile switches the file of a block without opening a scope.
type LexicalBlockFile struct {
	Scope         NodeID
	File          NodeID
	Discriminator uint
}

// Subprogram describes a function, method or function declaration.
type Subprogram struct {
	Scope          TypeRef
	Name           string
	LinkageName    string
	File           NodeID
	Line           uint
	Type           NodeID
	LocalToUnit    bool
	Definition     bool
	ScopeLine      uint
	ContainingType TypeRef
	Virtuality     uint8
	VirtualIndex   uint
	Flags          Flags
	Optimized      bool
	Function       string
	TemplateParams []NodeID
	Declaration    NodeID
	Variables      []NodeID
}

// BasicType is a scalar type.
type BasicType struct {
	Tag         dwarf.Tag
	Name        string
	SizeInBits  uint64
	AlignInBits uint64
	Encoding    dwarf.Encoding
}

// DerivedType covers pointers, references, qualifiers, typedefs, members,
// inheritance and friends.
type DerivedType struct {
	Tag          dwarf.Tag
	Name         string
	File         NodeID
	Line         uint
	Scope        TypeRef
	BaseType     TypeRef
	SizeInBits   uint64
	AlignInBits  uint64
	OffsetInBits uint64
	Flags        Flags
	ClassType    TypeRef
	Constant     *Constant
}

// CompositeType covers structures, classes, unions, arrays and enumerations.
type CompositeType struct {
	Tag            dwarf.Tag
	Name           string
	File           NodeID
	Line           uint
	Scope          TypeRef
	BaseType       TypeRef
	SizeInBits     uint64
	AlignInBits    uint64
	OffsetInBits   uint64
	Flags          Flags
	Elements       []NodeID
	RuntimeLang    uint
	VTableHolder   TypeRef
	TemplateParams []NodeID
	Identifier     string
}

// SubroutineType is a function signature. Types[0] is the return type (null
// for void); a trailing null entry marks a variadic signature.
type SubroutineType struct {
	Flags Flags
	Types []TypeRef
}

// LocalVariable is a parameter (Arg > 0) or an automatic variable.
type LocalVariable struct {
	Scope     NodeID
	Name      string
	File      NodeID
	Line      uint
	Type      TypeRef
	Arg       uint
	Flags     Flags
	InlinedAt NodeID
}

// GlobalValue is the object-file symbol behind a global variable.
type GlobalValue struct {
	Symbol      string
	ThreadLocal bool
	// Offset is non-zero when the variable lives inside a merged global.
	Offset      uint64
	Constant    *Constant
}

// GlobalVariable describes a variable with static storage.
type GlobalVariable struct {
	Scope                       NodeID
	Name                        string
	LinkageName                 string
	File                        NodeID
	Line                        uint
	Type                        TypeRef
	LocalToUnit                 bool
	Definition                  bool
	Variable                    *GlobalValue
	StaticDataMemberDeclaration NodeID
}

// Expression is a location expression in raw DW_OP form.
type Expression struct {
	Ops []uint64
}

// Location is a source position attached to an instruction.
type Location struct {
	Line      uint
	Column    uint
	Scope     NodeID
	InlinedAt NodeID
}

// TemplateTypeParameter is a type template argument.
type TemplateTypeParameter struct {
	Name string
	Type TypeRef
}

// TemplateValue is the value of a non-type template argument.
type TemplateValue struct {
	Constant     *Constant
	Symbol       string
	TemplateName string
	Pack         []NodeID
}

// TemplateValueParameter is a value, template-template or pack argument.
type TemplateValueParameter struct {
	Tag   dwarf.Tag
	Name  string
	Type  TypeRef
	Value TemplateValue
}

// Enumerator is one named value of an enumeration.
type Enumerator struct {
	Name  string
	Value int64
}

// Subrange is one array dimension. Count -1 means unknown.
type Subrange struct {
	Count      int64
	LowerBound int64
}

// ImportedEntity is a using-directive or using-declaration.
type ImportedEntity struct {
	Tag    dwarf.Tag
	Scope  NodeID
	Entity TypeRef
	Line   uint
	Name   string
}

func (*CompileUnit) Kind() Kind            { return KindCompileUnit }
func (*File) Kind() Kind                   { return KindFile }
func (*Namespace) Kind() Kind              { return KindNamespace }
func (*LexicalBlock) Kind() Kind           { return KindLexicalBlock }
func (*LexicalBlockFile) Kind() Kind       { return KindLexicalBlockFile }
func (*Subprogram) Kind() Kind             { return KindSubprogram }
func (*BasicType) Kind() Kind              { return KindBasicType }
func (*DerivedType) Kind() Kind            { return KindDerivedType }
func (*CompositeType) Kind() Kind          { return KindCompositeType }
func (*SubroutineType) Kind() Kind         { return KindSubroutineType }
func (*LocalVariable) Kind() Kind          { return KindLocalVariable }
func (*GlobalVariable) Kind() Kind         { return KindGlobalVariable }
func (*Expression) Kind() Kind             { return KindExpression }
func (*Location) Kind() Kind               { return KindLocation }
func (*TemplateTypeParameter) Kind() Kind  { return KindTemplateTypeParameter }
func (*TemplateValueParameter) Kind() Kind { return KindTemplateValueParameter }
func (*Enumerator) Kind() Kind             { return KindEnumerator }
func (*Subrange) Kind() Kind               { return KindSubrange }
func (*ImportedEntity) Kind() Kind         { return KindImportedEntity }
