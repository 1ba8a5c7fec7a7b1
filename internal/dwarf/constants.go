// Package dwarf holds the DWARF vocabulary shared by the entry builder and
// the section encoder: tags, attributes, forms, encodings and expression
// opcodes, plus LEB128 helpers.
package dwarf

// Tag identifies the kind of a debugging information entry.
type Tag uint16

const (
	TagArrayType              Tag = 0x01
	TagClassType              Tag = 0x02
	TagEnumerationType        Tag = 0x04
	TagFormalParameter        Tag = 0x05
	TagImportedDeclaration    Tag = 0x08
	TagLabel                  Tag = 0x0a
	TagLexicalBlock           Tag = 0x0b
	TagMember                 Tag = 0x0d
	TagPointerType            Tag = 0x0f
	TagReferenceType          Tag = 0x10
	TagCompileUnit            Tag = 0x11
	TagStructureType          Tag = 0x13
	TagSubroutineType         Tag = 0x15
	TagTypedef                Tag = 0x16
	TagUnionType              Tag = 0x17
	TagUnspecifiedParameters  Tag = 0x18
	TagInheritance            Tag = 0x1c
	TagInlinedSubroutine      Tag = 0x1d
	TagModule                 Tag = 0x1e
	TagPtrToMemberType        Tag = 0x1f
	TagSubrangeType           Tag = 0x21
	TagBaseType               Tag = 0x24
	TagConstType              Tag = 0x26
	TagEnumerator             Tag = 0x28
	TagFriend                 Tag = 0x2a
	TagSubprogram             Tag = 0x2e
	TagTemplateTypeParameter  Tag = 0x2f
	TagTemplateValueParameter Tag = 0x30
	TagVariable               Tag = 0x34
	TagVolatileType           Tag = 0x35
	TagRestrictType           Tag = 0x37
	TagNamespace              Tag = 0x39
	TagImportedModule         Tag = 0x3a
	TagUnspecifiedType        Tag = 0x3b
	TagTypeUnit               Tag = 0x41
	TagRvalueReferenceType    Tag = 0x42
	TagAtomicType             Tag = 0x47

	TagGNUTemplateTemplateParam Tag = 0x4106
	TagGNUTemplateParameterPack Tag = 0x4107
)

// Attribute names a property of an entry.
type Attribute uint16

const (
	AttrSibling            Attribute = 0x01
	AttrLocation           Attribute = 0x02
	AttrName               Attribute = 0x03
	AttrByteSize           Attribute = 0x0b
	AttrBitOffset          Attribute = 0x0c
	AttrBitSize            Attribute = 0x0d
	AttrStmtList           Attribute = 0x10
	AttrLowPC              Attribute = 0x11
	AttrHighPC             Attribute = 0x12
	AttrLanguage           Attribute = 0x13
	AttrImport             Attribute = 0x18
	AttrCompDir            Attribute = 0x1b
	AttrConstValue         Attribute = 0x1c
	AttrContainingType     Attribute = 0x1d
	AttrInline             Attribute = 0x20
	AttrLowerBound         Attribute = 0x22
	AttrProducer           Attribute = 0x25
	AttrPrototyped         Attribute = 0x27
	AttrAbstractOrigin     Attribute = 0x31
	AttrAccessibility      Attribute = 0x32
	AttrArtificial         Attribute = 0x34
	AttrCount              Attribute = 0x37
	AttrDataMemberLocation Attribute = 0x38
	AttrDeclFile           Attribute = 0x3a
	AttrDeclLine           Attribute = 0x3b
	AttrDeclaration        Attribute = 0x3c
	AttrEncoding           Attribute = 0x3e
	AttrExternal           Attribute = 0x3f
	AttrFrameBase          Attribute = 0x40
	AttrFriend             Attribute = 0x41
	AttrSpecification      Attribute = 0x47
	AttrType               Attribute = 0x49
	AttrVirtuality         Attribute = 0x4c
	AttrVtableElemLocation Attribute = 0x4d
	AttrRanges             Attribute = 0x55
	AttrCallFile           Attribute = 0x58
	AttrCallLine           Attribute = 0x59
	AttrExplicit           Attribute = 0x63
	AttrSignature          Attribute = 0x69
	AttrDataBitOffset      Attribute = 0x6b
	AttrEnumClass          Attribute = 0x6d
	AttrLinkageName        Attribute = 0x6e
	AttrStrOffsetsBase     Attribute = 0x72
	AttrAddrBase           Attribute = 0x73
	AttrDwoName            Attribute = 0x76
	AttrReference          Attribute = 0x77
	AttrRvalueReference    Attribute = 0x78
	AttrAlignment          Attribute = 0x88

	AttrMIPSLinkageName       Attribute = 0x2007
	AttrGNUVector             Attribute = 0x2107
	AttrGNUTemplateName       Attribute = 0x2110
	AttrGNUDwoName            Attribute = 0x2130
	AttrGNUDwoID              Attribute = 0x2131
	AttrGNUPubnames           Attribute = 0x2134
	AttrAPPLEOptimized        Attribute = 0x3fe1
	AttrAPPLEFlags            Attribute = 0x3fe2
	AttrAPPLEMajorRuntimeVers Attribute = 0x3fe5
	AttrAPPLERuntimeClass     Attribute = 0x3fe6
	AttrAPPLEObjcCompleteType Attribute = 0x3fec
)

// Form is the encoding of an attribute value.
type Form uint16

const (
	FormAddr        Form = 0x01
	FormBlock2      Form = 0x03
	FormBlock4      Form = 0x04
	FormData2       Form = 0x05
	FormData4       Form = 0x06
	FormData8       Form = 0x07
	FormString      Form = 0x08
	FormBlock       Form = 0x09
	FormBlock1      Form = 0x0a
	FormData1       Form = 0x0b
	FormFlag        Form = 0x0c
	FormSdata       Form = 0x0d
	FormStrp        Form = 0x0e
	FormUdata       Form = 0x0f
	FormRefAddr     Form = 0x10
	FormRef1        Form = 0x11
	FormRef2        Form = 0x12
	FormRef4        Form = 0x13
	FormRef8        Form = 0x14
	FormRefUdata    Form = 0x15
	FormSecOffset   Form = 0x17
	FormExprloc     Form = 0x18
	FormFlagPresent Form = 0x19
	FormStrx        Form = 0x1a
	FormAddrx       Form = 0x1b
	FormRefSig8     Form = 0x20

	FormGNUAddrIndex Form = 0x1f01
	FormGNUStrIndex  Form = 0x1f02
)

// Encoding is a base type encoding (DW_ATE_*).
type Encoding uint8

const (
	EncAddress      Encoding = 0x01
	EncBoolean      Encoding = 0x02
	EncComplexFloat Encoding = 0x03
	EncFloat        Encoding = 0x04
	EncSigned       Encoding = 0x05
	EncSignedChar   Encoding = 0x06
	EncUnsigned     Encoding = 0x07
	EncUnsignedChar Encoding = 0x08
	EncUTF          Encoding = 0x10
)

// Language is a source language code (DW_LANG_*).
type Language uint16

const (
	LangC89          Language = 0x01
	LangC            Language = 0x02
	LangAda83        Language = 0x03
	LangCPlusPlus    Language = 0x04
	LangCobol74      Language = 0x05
	LangCobol85      Language = 0x06
	LangFortran77    Language = 0x07
	LangFortran90    Language = 0x08
	LangPascal83     Language = 0x09
	LangModula2      Language = 0x0a
	LangJava         Language = 0x0b
	LangC99          Language = 0x0c
	LangAda95        Language = 0x0d
	LangFortran95    Language = 0x0e
	LangPLI          Language = 0x0f
	LangObjC         Language = 0x10
	LangObjCPlusPlus Language = 0x11
	LangUPC          Language = 0x12
	LangD            Language = 0x13
	LangPython       Language = 0x14
	LangGo           Language = 0x16
	LangCPlusPlus11  Language = 0x1a
	LangRust         Language = 0x1c
	LangC11          Language = 0x1d
)

// Accessibility codes (DW_ACCESS_*).
const (
	AccessPublic    = 0x01
	AccessProtected = 0x02
	AccessPrivate   = 0x03
)

// Virtuality codes (DW_VIRTUALITY_*).
const (
	VirtualityNone        = 0x00
	VirtualityVirtual     = 0x01
	VirtualityPureVirtual = 0x02
)

// InlineInlined is DW_INL_inlined.
const InlineInlined = 0x01

// FlagTypeImplementation marks accelerator type entries for complete types.
const FlagTypeImplementation = 0x02

// Location expression opcodes (DW_OP_*).
const (
	OpAddr               = 0x03
	OpDeref              = 0x06
	OpConst4u            = 0x0c
	OpConst8u            = 0x0e
	OpConstu             = 0x10
	OpConsts             = 0x11
	OpDup                = 0x12
	OpMinus              = 0x1c
	OpPlus               = 0x22
	OpPlusUconst         = 0x23
	OpReg0               = 0x50
	OpBreg0              = 0x70
	OpRegx               = 0x90
	OpFbreg              = 0x91
	OpBregx              = 0x92
	OpPiece              = 0x93
	OpNop                = 0x96
	OpCallFrameCFA       = 0x9c
	OpBitPiece           = 0x9d
	OpStackValue         = 0x9f
	OpGNUPushTLSAddress  = 0xe0
	OpGNUAddrIndex       = 0xfb
	OpGNUConstIndex      = 0xfc
	OpAddrx              = 0xa1
	OpFormTLSAddress     = 0x9b
	OpDerefSize          = 0x94
	OpLitBase            = 0x30
)

// UnitType is the DWARF 5 unit header kind (DW_UT_*).
type UnitType uint8

const (
	UnitTypeCompile      UnitType = 0x01
	UnitTypeType         UnitType = 0x02
	UnitTypeSplitCompile UnitType = 0x05
	UnitTypeSplitType    UnitType = 0x06
)

// Line number program opcodes.
const (
	LNSCopy          = 0x01
	LNSAdvancePC     = 0x02
	LNSAdvanceLine   = 0x03
	LNSSetFile       = 0x04
	LNSSetColumn     = 0x05
	LNSNegateStmt    = 0x06
	LNSSetBasicBlock = 0x07
	LNSConstAddPC    = 0x08
	LNSFixedAdvPC    = 0x09
	LNSPrologueEnd   = 0x0a
	LNSEpilogueBegin = 0x0b
	LNSSetISA        = 0x0c

	LNEEndSequence = 0x01
	LNESetAddress  = 0x02

	LNCTPath           = 0x1
	LNCTDirectoryIndex = 0x2
)

// Range list entry kinds (DW_RLE_*).
const (
	RLEEndOfList = 0x00
	RLEStartEnd  = 0x06
)
