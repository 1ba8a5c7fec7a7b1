package dwarf

import "fmt"

var tagNames = map[Tag]string{
	TagArrayType:                "DW_TAG_array_type",
	TagClassType:                "DW_TAG_class_type",
	TagEnumerationType:          "DW_TAG_enumeration_type",
	TagFormalParameter:          "DW_TAG_formal_parameter",
	TagImportedDeclaration:      "DW_TAG_imported_declaration",
	TagLabel:                    "DW_TAG_label",
	TagLexicalBlock:             "DW_TAG_lexical_block",
	TagMember:                   "DW_TAG_member",
	TagPointerType:              "DW_TAG_pointer_type",
	TagReferenceType:            "DW_TAG_reference_type",
	TagCompileUnit:              "DW_TAG_compile_unit",
	TagStructureType:            "DW_TAG_structure_type",
	TagSubroutineType:           "DW_TAG_subroutine_type",
	TagTypedef:                  "DW_TAG_typedef",
	TagUnionType:                "DW_TAG_union_type",
	TagUnspecifiedParameters:    "DW_TAG_unspecified_parameters",
	TagInheritance:              "DW_TAG_inheritance",
	TagInlinedSubroutine:        "DW_TAG_inlined_subroutine",
	TagModule:                   "DW_TAG_module",
	TagPtrToMemberType:          "DW_TAG_ptr_to_member_type",
	TagSubrangeType:             "DW_TAG_subrange_type",
	TagBaseType:                 "DW_TAG_base_type",
	TagConstType:                "DW_TAG_const_type",
	TagEnumerator:               "DW_TAG_enumerator",
	TagFriend:                   "DW_TAG_friend",
	TagSubprogram:               "DW_TAG_subprogram",
	TagTemplateTypeParameter:    "DW_TAG_template_type_parameter",
	TagTemplateValueParameter:   "DW_TAG_template_value_parameter",
	TagVariable:                 "DW_TAG_variable",
	TagVolatileType:             "DW_TAG_volatile_type",
	TagRestrictType:             "DW_TAG_restrict_type",
	TagNamespace:                "DW_TAG_namespace",
	TagImportedModule:           "DW_TAG_imported_module",
	TagUnspecifiedType:          "DW_TAG_unspecified_type",
	TagTypeUnit:                 "DW_TAG_type_unit",
	TagRvalueReferenceType:      "DW_TAG_rvalue_reference_type",
	TagAtomicType:               "DW_TAG_atomic_type",
	TagGNUTemplateTemplateParam: "DW_TAG_GNU_template_template_param",
	TagGNUTemplateParameterPack: "DW_TAG_GNU_template_parameter_pack",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("DW_TAG_unknown_%#x", uint16(t))
}

// TagByName maps a DW_TAG_* name back to its code.
func TagByName(name string) (Tag, bool) {
	for t, s := range tagNames {
		if s == name {
			return t, true
		}
	}
	return 0, false
}

// IsType reports whether entries with this tag describe types.
func (t Tag) IsType() bool {
	switch t {
	case TagArrayType, TagClassType, TagEnumerationType, TagPointerType,
		TagReferenceType, TagRvalueReferenceType, TagStructureType,
		TagSubroutineType, TagTypedef, TagUnionType, TagPtrToMemberType,
		TagSubrangeType, TagBaseType, TagConstType, TagVolatileType,
		TagRestrictType, TagUnspecifiedType, TagAtomicType:
		return true
	}
	return false
}

var attrNames = map[Attribute]string{
	AttrSibling:               "DW_AT_sibling",
	AttrLocation:              "DW_AT_location",
	AttrName:                  "DW_AT_name",
	AttrByteSize:              "DW_AT_byte_size",
	AttrBitOffset:             "DW_AT_bit_offset",
	AttrBitSize:               "DW_AT_bit_size",
	AttrStmtList:              "DW_AT_stmt_list",
	AttrLowPC:                 "DW_AT_low_pc",
	AttrHighPC:                "DW_AT_high_pc",
	AttrLanguage:              "DW_AT_language",
	AttrImport:                "DW_AT_import",
	AttrCompDir:               "DW_AT_comp_dir",
	AttrConstValue:            "DW_AT_const_value",
	AttrContainingType:        "DW_AT_containing_type",
	AttrInline:                "DW_AT_inline",
	AttrLowerBound:            "DW_AT_lower_bound",
	AttrProducer:              "DW_AT_producer",
	AttrPrototyped:            "DW_AT_prototyped",
	AttrAbstractOrigin:        "DW_AT_abstract_origin",
	AttrAccessibility:         "DW_AT_accessibility",
	AttrArtificial:            "DW_AT_artificial",
	AttrCount:                 "DW_AT_count",
	AttrDataMemberLocation:    "DW_AT_data_member_location",
	AttrDeclFile:              "DW_AT_decl_file",
	AttrDeclLine:              "DW_AT_decl_line",
	AttrDeclaration:           "DW_AT_declaration",
	AttrEncoding:              "DW_AT_encoding",
	AttrExternal:              "DW_AT_external",
	AttrFrameBase:             "DW_AT_frame_base",
	AttrFriend:                "DW_AT_friend",
	AttrSpecification:         "DW_AT_specification",
	AttrType:                  "DW_AT_type",
	AttrVirtuality:            "DW_AT_virtuality",
	AttrVtableElemLocation:    "DW_AT_vtable_elem_location",
	AttrRanges:                "DW_AT_ranges",
	AttrCallFile:              "DW_AT_call_file",
	AttrCallLine:              "DW_AT_call_line",
	AttrExplicit:              "DW_AT_explicit",
	AttrSignature:             "DW_AT_signature",
	AttrDataBitOffset:         "DW_AT_data_bit_offset",
	AttrEnumClass:             "DW_AT_enum_class",
	AttrLinkageName:           "DW_AT_linkage_name",
	AttrStrOffsetsBase:        "DW_AT_str_offsets_base",
	AttrAddrBase:              "DW_AT_addr_base",
	AttrDwoName:               "DW_AT_dwo_name",
	AttrReference:             "DW_AT_reference",
	AttrRvalueReference:       "DW_AT_rvalue_reference",
	AttrAlignment:             "DW_AT_alignment",
	AttrMIPSLinkageName:       "DW_AT_MIPS_linkage_name",
	AttrGNUVector:             "DW_AT_GNU_vector",
	AttrGNUTemplateName:       "DW_AT_GNU_template_name",
	AttrGNUDwoName:            "DW_AT_GNU_dwo_name",
	AttrGNUDwoID:              "DW_AT_GNU_dwo_id",
	AttrGNUPubnames:           "DW_AT_GNU_pubnames",
	AttrAPPLEOptimized:        "DW_AT_APPLE_optimized",
	AttrAPPLEFlags:            "DW_AT_APPLE_flags",
	AttrAPPLEMajorRuntimeVers: "DW_AT_APPLE_major_runtime_vers",
	AttrAPPLERuntimeClass:     "DW_AT_APPLE_runtime_class",
	AttrAPPLEObjcCompleteType: "DW_AT_APPLE_objc_complete_type",
}

func (a Attribute) String() string {
	if s, ok := attrNames[a]; ok {
		return s
	}
	return fmt.Sprintf("DW_AT_unknown_%#x", uint16(a))
}

var formNames = map[Form]string{
	FormAddr:         "DW_FORM_addr",
	FormBlock2:       "DW_FORM_block2",
	FormBlock4:       "DW_FORM_block4",
	FormData2:        "DW_FORM_data2",
	FormData4:        "DW_FORM_data4",
	FormData8:        "DW_FORM_data8",
	FormString:       "DW_FORM_string",
	FormBlock:        "DW_FORM_block",
	FormBlock1:       "DW_FORM_block1",
	FormData1:        "DW_FORM_data1",
	FormFlag:         "DW_FORM_flag",
	FormSdata:        "DW_FORM_sdata",
	FormStrp:         "DW_FORM_strp",
	FormUdata:        "DW_FORM_udata",
	FormRefAddr:      "DW_FORM_ref_addr",
	FormRef1:         "DW_FORM_ref1",
	FormRef2:         "DW_FORM_ref2",
	FormRef4:         "DW_FORM_ref4",
	FormRef8:         "DW_FORM_ref8",
	FormRefUdata:     "DW_FORM_ref_udata",
	FormSecOffset:    "DW_FORM_sec_offset",
	FormExprloc:      "DW_FORM_exprloc",
	FormFlagPresent:  "DW_FORM_flag_present",
	FormStrx:         "DW_FORM_strx",
	FormAddrx:        "DW_FORM_addrx",
	FormRefSig8:      "DW_FORM_ref_sig8",
	FormGNUAddrIndex: "DW_FORM_GNU_addr_index",
	FormGNUStrIndex:  "DW_FORM_GNU_str_index",
}

func (f Form) String() string {
	if s, ok := formNames[f]; ok {
		return s
	}
	return fmt.Sprintf("DW_FORM_unknown_%#x", uint16(f))
}

var langNames = map[Language]string{
	LangC89:          "DW_LANG_C89",
	LangC:            "DW_LANG_C",
	LangAda83:        "DW_LANG_Ada83",
	LangCPlusPlus:    "DW_LANG_C_plus_plus",
	LangCobol74:      "DW_LANG_Cobol74",
	LangCobol85:      "DW_LANG_Cobol85",
	LangFortran77:    "DW_LANG_Fortran77",
	LangFortran90:    "DW_LANG_Fortran90",
	LangPascal83:     "DW_LANG_Pascal83",
	LangModula2:      "DW_LANG_Modula2",
	LangJava:         "DW_LANG_Java",
	LangC99:          "DW_LANG_C99",
	LangAda95:        "DW_LANG_Ada95",
	LangFortran95:    "DW_LANG_Fortran95",
	LangPLI:          "DW_LANG_PLI",
	LangObjC:         "DW_LANG_ObjC",
	LangObjCPlusPlus: "DW_LANG_ObjC_plus_plus",
	LangUPC:          "DW_LANG_UPC",
	LangD:            "DW_LANG_D",
	LangPython:       "DW_LANG_Python",
	LangGo:           "DW_LANG_Go",
	LangCPlusPlus11:  "DW_LANG_C_plus_plus_11",
	LangRust:         "DW_LANG_Rust",
	LangC11:          "DW_LANG_C11",
}

func (l Language) String() string {
	if s, ok := langNames[l]; ok {
		return s
	}
	return fmt.Sprintf("DW_LANG_unknown_%#x", uint16(l))
}

// LanguageByName maps a DW_LANG_* name back to its code.
func LanguageByName(name string) (Language, bool) {
	for l, s := range langNames {
		if s == name {
			return l, true
		}
	}
	return 0, false
}

// IsCLike reports whether prototyped flags are meaningful for the language.
func (l Language) IsCLike() bool {
	return l == LangC89 || l == LangC99 || l == LangObjC
}

var encodingNames = map[Encoding]string{
	EncAddress:      "DW_ATE_address",
	EncBoolean:      "DW_ATE_boolean",
	EncComplexFloat: "DW_ATE_complex_float",
	EncFloat:        "DW_ATE_float",
	EncSigned:       "DW_ATE_signed",
	EncSignedChar:   "DW_ATE_signed_char",
	EncUnsigned:     "DW_ATE_unsigned",
	EncUnsignedChar: "DW_ATE_unsigned_char",
	EncUTF:          "DW_ATE_UTF",
}

func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("DW_ATE_unknown_%#x", uint8(e))
}

// EncodingByName maps a DW_ATE_* name back to its code.
func EncodingByName(name string) (Encoding, bool) {
	for e, s := range encodingNames {
		if s == name {
			return e, true
		}
	}
	return 0, false
}
