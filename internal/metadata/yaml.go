package metadata

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
)

// The interchange format is a YAML document with a flat list of labelled
// nodes. Edges name other nodes by label; "@name" denotes an identifier
// reference to an ODR-uniqued composite type. Nodes may appear in any
// order and may form cycles.

type yamlConstant struct {
	Int   *int64   `yaml:"int,omitempty"`
	Float *float64 `yaml:"float,omitempty"`
}

type yamlNode struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Distinct bool   `yaml:"distinct,omitempty"`

	Tag         string   `yaml:"tag,omitempty"`
	Name        string   `yaml:"name,omitempty"`
	LinkageName string   `yaml:"linkage_name,omitempty"`
	Language    string   `yaml:"language,omitempty"`
	Encoding    string   `yaml:"encoding,omitempty"`
	Filename    string   `yaml:"filename,omitempty"`
	Directory   string   `yaml:"directory,omitempty"`
	Identifier  string   `yaml:"identifier,omitempty"`
	Flags       []string `yaml:"flags,omitempty"`

	File           string `yaml:"file,omitempty"`
	Scope          string `yaml:"scope,omitempty"`
	Type           string `yaml:"type,omitempty"`
	BaseType       string `yaml:"base_type,omitempty"`
	ClassType      string `yaml:"class_type,omitempty"`
	ContainingType string `yaml:"containing_type,omitempty"`
	VTableHolder   string `yaml:"vtable_holder,omitempty"`
	Declaration    string `yaml:"declaration,omitempty"`
	StaticMember   string `yaml:"static_member,omitempty"`
	InlinedAt      string `yaml:"inlined_at,omitempty"`
	Entity         string `yaml:"entity,omitempty"`

	Producer           string `yaml:"producer,omitempty"`
	CUFlags            string `yaml:"cu_flags,omitempty"`
	RuntimeVersion     uint   `yaml:"runtime_version,omitempty"`
	SplitDebugFilename string `yaml:"split_debug_filename,omitempty"`
	EmissionKind       uint   `yaml:"emission_kind,omitempty"`
	DWOID              uint64 `yaml:"dwo_id,omitempty"`

	EnumTypes        []string `yaml:"enum_types,omitempty"`
	RetainedTypes    []string `yaml:"retained_types,omitempty"`
	Subprograms      []string `yaml:"subprograms,omitempty"`
	GlobalVariables  []string `yaml:"global_variables,omitempty"`
	ImportedEntities []string `yaml:"imported_entities,omitempty"`
	Elements         []string `yaml:"elements,omitempty"`
	TemplateParams   []string `yaml:"template_params,omitempty"`
	Variables        []string `yaml:"variables,omitempty"`
	Types            []string `yaml:"types,omitempty"`
	Pack             []string `yaml:"pack,omitempty"`

	Line          uint     `yaml:"line,omitempty"`
	Column        uint     `yaml:"column,omitempty"`
	ScopeLine     uint     `yaml:"scope_line,omitempty"`
	Discriminator uint     `yaml:"discriminator,omitempty"`
	Size          uint64   `yaml:"size,omitempty"`
	Align         uint64   `yaml:"align,omitempty"`
	Offset        uint64   `yaml:"offset,omitempty"`
	Optimized     bool     `yaml:"optimized,omitempty"`
	LocalToUnit   bool     `yaml:"local,omitempty"`
	Definition    bool     `yaml:"definition,omitempty"`
	Virtuality    uint8    `yaml:"virtuality,omitempty"`
	VirtualIndex  uint     `yaml:"virtual_index,omitempty"`
	Function      string   `yaml:"function,omitempty"`
	RuntimeLang   uint     `yaml:"runtime_lang,omitempty"`
	Arg           uint     `yaml:"arg,omitempty"`
	Ops           []uint64 `yaml:"ops,omitempty,flow"`
	Value         int64    `yaml:"value,omitempty"`
	Count         *int64   `yaml:"count,omitempty"`
	LowerBound    int64    `yaml:"lower_bound,omitempty"`

	Constant     *yamlConstant `yaml:"constant,omitempty"`
	Symbol       string        `yaml:"symbol,omitempty"`
	ThreadLocal  bool          `yaml:"thread_local,omitempty"`
	SymbolOffset uint64        `yaml:"symbol_offset,omitempty"`
	TemplateName string        `yaml:"template_name,omitempty"`
}

type yamlOperand struct {
	Kind          string        `yaml:"kind"`
	Offset        int64         `yaml:"offset,omitempty"`
	Register      uint          `yaml:"register,omitempty"`
	DWARFRegister *int          `yaml:"dwarf_register,omitempty"`
	Constant      *yamlConstant `yaml:"constant,omitempty"`
}

type yamlInstruction struct {
	Op         string       `yaml:"op"`
	Callee     string       `yaml:"callee,omitempty"`
	Loc        string       `yaml:"loc,omitempty"`
	Variable   string       `yaml:"variable,omitempty"`
	Expression string       `yaml:"expression,omitempty"`
	Value      *yamlOperand `yaml:"value,omitempty"`
}

type yamlBlock struct {
	Name         string            `yaml:"name"`
	Instructions []yamlInstruction `yaml:"instructions"`
}

type yamlFunction struct {
	Name       string      `yaml:"name"`
	Subprogram string      `yaml:"subprogram,omitempty"`
	Blocks     []yamlBlock `yaml:"blocks,omitempty"`
}

type yamlModule struct {
	Name      string              `yaml:"name"`
	Flags     []ModuleFlag        `yaml:"flags,omitempty"`
	Named     map[string][]string `yaml:"named,omitempty"`
	Nodes     []yamlNode          `yaml:"nodes"`
	Functions []yamlFunction      `yaml:"functions,omitempty"`
}

var flagNames = []struct {
	name string
	flag Flags
}{
	{"fwd_decl", FlagFwdDecl},
	{"apple_block", FlagAppleBlock},
	{"block_byref", FlagBlockByrefStruct},
	{"virtual", FlagVirtual},
	{"artificial", FlagArtificial},
	{"explicit", FlagExplicit},
	{"prototyped", FlagPrototyped},
	{"objc_class_complete", FlagObjcClassComplete},
	{"object_pointer", FlagObjectPointer},
	{"vector", FlagVector},
	{"static_member", FlagStaticMember},
	{"lvalue_reference", FlagLValueReference},
	{"rvalue_reference", FlagRValueReference},
	{"enum_class", FlagEnumClass},
}

// ParseFlags converts flag names to Flags.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
next:
	for _, n := range names {
		switch n {
		case "private":
			f |= FlagPrivate
			continue
		case "protected":
			f |= FlagProtected
			continue
		case "public":
			f |= FlagPublic
			continue
		}
		for _, fn := range flagNames {
			if fn.name == n {
				f |= fn.flag
				continue next
			}
		}
		return 0, fmt.Errorf("unknown flag %q", n)
	}
	return f, nil
}

// Names returns the flag names set in f.
func (f Flags) Names() []string {
	var out []string
	switch f & flagAccessibility {
	case FlagPrivate:
		out = append(out, "private")
	case FlagProtected:
		out = append(out, "protected")
	case FlagPublic:
		out = append(out, "public")
	}
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	return strings.Join(f.Names(), "|")
}

func decodeConstant(c *yamlConstant) *Constant {
	switch {
	case c == nil:
		return nil
	case c.Float != nil:
		return FloatConstant(*c.Float)
	case c.Int != nil:
		return IntConstant(*c.Int)
	}
	return nil
}

func encodeConstant(c *Constant) *yamlConstant {
	if c == nil {
		return nil
	}
	if c.Kind == ConstantFloat {
		v := c.Float
		return &yamlConstant{Float: &v}
	}
	v := c.Int
	return &yamlConstant{Int: &v}
}

// parseLanguage accepts a DW_LANG_* name or a numeric code, so vendor
// languages without a name survive a round trip.
func parseLanguage(s string) (dwarf.Language, error) {
	if s == "" {
		return 0, nil
	}
	if l, ok := dwarf.LanguageByName(s); ok {
		return l, nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown language %q", s)
	}
	return dwarf.Language(v), nil
}

func formatLanguage(l dwarf.Language) string {
	if _, ok := dwarf.LanguageByName(l.String()); ok {
		return l.String()
	}
	return fmt.Sprintf("%#x", uint16(l))
}

// decoder resolves labels to handles. Nodes are built depth first so that
// acyclic subgraphs are uniqued; a label reached again while it is still
// being built gets a temporary handle that is replaced once the node is
// complete.
type decoder struct {
	ctx     *Context
	src     string
	byLabel map[string]*yamlNode
	done    map[string]NodeID
	active  map[string]bool
	temp    map[string]NodeID
}

func (d *decoder) fail(format string, args ...interface{}) error {
	return errors.InvalidInput(d.src, fmt.Sprintf(format, args...))
}

func (d *decoder) id(label string) (NodeID, error) {
	if label == "" {
		return NullID, nil
	}
	if strings.HasPrefix(label, "@") {
		return NullID, d.fail("identifier reference %q not allowed here", label)
	}
	if id, ok := d.done[label]; ok {
		return id, nil
	}
	if d.active[label] {
		if id, ok := d.temp[label]; ok {
			return id, nil
		}
		id := d.ctx.Temporary()
		d.temp[label] = id
		return id, nil
	}
	yn, ok := d.byLabel[label]
	if !ok {
		return NullID, d.fail("undefined node %q", label)
	}
	d.active[label] = true
	n, err := d.build(yn)
	d.active[label] = false
	if err != nil {
		return NullID, err
	}
	var id NodeID
	switch tmp, cyclic := d.temp[label]; {
	case cyclic:
		d.ctx.Replace(tmp, n)
		id = tmp
	case yn.Distinct:
		id = d.ctx.Distinct(n)
	default:
		id = d.ctx.Unique(n)
	}
	d.done[label] = id
	return id, nil
}

func (d *decoder) ids(labels []string) ([]NodeID, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	out := make([]NodeID, len(labels))
	for i, l := range labels {
		id, err := d.id(l)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (d *decoder) ref(label string) (TypeRef, error) {
	if strings.HasPrefix(label, "@") {
		return RefByIdentifier(label[1:]), nil
	}
	id, err := d.id(label)
	return Ref(id), err
}

// refs decodes a subroutine type array, where "~" or "" stands for null.
func (d *decoder) refs(labels []string) ([]TypeRef, error) {
	out := make([]TypeRef, len(labels))
	for i, l := range labels {
		if l == "~" {
			continue
		}
		r, err := d.ref(l)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (d *decoder) tag(yn *yamlNode) (dwarf.Tag, error) {
	t, ok := dwarf.TagByName(yn.Tag)
	if !ok {
		return 0, d.fail("node %q: unknown tag %q", yn.ID, yn.Tag)
	}
	return t, nil
}

// build constructs the node for yn. Errors from nested references are
// collected through the first non-nil check.
func (d *decoder) build(yn *yamlNode) (Node, error) {
	var firstErr error
	id := func(l string) NodeID {
		v, err := d.id(l)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	ids := func(l []string) []NodeID {
		v, err := d.ids(l)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	ref := func(l string) TypeRef {
		v, err := d.ref(l)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}
	flags, err := ParseFlags(yn.Flags)
	if err != nil {
		return nil, d.fail("node %q: %v", yn.ID, err)
	}
	kind, ok := KindByName(yn.Kind)
	if !ok {
		return nil, d.fail("node %q: unknown kind %q", yn.ID, yn.Kind)
	}

	var n Node
	switch kind {
	case KindCompileUnit:
		lang, err := parseLanguage(yn.Language)
		if err != nil {
			return nil, d.fail("node %q: %v", yn.ID, err)
		}
		n = &CompileUnit{
			Language:           lang,
			File:               id(yn.File),
			Producer:           yn.Producer,
			Optimized:          yn.Optimized,
			Flags:              yn.CUFlags,
			RuntimeVersion:     yn.RuntimeVersion,
			SplitDebugFilename: yn.SplitDebugFilename,
			EmissionKind:       yn.EmissionKind,
			DWOID:              yn.DWOID,
			EnumTypes:          ids(yn.EnumTypes),
			RetainedTypes:      ids(yn.RetainedTypes),
			Subprograms:        ids(yn.Subprograms),
			GlobalVariables:    ids(yn.GlobalVariables),
			ImportedEntities:   ids(yn.ImportedEntities),
		}
	case KindFile:
		n = &File{Filename: yn.Filename, Directory: yn.Directory}
	case KindNamespace:
		n = &Namespace{Scope: id(yn.Scope), File: id(yn.File), Name: yn.Name, Line: yn.Line}
	case KindLexicalBlock:
		n = &LexicalBlock{Scope: id(yn.Scope), File: id(yn.File), Line: yn.Line, Column: yn.Column}
	case KindLexicalBlockFile:
		n = &LexicalBlockFile{Scope: id(yn.Scope), File: id(yn.File), Discriminator: yn.Discriminator}
	case KindSubprogram:
		n = &Subprogram{
			Scope:          ref(yn.Scope),
			Name:           yn.Name,
			LinkageName:    yn.LinkageName,
			File:           id(yn.File),
			Line:           yn.Line,
			Type:           id(yn.Type),
			LocalToUnit:    yn.LocalToUnit,
			Definition:     yn.Definition,
			ScopeLine:      yn.ScopeLine,
			ContainingType: ref(yn.ContainingType),
			Virtuality:     yn.Virtuality,
			VirtualIndex:   yn.VirtualIndex,
			Flags:          flags,
			Optimized:      yn.Optimized,
			Function:       yn.Function,
			TemplateParams: ids(yn.TemplateParams),
			Declaration:    id(yn.Declaration),
			Variables:      ids(yn.Variables),
		}
	case KindBasicType:
		tag := dwarf.TagBaseType
		if yn.Tag != "" {
			if tag, err = d.tag(yn); err != nil {
				return nil, err
			}
		}
		enc, ok := dwarf.EncodingByName(yn.Encoding)
		if !ok && yn.Encoding != "" {
			return nil, d.fail("node %q: unknown encoding %q", yn.ID, yn.Encoding)
		}
		n = &BasicType{Tag: tag, Name: yn.Name, SizeInBits: yn.Size, AlignInBits: yn.Align, Encoding: enc}
	case KindDerivedType:
		tag, err := d.tag(yn)
		if err != nil {
			return nil, err
		}
		n = &DerivedType{
			Tag:          tag,
			Name:         yn.Name,
			File:         id(yn.File),
			Line:         yn.Line,
			Scope:        ref(yn.Scope),
			BaseType:     ref(yn.BaseType),
			SizeInBits:   yn.Size,
			AlignInBits:  yn.Align,
			OffsetInBits: yn.Offset,
			Flags:        flags,
			ClassType:    ref(yn.ClassType),
			Constant:     decodeConstant(yn.Constant),
		}
	case KindCompositeType:
		tag, err := d.tag(yn)
		if err != nil {
			return nil, err
		}
		n = &CompositeType{
			Tag:            tag,
			Name:           yn.Name,
			File:           id(yn.File),
			Line:           yn.Line,
			Scope:          ref(yn.Scope),
			BaseType:       ref(yn.BaseType),
			SizeInBits:     yn.Size,
			AlignInBits:    yn.Align,
			OffsetInBits:   yn.Offset,
			Flags:          flags,
			Elements:       ids(yn.Elements),
			RuntimeLang:    yn.RuntimeLang,
			VTableHolder:   ref(yn.VTableHolder),
			TemplateParams: ids(yn.TemplateParams),
			Identifier:     yn.Identifier,
		}
	case KindSubroutineType:
		types, err := d.refs(yn.Types)
		if err != nil {
			return nil, err
		}
		n = &SubroutineType{Flags: flags, Types: types}
	case KindLocalVariable:
		n = &LocalVariable{
			Scope:     id(yn.Scope),
			Name:      yn.Name,
			File:      id(yn.File),
			Line:      yn.Line,
			Type:      ref(yn.Type),
			Arg:       yn.Arg,
			Flags:     flags,
			InlinedAt: id(yn.InlinedAt),
		}
	case KindGlobalVariable:
		gv := &GlobalVariable{
			Scope:                       id(yn.Scope),
			Name:                        yn.Name,
			LinkageName:                 yn.LinkageName,
			File:                        id(yn.File),
			Line:                        yn.Line,
			Type:                        ref(yn.Type),
			LocalToUnit:                 yn.LocalToUnit,
			Definition:                  yn.Definition,
			StaticDataMemberDeclaration: id(yn.StaticMember),
		}
		if yn.Symbol != "" || yn.Constant != nil {
			gv.Variable = &GlobalValue{
				Symbol:      yn.Symbol,
				ThreadLocal: yn.ThreadLocal,
				Offset:      yn.SymbolOffset,
				Constant:    decodeConstant(yn.Constant),
			}
		}
		n = gv
	case KindExpression:
		n = &Expression{Ops: yn.Ops}
	case KindLocation:
		n = &Location{Line: yn.Line, Column: yn.Column, Scope: id(yn.Scope), InlinedAt: id(yn.InlinedAt)}
	case KindTemplateTypeParameter:
		n = &TemplateTypeParameter{Name: yn.Name, Type: ref(yn.Type)}
	case KindTemplateValueParameter:
		tag := dwarf.TagTemplateValueParameter
		if yn.Tag != "" {
			if tag, err = d.tag(yn); err != nil {
				return nil, err
			}
		}
		n = &TemplateValueParameter{
			Tag:  tag,
			Name: yn.Name,
			Type: ref(yn.Type),
			Value: TemplateValue{
				Constant:     decodeConstant(yn.Constant),
				Symbol:       yn.Symbol,
				TemplateName: yn.TemplateName,
				Pack:         ids(yn.Pack),
			},
		}
	case KindEnumerator:
		n = &Enumerator{Name: yn.Name, Value: yn.Value}
	case KindSubrange:
		count := int64(-1)
		if yn.Count != nil {
			count = *yn.Count
		}
		n = &Subrange{Count: count, LowerBound: yn.LowerBound}
	case KindImportedEntity:
		tag := dwarf.TagImportedDeclaration
		if yn.Tag != "" {
			if tag, err = d.tag(yn); err != nil {
				return nil, err
			}
		}
		n = &ImportedEntity{Tag: tag, Scope: id(yn.Scope), Entity: ref(yn.Entity), Line: yn.Line, Name: yn.Name}
	default:
		return nil, d.fail("node %q: unsupported kind %q", yn.ID, yn.Kind)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return n, nil
}

// DecodeModule reads a module in the YAML interchange format.
func DecodeModule(r io.Reader) (*Module, error) {
	return decodeModule(r, "<reader>")
}

func decodeModule(r io.Reader, src string) (*Module, error) {
	var ym yamlModule
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ym); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return buildModule(&ym, src)
}

// UnmarshalModule decodes a module from an in-memory document.
func UnmarshalModule(data []byte, src string) (*Module, error) {
	return decodeModule(bytes.NewReader(data), src)
}

func buildModule(ym *yamlModule, src string) (*Module, error) {
	m := NewModule(ym.Name)
	m.Flags = ym.Flags
	d := &decoder{
		ctx:     m.Ctx,
		src:     src,
		byLabel: make(map[string]*yamlNode, len(ym.Nodes)),
		done:    make(map[string]NodeID, len(ym.Nodes)),
		active:  make(map[string]bool),
		temp:    make(map[string]NodeID),
	}
	for i := range ym.Nodes {
		yn := &ym.Nodes[i]
		if yn.ID == "" {
			return nil, d.fail("node %d has no id", i)
		}
		if _, dup := d.byLabel[yn.ID]; dup {
			return nil, d.fail("duplicate node id %q", yn.ID)
		}
		d.byLabel[yn.ID] = yn
	}
	// Declaration order fixes handle order for nodes nobody references.
	for i := range ym.Nodes {
		if _, err := d.id(ym.Nodes[i].ID); err != nil {
			return nil, err
		}
	}
	for name, labels := range ym.Named {
		ids, err := d.ids(labels)
		if err != nil {
			return nil, err
		}
		m.Named[name] = ids
	}
	for _, yf := range ym.Functions {
		f := &Function{Name: yf.Name}
		var err error
		if f.Subprogram, err = d.id(yf.Subprogram); err != nil {
			return nil, err
		}
		for _, yb := range yf.Blocks {
			b := &Block{Name: yb.Name}
			for _, yi := range yb.Instructions {
				inst, err := d.instruction(yi)
				if err != nil {
					return nil, err
				}
				b.Instructions = append(b.Instructions, inst)
			}
			f.Blocks = append(f.Blocks, b)
		}
		m.Functions = append(m.Functions, f)
	}
	return m, nil
}

func (d *decoder) instruction(yi yamlInstruction) (*Instruction, error) {
	inst := &Instruction{Op: yi.Op, Callee: yi.Callee}
	var err error
	if inst.DebugLoc, err = d.id(yi.Loc); err != nil {
		return nil, err
	}
	if inst.Variable, err = d.id(yi.Variable); err != nil {
		return nil, err
	}
	if inst.Expression, err = d.id(yi.Expression); err != nil {
		return nil, err
	}
	if v := yi.Value; v != nil {
		switch v.Kind {
		case "frame_offset":
			inst.Value = Operand{Kind: OperandFrameOffset, FrameOffset: v.Offset}
		case "register":
			reg := int(v.Register)
			if v.DWARFRegister != nil {
				reg = *v.DWARFRegister
			}
			inst.Value = Operand{Kind: OperandRegister, Register: v.Register, DWARFRegister: reg}
		case "constant":
			inst.Value = Operand{Kind: OperandConstant, Constant: decodeConstant(v.Constant)}
		case "", "none":
		default:
			return nil, d.fail("unknown operand kind %q", v.Kind)
		}
	}
	return inst, nil
}

// EncodeModule writes m in the YAML interchange format. Every node gets the
// label "n<handle>".
func EncodeModule(w io.Writer, m *Module) error {
	ym := yamlModule{Name: m.Name, Flags: m.Flags, Named: map[string][]string{}}
	for _, name := range m.NamedAnchors() {
		ym.Named[name] = labels(m.Named[name])
	}
	for i := 1; i < m.Ctx.Len(); i++ {
		id := NodeID(i)
		yn, err := encodeNode(m.Ctx, id)
		if err != nil {
			return err
		}
		ym.Nodes = append(ym.Nodes, yn)
	}
	for _, f := range m.Functions {
		yf := yamlFunction{Name: f.Name, Subprogram: label(f.Subprogram)}
		for _, b := range f.Blocks {
			yb := yamlBlock{Name: b.Name, Instructions: []yamlInstruction{}}
			for _, inst := range b.Instructions {
				yb.Instructions = append(yb.Instructions, encodeInstruction(inst))
			}
			yf.Blocks = append(yf.Blocks, yb)
		}
		ym.Functions = append(ym.Functions, yf)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&ym); err != nil {
		return fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	return enc.Close()
}

func label(id NodeID) string {
	if id == NullID {
		return ""
	}
	return fmt.Sprintf("n%d", id)
}

func labels(ids []NodeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = label(id)
	}
	return out
}

func refLabel(r TypeRef) string {
	if r.Identifier != "" {
		return "@" + r.Identifier
	}
	return label(r.ID)
}

func encodeInstruction(inst *Instruction) yamlInstruction {
	yi := yamlInstruction{
		Op:         inst.Op,
		Callee:     inst.Callee,
		Loc:        label(inst.DebugLoc),
		Variable:   label(inst.Variable),
		Expression: label(inst.Expression),
	}
	switch v := inst.Value; v.Kind {
	case OperandFrameOffset:
		yi.Value = &yamlOperand{Kind: v.Kind.String(), Offset: v.FrameOffset}
	case OperandRegister:
		reg := v.DWARFRegister
		yi.Value = &yamlOperand{Kind: v.Kind.String(), Register: v.Register, DWARFRegister: &reg}
	case OperandConstant:
		yi.Value = &yamlOperand{Kind: v.Kind.String(), Constant: encodeConstant(v.Constant)}
	}
	return yi
}

func encodeNode(ctx *Context, id NodeID) (yamlNode, error) {
	yn := yamlNode{ID: label(id), Distinct: ctx.IsDistinct(id)}
	n := ctx.Node(id)
	if n == nil {
		return yn, fmt.Errorf("encode: node %d is unresolved", id)
	}
	yn.Kind = n.Kind().String()
	switch n := n.(type) {
	case *CompileUnit:
		yn.Language = formatLanguage(n.Language)
		yn.File = label(n.File)
		yn.Producer = n.Producer
		yn.Optimized = n.Optimized
		yn.CUFlags = n.Flags
		yn.RuntimeVersion = n.RuntimeVersion
		yn.SplitDebugFilename = n.SplitDebugFilename
		yn.EmissionKind = n.EmissionKind
		yn.DWOID = n.DWOID
		yn.EnumTypes = labels(n.EnumTypes)
		yn.RetainedTypes = labels(n.RetainedTypes)
		yn.Subprograms = labels(n.Subprograms)
		yn.GlobalVariables = labels(n.GlobalVariables)
		yn.ImportedEntities = labels(n.ImportedEntities)
	case *File:
		yn.Filename, yn.Directory = n.Filename, n.Directory
	case *Namespace:
		yn.Scope, yn.File, yn.Name, yn.Line = label(n.Scope), label(n.File), n.Name, n.Line
	case *LexicalBlock:
		yn.Scope, yn.File, yn.Line, yn.Column = label(n.Scope), label(n.File), n.Line, n.Column
	case *LexicalBlockFile:
		yn.Scope, yn.File, yn.Discriminator = label(n.Scope), label(n.File), n.Discriminator
	case *Subprogram:
		yn.Scope = refLabel(n.Scope)
		yn.Name, yn.LinkageName = n.Name, n.LinkageName
		yn.File, yn.Line, yn.Type = label(n.File), n.Line, label(n.Type)
		yn.LocalToUnit, yn.Definition, yn.ScopeLine = n.LocalToUnit, n.Definition, n.ScopeLine
		yn.ContainingType = refLabel(n.ContainingType)
		yn.Virtuality, yn.VirtualIndex = n.Virtuality, n.VirtualIndex
		yn.Flags, yn.Optimized, yn.Function = n.Flags.Names(), n.Optimized, n.Function
		yn.TemplateParams = labels(n.TemplateParams)
		yn.Declaration = label(n.Declaration)
		yn.Variables = labels(n.Variables)
	case *BasicType:
		yn.Tag, yn.Name = n.Tag.String(), n.Name
		yn.Size, yn.Align = n.SizeInBits, n.AlignInBits
		yn.Encoding = n.Encoding.String()
	case *DerivedType:
		yn.Tag, yn.Name, yn.File, yn.Line = n.Tag.String(), n.Name, label(n.File), n.Line
		yn.Scope, yn.BaseType = refLabel(n.Scope), refLabel(n.BaseType)
		yn.Size, yn.Align, yn.Offset = n.SizeInBits, n.AlignInBits, n.OffsetInBits
		yn.Flags, yn.ClassType = n.Flags.Names(), refLabel(n.ClassType)
		yn.Constant = encodeConstant(n.Constant)
	case *CompositeType:
		yn.Tag, yn.Name, yn.File, yn.Line = n.Tag.String(), n.Name, label(n.File), n.Line
		yn.Scope, yn.BaseType = refLabel(n.Scope), refLabel(n.BaseType)
		yn.Size, yn.Align, yn.Offset = n.SizeInBits, n.AlignInBits, n.OffsetInBits
		yn.Flags, yn.Elements = n.Flags.Names(), labels(n.Elements)
		yn.RuntimeLang, yn.VTableHolder = n.RuntimeLang, refLabel(n.VTableHolder)
		yn.TemplateParams, yn.Identifier = labels(n.TemplateParams), n.Identifier
	case *SubroutineType:
		yn.Flags = n.Flags.Names()
		for _, t := range n.Types {
			if t.IsNull() {
				yn.Types = append(yn.Types, "~")
			} else {
				yn.Types = append(yn.Types, refLabel(t))
			}
		}
	case *LocalVariable:
		yn.Scope, yn.Name, yn.File, yn.Line = label(n.Scope), n.Name, label(n.File), n.Line
		yn.Type, yn.Arg, yn.Flags = refLabel(n.Type), n.Arg, n.Flags.Names()
		yn.InlinedAt = label(n.InlinedAt)
	case *GlobalVariable:
		yn.Scope, yn.Name, yn.LinkageName = label(n.Scope), n.Name, n.LinkageName
		yn.File, yn.Line, yn.Type = label(n.File), n.Line, refLabel(n.Type)
		yn.LocalToUnit, yn.Definition = n.LocalToUnit, n.Definition
		yn.StaticMember = label(n.StaticDataMemberDeclaration)
		if v := n.Variable; v != nil {
			yn.Symbol, yn.ThreadLocal, yn.SymbolOffset = v.Symbol, v.ThreadLocal, v.Offset
			yn.Constant = encodeConstant(v.Constant)
		}
	case *Expression:
		yn.Ops = n.Ops
	case *Location:
		yn.Line, yn.Column, yn.Scope, yn.InlinedAt = n.Line, n.Column, label(n.Scope), label(n.InlinedAt)
	case *TemplateTypeParameter:
		yn.Name, yn.Type = n.Name, refLabel(n.Type)
	case *TemplateValueParameter:
		yn.Tag, yn.Name, yn.Type = n.Tag.String(), n.Name, refLabel(n.Type)
		yn.Constant = encodeConstant(n.Value.Constant)
		yn.Symbol, yn.TemplateName = n.Value.Symbol, n.Value.TemplateName
		yn.Pack = labels(n.Value.Pack)
	case *Enumerator:
		yn.Name, yn.Value = n.Name, n.Value
	case *Subrange:
		count := n.Count
		yn.Count, yn.LowerBound = &count, n.LowerBound
	case *ImportedEntity:
		yn.Tag, yn.Scope, yn.Entity = n.Tag.String(), label(n.Scope), refLabel(n.Entity)
		yn.Line, yn.Name = n.Line, n.Name
	}
	return yn, nil
}
