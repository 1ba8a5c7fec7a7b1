package metadata

import (
	"sort"
	"strings"
)

// Well-known anchors and module flag keys.
const (
	AnchorCompileUnits = "dbg.cu"

	FlagKeyDebugInfoVersion = "Debug Info Version"
	FlagKeyDwarfVersion     = "Dwarf Version"

	IntrinsicDeclare = "dbg.declare"
	IntrinsicValue   = "dbg.value"
)

// ModuleFlag is a module-level key/value setting.
type ModuleFlag struct {
	Behavior uint   `yaml:"behavior"`
	Key      string `yaml:"key"`
	Value    uint64 `yaml:"value"`
}

// Module is one compilation module: its node context, named anchors, flags
// and function bodies.
type Module struct {
	Name      string
	Ctx       *Context
	Named     map[string][]NodeID
	Flags     []ModuleFlag
	Functions []*Function
}

// NewModule returns an empty module with a fresh Context.
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		Ctx:   NewContext(),
		Named: make(map[string][]NodeID),
	}
}

// CompileUnits returns the compile-unit anchor list.
func (m *Module) CompileUnits() []NodeID {
	return m.Named[AnchorCompileUnits]
}

// AddCompileUnit appends cu to the compile-unit anchor.
func (m *Module) AddCompileUnit(cu NodeID) {
	if m.Named == nil {
		m.Named = make(map[string][]NodeID)
	}
	m.Named[AnchorCompileUnits] = append(m.Named[AnchorCompileUnits], cu)
}

// NamedAnchors returns the anchor names in sorted order.
func (m *Module) NamedAnchors() []string {
	names := make([]string, 0, len(m.Named))
	for n := range m.Named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsDebugAnchor reports whether an anchor name belongs to debug info.
func IsDebugAnchor(name string) bool {
	return strings.HasPrefix(name, "llvm.dbg.") || strings.HasPrefix(name, "dbg.")
}

// Flag looks up a module flag by key.
func (m *Module) Flag(key string) (uint64, bool) {
	for _, f := range m.Flags {
		if f.Key == key {
			return f.Value, true
		}
	}
	return 0, false
}

// SetFlag adds or overwrites a module flag.
func (m *Module) SetFlag(key string, value uint64) {
	for i := range m.Flags {
		if m.Flags[i].Key == key {
			m.Flags[i].Value = value
			return
		}
	}
	m.Flags = append(m.Flags, ModuleFlag{Behavior: 2, Key: key, Value: value})
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Function is a function body with its debug attachment.
type Function struct {
	Name       string
	Subprogram NodeID
	Blocks     []*Block
}

// Block is a basic block.
type Block struct {
	Name         string
	Instructions []*Instruction
}

// Instructions calls fn for every instruction of f in order.
func (f *Function) Instructions(fn func(*Instruction)) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			fn(inst)
		}
	}
}

// OperandKind tags the value operand of a debug intrinsic.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandFrameOffset
	OperandRegister
	OperandConstant
)

var operandKindNames = [...]string{"none", "frame_offset", "register", "constant"}

func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return "unknown"
}

// Operand is the machine-level value a debug intrinsic describes.
// Register holds a target register number; DWARFRegister is its DWARF
// number, negative when the target has none.
type Operand struct {
	Kind          OperandKind
	FrameOffset   int64
	Register      uint
	DWARFRegister int
	Constant      *Constant
}

// Instruction is one machine-independent instruction. Only calls and the
// debug attachment are modeled.
type Instruction struct {
	Op         string
	Callee     string
	DebugLoc   NodeID
	Variable   NodeID
	Expression NodeID
	Value      Operand
}

// IsDebugIntrinsic reports whether inst is a dbg.declare or dbg.value call.
func (inst *Instruction) IsDebugIntrinsic() bool {
	return inst.Op == "call" && (inst.Callee == IntrinsicDeclare || inst.Callee == IntrinsicValue)
}
