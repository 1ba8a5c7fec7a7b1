package metadata

import (
	"encoding/binary"
	"math"
)

// keyWriter serializes the fields and edges of a node into the canonical
// byte key used for structural uniquing.
type keyWriter struct {
	buf []byte
}

func (k *keyWriter) u8(v uint8)   { k.buf = append(k.buf, v) }
func (k *keyWriter) u64(v uint64) { k.buf = binary.LittleEndian.AppendUint64(k.buf, v) }
func (k *keyWriter) i64(v int64)  { k.u64(uint64(v)) }
func (k *keyWriter) id(v NodeID)  { k.buf = binary.LittleEndian.AppendUint32(k.buf, uint32(v)) }

func (k *keyWriter) boolean(v bool) {
	if v {
		k.u8(1)
	} else {
		k.u8(0)
	}
}

func (k *keyWriter) str(s string) {
	k.u64(uint64(len(s)))
	k.buf = append(k.buf, s...)
}

func (k *keyWriter) ids(v []NodeID) {
	k.u64(uint64(len(v)))
	for _, id := range v {
		k.id(id)
	}
}

func (k *keyWriter) ref(r TypeRef) {
	k.id(r.ID)
	k.str(r.Identifier)
}

func (k *keyWriter) constant(c *Constant) {
	if c == nil {
		k.u8(0)
		return
	}
	k.u8(uint8(c.Kind))
	k.i64(c.Int)
	k.u64(math.Float64bits(c.Float))
}

func (n *CompileUnit) appendKey(k *keyWriter) {
	k.u64(uint64(n.Language))
	k.id(n.File)
	k.str(n.Producer)
	k.boolean(n.Optimized)
	k.str(n.Flags)
	k.u64(uint64(n.RuntimeVersion))
	k.str(n.SplitDebugFilename)
	k.u64(uint64(n.EmissionKind))
	k.u64(n.DWOID)
	k.ids(n.EnumTypes)
	k.ids(n.RetainedTypes)
	k.ids(n.Subprograms)
	k.ids(n.GlobalVariables)
	k.ids(n.ImportedEntities)
}

func (n *File) appendKey(k *keyWriter) {
	k.str(n.Filename)
	k.str(n.Directory)
}

func (n *Namespace) appendKey(k *keyWriter) {
	k.id(n.Scope)
	k.id(n.File)
	k.str(n.Name)
	k.u64(uint64(n.Line))
}

func (n *LexicalBlock) appendKey(k *keyWriter) {
	k.id(n.Scope)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.u64(uint64(n.Column))
}

func (n *LexicalBlockFile) appendKey(k *keyWriter) {
	k.id(n.Scope)
	k.id(n.File)
	k.u64(uint64(n.Discriminator))
}

func (n *Subprogram) appendKey(k *keyWriter) {
	k.ref(n.Scope)
	k.str(n.Name)
	k.str(n.LinkageName)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.id(n.Type)
	k.boolean(n.LocalToUnit)
	k.boolean(n.Definition)
	k.u64(uint64(n.ScopeLine))
	k.ref(n.ContainingType)
	k.u8(n.Virtuality)
	k.u64(uint64(n.VirtualIndex))
	k.u64(uint64(n.Flags))
	k.boolean(n.Optimized)
	k.str(n.Function)
	k.ids(n.TemplateParams)
	k.id(n.Declaration)
	k.ids(n.Variables)
}

func (n *BasicType) appendKey(k *keyWriter) {
	k.u64(uint64(n.Tag))
	k.str(n.Name)
	k.u64(n.SizeInBits)
	k.u64(n.AlignInBits)
	k.u64(uint64(n.Encoding))
}

func (n *DerivedType) appendKey(k *keyWriter) {
	k.u64(uint64(n.Tag))
	k.str(n.Name)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.ref(n.Scope)
	k.ref(n.BaseType)
	k.u64(n.SizeInBits)
	k.u64(n.AlignInBits)
	k.u64(n.OffsetInBits)
	k.u64(uint64(n.Flags))
	k.ref(n.ClassType)
	k.constant(n.Constant)
}

func (n *CompositeType) appendKey(k *keyWriter) {
	k.u64(uint64(n.Tag))
	k.str(n.Name)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.ref(n.Scope)
	k.ref(n.BaseType)
	k.u64(n.SizeInBits)
	k.u64(n.AlignInBits)
	k.u64(n.OffsetInBits)
	k.u64(uint64(n.Flags))
	k.ids(n.Elements)
	k.u64(uint64(n.RuntimeLang))
	k.ref(n.VTableHolder)
	k.ids(n.TemplateParams)
	k.str(n.Identifier)
}

func (n *SubroutineType) appendKey(k *keyWriter) {
	k.u64(uint64(n.Flags))
	k.u64(uint64(len(n.Types)))
	for _, t := range n.Types {
		k.ref(t)
	}
}

func (n *LocalVariable) appendKey(k *keyWriter) {
	k.id(n.Scope)
	k.str(n.Name)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.ref(n.Type)
	k.u64(uint64(n.Arg))
	k.u64(uint64(n.Flags))
	k.id(n.InlinedAt)
}

func (n *GlobalVariable) appendKey(k *keyWriter) {
	k.id(n.Scope)
	k.str(n.Name)
	k.str(n.LinkageName)
	k.id(n.File)
	k.u64(uint64(n.Line))
	k.ref(n.Type)
	k.boolean(n.LocalToUnit)
	k.boolean(n.Definition)
	if v := n.Variable; v != nil {
		k.u8(1)
		k.str(v.Symbol)
		k.boolean(v.ThreadLocal)
		k.u64(v.Offset)
		k.constant(v.Constant)
	} else {
		k.u8(0)
	}
	k.id(n.StaticDataMemberDeclaration)
}

func (n *Expression) appendKey(k *keyWriter) {
	k.u64(uint64(len(n.Ops)))
	for _, op := range n.Ops {
		k.u64(op)
	}
}

func (n *Location) appendKey(k *keyWriter) {
	k.u64(uint64(n.Line))
	k.u64(uint64(n.Column))
	k.id(n.Scope)
	k.id(n.InlinedAt)
}

func (n *TemplateTypeParameter) appendKey(k *keyWriter) {
	k.str(n.Name)
	k.ref(n.Type)
}

func (n *TemplateValueParameter) appendKey(k *keyWriter) {
	k.u64(uint64(n.Tag))
	k.str(n.Name)
	k.ref(n.Type)
	k.constant(n.Value.Constant)
	k.str(n.Value.Symbol)
	k.str(n.Value.TemplateName)
	k.ids(n.Value.Pack)
}

func (n *Enumerator) appendKey(k *keyWriter) {
	k.str(n.Name)
	k.i64(n.Value)
}

func (n *Subrange) appendKey(k *keyWriter) {
	k.i64(n.Count)
	k.i64(n.LowerBound)
}

func (n *ImportedEntity) appendKey(k *keyWriter) {
	k.u64(uint64(n.Tag))
	k.id(n.Scope)
	k.ref(n.Entity)
	k.u64(uint64(n.Line))
	k.str(n.Name)
}
