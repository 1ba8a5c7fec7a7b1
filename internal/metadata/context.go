package metadata

import (
	"bytes"
	"fmt"

	"github.com/zeebo/xxh3"
)

type nodeState uint8

const (
	stateUniqued nodeState = iota
	stateDistinct
	stateTemporary
)

type uniqEntry struct {
	id  NodeID
	key []byte
}

// Context owns every node of one module. Nodes are appended and never
// removed; handles stay valid for the life of the Context.
//
// A Context is not safe for concurrent mutation. Once loading is done it may
// be read from any number of goroutines.
type Context struct {
	nodes []Node
	state []nodeState
	uniq  map[uint64][]uniqEntry
	key   keyWriter
}

// NewContext returns an empty Context. Handle 0 is reserved for NullID.
func NewContext() *Context {
	return &Context{
		nodes: []Node{nil},
		state: []nodeState{stateDistinct},
		uniq:  make(map[uint64][]uniqEntry),
	}
}

// Len returns the number of allocated handles, including the null handle.
func (c *Context) Len() int { return len(c.nodes) }

func (c *Context) canonicalKey(n Node) []byte {
	c.key.buf = c.key.buf[:0]
	c.key.u8(uint8(n.Kind()))
	n.appendKey(&c.key)
	return c.key.buf
}

// Unique returns the handle of a node structurally identical to n, creating
// it when none exists yet.
func (c *Context) Unique(n Node) NodeID {
	key := c.canonicalKey(n)
	h := xxh3.Hash(key)
	for _, e := range c.uniq[h] {
		if bytes.Equal(e.key, key) {
			return e.id
		}
	}
	id := c.push(n, stateUniqued)
	c.uniq[h] = append(c.uniq[h], uniqEntry{id: id, key: bytes.Clone(key)})
	return id
}

// Distinct allocates n under a fresh handle without uniquing.
func (c *Context) Distinct(n Node) NodeID {
	return c.push(n, stateDistinct)
}

// Temporary reserves a handle whose node is supplied later through Replace.
// It is the only way to build a node that refers to itself.
func (c *Context) Temporary() NodeID {
	return c.push(nil, stateTemporary)
}

// Replace fills a handle obtained from Temporary. The resulting node is
// distinct.
func (c *Context) Replace(id NodeID, n Node) {
	if !c.IsTemporary(id) {
		panic(fmt.Sprintf("metadata: Replace on non-temporary node %d", id))
	}
	c.nodes[id] = n
	c.state[id] = stateDistinct
}

// IsTemporary reports whether id is still waiting for Replace.
func (c *Context) IsTemporary(id NodeID) bool {
	return int(id) < len(c.state) && c.state[id] == stateTemporary
}

// IsDistinct reports whether id was allocated outside the uniquing table.
func (c *Context) IsDistinct(id NodeID) bool {
	return id != NullID && int(id) < len(c.state) && c.state[id] == stateDistinct
}

func (c *Context) push(n Node, st nodeState) NodeID {
	id := NodeID(len(c.nodes))
	c.nodes = append(c.nodes, n)
	c.state = append(c.state, st)
	return id
}

// Node returns the node behind id, or nil for NullID, temporaries and
// out-of-range handles.
func (c *Context) Node(id NodeID) Node {
	if id == NullID || int(id) >= len(c.nodes) {
		return nil
	}
	return c.nodes[id]
}

// KindOf returns the kind of the node behind id.
func (c *Context) KindOf(id NodeID) Kind {
	if n := c.Node(id); n != nil {
		return n.Kind()
	}
	return KindInvalid
}

// As returns the node behind id as T, or the zero T when the kinds differ.
func As[T Node](c *Context, id NodeID) T {
	n, _ := c.Node(id).(T)
	return n
}

// Scope returns the enclosing scope of a scope-like node.
func (c *Context) Scope(id NodeID) TypeRef {
	switch n := c.Node(id).(type) {
	case *Namespace:
		return Ref(n.Scope)
	case *LexicalBlock:
		return Ref(n.Scope)
	case *LexicalBlockFile:
		return Ref(n.Scope)
	case *Subprogram:
		return n.Scope
	case *DerivedType:
		return n.Scope
	case *CompositeType:
		return n.Scope
	case *LocalVariable:
		return Ref(n.Scope)
	case *GlobalVariable:
		return Ref(n.Scope)
	case *ImportedEntity:
		return Ref(n.Scope)
	case *Location:
		return Ref(n.Scope)
	}
	return TypeRef{}
}

// Name returns the source-level name of the node behind id, if it has one.
func (c *Context) Name(id NodeID) string {
	switch n := c.Node(id).(type) {
	case *Namespace:
		return n.Name
	case *Subprogram:
		return n.Name
	case *BasicType:
		return n.Name
	case *DerivedType:
		return n.Name
	case *CompositeType:
		return n.Name
	case *LocalVariable:
		return n.Name
	case *GlobalVariable:
		return n.Name
	case *TemplateTypeParameter:
		return n.Name
	case *TemplateValueParameter:
		return n.Name
	case *Enumerator:
		return n.Name
	case *ImportedEntity:
		return n.Name
	}
	return ""
}

// FileOf returns the file a node was declared in.
func (c *Context) FileOf(id NodeID) *File {
	var f NodeID
	switch n := c.Node(id).(type) {
	case *File:
		return n
	case *CompileUnit:
		f = n.File
	case *Namespace:
		f = n.File
	case *LexicalBlock:
		f = n.File
	case *LexicalBlockFile:
		f = n.File
	case *Subprogram:
		f = n.File
	case *DerivedType:
		f = n.File
	case *CompositeType:
		f = n.File
	case *LocalVariable:
		f = n.File
	case *GlobalVariable:
		f = n.File
	}
	return As[*File](c, f)
}

// Line returns the declaration line of a node, or 0.
func (c *Context) Line(id NodeID) uint {
	switch n := c.Node(id).(type) {
	case *Namespace:
		return n.Line
	case *LexicalBlock:
		return n.Line
	case *Subprogram:
		return n.Line
	case *DerivedType:
		return n.Line
	case *CompositeType:
		return n.Line
	case *LocalVariable:
		return n.Line
	case *GlobalVariable:
		return n.Line
	case *Location:
		return n.Line
	case *ImportedEntity:
		return n.Line
	}
	return 0
}

// SizeInBits returns the size of a type node, or 0.
func (c *Context) SizeInBits(id NodeID) uint64 {
	switch n := c.Node(id).(type) {
	case *BasicType:
		return n.SizeInBits
	case *DerivedType:
		return n.SizeInBits
	case *CompositeType:
		return n.SizeInBits
	}
	return 0
}

// TypeFlags returns the flags of a type node.
func (c *Context) TypeFlags(id NodeID) Flags {
	switch n := c.Node(id).(type) {
	case *DerivedType:
		return n.Flags
	case *CompositeType:
		return n.Flags
	case *SubroutineType:
		return n.Flags
	}
	return 0
}
