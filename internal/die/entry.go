// Package die holds the output tree of debugging information entries: the
// entries themselves, their attribute values, the reference proxies that
// let entries point at each other before both exist, and the arena that
// owns them for the lifetime of a unit.
package die

import (
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

// Attr is one attribute of an entry.
type Attr struct {
	Attr  dwarf.Attribute
	Form  dwarf.Form
	Value Value
}

// Entry is a debugging information entry. Children keep insertion order.
type Entry struct {
	Tag      dwarf.Tag
	Attrs    []Attr
	Children []*Entry
	Parent   *Entry

	// Abbrev, Offset and Size are assigned by ComputeSizeAndOffsets.
	Abbrev uint32
	Offset uint32
	Size   uint32

	unit uint32
}

// Unit returns the id of the unit whose arena allocated e.
func (e *Entry) Unit() uint32 { return e.unit }

// AddChild appends child to e.
func (e *Entry) AddChild(child *Entry) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// AddValue appends an attribute.
func (e *Entry) AddValue(a dwarf.Attribute, f dwarf.Form, v Value) {
	e.Attrs = append(e.Attrs, Attr{Attr: a, Form: f, Value: v})
}

// Find returns the first attribute a of e.
func (e *Entry) Find(a dwarf.Attribute) (Attr, bool) {
	for _, at := range e.Attrs {
		if at.Attr == a {
			return at, true
		}
	}
	return Attr{}, false
}

// Has reports whether e carries attribute a.
func (e *Entry) Has(a dwarf.Attribute) bool {
	_, ok := e.Find(a)
	return ok
}

// Name returns the DW_AT_name string of e, if any.
func (e *Entry) Name() string {
	if at, ok := e.Find(dwarf.AttrName); ok {
		if s, ok := at.Value.(String); ok {
			return s.Str()
		}
	}
	return ""
}

// SetForm changes the form of attribute a in place.
func (e *Entry) SetForm(a dwarf.Attribute, f dwarf.Form) {
	for i := range e.Attrs {
		if e.Attrs[i].Attr == a {
			e.Attrs[i].Form = f
		}
	}
}

// Walk calls fn for e and every descendant in pre-order. Returning false
// from fn skips the children of that entry.
func (e *Entry) Walk(fn func(*Entry) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// UnitRoot returns the root of the tree e belongs to.
func (e *Entry) UnitRoot() *Entry {
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}

// Ref is a reference proxy: a stand-in for the entry of a node that may not
// have been built yet. A unit keeps exactly one Ref per referenced node and
// binds it when the entry is inserted.
type Ref struct {
	Node   uint32
	target *Entry
}

// NewRef returns an unbound proxy for node.
func NewRef(node uint32) *Ref { return &Ref{Node: node} }

// Bind attaches the proxy to its entry.
func (r *Ref) Bind(e *Entry) { r.target = e }

// Target returns the bound entry, or nil.
func (r *Ref) Target() *Entry { return r.target }

// Bound reports whether the proxy has an entry.
func (r *Ref) Bound() bool { return r.target != nil }
