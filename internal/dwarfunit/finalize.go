package dwarfunit

import (
	"fmt"

	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/errors"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
)

// createOnDemand builds the entry of a node that was referenced through a
// proxy but never constructed.
func (u *Unit) createOnDemand(node metadata.NodeID) *die.Entry {
	switch n := u.meta.Node(node).(type) {
	case *metadata.Namespace:
		return u.GetOrCreateNameSpace(node)
	case *metadata.Subprogram:
		return u.GetOrCreateSubprogramDIE(node, false)
	case *metadata.DerivedType:
		if n.Flags.IsStaticMember() {
			return u.GetOrCreateStaticMemberDIE(node)
		}
		return u.GetOrCreateTypeDIE(node)
	case *metadata.BasicType, *metadata.CompositeType, *metadata.SubroutineType:
		return u.GetOrCreateTypeDIE(node)
	}
	panic(errors.MissingEntry(uint32(node), "bind reference"))
}

// bindPendingRefs creates the entries of every unbound proxy in the order
// the proxies were first requested, repeating until creation stops
// producing new proxies.
func (u *Unit) bindPendingRefs() int {
	created := 0
	for {
		var pending []metadata.NodeID
		for _, node := range u.refOrder {
			if !u.refs[node].Bound() {
				pending = append(pending, node)
			}
		}
		if len(pending) == 0 {
			return created
		}
		for _, node := range pending {
			r := u.refs[node]
			if r.Bound() {
				continue
			}
			e := u.hooks.createOnDemand(node)
			if e == nil {
				panic(errors.MissingEntry(uint32(node), "bind reference"))
			}
			// Redirected declarations are stored under their definition.
			if !r.Bound() {
				r.Bind(e)
			}
			created++
		}
	}
}

// complete runs the deferred construction of a unit: containing-type
// back-references, then the entries of unbound proxies.
func (u *Unit) complete() {
	if u.state == StateOpen {
		u.Finish()
	}
	u.fixing = true
	defer func() { u.fixing = false }()
	created := 0
	for {
		u.ConstructContainingTypeDIEs()
		created += u.bindPendingRefs()
		if len(u.containing) == 0 {
			break
		}
	}
	if created > 0 {
		u.log.Debug().Int("created", created).Msg("entries created on demand")
	}
}

// Finalize completes every unit and lays out the output: pooled strings
// and addresses are numbered, reference and block forms are chosen,
// abbreviations are assigned and every entry gets its offset. Units still
// open are finished first. After Finalize every unit is closed.
func (c *Context) Finalize() (err error) {
	c.mu.Lock()
	if c.finalized {
		c.mu.Unlock()
		return nil
	}
	c.finalized = true
	cus := append([]*CompileUnit(nil), c.compileUnits...)
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*errors.StandardError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()

	for _, cu := range cus {
		cu.complete()
	}
	done := make(map[*TypeUnit]bool)
	for {
		progressed := false
		for _, tu := range c.TypeUnits() {
			if done[tu] {
				continue
			}
			done[tu] = true
			progressed = true
			tu.complete()
		}
		if !progressed {
			break
		}
	}
	tus := c.TypeUnits()

	c.Strings.Finalize()
	c.Addrs.Finalize()

	units := make([]*Unit, 0, len(cus)+len(tus))
	for _, cu := range cus {
		units = append(units, &cu.Unit)
	}
	for _, tu := range tus {
		units = append(units, &tu.Unit)
	}
	byID := make(map[uint32]*Unit, len(units))
	for _, u := range units {
		byID[u.id] = u
	}

	var fixups []Fixup
	for _, u := range units {
		fixups = append(fixups, u.assignForms()...)
	}

	params := c.Policy.FormParams()
	var infoOff, typesOff uint32
	for _, cu := range cus {
		cu.layout(c.Abbrevs, params, infoOff)
		infoOff += cu.Length
	}
	for _, tu := range tus {
		if c.Policy.DwarfVersion >= 5 {
			tu.layout(c.Abbrevs, params, infoOff)
			infoOff += tu.Length
		} else {
			tu.layout(c.Abbrevs, params, typesOff)
			typesOff += tu.Length
		}
	}
	for _, f := range fixups {
		if byID[f.Target.Unit()] == nil {
			panic(errors.MissingEntry(0, fmt.Sprintf("reference into unknown unit %d", f.Target.Unit())))
		}
	}
	for _, u := range units {
		u.state = StateClosed
	}

	c.mu.Lock()
	c.fixups = fixups
	c.mu.Unlock()
	c.log.Info().
		Int("compile_units", len(cus)).
		Int("type_units", len(tus)).
		Int("abbrevs", c.Abbrevs.Len()).
		Int("strings", c.Strings.Len()).
		Uint32("debug_info_size", infoOff).
		Uint32("debug_types_size", typesOff).
		Msg("debug info finalized")
	return nil
}

// assignForms decides the final reference and block forms of every
// attribute in the unit and returns the references that leave it.
func (u *Unit) assignForms() []Fixup {
	var fixups []Fixup
	exprloc := u.policy.Has(FeatureExprloc)
	params := u.policy.FormParams()
	u.root.Walk(func(e *die.Entry) bool {
		for i := range e.Attrs {
			a := &e.Attrs[i]
			switch v := a.Value.(type) {
			case die.EntryRef:
				t := v.Ref.Target()
				if t == nil {
					panic(errors.MissingEntry(v.Ref.Node, "assign reference form"))
				}
				if t.Unit() == u.id {
					a.Form = dwarf.FormRef4
					continue
				}
				a.Form = dwarf.FormRefAddr
				fixups = append(fixups, Fixup{Unit: u.id, Entry: e, Attr: a.Attr, Target: t})
			case *die.Loc:
				if exprloc {
					a.Form = dwarf.FormExprloc
				} else {
					a.Form = blockFormFor(v.ContentSize(params))
				}
			case *die.Block:
				a.Form = blockFormFor(v.ContentSize(params))
			}
		}
		return true
	})
	return fixups
}

// layout assigns abbreviations and unit-relative offsets, with the unit
// itself starting at section offset off.
func (u *Unit) layout(abbrevs *die.AbbrevSet, params dwarf.FormParams, off uint32) {
	u.Offset = off
	u.Length = die.ComputeSizeAndOffsets(u.root, u.HeaderSize(), abbrevs, params)
}

// SectionOffset returns the offset of e within its section. It is valid
// after finalization.
func (c *Context) SectionOffset(e *die.Entry) (uint32, bool) {
	u := c.Unit(e.Unit())
	if u == nil {
		return 0, false
	}
	return u.Offset + e.Offset, true
}
