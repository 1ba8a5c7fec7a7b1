package dwarfunit

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/orizon-lang/dwarfgen/internal/debuginfo"
	"github.com/orizon-lang/dwarfgen/internal/die"
	"github.com/orizon-lang/dwarfgen/internal/dwarf"
	"github.com/orizon-lang/dwarfgen/internal/metadata"
	"github.com/orizon-lang/dwarfgen/internal/metrics"
)

// Fixup is a reference that must be patched with a section offset once
// all units are laid out.
type Fixup struct {
	Unit   uint32
	Entry  *die.Entry
	Attr   dwarf.Attribute
	Target *die.Entry
}

// Context is the module-wide state of one build. Compile units may be
// populated from different goroutines; everything shared is guarded here.
type Context struct {
	Policy  Policy
	Module  *metadata.Module
	Meta    *metadata.Context
	TypeMap debuginfo.TypeIdentifierMap
	Strings *StringPool
	Addrs   *AddrPool
	Accel   AccelTables
	Abbrevs *die.AbbrevSet

	log    zerolog.Logger
	nextID atomic.Uint32

	mu           sync.Mutex
	compileUnits []*CompileUnit
	typeUnits    map[uint64]*TypeUnit
	sortedTUs    []*TypeUnit
	fixups       []Fixup
	finalized    bool
}

// NewContext prepares a build of m under policy. A nil type map is
// generated from m.
func NewContext(policy Policy, m *metadata.Module, tm debuginfo.TypeIdentifierMap, log zerolog.Logger) (*Context, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if tm == nil {
		tm = debuginfo.GenerateTypeIdentifierMap(m)
	}
	return &Context{
		Policy:    policy,
		Module:    m,
		Meta:      m.Ctx,
		TypeMap:   tm,
		Strings:   newStringPool(),
		Addrs:     newAddrPool(),
		Accel:     newAccelTables(),
		Abbrevs:   die.NewAbbrevSet(),
		log:       log,
		typeUnits: make(map[uint64]*TypeUnit),
	}, nil
}

func (c *Context) newUnitID() uint32 { return c.nextID.Add(1) }

// CompileUnits returns the compile units in creation order.
func (c *Context) CompileUnits() []*CompileUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*CompileUnit(nil), c.compileUnits...)
}

// TypeUnits returns the registered type units ordered by signature.
func (c *Context) TypeUnits() []*TypeUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typeUnitsLocked()
}

func (c *Context) typeUnitsLocked() []*TypeUnit {
	if c.sortedTUs == nil {
		c.sortedTUs = make([]*TypeUnit, 0, len(c.typeUnits))
		for _, tu := range c.typeUnits {
			c.sortedTUs = append(c.sortedTUs, tu)
		}
		sort.Slice(c.sortedTUs, func(i, j int) bool {
			return c.sortedTUs[i].Signature() < c.sortedTUs[j].Signature()
		})
	}
	return append([]*TypeUnit(nil), c.sortedTUs...)
}

// TypeUnit returns the registered type unit with the given signature.
func (c *Context) TypeUnit(sig uint64) *TypeUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typeUnits[sig]
}

// registerTypeUnits adds completed type units, keeping the first unit per
// signature. It returns the units that were new.
func (c *Context) registerTypeUnits(tus []*TypeUnit) []*TypeUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	var added []*TypeUnit
	for _, tu := range tus {
		sig := tu.Signature()
		if prev, ok := c.typeUnits[sig]; ok {
			c.log.Debug().Str("signature", formatSignature(sig)).Uint32("kept", prev.id).Uint32("dropped", tu.id).Msg("duplicate type unit")
			tu.discard()
			metrics.RecordTypeUnitDeduplicated()
			continue
		}
		c.typeUnits[sig] = tu
		c.sortedTUs = nil
		added = append(added, tu)
	}
	return added
}

// Fixups returns the cross-unit references recorded by Finalize.
func (c *Context) Fixups() []Fixup { return c.fixups }

// Unit returns the compile or type unit with the given id.
func (c *Context) Unit(id uint32) *Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cu := range c.compileUnits {
		if cu.id == id {
			return &cu.Unit
		}
	}
	for _, tu := range c.typeUnits {
		if tu.id == id {
			return &tu.Unit
		}
	}
	return nil
}
