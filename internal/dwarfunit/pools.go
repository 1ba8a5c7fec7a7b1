package dwarfunit

import (
	"sort"
	"sync"

	"github.com/orizon-lang/dwarfgen/internal/die"
)

// StringPool deduplicates the strings of all units. Offsets and indices are
// assigned in sorted order by Finalize so that output does not depend on
// the order in which units were populated.
type StringPool struct {
	mu      sync.Mutex
	entries map[string]*die.StringEntry
	sorted  []*die.StringEntry
	size    uint32
}

func newStringPool() *StringPool {
	return &StringPool{entries: make(map[string]*die.StringEntry)}
}

// Get returns the pool slot for s, creating it on first use.
func (p *StringPool) Get(s string) *die.StringEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[s]; ok {
		return e
	}
	e := &die.StringEntry{Str: s}
	p.entries[s] = e
	return e
}

// Len returns the number of distinct strings.
func (p *StringPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Finalize assigns offsets and indices.
func (p *StringPool) Finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sorted = p.sorted[:0]
	for _, e := range p.entries {
		p.sorted = append(p.sorted, e)
	}
	sort.Slice(p.sorted, func(i, j int) bool { return p.sorted[i].Str < p.sorted[j].Str })
	var off uint32
	for i, e := range p.sorted {
		e.Index = uint32(i)
		e.Offset = off
		off += uint32(len(e.Str)) + 1
	}
	p.size = off
}

// Entries returns the finalized strings in offset order.
func (p *StringPool) Entries() []*die.StringEntry { return p.sorted }

// Size returns the byte size of the finalized string section.
func (p *StringPool) Size() uint32 { return p.size }

// AddrEntry is one address pool slot.
type AddrEntry struct {
	Symbol string
	TLS    bool
	Index  uint32
}

// AddrPool collects the addresses referenced through indexed forms.
type AddrPool struct {
	mu      sync.Mutex
	entries map[string]*AddrEntry
	sorted  []*AddrEntry
}

func newAddrPool() *AddrPool {
	return &AddrPool{entries: make(map[string]*AddrEntry)}
}

// Get returns the slot of sym. The index is valid after Finalize.
func (p *AddrPool) Get(sym string, tls bool) *AddrEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := sym
	if tls {
		key = "tls:" + sym
	}
	if e, ok := p.entries[key]; ok {
		return e
	}
	e := &AddrEntry{Symbol: sym, TLS: tls}
	p.entries[key] = e
	return e
}

// IsEmpty reports whether no address was requested.
func (p *AddrPool) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries) == 0
}

// Finalize numbers the slots in symbol order.
func (p *AddrPool) Finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sorted = p.sorted[:0]
	for _, e := range p.entries {
		p.sorted = append(p.sorted, e)
	}
	sort.Slice(p.sorted, func(i, j int) bool {
		if p.sorted[i].Symbol != p.sorted[j].Symbol {
			return p.sorted[i].Symbol < p.sorted[j].Symbol
		}
		return !p.sorted[i].TLS && p.sorted[j].TLS
	})
	for i, e := range p.sorted {
		e.Index = uint32(i)
	}
}

// Entries returns the finalized slots in index order.
func (p *AddrPool) Entries() []*AddrEntry { return p.sorted }

// AccelEntry is one accelerator table record.
type AccelEntry struct {
	Entry *die.Entry
	Flags uint8
}

// AccelTable maps names to the entries that carry them.
type AccelTable struct {
	mu    sync.Mutex
	names map[string][]AccelEntry
}

func newAccelTable() *AccelTable {
	return &AccelTable{names: make(map[string][]AccelEntry)}
}

// Add records e under name.
func (t *AccelTable) Add(name string, e *die.Entry, flags uint8) {
	t.mu.Lock()
	t.names[name] = append(t.names[name], AccelEntry{Entry: e, Flags: flags})
	t.mu.Unlock()
}

// Names returns the recorded names in sorted order.
func (t *AccelTable) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.names))
	for n := range t.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the entries recorded under name.
func (t *AccelTable) Lookup(name string) []AccelEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.names[name]
}

// dropUnit forgets entries allocated by the given unit.
func (t *AccelTable) dropUnit(unit uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for n, list := range t.names {
		kept := list[:0]
		for _, a := range list {
			if a.Entry.Unit() != unit {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(t.names, n)
		} else {
			t.names[n] = kept
		}
	}
}

// AccelTables groups the name, type, namespace and Objective-C tables.
type AccelTables struct {
	Names      *AccelTable
	Types      *AccelTable
	Namespaces *AccelTable
	ObjC       *AccelTable
}

func newAccelTables() AccelTables {
	return AccelTables{
		Names:      newAccelTable(),
		Types:      newAccelTable(),
		Namespaces: newAccelTable(),
		ObjC:       newAccelTable(),
	}
}

func (a AccelTables) dropUnit(unit uint32) {
	a.Names.dropUnit(unit)
	a.Types.dropUnit(unit)
	a.Namespaces.dropUnit(unit)
	a.ObjC.dropUnit(unit)
}
