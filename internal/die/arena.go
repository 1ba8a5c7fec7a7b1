package die

import (
	"fmt"

	"github.com/orizon-lang/dwarfgen/internal/dwarf"
)

const slabSize = 256

// Arena allocates the entries and composite values of one unit in slabs and
// releases them together.
type Arena struct {
	unit     uint32
	entries  [][]Entry
	blocks   [][]Block
	locs     [][]Loc
	nEntry   int
	nBlock   int
	nLoc     int
	released bool
}

// NewArena returns an arena for the unit with the given id.
func NewArena(unit uint32) *Arena {
	return &Arena{unit: unit}
}

// Unit returns the owning unit id.
func (a *Arena) Unit() uint32 { return a.unit }

// Len returns the number of entries allocated so far.
func (a *Arena) Len() int { return a.nEntry }

func (a *Arena) check() {
	if a.released {
		panic(fmt.Sprintf("die: allocation from released arena of unit %d", a.unit))
	}
}

// NewEntry allocates an entry with the given tag.
func (a *Arena) NewEntry(tag dwarf.Tag) *Entry {
	a.check()
	i := a.nEntry % slabSize
	if i == 0 {
		a.entries = append(a.entries, make([]Entry, slabSize))
	}
	e := &a.entries[len(a.entries)-1][i]
	e.Tag = tag
	e.unit = a.unit
	a.nEntry++
	return e
}

// NewBlock allocates an empty block value.
func (a *Arena) NewBlock() *Block {
	a.check()
	i := a.nBlock % slabSize
	if i == 0 {
		a.blocks = append(a.blocks, make([]Block, slabSize))
	}
	a.nBlock++
	return &a.blocks[len(a.blocks)-1][i]
}

// NewLoc allocates an empty location expression.
func (a *Arena) NewLoc() *Loc {
	a.check()
	i := a.nLoc % slabSize
	if i == 0 {
		a.locs = append(a.locs, make([]Loc, slabSize))
	}
	a.nLoc++
	return &a.locs[len(a.locs)-1][i]
}

// Release drops every slab. Entries handed out before remain reachable
// only through pointers the caller still holds.
func (a *Arena) Release() {
	a.entries = nil
	a.blocks = nil
	a.locs = nil
	a.released = true
}

// Released reports whether Release was called.
func (a *Arena) Released() bool { return a.released }
