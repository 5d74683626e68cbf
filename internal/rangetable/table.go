// Package rangetable maps IPv4 addresses to country codes using a table
// built once from a list of inclusive address ranges.
//
// The table is indexed by the top 16 bits of an address. Each populated /16
// block holds a short list of LeafEntry runs over the low 16 bits, so a range
// costs one entry per /16 block it touches rather than one per address.
// A built Table is never mutated and is safe for concurrent lookups.
package rangetable

import (
	"sort"

	"geoip/internal/ipaddr"
)

const (
	blockCount  = 1 << 16
	maxSubIndex = 1<<16 - 1
)

// Range is an inclusive interval of addresses owned by one country.
type Range struct {
	Start   ipaddr.Address
	End     ipaddr.Address
	Country string
}

// LeafEntry covers sub-indexes Begin..End (inclusive) of one /16 block.
type LeafEntry struct {
	Begin   uint16
	End     uint16
	Country string
}

// Contains reports whether sub falls inside the entry.
func (e LeafEntry) Contains(sub uint16) bool {
	return e.Begin <= sub && sub <= e.End
}

// block entries are sorted by Begin and never overlap.
type block struct {
	entries []LeafEntry
}

// Table is the two-level index. The zero value is an empty, unbuilt table:
// every lookup on it reports not found.
type Table struct {
	blocks *[blockCount]*block
	stats  Stats
}

// Lookup returns the country owning addr. The boolean is false when no
// ingested range covers it.
func (t *Table) Lookup(addr ipaddr.Address) (string, bool) {
	if t == nil || t.blocks == nil {
		return "", false
	}
	blk := t.blocks[addr.Prefix()]
	if blk == nil {
		return "", false
	}
	return blk.find(addr.SubIndex())
}

// LookupString parses ip permissively and looks it up.
func (t *Table) LookupString(ip string) (string, bool) {
	return t.Lookup(ipaddr.Parse(ip))
}

// Entries returns a copy of the leaf entries of block a.b, ordered by Begin.
func (t *Table) Entries(a, b byte) []LeafEntry {
	if t == nil || t.blocks == nil {
		return nil
	}
	blk := t.blocks[uint16(a)<<8|uint16(b)]
	if blk == nil {
		return nil
	}
	out := make([]LeafEntry, len(blk.entries))
	copy(out, blk.entries)
	return out
}

func (b *block) find(sub uint16) (string, bool) {
	// first entry ending at or after sub is the only one that can contain it
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].End >= sub
	})
	if i < len(b.entries) && b.entries[i].Begin <= sub {
		return b.entries[i].Country, true
	}
	return "", false
}
