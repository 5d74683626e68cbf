package rangetable

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"geoip/internal/ipaddr"
)

// leaf is a LeafEntry tagged with the index of the range that produced it.
type leaf struct {
	LeafEntry
	seq int
}

// Build constructs a Table from ranges in the order given.
//
// Each range is walked one /16 block at a time: the part of the range inside
// the block becomes a single LeafEntry keyed by its first sub-index. A later
// range producing an entry with the same block and first sub-index replaces
// the earlier entry outright. Where surviving entries of one block still
// overlap, the later range owns the overlap. Ranges with Start > End are
// skipped.
func Build(ranges []Range) *Table {
	pending := make(map[uint16]map[uint16]leaf)
	stats := Stats{Ranges: len(ranges)}

	for seq, r := range ranges {
		if r.Start > r.End {
			stats.Skipped++
			continue
		}

		end := uint64(r.End)
		for j := uint64(r.Start); j <= end; {
			addr := ipaddr.Address(j)
			prefix, sub := addr.Prefix(), addr.SubIndex()

			leaves, ok := pending[prefix]
			if !ok {
				leaves = make(map[uint16]leaf)
				pending[prefix] = leaves
			}

			maxRunInBlock := uint64(maxSubIndex - sub)
			remaining := end - j
			if remaining > maxRunInBlock {
				leaves[sub] = leaf{LeafEntry{Begin: sub, End: maxSubIndex, Country: r.Country}, seq}
				j += maxRunInBlock + 1
			} else {
				leaves[sub] = leaf{LeafEntry{Begin: sub, End: sub + uint16(remaining), Country: r.Country}, seq}
				j += remaining + 1
			}
		}
	}

	t := &Table{blocks: new([blockCount]*block)}
	overlapping := t.freeze(pending)

	stats.Blocks = len(pending)
	stats.OverlappingBlocks = overlapping
	for _, blk := range t.blocks {
		if blk == nil {
			continue
		}
		stats.Entries += len(blk.entries)
		if len(blk.entries) > stats.LargestBlock {
			stats.LargestBlock = len(blk.entries)
		}
	}
	t.stats = stats

	return t
}

// freeze turns the pending maps into sorted blocks and returns how many
// blocks had overlapping entries. Work is split by the first address byte;
// every worker writes its own elements of t.blocks.
func (t *Table) freeze(pending map[uint16]map[uint16]leaf) int {
	var byFirst [256][]uint16
	for prefix := range pending {
		byFirst[prefix>>8] = append(byFirst[prefix>>8], prefix)
	}

	var overlaps [256]int
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for a := range byFirst {
		a := a // per-iteration copy (go 1.21 loop semantics)
		prefixes := byFirst[a]
		if len(prefixes) == 0 {
			continue
		}
		g.Go(func() error {
			for _, prefix := range prefixes {
				blk, overlapped := newBlock(pending[prefix])
				t.blocks[prefix] = blk
				if overlapped {
					overlaps[a]++
				}
			}
			return nil
		})
	}
	// workers never fail
	_ = g.Wait()

	total := 0
	for _, n := range overlaps {
		total += n
	}
	return total
}

func newBlock(leaves map[uint16]leaf) (*block, bool) {
	ordered := make([]leaf, 0, len(leaves))
	for _, l := range leaves {
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].seq < ordered[j].seq || (ordered[i].seq == ordered[j].seq && ordered[i].Begin < ordered[j].Begin)
	})

	entries := make([]LeafEntry, 0, len(ordered))
	overlapped := false
	for _, l := range ordered {
		var trimmed bool
		entries, trimmed = paint(entries, l.LeafEntry)
		overlapped = overlapped || trimmed
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Begin < entries[j].Begin
	})

	return &block{entries: entries}, overlapped
}

// paint lays e over entries, cutting away whatever part of an existing entry
// e covers. entries stays pairwise disjoint.
func paint(entries []LeafEntry, e LeafEntry) ([]LeafEntry, bool) {
	overlapped := false
	out := entries[:0:0]
	for _, x := range entries {
		if x.End < e.Begin || x.Begin > e.End {
			out = append(out, x)
			continue
		}
		overlapped = true
		if x.Begin < e.Begin {
			out = append(out, LeafEntry{Begin: x.Begin, End: e.Begin - 1, Country: x.Country})
		}
		if x.End > e.End {
			out = append(out, LeafEntry{Begin: e.End + 1, End: x.End, Country: x.Country})
		}
	}
	return append(out, e), overlapped
}
