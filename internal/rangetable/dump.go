package rangetable

import (
	"bufio"
	"fmt"
	"io"
)

// Stats describes the shape of a built table.
type Stats struct {
	Ranges            int `json:"ranges"`
	Skipped           int `json:"skipped"`
	Blocks            int `json:"blocks"`
	Entries           int `json:"entries"`
	LargestBlock      int `json:"largest_block"`
	OverlappingBlocks int `json:"overlapping_blocks"`
}

// Stats returns the figures gathered while the table was built.
func (t *Table) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return t.stats
}

// Dump writes every leaf entry, one per line, in address order:
//
//	87.229	32768-49151	RU
func (t *Table) Dump(w io.Writer) error {
	if t == nil || t.blocks == nil {
		return nil
	}

	bw := bufio.NewWriter(w)
	for prefix, blk := range t.blocks {
		if blk == nil {
			continue
		}
		for _, e := range blk.entries {
			if _, err := fmt.Fprintf(bw, "%d.%d\t%d-%d\t%s\n", prefix>>8, prefix&0xff, e.Begin, e.End, e.Country); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
