// Package loader reads country range files into rangetable input.
//
// Each line holds four tab-separated fields: start address and end address as
// decimal integers, a free-form description (usually the dotted range) and
// the country code.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"geoip/internal/ipaddr"
	"geoip/internal/rangetable"
)

// Stats counts what Parse saw.
type Stats struct {
	Lines       int
	Ranges      int
	Skipped     int
	ParseErrors int
}

// LoadFile parses the range file at path.
func LoadFile(path string) ([]rangetable.Range, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening range file: %w", err)
	}
	defer f.Close()

	ranges, stats, err := Parse(f)
	if err != nil {
		return nil, stats, fmt.Errorf("reading %s: %w", path, err)
	}
	return ranges, stats, nil
}

// Parse reads ranges in file order. Blank lines and lines starting with '#'
// are skipped. Lines that are too short or carry non-numeric bounds are
// counted as parse errors and dropped; they never abort the read.
func Parse(r io.Reader) ([]rangetable.Range, Stats, error) {
	var stats Stats
	var ranges []rangetable.Range

	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)

	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimRight(scanner.Text(), "\r")

		if len(strings.TrimSpace(line)) == 0 || strings.HasPrefix(line, "#") {
			stats.Skipped++
			continue
		}

		rng, err := parseLine(line)
		if err != nil {
			stats.ParseErrors++
			continue
		}

		ranges = append(ranges, rng)
		stats.Ranges++
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanning ranges: %w", err)
	}

	return ranges, stats, nil
}

func parseLine(line string) (rangetable.Range, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 4 {
		return rangetable.Range{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	start, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return rangetable.Range{}, fmt.Errorf("start: %w", err)
	}
	end, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return rangetable.Range{}, fmt.Errorf("end: %w", err)
	}

	return rangetable.Range{
		Start:   ipaddr.Address(start),
		End:     ipaddr.Address(end),
		Country: strings.TrimSpace(fields[3]),
	}, nil
}
