package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"geoip/internal/ipaddr"
	"geoip/internal/rangetable"
)

type RIRService struct {
	logger     *zap.Logger
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

func NewRIRService(logger *zap.Logger) *RIRService {
	return &RIRService{
		logger: logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       100,
				IdleConnTimeout:    90 * time.Second,
				DisableCompression: true,
				MaxConnsPerHost:    100,
				DisableKeepAlives:  false,
				ForceAttemptHTTP2:  true,
			},
		},
		maxRetries: 3,
		retryDelay: 5 * time.Second,
	}
}

type RIRStats struct {
	IPv4Count    int
	IPv6Count    int
	SkippedCount int
	ParseErrors  int
}

// FetchIPRanges downloads a delegated-stats file and returns its IPv4
// allocations as address ranges, in file order.
func (s *RIRService) FetchIPRanges(ctx context.Context, url string) ([]rangetable.Range, RIRStats, error) {
	var lastErr error
	var stats RIRStats

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * s.retryDelay
			select {
			case <-ctx.Done():
				return nil, stats, ctx.Err()
			case <-time.After(delay):
			}
		}

		ranges, stats, err := s.fetchWithTimeout(ctx, url)
		if err == nil {
			return ranges, stats, nil
		}

		lastErr = err
		s.logger.Warn("Failed to fetch RIR data, retrying...",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return nil, stats, fmt.Errorf("failed after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *RIRService) fetchWithTimeout(ctx context.Context, url string) ([]rangetable.Range, RIRStats, error) {
	startTime := time.Now()

	s.logger.Info("Starting RIR data fetch", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, RIRStats{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", "geoip/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, RIRStats{}, fmt.Errorf("fetching RIR data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, RIRStats{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	s.logger.Info("Successfully downloaded RIR data",
		zap.String("url", url),
		zap.Duration("download_time", time.Since(startTime)))

	parseStartTime := time.Now()
	ranges, stats, lineCount, err := s.parseDelegated(resp.Body)
	if err != nil {
		return nil, stats, fmt.Errorf("reading RIR data: %w", err)
	}

	s.logger.Info("Finished parsing RIR data",
		zap.String("url", url),
		zap.Int("total_lines", lineCount),
		zap.Int("ipv4_ranges", stats.IPv4Count),
		zap.Int("ipv6_ranges", stats.IPv6Count),
		zap.Int("skipped_lines", stats.SkippedCount),
		zap.Int("parse_errors", stats.ParseErrors),
		zap.Duration("parse_time", time.Since(parseStartTime)),
		zap.Duration("total_time", time.Since(startTime)))

	return ranges, stats, nil
}

func (s *RIRService) parseDelegated(r io.Reader) ([]rangetable.Range, RIRStats, int, error) {
	var stats RIRStats
	var ranges []rangetable.Range

	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || len(line) == 0 {
			stats.SkippedCount++
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 7 {
			stats.SkippedCount++
			continue
		}

		if parts[1] == "*" || parts[1] == "" || (parts[6] != "allocated" && parts[6] != "assigned") {
			stats.SkippedCount++
			continue
		}

		switch parts[2] {
		case "ipv4":
		case "ipv6":
			// no IPv6 table
			stats.IPv6Count++
			continue
		default:
			stats.SkippedCount++
			continue
		}

		ipRange, err := parseIPv4Range(parts)
		if err != nil {
			stats.ParseErrors++
			s.logger.Debug("failed to parse IP range",
				zap.String("line", line),
				zap.Error(err))
			continue
		}

		stats.IPv4Count++
		ranges = append(ranges, ipRange)
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, lineCount, err
	}

	return ranges, stats, lineCount, nil
}

// parseIPv4Range turns "registry|CC|ipv4|start|count|date|status" into the
// inclusive range [start, start+count-1].
func parseIPv4Range(parts []string) (rangetable.Range, error) {
	start, err := ipaddr.ParseStrict(parts[3])
	if err != nil {
		return rangetable.Range{}, err
	}

	count, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return rangetable.Range{}, err
	}
	if count == 0 || uint64(start)+count-1 > math.MaxUint32 {
		return rangetable.Range{}, fmt.Errorf("address count %d out of range for %s", count, parts[3])
	}

	return rangetable.Range{
		Start:   start,
		End:     ipaddr.Address(uint64(start) + count - 1),
		Country: strings.ToUpper(parts[1]),
	}, nil
}
