package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"geoip/internal/config"
	"geoip/internal/ipaddr"
	"geoip/internal/loader"
	"geoip/internal/metrics"
	"geoip/internal/model"
	"geoip/internal/rangetable"
)

// Repository persists the ingested range list between restarts.
type Repository interface {
	SaveRanges(ctx context.Context, ranges []model.IPRange) error
	LoadRanges(ctx context.Context) ([]model.IPRange, error)
	GetRangesCount(ctx context.Context) (int64, error)
}

// Cache remembers per-address lookup results.
type Cache interface {
	SetCountry(ctx context.Context, ip, countryCode string) error
	GetCountry(ctx context.Context, ip string) (string, error)
	ClearCountries(ctx context.Context) error
}

// GeoService answers country lookups from an in-memory range table. The
// table is rebuilt off to the side and swapped in whole, so lookups never
// wait on a reload.
type GeoService struct {
	repo      Repository
	cache     Cache
	rirSvc    *RIRService
	config    *config.Config
	logger    *zap.Logger
	table     atomic.Pointer[rangetable.Table]
	updateMux sync.Mutex
}

// NewGeoService wires the service. repo and cache may be nil when no
// Postgres or Redis is configured.
func NewGeoService(
	repo Repository,
	cache Cache,
	rirSvc *RIRService,
	config *config.Config,
	logger *zap.Logger,
) *GeoService {
	return &GeoService{
		repo:   repo,
		cache:  cache,
		rirSvc: rirSvc,
		config: config,
		logger: logger,
	}
}

func (s *GeoService) Start(ctx context.Context) error {
	s.updateMux.Lock()
	ranges, source, err := s.initialRanges(ctx)
	if err == nil {
		s.publish(ranges, source)
	}
	s.updateMux.Unlock()
	if err != nil {
		return fmt.Errorf("initial range load failed: %w", err)
	}

	if s.config.RefreshInterval <= 0 {
		return nil
	}

	// Schedule periodic updates
	ticker := time.NewTicker(s.config.RefreshInterval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				if err := s.Reload(ctx); err != nil {
					s.logger.Error("scheduled range reload failed", zap.Error(err))
				}
			}
		}
	}()

	return nil
}

// Reload fetches a fresh range list, builds a new table and publishes it.
// The previous table keeps serving until the new one is ready.
func (s *GeoService) Reload(ctx context.Context) error {
	s.updateMux.Lock()
	defer s.updateMux.Unlock()

	ranges, source, err := s.freshRanges(ctx)
	if err != nil {
		return err
	}

	s.persist(ctx, ranges)
	s.publish(ranges, source)

	if s.cache != nil {
		if err := s.cache.ClearCountries(ctx); err != nil {
			s.logger.Warn("failed to clear lookup cache after reload", zap.Error(err))
		}
	}
	return nil
}

func (s *GeoService) LookupIP(ctx context.Context, ipStr string) (*model.IPResponse, error) {
	addr, err := s.parse(ipStr)
	if err != nil {
		metrics.Lookups.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, fmt.Errorf("invalid IP address: %w", err)
	}

	if s.cache != nil {
		if countryCode, err := s.cache.GetCountry(ctx, ipStr); err == nil && countryCode != "" {
			metrics.Lookups.WithLabelValues(metrics.ResultCached).Inc()
			return &model.IPResponse{
				IP:          ipStr,
				CountryCode: countryCode,
			}, nil
		}
	}

	countryCode, ok := s.table.Load().Lookup(addr)
	if !ok {
		// Don't cache unknown results
		metrics.Lookups.WithLabelValues(metrics.ResultMiss).Inc()
		return &model.IPResponse{
			IP:          ipStr,
			CountryCode: model.UnknownCountry,
		}, nil
	}
	metrics.Lookups.WithLabelValues(metrics.ResultHit).Inc()

	if s.cache != nil {
		if err := s.cache.SetCountry(ctx, ipStr, countryCode); err != nil {
			s.logger.Warn("failed to cache IP lookup result",
				zap.String("ip", ipStr),
				zap.Error(err))
		}
	}

	return &model.IPResponse{
		IP:          ipStr,
		CountryCode: countryCode,
	}, nil
}

// Stats describes the currently published table.
func (s *GeoService) Stats() rangetable.Stats {
	return s.table.Load().Stats()
}

// Ready reports whether a table has been published.
func (s *GeoService) Ready() bool {
	return s.table.Load() != nil
}

func (s *GeoService) parse(ipStr string) (ipaddr.Address, error) {
	if s.config.StrictParse {
		return ipaddr.ParseStrict(ipStr)
	}
	return ipaddr.Parse(ipStr), nil
}

func (s *GeoService) initialRanges(ctx context.Context) ([]rangetable.Range, string, error) {
	if s.config.DataFile != "" {
		ranges, err := s.loadFile()
		return ranges, "file", err
	}

	if s.repo != nil {
		count, err := s.repo.GetRangesCount(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("checking stored ranges: %w", err)
		}
		if count > 0 {
			s.logger.Info("Existing IP ranges found in database, skipping initial fetch",
				zap.Int64("ranges", count))
			stored, err := s.repo.LoadRanges(ctx)
			if err != nil {
				return nil, "", fmt.Errorf("loading stored ranges: %w", err)
			}
			ranges := make([]rangetable.Range, 0, len(stored))
			for _, r := range stored {
				ranges = append(ranges, r.Range())
			}
			return ranges, "postgres", nil
		}
		s.logger.Info("No IP ranges found in database, performing initial fetch")
	}

	ranges, err := s.fetchRIRs(ctx)
	if err != nil {
		return nil, "", err
	}
	s.persist(ctx, ranges)
	return ranges, "rir", nil
}

func (s *GeoService) freshRanges(ctx context.Context) ([]rangetable.Range, string, error) {
	if s.config.DataFile != "" {
		ranges, err := s.loadFile()
		return ranges, "file", err
	}
	ranges, err := s.fetchRIRs(ctx)
	return ranges, "rir", err
}

func (s *GeoService) loadFile() ([]rangetable.Range, error) {
	ranges, stats, err := loader.LoadFile(s.config.DataFile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded range file",
		zap.String("path", s.config.DataFile),
		zap.Int("lines", stats.Lines),
		zap.Int("ranges", stats.Ranges),
		zap.Int("skipped_lines", stats.Skipped),
		zap.Int("parse_errors", stats.ParseErrors))

	if stats.ParseErrors > 0 {
		s.logger.Warn("Range file has malformed lines",
			zap.String("path", s.config.DataFile),
			zap.Int("parse_errors", stats.ParseErrors))
	}
	return ranges, nil
}

func (s *GeoService) fetchRIRs(ctx context.Context) ([]rangetable.Range, error) {
	var allRanges []rangetable.Range
	var errs []error
	var total RIRStats

	s.logger.Info("Starting IP ranges fetch")

	for _, rir := range s.config.RIRs {
		ranges, stats, err := s.rirSvc.FetchIPRanges(ctx, rir.URL)
		if err != nil {
			s.logger.Error("failed to fetch IP ranges",
				zap.String("rir", rir.Name),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", rir.Name, err))
			continue
		}
		allRanges = append(allRanges, ranges...)

		total.IPv4Count += stats.IPv4Count
		total.IPv6Count += stats.IPv6Count
		total.SkippedCount += stats.SkippedCount
		total.ParseErrors += stats.ParseErrors

		s.logger.Info("Fetched IP ranges",
			zap.String("rir", rir.Name),
			zap.Int("ipv4_ranges", stats.IPv4Count),
			zap.Int("ipv6_skipped", stats.IPv6Count),
			zap.Int("skipped_ranges", stats.SkippedCount),
			zap.Int("parse_errors", stats.ParseErrors))
	}

	if len(allRanges) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no IP ranges fetched: no RIR returned IPv4 data")
		}
		return nil, fmt.Errorf("no IP ranges fetched: %w", errors.Join(errs...))
	}

	s.logger.Info("Total statistics",
		zap.Int("ipv4_ranges", total.IPv4Count),
		zap.Int("ipv6_skipped", total.IPv6Count),
		zap.Int("skipped_ranges", total.SkippedCount),
		zap.Int("parse_errors", total.ParseErrors))

	return allRanges, nil
}

// persist stores ranges for the next warm start. Failure is logged only:
// the in-memory table is still good.
func (s *GeoService) persist(ctx context.Context, ranges []rangetable.Range) {
	if s.repo == nil {
		return
	}

	rows := make([]model.IPRange, 0, len(ranges))
	for _, r := range ranges {
		rows = append(rows, model.FromRange(r))
	}

	startTime := time.Now()
	if err := s.repo.SaveRanges(ctx, rows); err != nil {
		s.logger.Error("Failed to save IP ranges",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)))
		return
	}

	s.logger.Info("Successfully saved IP ranges",
		zap.Int("total_ranges", len(rows)),
		zap.Duration("duration", time.Since(startTime)))
}

func (s *GeoService) publish(ranges []rangetable.Range, source string) {
	startTime := time.Now()
	table := rangetable.Build(ranges)
	elapsed := time.Since(startTime)

	s.table.Store(table)

	stats := table.Stats()
	metrics.BuildDuration.Observe(elapsed.Seconds())
	metrics.TableEntries.Set(float64(stats.Entries))
	metrics.TableBlocks.Set(float64(stats.Blocks))

	s.logger.Info("Range table published",
		zap.String("source", source),
		zap.Int("ranges", stats.Ranges),
		zap.Int("skipped_ranges", stats.Skipped),
		zap.Int("blocks", stats.Blocks),
		zap.Int("entries", stats.Entries),
		zap.Int("largest_block", stats.LargestBlock),
		zap.Int("overlapping_blocks", stats.OverlappingBlocks),
		zap.Duration("build_time", elapsed))
}
