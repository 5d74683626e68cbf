package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"geoip/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS ip_ranges (
    id           BIGSERIAL PRIMARY KEY,
    start_ip     BIGINT NOT NULL,
    end_ip       BIGINT NOT NULL,
    country_code TEXT   NOT NULL
)`

type PostgresRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresRepository(db *sqlx.DB, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating ip_ranges table: %w", err)
	}
	return nil
}

// SaveRanges replaces the stored range list in one transaction. Rows get
// increasing ids so LoadRanges returns them in the order given here.
func (r *PostgresRepository) SaveRanges(ctx context.Context, ranges []model.IPRange) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE ip_ranges RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncating ip_ranges: %w", err)
	}

	query := `
        INSERT INTO ip_ranges (start_ip, end_ip, country_code)
        VALUES ($1, $2, $3)
    `

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ipRange := range ranges {
		_, err = stmt.ExecContext(ctx,
			ipRange.StartIP,
			ipRange.EndIP,
			ipRange.CountryCode)
		if err != nil {
			r.logger.Error("failed to insert IP range",
				zap.Int64("start_ip", ipRange.StartIP),
				zap.Int64("end_ip", ipRange.EndIP),
				zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) LoadRanges(ctx context.Context) ([]model.IPRange, error) {
	var ranges []model.IPRange
	err := r.db.SelectContext(ctx, &ranges,
		"SELECT id, start_ip, end_ip, country_code FROM ip_ranges ORDER BY id")
	if err != nil {
		r.logger.Error("failed to load IP ranges", zap.Error(err))
		return nil, err
	}
	return ranges, nil
}

func (r *PostgresRepository) GetRangesCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM ip_ranges")
	return count, err
}
