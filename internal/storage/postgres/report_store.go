// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagelens/pagelens/internal/analysis"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool opens a pgx pool from the config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// ReportStore persists completed reports in Postgres. The record and step
// outcomes are stored as JSONB alongside the queryable columns.
type ReportStore struct {
	pool querier
}

// NewReportStore constructs a store from an existing pool.
func NewReportStore(pool querier) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ReportStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveReport upserts a report row.
func (s *ReportStore) SaveReport(ctx context.Context, report analysis.Report) error {
	if report.ID == "" {
		return fmt.Errorf("report id is required")
	}
	recordJSON, err := json.Marshal(report.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	stepsJSON, err := json.Marshal(report.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	const query = `
INSERT INTO reports (id, job_id, url, created_at, record, steps)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET job_id = EXCLUDED.job_id,
    url = EXCLUDED.url,
    created_at = EXCLUDED.created_at,
    record = EXCLUDED.record,
    steps = EXCLUDED.steps`

	args := []any{
		report.ID,
		report.JobID,
		report.URL,
		report.CreatedAt,
		recordJSON,
		stepsJSON,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport loads a report row by ID.
func (s *ReportStore) GetReport(ctx context.Context, reportID string) (analysis.Report, error) {
	const query = `
SELECT id, job_id, url, created_at, record, steps
FROM reports
WHERE id = $1`

	var (
		report     analysis.Report
		recordJSON []byte
		stepsJSON  []byte
	)
	row := s.pool.QueryRow(ctx, query, reportID)
	if err := row.Scan(&report.ID, &report.JobID, &report.URL, &report.CreatedAt, &recordJSON, &stepsJSON); err != nil {
		return analysis.Report{}, fmt.Errorf("select report %s: %w", reportID, err)
	}
	if err := json.Unmarshal(recordJSON, &report.Record); err != nil {
		return analysis.Report{}, fmt.Errorf("unmarshal record: %w", err)
	}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &report.Steps); err != nil {
			return analysis.Report{}, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	return report, nil
}
