package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		source_type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 5,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_scanned TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS scanned_content (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT REFERENCES sources(id),
		url TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL DEFAULT '',
		scanned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		selected BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS generated_posts (
		id BIGSERIAL PRIMARY KEY,
		content_id BIGINT REFERENCES scanned_content(id),
		source_summary TEXT NOT NULL DEFAULT '',
		commentary TEXT NOT NULL DEFAULT '',
		full_post TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved_at TIMESTAMPTZ,
		posted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ranked_candidates (
		id BIGSERIAL PRIMARY KEY,
		run_date TEXT NOT NULL,
		content_id BIGINT NOT NULL REFERENCES scanned_content(id),
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		recency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		substance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		authority_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		engagement_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'candidate',
		generated_post_id BIGINT,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rejected_articles (
		id BIGSERIAL PRIMARY KEY,
		run_date TEXT NOT NULL,
		content_id BIGINT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		recency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		substance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		authority_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		engagement_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS candidate_rejections (
		content_id BIGINT PRIMARY KEY,
		rejected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS source_failures (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT NOT NULL,
		source_name TEXT NOT NULL DEFAULT '',
		failure_type TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		consecutive_zero INTEGER NOT NULL DEFAULT 0,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_scanned_at ON scanned_content(scanned_at)`,
	`CREATE INDEX IF NOT EXISTS idx_content_url ON scanned_content(url)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON generated_posts(status)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_content ON generated_posts(content_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sources_type ON sources(source_type)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_status ON ranked_candidates(status)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_source ON source_failures(source_id, recorded_at)`,
}

// InitSchema creates the tables and indexes when they do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
