package database

import (
	"context"
	"fmt"
)

// Schema statements are idempotent and run at startup. Order matters because
// of the foreign keys.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY,
		youtube_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		channel_title TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS transcript_segments (
		id UUID PRIMARY KEY,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		start_seconds DOUBLE PRECISION NOT NULL,
		end_seconds DOUBLE PRECISION NOT NULL,
		text TEXT NOT NULL,
		is_chapter_start BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transcript_segments_video
		ON transcript_segments(video_id, start_seconds)`,
	`CREATE TABLE IF NOT EXISTS user_videos (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		youtube_id TEXT NOT NULL REFERENCES videos(youtube_id),
		summary TEXT,
		quick_start_questions JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, youtube_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_videos_user_created
		ON user_videos(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		confirmed_at TIMESTAMPTZ,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_confirmed
		ON transactions(user_id, confirmed_at)`,
	`CREATE TABLE IF NOT EXISTS token_usage (
		id UUID PRIMARY KEY,
		user_video_id UUID REFERENCES user_videos(id) ON DELETE SET NULL,
		user_id TEXT,
		model TEXT NOT NULL,
		provider TEXT NOT NULL,
		operation TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		total_cost NUMERIC(12,6) NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate applies the schema statements in order.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
