package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adivardh/studyreel/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Querier is the subset of pgx operations repositories need, satisfied by
// both *pgxpool.Pool and pgx.Tx so writes can run inside a caller's
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Videos

// UpsertVideo inserts video metadata or fully replaces the existing row for
// the same youtube_id. The last writer's values win; there is no partial
// merge, which makes concurrent upserts safe.
func (r *Repository) UpsertVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}

	query := `
		INSERT INTO videos (id, youtube_id, title, description, channel_title, published_at, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (youtube_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			channel_title = EXCLUDED.channel_title,
			published_at = EXCLUDED.published_at,
			thumbnail_url = EXCLUDED.thumbnail_url,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ID, video.YoutubeID, video.Title, video.Description,
		video.ChannelTitle, video.PublishedAt, video.ThumbnailURL,
	).Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	return nil
}

// InsertVideoIfAbsent inserts video metadata only when no row exists for the
// youtube_id. Used for degraded placeholder rows so they never clobber data a
// concurrent successful fetch has written.
func (r *Repository) InsertVideoIfAbsent(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}

	query := `
		INSERT INTO videos (id, youtube_id, title, description, channel_title, published_at, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (youtube_id) DO NOTHING
	`

	_, err := r.db.Pool.Exec(ctx, query,
		video.ID, video.YoutubeID, video.Title, video.Description,
		video.ChannelTitle, video.PublishedAt, video.ThumbnailURL,
	)

	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}

	return nil
}

// GetVideoByYoutubeID retrieves a video by its external id
func (r *Repository) GetVideoByYoutubeID(ctx context.Context, youtubeID string) (*models.Video, error) {
	var video models.Video

	query := `
		SELECT id, youtube_id, title, description, channel_title, published_at,
		       thumbnail_url, created_at, updated_at
		FROM videos
		WHERE youtube_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, youtubeID).Scan(
		&video.ID, &video.YoutubeID, &video.Title, &video.Description,
		&video.ChannelTitle, &video.PublishedAt, &video.ThumbnailURL,
		&video.CreatedAt, &video.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// Transcript segments

// GetTranscriptSegments retrieves the full segment set for a video, ordered
// by ascending start time.
func (r *Repository) GetTranscriptSegments(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	query := `
		SELECT id, video_id, start_seconds, end_seconds, text, is_chapter_start, position
		FROM transcript_segments
		WHERE video_id = $1
		ORDER BY start_seconds ASC, position ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript segments: %w", err)
	}
	defer rows.Close()

	var segments []models.TranscriptSegment
	for rows.Next() {
		var seg models.TranscriptSegment
		err := rows.Scan(
			&seg.ID, &seg.VideoID, &seg.StartSeconds, &seg.EndSeconds,
			&seg.Text, &seg.IsChapterStart, &seg.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript segment: %w", err)
		}
		segments = append(segments, seg)
	}

	return segments, nil
}

// ReplaceTranscriptSegments replaces the entire segment set for a video in
// one transaction so no reader ever observes a partially written set.
func (r *Repository) ReplaceTranscriptSegments(ctx context.Context, videoID string, segments []models.TranscriptSegment) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to delete transcript segments: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO transcript_segments (id, video_id, start_seconds, end_seconds, text, is_chapter_start, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range segments {
		seg := &segments[i]
		if seg.ID == "" {
			seg.ID = uuid.New().String()
		}
		seg.VideoID = videoID
		batch.Queue(query, seg.ID, seg.VideoID, seg.StartSeconds, seg.EndSeconds,
			seg.Text, seg.IsChapterStart, seg.Position)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert transcript segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transcript replacement: %w", err)
	}

	return nil
}

// User videos

const userVideoColumns = `id, user_id, youtube_id, summary, quick_start_questions, created_at, updated_at`

func scanUserVideo(row pgx.Row) (*models.UserVideo, error) {
	var uv models.UserVideo
	err := row.Scan(
		&uv.ID, &uv.UserID, &uv.YoutubeID, &uv.Summary,
		&uv.QuickStartQuestions, &uv.CreatedAt, &uv.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user video: %w", err)
	}
	return &uv, nil
}

// GetUserVideo retrieves the record for a (user, video) pair
func (r *Repository) GetUserVideo(ctx context.Context, userID, youtubeID string) (*models.UserVideo, error) {
	query := `SELECT ` + userVideoColumns + ` FROM user_videos WHERE user_id = $1 AND youtube_id = $2`
	return scanUserVideo(r.db.Pool.QueryRow(ctx, query, userID, youtubeID))
}

// GetOrCreateUserVideo returns the record for a (user, video) pair, creating
// it when absent. The unique constraint plus ON CONFLICT DO NOTHING makes
// creation safe under concurrent requests for the same pair.
func (r *Repository) GetOrCreateUserVideo(ctx context.Context, userID, youtubeID string) (*models.UserVideo, error) {
	insert := `
		INSERT INTO user_videos (id, user_id, youtube_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, youtube_id) DO NOTHING
	`
	if _, err := r.db.Pool.Exec(ctx, insert, uuid.New().String(), userID, youtubeID); err != nil {
		return nil, fmt.Errorf("failed to create user video: %w", err)
	}

	return r.GetUserVideo(ctx, userID, youtubeID)
}

// ListUserVideos retrieves all records for a user, newest first
func (r *Repository) ListUserVideos(ctx context.Context, userID string) ([]*models.UserVideo, error) {
	query := `SELECT ` + userVideoColumns + ` FROM user_videos WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user videos: %w", err)
	}
	defer rows.Close()

	var userVideos []*models.UserVideo
	for rows.Next() {
		uv, err := scanUserVideo(rows)
		if err != nil {
			return nil, err
		}
		userVideos = append(userVideos, uv)
	}

	return userVideos, nil
}

// CountUserVideosCreatedBetween counts a user's records created within
// [from, to). The daily quota is recounted from rows instead of keeping a
// mutable counter.
func (r *Repository) CountUserVideosCreatedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_videos
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user videos: %w", err)
	}

	return count, nil
}

// WithUserVideoLock runs fn inside a transaction holding a per-(user, video)
// advisory lock, with a fresh read of the record. Two concurrent requests for
// the same pair serialize here, so fn can check-then-generate without racing.
func (r *Repository) WithUserVideoLock(ctx context.Context, userID, youtubeID string, fn func(ctx context.Context, tx Querier, uv *models.UserVideo) error) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID+":"+youtubeID); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	query := `SELECT ` + userVideoColumns + ` FROM user_videos WHERE user_id = $1 AND youtube_id = $2`
	uv, err := scanUserVideo(tx.QueryRow(ctx, query, userID, youtubeID))
	if err != nil {
		return err
	}

	if err := fn(ctx, tx, uv); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user video update: %w", err)
	}

	return nil
}

// SetUserVideoSummary persists a generated summary
func (r *Repository) SetUserVideoSummary(ctx context.Context, q Querier, id, summary string) error {
	query := `UPDATE user_videos SET summary = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := q.Exec(ctx, query, id, summary); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// SetUserVideoQuestions persists generated quick-start questions
func (r *Repository) SetUserVideoQuestions(ctx context.Context, q Querier, id string, questions models.QuestionList) error {
	query := `UPDATE user_videos SET quick_start_questions = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := q.Exec(ctx, query, id, questions); err != nil {
		return fmt.Errorf("failed to set questions: %w", err)
	}
	return nil
}
