package generate

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/pkg/models"
)

// fakeGenRepo emulates the per-pair advisory lock with a mutex so concurrent
// Ensure calls serialize the way the database transaction does.
type fakeGenRepo struct {
	mu     sync.Mutex
	videos map[string]*models.UserVideo
}

func newFakeGenRepo() *fakeGenRepo {
	return &fakeGenRepo{videos: make(map[string]*models.UserVideo)}
}

func pairKey(userID, youtubeID string) string {
	return userID + ":" + youtubeID
}

func (f *fakeGenRepo) WithUserVideoLock(ctx context.Context, userID, youtubeID string, fn func(ctx context.Context, tx database.Querier, uv *models.UserVideo) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := pairKey(userID, youtubeID)
	uv, ok := f.videos[key]
	if !ok {
		uv = &models.UserVideo{ID: "uv-" + key, UserID: userID, YoutubeID: youtubeID}
		f.videos[key] = uv
	}
	copied := *uv
	return fn(ctx, nil, &copied)
}

func (f *fakeGenRepo) SetUserVideoSummary(_ context.Context, _ database.Querier, id, summary string) error {
	for _, uv := range f.videos {
		if uv.ID == id {
			uv.Summary = &summary
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeGenRepo) SetUserVideoQuestions(_ context.Context, _ database.Querier, id string, questions models.QuestionList) error {
	for _, uv := range f.videos {
		if uv.ID == id {
			uv.QuickStartQuestions = questions
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeModel struct {
	mu            sync.Mutex
	summaryCalls  int
	questionCalls int
	summary       string
	questions     []string
	err           error
}

func (f *fakeModel) Name() string { return "fake-model" }

func (f *fakeModel) GenerateSummary(_ context.Context, _, _ string) (string, models.UsageStats, error) {
	f.mu.Lock()
	f.summaryCalls++
	f.mu.Unlock()
	if f.err != nil {
		return "", models.UsageStats{}, f.err
	}
	return f.summary, models.UsageStats{InputTokens: 100, OutputTokens: 50}, nil
}

func (f *fakeModel) GenerateQuestions(_ context.Context, _, _ string) ([]string, models.UsageStats, error) {
	f.mu.Lock()
	f.questionCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, models.UsageStats{}, f.err
	}
	return f.questions, models.UsageStats{InputTokens: 100, OutputTokens: 30}, nil
}

type recordedUsage struct {
	userVideoID string
	userID      string
	model       string
	operation   string
	stats       models.UsageStats
}

type fakeTelemetry struct {
	mu     sync.Mutex
	events []recordedUsage
}

func (f *fakeTelemetry) Record(_ context.Context, userVideoID, userID, model, operation string, stats models.UsageStats, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedUsage{
		userVideoID: userVideoID,
		userID:      userID,
		model:       model,
		operation:   operation,
		stats:       stats,
	})
}

func testGenService(repo Repository, model Model, telemetry Telemetry) *Service {
	logger := logging.NewWriterLogger(io.Discard, zerolog.Disabled)
	return NewService(repo, model, telemetry, logger)
}

func TestEnsureSummaryGeneratesOnce(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{summary: "A concise summary."}
	telemetry := &fakeTelemetry{}
	svc := testGenService(repo, model, telemetry)

	first, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "transcript text")
	require.NoError(t, err)
	assert.Equal(t, "A concise summary.", first)

	second, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "transcript text")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, model.summaryCalls, "second call must be served from storage")
	require.Len(t, telemetry.events, 1)
	assert.Equal(t, models.OperationSummary, telemetry.events[0].operation)
	assert.Equal(t, "fake-model", telemetry.events[0].model)
	assert.Equal(t, "user-1", telemetry.events[0].userID)
	assert.Equal(t, 150, telemetry.events[0].stats.Total())
}

func TestEnsureSummaryConcurrentCallsGenerateOnce(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{summary: "shared"}
	svc := testGenService(repo, model, &fakeTelemetry{})

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, model.summaryCalls)
	for _, s := range results {
		assert.Equal(t, "shared", s)
	}
}

func TestEnsureSummaryIndependentPerUser(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{summary: "per-user"}
	svc := testGenService(repo, model, &fakeTelemetry{})

	_, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)
	_, err = svc.EnsureSummary(context.Background(), "user-2", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)

	assert.Equal(t, 2, model.summaryCalls, "each user pairs the video with their own summary")
}

func TestEnsureSummaryFailureLeavesNothingStored(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{err: errors.New("model overloaded")}
	telemetry := &fakeTelemetry{}
	svc := testGenService(repo, model, telemetry)

	_, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.Error(t, err)
	assert.Empty(t, telemetry.events, "failed calls carry no billable usage")

	uv := repo.videos[pairKey("user-1", "dQw4w9WgXcQ")]
	require.NotNil(t, uv)
	assert.False(t, uv.HasSummary())

	// Recovery: next call retries the generation.
	model.err = nil
	model.summary = "recovered"
	got, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
}

func TestEnsureSummaryRequiresTranscript(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{summary: "unused"}
	svc := testGenService(repo, model, &fakeTelemetry{})

	_, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "")
	require.Error(t, err)
	assert.Equal(t, 0, model.summaryCalls)
}

func TestEnsureQuestionsGeneratesOnce(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{questions: []string{"What is X?", "Why does Y matter?"}}
	telemetry := &fakeTelemetry{}
	svc := testGenService(repo, model, telemetry)

	first, err := svc.EnsureQuestions(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := svc.EnsureQuestions(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.questionCalls)

	require.Len(t, telemetry.events, 1)
	assert.Equal(t, models.OperationQuestions, telemetry.events[0].operation)
}

func TestEnsureSummaryAndQuestionsAreIndependent(t *testing.T) {
	repo := newFakeGenRepo()
	model := &fakeModel{summary: "s", questions: []string{"q"}}
	svc := testGenService(repo, model, &fakeTelemetry{})

	_, err := svc.EnsureSummary(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)
	_, err = svc.EnsureQuestions(context.Background(), "user-1", "dQw4w9WgXcQ", "en", "text")
	require.NoError(t, err)

	assert.Equal(t, 1, model.summaryCalls)
	assert.Equal(t, 1, model.questionCalls)

	uv := repo.videos[pairKey("user-1", "dQw4w9WgXcQ")]
	assert.True(t, uv.HasSummary())
	assert.True(t, uv.HasQuestions())
}
