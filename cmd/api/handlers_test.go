package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adivardh/studyreel/internal/config"
	"github.com/adivardh/studyreel/internal/database"
	"github.com/adivardh/studyreel/internal/logging"
	"github.com/adivardh/studyreel/internal/middleware"
	"github.com/adivardh/studyreel/internal/pipeline"
	"github.com/adivardh/studyreel/pkg/models"
)

type fakeSubmitter struct {
	result *pipeline.SubmitResult
	err    error
}

func (f *fakeSubmitter) Submit(_ context.Context, _, _, _ string) (*pipeline.SubmitResult, error) {
	return f.result, f.err
}

type fakeLibrary struct {
	userVideos map[string]*models.UserVideo
	videos     map[string]*models.Video
	segments   map[string][]models.TranscriptSegment
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		userVideos: make(map[string]*models.UserVideo),
		videos:     make(map[string]*models.Video),
		segments:   make(map[string][]models.TranscriptSegment),
	}
}

func (f *fakeLibrary) ListUserVideos(_ context.Context, userID string) ([]*models.UserVideo, error) {
	var out []*models.UserVideo
	for _, uv := range f.userVideos {
		if uv.UserID == userID {
			out = append(out, uv)
		}
	}
	return out, nil
}

func (f *fakeLibrary) GetUserVideo(_ context.Context, userID, youtubeID string) (*models.UserVideo, error) {
	uv, ok := f.userVideos[userID+":"+youtubeID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return uv, nil
}

func (f *fakeLibrary) GetVideoByYoutubeID(_ context.Context, youtubeID string) (*models.Video, error) {
	v, ok := f.videos[youtubeID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return v, nil
}

func (f *fakeLibrary) GetTranscriptSegments(_ context.Context, videoID string) ([]models.TranscriptSegment, error) {
	return f.segments[videoID], nil
}

type fakePlans struct {
	decision *models.QuotaDecision
}

func (f *fakePlans) CheckQuota(_ context.Context, _ string) (*models.QuotaDecision, error) {
	return f.decision, nil
}

func testRouter(api *API) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.NewWriterLogger(io.Discard, zerolog.Disabled)
	api.logger = logger
	cfg := &config.Config{}
	cfg.Server.RateLimitRPS = 100
	cfg.Server.RateLimitBurst = 100
	return setupRouter(api, cfg, logger)
}

func doRequest(router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set(middleware.IdentityHeader, userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitVideoHappyPath(t *testing.T) {
	summary := "a summary"
	submitter := &fakeSubmitter{result: &pipeline.SubmitResult{
		Video:     &models.Video{YoutubeID: "dQw4w9WgXcQ", Title: "A Lecture"},
		UserVideo: &models.UserVideo{ID: "uv-1", Summary: &summary},
		Segments:  []models.TranscriptSegment{{Text: "hello"}},
	}}
	router := testRouter(&API{pipeline: submitter, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodPost, "/api/v1/videos", "user-1", gin.H{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var result pipeline.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "A Lecture", result.Video.Title)
	require.NotNil(t, result.UserVideo.Summary)
	assert.Equal(t, "a summary", *result.UserVideo.Summary)
}

func TestSubmitVideoInvalidReference(t *testing.T) {
	submitter := &fakeSubmitter{err: pipeline.ErrInvalidVideoRef}
	router := testRouter(&API{pipeline: submitter, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodPost, "/api/v1/videos", "user-1", gin.H{"url": "https://vimeo.com/123"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitVideoMissingURL(t *testing.T) {
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodPost, "/api/v1/videos", "user-1", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitVideoQuotaRejection(t *testing.T) {
	used, limit := 2, 2
	submitter := &fakeSubmitter{err: &pipeline.QuotaError{Decision: &models.QuotaDecision{
		CanAdd:          false,
		CurrentPlan:     models.PlanFree,
		Reason:          models.QuotaReasonDailyLimit,
		VideosUsedToday: &used,
		DailyLimit:      &limit,
	}}}
	router := testRouter(&API{pipeline: submitter, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodPost, "/api/v1/videos", "user-1", gin.H{"url": "dQw4w9WgXcQ"})

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Quota models.QuotaDecision `json:"quota"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.QuotaReasonDailyLimit, body.Quota.Reason)
	require.NotNil(t, body.Quota.VideosUsedToday)
	assert.Equal(t, 2, *body.Quota.VideosUsedToday)
}

func TestSubmitVideoRequiresIdentity(t *testing.T) {
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodPost, "/api/v1/videos", "", gin.H{"url": "dQw4w9WgXcQ"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetVideoNotFound(t *testing.T) {
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: newFakeLibrary(), plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos/dQw4w9WgXcQ", "user-1", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVideoReturnsMetadataAndContent(t *testing.T) {
	lib := newFakeLibrary()
	summary := "stored summary"
	lib.userVideos["user-1:dQw4w9WgXcQ"] = &models.UserVideo{
		ID: "uv-1", UserID: "user-1", YoutubeID: "dQw4w9WgXcQ",
		Summary:             &summary,
		QuickStartQuestions: models.QuestionList{"q1"},
	}
	lib.videos["dQw4w9WgXcQ"] = &models.Video{ID: "vid-1", YoutubeID: "dQw4w9WgXcQ", Title: "A Lecture"}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: lib, plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos/dQw4w9WgXcQ", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A Lecture")
	assert.Contains(t, w.Body.String(), "stored summary")
}

func TestGetVideoIsolatedPerUser(t *testing.T) {
	lib := newFakeLibrary()
	lib.userVideos["user-1:dQw4w9WgXcQ"] = &models.UserVideo{ID: "uv-1", UserID: "user-1", YoutubeID: "dQw4w9WgXcQ"}
	lib.videos["dQw4w9WgXcQ"] = &models.Video{ID: "vid-1", YoutubeID: "dQw4w9WgXcQ"}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: lib, plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos/dQw4w9WgXcQ", "user-2", nil)

	assert.Equal(t, http.StatusNotFound, w.Code, "another user's library entry is invisible")
}

func TestGetTranscript(t *testing.T) {
	lib := newFakeLibrary()
	lib.userVideos["user-1:dQw4w9WgXcQ"] = &models.UserVideo{ID: "uv-1", UserID: "user-1", YoutubeID: "dQw4w9WgXcQ"}
	lib.videos["dQw4w9WgXcQ"] = &models.Video{ID: "vid-1", YoutubeID: "dQw4w9WgXcQ"}
	lib.segments["vid-1"] = []models.TranscriptSegment{
		{VideoID: "vid-1", Text: "hello", Position: 0},
		{VideoID: "vid-1", Text: "world", Position: 1},
	}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: lib, plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos/dQw4w9WgXcQ/transcript", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Segments    []models.TranscriptSegment `json:"segments"`
		Unavailable bool                       `json:"unavailable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Segments, 2)
	assert.False(t, body.Unavailable)
}

func TestGetTranscriptEmptyMarkedUnavailable(t *testing.T) {
	lib := newFakeLibrary()
	lib.userVideos["user-1:dQw4w9WgXcQ"] = &models.UserVideo{ID: "uv-1", UserID: "user-1", YoutubeID: "dQw4w9WgXcQ"}
	lib.videos["dQw4w9WgXcQ"] = &models.Video{ID: "vid-1", YoutubeID: "dQw4w9WgXcQ"}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: lib, plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos/dQw4w9WgXcQ/transcript", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unavailable":true`)
}

func TestGetPlan(t *testing.T) {
	used, limit := 1, 2
	plans := &fakePlans{decision: &models.QuotaDecision{
		CanAdd:          true,
		CurrentPlan:     models.PlanFree,
		VideosUsedToday: &used,
		DailyLimit:      &limit,
	}}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: newFakeLibrary(), plans: plans})

	w := doRequest(router, http.MethodGet, "/api/v1/plan", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var decision models.QuotaDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, models.PlanFree, decision.CurrentPlan)
	require.NotNil(t, decision.VideosUsedToday)
	assert.Equal(t, 1, *decision.VideosUsedToday)
}

func TestListVideos(t *testing.T) {
	lib := newFakeLibrary()
	lib.userVideos["user-1:aaaaaaaaaaa"] = &models.UserVideo{ID: "uv-1", UserID: "user-1", YoutubeID: "aaaaaaaaaaa"}
	lib.userVideos["user-2:bbbbbbbbbbb"] = &models.UserVideo{ID: "uv-2", UserID: "user-2", YoutubeID: "bbbbbbbbbbb"}
	router := testRouter(&API{pipeline: &fakeSubmitter{}, repo: lib, plans: &fakePlans{}})

	w := doRequest(router, http.MethodGet, "/api/v1/videos", "user-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aaaaaaaaaaa")
	assert.NotContains(t, w.Body.String(), "bbbbbbbbbbb")
}
