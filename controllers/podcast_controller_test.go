package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/duocast-backend/models"
	"github.com/vnkhanh/duocast-backend/services"
)

// ===== Fakes =====

type memoryRepo struct {
	mu         sync.Mutex
	podcast    *models.Podcast
	created    []*models.Podcast
	updates    []map[string]interface{}
	transcript []models.DialogueSegment
	statuses   []models.PodcastStatus
}

func (r *memoryRepo) CreateInitial(ownerID uuid.UUID, src models.SourceRef, hostID, cohostID string) (*models.Podcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &models.Podcast{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Status:       string(models.StatusProcessing),
		SourceKind:   string(src.Kind),
		SourceDetail: src.Detail,
		HostID:       hostID,
		CohostID:     cohostID,
	}
	r.created = append(r.created, p)
	return p, nil
}

func (r *memoryRepo) UpdateStatus(id uuid.UUID, status models.PodcastStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memoryRepo) UpdateTranscript(id uuid.UUID, segments []models.DialogueSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = segments
	return nil
}

func (r *memoryRepo) ReplaceTags(id uuid.UUID, names []string) error { return nil }

func (r *memoryRepo) Update(id uuid.UUID, fields map[string]interface{}) (*models.Podcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, fields)
	return &models.Podcast{ID: id}, nil
}

func (r *memoryRepo) FindByID(id uuid.UUID) (*models.Podcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.podcast, nil
}

func (r *memoryRepo) FindByOwner(ownerID uuid.UUID) ([]models.Podcast, error) {
	if r.podcast != nil {
		return []models.Podcast{*r.podcast}, nil
	}
	return nil, nil
}

func (r *memoryRepo) Delete(id uuid.UUID) error { return nil }

func (r *memoryRepo) snapshotUpdates() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]interface{}, len(r.updates))
	copy(out, r.updates)
	return out
}

type stubTTS struct{}

func (stubTTS) Synthesize(ctx context.Context, text string, opts services.SynthesizeOptions) ([]byte, error) {
	return []byte("audio"), nil
}

func (stubTTS) ActiveProvider() string { return services.ProviderGoogle }

type countingSynth struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSynth) Synthesize(ctx context.Context, dialogue []models.DialogueSegment, voiceMap map[string]string, defaultVoice string) [][]byte {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	out := make([][]byte, len(dialogue))
	for i := range out {
		out[i] = []byte("audio")
	}
	return out
}

func (s *countingSynth) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAssembler struct{}

func (stubAssembler) Stitch(buffers [][]byte, jobID string) ([]byte, error) { return []byte("m"), nil }
func (stubAssembler) Duration(buffer []byte) int                            { return 7 }
func (stubAssembler) Encode(buffer []byte) string                           { return "data:audio/mp3;base64,bQ==" }

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, src models.SourceRef) (string, error) {
	return "nội dung", nil
}

type stubLLM struct{}

func (stubLLM) ChatCompletion(ctx context.Context, prompt string, opts services.ModelOptions) (string, error) {
	return `{"title": "Tập mới", "summary": "tóm tắt", "tags": ["ai"],
		"dialogue": [{"speaker": "minh-anh", "line": "xin chào"}, {"speaker": "quoc-bao", "line": "chào bạn"}]}`, nil
}

// ===== Helpers =====

func newTestRouter(repo *memoryRepo, synth *countingSynth, ownerID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)

	tts := stubTTS{}
	svc := services.NewGeneratorService(services.GeneratorDeps{
		Repo:      repo,
		Engine:    services.NewEngine(stubLLM{}),
		TTS:       tts,
		Synth:     synth,
		Assembler: stubAssembler{},
		Scraper:   stubFetcher{},
		Voices:    services.NewVoiceCatalog(),
	})
	pc := NewPodcastController(repo, svc, tts, services.NewVoiceCatalog())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", ownerID.String())
		c.Set("role", "user")
		c.Next()
	})
	r.POST("/podcasts", pc.Create)
	r.PUT("/podcasts/:id", pc.Update)
	r.GET("/podcasts/:id", pc.GetByID)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func existingPodcast(ownerID uuid.UUID) *models.Podcast {
	return &models.Podcast{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		Title:    "Tập cũ",
		Status:   string(models.StatusSuccess),
		HostID:   "minh-anh",
		CohostID: "quoc-bao",
		Transcript: &models.Transcript{
			Segments: models.DialogueSegments{
				{Speaker: "minh-anh", Line: "xin chào"},
				{Speaker: "quoc-bao", Line: "chào bạn"},
			},
		},
	}
}

// ===== Tests =====

func TestCreatePodcastAccepted(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{}
	synth := &countingSynth{}
	r := newTestRouter(repo, synth, owner)

	w := doJSON(r, http.MethodPost, "/podcasts", gin.H{
		"source_kind":   "url",
		"source_detail": "https://example.com/bai-viet",
		"host_id":       "minh-anh",
		"cohost_id":     "quoc-bao",
	})

	// Trả 202 ngay, pipeline chạy dưới nền
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, string(models.StatusProcessing), repo.created[0].Status)

	// Pipeline nền phải hoàn tất với status success
	require.Eventually(t, func() bool {
		for _, u := range repo.snapshotUpdates() {
			if u["status"] == string(models.StatusSuccess) {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, synth.count())
}

func TestCreatePodcastSameHostCohost(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{}
	r := newTestRouter(repo, &countingSynth{}, owner)

	w := doJSON(r, http.MethodPost, "/podcasts", gin.H{
		"source_kind":   "text",
		"source_detail": "nội dung",
		"host_id":       "minh-anh",
		"cohost_id":     "minh-anh",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.created)
}

func TestCreatePodcastUnknownPersonality(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{}
	r := newTestRouter(repo, &countingSynth{}, owner)

	w := doJSON(r, http.MethodPost, "/podcasts", gin.H{
		"source_kind":   "text",
		"source_detail": "nội dung",
		"host_id":       "minh-anh",
		"cohost_id":     "khong-ton-tai",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.created)
}

func TestUpdateTitleOnlySkipsPipeline(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{podcast: existingPodcast(owner)}
	synth := &countingSynth{}
	r := newTestRouter(repo, synth, owner)

	w := doJSON(r, http.MethodPut, "/podcasts/"+repo.podcast.ID.String(), gin.H{
		"title": "Tên mới",
	})

	// Chỉ đổi title: ghi thẳng success, không chạy lại pipeline
	assert.Equal(t, http.StatusOK, w.Code)
	updates := repo.snapshotUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "Tên mới", updates[0]["title"])
	assert.Equal(t, string(models.StatusSuccess), updates[0]["status"])
	assert.Equal(t, 0, synth.count())
}

func TestUpdateDialogueTriggersRegeneration(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{podcast: existingPodcast(owner)}
	synth := &countingSynth{}
	r := newTestRouter(repo, synth, owner)

	w := doJSON(r, http.MethodPut, "/podcasts/"+repo.podcast.ID.String(), gin.H{
		"dialogue": []gin.H{
			{"speaker": "minh-anh", "line": "câu đã sửa"},
			{"speaker": "quoc-bao", "line": "chào bạn"},
		},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)

	// Reset về processing và xoá audio cũ trước khi chạy lại
	first := repo.snapshotUpdates()[0]
	assert.Equal(t, string(models.StatusProcessing), first["status"])
	assert.Equal(t, "", first["audio_data"])
	assert.Equal(t, 0, first["duration_sec"])

	require.Eventually(t, func() bool { return synth.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateVoiceChangeTriggersRegeneration(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{podcast: existingPodcast(owner)}
	synth := &countingSynth{}
	r := newTestRouter(repo, synth, owner)

	w := doJSON(r, http.MethodPut, "/podcasts/"+repo.podcast.ID.String(), gin.H{
		"cohost_id": "thu-ha",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	first := repo.snapshotUpdates()[0]
	assert.Equal(t, "thu-ha", first["cohost_id"])
	require.Eventually(t, func() bool { return synth.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateForbiddenForOtherUser(t *testing.T) {
	owner := uuid.New()
	repo := &memoryRepo{podcast: existingPodcast(owner)}
	// Router chạy với user khác chủ sở hữu
	r := newTestRouter(repo, &countingSynth{}, uuid.New())

	w := doJSON(r, http.MethodPut, "/podcasts/"+repo.podcast.ID.String(), gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
