package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/vnkhanh/duocast-backend/models"
	"github.com/vnkhanh/duocast-backend/repositories"
)

// SegmentSynthesizer tách interface để test orchestrator không cần TTS thật
type SegmentSynthesizer interface {
	Synthesize(ctx context.Context, dialogue []models.DialogueSegment, voiceMap map[string]string, defaultVoice string) [][]byte
}

// Assembler là contract của audio assembler với orchestrator
type Assembler interface {
	Stitch(buffers [][]byte, jobID string) ([]byte, error)
	Duration(buffer []byte) int
	Encode(buffer []byte) string
}

// StatusNotifier đẩy thay đổi trạng thái ra ngoài (ws). Có thể nil.
type StatusNotifier interface {
	PodcastStatusChanged(id uuid.UUID, status models.PodcastStatus, errMsg string)
}

// ArtifactArchiver lưu bản MP3 lên storage ngoài, trả về public URL. Có thể nil.
type ArtifactArchiver interface {
	Archive(filename string, data []byte) (string, error)
}

// GeneratorDeps gom toàn bộ collaborator của pipeline, wire một chỗ duy nhất
type GeneratorDeps struct {
	Repo      repositories.PodcastRepository
	Engine    *Engine
	TTS       SpeechSynthesizer
	Synth     SegmentSynthesizer
	Assembler Assembler
	Scraper   ContentFetcher
	Voices    *VoiceCatalog
	Notifier  StatusNotifier
	Archiver  ArtifactArchiver
}

// GeneratorService chạy pipeline tạo podcast dưới nền và là writer duy nhất
// chuyển status ra khỏi processing.
type GeneratorService struct {
	deps GeneratorDeps
}

func NewGeneratorService(deps GeneratorDeps) *GeneratorService {
	return &GeneratorService{deps: deps}
}

type GenerateJob struct {
	PodcastID uuid.UUID
	Source    models.SourceRef
	HostID    string
	CohostID  string
}

type RegenerateJob struct {
	PodcastID uuid.UUID
	Dialogue  []models.DialogueSegment
	HostID    string
	CohostID  string
	Title     string // rỗng = giữ title cũ
}

// Handle là kết quả của một lần spawn pipeline; Done nhận đúng một giá trị.
// Lỗi đã được ghi vào DB (status = failed) trước khi xuất hiện ở đây.
type Handle struct {
	Done <-chan error
}

// Generate chạy pipeline đầy đủ dưới nền: fetch -> kịch bản -> audio -> finalize.
// Mọi lỗi của goroutine đều đi qua markFailed, không có đường xử lý lỗi thứ hai.
func (s *GeneratorService) Generate(job GenerateJob) *Handle {
	return s.spawn(job.PodcastID, func(ctx context.Context) error {
		return s.generate(ctx, job)
	})
}

// Regenerate chạy lại từ bước tổng hợp giọng với dialogue đã chỉnh sửa
func (s *GeneratorService) Regenerate(job RegenerateJob) *Handle {
	return s.spawn(job.PodcastID, func(ctx context.Context) error {
		return s.regenerate(ctx, job)
	})
}

func (s *GeneratorService) spawn(id uuid.UUID, run func(ctx context.Context) error) *Handle {
	done := make(chan error, 1)
	go func() {
		err := run(context.Background())
		if err != nil {
			s.markFailed(id, err)
		}
		done <- err
	}()
	return &Handle{Done: done}
}

// scriptResult là output đã validate của prompt tạo kịch bản
type scriptResult struct {
	Title    string                   `json:"title"`
	Summary  string                   `json:"summary"`
	Tags     []string                 `json:"tags"`
	Dialogue []models.DialogueSegment `json:"dialogue"`
}

func (s *GeneratorService) generate(ctx context.Context, job GenerateJob) error {
	provider := s.deps.TTS.ActiveProvider()

	// 1. Resolve voice cho cả hai personality trước khi làm gì khác
	host, hostVoice, err := s.deps.Voices.Resolve(provider, job.HostID)
	if err != nil {
		return fmt.Errorf("voice người dẫn chính không hợp lệ: %w", err)
	}
	cohost, cohostVoice, err := s.deps.Voices.Resolve(provider, job.CohostID)
	if err != nil {
		return fmt.Errorf("voice người đối thoại không hợp lệ: %w", err)
	}

	// 2. Lấy nội dung nguồn
	content, err := s.deps.Scraper.Fetch(ctx, job.Source)
	if err != nil {
		return fmt.Errorf("không lấy được nội dung nguồn: %w", err)
	}

	// 3. Sinh kịch bản qua prompt engine
	out, err := s.deps.Engine.Run(ctx, ScriptPromptDefinition, map[string]interface{}{
		"content":            content,
		"host_id":            host.ID,
		"host_name":          host.Name,
		"host_description":   host.Description,
		"cohost_id":          cohost.ID,
		"cohost_name":        cohost.Name,
		"cohost_description": cohost.Description,
	}, nil)
	if err != nil {
		return fmt.Errorf("tạo kịch bản thất bại: %w", err)
	}

	script, err := decodeScript(out)
	if err != nil {
		return err
	}

	// 4. Lưu transcript + tags (ghi đè toàn bộ)
	if err := s.deps.Repo.UpdateTranscript(job.PodcastID, script.Dialogue); err != nil {
		return fmt.Errorf("không lưu được transcript: %w", err)
	}
	if err := s.deps.Repo.ReplaceTags(job.PodcastID, script.Tags); err != nil {
		return fmt.Errorf("không lưu được tags: %w", err)
	}

	// 5-7. Tổng hợp giọng, ghép audio, finalize
	voiceMap := map[string]string{host.ID: hostVoice, cohost.ID: cohostVoice}
	return s.produceAudio(ctx, job.PodcastID, script.Dialogue, voiceMap, hostVoice, script.Title, script.Summary)
}

func (s *GeneratorService) regenerate(ctx context.Context, job RegenerateJob) error {
	provider := s.deps.TTS.ActiveProvider()

	host, hostVoice, err := s.deps.Voices.Resolve(provider, job.HostID)
	if err != nil {
		return fmt.Errorf("voice người dẫn chính không hợp lệ: %w", err)
	}
	cohost, cohostVoice, err := s.deps.Voices.Resolve(provider, job.CohostID)
	if err != nil {
		return fmt.Errorf("voice người đối thoại không hợp lệ: %w", err)
	}

	// Dialogue sửa tay ghi đè transcript cũ trước khi tổng hợp lại
	if err := s.deps.Repo.UpdateTranscript(job.PodcastID, job.Dialogue); err != nil {
		return fmt.Errorf("không lưu được transcript: %w", err)
	}

	voiceMap := map[string]string{host.ID: hostVoice, cohost.ID: cohostVoice}
	return s.produceAudio(ctx, job.PodcastID, job.Dialogue, voiceMap, hostVoice, job.Title, "")
}

// produceAudio là phần chung của generate/regenerate: bước 5-7 của pipeline
func (s *GeneratorService) produceAudio(ctx context.Context, id uuid.UUID, dialogue []models.DialogueSegment, voiceMap map[string]string, defaultVoice, title, summary string) error {
	buffers := s.deps.Synth.Synthesize(ctx, dialogue, voiceMap, defaultVoice)

	valid := 0
	for _, buf := range buffers {
		if len(buf) > 0 {
			valid++
		}
	}
	if valid == 0 {
		return fmt.Errorf("không tổng hợp được đoạn audio nào trong %d lượt thoại", len(dialogue))
	}
	if valid < len(dialogue) {
		log.Printf("Podcast %s: %d/%d lượt thoại tổng hợp được, vẫn tiếp tục ghép", id, valid, len(dialogue))
	}

	merged, err := s.deps.Assembler.Stitch(buffers, id.String())
	if err != nil {
		return fmt.Errorf("ghép audio thất bại: %w", err)
	}

	duration := s.deps.Assembler.Duration(merged)
	artifact := s.deps.Assembler.Encode(merged)

	now := time.Now()
	fields := map[string]interface{}{
		"summary":       summary,
		"audio_data":    artifact,
		"duration_sec":  duration,
		"status":        string(models.StatusSuccess),
		"error_message": nil,
		"generated_at":  &now,
	}
	if title != "" {
		fields["title"] = title
	}
	if summary == "" {
		delete(fields, "summary")
	}

	podcast, err := s.deps.Repo.Update(id, fields)
	if err != nil {
		return fmt.Errorf("không lưu được kết quả podcast: %w", err)
	}

	// Upload bản lưu trữ là best-effort, lỗi không làm hỏng pipeline
	if s.deps.Archiver != nil {
		name := fmt.Sprintf("%s-%s.mp3", slug.Make(podcast.Title), id.String()[:8])
		if storageURL, err := s.deps.Archiver.Archive(name, merged); err != nil {
			log.Printf("Upload bản lưu trữ podcast %s thất bại: %v", id, err)
		} else if _, err := s.deps.Repo.Update(id, map[string]interface{}{"storage_url": storageURL}); err != nil {
			log.Printf("Không lưu được storage URL cho podcast %s: %v", id, err)
		}
	}

	if s.deps.Notifier != nil {
		s.deps.Notifier.PodcastStatusChanged(id, models.StatusSuccess, "")
	}
	return nil
}

// markFailed ghi trạng thái failed kèm message. Nếu chính ghi này cũng lỗi
// thì chỉ còn cách log mức cao nhất, không có cơ chế sửa trạng thái nào khác.
func (s *GeneratorService) markFailed(id uuid.UUID, cause error) {
	msg := cause.Error()
	if err := s.deps.Repo.UpdateStatus(id, models.StatusFailed, &msg); err != nil {
		log.Printf("[NGHIÊM TRỌNG] không ghi được trạng thái failed cho podcast %s: %v (lỗi gốc: %v)", id, err, cause)
		return
	}
	log.Printf("Podcast %s thất bại: %v", id, cause)
	if s.deps.Notifier != nil {
		s.deps.Notifier.PodcastStatusChanged(id, models.StatusFailed, msg)
	}
}

// decodeScript chuyển output đã validate của engine về struct có kiểu
func decodeScript(out map[string]interface{}) (*scriptResult, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("không đọc được kết quả kịch bản: %w", err)
	}
	var script scriptResult
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("không đọc được kết quả kịch bản: %w", err)
	}
	return &script, nil
}
