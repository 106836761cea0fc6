package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnkhanh/duocast-backend/models"
	"github.com/vnkhanh/duocast-backend/repositories"
	"github.com/vnkhanh/duocast-backend/services"
	"github.com/vnkhanh/duocast-backend/utils"
	"github.com/vnkhanh/duocast-backend/ws"
)

// PodcastController nhận request, validate, ghi bản ghi ban đầu rồi giao
// pipeline cho GeneratorService chạy dưới nền.
type PodcastController struct {
	Repo      repositories.PodcastRepository
	Generator *services.GeneratorService
	TTS       services.SpeechSynthesizer
	Voices    *services.VoiceCatalog
}

func NewPodcastController(repo repositories.PodcastRepository, gen *services.GeneratorService, tts services.SpeechSynthesizer, voices *services.VoiceCatalog) *PodcastController {
	return &PodcastController{Repo: repo, Generator: gen, TTS: tts, Voices: voices}
}

type CreatePodcastInput struct {
	SourceKind   string `json:"source_kind" binding:"required,oneof=url text pdf_url"`
	SourceDetail string `json:"source_detail" binding:"required"`
	HostID       string `json:"host_id" binding:"required"`
	CohostID     string `json:"cohost_id" binding:"required"`
}

// Create tạo podcast mới: trả 202 ngay, audio được tạo dưới nền
func (pc *PodcastController) Create(c *gin.Context) {
	var input CreatePodcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.HostID == input.CohostID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Hai personality dẫn chương trình phải khác nhau"})
		return
	}

	// Kiểm tra cả hai personality có voice cho provider đang chạy trước khi nhận job
	provider := pc.TTS.ActiveProvider()
	if _, _, err := pc.Voices.Resolve(provider, input.HostID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, _, err := pc.Voices.Resolve(provider, input.CohostID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	src := models.SourceRef{Kind: models.SourceKind(input.SourceKind), Detail: input.SourceDetail}
	podcast, err := pc.Repo.CreateInitial(ownerID, src, input.HostID, input.CohostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không tạo được podcast"})
		return
	}

	ws.BroadcastPodcastListChanged()

	// Chạy pipeline dưới nền, lỗi sẽ được ghi vào status = failed
	pc.Generator.Generate(services.GenerateJob{
		PodcastID: podcast.ID,
		Source:    src,
		HostID:    input.HostID,
		CohostID:  input.CohostID,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Đang tạo podcast, theo dõi trạng thái qua WebSocket",
		"podcast": podcast,
	})
}

// List trả về toàn bộ podcast của người dùng hiện tại
func (pc *PodcastController) List(c *gin.Context) {
	ownerID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Không xác định được người dùng"})
		return
	}

	podcasts, err := pc.Repo.FindByOwner(ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không lấy được danh sách podcast"})
		return
	}
	c.JSON(http.StatusOK, podcasts)
}

// GetByID trả chi tiết podcast (kèm transcript + tags), chỉ chủ sở hữu hoặc admin
func (pc *PodcastController) GetByID(c *gin.Context) {
	podcast, ok := pc.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, podcast)
}

type UpdatePodcastInput struct {
	Title    *string                  `json:"title"`
	Dialogue []models.DialogueSegment `json:"dialogue"`
	HostID   *string                  `json:"host_id"`
	CohostID *string                  `json:"cohost_id"`
}

// Update sửa podcast. Chỉ đổi title thì ghi thẳng kết quả; đổi dialogue hoặc
// voice thì reset về processing và chạy lại phần tổng hợp audio dưới nền.
func (pc *PodcastController) Update(c *gin.Context) {
	podcast, ok := pc.loadOwned(c)
	if !ok {
		return
	}

	var input UpdatePodcastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostID := podcast.HostID
	if input.HostID != nil {
		hostID = *input.HostID
	}
	cohostID := podcast.CohostID
	if input.CohostID != nil {
		cohostID = *input.CohostID
	}
	if hostID == cohostID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Hai personality dẫn chương trình phải khác nhau"})
		return
	}

	provider := pc.TTS.ActiveProvider()
	if _, _, err := pc.Voices.Resolve(provider, hostID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, _, err := pc.Voices.Resolve(provider, cohostID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var current []models.DialogueSegment
	if podcast.Transcript != nil {
		current = podcast.Transcript.Segments
	}

	dialogueChanged := input.Dialogue != nil && !segmentsEqual(input.Dialogue, current)
	voicesChanged := hostID != podcast.HostID || cohostID != podcast.CohostID

	// Chỉ sửa metadata: không đi qua pipeline, ghi thẳng kết quả
	if !dialogueChanged && !voicesChanged {
		fields := map[string]interface{}{
			"status":        string(models.StatusSuccess),
			"error_message": nil,
		}
		if input.Title != nil {
			fields["title"] = *input.Title
		}
		updated, err := pc.Repo.Update(podcast.ID, fields)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được podcast"})
			return
		}
		ws.SendPodcastStatus(podcast.ID.String(), string(models.StatusSuccess), "")
		c.JSON(http.StatusOK, updated)
		return
	}

	dialogue := current
	if input.Dialogue != nil {
		dialogue = input.Dialogue
	}
	if len(dialogue) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dialogue không được rỗng"})
		return
	}

	// Reset về processing, xoá kết quả audio cũ trước khi chạy lại
	fields := map[string]interface{}{
		"status":        string(models.StatusProcessing),
		"error_message": nil,
		"audio_data":    "",
		"duration_sec":  0,
		"host_id":       hostID,
		"cohost_id":     cohostID,
	}
	title := ""
	if input.Title != nil {
		fields["title"] = *input.Title
		title = *input.Title
	}
	updated, err := pc.Repo.Update(podcast.ID, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không cập nhật được podcast"})
		return
	}

	ws.SendPodcastStatus(podcast.ID.String(), string(models.StatusProcessing), "")

	pc.Generator.Regenerate(services.RegenerateJob{
		PodcastID: podcast.ID,
		Dialogue:  dialogue,
		HostID:    hostID,
		CohostID:  cohostID,
		Title:     title,
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Đang tạo lại audio, theo dõi trạng thái qua WebSocket",
		"podcast": updated,
	})
}

// Delete xoá podcast cùng transcript + tags; file trên storage xoá best-effort
func (pc *PodcastController) Delete(c *gin.Context) {
	podcast, ok := pc.loadOwned(c)
	if !ok {
		return
	}

	if podcast.StorageURL != "" {
		if err := utils.DeleteFileFromSupabase(podcast.StorageURL); err != nil {
			log.Printf("Không xoá được file storage của podcast %s: %v", podcast.ID, err)
		}
	}

	if err := pc.Repo.Delete(podcast.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không xoá được podcast"})
		return
	}

	ws.BroadcastPodcastListChanged()
	c.JSON(http.StatusOK, gin.H{"message": "Đã xoá podcast"})
}

// loadOwned lấy podcast theo :id và kiểm tra quyền (chủ sở hữu hoặc admin)
func (pc *PodcastController) loadOwned(c *gin.Context) (*models.Podcast, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID podcast không hợp lệ"})
		return nil, false
	}

	podcast, err := pc.Repo.FindByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy podcast"})
		return nil, false
	}

	userID := c.GetString("user_id")
	role := c.GetString("role")
	if podcast.OwnerID.String() != userID && role != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Bạn không có quyền truy cập podcast này"})
		return nil, false
	}
	return podcast, true
}

func segmentsEqual(a, b []models.DialogueSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Speaker != b[i].Speaker || a[i].Line != b[i].Line {
			return false
		}
	}
	return true
}
