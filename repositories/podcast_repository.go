package repositories

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/duocast-backend/models"
)

// PodcastRepository là cổng duy nhất đọc/ghi trạng thái podcast.
// Orchestrator và controllers đều đi qua interface này.
type PodcastRepository interface {
	// CreateInitial tạo podcast (status = processing) kèm transcript rỗng trong một transaction
	CreateInitial(ownerID uuid.UUID, src models.SourceRef, hostID, cohostID string) (*models.Podcast, error)
	UpdateStatus(id uuid.UUID, status models.PodcastStatus, errMsg *string) error
	// UpdateTranscript ghi đè toàn bộ segments (không merge)
	UpdateTranscript(id uuid.UUID, segments []models.DialogueSegment) error
	// ReplaceTags thay toàn bộ tag của podcast, tự tạo tag mới nếu cần
	ReplaceTags(id uuid.UUID, names []string) error
	// Update ghi một phần field rồi trả về bản ghi mới nhất
	Update(id uuid.UUID, fields map[string]interface{}) (*models.Podcast, error)
	FindByID(id uuid.UUID) (*models.Podcast, error)
	FindByOwner(ownerID uuid.UUID) ([]models.Podcast, error)
	Delete(id uuid.UUID) error
}

type GormPodcastRepository struct {
	db *gorm.DB
}

func NewGormPodcastRepository(db *gorm.DB) *GormPodcastRepository {
	return &GormPodcastRepository{db: db}
}

func (r *GormPodcastRepository) CreateInitial(ownerID uuid.UUID, src models.SourceRef, hostID, cohostID string) (*models.Podcast, error) {
	podcast := models.Podcast{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Status:       string(models.StatusProcessing),
		SourceKind:   string(src.Kind),
		SourceDetail: src.Detail,
		HostID:       hostID,
		CohostID:     cohostID,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&podcast).Error; err != nil {
			return err
		}
		transcript := models.Transcript{
			ID:        uuid.New(),
			PodcastID: podcast.ID,
			Segments:  models.DialogueSegments{},
		}
		return tx.Create(&transcript).Error
	})
	if err != nil {
		return nil, err
	}
	return &podcast, nil
}

func (r *GormPodcastRepository) UpdateStatus(id uuid.UUID, status models.PodcastStatus, errMsg *string) error {
	return r.db.Model(&models.Podcast{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        string(status),
			"error_message": errMsg,
		}).Error
}

func (r *GormPodcastRepository) UpdateTranscript(id uuid.UUID, segments []models.DialogueSegment) error {
	var transcript models.Transcript
	if err := r.db.First(&transcript, "podcast_id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		transcript = models.Transcript{
			ID:        uuid.New(),
			PodcastID: id,
			Segments:  models.DialogueSegments(segments),
		}
		return r.db.Create(&transcript).Error
	}

	transcript.Segments = models.DialogueSegments(segments)
	return r.db.Save(&transcript).Error
}

func (r *GormPodcastRepository) ReplaceTags(id uuid.UUID, names []string) error {
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&tag).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			tag = models.Tag{ID: uuid.New(), Name: name}
			if err := r.db.Create(&tag).Error; err != nil {
				return err
			}
		}
		tags = append(tags, tag)
	}

	podcast := models.Podcast{ID: id}
	return r.db.Model(&podcast).Association("Tags").Replace(&tags)
}

func (r *GormPodcastRepository) Update(id uuid.UUID, fields map[string]interface{}) (*models.Podcast, error) {
	if err := r.db.Model(&models.Podcast{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.FindByID(id)
}

func (r *GormPodcastRepository) FindByID(id uuid.UUID) (*models.Podcast, error) {
	var podcast models.Podcast
	if err := r.db.Preload("Transcript").Preload("Tags").First(&podcast, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &podcast, nil
}

func (r *GormPodcastRepository) FindByOwner(ownerID uuid.UUID) ([]models.Podcast, error) {
	var podcasts []models.Podcast
	err := r.db.Where("owner_id = ?", ownerID).
		Preload("Tags").
		Order("created_at DESC").
		Find(&podcasts).Error
	return podcasts, err
}

func (r *GormPodcastRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		podcast := models.Podcast{ID: id}
		if err := tx.Model(&podcast).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Delete(&models.Transcript{}, "podcast_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Podcast{}, "id = ?", id).Error
	})
}
