package models

import (
	"time"

	"github.com/google/uuid"
)

type PodcastStatus string

const (
	StatusProcessing PodcastStatus = "processing"
	StatusSuccess    PodcastStatus = "success"
	StatusFailed     PodcastStatus = "failed"
)

type SourceKind string

const (
	SourceURL    SourceKind = "url"     // link bài viết / trang web
	SourceText   SourceKind = "text"    // người dùng nhập văn bản trực tiếp
	SourcePDFURL SourceKind = "pdf_url" // link file PDF
)

// SourceRef mô tả nguồn nội dung đầu vào của một podcast
type SourceRef struct {
	Kind   SourceKind `json:"kind"`
	Detail string     `json:"detail"`
}

type Podcast struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null" json:"owner_id"`
	Owner        User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Title        string     `gorm:"size:255" json:"title"`
	Summary      string     `gorm:"type:text" json:"summary"`
	Status       string     `gorm:"type:VARCHAR(20);default:'processing'" json:"status"` // processing | success | failed
	SourceKind   string     `gorm:"size:20;not null" json:"source_kind"`
	SourceDetail string     `gorm:"type:text;not null" json:"source_detail"`
	HostID       string     `gorm:"size:50;not null" json:"host_id"`   // personality đọc chính
	CohostID     string     `gorm:"size:50;not null" json:"cohost_id"` // personality đối thoại
	AudioData    string     `gorm:"type:text" json:"audio_data"`       // data URI mp3 (base64)
	StorageURL   string     `gorm:"type:text" json:"storage_url"`      // bản lưu trữ trên Supabase (nếu upload được)
	DurationSec  int        `json:"duration_sec"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message"`
	GeneratedAt  *time.Time `json:"generated_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Transcript *Transcript `json:"transcript,omitempty"`
	Tags       []Tag       `gorm:"many2many:podcast_tags" json:"tags"`
}

// Source gộp lại kind + detail cho tầng service
func (p *Podcast) Source() SourceRef {
	return SourceRef{Kind: SourceKind(p.SourceKind), Detail: p.SourceDetail}
}
