package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DialogueSegment là một lượt thoại trong kịch bản, gắn với một personality
type DialogueSegment struct {
	Speaker string `json:"speaker"`
	Line    string `json:"line"`
}

// DialogueSegments lưu dạng JSONB, thứ tự phần tử chính là thứ tự đọc/ghép audio
type DialogueSegments []DialogueSegment

func (s DialogueSegments) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *DialogueSegments) Scan(value interface{}) error {
	if value == nil {
		*s = DialogueSegments{}
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("không đọc được dialogue segments từ DB")
	}
	return json.Unmarshal(b, s)
}

type Transcript struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PodcastID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex" json:"podcast_id"`
	Segments  DialogueSegments `gorm:"type:jsonb;default:'[]'" json:"segments"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
