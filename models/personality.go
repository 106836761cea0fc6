package models

// Personality là một giọng dẫn chương trình trong catalog tĩnh.
// Voice handle cụ thể phụ thuộc provider TTS đang hoạt động,
// tra cứu qua services.VoiceCatalog chứ không lưu ở đây.
type Personality struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
