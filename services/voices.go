package services

import (
	"fmt"
	"sync"

	"github.com/vnkhanh/duocast-backend/models"
)

// Catalog tĩnh các personality dẫn chương trình
var personalities = []models.Personality{
	{
		ID:          "minh-anh",
		Name:        "Minh Anh",
		Description: "Giọng nữ ấm, dẫn dắt mạch lạc, hay đặt câu hỏi gợi mở cho người nghe.",
	},
	{
		ID:          "quoc-bao",
		Name:        "Quốc Bảo",
		Description: "Giọng nam trầm, phân tích sâu, thích lấy ví dụ đời thường để giải thích.",
	},
	{
		ID:          "thu-ha",
		Name:        "Thu Hà",
		Description: "Giọng nữ trẻ trung, tiết tấu nhanh, phản biện dí dỏm.",
	},
	{
		ID:          "duc-huy",
		Name:        "Đức Huy",
		Description: "Giọng nam sáng, kể chuyện lôi cuốn, hay tóm ý cuối mỗi đoạn.",
	},
}

type voiceKey struct {
	provider    string
	personality string
}

// Bảng tra (provider, personality) -> voice handle.
// Handle khác nhau giữa các provider nên không để trong models.Personality.
var voiceHandles = map[voiceKey]string{
	{ProviderGoogle, "minh-anh"}: "vi-VN-Chirp3-HD-Aoede",
	{ProviderGoogle, "quoc-bao"}: "vi-VN-Chirp3-HD-Puck",
	{ProviderGoogle, "thu-ha"}:   "vi-VN-Chirp3-HD-Leda",
	{ProviderGoogle, "duc-huy"}:  "vi-VN-Chirp3-HD-Charon",

	{ProviderVITS, "minh-anh"}: "vivos-f01",
	{ProviderVITS, "quoc-bao"}: "vivos-m02",
	{ProviderVITS, "thu-ha"}:   "vivos-f03",
	{ProviderVITS, "duc-huy"}:  "vivos-m04",
}

// VoiceInfo là personality đã gắn voice handle theo provider đang hoạt động
type VoiceInfo struct {
	models.Personality
	VoiceHandle string `json:"voice_handle"`
}

// VoiceCatalog tra cứu personality + voice handle, có memo danh sách theo provider.
// Memo được tính lại khi provider đổi, không giữ kết quả cũ.
type VoiceCatalog struct {
	mu             sync.Mutex
	cachedProvider string
	cachedList     []VoiceInfo
}

func NewVoiceCatalog() *VoiceCatalog {
	return &VoiceCatalog{}
}

// Resolve trả về personality và voice handle cho provider, lỗi rõ ràng khi không có
func (c *VoiceCatalog) Resolve(provider string, personalityID string) (models.Personality, string, error) {
	var found *models.Personality
	for i := range personalities {
		if personalities[i].ID == personalityID {
			found = &personalities[i]
			break
		}
	}
	if found == nil {
		return models.Personality{}, "", fmt.Errorf("không tìm thấy personality %q", personalityID)
	}

	handle, ok := voiceHandles[voiceKey{provider: provider, personality: personalityID}]
	if !ok {
		return models.Personality{}, "", fmt.Errorf("personality %q chưa có voice cho provider %q", personalityID, provider)
	}
	return *found, handle, nil
}

// List trả về toàn bộ personality kèm voice handle của provider.
// Personality thiếu handle cho provider đó bị bỏ qua.
func (c *VoiceCatalog) List(provider string) []VoiceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedProvider == provider && c.cachedList != nil {
		return c.cachedList
	}

	list := make([]VoiceInfo, 0, len(personalities))
	for _, p := range personalities {
		handle, ok := voiceHandles[voiceKey{provider: provider, personality: p.ID}]
		if !ok {
			continue
		}
		list = append(list, VoiceInfo{Personality: p, VoiceHandle: handle})
	}

	c.cachedProvider = provider
	c.cachedList = list
	return list
}
