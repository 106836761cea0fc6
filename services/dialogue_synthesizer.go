package services

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/vnkhanh/duocast-backend/models"
)

// Giới hạn số call TTS chạy song song (tránh vượt rate limit của provider)
const DefaultSynthesisConcurrency = 5

// DialogueSynthesizer fan-out từng lượt thoại thành audio, kết quả giữ nguyên
// thứ tự input. Lỗi từng đoạn không làm hỏng các đoạn khác (fail-soft).
type DialogueSynthesizer struct {
	tts         SpeechSynthesizer
	concurrency int
}

func NewDialogueSynthesizer(tts SpeechSynthesizer, concurrency int) *DialogueSynthesizer {
	if concurrency <= 0 {
		concurrency = DefaultSynthesisConcurrency
	}
	return &DialogueSynthesizer{tts: tts, concurrency: concurrency}
}

// Synthesize trả về slice cùng độ dài với dialogue, phần tử i là audio của
// lượt thoại i hoặc nil nếu đoạn đó lỗi / rỗng. Hàm không bao giờ trả lỗi;
// caller phải tự coi kết quả toàn nil là thất bại.
func (d *DialogueSynthesizer) Synthesize(ctx context.Context, dialogue []models.DialogueSegment, voiceMap map[string]string, defaultVoice string) [][]byte {
	results := make([][]byte, len(dialogue))

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup

	for i, seg := range dialogue {
		// Lượt thoại rỗng bỏ qua luôn, không tốn call
		if strings.TrimSpace(seg.Line) == "" {
			continue
		}

		voice, ok := voiceMap[seg.Speaker]
		if !ok {
			log.Printf("Không có voice cho speaker %q, dùng voice mặc định", seg.Speaker)
			voice = defaultVoice
		}

		wg.Add(1)
		go func(idx int, line string, voice string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			audio, err := d.tts.Synthesize(ctx, line, SynthesizeOptions{Voice: voice})
			if err != nil {
				log.Printf("Tổng hợp giọng đoạn %d thất bại: %v", idx, err)
				return
			}
			results[idx] = audio
		}(i, seg.Line, voice)
	}

	wg.Wait()
	return results
}
