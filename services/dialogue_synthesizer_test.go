package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/duocast-backend/models"
)

// fakeTTS trả audio dạng "voice|text" để test kiểm tra được cả voice lẫn thứ tự
type fakeTTS struct {
	mu        sync.Mutex
	calls     int
	failLines map[string]bool
	delay     time.Duration

	inFlight    int32
	maxInFlight int32
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls++
	fail := f.failLines[text]
	f.mu.Unlock()

	if fail {
		return nil, errors.New("provider từ chối")
	}
	return []byte(opts.Voice + "|" + text), nil
}

func (f *fakeTTS) ActiveProvider() string { return ProviderGoogle }

var testVoiceMap = map[string]string{
	"minh-anh": "voice-a",
	"quoc-bao": "voice-b",
}

func TestSynthesizeKeepsOrder(t *testing.T) {
	tts := &fakeTTS{}
	synth := NewDialogueSynthesizer(tts, 2)

	dialogue := []models.DialogueSegment{
		{Speaker: "minh-anh", Line: "câu một"},
		{Speaker: "quoc-bao", Line: "câu hai"},
		{Speaker: "minh-anh", Line: "câu ba"},
	}

	results := synth.Synthesize(context.Background(), dialogue, testVoiceMap, "voice-a")
	require.Len(t, results, 3)

	assert.Equal(t, []byte("voice-a|câu một"), results[0])
	assert.Equal(t, []byte("voice-b|câu hai"), results[1])
	assert.Equal(t, []byte("voice-a|câu ba"), results[2])
}

func TestSynthesizeSkipsEmptyLines(t *testing.T) {
	tts := &fakeTTS{}
	synth := NewDialogueSynthesizer(tts, 2)

	dialogue := []models.DialogueSegment{
		{Speaker: "minh-anh", Line: "có nội dung"},
		{Speaker: "quoc-bao", Line: "   "},
		{Speaker: "quoc-bao", Line: ""},
	}

	results := synth.Synthesize(context.Background(), dialogue, testVoiceMap, "voice-a")
	require.Len(t, results, 3)

	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.Nil(t, results[2])
	// Lượt thoại rỗng không được tốn call TTS
	assert.Equal(t, 1, tts.calls)
}

func TestSynthesizeUnknownSpeakerUsesDefaultVoice(t *testing.T) {
	tts := &fakeTTS{}
	synth := NewDialogueSynthesizer(tts, 2)

	dialogue := []models.DialogueSegment{
		{Speaker: "nguoi-la", Line: "ai đây"},
	}

	results := synth.Synthesize(context.Background(), dialogue, testVoiceMap, "voice-default")
	require.Len(t, results, 1)
	assert.Equal(t, []byte("voice-default|ai đây"), results[0])
}

func TestSynthesizeFailSoft(t *testing.T) {
	tts := &fakeTTS{failLines: map[string]bool{"câu lỗi": true}}
	synth := NewDialogueSynthesizer(tts, 2)

	dialogue := []models.DialogueSegment{
		{Speaker: "minh-anh", Line: "câu đầu"},
		{Speaker: "quoc-bao", Line: "câu lỗi"},
		{Speaker: "minh-anh", Line: "câu cuối"},
	}

	results := synth.Synthesize(context.Background(), dialogue, testVoiceMap, "voice-a")
	require.Len(t, results, 3)

	// Đoạn lỗi thành nil, các đoạn khác không bị ảnh hưởng
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
}

func TestSynthesizeRespectsConcurrencyLimit(t *testing.T) {
	tts := &fakeTTS{delay: 20 * time.Millisecond}
	synth := NewDialogueSynthesizer(tts, 3)

	dialogue := make([]models.DialogueSegment, 20)
	for i := range dialogue {
		dialogue[i] = models.DialogueSegment{Speaker: "minh-anh", Line: "lượt thoại"}
	}

	results := synth.Synthesize(context.Background(), dialogue, testVoiceMap, "voice-a")
	require.Len(t, results, 20)

	assert.Equal(t, 20, tts.calls)
	assert.LessOrEqual(t, atomic.LoadInt32(&tts.maxInFlight), int32(3))
}
