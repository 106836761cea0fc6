package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Các provider TTS được hỗ trợ
const (
	ProviderGoogle = "google"
	ProviderVITS   = "vits"
)

type SynthesizeOptions struct {
	Voice string  // voice handle theo provider
	Speed float64 // 0 = mặc định 1.0
}

// SpeechSynthesizer là collaborator tổng hợp giọng nói.
// ActiveProvider dùng để chọn đúng voice handle trong catalog.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error)
	ActiveProvider() string
}

// NewSynthesizerFromEnv chọn provider theo TTS_PROVIDER (mặc định google)
func NewSynthesizerFromEnv() SpeechSynthesizer {
	if os.Getenv("TTS_PROVIDER") == ProviderVITS {
		return NewVITSTTS()
	}
	return NewGoogleTTS()
}

// ===== Google Cloud TTS =====

type GoogleTTS struct {
	credPath     string
	languageCode string
}

func NewGoogleTTS() *GoogleTTS {
	lang := os.Getenv("TTS_LANGUAGE")
	if lang == "" {
		lang = "vi-VN"
	}
	return &GoogleTTS{
		credPath:     os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		languageCode: lang,
	}
}

func (g *GoogleTTS) ActiveProvider() string { return ProviderGoogle }

// Synthesize chuyển text thành audio []byte (MP3)
func (g *GoogleTTS) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error) {
	if len(text) == 0 {
		return nil, errors.New("text is empty")
	}
	if opts.Voice == "" {
		return nil, errors.New("voice handle chưa được chỉ định")
	}
	rate := opts.Speed
	if rate <= 0 {
		rate = 1.0
	}
	if g.credPath == "" {
		return nil, errors.New("GOOGLE_CREDENTIALS_JSON environment variable is not set")
	}

	client, err := texttospeech.NewClient(ctx, option.WithCredentialsFile(g.credPath))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	chunks := splitTextToChunksByByte(text, 4500) // Dưới ngưỡng 5000 bytes
	var allAudio []byte

	for _, chunk := range chunks {
		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{
					Text: chunk,
				},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: g.languageCode,
				Name:         opts.Voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  rate,
			},
		}

		resp, err := client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, err
		}
		allAudio = append(allAudio, resp.AudioContent...)
	}

	return allAudio, nil
}

// splitTextToChunksByByte chia text theo giới hạn byte + dấu câu
func splitTextToChunksByByte(text string, maxBytes int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxBytes {
			chunks = append(chunks, remaining)
			break
		}

		cutPos := maxBytes
		// Tìm dấu câu trong đoạn cắt được
		for i := cutPos; i > 0; i-- {
			if remaining[i-1] == '.' || remaining[i-1] == '!' || remaining[i-1] == '?' || remaining[i-1] == '\n' {
				cutPos = i
				break
			}
		}

		// Nếu không tìm thấy dấu câu, đảm bảo không cắt giữa ký tự UTF-8
		for cutPos < len(remaining) && (remaining[cutPos]&0xC0) == 0x80 {
			cutPos++
		}

		chunks = append(chunks, remaining[:cutPos])
		remaining = remaining[cutPos:]
	}

	return chunks
}

// ===== VITS sidecar (HTTP) =====

type VITSTTS struct {
	baseURL string
	client  *http.Client
}

func NewVITSTTS() *VITSTTS {
	base := os.Getenv("VITS_TTS_URL")
	if base == "" {
		base = "http://localhost:5004/tts"
	}
	return &VITSTTS{baseURL: base, client: &http.Client{}}
}

func (v *VITSTTS) ActiveProvider() string { return ProviderVITS }

func (v *VITSTTS) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) ([]byte, error) {
	if len(text) == 0 {
		return nil, errors.New("text is empty")
	}

	params := url.Values{}
	params.Add("text", text)
	params.Add("voice", opts.Voice)
	if opts.Speed > 0 {
		params.Add("speed", fmt.Sprintf("%.2f", opts.Speed))
	}

	reqURL := fmt.Sprintf("%s?%s", v.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lỗi gọi VITS: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("VITS lỗi %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		AudioURL string `json:"audio_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("lỗi đọc JSON từ VITS: %v", err)
	}
	if data.AudioURL == "" {
		return nil, fmt.Errorf("VITS không trả về audio_url")
	}

	// VITS trả URL, tải bytes về để đồng nhất với các provider khác
	audioResp, err := v.client.Get(data.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("không tải được audio từ VITS: %v", err)
	}
	defer audioResp.Body.Close()
	if audioResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tải audio VITS lỗi %d", audioResp.StatusCode)
	}
	return io.ReadAll(audioResp.Body)
}
