package services

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ModelOptions gom các tuỳ chọn cho một lần gọi model.
// Options mặc định của prompt definition bị override bởi options truyền khi gọi.
type ModelOptions struct {
	Model           string
	Temperature     *float32
	MaxOutputTokens *int32
}

func (o ModelOptions) merge(override *ModelOptions) ModelOptions {
	if override == nil {
		return o
	}
	merged := o
	if override.Model != "" {
		merged.Model = override.Model
	}
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.MaxOutputTokens != nil {
		merged.MaxOutputTokens = override.MaxOutputTokens
	}
	return merged
}

// ChatCompleter là collaborator gọi language model, tách interface để test
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, prompt string, opts ModelOptions) (string, error)
}

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient gọi Gemini qua API key trong env
type GeminiClient struct {
	apiKey string
}

func NewGeminiClient() *GeminiClient {
	return &GeminiClient{apiKey: os.Getenv("GEMINI_API_KEY")}
}

func (g *GeminiClient) ChatCompletion(ctx context.Context, prompt string, opts ModelOptions) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("không thể tạo Gemini client: %v", err)
	}
	defer client.Close()

	modelName := opts.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	model := client.GenerativeModel(modelName)
	if opts.Temperature != nil {
		model.SetTemperature(*opts.Temperature)
	}
	if opts.MaxOutputTokens != nil {
		model.SetMaxOutputTokens(*opts.MaxOutputTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("lỗi Gemini xử lý: %v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini không trả kết quả hợp lệ")
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}
