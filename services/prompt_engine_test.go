package services

import (
	"context"
	"errors"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	response   string
	err        error
	calls      int
	lastPrompt string
	lastOpts   ModelOptions
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, prompt string, opts ModelOptions) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastOpts = opts
	return f.response, f.err
}

var testPromptDef = PromptDefinition{
	Name:         "test-script",
	Template:     template.Must(template.New("test-script").Parse("Tóm tắt nội dung sau: {{.content}}")),
	InputSchema:  `{"type":"object","required":["content"],"properties":{"content":{"type":"string","minLength":1}}}`,
	OutputSchema: `{"type":"object","required":["title","dialogue"],"properties":{"title":{"type":"string","minLength":1},"dialogue":{"type":"array","minItems":1}}}`,
	Defaults:     ModelOptions{Model: "gemini-2.0-flash", Temperature: float32Ptr(0.7)},
}

func TestEngineRunSuccess(t *testing.T) {
	llm := &fakeLLM{response: `{"title": "Bài test", "dialogue": [{"speaker": "a", "line": "xin chào"}]}`}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "nội dung"}, nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "Bài test", out["title"])
	assert.Equal(t, 1, llm.calls)
	// Prompt phải chứa nội dung render + chỉ dẫn schema
	assert.Contains(t, llm.lastPrompt, "Tóm tắt nội dung sau: nội dung")
	assert.Contains(t, llm.lastPrompt, `"dialogue"`)
}

func TestEngineRunMergesOptions(t *testing.T) {
	llm := &fakeLLM{response: `{"title": "x", "dialogue": [1]}`}
	engine := NewEngine(llm)

	override := &ModelOptions{Temperature: float32Ptr(0.1)}
	_, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, override)
	require.NoError(t, err)

	// Override đè default của definition, model giữ nguyên
	assert.Equal(t, "gemini-2.0-flash", llm.lastOpts.Model)
	require.NotNil(t, llm.lastOpts.Temperature)
	assert.InDelta(t, 0.1, float64(*llm.lastOpts.Temperature), 0.0001)
}

func TestEngineRunInputValidationSkipsModel(t *testing.T) {
	llm := &fakeLLM{response: `{}`}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{}, nil)
	require.Error(t, err)
	assert.Nil(t, out)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrInputValidation, engErr.Kind)
	assert.NotEmpty(t, engErr.Fields)
	// Params không hợp lệ thì model không được gọi
	assert.Equal(t, 0, llm.calls)
}

func TestEngineRunModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, nil)
	require.Error(t, err)
	assert.Nil(t, out)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrModel, engErr.Kind)
}

func TestEngineRunEmptyResponse(t *testing.T) {
	llm := &fakeLLM{response: "   \n"}
	engine := NewEngine(llm)

	_, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, nil)
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrModel, engErr.Kind)
}

func TestEngineRunParseError(t *testing.T) {
	llm := &fakeLLM{response: "xin lỗi, tôi không thể trả lời câu hỏi này"}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, nil)
	require.Error(t, err)
	assert.Nil(t, out)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrParse, engErr.Kind)
	assert.Contains(t, engErr.Snippet, "xin lỗi")
}

func TestEngineRunOutputValidation(t *testing.T) {
	// Thiếu dialogue so với output schema
	llm := &fakeLLM{response: `{"title": "chỉ có title"}`}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, nil)
	require.Error(t, err)
	assert.Nil(t, out)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrOutputValidation, engErr.Kind)
	assert.NotEmpty(t, engErr.Fields)
}

func TestStripMarkdownFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "không có fence",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "fence json",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "fence không tag",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "fence viết hoa",
			in:   "```JSON\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "khoảng trắng bao quanh",
			in:   "\n  ```json\n{\"a\": 1}\n```  \n",
			want: `{"a": 1}`,
		},
		{
			// Fence nằm trong string JSON không được cắt cụt payload
			name: "fence trong string value",
			in:   "```json\n{\"line\": \"dùng ```go để viết code``` nhé\"}\n```",
			want: `{"line": "dùng ` + "```go để viết code```" + ` nhé"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdownFence(tt.in))
		})
	}
}

func TestStripMarkdownFenceRoundTripsJSON(t *testing.T) {
	llm := &fakeLLM{response: "```json\n{\"title\": \"Bài về ```markdown```\", \"dialogue\": [1]}\n```"}
	engine := NewEngine(llm)

	out, err := engine.Run(context.Background(), testPromptDef, map[string]interface{}{"content": "abc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bài về ```markdown```", out["title"])
}
