package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/xeipuuv/gojsonschema"
)

// Phân loại lỗi của prompt engine
type ErrorKind string

const (
	ErrInputValidation  ErrorKind = "input_validation"
	ErrModel            ErrorKind = "model"
	ErrParse            ErrorKind = "parse"
	ErrOutputValidation ErrorKind = "output_validation"
)

// EngineError là kết quả lỗi của Engine.Run. Run không bao giờ trả về
// đồng thời output và lỗi: có lỗi thì output là nil.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Fields  []string // các field vi phạm schema (nếu có)
	Snippet string   // đoạn text gây lỗi parse (nếu có)
}

func (e *EngineError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(e.Fields, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// PromptDefinition là một structured prompt: template + schema input/output
type PromptDefinition struct {
	Name         string
	Template     *template.Template
	InputSchema  string // JSON schema cho params, bắt buộc
	OutputSchema string // JSON schema cho output, rỗng = model trả text tự do
	Defaults     ModelOptions
}

// Engine render structured prompt, gọi model và validate JSON trả về
type Engine struct {
	llm ChatCompleter
}

func NewEngine(llm ChatCompleter) *Engine {
	return &Engine{llm: llm}
}

const snippetLen = 160

// Run trả về object đã validate hoặc *EngineError, không bao giờ cả hai.
// Model chỉ được gọi sau khi params qua được input schema.
func (e *Engine) Run(ctx context.Context, def PromptDefinition, params map[string]interface{}, opts *ModelOptions) (map[string]interface{}, error) {
	// 1. Validate params trước khi đụng tới model
	fields, err := validateSchema(def.InputSchema, params)
	if err != nil {
		return nil, &EngineError{
			Kind:    ErrInputValidation,
			Message: fmt.Sprintf("không validate được input schema của %q: %v", def.Name, err),
		}
	}
	if fields != nil {
		return nil, &EngineError{
			Kind:    ErrInputValidation,
			Message: fmt.Sprintf("tham số prompt %q không hợp lệ", def.Name),
			Fields:  fields,
		}
	}

	// 2. Render template
	var buf bytes.Buffer
	if err := def.Template.Execute(&buf, params); err != nil {
		return nil, &EngineError{
			Kind:    ErrInputValidation,
			Message: fmt.Sprintf("không render được template %q: %v", def.Name, err),
		}
	}
	prompt := buf.String()
	if def.OutputSchema != "" {
		prompt += schemaInstruction(def.OutputSchema)
	}

	// 3. Gọi model với options đã merge
	raw, err := e.llm.ChatCompletion(ctx, prompt, def.Defaults.merge(opts))
	if err != nil {
		return nil, &EngineError{Kind: ErrModel, Message: err.Error()}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &EngineError{Kind: ErrModel, Message: "model trả về nội dung rỗng"}
	}

	// 4. Làm sạch output (loại bỏ markdown fence) rồi parse JSON
	clean := StripMarkdownFence(raw)
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, &EngineError{
			Kind:    ErrParse,
			Message: fmt.Sprintf("output không phải JSON hợp lệ: %v", err),
			Snippet: snippet(clean),
		}
	}

	// 5. Validate output schema (nếu có)
	if def.OutputSchema != "" {
		if fields, err := validateSchema(def.OutputSchema, parsed); err != nil || fields != nil {
			msg := fmt.Sprintf("output của prompt %q không đạt schema", def.Name)
			if err != nil {
				msg = fmt.Sprintf("không validate được output schema của %q: %v", def.Name, err)
			}
			return nil, &EngineError{
				Kind:    ErrOutputValidation,
				Message: msg,
				Fields:  fields,
			}
		}
	}

	return parsed, nil
}

// validateSchema trả về danh sách field vi phạm (nil nếu hợp lệ)
func validateSchema(schema string, doc interface{}) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	fields := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		fields = append(fields, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	return fields, nil
}

// schemaInstruction sinh phần chỉ dẫn máy-đọc-được nối vào cuối prompt
func schemaInstruction(outputSchema string) string {
	return "\n\nChỉ trả về DUY NHẤT một object JSON đúng theo schema sau, " +
		"không kèm markdown, không giải thích, không thêm bất kỳ ký tự nào khác:\n" +
		outputSchema
}

// StripMarkdownFence bỏ một lớp fence ```/```json bao ngoài (nếu có).
// Đây là xử lý text best-effort chứ không phải markdown parser:
// fence đóng được tìm từ cuối chuỗi nên fence nằm trong string JSON không làm cụt payload.
func StripMarkdownFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(s string) string {
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen] + "..."
}
