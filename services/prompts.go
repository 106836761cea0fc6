package services

import "text/template"

// Schema cho params của prompt tạo kịch bản
const scriptInputSchema = `{
	"type": "object",
	"required": ["content", "host_id", "host_name", "host_description", "cohost_id", "cohost_name", "cohost_description"],
	"properties": {
		"content":            {"type": "string", "minLength": 1},
		"host_id":            {"type": "string", "minLength": 1},
		"host_name":          {"type": "string", "minLength": 1},
		"host_description":   {"type": "string"},
		"cohost_id":          {"type": "string", "minLength": 1},
		"cohost_name":        {"type": "string", "minLength": 1},
		"cohost_description": {"type": "string"}
	}
}`

// Schema cho output: kịch bản hội thoại + metadata
const scriptOutputSchema = `{
	"type": "object",
	"required": ["title", "summary", "tags", "dialogue"],
	"properties": {
		"title":   {"type": "string", "minLength": 1},
		"summary": {"type": "string"},
		"tags":    {"type": "array", "items": {"type": "string"}},
		"dialogue": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["speaker", "line"],
				"properties": {
					"speaker": {"type": "string", "minLength": 1},
					"line":    {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

var scriptTemplate = template.Must(template.New("podcast_script").Parse(
	`Bạn là biên kịch podcast chuyên nghiệp. Từ nội dung bên dưới, hãy viết kịch bản
một tập podcast dạng hội thoại giữa HAI người dẫn chương trình.

Người dẫn chính (speaker = "{{.host_id}}"): {{.host_name}}. {{.host_description}}
Người đối thoại (speaker = "{{.cohost_id}}"): {{.cohost_name}}. {{.cohost_description}}

Yêu cầu:
1. Hai người thay phiên trao đổi tự nhiên, người dẫn chính mở đầu và chốt tập.
2. Trường "speaker" của từng lượt thoại CHỈ được là "{{.host_id}}" hoặc "{{.cohost_id}}".
3. Không lược bỏ nội dung chính, không tự ý thêm thông tin không có trong văn bản.
4. Ngôn ngữ nói tự nhiên, gần gũi, không quá khô khan. NẾU GẶP TỪ VIẾT TẮT, HÃY VIẾT RÕ RA.
5. KHÔNG sử dụng markdown trong lời thoại, KHÔNG thêm ký tự đặc biệt, KHÔNG gạch đầu dòng.
6. "title" ngắn gọn hấp dẫn, "summary" tóm tắt 2-3 câu, "tags" là 3-6 nhãn chủ đề.

Nội dung nguồn:
{{.content}}`))

// ScriptPromptDefinition là structured prompt sinh kịch bản hội thoại hai người
var ScriptPromptDefinition = PromptDefinition{
	Name:         "podcast_script",
	Template:     scriptTemplate,
	InputSchema:  scriptInputSchema,
	OutputSchema: scriptOutputSchema,
	Defaults: ModelOptions{
		Model:       defaultGeminiModel,
		Temperature: float32Ptr(0.7),
	},
}

func float32Ptr(v float32) *float32 { return &v }
