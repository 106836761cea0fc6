package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	tcmp3 "github.com/tcolgate/mp3"
)

var execCommand = exec.Command

// AudioAssembler ghép các đoạn audio thành một file MP3 duy nhất bằng ffmpeg,
// đo thời lượng và encode artifact cuối. Mọi file scratch do nó tạo ra đều bị
// xóa khi xong việc, kể cả khi lỗi giữa chừng.
type AudioAssembler struct {
	scratchDir string
}

// NewAudioAssembler dùng scratchDir riêng (rỗng = <tmp>/duocast)
func NewAudioAssembler(scratchDir string) *AudioAssembler {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "duocast")
	}
	return &AudioAssembler{scratchDir: scratchDir}
}

func (a *AudioAssembler) ScratchDir() string { return a.scratchDir }

// Stitch ghi từng buffer hợp lệ ra file scratch theo đúng thứ tự input,
// gọi ffmpeg concat rồi đọc lại kết quả. Cần ít nhất một buffer khác nil.
func (a *AudioAssembler) Stitch(buffers [][]byte, jobID string) ([]byte, error) {
	if err := os.MkdirAll(a.scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("không tạo được thư mục scratch: %w", err)
	}

	var scratch []string
	defer func() { a.cleanup(scratch) }()

	// suffix ngẫu nhiên để các job chạy song song không đè file nhau
	suffix := uuid.New().String()[:8]

	var inputs []string
	for i, buf := range buffers {
		if len(buf) == 0 {
			continue
		}
		path := filepath.Join(a.scratchDir, fmt.Sprintf("%s-%s-%03d.mp3", jobID, suffix, i))
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			return nil, fmt.Errorf("không ghi được file scratch: %w", err)
		}
		scratch = append(scratch, path)
		inputs = append(inputs, path)
	}

	if len(inputs) == 0 {
		return nil, errors.New("không có đoạn audio hợp lệ để ghép")
	}

	// File danh sách cho ffmpeg concat demuxer
	listPath := filepath.Join(a.scratchDir, fmt.Sprintf("%s-%s-list.txt", jobID, suffix))
	var list string
	for _, p := range inputs {
		list += fmt.Sprintf("file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return nil, fmt.Errorf("không ghi được file danh sách ffmpeg: %w", err)
	}
	scratch = append(scratch, listPath)

	outPath := filepath.Join(a.scratchDir, fmt.Sprintf("%s-%s-out.mp3", jobID, suffix))
	scratch = append(scratch, outPath)

	cmd := execCommand("ffmpeg", "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("ffmpeg concat thất bại: %v, output: %s", err, string(output))
		return nil, fmt.Errorf("ghép audio thất bại: %w", err)
	}

	merged, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("không đọc được file audio đã ghép: %w", err)
	}
	return merged, nil
}

// Duration ghi buffer ra file tạm, decode từng frame MP3 để tính thời lượng
// (làm tròn về giây). Lỗi ở bất kỳ bước nào trả về 0 chứ không ném lỗi.
func (a *AudioAssembler) Duration(buffer []byte) int {
	if err := os.MkdirAll(a.scratchDir, 0o755); err != nil {
		log.Printf("Không tạo được thư mục scratch khi đo thời lượng: %v", err)
		return 0
	}

	path := filepath.Join(a.scratchDir, fmt.Sprintf("probe-%s.mp3", uuid.New().String()[:8]))
	defer a.cleanup([]string{path})

	if err := os.WriteFile(path, buffer, 0o644); err != nil {
		log.Printf("Không ghi được file probe: %v", err)
		return 0
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("Không mở được file probe: %v", err)
		return 0
	}
	defer f.Close()

	var (
		dur     float64
		dec     = tcmp3.NewDecoder(f)
		frame   tcmp3.Frame
		skipped int
	)

	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			log.Printf("Decode MP3 khi đo thời lượng lỗi: %v", err)
			return 0
		}
		dur += frame.Duration().Seconds()
	}

	return int(math.Round(dur))
}

// Encode chuyển buffer thành artifact reference dạng data URI (thuần biến đổi, không I/O)
func (a *AudioAssembler) Encode(buffer []byte) string {
	return "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(buffer)
}

// cleanup xóa file scratch; file đã biến mất không phải lỗi, lỗi khác chỉ log
func (a *AudioAssembler) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Không xóa được file scratch %s: %v", p, err)
		}
	}
}
