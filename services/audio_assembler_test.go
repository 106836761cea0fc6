package services

import (
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecCommand chạy lại chính test binary dưới dạng TestHelperProcess
// để giả lập ffmpeg mà không cần cài đặt ffmpeg thật
func fakeExecCommand(command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

// TestHelperProcess giả lập ffmpeg concat: đọc file danh sách, nối nội dung
// các file input theo thứ tự rồi ghi ra file output (arg cuối cùng)
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) == 0 || args[0] != "ffmpeg" {
		fmt.Fprintln(os.Stderr, "lệnh không phải ffmpeg:", args)
		os.Exit(1)
	}
	if os.Getenv("HELPER_FFMPEG_FAIL") == "1" {
		fmt.Fprintln(os.Stderr, "ffmpeg: giả lập lỗi concat")
		os.Exit(1)
	}

	var listPath string
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			listPath = args[i+1]
		}
	}
	outPath := args[len(args)-1]

	data, err := os.ReadFile(listPath)
	if err != nil {
		os.Exit(1)
	}
	var merged []byte
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "file '") {
			continue
		}
		p := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		b, err := os.ReadFile(p)
		if err != nil {
			os.Exit(1)
		}
		merged = append(merged, b...)
	}
	if err := os.WriteFile(outPath, merged, 0o644); err != nil {
		os.Exit(1)
	}
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "thư mục scratch phải được dọn sạch")
}

func TestStitchConcatsInOrder(t *testing.T) {
	execCommand = fakeExecCommand
	defer func() { execCommand = exec.Command }()

	dir := t.TempDir()
	assembler := NewAudioAssembler(dir)

	buffers := [][]byte{
		[]byte("đoạn-1"),
		nil, // đoạn tổng hợp lỗi bị bỏ qua
		[]byte("đoạn-3"),
	}

	merged, err := assembler.Stitch(buffers, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("đoạn-1đoạn-3"), merged)

	assertScratchEmpty(t, dir)
}

func TestStitchNoValidBuffers(t *testing.T) {
	execCommand = fakeExecCommand
	defer func() { execCommand = exec.Command }()

	dir := t.TempDir()
	assembler := NewAudioAssembler(dir)

	_, err := assembler.Stitch([][]byte{nil, {}, nil}, "job-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "không có đoạn audio hợp lệ")

	assertScratchEmpty(t, dir)
}

func TestStitchFfmpegFailureCleansUp(t *testing.T) {
	execCommand = fakeExecCommand
	defer func() { execCommand = exec.Command }()
	t.Setenv("HELPER_FFMPEG_FAIL", "1")

	dir := t.TempDir()
	assembler := NewAudioAssembler(dir)

	_, err := assembler.Stitch([][]byte{[]byte("audio")}, "job-3")
	require.Error(t, err)

	// Lỗi giữa chừng vẫn phải dọn hết file scratch
	assertScratchEmpty(t, dir)
}

func TestDurationInvalidBufferReturnsZero(t *testing.T) {
	dir := t.TempDir()
	assembler := NewAudioAssembler(dir)

	// Không phải MP3 hợp lệ: trả 0 thay vì lỗi
	assert.Equal(t, 0, assembler.Duration([]byte("không phải mp3")))
	assert.Equal(t, 0, assembler.Duration(nil))

	assertScratchEmpty(t, dir)
}

func TestEncodeDataURI(t *testing.T) {
	assembler := NewAudioAssembler(t.TempDir())

	buf := []byte{0xFF, 0xFB, 0x90, 0x00}
	got := assembler.Encode(buf)

	require.True(t, strings.HasPrefix(got, "data:audio/mp3;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "data:audio/mp3;base64,"))
	require.NoError(t, err)
	assert.Equal(t, buf, decoded)

	// Encode thuần biến đổi: cùng input cho cùng output
	assert.Equal(t, got, assembler.Encode(buf))
}
