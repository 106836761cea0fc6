package utils

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// CleanupScratchFiles xóa các file tạm của audio assembler bị bỏ lại
// (ví dụ process bị kill giữa chừng) đã cũ hơn maxAge.
func CleanupScratchFiles(dir string, maxAge time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Lỗi khi đọc thư mục scratch %s: %v", dir, err)
		}
		return
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Lỗi khi xóa file scratch %s: %v", entry.Name(), err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("Đã xóa %d file scratch mồ côi trong %s", removed, dir)
	}
}

// StartScratchJanitor chạy dọn file scratch định kỳ
func StartScratchJanitor(dir string) {
	// Chạy cleanup ngay lần đầu khi khởi động
	CleanupScratchFiles(dir, time.Hour)

	// Thiết lập ticker để chạy mỗi giờ
	ticker := time.NewTicker(time.Hour)

	go func() {
		defer ticker.Stop()
		for range ticker.C {
			CleanupScratchFiles(dir, time.Hour)
		}
	}()

	log.Println("Scratch janitor đã được khởi động (chạy mỗi giờ)")
}
